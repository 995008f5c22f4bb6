package webapp

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/avelar/confidant/credstore"
	"github.com/avelar/confidant/internal/testutil"
	"github.com/avelar/confidant/resolver"
	"github.com/avelar/confidant/session"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testApp struct {
	handler http.Handler
	store   *credstore.Store
}

func acquireApp(ctx context.Context, t *testing.T, google *GoogleLogin) (testApp, func()) {
	store, cleanup := testutil.AcquireWritableStore(ctx, t, "test")
	sessions, err := session.NewManager(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	res := resolver.New(store, resolver.NewVerifierWithCost(bcrypt.MinCost))
	handler, err := AsHandler(ctx, res, store, sessions, google, true)
	if err != nil {
		t.Fatal(err)
	}
	return testApp{handler: handler, store: store}, cleanup
}

func sessionToken(t *testing.T, result apitest.Result) string {
	for _, c := range result.Response.Cookies() {
		if c.Name == SessionCookie && c.Value != "" {
			return c.Value
		}
	}
	t.Fatal("no session cookie in response")
	return ""
}

func bodyContains(substr string) func(*http.Response, *http.Request) error {
	return func(res *http.Response, _ *http.Request) error {
		defer res.Body.Close()
		buf, err := ioutil.ReadAll(res.Body)
		if err != nil {
			return err
		}
		if !strings.Contains(string(buf), substr) {
			return fmt.Errorf("body does not contain %q:\n%s", substr, buf)
		}
		return nil
	}
}

func TestRegisterThenVisitSecrets(t *testing.T) {
	ctx := context.Background()
	app, cleanup := acquireApp(ctx, t, nil)
	defer cleanup()

	result := apitest.New().
		Handler(app.handler).
		Post("/register").
		FormData("username", "a@x.com").
		FormData("password", "pw1").
		Expect(t).
		Status(http.StatusSeeOther).
		Header("Location", "/secrets").
		End()
	token := sessionToken(t, result)

	apitest.New().
		Handler(app.handler).
		Get("/secrets").
		Header("Cookie", SessionCookie+"="+token).
		Expect(t).
		Status(http.StatusOK).
		Assert(bodyContains("a@x.com")).
		End()
}

func TestRegisterDuplicatePointsAtLogin(t *testing.T) {
	ctx := context.Background()
	app, cleanup := acquireApp(ctx, t, nil)
	defer cleanup()

	apitest.New().
		Handler(app.handler).
		Post("/register").
		FormData("username", "a@x.com").
		FormData("password", "pw1").
		Expect(t).
		Status(http.StatusSeeOther).
		End()

	apitest.New().
		Handler(app.handler).
		Post("/register").
		FormData("username", "a@x.com").
		FormData("password", "pw2").
		Expect(t).
		Status(http.StatusSeeOther).
		Header("Location", "/login?flash=exists").
		End()
}

func TestRejectionsLookIdenticalFromOutside(t *testing.T) {
	ctx := context.Background()
	app, cleanup := acquireApp(ctx, t, nil)
	defer cleanup()

	apitest.New().
		Handler(app.handler).
		Post("/register").
		FormData("username", "a@x.com").
		FormData("password", "pw1").
		Expect(t).
		Status(http.StatusSeeOther).
		End()

	// wrong password and unknown email must be indistinguishable
	badPassword := apitest.New().
		Handler(app.handler).
		Post("/login").
		FormData("username", "a@x.com").
		FormData("password", "wrong").
		Expect(t).
		Status(http.StatusSeeOther).
		End()
	unknownEmail := apitest.New().
		Handler(app.handler).
		Post("/login").
		FormData("username", "nobody@x.com").
		FormData("password", "wrong").
		Expect(t).
		Status(http.StatusSeeOther).
		End()

	require.Equal(t,
		badPassword.Response.Header.Get("Location"),
		unknownEmail.Response.Header.Get("Location"))
	require.Equal(t, badPassword.Response.StatusCode, unknownEmail.Response.StatusCode)
}

func TestProtectedPagesRedirectAnonymous(t *testing.T) {
	ctx := context.Background()
	app, cleanup := acquireApp(ctx, t, nil)
	defer cleanup()

	apitest.New().
		Handler(app.handler).
		Get("/secrets").
		Expect(t).
		Status(http.StatusSeeOther).
		Header("Location", "/login").
		End()

	apitest.New().
		Handler(app.handler).
		Get("/api/me").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
}

func TestAPIMeWithBearerToken(t *testing.T) {
	ctx := context.Background()
	app, cleanup := acquireApp(ctx, t, nil)
	defer cleanup()

	result := apitest.New().
		Handler(app.handler).
		Post("/register").
		FormData("username", "a@x.com").
		FormData("password", "pw1").
		Expect(t).
		Status(http.StatusSeeOther).
		End()
	token := sessionToken(t, result)

	apitest.New().
		Handler(app.handler).
		Get("/api/me").
		Header("Authorization", "Bearer "+token).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.email", "a@x.com")).
		Assert(jsonpath.Equal("$.federated", false)).
		End()
}

func TestUpdateSecret(t *testing.T) {
	ctx := context.Background()
	app, cleanup := acquireApp(ctx, t, nil)
	defer cleanup()

	result := apitest.New().
		Handler(app.handler).
		Post("/register").
		FormData("username", "a@x.com").
		FormData("password", "pw1").
		Expect(t).
		Status(http.StatusSeeOther).
		End()
	token := sessionToken(t, result)

	apitest.New().
		Handler(app.handler).
		Post("/secrets").
		FormData("secret", "the cake is a lie").
		Header("Cookie", SessionCookie+"="+token).
		Expect(t).
		Status(http.StatusSeeOther).
		Header("Location", "/secrets").
		End()

	// the session snapshot was refreshed in place
	apitest.New().
		Handler(app.handler).
		Get("/secrets").
		Header("Cookie", SessionCookie+"="+token).
		Expect(t).
		Status(http.StatusOK).
		Assert(bodyContains("the cake is a lie")).
		End()

	acc, err := app.store.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "the cake is a lie", acc.Secret)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	app, cleanup := acquireApp(ctx, t, nil)
	defer cleanup()

	result := apitest.New().
		Handler(app.handler).
		Post("/register").
		FormData("username", "a@x.com").
		FormData("password", "pw1").
		Expect(t).
		Status(http.StatusSeeOther).
		End()
	token := sessionToken(t, result)

	apitest.New().
		Handler(app.handler).
		Get("/logout").
		Header("Cookie", SessionCookie+"="+token).
		Expect(t).
		Status(http.StatusSeeOther).
		Header("Location", "/").
		End()

	apitest.New().
		Handler(app.handler).
		Get("/secrets").
		Header("Cookie", SessionCookie+"="+token).
		Expect(t).
		Status(http.StatusSeeOther).
		Header("Location", "/login").
		End()
}

func TestGoogleRedirectAndBadState(t *testing.T) {
	ctx := context.Background()
	google := NewGoogleLogin("client-id", "client-secret", "http://localhost:8080")
	app, cleanup := acquireApp(ctx, t, google)
	defer cleanup()

	redirect := apitest.New().
		Handler(app.handler).
		Get("/auth/google").
		Expect(t).
		Status(http.StatusSeeOther).
		End()
	location := redirect.Response.Header.Get("Location")
	require.Contains(t, location, "accounts.google.com")
	require.Contains(t, location, "state=")

	// a callback whose state does not match the cookie goes nowhere
	apitest.New().
		Handler(app.handler).
		Get("/auth/google/callback").
		Query("state", "forged").
		Query("code", "whatever").
		Expect(t).
		Status(http.StatusSeeOther).
		Header("Location", "/login?flash=failed").
		End()
}

func TestGoogleDisabledWhenUnconfigured(t *testing.T) {
	ctx := context.Background()
	app, cleanup := acquireApp(ctx, t, nil)
	defer cleanup()

	apitest.New().
		Handler(app.handler).
		Get("/auth/google").
		Expect(t).
		Status(http.StatusNotFound).
		End()

	apitest.New().
		Handler(app.handler).
		Get("/login").
		Expect(t).
		Status(http.StatusOK).
		Assert(bodyContains("Log in")).
		End()
}
