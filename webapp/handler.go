package webapp

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/avelar/confidant/credstore"
	"github.com/avelar/confidant/internal/logutil"
	"github.com/avelar/confidant/resolver"
	"github.com/avelar/confidant/session"
	"github.com/julienschmidt/httprouter"
)

const oauthStateCookie = "confidant_oauth_state"

type (
	app struct {
		resolver *resolver.R
		store    *credstore.Store
		sessions *session.Manager
		realm    *Realm
		google   *GoogleLogin
		views    *template.Template
	}
)

// AsHandler wires the whole route table: public pages, the local
// login/register endpoints, the protected secret page, a small JSON
// introspection endpoint and (when google is non-nil) the federated
// login pair.
func AsHandler(ctx context.Context, res *resolver.R, store *credstore.Store, sessions *session.Manager, google *GoogleLogin, allowHTTPCookie bool) (http.Handler, error) {
	views, err := parseViews()
	if err != nil {
		return nil, fmt.Errorf("unable to parse views, cause %w", err)
	}
	a := &app{
		resolver: res,
		store:    store,
		sessions: sessions,
		realm:    NewRealm(sessions, allowHTTPCookie),
		google:   google,
		views:    views,
	}
	router := httprouter.New()
	router.HandlerFunc("GET", "/", a.home)
	router.HandlerFunc("GET", "/login", a.loginPage)
	router.HandlerFunc("GET", "/register", a.registerPage)
	router.HandlerFunc("POST", "/login", a.login)
	router.HandlerFunc("POST", "/register", a.register)
	router.HandlerFunc("GET", "/logout", a.logout)
	router.Handler("GET", "/secrets", a.realm.Protect(http.HandlerFunc(a.secretsPage)))
	router.Handler("POST", "/secrets", a.realm.Protect(http.HandlerFunc(a.updateSecret)))
	router.Handler("GET", "/api/me", a.realm.ProtectAPI(http.HandlerFunc(a.apiMe)))
	if google != nil {
		router.HandlerFunc("GET", "/auth/google", a.googleRedirect)
		router.HandlerFunc("GET", "/auth/google/callback", a.googleCallback)
	}
	return router, nil
}

func (a *app) home(w http.ResponseWriter, r *http.Request) {
	id, _, _ := a.realm.identify(r)
	a.render(w, r, "home.html", viewData{Identity: id})
}

func (a *app) loginPage(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, "login.html", viewData{Flash: flashFor(r)})
}

func (a *app) registerPage(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, "register.html", viewData{Flash: flashFor(r)})
}

func (a *app) register(w http.ResponseWriter, r *http.Request) {
	email, password := r.PostFormValue("username"), r.PostFormValue("password")
	if email == "" || password == "" {
		http.Redirect(w, r, "/register?flash=missing", http.StatusSeeOther)
		return
	}
	id, err := a.resolver.ResolveLocal(r.Context(), email, password, resolver.IntentRegister)
	switch {
	case resolver.RejectedWith(err, resolver.IdentityAlreadyExists):
		http.Redirect(w, r, "/login?flash=exists", http.StatusSeeOther)
	case err != nil:
		http.Redirect(w, r, "/register?flash=error", http.StatusSeeOther)
	default:
		a.startSession(w, r, id)
	}
}

func (a *app) login(w http.ResponseWriter, r *http.Request) {
	email, password := r.PostFormValue("username"), r.PostFormValue("password")
	id, err := a.resolver.ResolveLocal(r.Context(), email, password, resolver.IntentLogin)
	if err != nil {
		// unknown email and wrong password take the exact same exit,
		// the reason stays in the logs
		logutil.GetOrDefault(r.Context()).Info().Err(err).Msg("Login attempt rejected")
		http.Redirect(w, r, "/login?flash=failed", http.StatusSeeOther)
		return
	}
	a.startSession(w, r, id)
}

func (a *app) startSession(w http.ResponseWriter, r *http.Request, id *resolver.Identity) {
	token, err := a.sessions.Create(r.Context(), id)
	if err != nil {
		logutil.GetOrDefault(r.Context()).Error().Err(err).Msg("Unable to mint session")
		http.Error(w, "unable to start a session, try again later", http.StatusInternalServerError)
		return
	}
	a.realm.setSessionCookie(w, token)
	http.Redirect(w, r, "/secrets", http.StatusSeeOther)
}

func (a *app) logout(w http.ResponseWriter, r *http.Request) {
	_, token, ok := a.realm.identify(r)
	if ok {
		a.sessions.Invalidate(r.Context(), token)
	}
	a.realm.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *app) secretsPage(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, "secrets.html", viewData{Identity: IdentityFrom(r.Context())})
}

func (a *app) updateSecret(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := IdentityFrom(ctx)
	secret := r.PostFormValue("secret")
	err := a.store.UpdateSecret(ctx, id.Email, secret)
	if err != nil {
		logutil.GetOrDefault(ctx).Error().Err(err).Msg("Unable to update secret")
		http.Redirect(w, r, "/secrets", http.StatusSeeOther)
		return
	}
	// refresh the snapshot behind the token so the next render does
	// not need a store lookup
	updated := *id
	updated.Secret = secret
	err = a.sessions.Update(ctx, tokenFrom(ctx), &updated)
	if err != nil {
		logutil.GetOrDefault(ctx).Error().Err(err).Msg("Unable to refresh session snapshot")
	}
	http.Redirect(w, r, "/secrets", http.StatusSeeOther)
}

func (a *app) apiMe(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"email":     id.Email,
		"federated": id.Federated,
	})
}

func (a *app) googleRedirect(w http.ResponseWriter, r *http.Request) {
	state, err := newState()
	if err != nil {
		logutil.GetOrDefault(r.Context()).Error().Err(err).Msg("Unable to mint oauth state")
		http.Error(w, "unable to start federated login, try again later", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   !a.realm.insecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, a.google.AuthCodeURL(state), http.StatusSeeOther)
}

func (a *app) googleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		logutil.GetOrDefault(ctx).Info().Msg("Federated callback with bad or missing state")
		http.Redirect(w, r, "/login?flash=failed", http.StatusSeeOther)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/login?flash=failed", http.StatusSeeOther)
		return
	}
	email, err := a.google.Email(ctx, code)
	if err != nil {
		logutil.GetOrDefault(ctx).Error().Err(err).Msg("Unable to complete federated login")
		http.Redirect(w, r, "/login?flash=failed", http.StatusSeeOther)
		return
	}
	id, err := a.resolver.ResolveFederated(ctx, email, "google")
	if err != nil {
		logutil.GetOrDefault(ctx).Info().Err(err).Msg("Federated attempt rejected")
		http.Redirect(w, r, "/login?flash=failed", http.StatusSeeOther)
		return
	}
	a.startSession(w, r, id)
}

func newState() (string, error) {
	var buf [16]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf[:]), nil
}
