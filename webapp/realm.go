package webapp

import (
	"context"
	"net/http"
	"regexp"

	"github.com/avelar/confidant/internal/logutil"
	"github.com/avelar/confidant/resolver"
	"github.com/avelar/confidant/session"
)

type (
	// Realm resolves session tokens on incoming requests and keeps
	// anonymous callers away from protected handlers. Tokens arrive
	// either in the session cookie or as a bearer header.
	Realm struct {
		sessions       *session.Manager
		insecureCookie bool
	}

	ctxKey byte
)

const (
	SessionCookie = "confidant_session"

	identityKey = ctxKey(1)
	tokenKey    = ctxKey(2)
)

var bearerTokenRE = regexp.MustCompile(`^Bearer ([^\s]+)$`)

func NewRealm(sessions *session.Manager, allowHTTPCookie bool) *Realm {
	return &Realm{
		sessions:       sessions,
		insecureCookie: allowHTTPCookie,
	}
}

// Protect redirects anonymous callers to the login page.
func (s *Realm) Protect(sensitive http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, token, ok := s.identify(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		sensitive.ServeHTTP(w, r.WithContext(withSession(r.Context(), id, token)))
	})
}

// ProtectAPI answers anonymous callers with a plain 401 instead of a
// redirect, which is what an API client can actually act on.
func (s *Realm) ProtectAPI(sensitive http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, token, ok := s.identify(r)
		if !ok {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		sensitive.ServeHTTP(w, r.WithContext(withSession(r.Context(), id, token)))
	})
}

func (s *Realm) identify(r *http.Request) (*resolver.Identity, string, bool) {
	ctx := r.Context()
	token := ""
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		token = cookie.Value
	} else if groups := bearerTokenRE.FindStringSubmatch(r.Header.Get("Authorization")); len(groups) > 0 {
		token = groups[1]
	}
	if token == "" {
		return nil, "", false
	}
	id, err := s.sessions.Resolve(ctx, token)
	if _, missing := err.(session.NotFound); missing {
		return nil, "", false
	} else if err != nil {
		logutil.GetOrDefault(ctx).Error().Err(err).Msg("Unexpected error resolving session token")
		return nil, "", false
	}
	return id, token, true
}

func (s *Realm) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   !s.insecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Realm) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !s.insecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func withSession(ctx context.Context, id *resolver.Identity, token string) context.Context {
	ctx = context.WithValue(ctx, identityKey, id)
	return context.WithValue(ctx, tokenKey, token)
}

// IdentityFrom returns the identity a protected handler is acting as.
func IdentityFrom(ctx context.Context) *resolver.Identity {
	id, _ := ctx.Value(identityKey).(*resolver.Identity)
	return id
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}
