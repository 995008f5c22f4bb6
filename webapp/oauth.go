package webapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	GoogleClientIDEnvVar     = "CONFIDANT_GOOGLE_CLIENT_ID"
	GoogleClientSecretEnvVar = "CONFIDANT_GOOGLE_CLIENT_SECRET"

	googleUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

type (
	// GoogleLogin is the out-of-scope half of federated login: the
	// redirect to Google and the code-for-email exchange. By the time
	// the resolver sees the email, Google already vouched for it.
	GoogleLogin struct {
		cfg         *oauth2.Config
		userinfoURL string
	}
)

// GoogleLoginFromEnv builds the federated collaborator from the given
// environment variables, clearing the secret from the environment
// after reading it. Returns nil (and no error) when the variables are
// unset, which disables federated login entirely.
func GoogleLoginFromEnv(idVar, secretVar, baseURL string, getfn func(string) string, setfn func(string, string) error) (*GoogleLogin, error) {
	if getfn == nil {
		getfn = os.Getenv
	}
	if setfn == nil {
		setfn = os.Setenv
	}
	clientID := getfn(idVar)
	clientSecret := getfn(secretVar)
	err := setfn(secretVar, "")
	if err != nil {
		return nil, fmt.Errorf("unable to clear %v from environment, cause %w", secretVar, err)
	}
	if clientID == "" || clientSecret == "" {
		return nil, nil
	}
	return NewGoogleLogin(clientID, clientSecret, baseURL), nil
}

func NewGoogleLogin(clientID, clientSecret, baseURL string) *GoogleLogin {
	return &GoogleLogin{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  strings.TrimSuffix(baseURL, "/") + "/auth/google/callback",
			Scopes:       []string{"openid", "email"},
		},
		userinfoURL: googleUserinfoURL,
	}
}

func (g *GoogleLogin) AuthCodeURL(state string) string {
	return g.cfg.AuthCodeURL(state)
}

// Email exchanges the authorization code and asks the userinfo
// endpoint which email it belongs to.
func (g *GoogleLogin) Email(ctx context.Context, code string) (string, error) {
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("unable to exchange authorization code, cause %w", err)
	}
	resp, err := g.cfg.Client(ctx, tok).Get(g.userinfoURL)
	if err != nil {
		return "", fmt.Errorf("unable to fetch userinfo, cause %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo endpoint answered %v", resp.Status)
	}
	var info struct {
		Email string `json:"email"`
	}
	err = json.NewDecoder(resp.Body).Decode(&info)
	if err != nil {
		return "", fmt.Errorf("unable to decode userinfo response, cause %w", err)
	}
	if info.Email == "" {
		return "", errors.New("userinfo response carries no email")
	}
	return info.Email, nil
}
