package webapp

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/avelar/confidant/internal/logutil"
	"github.com/avelar/confidant/resolver"
)

//go:embed views/*.html
var viewFS embed.FS

type (
	viewData struct {
		Identity      *resolver.Identity
		Flash         string
		GoogleEnabled bool
	}
)

var flashMessages = map[string]string{
	"exists":  "An account with that email already exists. Log in instead.",
	"failed":  "Login failed. Check your email and password.",
	"missing": "Email and password are both required.",
	"error":   "Something went wrong on our side. Try again in a moment.",
}

func parseViews() (*template.Template, error) {
	return template.ParseFS(viewFS, "views/*.html")
}

func (a *app) render(w http.ResponseWriter, r *http.Request, view string, data viewData) {
	data.GoogleEnabled = a.google != nil
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := a.views.ExecuteTemplate(w, view, data)
	if err != nil {
		logutil.GetOrDefault(r.Context()).Error().Err(err).
			Str("view", view).
			Msg("Unable to render view")
	}
}

func flashFor(r *http.Request) string {
	return flashMessages[r.URL.Query().Get("flash")]
}
