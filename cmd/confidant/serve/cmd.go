package serve

import (
	"os"

	"github.com/avelar/confidant/credstore"
	"github.com/avelar/confidant/internal/cmdflags"
	"github.com/avelar/confidant/internal/httpserver"
	"github.com/avelar/confidant/internal/logutil"
	"github.com/avelar/confidant/resolver"
	"github.com/avelar/confidant/session"
	"github.com/avelar/confidant/webapp"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	bindAddr := "localhost:8080"
	storeDir := "confidant-store"
	baseURL := "http://localhost:8080"
	sessionTTL := session.DefaultTTL
	insecureCookie := false
	googleIDEnvVar := ""
	googleSecretEnvVar := ""
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the confidant web application.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "bind",
				Usage:       "Address to bind and serve the application",
				Value:       bindAddr,
				Destination: &bindAddr,
			},
			cmdflags.Store(&storeDir),
			&cli.StringFlag{
				Name:        "base-url",
				Usage:       "Public URL of this instance (used to build the federated callback URL)",
				Value:       baseURL,
				Destination: &baseURL,
			},
			&cli.DurationFlag{
				Name:        "session-ttl",
				Usage:       "How long a session token stays valid after login",
				Value:       sessionTTL,
				Destination: &sessionTTL,
			},
			&cli.BoolFlag{
				Name:        "insecure-cookie",
				Usage:       "Allow the session cookie over plain http (local development only)",
				Value:       insecureCookie,
				Destination: &insecureCookie,
			},
			cmdflags.GoogleClientIDEnvVar(&googleIDEnvVar),
			cmdflags.GoogleClientSecretEnvVar(&googleSecretEnvVar),
		},
		Action: func(cctx *cli.Context) error {
			log := logutil.GetOrDefault(cctx.Context).With().Str("component", "webapp").Logger()
			ctx := logutil.WithLogger(cctx.Context, log)
			store, err := credstore.Open(ctx, storeDir, true)
			if err != nil {
				return err
			}
			defer store.Close()
			sessions, err := session.NewManager(sessionTTL)
			if err != nil {
				return err
			}
			google, err := webapp.GoogleLoginFromEnv(googleIDEnvVar, googleSecretEnvVar, baseURL, os.Getenv, os.Setenv)
			if err != nil {
				return err
			}
			if google == nil {
				log.Info().Msg("Google credentials not set, federated login disabled")
			}
			res := resolver.New(store, resolver.NewVerifier())
			handler, err := webapp.AsHandler(ctx, res, store, sessions, google, insecureCookie)
			if err != nil {
				return err
			}
			return httpserver.Serve(ctx, bindAddr, handler)
		},
	}
}
