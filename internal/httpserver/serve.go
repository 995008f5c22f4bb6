package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/avelar/confidant/internal/logutil"
)

// Serve runs handler on bind until ctx is cancelled, then drains
// in-flight requests for up to a minute before giving up on them.
func Serve(ctx context.Context, bind string, handler http.Handler) error {
	log := logutil.GetOrDefault(ctx).With().Str("server.addr", bind).Logger()
	server := http.Server{
		Handler:           handler,
		Addr:              bind,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	errs := make(chan error, 1)
	go func() {
		log.Info().Msg("Starting HTTP server")
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			// shutdown was called, not a failure
			err = nil
		}
		errs <- err
	}()
	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		log.Info().Msg("Initiating shutdown process")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), time.Minute)
		defer cancelShutdown()
		server.Shutdown(shutdownCtx)
		log.Info().Msg("Shutdown completed")
		return <-errs
	}
}
