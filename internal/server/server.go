package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"billboard-realtime/internal/config"

	"github.com/apex/log"
)

const shutdownTimeout = 10 * time.Second

func NewHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, cfg config.Config, handler http.Handler) error {
	logTags := log.Fields{"module": "server", "component": "http", "instance": cfg.Addr()}
	srv := NewHTTPServer(cfg, handler)

	errs := make(chan error, 1)
	go func() {
		var err error
		if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
			log.WithFields(logTags).Info("Serving HTTPS")
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			log.WithFields(logTags).Info("Serving HTTP")
			err = srv.ListenAndServe()
		}
		errs <- err
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).WithFields(logTags).Error("HTTP shutdown incomplete")
		return err
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.WithFields(logTags).Info("HTTP server stopped")
	return nil
}
