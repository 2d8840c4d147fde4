package infra

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// HTTPServer owns the api listener and its shutdown budget.
type HTTPServer struct {
	server       *http.Server
	drainTimeout time.Duration
}

// NewHTTPServer applies the configured timeouts to handler.
func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler,
			ReadTimeout:       cfg.HTTPReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.HTTPWriteTimeout,
			IdleTimeout:       cfg.HTTPIdleTimeout,
		},
		drainTimeout: cfg.HTTPWriteTimeout,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests. A leg
// request cut off mid-transaction rolls back and is redelivered by its sender.
func (s *HTTPServer) Run(ctx context.Context, logger Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", s.server.Addr).Msg("http: listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("http: stopped")
	return nil
}
