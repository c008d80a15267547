package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/corrigohq/corrigo/config"
	httpx "github.com/corrigohq/corrigo/internal/http"
)

// NewHTTPServer builds the HTTP server over the session core: open auth
// endpoints, guarded API endpoints, and the liveness probe. The caller owns
// the serve/shutdown lifecycle.
func NewHTTPServer(cfg config.HTTPConfig, core *SessionCore, logger *slog.Logger) *http.Server {
	handler := httpx.NewRouter(httpx.RouterConfig{
		Auth:       &httpx.AuthHandlers{Svc: core.Session},
		Navigation: &httpx.NavigationHandlers{Presenter: core.Navigation},
		Guard:      core.Guard,
		Sessions:   core.Session,
		Logger:     logger,
	})

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// ShutdownHTTPServer gracefully shuts down the HTTP server with a bounded
// drain period.
func ShutdownHTTPServer(ctx context.Context, server *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	logger.Info("shutting down http server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", slog.Any("error", err))
	}
}
