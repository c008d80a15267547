package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
)

// RouterConfig groups the dependencies for NewRouter.
type RouterConfig struct {
	Auth       *AuthHandlers
	Navigation *NavigationHandlers
	Guard      Guard
	Sessions   SessionSource
	Logger     *slog.Logger
}

// NewRouter builds the HTTP handler tree: open auth endpoints, guarded API
// endpoints, and the liveness probe, wrapped in logging and panic recovery.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", Health)

	// Credential and reset flows are reachable without a session.
	mux.HandleFunc("POST /auth/login", cfg.Auth.Login)
	mux.HandleFunc("POST /auth/logout", cfg.Auth.Logout)
	mux.HandleFunc("POST /auth/password-reset", cfg.Auth.SendPasswordReset)
	mux.HandleFunc("POST /auth/password-reset/confirm", cfg.Auth.ConfirmPasswordReset)
	mux.HandleFunc("GET /auth/status", cfg.Auth.Status)

	guarded := Guarded(cfg.Guard, cfg.Sessions, "")
	adminOnly := Guarded(cfg.Guard, cfg.Sessions, domainauth.RoleAdmin)

	mux.Handle("POST /auth/password", guarded(http.HandlerFunc(cfg.Auth.ChangePassword)))
	mux.Handle("GET /auth/token", guarded(http.HandlerFunc(cfg.Auth.Token)))
	mux.Handle("GET /api/navigation", guarded(http.HandlerFunc(cfg.Navigation.Items)))
	mux.Handle("GET /api/admin/status", adminOnly(http.HandlerFunc(cfg.Auth.Status)))

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}
