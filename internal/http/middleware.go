package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
	apperrors "github.com/corrigohq/corrigo/internal/errors"
	"github.com/corrigohq/corrigo/internal/service"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Guard is the slice of the access guard the middleware consumes.
type Guard interface {
	CanActivate(ctx context.Context, route service.Route) service.Decision
}

// SessionSource exposes the current session state to middleware and handlers.
type SessionSource interface {
	CurrentIdentity() *domainauth.Identity
	CurrentRole() (domainauth.Role, bool)
}

// Guarded returns a middleware that evaluates the access guard for every
// request to the wrapped handler. Denials become a redirect for browser
// requests and a JSON error otherwise; allowed requests carry the session in
// their context.
func Guarded(guard Guard, sessions SessionSource, requiredRole domainauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := guard.CanActivate(r.Context(), service.Route{
				Path:         r.URL.Path,
				RequiredRole: requiredRole,
				Query:        r.URL.Query(),
			})
			if !decision.Allowed {
				writeDenial(w, r, decision)
				return
			}

			session := &domainauth.Session{Identity: sessions.CurrentIdentity()}
			if role, ok := sessions.CurrentRole(); ok {
				session.Role = role
			}
			ctx := SetSessionInContext(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeDenial translates a guard denial into an HTTP response. Browser
// requests follow the guard's redirect; API requests get a JSON error with a
// status matching the redirect target.
func writeDenial(w http.ResponseWriter, r *http.Request, decision service.Decision) {
	if isBrowserRequest(r) && decision.RedirectPath != "" {
		http.Redirect(w, r, decision.RedirectPath, http.StatusSeeOther)
		return
	}

	if decision.RedirectPath == service.LoginPath {
		WriteError(w, "authentication_required", apperrors.Unauthenticated("authentication required"))
		return
	}
	WriteError(w, "insufficient_permissions", apperrors.PermissionDenied("insufficient permissions"))
}

// isBrowserRequest reports whether the request prefers an HTML response.
func isBrowserRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
