package httpx

import (
	"context"

	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
)

// sessionContextKey is an unexported context key type for the session.
type sessionContextKey struct{}

// SetSessionInContext returns a context carrying the given session.
func SetSessionInContext(ctx context.Context, session *domainauth.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// GetSessionFromContext returns the session stored in the context, or nil.
func GetSessionFromContext(ctx context.Context) *domainauth.Session {
	if session, ok := ctx.Value(sessionContextKey{}).(*domainauth.Session); ok {
		return session
	}
	return nil
}
