package ports

// Package ports defines interfaces (hexagonal ports) for the session core.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"time"

	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
)

// Provider error codes form the known vocabulary surfaced by IdentityProvider
// implementations. Unknown provider failures keep their raw message and an
// adapter-specific code.
const (
	ErrCodeInvalidPassword = "invalid-password"
	ErrCodeInvalidEmail    = "invalid-email"
	ErrCodeUserNotFound    = "user-not-found"
	ErrCodeExpiredCode     = "expired-action-code"
	ErrCodeUserDisabled    = "user-disabled"
)

// ProviderError is a tagged error surfaced by IdentityProvider operations.
// The session service maps known codes to user-facing messages.
type ProviderError struct {
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	return e.Message
}

// IdentityProvider is the boundary to the external identity provider. It owns
// the provider-side session; SessionChanges is the single push channel through
// which identity state reaches the session service.
type IdentityProvider interface {
	// SignIn authenticates with email/password credentials. Identity state is
	// delivered through the SessionChanges push, not the return value.
	SignIn(ctx context.Context, email, password string) error

	// SignOut ends the provider-side session and pushes a nil identity.
	SignOut(ctx context.Context) error

	// Reauthenticate re-proves the current identity before sensitive operations.
	Reauthenticate(ctx context.Context, email, password string) error

	// UpdatePassword changes the current identity's password.
	UpdatePassword(ctx context.Context, newPassword string) error

	// SendPasswordResetEmail triggers the provider's reset mail flow.
	SendPasswordResetEmail(ctx context.Context, email string) error

	// ConfirmPasswordReset redeems a reset code for a new password.
	ConfirmPasswordReset(ctx context.Context, code, newPassword string) error

	// TokenClaims fetches the current identity's credential claims.
	TokenClaims(ctx context.Context) (domainauth.Claims, error)

	// IDToken returns the current identity's bearer credential.
	IDToken(ctx context.Context) (string, error)

	// SessionChanges registers a handler for identity pushes (nil on sign-out).
	// Handlers are invoked in provider delivery order. The returned cancel
	// function removes the handler; it must be safe to call more than once.
	SessionChanges(handler func(*domainauth.Identity)) (cancel func())
}

// IdentityCache persists the last known identity across restarts. A nil
// identity is stored as an explicit null sentinel so a restored "logged out"
// is distinguishable from a corrupted entry. Writes are last-write-wins.
type IdentityCache interface {
	// Load returns the cached identity, or nil if none (or null) is stored.
	Load(ctx context.Context) (*domainauth.Identity, error)
	// Store caches the identity; nil stores the null sentinel.
	Store(ctx context.Context, identity *domainauth.Identity) error
	// Clear removes the cached entry entirely.
	Clear(ctx context.Context) error
}

// ClaimMapper derives the application role from provider claims. Isolating
// the decoding here lets the claim encoding change without touching consumers.
type ClaimMapper interface {
	Map(claims domainauth.Claims) domainauth.Role
}

// Router abstracts client navigation side effects (post-login redirect,
// logout redirect, guard denials). The HTTP layer adapts guard decisions
// into real redirects; this port carries the intent.
type Router interface {
	Navigate(path string)
}

// Notification severities understood by Notifier implementations.
const (
	SeverityError   = "error"
	SeveritySuccess = "success"
)

// Notifier is a fire-and-forget user notification sink.
type Notifier interface {
	Notify(message, severity string, duration time.Duration)
}
