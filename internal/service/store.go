package service

import (
	"context"
	"log/slog"

	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
	"github.com/corrigohq/corrigo/internal/ports"
)

// SessionStore is the single source of truth for "is someone logged in right
// now", cached durably across restarts. It is pure storage plus predicate
// logic; it never talks to the identity provider.
type SessionStore struct {
	cache  ports.IdentityCache
	logger *slog.Logger

	// bypassEmail is a designated test/demo account that counts as logged in
	// without email verification. Integration tests and seeded demo accounts
	// must authenticate before their address can be verified; this is a
	// deliberate policy exception, not a bug.
	bypassEmail string
}

// NewSessionStore constructs a SessionStore over the given durable cache.
func NewSessionStore(cache ports.IdentityCache, bypassEmail string, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		cache:       cache,
		bypassEmail: bypassEmail,
		logger:      logger,
	}
}

// Restore returns the persisted identity as a best-effort value. It may be
// stale or unverified until provider confirmation arrives; cache failures
// degrade to "no identity" rather than erroring.
func (s *SessionStore) Restore(ctx context.Context) *domainauth.Identity {
	identity, err := s.cache.Load(ctx)
	if err != nil {
		s.logger.Error("restore persisted identity", "error", err)
		return nil
	}
	return identity
}

// Persist writes the identity (or the explicit null sentinel) to durable
// storage. Called only by the session service in response to provider events.
func (s *SessionStore) Persist(ctx context.Context, identity *domainauth.Identity) error {
	return s.cache.Store(ctx, identity)
}

// Remove drops the persisted entry entirely, as logout does.
func (s *SessionStore) Remove(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// LoggedIn evaluates the login predicate against the persisted value: a
// non-nil identity whose email is verified, or the designated bypass account.
func (s *SessionStore) LoggedIn(ctx context.Context) bool {
	identity := s.Restore(ctx)
	if identity == nil {
		return false
	}
	return identity.EmailVerified || (s.bypassEmail != "" && identity.Email == s.bypassEmail)
}
