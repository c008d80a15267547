package service

import (
	"context"
	"log/slog"
	"sync"

	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
	"github.com/corrigohq/corrigo/internal/ports"
)

// ClaimSource supplies the current identity's credential claims. The identity
// provider port satisfies this; the resolver needs nothing else from it.
type ClaimSource interface {
	TokenClaims(ctx context.Context) (domainauth.Claims, error)
}

// RoleResolver turns identity-provider claims into the application role and
// broadcasts changes. The stream replays the current value to new subscribers;
// its initial value is "no role". Consumers that need to gate on the role must
// use AwaitResolved rather than sampling the current value, because the
// initial nil would otherwise be mistaken for "known to have no role" instead
// of "not yet resolved".
type RoleResolver struct {
	source ClaimSource
	mapper ports.ClaimMapper
	logger *slog.Logger

	mu       sync.Mutex
	current  *domainauth.Role
	resolved bool
	done     chan struct{} // closed once the current resolving phase completes
	gen      uint64        // sequence token; stale resolutions are discarded
	subs     map[uint64]chan *domainauth.Role
	nextSub  uint64
}

// NewRoleResolver constructs a RoleResolver. The resolver starts in the
// resolving phase: nothing is known until the first provider push.
func NewRoleResolver(source ClaimSource, mapper ports.ClaimMapper, logger *slog.Logger) *RoleResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoleResolver{
		source: source,
		mapper: mapper,
		logger: logger,
		done:   make(chan struct{}),
		subs:   make(map[uint64]chan *domainauth.Role),
	}
}

// Current returns the latest published role. ok is false while no role is
// published (either not yet resolved or known to be none).
func (r *RoleResolver) Current() (domainauth.Role, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return "", false
	}
	return *r.current, true
}

// Subscribe registers a role stream consumer. The current value is replayed
// immediately so late subscribers see the present role. Emissions that cannot
// be delivered because the subscriber is slow are dropped; the stream is
// last-value semantics, not a queue. The cancel function is idempotent.
func (r *RoleResolver) Subscribe() (<-chan *domainauth.Role, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan *domainauth.Role, 8)
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch

	// Replay current value.
	ch <- r.current

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// StartResolution enters the resolving phase for a new identity and returns a
// sequence token. It must be called in push delivery order; the token lets the
// asynchronous claims fetch detect that a newer push superseded it.
func (r *RoleResolver) StartResolution() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++
	if r.resolved {
		r.resolved = false
		r.done = make(chan struct{})
	}
	return r.gen
}

// Resolve fetches claims and publishes exactly one role for the resolution
// identified by token. On claim-fetch failure nothing is published: the stream
// keeps its prior value and the failure is logged. The user must not be
// silently logged out by a transient claims-fetch error.
func (r *RoleResolver) Resolve(ctx context.Context, token uint64) error {
	claims, err := r.source.TokenClaims(ctx)
	if err != nil {
		r.logger.Error("resolve role claims", "error", err)
		return err
	}

	role := r.mapper.Map(claims)

	r.mu.Lock()
	defer r.mu.Unlock()
	if token != r.gen {
		// A newer push superseded this resolution.
		return nil
	}
	r.publishLocked(&role)
	return nil
}

// Clear publishes "known to have no role" synchronously. Called on logout and
// session loss. It also invalidates any in-flight resolution.
func (r *RoleResolver) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.publishLocked(nil)
}

// AwaitResolved blocks until the current resolving phase completes (a role is
// published or explicitly cleared) or the context is done.
func (r *RoleResolver) AwaitResolved(ctx context.Context) error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *RoleResolver) publishLocked(role *domainauth.Role) {
	r.current = role
	if !r.resolved {
		r.resolved = true
		close(r.done)
	}
	for _, ch := range r.subs {
		select {
		case ch <- role:
		default:
		}
	}
}
