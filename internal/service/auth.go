package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
	"github.com/corrigohq/corrigo/internal/ports"
)

// Well-known application paths used by the session core.
const (
	DefaultPath = "/"
	LoginPath   = "/login-form"
)

// pushTimeout bounds the storage and claim work triggered by one provider push.
const pushTimeout = 10 * time.Second

// Result is the discriminated outcome of a session operation. Expected
// failures are reported here, never as errors; callers need no error handling
// for normal misuse.
type Result struct {
	OK      bool
	Message string
}

func resultOK() Result { return Result{OK: true} }

func resultFail(message string) Result { return Result{Message: message} }

// User-facing message fragments. Known provider codes map to fixed wording;
// unknown codes pass the provider's message through behind the context prefix.
const (
	msgWrongPassword     = "Password was incorrect."
	msgNoCurrentUser     = "Could not load current user."
	msgPasswordChanged   = "Successfully changed password!"
	prefixAuthenticate   = "Failed to authenticate user. "
	prefixReauthenticate = "Failed to reauthenticate user. "
	prefixChangePassword = "Failed to change password. "
	prefixResetPassword  = "Failed to reset password. "
)

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Provider ports.IdentityProvider
	Store    *SessionStore
	Roles    *RoleResolver
	Router   ports.Router
	Logger   *slog.Logger
}

// SessionService is the façade over the identity provider: the only component
// permitted to call provider operations. It orchestrates the session store and
// role resolver, and owns the redirect-after-login path.
//
// Exactly one provider push subscription exists per instance, established at
// construction. Pushes are applied in delivery order by a single goroutine;
// each push fully supersedes the previous state. Close releases the
// subscription and stops the loop.
type SessionService struct {
	provider ports.IdentityProvider
	store    *SessionStore
	roles    *RoleResolver
	router   ports.Router
	logger   *slog.Logger

	mu                    sync.Mutex
	current               *domainauth.Identity
	lastAuthenticatedPath string
	subs                  map[uint64]chan *domainauth.Identity
	nextSub               uint64

	pushCh     chan *domainauth.Identity
	cancelPush func()
	closed     chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
}

// NewSessionService constructs a SessionService and subscribes to provider
// session changes.
func NewSessionService(opts SessionServiceOptions) *SessionService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &SessionService{
		provider:              opts.Provider,
		store:                 opts.Store,
		roles:                 opts.Roles,
		router:                opts.Router,
		logger:                logger,
		lastAuthenticatedPath: DefaultPath,
		subs:                  make(map[uint64]chan *domainauth.Identity),
		pushCh:                make(chan *domainauth.Identity, 16),
		closed:                make(chan struct{}),
	}

	s.cancelPush = s.provider.SessionChanges(s.enqueuePush)

	s.wg.Add(1)
	go s.pushLoop()

	return s
}

// Close unsubscribes from provider pushes and stops the push loop. Pending
// role resolutions are abandoned via their sequence tokens.
func (s *SessionService) Close() {
	s.closeOnce.Do(func() {
		s.cancelPush()
		close(s.closed)
	})
	s.wg.Wait()
}

func (s *SessionService) enqueuePush(identity *domainauth.Identity) {
	select {
	case s.pushCh <- identity:
	case <-s.closed:
	}
}

func (s *SessionService) pushLoop() {
	defer s.wg.Done()
	for {
		select {
		case identity := <-s.pushCh:
			s.handlePush(identity)
		case <-s.closed:
			return
		}
	}
}

// handlePush is the single authoritative state-transition point: every
// identity mutation funnels through it, in provider delivery order.
func (s *SessionService) handlePush(identity *domainauth.Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	if identity == nil {
		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()

		s.roles.Clear()
		if err := s.store.Persist(ctx, nil); err != nil {
			s.logger.Error("persist signed-out state", "error", err)
		}
		s.publishIdentity(nil)
		return
	}

	s.mu.Lock()
	s.current = identity
	s.mu.Unlock()

	if err := s.store.Persist(ctx, identity); err != nil {
		s.logger.Error("persist identity", "error", err, "user_id", identity.UserID)
	}
	s.publishIdentity(identity)

	// The token is taken synchronously so resolutions start in delivery
	// order; the fetch itself must not block the push loop.
	token := s.roles.StartResolution()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		resolveCtx, resolveCancel := context.WithTimeout(context.Background(), pushTimeout)
		defer resolveCancel()
		_ = s.roles.Resolve(resolveCtx, token)
	}()

	s.router.Navigate(s.LastAuthenticatedPath())
}

func (s *SessionService) publishIdentity(identity *domainauth.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- identity:
		default:
		}
	}
}

// IdentityChanges registers an identity stream consumer. The current value is
// replayed immediately. The cancel function is idempotent.
func (s *SessionService) IdentityChanges() (<-chan *domainauth.Identity, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan *domainauth.Identity, 8)
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.current

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// CurrentIdentity returns the identity from the latest provider push, if any.
func (s *SessionService) CurrentIdentity() *domainauth.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// CurrentRole returns the latest resolved role; ok is false while none is
// published.
func (s *SessionService) CurrentRole() (domainauth.Role, bool) {
	return s.roles.Current()
}

// LoggedIn reports the persisted login predicate.
func (s *SessionService) LoggedIn(ctx context.Context) bool {
	return s.store.LoggedIn(ctx)
}

// LastAuthenticatedPath returns the most recent non-auth route the user
// successfully entered; login completion navigates back to it.
func (s *SessionService) LastAuthenticatedPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuthenticatedPath
}

// SetLastAuthenticatedPath records the redirect-after-login target. Called by
// the access guard on successful non-auth-route activations.
func (s *SessionService) SetLastAuthenticatedPath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAuthenticatedPath = path
}

// LogIn signs in with the provider. Local state is not set here: the
// provider's asynchronous session-change push populates identity and role,
// which avoids racing a synchronous success against claims resolution.
func (s *SessionService) LogIn(ctx context.Context, email, password string) Result {
	if err := s.provider.SignIn(ctx, email, password); err != nil {
		return resultFail(providerMessage(prefixAuthenticate, err))
	}
	return resultOK()
}

// ReauthenticateUser re-proves the current identity before sensitive
// operations. It fails fast without a provider call when the current
// identity's email is unavailable; credentials must never be constructed with
// an empty address.
func (s *SessionService) ReauthenticateUser(ctx context.Context, password string) Result {
	current := s.CurrentIdentity()
	if current == nil || current.Email == "" {
		return resultFail(prefixReauthenticate + msgNoCurrentUser)
	}
	if err := s.provider.Reauthenticate(ctx, current.Email, password); err != nil {
		return resultFail(providerMessage(prefixReauthenticate, err))
	}
	return resultOK()
}

// ChangePassword updates the current identity's password. Reauthentication is
// expected to have happened first.
func (s *SessionService) ChangePassword(ctx context.Context, newPassword string) Result {
	if s.CurrentIdentity() == nil {
		return resultFail(prefixChangePassword + msgNoCurrentUser)
	}
	if err := s.provider.UpdatePassword(ctx, newPassword); err != nil {
		return resultFail(providerMessage(prefixChangePassword, err))
	}
	return Result{OK: true, Message: msgPasswordChanged}
}

// SendPasswordReset triggers the provider's password-reset mail flow.
func (s *SessionService) SendPasswordReset(ctx context.Context, email string) Result {
	if err := s.provider.SendPasswordResetEmail(ctx, email); err != nil {
		return resultFail(providerMessage(prefixResetPassword, err))
	}
	return resultOK()
}

// ConfirmPasswordReset redeems a reset code for a new password.
func (s *SessionService) ConfirmPasswordReset(ctx context.Context, code, password string) Result {
	if err := s.provider.ConfirmPasswordReset(ctx, code, password); err != nil {
		return resultFail(providerMessage(prefixChangePassword, err))
	}
	return resultOK()
}

// LogOut signs out of the provider, removes the persisted identity, and
// navigates to the login route. Sign-out is treated as non-failing for the
// UI; a provider failure is logged and local cleanup proceeds anyway.
func (s *SessionService) LogOut(ctx context.Context) {
	if err := s.provider.SignOut(ctx); err != nil {
		s.logger.Error("provider sign out", "error", err)
	}
	if err := s.store.Remove(ctx); err != nil {
		s.logger.Error("remove persisted identity", "error", err)
	}
	s.router.Navigate(LoginPath)
}

// GetToken returns the current identity's bearer credential, or the empty
// string when no identity is present or the provider fails. Every
// authenticated data request goes through this; it must never fail loudly.
func (s *SessionService) GetToken(ctx context.Context) string {
	if s.CurrentIdentity() == nil {
		return ""
	}
	token, err := s.provider.IDToken(ctx)
	if err != nil {
		s.logger.Error("load id token", "error", err)
		return ""
	}
	return token
}

// providerMessage maps a provider operation error to a user-facing message
// behind the operation's context prefix.
func providerMessage(prefix string, err error) string {
	var providerErr *ports.ProviderError
	if errors.As(err, &providerErr) {
		if providerErr.Code == ports.ErrCodeInvalidPassword {
			return prefix + msgWrongPassword
		}
		return prefix + providerErr.Message
	}
	return prefix + err.Error()
}
