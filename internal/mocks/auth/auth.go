package auth

// Package auth contains simple hand-written test doubles for the session
// core's ports. These are lightweight and suitable for unit tests without
// codegen.

import (
	"context"
	"sync"
	"time"

	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
	"github.com/corrigohq/corrigo/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*MockIdentityProvider)(nil)
	_ ports.IdentityCache    = (*MemoryIdentityCache)(nil)
	_ ports.Router           = (*RecordingRouter)(nil)
	_ ports.Notifier         = (*RecordingNotifier)(nil)
	_ ports.ClaimMapper      = (ClaimMapperFunc)(nil)
)

// MockIdentityProvider simulates an IdP for tests. Individual operations can
// be scripted through the corresponding func fields; unset operations
// succeed. Push handlers registered via SessionChanges receive whatever the
// test feeds into PushSession.
type MockIdentityProvider struct {
	SignInFunc                 func(ctx context.Context, email, password string) error
	SignOutFunc                func(ctx context.Context) error
	ReauthenticateFunc         func(ctx context.Context, email, password string) error
	UpdatePasswordFunc         func(ctx context.Context, newPassword string) error
	SendPasswordResetEmailFunc func(ctx context.Context, email string) error
	ConfirmPasswordResetFunc   func(ctx context.Context, code, newPassword string) error
	TokenClaimsFunc            func(ctx context.Context) (domainauth.Claims, error)
	IDTokenFunc                func(ctx context.Context) (string, error)

	mu       sync.Mutex
	handlers map[int]func(*domainauth.Identity)
	nextID   int

	// Calls records operation names in invocation order.
	Calls []string
}

// NewMockIdentityProvider creates a provider double whose operations succeed.
func NewMockIdentityProvider() *MockIdentityProvider {
	return &MockIdentityProvider{
		handlers: make(map[int]func(*domainauth.Identity)),
	}
}

func (m *MockIdentityProvider) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, op)
}

// CallCount returns how often the named operation was invoked.
func (m *MockIdentityProvider) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == op {
			n++
		}
	}
	return n
}

func (m *MockIdentityProvider) SignIn(ctx context.Context, email, password string) error {
	m.record("SignIn")
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	return nil
}

func (m *MockIdentityProvider) SignOut(ctx context.Context) error {
	m.record("SignOut")
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx)
	}
	return nil
}

func (m *MockIdentityProvider) Reauthenticate(ctx context.Context, email, password string) error {
	m.record("Reauthenticate")
	if m.ReauthenticateFunc != nil {
		return m.ReauthenticateFunc(ctx, email, password)
	}
	return nil
}

func (m *MockIdentityProvider) UpdatePassword(ctx context.Context, newPassword string) error {
	m.record("UpdatePassword")
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, newPassword)
	}
	return nil
}

func (m *MockIdentityProvider) SendPasswordResetEmail(ctx context.Context, email string) error {
	m.record("SendPasswordResetEmail")
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, email)
	}
	return nil
}

func (m *MockIdentityProvider) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	m.record("ConfirmPasswordReset")
	if m.ConfirmPasswordResetFunc != nil {
		return m.ConfirmPasswordResetFunc(ctx, code, newPassword)
	}
	return nil
}

func (m *MockIdentityProvider) TokenClaims(ctx context.Context) (domainauth.Claims, error) {
	m.record("TokenClaims")
	if m.TokenClaimsFunc != nil {
		return m.TokenClaimsFunc(ctx)
	}
	return domainauth.Claims{}, nil
}

func (m *MockIdentityProvider) IDToken(ctx context.Context) (string, error) {
	m.record("IDToken")
	if m.IDTokenFunc != nil {
		return m.IDTokenFunc(ctx)
	}
	return "mock-token", nil
}

func (m *MockIdentityProvider) SessionChanges(handler func(*domainauth.Identity)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.handlers[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.handlers, id)
		})
	}
}

// PushSession delivers a session-change push to all registered handlers,
// simulating the provider's push channel.
func (m *MockIdentityProvider) PushSession(identity *domainauth.Identity) {
	m.mu.Lock()
	handlers := make([]func(*domainauth.Identity), 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(identity)
	}
}

// HandlerCount returns the number of live push subscriptions.
func (m *MockIdentityProvider) HandlerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

// MemoryIdentityCache is an in-memory IdentityCache for tests.
type MemoryIdentityCache struct {
	mu       sync.Mutex
	stored   bool
	identity *domainauth.Identity

	LoadErr  error
	StoreErr error
}

// NewMemoryIdentityCache creates an empty in-memory cache.
func NewMemoryIdentityCache() *MemoryIdentityCache {
	return &MemoryIdentityCache{}
}

func (c *MemoryIdentityCache) Load(_ context.Context) (*domainauth.Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.LoadErr != nil {
		return nil, c.LoadErr
	}
	if !c.stored {
		return nil, nil
	}
	return c.identity, nil
}

func (c *MemoryIdentityCache) Store(_ context.Context, identity *domainauth.Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.StoreErr != nil {
		return c.StoreErr
	}
	c.stored = true
	c.identity = identity
	return nil
}

func (c *MemoryIdentityCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored = false
	c.identity = nil
	return nil
}

// HasEntry reports whether anything (identity or null sentinel) is stored.
func (c *MemoryIdentityCache) HasEntry() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stored
}

// RecordingRouter captures navigation targets in order.
type RecordingRouter struct {
	mu    sync.Mutex
	paths []string
}

func (r *RecordingRouter) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

// Paths returns a copy of the recorded navigation targets.
func (r *RecordingRouter) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

// Last returns the most recent navigation target, or "".
func (r *RecordingRouter) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.paths) == 0 {
		return ""
	}
	return r.paths[len(r.paths)-1]
}

// Notification is one captured Notify call.
type Notification struct {
	Message  string
	Severity string
	Duration time.Duration
}

// RecordingNotifier captures notifications in order.
type RecordingNotifier struct {
	mu            sync.Mutex
	notifications []Notification
}

func (n *RecordingNotifier) Notify(message, severity string, duration time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, Notification{
		Message:  message,
		Severity: severity,
		Duration: duration,
	})
}

// Notifications returns a copy of the captured notifications.
func (n *RecordingNotifier) Notifications() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.notifications...)
}

// ClaimMapperFunc adapts a function to ports.ClaimMapper.
type ClaimMapperFunc func(claims domainauth.Claims) domainauth.Role

func (f ClaimMapperFunc) Map(claims domainauth.Claims) domainauth.Role { return f(claims) }
