package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
	mocks "github.com/corrigohq/corrigo/internal/mocks/auth"
	"github.com/corrigohq/corrigo/internal/ports"
)

type sessionFixture struct {
	provider *mocks.MockIdentityProvider
	cache    *mocks.MemoryIdentityCache
	router   *mocks.RecordingRouter
	resolver *RoleResolver
	service  *SessionService
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	provider := mocks.NewMockIdentityProvider()
	cache := mocks.NewMemoryIdentityCache()
	router := &mocks.RecordingRouter{}
	store := NewSessionStore(cache, testBypassEmail, nil)
	resolver := NewRoleResolver(provider, adminMapper(), nil)

	service := NewSessionService(SessionServiceOptions{
		Provider: provider,
		Store:    store,
		Roles:    resolver,
		Router:   router,
	})
	t.Cleanup(service.Close)

	return &sessionFixture{
		provider: provider,
		cache:    cache,
		router:   router,
		resolver: resolver,
		service:  service,
	}
}

func verifiedIdentity(email string) *domainauth.Identity {
	return &domainauth.Identity{
		UserID:        "u-" + email,
		Email:         email,
		DisplayName:   "Test User",
		EmailVerified: true,
	}
}

func TestSessionService_LoginFlow(t *testing.T) {
	fix := newSessionFixture(t)
	ctx := context.Background()

	fix.provider.TokenClaimsFunc = func(context.Context) (domainauth.Claims, error) {
		return domainauth.Claims{"admin": true}, nil
	}
	fix.provider.SignInFunc = func(_ context.Context, email, password string) error {
		fix.provider.PushSession(verifiedIdentity(email))
		return nil
	}

	fix.service.SetLastAuthenticatedPath("/ticket/7")

	identityCh, cancelIdentity := fix.service.IdentityChanges()
	defer cancelIdentity()
	assert.Nil(t, <-identityCh) // replayed initial value

	res := fix.service.LogIn(ctx, "test@user.de", "secret")
	require.True(t, res.OK)
	assert.Empty(t, res.Message)

	// The push populates identity, persistence, role, and navigation.
	pushed := <-identityCh
	require.NotNil(t, pushed)
	assert.Equal(t, "test@user.de", pushed.Email)

	require.Eventually(t, func() bool {
		role, ok := fix.resolver.Current()
		return ok && role == domainauth.RoleAdmin
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return fix.router.Last() == "/ticket/7"
	}, time.Second, 5*time.Millisecond)

	assert.True(t, fix.service.LoggedIn(ctx))
	require.NotNil(t, fix.service.CurrentIdentity())
}

func TestSessionService_LoginWrongPassword(t *testing.T) {
	fix := newSessionFixture(t)

	fix.provider.SignInFunc = func(context.Context, string, string) error {
		return &ports.ProviderError{
			Code:    ports.ErrCodeInvalidPassword,
			Message: "INVALID_PASSWORD",
		}
	}

	res := fix.service.LogIn(context.Background(), "someone@example.com", "wrong")
	assert.False(t, res.OK)
	assert.Equal(t, "Failed to authenticate user. Password was incorrect.", res.Message)
	assert.Nil(t, fix.service.CurrentIdentity())
}

func TestSessionService_LoginUnknownProviderCodePassesMessageThrough(t *testing.T) {
	fix := newSessionFixture(t)

	fix.provider.SignInFunc = func(context.Context, string, string) error {
		return &ports.ProviderError{
			Code:    ports.ErrCodeInvalidEmail,
			Message: "The email address is badly formatted.",
		}
	}

	res := fix.service.LogIn(context.Background(), "not-an-address", "pw")
	assert.False(t, res.OK)
	assert.Equal(t, "Failed to authenticate user. The email address is badly formatted.", res.Message)
}

func TestSessionService_ReauthenticateWithoutCurrentUser(t *testing.T) {
	fix := newSessionFixture(t)

	res := fix.service.ReauthenticateUser(context.Background(), "pw")
	assert.False(t, res.OK)
	assert.Equal(t, "Failed to reauthenticate user. Could not load current user.", res.Message)

	// The failure is local; no credential must reach the provider.
	assert.Zero(t, fix.provider.CallCount("Reauthenticate"))
}

func TestSessionService_ReauthenticateUsesCurrentEmail(t *testing.T) {
	fix := newSessionFixture(t)

	fix.provider.PushSession(verifiedIdentity("someone@example.com"))
	require.Eventually(t, func() bool {
		return fix.service.CurrentIdentity() != nil
	}, time.Second, 5*time.Millisecond)

	var gotEmail string
	fix.provider.ReauthenticateFunc = func(_ context.Context, email, _ string) error {
		gotEmail = email
		return nil
	}

	res := fix.service.ReauthenticateUser(context.Background(), "pw")
	assert.True(t, res.OK)
	assert.Equal(t, "someone@example.com", gotEmail)
}

func TestSessionService_ReauthenticateWrongPassword(t *testing.T) {
	fix := newSessionFixture(t)

	fix.provider.PushSession(verifiedIdentity("someone@example.com"))
	require.Eventually(t, func() bool {
		return fix.service.CurrentIdentity() != nil
	}, time.Second, 5*time.Millisecond)

	fix.provider.ReauthenticateFunc = func(context.Context, string, string) error {
		return &ports.ProviderError{Code: ports.ErrCodeInvalidPassword, Message: "INVALID_PASSWORD"}
	}

	res := fix.service.ReauthenticateUser(context.Background(), "wrong")
	assert.False(t, res.OK)
	assert.Equal(t, "Failed to reauthenticate user. Password was incorrect.", res.Message)
}

func TestSessionService_ChangePasswordWithoutCurrentUser(t *testing.T) {
	fix := newSessionFixture(t)

	res := fix.service.ChangePassword(context.Background(), "new-pw")
	assert.False(t, res.OK)
	assert.Equal(t, "Failed to change password. Could not load current user.", res.Message)
	assert.Zero(t, fix.provider.CallCount("UpdatePassword"))
}

func TestSessionService_ChangePassword(t *testing.T) {
	fix := newSessionFixture(t)

	fix.provider.PushSession(verifiedIdentity("someone@example.com"))
	require.Eventually(t, func() bool {
		return fix.service.CurrentIdentity() != nil
	}, time.Second, 5*time.Millisecond)

	res := fix.service.ChangePassword(context.Background(), "new-pw")
	assert.True(t, res.OK)
	assert.Equal(t, "Successfully changed password!", res.Message)
	assert.Equal(t, 1, fix.provider.CallCount("UpdatePassword"))
}

func TestSessionService_SendPasswordResetFailure(t *testing.T) {
	fix := newSessionFixture(t)

	fix.provider.SendPasswordResetEmailFunc = func(context.Context, string) error {
		return &ports.ProviderError{
			Code:    ports.ErrCodeUserNotFound,
			Message: "There is no user record corresponding to this identifier.",
		}
	}

	res := fix.service.SendPasswordReset(context.Background(), "nobody@example.com")
	assert.False(t, res.OK)
	assert.Equal(t, "Failed to reset password. There is no user record corresponding to this identifier.", res.Message)
}

func TestSessionService_ConfirmPasswordResetExpiredCode(t *testing.T) {
	fix := newSessionFixture(t)

	fix.provider.ConfirmPasswordResetFunc = func(context.Context, string, string) error {
		return &ports.ProviderError{
			Code:    ports.ErrCodeExpiredCode,
			Message: "The action code has expired.",
		}
	}

	res := fix.service.ConfirmPasswordReset(context.Background(), "stale-code", "new-pw")
	assert.False(t, res.OK)
	assert.Equal(t, "Failed to change password. The action code has expired.", res.Message)
}

func TestSessionService_LogOut(t *testing.T) {
	fix := newSessionFixture(t)
	ctx := context.Background()

	fix.provider.PushSession(verifiedIdentity("someone@example.com"))
	require.Eventually(t, func() bool {
		return fix.service.LoggedIn(ctx)
	}, time.Second, 5*time.Millisecond)

	fix.service.LogOut(ctx)

	assert.Equal(t, 1, fix.provider.CallCount("SignOut"))
	assert.False(t, fix.cache.HasEntry())
	assert.False(t, fix.service.LoggedIn(ctx))
	assert.Equal(t, LoginPath, fix.router.Last())
}

func TestSessionService_LogOutWhileLoggedOut(t *testing.T) {
	// Logging out twice, or without a session, still lands on the login form.
	fix := newSessionFixture(t)
	ctx := context.Background()

	fix.service.LogOut(ctx)
	fix.service.LogOut(ctx)

	assert.False(t, fix.service.LoggedIn(ctx))
	assert.Equal(t, []string{LoginPath, LoginPath}, fix.router.Paths())
}

func TestSessionService_LogOutProviderFailureStillCleansUp(t *testing.T) {
	fix := newSessionFixture(t)
	ctx := context.Background()

	fix.provider.PushSession(verifiedIdentity("someone@example.com"))
	require.Eventually(t, func() bool {
		return fix.service.LoggedIn(ctx)
	}, time.Second, 5*time.Millisecond)

	fix.provider.SignOutFunc = func(context.Context) error {
		return errors.New("network unreachable")
	}

	fix.service.LogOut(ctx)

	assert.False(t, fix.cache.HasEntry())
	assert.Equal(t, LoginPath, fix.router.Last())
}

func TestSessionService_GetToken(t *testing.T) {
	fix := newSessionFixture(t)
	ctx := context.Background()

	// No identity: empty token, no provider call.
	assert.Empty(t, fix.service.GetToken(ctx))
	assert.Zero(t, fix.provider.CallCount("IDToken"))

	fix.provider.PushSession(verifiedIdentity("someone@example.com"))
	require.Eventually(t, func() bool {
		return fix.service.CurrentIdentity() != nil
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "mock-token", fix.service.GetToken(ctx))

	// Provider failure degrades to empty, never an error.
	fix.provider.IDTokenFunc = func(context.Context) (string, error) {
		return "", errors.New("token refresh failed")
	}
	assert.Empty(t, fix.service.GetToken(ctx))
}

func TestSessionService_NilPushClearsSession(t *testing.T) {
	fix := newSessionFixture(t)
	ctx := context.Background()

	fix.provider.TokenClaimsFunc = func(context.Context) (domainauth.Claims, error) {
		return domainauth.Claims{"admin": true}, nil
	}
	fix.provider.PushSession(verifiedIdentity("someone@example.com"))
	require.Eventually(t, func() bool {
		_, ok := fix.resolver.Current()
		return ok
	}, time.Second, 5*time.Millisecond)

	fix.provider.PushSession(nil)

	// LoggedIn flips only once the signed-out state reaches the store; the
	// in-memory identity and role are cleared before that.
	require.Eventually(t, func() bool {
		return !fix.service.LoggedIn(ctx)
	}, time.Second, 5*time.Millisecond)
	assert.Nil(t, fix.service.CurrentIdentity())
	_, ok := fix.resolver.Current()
	assert.False(t, ok)

	// The signed-out state is persisted explicitly, not merely dropped.
	assert.True(t, fix.cache.HasEntry())
}

func TestSessionService_RapidPushesLastWriteWins(t *testing.T) {
	fix := newSessionFixture(t)

	fix.provider.TokenClaimsFunc = func(context.Context) (domainauth.Claims, error) {
		return domainauth.Claims{}, nil
	}

	fix.provider.PushSession(verifiedIdentity("first@example.com"))
	fix.provider.PushSession(verifiedIdentity("second@example.com"))

	require.Eventually(t, func() bool {
		current := fix.service.CurrentIdentity()
		return current != nil && current.Email == "second@example.com"
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		role, ok := fix.resolver.Current()
		return ok && role == domainauth.RoleRequester
	}, time.Second, 5*time.Millisecond)
}

func TestSessionService_SingleProviderSubscription(t *testing.T) {
	fix := newSessionFixture(t)

	assert.Equal(t, 1, fix.provider.HandlerCount())

	// Repeated operations never add subscriptions.
	fix.service.LogIn(context.Background(), "someone@example.com", "pw")
	fix.service.LogOut(context.Background())
	assert.Equal(t, 1, fix.provider.HandlerCount())

	fix.service.Close()
	assert.Zero(t, fix.provider.HandlerCount())
}

func TestSessionService_IdentityChangesCancelIsIdempotent(t *testing.T) {
	fix := newSessionFixture(t)

	ch, cancel := fix.service.IdentityChanges()
	<-ch
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
}
