package devauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
	"github.com/corrigohq/corrigo/internal/ports"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	provider, err := NewProvider(Config{Accounts: DemoAccounts()})
	require.NoError(t, err)
	return provider
}

func TestNewProvider_Validation(t *testing.T) {
	_, err := NewProvider(Config{})
	assert.Error(t, err)

	_, err = NewProvider(Config{Accounts: []Account{{Email: "x@y.z", Password: "pw"}}})
	assert.Error(t, err)
}

func TestProvider_SignInPushesIdentity(t *testing.T) {
	provider := newTestProvider(t)

	var pushed *domainauth.Identity
	cancel := provider.SessionChanges(func(identity *domainauth.Identity) { pushed = identity })
	defer cancel()

	require.NoError(t, provider.SignIn(context.Background(), "Admin@corrigo.local", "admin"))

	require.NotNil(t, pushed)
	assert.Equal(t, "dev-admin", pushed.UserID)
	assert.True(t, pushed.EmailVerified)

	token, err := provider.IDToken(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestProvider_SignInBadCredentials(t *testing.T) {
	provider := newTestProvider(t)

	err := provider.SignIn(context.Background(), "admin@corrigo.local", "nope")
	var providerErr *ports.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, ports.ErrCodeInvalidPassword, providerErr.Code)

	err = provider.SignIn(context.Background(), "ghost@corrigo.local", "pw")
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, ports.ErrCodeUserNotFound, providerErr.Code)
}

func TestProvider_SignOutPushesNil(t *testing.T) {
	provider := newTestProvider(t)
	require.NoError(t, provider.SignIn(context.Background(), "admin@corrigo.local", "admin"))

	var pushes []*domainauth.Identity
	cancel := provider.SessionChanges(func(identity *domainauth.Identity) {
		pushes = append(pushes, identity)
	})
	defer cancel()

	require.NoError(t, provider.SignOut(context.Background()))

	require.Len(t, pushes, 1)
	assert.Nil(t, pushes[0])

	_, err := provider.IDToken(context.Background())
	assert.Error(t, err)
}

func TestProvider_TokenClaimsMergeAccountClaims(t *testing.T) {
	provider := newTestProvider(t)
	require.NoError(t, provider.SignIn(context.Background(), "editor@corrigo.local", "editor"))

	claims, err := provider.TokenClaims(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, claims["editor"])
	assert.Equal(t, "editor@corrigo.local", claims["email"])
	assert.Equal(t, true, claims["email_verified"])
}

func TestProvider_ReauthenticateDoesNotPush(t *testing.T) {
	provider := newTestProvider(t)
	require.NoError(t, provider.SignIn(context.Background(), "admin@corrigo.local", "admin"))

	pushes := 0
	cancel := provider.SessionChanges(func(*domainauth.Identity) { pushes++ })
	defer cancel()

	require.NoError(t, provider.Reauthenticate(context.Background(), "admin@corrigo.local", "admin"))
	assert.Zero(t, pushes)

	err := provider.Reauthenticate(context.Background(), "admin@corrigo.local", "wrong")
	var providerErr *ports.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, ports.ErrCodeInvalidPassword, providerErr.Code)
}

func TestProvider_UpdatePassword(t *testing.T) {
	provider := newTestProvider(t)
	ctx := context.Background()

	assert.Error(t, provider.UpdatePassword(ctx, "new-pw"))

	require.NoError(t, provider.SignIn(ctx, "admin@corrigo.local", "admin"))
	require.NoError(t, provider.UpdatePassword(ctx, "new-pw"))

	require.NoError(t, provider.SignOut(ctx))
	assert.Error(t, provider.SignIn(ctx, "admin@corrigo.local", "admin"))
	require.NoError(t, provider.SignIn(ctx, "admin@corrigo.local", "new-pw"))
}

func TestProvider_PasswordResetFlow(t *testing.T) {
	provider := newTestProvider(t)
	ctx := context.Background()

	err := provider.SendPasswordResetEmail(ctx, "ghost@corrigo.local")
	var providerErr *ports.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, ports.ErrCodeUserNotFound, providerErr.Code)

	require.NoError(t, provider.SendPasswordResetEmail(ctx, "requester@corrigo.local"))
	code := provider.LastResetCode()
	require.NotEmpty(t, code)

	require.NoError(t, provider.ConfirmPasswordReset(ctx, code, "fresh-pw"))
	require.NoError(t, provider.SignIn(ctx, "requester@corrigo.local", "fresh-pw"))

	// A code is single-use.
	err = provider.ConfirmPasswordReset(ctx, code, "again")
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, ports.ErrCodeExpiredCode, providerErr.Code)
}

func TestDemoAccounts_IncludeUnverifiedTestAccount(t *testing.T) {
	for _, acct := range DemoAccounts() {
		if acct.Email == "test@user.de" {
			assert.False(t, acct.EmailVerified)
			return
		}
	}
	t.Fatal("test account missing from demo set")
}
