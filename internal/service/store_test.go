package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
	mocks "github.com/corrigohq/corrigo/internal/mocks/auth"
)

const testBypassEmail = "test@user.de"

func newTestStore() (*SessionStore, *mocks.MemoryIdentityCache) {
	cache := mocks.NewMemoryIdentityCache()
	return NewSessionStore(cache, testBypassEmail, nil), cache
}

func TestSessionStore_LoggedIn_VerifiedIdentity(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	err := store.Persist(ctx, &domainauth.Identity{
		UserID:        "u1",
		Email:         "someone@example.com",
		EmailVerified: true,
	})
	require.NoError(t, err)

	assert.True(t, store.LoggedIn(ctx))
}

func TestSessionStore_LoggedIn_UnverifiedIdentity(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	err := store.Persist(ctx, &domainauth.Identity{
		UserID:        "u1",
		Email:         "someone@example.com",
		EmailVerified: false,
	})
	require.NoError(t, err)

	assert.False(t, store.LoggedIn(ctx))
}

func TestSessionStore_LoggedIn_BypassAccount(t *testing.T) {
	// The designated test account authenticates without verification.
	store, _ := newTestStore()
	ctx := context.Background()

	err := store.Persist(ctx, &domainauth.Identity{
		UserID:        "u1",
		Email:         testBypassEmail,
		EmailVerified: false,
	})
	require.NoError(t, err)

	assert.True(t, store.LoggedIn(ctx))
}

func TestSessionStore_LoggedIn_NoBypassConfigured(t *testing.T) {
	cache := mocks.NewMemoryIdentityCache()
	store := NewSessionStore(cache, "", nil)
	ctx := context.Background()

	// An empty bypass address must not match an identity with empty email.
	require.NoError(t, store.Persist(ctx, &domainauth.Identity{UserID: "u1"}))

	assert.False(t, store.LoggedIn(ctx))
}

func TestSessionStore_NullRoundTrip(t *testing.T) {
	store, cache := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Persist(ctx, &domainauth.Identity{UserID: "u1", EmailVerified: true}))
	require.NoError(t, store.Persist(ctx, nil))

	// The explicit null sentinel is stored; the predicate reads logged out.
	assert.True(t, cache.HasEntry())
	assert.Nil(t, store.Restore(ctx))
	assert.False(t, store.LoggedIn(ctx))
}

func TestSessionStore_Restore_BestEffortOnCacheFailure(t *testing.T) {
	store, cache := newTestStore()
	cache.LoadErr = errors.New("cache unavailable")

	assert.Nil(t, store.Restore(context.Background()))
	assert.False(t, store.LoggedIn(context.Background()))
}

func TestSessionStore_Remove(t *testing.T) {
	store, cache := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Persist(ctx, &domainauth.Identity{UserID: "u1", EmailVerified: true}))
	require.NoError(t, store.Remove(ctx))

	assert.False(t, cache.HasEntry())
	assert.False(t, store.LoggedIn(ctx))
}
