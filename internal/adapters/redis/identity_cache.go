package redis

// Package redis provides Redis-based adapters for the corrigo session core.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
)

// nullSentinel is the literal stored for an explicitly logged-out state, so a
// restored "logged out" is distinguishable from a missing or corrupted entry.
const nullSentinel = "null"

// IdentityCache is a Redis-backed durable cache for the last known identity.
// Writes are last-write-wins; there is no TTL, the entry lives until the next
// provider push or an explicit Clear.
type IdentityCache struct {
	client redis.UniversalClient
	key    string
}

// NewIdentityCache creates an identity cache under the default key.
func NewIdentityCache(client redis.UniversalClient) *IdentityCache {
	return NewIdentityCacheWithKey(client, "corrigo:user")
}

// NewIdentityCacheWithKey creates an identity cache under a custom key.
func NewIdentityCacheWithKey(client redis.UniversalClient, key string) *IdentityCache {
	return &IdentityCache{
		client: client,
		key:    key,
	}
}

// Load returns the cached identity. Both a missing entry and the null
// sentinel yield (nil, nil): the caller only cares whether someone is known
// to be logged in.
func (c *IdentityCache) Load(ctx context.Context) (*domainauth.Identity, error) {
	data, err := c.client.Get(ctx, c.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	if data == nullSentinel {
		return nil, nil
	}

	var identity domainauth.Identity
	if unmarshalErr := json.Unmarshal([]byte(data), &identity); unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal identity: %w", unmarshalErr)
	}

	return &identity, nil
}

// Store caches the identity, or the null sentinel when identity is nil.
func (c *IdentityCache) Store(ctx context.Context, identity *domainauth.Identity) error {
	if identity == nil {
		return c.client.Set(ctx, c.key, nullSentinel, 0).Err()
	}

	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	return c.client.Set(ctx, c.key, data, 0).Err()
}

// Clear removes the cached entry entirely.
func (c *IdentityCache) Clear(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}
