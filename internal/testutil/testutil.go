// Package testutil provides helpers for tests that need real infrastructure.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// TestingTB is a minimal subset of testing.TB used by the helpers so they can
// be called from both tests and benchmarks.
type TestingTB interface {
	Helper()
	Logf(format string, args ...any)
	Skip(args ...any)
	Skipf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }

// GetTestRedisAddr returns the appropriate Redis address for testing.
// It checks environment variables to determine if we're in CI or local development.
// Returns the address and whether Redis is available at that address.
func GetTestRedisAddr(t TestingTB) (string, bool) {
	t.Helper()

	if ciAddr := os.Getenv("REDIS_ADDR"); ciAddr != "" {
		return testRedisConnection(t, ciAddr)
	}

	candidates := []string{
		"redis:6379",     // Docker Compose service name in CI
		"localhost:6379", // Alternative CI setup
	}

	for _, candidate := range candidates {
		if validatedAddr, ok := testRedisConnection(t, candidate); ok {
			return validatedAddr, true
		}
	}

	// Default to local test Redis address
	return testRedisConnection(t, "localhost:56379")
}

// testRedisConnection tests if Redis is available at the given address.
func testRedisConnection(t TestingTB, addr string) (string, bool) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() {
		if err := client.Close(); err != nil {
			t.Logf("warning: failed to close redis client: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Logf("Redis not available at %s: %v", addr, err)
		return addr, false
	}

	return addr, true
}

// selectTestRedisDB chooses a Redis DB index for tests to avoid cross-package
// interference. An explicit TEST_REDIS_DB wins; otherwise a DB in [1..15] is
// reserved via a lock key in the meta DB (DB 0) so FlushDB on the selected
// test DB cannot remove the reservation.
func selectTestRedisDB(t TestingTB, addr string) int {
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
		t.Logf("Invalid TEST_REDIS_DB=%q, falling back to auto-select", v)
	}

	meta := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
	defer func() {
		if err := meta.Close(); err != nil {
			t.Logf("warning: failed to close redis meta client: %v", err)
		}
	}()

	for i := 1; i <= 15; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lockKey := fmt.Sprintf("corrigo:testutil:db_lock:%d", i)
		lockVal := fmt.Sprintf("%d:%d", os.Getpid(), time.Now().UnixNano())
		ok, err := meta.SetNX(ctx, lockKey, lockVal, 30*time.Minute).Result()
		cancel()
		if err != nil || !ok {
			continue
		}

		registerRedisCleanup(t, addr, lockKey)
		t.Logf("Using Redis DB=%d for tests at %s", i, addr)
		return i
	}

	t.Logf("Falling back to Redis DB=1 for tests at %s", addr)
	return 1
}

func registerRedisCleanup(t TestingTB, addr, lockKey string) {
	tc, ok := any(t).(interface{ Cleanup(func()) })
	if !ok {
		return
	}

	tc.Cleanup(func() {
		c := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := c.Del(ctx, lockKey).Err(); err != nil {
			t.Logf("warning: failed to release redis db lock %s: %v", lockKey, err)
		}
		cancel()
		if err := c.Close(); err != nil {
			t.Logf("warning: failed to close redis cleanup client: %v", err)
		}
	})
}

// SetupTestRedis creates a Redis client for testing with automatic address detection.
// Tests will be skipped if Redis is not available.
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()

	addr, ok := GetTestRedisAddr(t)
	if !ok {
		if requireRedis() {
			t.Fatal("Redis not available for testing")
		}
		t.Skip("Redis not available for testing")
	}

	dbIndex := selectTestRedisDB(t, addr)
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIndex,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			t.Logf("warning: failed to close redis client after ping error: %v", cerr)
		}
		if requireRedis() {
			t.Fatalf("Redis not available for testing at %s: %v", addr, err)
		}
		t.Skipf("Redis not available for testing at %s: %v", addr, err)
	}

	// Clean up any existing test data
	client.FlushDB(ctx)

	return client
}
