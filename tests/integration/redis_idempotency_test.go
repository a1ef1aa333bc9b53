package integration

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/debtdesk/backend/internal/infrastructure/cache"
	"github.com/debtdesk/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newRedisConfig starts a throwaway Redis and returns its connection settings
func newRedisConfig(t *testing.T) config.RedisConfig {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate Redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	return config.RedisConfig{Host: host, Port: portNum}
}

func TestRedisIdempotencyStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := newRedisConfig(t)
	ctx := context.Background()

	store, err := cache.NewRedisIdempotencyStore(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Ping())

	t.Run("first claim wins", func(t *testing.T) {
		claimed, err := store.MarkProcessed(ctx, "payment:provider_txn:psp-1", time.Minute)
		require.NoError(t, err)
		assert.True(t, claimed)

		claimed, err = store.MarkProcessed(ctx, "payment:provider_txn:psp-1", time.Minute)
		require.NoError(t, err)
		assert.False(t, claimed)
	})

	t.Run("release allows a retry", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "payment:provider_txn:psp-2", time.Minute)
		require.NoError(t, err)
		require.NoError(t, store.Release(ctx, "payment:provider_txn:psp-2"))

		claimed, err := store.MarkProcessed(ctx, "payment:provider_txn:psp-2", time.Minute)
		require.NoError(t, err)
		assert.True(t, claimed)
	})

	t.Run("claims expire", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "payment:provider_txn:psp-3", time.Second)
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			claimed, err := store.MarkProcessed(ctx, "payment:provider_txn:psp-3", time.Minute)
			return err == nil && claimed
		}, 5*time.Second, 100*time.Millisecond)
	})
}

func TestIdempotencyStoreFactory_UsesRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := newRedisConfig(t)
	store, err := cache.NewIdempotencyStoreFactory(cfg, cache.WithInMemoryFallback(false)).CreateStore(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, ok := store.(*cache.RedisIdempotencyStore)
	assert.True(t, ok, "expected a Redis-backed store, got %T", store)
}
