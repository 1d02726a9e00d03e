package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewStores(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled redis uses memory", func(t *testing.T) {
		stores, err := NewStores(ctx, config.RedisConfig{Enabled: false, CartTTL: time.Hour})
		require.NoError(t, err)
		defer stores.Close()

		assert.False(t, stores.UsesRedis())
		assert.IsType(t, &InMemoryCartStore{}, stores.Carts)
		assert.IsType(t, &InMemoryIdempotencyStore{}, stores.Processed)
		assert.NoError(t, stores.Ping(ctx))
	})

	t.Run("enabled redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.RedisConfig{Enabled: true, Host: mr.Host(), Port: portOf(t, mr), CartTTL: time.Hour}

		stores, err := NewStores(ctx, cfg)
		require.NoError(t, err)
		defer stores.Close()

		assert.True(t, stores.UsesRedis())
		assert.IsType(t, &RedisCartStore{}, stores.Carts)
		assert.NoError(t, stores.Ping(ctx))
	})

	t.Run("unreachable redis fails without fallback", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.RedisConfig{Enabled: true, Host: mr.Host(), Port: portOf(t, mr)}
		mr.Close()

		_, err := NewStores(ctx, cfg)
		assert.ErrorContains(t, err, "failed to connect to Redis")
	})

	t.Run("unreachable redis falls back when allowed", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.RedisConfig{Enabled: true, Host: mr.Host(), Port: portOf(t, mr)}
		mr.Close()

		core, logs := observer.New(zap.WarnLevel)
		stores, err := NewStores(ctx, cfg, WithInMemoryFallback(true), WithLogger(zap.New(core)))
		require.NoError(t, err)
		defer stores.Close()

		assert.False(t, stores.UsesRedis())
		assert.Equal(t, 1, logs.FilterMessageSnippet("falling back").Len())
	})
}

func portOf(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	var port int
	_, err := fmt.Sscanf(mr.Port(), "%d", &port)
	require.NoError(t, err)
	return port
}
