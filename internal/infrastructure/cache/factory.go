package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Stores bundles the session state backends
type Stores struct {
	Carts     cart.Store
	Processed shared.IdempotencyStore
	client    *redis.Client
}

// UsesRedis reports whether the stores are backed by Redis
func (s *Stores) UsesRedis() bool {
	return s.client != nil
}

// Ping checks the Redis connection; in-memory stores are always healthy
func (s *Stores) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// Close releases the idempotency janitor and the Redis client
func (s *Stores) Close() error {
	err := s.Processed.Close()
	if s.client != nil {
		if cerr := s.client.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// FactoryOption configures NewStores
type FactoryOption func(*factoryOptions)

type factoryOptions struct {
	logger        *zap.Logger
	allowFallback bool
	client        *redis.Client
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(o *factoryOptions) {
		o.logger = logger
	}
}

// WithInMemoryFallback lets NewStores fall back to process memory when
// Redis is enabled but unreachable
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(o *factoryOptions) {
		o.allowFallback = allow
	}
}

// WithClient uses an existing Redis client instead of dialing one
func WithClient(client *redis.Client) FactoryOption {
	return func(o *factoryOptions) {
		o.client = client
	}
}

// NewStores chooses Redis when it is enabled and process memory otherwise
func NewStores(ctx context.Context, cfg config.RedisConfig, opts ...FactoryOption) (*Stores, error) {
	o := &factoryOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	if !cfg.Enabled {
		o.logger.Info("Redis disabled, using in-memory cart and idempotency stores")
		return newInMemoryStores(cfg), nil
	}

	client := o.client
	if client == nil {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr(),
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if !o.allowFallback {
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
		}
		o.logger.Warn("Redis unavailable, falling back to in-memory stores; carts will not survive restarts",
			zap.String("addr", cfg.Addr()),
			zap.Error(err))
		return newInMemoryStores(cfg), nil
	}

	o.logger.Info("Using Redis cart and idempotency stores", zap.String("addr", cfg.Addr()))
	return &Stores{
		Carts:     NewRedisCartStore(client, cfg.CartTTL),
		Processed: NewRedisIdempotencyStore(client, ""),
		client:    client,
	}, nil
}

func newInMemoryStores(cfg config.RedisConfig) *Stores {
	return &Stores{
		Carts:     NewInMemoryCartStore(cfg.CartTTL),
		Processed: NewInMemoryIdempotencyStore(DefaultJanitorInterval),
	}
}
