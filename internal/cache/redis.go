package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig describes the shared cache backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	return client, nil
}

// Redis stores JSON encoded values in redis under a prefix. Its size is
// bounded by the server eviction policy; ttl 0 keeps entries forever.
type Redis[V any] struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	logger *zap.Logger

	warned atomic.Bool
}

func NewRedis[V any](client redis.Cmdable, prefix string, ttl time.Duration, logger *zap.Logger) *Redis[V] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis[V]{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (r *Redis[V]) Get(ctx context.Context, key string) (V, bool) {
	var value V

	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.warnOnce(err)
		}
		return value, false
	}

	if err := json.Unmarshal(b, &value); err != nil {
		r.logger.Debug("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		return value, false
	}

	return value, true
}

func (r *Redis[V]) Set(ctx context.Context, key string, value V) {
	b, err := json.Marshal(value)
	if err != nil {
		r.logger.Debug("cache value is not encodable", zap.String("key", key), zap.Error(err))
		return
	}

	if err := r.client.Set(ctx, r.prefix+key, b, r.ttl).Err(); err != nil {
		r.warnOnce(err)
	}
}

func (r *Redis[V]) warnOnce(err error) {
	if r.warned.CompareAndSwap(false, true) {
		r.logger.Warn("redis cache unavailable, bypassing it", zap.Error(err))
	}
}
