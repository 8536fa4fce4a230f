package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultTTL = 10 * time.Minute

	pingTimeout = 2 * time.Second
)

var ErrUnavailable = errors.New("redis unavailable")

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Redis is a JSON cache. When the server cannot be reached at start-up the
// cache is bypassed: reads miss and writes are dropped.
type Redis struct {
	client *redis.Client
	prefix string
	logger *zap.Logger

	warnedUnavailable atomic.Bool
}

func NewRedis(ctx context.Context, opts Options, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}

	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, bypassing cache", zap.String("addr", addr), zap.Error(err))
		_ = client.Close()
		return &Redis{logger: logger, prefix: opts.Prefix}
	}

	logger.Debug("redis cache connected", zap.String("addr", addr))
	return &Redis{client: client, prefix: opts.Prefix, logger: logger}
}

// Available reports whether the cache is backed by a live server.
func (r *Redis) Available() bool {
	return r != nil && r.client != nil
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) warnUnavailableOnce(err error) {
	if r.warnedUnavailable.CompareAndSwap(false, true) {
		r.logger.Warn("redis request failed, cache degraded", zap.Error(err))
	}
}

// Ping checks the server. A bypassed cache reports ErrUnavailable.
func (r *Redis) Ping(ctx context.Context) error {
	if !r.Available() {
		return ErrUnavailable
	}
	return r.client.Ping(ctx).Err()
}

// GetJSON decodes the cached value into out. A miss returns false with no error.
func (r *Redis) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	if !r.Available() {
		return false, nil
	}
	b, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		r.warnUnavailableOnce(err)
		return false, err
	}
	if len(b) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Redis) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !r.Available() {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(key), b, ttl).Err(); err != nil {
		r.warnUnavailableOnce(err)
		return err
	}
	return nil
}

func (r *Redis) Close() error {
	if !r.Available() {
		return nil
	}
	return r.client.Close()
}
