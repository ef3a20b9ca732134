// Package cache provides a Redis-backed read-through cache in front of a
// play-by-play fetcher, with graceful fallback when Redis is unavailable.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dock108/scrolldown/internal/adapters/pbp"
	"github.com/dock108/scrolldown/internal/domain/model"
	"github.com/dock108/scrolldown/pkg/logger"
	"github.com/dock108/scrolldown/pkg/metrics"
)

// DefaultTTL is used when Config.TTL is not positive.
const DefaultTTL = 5 * time.Minute

// KeyMomentPbp prefixes cached moment PBP entries; the moment id is appended.
const KeyMomentPbp = "scrolldown:cache:moment_pbp:"

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration

	// DialTimeout bounds the startup ping and each connection attempt.
	DialTimeout time.Duration
}

// Fetcher wraps another fetcher and caches successful responses in Redis.
// Errors from the wrapped fetcher are never cached. The first Redis error
// disables the cache for the lifetime of the Fetcher.
type Fetcher struct {
	next   pbp.Fetcher
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger

	mu       sync.RWMutex
	disabled bool

	hits   atomic.Int64
	misses atomic.Int64
}

// New connects to Redis and returns a caching fetcher over next. When Redis
// cannot be reached the returned Fetcher passes every call straight through.
func New(ctx context.Context, cfg Config, next pbp.Fetcher, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	f := &Fetcher{next: next, ttl: cfg.TTL, logger: log}

	if cfg.RedisAddr == "" {
		f.disabled = true
		return f
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn(ctx, "redis cache unavailable, running without caching",
			logger.String("addr", cfg.RedisAddr), logger.Error(err))
		_ = client.Close()
		f.disabled = true
		return f
	}

	log.Info(ctx, "redis cache initialized", logger.String("addr", cfg.RedisAddr))
	f.client = client
	return f
}

// FetchMomentPbp serves from Redis when possible and fills it on a miss.
func (f *Fetcher) FetchMomentPbp(ctx context.Context, id model.ID) ([]model.Event, error) {
	key := KeyMomentPbp + id.String()

	if events, ok := f.get(ctx, key); ok {
		f.hits.Add(1)
		metrics.RecordCacheHit()
		return events, nil
	}
	f.misses.Add(1)
	metrics.RecordCacheMiss()

	events, err := f.next.FetchMomentPbp(ctx, id)
	if err != nil {
		return nil, err
	}
	f.set(ctx, key, events)
	return events, nil
}

// Invalidate drops the cached entry for a moment.
func (f *Fetcher) Invalidate(ctx context.Context, id model.ID) {
	if !f.IsAvailable() {
		return
	}
	if err := f.client.Del(ctx, KeyMomentPbp+id.String()).Err(); err != nil {
		f.handleError(ctx, err, "delete")
	}
}

// IsAvailable reports whether Redis is in use.
func (f *Fetcher) IsAvailable() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return !f.disabled && f.client != nil
}

// Stats returns hit and miss counts.
func (f *Fetcher) Stats() map[string]interface{} {
	return map[string]interface{}{
		"available": f.IsAvailable(),
		"hits":      f.hits.Load(),
		"misses":    f.misses.Load(),
	}
}

// Close closes the Redis connection.
func (f *Fetcher) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *Fetcher) get(ctx context.Context, key string) ([]model.Event, bool) {
	if !f.IsAvailable() {
		return nil, false
	}
	data, err := f.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		f.handleError(ctx, err, "get")
		return nil, false
	}
	var events []model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		f.logger.Debug(ctx, "failed to unmarshal cached value", logger.String("key", key), logger.Error(err))
		return nil, false
	}
	return events, true
}

func (f *Fetcher) set(ctx context.Context, key string, events []model.Event) {
	if !f.IsAvailable() {
		return
	}
	data, err := json.Marshal(events)
	if err != nil {
		f.logger.Debug(ctx, "failed to marshal cache value", logger.String("key", key), logger.Error(err))
		return
	}
	if err := f.client.Set(ctx, key, data, f.ttl).Err(); err != nil {
		f.handleError(ctx, err, "set")
	}
}

func (f *Fetcher) handleError(ctx context.Context, err error, operation string) {
	metrics.RecordErrorByComponent("cache", operation)
	f.mu.Lock()
	f.disabled = true
	f.mu.Unlock()
	f.logger.Warn(ctx, "disabling cache due to redis error", logger.String("operation", operation), logger.Error(err))
}
