package probe

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores probe results by content fingerprint.
type Cache interface {
	Get(ctx context.Context, key string) (*Result, bool)
	Set(ctx context.Context, key string, res *Result)
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Result
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Result)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return &res, true
}

func (c *MemoryCache) Set(_ context.Context, key string, res *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = *res
}

// RedisCache shares probe results between editor instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

const redisKeyPrefix = "heimdex-editor:probe:"

// NewRedisCache connects to addr and verifies the connection.
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration, logger *slog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Result, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("probe cache read failed", "key", key, "error", err)
		return nil, false
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Warn("probe cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return &res, true
}

func (c *RedisCache) Set(ctx context.Context, key string, res *Result) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("probe cache write failed", "key", key, "error", err)
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// CachedProber consults a Cache before running the wrapped Prober.
type CachedProber struct {
	inner  Prober
	cache  Cache
	logger *slog.Logger
}

func NewCachedProber(inner Prober, cache Cache, logger *slog.Logger) *CachedProber {
	return &CachedProber{inner: inner, cache: cache, logger: logger}
}

func (p *CachedProber) Probe(ctx context.Context, path string) (*Result, error) {
	key, err := Fingerprint(path)
	if err != nil {
		return nil, err
	}
	if res, ok := p.cache.Get(ctx, key); ok {
		p.logger.Debug("probe cache hit", "path", path)
		return res, nil
	}

	res, err := p.inner.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	p.cache.Set(ctx, key, res)
	return res, nil
}
