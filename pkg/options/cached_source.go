package options

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/matst80/slask-audience/pkg/common/jsoncompat"
	"github.com/matst80/slask-audience/pkg/types"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

type KeyValue interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr, password string, db int) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return data, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

const defaultCacheKey = "audience:options"

type localEntry struct {
	expires time.Time
	data    *types.CampaignOptions
}

// CachedSource puts a shared cache and an in-process memo in front of a
// slower source. Cache failures fall through to the source.
type CachedSource struct {
	Source Source
	Cache  KeyValue
	Key    string
	TTL    time.Duration

	mu    sync.Mutex
	local *localEntry
	now   func() time.Time
}

func NewCachedSource(src Source, cache KeyValue, ttl time.Duration) *CachedSource {
	return &CachedSource{Source: src, Cache: cache, Key: defaultCacheKey, TTL: ttl, now: time.Now}
}

func (c *CachedSource) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

func (c *CachedSource) memoTTL() time.Duration {
	if c.TTL > 0 && c.TTL < time.Minute {
		return c.TTL
	}
	return time.Minute
}

func (c *CachedSource) Fetch(ctx context.Context) (*types.CampaignOptions, error) {
	c.mu.Lock()
	if c.local != nil && c.clock().Before(c.local.expires) {
		opts := c.local.data.Clone()
		c.mu.Unlock()
		return opts, nil
	}
	c.mu.Unlock()

	if c.Cache != nil {
		data, err := c.Cache.Get(ctx, c.Key)
		if err == nil {
			opts := &types.CampaignOptions{}
			if err = jsoncompat.Unmarshal(data, opts); err == nil {
				c.remember(opts)
				return opts, nil
			}
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("options cache read failed: %v", err)
		} else {
			log.Printf("options cache miss, fetching from source")
		}
	}

	opts, err := c.Source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if c.Cache != nil {
		if data, err := jsoncompat.Marshal(opts); err == nil {
			if err := c.Cache.Set(ctx, c.Key, data, c.TTL); err != nil {
				log.Printf("options cache write failed: %v", err)
			}
		}
	}
	c.remember(opts)
	return opts, nil
}

func (c *CachedSource) remember(opts *types.CampaignOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.local = &localEntry{expires: c.clock().Add(c.memoTTL()), data: opts.Clone()}
}

// Invalidate drops both cache layers so the next fetch hits the source.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.local = nil
	c.mu.Unlock()
	if c.Cache == nil {
		return nil
	}
	return c.Cache.Delete(ctx, c.Key)
}
