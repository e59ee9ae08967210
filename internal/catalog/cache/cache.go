package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/streamgate/internal/clock"
)

const keyPrefix = "streamgate:catalog:"

// Cache stores JSON-encodable catalog values with a TTL.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// New returns a Redis cache when client is set, else an in-process one.
func New(client *redis.Client, clk clock.Clock) Cache {
	if client != nil {
		return NewRedis(client)
	}
	return NewMemory(clk)
}

// RedisCache stores snappy-compressed JSON so large rows stay small on the wire.
type RedisCache struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	decoded, err := snappy.Decode(nil, raw)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(decoded, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+key, snappy.Encode(nil, encoded), ttl).Err()
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

type MemoryCache struct {
	mu      sync.RWMutex
	clock   clock.Clock
	entries map[string]memoryEntry
}

func NewMemory(clk clock.Clock) *MemoryCache {
	if clk == nil {
		clk = clock.New()
	}
	return &MemoryCache{clock: clk, entries: map[string]memoryEntry{}}
}

func (c *MemoryCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !entry.expiresAt.IsZero() && !c.clock.Now().Before(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return false, nil
	}
	if err := json.Unmarshal(entry.payload, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	entry := memoryEntry{payload: payload}
	if ttl > 0 {
		entry.expiresAt = c.clock.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}
