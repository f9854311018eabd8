package replay

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache remembers the response body already returned for a webhook
// delivery, so byte-identical redeliveries can be answered without
// re-entering the engine. It is best-effort: entries expire, and the
// state machine's idempotency is what actually guarantees single-credit.
type Cache interface {
	// Get returns the cached response body for key, if any.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores the response body for key.
	Put(ctx context.Context, key string, body []byte) error
}

type redisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := c.client.Get(ctx, c.prefix+":"+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

func (c *redisCache) Put(ctx context.Context, key string, body []byte) error {
	return c.client.Set(ctx, c.prefix+":"+key, body, c.ttl).Err()
}

type memoryCache struct {
	mu     sync.Mutex
	seen   map[string]memoryEntry
	ttl    time.Duration
	nextGC time.Time
}

type memoryEntry struct {
	body    []byte
	expires time.Time
}

func newMemoryCache(ttl time.Duration) *memoryCache {
	return &memoryCache{
		seen:   make(map[string]memoryEntry),
		ttl:    ttl,
		nextGC: time.Now().Add(ttl),
	}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.seen[key]; ok && e.expires.After(now) {
		return e.body, true, nil
	}
	return nil, false, nil
}

func (c *memoryCache) Put(_ context.Context, key string, body []byte) error {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seen[key] = memoryEntry{body: body, expires: now.Add(c.ttl)}
	if now.After(c.nextGC) {
		for k, e := range c.seen {
			if e.expires.Before(now) {
				delete(c.seen, k)
			}
		}
		c.nextGC = now.Add(c.ttl)
	}
	return nil
}

// New builds a Redis-backed cache and falls back to in-memory on failure.
func New(addr, pass string, db int, ttl time.Duration) (Cache, error) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if addr == "" {
		return newMemoryCache(ttl), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return newMemoryCache(ttl), err
	}

	return &redisCache{
		client: client,
		prefix: "click:webhook",
		ttl:    ttl,
	}, nil
}

// NewMemory returns a purely in-memory cache, used in tests.
func NewMemory(ttl time.Duration) Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return newMemoryCache(ttl)
}
