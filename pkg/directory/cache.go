package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dukex/stageflow/pkg/models"
	redis "github.com/redis/go-redis/v9"
)

const defaultCacheKey = "stageflow:directory:workflows"

// Cache holds the last fetched workflow listing.
type Cache interface {
	Load(ctx context.Context) ([]models.WorkflowSummary, bool, error)
	Store(ctx context.Context, summaries []models.WorkflowSummary) error
	Invalidate(ctx context.Context) error
}

// MemoryCache keeps the listing in process. A zero TTL never expires.
type MemoryCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	summaries []models.WorkflowSummary
	storedAt  time.Time
	valid     bool
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, now: time.Now}
}

func (c *MemoryCache) Load(_ context.Context) ([]models.WorkflowSummary, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid {
		return nil, false, nil
	}

	if c.ttl > 0 && c.now().Sub(c.storedAt) >= c.ttl {
		c.valid = false
		c.summaries = nil

		return nil, false, nil
	}

	return append([]models.WorkflowSummary(nil), c.summaries...), true, nil
}

func (c *MemoryCache) Store(_ context.Context, summaries []models.WorkflowSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.summaries = append([]models.WorkflowSummary(nil), summaries...)
	c.storedAt = c.now()
	c.valid = true

	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.valid = false
	c.summaries = nil

	return nil
}

// RedisCache shares the listing between processes through a single redis key.
type RedisCache struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, key: defaultCacheKey, ttl: ttl}
}

// NewRedisCacheFromURL connects to a redis://host:port/db URL and verifies the connection.
func NewRedisCacheFromURL(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCache(client, ttl), nil
}

func (c *RedisCache) Load(ctx context.Context) ([]models.WorkflowSummary, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("failed to read cached workflows: %w", err)
	}

	var summaries []models.WorkflowSummary

	err = json.Unmarshal(raw, &summaries)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode cached workflows: %w", err)
	}

	return summaries, true, nil
}

func (c *RedisCache) Store(ctx context.Context, summaries []models.WorkflowSummary) error {
	raw, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("failed to encode workflows: %w", err)
	}

	err = c.client.Set(ctx, c.key, raw, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to cache workflows: %w", err)
	}

	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	err := c.client.Del(ctx, c.key).Err()
	if err != nil {
		return fmt.Errorf("failed to invalidate cached workflows: %w", err)
	}

	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
