// Package cache keeps generated artifacts in Redis keyed by prompt content hash.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"brandstudio/internal/domain"
)

const defaultPrefix = "brandstudio:artifact:"

// RedisCache implements domain.ArtifactCache.
type RedisCache struct {
	client *backend.Client
	prefix string
}

type Option func(*RedisCache)

// WithPrefix sets the key prefix for cached artifacts.
func WithPrefix(prefix string) Option {
	return func(c *RedisCache) {
		c.prefix = prefix
	}
}

// New connects to the Redis instance described by a redis:// URL.
func New(redisURL string, opts ...Option) (*RedisCache, error) {
	parsed, err := backend.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}
	return NewFromClient(backend.NewClient(parsed), opts...), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *RedisCache {
	c := &RedisCache{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type cachedArtifact struct {
	URL              string           `json:"url,omitempty"`
	Data             []byte           `json:"data"`
	Format           string           `json:"format"`
	Model            domain.BackendID `json:"model"`
	GenerationTimeMs int64            `json:"generation_time_ms"`
	Width            int              `json:"width"`
	Height           int              `json:"height"`
}

func (c *RedisCache) key(hash string) string {
	return c.prefix + hash
}

// Get returns the cached artifact for hash. A cached artifact carries no cost:
// it was already paid for when it was first generated.
func (c *RedisCache) Get(ctx context.Context, hash string) (*domain.ImageArtifact, bool, error) {
	raw, err := c.client.Get(ctx, c.key(hash)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: get: %w", err)
	}
	var stored cachedArtifact
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, false, fmt.Errorf("cache: decode: %w", err)
	}
	return &domain.ImageArtifact{
		URL:              stored.URL,
		Data:             stored.Data,
		Format:           stored.Format,
		Model:            stored.Model,
		GenerationTimeMs: stored.GenerationTimeMs,
		Width:            stored.Width,
		Height:           stored.Height,
	}, true, nil
}

// Put stores artifact under hash for ttl. A zero ttl keeps it until evicted.
func (c *RedisCache) Put(ctx context.Context, hash string, artifact *domain.ImageArtifact, ttl time.Duration) error {
	if artifact == nil || len(artifact.Data) == 0 {
		return nil
	}
	raw, err := json.Marshal(cachedArtifact{
		URL:              artifact.URL,
		Data:             artifact.Data,
		Format:           artifact.Format,
		Model:            artifact.Model,
		GenerationTimeMs: artifact.GenerationTimeMs,
		Width:            artifact.Width,
		Height:           artifact.Height,
	})
	if err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(hash), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ domain.ArtifactCache = (*RedisCache)(nil)
