package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 24 * time.Hour

// redisCache persists embeddings across processes. Keys are namespaced by
// model so switching models never serves stale vectors.
type redisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func newRedisCache(ctx context.Context, redisURL, model string, ttl time.Duration) (*redisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisCache{
		client: client,
		prefix: "chunkforge:embed:" + sanitizeCacheNamespace(model) + ":",
		ttl:    ttl,
	}, nil
}

func sanitizeCacheNamespace(model string) string {
	trimmed := strings.TrimSpace(strings.ToLower(model))
	if trimmed == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, trimmed)
}

func (c *redisCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	payload, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var vector []float32
	if err := json.Unmarshal(payload, &vector); err != nil {
		return nil, false, fmt.Errorf("decode cached vector: %w", err)
	}
	if len(vector) == 0 {
		return nil, false, nil
	}
	return vector, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, vector []float32) error {
	payload, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("encode vector: %w", err)
	}
	return c.client.Set(ctx, c.prefix+key, payload, c.ttl).Err()
}

func (c *redisCache) Close() error {
	return c.client.Close()
}
