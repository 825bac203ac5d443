package embedder

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tmc/langchaingo/embeddings"

	"github.com/chunkforge/chunkforge/pkg/logger"
)

// Adapter wraps a langchaingo embedder, layering caches and contextual
// error reporting on top of it.
type Adapter struct {
	provider  Provider
	model     string
	batchSize int
	impl      embeddings.Embedder

	cacheMu    sync.Mutex
	cache      *lru.Cache[string, []float32]
	persistent *redisCache
}

// New constructs a provider-backed embedding adapter.
func New(cfg *Config) (*Adapter, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	options := []embeddings.Option{
		embeddings.WithBatchSize(cfg.BatchSize),
		embeddings.WithStripNewLines(cfg.StripNewLines),
	}
	impl, err := buildProviderEmbedder(cfg, options...)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		provider:  cfg.Provider,
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
		impl:      impl,
	}, nil
}

// Wrap constructs an adapter around an existing langchaingo embedder.
func Wrap(cfg *Config, impl embeddings.Embedder) (*Adapter, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if impl == nil {
		return nil, fmt.Errorf("embedder %s/%s: implementation is required", cfg.Provider, cfg.Model)
	}
	return &Adapter{
		provider:  cfg.Provider,
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
		impl:      impl,
	}, nil
}

// Model returns the configured model identifier.
func (a *Adapter) Model() string {
	return a.model
}

// BatchSize returns the configured batch size.
func (a *Adapter) BatchSize() int {
	return a.batchSize
}

// EnableCache initializes the in-process LRU cache.
func (a *Adapter) EnableCache(size int) error {
	if size <= 0 {
		return fmt.Errorf("embedder %s/%s: cache size must be greater than zero", a.provider, a.model)
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return fmt.Errorf("embedder %s/%s: init cache: %w", a.provider, a.model, err)
	}
	a.cacheMu.Lock()
	a.cache = cache
	a.cacheMu.Unlock()
	return nil
}

// EnableRedisCache layers a shared Redis cache under the in-process LRU so
// repeated ingest runs across processes skip re-embedding.
func (a *Adapter) EnableRedisCache(ctx context.Context, redisURL string, ttl time.Duration) error {
	cache, err := newRedisCache(ctx, redisURL, a.model, ttl)
	if err != nil {
		return fmt.Errorf("embedder %s/%s: init redis cache: %w", a.provider, a.model, err)
	}
	a.cacheMu.Lock()
	a.persistent = cache
	a.cacheMu.Unlock()
	return nil
}

// Close releases the persistent cache connection, if any.
func (a *Adapter) Close() error {
	a.cacheMu.Lock()
	persistent := a.persistent
	a.persistent = nil
	a.cacheMu.Unlock()
	if persistent == nil {
		return nil
	}
	return persistent.Close()
}

// EmbedDocuments embeds a batch of texts, deduplicating repeats and reusing
// cached vectors where possible.
func (a *Adapter) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	results := make([][]float32, len(texts))
	missingIdx := make(map[string][]int)
	for i := range texts {
		if vector, ok := a.lookupVector(ctx, texts[i]); ok {
			results[i] = vector
			continue
		}
		missingIdx[texts[i]] = append(missingIdx[texts[i]], i)
	}
	if len(missingIdx) == 0 {
		return results, nil
	}
	missing := make([]string, 0, len(missingIdx))
	for text := range missingIdx {
		missing = append(missing, text)
	}
	start := time.Now()
	embedded, err := a.impl.EmbedDocuments(ctx, missing)
	if err != nil {
		recordEmbedError(ctx, string(a.provider), a.model, categorizeError(err))
		return nil, a.withContext(err)
	}
	if len(embedded) != len(missing) {
		return nil, a.withContext(fmt.Errorf("received %d embeddings for %d texts", len(embedded), len(missing)))
	}
	recordGeneration(ctx, string(a.provider), a.model, len(missing), time.Since(start))
	for i := range embedded {
		for _, idx := range missingIdx[missing[i]] {
			results[idx] = cloneVector(embedded[i])
		}
		a.storeVector(ctx, missing[i], embedded[i])
	}
	return results, nil
}

// EmbedQuery embeds a single query string.
func (a *Adapter) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if vector, ok := a.lookupVector(ctx, text); ok {
		return vector, nil
	}
	start := time.Now()
	vector, err := a.impl.EmbedQuery(ctx, text)
	if err != nil {
		recordEmbedError(ctx, string(a.provider), a.model, categorizeError(err))
		return nil, a.withContext(err)
	}
	recordGeneration(ctx, string(a.provider), a.model, 1, time.Since(start))
	a.storeVector(ctx, text, vector)
	return cloneVector(vector), nil
}

// lookupVector checks the LRU first, then the Redis layer; Redis hits are
// promoted into the LRU.
func (a *Adapter) lookupVector(ctx context.Context, text string) ([]float32, bool) {
	a.cacheMu.Lock()
	cache := a.cache
	persistent := a.persistent
	a.cacheMu.Unlock()
	if cache == nil && persistent == nil {
		return nil, false
	}
	key := cacheKey(text)
	if cache != nil {
		a.cacheMu.Lock()
		vector, ok := cache.Get(key)
		a.cacheMu.Unlock()
		if ok {
			recordCacheHit(ctx, string(a.provider), "lru")
			return cloneVector(vector), true
		}
	}
	if persistent != nil {
		vector, ok, err := persistent.Get(ctx, key)
		if err != nil {
			logger.FromContext(ctx).Warn("embedding cache read failed", "provider", a.provider, "error", err)
		} else if ok {
			recordCacheHit(ctx, string(a.provider), "redis")
			if cache != nil {
				a.cacheMu.Lock()
				cache.Add(key, cloneVector(vector))
				a.cacheMu.Unlock()
			}
			return vector, true
		}
	}
	recordCacheMiss(ctx, string(a.provider))
	return nil, false
}

func (a *Adapter) storeVector(ctx context.Context, text string, vector []float32) {
	if len(vector) == 0 {
		return
	}
	a.cacheMu.Lock()
	cache := a.cache
	persistent := a.persistent
	if cache != nil {
		cache.Add(cacheKey(text), cloneVector(vector))
	}
	a.cacheMu.Unlock()
	if persistent != nil {
		if err := persistent.Set(ctx, cacheKey(text), vector); err != nil {
			logger.FromContext(ctx).Warn("embedding cache write failed", "provider", a.provider, "error", err)
		}
	}
}

func (a *Adapter) withContext(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("embedder %s/%s: %w", a.provider, a.model, err)
}
