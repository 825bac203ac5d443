package cli

import (
	"context"
	"fmt"

	"github.com/chunkforge/chunkforge/engine/chunk"
	"github.com/chunkforge/chunkforge/engine/embedder"
	"github.com/chunkforge/chunkforge/engine/tokens"
	"github.com/chunkforge/chunkforge/engine/vectordb"
	"github.com/chunkforge/chunkforge/pkg/config"
)

// buildSplitter assembles the chunking engine from configuration. rulesPath
// overrides the configured rule table when non-empty; an empty effective path
// means every document type resolves to the built-in default rule.
func buildSplitter(cfg *config.Config, rulesPath string) (*chunk.Splitter, func(), error) {
	path := rulesPath
	if path == "" {
		path = cfg.Rules.Path
	}
	var (
		rules *chunk.RuleSet
		err   error
	)
	if path != "" {
		rules, err = chunk.LoadRuleSet(path)
		if err != nil {
			return nil, nil, err
		}
	}
	counter, cleanup, err := buildCounter(&cfg.Tokens)
	if err != nil {
		return nil, nil, err
	}
	splitter, err := chunk.NewSplitter(rules, chunk.WithCounter(counter))
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return splitter, cleanup, nil
}

// buildCounter resolves the configured token counter. Tiktoken counts are
// wrapped in a cache because BPE encoding is the only expensive counter.
func buildCounter(cfg *config.TokensConfig) (tokens.Counter, func(), error) {
	noop := func() {}
	switch cfg.Counter {
	case "", "whitespace":
		return tokens.Whitespace{}, noop, nil
	case "heuristic":
		return tokens.Heuristic{}, noop, nil
	case "tiktoken":
		counter, err := tokens.NewTiktoken(cfg.Model)
		if err != nil {
			return nil, nil, err
		}
		if cfg.CacheSize <= 0 {
			return counter, noop, nil
		}
		cached, err := tokens.NewCached(counter, int64(cfg.CacheSize))
		if err != nil {
			return nil, nil, err
		}
		return cached, cached.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown token counter %q", cfg.Counter)
	}
}

func embedderConfig(cfg *config.EmbedderConfig) *embedder.Config {
	return &embedder.Config{
		Provider:  embedder.Provider(cfg.Provider),
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		BatchSize: cfg.BatchSize,
	}
}

func vectordbConfig(cfg *config.VectorDBConfig) *vectordb.Config {
	out := &vectordb.Config{
		Provider:   vectordb.Provider(cfg.Provider),
		Path:       cfg.Path,
		URL:        cfg.URL,
		Table:      cfg.Table,
		Collection: cfg.Collection,
		Dimension:  cfg.Dimensions,
	}
	switch out.Provider {
	case vectordb.ProviderRedis:
		out.DSN = cfg.RedisURL
	default:
		out.DSN = cfg.ConnString
	}
	return out
}

// buildEmbedder constructs the embedding adapter with its configured caches.
func buildEmbedder(ctx context.Context, cfg *config.Config) (*embedder.Adapter, error) {
	if cfg.Embedder.Provider == "" {
		return nil, fmt.Errorf("embedder provider is not configured (set embedder.provider or CHUNKFORGE_EMBEDDER_PROVIDER)")
	}
	adapter, err := embedder.New(embedderConfig(&cfg.Embedder))
	if err != nil {
		return nil, err
	}
	if cfg.Embedder.CacheSize > 0 {
		if err := adapter.EnableCache(cfg.Embedder.CacheSize); err != nil {
			return nil, err
		}
	}
	if cfg.Embedder.RedisURL != "" {
		if err := adapter.EnableRedisCache(ctx, cfg.Embedder.RedisURL, cfg.Embedder.CacheTTL); err != nil {
			return nil, err
		}
	}
	return adapter, nil
}
