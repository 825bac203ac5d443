// Package embedder turns chunk text into vectors through langchaingo
// providers. Lookups go through an in-process LRU and an optional shared
// Redis cache before reaching the provider API.
package embedder

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider enumerates supported embedding backends.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

var (
	errMissingProvider  = errors.New("embedder: provider is required")
	errMissingModel     = errors.New("embedder: model is required")
	errInvalidBatchSize = errors.New("embedder: batch size must be greater than zero")
)

// Config selects and tunes one embedding provider.
type Config struct {
	Provider Provider
	Model    string
	// APIKey overrides the provider's environment credential.
	APIKey string
	// BaseURL points openai-compatible gateways or a local ollama daemon.
	BaseURL       string
	BatchSize     int
	StripNewLines bool
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("embedder: config is required")
	}
	if strings.TrimSpace(string(cfg.Provider)) == "" {
		return errMissingProvider
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return fmt.Errorf("%w (provider %q)", errMissingModel, cfg.Provider)
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("%w (provider %q)", errInvalidBatchSize, cfg.Provider)
	}
	return nil
}

func buildProviderEmbedder(cfg *Config, options ...embeddings.Option) (embeddings.Embedder, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return buildOpenAIEmbedder(cfg, options...)
	case ProviderOllama:
		return buildOllamaEmbedder(cfg, options...)
	default:
		return nil, fmt.Errorf("embedder: provider %q is not supported", cfg.Provider)
	}
}

func buildOpenAIEmbedder(cfg *Config, opts ...embeddings.Option) (embeddings.Embedder, error) {
	openaiOpts := []openai.Option{
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.APIKey != "" {
		openaiOpts = append(openaiOpts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		openaiOpts = append(openaiOpts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(openaiOpts...)
	if err != nil {
		return nil, fmt.Errorf("embedder: initialize openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("embedder: construct openai embedder: %w", err)
	}
	return embedder, nil
}

func buildOllamaEmbedder(cfg *Config, opts ...embeddings.Option) (embeddings.Embedder, error) {
	ollamaOpts := []ollama.Option{
		ollama.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		ollamaOpts = append(ollamaOpts, ollama.WithServerURL(cfg.BaseURL))
	}
	client, err := ollama.New(ollamaOpts...)
	if err != nil {
		return nil, fmt.Errorf("embedder: initialize ollama client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("embedder: construct ollama embedder: %w", err)
	}
	return embedder, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func cloneVector(src []float32) []float32 {
	if len(src) == 0 {
		return nil
	}
	dst := make([]float32, len(src))
	copy(dst, src)
	return dst
}
