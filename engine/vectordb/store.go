package vectordb

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	errMissingProvider  = errors.New("vectordb: provider is required")
	errMissingDSN       = errors.New("vectordb: connection dsn is required")
	errMissingURL       = errors.New("vectordb: endpoint url is required")
	errMissingPath      = errors.New("vectordb: snapshot path is required")
	errInvalidDimension = errors.New("vectordb: dimension must be greater than zero")
)

// New instantiates a vector store for the configured provider. Every store
// is wrapped with shared instrumentation.
func New(ctx context.Context, cfg *Config) (Store, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	store, err := instantiateStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newInstrumentedStore(store, cfg.Provider), nil
}

func instantiateStore(ctx context.Context, cfg *Config) (Store, error) {
	switch cfg.Provider {
	case ProviderMemory:
		return newMemoryStore(cfg), nil
	case ProviderFilesystem:
		return newFileStore(cfg)
	case ProviderPGVector:
		return newPGStore(ctx, cfg)
	case ProviderQdrant:
		return newQdrantStore(ctx, cfg)
	case ProviderRedis:
		return newRedisStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("vectordb: provider %q is not supported", cfg.Provider)
	}
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("vectordb: config is required")
	}
	if strings.TrimSpace(string(cfg.Provider)) == "" {
		return errMissingProvider
	}
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.Path = strings.TrimSpace(cfg.Path)
	switch cfg.Provider {
	case ProviderPGVector, ProviderRedis:
		if cfg.DSN == "" {
			return fmt.Errorf("%w (provider %q)", errMissingDSN, cfg.Provider)
		}
	case ProviderQdrant:
		if cfg.URL == "" {
			return fmt.Errorf("%w (provider %q)", errMissingURL, cfg.Provider)
		}
	case ProviderFilesystem:
		if cfg.Path == "" {
			return fmt.Errorf("%w (provider %q)", errMissingPath, cfg.Provider)
		}
	}
	if cfg.Dimension <= 0 {
		return errInvalidDimension
	}
	if cfg.MaxTopK < 0 {
		return errors.New("vectordb: max_top_k must be non-negative")
	}
	return nil
}
