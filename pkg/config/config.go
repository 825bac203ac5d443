// Package config defines the application configuration and its loader.
// Configuration is constructed once at process start and handed to the
// components that need it; nothing reloads or watches files at runtime.
package config

import "time"

// Config is the complete application configuration. Precedence during Load
// is defaults, then the YAML file, then CHUNKFORGE_* environment variables.
type Config struct {
	Rules    RulesConfig    `koanf:"rules"`
	Tokens   TokensConfig   `koanf:"tokens"   validate:"required"`
	Ingest   IngestConfig   `koanf:"ingest"   validate:"required"`
	Embedder EmbedderConfig `koanf:"embedder"`
	VectorDB VectorDBConfig `koanf:"vectordb" validate:"required"`
	Server   ServerConfig   `koanf:"server"   validate:"required"`
	Log      LogConfig      `koanf:"log"      validate:"required"`
}

// RulesConfig locates the chunking rule table. An empty path means the
// built-in default rule applies to every document type.
type RulesConfig struct {
	Path string `koanf:"path" env:"RULES_PATH"`
}

// TokensConfig selects the token counter shared by every bound and overlap
// computation.
type TokensConfig struct {
	Counter   string `koanf:"counter"    validate:"oneof=whitespace heuristic tiktoken" env:"TOKENS_COUNTER"`
	Model     string `koanf:"model"      env:"TOKENS_MODEL"`
	CacheSize int    `koanf:"cache_size" validate:"min=0"                               env:"TOKENS_CACHE_SIZE"`
}

// IngestConfig governs source discovery and the ingestion pipeline.
type IngestConfig struct {
	Include     []string `koanf:"include"       env:"INGEST_INCLUDE"`
	Exclude     []string `koanf:"exclude"       env:"INGEST_EXCLUDE"`
	MaxFileSize int64    `koanf:"max_file_size" validate:"min=1"     env:"INGEST_MAX_FILE_SIZE"`
	MaxFiles    int      `koanf:"max_files"     validate:"min=1"     env:"INGEST_MAX_FILES"`
	Concurrency int      `koanf:"concurrency"   validate:"min=1"     env:"INGEST_CONCURRENCY"`
	BatchSize   int      `koanf:"batch_size"    validate:"min=1"     env:"INGEST_BATCH_SIZE"`
}

// EmbedderConfig configures the embedding provider and its caches. An empty
// provider disables embedding; ingest then stops after chunking.
type EmbedderConfig struct {
	Provider  string        `koanf:"provider"   validate:"omitempty,oneof=openai ollama" env:"EMBEDDER_PROVIDER"`
	Model     string        `koanf:"model"      env:"EMBEDDER_MODEL"`
	APIKey    string        `koanf:"api_key"    env:"EMBEDDER_API_KEY"`
	BaseURL   string        `koanf:"base_url"   env:"EMBEDDER_BASE_URL"`
	CacheSize int           `koanf:"cache_size" validate:"min=0"                         env:"EMBEDDER_CACHE_SIZE"`
	RedisURL  string        `koanf:"redis_url"  env:"EMBEDDER_REDIS_URL"`
	CacheTTL  time.Duration `koanf:"cache_ttl"  env:"EMBEDDER_CACHE_TTL"`
	BatchSize int           `koanf:"batch_size" validate:"min=1"                         env:"EMBEDDER_BATCH_SIZE"`
}

// VectorDBConfig selects and configures the vector store backend.
type VectorDBConfig struct {
	Provider   string `koanf:"provider"    validate:"oneof=memory filesystem pgvector qdrant redis" env:"VECTORDB_PROVIDER"`
	Path       string `koanf:"path"        env:"VECTORDB_PATH"`
	ConnString string `koanf:"conn_string" env:"VECTORDB_CONN_STRING"`
	Table      string `koanf:"table"       env:"VECTORDB_TABLE"`
	URL        string `koanf:"url"         env:"VECTORDB_URL"`
	Collection string `koanf:"collection"  env:"VECTORDB_COLLECTION"`
	RedisURL   string `koanf:"redis_url"   env:"VECTORDB_REDIS_URL"`
	Dimensions int    `koanf:"dimensions"  validate:"min=0"                                         env:"VECTORDB_DIMENSIONS"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host        string        `koanf:"host"         validate:"required"        env:"SERVER_HOST"`
	Port        int           `koanf:"port"         validate:"min=1,max=65535" env:"SERVER_PORT"`
	Timeout     time.Duration `koanf:"timeout"      env:"SERVER_TIMEOUT"`
	CORSEnabled bool          `koanf:"cors_enabled" env:"SERVER_CORS_ENABLED"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level  string `koanf:"level"  validate:"oneof=debug info warn error disabled" env:"LOG_LEVEL"`
	JSON   bool   `koanf:"json"   env:"LOG_JSON"`
	Source bool   `koanf:"source" env:"LOG_SOURCE"`
}

// Default returns the built-in configuration applied before any file or
// environment overrides.
func Default() *Config {
	return &Config{
		Rules: RulesConfig{},
		Tokens: TokensConfig{
			Counter:   "whitespace",
			Model:     "gpt-4o-mini",
			CacheSize: 4096,
		},
		Ingest: IngestConfig{
			Include:     []string{"**/*"},
			MaxFileSize: 10 << 20,
			MaxFiles:    10000,
			Concurrency: 4,
			BatchSize:   64,
		},
		Embedder: EmbedderConfig{
			Model:     "text-embedding-3-small",
			CacheSize: 2048,
			CacheTTL:  24 * time.Hour,
			BatchSize: 32,
		},
		VectorDB: VectorDBConfig{
			Provider:   "memory",
			Table:      "chunkforge_chunks",
			Collection: "chunkforge",
			Dimensions: 1536,
		},
		Server: ServerConfig{
			Host:    "127.0.0.1",
			Port:    8080,
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
