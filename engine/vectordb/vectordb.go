// Package vectordb persists embedded chunks and serves similarity queries
// over them. Every backend implements the same Store contract so the
// ingestion pipeline and the search command stay provider-agnostic.
package vectordb

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Provider enumerates supported vector store backends.
type Provider string

const (
	ProviderMemory     Provider = "memory"
	ProviderFilesystem Provider = "filesystem"
	ProviderPGVector   Provider = "pgvector"
	ProviderQdrant     Provider = "qdrant"
	ProviderRedis      Provider = "redis"
)

const defaultTopK = 5

// Record is an embedded chunk persisted to the store.
type Record struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  map[string]any
}

// SearchOptions controls similarity search execution.
type SearchOptions struct {
	TopK     int
	MinScore float64
	Filters  map[string]string
}

// Match is one similarity search result.
type Match struct {
	ID       string
	Score    float64
	Text     string
	Metadata map[string]any
}

// Filter selects records for deletion by id or by exact metadata values.
type Filter struct {
	IDs      []string
	Metadata map[string]string
}

// Store is the contract every backend satisfies.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error)
	Delete(ctx context.Context, filter Filter) error
	Close(ctx context.Context) error
}

// Config carries normalized connection details for one backend.
type Config struct {
	Provider Provider
	// Path locates the filesystem store's JSON snapshot.
	Path string
	// DSN is the postgres connection string or redis URL.
	DSN string
	// URL is the qdrant REST endpoint.
	URL        string
	Table      string
	Collection string
	APIKey     string
	Dimension  int
	MaxTopK    int
	Timeout    time.Duration
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// metadataMatches reports whether every filter key equals the record's
// stringified metadata value.
func metadataMatches(meta map[string]any, filters map[string]string) bool {
	if len(filters) == 0 {
		return true
	}
	for key, want := range filters {
		value, ok := meta[key]
		if !ok {
			return false
		}
		if stringifyMetaValue(value) != want {
			return false
		}
	}
	return true
}

// stringifyMetaValue renders metadata values for filter comparison. JSON
// round trips store numbers as float64, so fmt keeps "3" comparable.
func stringifyMetaValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
