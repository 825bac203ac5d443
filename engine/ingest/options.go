package ingest

import (
	"fmt"
	"strings"
)

// Strategy controls how a run writes into the vector store.
type Strategy string

const (
	// StrategyUpsert overwrites records sharing an id and leaves the rest.
	StrategyUpsert Strategy = "upsert"
	// StrategyReplace first deletes every record previously ingested from
	// the same root, then writes the new set.
	StrategyReplace Strategy = "replace"
)

const (
	defaultMaxFileSize = int64(10 << 20)
	defaultMaxFiles    = 10000
	defaultConcurrency = 4
	defaultBatchSize   = 32
)

var defaultInclude = []string{"**/*"}

// Options configure discovery, loading, and persistence for one run.
type Options struct {
	// Root is the directory scanned for source files.
	Root string
	// Include holds doublestar glob patterns relative to Root.
	Include []string
	// Exclude drops matched paths after inclusion.
	Exclude []string
	// MaxFileSize skips files larger than this many bytes.
	MaxFileSize int64
	// MaxFiles caps how many files a single run will load.
	MaxFiles int
	// Concurrency bounds parallel file loading.
	Concurrency int
	// BatchSize is the number of chunks embedded and upserted per call.
	BatchSize int
	// Strategy selects upsert or replace semantics.
	Strategy Strategy
}

func (o *Options) normalized() Options {
	out := *o
	out.Root = strings.TrimSpace(out.Root)
	if len(out.Include) == 0 {
		out.Include = defaultInclude
	}
	if out.MaxFileSize <= 0 {
		out.MaxFileSize = defaultMaxFileSize
	}
	if out.MaxFiles <= 0 {
		out.MaxFiles = defaultMaxFiles
	}
	if out.Concurrency <= 0 {
		out.Concurrency = defaultConcurrency
	}
	if out.BatchSize <= 0 {
		out.BatchSize = defaultBatchSize
	}
	out.Strategy = Strategy(strings.ToLower(strings.TrimSpace(string(out.Strategy))))
	if out.Strategy == "" {
		out.Strategy = StrategyUpsert
	}
	return out
}

func (o *Options) validate() error {
	if o.Root == "" {
		return fmt.Errorf("ingest: root directory is required")
	}
	switch o.Strategy {
	case StrategyUpsert, StrategyReplace:
	default:
		return fmt.Errorf("ingest: unknown strategy %q (want %q or %q)", o.Strategy, StrategyUpsert, StrategyReplace)
	}
	return nil
}
