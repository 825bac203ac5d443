package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/sethvargo/go-retry"

	"github.com/chunkforge/chunkforge/engine/chunk"
	"github.com/chunkforge/chunkforge/engine/vectordb"
	"github.com/chunkforge/chunkforge/pkg/logger"
)

// Metadata keys stamped onto every persisted record. The replace strategy
// deletes by source_root, so the stamp and the delete filter must agree.
const (
	metaSourceRoot = "source_root"
	metaIngestRun  = "ingest_run"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 200 * time.Millisecond
	defaultRetryCap      = 2 * time.Second
)

// Embedder is the slice of the embedding adapter the pipeline depends on.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline wires discovery, chunking, embedding, and persistence into one
// run. A Pipeline is safe for sequential reuse; concurrent Run calls on the
// same instance would interleave replace deletions.
type Pipeline struct {
	splitter   *chunk.Splitter
	embedder   Embedder
	store      vectordb.Store
	opts       Options
	sourceRoot string
	retry      retrySettings
}

type retrySettings struct {
	attempts uint64
	backoff  time.Duration
	cap      time.Duration
}

// PipelineOption adjusts construction-time settings.
type PipelineOption func(*Pipeline)

// WithRetry overrides the embed and upsert retry policy. Non-positive
// durations keep the defaults.
func WithRetry(attempts uint64, backoff, cap time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.retry.attempts = attempts
		if backoff > 0 {
			p.retry.backoff = backoff
		}
		if cap > 0 {
			p.retry.cap = cap
		}
	}
}

// NewPipeline validates the collaborators and normalizes the run options.
func NewPipeline(splitter *chunk.Splitter, embedder Embedder, store vectordb.Store, opts Options, pipelineOpts ...PipelineOption) (*Pipeline, error) {
	if splitter == nil {
		return nil, errors.New("ingest: splitter is required")
	}
	if embedder == nil {
		return nil, errors.New("ingest: embedder is required")
	}
	if store == nil {
		return nil, errors.New("ingest: vector store is required")
	}
	normalized := opts.normalized()
	if err := normalized.validate(); err != nil {
		return nil, err
	}
	sourceRoot, err := filepath.Abs(filepath.Clean(normalized.Root))
	if err != nil {
		return nil, fmt.Errorf("ingest: resolve root %q: %w", normalized.Root, err)
	}
	p := &Pipeline{
		splitter:   splitter,
		embedder:   embedder,
		store:      store,
		opts:       normalized,
		sourceRoot: sourceRoot,
		retry: retrySettings{
			attempts: defaultRetryAttempts,
			backoff:  defaultRetryBackoff,
			cap:      defaultRetryCap,
		},
	}
	for _, opt := range pipelineOpts {
		opt(p)
	}
	return p, nil
}

// Result summarizes one ingestion run.
type Result struct {
	// RunID tags every record persisted by this run.
	RunID string
	// Documents is the count of documents loaded from source files.
	Documents int
	// Chunks is the count of chunks the splitter produced.
	Chunks int
	// Persisted is the count of records written to the vector store.
	Persisted int
	// SkippedFiles counts oversized, binary, and empty files.
	SkippedFiles int
	// FailedDocs lists file paths that failed to load and document ids that
	// failed to split. The run continues past them.
	FailedDocs []string
}

// Run executes discovery, loading, chunking, and persistence. Individual
// document failures are reported in the Result; infrastructure failures
// abort the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	runID := ksuid.New().String()
	log := logger.FromContext(ctx).With("run_id", runID, "root", p.sourceRoot)

	files, skippedBySize, err := discoverFiles(ctx, &p.opts)
	if err != nil {
		recordPipelineError(ctx, "discover")
		return nil, err
	}
	result := &Result{RunID: runID, SkippedFiles: skippedBySize}
	if len(files) == 0 {
		log.Warn("no files matched the include patterns")
		return result, nil
	}

	docs, skippedEmpty, failedFiles, err := loadDocuments(ctx, files, &p.opts)
	if err != nil {
		recordPipelineError(ctx, "load")
		return nil, err
	}
	result.SkippedFiles += skippedEmpty
	result.FailedDocs = append(result.FailedDocs, failedFiles...)
	result.Documents = len(docs)
	if len(docs) == 0 {
		log.Warn("no documents loaded", "files", len(files))
		recordRun(ctx, p.opts.Strategy, 0, 0, time.Since(start))
		return result, nil
	}

	batch := p.splitter.SplitBatch(ctx, docs)
	result.Chunks = len(batch.Chunks)
	result.FailedDocs = append(result.FailedDocs, batch.Failed...)

	if p.opts.Strategy == StrategyReplace {
		if err := p.clearPreviousRecords(ctx); err != nil {
			recordPipelineError(ctx, "replace")
			return nil, err
		}
	}

	persisted, err := p.persistChunks(ctx, runID, batch.Chunks)
	result.Persisted = persisted
	if err != nil {
		recordPipelineError(ctx, "persist")
		return nil, err
	}

	recordRun(ctx, p.opts.Strategy, result.Documents, result.Chunks, time.Since(start))
	log.Info("ingestion completed",
		"documents", result.Documents,
		"chunks", result.Chunks,
		"persisted", result.Persisted,
		"skipped_files", result.SkippedFiles,
		"failed", len(result.FailedDocs),
		"duration", time.Since(start))
	return result, nil
}

// clearPreviousRecords drops everything earlier runs persisted from the same
// root.
func (p *Pipeline) clearPreviousRecords(ctx context.Context) error {
	logger.FromContext(ctx).Info("replace strategy removes records from previous runs",
		"source_root", p.sourceRoot)
	filter := vectordb.Filter{Metadata: map[string]string{metaSourceRoot: p.sourceRoot}}
	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		if deleteErr := p.store.Delete(ctx, filter); deleteErr != nil {
			return retry.RetryableError(deleteErr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ingest: clear previous records: %w", err)
	}
	return nil
}

func (p *Pipeline) persistChunks(ctx context.Context, runID string, chunks []chunk.Chunk) (int, error) {
	persisted := 0
	for offset := 0; offset < len(chunks); offset += p.opts.BatchSize {
		end := min(offset+p.opts.BatchSize, len(chunks))
		group := chunks[offset:end]
		recordBatch(ctx, len(group))

		texts := make([]string, len(group))
		for i := range group {
			texts[i] = group[i].Text
		}
		vectors, err := p.embedBatch(ctx, texts)
		if err != nil {
			return persisted, err
		}
		if len(vectors) != len(group) {
			return persisted, fmt.Errorf("ingest: embedder returned %d vectors for %d chunks", len(vectors), len(group))
		}

		records := make([]vectordb.Record, len(group))
		for i := range group {
			records[i] = vectordb.Record{
				ID:        recordID(&group[i]),
				Text:      group[i].Text,
				Embedding: vectors[i],
				Metadata:  p.recordMetadata(&group[i], runID),
			}
		}
		if err := p.upsertBatch(ctx, records); err != nil {
			return persisted, err
		}
		persisted += len(records)
	}
	return persisted, nil
}

// recordID derives the store id from the document's content hash so
// re-ingesting an unchanged file overwrites its own records instead of
// accumulating copies under fresh chunk ids.
func recordID(c *chunk.Chunk) string {
	if digest, ok := c.Meta["content_hash"].(string); ok && digest != "" {
		return fmt.Sprintf("%s:%04d", digest, c.ChunkIndex)
	}
	return c.ID
}

func (p *Pipeline) recordMetadata(c *chunk.Chunk, runID string) map[string]any {
	meta := make(map[string]any, len(c.Meta)+2)
	for k, v := range c.Meta {
		meta[k] = v
	}
	meta[metaSourceRoot] = p.sourceRoot
	meta[metaIngestRun] = runID
	return meta
}

func (p *Pipeline) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		out, embedErr := p.embedder.EmbedDocuments(ctx, texts)
		if embedErr != nil {
			return retry.RetryableError(embedErr)
		}
		vectors = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: embed batch: %w", err)
	}
	return vectors, nil
}

func (p *Pipeline) upsertBatch(ctx context.Context, records []vectordb.Record) error {
	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		if upsertErr := p.store.Upsert(ctx, records); upsertErr != nil {
			return retry.RetryableError(upsertErr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ingest: upsert batch: %w", err)
	}
	return nil
}

// backoff returns a fresh policy per call; exponential backoff carries state
// and must not be shared across Do invocations.
func (p *Pipeline) backoff() retry.Backoff {
	b := retry.NewExponential(p.retry.backoff)
	if p.retry.cap > 0 {
		b = retry.WithCappedDuration(p.retry.cap, b)
	}
	return retry.WithMaxRetries(p.retry.attempts, b)
}
