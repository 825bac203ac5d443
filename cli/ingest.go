package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chunkforge/chunkforge/engine/ingest"
	"github.com/chunkforge/chunkforge/engine/vectordb"
	"github.com/chunkforge/chunkforge/pkg/config"
	"github.com/chunkforge/chunkforge/pkg/logger"
)

// IngestCmd runs the full pipeline: discover sources, chunk, embed, persist.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Chunk, embed, and index every document under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, args[0])
		},
	}
	cmd.Flags().String("rules", "", "rule table overriding the configured one")
	cmd.Flags().String("strategy", string(ingest.StrategyUpsert), "persistence strategy (upsert, replace)")
	cmd.Flags().StringSlice("include", nil, "glob patterns overriding the configured includes")
	cmd.Flags().StringSlice("exclude", nil, "glob patterns excluding matched paths")
	return cmd
}

func runIngest(cmd *cobra.Command, root string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	log := logger.FromContext(ctx)

	rulesPath, _ := cmd.Flags().GetString("rules")
	strategy, _ := cmd.Flags().GetString("strategy")
	include, _ := cmd.Flags().GetStringSlice("include")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	if len(include) == 0 {
		include = cfg.Ingest.Include
	}
	if len(exclude) == 0 {
		exclude = cfg.Ingest.Exclude
	}

	splitter, cleanup, err := buildSplitter(cfg, rulesPath)
	if err != nil {
		return err
	}
	defer cleanup()

	adapter, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := adapter.Close(); closeErr != nil {
			log.Warn("failed to close embedder", "error", closeErr)
		}
	}()

	store, release, err := vectordb.AcquireShared(ctx, vectordbConfig(&cfg.VectorDB))
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := release(ctx); releaseErr != nil {
			log.Warn("failed to release vector store", "error", releaseErr)
		}
	}()

	pipeline, err := ingest.NewPipeline(splitter, adapter, store, ingest.Options{
		Root:        root,
		Include:     include,
		Exclude:     exclude,
		MaxFileSize: cfg.Ingest.MaxFileSize,
		MaxFiles:    cfg.Ingest.MaxFiles,
		Concurrency: cfg.Ingest.Concurrency,
		BatchSize:   cfg.Ingest.BatchSize,
		Strategy:    ingest.Strategy(strategy),
	})
	if err != nil {
		return err
	}

	result, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %d documents, %d chunks, %d persisted, %d files skipped\n",
		result.RunID, result.Documents, result.Chunks, result.Persisted, result.SkippedFiles)
	for _, failed := range result.FailedDocs {
		fmt.Fprintf(out, "failed: %s\n", failed)
	}
	return nil
}
