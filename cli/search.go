package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chunkforge/chunkforge/engine/vectordb"
	"github.com/chunkforge/chunkforge/pkg/config"
	"github.com/chunkforge/chunkforge/pkg/logger"
)

// SearchCmd embeds a query and prints the closest chunks in the store.
func SearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed chunks by semantic similarity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0])
		},
	}
	cmd.Flags().Int("top-k", 5, "number of matches to return")
	cmd.Flags().Float64("min-score", 0, "drop matches scoring below this similarity")
	return cmd
}

func runSearch(cmd *cobra.Command, query string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	log := logger.FromContext(ctx)

	topK, _ := cmd.Flags().GetInt("top-k")
	minScore, _ := cmd.Flags().GetFloat64("min-score")

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

	vector, err := adapter.EmbedQuery(ctx, query)
	if err != nil {
		return err
	}
	matches, err := store.Search(ctx, vector, vectordb.SearchOptions{TopK: topK, MinScore: minScore})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(matches) == 0 {
		fmt.Fprintln(out, "no matches")
		return nil
	}
	for i, match := range matches {
		fmt.Fprintf(out, "%2d. score=%.4f id=%s\n", i+1, match.Score, match.ID)
		if source, ok := match.Metadata["source"].(string); ok {
			fmt.Fprintf(out, "    source: %s\n", source)
		}
		fmt.Fprintf(out, "    %s\n", match.Text)
	}
	return nil
}
