package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chunkforge/chunkforge/engine/chunk"
	"github.com/chunkforge/chunkforge/engine/ingest"
	"github.com/chunkforge/chunkforge/pkg/config"
)

// extensionDocTypes maps common file extensions to the rule table's document
// type labels when --doc-type is not given.
var extensionDocTypes = map[string]string{
	".txt":   "txt",
	".md":    "txt",
	".csv":   "csv",
	".tsv":   "csv",
	".eml":   "email",
	".pdf":   "pdf",
	".jsonl": "jsonl",
}

// SplitCmd chunks one file and prints the result.
func SplitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split <file>",
		Short: "Split one document into chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(cmd, args[0])
		},
	}
	cmd.Flags().String("doc-type", "", "document type driving rule resolution (defaults from the file extension)")
	cmd.Flags().String("doc-id", "", "document id recorded on every chunk")
	cmd.Flags().String("rules", "", "rule table overriding the configured one")
	cmd.Flags().String("format", "text", "output format (text, json, tsv)")
	return cmd
}

func runSplit(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)

	docType, _ := cmd.Flags().GetString("doc-type")
	docID, _ := cmd.Flags().GetString("doc-id")
	rulesPath, _ := cmd.Flags().GetString("rules")
	format, _ := cmd.Flags().GetString("format")

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if docType == "" {
		docType = extensionDocTypes[strings.ToLower(filepath.Ext(path))]
	}

	splitter, cleanup, err := buildSplitter(cfg, rulesPath)
	if err != nil {
		return err
	}
	defer cleanup()

	meta := map[string]any{
		"source":      path,
		"ingested_at": time.Now().UTC().Format(time.RFC3339),
	}
	if docType != "" {
		meta["doc_type"] = docType
	}
	if docID != "" {
		meta["doc_id"] = docID
	}

	chunks, err := splitter.Split(ctx, string(data), meta)
	if err != nil {
		return err
	}
	return printChunks(cmd, chunks, format)
}

func printChunks(cmd *cobra.Command, chunks []chunk.Chunk, format string) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(chunks)
	case "tsv":
		return ingest.WriteTSV(out, chunks)
	case "text":
		for i := range chunks {
			c := &chunks[i]
			fmt.Fprintf(out, "--- chunk %d/%d (tokens=%d overlap=%d id=%s)\n%s\n",
				c.ChunkIndex+1, len(chunks), c.TokenCount, c.OverlapTokens, c.ID, c.Text)
		}
		fmt.Fprintf(out, "%d chunks\n", len(chunks))
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text, json, or tsv)", format)
	}
}
