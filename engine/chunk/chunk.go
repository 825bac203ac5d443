// Package chunk implements the rule-driven splitting engine: per-document-type
// segmentation strategies, token bound enforcement, overlap injection, and
// chunk assembly with positional metadata. A Splitter is immutable after
// construction and safe for concurrent use.
package chunk

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Metadata keys the engine reads from caller-supplied metadata.
const (
	MetaDocType = "doc_type"
	MetaDocID   = "doc_id"
)

// Metadata keys the assembler writes into every chunk.
const (
	MetaChunkIndex    = "chunk_index"
	MetaTotalChunks   = "total_chunks"
	MetaOverlapTokens = "overlap_tokens"
	MetaStrategy      = "chunking_strategy"
)

// Document represents raw extracted content prior to chunking.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// Chunk is the engine's output unit: a bounded span of text plus provenance
// metadata. Chunks are never mutated after assembly.
type Chunk struct {
	ID            string         `json:"id"`
	DocID         string         `json:"doc_id"`
	Text          string         `json:"text"`
	Meta          map[string]any `json:"meta"`
	ChunkIndex    int            `json:"chunk_index"`
	OverlapTokens int            `json:"overlap_tokens"`
	TokenCount    int            `json:"token_count"`
}

func newChunkID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func newDocID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// cloneMetadata shallow-copies caller metadata so enrichment on one chunk
// cannot leak into another.
func cloneMetadata(meta map[string]any) map[string]any {
	cloned := make(map[string]any, len(meta)+4)
	for k, v := range meta {
		cloned[k] = v
	}
	return cloned
}

func metadataString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	value, ok := meta[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
