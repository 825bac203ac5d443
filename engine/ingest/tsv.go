package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chunkforge/chunkforge/engine/chunk"
)

var tsvColumns = []string{"chunk_id", "doc_id", "chunk_index", "token_count", "overlap_tokens", "text", "meta_json"}

// Escaping keeps every chunk on a single physical row. Backslash doubling
// runs first so the unescaper can never confuse a literal backslash with an
// escape introducer.
var (
	tsvEscaper   = strings.NewReplacer("\\", "\\\\", "\t", "\\t", "\n", "\\n", "\r", "\\r")
	tsvUnescaper = strings.NewReplacer("\\\\", "\\", "\\t", "\t", "\\n", "\n", "\\r", "\r")
)

// WriteTSV streams chunks as one tab-separated row each, header first.
// Metadata is serialized as a JSON column so the file round-trips through
// ReadTSV without loss.
func WriteTSV(w io.Writer, chunks []chunk.Chunk) error {
	buf := bufio.NewWriter(w)
	if _, err := buf.WriteString(strings.Join(tsvColumns, "\t") + "\n"); err != nil {
		return fmt.Errorf("ingest: write tsv header: %w", err)
	}
	for i := range chunks {
		c := &chunks[i]
		meta, err := json.Marshal(c.Meta)
		if err != nil {
			return fmt.Errorf("ingest: encode metadata for chunk %s: %w", c.ID, err)
		}
		row := []string{
			tsvEscaper.Replace(c.ID),
			tsvEscaper.Replace(c.DocID),
			strconv.Itoa(c.ChunkIndex),
			strconv.Itoa(c.TokenCount),
			strconv.Itoa(c.OverlapTokens),
			tsvEscaper.Replace(c.Text),
			tsvEscaper.Replace(string(meta)),
		}
		if _, err := buf.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
			return fmt.Errorf("ingest: write tsv row: %w", err)
		}
	}
	return buf.Flush()
}

// ReadTSV parses a file produced by WriteTSV.
func ReadTSV(r io.Reader) ([]chunk.Chunk, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	chunks := make([]chunk.Chunk, 0, 16)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 {
			if line != strings.Join(tsvColumns, "\t") {
				return nil, fmt.Errorf("ingest: tsv header mismatch, want %q", strings.Join(tsvColumns, "\t"))
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != len(tsvColumns) {
			return nil, fmt.Errorf("ingest: tsv line %d: want %d fields, got %d", lineNo, len(tsvColumns), len(fields))
		}
		parsed, err := parseTSVRow(fields)
		if err != nil {
			return nil, fmt.Errorf("ingest: tsv line %d: %w", lineNo, err)
		}
		chunks = append(chunks, parsed)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ingest: read tsv: %w", err)
	}
	return chunks, nil
}

func parseTSVRow(fields []string) (chunk.Chunk, error) {
	chunkIndex, err := strconv.Atoi(fields[2])
	if err != nil {
		return chunk.Chunk{}, fmt.Errorf("parse chunk_index: %w", err)
	}
	tokenCount, err := strconv.Atoi(fields[3])
	if err != nil {
		return chunk.Chunk{}, fmt.Errorf("parse token_count: %w", err)
	}
	overlapTokens, err := strconv.Atoi(fields[4])
	if err != nil {
		return chunk.Chunk{}, fmt.Errorf("parse overlap_tokens: %w", err)
	}
	var meta map[string]any
	if raw := tsvUnescaper.Replace(fields[6]); raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return chunk.Chunk{}, fmt.Errorf("parse meta_json: %w", err)
		}
	}
	return chunk.Chunk{
		ID:            tsvUnescaper.Replace(fields[0]),
		DocID:         tsvUnescaper.Replace(fields[1]),
		Text:          tsvUnescaper.Replace(fields[5]),
		Meta:          meta,
		ChunkIndex:    chunkIndex,
		TokenCount:    tokenCount,
		OverlapTokens: overlapTokens,
	}, nil
}
