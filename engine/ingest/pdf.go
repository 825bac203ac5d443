package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/chunkforge/chunkforge/engine/chunk"
	"github.com/chunkforge/chunkforge/pkg/logger"
)

// loadPDFFile extracts plain text from a PDF. Extraction quality depends on
// the document's internal text encoding; image-only pages yield nothing.
func loadPDFFile(ctx context.Context, src *sourceFile) ([]chunk.Document, error) {
	text, pages, err := extractPDFText(src.abs)
	if err != nil {
		return nil, fmt.Errorf("ingest: pdf %q: %w", src.rel, err)
	}
	text = strings.TrimSpace(normalizeNewlines(text))
	if text == "" {
		logger.FromContext(ctx).Warn("pdf contains no extractable text", "path", src.rel, "pages", pages)
		return nil, nil
	}
	meta := baseMetadata(src, docTypePDF)
	meta["pages"] = pages
	return []chunk.Document{{ID: src.rel, Text: text, Metadata: meta}}, nil
}

// extractPDFText recovers from parser panics because the pdf package panics
// on some malformed cross-reference tables instead of returning an error.
func extractPDFText(path string) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer file.Close()
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", 0, err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", 0, err
	}
	return buf.String(), reader.NumPage(), nil
}
