package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/chunkforge/chunkforge/engine/chunk"
	"github.com/chunkforge/chunkforge/pkg/logger"
)

// Document types stamped by the loaders. The chunking rules key off these.
const (
	docTypeMarkdown = "markdown"
	docTypeText     = "text"
	docTypeCSV      = "csv"
	docTypeEmail    = "email"
	docTypePDF      = "pdf"
)

// Fields probed, in order, for the text of a JSONL record.
var jsonlTextFields = []string{"text", "content", "body"}

// loadDocuments reads every discovered file concurrently, preserving the
// discovery order in the returned slice. Files that yield no document (binary
// payloads, empty content) are counted in the second return value; files that
// fail to parse are returned in the third so the caller can report them
// without aborting the run.
func loadDocuments(ctx context.Context, files []sourceFile, opts *Options) ([]chunk.Document, int, []string, error) {
	log := logger.FromContext(ctx)
	results := make([][]chunk.Document, len(files))
	var mu sync.Mutex
	failed := make([]string, 0)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(opts.Concurrency)
	for i := range files {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			docs, err := loadFile(groupCtx, &files[i], opts.MaxFileSize)
			if err != nil {
				log.Error("failed to load file", "path", files[i].rel, "error", err)
				mu.Lock()
				failed = append(failed, files[i].rel)
				mu.Unlock()
				return nil
			}
			results[i] = docs
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, 0, failed, err
	}

	list := newDocumentList()
	skipped := 0
	for i, docs := range results {
		if len(docs) == 0 {
			if !contains(failed, files[i].rel) {
				log.Debug("file yielded no documents", "path", files[i].rel, "mime", files[i].mime)
				skipped++
			}
			continue
		}
		for _, doc := range docs {
			list.add(ctx, doc)
		}
	}
	return list.items, skipped, failed, nil
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}

// loadFile dispatches on the file extension, falling back to plain text for
// unknown extensions with a textual MIME type. Binary files return no
// documents and no error.
func loadFile(ctx context.Context, src *sourceFile, maxSize int64) ([]chunk.Document, error) {
	switch strings.ToLower(filepath.Ext(src.abs)) {
	case ".md", ".markdown":
		return loadTextFile(src, maxSize, docTypeMarkdown)
	case ".txt", ".text":
		return loadTextFile(src, maxSize, docTypeText)
	case ".csv":
		return loadTabularFile(src, maxSize, ',')
	case ".tsv":
		return loadTabularFile(src, maxSize, '\t')
	case ".eml":
		return loadEmailFile(src, maxSize)
	case ".pdf":
		return loadPDFFile(ctx, src)
	case ".jsonl", ".ndjson":
		return loadJSONLFile(src, maxSize)
	default:
		if strings.HasPrefix(src.mime, "text/") {
			return loadTextFile(src, maxSize, docTypeText)
		}
		return nil, nil
	}
}

func baseMetadata(src *sourceFile, docType string) map[string]any {
	meta := map[string]any{
		chunk.MetaDocType: docType,
		"source_path":     src.rel,
		"source_bytes":    src.size,
	}
	if src.mime != "" {
		meta["content_type"] = src.mime
	}
	return meta
}

func loadTextFile(src *sourceFile, maxSize int64, docType string) ([]chunk.Document, error) {
	data, err := readCapped(src.abs, maxSize)
	if err != nil {
		return nil, err
	}
	text, err := decodeText(data, src.mime)
	if err != nil {
		return nil, fmt.Errorf("ingest: file %q: %w", src.rel, err)
	}
	text = strings.TrimSpace(normalizeNewlines(text))
	if text == "" {
		return nil, nil
	}
	return []chunk.Document{{
		ID:       src.rel,
		Text:     text,
		Metadata: baseMetadata(src, docType),
	}}, nil
}

// loadTabularFile flattens CSV or TSV content into one line per record with
// tab-separated cells, header first. The row-oriented chunking strategy
// splits on those lines.
func loadTabularFile(src *sourceFile, maxSize int64, comma rune) ([]chunk.Document, error) {
	data, err := readCapped(src.abs, maxSize)
	if err != nil {
		return nil, err
	}
	text, err := decodeText(data, src.mime)
	if err != nil {
		return nil, fmt.Errorf("ingest: file %q: %w", src.rel, err)
	}
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ingest: parse %q: %w", src.rel, err)
	}
	lines := make([]string, 0, len(records))
	for _, record := range records {
		line := strings.TrimSpace(strings.Join(record, "\t"))
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, nil
	}
	meta := baseMetadata(src, docTypeCSV)
	if len(records) > 0 {
		meta["columns"] = len(records[0])
	}
	meta["rows"] = len(lines)
	return []chunk.Document{{
		ID:       src.rel,
		Text:     strings.Join(lines, "\n"),
		Metadata: meta,
	}}, nil
}

// loadEmailFile parses an RFC 5322 message. Routing headers land in metadata
// and the document text is the decoded body, preferring the text/plain part
// of multipart messages. Quoted-reply trimming happens later in the chunking
// strategy, not here.
func loadEmailFile(src *sourceFile, maxSize int64) ([]chunk.Document, error) {
	data, err := readCapped(src.abs, maxSize)
	if err != nil {
		return nil, err
	}
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ingest: parse email %q: %w", src.rel, err)
	}
	body, err := readEmailBody(msg)
	if err != nil {
		return nil, fmt.Errorf("ingest: email body %q: %w", src.rel, err)
	}
	body = strings.TrimSpace(normalizeNewlines(body))
	if body == "" {
		return nil, nil
	}
	meta := baseMetadata(src, docTypeEmail)
	for key, header := range map[string]string{
		"subject":    "Subject",
		"email_from": "From",
		"email_to":   "To",
		"email_date": "Date",
	} {
		if value := strings.TrimSpace(msg.Header.Get(header)); value != "" {
			meta[key] = value
		}
	}
	return []chunk.Document{{
		ID:       src.rel,
		Text:     body,
		Metadata: meta,
	}}, nil
}

func readEmailBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return decodeEmailPart(msg.Body, msg.Header.Get("Content-Transfer-Encoding"), contentType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return "", fmt.Errorf("multipart message has no boundary")
	}
	reader := multipart.NewReader(msg.Body, boundary)
	fallback := ""
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		partType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if !strings.HasPrefix(partType, "text/") {
			continue
		}
		text, err := decodeEmailPart(part, part.Header.Get("Content-Transfer-Encoding"), part.Header.Get("Content-Type"))
		if err != nil {
			return "", err
		}
		if partType == "text/plain" {
			return text, nil
		}
		if fallback == "" {
			fallback = text
		}
	}
	if fallback == "" {
		return "", fmt.Errorf("no text part found")
	}
	return fallback, nil
}

func decodeEmailPart(r io.Reader, transferEncoding, contentType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return decodeText(data, contentType)
}

// loadJSONLFile emits one document per line carrying a text field. Records
// may override the document type and contribute their own metadata object;
// lines without text are skipped.
func loadJSONLFile(src *sourceFile, maxSize int64) ([]chunk.Document, error) {
	data, err := readCapped(src.abs, maxSize)
	if err != nil {
		return nil, err
	}
	docs := make([]chunk.Document, 0, 16)
	for lineNo, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !gjson.Valid(line) {
			return nil, fmt.Errorf("ingest: file %q line %d: invalid json", src.rel, lineNo+1)
		}
		text := ""
		for _, field := range jsonlTextFields {
			if value := gjson.Get(line, field); value.Exists() {
				text = strings.TrimSpace(value.String())
				break
			}
		}
		if text == "" {
			continue
		}
		docType := docTypeText
		if value := gjson.Get(line, chunk.MetaDocType); value.Exists() {
			docType = value.String()
		}
		meta := baseMetadata(src, docType)
		meta["source_line"] = lineNo + 1
		if extra := gjson.Get(line, "metadata"); extra.IsObject() {
			for key, value := range extra.Map() {
				if _, reserved := meta[key]; !reserved {
					meta[key] = value.Value()
				}
			}
		}
		id := fmt.Sprintf("%s#%d", src.rel, lineNo+1)
		if value := gjson.Get(line, "id"); value.Exists() && strings.TrimSpace(value.String()) != "" {
			id = fmt.Sprintf("%s#%s", src.rel, strings.TrimSpace(value.String()))
		}
		docs = append(docs, chunk.Document{ID: id, Text: text, Metadata: meta})
	}
	return docs, nil
}
