// Package ingest walks a directory tree, turns supported files into
// documents, runs them through the chunking engine, and persists embedded
// chunks into a vector store. Discovery is glob-driven and refuses to follow
// paths that resolve outside the configured root.
package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/chunkforge/chunkforge/engine/chunk"
	"github.com/chunkforge/chunkforge/pkg/logger"
)

// sourceFile is one discovered candidate prior to loading.
type sourceFile struct {
	// abs is the cleaned absolute path on disk.
	abs string
	// rel is the slash-separated path relative to the root, used as the
	// document id prefix.
	rel string
	// size is the byte length reported at discovery time.
	size int64
	// mime is the detected content type, empty when detection failed.
	mime string
}

// discoverFiles expands the include globs under the root, applies excludes
// and size and count caps, and returns candidates sorted by relative path.
// The second return value counts files skipped for being oversized.
func discoverFiles(ctx context.Context, opts *Options) ([]sourceFile, int, error) {
	log := logger.FromContext(ctx)
	root, err := filepath.Abs(filepath.Clean(opts.Root))
	if err != nil {
		return nil, 0, fmt.Errorf("ingest: resolve root %q: %w", opts.Root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, 0, fmt.Errorf("ingest: stat root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, 0, fmt.Errorf("ingest: root %q is not a directory", root)
	}

	seen := make(map[string]struct{})
	files := make([]sourceFile, 0, 64)
	skipped := 0
	for _, pattern := range opts.Include {
		if err := ctx.Err(); err != nil {
			return nil, skipped, err
		}
		matches, err := doublestar.FilepathGlob(filepath.Clean(filepath.Join(root, pattern)))
		if err != nil {
			return nil, skipped, fmt.Errorf("ingest: glob pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			log.Warn("include pattern matched no files", "pattern", pattern, "root", root)
			continue
		}
		for _, match := range matches {
			abs, err := filepath.Abs(match)
			if err != nil {
				return nil, skipped, fmt.Errorf("ingest: resolve match %q: %w", match, err)
			}
			if _, dup := seen[abs]; dup {
				continue
			}
			seen[abs] = struct{}{}
			stat, err := os.Stat(abs)
			if err != nil {
				return nil, skipped, fmt.Errorf("ingest: stat %q: %w", abs, err)
			}
			if stat.IsDir() {
				continue
			}
			if err := pathInside(root, abs); err != nil {
				return nil, skipped, err
			}
			rel, err := filepath.Rel(root, abs)
			if err != nil {
				return nil, skipped, fmt.Errorf("ingest: relativize %q: %w", abs, err)
			}
			rel = filepath.ToSlash(rel)
			if excluded(rel, opts.Exclude) {
				continue
			}
			if stat.Size() > opts.MaxFileSize {
				log.Warn("skipping oversized file",
					"path", rel,
					"size_bytes", stat.Size(),
					"limit_bytes", opts.MaxFileSize)
				skipped++
				continue
			}
			if len(files) >= opts.MaxFiles {
				log.Warn("file limit reached, remaining matches ignored",
					"limit", opts.MaxFiles, "root", root)
				sortSources(files)
				return files, skipped, nil
			}
			files = append(files, sourceFile{
				abs:  abs,
				rel:  rel,
				size: stat.Size(),
				mime: detectMIME(abs),
			})
		}
	}
	sortSources(files)
	return files, skipped, nil
}

func sortSources(files []sourceFile) {
	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })
}

func excluded(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, rel)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// pathInside rejects targets that resolve outside the root after following
// symlinks. Both sides are resolved so a symlinked root still accepts its own
// children.
func pathInside(root, target string) error {
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return fmt.Errorf("ingest: resolve root %q: %w", root, err)
	}
	resolvedTarget, err := filepath.EvalSymlinks(target)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("ingest: target path %q does not exist", target)
		}
		return fmt.Errorf("ingest: resolve target %q: %w", target, err)
	}
	rel, err := filepath.Rel(resolvedRoot, resolvedTarget)
	if err != nil {
		return fmt.Errorf("ingest: relativize %q against %q: %w", resolvedTarget, resolvedRoot, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return fmt.Errorf("ingest: path %q escapes root %q", target, root)
	}
	return nil
}

func detectMIME(path string) string {
	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return ""
	}
	mime, _, _ := strings.Cut(detected.String(), ";")
	return strings.TrimSpace(mime)
}

// readCapped reads at most cap bytes and errors when the file grew past the
// limit between discovery and read.
func readCapped(path string, capBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %q: %w", path, err)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, capBytes+1))
	if err != nil {
		return nil, fmt.Errorf("ingest: read %q: %w", path, err)
	}
	if int64(len(data)) > capBytes {
		return nil, fmt.Errorf("ingest: file %q changed during ingestion and now exceeds %d bytes", path, capBytes)
	}
	return data, nil
}

// decodeText converts raw bytes to UTF-8, sniffing the charset from the
// payload and the detected content type when the bytes are not already valid
// UTF-8.
func decodeText(data []byte, mime string) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	enc, _, _ := charset.DetermineEncoding(data, mime)
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("ingest: decode text: %w", err)
	}
	if !utf8.Valid(decoded) {
		return "", fmt.Errorf("ingest: content is not valid text")
	}
	return string(decoded), nil
}

func normalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// hashContent fingerprints document text for duplicate suppression. The
// truncated digest keeps metadata compact while staying collision-safe at
// ingestion scale.
func hashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:16])
}

// documentList accumulates loaded documents while dropping exact content
// duplicates.
type documentList struct {
	items []chunk.Document
	hash  map[string]struct{}
}

func newDocumentList() *documentList {
	return &documentList{hash: make(map[string]struct{})}
}

// add appends the document unless its content hash was already seen. The
// hash is stamped into metadata so stores can trace provenance.
func (l *documentList) add(ctx context.Context, doc chunk.Document) bool {
	digest := hashContent(doc.Text)
	if _, dup := l.hash[digest]; dup {
		logger.FromContext(ctx).Debug("skipping duplicate content", "doc_id", doc.ID)
		return false
	}
	l.hash[digest] = struct{}{}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any, 1)
	}
	doc.Metadata["content_hash"] = digest
	l.items = append(l.items, doc)
	return true
}
