package chunk

import (
	"context"
	"strings"
	"time"

	"github.com/chunkforge/chunkforge/engine/tokens"
	"github.com/chunkforge/chunkforge/pkg/logger"
)

// Splitter is the engine entry point: it resolves a rule per document,
// segments the text, enforces token bounds, injects overlap, and assembles
// enriched chunks. All state is immutable after construction, so a single
// Splitter serves concurrent Split calls without coordination.
type Splitter struct {
	rules    *RuleSet
	registry *Registry
	counter  tokens.Counter
}

// Option customizes a Splitter at construction.
type Option func(*Splitter)

// WithCounter swaps the token counter driving every bound and overlap
// computation. One counter governs a whole split call.
func WithCounter(counter tokens.Counter) Option {
	return func(s *Splitter) { s.counter = counter }
}

// WithRegistry supplies a custom strategy registry.
func WithRegistry(registry *Registry) Option {
	return func(s *Splitter) { s.registry = registry }
}

// NewSplitter builds a splitter over the given rule table. A nil table
// resolves every document type to the built-in default rule.
func NewSplitter(rules *RuleSet, opts ...Option) (*Splitter, error) {
	s := &Splitter{
		rules:    rules,
		registry: NewRegistry(),
		counter:  tokens.Whitespace{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		return nil, ErrNilRegistry
	}
	if s.counter == nil {
		return nil, ErrNilCounter
	}
	return s, nil
}

// Split chunks one document's text under the rule resolved from
// meta["doc_type"]. The caller's metadata is copied into every chunk and
// enriched with positional and strategy provenance. Empty input yields no
// chunks and no error.
func (s *Splitter) Split(ctx context.Context, text string, meta map[string]any) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	start := time.Now()
	rule := s.rules.Resolve(metadataString(meta, MetaDocType))
	segments, err := s.segment(ctx, text, rule)
	if err != nil {
		return nil, err
	}
	bounded := enforceBounds(segments, rule, s.counter)
	chunks := s.assemble(injectOverlap(bounded, rule.Overlap), meta, rule)
	recordSplit(ctx, rule.Strategy, chunks, time.Since(start))
	return chunks, nil
}

// BatchResult reports the outcome of chunking a batch of documents.
type BatchResult struct {
	Chunks []Chunk
	// Failed lists documents that could not be chunked; the batch always
	// continues past them.
	Failed []string
}

// SplitBatch chunks documents in order, skipping and logging failures so one
// bad document never aborts the batch.
func (s *Splitter) SplitBatch(ctx context.Context, docs []Document) BatchResult {
	log := logger.FromContext(ctx)
	var result BatchResult
	for i := range docs {
		doc := docs[i]
		meta := cloneMetadata(doc.Metadata)
		if doc.ID != "" {
			if _, ok := meta[MetaDocID]; !ok {
				meta[MetaDocID] = doc.ID
			}
		}
		chunks, err := s.Split(ctx, doc.Text, meta)
		if err != nil {
			docID := doc.ID
			if docID == "" {
				docID = metadataString(meta, MetaDocID)
			}
			log.Error("failed to chunk document", "doc_id", docID, "error", err)
			result.Failed = append(result.Failed, docID)
			continue
		}
		result.Chunks = append(result.Chunks, chunks...)
	}
	return result
}

// segment dispatches to the rule's strategy. Unknown names warn once per
// call and fall back to paragraph splitting; the policy is uniform across
// every call site by construction. The recursive strategy is rebuilt against
// the live rule so its window tracks the rule's bounds.
func (s *Splitter) segment(ctx context.Context, text string, rule Rule) ([]string, error) {
	name := normalizeStrategy(rule.Strategy)
	if name == StrategyRecursive {
		return newRecursiveSegmenter(rule)(text), nil
	}
	segmenter, err := s.registry.Lookup(name)
	if err != nil {
		logger.FromContext(ctx).Warn(
			"unknown chunking strategy, falling back to paragraphs",
			"strategy", rule.Strategy,
		)
		segmenter, err = s.registry.Lookup(StrategyParagraph)
		if err != nil {
			return nil, err
		}
	}
	return segmenter(text), nil
}

// assemble wraps final text spans into Chunk records. Bound satisfaction was
// settled by enforceBounds; assembly only measures, identifies, and tags.
func (s *Splitter) assemble(segments []overlapped, meta map[string]any, rule Rule) []Chunk {
	kept := segments[:0:0]
	for _, segment := range segments {
		if strings.TrimSpace(segment.text) != "" {
			kept = append(kept, segment)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	docID := metadataString(meta, MetaDocID)
	if docID == "" {
		docID = newDocID()
	}
	total := len(kept)
	chunks := make([]Chunk, 0, total)
	for idx, segment := range kept {
		text := strings.TrimSpace(segment.text)
		enriched := cloneMetadata(meta)
		enriched[MetaChunkIndex] = idx
		enriched[MetaTotalChunks] = total
		enriched[MetaOverlapTokens] = segment.overlapTokens
		enriched[MetaStrategy] = rule.Strategy
		chunks = append(chunks, Chunk{
			ID:            newChunkID(),
			DocID:         docID,
			Text:          text,
			Meta:          enriched,
			ChunkIndex:    idx,
			OverlapTokens: segment.overlapTokens,
			TokenCount:    s.counter.Count(text),
		})
	}
	return chunks
}
