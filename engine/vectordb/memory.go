package vectordb

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// memoryStore keeps records in process memory. It backs tests, the demo
// configuration, and ingest runs that only need transient storage.
type memoryStore struct {
	mu        sync.RWMutex
	dimension int
	records   map[string]Record
}

func newMemoryStore(cfg *Config) *memoryStore {
	return &memoryStore{
		dimension: cfg.Dimension,
		records:   make(map[string]Record),
	}
}

func (s *memoryStore) Upsert(_ context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range records {
		rec := records[i]
		if len(rec.Embedding) != s.dimension {
			return fmt.Errorf(
				"memory: record %q dimension mismatch (got %d want %d)",
				rec.ID, len(rec.Embedding), s.dimension,
			)
		}
		s.records[rec.ID] = Record{
			ID:        rec.ID,
			Text:      rec.Text,
			Embedding: append([]float32(nil), rec.Embedding...),
			Metadata:  cloneMap(rec.Metadata),
		}
	}
	return nil
}

func (s *memoryStore) Search(_ context.Context, query []float32, opts SearchOptions) ([]Match, error) {
	if len(query) != s.dimension {
		return nil, fmt.Errorf("memory: query dimension mismatch (got %d want %d)", len(query), s.dimension)
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidates := make([]Match, 0, len(s.records))
	for _, rec := range s.records {
		if !metadataMatches(rec.Metadata, opts.Filters) {
			continue
		}
		score := cosineSimilarity(rec.Embedding, query)
		if score < opts.MinScore {
			continue
		}
		candidates = append(candidates, Match{
			ID:       rec.ID,
			Score:    score,
			Text:     rec.Text,
			Metadata: cloneMap(rec.Metadata),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score == candidates[j].Score {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func (s *memoryStore) Delete(_ context.Context, filter Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range filter.IDs {
		delete(s.records, id)
	}
	if len(filter.Metadata) == 0 {
		return nil
	}
	for id, rec := range s.records {
		if metadataMatches(rec.Metadata, filter.Metadata) {
			delete(s.records, id)
		}
	}
	return nil
}

func (s *memoryStore) Close(context.Context) error {
	return nil
}

// Len reports the number of stored records; used by tests and the ingest
// summary for the memory backend.
func (s *memoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
