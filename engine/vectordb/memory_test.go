package vectordb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(&Config{Dimension: 4})

	t.Run("ShouldUpsertAndSearchByCosine", func(t *testing.T) {
		records := []Record{
			{ID: "a", Text: "alpha", Embedding: []float32{1, 0, 0, 0}, Metadata: map[string]any{"kind": "one"}},
			{ID: "b", Text: "bravo", Embedding: []float32{0, 1, 0, 0}, Metadata: map[string]any{"kind": "two"}},
		}
		require.NoError(t, store.Upsert(ctx, records))
		matches, err := store.Search(ctx, []float32{1, 0, 0, 0}, SearchOptions{TopK: 1})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "a", matches[0].ID)
		assert.Equal(t, "alpha", matches[0].Text)
		assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	})

	t.Run("ShouldFilterByMetadata", func(t *testing.T) {
		matches, err := store.Search(
			ctx,
			[]float32{0, 1, 0, 0},
			SearchOptions{TopK: 2, Filters: map[string]string{"kind": "two"}},
		)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "b", matches[0].ID)
	})

	t.Run("ShouldOrderByScoreThenID", func(t *testing.T) {
		ordered := newMemoryStore(&Config{Dimension: 2})
		records := []Record{
			{ID: "z", Embedding: []float32{1, 0}},
			{ID: "m", Embedding: []float32{1, 0}},
			{ID: "far", Embedding: []float32{0, 1}},
		}
		require.NoError(t, ordered.Upsert(ctx, records))
		matches, err := ordered.Search(ctx, []float32{1, 0}, SearchOptions{TopK: 3})
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, "m", matches[0].ID)
		assert.Equal(t, "z", matches[1].ID)
		assert.Equal(t, "far", matches[2].ID)
	})

	t.Run("ShouldDropMatchesBelowMinScore", func(t *testing.T) {
		scored := newMemoryStore(&Config{Dimension: 2})
		records := []Record{
			{ID: "near", Embedding: []float32{1, 0}},
			{ID: "orthogonal", Embedding: []float32{0, 1}},
		}
		require.NoError(t, scored.Upsert(ctx, records))
		matches, err := scored.Search(ctx, []float32{1, 0}, SearchOptions{TopK: 5, MinScore: 0.5})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "near", matches[0].ID)
	})

	t.Run("ShouldDeleteByID", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, Filter{IDs: []string{"a"}}))
		matches, err := store.Search(ctx, []float32{1, 0, 0, 0}, SearchOptions{TopK: 2, MinScore: 0.1})
		require.NoError(t, err)
		require.Len(t, matches, 0)
	})

	t.Run("ShouldDeleteByMetadata", func(t *testing.T) {
		require.NoError(t, store.Upsert(ctx, []Record{
			{ID: "c", Embedding: []float32{0, 0, 1, 0}, Metadata: map[string]any{"doc_id": "doc-1"}},
			{ID: "d", Embedding: []float32{0, 0, 0, 1}, Metadata: map[string]any{"doc_id": "doc-2"}},
		}))
		require.NoError(t, store.Delete(ctx, Filter{Metadata: map[string]string{"doc_id": "doc-1"}}))
		matches, err := store.Search(ctx, []float32{0, 0, 1, 0}, SearchOptions{TopK: 5, MinScore: 0.9})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("ShouldFailUpsertWhenDimensionMismatch", func(t *testing.T) {
		mismatchStore := newMemoryStore(&Config{Dimension: 4})
		err := mismatchStore.Upsert(ctx, []Record{{ID: "bad", Embedding: []float32{1, 1, 1}}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dimension mismatch")
		assert.Zero(t, mismatchStore.Len())
	})

	t.Run("ShouldFailSearchWhenQueryDimensionMismatch", func(t *testing.T) {
		otherStore := newMemoryStore(&Config{Dimension: 2})
		require.NoError(t, otherStore.Upsert(ctx, []Record{{ID: "c", Embedding: []float32{1, 0}}}))
		_, err := otherStore.Search(ctx, []float32{1, 0, 0}, SearchOptions{TopK: 1})
		require.Error(t, err)
	})

	t.Run("ShouldRespectTopKWhenExceedingAvailableRecords", func(t *testing.T) {
		limitedStore := newMemoryStore(&Config{Dimension: 2})
		records := []Record{
			{ID: "d", Text: "delta", Embedding: []float32{1, 0}},
			{ID: "e", Text: "echo", Embedding: []float32{0, 1}},
		}
		require.NoError(t, limitedStore.Upsert(ctx, records))
		matches, err := limitedStore.Search(ctx, []float32{1, 0}, SearchOptions{TopK: 10})
		require.NoError(t, err)
		require.Len(t, matches, 2)
	})

	t.Run("ShouldCopyEmbeddingAndMetadataOnUpsert", func(t *testing.T) {
		isolated := newMemoryStore(&Config{Dimension: 2})
		embedding := []float32{1, 0}
		meta := map[string]any{"kind": "mutable"}
		require.NoError(t, isolated.Upsert(ctx, []Record{{ID: "iso", Embedding: embedding, Metadata: meta}}))
		embedding[0] = 0
		meta["kind"] = "changed"
		matches, err := isolated.Search(ctx, []float32{1, 0}, SearchOptions{TopK: 1})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
		assert.Equal(t, "mutable", matches[0].Metadata["kind"])
	})

	t.Run("ShouldTreatEmptyUpsertAsNoOp", func(t *testing.T) {
		emptyStore := newMemoryStore(&Config{Dimension: 2})
		require.NoError(t, emptyStore.Upsert(ctx, nil))
		assert.Zero(t, emptyStore.Len())
	})
}
