package vectordb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type qdrantCapture struct {
	mu       sync.Mutex
	requests []capturedRequest
}

type capturedRequest struct {
	method string
	path   string
	apiKey string
	body   map[string]any
}

func (c *qdrantCapture) record(r *http.Request) {
	captured := capturedRequest{method: r.Method, path: r.URL.Path, apiKey: r.Header.Get("api-key")}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&captured.body)
	}
	c.mu.Lock()
	c.requests = append(c.requests, captured)
	c.mu.Unlock()
}

func (c *qdrantCapture) all() []capturedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]capturedRequest(nil), c.requests...)
}

func newQdrantTestStore(t *testing.T, handler http.HandlerFunc) (Store, *qdrantCapture) {
	t.Helper()
	capture := &qdrantCapture{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capture.record(r)
		if handler != nil {
			handler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","result":true}`))
	}))
	t.Cleanup(server.Close)
	store, err := newQdrantStore(context.Background(), &Config{
		Provider:   ProviderQdrant,
		URL:        server.URL,
		Collection: "chunks_test",
		APIKey:     "secret-key",
		Dimension:  4,
	})
	require.NoError(t, err)
	return store, capture
}

func TestQdrantStore(t *testing.T) {
	ctx := context.Background()

	t.Run("ShouldCreateCollectionOnConstruct", func(t *testing.T) {
		_, capture := newQdrantTestStore(t, nil)
		requests := capture.all()
		require.Len(t, requests, 1)
		assert.Equal(t, http.MethodPut, requests[0].method)
		assert.Equal(t, "/collections/chunks_test", requests[0].path)
		assert.Equal(t, "secret-key", requests[0].apiKey)
		vectors, ok := requests[0].body["vectors"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(4), vectors["size"])
		assert.Equal(t, "Cosine", vectors["distance"])
	})

	t.Run("ShouldUpsertPointsWithTextPayload", func(t *testing.T) {
		store, capture := newQdrantTestStore(t, nil)
		err := store.Upsert(ctx, []Record{
			{ID: "a", Text: "alpha", Embedding: []float32{1, 0, 0, 0}, Metadata: map[string]any{"doc_id": "doc-1"}},
			{ID: "b", Text: "bravo", Embedding: []float32{0, 1, 0, 0}},
		})
		require.NoError(t, err)

		requests := capture.all()
		require.Len(t, requests, 2)
		upsert := requests[1]
		assert.Equal(t, http.MethodPut, upsert.method)
		assert.Equal(t, "/collections/chunks_test/points", upsert.path)
		points, ok := upsert.body["points"].([]any)
		require.True(t, ok)
		require.Len(t, points, 2)
		first, ok := points[0].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "a", first["id"])
		payload, ok := first["payload"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "alpha", payload["text"])
		assert.Equal(t, "doc-1", payload["doc_id"])
	})

	t.Run("ShouldRejectUpsertDimensionMismatch", func(t *testing.T) {
		store, capture := newQdrantTestStore(t, nil)
		err := store.Upsert(ctx, []Record{{ID: "bad", Embedding: []float32{1, 0}}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dimension mismatch")
		assert.Len(t, capture.all(), 1)
	})

	t.Run("ShouldSearchAndMapMatches", func(t *testing.T) {
		store, capture := newQdrantTestStore(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if r.URL.Path == "/collections/chunks_test/points/search" {
				_, _ = w.Write([]byte(`{"result":[
					{"id":"a","score":0.91,"payload":{"text":"alpha","doc_id":"doc-1"}},
					{"id":"b","score":0.22,"payload":{"text":"bravo"}}
				]}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})

		matches, err := store.Search(ctx, []float32{1, 0, 0, 0}, SearchOptions{TopK: 2, MinScore: 0.5})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "a", matches[0].ID)
		assert.Equal(t, "alpha", matches[0].Text)
		assert.InDelta(t, 0.91, matches[0].Score, 1e-9)
		assert.Equal(t, "doc-1", matches[0].Metadata["doc_id"])
		assert.NotContains(t, matches[0].Metadata, "text")

		requests := capture.all()
		search := requests[len(requests)-1]
		assert.Equal(t, float64(2), search.body["limit"])
		assert.Equal(t, true, search.body["with_payload"])
		assert.NotContains(t, search.body, "filter")
	})

	t.Run("ShouldSendFilterClause", func(t *testing.T) {
		store, capture := newQdrantTestStore(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"result":[]}`))
		})
		_, err := store.Search(ctx, []float32{1, 0, 0, 0}, SearchOptions{
			Filters: map[string]string{"doc_type": "markdown"},
		})
		require.NoError(t, err)

		requests := capture.all()
		search := requests[len(requests)-1]
		filter, ok := search.body["filter"].(map[string]any)
		require.True(t, ok)
		must, ok := filter["must"].([]any)
		require.True(t, ok)
		require.Len(t, must, 1)
		clause, ok := must[0].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "doc_type", clause["key"])
		match, ok := clause["match"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "markdown", match["value"])
	})

	t.Run("ShouldDeleteByIDsAndMetadata", func(t *testing.T) {
		store, capture := newQdrantTestStore(t, nil)
		err := store.Delete(ctx, Filter{
			IDs:      []string{"a", "b"},
			Metadata: map[string]string{"doc_id": "doc-1"},
		})
		require.NoError(t, err)

		requests := capture.all()
		del := requests[len(requests)-1]
		assert.Equal(t, http.MethodPost, del.method)
		assert.Equal(t, "/collections/chunks_test/points/delete", del.path)
		points, ok := del.body["points"].([]any)
		require.True(t, ok)
		assert.Equal(t, []any{"a", "b"}, points)
		assert.Contains(t, del.body, "filter")
	})

	t.Run("ShouldSkipDeleteRequestForEmptyFilter", func(t *testing.T) {
		store, capture := newQdrantTestStore(t, nil)
		require.NoError(t, store.Delete(ctx, Filter{}))
		assert.Len(t, capture.all(), 1)
	})

	t.Run("ShouldSurfaceAPIErrors", func(t *testing.T) {
		store, _ := newQdrantTestStore(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/collections/chunks_test/points" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"status":"error","error":"collection not found"}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		err := store.Upsert(ctx, []Record{{ID: "a", Embedding: []float32{1, 0, 0, 0}}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "collection not found")
	})
}
