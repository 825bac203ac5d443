package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chunkforge/chunkforge/engine/chunk"
)

// chunkRequest is one document to split. Metadata keys such as doc_type and
// doc_id drive rule resolution and provenance; everything else passes through
// into every resulting chunk.
type chunkRequest struct {
	Text     string         `json:"text"     binding:"required"`
	Metadata map[string]any `json:"metadata"`
}

type chunkResponse struct {
	Chunks []chunkPayload `json:"chunks"`
	Count  int            `json:"count"`
}

// chunkPayload is the wire shape of a chunk. Meta already carries the
// positional enrichment, so the top-level fields are the ones consumers
// index on.
type chunkPayload struct {
	ID            string         `json:"id"`
	DocID         string         `json:"doc_id"`
	Text          string         `json:"text"`
	ChunkIndex    int            `json:"chunk_index"`
	TokenCount    int            `json:"token_count"`
	OverlapTokens int            `json:"overlap_tokens"`
	Meta          map[string]any `json:"meta"`
}

type batchRequest struct {
	Documents []batchDocument `json:"documents" binding:"required,min=1"`
}

type batchDocument struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

type batchResponse struct {
	Chunks []chunkPayload `json:"chunks"`
	Count  int            `json:"count"`
	Failed []string       `json:"failed,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleChunk(c *gin.Context) {
	var req chunkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	chunks, err := s.splitter.Split(c.Request.Context(), req.Text, req.Metadata)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, chunkResponse{Chunks: toPayload(chunks), Count: len(chunks)})
}

func (s *Server) handleChunkBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	docs := make([]chunk.Document, len(req.Documents))
	for i, doc := range req.Documents {
		docs[i] = chunk.Document{ID: doc.ID, Text: doc.Text, Metadata: doc.Metadata}
	}
	result := s.splitter.SplitBatch(c.Request.Context(), docs)
	c.JSON(http.StatusOK, batchResponse{
		Chunks: toPayload(result.Chunks),
		Count:  len(result.Chunks),
		Failed: result.Failed,
	})
}

func toPayload(chunks []chunk.Chunk) []chunkPayload {
	payload := make([]chunkPayload, len(chunks))
	for i := range chunks {
		payload[i] = chunkPayload{
			ID:            chunks[i].ID,
			DocID:         chunks[i].DocID,
			Text:          chunks[i].Text,
			ChunkIndex:    chunks[i].ChunkIndex,
			TokenCount:    chunks[i].TokenCount,
			OverlapTokens: chunks[i].OverlapTokens,
			Meta:          chunks[i].Meta,
		}
	}
	return payload
}
