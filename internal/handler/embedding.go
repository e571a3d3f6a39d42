package handler

import (
	"net/http"

	"voicecart/internal/service"

	"github.com/gin-gonic/gin"
)

// EmbeddingHandler handles embedding-related HTTP requests
type EmbeddingHandler struct {
	embeddings *service.EmbeddingService
}

// NewEmbeddingHandler creates a new embedding handler
func NewEmbeddingHandler(embeddings *service.EmbeddingService) *EmbeddingHandler {
	return &EmbeddingHandler{
		embeddings: embeddings,
	}
}

// Backfill handles POST /api/v1/admin/embeddings/backfill
func (h *EmbeddingHandler) Backfill(c *gin.Context) {
	var req struct {
		Limit int `json:"limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if req.Limit <= 0 || req.Limit > 1000 {
		req.Limit = 100
	}

	updated, err := h.embeddings.Backfill(c.Request.Context(), req.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Backfill failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// SemanticSearch handles POST /api/v1/search/semantic
func (h *EmbeddingHandler) SemanticSearch(c *gin.Context) {
	var req struct {
		Query string `json:"query" binding:"required"`
		Limit int    `json:"limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if req.Limit <= 0 || req.Limit > 50 {
		req.Limit = 10
	}

	products, err := h.embeddings.Search(c.Request.Context(), req.Query, req.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Semantic search failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"query": req.Query, "results": products})
}
