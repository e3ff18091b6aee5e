package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chatrag/chatrag/internal/domain"
	"github.com/chatrag/chatrag/internal/service"
)

// DocumentsHandler handles document ingestion and search API requests
type DocumentsHandler struct {
	documents *service.DocumentService
}

// NewDocumentsHandler creates a new documents handler
func NewDocumentsHandler(documents *service.DocumentService) *DocumentsHandler {
	return &DocumentsHandler{documents: documents}
}

// RegisterRoutes registers document routes
func (h *DocumentsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/ingest", h.Ingest)
	r.POST("/ingest-multiple", h.IngestMultiple)
	r.POST("/ingest-text", h.IngestText)
	r.GET("/search", h.Search)
	r.DELETE("", h.Delete)
}

// Ingest ingests a single document
func (h *DocumentsHandler) Ingest(c *gin.Context) {
	var req domain.DocumentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.documents.Ingest(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "document ingested successfully"})
}

// IngestMultiple ingests a batch of documents in one index write
func (h *DocumentsHandler) IngestMultiple(c *gin.Context) {
	var req struct {
		Documents []domain.DocumentInput `json:"documents" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.documents.IngestBatch(c.Request.Context(), req.Documents); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": fmt.Sprintf("%d documents ingested successfully", len(req.Documents)),
	})
}

// IngestText ingests text content with automatic chunking
func (h *DocumentsHandler) IngestText(c *gin.Context) {
	var req domain.IngestTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chunkOverlap := -1 // service default
	if req.ChunkOverlap != nil {
		chunkOverlap = *req.ChunkOverlap
	}
	chunks, err := h.documents.IngestText(c.Request.Context(), req.Content, req.Metadata, req.ChunkSize, chunkOverlap)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "text content ingested successfully",
		"chunks":  chunks,
	})
}

// Search returns documents relevant to the query. A threshold parameter
// switches to scored search, returning only documents at or above it.
func (h *DocumentsHandler) Search(c *gin.Context) {
	query := c.Query("query")
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	if raw := c.Query("threshold"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil || threshold < 0 || threshold > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be a number between 0 and 1"})
			return
		}
		docs, err := h.documents.SearchWithScore(c.Request.Context(), query, limit, threshold)
		if err != nil {
			respondError(c, err)
			return
		}
		if docs == nil {
			docs = []domain.ScoredDocument{}
		}
		c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
		return
	}

	docs, err := h.documents.Search(c.Request.Context(), query, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}

// Delete removes documents matching a metadata filter
func (h *DocumentsHandler) Delete(c *gin.Context) {
	var filter map[string]any
	if err := c.ShouldBindJSON(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.documents.Delete(c.Request.Context(), filter); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "documents deleted successfully"})
}
