package domain

// Metadata keys recognized by the core and written only by core code.
// Everything else in a metadata bag is opaque, caller-supplied.
const (
	MetadataKeyIngestedAt  = "ingestedAt"
	MetadataKeyChunkIndex  = "chunkIndex"
	MetadataKeyTotalChunks = "totalChunks"
	MetadataKeyGenerated   = "generated"
	MetadataKeyRAGEnabled  = "ragEnabled"
	MetadataKeyModel       = "model"
	MetadataKeyTimestamp   = "timestamp"
)

// Document is a unit of ingested content. Immutable once created; after
// ingestion it is owned exclusively by the vector index.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ScoredDocument pairs a retrieved document with its relevance score.
type ScoredDocument struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// DocumentInput is the request payload for single-document ingestion
type DocumentInput struct {
	Content  string         `json:"content" binding:"required"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IngestTextRequest is the request to ingest raw text with chunking
type IngestTextRequest struct {
	Content      string         `json:"content" binding:"required"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	ChunkSize    int            `json:"chunk_size,omitempty"`
	ChunkOverlap *int           `json:"chunk_overlap,omitempty"`
}
