package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chatrag/chatrag/internal/chunker"
	"github.com/chatrag/chatrag/internal/domain"
)

// DefaultSearchLimit is the number of documents returned by Search when the
// caller does not specify a limit.
const DefaultSearchLimit = 10

// VectorStore is the document index the document service writes to and
// searches.
type VectorStore interface {
	AddDocuments(ctx context.Context, docs []domain.Document) error
	SimilaritySearch(ctx context.Context, query string, k int) ([]domain.Document, error)
	SimilaritySearchWithScore(ctx context.Context, query string, k int, scoreThreshold float64) ([]domain.ScoredDocument, error)
	DeleteDocuments(ctx context.Context, filter map[string]any) error
}

// DocumentOptions carries configured chunking and scoring defaults. Zero
// values select the package defaults.
type DocumentOptions struct {
	ChunkSize      int
	ChunkOverlap   int
	ScoreThreshold float64
}

// DocumentService handles document ingestion and retrieval over the vector
// store.
type DocumentService struct {
	store  VectorStore
	opts   DocumentOptions
	logger *zap.Logger
}

// NewDocumentService creates a new document service.
func NewDocumentService(store VectorStore, opts DocumentOptions, logger *zap.Logger) *DocumentService {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = chunker.DefaultChunkSize
	}
	if opts.ChunkOverlap <= 0 {
		opts.ChunkOverlap = chunker.DefaultChunkOverlap
	}
	return &DocumentService{store: store, opts: opts, logger: logger}
}

// Ingest stores a single document, stamping it with the ingestion time.
func (s *DocumentService) Ingest(ctx context.Context, input domain.DocumentInput) error {
	return s.IngestBatch(ctx, []domain.DocumentInput{input})
}

// IngestBatch stores all documents in a single batched index write. Every
// document receives the same ingestion timestamp.
func (s *DocumentService) IngestBatch(ctx context.Context, inputs []domain.DocumentInput) error {
	if len(inputs) == 0 {
		return fmt.Errorf("%w: no documents to ingest", domain.ErrInvalidArgument)
	}

	ingestedAt := time.Now().UTC().Format(time.RFC3339)
	docs := make([]domain.Document, len(inputs))
	for i, input := range inputs {
		if input.Content == "" {
			return fmt.Errorf("%w: document content must not be empty", domain.ErrInvalidArgument)
		}
		metadata := cloneMetadata(input.Metadata)
		metadata[domain.MetadataKeyIngestedAt] = ingestedAt
		docs[i] = domain.Document{Content: input.Content, Metadata: metadata}
	}

	if err := s.store.AddDocuments(ctx, docs); err != nil {
		return err
	}
	s.logger.Info("ingested documents", zap.Int("count", len(docs)))
	return nil
}

// IngestText splits text into chunks and stores each chunk as a document
// carrying chunkIndex and totalChunks metadata merged over the caller's
// metadata. Zero chunkSize and a negative chunkOverlap select the defaults.
// It returns the number of chunks stored.
func (s *DocumentService) IngestText(ctx context.Context, content string, metadata map[string]any, chunkSize, chunkOverlap int) (int, error) {
	if chunkSize <= 0 {
		chunkSize = s.opts.ChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = s.opts.ChunkOverlap
	}

	chunks, err := chunker.Split(content, chunkSize, chunkOverlap)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: text content must not be empty", domain.ErrInvalidArgument)
	}

	ingestedAt := time.Now().UTC().Format(time.RFC3339)
	docs := make([]domain.Document, len(chunks))
	for i, chunk := range chunks {
		md := cloneMetadata(metadata)
		md[domain.MetadataKeyChunkIndex] = i
		md[domain.MetadataKeyTotalChunks] = len(chunks)
		md[domain.MetadataKeyIngestedAt] = ingestedAt
		docs[i] = domain.Document{Content: chunk, Metadata: md}
	}

	if err := s.store.AddDocuments(ctx, docs); err != nil {
		return 0, err
	}
	s.logger.Info("ingested text content",
		zap.Int("chunks", len(chunks)),
		zap.Int("chunk_size", chunkSize),
		zap.Int("chunk_overlap", chunkOverlap))
	return len(chunks), nil
}

// Search returns up to limit documents relevant to the query.
func (s *DocumentService) Search(ctx context.Context, query string, limit int) ([]domain.Document, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", domain.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return s.store.SimilaritySearch(ctx, query, limit)
}

// SearchWithScore returns up to limit documents with their relevance scores,
// keeping only documents at or above the threshold. A negative threshold
// selects the configured default. Unlike Search it requires a reachable
// backend.
func (s *DocumentService) SearchWithScore(ctx context.Context, query string, limit int, threshold float64) ([]domain.ScoredDocument, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", domain.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if threshold < 0 {
		threshold = s.opts.ScoreThreshold
	}
	return s.store.SimilaritySearchWithScore(ctx, query, limit, threshold)
}

// Delete removes all documents matching the metadata filter.
func (s *DocumentService) Delete(ctx context.Context, filter map[string]any) error {
	return s.store.DeleteDocuments(ctx, filter)
}

func cloneMetadata(metadata map[string]any) map[string]any {
	cloned := make(map[string]any, len(metadata)+3)
	for k, v := range metadata {
		cloned[k] = v
	}
	return cloned
}
