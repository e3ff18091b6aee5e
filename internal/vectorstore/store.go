// Package vectorstore owns embedding generation and similarity search
// against a vector index, degrading to a disabled state when the backend is
// not provisioned.
package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatrag/chatrag/internal/domain"
)

// DefaultTopK is the number of results returned when the caller does not
// specify one.
const DefaultTopK = 5

// State describes whether the vector backend is usable.
type State string

const (
	// StateReady means the backend is configured and embeddings are usable.
	StateReady State = "ready"
	// StateDisabled means no backend is provisioned: writes are no-ops and
	// searches return empty results. The state is terminal for the process
	// lifetime.
	StateDisabled State = "disabled"
)

// Embedder converts texts into embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Index is the backing vector index.
type Index interface {
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, vector []float64, topK int) ([]SearchHit, error)
	Delete(ctx context.Context, filter map[string]any) error
}

// Point is a vector with its source content and metadata.
type Point struct {
	ID       string
	Vector   []float64
	Content  string
	Metadata map[string]any
}

// SearchHit is a stored point returned from a similarity search.
type SearchHit struct {
	Content  string
	Metadata map[string]any
	Score    float64
}

// Store is the vector store adapter. It is the sole owner of the embedding
// client and the index client; callers never touch either directly.
type Store struct {
	state    State
	embedder Embedder
	index    Index
	logger   *zap.Logger

	initOnce sync.Once
	initErr  error
}

// New creates a Ready store backed by the given embedder and index.
func New(embedder Embedder, index Index, logger *zap.Logger) *Store {
	return &Store{
		state:    StateReady,
		embedder: embedder,
		index:    index,
		logger:   logger,
	}
}

// NewDisabled creates a store with no backend. Writes warn and do nothing,
// searches return empty results.
func NewDisabled(logger *zap.Logger) *Store {
	return &Store{state: StateDisabled, logger: logger}
}

// State returns the adapter state, fixed at construction.
func (s *Store) State() State { return s.state }

// Ready reports whether the backend is usable.
func (s *Store) Ready() bool { return s.state == StateReady }

// AddDocuments embeds and indexes the given documents in one batched write.
// When the store is disabled this is a no-op with a warning.
func (s *Store) AddDocuments(ctx context.Context, docs []domain.Document) error {
	if !s.Ready() {
		s.logger.Warn("vector store disabled, skipping document indexing",
			zap.Int("count", len(docs)))
		return nil
	}
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: embedding failed: %v", domain.ErrBackend, err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: embedder returned %d vectors for %d documents", domain.ErrBackend, len(vectors), len(texts))
	}

	if err := s.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	points := make([]Point, len(docs))
	for i, d := range docs {
		points[i] = Point{
			ID:       uuid.New().String(),
			Vector:   vectors[i],
			Content:  d.Content,
			Metadata: d.Metadata,
		}
	}
	if err := s.index.Upsert(ctx, points); err != nil {
		return fmt.Errorf("%w: index write failed: %v", domain.ErrBackend, err)
	}

	s.logger.Info("added documents to vector store", zap.Int("count", len(docs)))
	return nil
}

// SimilaritySearch returns up to k documents ordered by descending relevance.
// A disabled store and a backend with no matches both yield an empty result,
// not an error.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int) ([]domain.Document, error) {
	hits, err := s.search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, len(hits))
	for i, h := range hits {
		docs[i] = domain.Document{Content: h.Content, Metadata: h.Metadata}
	}
	return docs, nil
}

// SimilaritySearchWithScore returns scored documents filtered to
// score >= scoreThreshold. Unlike SimilaritySearch it fails when the store is
// disabled, since a threshold decision needs a live backend.
func (s *Store) SimilaritySearchWithScore(ctx context.Context, query string, k int, scoreThreshold float64) ([]domain.ScoredDocument, error) {
	if !s.Ready() {
		return nil, fmt.Errorf("%w: vector backend is not configured", domain.ErrBackend)
	}
	hits, err := s.search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	results := make([]domain.ScoredDocument, 0, len(hits))
	for _, h := range hits {
		if h.Score < scoreThreshold {
			continue
		}
		results = append(results, domain.ScoredDocument{
			Document: domain.Document{Content: h.Content, Metadata: h.Metadata},
			Score:    h.Score,
		})
	}
	return results, nil
}

// DeleteDocuments removes all indexed documents whose metadata matches every
// key/value pair in filter. When the store is disabled this is a no-op with a
// warning: nothing was ever indexed.
func (s *Store) DeleteDocuments(ctx context.Context, filter map[string]any) error {
	if !s.Ready() {
		s.logger.Warn("vector store disabled, skipping document deletion")
		return nil
	}
	if len(filter) == 0 {
		return fmt.Errorf("%w: delete filter must not be empty", domain.ErrInvalidArgument)
	}
	if err := s.index.Delete(ctx, filter); err != nil {
		return fmt.Errorf("%w: index delete failed: %v", domain.ErrBackend, err)
	}
	s.logger.Info("deleted documents from vector store", zap.Any("filter", filter))
	return nil
}

func (s *Store) search(ctx context.Context, query string, k int) ([]SearchHit, error) {
	if !s.Ready() {
		return nil, nil
	}
	if k <= 0 {
		k = DefaultTopK
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: query embedding failed: %v", domain.ErrBackend, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for one query", domain.ErrBackend, len(vectors))
	}

	if err := s.ensureCollection(ctx, len(vectors[0])); err != nil {
		return nil, err
	}

	hits, err := s.index.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity search failed: %v", domain.ErrBackend, err)
	}
	return hits, nil
}

// ensureCollection initializes the backing collection exactly once per
// process; concurrent first-use serializes on the sync.Once.
func (s *Store) ensureCollection(ctx context.Context, dimension int) error {
	s.initOnce.Do(func() {
		if err := s.index.EnsureCollection(ctx, dimension); err != nil {
			s.initErr = fmt.Errorf("%w: collection init failed: %v", domain.ErrBackend, err)
			return
		}
		s.logger.Info("vector collection ready", zap.Int("dimension", dimension))
	})
	return s.initErr
}
