package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/chatrag/chatrag/internal/domain"
)

// DefaultRetrievalTopK is the number of documents retrieved per question.
const DefaultRetrievalTopK = 5

const ragPromptTemplate = `You are a helpful AI assistant. Use the following pieces of context to answer the user's question.
If you don't know the answer based on the context, just say that you don't know, don't try to make up an answer.

Context:
%s

Question: %s

Answer: `

// Retriever provides similarity search over the document corpus.
type Retriever interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]domain.Document, error)
}

// LLM is the language model backend in whole-response and token-stream modes.
type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string, onDelta func(string) error) error
}

// RAGChain answers questions by retrieving context documents, composing a
// prompt, and generating a response, with fallback to non-retrieval
// generation on failure.
type RAGChain struct {
	retriever Retriever
	llm       LLM
	topK      int
	logger    *zap.Logger
}

// NewRAGChain creates a new RAG chain. topK <= 0 selects the default.
func NewRAGChain(retriever Retriever, llm LLM, topK int, logger *zap.Logger) *RAGChain {
	if topK <= 0 {
		topK = DefaultRetrievalTopK
	}
	return &RAGChain{
		retriever: retriever,
		llm:       llm,
		topK:      topK,
		logger:    logger,
	}
}

// GenerateResponse answers the question with retrieved context. When
// retrieval yields nothing the LLM is invoked directly on the bare question.
// When the primary generation fails, one direct fallback call is attempted;
// if that also fails the original error is returned and the fallback error is
// only logged.
func (c *RAGChain) GenerateResponse(ctx context.Context, question string) (string, error) {
	c.logger.Info("generating response", zap.String("question", question))

	var primaryErr error
	docs, err := c.retriever.SimilaritySearch(ctx, question, c.topK)
	switch {
	case err != nil:
		primaryErr = err
	case len(docs) == 0:
		// Not an error: answer from the model's own knowledge.
		c.logger.Warn("no relevant documents found, answering without retrieval context")
		answer, err := c.llm.Complete(ctx, question)
		if err == nil {
			return answer, nil
		}
		primaryErr = err
	default:
		answer, err := c.llm.Complete(ctx, c.composePrompt(docs, question))
		if err == nil {
			return answer, nil
		}
		primaryErr = err
	}

	c.logger.Error("primary generation failed, falling back to direct completion", zap.Error(primaryErr))
	answer, fallbackErr := c.llm.Complete(ctx, question)
	if fallbackErr != nil {
		// The fallback failure never masks the root cause.
		c.logger.Error("fallback generation also failed", zap.Error(fallbackErr))
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, primaryErr)
	}
	return answer, nil
}

// GenerateStreamingResponse streams the answer, forwarding each fragment to
// onChunk in arrival order. Context is always composed, even when retrieval
// yields nothing. Failures propagate: the caller holds an open transport it
// must close or report on.
func (c *RAGChain) GenerateStreamingResponse(ctx context.Context, question string, onChunk func(string) error) error {
	c.logger.Info("generating streaming response", zap.String("question", question))

	docs, err := c.retriever.SimilaritySearch(ctx, question, c.topK)
	if err != nil {
		return err
	}
	return c.llm.Stream(ctx, c.composePrompt(docs, question), onChunk)
}

// GetRelevantDocuments exposes retrieval without generation. k <= 0 selects
// the chain's configured top-k.
func (c *RAGChain) GetRelevantDocuments(ctx context.Context, query string, k int) ([]domain.Document, error) {
	if k <= 0 {
		k = c.topK
	}
	return c.retriever.SimilaritySearch(ctx, query, k)
}

func (c *RAGChain) composePrompt(docs []domain.Document, question string) string {
	contents := make([]string, len(docs))
	for i, d := range docs {
		contents[i] = d.Content
	}
	return fmt.Sprintf(ragPromptTemplate, strings.Join(contents, "\n\n"), question)
}
