package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chatrag/chatrag/internal/domain"
)

// ContextWindowSize is the number of recent messages included as
// conversation context when generating a reply.
const ContextWindowSize = 10

// SessionFinder looks up sessions for ownership checks.
type SessionFinder interface {
	Get(id string) (*domain.Session, error)
}

// MessageStore persists and lists chat messages.
type MessageStore interface {
	Create(message *domain.Message) error
	ListBySession(sessionID string) ([]*domain.Message, error)
	ListRecent(sessionID string, limit int) ([]*domain.Message, error)
}

// StreamingGenerator produces a streamed, retrieval-augmented answer.
type StreamingGenerator interface {
	GenerateStreamingResponse(ctx context.Context, question string, onChunk func(string) error) error
}

// Completer produces a whole response for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// MessageService ties session ownership, message persistence, and response
// generation into one request lifecycle.
type MessageService struct {
	sessions SessionFinder
	messages MessageStore
	chain    StreamingGenerator
	llm      Completer
	model    string
	logger   *zap.Logger
}

// NewMessageService creates a new message service. model names the LLM in
// generated-message metadata.
func NewMessageService(
	sessions SessionFinder,
	messages MessageStore,
	chain StreamingGenerator,
	llm Completer,
	model string,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		sessions: sessions,
		messages: messages,
		chain:    chain,
		llm:      llm,
		model:    model,
		logger:   logger,
	}
}

// CreateMessage persists the incoming message after verifying session
// ownership. A user message additionally triggers a best-effort assistant
// reply: generation failures are logged and never fail the operation. The
// originally created message is returned; a generated reply is discoverable
// via ListMessages.
func (s *MessageService) CreateMessage(ctx context.Context, userID, sessionID string, req *domain.CreateMessageRequest) (*domain.Message, error) {
	if err := s.assertOwnedSession(userID, sessionID); err != nil {
		return nil, err
	}

	message := &domain.Message{
		SessionID: sessionID,
		Role:      req.Role,
		Content:   req.Content,
		Metadata:  req.Metadata,
	}
	if err := s.messages.Create(message); err != nil {
		return nil, err
	}

	if req.Role == domain.RoleUser {
		s.generateReply(ctx, sessionID)
	}

	return message, nil
}

// generateReply produces and persists an assistant reply from the recent
// conversation window. Best-effort: any failure is logged and swallowed.
func (s *MessageService) generateReply(ctx context.Context, sessionID string) {
	// The context snapshot is taken after the user message is durably
	// persisted, so the window always contains it.
	history, err := s.messages.ListRecent(sessionID, ContextWindowSize)
	if err != nil {
		s.logger.Error("failed to load conversation context", zap.Error(err), zap.String("session_id", sessionID))
		return
	}

	answer, err := s.llm.Complete(ctx, conversationPrompt(history))
	if err != nil {
		s.logger.Error("failed to generate assistant reply", zap.Error(err), zap.String("session_id", sessionID))
		return
	}

	reply := &domain.Message{
		SessionID: sessionID,
		Role:      domain.RoleAssistant,
		Content:   answer,
		Metadata:  s.generatedMetadata(false),
	}
	if err := s.messages.Create(reply); err != nil {
		s.logger.Error("failed to persist assistant reply", zap.Error(err), zap.String("session_id", sessionID))
	}
}

// ListMessages returns all messages of the session ordered by creation time
// ascending, after the ownership check.
func (s *MessageService) ListMessages(userID, sessionID string) ([]*domain.Message, error) {
	if err := s.assertOwnedSession(userID, sessionID); err != nil {
		return nil, err
	}
	return s.messages.ListBySession(sessionID)
}

// GetChatHistory returns a role/content/timestamp projection of ListMessages.
func (s *MessageService) GetChatHistory(userID, sessionID string) ([]domain.HistoryEntry, error) {
	messages, err := s.ListMessages(userID, sessionID)
	if err != nil {
		return nil, err
	}
	history := make([]domain.HistoryEntry, len(messages))
	for i, m := range messages {
		history[i] = domain.HistoryEntry{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.CreatedAt,
		}
	}
	return history, nil
}

// GenerateStreamingResponse persists the user question, streams the
// assistant reply forwarding each fragment to onChunk, and persists the
// accumulated text as the assistant message once the stream completes. A
// failure mid-stream propagates and no assistant message is persisted.
func (s *MessageService) GenerateStreamingResponse(ctx context.Context, userID, sessionID, question string, onChunk func(string) error) error {
	if err := s.assertOwnedSession(userID, sessionID); err != nil {
		return err
	}
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("%w: question must not be empty", domain.ErrInvalidArgument)
	}

	userMessage := &domain.Message{
		SessionID: sessionID,
		Role:      domain.RoleUser,
		Content:   question,
	}
	if err := s.messages.Create(userMessage); err != nil {
		return err
	}

	var full strings.Builder
	err := s.chain.GenerateStreamingResponse(ctx, question, func(chunk string) error {
		full.WriteString(chunk)
		return onChunk(chunk)
	})
	if err != nil {
		// All-or-nothing: a partial reply is never persisted.
		return err
	}

	reply := &domain.Message{
		SessionID: sessionID,
		Role:      domain.RoleAssistant,
		Content:   full.String(),
		Metadata:  s.generatedMetadata(true),
	}
	return s.messages.Create(reply)
}

func (s *MessageService) assertOwnedSession(userID, sessionID string) error {
	if userID == "" {
		return fmt.Errorf("%w: missing authenticated user", domain.ErrUnauthorized)
	}
	if sessionID == "" {
		return fmt.Errorf("%w: sessionId is required", domain.ErrInvalidArgument)
	}
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("%w: session not found", domain.ErrNotFound)
	}
	if session.UserID != userID {
		return fmt.Errorf("%w: you do not have access to this session", domain.ErrForbidden)
	}
	return nil
}

func (s *MessageService) generatedMetadata(ragEnabled bool) map[string]any {
	return map[string]any{
		domain.MetadataKeyGenerated:  true,
		domain.MetadataKeyRAGEnabled: ragEnabled,
		domain.MetadataKeyModel:      s.model,
		domain.MetadataKeyTimestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

// conversationPrompt renders the recent message window for a plain,
// non-retrieval completion.
func conversationPrompt(history []*domain.Message) string {
	var b strings.Builder
	b.WriteString("Previous conversation:\n")
	for _, m := range history {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString("\nPlease respond to the latest user message.")
	return b.String()
}
