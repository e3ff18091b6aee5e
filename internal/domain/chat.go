package domain

import "time"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session represents a chat session
type Session struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Title     string         `json:"title"`
	Favorite  bool           `json:"favorite"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Message represents a chat message
type Message struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Role      string         `json:"role"` // user, assistant
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// HistoryEntry is a projection of a message for chat history views
type HistoryEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// CreateSessionRequest is the request to create a session
type CreateSessionRequest struct {
	Title string `json:"title,omitempty"`
}

// RenameSessionRequest is the request to rename a session
type RenameSessionRequest struct {
	Title string `json:"title" binding:"required"`
}

// CreateMessageRequest is the request to create a message in a session
type CreateMessageRequest struct {
	Role     string         `json:"role" binding:"required,oneof=user assistant"`
	Content  string         `json:"content" binding:"required"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// StreamRequest is the request to stream an assistant response
type StreamRequest struct {
	Question string `json:"question" binding:"required"`
}

// StreamChunk represents a chunk in the SSE stream
type StreamChunk struct {
	Type    string `json:"type"` // content, done, error
	Content string `json:"content,omitempty"`
}
