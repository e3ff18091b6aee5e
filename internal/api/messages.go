package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatrag/chatrag/internal/api/middleware"
	"github.com/chatrag/chatrag/internal/domain"
	"github.com/chatrag/chatrag/internal/service"
)

// MessagesHandler handles message API requests
type MessagesHandler struct {
	messages *service.MessageService
}

// NewMessagesHandler creates a new messages handler
func NewMessagesHandler(messages *service.MessageService) *MessagesHandler {
	return &MessagesHandler{messages: messages}
}

// RegisterRoutes registers message routes
func (h *MessagesHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/:sessionId", h.Create)
	r.GET("/:sessionId", h.List)
	r.GET("/:sessionId/history", h.History)
	r.POST("/:sessionId/stream", h.Stream)
}

// Create creates a message in a session. A user message triggers a
// best-effort assistant reply.
func (h *MessagesHandler) Create(c *gin.Context) {
	var req domain.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.messages.CreateMessage(c.Request.Context(), middleware.UserID(c), c.Param("sessionId"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

// List returns all messages of a session, oldest first
func (h *MessagesHandler) List(c *gin.Context) {
	messages, err := h.messages.ListMessages(middleware.UserID(c), c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	if messages == nil {
		messages = []*domain.Message{}
	}
	c.JSON(http.StatusOK, messages)
}

// History returns the chat history projection of a session
func (h *MessagesHandler) History(c *gin.Context) {
	history, err := h.messages.GetChatHistory(middleware.UserID(c), c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// Stream persists the question and streams the assistant reply over SSE,
// terminated by an explicit done event.
func (h *MessagesHandler) Stream(c *gin.Context) {
	var req domain.StreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	streamed := false
	err := h.messages.GenerateStreamingResponse(
		c.Request.Context(),
		middleware.UserID(c),
		c.Param("sessionId"),
		req.Question,
		func(chunk string) error {
			streamed = true
			if err := writeSSE(c, domain.StreamChunk{Type: "content", Content: chunk}); err != nil {
				return err
			}
			c.Writer.Flush()
			return nil
		},
	)
	if err != nil {
		if !streamed {
			// Nothing went over the wire yet, a plain error response is
			// still possible.
			c.Header("Content-Type", "application/json")
			respondError(c, err)
			return
		}
		writeSSE(c, domain.StreamChunk{Type: "error", Content: "generation failed"})
		c.Writer.Flush()
		return
	}

	writeSSE(c, domain.StreamChunk{Type: "done"})
	c.Writer.Flush()
}

func writeSSE(c *gin.Context, chunk domain.StreamChunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", chunk.Type, data)
	return err
}
