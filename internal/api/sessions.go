package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatrag/chatrag/internal/api/middleware"
	"github.com/chatrag/chatrag/internal/domain"
	"github.com/chatrag/chatrag/internal/service"
)

// SessionsHandler handles session API requests
type SessionsHandler struct {
	sessions *service.SessionService
}

// NewSessionsHandler creates a new sessions handler
func NewSessionsHandler(sessions *service.SessionService) *SessionsHandler {
	return &SessionsHandler{sessions: sessions}
}

// RegisterRoutes registers session routes
func (h *SessionsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.Create)
	r.GET("", h.List)
	r.PUT("/:id/rename", h.Rename)
	r.POST("/:id/favorite", h.ToggleFavorite)
	r.DELETE("/:id", h.Delete)
}

// Create creates a new session for the caller
func (h *SessionsHandler) Create(c *gin.Context) {
	var req domain.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.sessions.CreateSession(middleware.UserID(c), req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// List returns the caller's sessions, newest first
func (h *SessionsHandler) List(c *gin.Context) {
	sessions, err := h.sessions.GetRecentSessions(middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if sessions == nil {
		sessions = []*domain.Session{}
	}
	c.JSON(http.StatusOK, sessions)
}

// Rename sets a new title on a session
func (h *SessionsHandler) Rename(c *gin.Context) {
	var req domain.RenameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.sessions.RenameSession(middleware.UserID(c), c.Param("id"), req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// ToggleFavorite flips the favorite flag on a session
func (h *SessionsHandler) ToggleFavorite(c *gin.Context) {
	session, err := h.sessions.ToggleFavorite(middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Delete removes a session and its messages
func (h *SessionsHandler) Delete(c *gin.Context) {
	if err := h.sessions.DeleteSession(middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session deleted"})
}
