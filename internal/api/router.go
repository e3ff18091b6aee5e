package api

import (
	"github.com/gin-gonic/gin"

	"github.com/chatrag/chatrag/internal/api/middleware"
	"github.com/chatrag/chatrag/internal/service"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	APIKey       string
	JWTSecret    string
	AllowOrigins []string
}

// SetupRouter sets up the Gin router
func SetupRouter(
	sessionService *service.SessionService,
	messageService *service.MessageService,
	documentService *service.DocumentService,
	cfg RouterConfig,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS middleware
	r.Use(middleware.CORS(cfg.AllowOrigins))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Session and message APIs require an authenticated user
	auth := middleware.BearerAuth(cfg.JWTSecret)

	sessionsHandler := NewSessionsHandler(sessionService)
	sessionsGroup := r.Group("/sessions")
	sessionsGroup.Use(auth)
	sessionsHandler.RegisterRoutes(sessionsGroup)

	messagesHandler := NewMessagesHandler(messageService)
	messagesGroup := r.Group("/messages")
	messagesGroup.Use(auth)
	messagesHandler.RegisterRoutes(messagesGroup)

	// Document API requires the service API key
	documentsHandler := NewDocumentsHandler(documentService)
	documentsGroup := r.Group("/documents")
	documentsGroup.Use(middleware.APIKey(cfg.APIKey))
	documentsHandler.RegisterRoutes(documentsGroup)

	return r
}
