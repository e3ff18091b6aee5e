package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/chatrag/chatrag/internal/api"
	"github.com/chatrag/chatrag/internal/config"
	"github.com/chatrag/chatrag/internal/embedding"
	"github.com/chatrag/chatrag/internal/llm"
	"github.com/chatrag/chatrag/internal/repository"
	"github.com/chatrag/chatrag/internal/service"
	"github.com/chatrag/chatrag/internal/vectorstore"
)

var (
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	// Load .env if present; real env vars win
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := repository.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	sessionRepo := repository.NewSessionRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	// Initialize vector store. When the index or embedding credentials are
	// missing the store runs disabled and chat falls back to plain generation.
	var store *vectorstore.Store
	if cfg.VectorEnabled() {
		embedder := embedding.NewClient(embedding.Config{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.EmbeddingModel,
		})
		index := vectorstore.NewQdrant(vectorstore.QdrantConfig{
			URL:        cfg.Vector.URL,
			APIKey:     cfg.Vector.APIKey,
			Collection: cfg.Vector.Collection,
			Timeout:    cfg.Vector.Timeout,
		})
		store = vectorstore.New(embedder, index, logger)
	} else {
		logger.Warn("Vector backend not configured, running without retrieval")
		store = vectorstore.NewDisabled(logger)
	}

	// Initialize LLM client
	llmClient := llm.NewClient(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})

	// Initialize services
	ragChain := service.NewRAGChain(store, llmClient, cfg.RAG.TopK, logger)

	sessionService := service.NewSessionService(sessionRepo, logger)
	messageService := service.NewMessageService(
		sessionRepo,
		messageRepo,
		ragChain,
		llmClient,
		cfg.LLM.Model,
		logger,
	)
	documentService := service.NewDocumentService(store, service.DocumentOptions{
		ChunkSize:      cfg.RAG.ChunkSize,
		ChunkOverlap:   cfg.RAG.ChunkOverlap,
		ScoreThreshold: cfg.RAG.ScoreThreshold,
	}, logger)

	// Setup router
	router := api.SetupRouter(sessionService, messageService, documentService, api.RouterConfig{
		APIKey:       cfg.Auth.APIKey,
		JWTSecret:    cfg.Auth.JWTSecret,
		AllowOrigins: []string{"*"},
	})

	// Create HTTP server. Write timeout stays generous because the stream
	// endpoint holds the response open while tokens arrive.
	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting chatrag server",
			zap.String("address", cfg.Address()),
			zap.Bool("vector_enabled", store.Ready()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
