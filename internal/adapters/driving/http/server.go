package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"

	"github.com/adoptapet/petsearch-core/internal/core/ports/driven"
	"github.com/adoptapet/petsearch-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	cacheTTL   time.Duration

	// Services
	searchService driving.SearchService

	// Infrastructure
	searchIndex driven.SearchIndex
	taskQueue   driven.TaskQueue
	resultCache driven.ResultCache // can be nil
	db          Pinger             // PostgreSQL health check (can be nil)
	redisClient Pinger             // Redis health check (can be nil)
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	Version     string
	CORSOrigins []string
	CacheTTL    time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:        "0.0.0.0",
		Port:        8080,
		Version:     "dev",
		CORSOrigins: []string{"*"},
		CacheTTL:    5 * time.Minute,
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	searchService driving.SearchService,
	searchIndex driven.SearchIndex,
	taskQueue driven.TaskQueue,
	resultCache driven.ResultCache, // can be nil
	db Pinger, // can be nil
	redisClient Pinger, // can be nil
) *Server {
	s := &Server{
		router:        http.NewServeMux(),
		version:       cfg.Version,
		cacheTTL:      cfg.CacheTTL,
		searchService: searchService,
		searchIndex:   searchIndex,
		taskQueue:     taskQueue,
		resultCache:   resultCache,
		db:            db,
		redisClient:   redisClient,
	}

	if s.cacheTTL <= 0 {
		s.cacheTTL = 5 * time.Minute
	}

	corsMiddleware := cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	})

	handler := NewRecoveryMiddleware().Handler(
		NewLoggingMiddleware().Handler(
			corsMiddleware(s.router)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Search endpoints
	s.router.HandleFunc("GET /api/v1/search", s.handleSearch)
	s.router.HandleFunc("POST /api/v1/search/image", s.handleImageSearch)

	// Stats endpoint
	s.router.HandleFunc("GET /api/v1/stats", s.handleStats)

	// Admin endpoints
	s.router.HandleFunc("POST /api/v1/admin/reindex", s.handleReindex)
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
