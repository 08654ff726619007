package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tomasmach/photo-triage/internal/ai"
	"github.com/tomasmach/photo-triage/internal/catalog"
	"github.com/tomasmach/photo-triage/internal/recognition"
	"github.com/tomasmach/photo-triage/internal/scan"
	"github.com/tomasmach/photo-triage/internal/similarity"
	"github.com/tomasmach/photo-triage/internal/web/middleware"
)

// Deps carries everything the server's handlers need. All collaborators
// are injected; the server owns none of them.
type Deps struct {
	Media   catalog.MediaStore
	Faces   catalog.FaceStore
	Groups  catalog.GroupStore
	Vectors catalog.VectorIndex

	Recognition *recognition.Engine
	Similarity  *similarity.Engine
	Scanner     *scan.Scanner

	// AIProvider is optional; classification routes are only registered
	// when it is set.
	AIProvider ai.Provider
	// Labels is the classification label set offered to the AI provider.
	Labels []string
	// SimilarityThreshold is the default cosine distance cutoff.
	SimilarityThreshold float64
}

// Server represents the web server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	deps       Deps
}

// NewServer creates a new web server
func NewServer(host string, port int, deps Deps) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		deps:   deps,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(5 * time.Minute))
	r.Use(middleware.CORS())

	s.setupRoutes()

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Long timeout for SSE and scans
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
