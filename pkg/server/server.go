package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/soundprediction/predicato/pkg/catalog"
	"github.com/soundprediction/predicato/pkg/chatstore"
	"github.com/soundprediction/predicato/pkg/config"
	"github.com/soundprediction/predicato/pkg/indexer"
	"github.com/soundprediction/predicato/pkg/rag"
	"github.com/soundprediction/predicato/pkg/server/handlers"
)

// Server wires the RAG Service Facade, the Index-Status Catalog, the Chat
// Session Store and the Background Indexer into one HTTP API.
type Server struct {
	config *config.Config
	router *chi.Mux
	server *http.Server

	rag     *rag.Service
	catalog *catalog.Catalog
	chat    *chatstore.Store
	indexer *indexer.Indexer
}

// New creates a new server instance. idx may be nil when auto-indexing is
// disabled.
func New(cfg *config.Config, svc *rag.Service, cat *catalog.Catalog, chat *chatstore.Store, idx *indexer.Indexer) *Server {
	return &Server{
		config:  cfg,
		rag:     svc,
		catalog: cat,
		chat:    chat,
		indexer: idx,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	// Create router
	s.router = chi.NewRouter()

	// Add middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(corsMiddleware)

	// Setup routes
	s.setupRoutes()

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  secondsOr(s.config.Server.ReadTimeoutSec, 30) * time.Second,
		WriteTimeout: secondsOr(s.config.Server.WriteTimeoutSec, 60) * time.Second,
	}
}

func secondsOr(v, fallback int) time.Duration {
	if v <= 0 {
		return time.Duration(fallback)
	}
	return time.Duration(v)
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	// Create handlers
	healthHandler := handlers.NewHealthHandler(s.catalog, s.rag)
	docsHandler := handlers.NewDocumentsHandler(s.config.Storage.UploadDir, s.catalog, s.rag, s.indexer)
	queryHandler := handlers.NewQueryHandler(s.rag, s.config.Storage.UploadDir)
	chatHandler := handlers.NewChatHandler(s.rag, s.chat)
	graphHandler := handlers.NewGraphHandler(s.rag)
	configHandler := handlers.NewConfigHandler(s.config)

	filesHandler, err := handlers.NewFilesHandler(s.config.Storage.UploadDir, s.config.Storage.WorkingDir)
	if err != nil {
		log.Fatalf("failed to build files handler: %v", err)
	}

	// Health endpoints
	s.router.Get("/health", healthHandler.HealthCheck)
	s.router.Get("/healthcheck", healthHandler.HealthCheck) // Legacy endpoint
	s.router.Get("/ready", healthHandler.ReadinessCheck)
	s.router.Get("/live", healthHandler.LivenessCheck) // Kubernetes liveness probe
	s.router.Get("/health/detailed", healthHandler.DetailedHealthCheck)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Post("/upload", docsHandler.Upload)
			r.Post("/process", docsHandler.Process)
			r.Post("/upload-and-process", docsHandler.UploadAndProcess)
			r.Get("/list", docsHandler.List)
			r.Get("/details", docsHandler.Details)
			r.Get("/index-status", docsHandler.IndexStatus)
			r.Post("/trigger-index", docsHandler.TriggerIndex)
			r.Delete("/delete/{filename}", func(w http.ResponseWriter, r *http.Request) {
				docsHandler.Delete(w, r, chi.URLParam(r, "filename"))
			})
		})

		r.Route("/query", func(r chi.Router) {
			r.Post("/", queryHandler.Query)
			r.Post("/multimodal", queryHandler.Multimodal)
			r.Post("/conversation", queryHandler.Conversation)
		})

		r.Post("/chat", chatHandler.Chat)

		r.Route("/graph", func(r chi.Router) {
			r.Get("/data", graphHandler.Data)
			r.Get("/stats", graphHandler.Stats)
		})

		r.Get("/config", configHandler.Current)
		r.Get("/files", filesHandler.Get)
	})
}

// Start starts the server, including the Background Indexer if configured.
func (s *Server) Start() error {
	if s.indexer != nil {
		s.indexer.Start(context.Background())
	}
	log.Printf("Starting server on %s\n", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the server and the Background Indexer gracefully.
func (s *Server) Stop(ctx context.Context) error {
	log.Println("Stopping server...")
	if s.indexer != nil {
		s.indexer.Stop()
	}
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
