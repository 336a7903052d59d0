// Package api provides the HTTP API server and handlers for the Circulate
// lending subsystem.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/circulateapp/circulate-server/internal/search"
	"github.com/circulateapp/circulate-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store           *store.Store
	search          *search.Index
	services        *Services
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
	deskRateLimiter *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, idx *search.Index, services *Services, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	s := &Server{
		store:           st,
		search:          idx,
		services:        services,
		router:          router,
		logger:          logger,
		deskRateLimiter: NewRateLimiter(120, time.Minute, 30),
	}

	// Throttle mutating desk operations before they reach the handlers.
	router.Use(DeskRateLimitMiddleware(s.deskRateLimiter, logger))

	humaConfig := huma.DefaultConfig("Circulate API", "1.0.0")
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerBookRoutes()
	s.registerLoanRoutes()
	s.registerStudentRoutes()
	s.registerIssuerRoutes()
	s.registerReportRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases server-held resources.
func (s *Server) Close() {
	s.deskRateLimiter.Stop()
}

// === Shared DTOs ===

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message" doc:"Confirmation message"`
}

// MessageOutput wraps a message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// PaginationInput carries cursor pagination query parameters.
type PaginationInput struct {
	Limit  int    `query:"limit" doc:"Maximum items per page"`
	Cursor string `query:"cursor" doc:"Opaque cursor from a previous page"`
}

func (p PaginationInput) params() store.PaginationParams {
	params := store.DefaultPaginationParams()
	if p.Limit > 0 {
		params.Limit = p.Limit
	}
	params.Cursor = p.Cursor
	params.Validate()
	return params
}
