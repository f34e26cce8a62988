// Package api serves the ETS HTTP API: huma operations mounted on a chi
// router, plus the raw SSE event stream.
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

	"github.com/ethereum-tag-service/ets-server/internal/http/response"
	"github.com/ethereum-tag-service/ets-server/internal/sse"
	"github.com/ethereum-tag-service/ets-server/internal/store"
)

// Version is reported in the OpenAPI document and the health response.
const Version = "1.0.0"

// DocumentCounter reports the size of the tag search index.
type DocumentCounter interface {
	DocumentCount() (uint64, error)
}

// Options tunes the HTTP surface.
type Options struct {
	CORSAllowedOrigins []string

	// Token endpoint limit per client IP. Zero values use the defaults.
	AuthRatePerMinute int
	AuthBurst         int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store           store.Store
	services        *Services
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
	sseManager      *sse.Manager
	sseHandler      http.Handler
	searchIndex     DocumentCounter
	authRateLimiter *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
// searchIndex may be nil when search is disabled.
func NewServer(
	st store.Store,
	services *Services,
	sseManager *sse.Manager,
	searchIndex DocumentCounter,
	opts Options,
	logger *slog.Logger,
) *Server {
	if opts.AuthRatePerMinute <= 0 {
		opts.AuthRatePerMinute = 20
	}
	if opts.AuthBurst <= 0 {
		opts.AuthBurst = 10
	}
	if len(opts.CORSAllowedOrigins) == 0 {
		opts.CORSAllowedOrigins = []string{"*"}
	}

	router := chi.NewRouter()

	s := &Server{
		store:           st,
		services:        services,
		router:          router,
		logger:          logger,
		sseManager:      sseManager,
		sseHandler:      sse.NewHandler(sseManager, logger),
		searchIndex:     searchIndex,
		authRateLimiter: NewRateLimiter(opts.AuthRatePerMinute, time.Minute, opts.AuthBurst),
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(authMiddleware(services.Auth))

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "route not found", logger)
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, logger)
	})

	RegisterErrorHandler()
	s.api = humachi.New(router, newAPIConfig())

	s.registerRoutes()

	return s
}

func newAPIConfig() huma.Config {
	config := huma.DefaultConfig("Ethereum Tag Service", Version)
	config.Info.Description = "Tagging records, fees and accruals for the Ethereum Tag Service."
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	return config
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerTaggingRoutes()
	s.registerAccrualRoutes()
	s.registerRelayerRoutes()
	s.registerTagRoutes()
	s.registerTargetRoutes()

	// The event stream is long-lived text/event-stream, outside huma.
	s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, e.g. for dumping the OpenAPI document.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases background resources owned by the server.
func (s *Server) Close() {
	s.authRateLimiter.Stop()
}
