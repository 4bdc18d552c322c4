package api

import (
	"context"
	"net/http"
	"time"

	"example.com/warehouse/config"
	"example.com/warehouse/internal/api/handlers"
	"example.com/warehouse/internal/api/middleware"
	"example.com/warehouse/internal/metrics"
	"example.com/warehouse/internal/search"
	"example.com/warehouse/internal/services"
	"example.com/warehouse/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Services bundles the business services the server exposes. Search may
// be nil when Elasticsearch is not configured.
type Services struct {
	Inward   services.InwardService
	Outward  services.OutwardService
	Products services.ProductService
	Supplier services.SupplierService
	Auth     services.AuthService
	Search   *search.ElasticClient
}

// Server represents the HTTP server
type Server struct {
	config     config.Config
	router     *gin.Engine
	httpServer *http.Server
	services   Services
	metrics    *metrics.Metrics
	tracer     tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(cfg config.Config, svcs Services, m *metrics.Metrics, tracer tracing.Tracer) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		config:   cfg,
		services: svcs,
		metrics:  m,
		tracer:   tracer,
	}

	router := server.setupRouter()
	server.router = router

	server.httpServer = &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router,
		ReadTimeout:  cfg.ServerTimeout,
		WriteTimeout: cfg.ServerTimeout,
	}

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := handlers.NewAuthHandler(s.services.Auth)

	public := router.Group("/api")
	authHandler.RegisterPublicRoutes(public)

	protected := router.Group("/api")
	protected.Use(middleware.Authenticate(s.services.Auth))

	authHandler.RegisterProtectedRoutes(protected)
	handlers.NewInwardHandler(s.services.Inward, s.tracer).RegisterRoutes(protected)
	handlers.NewOutwardHandler(s.services.Outward, s.tracer).RegisterRoutes(protected)
	handlers.NewProductHandler(s.services.Products).RegisterRoutes(protected)
	handlers.NewSupplierHandler(s.services.Supplier).RegisterRoutes(protected)
	handlers.NewSearchHandler(s.services.Search).RegisterRoutes(protected)
	handlers.NewMetricsHandler(s.metrics).RegisterRoutes(protected)

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
