package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/warehouse/config"
	"example.com/warehouse/internal/api"
	"example.com/warehouse/internal/cache"
	"example.com/warehouse/internal/database"
	"example.com/warehouse/internal/messaging"
	"example.com/warehouse/internal/metrics"
	"example.com/warehouse/internal/repository"
	"example.com/warehouse/internal/search"
	"example.com/warehouse/internal/services"
	"example.com/warehouse/internal/tracing"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server exposing the fulfillment, catalog and supplier endpoints`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Initialize database
	db, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.AutoMigrate(db); err != nil {
		return err
	}

	repo := repository.NewRepository(db)

	// Initialize cache
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
	}
	defer redisCache.Close()

	// Initialize tracer
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer, _ = tracing.NewTracer(config.TracingConfig{})
	}
	defer tracer.Close()

	// Initialize Elasticsearch client
	var elasticClient *search.ElasticClient
	if cfg.Elastic.URL != "" {
		elasticClient, err = search.NewElasticClient(cfg.Elastic)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search indexing")
			elasticClient = nil
		}
	}

	// Initialize message bus
	var msgBus messaging.Client
	if cfg.Azure.ConnectionString != "" {
		msgBus, err = messaging.NewClient(cfg.Azure)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize message bus, continuing without event publishing")
			msgBus = nil
		} else {
			defer msgBus.Close(context.Background())
		}
	} else {
		log.Warn().Msg("No Service Bus connection string configured, event publishing disabled")
	}

	// Initialize metrics
	metricsCollector := metrics.NewMetrics()
	metricsCollector.SetHealth("database", true)

	// Initialize services
	svcs := api.Services{
		Inward:   services.NewInwardService(repo, redisCache, msgBus, elasticClient, metricsCollector, tracer, cfg.Azure.ErpQueueName),
		Outward:  services.NewOutwardService(repo, redisCache, msgBus, elasticClient, metricsCollector, tracer, cfg.Azure.ErpQueueName),
		Products: services.NewProductService(repo, redisCache, metricsCollector, tracer),
		Supplier: services.NewSupplierService(repo, metricsCollector, tracer),
		Auth:     services.NewAuthService(repo, metricsCollector, cfg.Auth),
		Search:   elasticClient,
	}

	server := api.NewServer(cfg, svcs, metricsCollector, tracer)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
			stop()
		}
	}()

	<-ctx.Done()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("API server stopped")
	return nil
}
