package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/warehouse/config"
	"example.com/warehouse/internal/cache"
	"example.com/warehouse/internal/database"
	"example.com/warehouse/internal/messaging"
	"example.com/warehouse/internal/metrics"
	"example.com/warehouse/internal/repository"
	"example.com/warehouse/internal/search"
	"example.com/warehouse/internal/services"
	"example.com/warehouse/internal/tracing"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that consumes incoming orders from Azure Service Bus and publishes reorder alerts`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Azure.ConnectionString == "" {
		return errors.New("worker requires an Azure Service Bus connection string")
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

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
	msgBus, err := messaging.NewClient(cfg.Azure)
	if err != nil {
		return err
	}
	defer msgBus.Close(context.Background())

	// Initialize metrics
	metricsCollector := metrics.NewMetrics()

	outwardService := services.NewOutwardService(repo, redisCache, msgBus, elasticClient, metricsCollector, tracer, cfg.Azure.ErpQueueName)
	productService := services.NewProductService(repo, redisCache, metricsCollector, tracer)

	// Consume incoming orders from the sales channel queue
	g.Go(func() error {
		log.Info().Str("queue", cfg.Azure.OrdersQueueName).Msg("Starting incoming order consumer")
		return consumeIncomingOrders(ctx, msgBus, outwardService, metricsCollector, cfg)
	})

	// Periodically scan for products below their reorder level
	g.Go(func() error {
		log.Info().Dur("interval", cfg.Worker.ReorderScanInterval).Msg("Starting reorder level scan job")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Worker.ReorderScanInterval),
			gocron.NewTask(func() {
				err := metricsCollector.TimeOperation("worker.reorder_scan", func() error {
					return publishReorderAlerts(ctx, productService, msgBus, cfg.Azure.ErpQueueName)
				})
				if err != nil {
					log.Error().Err(err).Msg("Reorder level scan failed")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		<-ctx.Done()

		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}

// consumeIncomingOrders pulls order messages off the queue and creates
// pending sales orders from them. Malformed or invalid messages are
// completed so they do not wedge the queue; transient failures are
// abandoned for redelivery.
func consumeIncomingOrders(
	ctx context.Context,
	msgBus messaging.Client,
	outwardService services.OutwardService,
	m *metrics.Metrics,
	cfg config.Config,
) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var msgs []messaging.Message
		err := messaging.RetryWithBackoff(ctx, func() error {
			var recvErr error
			msgs, recvErr = msgBus.ReceiveMessages(ctx, cfg.Azure.OrdersQueueName, cfg.Worker.ReceiveBatchSize)
			return recvErr
		}, 5)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("Failed to receive order messages")
			time.Sleep(5 * time.Second)
			continue
		}

		for _, msg := range msgs {
			if err := handleOrderMessage(ctx, msg, outwardService); err != nil {
				log.Error().Err(err).Msg("Failed to handle order message")
				m.IncrementCounter("worker.order_messages_failed")
				if rejectErr := msg.Reject(ctx); rejectErr != nil {
					log.Error().Err(rejectErr).Msg("Failed to abandon order message")
				}
				continue
			}

			m.IncrementCounter("worker.order_messages_processed")
			if err := msg.Complete(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to complete order message")
			}
		}
	}
}

func handleOrderMessage(ctx context.Context, msg messaging.Message, outwardService services.OutwardService) error {
	body, err := msg.Body()
	if err != nil {
		log.Warn().Err(err).Msg("Dropping order message without body")
		return nil
	}

	var req services.CreateOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		log.Warn().Err(err).Msg("Dropping malformed order message")
		return nil
	}

	order, err := outwardService.CreateOrder(ctx, req)
	if err != nil {
		// Bad payloads will never succeed; drop them instead of redelivering
		if services.IsInvalidArgument(err) {
			log.Warn().Err(err).Str("customer", req.CustomerName).Msg("Dropping invalid order message")
			return nil
		}
		return err
	}

	log.Info().
		Str("order_id", order.ID.String()).
		Str("customer", order.CustomerName).
		Msg("Order created from queue message")

	return nil
}

// publishReorderAlerts finds products below their reorder level and
// notifies the ERP queue about each
func publishReorderAlerts(
	ctx context.Context,
	productService services.ProductService,
	msgBus messaging.Client,
	erpQueue string,
) error {
	products, err := productService.ReorderAlerts(ctx)
	if err != nil {
		return err
	}

	if len(products) == 0 {
		return nil
	}

	log.Info().Int("count", len(products)).Msg("Products below reorder level")

	for _, product := range products {
		alert := services.ReorderAlert{
			Type:           services.EventTypeReorderAlert,
			OccurredAt:     time.Now().UTC(),
			ProductID:      product.ID,
			Sku:            product.SKU,
			Name:           product.Name,
			QuantityOnHand: product.QuantityOnHand,
			ReorderLevel:   product.ReorderLevel,
			Shortage:       product.ReorderLevel - product.QuantityOnHand,
		}

		if err := msgBus.PublishMessage(ctx, alert, erpQueue); err != nil {
			log.Warn().
				Err(err).
				Str("sku", product.SKU).
				Msg("Failed to publish reorder alert")
		}
	}

	return nil
}
