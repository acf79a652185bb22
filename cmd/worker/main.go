package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/littlesteps/insights/internal/config"
	"github.com/littlesteps/insights/internal/database"
	"github.com/littlesteps/insights/internal/logger"
	"github.com/littlesteps/insights/internal/pipeline"
	"github.com/littlesteps/insights/internal/queue"
	"github.com/littlesteps/insights/internal/services/ai"
	"github.com/littlesteps/insights/internal/workers"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override debug mode if flag is set
	debugMode := cfg.WorkerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("Starting worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
	)

	// Initialize database connection
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("Failed to close database connection", zap.Error(err))
		}
	}()

	zapLogger.Info("Connected to database")

	// Initialize repositories
	observationRepo := database.NewObservationRepository(db)
	recordRepo := database.NewProcessingRecordRepository(db)

	// Initialize RabbitMQ queue
	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("Failed to close RabbitMQ connection", zap.Error(err))
		}
	}()

	zapLogger.Info("Connected to RabbitMQ",
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	// Redis carries the load flag the API reads for decision making
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("Invalid Redis URL", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("Failed to close Redis connection", zap.Error(err))
		}
	}()

	// Create model provider
	provider, err := createModelProvider(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to create model provider", zap.Error(err))
	}

	zapLogger.Info("Initialized model provider",
		zap.String("provider", cfg.AIProvider),
		zap.String("model", cfg.AIModel),
	)

	// Assemble the model gateway with cost tracking, caching, load
	// monitoring, and fallback handling
	pricing := ai.DefaultPricing()
	if cfg.PricingFile != "" {
		loaded, err := ai.LoadPricing(cfg.PricingFile)
		if err != nil {
			zapLogger.Warn("Failed to load pricing file, using defaults",
				zap.String("path", cfg.PricingFile),
				zap.Error(err),
			)
		} else {
			pricing = loaded
		}
	}

	// Every billed call is appended to the shared ledger so the API's usage
	// and budget endpoints see spend from all workers.
	costTracker := ai.NewCostTracker(pricing, zapLogger).WithStore(database.NewUsageRepository(db))
	responseCache := ai.NewResponseCache(ai.DefaultCacheTTL)
	loadMonitor := ai.NewLoadMonitor()
	gateway := ai.NewGateway(provider, costTracker, responseCache, loadMonitor, zapLogger, debugMode)
	fallback := ai.NewFallbackHandler(responseCache, zapLogger)
	executor := ai.NewExecutor(gateway, fallback, zapLogger)

	// Assemble the two-stage pipeline
	readerConfig := ai.DefaultReaderConfig()
	if cfg.AIModel != "" {
		readerConfig.Model = cfg.AIModel
	}
	observerConfig := ai.DefaultObserverConfig()
	if cfg.AIModel != "" {
		observerConfig.Model = cfg.AIModel
	}

	reader := ai.NewReaderAgent(executor, readerConfig, zapLogger)
	observer := ai.NewObserverAgent(executor, observerConfig, zapLogger)

	orchestrator := pipeline.NewOrchestrator(
		observationRepo,
		recordRepo,
		reader,
		observer,
		pipeline.Config{
			ObserverThreshold:  cfg.ObserverThreshold,
			ObserverFetchLimit: cfg.ObserverFetchLimit,
			BatchDelay:         cfg.BatchDelay,
		},
		zapLogger,
	)

	processor := workers.NewPipelineProcessor(orchestrator, jobQueue)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start consuming messages
	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("Failed to start consuming messages", zap.Error(err))
	}

	zapLogger.Info("Worker started, consuming messages from queue")

	// Process messages
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("Message channel closed")
					return
				}

				// Process job
				if err := processor.ProcessJob(ctx, msg); err != nil {
					zapLogger.Error("Failed to process job",
						zap.Error(err),
						zap.String("job_id", msg.GetJob().ID.String()),
						zap.String("job_type", string(msg.GetJob().Type)),
					)
				}
			}
		}
	}()

	// Handle errors
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("Queue error", zap.Error(err))
			}
		}
	}()

	// Publish the load verdict so API-side decisions reflect worker health
	loadPublisher := ai.NewLoadPublisher(loadMonitor, redisClient, 15*time.Second, zapLogger)
	go loadPublisher.Start(ctx)

	// Prune usage records past the retention window once a day
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		usageRepo := database.NewUsageRepository(db)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pruned, err := usageRepo.PruneOlderThan(ctx, time.Now().Add(-ai.UsageRetention))
				if err != nil {
					zapLogger.Error("Usage prune failed", zap.Error(err))
					continue
				}
				if pruned > 0 {
					zapLogger.Info("Pruned usage records", zap.Int64("pruned", pruned))
				}
			}
		}
	}()

	// Periodic batch sweep catches observations that were stored while the
	// worker was down and never got an explicit processing job
	go func() {
		ticker := time.NewTicker(15 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				result, err := orchestrator.ProcessBatch(ctx, cfg.ObserverFetchLimit)
				if err != nil {
					zapLogger.Error("Batch sweep failed", zap.Error(err))
					continue
				}
				if result.Processed > 0 || result.Failed > 0 {
					zapLogger.Info("Batch sweep complete",
						zap.Int("processed", result.Processed),
						zap.Int("failed", result.Failed),
					)
				}
			}
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	zapLogger.Info("Shutdown signal received, stopping worker...")

	// Cancel context to stop processing
	cancel()

	zapLogger.Info("Worker stopped")
}

// createModelProvider creates a model provider based on configuration
func createModelProvider(cfg *config.Config) (ai.ModelProvider, error) {
	providerType := cfg.AIProvider
	if providerType == "" {
		providerType = "openai"
	}

	registry := ai.NewProviderRegistry()
	ai.RegisterOpenAI(registry)

	providerConfig := map[string]string{
		"api_key":  cfg.OpenAIKey,
		"model":    cfg.AIModel,
		"base_url": cfg.AIBaseURL,
	}

	return registry.GetProvider(providerType, providerConfig)
}
