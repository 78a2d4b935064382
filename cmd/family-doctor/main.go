package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"family-doctor/internal/api"
	"family-doctor/internal/api/handlers"
	"family-doctor/internal/cache"
	"family-doctor/internal/embedding"
	"family-doctor/internal/events"
	"family-doctor/internal/guard"
	"family-doctor/internal/llm"
	"family-doctor/internal/repository"
	"family-doctor/internal/semantic"
	"family-doctor/internal/service"
	"family-doctor/pkg/config"
	"family-doctor/pkg/logger"
	"family-doctor/pkg/postgres"
	"family-doctor/pkg/redisclient"
)

// @title Family Doctor Diagnosis API
// @version 1.0
// @description Tiered diagnosis cache with clinician review.

// @host localhost:8080
// @BasePath /

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level, cfg.Logger.Format); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	instanceID := uuid.NewString()
	appLogger := logger.Get().With(zap.String("instance", instanceID))
	appLogger.Info("Starting family doctor service")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize database
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db, appLogger); err != nil {
		appLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Initialize repositories
	knowledgeRepo := repository.NewKnowledgeRepository(db, appLogger)
	protocolRepo := repository.NewProtocolRepository(db, appLogger)

	// Exact cache
	var exact cache.ExactCache
	if cfg.Redis.Addr == "" {
		appLogger.Warn("REDIS_ADDR is empty, using in-process exact cache")
		exact = cache.NewMemoryCache(cfg.Cache.TTL, 10*time.Minute, appLogger)
	} else {
		redisClient := redisclient.NewClient(ctx, &cfg.Redis, appLogger)
		defer redisClient.Close()
		exact = cache.NewRedisCache(redisClient, cfg.Cache.KeyPrefix, appLogger)
	}

	// Retrieval and generation
	embedder := embedding.NewOpenAIEmbedder(&cfg.OpenAI, appLogger)
	index := semantic.NewIndex(embedder, cfg.Semantic.Threshold, appLogger)

	llmClient, err := llm.NewClient(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize LLM client", zap.Error(err))
	}
	defer llmClient.Close()

	sanitizer := guard.New(cfg.Guard.MaxInputRunes, cfg.Guard.MaxOutputRunes)

	publisher := events.NewPublisher(cfg.Kafka, appLogger)
	defer publisher.Close()

	// Interfaces stay nil when replica sync is disabled.
	var notifier service.ReplicaNotifier
	var rebuildNotifier service.RebuildNotifier
	var promotionNotifier *events.PromotionNotifier
	if cfg.Notify.Enabled {
		promotionNotifier = events.NewPromotionNotifier(db, cfg.Notify.Channel, instanceID)
		notifier = promotionNotifier
		rebuildNotifier = promotionNotifier
	}

	// Initialize services
	generationService := service.NewGenerationService(protocolRepo, embedder, llmClient, cfg.RAG.TopK, appLogger)
	diagnosisService := service.NewDiagnosisService(exact, index, knowledgeRepo, generationService, sanitizer, publisher,
		cfg.Cache.TTL, cfg.LLM.GenerationTimeout, appLogger)
	reviewService := service.NewReviewService(knowledgeRepo, exact, index, sanitizer, notifier, publisher, cfg.Cache.TTL, appLogger)
	adminService := service.NewAdminService(knowledgeRepo, protocolRepo, exact, index, rebuildNotifier, appLogger)
	intentClassifier := service.NewIntentClassifier(llmClient, appLogger)

	// The semantic index only holds what the knowledge store can replay
	go adminService.BootstrapSemantic(ctx, 5*time.Second, 5*time.Minute)

	if promotionNotifier != nil {
		resync := func(ctx context.Context) {
			if _, err := adminService.ResyncSemantic(ctx); err != nil {
				appLogger.Error("Semantic index resync failed", zap.Error(err))
			}
		}
		listener := events.NewPromotionListener(cfg.Database.DSN(), cfg.Notify.Channel, instanceID,
			reviewService.SyncPromotion, resync, appLogger)
		go func() {
			if err := listener.Run(ctx); err != nil {
				appLogger.Error("Promotion listener stopped", zap.Error(err))
			}
		}()
	}

	// Initialize handlers
	diagnosisHandler := handlers.NewDiagnosisHandler(diagnosisService, intentClassifier, appLogger)
	reviewHandler := handlers.NewReviewHandler(reviewService, appLogger)
	adminHandler := handlers.NewAdminHandler(adminService, appLogger)

	// Setup router
	app := api.SetupRouter(diagnosisHandler, reviewHandler, adminHandler, &cfg.Server, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	stop()
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
