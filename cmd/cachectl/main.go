package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"family-doctor/internal/cache"
	"family-doctor/internal/events"
	"family-doctor/internal/repository"
	"family-doctor/pkg/config"
	"family-doctor/pkg/logger"
	"family-doctor/pkg/postgres"
	"family-doctor/pkg/redisclient"
)

const instanceID = "cachectl"

func main() {
	stats := flag.Bool("stats", false, "print knowledge store and exact cache counters")
	resetExact := flag.Bool("reset-exact", false, "delete every exact cache entry")
	resetSemantic := flag.Bool("reset-semantic", false, "ask running servers to rebuild their semantic index")
	resetAll := flag.Bool("reset-all", false, "unapprove every answer, clear the exact cache and rebuild semantic indexes")
	flag.Parse()

	if !*stats && !*resetExact && !*resetSemantic && !*resetAll {
		flag.Usage()
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logger.Level, cfg.Logger.Format); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	knowledgeRepo := repository.NewKnowledgeRepository(db, appLogger)
	protocolRepo := repository.NewProtocolRepository(db, appLogger)
	notifier := events.NewPromotionNotifier(db, cfg.Notify.Channel, instanceID)

	var exact cache.ExactCache
	if cfg.Redis.Addr != "" {
		redisClient := redisclient.NewClient(ctx, &cfg.Redis, appLogger)
		defer redisClient.Close()
		exact = cache.NewRedisCache(redisClient, cfg.Cache.KeyPrefix, appLogger)
	}

	if *resetAll {
		n, err := knowledgeRepo.UnapproveAll(ctx)
		if err != nil {
			logger.Fatal("Failed to unapprove answers", zap.Error(err))
		}
		logger.Info("Answers unapproved", zap.Int64("count", n))
		*resetExact = true
		*resetSemantic = true
	}

	if *resetExact {
		if exact == nil {
			logger.Warn("REDIS_ADDR is empty, in-process exact caches are only cleared through the admin API")
		} else {
			n, err := exact.Clear(ctx)
			if err != nil {
				logger.Fatal("Failed to clear exact cache", zap.Error(err))
			}
			logger.Info("Exact cache cleared", zap.Int("removed", n))
		}
	}

	if *resetSemantic {
		if err := notifier.NotifyRebuild(ctx); err != nil {
			logger.Fatal("Failed to request semantic rebuild", zap.Error(err))
		}
		logger.Info("Semantic rebuild requested", zap.String("channel", cfg.Notify.Channel))
	}

	if *stats {
		knowledge, err := knowledgeRepo.Stats(ctx)
		if err != nil {
			logger.Fatal("Failed to read knowledge stats", zap.Error(err))
		}
		chunks, err := protocolRepo.Count(ctx)
		if err != nil {
			logger.Fatal("Failed to count protocol chunks", zap.Error(err))
		}
		fmt.Printf("knowledge records: %d (approved %d)\n", knowledge.Total, knowledge.Approved)
		fmt.Printf("protocol chunks:   %d\n", chunks)
		if exact != nil {
			n, err := exact.Len(ctx)
			if err != nil {
				logger.Error("Failed to count exact cache entries", zap.Error(err))
			} else {
				fmt.Printf("exact cache:       %d\n", n)
			}
		}
	}
}
