package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"batch-health/internal/api"
	"batch-health/internal/cache"
	"batch-health/internal/config"
	"batch-health/internal/logging"
	"batch-health/internal/publish"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func run() error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	redisClient, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.ReportTTL)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer redisClient.Close()

	var publisher api.ReportPublisher
	if len(cfg.KafkaBrokers) > 0 {
		p := publish.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer p.Close()
		publisher = p
		logger.Info("publishing reports", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	logger.Info("rules loaded", zap.Strings("rules", config.RuleNames(cfg.Rules)))

	server := api.NewServer(cfg, redisClient, publisher, logger)
	return server.Run(cfg.Addr)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
