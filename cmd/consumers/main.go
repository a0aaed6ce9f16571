package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"parking/internal/config"
	"parking/internal/consumers"
	"parking/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	logger.Get().Info("Starting consumers service...")

	// Override NATS client ID for consumers
	cfg.NATS.ClientID = "parking-consumers"

	consumerService, err := consumers.NewConsumerService(cfg)
	if err != nil {
		logger.Fatal("Failed to create consumer service", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumerService.Start(ctx); err != nil {
		logger.Fatal("Failed to start consumers", "error", err)
	}
	logger.Get().Info("Consumers service started successfully")

	<-ctx.Done()
	logger.Get().Info("Shutting down consumers service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := consumerService.Shutdown(shutdownCtx); err != nil {
		logger.Get().Error("Error during shutdown", "error", err)
	}

	logger.Get().Info("Consumers service stopped")
}
