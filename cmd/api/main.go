package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"parking/internal/api"
	"parking/internal/config"
	"parking/internal/logger"
	"parking/internal/repository"
	"parking/internal/seed"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	// Создаем и настраиваем сервер
	server, err := api.NewServer(cfg, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("Failed to create server", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// В режиме memory данных нет, наполняем демо-зонами
	if cfg.StoreDriver == config.StoreDriverMemory {
		if seeder, ok := server.Store().(repository.Seeder); ok {
			res, err := seed.Run(ctx, seeder, seed.DefaultOptions())
			if err != nil {
				logger.Fatal("Failed to seed memory store", "error", err)
			}
			logger.Get().Info("Memory store seeded",
				"user_id", res.UserID, "vehicle_id", res.VehicleID, "zones", len(res.ZoneIDs))
		}
	}

	server.Start(ctx)

	// Создаем HTTP сервер
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.GetRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Get().Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Get().Info("Shutting down server...")

	// Graceful shutdown с таймаутом
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Get().Error("Server forced to shutdown", "error", err)
	}

	// Закрываем соединения
	if err := server.Cleanup(); err != nil {
		logger.Get().Error("Error during cleanup", "error", err)
	}

	logger.Get().Info("Server stopped")
}
