package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"parking/internal/config"
	"parking/internal/database"
	"parking/internal/logger"
	"parking/internal/repository"
	"parking/internal/search"
)

// sync-zones переиндексирует все зоны из Postgres в Elasticsearch
func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	es, err := search.NewElasticsearchClient(cfg.Elasticsearch)
	if err != nil {
		slog.Error("Failed to connect to Elasticsearch", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store := repository.NewPostgresStore(db)
	zones, err := store.ListZones(ctx)
	if err != nil {
		slog.Error("Failed to list zones", "error", err)
		os.Exit(1)
	}

	var failed int
	for i := range zones {
		if err := es.IndexZone(ctx, &zones[i]); err != nil {
			slog.Error("Failed to index zone", "zone_id", zones[i].ID, "error", err)
			failed++
		}
	}

	slog.Info("Zone sync completed", "zones", len(zones), "failed", failed)
	if failed > 0 {
		os.Exit(1)
	}
}
