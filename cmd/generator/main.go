package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"parking/internal/config"
	"parking/internal/database"
	"parking/internal/logger"
	"parking/internal/repository"
	"parking/internal/seed"
)

var (
	zones   = flag.Int("zones", 3, "Number of zones to create")
	rows    = flag.Int("rows", 4, "Slot rows per zone")
	cols    = flag.Int("cols", 10, "Slot columns per zone")
	hourly  = flag.Int64("hourly", 20000, "Hourly ticket price")
	daily   = flag.Int64("daily", 150000, "Daily ticket price")
	monthly = flag.Int64("monthly", 2500000, "Monthly ticket price")
	dryRun  = flag.Bool("dry-run", false, "Show what would be generated without making changes")
)

func main() {
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Starting zone generator...")

	opts := seed.Options{
		Zones:        *zones,
		Rows:         *rows,
		Cols:         *cols,
		HourlyPrice:  *hourly,
		DailyPrice:   *daily,
		MonthlyPrice: *monthly,
		DryRun:       *dryRun,
	}

	var store repository.Seeder
	if !opts.DryRun {
		db, err := database.Connect(cfg.Database)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.RunMigrations(); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
		store = repository.NewPostgresStore(db)
	}

	res, err := seed.Run(context.Background(), store, opts)
	if err != nil {
		slog.Error("Failed to generate zones", "error", err)
		os.Exit(1)
	}

	slog.Info("Zone generation completed successfully!",
		"user_id", res.UserID, "vehicle_id", res.VehicleID, "zones", res.ZoneIDs, "slots", res.Slots)
}
