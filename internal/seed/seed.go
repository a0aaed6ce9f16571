// Package seed fills a store with zones, slots, price tiers and a demo
// driver. Used by cmd/generator and by the API in memory mode.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"parking/internal/models"
	"parking/internal/repository"
)

type Options struct {
	Zones        int
	Rows         int
	Cols         int
	HourlyPrice  int64
	DailyPrice   int64
	MonthlyPrice int64
	DryRun       bool
}

func DefaultOptions() Options {
	return Options{
		Zones:        3,
		Rows:         4,
		Cols:         10,
		HourlyPrice:  20000,
		DailyPrice:   150000,
		MonthlyPrice: 2500000,
	}
}

// Result lists what was created.
type Result struct {
	UserID    int64
	VehicleID int64
	ZoneIDs   []int64
	Slots     int
}

var zoneNames = []struct{ name, address string }{
	{"Central Plaza", "1 Central Ave"},
	{"Riverside Garage", "15 River Rd"},
	{"Airport P2", "Terminal 2, Departures"},
	{"Old Town", "8 Market Sq"},
	{"Business Park", "200 Tech Blvd"},
}

// Run seeds the store. With DryRun it only logs the plan.
func Run(ctx context.Context, s repository.Seeder, opts Options) (*Result, error) {
	if opts.Zones <= 0 || opts.Rows <= 0 || opts.Cols <= 0 {
		return nil, fmt.Errorf("zones, rows and cols must be positive")
	}

	slog.Info("Seeding parking data",
		"zones", opts.Zones, "rows", opts.Rows, "cols", opts.Cols, "dry_run", opts.DryRun)
	if opts.DryRun {
		return &Result{Slots: opts.Zones * opts.Rows * opts.Cols}, nil
	}

	res := &Result{}

	user := models.User{Email: "driver@parking.local", Name: "Demo Driver", Phone: "+10000000000"}
	if err := s.CreateUser(ctx, &user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	vehicle := models.Vehicle{UserID: user.ID, Plate: "DEMO-001", Type: "car"}
	if err := s.CreateVehicle(ctx, &vehicle); err != nil {
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}
	res.UserID, res.VehicleID = user.ID, vehicle.ID

	validFrom := time.Now().AddDate(0, 0, -1)
	for i := 0; i < opts.Zones; i++ {
		meta := zoneNames[i%len(zoneNames)]
		name := meta.name
		if i >= len(zoneNames) {
			name = fmt.Sprintf("%s %d", meta.name, i/len(zoneNames)+1)
		}

		zone := models.Zone{Name: name, Address: meta.address, GridRows: opts.Rows, GridCols: opts.Cols}
		if err := s.CreateZone(ctx, &zone); err != nil {
			return nil, fmt.Errorf("failed to create zone %q: %w", name, err)
		}
		res.ZoneIDs = append(res.ZoneIDs, zone.ID)

		for y := 0; y < opts.Rows; y++ {
			for x := 0; x < opts.Cols; x++ {
				slot := models.Slot{
					ZoneID:    zone.ID,
					Code:      fmt.Sprintf("%c%02d", 'A'+y, x+1),
					PositionX: x,
					PositionY: y,
				}
				if err := s.CreateSlot(ctx, &slot); err != nil {
					return nil, fmt.Errorf("failed to create slot %s in zone %d: %w", slot.Code, zone.ID, err)
				}
				res.Slots++
			}
		}

		for tt, amount := range map[models.TicketType]int64{
			models.TicketHourly:  opts.HourlyPrice,
			models.TicketDaily:   opts.DailyPrice,
			models.TicketMonthly: opts.MonthlyPrice,
		} {
			if amount <= 0 {
				continue
			}
			price := models.TicketPrice{ZoneID: zone.ID, TicketType: tt, Amount: amount, ValidFrom: validFrom}
			if err := s.CreateTicketPrice(ctx, &price); err != nil {
				return nil, fmt.Errorf("failed to create %s price for zone %d: %w", tt, zone.ID, err)
			}
		}

		slog.Info("Seeded zone", "zone_id", zone.ID, "name", name, "slots", opts.Rows*opts.Cols)
	}

	return res, nil
}
