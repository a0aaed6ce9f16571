package service

import (
	"context"
	"fmt"
	"math"
	"time"

	apperrors "parking/internal/errors"
	"parking/internal/models"
	"parking/internal/repository"
)

const (
	day   = 24 * time.Hour
	month = 30 // days billed as one monthly ticket
)

// Quote prices a booking from the zone's tier valid at the given time.
// Single windows are billed per started hour. Subscriptions are billed per
// day, or per started 30-day month once they reach 28 days.
func Quote(ctx context.Context, r repository.Reader, zoneID int64, kind models.BookingKind, w models.Window, at time.Time) (int64, *int64, error) {
	var (
		ticket models.TicketType
		units  int64
	)

	switch kind {
	case models.KindSubscription:
		days := int64(math.Ceil(w.Duration().Hours() / day.Hours()))
		if days >= 28 {
			ticket = models.TicketMonthly
			units = (days + month - 1) / month
		} else {
			ticket = models.TicketDaily
			units = days
		}
	default:
		ticket = models.TicketHourly
		units = int64(math.Ceil(w.Duration().Hours()))
	}

	price, err := r.GetCurrentPrice(ctx, zoneID, ticket, at)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get %s price: %w", ticket, err)
	}
	if price == nil {
		return 0, nil, apperrors.NotFound(string(ticket)+" price for zone", zoneID)
	}

	id := price.ID
	return price.Amount * units, &id, nil
}
