package service

import (
	"context"
	"fmt"
	"time"

	apperrors "parking/internal/errors"
	"parking/internal/models"
	"parking/internal/repository"
)

// partition splits a slot's active reservations into the first one that
// blocks w and the pending holds whose TTL has already passed. Expired holds
// never block.
func partition(active []models.Reservation, w models.Window, exclude int64, now time.Time) (*models.Reservation, []models.Reservation) {
	var (
		conflict *models.Reservation
		stale    []models.Reservation
	)
	for i := range active {
		r := &active[i]
		if r.ID == exclude {
			continue
		}
		if r.HoldExpired(now) {
			stale = append(stale, *r)
			continue
		}
		if conflict == nil && r.Status.IsActive() && r.Window.Overlaps(w) {
			conflict = r
		}
	}
	return conflict, stale
}

// FindConflict returns the active reservation on slotID that overlaps w,
// or nil. excludeID skips one reservation, used when moving a booking.
func FindConflict(ctx context.Context, r repository.Reader, slotID int64, w models.Window, excludeID int64, now time.Time) (*models.Reservation, error) {
	active, err := r.ListActiveReservationsBySlot(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations for slot %d: %w", slotID, err)
	}
	conflict, _ := partition(active, w, excludeID, now)
	return conflict, nil
}

func HasConflict(ctx context.Context, r repository.Reader, slotID int64, w models.Window, excludeID int64, now time.Time) (bool, error) {
	conflict, err := FindConflict(ctx, r, slotID, w, excludeID, now)
	return conflict != nil, err
}

// normalizeWindow validates the requested window and widens subscriptions
// to whole days.
func normalizeWindow(kind models.BookingKind, w models.Window, now time.Time) (models.Window, error) {
	if !w.End.After(w.Start) {
		return w, apperrors.Validation("end_time must be after start_time")
	}
	if kind == models.KindSubscription {
		w = w.DayAligned()
	}
	if !w.End.After(now) {
		return w, apperrors.Validation("window has already ended")
	}
	return w, nil
}
