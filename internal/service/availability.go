package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	apperrors "parking/internal/errors"
	"parking/internal/logger"
	"parking/internal/metrics"
	"parking/internal/models"
	"parking/internal/repository"
)

// AvailabilityCache keeps rendered zone availability close to readers.
// Get returns nil on a miss.
type AvailabilityCache interface {
	GetZoneAvailability(ctx context.Context, zoneID int64) (*models.ZoneAvailabilityResponse, error)
	SetZoneAvailability(ctx context.Context, a *models.ZoneAvailabilityResponse) error
	InvalidateZone(ctx context.Context, zoneID int64) error
}

// DeriveSlotState projects a slot's active reservations onto its state at now.
// An unexpired pending hold holds the slot whatever its window; a confirmed
// reservation holds it only while its window contains now.
func DeriveSlotState(reservations []models.Reservation, now time.Time) models.SlotState {
	state := models.SlotAvailable
	for i := range reservations {
		r := &reservations[i]
		switch {
		case r.Status == models.StatusOccupied:
			return models.SlotOccupied
		case r.Status == models.StatusPending && !r.HoldExpired(now):
			state = models.SlotHeld
		case r.Status == models.StatusConfirmed && r.Window.Contains(now):
			state = models.SlotHeld
		}
	}
	return state
}

func groupBySlot(reservations []models.Reservation) map[int64][]models.Reservation {
	bySlot := make(map[int64][]models.Reservation)
	for _, r := range reservations {
		bySlot[r.SlotID] = append(bySlot[r.SlotID], r)
	}
	return bySlot
}

// Aggregator owns the zone availability counter.
type Aggregator struct {
	store   repository.Store
	cache   AvailabilityCache
	metrics *metrics.Metrics
	now     Clock
}

func NewAggregator(store repository.Store, cache AvailabilityCache, m *metrics.Metrics, clock Clock) *Aggregator {
	if clock == nil {
		clock = time.Now
	}
	return &Aggregator{store: store, cache: cache, metrics: m, now: clock}
}

// Recompute counts the zone's available slots and stores the result. It
// runs inside the caller's transaction after the slot lock is held.
func (a *Aggregator) Recompute(ctx context.Context, tx repository.Tx, zoneID int64, now time.Time) (int, error) {
	zone, err := tx.LockZone(ctx, zoneID)
	if err != nil {
		return 0, fmt.Errorf("failed to lock zone: %w", err)
	}
	if zone == nil {
		return 0, apperrors.NotFound("zone", zoneID)
	}

	slots, err := tx.ListSlotsByZone(ctx, zoneID)
	if err != nil {
		return 0, fmt.Errorf("failed to list slots: %w", err)
	}
	active, err := tx.ListActiveReservationsByZone(ctx, zoneID)
	if err != nil {
		return 0, fmt.Errorf("failed to list reservations: %w", err)
	}

	bySlot := groupBySlot(active)
	available := 0
	for _, s := range slots {
		if DeriveSlotState(bySlot[s.ID], now) == models.SlotAvailable {
			available++
		}
	}

	if err := tx.SetZoneAvailable(ctx, zoneID, available); err != nil {
		return 0, fmt.Errorf("failed to update zone availability: %w", err)
	}
	return available, nil
}

// Committed publishes a recomputed counter once its transaction committed.
func (a *Aggregator) Committed(ctx context.Context, zoneID int64, available int) {
	a.metrics.SetZoneAvailable(strconv.FormatInt(zoneID, 10), available)
	if a.cache == nil {
		return
	}
	if err := a.cache.InvalidateZone(ctx, zoneID); err != nil {
		logger.WithContext(ctx).Warn("Failed to invalidate zone availability cache",
			"zone_id", zoneID, "error", err)
	}
}

// Refresh re-derives every slot of the zone and the zone counter. Confirmed
// reservations change slot state when their window opens or closes without
// any request touching them, so the expiry job calls this periodically.
func (a *Aggregator) Refresh(ctx context.Context, zoneID int64) (int, error) {
	slots, err := a.store.ListSlotsByZone(ctx, zoneID)
	if err != nil {
		return 0, fmt.Errorf("failed to list slots: %w", err)
	}
	// ascending ids keep the slot lock order stable across refreshes
	sort.Slice(slots, func(i, j int) bool { return slots[i].ID < slots[j].ID })

	now := a.now()
	var available int
	err = a.store.Transact(ctx, func(tx repository.Tx) error {
		for _, s := range slots {
			locked, err := tx.LockSlot(ctx, s.ID)
			if err != nil {
				return fmt.Errorf("failed to lock slot: %w", err)
			}
			if locked == nil {
				continue
			}
			active, err := tx.ListActiveReservationsBySlot(ctx, s.ID)
			if err != nil {
				return fmt.Errorf("failed to list reservations: %w", err)
			}
			if state := DeriveSlotState(active, now); state != locked.State {
				if err := tx.SetSlotState(ctx, s.ID, state); err != nil {
					return fmt.Errorf("failed to update slot state: %w", err)
				}
			}
		}
		n, err := a.Recompute(ctx, tx, zoneID, now)
		available = n
		return err
	})
	if err != nil {
		return 0, err
	}

	a.Committed(ctx, zoneID, available)
	return available, nil
}

// RefreshAll refreshes every zone and returns the first error after
// attempting all of them.
func (a *Aggregator) RefreshAll(ctx context.Context) error {
	zones, err := a.store.ListZones(ctx)
	if err != nil {
		return fmt.Errorf("failed to list zones: %w", err)
	}
	var firstErr error
	for _, z := range zones {
		if _, err := a.Refresh(ctx, z.ID); err != nil {
			logger.WithContext(ctx).Error("Failed to refresh zone availability", "zone_id", z.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// ZoneAvailability returns the zone counter with a per-slot status list.
func (a *Aggregator) ZoneAvailability(ctx context.Context, zoneID int64) (*models.ZoneAvailabilityResponse, error) {
	if a.cache != nil {
		cached, err := a.cache.GetZoneAvailability(ctx, zoneID)
		if err != nil {
			logger.WithContext(ctx).Warn("Zone availability cache read failed", "zone_id", zoneID, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	zone, err := a.store.GetZone(ctx, zoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to get zone: %w", err)
	}
	if zone == nil {
		return nil, apperrors.NotFound("zone", zoneID)
	}

	statuses, err := a.slotStatuses(ctx, zoneID)
	if err != nil {
		return nil, err
	}

	resp := &models.ZoneAvailabilityResponse{
		ZoneID:     zoneID,
		TotalSlots: len(statuses),
		Slots:      make([]models.SlotStatusItem, 0, len(statuses)),
	}
	for _, s := range statuses {
		resp.Slots = append(resp.Slots, models.SlotStatusItem{ID: s.ID, Code: s.Code, Status: s.State})
		if s.State == models.SlotAvailable {
			resp.AvailableSlots++
		}
	}

	if a.cache != nil {
		if err := a.cache.SetZoneAvailability(ctx, resp); err != nil {
			logger.WithContext(ctx).Warn("Failed to cache zone availability", "zone_id", zoneID, "error", err)
		}
	}
	return resp, nil
}

// slotStatuses returns the zone's slots with State derived at the current
// time rather than the stored projection.
func (a *Aggregator) slotStatuses(ctx context.Context, zoneID int64) ([]models.Slot, error) {
	slots, err := a.store.ListSlotsByZone(ctx, zoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	active, err := a.store.ListActiveReservationsByZone(ctx, zoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	now := a.now()
	bySlot := groupBySlot(active)
	for i := range slots {
		slots[i].State = DeriveSlotState(bySlot[slots[i].ID], now)
	}
	return slots, nil
}
