package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"parking/internal/models"
	"parking/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSlot(t *testing.T, s *Store) (models.Zone, models.Slot) {
	t.Helper()
	ctx := context.Background()
	zone := models.Zone{Name: "Central"}
	require.NoError(t, s.CreateZone(ctx, &zone))
	slot := models.Slot{ZoneID: zone.ID, Code: "A-01"}
	require.NoError(t, s.CreateSlot(ctx, &slot))
	return zone, slot
}

func TestCreateSlot_RefreshesZoneTotals(t *testing.T) {
	s := NewStore()
	zone, _ := seedSlot(t, s)

	got, err := s.GetZone(context.Background(), zone.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalSlots)
	assert.Equal(t, 1, got.AvailableSlots)
}

func TestTransact_CommitMakesWritesVisible(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	zone, slot := seedSlot(t, s)
	now := time.Now()

	var created models.Reservation
	err := s.Transact(ctx, func(tx repository.Tx) error {
		created = models.Reservation{
			SlotID:    slot.ID,
			ZoneID:    zone.ID,
			Kind:      models.KindSingleWindow,
			Window:    models.Window{Start: now, End: now.Add(time.Hour)},
			Status:    models.StatusPending,
			ExpiresAt: now.Add(time.Minute),
		}
		if err := tx.CreateReservation(ctx, &created); err != nil {
			return err
		}
		// visible inside the transaction
		active, err := tx.ListActiveReservationsBySlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Len(t, active, 1)
		return tx.SetSlotState(ctx, slot.ID, models.SlotHeld)
	})
	require.NoError(t, err)

	got, err := s.GetReservation(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatusPending, got.Status)

	sl, err := s.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SlotHeld, sl.State)
}

func TestTransact_ErrorDiscardsWrites(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	zone, slot := seedSlot(t, s)
	boom := errors.New("boom")

	err := s.Transact(ctx, func(tx repository.Tx) error {
		r := models.Reservation{SlotID: slot.ID, ZoneID: zone.ID, Status: models.StatusPending}
		if err := tx.CreateReservation(ctx, &r); err != nil {
			return err
		}
		if err := tx.SetZoneAvailable(ctx, zone.ID, 0); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	active, err := s.ListActiveReservationsByZone(ctx, zone.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	z, err := s.GetZone(ctx, zone.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, z.AvailableSlots)
}

func TestListExpiredHolds(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	zone, slot := seedSlot(t, s)
	now := time.Now()

	require.NoError(t, s.Transact(ctx, func(tx repository.Tx) error {
		for i, status := range []models.ReservationStatus{models.StatusPending, models.StatusPending, models.StatusConfirmed} {
			r := models.Reservation{
				SlotID:    slot.ID,
				ZoneID:    zone.ID,
				Status:    status,
				ExpiresAt: now.Add(time.Duration(i-2) * time.Minute),
			}
			if err := tx.CreateReservation(ctx, &r); err != nil {
				return err
			}
		}
		return nil
	}))

	expired, err := s.ListExpiredHolds(ctx, now, 10)
	require.NoError(t, err)
	assert.Len(t, expired, 2)
	assert.True(t, expired[0].ExpiresAt.Before(expired[1].ExpiresAt))

	limited, err := s.ListExpiredHolds(ctx, now, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGetCurrentPrice(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	zone, _ := seedSlot(t, s)
	now := time.Now()
	past := now.Add(-time.Hour)

	require.NoError(t, s.CreateTicketPrice(ctx, &models.TicketPrice{
		ZoneID: zone.ID, TicketType: models.TicketHourly, Amount: 100,
		ValidFrom: now.Add(-48 * time.Hour), ValidTo: &past,
	}))
	require.NoError(t, s.CreateTicketPrice(ctx, &models.TicketPrice{
		ZoneID: zone.ID, TicketType: models.TicketHourly, Amount: 150,
		ValidFrom: now.Add(-24 * time.Hour),
	}))

	p, err := s.GetCurrentPrice(ctx, zone.ID, models.TicketHourly, now)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(150), p.Amount)

	missing, err := s.GetCurrentPrice(ctx, zone.ID, models.TicketMonthly, now)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
