package consumers

import (
	"context"
	"errors"
	"testing"

	"parking/internal/models"
	"parking/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	invalidated []int64
	err         error
}

func (c *fakeCache) InvalidateZone(_ context.Context, zoneID int64) error {
	c.invalidated = append(c.invalidated, zoneID)
	return c.err
}

type fakeIndex struct {
	indexed []models.Zone
}

func (i *fakeIndex) IndexZone(_ context.Context, zone *models.Zone) error {
	i.indexed = append(i.indexed, *zone)
	return nil
}

func seedZone(t *testing.T) (*memory.Store, int64) {
	t.Helper()
	store := memory.NewStore()
	zone := models.Zone{Name: "Central", Address: "1 Main St"}
	require.NoError(t, store.CreateZone(context.Background(), &zone))
	require.NoError(t, store.CreateSlot(context.Background(), &models.Slot{ZoneID: zone.ID, Code: "S101"}))
	return store, zone.ID
}

func TestHandleEvent_HoldEventInvalidatesOnly(t *testing.T) {
	store, zoneID := seedZone(t)
	c, idx := &fakeCache{}, &fakeIndex{}
	h := NewHandlers(store, c, idx)

	err := h.HandleEvent(context.Background(), models.Event{Type: models.EventHoldCreated, ZoneID: zoneID})
	require.NoError(t, err)

	assert.Equal(t, []int64{zoneID}, c.invalidated)
	assert.Empty(t, idx.indexed)
}

func TestHandleEvent_ZoneUpdatedReindexes(t *testing.T) {
	store, zoneID := seedZone(t)
	c, idx := &fakeCache{}, &fakeIndex{}
	h := NewHandlers(store, c, idx)

	err := h.HandleEvent(context.Background(), models.Event{Type: models.EventZoneUpdated, ZoneID: zoneID})
	require.NoError(t, err)

	require.Len(t, idx.indexed, 1)
	assert.Equal(t, "Central", idx.indexed[0].Name)
	assert.Equal(t, 1, idx.indexed[0].AvailableSlots)

	// a deleted zone is skipped
	require.NoError(t, h.HandleEvent(context.Background(), models.Event{Type: models.EventZoneUpdated, ZoneID: 999}))
	assert.Len(t, idx.indexed, 1)
}

func TestHandleEvent_CacheFailureIsReturned(t *testing.T) {
	store, zoneID := seedZone(t)
	h := NewHandlers(store, &fakeCache{err: errors.New("connection refused")}, nil)

	err := h.HandleEvent(context.Background(), models.Event{Type: models.EventHoldExpired, ZoneID: zoneID})
	assert.ErrorContains(t, err, "connection refused")
}

func TestHandleEvent_NoTargets(t *testing.T) {
	store, zoneID := seedZone(t)
	h := NewHandlers(store, nil, nil)
	assert.NoError(t, h.HandleEvent(context.Background(), models.Event{Type: models.EventZoneUpdated, ZoneID: zoneID}))
}
