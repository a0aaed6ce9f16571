package seed

import (
	"context"
	"testing"
	"time"

	"parking/internal/models"
	"parking/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	opts := Options{Zones: 6, Rows: 2, Cols: 3, HourlyPrice: 10, DailyPrice: 100}

	res, err := Run(ctx, store, opts)
	require.NoError(t, err)
	assert.Len(t, res.ZoneIDs, 6)
	assert.Equal(t, 36, res.Slots)

	zones, err := store.ListZones(ctx)
	require.NoError(t, err)
	require.Len(t, zones, 6)
	names := map[string]bool{}
	for _, z := range zones {
		names[z.Name] = true
		assert.Equal(t, 6, z.TotalSlots)
		assert.Equal(t, 6, z.AvailableSlots)
	}
	assert.Len(t, names, 6)

	slots, err := store.ListSlotsByZone(ctx, res.ZoneIDs[0])
	require.NoError(t, err)
	codes := make([]string, len(slots))
	for i, s := range slots {
		codes[i] = s.Code
	}
	assert.ElementsMatch(t, []string{"A01", "A02", "A03", "B01", "B02", "B03"}, codes)

	hourly, err := store.GetCurrentPrice(ctx, res.ZoneIDs[0], models.TicketHourly, time.Now())
	require.NoError(t, err)
	require.NotNil(t, hourly)
	assert.Equal(t, int64(10), hourly.Amount)

	monthly, err := store.GetCurrentPrice(ctx, res.ZoneIDs[0], models.TicketMonthly, time.Now())
	require.NoError(t, err)
	assert.Nil(t, monthly)

	vehicle, err := store.GetVehicle(ctx, res.VehicleID)
	require.NoError(t, err)
	assert.Equal(t, res.UserID, vehicle.UserID)
}

func TestRun_DryRunAndValidation(t *testing.T) {
	store := memory.NewStore()

	res, err := Run(context.Background(), store, Options{Zones: 1, Rows: 2, Cols: 2, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Slots)
	zones, err := store.ListZones(context.Background())
	require.NoError(t, err)
	assert.Empty(t, zones)

	_, err = Run(context.Background(), store, Options{Zones: 1})
	assert.Error(t, err)
}
