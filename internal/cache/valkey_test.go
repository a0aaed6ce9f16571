package cache

import (
	"context"
	"testing"
	"time"

	"parking/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func unreachableClient(t *testing.T) *ValkeyClient {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return newValkeyClient(rdb, 0)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "zone:availability:42", availabilityKey(42))
	assert.Equal(t, "parking.zone.42", ZoneChannel(42))
}

func TestNewValkeyClient_DefaultTTL(t *testing.T) {
	v := unreachableClient(t)
	assert.Equal(t, defaultAvailabilityTTL, v.ttl)
}

func TestValkeyClient_ErrorsAreWrapped(t *testing.T) {
	v := unreachableClient(t)
	ctx := context.Background()

	got, err := v.GetZoneAvailability(ctx, 1)
	assert.Nil(t, got)
	assert.ErrorContains(t, err, "cache lookup error")

	err = v.SetZoneAvailability(ctx, &models.ZoneAvailabilityResponse{ZoneID: 1})
	assert.ErrorContains(t, err, "cache write error")

	assert.ErrorContains(t, v.InvalidateZone(ctx, 1), "cache invalidate error")
	assert.ErrorContains(t, v.PublishEvent(ctx, models.Event{Type: models.EventZoneUpdated, ZoneID: 1}), "failed to publish event")
}
