package consumers

import (
	"context"
	"fmt"
	"time"

	"parking/internal/logger"
	"parking/internal/messaging"
	"parking/internal/models"

	"github.com/nats-io/stan.go"
)

const handleTimeout = 10 * time.Second

// ZoneCache is the availability cache the API reads through.
type ZoneCache interface {
	InvalidateZone(ctx context.Context, zoneID int64) error
}

// ZoneIndex is the search projection of zones.
type ZoneIndex interface {
	IndexZone(ctx context.Context, zone *models.Zone) error
}

// ZoneReader loads the authoritative zone row.
type ZoneReader interface {
	GetZone(ctx context.Context, id int64) (*models.Zone, error)
}

// Handlers keeps the availability cache and the search index in step with
// reservation events. Either target may be nil.
type Handlers struct {
	zones ZoneReader
	cache ZoneCache
	index ZoneIndex
}

func NewHandlers(zones ZoneReader, cache ZoneCache, index ZoneIndex) *Handlers {
	return &Handlers{zones: zones, cache: cache, index: index}
}

// HandleEvent applies one event. Every event drops the zone's cached
// availability; zone.updated also reindexes the zone from the store.
func (h *Handlers) HandleEvent(ctx context.Context, e models.Event) error {
	log := logger.WithFields("event_type", e.Type, "zone_id", e.ZoneID, "reservation_id", e.ReservationID)

	if h.cache != nil {
		if err := h.cache.InvalidateZone(ctx, e.ZoneID); err != nil {
			return fmt.Errorf("invalidate zone %d: %w", e.ZoneID, err)
		}
	}

	if e.Type != models.EventZoneUpdated || h.index == nil {
		log.Debug("Processed event")
		return nil
	}

	zone, err := h.zones.GetZone(ctx, e.ZoneID)
	if err != nil {
		return fmt.Errorf("get zone %d: %w", e.ZoneID, err)
	}
	if zone == nil {
		log.Warn("Zone from event no longer exists")
		return nil
	}
	if err := h.index.IndexZone(ctx, zone); err != nil {
		return fmt.Errorf("index zone %d: %w", e.ZoneID, err)
	}

	log.Info("Reindexed zone", "available_slots", zone.AvailableSlots)
	return nil
}

// OnMessage is the stan handler. The message is acked only after the event
// was applied so a failure is redelivered after AckWait.
func (h *Handlers) OnMessage(m *stan.Msg) {
	e, err := messaging.DecodeEvent(m)
	if err != nil {
		logger.Get().Error("Dropping malformed event", "error", err)
		_ = m.Ack()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if err := h.HandleEvent(ctx, e); err != nil {
		logger.Get().Error("Failed to handle event", "subject", m.Subject, "error", err)
		return
	}
	if err := m.Ack(); err != nil {
		logger.Get().Warn("Failed to ack event", "subject", m.Subject, "error", err)
	}
}
