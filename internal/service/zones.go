package service

import (
	"context"
	"fmt"
	"strings"

	apperrors "parking/internal/errors"
	"parking/internal/logger"
	"parking/internal/models"
	"parking/internal/repository"
)

const defaultSearchSize = 50

// ZoneSearcher is the full-text zone index.
type ZoneSearcher interface {
	SearchZones(ctx context.Context, query string, size int) ([]models.Zone, error)
}

type ZoneService struct {
	store  repository.Reader
	search ZoneSearcher
	agg    *Aggregator
}

func NewZoneService(store repository.Reader, search ZoneSearcher, agg *Aggregator) *ZoneService {
	return &ZoneService{store: store, search: search, agg: agg}
}

// List returns all zones, or the ones matching query. The search index is
// used when configured; otherwise names and addresses are matched in memory.
func (s *ZoneService) List(ctx context.Context, query string) (models.ListZonesResponse, error) {
	query = strings.TrimSpace(query)

	if query != "" && s.search != nil {
		found, err := s.search.SearchZones(ctx, query, defaultSearchSize)
		if err == nil {
			return toZoneItems(found), nil
		}
		logger.WithContext(ctx).Warn("Zone search failed, falling back to store", "error", err)
	}

	zones, err := s.store.ListZones(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}
	if query != "" {
		zones = filterZones(zones, query)
	}
	return toZoneItems(zones), nil
}

func filterZones(zones []models.Zone, query string) []models.Zone {
	q := strings.ToLower(query)
	var out []models.Zone
	for _, z := range zones {
		if strings.Contains(strings.ToLower(z.Name), q) || strings.Contains(strings.ToLower(z.Address), q) {
			out = append(out, z)
		}
	}
	return out
}

func toZoneItems(zones []models.Zone) models.ListZonesResponse {
	items := make(models.ListZonesResponse, len(zones))
	for i, z := range zones {
		items[i] = zoneItem(&z)
	}
	return items
}

func zoneItem(z *models.Zone) models.ListZonesResponseItem {
	return models.ListZonesResponseItem{
		ID:             z.ID,
		Name:           z.Name,
		Address:        z.Address,
		TotalSlots:     z.TotalSlots,
		AvailableSlots: z.AvailableSlots,
	}
}

// Details returns the zone with its grid layout and current slot states.
func (s *ZoneService) Details(ctx context.Context, zoneID int64) (*models.ZoneDetailsResponse, error) {
	zone, err := s.store.GetZone(ctx, zoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to get zone: %w", err)
	}
	if zone == nil {
		return nil, apperrors.NotFound("zone", zoneID)
	}

	slots, err := s.agg.slotStatuses(ctx, zoneID)
	if err != nil {
		return nil, err
	}

	resp := &models.ZoneDetailsResponse{
		ListZonesResponseItem: zoneItem(zone),
		Layout:                models.ZoneLayout{Rows: zone.GridRows, Cols: zone.GridCols},
		Slots:                 make([]models.SlotLayoutItem, len(slots)),
	}
	for i, sl := range slots {
		resp.Slots[i] = models.SlotLayoutItem{
			ID:        sl.ID,
			Code:      sl.Code,
			PositionX: sl.PositionX,
			PositionY: sl.PositionY,
			Status:    sl.State,
		}
	}
	return resp, nil
}
