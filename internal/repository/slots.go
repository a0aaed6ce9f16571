package repository

import (
	"context"

	"parking/internal/models"

	sq "github.com/Masterminds/squirrel"
)

var slotColumns = []string{"id", "zone_id", "code", "position_x", "position_y", "state", "updated_at"}

func scanSlot(row scanner, s *models.Slot) error {
	return row.Scan(
		&s.ID,
		&s.ZoneID,
		&s.Code,
		&s.PositionX,
		&s.PositionY,
		&s.State,
		&s.UpdatedAt,
	)
}

func (r *queries) GetSlot(ctx context.Context, id int64) (*models.Slot, error) {
	slot := &models.Slot{}
	found, err := r.queryRow(ctx,
		psql.Select(slotColumns...).From("slots").Where(sq.Eq{"id": id}),
		"GetSlot",
		func(row scanner) error { return scanSlot(row, slot) })
	if err != nil || !found {
		return nil, err
	}
	return slot, nil
}

func (r *queries) ListSlotsByZone(ctx context.Context, zoneID int64) ([]models.Slot, error) {
	var slots []models.Slot
	err := r.queryRows(ctx,
		psql.Select(slotColumns...).From("slots").
			Where(sq.Eq{"zone_id": zoneID}).
			OrderBy("position_y", "position_x", "id"),
		"ListSlotsByZone",
		func(row scanner) error {
			var s models.Slot
			if err := scanSlot(row, &s); err != nil {
				return err
			}
			slots = append(slots, s)
			return nil
		})
	return slots, err
}

func (t *pgTx) LockSlot(ctx context.Context, id int64) (*models.Slot, error) {
	slot := &models.Slot{}
	found, err := t.queryRow(ctx,
		psql.Select(slotColumns...).From("slots").Where(sq.Eq{"id": id}).Suffix("FOR UPDATE"),
		"LockSlot",
		func(row scanner) error { return scanSlot(row, slot) })
	if err != nil || !found {
		return nil, err
	}
	return slot, nil
}

func (t *pgTx) SetSlotState(ctx context.Context, slotID int64, state models.SlotState) error {
	return t.exec(ctx,
		psql.Update("slots").
			Set("state", state).
			Set("updated_at", sq.Expr("NOW()")).
			Where(sq.Eq{"id": slotID}),
		"SetSlotState")
}

// CreateSlot inserts a slot and refreshes the zone totals from the slots table.
func (s *PostgresStore) CreateSlot(ctx context.Context, slot *models.Slot) error {
	if slot.State == "" {
		slot.State = models.SlotAvailable
	}

	_, err := s.queryRow(ctx,
		psql.Insert("slots").
			Columns("zone_id", "code", "position_x", "position_y", "state").
			Values(slot.ZoneID, slot.Code, slot.PositionX, slot.PositionY, slot.State).
			Suffix("RETURNING id, updated_at"),
		"CreateSlot",
		func(row scanner) error { return row.Scan(&slot.ID, &slot.UpdatedAt) })
	if err != nil {
		return err
	}

	return s.exec(ctx,
		psql.Update("zones").
			Set("total_slots", sq.Expr("(SELECT COUNT(*) FROM slots WHERE zone_id = ?)", slot.ZoneID)).
			Set("available_slots", sq.Expr("(SELECT COUNT(*) FROM slots WHERE zone_id = ? AND state = 'available')", slot.ZoneID)).
			Set("updated_at", sq.Expr("NOW()")).
			Where(sq.Eq{"id": slot.ZoneID}),
		"CreateSlot: refresh zone totals")
}
