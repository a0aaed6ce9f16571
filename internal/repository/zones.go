package repository

import (
	"context"

	"parking/internal/models"

	sq "github.com/Masterminds/squirrel"
)

var zoneColumns = []string{
	"id", "name", "address", "total_slots", "available_slots",
	"grid_rows", "grid_cols", "created_at", "updated_at",
}

func scanZone(row scanner, z *models.Zone) error {
	return row.Scan(
		&z.ID,
		&z.Name,
		&z.Address,
		&z.TotalSlots,
		&z.AvailableSlots,
		&z.GridRows,
		&z.GridCols,
		&z.CreatedAt,
		&z.UpdatedAt,
	)
}

func (r *queries) GetZone(ctx context.Context, id int64) (*models.Zone, error) {
	zone := &models.Zone{}
	found, err := r.queryRow(ctx,
		psql.Select(zoneColumns...).From("zones").Where(sq.Eq{"id": id}),
		"GetZone",
		func(row scanner) error { return scanZone(row, zone) })
	if err != nil || !found {
		return nil, err
	}
	return zone, nil
}

func (r *queries) ListZones(ctx context.Context) ([]models.Zone, error) {
	var zones []models.Zone
	err := r.queryRows(ctx,
		psql.Select(zoneColumns...).From("zones").OrderBy("id"),
		"ListZones",
		func(row scanner) error {
			var z models.Zone
			if err := scanZone(row, &z); err != nil {
				return err
			}
			zones = append(zones, z)
			return nil
		})
	return zones, err
}

func (t *pgTx) LockZone(ctx context.Context, id int64) (*models.Zone, error) {
	zone := &models.Zone{}
	found, err := t.queryRow(ctx,
		psql.Select(zoneColumns...).From("zones").Where(sq.Eq{"id": id}).Suffix("FOR UPDATE"),
		"LockZone",
		func(row scanner) error { return scanZone(row, zone) })
	if err != nil || !found {
		return nil, err
	}
	return zone, nil
}

func (t *pgTx) SetZoneAvailable(ctx context.Context, zoneID int64, available int) error {
	return t.exec(ctx,
		psql.Update("zones").
			Set("available_slots", available).
			Set("updated_at", sq.Expr("NOW()")).
			Where(sq.Eq{"id": zoneID}),
		"SetZoneAvailable")
}

func (s *PostgresStore) CreateZone(ctx context.Context, z *models.Zone) error {
	_, err := s.queryRow(ctx,
		psql.Insert("zones").
			Columns("name", "address", "grid_rows", "grid_cols").
			Values(z.Name, z.Address, z.GridRows, z.GridCols).
			Suffix("RETURNING id, created_at, updated_at"),
		"CreateZone",
		func(row scanner) error { return row.Scan(&z.ID, &z.CreatedAt, &z.UpdatedAt) })
	return err
}
