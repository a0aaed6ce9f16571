package repository

import (
	"context"
	"database/sql"
	"time"

	"parking/internal/models"

	sq "github.com/Masterminds/squirrel"
)

var reservationColumns = []string{
	"id", "user_id", "vehicle_id", "slot_id", "zone_id", "price_id", "kind",
	"start_time", "end_time", "status", "price", "cancellation_fee",
	"reference", "expires_at", "created_at", "updated_at",
}

func activeStatuses() []string {
	statuses := make([]string, len(models.ActiveStatuses))
	for i, s := range models.ActiveStatuses {
		statuses[i] = string(s)
	}
	return statuses
}

func scanReservation(row scanner, r *models.Reservation) error {
	var priceID sql.NullInt64
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.VehicleID,
		&r.SlotID,
		&r.ZoneID,
		&priceID,
		&r.Kind,
		&r.Window.Start,
		&r.Window.End,
		&r.Status,
		&r.Price,
		&r.CancellationFee,
		&r.Reference,
		&r.ExpiresAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if priceID.Valid {
		r.PriceID = &priceID.Int64
	}
	return nil
}

func (r *queries) getReservation(ctx context.Context, where sq.Sqlizer, op string) (*models.Reservation, error) {
	res := &models.Reservation{}
	found, err := r.queryRow(ctx,
		psql.Select(reservationColumns...).From("reservations").Where(where),
		op,
		func(row scanner) error { return scanReservation(row, res) })
	if err != nil || !found {
		return nil, err
	}
	return res, nil
}

func (r *queries) listReservations(ctx context.Context, b sq.SelectBuilder, op string) ([]models.Reservation, error) {
	var list []models.Reservation
	err := r.queryRows(ctx, b, op, func(row scanner) error {
		var res models.Reservation
		if err := scanReservation(row, &res); err != nil {
			return err
		}
		list = append(list, res)
		return nil
	})
	return list, err
}

func (r *queries) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	return r.getReservation(ctx, sq.Eq{"id": id}, "GetReservation")
}

func (r *queries) GetReservationByReference(ctx context.Context, reference string) (*models.Reservation, error) {
	return r.getReservation(ctx, sq.Eq{"reference": reference}, "GetReservationByReference")
}

func (r *queries) ListReservationsByUser(ctx context.Context, userID int64) ([]models.Reservation, error) {
	return r.listReservations(ctx,
		psql.Select(reservationColumns...).From("reservations").
			Where(sq.Eq{"user_id": userID}).
			OrderBy("created_at DESC"),
		"ListReservationsByUser")
}

func (r *queries) ListActiveReservationsBySlot(ctx context.Context, slotID int64) ([]models.Reservation, error) {
	return r.listReservations(ctx,
		psql.Select(reservationColumns...).From("reservations").
			Where(sq.Eq{"slot_id": slotID, "status": activeStatuses()}).
			OrderBy("start_time"),
		"ListActiveReservationsBySlot")
}

func (r *queries) ListActiveReservationsByZone(ctx context.Context, zoneID int64) ([]models.Reservation, error) {
	return r.listReservations(ctx,
		psql.Select(reservationColumns...).From("reservations").
			Where(sq.Eq{"zone_id": zoneID, "status": activeStatuses()}),
		"ListActiveReservationsByZone")
}

// ListExpiredHolds returns pending reservations whose hold ended before now,
// oldest first.
func (r *queries) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	b := psql.Select(reservationColumns...).From("reservations").
		Where(sq.Eq{"status": string(models.StatusPending)}).
		Where(sq.Lt{"expires_at": now}).
		OrderBy("expires_at ASC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	return r.listReservations(ctx, b, "ListExpiredHolds")
}

func (t *pgTx) CreateReservation(ctx context.Context, res *models.Reservation) error {
	_, err := t.queryRow(ctx,
		psql.Insert("reservations").
			Columns(
				"user_id", "vehicle_id", "slot_id", "zone_id", "price_id", "kind",
				"start_time", "end_time", "status", "price", "cancellation_fee",
				"reference", "expires_at",
			).
			Values(
				res.UserID, res.VehicleID, res.SlotID, res.ZoneID, res.PriceID, res.Kind,
				res.Window.Start, res.Window.End, res.Status, res.Price, res.CancellationFee,
				res.Reference, res.ExpiresAt,
			).
			Suffix("RETURNING id, created_at, updated_at"),
		"CreateReservation",
		func(row scanner) error { return row.Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt) })
	return err
}

func (t *pgTx) UpdateReservation(ctx context.Context, res *models.Reservation) error {
	_, err := t.queryRow(ctx,
		psql.Update("reservations").
			Set("status", res.Status).
			Set("start_time", res.Window.Start).
			Set("end_time", res.Window.End).
			Set("price", res.Price).
			Set("price_id", res.PriceID).
			Set("cancellation_fee", res.CancellationFee).
			Set("expires_at", res.ExpiresAt).
			Set("updated_at", sq.Expr("NOW()")).
			Where(sq.Eq{"id": res.ID}).
			Suffix("RETURNING updated_at"),
		"UpdateReservation",
		func(row scanner) error { return row.Scan(&res.UpdatedAt) })
	return err
}
