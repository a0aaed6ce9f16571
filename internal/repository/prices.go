package repository

import (
	"context"
	"time"

	"parking/internal/models"

	sq "github.com/Masterminds/squirrel"
)

// GetCurrentPrice returns the most recent tier for the zone and ticket type
// whose validity range contains at.
func (r *queries) GetCurrentPrice(ctx context.Context, zoneID int64, ticketType models.TicketType, at time.Time) (*models.TicketPrice, error) {
	p := &models.TicketPrice{}
	found, err := r.queryRow(ctx,
		psql.Select("id", "zone_id", "ticket_type", "amount", "valid_from", "valid_to").
			From("ticket_prices").
			Where(sq.Eq{"zone_id": zoneID, "ticket_type": string(ticketType)}).
			Where(sq.LtOrEq{"valid_from": at}).
			Where(sq.Or{sq.Eq{"valid_to": nil}, sq.GtOrEq{"valid_to": at}}).
			OrderBy("valid_from DESC").
			Limit(1),
		"GetCurrentPrice",
		func(row scanner) error {
			return row.Scan(&p.ID, &p.ZoneID, &p.TicketType, &p.Amount, &p.ValidFrom, &p.ValidTo)
		})
	if err != nil || !found {
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) CreateTicketPrice(ctx context.Context, p *models.TicketPrice) error {
	_, err := s.queryRow(ctx,
		psql.Insert("ticket_prices").
			Columns("zone_id", "ticket_type", "amount", "valid_from", "valid_to").
			Values(p.ZoneID, string(p.TicketType), p.Amount, p.ValidFrom, p.ValidTo).
			Suffix("RETURNING id"),
		"CreateTicketPrice",
		func(row scanner) error { return row.Scan(&p.ID) })
	return err
}
