package repository

import (
	"context"

	"parking/internal/models"

	sq "github.com/Masterminds/squirrel"
)

var paymentColumns = []string{
	"id", "reservation_id", "amount", "status", "reference",
	"external_id", "payment_url", "refund_amount", "created_at", "updated_at",
}

func scanPayment(row scanner, p *models.Payment) error {
	return row.Scan(
		&p.ID,
		&p.ReservationID,
		&p.Amount,
		&p.Status,
		&p.Reference,
		&p.ExternalID,
		&p.PaymentURL,
		&p.RefundAmount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func (r *queries) getPayment(ctx context.Context, where sq.Sqlizer, op string) (*models.Payment, error) {
	p := &models.Payment{}
	found, err := r.queryRow(ctx,
		psql.Select(paymentColumns...).From("payments").Where(where),
		op,
		func(row scanner) error { return scanPayment(row, p) })
	if err != nil || !found {
		return nil, err
	}
	return p, nil
}

func (r *queries) GetPaymentByReservation(ctx context.Context, reservationID int64) (*models.Payment, error) {
	return r.getPayment(ctx, sq.Eq{"reservation_id": reservationID}, "GetPaymentByReservation")
}

func (r *queries) GetPaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	return r.getPayment(ctx, sq.Eq{"reference": reference}, "GetPaymentByReference")
}

func (t *pgTx) CreatePayment(ctx context.Context, p *models.Payment) error {
	_, err := t.queryRow(ctx,
		psql.Insert("payments").
			Columns("reservation_id", "amount", "status", "reference", "external_id", "payment_url", "refund_amount").
			Values(p.ReservationID, p.Amount, p.Status, p.Reference, p.ExternalID, p.PaymentURL, p.RefundAmount).
			Suffix("RETURNING id, created_at, updated_at"),
		"CreatePayment",
		func(row scanner) error { return row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt) })
	return err
}

func (t *pgTx) UpdatePayment(ctx context.Context, p *models.Payment) error {
	_, err := t.queryRow(ctx,
		psql.Update("payments").
			Set("amount", p.Amount).
			Set("status", p.Status).
			Set("external_id", p.ExternalID).
			Set("payment_url", p.PaymentURL).
			Set("refund_amount", p.RefundAmount).
			Set("updated_at", sq.Expr("NOW()")).
			Where(sq.Eq{"id": p.ID}).
			Suffix("RETURNING updated_at"),
		"UpdatePayment",
		func(row scanner) error { return row.Scan(&p.UpdatedAt) })
	return err
}
