package service

import (
	"context"
	"fmt"
	"time"

	apperrors "parking/internal/errors"
	"parking/internal/logger"
	"parking/internal/models"
	"parking/internal/repository"
)

// amountTolerance is the allowed difference, in minor units, between the
// notified and the stored payment amount.
const amountTolerance = 1

// PaymentService links reservations to the payment gateway.
type PaymentService struct {
	store   repository.Store
	holds   *HoldManager
	gateway PaymentGateway
	now     Clock
}

func NewPaymentService(store repository.Store, holds *HoldManager, gateway PaymentGateway, clock Clock) *PaymentService {
	if clock == nil {
		clock = time.Now
	}
	return &PaymentService{store: store, holds: holds, gateway: gateway, now: clock}
}

// Initiate opens a gateway payment for a pending hold and returns its URL.
// Calling it again while the payment is pending returns the same URL.
func (s *PaymentService) Initiate(ctx context.Context, userID, reservationID int64) (*models.InitiatePaymentResponse, error) {
	res, err := s.holds.Get(ctx, userID, reservationID)
	if err != nil {
		return nil, err
	}
	if res.Status != models.StatusPending || res.HoldExpired(s.now()) {
		from := res.Status
		if res.HoldExpired(s.now()) {
			from = models.StatusExpired
		}
		return nil, &apperrors.TransitionError{ReservationID: res.ID, From: string(from), To: string(models.StatusConfirmed)}
	}

	payment, err := s.store.GetPaymentByReservation(ctx, res.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return nil, apperrors.NotFound("payment for reservation", res.ID)
	}
	if payment.Status == models.PaymentPending && payment.PaymentURL != nil {
		return &models.InitiatePaymentResponse{PaymentURL: *payment.PaymentURL, Reference: payment.Reference}, nil
	}
	if s.gateway == nil {
		return nil, fmt.Errorf("payment gateway is not configured")
	}

	initResp, err := s.gateway.InitPayment(ctx, payment.Amount, payment.Reference,
		fmt.Sprintf("Parking slot %d reservation", res.SlotID))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize payment: %w", err)
	}

	err = s.store.Transact(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockSlot(ctx, res.SlotID); err != nil {
			return fmt.Errorf("failed to lock slot: %w", err)
		}
		p, err := tx.GetPaymentByReservation(ctx, res.ID)
		if err != nil {
			return fmt.Errorf("failed to get payment: %w", err)
		}
		if p == nil {
			return apperrors.NotFound("payment for reservation", res.ID)
		}
		p.Status = models.PaymentPending
		p.ExternalID = &initResp.PaymentID
		p.PaymentURL = &initResp.PaymentURL
		return tx.UpdatePayment(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("Payment initiated",
		"reservation_id", res.ID,
		"payment_id", initResp.PaymentID,
		"amount", payment.Amount)

	return &models.InitiatePaymentResponse{PaymentURL: initResp.PaymentURL, Reference: payment.Reference}, nil
}

// HandleNotification applies a gateway webhook. Success confirms the hold,
// failure marks the payment failed. Other statuses are informational.
func (s *PaymentService) HandleNotification(ctx context.Context, n *models.PaymentNotificationPayload) error {
	log := logger.WithContext(ctx).With("payment_id", n.PaymentID, "order_id", n.OrderID, "status", n.Status)

	if s.gateway != nil && !s.gateway.VerifyNotification(n) {
		log.Warn("Rejected payment notification with invalid token")
		return fmt.Errorf("payment notification token: %w", apperrors.ErrUnauthorized)
	}

	payment, err := s.store.GetPaymentByReference(ctx, n.OrderID)
	if err != nil {
		return fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return apperrors.NotFound("payment", n.OrderID)
	}

	switch {
	case n.Succeeded():
		if n.Amount > 0 && abs(n.Amount-payment.Amount) > amountTolerance {
			log.Warn("Payment amount mismatch", "expected", payment.Amount, "received", n.Amount)
			return apperrors.Validation("payment amount %d does not match %d", n.Amount, payment.Amount)
		}
		if _, err := s.holds.Confirm(ctx, payment.ReservationID, n.PaymentID); err != nil {
			return err
		}
		log.Info("Payment completed", "reservation_id", payment.ReservationID)

	case n.Failed():
		if err := s.holds.FailPayment(ctx, payment.ReservationID); err != nil {
			return err
		}
		log.Info("Payment failed", "reservation_id", payment.ReservationID)

	default:
		log.Info("Ignoring intermediate payment status")
	}
	return nil
}

// Status reports the payment state of a user's reservation.
func (s *PaymentService) Status(ctx context.Context, userID, reservationID int64) (*models.PaymentStatusResponse, error) {
	res, err := s.holds.Get(ctx, userID, reservationID)
	if err != nil {
		return nil, err
	}
	return s.status(ctx, res)
}

// StatusByReference serves the gateway redirect pages, which only know the
// order reference.
func (s *PaymentService) StatusByReference(ctx context.Context, reference string) (*models.PaymentStatusResponse, error) {
	res, err := s.store.GetReservationByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if res == nil {
		return nil, apperrors.NotFound("reservation", reference)
	}
	return s.status(ctx, res)
}

func (s *PaymentService) status(ctx context.Context, res *models.Reservation) (*models.PaymentStatusResponse, error) {
	payment, err := s.store.GetPaymentByReservation(ctx, res.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return nil, apperrors.NotFound("payment for reservation", res.ID)
	}
	return &models.PaymentStatusResponse{
		ReservationID:      res.ID,
		Status:             res.Status,
		PaymentStatus:      payment.Status,
		Amount:             payment.Amount,
		RefundAmount:       payment.RefundAmount,
		IsPaymentCompleted: payment.Status == models.PaymentCompleted,
	}, nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
