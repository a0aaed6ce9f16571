package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "parking/internal/errors"
	"parking/internal/logger"
	"parking/internal/metrics"
	"parking/internal/models"
	"parking/internal/notifier"
	"parking/internal/repository"

	"github.com/google/uuid"
)

// HoldRequest asks for a slot over a window on behalf of a user.
type HoldRequest struct {
	UserID    int64
	VehicleID int64
	SlotID    int64
	Window    models.Window
	Kind      models.BookingKind
}

// HoldManager drives the reservation state machine. Every mutation runs in
// one store transaction that holds the slot lock, rewrites the slot state
// and recomputes the zone counter. Events go out after commit.
type HoldManager struct {
	store     repository.Store
	directory *Directory
	agg       *Aggregator
	gateway   PaymentGateway
	publisher notifier.Publisher
	metrics   *metrics.Metrics
	policy    Policy
	now       Clock
}

func NewHoldManager(deps Deps, agg *Aggregator, policy Policy) *HoldManager {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Publisher == nil {
		deps.Publisher = nopPublisher{}
	}
	return &HoldManager{
		store:     deps.Store,
		directory: NewDirectory(deps.Store),
		agg:       agg,
		gateway:   deps.Gateway,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		policy:    policy,
		now:       deps.Clock,
	}
}

// CreateHold places a pending reservation and its pending payment on the
// slot if no active reservation overlaps the window.
func (h *HoldManager) CreateHold(ctx context.Context, req HoldRequest) (*models.Reservation, error) {
	now := h.now()

	kind := req.Kind
	if kind == "" {
		kind = models.KindSingleWindow
	}
	if !kind.Valid() {
		return nil, apperrors.Validation("unknown booking kind %q", kind)
	}
	window, err := normalizeWindow(kind, req.Window, now)
	if err != nil {
		return nil, err
	}

	if _, err := h.directory.ResolveUser(ctx, req.UserID); err != nil {
		return nil, err
	}
	if _, err := h.directory.ResolveVehicle(ctx, req.UserID, req.VehicleID); err != nil {
		return nil, err
	}

	slot, err := h.store.GetSlot(ctx, req.SlotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	if slot == nil {
		return nil, apperrors.NotFound("slot", req.SlotID)
	}

	price, priceID, err := Quote(ctx, h.store, slot.ZoneID, kind, window, now)
	if err != nil {
		return nil, err
	}

	res := &models.Reservation{
		UserID:    req.UserID,
		VehicleID: req.VehicleID,
		SlotID:    slot.ID,
		ZoneID:    slot.ZoneID,
		PriceID:   priceID,
		Kind:      kind,
		Window:    window,
		Status:    models.StatusPending,
		Price:     price,
		Reference: uuid.New().String(),
		ExpiresAt: now.Add(h.policy.HoldTTL),
	}

	var (
		stale     []models.Reservation
		available int
	)
	err = h.store.Transact(ctx, func(tx repository.Tx) error {
		locked, err := tx.LockSlot(ctx, slot.ID)
		if err != nil {
			return fmt.Errorf("failed to lock slot: %w", err)
		}
		if locked == nil {
			return apperrors.NotFound("slot", slot.ID)
		}

		active, err := tx.ListActiveReservationsBySlot(ctx, slot.ID)
		if err != nil {
			return fmt.Errorf("failed to list reservations: %w", err)
		}
		conflict, expired := partition(active, window, 0, now)
		if conflict != nil {
			return &apperrors.ConflictError{SlotID: slot.ID, Start: window.Start, End: window.End}
		}

		for i := range expired {
			if err := h.expire(ctx, tx, &expired[i], nil); err != nil {
				return err
			}
		}
		stale = expired

		if err := tx.CreateReservation(ctx, res); err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}
		payment := &models.Payment{
			ReservationID: res.ID,
			Amount:        res.Price,
			Status:        models.PaymentPending,
			Reference:     res.Reference,
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		if err := h.syncSlot(ctx, tx, slot.ID, now); err != nil {
			return err
		}
		n, err := h.agg.Recompute(ctx, tx, slot.ZoneID, now)
		available = n
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			h.metrics.HoldConflict()
		}
		return nil, err
	}

	h.metrics.HoldCreated()
	h.metrics.Transition(string(models.StatusPending))
	h.agg.Committed(ctx, res.ZoneID, available)

	events := make([]models.Event, 0, len(stale)+1)
	for i := range stale {
		events = append(events, newEvent(models.EventHoldExpired, &stale[i], available, now))
	}
	if len(stale) > 0 {
		h.metrics.HoldExpired(len(stale))
	}
	events = append(events, newEvent(models.EventHoldCreated, res, available, now))
	h.publisher.Publish(events...)

	logger.WithContext(ctx).Info("Hold created",
		"reservation_id", res.ID,
		"slot_id", res.SlotID,
		"zone_id", res.ZoneID,
		"expires_at", res.ExpiresAt)
	return res, nil
}

// Confirm promotes a pending hold once its payment succeeded. Confirming an
// already confirmed reservation is a no-op. A reservation checked in before
// the payment arrived keeps its status and only records the payment. A hold
// that expired before the confirmation arrived stays expired, its payment is
// failed and the gateway payment is cancelled.
func (h *HoldManager) Confirm(ctx context.Context, reservationID int64, externalPaymentID string) (*models.Reservation, error) {
	m, err := h.mutate(ctx, reservationID, 0, func(tx repository.Tx, m *mutation, now time.Time) error {
		switch m.res.Status {
		case models.StatusConfirmed:
			m.noop = true
			return nil
		case models.StatusOccupied, models.StatusCompleted:
			m.noop = true
			if m.payment == nil || m.payment.Status != models.PaymentPending {
				return nil
			}
			return h.completePayment(ctx, tx, m.payment, externalPaymentID)
		case models.StatusExpired:
			return apperrors.ErrStaleConfirmation
		}
		if err := h.move(ctx, tx, m.res, models.StatusConfirmed); err != nil {
			return err
		}
		if m.payment != nil {
			return h.completePayment(ctx, tx, m.payment, externalPaymentID)
		}
		return nil
	})

	if errors.Is(err, apperrors.ErrStaleConfirmation) || (err == nil && m.expired) {
		if err == nil {
			h.afterExpiry(ctx, m)
		}
		h.compensate(ctx, reservationID, externalPaymentID)
		return nil, fmt.Errorf("reservation %d: %w", reservationID, apperrors.ErrStaleConfirmation)
	}
	if err != nil {
		return nil, err
	}
	if !m.noop {
		h.afterTransition(ctx, m, models.EventHoldConfirmed)
	}
	return m.res, nil
}

// Cancel moves a pending or confirmed reservation to cancelled on behalf of
// its owner. Short-notice cancellations of single windows carry a fee.
func (h *HoldManager) Cancel(ctx context.Context, userID, reservationID int64) (*models.Reservation, error) {
	var cancelPayment bool
	m, err := h.mutate(ctx, reservationID, userID, func(tx repository.Tx, m *mutation, now time.Time) error {
		res := m.res
		if !res.Status.CanTransition(models.StatusCancelled) {
			return &apperrors.TransitionError{ReservationID: res.ID, From: string(res.Status), To: string(models.StatusCancelled)}
		}

		res.CancellationFee = h.cancellationFee(res, now)
		if err := h.move(ctx, tx, res, models.StatusCancelled); err != nil {
			return err
		}

		if p := m.payment; p != nil {
			switch p.Status {
			case models.PaymentPending:
				p.Status = models.PaymentFailed
				cancelPayment = p.ExternalID != nil
			case models.PaymentCompleted:
				p.RefundAmount = p.Amount - res.CancellationFee
				if p.RefundAmount < 0 {
					p.RefundAmount = 0
				}
			}
			if err := tx.UpdatePayment(ctx, p); err != nil {
				return fmt.Errorf("failed to update payment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if m.expired {
		h.afterExpiry(ctx, m)
		return nil, &apperrors.TransitionError{ReservationID: reservationID, From: string(models.StatusExpired), To: string(models.StatusCancelled)}
	}

	if cancelPayment && h.gateway != nil {
		if err := h.gateway.CancelPayment(ctx, *m.payment.ExternalID, "reservation cancelled"); err != nil {
			logger.WithContext(ctx).Error("Failed to cancel gateway payment",
				"error", err,
				"reservation_id", reservationID)
		}
	}

	h.afterTransition(ctx, m, models.EventHoldCancelled)
	return m.res, nil
}

func (h *HoldManager) completePayment(ctx context.Context, tx repository.Tx, p *models.Payment, externalPaymentID string) error {
	p.Status = models.PaymentCompleted
	if externalPaymentID != "" {
		p.ExternalID = &externalPaymentID
	}
	if err := tx.UpdatePayment(ctx, p); err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return nil
}

func (h *HoldManager) cancellationFee(res *models.Reservation, now time.Time) int64 {
	if res.Kind != models.KindSingleWindow {
		return 0
	}
	if res.Window.Start.Sub(now) >= h.policy.ShortNoticeWindow {
		return 0
	}
	return res.Price * int64(h.policy.CancellationFeePercent) / 100
}

// CheckIn marks the vehicle as parked.
func (h *HoldManager) CheckIn(ctx context.Context, reservationID int64) (*models.Reservation, error) {
	return h.step(ctx, reservationID, models.StatusOccupied, models.EventCheckIn)
}

// CheckOut completes an occupied reservation and frees the slot.
func (h *HoldManager) CheckOut(ctx context.Context, reservationID int64) (*models.Reservation, error) {
	return h.step(ctx, reservationID, models.StatusCompleted, models.EventCheckOut)
}

func (h *HoldManager) step(ctx context.Context, reservationID int64, to models.ReservationStatus, eventType string) (*models.Reservation, error) {
	m, err := h.mutate(ctx, reservationID, 0, func(tx repository.Tx, m *mutation, _ time.Time) error {
		return h.move(ctx, tx, m.res, to)
	})
	if err != nil {
		return nil, err
	}
	if m.expired {
		h.afterExpiry(ctx, m)
		return nil, &apperrors.TransitionError{ReservationID: reservationID, From: string(models.StatusExpired), To: string(to)}
	}
	h.afterTransition(ctx, m, eventType)
	return m.res, nil
}

// Reschedule moves a pending or confirmed reservation to another window on
// the same slot. Pending reservations are repriced; a gateway payment opened
// for the old price is dropped so the next Initiate charges the new one.
func (h *HoldManager) Reschedule(ctx context.Context, userID, reservationID int64, w models.Window) (*models.Reservation, error) {
	var stalePaymentID string
	m, err := h.mutate(ctx, reservationID, userID, func(tx repository.Tx, m *mutation, now time.Time) error {
		stalePaymentID = ""
		res := m.res
		if res.Status != models.StatusPending && res.Status != models.StatusConfirmed {
			return &apperrors.TransitionError{ReservationID: res.ID, From: string(res.Status), To: "rescheduled"}
		}

		window, err := normalizeWindow(res.Kind, w, now)
		if err != nil {
			return err
		}
		conflict, err := FindConflict(ctx, tx, res.SlotID, window, res.ID, now)
		if err != nil {
			return err
		}
		if conflict != nil {
			return &apperrors.ConflictError{SlotID: res.SlotID, Start: window.Start, End: window.End}
		}

		res.Window = window
		if res.Status == models.StatusPending {
			price, priceID, err := Quote(ctx, tx, res.ZoneID, res.Kind, window, now)
			if err != nil {
				return err
			}
			res.Price, res.PriceID = price, priceID
			if p := m.payment; p != nil && p.Status == models.PaymentPending && p.Amount != price {
				p.Amount = price
				if p.ExternalID != nil {
					stalePaymentID = *p.ExternalID
					p.ExternalID, p.PaymentURL = nil, nil
				}
				if err := tx.UpdatePayment(ctx, p); err != nil {
					return fmt.Errorf("failed to update payment: %w", err)
				}
			}
		}
		if err := tx.UpdateReservation(ctx, res); err != nil {
			return fmt.Errorf("failed to update reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			h.metrics.HoldConflict()
		}
		return nil, err
	}
	if m.expired {
		h.afterExpiry(ctx, m)
		return nil, &apperrors.TransitionError{ReservationID: reservationID, From: string(models.StatusExpired), To: "rescheduled"}
	}

	if stalePaymentID != "" && h.gateway != nil {
		if err := h.gateway.CancelPayment(ctx, stalePaymentID, "reservation repriced"); err != nil {
			logger.WithContext(ctx).Error("Failed to cancel gateway payment",
				"error", err,
				"reservation_id", reservationID,
				"payment_id", stalePaymentID)
		}
	}
	h.afterTransition(ctx, m, models.EventHoldRescheduled)
	return m.res, nil
}

// FailPayment records a declined payment. The hold stays pending so the
// user can retry until it expires.
func (h *HoldManager) FailPayment(ctx context.Context, reservationID int64) error {
	m, err := h.mutate(ctx, reservationID, 0, func(tx repository.Tx, m *mutation, _ time.Time) error {
		m.noop = true
		if m.payment == nil || m.payment.Status != models.PaymentPending {
			return nil
		}
		m.payment.Status = models.PaymentFailed
		if err := tx.UpdatePayment(ctx, m.payment); err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if m.expired {
		h.afterExpiry(ctx, m)
	}
	return nil
}

// SweepExpired expires every pending hold past its TTL. Each hold is
// re-checked under its slot lock, so running the sweep twice or racing a
// lazy expiry is harmless. It emits one hold.expired event per slot and
// one zone.updated event per zone.
func (h *HoldManager) SweepExpired(ctx context.Context) ([]int64, error) {
	started := time.Now()
	defer func() { h.metrics.ObserveSweep(time.Since(started).Seconds()) }()

	candidates, err := h.store.ListExpiredHolds(ctx, h.now(), h.policy.SweepBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired holds: %w", err)
	}

	var (
		ids       []int64
		errs      []error
		slotOrder []int64
		bySlot    = make(map[int64]*mutation)
		zoneOrder []int64
		byZone    = make(map[int64]int)
	)
	for _, c := range candidates {
		m, err := h.mutate(ctx, c.ID, 0, func(_ repository.Tx, m *mutation, _ time.Time) error {
			m.noop = true
			return nil
		})
		if err != nil {
			logger.WithContext(ctx).Error("Failed to expire hold", "reservation_id", c.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		if !m.expired {
			continue
		}

		ids = append(ids, m.res.ID)
		if _, seen := bySlot[m.res.SlotID]; !seen {
			slotOrder = append(slotOrder, m.res.SlotID)
		}
		bySlot[m.res.SlotID] = m
		if _, seen := byZone[m.res.ZoneID]; !seen {
			zoneOrder = append(zoneOrder, m.res.ZoneID)
		}
		byZone[m.res.ZoneID] = m.available
	}

	if len(ids) > 0 {
		now := h.now()
		events := make([]models.Event, 0, len(slotOrder)+len(zoneOrder))
		for _, slotID := range slotOrder {
			m := bySlot[slotID]
			events = append(events, newEvent(models.EventHoldExpired, m.res, byZone[m.res.ZoneID], now))
		}
		for _, zoneID := range zoneOrder {
			events = append(events, models.Event{
				Type:           models.EventZoneUpdated,
				ZoneID:         zoneID,
				AvailableSlots: byZone[zoneID],
				Timestamp:      now,
			})
		}
		h.metrics.HoldExpired(len(ids))
		h.publisher.Publish(events...)

		logger.WithContext(ctx).Info("Expired holds swept",
			"count", len(ids),
			"zones", len(zoneOrder))
	}

	return ids, errors.Join(errs...)
}

// Get returns a reservation visible to userID.
func (h *HoldManager) Get(ctx context.Context, userID, reservationID int64) (*models.Reservation, error) {
	res, err := h.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if res == nil {
		return nil, apperrors.NotFound("reservation", reservationID)
	}
	if res.UserID != userID {
		return nil, fmt.Errorf("reservation %d: %w", reservationID, apperrors.ErrForbidden)
	}
	return res, nil
}

func (h *HoldManager) List(ctx context.Context, userID int64) ([]models.Reservation, error) {
	list, err := h.store.ListReservationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return list, nil
}

// mutation is the state of one reservation transaction.
type mutation struct {
	res       *models.Reservation
	payment   *models.Payment
	available int
	// expired is set when the reservation turned out to be a pending hold
	// past its TTL. The expiry is committed and fn is not called.
	expired bool
	// noop skips the slot and zone rewrite.
	noop bool
}

// mutate runs fn against a reservation re-read under its slot lock. When
// ownerID is non-zero the reservation must belong to that user.
func (h *HoldManager) mutate(ctx context.Context, reservationID, ownerID int64, fn func(tx repository.Tx, m *mutation, now time.Time) error) (*mutation, error) {
	now := h.now()

	current, err := h.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if current == nil {
		return nil, apperrors.NotFound("reservation", reservationID)
	}
	if ownerID != 0 && current.UserID != ownerID {
		return nil, fmt.Errorf("reservation %d: %w", reservationID, apperrors.ErrForbidden)
	}

	m := &mutation{}
	err = h.store.Transact(ctx, func(tx repository.Tx) error {
		*m = mutation{}
		if _, err := tx.LockSlot(ctx, current.SlotID); err != nil {
			return fmt.Errorf("failed to lock slot: %w", err)
		}

		res, err := tx.GetReservation(ctx, reservationID)
		if err != nil {
			return fmt.Errorf("failed to get reservation: %w", err)
		}
		if res == nil {
			return apperrors.NotFound("reservation", reservationID)
		}
		payment, err := tx.GetPaymentByReservation(ctx, reservationID)
		if err != nil {
			return fmt.Errorf("failed to get payment: %w", err)
		}
		m.res, m.payment = res, payment

		if res.HoldExpired(now) {
			if err := h.expire(ctx, tx, res, payment); err != nil {
				return err
			}
			m.expired = true
		} else {
			if err := fn(tx, m, now); err != nil {
				return err
			}
			if m.noop {
				return nil
			}
		}

		if err := h.syncSlot(ctx, tx, res.SlotID, now); err != nil {
			return err
		}
		n, err := h.agg.Recompute(ctx, tx, res.ZoneID, now)
		m.available = n
		return err
	})
	if err != nil {
		return nil, err
	}

	if !m.noop {
		h.agg.Committed(ctx, m.res.ZoneID, m.available)
	}
	return m, nil
}

// move applies one state machine step and persists it.
func (h *HoldManager) move(ctx context.Context, tx repository.Tx, res *models.Reservation, to models.ReservationStatus) error {
	if !res.Status.CanTransition(to) {
		return &apperrors.TransitionError{ReservationID: res.ID, From: string(res.Status), To: string(to)}
	}
	res.Status = to
	if err := tx.UpdateReservation(ctx, res); err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	return nil
}

// expire moves a stale hold to expired and fails its pending payment. The
// payment is loaded when not supplied.
func (h *HoldManager) expire(ctx context.Context, tx repository.Tx, res *models.Reservation, payment *models.Payment) error {
	if err := h.move(ctx, tx, res, models.StatusExpired); err != nil {
		return err
	}
	if payment == nil {
		var err error
		if payment, err = tx.GetPaymentByReservation(ctx, res.ID); err != nil {
			return fmt.Errorf("failed to get payment: %w", err)
		}
	}
	if payment != nil && payment.Status == models.PaymentPending {
		payment.Status = models.PaymentFailed
		if err := tx.UpdatePayment(ctx, payment); err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
	}
	return nil
}

func (h *HoldManager) syncSlot(ctx context.Context, tx repository.Tx, slotID int64, now time.Time) error {
	active, err := tx.ListActiveReservationsBySlot(ctx, slotID)
	if err != nil {
		return fmt.Errorf("failed to list reservations: %w", err)
	}
	if err := tx.SetSlotState(ctx, slotID, DeriveSlotState(active, now)); err != nil {
		return fmt.Errorf("failed to update slot state: %w", err)
	}
	return nil
}

// compensate cancels the gateway payment of a hold that expired before the
// money arrived. Failures are logged; the reservation is already final.
func (h *HoldManager) compensate(ctx context.Context, reservationID int64, externalPaymentID string) {
	log := logger.WithContext(ctx).With("reservation_id", reservationID)
	log.Warn("Payment confirmed after hold expired")

	if h.gateway == nil {
		return
	}
	if externalPaymentID == "" {
		payment, err := h.store.GetPaymentByReservation(ctx, reservationID)
		if err != nil || payment == nil || payment.ExternalID == nil {
			return
		}
		externalPaymentID = *payment.ExternalID
	}
	if err := h.gateway.CancelPayment(ctx, externalPaymentID, "hold expired before payment"); err != nil {
		log.Error("Failed to cancel payment for expired hold", "error", err, "payment_id", externalPaymentID)
	}
}

func (h *HoldManager) afterTransition(ctx context.Context, m *mutation, eventType string) {
	h.metrics.Transition(string(m.res.Status))
	h.publisher.Publish(newEvent(eventType, m.res, m.available, h.now()))
	logger.WithContext(ctx).Info("Reservation status changed",
		"reservation_id", m.res.ID,
		"slot_id", m.res.SlotID,
		"status", m.res.Status)
}

func (h *HoldManager) afterExpiry(ctx context.Context, m *mutation) {
	h.metrics.HoldExpired(1)
	h.metrics.Transition(string(models.StatusExpired))
	h.publisher.Publish(newEvent(models.EventHoldExpired, m.res, m.available, h.now()))
	logger.WithContext(ctx).Info("Hold expired on access",
		"reservation_id", m.res.ID,
		"slot_id", m.res.SlotID)
}

func newEvent(eventType string, res *models.Reservation, available int, now time.Time) models.Event {
	w := res.Window
	return models.Event{
		Type:           eventType,
		ReservationID:  res.ID,
		SlotID:         res.SlotID,
		ZoneID:         res.ZoneID,
		AvailableSlots: available,
		Window:         &w,
		Timestamp:      now,
	}
}
