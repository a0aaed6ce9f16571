package models

import (
	"time"
)

type BookingKind string

const (
	KindSingleWindow BookingKind = "single-window"
	KindSubscription BookingKind = "subscription"
)

func (k BookingKind) Valid() bool {
	return k == KindSingleWindow || k == KindSubscription
}

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusOccupied  ReservationStatus = "occupied"
	StatusCompleted ReservationStatus = "completed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusExpired   ReservationStatus = "expired"
)

// ActiveStatuses are the statuses that claim a slot for their window.
var ActiveStatuses = []ReservationStatus{StatusPending, StatusConfirmed, StatusOccupied}

var transitions = map[ReservationStatus][]ReservationStatus{
	StatusPending:   {StatusConfirmed, StatusExpired, StatusOccupied, StatusCancelled},
	StatusConfirmed: {StatusOccupied, StatusCancelled},
	StatusOccupied:  {StatusCompleted},
}

func (s ReservationStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusOccupied
}

func (s ReservationStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusExpired
}

// CanTransition reports whether the ledger allows moving from s to next.
func (s ReservationStatus) CanTransition(next ReservationStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Window is a half-open interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// DayAligned widens the window to whole days in the window's location:
// start is floored to midnight and end is ceiled to the next midnight.
func (w Window) DayAligned() Window {
	start := time.Date(w.Start.Year(), w.Start.Month(), w.Start.Day(), 0, 0, 0, 0, w.Start.Location())
	end := time.Date(w.End.Year(), w.End.Month(), w.End.Day(), 0, 0, 0, 0, w.End.Location())
	if end.Before(w.End) {
		end = end.AddDate(0, 0, 1)
	}
	return Window{Start: start, End: end}
}

// Reservation is a ledger entry. Rows are never deleted.
type Reservation struct {
	ID              int64             `json:"id" db:"id"`
	UserID          int64             `json:"user_id" db:"user_id"`
	VehicleID       int64             `json:"vehicle_id" db:"vehicle_id"`
	SlotID          int64             `json:"slot_id" db:"slot_id"`
	ZoneID          int64             `json:"zone_id" db:"zone_id"`
	PriceID         *int64            `json:"price_id" db:"price_id"`
	Kind            BookingKind       `json:"kind" db:"kind"`
	Window          Window            `json:"window"`
	Status          ReservationStatus `json:"status" db:"status"`
	Price           int64             `json:"price" db:"price"`
	CancellationFee int64             `json:"cancellation_fee" db:"cancellation_fee"`
	Reference       string            `json:"reference" db:"reference"`
	ExpiresAt       time.Time         `json:"expires_at" db:"expires_at"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// HoldExpired reports whether a pending hold outlived its TTL at now.
func (r *Reservation) HoldExpired(now time.Time) bool {
	return r.Status == StatusPending && now.After(r.ExpiresAt)
}

// Blocks reports whether the reservation still claims its window at now.
// Pending holds past their TTL are treated as already expired.
func (r *Reservation) Blocks(now time.Time) bool {
	return r.Status.IsActive() && !r.HoldExpired(now)
}
