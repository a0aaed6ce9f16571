package models

import "time"

// Event types published by the notifier. External sinks use them as
// subject suffixes (parking.<type>).
const (
	EventHoldCreated     = "hold.created"
	EventHoldConfirmed   = "hold.confirmed"
	EventHoldCancelled   = "hold.cancelled"
	EventHoldExpired     = "hold.expired"
	EventHoldRescheduled = "hold.rescheduled"
	EventCheckIn         = "reservation.checked_in"
	EventCheckOut        = "reservation.checked_out"
	EventZoneUpdated     = "zone.updated"
)

// SubjectPrefix namespaces event subjects on NATS and Valkey channels.
const SubjectPrefix = "parking."

// Event is a state change broadcast to subscribers.
type Event struct {
	Type           string    `json:"type"`
	ReservationID  int64     `json:"reservation_id,omitempty"`
	SlotID         int64     `json:"slot_id,omitempty"`
	ZoneID         int64     `json:"zone_id"`
	AvailableSlots int       `json:"available_slots"`
	Window         *Window   `json:"window,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

func (e Event) Subject() string {
	return SubjectPrefix + e.Type
}
