package models

import (
	"time"
)

// User is a read-only directory entry for the reservation owner.
type User struct {
	ID        int64     `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Vehicle is a read-only directory entry for the parked vehicle.
type Vehicle struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Plate     string    `json:"plate" db:"plate"`
	Type      string    `json:"type" db:"type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Zone groups slots and carries the denormalized availability counter.
// AvailableSlots is written only by the availability aggregator.
type Zone struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Address        string    `json:"address" db:"address"`
	TotalSlots     int       `json:"total_slots" db:"total_slots"`
	AvailableSlots int       `json:"available_slots" db:"available_slots"`
	GridRows       int       `json:"grid_rows" db:"grid_rows"`
	GridCols       int       `json:"grid_cols" db:"grid_cols"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

type SlotState string

const (
	SlotAvailable SlotState = "available"
	SlotHeld      SlotState = "held"
	SlotOccupied  SlotState = "occupied"
)

// Slot is a single parking space. State is a projection of the ledger.
type Slot struct {
	ID        int64     `json:"id" db:"id"`
	ZoneID    int64     `json:"zone_id" db:"zone_id"`
	Code      string    `json:"code" db:"code"`
	PositionX int       `json:"position_x" db:"position_x"`
	PositionY int       `json:"position_y" db:"position_y"`
	State     SlotState `json:"state" db:"state"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type TicketType string

const (
	TicketHourly  TicketType = "hourly"
	TicketDaily   TicketType = "daily"
	TicketMonthly TicketType = "monthly"
)

// TicketPrice is a price tier valid within [ValidFrom, ValidTo].
type TicketPrice struct {
	ID         int64      `json:"id" db:"id"`
	ZoneID     int64      `json:"zone_id" db:"zone_id"`
	TicketType TicketType `json:"ticket_type" db:"ticket_type"`
	Amount     int64      `json:"amount" db:"amount"`
	ValidFrom  time.Time  `json:"valid_from" db:"valid_from"`
	ValidTo    *time.Time `json:"valid_to" db:"valid_to"`
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment is the minimal view of the gateway payment linked to a reservation.
type Payment struct {
	ID            int64         `json:"id" db:"id"`
	ReservationID int64         `json:"reservation_id" db:"reservation_id"`
	Amount        int64         `json:"amount" db:"amount"`
	Status        PaymentStatus `json:"status" db:"status"`
	Reference     string        `json:"reference" db:"reference"`
	ExternalID    *string       `json:"external_id" db:"external_id"`
	PaymentURL    *string       `json:"payment_url" db:"payment_url"`
	RefundAmount  int64         `json:"refund_amount" db:"refund_amount"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}
