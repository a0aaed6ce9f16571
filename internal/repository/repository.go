package repository

import (
	"context"
	"errors"
	"time"

	"parking/internal/models"

	sq "github.com/Masterminds/squirrel"
)

var (
	ErrBuildQuery = errors.New("repository: failed to build query")
	ErrExecQuery  = errors.New("repository: failed to execute query")
	ErrScanRow    = errors.New("repository: failed to scan row")
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Reader is the read side shared by the store and open transactions.
// Lookups of a single entity return (nil, nil) when it does not exist.
type Reader interface {
	GetZone(ctx context.Context, id int64) (*models.Zone, error)
	ListZones(ctx context.Context) ([]models.Zone, error)
	GetSlot(ctx context.Context, id int64) (*models.Slot, error)
	ListSlotsByZone(ctx context.Context, zoneID int64) ([]models.Slot, error)

	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	GetReservationByReference(ctx context.Context, reference string) (*models.Reservation, error)
	ListReservationsByUser(ctx context.Context, userID int64) ([]models.Reservation, error)
	ListActiveReservationsBySlot(ctx context.Context, slotID int64) ([]models.Reservation, error)
	ListActiveReservationsByZone(ctx context.Context, zoneID int64) ([]models.Reservation, error)
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error)

	GetPaymentByReservation(ctx context.Context, reservationID int64) (*models.Payment, error)
	GetPaymentByReference(ctx context.Context, reference string) (*models.Payment, error)

	GetCurrentPrice(ctx context.Context, zoneID int64, ticketType models.TicketType, at time.Time) (*models.TicketPrice, error)

	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error)
}

// Writer mutations are only available inside Transact.
type Writer interface {
	// LockSlot takes an exclusive lock on the slot row until the
	// transaction ends. Every reservation or payment mutation for a slot
	// happens while that slot is locked.
	LockSlot(ctx context.Context, id int64) (*models.Slot, error)
	// LockZone serializes availability recomputation for a zone.
	// Lock order is slot then zone.
	LockZone(ctx context.Context, id int64) (*models.Zone, error)

	SetSlotState(ctx context.Context, slotID int64, state models.SlotState) error
	SetZoneAvailable(ctx context.Context, zoneID int64, available int) error

	CreateReservation(ctx context.Context, r *models.Reservation) error
	UpdateReservation(ctx context.Context, r *models.Reservation) error

	CreatePayment(ctx context.Context, p *models.Payment) error
	UpdatePayment(ctx context.Context, p *models.Payment) error
}

type Tx interface {
	Reader
	Writer
}

// Store is the durable record of zones, slots, reservations and payments.
type Store interface {
	Reader
	// Transact runs fn in one transaction. Any error returned by fn rolls
	// back every write made through tx.
	Transact(ctx context.Context, fn func(tx Tx) error) error
}

// Seeder creates reference data. Used by the generator and tests.
type Seeder interface {
	CreateUser(ctx context.Context, u *models.User) error
	CreateVehicle(ctx context.Context, v *models.Vehicle) error
	CreateZone(ctx context.Context, z *models.Zone) error
	CreateSlot(ctx context.Context, s *models.Slot) error
	CreateTicketPrice(ctx context.Context, p *models.TicketPrice) error
}
