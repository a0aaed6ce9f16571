package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createVehiclesTable,
		createZonesTable,
		createSlotsTable,
		createTicketPricesTable,
		createReservationsTable,
		createReservationsIndexes,
		createPaymentsTable,
	}

	for i, migration := range migrations {
		slog.Debug("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully", "count", len(migrations))
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    name VARCHAR(200) NOT NULL,
    phone VARCHAR(32) NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createVehiclesTable = `
CREATE TABLE IF NOT EXISTS vehicles (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    plate VARCHAR(32) NOT NULL,
    type VARCHAR(32) NOT NULL DEFAULT 'car',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    UNIQUE(plate)
);`

const createZonesTable = `
CREATE TABLE IF NOT EXISTS zones (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(200) NOT NULL,
    address VARCHAR(500) NOT NULL DEFAULT '',
    total_slots INTEGER NOT NULL DEFAULT 0,
    available_slots INTEGER NOT NULL DEFAULT 0,
    grid_rows INTEGER NOT NULL DEFAULT 0,
    grid_cols INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createSlotsTable = `
CREATE TABLE IF NOT EXISTS slots (
    id BIGSERIAL PRIMARY KEY,
    zone_id BIGINT NOT NULL REFERENCES zones(id) ON DELETE CASCADE,
    code VARCHAR(32) NOT NULL,
    position_x INTEGER NOT NULL DEFAULT 0,
    position_y INTEGER NOT NULL DEFAULT 0,
    state VARCHAR(20) NOT NULL DEFAULT 'available',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    UNIQUE(zone_id, code),
    CHECK (state IN ('available', 'held', 'occupied'))
);`

const createTicketPricesTable = `
CREATE TABLE IF NOT EXISTS ticket_prices (
    id BIGSERIAL PRIMARY KEY,
    zone_id BIGINT NOT NULL REFERENCES zones(id) ON DELETE CASCADE,
    ticket_type VARCHAR(20) NOT NULL,
    amount BIGINT NOT NULL,
    valid_from TIMESTAMPTZ NOT NULL,
    valid_to TIMESTAMPTZ,

    CHECK (ticket_type IN ('hourly', 'daily', 'monthly')),
    CHECK (amount >= 0)
);`

const createReservationsTable = `
CREATE TABLE IF NOT EXISTS reservations (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    vehicle_id BIGINT NOT NULL REFERENCES vehicles(id),
    slot_id BIGINT NOT NULL REFERENCES slots(id),
    zone_id BIGINT NOT NULL REFERENCES zones(id),
    price_id BIGINT REFERENCES ticket_prices(id),
    kind VARCHAR(20) NOT NULL,
    start_time TIMESTAMPTZ NOT NULL,
    end_time TIMESTAMPTZ NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    price BIGINT NOT NULL DEFAULT 0,
    cancellation_fee BIGINT NOT NULL DEFAULT 0,
    reference UUID NOT NULL UNIQUE,
    expires_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (end_time > start_time),
    CHECK (kind IN ('single-window', 'subscription')),
    CHECK (status IN ('pending', 'confirmed', 'occupied', 'completed', 'cancelled', 'expired'))
);`

const createReservationsIndexes = `
CREATE INDEX IF NOT EXISTS reservations_active_slot_idx
    ON reservations (slot_id, start_time, end_time)
    WHERE status IN ('pending', 'confirmed', 'occupied');
CREATE INDEX IF NOT EXISTS reservations_active_zone_idx
    ON reservations (zone_id)
    WHERE status IN ('pending', 'confirmed', 'occupied');
CREATE INDEX IF NOT EXISTS reservations_pending_expiry_idx
    ON reservations (expires_at)
    WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS reservations_user_idx
    ON reservations (user_id, created_at DESC);`

const createPaymentsTable = `
CREATE TABLE IF NOT EXISTS payments (
    id BIGSERIAL PRIMARY KEY,
    reservation_id BIGINT NOT NULL UNIQUE REFERENCES reservations(id),
    amount BIGINT NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    reference VARCHAR(64) NOT NULL UNIQUE,
    external_id VARCHAR(255),
    payment_url TEXT,
    refund_amount BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (status IN ('pending', 'completed', 'failed'))
);`
