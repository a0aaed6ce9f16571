package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"parking/internal/database"
	"parking/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(database.Wrap(db)), mock
}

func reservationRow(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(reservationColumns).AddRow(
		int64(7), int64(1), int64(2), int64(3), int64(4), nil, "single-window",
		now, now.Add(time.Hour), "pending", int64(300), int64(0),
		"6f1c2d1e-9a4b-4c39-8f0e-1b2c3d4e5f60", now.Add(15*time.Minute), now, now,
	)
}

func TestGetReservation(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM reservations WHERE id = \$1`).
		WillReturnRows(reservationRow(now))

	res, err := store.GetReservation(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, int64(7), res.ID)
	assert.Equal(t, models.KindSingleWindow, res.Kind)
	assert.Equal(t, models.StatusPending, res.Status)
	assert.Nil(t, res.PriceID)
	assert.Equal(t, time.Hour, res.Window.Duration())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReservation_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM reservations WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(reservationColumns))

	res, err := store.GetReservation(context.Background(), 99)
	assert.NoError(t, err)
	assert.Nil(t, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveReservationsBySlot(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM reservations WHERE slot_id = \$1 AND status IN \(\$2,\$3,\$4\) ORDER BY start_time`).
		WillReturnRows(reservationRow(now))

	list, err := store.ListActiveReservationsBySlot(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM zones`).WillReturnError(errors.New("connection reset"))

	_, err := store.ListZones(context.Background())
	assert.ErrorIs(t, err, ErrExecQuery)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransact_Commit(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM slots WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(slotColumns).
			AddRow(int64(3), int64(4), "A-01", 0, 0, "available", time.Now()))
	mock.ExpectExec(`UPDATE slots SET state = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Transact(context.Background(), func(tx Tx) error {
		slot, err := tx.LockSlot(context.Background(), 3)
		if err != nil {
			return err
		}
		return tx.SetSlotState(context.Background(), slot.ID, models.SlotHeld)
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransact_RollbackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.Transact(context.Background(), func(tx Tx) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReservation_ReturnsID(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO reservations .* RETURNING id, created_at, updated_at`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(42), now, now))
	mock.ExpectCommit()

	res := &models.Reservation{
		UserID:    1,
		VehicleID: 2,
		SlotID:    3,
		ZoneID:    4,
		Kind:      models.KindSingleWindow,
		Window:    models.Window{Start: now, End: now.Add(time.Hour)},
		Status:    models.StatusPending,
		Reference: "ref",
		ExpiresAt: now.Add(15 * time.Minute),
	}
	err := store.Transact(context.Background(), func(tx Tx) error {
		return tx.CreateReservation(context.Background(), res)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
