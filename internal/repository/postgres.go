package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parking/internal/database"

	sq "github.com/Masterminds/squirrel"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type queries struct {
	q querier
}

// PostgresStore implements Store on top of lib/pq. Atomicity of holds
// relies on SELECT ... FOR UPDATE on the slot row.
type PostgresStore struct {
	*queries
	db *database.DB
}

func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{
		queries: &queries{q: db.DB},
		db:      db,
	}
}

func (s *PostgresStore) Transact(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrExecQuery, err)
	}
	defer sqlTx.Rollback()

	if err := fn(&pgTx{queries: &queries{q: sqlTx}}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrExecQuery, err)
	}
	return nil
}

type pgTx struct {
	*queries
}

// queryRow runs b and hands the row to scan. found is false on sql.ErrNoRows.
func (r *queries) queryRow(ctx context.Context, b sq.Sqlizer, op string, scan func(scanner) error) (bool, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrBuildQuery, op, err)
	}

	err = scan(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrExecQuery, op, err)
	}
	return true, nil
}

func (r *queries) queryRows(ctx context.Context, b sq.Sqlizer, op string, each func(scanner) error) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBuildQuery, op, err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExecQuery, op, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := each(rows); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrScanRow, op, err)
		}
	}
	return rows.Err()
}

func (r *queries) exec(ctx context.Context, b sq.Sqlizer, op string) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBuildQuery, op, err)
	}
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExecQuery, op, err)
	}
	return nil
}
