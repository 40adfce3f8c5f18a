package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/canerconnect/terminflow/libs/db"
	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
	"github.com/canerconnect/terminflow/services/booking-service/internal/outbox"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed schema.sql
var schemaSQL string

var (
	ErrNotFound = errors.New("storage: not found")
	ErrConflict = errors.New("storage: conflict")
)

// ConflictError is returned for exclusion and unique violations.
// It matches ErrConflict with errors.Is.
type ConflictError struct {
	Constraint string
}

func (e *ConflictError) Error() string {
	return "storage: conflict on " + e.Constraint
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

const (
	ConstraintAppointmentOverlap = "appointments_no_overlap"
	ConstraintBlockedOverlap     = "blocked_slots_no_overlap"
)

type Repository struct {
	pool   *db.Pool
	events *outbox.Repository
}

func NewRepository(pool *db.Pool, events *outbox.Repository) *Repository {
	return &Repository{pool: pool, events: events}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.pool.ExecScript(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// lockDay serializes every writer that can add occupancy to a customer day.
// The lock is released with the transaction.
func lockDay(ctx context.Context, tx pgx.Tx, customerID string, date time.Time) error {
	key := customerID + "|" + model.FormatDate(date)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("lock day %s: %w", key, err)
	}
	return nil
}

// translate maps driver errors onto the package sentinels.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23P01", "23505":
			return &ConflictError{Constraint: pgErr.ConstraintName}
		case "23503":
			return ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsConflict reports whether err is a conflict on the named constraint.
func IsConflict(err error, constraint string) bool {
	var ce *ConflictError
	return errors.As(err, &ce) && ce.Constraint == constraint
}

// validID rejects malformed ids before they reach Postgres, which would
// otherwise fail the uuid cast with a 22P02 instead of returning no rows.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
