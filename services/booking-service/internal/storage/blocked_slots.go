package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
	"github.com/canerconnect/terminflow/services/booking-service/internal/outbox"
	"github.com/jackc/pgx/v5"
)

const blockedSlotColumns = `id::text, customer_id::text, date, start_minute, end_minute, reason, created_by, created_at`

func scanBlockedSlot(row pgx.Row) (model.BlockedSlot, error) {
	var (
		s          model.BlockedSlot
		start, end int
	)
	if err := row.Scan(&s.ID, &s.CustomerID, &s.Date, &start, &end, &s.Reason, &s.CreatedBy, &s.CreatedAt); err != nil {
		return model.BlockedSlot{}, err
	}
	s.Start, s.End = model.Clock(start), model.Clock(end)
	return s, nil
}

func collectBlockedSlots(rows pgx.Rows) ([]model.BlockedSlot, error) {
	defer rows.Close()
	var out []model.BlockedSlot
	for rows.Next() {
		s, err := scanBlockedSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) ListBlockedSlots(ctx context.Context, customerID string, from, to *time.Time) ([]model.BlockedSlot, error) {
	if !validID(customerID) {
		return nil, nil
	}
	where := []string{"customer_id = $1"}
	args := []any{customerID}
	if from != nil {
		args = append(args, *from)
		where = append(where, fmt.Sprintf("date >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		where = append(where, fmt.Sprintf("date <= $%d", len(args)))
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+blockedSlotColumns+`
		FROM blocked_slots
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY date, start_minute
	`, args...)
	if err != nil {
		return nil, translate(err, "list blocked slots")
	}
	out, err := collectBlockedSlots(rows)
	if err != nil {
		return nil, translate(err, "scan blocked slots")
	}
	return out, nil
}

func (r *Repository) GetBlockedSlot(ctx context.Context, customerID, id string) (model.BlockedSlot, error) {
	if !validID(id) || !validID(customerID) {
		return model.BlockedSlot{}, ErrNotFound
	}
	s, err := scanBlockedSlot(r.pool.QueryRow(ctx, `
		SELECT `+blockedSlotColumns+` FROM blocked_slots WHERE id = $1 AND customer_id = $2
	`, id, customerID))
	if err != nil {
		return model.BlockedSlot{}, translate(err, "get blocked slot")
	}
	return s, nil
}

// InsertBlockedSlot holds the same day lock as bookings so a block and a
// booking for one day cannot interleave.
func (r *Repository) InsertBlockedSlot(ctx context.Context, slot *model.BlockedSlot, guard func(model.Occupancy) error) error {
	return r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if err := lockDay(ctx, tx, slot.CustomerID, slot.Date); err != nil {
			return err
		}
		occ, err := loadOccupancy(ctx, tx, slot.CustomerID, slot.Date, "", "")
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(occ); err != nil {
				return err
			}
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO blocked_slots (id, customer_id, date, start_minute, end_minute, reason, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at
		`, slot.ID, slot.CustomerID, slot.Date, int(slot.Start), int(slot.End), slot.Reason, slot.CreatedBy).Scan(&slot.CreatedAt)
		if err != nil {
			return translate(err, "insert blocked slot")
		}
		return r.writeBlockedSlotEvent(ctx, tx, "created", *slot)
	})
}

func (r *Repository) UpdateBlockedSlot(
	ctx context.Context,
	customerID, id string,
	mutate func(model.BlockedSlot) (model.BlockedSlot, error),
	guard func(next model.BlockedSlot, occ model.Occupancy) error,
) (model.BlockedSlot, error) {
	if !validID(id) || !validID(customerID) {
		return model.BlockedSlot{}, ErrNotFound
	}
	var out model.BlockedSlot
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		cur, err := scanBlockedSlot(tx.QueryRow(ctx, `
			SELECT `+blockedSlotColumns+`
			FROM blocked_slots
			WHERE id = $1 AND customer_id = $2
			FOR UPDATE
		`, id, customerID))
		if err != nil {
			return translate(err, "lock blocked slot")
		}
		next, err := mutate(cur)
		if err != nil {
			return err
		}
		if err := lockDay(ctx, tx, customerID, next.Date); err != nil {
			return err
		}
		occ, err := loadOccupancy(ctx, tx, customerID, next.Date, "", id)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(next, occ); err != nil {
				return err
			}
		}
		out, err = scanBlockedSlot(tx.QueryRow(ctx, `
			UPDATE blocked_slots
			SET date = $2, start_minute = $3, end_minute = $4, reason = $5
			WHERE id = $1
			RETURNING `+blockedSlotColumns,
			id, next.Date, int(next.Start), int(next.End), next.Reason))
		if err != nil {
			return translate(err, "update blocked slot")
		}
		return r.writeBlockedSlotEvent(ctx, tx, "updated", out)
	})
	return out, err
}

func (r *Repository) DeleteBlockedSlot(ctx context.Context, customerID, id string) error {
	if !validID(id) || !validID(customerID) {
		return ErrNotFound
	}
	return r.pool.InTx(ctx, func(tx pgx.Tx) error {
		s, err := scanBlockedSlot(tx.QueryRow(ctx, `
			DELETE FROM blocked_slots WHERE id = $1 AND customer_id = $2
			RETURNING `+blockedSlotColumns, id, customerID))
		if err != nil {
			return translate(err, "delete blocked slot")
		}
		return r.writeBlockedSlotEvent(ctx, tx, "deleted", s)
	})
}

func (r *Repository) writeBlockedSlotEvent(ctx context.Context, tx pgx.Tx, action string, s model.BlockedSlot) error {
	evt, err := outbox.BlockedSlotEvent(action, s)
	if err != nil {
		return fmt.Errorf("build blocked slot event: %w", err)
	}
	return r.events.Insert(ctx, tx, evt)
}
