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

const appointmentColumns = `id::text, customer_id::text, patient_name, email, phone, notes, date,
	start_minute, end_minute, status, cancellation_token, cancelled_at, created_at, updated_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var (
		a          model.Appointment
		start, end int
		status     string
	)
	err := row.Scan(&a.ID, &a.CustomerID, &a.PatientName, &a.Email, &a.Phone, &a.Notes, &a.Date,
		&start, &end, &status, &a.CancellationToken, &a.CancelledAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Appointment{}, err
	}
	a.Start, a.End = model.Clock(start), model.Clock(end)
	a.Status = model.Status(status)
	return a, nil
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	defer rows.Close()
	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListOccupancy returns the non-cancelled appointments and the blocked slots of one day.
func (r *Repository) ListOccupancy(ctx context.Context, customerID string, date time.Time) (model.Occupancy, error) {
	if !validID(customerID) {
		return model.Occupancy{}, nil
	}
	return loadOccupancy(ctx, r.pool, customerID, date, "", "")
}

func loadOccupancy(ctx context.Context, q querier, customerID string, date time.Time, skipAppointment, skipBlocked string) (model.Occupancy, error) {
	rows, err := q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE customer_id = $1 AND date = $2 AND status <> 'cancelled'
			AND ($3 = '' OR id::text <> $3)
		ORDER BY start_minute
	`, customerID, date, skipAppointment)
	if err != nil {
		return model.Occupancy{}, translate(err, "list appointments for day")
	}
	appts, err := collectAppointments(rows)
	if err != nil {
		return model.Occupancy{}, translate(err, "scan appointments for day")
	}

	rows, err = q.Query(ctx, `
		SELECT `+blockedSlotColumns+`
		FROM blocked_slots
		WHERE customer_id = $1 AND date = $2 AND ($3 = '' OR id::text <> $3)
		ORDER BY start_minute
	`, customerID, date, skipBlocked)
	if err != nil {
		return model.Occupancy{}, translate(err, "list blocked slots for day")
	}
	blocked, err := collectBlockedSlots(rows)
	if err != nil {
		return model.Occupancy{}, translate(err, "scan blocked slots for day")
	}
	return model.Occupancy{Appointments: appts, Blocked: blocked}, nil
}

// InsertAppointmentIfNoConflict takes the day lock, hands the current
// occupancy to guard and inserts appt only if guard returns nil. The booked
// event is written in the same transaction.
func (r *Repository) InsertAppointmentIfNoConflict(ctx context.Context, appt *model.Appointment, guard func(model.Occupancy) error) error {
	return r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if err := lockDay(ctx, tx, appt.CustomerID, appt.Date); err != nil {
			return err
		}
		occ, err := loadOccupancy(ctx, tx, appt.CustomerID, appt.Date, "", "")
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(occ); err != nil {
				return err
			}
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO appointments
				(id, customer_id, patient_name, email, phone, notes, date, start_minute, end_minute, status, cancellation_token)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING created_at, updated_at
		`, appt.ID, appt.CustomerID, appt.PatientName, appt.Email, appt.Phone, appt.Notes, appt.Date,
			int(appt.Start), int(appt.End), string(appt.Status), appt.CancellationToken).Scan(&appt.CreatedAt, &appt.UpdatedAt)
		if err != nil {
			return translate(err, "insert appointment")
		}
		return r.writeAppointmentEvent(ctx, tx, outbox.EventAppointmentBooked, *appt)
	})
}

func (r *Repository) GetAppointment(ctx context.Context, customerID, id string) (model.Appointment, error) {
	if !validID(id) || !validID(customerID) {
		return model.Appointment{}, ErrNotFound
	}
	a, err := scanAppointment(r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 AND customer_id = $2
	`, id, customerID))
	if err != nil {
		return model.Appointment{}, translate(err, "get appointment")
	}
	return a, nil
}

// GetAppointmentByToken treats a wrong token exactly like a missing row.
func (r *Repository) GetAppointmentByToken(ctx context.Context, id, token string) (model.Appointment, error) {
	if !validID(id) || token == "" {
		return model.Appointment{}, ErrNotFound
	}
	a, err := scanAppointment(r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 AND cancellation_token = $2
	`, id, token))
	if err != nil {
		return model.Appointment{}, translate(err, "get appointment by token")
	}
	return a, nil
}

// CancelAppointmentByToken locks the row, lets check veto the cancellation
// and marks the appointment cancelled.
func (r *Repository) CancelAppointmentByToken(ctx context.Context, id, token string, check func(model.Appointment) error) (model.Appointment, error) {
	if !validID(id) || token == "" {
		return model.Appointment{}, ErrNotFound
	}
	var out model.Appointment
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		cur, err := scanAppointment(tx.QueryRow(ctx, `
			SELECT `+appointmentColumns+`
			FROM appointments
			WHERE id = $1 AND cancellation_token = $2
			FOR UPDATE
		`, id, token))
		if err != nil {
			return translate(err, "lock appointment")
		}
		if check != nil {
			if err := check(cur); err != nil {
				return err
			}
		}
		out, err = scanAppointment(tx.QueryRow(ctx, `
			UPDATE appointments
			SET status = 'cancelled', cancelled_at = now(), updated_at = now()
			WHERE id = $1
			RETURNING `+appointmentColumns, id))
		if err != nil {
			return translate(err, "cancel appointment")
		}
		return r.writeAppointmentEvent(ctx, tx, outbox.EventAppointmentCancelled, out)
	})
	return out, err
}

// UpdateAppointment locks the row, derives the new state with mutate, then
// takes the day lock of the new date and runs guard against that day's
// occupancy without the appointment itself.
func (r *Repository) UpdateAppointment(
	ctx context.Context,
	customerID, id string,
	mutate func(model.Appointment) (model.Appointment, error),
	guard func(cur, next model.Appointment, occ model.Occupancy) error,
) (model.Appointment, error) {
	if !validID(id) || !validID(customerID) {
		return model.Appointment{}, ErrNotFound
	}
	var out model.Appointment
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		cur, err := scanAppointment(tx.QueryRow(ctx, `
			SELECT `+appointmentColumns+`
			FROM appointments
			WHERE id = $1 AND customer_id = $2
			FOR UPDATE
		`, id, customerID))
		if err != nil {
			return translate(err, "lock appointment")
		}
		next, err := mutate(cur)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := lockDay(ctx, tx, customerID, next.Date); err != nil {
				return err
			}
			occ, err := loadOccupancy(ctx, tx, customerID, next.Date, id, "")
			if err != nil {
				return err
			}
			if err := guard(cur, next, occ); err != nil {
				return err
			}
		}

		out, err = scanAppointment(tx.QueryRow(ctx, `
			UPDATE appointments
			SET patient_name = $2, email = $3, phone = $4, notes = $5, date = $6,
				start_minute = $7, end_minute = $8, status = $9,
				cancelled_at = CASE WHEN $9 = 'cancelled' THEN COALESCE(cancelled_at, now()) ELSE NULL END,
				updated_at = now()
			WHERE id = $1
			RETURNING `+appointmentColumns,
			id, next.PatientName, next.Email, next.Phone, next.Notes, next.Date,
			int(next.Start), int(next.End), string(next.Status)))
		if err != nil {
			return translate(err, "update appointment")
		}

		eventType := outbox.EventAppointmentUpdated
		if out.Status == model.StatusCancelled && cur.Status != model.StatusCancelled {
			eventType = outbox.EventAppointmentCancelled
		}
		return r.writeAppointmentEvent(ctx, tx, eventType, out)
	})
	return out, err
}

func (r *Repository) DeleteAppointment(ctx context.Context, customerID, id string) (model.Appointment, error) {
	if !validID(id) || !validID(customerID) {
		return model.Appointment{}, ErrNotFound
	}
	var out model.Appointment
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = scanAppointment(tx.QueryRow(ctx, `
			DELETE FROM appointments WHERE id = $1 AND customer_id = $2
			RETURNING `+appointmentColumns, id, customerID))
		if err != nil {
			return translate(err, "delete appointment")
		}
		return r.writeAppointmentEvent(ctx, tx, outbox.EventAppointmentDeleted, out)
	})
	return out, err
}

// collectAppointmentPage scans appointments that carry a trailing
// count(*) OVER () column.
func collectAppointmentPage(rows pgx.Rows) ([]model.Appointment, int, error) {
	defer rows.Close()
	var (
		out   []model.Appointment
		total int
	)
	for rows.Next() {
		var (
			a          model.Appointment
			start, end int
			status     string
		)
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.PatientName, &a.Email, &a.Phone, &a.Notes, &a.Date,
			&start, &end, &status, &a.CancellationToken, &a.CancelledAt, &a.CreatedAt, &a.UpdatedAt, &total); err != nil {
			return nil, 0, translate(err, "scan appointments")
		}
		a.Start, a.End = model.Clock(start), model.Clock(end)
		a.Status = model.Status(status)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate(err, "list appointments")
	}
	return out, total, nil
}

// ListAppointments returns one page plus the total row count for the filter.
func (r *Repository) ListAppointments(ctx context.Context, customerID string, f model.AppointmentFilter) ([]model.Appointment, int, error) {
	if !validID(customerID) {
		return nil, 0, nil
	}
	where := []string{"customer_id = $1"}
	args := []any{customerID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Date != nil {
		add("date = $%d", *f.Date)
	}
	if f.From != nil {
		add("date >= $%d", *f.From)
	}
	if f.To != nil {
		add("date <= $%d", *f.To)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s, count(*) OVER ()
		FROM appointments
		WHERE %s
		ORDER BY date, start_minute
		LIMIT $%d OFFSET $%d
	`, appointmentColumns, strings.Join(where, " AND "), len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, translate(err, "list appointments")
	}
	out, total, err := collectAppointmentPage(rows)
	if err != nil {
		return nil, 0, err
	}
	if len(out) == 0 && f.Offset > 0 {
		// Past the last page: count(*) OVER () has no row to ride on.
		if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM appointments WHERE %s`,
			strings.Join(where, " AND ")), args[:len(args)-2]...).Scan(&total); err != nil {
			return nil, 0, translate(err, "count appointments")
		}
	}
	return out, total, nil
}

// AppointmentStats counts appointments by status and splits them around now.
func (r *Repository) AppointmentStats(ctx context.Context, customerID string, today time.Time, now model.Clock) (model.AppointmentStats, error) {
	stats := model.AppointmentStats{ByStatus: map[model.Status]int{}}
	if !validID(customerID) {
		return stats, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT status,
			count(*),
			count(*) FILTER (WHERE status IN ('confirmed', 'pending')
				AND (date > $2 OR (date = $2 AND start_minute >= $3))),
			count(*) FILTER (WHERE date < $2 OR (date = $2 AND start_minute < $3)),
			count(*) FILTER (WHERE date = $2 AND status <> 'cancelled')
		FROM appointments
		WHERE customer_id = $1
		GROUP BY status
	`, customerID, today, int(now))
	if err != nil {
		return stats, translate(err, "appointment stats")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status                               string
			total, upcoming, past, todayOccupied int
		)
		if err := rows.Scan(&status, &total, &upcoming, &past, &todayOccupied); err != nil {
			return stats, err
		}
		stats.ByStatus[model.Status(status)] = total
		stats.Total += total
		stats.Upcoming += upcoming
		stats.Past += past
		stats.Today += todayOccupied
	}
	return stats, rows.Err()
}

func (r *Repository) writeAppointmentEvent(ctx context.Context, tx pgx.Tx, eventType string, a model.Appointment) error {
	evt, err := outbox.AppointmentEvent(eventType, a)
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}
	return r.events.Insert(ctx, tx, evt)
}
