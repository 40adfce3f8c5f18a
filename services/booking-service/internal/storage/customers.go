package storage

import (
	"context"
	"errors"
	"time"

	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const customerColumns = `id::text, subdomain, name, email, phone, address, timezone, created_at`

func scanCustomer(row pgx.Row) (model.Customer, error) {
	var c model.Customer
	err := row.Scan(&c.ID, &c.Subdomain, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Timezone, &c.CreatedAt)
	return c, err
}

func (r *Repository) GetCustomer(ctx context.Context, id string) (model.Customer, error) {
	if !validID(id) {
		return model.Customer{}, ErrNotFound
	}
	c, err := scanCustomer(r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		return model.Customer{}, translate(err, "get customer")
	}
	return c, nil
}

func (r *Repository) GetCustomerBySubdomain(ctx context.Context, subdomain string) (model.Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE subdomain = lower($1)`, subdomain))
	if err != nil {
		return model.Customer{}, translate(err, "get customer by subdomain")
	}
	return c, nil
}

// CreateCustomer stores c with a fresh id and default settings.
func (r *Repository) CreateCustomer(ctx context.Context, c *model.Customer) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	return r.pool.InTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO customers (id, subdomain, name, email, phone, address, timezone)
			VALUES ($1, lower($2), $3, $4, $5, $6, $7)
			RETURNING created_at
		`, c.ID, c.Subdomain, c.Name, c.Email, c.Phone, c.Address, c.Timezone).Scan(&c.CreatedAt)
		if err != nil {
			return translate(err, "insert customer")
		}
		d := model.DefaultSettings()
		_, err = tx.Exec(ctx, `
			INSERT INTO settings (customer_id, appointment_duration, buffer_time, max_advance_booking_days,
				min_advance_booking_hours, cancellation_deadline_hours)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, c.ID, d.AppointmentDuration, d.BufferTime, d.MaxAdvanceBookingDays, d.MinAdvanceBookingHours, d.CancellationDeadlineHours)
		return translate(err, "insert default settings")
	})
}

func (r *Repository) CreateAdminUser(ctx context.Context, u *model.AdminUser) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO admin_users (id, customer_id, username, password_hash, role)
		VALUES ($1, $2, lower($3), $4, $5)
	`, u.ID, u.CustomerID, u.Username, u.PasswordHash, u.Role)
	return translate(err, "insert admin user")
}

func (r *Repository) GetAdminByUsername(ctx context.Context, username string) (model.AdminUser, error) {
	var u model.AdminUser
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, customer_id::text, username, password_hash, role
		FROM admin_users
		WHERE username = lower($1)
	`, username).Scan(&u.ID, &u.CustomerID, &u.Username, &u.PasswordHash, &u.Role)
	if err != nil {
		return model.AdminUser{}, translate(err, "get admin user")
	}
	return u, nil
}

func (r *Repository) GetWorkingHours(ctx context.Context, customerID string, weekday time.Weekday) (model.WorkingHours, bool, error) {
	if !validID(customerID) {
		return model.WorkingHours{}, false, nil
	}
	var (
		wh         model.WorkingHours
		start, end int
	)
	err := r.pool.QueryRow(ctx, `
		SELECT is_working_day, start_minute, end_minute
		FROM working_hours
		WHERE customer_id = $1 AND day_of_week = $2
	`, customerID, int(weekday)).Scan(&wh.IsWorkingDay, &start, &end)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.WorkingHours{}, false, nil
		}
		return model.WorkingHours{}, false, translate(err, "get working hours")
	}
	wh.Weekday = weekday
	wh.Start, wh.End = model.Clock(start), model.Clock(end)
	return wh, true, nil
}

func (r *Repository) ListWorkingHours(ctx context.Context, customerID string) ([]model.WorkingHours, error) {
	if !validID(customerID) {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT day_of_week, is_working_day, start_minute, end_minute
		FROM working_hours
		WHERE customer_id = $1
		ORDER BY day_of_week
	`, customerID)
	if err != nil {
		return nil, translate(err, "list working hours")
	}
	return collectWorkingHours(rows)
}

func collectWorkingHours(rows pgx.Rows) ([]model.WorkingHours, error) {
	defer rows.Close()
	var out []model.WorkingHours
	for rows.Next() {
		var day, start, end int
		var wh model.WorkingHours
		if err := rows.Scan(&day, &wh.IsWorkingDay, &start, &end); err != nil {
			return nil, translate(err, "scan working hours")
		}
		wh.Weekday = time.Weekday(day)
		wh.Start, wh.End = model.Clock(start), model.Clock(end)
		out = append(out, wh)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "list working hours")
	}
	return out, nil
}

// ReplaceWorkingHours swaps the whole week in one transaction.
func (r *Repository) ReplaceWorkingHours(ctx context.Context, customerID string, hours []model.WorkingHours) error {
	return r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM working_hours WHERE customer_id = $1`, customerID); err != nil {
			return translate(err, "delete working hours")
		}
		for _, wh := range hours {
			_, err := tx.Exec(ctx, `
				INSERT INTO working_hours (customer_id, day_of_week, is_working_day, start_minute, end_minute)
				VALUES ($1, $2, $3, $4, $5)
			`, customerID, int(wh.Weekday), wh.IsWorkingDay, int(wh.Start), int(wh.End))
			if err != nil {
				return translate(err, "insert working hours")
			}
		}
		return nil
	})
}

// GetSettings reads the settings row and creates it with defaults on first
// access.
func (r *Repository) GetSettings(ctx context.Context, customerID string) (model.Settings, error) {
	if !validID(customerID) {
		return model.Settings{}, ErrNotFound
	}
	s, err := getSettings(ctx, r.pool, customerID)
	if !errors.Is(err, ErrNotFound) {
		return s, err
	}
	d := model.DefaultSettings()
	_, err = r.pool.Exec(ctx, `
		INSERT INTO settings (customer_id, appointment_duration, buffer_time, max_advance_booking_days,
			min_advance_booking_hours, cancellation_deadline_hours)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (customer_id) DO NOTHING
	`, customerID, d.AppointmentDuration, d.BufferTime, d.MaxAdvanceBookingDays, d.MinAdvanceBookingHours, d.CancellationDeadlineHours)
	if err != nil {
		return model.Settings{}, translate(err, "ensure settings")
	}
	// A concurrent first read may have won the insert; read back what is stored.
	return getSettings(ctx, r.pool, customerID)
}

func getSettings(ctx context.Context, q querier, customerID string) (model.Settings, error) {
	var s model.Settings
	err := q.QueryRow(ctx, `
		SELECT appointment_duration, buffer_time, max_advance_booking_days,
			min_advance_booking_hours, cancellation_deadline_hours
		FROM settings
		WHERE customer_id = $1
	`, customerID).Scan(&s.AppointmentDuration, &s.BufferTime, &s.MaxAdvanceBookingDays, &s.MinAdvanceBookingHours, &s.CancellationDeadlineHours)
	if err != nil {
		return model.Settings{}, translate(err, "get settings")
	}
	return s, nil
}

func (r *Repository) UpsertSettings(ctx context.Context, customerID string, s model.Settings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO settings (customer_id, appointment_duration, buffer_time, max_advance_booking_days,
			min_advance_booking_hours, cancellation_deadline_hours, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (customer_id) DO UPDATE SET
			appointment_duration = EXCLUDED.appointment_duration,
			buffer_time = EXCLUDED.buffer_time,
			max_advance_booking_days = EXCLUDED.max_advance_booking_days,
			min_advance_booking_hours = EXCLUDED.min_advance_booking_hours,
			cancellation_deadline_hours = EXCLUDED.cancellation_deadline_hours,
			updated_at = now()
	`, customerID, s.AppointmentDuration, s.BufferTime, s.MaxAdvanceBookingDays, s.MinAdvanceBookingHours, s.CancellationDeadlineHours)
	return translate(err, "upsert settings")
}
