package booking

import (
	"context"
	"time"

	"github.com/canerconnect/terminflow/services/booking-service/internal/availability"
	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type ListQuery struct {
	Date   *time.Time
	From   *time.Time
	To     *time.Time
	Status model.Status
	Page   int
	Limit  int
}

type BookingPage struct {
	Items      []model.Appointment
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// BookingUpdate holds the fields an admin changes; nil fields are kept.
type BookingUpdate struct {
	PatientName *string
	Email       *string
	Phone       *string
	Notes       *string
	Date        *string
	StartTime   *string
	Status      *model.Status
}

func (u BookingUpdate) touchesPatient() bool {
	return u.PatientName != nil || u.Email != nil || u.Phone != nil || u.Notes != nil
}

func (s *Service) ListBookings(ctx context.Context, customerID string, q ListQuery) (BookingPage, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return BookingPage{}, invalid("to must not be before from")
	}
	items, total, err := s.store.ListAppointments(ctx, customerID, model.AppointmentFilter{
		Date:   q.Date,
		From:   q.From,
		To:     q.To,
		Status: q.Status,
		Limit:  q.Limit,
		Offset: (q.Page - 1) * q.Limit,
	})
	if err != nil {
		return BookingPage{}, fromStore("list appointments", err, nil)
	}
	if items == nil {
		items = []model.Appointment{}
	}
	return BookingPage{
		Items:      items,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: (total + q.Limit - 1) / q.Limit,
	}, nil
}

func (s *Service) GetBooking(ctx context.Context, customerID, id string) (model.Appointment, error) {
	a, err := s.store.GetAppointment(ctx, customerID, id)
	if err != nil {
		return model.Appointment{}, fromStore("load appointment", err, ErrBookingNotFound)
	}
	return a, nil
}

// UpdateBooking applies an admin edit. Moving the appointment or reactivating
// a cancelled one re-runs the working hours and occupancy checks against the
// target day, ignoring the appointment's own row.
func (s *Service) UpdateBooking(ctx context.Context, customerID, id string, u BookingUpdate) (model.Appointment, error) {
	ctx, span := s.startSpan(ctx, "UpdateBooking",
		attribute.String("customer.id", customerID),
		attribute.String("appointment.id", id),
	)
	a, err := s.updateBooking(ctx, customerID, id, u)
	endSpan(span, err)
	return a, err
}

func (s *Service) updateBooking(ctx context.Context, customerID, id string, u BookingUpdate) (model.Appointment, error) {
	cur, err := s.store.GetAppointment(ctx, customerID, id)
	if err != nil {
		return model.Appointment{}, fromStore("load appointment", err, ErrBookingNotFound)
	}
	day, err := s.loadCustomerDay(ctx, customerID)
	if err != nil {
		return model.Appointment{}, err
	}

	target := cur.Date
	if u.Date != nil {
		if target, err = model.ParseDate(*u.Date); err != nil {
			return model.Appointment{}, invalid(err.Error())
		}
	}
	var start *model.Clock
	if u.StartTime != nil {
		c, err := model.ParseClock(*u.StartTime)
		if err != nil {
			return model.Appointment{}, invalid(err.Error())
		}
		start = &c
	}
	wh, whOK, err := s.store.GetWorkingHours(ctx, customerID, target.Weekday())
	if err != nil {
		return model.Appointment{}, fromStore("load working hours", err, nil)
	}

	mutate := func(a model.Appointment) (model.Appointment, error) {
		if u.touchesPatient() {
			in, err := s.validatePatient(
				pick(u.PatientName, a.PatientName),
				pick(u.Email, a.Email),
				pick(u.Phone, a.Phone),
				pick(u.Notes, a.Notes),
			)
			if err != nil {
				return a, err
			}
			a.PatientName, a.Email, a.Phone, a.Notes = in.name, in.email, in.phone, in.notes
		}
		if u.Date != nil || start != nil {
			length := int(a.End - a.Start)
			a.Date = target
			if start != nil {
				a.Start = *start
			}
			a.End = a.Start.Add(length)
			if a.End > model.MinutesPerDay {
				return a, ErrOutsideHours
			}
		}
		if u.Status != nil {
			a.Status = *u.Status
		}
		return a, nil
	}

	guard := func(cur, next model.Appointment, occ model.Occupancy) error {
		moved := !next.Date.Equal(cur.Date) || next.Start != cur.Start || next.End != cur.End
		reactivated := !cur.Status.Occupies() && next.Status.Occupies()
		if !next.Status.Occupies() || (!moved && !reactivated) {
			return nil
		}
		if !next.Date.Equal(target) {
			return ErrStaleWrite
		}
		if moved && model.At(next.Date, next.Start, day.loc).Before(day.now) {
			return ErrPastDate
		}
		iv := availability.Interval{Start: next.Start, End: next.End}
		if err := withinWorkingHours(wh, whOK, iv); err != nil {
			return err
		}
		return checkOccupancy(iv, day.settings.BufferTime, availability.BusyFrom(occ))
	}

	out, err := s.store.UpdateAppointment(ctx, customerID, id, mutate, guard)
	if err != nil {
		return model.Appointment{}, fromStore("update appointment", err, ErrBookingNotFound)
	}
	s.logger.Info("appointment updated",
		"appointment_id", out.ID,
		"customer_id", out.CustomerID,
		"status", string(out.Status),
	)
	return out, nil
}

func pick(v *string, fallback string) string {
	if v != nil {
		return *v
	}
	return fallback
}

// SetStatus changes only the status. Reactivation is checked like a move.
func (s *Service) SetStatus(ctx context.Context, customerID, id, raw string) (model.Appointment, error) {
	st, err := model.ParseStatus(raw)
	if err != nil {
		return model.Appointment{}, &Error{Kind: KindValidation, Code: ErrInvalidStatus.Code, Reason: err.Error()}
	}
	return s.UpdateBooking(ctx, customerID, id, BookingUpdate{Status: &st})
}

func (s *Service) DeleteBooking(ctx context.Context, customerID, id string) error {
	a, err := s.store.DeleteAppointment(ctx, customerID, id)
	if err != nil {
		return fromStore("delete appointment", err, ErrBookingNotFound)
	}
	s.logger.Info("appointment deleted", "appointment_id", a.ID, "customer_id", a.CustomerID)
	return nil
}

func (s *Service) Stats(ctx context.Context, customerID string) (model.AppointmentStats, error) {
	day, err := s.loadCustomerDay(ctx, customerID)
	if err != nil {
		return model.AppointmentStats{}, err
	}
	st, err := s.store.AppointmentStats(ctx, customerID, day.today, model.ClockOf(day.now))
	if err != nil {
		return model.AppointmentStats{}, fromStore("appointment stats", err, nil)
	}
	return st, nil
}
