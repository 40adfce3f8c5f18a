package booking

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/canerconnect/terminflow/services/booking-service/internal/availability"
	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
	"github.com/canerconnect/terminflow/services/booking-service/internal/notify"
	"github.com/canerconnect/terminflow/services/booking-service/internal/phone"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	minNameLength  = 2
	maxNameLength  = 200
	maxNotesLength = 500
)

type BookingRequest struct {
	CustomerID  string
	PatientName string
	Email       string
	Phone       string
	Date        string
	StartTime   string
	Notes       string
}

// patientInput is a BookingRequest after format validation.
type patientInput struct {
	name  string
	email string
	phone string
	notes string
	date  time.Time
	start model.Clock
}

func (s *Service) validatePatient(name, email, rawPhone, notes string) (patientInput, error) {
	in := patientInput{
		name:  strings.TrimSpace(name),
		email: strings.TrimSpace(email),
		notes: strings.TrimSpace(notes),
	}
	if n := utf8.RuneCountInString(in.name); n < minNameLength || n > maxNameLength {
		return in, invalid("patient name must be between 2 and 200 characters")
	}
	if !validEmail(in.email) {
		return in, invalid("email address is invalid")
	}
	if p := strings.TrimSpace(rawPhone); p != "" {
		normalized, err := phone.NormalizeMobile(p, s.phoneRegion)
		if err != nil {
			return in, invalid("phone must be a valid mobile number")
		}
		in.phone = normalized
	}
	if utf8.RuneCountInString(in.notes) > maxNotesLength {
		return in, invalid("notes must be at most 500 characters")
	}
	return in, nil
}

func (s *Service) validateRequest(req BookingRequest) (patientInput, error) {
	in, err := s.validatePatient(req.PatientName, req.Email, req.Phone, req.Notes)
	if err != nil {
		return in, err
	}
	if in.date, err = model.ParseDate(req.Date); err != nil {
		return in, invalid(err.Error())
	}
	if in.start, err = model.ParseClock(req.StartTime); err != nil {
		return in, invalid(err.Error())
	}
	return in, nil
}

func validEmail(raw string) bool {
	if raw == "" || len(raw) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return false
	}
	at := strings.LastIndexByte(raw, '@')
	return at > 0 && strings.Contains(raw[at+1:], ".")
}

// CreateBooking validates a public booking request and commits it as
// confirmed. The confirmation notification is sent after commit.
func (s *Service) CreateBooking(ctx context.Context, req BookingRequest) (model.Appointment, error) {
	ctx, span := s.startSpan(ctx, "CreateBooking",
		attribute.String("customer.id", req.CustomerID),
		attribute.String("booking.date", req.Date),
		attribute.String("booking.start", req.StartTime),
	)
	a, err := s.createBooking(ctx, req, model.StatusConfirmed, false)
	endSpan(span, err)
	return a, err
}

// CreateAdminBooking books on behalf of a patient. The advance booking window
// does not apply, but the start may not be in the past.
func (s *Service) CreateAdminBooking(ctx context.Context, customerID string, req BookingRequest, status model.Status) (model.Appointment, error) {
	if status == "" {
		status = model.StatusConfirmed
	}
	if status != model.StatusConfirmed && status != model.StatusPending {
		return model.Appointment{}, invalid("new bookings must be confirmed or pending")
	}
	req.CustomerID = customerID
	ctx, span := s.startSpan(ctx, "CreateAdminBooking",
		attribute.String("customer.id", customerID),
		attribute.String("booking.date", req.Date),
		attribute.String("booking.start", req.StartTime),
	)
	a, err := s.createBooking(ctx, req, status, true)
	endSpan(span, err)
	return a, err
}

func (s *Service) createBooking(ctx context.Context, req BookingRequest, status model.Status, admin bool) (model.Appointment, error) {
	in, err := s.validateRequest(req)
	if err != nil {
		return model.Appointment{}, err
	}
	day, err := s.loadCustomerDay(ctx, req.CustomerID)
	if err != nil {
		return model.Appointment{}, err
	}

	iv := availability.Interval{Start: in.start, End: in.start.Add(day.settings.AppointmentDuration)}
	if iv.End > model.MinutesPerDay {
		return model.Appointment{}, ErrOutsideHours
	}
	if err := s.checkAdvance(day, in.date, iv.Start, admin); err != nil {
		return model.Appointment{}, err
	}
	if err := s.checkWorkingHours(ctx, day.customer.ID, in.date, iv); err != nil {
		return model.Appointment{}, err
	}

	token, err := newCancellationToken()
	if err != nil {
		return model.Appointment{}, unexpected("generate cancellation token", err)
	}
	appt := model.Appointment{
		ID:                uuid.NewString(),
		CustomerID:        day.customer.ID,
		PatientName:       in.name,
		Email:             in.email,
		Phone:             in.phone,
		Notes:             in.notes,
		Date:              in.date,
		Start:             iv.Start,
		End:               iv.End,
		Status:            status,
		CancellationToken: token,
	}
	err = s.store.InsertAppointmentIfNoConflict(ctx, &appt, occupancyGuard(iv, day.settings.BufferTime))
	if err != nil {
		err = fromStore("insert appointment", err, ErrCustomerNotFound)
		if isBookingConflict(err) {
			s.logger.Info("booking rejected",
				"customer_id", day.customer.ID,
				"date", model.FormatDate(in.date),
				"start", iv.Start.String(),
				"reason", err.Error(),
			)
		}
		return model.Appointment{}, err
	}

	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"customer_id", appt.CustomerID,
		"date", model.FormatDate(appt.Date),
		"start", appt.Start.String(),
		"status", string(appt.Status),
	)
	s.notifyAsync(day.customer, appt, notify.TemplateBookingConfirmation)
	return appt, nil
}

// checkAdvance applies the minimum and maximum booking horizon. Admin
// bookings only need to start in the future.
func (s *Service) checkAdvance(day customerDay, date time.Time, start model.Clock, admin bool) error {
	startAt := model.At(date, start, day.loc)
	if admin {
		if startAt.Before(day.now) {
			return ErrPastDate
		}
		return nil
	}
	minStart := day.now.Add(time.Duration(day.settings.MinAdvanceBookingHours) * time.Hour)
	if startAt.Before(minStart) {
		return ErrTooSoon
	}
	if date.After(day.lastBookableDate()) {
		return ErrBookingTooFar
	}
	return nil
}

func (s *Service) checkWorkingHours(ctx context.Context, customerID string, date time.Time, iv availability.Interval) error {
	wh, ok, err := s.store.GetWorkingHours(ctx, customerID, date.Weekday())
	if err != nil {
		return fromStore("load working hours", err, nil)
	}
	return withinWorkingHours(wh, ok, iv)
}

func withinWorkingHours(wh model.WorkingHours, ok bool, iv availability.Interval) error {
	if !ok || !wh.IsWorkingDay {
		return errClosedDay
	}
	if !iv.Within(availability.Interval{Start: wh.Start, End: wh.End}) {
		return ErrOutsideHours
	}
	return nil
}

// occupancyGuard re-checks iv against the occupancy loaded inside the write
// transaction.
func occupancyGuard(iv availability.Interval, buffer int) func(model.Occupancy) error {
	return func(occ model.Occupancy) error {
		return checkOccupancy(iv, buffer, availability.BusyFrom(occ))
	}
}

func checkOccupancy(iv availability.Interval, buffer int, busy availability.Busy) error {
	for _, b := range busy.Booked {
		if iv.Overlaps(b) {
			return ErrSlotTaken
		}
	}
	for _, b := range busy.Blocked {
		if iv.Overlaps(b) {
			return ErrSlotBlocked
		}
	}
	if availability.BufferViolated(iv, busy.Booked, buffer) {
		return ErrBufferRequired
	}
	return nil
}

// isBookingConflict reports whether err means the requested time is occupied.
func isBookingConflict(err error) bool {
	return errors.Is(err, ErrSlotTaken) || errors.Is(err, ErrSlotBlocked) || errors.Is(err, ErrBufferRequired)
}
