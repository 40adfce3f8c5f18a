package booking

import (
	"context"
	"strings"
	"time"

	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
	"github.com/canerconnect/terminflow/services/booking-service/internal/notify"
	"go.opentelemetry.io/otel/attribute"
)

// PublicBooking is what a token holder may see of their appointment.
type PublicBooking struct {
	Appointment model.Appointment
	Customer    model.Customer
	CanCancel   bool
}

func (d customerDay) cancellable(a model.Appointment) error {
	if a.Status != model.StatusConfirmed {
		return ErrBookingNotFound
	}
	deadline := time.Duration(d.settings.CancellationDeadlineHours) * time.Hour
	if model.At(a.Date, a.Start, d.loc).Sub(d.now) <= deadline {
		return ErrDeadlinePassed
	}
	return nil
}

// GetBookingByToken returns the appointment matching id and token. A wrong
// token is reported as not found.
func (s *Service) GetBookingByToken(ctx context.Context, id, token string) (PublicBooking, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return PublicBooking{}, ErrTokenRequired
	}
	a, err := s.store.GetAppointmentByToken(ctx, id, token)
	if err != nil {
		return PublicBooking{}, fromStore("load appointment", err, ErrBookingNotFound)
	}
	day, err := s.loadCustomerDay(ctx, a.CustomerID)
	if err != nil {
		return PublicBooking{}, err
	}
	return PublicBooking{
		Appointment: a,
		Customer:    day.customer,
		CanCancel:   day.cancellable(a) == nil,
	}, nil
}

// CancelBooking cancels a confirmed appointment for the holder of its token,
// provided the cancellation deadline has not passed.
func (s *Service) CancelBooking(ctx context.Context, id, token string) (model.Appointment, error) {
	ctx, span := s.startSpan(ctx, "CancelBooking", attribute.String("appointment.id", id))
	a, err := s.cancelBooking(ctx, id, strings.TrimSpace(token))
	endSpan(span, err)
	return a, err
}

func (s *Service) cancelBooking(ctx context.Context, id, token string) (model.Appointment, error) {
	if token == "" {
		return model.Appointment{}, ErrTokenRequired
	}
	cur, err := s.store.GetAppointmentByToken(ctx, id, token)
	if err != nil {
		return model.Appointment{}, fromStore("load appointment", err, ErrBookingNotFound)
	}
	day, err := s.loadCustomerDay(ctx, cur.CustomerID)
	if err != nil {
		return model.Appointment{}, err
	}
	out, err := s.store.CancelAppointmentByToken(ctx, id, token, day.cancellable)
	if err != nil {
		return model.Appointment{}, fromStore("cancel appointment", err, ErrBookingNotFound)
	}

	s.logger.Info("appointment cancelled by patient",
		"appointment_id", out.ID,
		"customer_id", out.CustomerID,
	)
	s.notifyAsync(day.customer, out, notify.TemplateBookingCancellation)
	return out, nil
}
