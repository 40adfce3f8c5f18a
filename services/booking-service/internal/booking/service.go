// Package booking computes availability and commits bookings without double
// booking a customer day.
package booking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
	"github.com/canerconnect/terminflow/services/booking-service/internal/notify"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/canerconnect/terminflow/services/booking-service/internal/booking"

type Options struct {
	// PublicBaseURL prefixes the cancellation link sent to patients.
	PublicBaseURL string
	// PhoneRegion is the default region for numbers without a country code.
	PhoneRegion   string
	NotifyTimeout time.Duration
	Now           func() time.Time
}

type Service struct {
	store         Store
	notifier      Notifier
	logger        *slog.Logger
	tracer        trace.Tracer
	now           func() time.Time
	baseURL       string
	phoneRegion   string
	notifyTimeout time.Duration
	inflight      sync.WaitGroup
}

func NewService(store Store, notifier Notifier, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 15 * time.Second
	}
	if opts.PhoneRegion == "" {
		opts.PhoneRegion = "DE"
	}
	return &Service{
		store:         store,
		notifier:      notifier,
		logger:        logger,
		tracer:        otel.Tracer(tracerName),
		now:           opts.Now,
		baseURL:       strings.TrimRight(opts.PublicBaseURL, "/"),
		phoneRegion:   opts.PhoneRegion,
		notifyTimeout: opts.NotifyTimeout,
	}
}

// Drain waits for in-flight notifications or for ctx to end.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// customerDay bundles what every date-scoped rule needs.
type customerDay struct {
	customer model.Customer
	settings model.Settings
	loc      *time.Location
	now      time.Time
	today    time.Time
}

func (s *Service) loadCustomerDay(ctx context.Context, customerID string) (customerDay, error) {
	cust, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		return customerDay{}, fromStore("load customer", err, ErrCustomerNotFound)
	}
	settings, err := s.store.GetSettings(ctx, customerID)
	if err != nil {
		return customerDay{}, fromStore("load settings", err, ErrCustomerNotFound)
	}
	loc := cust.Location()
	now := s.now().In(loc)
	return customerDay{
		customer: cust,
		settings: settings,
		loc:      loc,
		now:      now,
		today:    model.DateOf(now, loc),
	}, nil
}

// notBefore converts the minimum advance into a cutoff on date.
func (d customerDay) notBefore(date time.Time) model.Clock {
	cutoff := d.now.Add(time.Duration(d.settings.MinAdvanceBookingHours) * time.Hour).In(d.loc)
	cutDate := model.DateOf(cutoff, d.loc)
	switch {
	case cutDate.Before(date):
		return 0
	case cutDate.After(date):
		return model.MinutesPerDay + 1
	}
	c := model.ClockOf(cutoff)
	if cutoff.Second() > 0 || cutoff.Nanosecond() > 0 {
		c++
	}
	return c
}

func (d customerDay) lastBookableDate() time.Time {
	return d.today.AddDate(0, 0, d.settings.MaxAdvanceBookingDays)
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "booking."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func newCancellationToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

func (s *Service) cancellationLink(a model.Appointment) string {
	return s.baseURL + "/storno/" + url.PathEscape(a.ID) + "?token=" + url.QueryEscape(a.CancellationToken)
}

// notifyAsync sends tpl in the background. The request context is not used
// so the send outlives the HTTP request.
func (s *Service) notifyAsync(cust model.Customer, a model.Appointment, tpl notify.Template) {
	if s.notifier == nil {
		return
	}
	msg := notify.Message{
		Template: tpl,
		Email:    a.Email,
		Phone:    a.Phone,
		Data: map[string]string{
			"patientName":      a.PatientName,
			"customerName":     cust.Name,
			"customerPhone":    cust.Phone,
			"customerAddress":  cust.Address,
			"date":             model.FormatDate(a.Date),
			"startTime":        a.Start.String(),
			"endTime":          a.End.String(),
			"cancellationLink": s.cancellationLink(a),
		},
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, msg); err != nil {
			s.logger.Warn("notification failed",
				"template", string(tpl),
				"appointment_id", a.ID,
				"customer_id", a.CustomerID,
				"err", err,
			)
		}
	}()
}
