package booking

import (
	"context"
	"time"

	"github.com/canerconnect/terminflow/services/booking-service/internal/availability"
	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
	"go.opentelemetry.io/otel/attribute"
)

// nextAvailableHorizon caps the next-available scan in days.
const nextAvailableHorizon = 30

type DaySlots struct {
	Date                time.Time
	WorkingHours        *model.WorkingHours
	AppointmentDuration int
	BufferTime          int
	Slots               []availability.Interval
	TotalSlots          int
	AvailableSlots      int
}

type NextSlot struct {
	Date  time.Time
	Start model.Clock
	End   model.Clock
}

type CustomerProfile struct {
	Customer     model.Customer
	WorkingHours []model.WorkingHours
	Settings     model.Settings
}

// ComputeSlots lists the bookable windows of one customer day.
func (s *Service) ComputeSlots(ctx context.Context, customerID string, date time.Time) (DaySlots, error) {
	ctx, span := s.startSpan(ctx, "ComputeSlots",
		attribute.String("customer.id", customerID),
		attribute.String("booking.date", model.FormatDate(date)),
	)
	out, err := s.computeSlots(ctx, customerID, date)
	endSpan(span, err)
	return out, err
}

func (s *Service) computeSlots(ctx context.Context, customerID string, date time.Time) (DaySlots, error) {
	day, err := s.loadCustomerDay(ctx, customerID)
	if err != nil {
		return DaySlots{}, err
	}
	if date.Before(day.today) {
		return DaySlots{}, ErrPastDate
	}
	if date.After(day.lastBookableDate()) {
		return DaySlots{}, ErrDateTooFar
	}
	return s.slotsFor(ctx, day, date)
}

func (s *Service) slotsFor(ctx context.Context, day customerDay, date time.Time) (DaySlots, error) {
	out := DaySlots{
		Date:                date,
		AppointmentDuration: day.settings.AppointmentDuration,
		BufferTime:          day.settings.BufferTime,
		Slots:               []availability.Interval{},
	}
	wh, ok, err := s.store.GetWorkingHours(ctx, day.customer.ID, date.Weekday())
	if err != nil {
		return DaySlots{}, fromStore("load working hours", err, nil)
	}
	if !ok {
		return out, nil
	}
	out.WorkingHours = &wh
	if !wh.IsWorkingDay {
		return out, nil
	}

	occ, err := s.store.ListOccupancy(ctx, day.customer.ID, date)
	if err != nil {
		return DaySlots{}, fromStore("load occupancy", err, nil)
	}
	cands := availability.Evaluate(
		availability.Interval{Start: wh.Start, End: wh.End},
		availability.Rules{
			Duration:  day.settings.AppointmentDuration,
			Buffer:    day.settings.BufferTime,
			NotBefore: day.notBefore(date),
		},
		availability.BusyFrom(occ),
	)
	out.Slots = availability.Available(cands)
	out.TotalSlots = len(cands)
	out.AvailableSlots = len(out.Slots)
	return out, nil
}

// NextAvailable returns the earliest free slot starting tomorrow, or nil when
// none exists within the scan horizon.
func (s *Service) NextAvailable(ctx context.Context, customerID string) (*NextSlot, error) {
	ctx, span := s.startSpan(ctx, "NextAvailable", attribute.String("customer.id", customerID))
	var err error
	defer func() { endSpan(span, err) }()

	day, err := s.loadCustomerDay(ctx, customerID)
	if err != nil {
		return nil, err
	}
	horizon := min(nextAvailableHorizon, day.settings.MaxAdvanceBookingDays)
	for i := 1; i <= horizon; i++ {
		date := day.today.AddDate(0, 0, i)
		var slots DaySlots
		slots, err = s.slotsFor(ctx, day, date)
		if err != nil {
			return nil, err
		}
		if len(slots.Slots) > 0 {
			first := slots.Slots[0]
			return &NextSlot{Date: date, Start: first.Start, End: first.End}, nil
		}
	}
	return nil, nil
}

// CustomerProfile is the public view of a customer reached by subdomain.
func (s *Service) CustomerProfile(ctx context.Context, subdomain string) (CustomerProfile, error) {
	cust, err := s.store.GetCustomerBySubdomain(ctx, subdomain)
	if err != nil {
		return CustomerProfile{}, fromStore("load customer", err, ErrCustomerNotFound)
	}
	hours, err := s.store.ListWorkingHours(ctx, cust.ID)
	if err != nil {
		return CustomerProfile{}, fromStore("load working hours", err, nil)
	}
	settings, err := s.store.GetSettings(ctx, cust.ID)
	if err != nil {
		return CustomerProfile{}, fromStore("load settings", err, ErrCustomerNotFound)
	}
	return CustomerProfile{Customer: cust, WorkingHours: hours, Settings: settings}, nil
}
