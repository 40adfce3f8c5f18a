package model

import (
	"errors"
	"fmt"
)

type Settings struct {
	AppointmentDuration       int // minutes
	BufferTime                int // minutes
	MaxAdvanceBookingDays     int
	MinAdvanceBookingHours    int
	CancellationDeadlineHours int
}

func DefaultSettings() Settings {
	return Settings{
		AppointmentDuration:       30,
		BufferTime:                0,
		MaxAdvanceBookingDays:     90,
		MinAdvanceBookingHours:    2,
		CancellationDeadlineHours: 12,
	}
}

func (s Settings) Validate() error {
	var errs []error
	check := func(name string, v, lo, hi int) {
		if v < lo || v > hi {
			errs = append(errs, fmt.Errorf("%s must be between %d and %d", name, lo, hi))
		}
	}
	check("appointment_duration", s.AppointmentDuration, 5, 480)
	check("buffer_time", s.BufferTime, 0, 240)
	check("max_advance_booking_days", s.MaxAdvanceBookingDays, 1, 365)
	check("min_advance_booking_hours", s.MinAdvanceBookingHours, 0, 168)
	check("cancellation_deadline_hours", s.CancellationDeadlineHours, 0, 168)
	return errors.Join(errs...)
}
