package model

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// ParseStatus accepts the canonical values plus the "no-show" spelling.
func ParseStatus(raw string) (Status, error) {
	switch s := strings.ToLower(strings.TrimSpace(raw)); s {
	case "confirmed", "pending", "cancelled", "completed":
		return Status(s), nil
	case "no_show", "no-show", "noshow":
		return StatusNoShow, nil
	}
	return "", fmt.Errorf("invalid status %q", raw)
}

// Occupies reports whether an appointment in this status holds its interval.
func (s Status) Occupies() bool {
	return s != StatusCancelled
}

type Appointment struct {
	ID                string
	CustomerID        string
	PatientName       string
	Email             string
	Phone             string
	Notes             string
	Date              time.Time
	Start             Clock
	End               Clock
	Status            Status
	CancellationToken string
	CancelledAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// BlockedSlot is an admin-reserved range on a single day.
type BlockedSlot struct {
	ID         string
	CustomerID string
	Date       time.Time
	Start      Clock
	End        Clock
	Reason     string
	CreatedBy  string
	CreatedAt  time.Time
}

// Occupancy is everything that holds time on one customer day.
type Occupancy struct {
	Appointments []Appointment
	Blocked      []BlockedSlot
}

type AppointmentFilter struct {
	Date   *time.Time
	From   *time.Time
	To     *time.Time
	Status Status
	Limit  int
	Offset int
}

type AppointmentStats struct {
	Total    int
	ByStatus map[Status]int
	Upcoming int
	Past     int
	Today    int
}
