package model

import "time"

// Customer is a tenant that publishes one booking calendar.
type Customer struct {
	ID        string
	Subdomain string
	Name      string
	Email     string
	Phone     string
	Address   string
	Timezone  string
	CreatedAt time.Time
}

// Location falls back to UTC when the stored zone is unknown.
func (c Customer) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type AdminUser struct {
	ID           string
	CustomerID   string
	Username     string
	PasswordHash string
	Role         string
}

type WorkingHours struct {
	Weekday      time.Weekday
	IsWorkingDay bool
	Start        Clock
	End          Clock
}
