package booking

import (
	"context"
	"time"

	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
	"github.com/canerconnect/terminflow/services/booking-service/internal/notify"
)

// Store is the persistence the service needs. Guards passed to the write
// methods run inside the write transaction while the customer day is locked;
// a guard error aborts the write and is returned unchanged.
type Store interface {
	GetCustomer(ctx context.Context, id string) (model.Customer, error)
	GetCustomerBySubdomain(ctx context.Context, subdomain string) (model.Customer, error)
	GetAdminByUsername(ctx context.Context, username string) (model.AdminUser, error)

	GetWorkingHours(ctx context.Context, customerID string, weekday time.Weekday) (model.WorkingHours, bool, error)
	ListWorkingHours(ctx context.Context, customerID string) ([]model.WorkingHours, error)
	ReplaceWorkingHours(ctx context.Context, customerID string, hours []model.WorkingHours) error
	GetSettings(ctx context.Context, customerID string) (model.Settings, error)
	UpsertSettings(ctx context.Context, customerID string, s model.Settings) error

	ListOccupancy(ctx context.Context, customerID string, date time.Time) (model.Occupancy, error)

	InsertAppointmentIfNoConflict(ctx context.Context, appt *model.Appointment, guard func(model.Occupancy) error) error
	GetAppointment(ctx context.Context, customerID, id string) (model.Appointment, error)
	GetAppointmentByToken(ctx context.Context, id, token string) (model.Appointment, error)
	CancelAppointmentByToken(ctx context.Context, id, token string, check func(model.Appointment) error) (model.Appointment, error)
	UpdateAppointment(ctx context.Context, customerID, id string,
		mutate func(model.Appointment) (model.Appointment, error),
		guard func(cur, next model.Appointment, occ model.Occupancy) error) (model.Appointment, error)
	DeleteAppointment(ctx context.Context, customerID, id string) (model.Appointment, error)
	ListAppointments(ctx context.Context, customerID string, f model.AppointmentFilter) ([]model.Appointment, int, error)
	AppointmentStats(ctx context.Context, customerID string, today time.Time, now model.Clock) (model.AppointmentStats, error)

	ListBlockedSlots(ctx context.Context, customerID string, from, to *time.Time) ([]model.BlockedSlot, error)
	GetBlockedSlot(ctx context.Context, customerID, id string) (model.BlockedSlot, error)
	InsertBlockedSlot(ctx context.Context, slot *model.BlockedSlot, guard func(model.Occupancy) error) error
	UpdateBlockedSlot(ctx context.Context, customerID, id string,
		mutate func(model.BlockedSlot) (model.BlockedSlot, error),
		guard func(next model.BlockedSlot, occ model.Occupancy) error) (model.BlockedSlot, error)
	DeleteBlockedSlot(ctx context.Context, customerID, id string) error
}

// Notifier delivers patient notifications. Errors are logged, never returned to callers.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message) error
}
