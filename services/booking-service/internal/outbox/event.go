package outbox

import (
	"encoding/json"
	"time"

	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
)

// Event types double as Kafka topic names.
const (
	EventAppointmentBooked    = "booking.appointment.booked.v1"
	EventAppointmentCancelled = "booking.appointment.cancelled.v1"
	EventAppointmentUpdated   = "booking.appointment.updated.v1"
	EventAppointmentDeleted   = "booking.appointment.deleted.v1"
	EventBlockedSlotChanged   = "booking.blocked_slot.changed.v1"
)

// Event is the envelope written to outbox_events in the same transaction as
// the state change it describes.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// AppointmentEvent never carries the cancellation token.
func AppointmentEvent(eventType string, a model.Appointment) (Event, error) {
	payload, err := json.Marshal(map[string]any{
		"appointment_id": a.ID,
		"customer_id":    a.CustomerID,
		"patient_name":   a.PatientName,
		"email":          a.Email,
		"phone":          a.Phone,
		"date":           model.FormatDate(a.Date),
		"start_time":     a.Start.String(),
		"end_time":       a.End.String(),
		"status":         string(a.Status),
		"occurred_at":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "appointment",
		AggregateID:   a.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}

// BlockedSlotEvent describes a create, update or delete of a blocked slot.
func BlockedSlotEvent(action string, s model.BlockedSlot) (Event, error) {
	payload, err := json.Marshal(map[string]any{
		"action":          action,
		"blocked_slot_id": s.ID,
		"customer_id":     s.CustomerID,
		"date":            model.FormatDate(s.Date),
		"start_time":      s.Start.String(),
		"end_time":        s.End.String(),
		"reason":          s.Reason,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "blocked_slot",
		AggregateID:   s.ID,
		EventType:     EventBlockedSlotChanged,
		Payload:       payload,
	}, nil
}
