package handlers

import (
	"time"

	"github.com/canerconnect/terminflow/services/booking-service/internal/booking"
	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
)

type appointmentResponse struct {
	ID          string      `json:"id"`
	CustomerID  string      `json:"customer_id"`
	PatientName string      `json:"patient_name"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone,omitempty"`
	Notes       string      `json:"notes,omitempty"`
	Date        string      `json:"date"`
	StartTime   model.Clock `json:"start_time"`
	EndTime     model.Clock `json:"end_time"`
	Status      string      `json:"status"`
	CancelledAt *time.Time  `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func toAppointment(a model.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:          a.ID,
		CustomerID:  a.CustomerID,
		PatientName: a.PatientName,
		Email:       a.Email,
		Phone:       a.Phone,
		Notes:       a.Notes,
		Date:        model.FormatDate(a.Date),
		StartTime:   a.Start,
		EndTime:     a.End,
		Status:      string(a.Status),
		CancelledAt: a.CancelledAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func toAppointments(in []model.Appointment) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(in))
	for _, a := range in {
		out = append(out, toAppointment(a))
	}
	return out
}

type createBookingRequest struct {
	CustomerID  string `json:"customer_id"`
	PatientName string `json:"patient_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	Notes       string `json:"notes"`
	Remarks     string `json:"remarks"`
	// Status is only honoured on the admin route.
	Status string `json:"status,omitempty"`
}

func (r createBookingRequest) toService() booking.BookingRequest {
	notes := r.Notes
	if notes == "" {
		notes = r.Remarks
	}
	return booking.BookingRequest{
		CustomerID:  r.CustomerID,
		PatientName: r.PatientName,
		Email:       r.Email,
		Phone:       r.Phone,
		Date:        r.Date,
		StartTime:   r.StartTime,
		Notes:       notes,
	}
}

type createBookingResponse struct {
	Appointment       appointmentResponse `json:"appointment"`
	CancellationToken string              `json:"cancellation_token"`
}

type updateBookingRequest struct {
	PatientName *string `json:"patient_name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Notes       *string `json:"notes"`
	Date        *string `json:"date"`
	StartTime   *string `json:"start_time"`
	Status      *string `json:"status"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type publicBookingResponse struct {
	Appointment appointmentResponse `json:"appointment"`
	Customer    customerResponse    `json:"customer"`
	CanCancel   bool                `json:"can_cancel"`
}

type customerResponse struct {
	ID        string `json:"id"`
	Subdomain string `json:"subdomain"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	Timezone  string `json:"timezone"`
}

func toCustomer(c model.Customer) customerResponse {
	return customerResponse{
		ID:        c.ID,
		Subdomain: c.Subdomain,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		Timezone:  c.Location().String(),
	}
}

type workingHoursItem struct {
	DayOfWeek    int         `json:"day_of_week"`
	IsWorkingDay bool        `json:"is_working_day"`
	StartTime    model.Clock `json:"start_time"`
	EndTime      model.Clock `json:"end_time"`
}

func toWorkingHours(in []model.WorkingHours) []workingHoursItem {
	out := make([]workingHoursItem, 0, len(in))
	for _, wh := range in {
		out = append(out, workingHoursItem{
			DayOfWeek:    int(wh.Weekday),
			IsWorkingDay: wh.IsWorkingDay,
			StartTime:    wh.Start,
			EndTime:      wh.End,
		})
	}
	return out
}

type workingHoursInput struct {
	DayOfWeek    int    `json:"day_of_week"`
	IsWorkingDay bool   `json:"is_working_day"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
}

type workingHoursRequest struct {
	WorkingHours []workingHoursInput `json:"working_hours"`
}

type settingsBody struct {
	AppointmentDuration       *int `json:"appointment_duration"`
	BufferTime                *int `json:"buffer_time"`
	MaxAdvanceBookingDays     *int `json:"max_advance_booking_days"`
	MinAdvanceBookingHours    *int `json:"min_advance_booking_hours"`
	CancellationDeadlineHours *int `json:"cancellation_deadline_hours"`
}

func toSettings(s model.Settings) settingsBody {
	return settingsBody{
		AppointmentDuration:       &s.AppointmentDuration,
		BufferTime:                &s.BufferTime,
		MaxAdvanceBookingDays:     &s.MaxAdvanceBookingDays,
		MinAdvanceBookingHours:    &s.MinAdvanceBookingHours,
		CancellationDeadlineHours: &s.CancellationDeadlineHours,
	}
}

// apply overlays the fields present in b onto s.
func (b settingsBody) apply(s model.Settings) model.Settings {
	set := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	set(&s.AppointmentDuration, b.AppointmentDuration)
	set(&s.BufferTime, b.BufferTime)
	set(&s.MaxAdvanceBookingDays, b.MaxAdvanceBookingDays)
	set(&s.MinAdvanceBookingHours, b.MinAdvanceBookingHours)
	set(&s.CancellationDeadlineHours, b.CancellationDeadlineHours)
	return s
}

// slotItem is always available; unavailable candidates are not listed.
type slotItem struct {
	StartTime model.Clock `json:"start_time"`
	EndTime   model.Clock `json:"end_time"`
	Available bool        `json:"available"`
}

type slotsResponse struct {
	Date                string            `json:"date"`
	WorkingHours        *workingHoursItem `json:"working_hours"`
	AppointmentDuration int               `json:"appointment_duration"`
	BufferTime          int               `json:"buffer_time"`
	Slots               []slotItem        `json:"slots"`
	TotalSlots          int               `json:"total_slots"`
	AvailableSlots      int               `json:"available_slots"`
}

func toSlots(d booking.DaySlots) slotsResponse {
	out := slotsResponse{
		Date:                model.FormatDate(d.Date),
		AppointmentDuration: d.AppointmentDuration,
		BufferTime:          d.BufferTime,
		Slots:               make([]slotItem, 0, len(d.Slots)),
		TotalSlots:          d.TotalSlots,
		AvailableSlots:      d.AvailableSlots,
	}
	if d.WorkingHours != nil {
		wh := toWorkingHours([]model.WorkingHours{*d.WorkingHours})[0]
		out.WorkingHours = &wh
	}
	for _, s := range d.Slots {
		out.Slots = append(out.Slots, slotItem{StartTime: s.Start, EndTime: s.End, Available: true})
	}
	return out
}

type nextAvailableResponse struct {
	Date      string      `json:"date"`
	StartTime model.Clock `json:"start_time"`
	EndTime   model.Clock `json:"end_time"`
}

type blockedSlotRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason"`
}

func (r blockedSlotRequest) toService() booking.BlockedSlotInput {
	return booking.BlockedSlotInput{Date: r.Date, StartTime: r.StartTime, EndTime: r.EndTime, Reason: r.Reason}
}

type blockedSlotResponse struct {
	ID        string      `json:"id"`
	Date      string      `json:"date"`
	StartTime model.Clock `json:"start_time"`
	EndTime   model.Clock `json:"end_time"`
	Reason    string      `json:"reason,omitempty"`
	CreatedBy string      `json:"created_by,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

func toBlockedSlot(s model.BlockedSlot) blockedSlotResponse {
	return blockedSlotResponse{
		ID:        s.ID,
		Date:      model.FormatDate(s.Date),
		StartTime: s.Start,
		EndTime:   s.End,
		Reason:    s.Reason,
		CreatedBy: s.CreatedBy,
		CreatedAt: s.CreatedAt,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token      string    `json:"token"`
	TokenType  string    `json:"token_type"`
	ExpiresAt  time.Time `json:"expires_at"`
	CustomerID string    `json:"customer_id"`
	Role       string    `json:"role"`
}

type listBookingsResponse struct {
	Items      []appointmentResponse `json:"items"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	Limit      int                   `json:"limit"`
	TotalPages int                   `json:"total_pages"`
}

type statsResponse struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	Upcoming int            `json:"upcoming"`
	Past     int            `json:"past"`
	Today    int            `json:"today"`
}
