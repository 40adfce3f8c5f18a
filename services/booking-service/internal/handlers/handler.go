package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/canerconnect/terminflow/libs/auth"
	"github.com/canerconnect/terminflow/libs/httpx"
	"github.com/canerconnect/terminflow/services/booking-service/internal/booking"
	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
)

// BookingService is the part of booking.Service the HTTP layer calls.
type BookingService interface {
	CustomerProfile(ctx context.Context, subdomain string) (booking.CustomerProfile, error)
	ComputeSlots(ctx context.Context, customerID string, date time.Time) (booking.DaySlots, error)
	NextAvailable(ctx context.Context, customerID string) (*booking.NextSlot, error)
	CreateBooking(ctx context.Context, req booking.BookingRequest) (model.Appointment, error)
	GetBookingByToken(ctx context.Context, id, token string) (booking.PublicBooking, error)
	CancelBooking(ctx context.Context, id, token string) (model.Appointment, error)

	Authenticate(ctx context.Context, username, password string) (model.AdminUser, error)

	ListBookings(ctx context.Context, customerID string, q booking.ListQuery) (booking.BookingPage, error)
	CreateAdminBooking(ctx context.Context, customerID string, req booking.BookingRequest, status model.Status) (model.Appointment, error)
	GetBooking(ctx context.Context, customerID, id string) (model.Appointment, error)
	UpdateBooking(ctx context.Context, customerID, id string, u booking.BookingUpdate) (model.Appointment, error)
	DeleteBooking(ctx context.Context, customerID, id string) error
	SetStatus(ctx context.Context, customerID, id, status string) (model.Appointment, error)
	Stats(ctx context.Context, customerID string) (model.AppointmentStats, error)

	ListBlockedSlots(ctx context.Context, customerID string, from, to *time.Time) ([]model.BlockedSlot, error)
	CreateBlockedSlot(ctx context.Context, customerID, createdBy string, in booking.BlockedSlotInput) (model.BlockedSlot, error)
	UpdateBlockedSlot(ctx context.Context, customerID, id string, in booking.BlockedSlotInput) (model.BlockedSlot, error)
	DeleteBlockedSlot(ctx context.Context, customerID, id string) error

	WorkingHours(ctx context.Context, customerID string) ([]model.WorkingHours, error)
	ReplaceWorkingHours(ctx context.Context, customerID string, in []booking.WorkingHoursInput) ([]model.WorkingHours, error)
	Settings(ctx context.Context, customerID string) (model.Settings, error)
	UpdateSettings(ctx context.Context, customerID string, s model.Settings) (model.Settings, error)
}

type Handler struct {
	svc    BookingService
	signer *auth.Signer
	logger *slog.Logger
}

func New(svc BookingService, signer *auth.Signer, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, signer: signer, logger: logger}
}

// Register mounts every route on mux. public wraps the unauthenticated
// routes, typically with a rate limiter; it may be nil.
func (h *Handler) Register(mux *http.ServeMux, public httpx.Middleware) {
	pub := func(fn http.HandlerFunc) http.Handler {
		if public == nil {
			return fn
		}
		return public(fn)
	}
	admin := func(fn http.HandlerFunc) http.Handler {
		return requireAuth(requireRole(fn, "owner", "admin"), h.signer)
	}

	mux.Handle("GET /api/v1/public/customers/{subdomain}", pub(h.customerProfile))
	mux.Handle("GET /api/v1/public/slots", pub(h.slots))
	mux.Handle("GET /api/v1/public/slots/next-available", pub(h.nextAvailable))
	mux.Handle("POST /api/v1/public/bookings", pub(h.createBooking))
	mux.Handle("GET /api/v1/public/bookings/{id}", pub(h.getPublicBooking))
	mux.Handle("DELETE /api/v1/public/bookings/{id}", pub(h.cancelBooking))
	mux.Handle("POST /api/v1/admin/login", pub(h.login))

	mux.Handle("GET /api/v1/admin/bookings", admin(h.listBookings))
	mux.Handle("POST /api/v1/admin/bookings", admin(h.createAdminBooking))
	mux.Handle("GET /api/v1/admin/bookings/stats", admin(h.stats))
	mux.Handle("GET /api/v1/admin/bookings/{id}", admin(h.getBooking))
	mux.Handle("PUT /api/v1/admin/bookings/{id}", admin(h.updateBooking))
	mux.Handle("DELETE /api/v1/admin/bookings/{id}", admin(h.deleteBooking))
	mux.Handle("POST /api/v1/admin/bookings/{id}/status", admin(h.setStatus))

	mux.Handle("GET /api/v1/admin/blocked-slots", admin(h.listBlockedSlots))
	mux.Handle("POST /api/v1/admin/blocked-slots", admin(h.createBlockedSlot))
	mux.Handle("PUT /api/v1/admin/blocked-slots/{id}", admin(h.updateBlockedSlot))
	mux.Handle("DELETE /api/v1/admin/blocked-slots/{id}", admin(h.deleteBlockedSlot))

	mux.Handle("GET /api/v1/admin/working-hours", admin(h.getWorkingHours))
	mux.Handle("PUT /api/v1/admin/working-hours", admin(h.putWorkingHours))
	mux.Handle("GET /api/v1/admin/settings", admin(h.getSettings))
	mux.Handle("PUT /api/v1/admin/settings", admin(h.putSettings))
}

func statusFor(kind booking.Kind) int {
	switch kind {
	case booking.KindValidation, booking.KindPolicy:
		return http.StatusBadRequest
	case booking.KindNotFound:
		return http.StatusNotFound
	case booking.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps a service error onto the JSON error body. Internal
// failures are logged and reported without detail.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, booking.ErrInvalidCredentials) {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
		return
	}
	var e *booking.Error
	if errors.As(err, &e) && e.Kind != booking.KindUnexpected {
		httpx.WriteError(w, statusFor(e.Kind), e.Code, e.Reason)
		return
	}
	h.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", httpx.RequestIDFromContext(r.Context()),
		"err", err,
	)
	httpx.WriteError(w, http.StatusInternalServerError, "internal", "internal error")
}

func badRequest(w http.ResponseWriter, msg string) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_request", msg)
}
