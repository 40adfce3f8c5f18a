package handlers

import (
	"net/http"
	"strings"

	"github.com/canerconnect/terminflow/libs/httpx"
	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
)

func (h *Handler) customerProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.CustomerProfile(r.Context(), strings.ToLower(strings.TrimSpace(r.PathValue("subdomain"))))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"customer":      toCustomer(p.Customer),
		"working_hours": toWorkingHours(p.WorkingHours),
		"settings":      toSettings(p.Settings),
	})
}

func (h *Handler) slots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	customerID := strings.TrimSpace(q.Get("customer_id"))
	if customerID == "" {
		badRequest(w, "customer_id is required")
		return
	}
	date, err := model.ParseDate(q.Get("date"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	day, err := h.svc.ComputeSlots(r.Context(), customerID, date)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSlots(day))
}

func (h *Handler) nextAvailable(w http.ResponseWriter, r *http.Request) {
	customerID := strings.TrimSpace(r.URL.Query().Get("customer_id"))
	if customerID == "" {
		badRequest(w, "customer_id is required")
		return
	}
	next, err := h.svc.NextAvailable(r.Context(), customerID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	resp := map[string]any{"next_available": nil}
	if next != nil {
		resp["next_available"] = nextAvailableResponse{
			Date:      model.FormatDate(next.Date),
			StartTime: next.Start,
			EndTime:   next.End,
		}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.CustomerID) == "" {
		badRequest(w, "customer_id is required")
		return
	}
	if req.Status != "" {
		badRequest(w, "status cannot be set on public bookings")
		return
	}
	a, err := h.svc.CreateBooking(r.Context(), req.toService())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, createBookingResponse{
		Appointment:       toAppointment(a),
		CancellationToken: a.CancellationToken,
	})
}

func (h *Handler) getPublicBooking(w http.ResponseWriter, r *http.Request) {
	pb, err := h.svc.GetBookingByToken(r.Context(), r.PathValue("id"), r.URL.Query().Get("token"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, publicBookingResponse{
		Appointment: toAppointment(pb.Appointment),
		Customer:    toCustomer(pb.Customer),
		CanCancel:   pb.CanCancel,
	})
}

func (h *Handler) cancelBooking(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.CancelBooking(r.Context(), r.PathValue("id"), r.URL.Query().Get("token"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message":     "appointment cancelled",
		"appointment": toAppointment(a),
	})
}
