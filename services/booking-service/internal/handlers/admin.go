package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/canerconnect/terminflow/libs/httpx"
	"github.com/canerconnect/terminflow/services/booking-service/internal/booking"
	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
)

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "login_disabled", "admin login is not configured")
		return
	}
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	user, err := h.svc.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	token, claims, err := h.signer.Issue(user.ID, user.CustomerID, user.Role)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Token:      token,
		TokenType:  "Bearer",
		ExpiresAt:  time.Unix(claims.Exp, 0).UTC(),
		CustomerID: user.CustomerID,
		Role:       user.Role,
	})
}

// customerID is the tenant of the authenticated admin.
func customerID(r *http.Request) string {
	return claimsFrom(r.Context()).CustomerID
}

func optionalDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func optionalInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}

func (h *Handler) listBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		lq  booking.ListQuery
		err error
	)
	if lq.Date, err = optionalDate(q.Get("date")); err != nil {
		badRequest(w, err.Error())
		return
	}
	if lq.From, err = optionalDate(q.Get("from")); err != nil {
		badRequest(w, err.Error())
		return
	}
	if lq.To, err = optionalDate(q.Get("to")); err != nil {
		badRequest(w, err.Error())
		return
	}
	if raw := q.Get("status"); raw != "" {
		if lq.Status, err = model.ParseStatus(raw); err != nil {
			badRequest(w, err.Error())
			return
		}
	}
	if lq.Page, err = optionalInt(q.Get("page"), "page"); err != nil {
		badRequest(w, err.Error())
		return
	}
	if lq.Limit, err = optionalInt(q.Get("limit"), "limit"); err != nil {
		badRequest(w, err.Error())
		return
	}

	page, err := h.svc.ListBookings(r.Context(), customerID(r), lq)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, listBookingsResponse{
		Items:      toAppointments(page.Items),
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
	})
}

func (h *Handler) createAdminBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	var status model.Status
	if req.Status != "" {
		s, err := model.ParseStatus(req.Status)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		status = s
	}
	a, err := h.svc.CreateAdminBooking(r.Context(), customerID(r), req.toService(), status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, createBookingResponse{
		Appointment:       toAppointment(a),
		CancellationToken: a.CancellationToken,
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context(), customerID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	by := make(map[string]int, len(st.ByStatus))
	for k, v := range st.ByStatus {
		by[string(k)] = v
	}
	httpx.WriteJSON(w, http.StatusOK, statsResponse{
		Total:    st.Total,
		ByStatus: by,
		Upcoming: st.Upcoming,
		Past:     st.Past,
		Today:    st.Today,
	})
}

func (h *Handler) getBooking(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.GetBooking(r.Context(), customerID(r), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointment(a))
}

func (h *Handler) updateBooking(w http.ResponseWriter, r *http.Request) {
	var req updateBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	u := booking.BookingUpdate{
		PatientName: req.PatientName,
		Email:       req.Email,
		Phone:       req.Phone,
		Notes:       req.Notes,
		Date:        req.Date,
		StartTime:   req.StartTime,
	}
	if req.Status != nil {
		s, err := model.ParseStatus(*req.Status)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		u.Status = &s
	}
	a, err := h.svc.UpdateBooking(r.Context(), customerID(r), r.PathValue("id"), u)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointment(a))
}

func (h *Handler) deleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteBooking(r.Context(), customerID(r), r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "appointment deleted"})
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	a, err := h.svc.SetStatus(r.Context(), customerID(r), r.PathValue("id"), req.Status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointment(a))
}

func (h *Handler) listBlockedSlots(w http.ResponseWriter, r *http.Request) {
	from, err := optionalDate(r.URL.Query().Get("from"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	to, err := optionalDate(r.URL.Query().Get("to"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	slots, err := h.svc.ListBlockedSlots(r.Context(), customerID(r), from, to)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]blockedSlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, toBlockedSlot(s))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"blocked_slots": out})
}

func (h *Handler) createBlockedSlot(w http.ResponseWriter, r *http.Request) {
	var req blockedSlotRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	s, err := h.svc.CreateBlockedSlot(r.Context(), customerID(r), claimsFrom(r.Context()).Sub, req.toService())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toBlockedSlot(s))
}

func (h *Handler) updateBlockedSlot(w http.ResponseWriter, r *http.Request) {
	var req blockedSlotRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	s, err := h.svc.UpdateBlockedSlot(r.Context(), customerID(r), r.PathValue("id"), req.toService())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toBlockedSlot(s))
}

func (h *Handler) deleteBlockedSlot(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteBlockedSlot(r.Context(), customerID(r), r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "blocked slot deleted"})
}

func (h *Handler) getWorkingHours(w http.ResponseWriter, r *http.Request) {
	week, err := h.svc.WorkingHours(r.Context(), customerID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"working_hours": toWorkingHours(week)})
}

func (h *Handler) putWorkingHours(w http.ResponseWriter, r *http.Request) {
	var req workingHoursRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	in := make([]booking.WorkingHoursInput, 0, len(req.WorkingHours))
	for _, d := range req.WorkingHours {
		in = append(in, booking.WorkingHoursInput{
			DayOfWeek:    d.DayOfWeek,
			IsWorkingDay: d.IsWorkingDay,
			StartTime:    d.StartTime,
			EndTime:      d.EndTime,
		})
	}
	week, err := h.svc.ReplaceWorkingHours(r.Context(), customerID(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"working_hours": toWorkingHours(week)})
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Settings(r.Context(), customerID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSettings(s))
}

func (h *Handler) putSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	cur, err := h.svc.Settings(r.Context(), customerID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	s, err := h.svc.UpdateSettings(r.Context(), customerID(r), req.apply(cur))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSettings(s))
}
