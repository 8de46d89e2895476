package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/model"
	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/scheduling"
)

type BookingHandler struct {
	sched  *scheduling.Scheduler
	logger *slog.Logger
}

func NewBookingHandler(sched *scheduling.Scheduler, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{sched: sched, logger: logger}
}

func (h *BookingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/bookings", h.Bookings)
	mux.HandleFunc("/api/v1/bookings/availability", h.Availability)
	mux.HandleFunc("/api/v1/bookings/day", h.Day)
	mux.HandleFunc("/api/v1/bookings/route", h.Route)
	mux.HandleFunc("/api/v1/bookings/route/start", h.StartRoute)
	mux.HandleFunc("/api/v1/bookings/{id}", h.Cancel)
	mux.HandleFunc("/api/v1/bookings/{id}/status", h.UpdateStatus)
	mux.HandleFunc("/api/v1/bookings/{id}/reschedule", h.Reschedule)
	mux.HandleFunc("/api/v1/pets/{id}/latest", h.LatestForPet)
	mux.HandleFunc("/api/v1/pets/{id}/history", h.HistoryForPet)
}

type createBookingRequest struct {
	PetID       string   `json:"pet_id"`
	ServiceType string   `json:"service_type"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Address     string   `json:"address"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Notes       string   `json:"notes"`
	GroomerID   string   `json:"groomer_id"`
}

type bookingResponse struct {
	ID          string   `json:"id"`
	CustomerID  string   `json:"customer_id"`
	PetID       string   `json:"pet_id"`
	ServiceType string   `json:"service_type"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Address     string   `json:"address,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	Status      string   `json:"status"`
	GroomerID   string   `json:"groomer_id,omitempty"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type rescheduleRequest struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	ServiceType string `json:"service_type"`
}

type availabilityResponse struct {
	Available  bool     `json:"available"`
	Message    string   `json:"message"`
	GroomerIDs []string `json:"groomer_ids,omitempty"`
}

type routePlanRequest struct {
	Date       string   `json:"date"`
	OrderedIDs []string `json:"ordered_ids"`
}

type dayPlanResponse struct {
	Date       string   `json:"date"`
	OrderedIDs []string `json:"ordered_ids"`
	ETAMinutes []int    `json:"eta_minutes"`
}

func (h *BookingHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.listForCustomer(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *BookingHandler) create(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	if actor == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.PetID = strings.TrimSpace(req.PetID)
	if req.PetID == "" {
		http.Error(w, "pet_id required", http.StatusBadRequest)
		return
	}
	service, err := model.ParseServiceType(strings.TrimSpace(req.ServiceType))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	date, err := model.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	startMinute, err := model.ParseMinute(strings.TrimSpace(req.Time))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var loc *model.GeoPoint
	if req.Lat != nil && req.Lng != nil {
		loc = &model.GeoPoint{Lat: *req.Lat, Lng: *req.Lng}
	}

	appt, err := h.sched.Create(r.Context(), scheduling.CreateRequest{
		CustomerID:  actor,
		PetID:       req.PetID,
		Service:     service,
		Date:        date,
		StartMinute: startMinute,
		Address:     strings.TrimSpace(req.Address),
		Location:    loc,
		Notes:       strings.TrimSpace(req.Notes),
		GroomerID:   strings.TrimSpace(req.GroomerID),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingResponse(appt))
}

func (h *BookingHandler) listForCustomer(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	if actor == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}
	appts, err := h.sched.ListForCustomer(r.Context(), actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponses(appts))
}

func (h *BookingHandler) Day(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	date, err := model.ParseDate(strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	appts, err := h.sched.ListForDate(r.Context(), date, strings.TrimSpace(r.URL.Query().Get("groomer_id")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponses(appts))
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	status, err := model.ParseStatus(strings.TrimSpace(req.Status))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	appt, err := h.sched.UpdateStatus(r.Context(), r.PathValue("id"), status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(appt))
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor := actorID(r)
	if actor == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	date, err := model.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	startMinute, err := model.ParseMinute(strings.TrimSpace(req.Time))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var service model.ServiceType
	if raw := strings.TrimSpace(req.ServiceType); raw != "" {
		service, err = model.ParseServiceType(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	appt, err := h.sched.Reschedule(r.Context(), r.PathValue("id"), scheduling.RescheduleRequest{
		ActorID:     actor,
		Date:        date,
		StartMinute: startMinute,
		Service:     service,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(appt))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor := actorID(r)
	if actor == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	appt, err := h.sched.Cancel(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(appt))
}

func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	date, err := model.ParseDate(strings.TrimSpace(q.Get("date")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	startMinute, err := model.ParseMinute(strings.TrimSpace(q.Get("time")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	service, err := model.ParseServiceType(strings.TrimSpace(q.Get("service_type")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.sched.CheckAvailability(r.Context(), date, startMinute, service)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{
		Available:  res.Available,
		Message:    res.Message,
		GroomerIDs: res.GroomerIDs,
	})
}

func (h *BookingHandler) Route(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.planDay(w, r)
	case http.MethodPut:
		h.saveRoutePlan(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *BookingHandler) planDay(w http.ResponseWriter, r *http.Request) {
	date, err := model.ParseDate(strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	plan, err := h.sched.PlanDay(r.Context(), date, strings.TrimSpace(r.URL.Query().Get("groomer_id")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDayPlanResponse(plan))
}

func (h *BookingHandler) saveRoutePlan(w http.ResponseWriter, r *http.Request) {
	var req routePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	date, err := model.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.OrderedIDs) == 0 {
		http.Error(w, "ordered_ids required", http.StatusBadRequest)
		return
	}
	if err := h.sched.SaveRoutePlan(r.Context(), date, req.OrderedIDs); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BookingHandler) StartRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	date, err := model.ParseDate(strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	plan, err := h.sched.StartRoute(r.Context(), date, strings.TrimSpace(r.URL.Query().Get("groomer_id")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDayPlanResponse(plan))
}

func (h *BookingHandler) LatestForPet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	appt, err := h.sched.LatestForPet(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(appt))
}

type cutRecordResponse struct {
	ID            string `json:"id"`
	AppointmentID string `json:"appointment_id"`
	GroomerID     string `json:"groomer_id,omitempty"`
	PetName       string `json:"pet_name"`
	ServiceType   string `json:"service_type"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Notes         string `json:"notes,omitempty"`
}

func (h *BookingHandler) HistoryForPet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	recs, err := h.sched.HistoryForPet(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]cutRecordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, cutRecordResponse{
			ID:            rec.ID,
			AppointmentID: rec.AppointmentID,
			GroomerID:     rec.GroomerID,
			PetName:       rec.PetName,
			ServiceType:   string(rec.Service),
			Date:          model.FormatDate(rec.Date),
			Time:          model.FormatMinute(rec.StartMinute),
			Notes:         rec.Notes,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *BookingHandler) writeError(w http.ResponseWriter, err error) {
	var illegal *scheduling.IllegalOperation
	switch {
	case errors.Is(err, scheduling.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, scheduling.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, scheduling.ErrSchedulingConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, scheduling.ErrOutOfCoverage):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &illegal):
		http.Error(w, illegal.Reason, http.StatusUnprocessableEntity)
	default:
		h.logger.Error("booking request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func actorID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

func toBookingResponse(appt model.Appointment) bookingResponse {
	resp := bookingResponse{
		ID:          appt.ID,
		CustomerID:  appt.CustomerID,
		PetID:       appt.PetID,
		ServiceType: string(appt.Service),
		Date:        model.FormatDate(appt.Date),
		Time:        model.FormatMinute(appt.StartMinute),
		Address:     appt.Address,
		Notes:       appt.Notes,
		Status:      string(appt.Status),
		GroomerID:   appt.GroomerID,
	}
	if appt.Location != nil {
		resp.Lat = &appt.Location.Lat
		resp.Lng = &appt.Location.Lng
	}
	return resp
}

func toBookingResponses(appts []model.Appointment) []bookingResponse {
	items := make([]bookingResponse, 0, len(appts))
	for _, appt := range appts {
		items = append(items, toBookingResponse(appt))
	}
	return items
}

func toDayPlanResponse(plan scheduling.DayPlan) dayPlanResponse {
	return dayPlanResponse{
		Date:       model.FormatDate(plan.Date),
		OrderedIDs: plan.OrderedIDs,
		ETAMinutes: plan.ETAMinutes,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
