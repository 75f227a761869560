package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/JohanU89-coder/clinica-monteluz/libs/httpx"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/availability"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
)

func (h *Handler) listSpecialties(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Directory.Specialties(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) listDoctors(w http.ResponseWriter, r *http.Request) {
	var specialtyID *int64
	if raw := strings.TrimSpace(r.URL.Query().Get("specialty_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			badRequest(w, "invalid specialty_id")
			return
		}
		specialtyID = &id
	}
	items, err := h.svc.Directory.Doctors(r.Context(), specialtyID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

type dayItem struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

type slotsResponse struct {
	DoctorID    string              `json:"doctor_id"`
	HorizonDays int                 `json:"horizon_days"`
	Timezone    string              `json:"timezone"`
	Days        []dayItem           `json:"days"`
	Slots       []availability.Slot `json:"slots"`
}

func (h *Handler) doctorSlots(w http.ResponseWriter, r *http.Request) {
	doctorID := r.PathValue("id")
	horizon := h.defaultHorizon
	if raw := strings.TrimSpace(r.URL.Query().Get("horizon_days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > availability.LongHorizonDays {
			badRequest(w, "horizon_days must be between 1 and "+strconv.Itoa(availability.LongHorizonDays))
			return
		}
		horizon = n
	}

	slots, err := h.svc.Booking.Slots(r.Context(), doctorID, horizon)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	loc := h.svc.Booking.Location()
	days := make([]dayItem, 0)
	for _, d := range availability.Days(slots) {
		label, err := availability.DayLabel(d, loc)
		if err != nil {
			label = d
		}
		days = append(days, dayItem{Date: d, Label: label, Count: len(availability.ForDate(slots, d))})
	}
	httpx.WriteJSON(w, http.StatusOK, slotsResponse{
		DoctorID:    doctorID,
		HorizonDays: horizon,
		Timezone:    loc.String(),
		Days:        days,
		Slots:       slots,
	})
}

func (h *Handler) doctorSchedules(w http.ResponseWriter, r *http.Request) {
	h.writeSchedules(w, r, r.PathValue("id"))
}

func (h *Handler) mySchedules(w http.ResponseWriter, r *http.Request) {
	h.writeSchedules(w, r, httpx.IdentityFromRequest(r).UserID)
}

func (h *Handler) writeSchedules(w http.ResponseWriter, r *http.Request, doctorID string) {
	items, err := h.svc.Schedules.List(r.Context(), doctorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

type addScheduleRequest struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

func (h *Handler) addSchedule(w http.ResponseWriter, r *http.Request) {
	var req addScheduleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	s, err := h.svc.Schedules.Add(r.Context(), httpx.IdentityFromRequest(r).UserID, req.DayOfWeek, req.StartTime, req.EndTime)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, s)
}

func (h *Handler) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid schedule id")
		return
	}
	if err := h.svc.Schedules.Delete(r.Context(), httpx.IdentityFromRequest(r).UserID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Directory.Profile(r.Context(), httpx.IdentityFromRequest(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

type updateProfileRequest struct {
	FullName      *string `json:"full_name" validate:"omitempty,max=120"`
	SpecialtyID   *int64  `json:"specialty_id" validate:"omitempty,gt=0"`
	LicenseNumber *string `json:"license_number" validate:"omitempty,max=40"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	p, err := h.svc.Directory.UpdateProfile(r.Context(), httpx.IdentityFromRequest(r).UserID, model.ProfileUpdate{
		FullName:      req.FullName,
		SpecialtyID:   req.SpecialtyID,
		LicenseNumber: req.LicenseNumber,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) listDependents(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Directory.Dependents(r.Context(), httpx.IdentityFromRequest(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

type addDependentRequest struct {
	FullName string `json:"full_name" validate:"required,max=120"`
}

func (h *Handler) addDependent(w http.ResponseWriter, r *http.Request) {
	var req addDependentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	d, err := h.svc.Directory.AddDependent(r.Context(), httpx.IdentityFromRequest(r).UserID, req.FullName)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, d)
}
