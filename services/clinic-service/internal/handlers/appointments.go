package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/JohanU89-coder/clinica-monteluz/libs/httpx"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/appointments"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/booking"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
)

const idempotencyHeader = "Idempotency-Key"

type bookRequest struct {
	DoctorID  string    `json:"doctor_id" validate:"required"`
	PatientID string    `json:"patient_id"`
	Start     time.Time `json:"start" validate:"required"`
}

func (h *Handler) book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if len(key) > 200 {
		badRequest(w, "Idempotency-Key too long")
		return
	}
	caller := httpx.IdentityFromRequest(r).UserID
	patientID := strings.TrimSpace(req.PatientID)
	if patientID == "" {
		patientID = caller
	}
	appt, err := h.svc.Booking.Book(r.Context(), booking.BookRequest{
		CallerID:       caller,
		PatientID:      patientID,
		DoctorID:       strings.TrimSpace(req.DoctorID),
		Start:          req.Start,
		IdempotencyKey: key,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, appt)
}

type appointmentsResponse struct {
	Upcoming []model.Appointment `json:"upcoming"`
	Past     []model.Appointment `json:"past"`
}

func (h *Handler) myAppointments(w http.ResponseWriter, r *http.Request) {
	id := httpx.IdentityFromRequest(r)
	var (
		appts []model.Appointment
		err   error
	)
	if id.Role == model.RoleDoctor {
		appts, err = h.svc.Appointments.ListForDoctor(r.Context(), id.UserID)
	} else {
		appts, err = h.svc.Appointments.ListForPatient(r.Context(), id.UserID)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	upcoming, past := appointments.Split(appts, h.svc.Appointments.Now())
	httpx.WriteJSON(w, http.StatusOK, appointmentsResponse{Upcoming: upcoming, Past: past})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid appointment id")
		return
	}
	appt, err := h.svc.Appointments.Cancel(r.Context(), httpx.IdentityFromRequest(r).UserID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid appointment id")
		return
	}
	appt, err := h.svc.Appointments.Complete(r.Context(), httpx.IdentityFromRequest(r).UserID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

type diagnosisRequest struct {
	Diagnosis string `json:"diagnosis" validate:"max=4000"`
}

func (h *Handler) diagnosis(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid appointment id")
		return
	}
	var req diagnosisRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	appt, err := h.svc.Appointments.RecordDiagnosis(r.Context(), httpx.IdentityFromRequest(r).UserID, id, req.Diagnosis)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

type feedbackRequest struct {
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Feedback string `json:"feedback" validate:"max=1000"`
}

func (h *Handler) feedback(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid appointment id")
		return
	}
	var req feedbackRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	appt, err := h.svc.Appointments.Rate(r.Context(), httpx.IdentityFromRequest(r).UserID, id, req.Rating, req.Feedback)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

func (h *Handler) myPatients(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.History.Patients(r.Context(), httpx.IdentityFromRequest(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) patientHistory(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.History.PatientHistory(r.Context(), httpx.IdentityFromRequest(r).UserID, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}
