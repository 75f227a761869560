package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/JohanU89-coder/clinica-monteluz/libs/httpx"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/prescriptions"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (h *Handler) ticketPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid appointment id")
		return
	}
	appt, err := h.svc.Appointments.Get(r.Context(), httpx.IdentityFromRequest(r).UserID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := h.svc.Documents.Ticket(&buf, appt); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeFile(w, contentTypePDF, fmt.Sprintf("cita-%d.pdf", appt.ID), buf.Bytes())
}

func (h *Handler) prescriptionPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid appointment id")
		return
	}
	appt, err := h.svc.Appointments.Get(r.Context(), httpx.IdentityFromRequest(r).UserID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.svc.Prescriptions.ForAppointment(r.Context(), appt.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := h.svc.Documents.PrescriptionDocument(&buf, appt, p); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeFile(w, contentTypePDF, fmt.Sprintf("receta-%d.pdf", p.ID), buf.Bytes())
}

type prescriptionItemRequest struct {
	Medication string `json:"medication" validate:"max=200"`
	Dosage     string `json:"dosage" validate:"max=200"`
	Frequency  string `json:"frequency" validate:"max=200"`
	Duration   string `json:"duration" validate:"max=200"`
	Notes      string `json:"notes" validate:"max=1000"`
}

type issuePrescriptionRequest struct {
	Items []prescriptionItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) issuePrescription(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid appointment id")
		return
	}
	var req issuePrescriptionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	items := make([]model.PrescriptionItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, model.PrescriptionItem{
			Medication: it.Medication,
			Dosage:     it.Dosage,
			Frequency:  it.Frequency,
			Duration:   it.Duration,
			Notes:      it.Notes,
		})
	}
	if len(prescriptions.CleanItems(items)) == 0 {
		badRequest(w, "at least one medication is required")
		return
	}
	p, err := h.svc.Prescriptions.Issue(r.Context(), httpx.IdentityFromRequest(r).UserID, id, items)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) getPrescription(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid prescription id")
		return
	}
	p, err := h.svc.Prescriptions.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// Visibility follows the appointment it was issued for.
	if _, err := h.svc.Appointments.Get(r.Context(), httpx.IdentityFromRequest(r).UserID, p.AppointmentID); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) appointmentsXLSX(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	caller := httpx.IdentityFromRequest(r).UserID
	ok, err := h.svc.Appointments.ActsFor(r.Context(), caller, patientID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !ok {
		h.writeError(w, r, model.ErrPermissionDenied)
		return
	}
	appts, err := h.svc.Appointments.ListForPatient(r.Context(), patientID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := h.svc.Documents.AppointmentsWorkbook(&buf, appts); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeFile(w, contentTypeXLSX, "citas.xlsx", buf.Bytes())
}

func writeFile(w http.ResponseWriter, contentType, name string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
