package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/JohanU89-coder/clinica-monteluz/libs/httpx"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/availability"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/booking"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/history"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
)

type Booking interface {
	Slots(ctx context.Context, doctorID string, horizonDays int) ([]availability.Slot, error)
	Book(ctx context.Context, req booking.BookRequest) (model.Appointment, error)
	Location() *time.Location
}

type Schedules interface {
	Add(ctx context.Context, doctorID string, day int, start, end string) (model.Schedule, error)
	List(ctx context.Context, doctorID string) ([]model.Schedule, error)
	Delete(ctx context.Context, doctorID string, id int64) error
}

type Appointments interface {
	ListForPatient(ctx context.Context, patientID string) ([]model.Appointment, error)
	ListForDoctor(ctx context.Context, doctorID string) ([]model.Appointment, error)
	Get(ctx context.Context, callerID string, id int64) (model.Appointment, error)
	ActsFor(ctx context.Context, callerID, patientID string) (bool, error)
	Complete(ctx context.Context, doctorID string, id int64) (model.Appointment, error)
	Cancel(ctx context.Context, callerID string, id int64) (model.Appointment, error)
	RecordDiagnosis(ctx context.Context, doctorID string, id int64, diagnosis string) (model.Appointment, error)
	Rate(ctx context.Context, callerID string, id int64, rating int, feedback string) (model.Appointment, error)
	Now() time.Time
}

type Prescriptions interface {
	Issue(ctx context.Context, doctorID string, appointmentID int64, items []model.PrescriptionItem) (model.Prescription, error)
	Get(ctx context.Context, id int64) (model.Prescription, error)
	ForAppointment(ctx context.Context, appointmentID int64) (model.Prescription, error)
}

type History interface {
	Patients(ctx context.Context, doctorID string) ([]history.PatientRef, error)
	PatientHistory(ctx context.Context, doctorID, patientID string) ([]model.Appointment, error)
}

type Directory interface {
	Specialties(ctx context.Context) ([]model.Specialty, error)
	Doctors(ctx context.Context, specialtyID *int64) ([]model.Profile, error)
	Profile(ctx context.Context, id string) (model.Profile, error)
	UpdateProfile(ctx context.Context, id string, upd model.ProfileUpdate) (model.Profile, error)
	Dependents(ctx context.Context, guardianID string) ([]model.Dependent, error)
	AddDependent(ctx context.Context, guardianID, fullName string) (model.Dependent, error)
}

type Documents interface {
	Ticket(w io.Writer, a model.Appointment) error
	PrescriptionDocument(w io.Writer, a model.Appointment, p model.Prescription) error
	AppointmentsWorkbook(w io.Writer, appts []model.Appointment) error
}

type Services struct {
	Booking       Booking
	Schedules     Schedules
	Appointments  Appointments
	Prescriptions Prescriptions
	History       History
	Directory     Directory
	Documents     Documents
}

type Handler struct {
	svc            Services
	logger         *slog.Logger
	defaultHorizon int
}

// New serves slot requests without horizon_days over defaultHorizon days,
// ShortHorizonDays when unset, capped at LongHorizonDays.
func New(svc Services, logger *slog.Logger, defaultHorizon int) *Handler {
	switch {
	case defaultHorizon <= 0:
		defaultHorizon = availability.ShortHorizonDays
	case defaultHorizon > availability.LongHorizonDays:
		defaultHorizon = availability.LongHorizonDays
	}
	return &Handler{svc: svc, logger: logger, defaultHorizon: defaultHorizon}
}

// Register mounts the API on mux. Identity headers come from the gateway.
func (h *Handler) Register(mux *http.ServeMux) {
	anyone := func(f http.HandlerFunc) http.Handler { return f }
	authed := func(f http.HandlerFunc) http.Handler { return httpx.RequireRole(f) }
	doctor := func(f http.HandlerFunc) http.Handler { return httpx.RequireRole(f, model.RoleDoctor) }

	mux.Handle("GET /api/v1/specialties", anyone(h.listSpecialties))
	mux.Handle("GET /api/v1/doctors", anyone(h.listDoctors))
	mux.Handle("GET /api/v1/doctors/{id}/slots", anyone(h.doctorSlots))
	mux.Handle("GET /api/v1/doctors/{id}/schedules", anyone(h.doctorSchedules))

	mux.Handle("GET /api/v1/me/profile", authed(h.getProfile))
	mux.Handle("PATCH /api/v1/me/profile", authed(h.updateProfile))
	mux.Handle("GET /api/v1/me/dependents", authed(h.listDependents))
	mux.Handle("POST /api/v1/me/dependents", authed(h.addDependent))
	mux.Handle("GET /api/v1/me/appointments", authed(h.myAppointments))

	mux.Handle("GET /api/v1/me/schedules", doctor(h.mySchedules))
	mux.Handle("POST /api/v1/me/schedules", doctor(h.addSchedule))
	mux.Handle("DELETE /api/v1/me/schedules/{id}", doctor(h.deleteSchedule))
	mux.Handle("GET /api/v1/me/patients", doctor(h.myPatients))
	mux.Handle("GET /api/v1/me/patients/{id}/history", doctor(h.patientHistory))

	mux.Handle("POST /api/v1/appointments", authed(h.book))
	mux.Handle("POST /api/v1/appointments/{id}/cancel", authed(h.cancel))
	mux.Handle("POST /api/v1/appointments/{id}/complete", doctor(h.complete))
	mux.Handle("PUT /api/v1/appointments/{id}/diagnosis", doctor(h.diagnosis))
	mux.Handle("PUT /api/v1/appointments/{id}/feedback", authed(h.feedback))
	mux.Handle("GET /api/v1/appointments/{id}/ticket.pdf", authed(h.ticketPDF))
	mux.Handle("GET /api/v1/appointments/{id}/prescription.pdf", authed(h.prescriptionPDF))
	mux.Handle("POST /api/v1/appointments/{id}/prescriptions", doctor(h.issuePrescription))
	mux.Handle("GET /api/v1/prescriptions/{id}", authed(h.getPrescription))
	mux.Handle("GET /api/v1/patients/{id}/appointments.xlsx", authed(h.appointmentsXLSX))
}

// writeError maps domain errors to status codes. Unknown errors are logged
// and reported as 500 without detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rejected *model.RejectedError
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, model.ErrPermissionDenied):
		httpx.WriteError(w, http.StatusForbidden, "permission_denied", "permission denied")
	case errors.Is(err, model.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, model.ErrSlotTaken):
		httpx.WriteError(w, http.StatusConflict, "slot_taken", "the selected slot was just taken, choose another one")
	case errors.Is(err, model.ErrSlotUnavailable):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "slot_unavailable", err.Error())
	case errors.As(err, &rejected):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "rejected", rejected.Message)
	case errors.Is(err, model.ErrRejected):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "rejected", err.Error())
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		h.logger.Error("request failed",
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_input", msg)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}
