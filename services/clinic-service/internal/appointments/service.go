package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/outbox"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/storage"
)

type Store interface {
	Get(ctx context.Context, id int64) (model.Appointment, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (model.Appointment, error)
	ListByPatients(ctx context.Context, patientIDs []string) ([]model.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]model.Appointment, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status string) error
	UpdateNotes(ctx context.Context, tx pgx.Tx, id int64, diagnosis string) error
	UpdateFeedback(ctx context.Context, tx pgx.Tx, id int64, rating int, feedback string) error
}

type Dependents interface {
	ListByGuardian(ctx context.Context, guardianID string) ([]model.Dependent, error)
	IsGuardianOf(ctx context.Context, guardianID, dependentID string) (bool, error)
}

type EventWriter interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

type ContactLookup interface {
	Contact(ctx context.Context, patientID string) (storage.Contact, error)
}

type Transactor interface {
	InTx(ctx context.Context, fn func(pgx.Tx) error) error
}

type Service struct {
	tx         Transactor
	store      Store
	dependents Dependents
	events     EventWriter
	contacts   ContactLookup
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(tx Transactor, store Store, dependents Dependents, events EventWriter, contacts ContactLookup, logger *slog.Logger) *Service {
	return &Service{
		tx:         tx,
		store:      store,
		dependents: dependents,
		events:     events,
		contacts:   contacts,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ListForPatient returns the patient's appointments and those of every
// dependent they look after.
func (s *Service) ListForPatient(ctx context.Context, patientID string) ([]model.Appointment, error) {
	ids := []string{patientID}
	deps, err := s.dependents.ListByGuardian(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list dependents: %w", err)
	}
	for _, d := range deps {
		ids = append(ids, d.ID)
	}
	return s.store.ListByPatients(ctx, ids)
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID string) ([]model.Appointment, error) {
	return s.store.ListByDoctor(ctx, doctorID)
}

func (s *Service) Get(ctx context.Context, callerID string, id int64) (model.Appointment, error) {
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	ok, err := s.CanView(ctx, callerID, appt)
	if err != nil {
		return model.Appointment{}, err
	}
	if !ok {
		return model.Appointment{}, model.ErrPermissionDenied
	}
	return appt, nil
}

// CanView reports whether caller is the doctor, the patient, or the
// patient's guardian.
func (s *Service) CanView(ctx context.Context, callerID string, appt model.Appointment) (bool, error) {
	if callerID == "" {
		return false, nil
	}
	if callerID == appt.DoctorID {
		return true, nil
	}
	return s.actsForPatient(ctx, callerID, appt)
}

// ActsFor reports whether caller is patientID or the guardian of that dependent.
func (s *Service) ActsFor(ctx context.Context, callerID, patientID string) (bool, error) {
	if callerID == "" {
		return false, nil
	}
	return s.actsForPatient(ctx, callerID, model.Appointment{PatientID: patientID})
}

func (s *Service) actsForPatient(ctx context.Context, callerID string, appt model.Appointment) (bool, error) {
	if callerID == appt.PatientID || (appt.BookedByID != "" && callerID == appt.BookedByID) {
		return true, nil
	}
	ok, err := s.dependents.IsGuardianOf(ctx, callerID, appt.PatientID)
	if err != nil {
		return false, fmt.Errorf("check guardianship: %w", err)
	}
	return ok, nil
}

// Split separates upcoming scheduled visits, soonest first, from the rest,
// most recent first.
func Split(appts []model.Appointment, now time.Time) (upcoming, past []model.Appointment) {
	upcoming = make([]model.Appointment, 0)
	past = make([]model.Appointment, 0)
	for _, a := range appts {
		if !a.Time.Before(now) && a.Status == model.StatusScheduled {
			upcoming = append(upcoming, a)
		} else {
			past = append(past, a)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].Time.Before(upcoming[j].Time) })
	sort.SliceStable(past, func(i, j int) bool { return past[i].Time.After(past[j].Time) })
	return upcoming, past
}

func (s *Service) Now() time.Time { return s.now() }

func (s *Service) Complete(ctx context.Context, doctorID string, id int64) (model.Appointment, error) {
	return s.transition(ctx, id, model.StatusCompleted, outbox.TypeAppointmentCompleted, func(ctx context.Context, a model.Appointment) error {
		if a.DoctorID != doctorID {
			return model.ErrPermissionDenied
		}
		return nil
	})
}

// Cancel frees the slot. Cancelling an already cancelled appointment
// returns it unchanged.
func (s *Service) Cancel(ctx context.Context, callerID string, id int64) (model.Appointment, error) {
	return s.transition(ctx, id, model.StatusCancelled, outbox.TypeAppointmentCancelled, func(ctx context.Context, a model.Appointment) error {
		if a.DoctorID == callerID {
			return nil
		}
		ok, err := s.actsForPatient(ctx, callerID, a)
		if err != nil {
			return err
		}
		if !ok {
			return model.ErrPermissionDenied
		}
		return nil
	})
}

func (s *Service) transition(ctx context.Context, id int64, to, eventType string, authorize func(context.Context, model.Appointment) error) (model.Appointment, error) {
	var out model.Appointment
	err := s.tx.InTx(ctx, func(tx pgx.Tx) error {
		a, err := s.store.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorize(ctx, a); err != nil {
			return err
		}
		if a.Status == to {
			out = a
			return errUnchanged
		}
		if a.Status != model.StatusScheduled {
			return &model.RejectedError{Message: fmt.Sprintf("la cita está %s", statusLabel(a.Status))}
		}
		if err := s.store.UpdateStatus(ctx, tx, id, to); err != nil {
			return err
		}
		a.Status = to
		out = a

		evt, err := outbox.AppointmentEvent(eventType, s.payload(ctx, a))
		if err != nil {
			return err
		}
		return s.events.Insert(ctx, tx, evt)
	})
	if errors.Is(err, errUnchanged) {
		return out, nil
	}
	if err != nil {
		return model.Appointment{}, err
	}
	s.logger.Info("appointment status changed", "appointment_id", id, "status", to)
	return out, nil
}

var errUnchanged = errors.New("unchanged")

func statusLabel(status string) string {
	switch status {
	case model.StatusCompleted:
		return "completada"
	case model.StatusCancelled:
		return "cancelada"
	default:
		return status
	}
}

// RecordDiagnosis stores the doctor's notes on a non-cancelled appointment.
func (s *Service) RecordDiagnosis(ctx context.Context, doctorID string, id int64, diagnosis string) (model.Appointment, error) {
	diagnosis = strings.TrimSpace(diagnosis)
	var out model.Appointment
	err := s.tx.InTx(ctx, func(tx pgx.Tx) error {
		a, err := s.store.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if a.DoctorID != doctorID {
			return model.ErrPermissionDenied
		}
		if a.Status == model.StatusCancelled {
			return &model.RejectedError{Message: "la cita está cancelada"}
		}
		if err := s.store.UpdateNotes(ctx, tx, id, diagnosis); err != nil {
			return err
		}
		a.Diagnosis = diagnosis
		out = a
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return out, nil
}

// Rate records the patient's 1-5 rating of a completed appointment.
func (s *Service) Rate(ctx context.Context, callerID string, id int64, rating int, feedback string) (model.Appointment, error) {
	if rating < 1 || rating > 5 {
		return model.Appointment{}, fmt.Errorf("%w: rating must be between 1 and 5", model.ErrInvalidInput)
	}
	feedback = strings.TrimSpace(feedback)
	var out model.Appointment
	err := s.tx.InTx(ctx, func(tx pgx.Tx) error {
		a, err := s.store.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		ok, err := s.actsForPatient(ctx, callerID, a)
		if err != nil {
			return err
		}
		if !ok {
			return model.ErrPermissionDenied
		}
		if a.Status != model.StatusCompleted {
			return &model.RejectedError{Message: "solo se pueden calificar citas completadas"}
		}
		if err := s.store.UpdateFeedback(ctx, tx, id, rating, feedback); err != nil {
			return err
		}
		a.Rating = &rating
		a.Feedback = feedback
		out = a
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return out, nil
}

func (s *Service) payload(ctx context.Context, a model.Appointment) outbox.AppointmentPayload {
	p := outbox.AppointmentPayload{
		AppointmentID:   a.ID,
		PatientID:       a.PatientID,
		DoctorID:        a.DoctorID,
		BookedByID:      a.BookedByID,
		AppointmentTime: a.Time,
		Status:          a.Status,
		PatientName:     a.PatientName,
		DoctorName:      a.DoctorName,
		OccurredAt:      s.now().UTC(),
	}
	if s.contacts != nil {
		if c, err := s.contacts.Contact(ctx, a.PatientID); err == nil {
			p.RecipientEmail = c.Email
		} else {
			s.logger.Warn("patient contact lookup failed", "patient_id", a.PatientID, "err", err)
		}
	}
	return p
}
