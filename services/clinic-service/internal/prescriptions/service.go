package prescriptions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/outbox"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/storage"
)

type Store interface {
	Create(ctx context.Context, tx pgx.Tx, p model.Prescription) (model.Prescription, error)
	Get(ctx context.Context, id int64) (model.Prescription, error)
	GetByAppointment(ctx context.Context, appointmentID int64) (model.Prescription, error)
}

type AppointmentLocker interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (model.Appointment, error)
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
	tx       Transactor
	store    Store
	appts    AppointmentLocker
	events   EventWriter
	contacts ContactLookup
	logger   *slog.Logger
}

func NewService(tx Transactor, store Store, appts AppointmentLocker, events EventWriter, contacts ContactLookup, logger *slog.Logger) *Service {
	return &Service{tx: tx, store: store, appts: appts, events: events, contacts: contacts, logger: logger}
}

// CleanItems trims every field and drops items without a medication.
func CleanItems(items []model.PrescriptionItem) []model.PrescriptionItem {
	out := make([]model.PrescriptionItem, 0, len(items))
	for _, it := range items {
		it.Medication = strings.TrimSpace(it.Medication)
		if it.Medication == "" {
			continue
		}
		it.Dosage = strings.TrimSpace(it.Dosage)
		it.Frequency = strings.TrimSpace(it.Frequency)
		it.Duration = strings.TrimSpace(it.Duration)
		it.Notes = strings.TrimSpace(it.Notes)
		it.ID, it.PrescriptionID = 0, 0
		out = append(out, it)
	}
	return out
}

// Issue writes a prescription for one of the doctor's appointments.
func (s *Service) Issue(ctx context.Context, doctorID string, appointmentID int64, items []model.PrescriptionItem) (model.Prescription, error) {
	items = CleanItems(items)
	if len(items) == 0 {
		return model.Prescription{}, fmt.Errorf("%w: at least one medication is required", model.ErrInvalidInput)
	}

	var out model.Prescription
	err := s.tx.InTx(ctx, func(tx pgx.Tx) error {
		appt, err := s.appts.GetForUpdate(ctx, tx, appointmentID)
		if err != nil {
			return err
		}
		if appt.DoctorID != doctorID {
			return model.ErrPermissionDenied
		}
		if appt.Status == model.StatusCancelled {
			return &model.RejectedError{Message: "no se puede recetar en una cita cancelada"}
		}
		p, err := s.store.Create(ctx, tx, model.Prescription{
			AppointmentID: appt.ID,
			PatientID:     appt.PatientID,
			DoctorID:      appt.DoctorID,
			Items:         items,
			PatientName:   appt.PatientName,
			DoctorName:    appt.DoctorName,
		})
		if err != nil {
			return err
		}
		out = p

		evt, err := outbox.PrescriptionEvent(s.payload(ctx, p))
		if err != nil {
			return err
		}
		return s.events.Insert(ctx, tx, evt)
	})
	if err != nil {
		return model.Prescription{}, err
	}
	s.logger.Info("prescription issued", "prescription_id", out.ID, "appointment_id", appointmentID, "items", len(out.Items))
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (model.Prescription, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ForAppointment(ctx context.Context, appointmentID int64) (model.Prescription, error) {
	return s.store.GetByAppointment(ctx, appointmentID)
}

func (s *Service) payload(ctx context.Context, p model.Prescription) outbox.PrescriptionPayload {
	meds := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		meds = append(meds, it.Medication)
	}
	out := outbox.PrescriptionPayload{
		PrescriptionID: p.ID,
		AppointmentID:  p.AppointmentID,
		PatientID:      p.PatientID,
		DoctorID:       p.DoctorID,
		Medications:    meds,
		PatientName:    p.PatientName,
		DoctorName:     p.DoctorName,
		OccurredAt:     time.Now().UTC(),
	}
	if s.contacts != nil {
		if c, err := s.contacts.Contact(ctx, p.PatientID); err == nil {
			out.RecipientEmail = c.Email
		} else {
			s.logger.Warn("patient contact lookup failed", "patient_id", p.PatientID, "err", err)
		}
	}
	return out
}
