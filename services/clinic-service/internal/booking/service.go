package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	otelx "github.com/JohanU89-coder/clinica-monteluz/libs/otel"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/availability"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/outbox"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/storage"
)

type ScheduleSource interface {
	ListByDoctor(ctx context.Context, doctorID string) ([]model.Schedule, error)
}

type AppointmentStore interface {
	BookedInstants(ctx context.Context, doctorID string, since time.Time) ([]time.Time, error)
	Create(ctx context.Context, tx pgx.Tx, in model.NewAppointment) (model.Appointment, error)
}

type GuardianChecker interface {
	IsGuardianOf(ctx context.Context, guardianID, dependentID string) (bool, error)
}

type SlotLocker interface {
	TryLock(ctx context.Context, doctorID string, start time.Time) (string, bool, error)
	Release(ctx context.Context, doctorID string, start time.Time, token string) error
}

type IdempotencyStore interface {
	Lock(ctx context.Context, tx pgx.Tx, callerID, key string) (storage.IdempotencyRecord, error)
	Finalize(ctx context.Context, tx pgx.Tx, rec storage.IdempotencyRecord) error
}

type EventWriter interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

type ContactLookup interface {
	Contact(ctx context.Context, patientID string) (storage.Contact, error)
}

// Transactor runs fn in a database transaction; *db.Pool implements it.
type Transactor interface {
	InTx(ctx context.Context, fn func(pgx.Tx) error) error
}

// Deps are the collaborators of a Service. Locker, Idempotency and Contacts
// are optional.
type Deps struct {
	Tx           Transactor
	Schedules    ScheduleSource
	Appointments AppointmentStore
	Guardians    GuardianChecker
	Events       EventWriter
	Locker       SlotLocker
	Idempotency  IdempotencyStore
	Contacts     ContactLookup
}

type Config struct {
	Location     *time.Location
	SlotDuration time.Duration
	// MaxHorizonDays bounds both listing and the slots a booking may target.
	MaxHorizonDays int
	Now            func() time.Time
}

type Service struct {
	deps   Deps
	logger *slog.Logger
	loc    *time.Location
	step   time.Duration
	maxH   int
	now    func() time.Time
}

func NewService(deps Deps, logger *slog.Logger, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SlotDuration <= 0 {
		cfg.SlotDuration = availability.DefaultSlotDuration
	}
	if cfg.MaxHorizonDays <= 0 {
		cfg.MaxHorizonDays = availability.LongHorizonDays
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		deps:   deps,
		logger: logger,
		loc:    cfg.Location,
		step:   cfg.SlotDuration,
		maxH:   cfg.MaxHorizonDays,
		now:    cfg.Now,
	}
}

func (s *Service) Location() *time.Location { return s.loc }

// Slots lists the doctor's free start times over horizonDays days, today included.
func (s *Service) Slots(ctx context.Context, doctorID string, horizonDays int) ([]availability.Slot, error) {
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return nil, fmt.Errorf("%w: doctor_id is required", model.ErrInvalidInput)
	}
	if horizonDays <= 0 {
		horizonDays = availability.ShortHorizonDays
	}
	if horizonDays > s.maxH {
		horizonDays = s.maxH
	}
	now := s.now()

	windows, err := s.windows(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return []availability.Slot{}, nil
	}
	booked, err := s.deps.Appointments.BookedInstants(ctx, doctorID, now)
	if err != nil {
		return nil, fmt.Errorf("fetch booked instants: %w", err)
	}
	return availability.Generate(availability.Request{
		Windows:      windows,
		Booked:       booked,
		HorizonDays:  horizonDays,
		SlotDuration: s.step,
		Now:          now,
		Location:     s.loc,
	}), nil
}

func (s *Service) windows(ctx context.Context, doctorID string) ([]availability.WeeklyWindow, error) {
	rows, err := s.deps.Schedules.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("fetch schedules: %w", err)
	}
	windows, err := availability.FromSchedules(rows)
	if err != nil {
		return nil, fmt.Errorf("malformed schedule: %w", err)
	}
	return windows, nil
}

type BookRequest struct {
	CallerID       string
	PatientID      string
	DoctorID       string
	Start          time.Time
	IdempotencyKey string
}

// Book reserves Start with the doctor. The insert races other bookings on the
// database constraint; losing returns model.ErrSlotTaken.
func (s *Service) Book(ctx context.Context, req BookRequest) (model.Appointment, error) {
	req.CallerID = strings.TrimSpace(req.CallerID)
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	req.PatientID = strings.TrimSpace(req.PatientID)
	if req.CallerID == "" || req.DoctorID == "" || req.Start.IsZero() {
		return model.Appointment{}, fmt.Errorf("%w: caller, doctor and start are required", model.ErrInvalidInput)
	}
	if req.PatientID == "" {
		req.PatientID = req.CallerID
	}
	req.Start = req.Start.UTC()

	ctx, span := otelx.Tracer("booking").Start(ctx, "booking.Book", trace.WithAttributes(
		attribute.String("clinic.doctor_id", req.DoctorID),
		attribute.String("clinic.slot_start", req.Start.Format(time.RFC3339)),
		attribute.Bool("clinic.for_dependent", req.PatientID != req.CallerID),
	))
	defer span.End()

	var (
		appt      model.Appointment
		lockToken string
		replayed  bool
	)
	defer func() {
		if lockToken == "" {
			return
		}
		if err := s.deps.Locker.Release(context.WithoutCancel(ctx), req.DoctorID, req.Start, lockToken); err != nil {
			s.logger.Warn("slot lock release failed", "doctor_id", req.DoctorID, "err", err)
		}
	}()

	err := s.deps.Tx.InTx(ctx, func(tx pgx.Tx) error {
		var idem storage.IdempotencyRecord
		if req.IdempotencyKey != "" && s.deps.Idempotency != nil {
			rec, err := s.deps.Idempotency.Lock(ctx, tx, req.CallerID, req.IdempotencyKey)
			if err != nil {
				return fmt.Errorf("lock idempotency key: %w", err)
			}
			if rec.Done() {
				replayed = true
				return json.Unmarshal(rec.ResponsePayload, &appt)
			}
			idem = rec
		}

		if err := s.authorize(ctx, req); err != nil {
			return err
		}
		if err := s.offered(ctx, req.DoctorID, req.Start); err != nil {
			return err
		}

		if s.deps.Locker != nil {
			token, ok, err := s.deps.Locker.TryLock(ctx, req.DoctorID, req.Start)
			switch {
			case err != nil:
				s.logger.Warn("slot lock unavailable, relying on database constraint", "doctor_id", req.DoctorID, "err", err)
			case !ok:
				return model.ErrSlotTaken
			default:
				lockToken = token
			}
		}

		in := model.NewAppointment{PatientID: req.PatientID, DoctorID: req.DoctorID, Time: req.Start}
		if req.PatientID != req.CallerID {
			in.BookedByID = req.CallerID
		}
		created, err := s.deps.Appointments.Create(ctx, tx, in)
		if err != nil {
			return err
		}
		appt = created

		evt, err := outbox.AppointmentEvent(outbox.TypeAppointmentBooked, s.payload(ctx, appt))
		if err != nil {
			return err
		}
		if err := s.deps.Events.Insert(ctx, tx, evt); err != nil {
			return fmt.Errorf("write outbox event: %w", err)
		}

		if idem.Key != "" {
			body, err := json.Marshal(appt)
			if err != nil {
				return err
			}
			idem.AppointmentID = appt.ID
			idem.StatusCode = 201
			idem.ResponsePayload = body
			if err := s.deps.Idempotency.Finalize(ctx, tx, idem); err != nil {
				return fmt.Errorf("finalize idempotency key: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.Appointment{}, err
	}
	span.SetAttributes(attribute.Int64("clinic.appointment_id", appt.ID), attribute.Bool("clinic.replayed", replayed))
	if replayed {
		s.logger.Info("booking replayed", "appointment_id", appt.ID, "idempotency_key", req.IdempotencyKey)
		return appt, nil
	}
	s.logger.Info("appointment booked", "appointment_id", appt.ID, "doctor_id", appt.DoctorID, "start", appt.Time)
	return appt, nil
}

func (s *Service) authorize(ctx context.Context, req BookRequest) error {
	if req.PatientID == req.CallerID {
		return nil
	}
	if s.deps.Guardians == nil {
		return model.ErrPermissionDenied
	}
	ok, err := s.deps.Guardians.IsGuardianOf(ctx, req.CallerID, req.PatientID)
	if err != nil {
		return fmt.Errorf("check guardianship: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: caller is not the patient's guardian", model.ErrPermissionDenied)
	}
	return nil
}

// offered checks that start is in the future and lies on the doctor's weekly
// grid. Whether it is still free is left to the insert.
func (s *Service) offered(ctx context.Context, doctorID string, start time.Time) error {
	now := s.now()
	if !start.After(now) {
		return fmt.Errorf("%w: start is not in the future", model.ErrSlotUnavailable)
	}
	windows, err := s.windows(ctx, doctorID)
	if err != nil {
		return err
	}
	grid := availability.Generate(availability.Request{
		Windows:      windows,
		HorizonDays:  s.maxH,
		SlotDuration: s.step,
		Now:          now,
		Location:     s.loc,
	})
	if !availability.Contains(grid, start) {
		return fmt.Errorf("%w: %s is outside the doctor's schedule", model.ErrSlotUnavailable, start.In(s.loc).Format(time.RFC3339))
	}
	return nil
}

func (s *Service) payload(ctx context.Context, appt model.Appointment) outbox.AppointmentPayload {
	p := outbox.AppointmentPayload{
		AppointmentID:   appt.ID,
		PatientID:       appt.PatientID,
		DoctorID:        appt.DoctorID,
		BookedByID:      appt.BookedByID,
		AppointmentTime: appt.Time,
		Status:          appt.Status,
		PatientName:     appt.PatientName,
		DoctorName:      appt.DoctorName,
		OccurredAt:      s.now().UTC(),
	}
	if s.deps.Contacts == nil {
		return p
	}
	if c, err := s.deps.Contacts.Contact(ctx, appt.PatientID); err == nil {
		p.PatientName, p.RecipientEmail = c.Name, c.Email
	} else if !errors.Is(err, model.ErrNotFound) {
		s.logger.Warn("patient contact lookup failed", "patient_id", appt.PatientID, "err", err)
	}
	if c, err := s.deps.Contacts.Contact(ctx, appt.DoctorID); err == nil {
		p.DoctorName = c.Name
	}
	return p
}
