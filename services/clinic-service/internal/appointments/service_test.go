package appointments

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/outbox"
)

type fakeTx struct{}

func (fakeTx) InTx(_ context.Context, fn func(pgx.Tx) error) error { return fn(nil) }

type memStore struct {
	appts map[int64]model.Appointment
}

func (m *memStore) Get(_ context.Context, id int64) (model.Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return model.Appointment{}, model.ErrNotFound
	}
	return a, nil
}

func (m *memStore) GetForUpdate(ctx context.Context, _ pgx.Tx, id int64) (model.Appointment, error) {
	return m.Get(ctx, id)
}

func (m *memStore) ListByPatients(_ context.Context, ids []string) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range m.appts {
		if slices.Contains(ids, a.PatientID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListByDoctor(_ context.Context, doctorID string) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range m.appts {
		if a.DoctorID == doctorID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) UpdateStatus(_ context.Context, _ pgx.Tx, id int64, status string) error {
	a := m.appts[id]
	a.Status = status
	m.appts[id] = a
	return nil
}

func (m *memStore) UpdateNotes(_ context.Context, _ pgx.Tx, id int64, diagnosis string) error {
	a := m.appts[id]
	a.Diagnosis = diagnosis
	m.appts[id] = a
	return nil
}

func (m *memStore) UpdateFeedback(_ context.Context, _ pgx.Tx, id int64, rating int, feedback string) error {
	a := m.appts[id]
	a.Rating = &rating
	a.Feedback = feedback
	m.appts[id] = a
	return nil
}

type fakeDependents map[string][]model.Dependent // guardian -> dependents

func (f fakeDependents) ListByGuardian(_ context.Context, guardianID string) ([]model.Dependent, error) {
	return f[guardianID], nil
}

func (f fakeDependents) IsGuardianOf(_ context.Context, guardianID, dependentID string) (bool, error) {
	for _, d := range f[guardianID] {
		if d.ID == dependentID {
			return true, nil
		}
	}
	return false, nil
}

type fakeEvents struct{ events []outbox.Event }

func (f *fakeEvents) Insert(_ context.Context, _ pgx.Tx, evt outbox.Event) error {
	f.events = append(f.events, evt)
	return nil
}

var base = time.Date(2026, 10, 12, 13, 0, 0, 0, time.UTC)

func newService() (*Service, *memStore, *fakeEvents) {
	store := &memStore{appts: map[int64]model.Appointment{
		1: {ID: 1, PatientID: "pat-1", DoctorID: "doc-1", Time: base.Add(24 * time.Hour), Status: model.StatusScheduled},
		2: {ID: 2, PatientID: "dep-1", DoctorID: "doc-1", Time: base.Add(48 * time.Hour), Status: model.StatusScheduled},
		3: {ID: 3, PatientID: "pat-1", DoctorID: "doc-2", Time: base.Add(-72 * time.Hour), Status: model.StatusCompleted},
		4: {ID: 4, PatientID: "pat-9", DoctorID: "doc-1", Time: base.Add(-24 * time.Hour), Status: model.StatusCancelled},
	}}
	deps := fakeDependents{"pat-1": {{ID: "dep-1", FullName: "Lucía", GuardianID: "pat-1"}}}
	events := &fakeEvents{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(fakeTx{}, store, deps, events, nil, logger).WithClock(func() time.Time { return base })
	return svc, store, events
}

func TestSplit(t *testing.T) {
	now := base
	appts := []model.Appointment{
		{ID: 1, Time: now.Add(2 * time.Hour), Status: model.StatusScheduled},
		{ID: 2, Time: now.Add(-2 * time.Hour), Status: model.StatusScheduled},
		{ID: 3, Time: now.Add(time.Hour), Status: model.StatusScheduled},
		{ID: 4, Time: now.Add(5 * time.Hour), Status: model.StatusCancelled},
		{ID: 5, Time: now.Add(-5 * time.Hour), Status: model.StatusCompleted},
		{ID: 6, Time: now, Status: model.StatusScheduled},
	}
	upcoming, past := Split(appts, now)
	ids := func(as []model.Appointment) []int64 {
		out := make([]int64, len(as))
		for i, a := range as {
			out[i] = a.ID
		}
		return out
	}
	if got := ids(upcoming); !slices.Equal(got, []int64{6, 3, 1}) {
		t.Fatalf("upcoming %v", got)
	}
	if got := ids(past); !slices.Equal(got, []int64{4, 2, 5}) {
		t.Fatalf("past %v", got)
	}
}

func TestListForPatientIncludesDependents(t *testing.T) {
	svc, _, _ := newService()
	got, err := svc.ListForPatient(context.Background(), "pat-1")
	if err != nil {
		t.Fatalf("ListForPatient: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 appointments, got %d", len(got))
	}
}

func TestCancelPermissions(t *testing.T) {
	svc, store, events := newService()
	ctx := context.Background()

	if _, err := svc.Cancel(ctx, "pat-2", 1); !errors.Is(err, model.ErrPermissionDenied) {
		t.Fatalf("stranger cancel: expected permission denied, got %v", err)
	}
	got, err := svc.Cancel(ctx, "pat-1", 2)
	if err != nil {
		t.Fatalf("guardian cancel: %v", err)
	}
	if got.Status != model.StatusCancelled || store.appts[2].Status != model.StatusCancelled {
		t.Fatalf("status not updated: %+v", got)
	}
	if len(events.events) != 1 || events.events[0].EventType != outbox.TypeAppointmentCancelled {
		t.Fatalf("expected cancellation event, got %+v", events.events)
	}

	// Repeating is a no-op.
	if _, err := svc.Cancel(ctx, "pat-1", 2); err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}
	if len(events.events) != 1 {
		t.Fatalf("repeat cancel emitted another event")
	}

	if _, err := svc.Cancel(ctx, "doc-1", 1); err != nil {
		t.Fatalf("doctor cancel: %v", err)
	}
	if _, err := svc.Cancel(ctx, "pat-1", 3); !errors.Is(err, model.ErrRejected) {
		t.Fatalf("cancel completed: expected rejected, got %v", err)
	}
	if _, err := svc.Cancel(ctx, "pat-1", 99); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCompleteAndDiagnosisRequireOwningDoctor(t *testing.T) {
	svc, _, events := newService()
	ctx := context.Background()

	if _, err := svc.Complete(ctx, "doc-2", 1); !errors.Is(err, model.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	got, err := svc.Complete(ctx, "doc-1", 1)
	if err != nil || got.Status != model.StatusCompleted {
		t.Fatalf("Complete: %+v %v", got, err)
	}
	if events.events[0].EventType != outbox.TypeAppointmentCompleted {
		t.Fatalf("unexpected event %s", events.events[0].EventType)
	}

	if _, err := svc.RecordDiagnosis(ctx, "doc-2", 1, "gripe"); !errors.Is(err, model.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	got, err = svc.RecordDiagnosis(ctx, "doc-1", 1, "  gripe estacional ")
	if err != nil || got.Diagnosis != "gripe estacional" {
		t.Fatalf("RecordDiagnosis: %+v %v", got, err)
	}
	if _, err := svc.RecordDiagnosis(ctx, "doc-1", 4, "x"); !errors.Is(err, model.ErrRejected) {
		t.Fatalf("diagnosis on cancelled: expected rejected, got %v", err)
	}
}

func TestRate(t *testing.T) {
	svc, store, _ := newService()
	ctx := context.Background()

	if _, err := svc.Rate(ctx, "pat-1", 3, 6, ""); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := svc.Rate(ctx, "pat-1", 1, 5, ""); !errors.Is(err, model.ErrRejected) {
		t.Fatalf("rating a scheduled visit: expected rejected, got %v", err)
	}
	if _, err := svc.Rate(ctx, "pat-2", 3, 4, ""); !errors.Is(err, model.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	got, err := svc.Rate(ctx, "pat-1", 3, 4, "Muy amable")
	if err != nil || got.Rating == nil || *got.Rating != 4 {
		t.Fatalf("Rate: %+v %v", got, err)
	}
	if store.appts[3].Feedback != "Muy amable" {
		t.Fatalf("feedback not stored")
	}
}

func TestGetChecksAccess(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	if _, err := svc.Get(ctx, "pat-1", 2); err != nil {
		t.Fatalf("guardian view: %v", err)
	}
	if _, err := svc.Get(ctx, "doc-1", 2); err != nil {
		t.Fatalf("doctor view: %v", err)
	}
	if _, err := svc.Get(ctx, "pat-2", 2); !errors.Is(err, model.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}
