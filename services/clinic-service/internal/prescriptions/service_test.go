package prescriptions

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/outbox"
)

type fakeTx struct{}

func (fakeTx) InTx(_ context.Context, fn func(pgx.Tx) error) error { return fn(nil) }

type memStore struct {
	created []model.Prescription
}

func (m *memStore) Create(_ context.Context, _ pgx.Tx, p model.Prescription) (model.Prescription, error) {
	p.ID = int64(len(m.created) + 1)
	for i := range p.Items {
		p.Items[i].ID = int64(i + 1)
		p.Items[i].PrescriptionID = p.ID
	}
	m.created = append(m.created, p)
	return p, nil
}

func (m *memStore) Get(_ context.Context, id int64) (model.Prescription, error) {
	for _, p := range m.created {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Prescription{}, model.ErrNotFound
}

func (m *memStore) GetByAppointment(_ context.Context, appointmentID int64) (model.Prescription, error) {
	for _, p := range m.created {
		if p.AppointmentID == appointmentID {
			return p, nil
		}
	}
	return model.Prescription{}, model.ErrNotFound
}

type appts map[int64]model.Appointment

func (a appts) GetForUpdate(_ context.Context, _ pgx.Tx, id int64) (model.Appointment, error) {
	appt, ok := a[id]
	if !ok {
		return model.Appointment{}, model.ErrNotFound
	}
	return appt, nil
}

type fakeEvents struct{ events []outbox.Event }

func (f *fakeEvents) Insert(_ context.Context, _ pgx.Tx, evt outbox.Event) error {
	f.events = append(f.events, evt)
	return nil
}

func newService() (*Service, *memStore, *fakeEvents) {
	store := &memStore{}
	events := &fakeEvents{}
	a := appts{
		10: {ID: 10, PatientID: "pat-1", DoctorID: "doc-1", Status: model.StatusCompleted},
		11: {ID: 11, PatientID: "pat-1", DoctorID: "doc-1", Status: model.StatusCancelled},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(fakeTx{}, store, a, events, nil, logger), store, events
}

func TestIssueDropsBlankItems(t *testing.T) {
	svc, store, events := newService()
	p, err := svc.Issue(context.Background(), "doc-1", 10, []model.PrescriptionItem{
		{Medication: " Paracetamol 500mg ", Dosage: "1 tableta", Frequency: "cada 8 horas"},
		{Medication: "   ", Dosage: "ignored"},
		{Medication: "Ibuprofeno", Duration: "3 días"},
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(p.Items) != 2 || p.Items[0].Medication != "Paracetamol 500mg" || p.PatientID != "pat-1" {
		t.Fatalf("unexpected prescription %+v", p)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected one stored prescription")
	}
	if len(events.events) != 1 || events.events[0].EventType != outbox.TypePrescriptionIssued {
		t.Fatalf("expected issued event, got %+v", events.events)
	}
	var body outbox.PrescriptionPayload
	if err := json.Unmarshal(events.events[0].Payload, &body); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if len(body.Medications) != 2 || body.Medications[1] != "Ibuprofeno" {
		t.Fatalf("unexpected medications %v", body.Medications)
	}
}

func TestIssueValidation(t *testing.T) {
	svc, store, _ := newService()
	ctx := context.Background()
	items := []model.PrescriptionItem{{Medication: "Amoxicilina"}}

	if _, err := svc.Issue(ctx, "doc-1", 10, []model.PrescriptionItem{{Medication: " "}}); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := svc.Issue(ctx, "doc-2", 10, items); !errors.Is(err, model.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if _, err := svc.Issue(ctx, "doc-1", 11, items); !errors.Is(err, model.ErrRejected) {
		t.Fatalf("expected rejected on cancelled appointment, got %v", err)
	}
	if _, err := svc.Issue(ctx, "doc-1", 99, items); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(store.created) != 0 {
		t.Fatalf("nothing should be stored")
	}
}
