package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
)

var now = time.Date(2026, 10, 12, 13, 0, 0, 0, time.UTC)

type staticSource []model.Appointment

func (s staticSource) ListByDoctor(context.Context, string) ([]model.Appointment, error) {
	return s, nil
}

func TestUniquePatientsKeepsFirstSeen(t *testing.T) {
	past := []model.Appointment{
		{PatientID: "b", PatientName: "Bruno", Time: now.Add(-time.Hour)},
		{PatientID: "a", PatientName: "Ana", Time: now.Add(-2 * time.Hour)},
		{PatientID: "b", PatientName: "Bruno", Time: now.Add(-3 * time.Hour)},
	}
	got := UniquePatients(past)
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("unexpected patients %+v", got)
	}
	if !got[0].LastVisit.Equal(now.Add(-time.Hour)) {
		t.Fatalf("unexpected last visit %s", got[0].LastVisit)
	}
	if len(UniquePatients(nil)) != 0 {
		t.Fatalf("expected empty")
	}
}

func TestPatientsAndHistory(t *testing.T) {
	src := staticSource{
		{ID: 1, PatientID: "a", Time: now.Add(-48 * time.Hour), Status: model.StatusCompleted},
		{ID: 2, PatientID: "b", Time: now.Add(24 * time.Hour), Status: model.StatusScheduled},
		{ID: 3, PatientID: "a", Time: now.Add(-24 * time.Hour), Status: model.StatusCompleted},
		{ID: 4, PatientID: "c", Time: now.Add(72 * time.Hour), Status: model.StatusCancelled},
	}
	svc := NewService(src)
	svc.now = func() time.Time { return now }

	patients, err := svc.Patients(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Patients: %v", err)
	}
	if len(patients) != 2 || patients[0].ID != "c" || patients[1].ID != "a" {
		t.Fatalf("unexpected patients %+v", patients)
	}

	hist, err := svc.PatientHistory(context.Background(), "doc-1", "a")
	if err != nil {
		t.Fatalf("PatientHistory: %v", err)
	}
	if len(hist) != 2 || hist[0].ID != 3 || hist[1].ID != 1 {
		t.Fatalf("unexpected history %+v", hist)
	}
	if _, err := svc.PatientHistory(context.Background(), "doc-1", "zz"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
