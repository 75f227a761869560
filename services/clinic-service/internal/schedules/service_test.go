package schedules

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
)

type memStore struct {
	rows   []model.Schedule
	nextID int64
}

func (m *memStore) ListByDoctor(_ context.Context, doctorID string) ([]model.Schedule, error) {
	var out []model.Schedule
	for _, r := range m.rows {
		if r.DoctorID == doctorID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, s model.Schedule) (model.Schedule, error) {
	m.nextID++
	s.ID = m.nextID
	m.rows = append(m.rows, s)
	return s, nil
}

func (m *memStore) Delete(_ context.Context, doctorID string, id int64) error {
	for i, r := range m.rows {
		if r.ID == id && r.DoctorID == doctorID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return model.ErrNotFound
}

func newService() (*Service, *memStore) {
	store := &memStore{}
	return NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func TestAddValidates(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	cases := []struct {
		day        int
		start, end string
	}{
		{7, "09:00", "10:00"},
		{-1, "09:00", "10:00"},
		{1, "9:00", "10:00"},
		{1, "14:00", "13:00"},
		{1, "09:00", "09:00"},
	}
	for _, c := range cases {
		if _, err := svc.Add(ctx, "doc-1", c.day, c.start, c.end); !errors.Is(err, model.ErrInvalidInput) {
			t.Fatalf("Add(%d, %s, %s): expected invalid input, got %v", c.day, c.start, c.end, err)
		}
	}

	got, err := svc.Add(ctx, "doc-1", 1, "09:00:00", "13:30")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got.StartTime != "09:00" || got.EndTime != "13:30" || got.ID == 0 {
		t.Fatalf("unexpected schedule %+v", got)
	}
}

func TestListSortsByDayThenStart(t *testing.T) {
	svc, store := newService()
	store.rows = []model.Schedule{
		{ID: 1, DoctorID: "doc-1", DayOfWeek: 3, StartTime: "08:00:00"},
		{ID: 2, DoctorID: "doc-1", DayOfWeek: 1, StartTime: "15:00:00"},
		{ID: 3, DoctorID: "doc-1", DayOfWeek: 1, StartTime: "09:00:00"},
		{ID: 4, DoctorID: "doc-2", DayOfWeek: 0, StartTime: "09:00:00"},
	}
	rows, err := svc.List(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 3 || rows[0].ID != 3 || rows[1].ID != 2 || rows[2].ID != 1 {
		t.Fatalf("unexpected order %+v", rows)
	}
}

func TestDeleteOnlyOwnWindows(t *testing.T) {
	svc, store := newService()
	store.rows = []model.Schedule{{ID: 1, DoctorID: "doc-1", DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00"}}
	if err := svc.Delete(context.Background(), "doc-2", 1); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found for another doctor, got %v", err)
	}
	if err := svc.Delete(context.Background(), "doc-1", 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}
