package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/availability"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/booking"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
)

var lima = time.FixedZone("PET", -5*60*60)

func testContext(out *bytes.Buffer, now time.Time) *Context {
	return &Context{Location: lima, Out: out, Now: func() time.Time { return now }, UserID: "pat-1"}
}

func TestPreviewPrintsDays(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.json")
	body := `[{"day_of_week":1,"start_time":"09:00","end_time":"10:00"},{"day_of_week":3,"start_time":"15:00:00","end_time":"15:30:00"}]`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out bytes.Buffer
	// Sunday 11 Oct 2026, 08:00 Lima.
	ctx := testContext(&out, time.Date(2026, 10, 11, 8, 0, 0, 0, lima))
	cmd := &PreviewCmd{File: path, Horizon: 7, Booked: []string{"2026-10-12T14:30:00Z"}}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "lunes 12 de octubre (2026-10-12): 09:00\n") {
		t.Fatalf("monday line missing or booked slot shown:\n%s", got)
	}
	if !strings.Contains(got, "miércoles 14 de octubre (2026-10-14): 15:00\n") {
		t.Fatalf("wednesday line missing:\n%s", got)
	}
}

func TestPreviewRejectsBadSchedule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.json")
	if err := os.WriteFile(path, []byte(`[{"day_of_week":1,"start_time":"9am","end_time":"10:00"}]`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out bytes.Buffer
	cmd := &PreviewCmd{File: path, Horizon: 7}
	if err := cmd.Run(testContext(&out, time.Now())); err == nil {
		t.Fatalf("expected error")
	}
}

// raceSource drops the first instant once it has been claimed.
type raceSource struct {
	mu      sync.Mutex
	slots   []availability.Slot
	claimed bool
}

func (s *raceSource) Slots(context.Context, string, int) ([]availability.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimed {
		return append([]availability.Slot(nil), s.slots[1:]...), nil
	}
	return append([]availability.Slot(nil), s.slots...), nil
}

type raceSubmitter struct {
	src   *raceSource
	calls []booking.BookRequest
}

func (s *raceSubmitter) Book(_ context.Context, req booking.BookRequest) (model.Appointment, error) {
	s.calls = append(s.calls, req)
	s.src.mu.Lock()
	defer s.src.mu.Unlock()
	if !s.src.claimed {
		s.src.claimed = true
		return model.Appointment{}, model.ErrSlotTaken
	}
	return model.Appointment{ID: 11, Time: req.Start, DoctorID: req.DoctorID, PatientID: req.PatientID}, nil
}

func slotsFrom(start time.Time, n int) []availability.Slot {
	out := make([]availability.Slot, 0, n)
	for i := 0; i < n; i++ {
		t := start.Add(time.Duration(i) * 30 * time.Minute)
		out = append(out, availability.Slot{Start: t.UTC(), Label: t.Format("15:04"), DateKey: t.Format("2006-01-02")})
	}
	return out
}

func TestBookRetriesOnceWhenTaken(t *testing.T) {
	start := time.Date(2026, 10, 19, 9, 0, 0, 0, lima)
	src := &raceSource{slots: slotsFrom(start, 3)}
	sub := &raceSubmitter{src: src}
	var out bytes.Buffer
	cmd := &BookCmd{Doctor: "doc-1", Patient: "dep-1", Horizon: 14}

	if err := cmd.run(context.Background(), testContext(&out, start.Add(-time.Hour)), src, sub); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sub.calls) != 2 {
		t.Fatalf("expected two attempts, got %d", len(sub.calls))
	}
	if !sub.calls[0].Start.Equal(start) || !sub.calls[1].Start.Equal(start.Add(30*time.Minute)) {
		t.Fatalf("unexpected attempts: %+v", sub.calls)
	}
	if sub.calls[1].PatientID != "dep-1" || sub.calls[1].CallerID != "pat-1" {
		t.Fatalf("identity lost on retry: %+v", sub.calls[1])
	}
	if !strings.Contains(out.String(), "booked appointment 11") {
		t.Fatalf("unexpected output: %s", out.String())
	}
}

func TestBookRejectsUnofferedInstant(t *testing.T) {
	start := time.Date(2026, 10, 19, 9, 0, 0, 0, lima)
	src := &raceSource{slots: slotsFrom(start, 2)}
	sub := &raceSubmitter{src: src}
	var out bytes.Buffer
	cmd := &BookCmd{Doctor: "doc-1", At: "2026-10-19T09:15:00-05:00", Horizon: 14}

	err := cmd.run(context.Background(), testContext(&out, start.Add(-time.Hour)), src, sub)
	if !errors.Is(err, model.ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
	if len(sub.calls) != 0 {
		t.Fatalf("nothing should be submitted")
	}
}
