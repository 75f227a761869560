package availability

import (
	"slices"
	"testing"
	"time"
)

var lima = time.FixedZone("PET", -5*60*60)

// Monday 12 October 2026, in clinic time.
func at(day, hour, minute int) time.Time {
	return time.Date(2026, 10, day, hour, minute, 0, 0, lima)
}

func window(t *testing.T, wd time.Weekday, start, end string) WeeklyWindow {
	t.Helper()
	w, err := ParseWindow(int(wd), start, end)
	if err != nil {
		t.Fatalf("ParseWindow(%d, %q, %q): %v", wd, start, end, err)
	}
	return w
}

func starts(slots []Slot) []time.Time {
	out := make([]time.Time, len(slots))
	for i, s := range slots {
		out[i] = s.Start
	}
	return out
}

func TestGenerate_TwoSlotsInOneHourWindow(t *testing.T) {
	now := at(12, 8, 0)
	slots := Generate(Request{
		Windows:      []WeeklyWindow{window(t, now.Weekday(), "09:00", "10:00")},
		HorizonDays:  1,
		SlotDuration: 30 * time.Minute,
		Now:          now,
		Location:     lima,
	})
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(at(12, 9, 0)) || !slots[1].Start.Equal(at(12, 9, 30)) {
		t.Fatalf("unexpected starts %v", starts(slots))
	}
	if slots[0].Label != "09:00" || slots[1].Label != "09:30" {
		t.Fatalf("unexpected labels %q %q", slots[0].Label, slots[1].Label)
	}
	if slots[0].DateKey != "2026-10-12" {
		t.Fatalf("unexpected date key %q", slots[0].DateKey)
	}
	if slots[0].Start.Location() != time.UTC {
		t.Fatalf("expected UTC start, got %s", slots[0].Start.Location())
	}
}

func TestGenerate_SkipsBookedInstant(t *testing.T) {
	now := at(12, 8, 0)
	// Same instant as 09:00 PET but serialized differently and with sub-millisecond noise.
	booked := at(12, 9, 0).UTC().Add(300 * time.Microsecond)
	slots := Generate(Request{
		Windows:     []WeeklyWindow{window(t, now.Weekday(), "09:00", "10:00")},
		Booked:      []time.Time{booked},
		HorizonDays: 1,
		Now:         now,
		Location:    lima,
	})
	if len(slots) != 1 || !slots[0].Start.Equal(at(12, 9, 30)) {
		t.Fatalf("expected only 09:30, got %v", starts(slots))
	}
}

func TestGenerate_SkipsPastAndCurrentInstant(t *testing.T) {
	w := []WeeklyWindow{window(t, time.Monday, "09:00", "10:00")}

	slots := Generate(Request{Windows: w, HorizonDays: 1, Now: at(12, 9, 15), Location: lima})
	if len(slots) != 1 || !slots[0].Start.Equal(at(12, 9, 30)) {
		t.Fatalf("expected only 09:30, got %v", starts(slots))
	}

	// A slot starting exactly at now is not in the future.
	slots = Generate(Request{Windows: w, HorizonDays: 1, Now: at(12, 9, 30), Location: lima})
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %v", starts(slots))
	}
}

func TestGenerate_InvertedWindowIsEmpty(t *testing.T) {
	now := at(12, 8, 0)
	w := window(t, now.Weekday(), "14:00", "13:00")
	if !w.Empty() {
		t.Fatalf("expected inverted window to be empty")
	}
	slots := Generate(Request{Windows: []WeeklyWindow{w}, HorizonDays: 7, Now: now, Location: lima})
	if len(slots) != 0 {
		t.Fatalf("expected zero slots, got %d", len(slots))
	}

	equal := window(t, now.Weekday(), "09:00", "09:00")
	if got := Generate(Request{Windows: []WeeklyWindow{equal}, HorizonDays: 7, Now: now, Location: lima}); len(got) != 0 {
		t.Fatalf("expected zero slots for zero-length window, got %d", len(got))
	}
}

func TestGenerate_OnlyMatchingWeekdayAcrossHorizon(t *testing.T) {
	now := at(12, 8, 0) // Monday
	slots := Generate(Request{
		Windows:     []WeeklyWindow{window(t, time.Thursday, "15:00", "17:00")},
		HorizonDays: ShortHorizonDays,
		Now:         now,
		Location:    lima,
	})
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots on one day, got %d", len(slots))
	}
	days := Days(slots)
	if len(days) != 1 || days[0] != "2026-10-15" {
		t.Fatalf("expected only Thursday 2026-10-15, got %v", days)
	}
}

func TestGenerate_LongHorizonCoversTwoWeeks(t *testing.T) {
	now := at(12, 8, 0)
	slots := Generate(Request{
		Windows:     []WeeklyWindow{window(t, time.Thursday, "15:00", "16:00")},
		HorizonDays: LongHorizonDays,
		Now:         now,
		Location:    lima,
	})
	days := Days(slots)
	if len(days) != 2 || days[0] != "2026-10-15" || days[1] != "2026-10-22" {
		t.Fatalf("unexpected days %v", days)
	}
}

func TestGenerate_MultipleWindowsPerDay(t *testing.T) {
	now := at(12, 7, 0)
	slots := Generate(Request{
		Windows: []WeeklyWindow{
			window(t, time.Monday, "15:00", "16:00"),
			window(t, time.Monday, "09:00", "10:00"),
		},
		HorizonDays: 1,
		Now:         now,
		Location:    lima,
	})
	want := []time.Time{at(12, 9, 0), at(12, 9, 30), at(12, 15, 0), at(12, 15, 30)}
	if !slices.EqualFunc(starts(slots), want, time.Time.Equal) {
		t.Fatalf("unexpected starts %v", starts(slots))
	}
}

func TestGenerate_OverlappingWindowsStayAscendingAndUnique(t *testing.T) {
	now := at(12, 7, 0)
	slots := Generate(Request{
		Windows: []WeeklyWindow{
			window(t, time.Monday, "09:00", "10:00"),
			window(t, time.Monday, "09:15", "10:15"),
			window(t, time.Monday, "09:00", "09:30"),
		},
		HorizonDays: 1,
		Now:         now,
		Location:    lima,
	})
	want := []time.Time{at(12, 9, 0), at(12, 9, 15), at(12, 9, 30), at(12, 9, 45)}
	if !slices.EqualFunc(starts(slots), want, time.Time.Equal) {
		t.Fatalf("unexpected starts %v", starts(slots))
	}
}

func TestGenerate_Properties(t *testing.T) {
	now := at(14, 10, 10) // Wednesday
	windows := []WeeklyWindow{
		window(t, time.Monday, "08:00", "12:00"),
		window(t, time.Wednesday, "09:00", "13:00"),
		window(t, time.Wednesday, "14:00", "18:00"),
		window(t, time.Friday, "16:00", "15:00"),
		window(t, time.Saturday, "08:00", "10:00"),
	}
	booked := []time.Time{at(14, 11, 0), at(14, 16, 30), at(19, 8, 0), at(24, 9, 30)}
	input := slices.Clone(windows)

	req := Request{Windows: windows, Booked: booked, HorizonDays: LongHorizonDays, Now: now, Location: lima}
	first := Generate(req)
	second := Generate(req)

	if !slices.Equal(windows, input) {
		t.Fatalf("input windows mutated")
	}
	if !slices.EqualFunc(first, second, func(a, b Slot) bool { return a.Start.Equal(b.Start) && a.Label == b.Label && a.DateKey == b.DateKey }) {
		t.Fatalf("generation is not deterministic")
	}
	if len(first) == 0 {
		t.Fatalf("expected slots")
	}
	for i, s := range first {
		if !s.Start.After(now) {
			t.Fatalf("slot %s not after now", s.Start)
		}
		for _, b := range booked {
			if s.Start.Equal(b) {
				t.Fatalf("booked instant %s returned", b)
			}
		}
		if i > 0 && !first[i-1].Start.Before(s.Start) {
			t.Fatalf("slots not strictly ascending at %d: %s then %s", i, first[i-1].Start, s.Start)
		}
		if wd := s.Start.In(lima).Weekday(); wd == time.Friday || wd == time.Sunday {
			t.Fatalf("unexpected slot on %s", wd)
		}
	}
}

func TestGenerate_EmptyInputs(t *testing.T) {
	now := at(12, 8, 0)
	booked := []time.Time{at(12, 9, 0)}
	for _, h := range []int{0, 1, 7, 14} {
		if got := Generate(Request{Booked: booked, HorizonDays: h, Now: now, Location: lima}); len(got) != 0 {
			t.Fatalf("horizon %d: expected empty, got %d", h, len(got))
		}
	}
	w := []WeeklyWindow{window(t, time.Monday, "09:00", "10:00")}
	if got := Generate(Request{Windows: w, HorizonDays: 0, Now: now, Location: lima}); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result for zero horizon")
	}
}

func TestGenerate_DateKeyUsesClinicTimezone(t *testing.T) {
	// 20:00 PET is already the next day in UTC.
	now := at(12, 8, 0)
	slots := Generate(Request{
		Windows:     []WeeklyWindow{window(t, time.Monday, "20:00", "20:30")},
		HorizonDays: 1,
		Now:         now,
		Location:    lima,
	})
	if len(slots) != 1 || slots[0].DateKey != "2026-10-12" || slots[0].Start.Day() != 13 {
		t.Fatalf("unexpected slot %+v", slots)
	}
}

func TestHelpers(t *testing.T) {
	now := at(12, 8, 0)
	slots := Generate(Request{
		Windows: []WeeklyWindow{
			window(t, time.Monday, "09:00", "10:00"),
			window(t, time.Tuesday, "09:00", "09:30"),
		},
		HorizonDays: 2,
		Now:         now,
		Location:    lima,
	})
	if got := ForDate(slots, "2026-10-13"); len(got) != 1 {
		t.Fatalf("expected 1 Tuesday slot, got %d", len(got))
	}
	if !Contains(slots, at(12, 9, 30).UTC()) || Contains(slots, at(12, 10, 0)) {
		t.Fatalf("Contains gave wrong answer")
	}
	label, err := DayLabel("2026-10-12", lima)
	if err != nil || label != "lunes 12 de octubre" {
		t.Fatalf("unexpected label %q (%v)", label, err)
	}
}
