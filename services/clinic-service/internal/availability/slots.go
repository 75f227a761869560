package availability

import (
	"slices"
	"time"
)

const (
	ShortHorizonDays    = 7
	LongHorizonDays     = 14
	DefaultSlotDuration = 30 * time.Minute
)

// Slot is a bookable start time. Start is UTC; Label and DateKey are rendered
// in the clinic timezone.
type Slot struct {
	Start   time.Time `json:"start"`
	Label   string    `json:"label"`
	DateKey string    `json:"date"`
}

type Request struct {
	Windows      []WeeklyWindow
	Booked       []time.Time
	HorizonDays  int
	SlotDuration time.Duration
	Now          time.Time
	Location     *time.Location
}

// Generate expands weekly windows over HorizonDays calendar days starting at
// Now's date in Location, stepping SlotDuration from each window start while
// the start is before the window end. A candidate is kept only if it is
// strictly after Now and not booked; booked instants compare on UTC epoch
// milliseconds. The result is ascending without duplicates.
func Generate(req Request) []Slot {
	out := make([]Slot, 0)
	if len(req.Windows) == 0 || req.HorizonDays <= 0 {
		return out
	}
	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}
	step := req.SlotDuration
	if step <= 0 {
		step = DefaultSlotDuration
	}

	booked := make(map[int64]struct{}, len(req.Booked))
	for _, b := range req.Booked {
		booked[instantKey(b)] = struct{}{}
	}

	byDay := [7][]WeeklyWindow{}
	for _, w := range req.Windows {
		if w.Weekday < time.Sunday || w.Weekday > time.Saturday {
			continue
		}
		byDay[w.Weekday] = append(byDay[w.Weekday], w)
	}
	for d := range byDay {
		slices.SortStableFunc(byDay[d], func(a, b WeeklyWindow) int {
			return a.Start.Minutes() - b.Start.Minutes()
		})
	}

	today := req.Now.In(loc)
	emitted := map[int64]struct{}{}
	for i := 0; i < req.HorizonDays; i++ {
		day := time.Date(today.Year(), today.Month(), today.Day()+i, 0, 0, 0, 0, loc)
		windows := byDay[day.Weekday()]
		dayStart := len(out)
		for _, w := range windows {
			end := w.End.On(day, loc)
			for t := w.Start.On(day, loc); t.Before(end); t = t.Add(step) {
				if !t.After(req.Now) {
					continue
				}
				key := instantKey(t)
				if _, taken := booked[key]; taken {
					continue
				}
				if _, dup := emitted[key]; dup {
					continue
				}
				emitted[key] = struct{}{}
				out = append(out, Slot{
					Start:   t.UTC(),
					Label:   t.Format("15:04"),
					DateKey: t.Format("2006-01-02"),
				})
			}
		}
		// Overlapping windows can interleave.
		if len(windows) > 1 {
			slices.SortFunc(out[dayStart:], func(a, b Slot) int { return a.Start.Compare(b.Start) })
		}
	}
	return out
}

func instantKey(t time.Time) int64 { return t.UTC().UnixMilli() }

// Days lists the distinct date keys in slot order.
func Days(slots []Slot) []string {
	var days []string
	for _, s := range slots {
		if len(days) == 0 || days[len(days)-1] != s.DateKey {
			days = append(days, s.DateKey)
		}
	}
	return days
}

func ForDate(slots []Slot, dateKey string) []Slot {
	out := make([]Slot, 0)
	for _, s := range slots {
		if s.DateKey == dateKey {
			out = append(out, s)
		}
	}
	return out
}

// Contains reports whether instant is one of the slots' starts.
func Contains(slots []Slot, instant time.Time) bool {
	key := instantKey(instant)
	for _, s := range slots {
		if instantKey(s.Start) == key {
			return true
		}
	}
	return false
}
