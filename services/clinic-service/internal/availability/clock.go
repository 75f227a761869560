package availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
)

// Clock is a wall-clock time of day. 24:00 is allowed as an end of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock accepts "HH:MM" and "HH:MM:SS". Seconds must be zero-padded but
// are otherwise ignored, since slots start on whole minutes.
func ParseClock(raw string) (Clock, error) {
	s := strings.TrimSpace(raw)
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return Clock{}, fmt.Errorf("invalid time of day %q: want HH:MM or HH:MM:SS", raw)
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		if len(p) != 2 || !isDigit(p[0]) || !isDigit(p[1]) {
			return Clock{}, fmt.Errorf("invalid time of day %q: each field must be two digits", raw)
		}
		nums[i] = int(p[0]-'0')*10 + int(p[1]-'0')
	}
	c := Clock{Hour: nums[0], Minute: nums[1]}
	sec := 0
	if len(nums) == 3 {
		sec = nums[2]
	}
	switch {
	case c.Hour == 24 && c.Minute == 0 && sec == 0:
		return c, nil
	case c.Hour > 23:
		return Clock{}, fmt.Errorf("invalid time of day %q: hour out of range", raw)
	case c.Minute > 59:
		return Clock{}, fmt.Errorf("invalid time of day %q: minute out of range", raw)
	case sec > 59:
		return Clock{}, fmt.Errorf("invalid time of day %q: second out of range", raw)
	}
	return c, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (c Clock) Minutes() int { return c.Hour*60 + c.Minute }

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// On places the clock on the calendar date of day, in loc.
func (c Clock) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, loc)
}

// WeeklyWindow is one recurring availability range. Start >= End is legal and empty.
type WeeklyWindow struct {
	Weekday time.Weekday
	Start   Clock
	End     Clock
}

func (w WeeklyWindow) Empty() bool { return w.Start.Minutes() >= w.End.Minutes() }

// ParseWindow validates a schedule row. Inverted ranges pass; the generator
// yields nothing for them.
func ParseWindow(day int, start, end string) (WeeklyWindow, error) {
	if day < 0 || day > 6 {
		return WeeklyWindow{}, fmt.Errorf("day_of_week %d out of range 0-6", day)
	}
	s, err := ParseClock(start)
	if err != nil {
		return WeeklyWindow{}, fmt.Errorf("start_time: %w", err)
	}
	e, err := ParseClock(end)
	if err != nil {
		return WeeklyWindow{}, fmt.Errorf("end_time: %w", err)
	}
	return WeeklyWindow{Weekday: time.Weekday(day), Start: s, End: e}, nil
}

// FromSchedules converts stored rows, failing on the first malformed one so a
// broken row is reported instead of silently dropping availability.
func FromSchedules(rows []model.Schedule) ([]WeeklyWindow, error) {
	out := make([]WeeklyWindow, 0, len(rows))
	for _, r := range rows {
		w, err := ParseWindow(r.DayOfWeek, r.StartTime, r.EndTime)
		if err != nil {
			return nil, fmt.Errorf("schedule %d of doctor %s: %w", r.ID, r.DoctorID, err)
		}
		out = append(out, w)
	}
	return out, nil
}
