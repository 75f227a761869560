package availability

import (
	"fmt"
	"time"
)

var (
	weekdaysES = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}
	monthsES   = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio",
		"agosto", "septiembre", "octubre", "noviembre", "diciembre"}
)

// DayLabel renders a date key as "lunes 12 de octubre".
func DayLabel(dateKey string, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation("2006-01-02", dateKey, loc)
	if err != nil {
		return "", fmt.Errorf("invalid date key %q: %w", dateKey, err)
	}
	return fmt.Sprintf("%s %d de %s", weekdaysES[d.Weekday()], d.Day(), monthsES[d.Month()-1]), nil
}

// LongLabel renders an instant as "lunes 12/10/2026, 09:30" in loc.
func LongLabel(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return fmt.Sprintf("%s %s, %s", weekdaysES[t.Weekday()], t.Format("02/01/2006"), t.Format("15:04"))
}
