package fleet

import (
	"fmt"
	"strings"
	"time"
)

// DayWindow is the half-open interval [From, To).
type DayWindow struct {
	From time.Time
	To   time.Time
}

// Day returns the calendar day containing t in loc.
func Day(t time.Time, loc *time.Location) DayWindow {
	t = t.In(loc)
	from := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return DayWindow{From: from, To: from.AddDate(0, 0, 1)}
}

// ParseDay resolves a date (YYYY-MM-DD, empty for today) and an IANA
// zone name (empty for fallback) into a window.
func ParseDay(date, tz string, fallback *time.Location, now time.Time) (DayWindow, error) {
	loc := fallback
	if tz = strings.TrimSpace(tz); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return DayWindow{}, fmt.Errorf("invalid tz %q", tz)
		}
		loc = l
	}
	if loc == nil {
		loc = time.UTC
	}

	date = strings.TrimSpace(date)
	if date == "" {
		return Day(now, loc), nil
	}

	d, err := time.ParseInLocation(time.DateOnly, date, loc)
	if err != nil {
		return DayWindow{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
	}
	return Day(d, loc), nil
}
