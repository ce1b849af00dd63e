// Package dates provides a calendar-day value type used as part of batch
// entry identities and as the bucket key of day-indexed series.
package dates

import (
	"fmt"
	"time"
)

// Layout is the wire format for days.
const Layout = "2006-01-02"

// Day is a calendar day in UTC with day precision.
type Day struct {
	t time.Time
}

// DayOf truncates t to day precision in UTC.
func DayOf(t time.Time) Day {
	return Day{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// New creates a Day from year, month, day.
func New(year int, month time.Month, day int) Day {
	return Day{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Parse parses a YYYY-MM-DD string.
func Parse(s string) (Day, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Day{}, fmt.Errorf("parsing day %q: %w", s, err)
	}
	return DayOf(t), nil
}

// Time returns the day as midnight UTC.
func (d Day) Time() time.Time { return d.t }

// String formats the day as YYYY-MM-DD.
func (d Day) String() string { return d.t.Format(Layout) }

// IsZero reports whether the day is the zero value.
func (d Day) IsZero() bool { return d.t.IsZero() }

// AddDays returns the day n days later (or earlier for negative n).
func (d Day) AddDays(n int) Day { return DayOf(d.t.AddDate(0, 0, n)) }

// Equal reports day equality.
func (d Day) Equal(o Day) bool { return d.t.Equal(o.t) }

// Before reports whether d is strictly before o.
func (d Day) Before(o Day) bool { return d.t.Before(o.t) }

// After reports whether d is strictly after o.
func (d Day) After(o Day) bool { return d.t.After(o.t) }

// DaysBetween returns the number of days from a to b (negative if b is
// before a).
func DaysBetween(a, b Day) int {
	return int(b.t.Sub(a.t) / (24 * time.Hour))
}

// Range returns every day in [start, end), in order. An empty or inverted
// range yields nil.
func Range(start, end Day) []Day {
	n := DaysBetween(start, end)
	if n <= 0 {
		return nil
	}
	days := make([]Day, 0, n)
	for d := start; d.Before(end); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// RangeInclusive returns every day in [start, end], in order.
func RangeInclusive(start, end Day) []Day {
	return Range(start, end.AddDays(1))
}

// MarshalJSON encodes the day as "YYYY-MM-DD".
func (d Day) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Day) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid day value %s", s)
	}
	day, err := Parse(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = day
	return nil
}
