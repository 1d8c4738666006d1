package core

import (
	"fmt"
	"time"
)

// Date is a calendar day in a specific location. The wrapped time is
// always local midnight of that day.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day in loc.
func NewDate(year, month, day int, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)}
}

// DateOf returns the calendar day containing t as observed in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	lt := t.In(loc)
	return Date{Time: time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)}
}

// ParseDate parses a YYYY-MM-DD string in loc.
func ParseDate(s string, loc *time.Location) (Date, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// Start is the first instant of the day.
func (d Date) Start() time.Time {
	return d.Time
}

// End is the first instant of the following day. Days are 23 or 25
// hours long across DST transitions.
func (d Date) End() time.Time {
	return d.AddDays(1).Time
}

// Contains reports whether t falls within [Start, End).
func (d Date) Contains(t time.Time) bool {
	return !t.Before(d.Start()) && t.Before(d.End())
}

// AddDays steps by calendar days, not by 24h durations.
func (d Date) AddDays(n int) Date {
	y, m, day := d.Time.Date()
	return Date{Time: time.Date(y, m, day+n, 0, 0, 0, 0, d.Location())}
}

func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}
