package core

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the only date literal accepted from chat input.
const DateLayout = "02.01.2006"

// Date is a calendar day without time of day, pinned to midnight UTC.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as observed in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a DD.MM.YYYY literal.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// ISO renders the date as YYYY-MM-DD, the storage representation.
func (d Date) ISO() string {
	return d.Format(time.DateOnly)
}

func ParseISODate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }

// SameMonth reports whether d falls in the calendar month and year of o.
func (d Date) SameMonth(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month()
}

// DaysInMonth returns the length of the month containing d.
func (d Date) DaysInMonth() int {
	return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DayInMonth resolves a day-of-month selection against the month of d.
func (d Date) DayInMonth(day int) (Date, error) {
	if day < 1 || day > d.DaysInMonth() {
		return Date{}, fmt.Errorf("%w: %d", ErrInvalidDay, day)
	}
	return NewDate(d.Year(), d.Month(), day), nil
}

// InCurrentMonth parses a DD.MM.YYYY literal and checks it lies in the month of today.
func InCurrentMonth(s string, today Date) (Date, error) {
	d, err := ParseDate(s)
	if err != nil {
		return Date{}, err
	}
	if !d.SameMonth(today) {
		return Date{}, fmt.Errorf("%w: %s", ErrOutsideCurrentMonth, d)
	}
	return d, nil
}
