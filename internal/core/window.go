package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodRange Period = "range"
)

type (
	Period string

	// Window is an inclusive date interval used for aggregation.
	Window struct {
		Period Period
		From   Date
		To     Date
	}

	// CategoryAmount represents an amount aggregated by category name.
	CategoryAmount struct {
		Name   string
		Amount Money
	}

	// Detail is one row of a report listing.
	Detail struct {
		Date        Date
		Category    string
		Description string
		Amount      Money
	}
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodRange:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

func DayWindow(today Date) Window {
	return Window{Period: PeriodDay, From: today, To: today}
}

// WeekWindow returns Monday..Sunday containing today.
func WeekWindow(today Date) Window {
	offset := (int(today.Weekday()) + 6) % 7
	from := today.AddDays(-offset)
	return Window{Period: PeriodWeek, From: from, To: from.AddDays(6)}
}

func MonthWindow(today Date) Window {
	from := NewDate(today.Year(), today.Month(), 1)
	return Window{Period: PeriodMonth, From: from, To: NewDate(today.Year(), today.Month(), today.DaysInMonth())}
}

// WindowFor builds the window of a fixed period around today.
func WindowFor(p Period, today Date) (Window, error) {
	switch p {
	case PeriodDay:
		return DayWindow(today), nil
	case PeriodWeek:
		return WeekWindow(today), nil
	case PeriodMonth:
		return MonthWindow(today), nil
	}
	return Window{}, fmt.Errorf("period %q has no implicit window", p)
}

func NewRange(from, to Date) (Window, error) {
	if from.IsZero() || to.IsZero() {
		return Window{}, ErrInvalidRange
	}
	if to.Before(from) {
		return Window{}, fmt.Errorf("%w: %s is before %s", ErrInvalidRange, to, from)
	}
	return Window{Period: PeriodRange, From: from, To: to}, nil
}

// ParseRange parses "DD.MM.YYYY DD.MM.YYYY" into an inclusive window.
func ParseRange(s string) (Window, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Window{}, fmt.Errorf("%w: expected two dates", ErrInvalidRange)
	}
	from, err := ParseDate(fields[0])
	if err != nil {
		return Window{}, err
	}
	to, err := ParseDate(fields[1])
	if err != nil {
		return Window{}, err
	}
	return NewRange(from, to)
}

func (w Window) Contains(d Date) bool {
	return !d.Before(w.From) && !d.After(w.To)
}

// Bounds returns [From, To+1day) as timestamps, convenient for SQL filters.
func (w Window) Bounds() (time.Time, time.Time) {
	return w.From.Time, w.To.AddDays(1).Time
}

// Label renders the window for humans, e.g. "05.01.2025" or "01.01.2025 - 31.01.2025".
func (w Window) Label() string {
	if w.From.Equal(w.To.Time) {
		return w.From.String()
	}
	return w.From.String() + " - " + w.To.String()
}
