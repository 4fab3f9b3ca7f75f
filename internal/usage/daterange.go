// Package usage reconciles tracker usage exports into per-user daily reports.
package usage

import (
	"fmt"
	"time"
)

// DateLayout is the format used for input dates and report column names.
const DateLayout = "2006-01-02"

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange normalises start and end to UTC midnight and checks their order.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: day(start), End: day(end)}
	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("start date %s is after end date %s",
			r.Start.Format(DateLayout), r.End.Format(DateLayout))
	}
	return r, nil
}

// ParseDateRange builds a DateRange from two YYYY-MM-DD strings.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, fmt.Errorf("parsing start date: %w", err)
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, fmt.Errorf("parsing end date: %w", err)
	}
	return NewDateRange(s, e)
}

// ParseDate parses a YYYY-MM-DD date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Len returns the number of days in the range
func (r DateRange) Len() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Contains reports whether t falls on a day within the range
func (r DateRange) Contains(t time.Time) bool {
	d := day(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Dates returns every day in the range, ascending, formatted as YYYY-MM-DD
func (r DateRange) Dates() []string {
	dates := make([]string, 0, r.Len())
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
