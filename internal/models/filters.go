package models

import (
	"slices"
	"time"
)

// EventFilter is a typed predicate over event streams. Record sources may
// push any part of it down to storage; consumers re-check with Match so
// that pushdown is an optimisation, never a semantic difference.
type EventFilter struct {
	Range        DateRange
	Categories   []string // venue type, purpose or financial category; empty means all
	Participants []int64  // empty means all
}

// MatchTime reports whether t falls inside the filter range.
func (f EventFilter) MatchTime(t time.Time) bool {
	return f.Range.Contains(t)
}

// MatchCategory reports whether c passes the category filter.
func (f EventFilter) MatchCategory(c string) bool {
	return len(f.Categories) == 0 || slices.Contains(f.Categories, c)
}

// MatchParticipant reports whether id passes the participant filter.
func (f EventFilter) MatchParticipant(id int64) bool {
	return len(f.Participants) == 0 || slices.Contains(f.Participants, id)
}

// Match combines the three predicates.
func (f EventFilter) Match(participant int64, t time.Time, category string) bool {
	return f.MatchParticipant(participant) && f.MatchTime(t) && f.MatchCategory(category)
}

// DateRange is a half-open [From, To) interval. A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t is inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// IsZero reports whether the range is unbounded on both sides.
func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// DateLayout is the wire format of day parameters.
const DateLayout = "2006-01-02"

// ParseDateRange parses inclusive day bounds into a half-open range. Empty
// strings leave the side open.
func ParseDateRange(start, end string) (DateRange, error) {
	var r DateRange
	if start != "" {
		t, err := time.ParseInLocation(DateLayout, start, time.UTC)
		if err != nil {
			return r, InvalidParameter("start_date", "expected YYYY-MM-DD, got %q", start)
		}
		r.From = t
	}
	if end != "" {
		t, err := time.ParseInLocation(DateLayout, end, time.UTC)
		if err != nil {
			return r, InvalidParameter("end_date", "expected YYYY-MM-DD, got %q", end)
		}
		r.To = t.AddDate(0, 0, 1)
	}
	if !r.From.IsZero() && !r.To.IsZero() && !r.From.Before(r.To) {
		return r, InvalidParameter("end_date", "must not be before start_date")
	}
	return r, nil
}

// DayRange returns the range covering the single day d.
func DayRange(d time.Time) DateRange {
	from := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return DateRange{From: from, To: from.AddDate(0, 0, 1)}
}

// MonthRange returns the range covering the month containing d.
func MonthRange(d time.Time) DateRange {
	from := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	return DateRange{From: from, To: from.AddDate(0, 1, 0)}
}
