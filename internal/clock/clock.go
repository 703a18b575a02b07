// Package clock supplies "today" in the service's reference timezone.
package clock

import (
	"fmt"
	"time"
)

// Clock returns the current calendar date.
type Clock interface {
	// Today returns midnight of the current day in the reference timezone.
	Today() time.Time
}

// System reads the wall clock and projects it into a fixed location.
type System struct {
	loc *time.Location
}

// NewSystem returns a system clock for the named IANA timezone.
func NewSystem(timezone string) (*System, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("clock: load timezone %q: %w", timezone, err)
	}
	return &System{loc: loc}, nil
}

// Today implements Clock.
func (s *System) Today() time.Time {
	return StartOfDay(time.Now().In(s.loc))
}

// Location returns the reference timezone.
func (s *System) Location() *time.Location {
	return s.loc
}

// Fixed always reports the same day. Used by tests and one-off tooling.
type Fixed struct {
	Day time.Time
}

// Today implements Clock.
func (f Fixed) Today() time.Time {
	return StartOfDay(f.Day)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// CivilDate strips time and location, keeping only the calendar date.
// Two values are the same day iff their CivilDate values are Equal.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a civil date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, err
	}
	return CivilDate(t), nil
}
