// Package clock provides the injectable "now" used by every time-dependent
// calculation, so availability and pricing stay deterministic under test.
package clock

import "time"

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time { return time.Now() }

// Fixed always returns the same instant.
type Fixed time.Time

// Now returns the frozen instant.
func (f Fixed) Now() time.Time { return time.Time(f) }

// Or returns c, or the system clock when c is nil.
func Or(c Clock) Clock {
	if c == nil {
		return System{}
	}
	return c
}

// Today returns midnight of the current day in loc.
func Today(c Clock, loc *time.Location) time.Time {
	return StartOfDay(Or(c).Now(), loc)
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DaysBetween counts whole calendar days from a to b, both taken as dates
// in loc. Negative when b is before a.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	da := StartOfDay(a, loc)
	db := StartOfDay(b, loc)
	// Noon avoids DST shifts turning 23h or 25h days into off-by-one errors.
	na := time.Date(da.Year(), da.Month(), da.Day(), 12, 0, 0, 0, time.UTC)
	nb := time.Date(db.Year(), db.Month(), db.Day(), 12, 0, 0, 0, time.UTC)
	return int(nb.Sub(na).Hours() / 24)
}
