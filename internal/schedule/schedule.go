// Package schedule models a stylist's weekly working hours and the per-date
// availability overrides layered on top of them.
package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for override keys and query params.
const DateLayout = "2006-01-02"

// ErrInvalidSchedule is returned when a schedule breaks its invariants.
var ErrInvalidSchedule = errors.New("invalid schedule")

// TimeOfDay is a wall-clock time without a date, serialized as "15:04".
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" in 24-hour format.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("schedule: parse time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// MustTimeOfDay is ParseTimeOfDay for literals.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

// Before reports whether t is strictly earlier in the day than o.
func (t TimeOfDay) Before(o TimeOfDay) bool {
	return t.minutes() < o.minutes()
}

// On places t on the calendar day of date, in date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour, t.Minute, 0, 0, date.Location())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("schedule: time of day must be a string: %w", err)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// WeekdaySchedule is the open/close window for one ISO weekday (1=Monday, 7=Sunday).
type WeekdaySchedule struct {
	Weekday     int        `json:"weekday"`
	WorkStart   *TimeOfDay `json:"work_start,omitempty"`
	WorkEnd     *TimeOfDay `json:"work_end,omitempty"`
	IsAvailable bool       `json:"is_available"`
}

// Validate enforces: available days have start < end, unavailable days have neither.
func (w WeekdaySchedule) Validate() error {
	if w.Weekday < 1 || w.Weekday > 7 {
		return fmt.Errorf("%w: weekday %d outside 1..7", ErrInvalidSchedule, w.Weekday)
	}
	if !w.IsAvailable {
		if w.WorkStart != nil || w.WorkEnd != nil {
			return fmt.Errorf("%w: weekday %d is unavailable but has working hours", ErrInvalidSchedule, w.Weekday)
		}
		return nil
	}
	if w.WorkStart == nil || w.WorkEnd == nil {
		return fmt.Errorf("%w: weekday %d is available without working hours", ErrInvalidSchedule, w.Weekday)
	}
	if !w.WorkStart.Before(*w.WorkEnd) {
		return fmt.Errorf("%w: weekday %d starts at %s, not before %s", ErrInvalidSchedule, w.Weekday, w.WorkStart, w.WorkEnd)
	}
	return nil
}

// Duration is the length of the working window, zero on unavailable days.
func (w WeekdaySchedule) Duration() time.Duration {
	if !w.IsAvailable || w.WorkStart == nil || w.WorkEnd == nil {
		return 0
	}
	return time.Duration(w.WorkEnd.minutes()-w.WorkStart.minutes()) * time.Minute
}

// SpecialDateOverride flips availability for one calendar date. Working hours
// still come from the weekday.
type SpecialDateOverride struct {
	Date        string `json:"date"` // "2006-01-02"
	IsAvailable bool   `json:"is_available"`
}

// Schedule is a stylist's full availability model.
type Schedule struct {
	Weekdays     []WeekdaySchedule     `json:"weekdays"`
	SpecialDates []SpecialDateOverride `json:"special_dates,omitempty"`
}

// Validate checks every weekday record and rejects duplicates.
func (s Schedule) Validate() error {
	seen := make(map[int]struct{}, len(s.Weekdays))
	for _, w := range s.Weekdays {
		if err := w.Validate(); err != nil {
			return err
		}
		if _, dup := seen[w.Weekday]; dup {
			return fmt.Errorf("%w: duplicate weekday %d", ErrInvalidSchedule, w.Weekday)
		}
		seen[w.Weekday] = struct{}{}
	}
	dates := make(map[string]struct{}, len(s.SpecialDates))
	for _, o := range s.SpecialDates {
		if _, err := time.Parse(DateLayout, o.Date); err != nil {
			return fmt.Errorf("%w: special date %q: %v", ErrInvalidSchedule, o.Date, err)
		}
		if _, dup := dates[o.Date]; dup {
			return fmt.Errorf("%w: duplicate special date %s", ErrInvalidSchedule, o.Date)
		}
		dates[o.Date] = struct{}{}
	}
	return nil
}

// ISOWeekday maps time.Weekday onto 1=Monday .. 7=Sunday.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// DateKey formats the calendar date of t.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ForWeekday returns the record for an ISO weekday. Missing weekdays are
// reported as unavailable.
func (s Schedule) ForWeekday(iso int) WeekdaySchedule {
	for _, w := range s.Weekdays {
		if w.Weekday == iso {
			return w
		}
	}
	return WeekdaySchedule{Weekday: iso}
}

// Override returns the special-date override for date, if any.
func (s Schedule) Override(date time.Time) (SpecialDateOverride, bool) {
	key := DateKey(date)
	for _, o := range s.SpecialDates {
		if o.Date == key {
			return o, true
		}
	}
	return SpecialDateOverride{}, false
}

// WorkingDay is the effective availability of one calendar date.
type WorkingDay struct {
	Date         time.Time
	IsWorkingDay bool
	Start        time.Time
	End          time.Time
}

// Duration is End-Start for working days and zero otherwise.
func (d WorkingDay) Duration() time.Duration {
	if !d.IsWorkingDay {
		return 0
	}
	return d.End.Sub(d.Start)
}

// Covers reports whether [start, end) lies inside the working window.
func (d WorkingDay) Covers(start, end time.Time) bool {
	if !d.IsWorkingDay {
		return false
	}
	return !start.Before(d.Start) && !end.After(d.End)
}

// Day resolves the working window for date (interpreted in its own location).
// An override can close an available weekday; it cannot open a weekday that
// has no working hours.
func (s Schedule) Day(date time.Time) WorkingDay {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	wd := s.ForWeekday(ISOWeekday(day))
	result := WorkingDay{Date: day}
	if !wd.IsAvailable || wd.WorkStart == nil || wd.WorkEnd == nil {
		return result
	}
	if o, ok := s.Override(day); ok && !o.IsAvailable {
		return result
	}
	result.IsWorkingDay = true
	result.Start = wd.WorkStart.On(day)
	result.End = wd.WorkEnd.On(day)
	return result
}

// AvailableByWeekday returns the working duration per weekday, ignoring
// special dates. Unavailable weekdays are omitted.
func (s Schedule) AvailableByWeekday() map[time.Weekday]time.Duration {
	out := make(map[time.Weekday]time.Duration, len(s.Weekdays))
	for _, w := range s.Weekdays {
		if d := w.Duration(); d > 0 {
			out[time.Weekday(w.Weekday%7)] = d
		}
	}
	return out
}

// OpenWeekday builds an available weekday record from "HH:MM" literals.
func OpenWeekday(iso int, start, end string) WeekdaySchedule {
	s := MustTimeOfDay(start)
	e := MustTimeOfDay(end)
	return WeekdaySchedule{Weekday: iso, WorkStart: &s, WorkEnd: &e, IsAvailable: true}
}

// ClosedWeekday builds an unavailable weekday record.
func ClosedWeekday(iso int) WeekdaySchedule {
	return WeekdaySchedule{Weekday: iso}
}
