// Package demand measures how booked a stylist is on each day of a window.
package demand

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/salon-booking-engine/internal/appointments"
	"github.com/wolfman30/salon-booking-engine/internal/schedule"
	"github.com/wolfman30/salon-booking-engine/internal/stylists"
)

// ErrInvalidInput marks caller errors that must not be retried.
var ErrInvalidInput = errors.New("invalid input")

// OnDate is the demand measurement for one calendar date.
type OnDate struct {
	Date          time.Time `json:"date"`
	Demand        float64   `json:"demand"`
	IsFullyBooked bool      `json:"is_fully_booked"`
	IsWorkingDay  bool      `json:"is_working_day"`
}

// Estimator computes demand from the appointment store.
type Estimator struct {
	store   appointments.Lister
	exclude []appointments.Status
}

// NewEstimator creates an estimator that ignores cancelled appointments.
func NewEstimator(store appointments.Lister) *Estimator {
	if store == nil {
		panic("demand: appointment lister required")
	}
	return &Estimator{store: store, exclude: appointments.CancelledStatuses}
}

// Estimate returns one entry per date, in input order. Each date's calendar
// day is re-anchored in the stylist's timezone.
//
// Demand is booked time over the whole local day divided by the working
// duration. IsFullyBooked counts only appointments inside working hours
// against the whole slots that fit in them. The two use different bases and
// may disagree.
func (e *Estimator) Estimate(ctx context.Context, st *stylists.Stylist, dates []time.Time) ([]OnDate, error) {
	if len(dates) == 0 {
		return []OnDate{}, nil
	}
	loc := st.Location()
	gap := st.Gap()

	days := make([]time.Time, len(dates))
	from, to := time.Time{}, time.Time{}
	for i, d := range dates {
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
		days[i] = day
		next := day.AddDate(0, 0, 1)
		if from.IsZero() || day.Before(from) {
			from = day
		}
		if next.After(to) {
			to = next
		}
	}

	booked, err := e.store.ListInRange(ctx, nil, st.ID, from, to, e.exclude)
	if err != nil {
		return nil, fmt.Errorf("demand: load appointments: %w", err)
	}
	byDay := make(map[string][]time.Time)
	for _, a := range booked {
		start := a.StartAt.In(loc)
		key := schedule.DateKey(start)
		byDay[key] = append(byDay[key], start)
	}

	out := make([]OnDate, len(days))
	for i, day := range days {
		wd := st.Schedule.Day(day)
		starts := byDay[schedule.DateKey(day)]
		available := wd.Duration()

		entry := OnDate{
			Date:         day,
			Demand:       ratio(time.Duration(len(starts))*gap, available),
			IsWorkingDay: wd.IsWorkingDay,
		}
		if wd.IsWorkingDay {
			inWindow := 0
			for _, s := range starts {
				if !s.Before(wd.Start) && s.Before(wd.End) {
					inWindow++
				}
			}
			entry.IsFullyBooked = time.Duration(inWindow)*gap >= slotWindow(available, gap)
		}
		out[i] = entry
	}
	return out, nil
}

// NormalizeDemand converts absolute booked durations for consecutive days
// starting at startDate into [0,1] demand. Weekdays without configured
// hours are saturated.
func NormalizeDemand(startDate time.Time, absDemands []time.Duration, weekdayAvailable map[time.Weekday]time.Duration) ([]float64, error) {
	out := make([]float64, len(absDemands))
	for i, booked := range absDemands {
		if booked < 0 {
			return nil, fmt.Errorf("demand: %w: negative duration %s at day %d", ErrInvalidInput, booked, i)
		}
		wd := startDate.AddDate(0, 0, i).Weekday()
		out[i] = ratio(booked, weekdayAvailable[wd])
	}
	return out, nil
}

// slotWindow trims a working duration to the whole gaps that can be booked
// in it.
func slotWindow(available, gap time.Duration) time.Duration {
	if gap <= 0 {
		return available
	}
	return available - available%gap
}

// ratio is booked/available clamped to [0,1]; a day with no available
// time is saturated.
func ratio(booked, available time.Duration) float64 {
	if available <= 0 {
		return 1.0
	}
	r := float64(booked) / float64(available)
	if r > 1 {
		return 1.0
	}
	return r
}
