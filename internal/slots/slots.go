// Package slots enumerates a stylist's bookable time slots for one date.
package slots

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/salon-booking-engine/internal/appointments"
	"github.com/wolfman30/salon-booking-engine/internal/clock"
	"github.com/wolfman30/salon-booking-engine/internal/stylists"
)

// TimeSlot is one gap-sized slot inside working hours.
type TimeSlot struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	IsBooked bool      `json:"is_booked"`
}

// Generator builds slot lists from the stylist schedule and the appointment
// store.
type Generator struct {
	store appointments.Lister
	clock clock.Clock
}

// NewGenerator creates a slot generator. A nil clock uses the system clock.
func NewGenerator(store appointments.Lister, c clock.Clock) *Generator {
	if store == nil {
		panic("slots: appointment lister required")
	}
	return &Generator{store: store, clock: clock.Or(c)}
}

// GetAvailableSlots returns gap-spaced slots covering the working window of
// date's calendar day in the stylist's timezone. Only whole slots that end by
// work_end are produced. Slots that already started are dropped unless
// includePast is set.
func (g *Generator) GetAvailableSlots(ctx context.Context, st *stylists.Stylist, date time.Time, includePast bool) ([]TimeSlot, error) {
	loc := st.Location()
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	wd := st.Schedule.Day(day)
	if !wd.IsWorkingDay {
		return []TimeSlot{}, nil
	}

	gap := st.Gap()
	existing, err := g.store.ListInRange(ctx, nil, st.ID, wd.Start.Add(-gap), wd.End, appointments.CancelledStatuses)
	if err != nil {
		return nil, fmt.Errorf("slots: load appointments: %w", err)
	}

	now := g.clock.Now()
	out := make([]TimeSlot, 0, int(wd.Duration()/gap))
	for start := wd.Start; !start.Add(gap).After(wd.End); start = start.Add(gap) {
		if !includePast && start.Before(now) {
			continue
		}
		end := start.Add(gap)
		booked := appointments.HasConflict(existing, appointments.ConflictQuery{
			Start:           start,
			End:             end,
			Gap:             gap,
			ExcludeStatuses: appointments.CancelledStatuses,
		})
		out = append(out, TimeSlot{Start: start, End: end, IsBooked: booked})
	}
	return out, nil
}
