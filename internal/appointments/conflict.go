package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/salon-booking-engine/internal/stylists"
)

// Overlaps reports whether half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ConflictQuery describes a proposed slot.
type ConflictQuery struct {
	Start time.Time
	End   time.Time
	// Gap is the duration each existing appointment blocks.
	Gap             time.Duration
	ExcludeStatuses []Status
	// ExcludeID skips the appointment being edited.
	ExcludeID uuid.UUID
}

// HasConflict reports whether any appointment in existing blocks q.
func HasConflict(existing []Appointment, q ConflictQuery) bool {
	return FirstConflict(existing, q) != nil
}

// FirstConflict returns the first appointment blocking q, or nil.
func FirstConflict(existing []Appointment, q ConflictQuery) *Appointment {
	for i := range existing {
		a := &existing[i]
		if q.ExcludeID != uuid.Nil && a.ID == q.ExcludeID {
			continue
		}
		if containsStatus(q.ExcludeStatuses, a.Status) {
			continue
		}
		if Overlaps(q.Start, q.End, a.StartAt, a.StartAt.Add(q.Gap)) {
			return a
		}
	}
	return nil
}

func containsStatus(set []Status, s Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// Lister reads a stylist's appointments whose start falls in [from, to),
// ordered by start time.
type Lister interface {
	ListInRange(ctx context.Context, q Querier, stylistID uuid.UUID, from, to time.Time, exclude []Status) ([]Appointment, error)
}

// ConflictChecker runs HasConflict against the appointment store.
type ConflictChecker struct {
	store Lister
}

// NewConflictChecker wraps an appointment lister.
func NewConflictChecker(store Lister) *ConflictChecker {
	if store == nil {
		panic("appointments: lister required")
	}
	return &ConflictChecker{store: store}
}

// HasConflict loads the stylist's appointments around [start,end) through q
// (nil uses the pool) and reports whether any blocks the slot. excludeID may
// be uuid.Nil.
func (c *ConflictChecker) HasConflict(ctx context.Context, q Querier, st *stylists.Stylist, start, end time.Time, exclude []Status, excludeID uuid.UUID) (bool, error) {
	gap := st.Gap()
	// An appointment starting up to one gap before start still covers it.
	existing, err := c.store.ListInRange(ctx, q, st.ID, start.Add(-gap), end, exclude)
	if err != nil {
		return false, fmt.Errorf("appointments: conflict check: %w", err)
	}
	return HasConflict(existing, ConflictQuery{
		Start:           start,
		End:             end,
		Gap:             gap,
		ExcludeStatuses: exclude,
		ExcludeID:       excludeID,
	}), nil
}
