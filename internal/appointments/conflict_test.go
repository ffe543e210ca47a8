package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/salon-booking-engine/internal/stylists"
)

var base = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestOverlapsHalfOpen(t *testing.T) {
	cases := []struct {
		name   string
		aStart time.Time
		aEnd   time.Time
		want   bool
	}{
		{"ends exactly at other start", base.Add(-30 * time.Minute), base, false},
		{"ends one second into other", base.Add(-30 * time.Minute), base.Add(time.Second), true},
		{"starts exactly at other end", base.Add(30 * time.Minute), base.Add(time.Hour), false},
		{"starts one second before other ends", base.Add(30*time.Minute - time.Second), base.Add(time.Hour), true},
		{"contained", base.Add(5 * time.Minute), base.Add(10 * time.Minute), true},
		{"identical", base, base.Add(30 * time.Minute), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Overlaps(tc.aStart, tc.aEnd, base, base.Add(30*time.Minute))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestHasConflictExclusions(t *testing.T) {
	edited := uuid.New()
	existing := []Appointment{
		{ID: uuid.New(), StartAt: base, Status: StatusCancelledByClient},
		{ID: edited, StartAt: base.Add(time.Hour), Status: StatusNew},
		{ID: uuid.New(), StartAt: base.Add(2 * time.Hour), Status: StatusCheckedOut},
	}
	gap := 30 * time.Minute

	q := ConflictQuery{Start: base, End: base.Add(gap), Gap: gap, ExcludeStatuses: CancelledStatuses}
	assert.False(t, HasConflict(existing, q), "cancelled appointment must not block")

	q.ExcludeStatuses = nil
	assert.True(t, HasConflict(existing, q), "without exclusions the cancelled appointment blocks")

	q = ConflictQuery{Start: base.Add(time.Hour), End: base.Add(time.Hour + gap), Gap: gap, ExcludeID: edited}
	assert.False(t, HasConflict(existing, q), "edited appointment must not conflict with itself")

	q = ConflictQuery{Start: base.Add(2*time.Hour + 15*time.Minute), End: base.Add(2*time.Hour + 45*time.Minute), Gap: gap}
	blocking := FirstConflict(existing, q)
	require.NotNil(t, blocking)
	assert.Equal(t, existing[2].ID, blocking.ID)
}

func TestHasConflictUsesGapNotDuration(t *testing.T) {
	// Stored duration is longer than the gap; only the gap blocks.
	existing := []Appointment{{ID: uuid.New(), StartAt: base, Duration: 2 * time.Hour, Status: StatusNew}}
	q := ConflictQuery{Start: base.Add(30 * time.Minute), End: base.Add(time.Hour), Gap: 30 * time.Minute}
	assert.False(t, HasConflict(existing, q))
}

type stubLister struct {
	from, to time.Time
	result   []Appointment
	err      error
}

func (s *stubLister) ListInRange(_ context.Context, _ Querier, _ uuid.UUID, from, to time.Time, _ []Status) ([]Appointment, error) {
	s.from, s.to = from, to
	return s.result, s.err
}

func TestConflictCheckerLoadsAroundSlot(t *testing.T) {
	st := &stylists.Stylist{ID: uuid.New(), ServiceTimeGapMinutes: 45}
	lister := &stubLister{result: []Appointment{{ID: uuid.New(), StartAt: base.Add(-30 * time.Minute), Status: StatusNew}}}
	checker := NewConflictChecker(lister)

	conflict, err := checker.HasConflict(context.Background(), nil, st, base, base.Add(45*time.Minute), CancelledStatuses, uuid.Nil)
	require.NoError(t, err)
	assert.True(t, conflict, "appointment at 09:30 with 45m gap runs into 10:00")
	assert.Equal(t, base.Add(-45*time.Minute), lister.from)
	assert.Equal(t, base.Add(45*time.Minute), lister.to)

	lister.err = errors.New("boom")
	_, err = checker.HasConflict(context.Background(), nil, st, base, base.Add(45*time.Minute), nil, uuid.Nil)
	assert.Error(t, err)
}

func TestStatusTransitions(t *testing.T) {
	for _, next := range []Status{StatusCheckedOut, StatusCancelledByClient, StatusCancelledByStylist, StatusNoShow} {
		assert.True(t, StatusNew.CanTransitionTo(next), "new -> %s", next)
		assert.False(t, next.CanTransitionTo(StatusCheckedOut), "%s is terminal", next)
		assert.True(t, next.IsTerminal())
	}
	assert.False(t, StatusNew.CanTransitionTo(StatusNew))
	assert.False(t, StatusNew.IsTerminal())
	assert.False(t, StatusNew.CanTransitionTo(Status("rescheduled")), "unknown statuses are rejected")

	st, ok := ParseStatus("no_show")
	assert.True(t, ok)
	assert.Equal(t, StatusNoShow, st)
	_, ok = ParseStatus("archived")
	assert.False(t, ok)
}

func TestValidationError(t *testing.T) {
	v := &ValidationError{}
	assert.True(t, v.Empty())
	assert.NoError(t, v.OrNil())

	v.Add("start_at", CodeTimeSlotConflict, "slot taken")
	v.Add("service_uuids", CodeServiceNotOffered, "unknown service")
	err := v.OrNil()
	require.Error(t, err)
	assert.True(t, HasCode(err, CodeTimeSlotConflict))
	assert.True(t, HasCode(err, CodeServiceNotOffered))
	assert.False(t, HasCode(err, CodeAlreadyCheckedOut))
	assert.Contains(t, err.Error(), "start_at: time_slot_conflict")
	assert.False(t, HasCode(errors.New("plain"), CodeTimeSlotConflict))
}
