package slots

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/salon-booking-engine/internal/appointments"
	"github.com/wolfman30/salon-booking-engine/internal/clock"
	"github.com/wolfman30/salon-booking-engine/internal/schedule"
	"github.com/wolfman30/salon-booking-engine/internal/stylists"
)

type listerStub struct {
	appts []appointments.Appointment
	err   error
}

func (l listerStub) ListInRange(_ context.Context, _ appointments.Querier, _ uuid.UUID, from, to time.Time, _ []appointments.Status) ([]appointments.Appointment, error) {
	var out []appointments.Appointment
	for _, a := range l.appts {
		if !a.StartAt.Before(from) && a.StartAt.Before(to) {
			out = append(out, a)
		}
	}
	return out, l.err
}

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 3, day, hour, minute, 0, 0, time.UTC)
}

func stylist() *stylists.Stylist {
	return &stylists.Stylist{
		ID:                    uuid.New(),
		Timezone:              "UTC",
		ServiceTimeGapMinutes: 60,
		Schedule: schedule.Schedule{
			Weekdays: []schedule.WeekdaySchedule{
				schedule.OpenWeekday(1, "09:00", "13:30"),
				schedule.ClosedWeekday(2),
			},
			SpecialDates: []schedule.SpecialDateOverride{{Date: "2026-03-09", IsAvailable: false}},
		},
	}
}

func TestGetAvailableSlotsMarksBooked(t *testing.T) {
	store := listerStub{appts: []appointments.Appointment{
		{ID: uuid.New(), StartAt: at(2, 10, 0), Status: appointments.StatusNew},
		{ID: uuid.New(), StartAt: at(2, 11, 30), Status: appointments.StatusNew},
		{ID: uuid.New(), StartAt: at(2, 9, 0), Status: appointments.StatusCancelledByStylist},
	}}
	gen := NewGenerator(store, clock.Fixed(at(1, 8, 0)))

	got, err := gen.GetAvailableSlots(context.Background(), stylist(), at(2, 0, 0), false)
	require.NoError(t, err)
	require.Len(t, got, 4, "13:00-14:00 does not fit before 13:30")

	wantBooked := []bool{false, true, true, true}
	for i, s := range got {
		assert.Equal(t, at(2, 9+i, 0), s.Start)
		assert.Equal(t, s.Start.Add(time.Hour), s.End)
		assert.Equal(t, wantBooked[i], s.IsBooked, "slot %s", s.Start.Format("15:04"))
	}
}

func TestGetAvailableSlotsDropsStartedSlots(t *testing.T) {
	gen := NewGenerator(listerStub{}, clock.Fixed(at(2, 10, 15)))

	got, err := gen.GetAvailableSlots(context.Background(), stylist(), at(2, 0, 0), false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, at(2, 11, 0), got[0].Start)

	got, err = gen.GetAvailableSlots(context.Background(), stylist(), at(2, 0, 0), true)
	require.NoError(t, err)
	assert.Len(t, got, 4, "display mode keeps past slots")
}

func TestGetAvailableSlotsClosedDays(t *testing.T) {
	gen := NewGenerator(listerStub{err: errors.New("must not be called")}, clock.Fixed(at(1, 0, 0)))

	got, err := gen.GetAvailableSlots(context.Background(), stylist(), at(3, 0, 0), false)
	require.NoError(t, err)
	assert.Empty(t, got, "tuesday is closed")

	got, err = gen.GetAvailableSlots(context.Background(), stylist(), at(9, 0, 0), false)
	require.NoError(t, err)
	assert.Empty(t, got, "special date closes the monday")

	got, err = gen.GetAvailableSlots(context.Background(), stylist(), at(4, 0, 0), false)
	require.NoError(t, err)
	assert.Empty(t, got, "weekday without a record is closed")
}

func TestGetAvailableSlotsStoreError(t *testing.T) {
	gen := NewGenerator(listerStub{err: errors.New("db down")}, clock.Fixed(at(1, 0, 0)))
	_, err := gen.GetAvailableSlots(context.Background(), stylist(), at(2, 0, 0), false)
	assert.Error(t, err)
}
