package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/salon-booking-engine/internal/appointments"
	"github.com/wolfman30/salon-booking-engine/internal/stylists"
)

// StartCheck is the input to ValidateStart.
type StartCheck struct {
	Stylist *stylists.Stylist
	Start   time.Time
	Now     time.Time
	// Existing holds the stylist's appointments around Start.
	Existing []appointments.Appointment
	// ExcludeID is the appointment being edited, if any.
	ExcludeID uuid.UUID
	// Conflicting marks the slot as taken by a store lookup made by the caller.
	Conflicting bool
	// Force skips the past check for stylist-side manual entry.
	Force bool
}

// ValidateStart runs the start-time gates in order (past, working day,
// working hours, conflict) and returns the first failure, or nil.
func ValidateStart(c StartCheck) *appointments.FieldError {
	st := c.Stylist
	gap := st.Gap()
	start := c.Start.In(st.Location())
	end := start.Add(gap)

	if !c.Force && start.Before(c.Now) {
		return &appointments.FieldError{
			Field:   "start_at",
			Code:    appointments.CodeAppointmentInPast,
			Message: "appointment cannot start in the past",
		}
	}

	day := st.Schedule.Day(start)
	if !day.IsWorkingDay {
		return &appointments.FieldError{
			Field:   "start_at",
			Code:    appointments.CodeNonWorkingDay,
			Message: "stylist does not work on " + start.Format("Monday, 2006-01-02"),
		}
	}
	if !day.Covers(start, end) {
		return &appointments.FieldError{
			Field:   "start_at",
			Code:    appointments.CodeOutsideWorkingHours,
			Message: "appointment must fit between " + day.Start.Format("15:04") + " and " + day.End.Format("15:04"),
		}
	}

	if c.Conflicting || appointments.HasConflict(c.Existing, appointments.ConflictQuery{
		Start:           start,
		End:             end,
		Gap:             gap,
		ExcludeStatuses: appointments.CancelledStatuses,
		ExcludeID:       c.ExcludeID,
	}) {
		return &appointments.FieldError{
			Field:   "start_at",
			Code:    appointments.CodeTimeSlotConflict,
			Message: "time slot is already booked",
		}
	}
	return nil
}
