package appointments

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a referenced appointment does not exist.
var ErrNotFound = errors.New("appointment not found")

// Rejection codes surfaced to the end user.
const (
	CodeAppointmentInPast          = "appointment_in_past"
	CodeNonWorkingDay              = "non_working_day"
	CodeOutsideWorkingHours        = "outside_working_hours"
	CodeTimeSlotConflict           = "time_slot_conflict"
	CodeServiceNotOffered          = "service_not_offered"
	CodeServicesRequired           = "services_required"
	CodeStatusTransitionNotAllowed = "status_transition_not_allowed"
	CodeAlreadyCheckedOut          = "already_checked_out"
	CodeCheckoutServicesRequired   = "checkout_services_required"
	CodeCheckoutTaxFlagRequired    = "checkout_tax_flag_required"
	CodeCheckoutFeeFlagRequired    = "checkout_card_fee_flag_required"
)

// FieldError is one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError is a booking rejection carrying every field error found.
type ValidationError struct {
	Fields []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Code))
	}
	return "booking rejected: " + strings.Join(parts, ", ")
}

// Add records a field error.
func (e *ValidationError) Add(field, code, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Code: code, Message: message})
}

// Empty reports whether no field errors were recorded.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// Has reports whether any field carries code.
func (e *ValidationError) Has(code string) bool {
	if e == nil {
		return false
	}
	for _, f := range e.Fields {
		if f.Code == code {
			return true
		}
	}
	return false
}

// OrNil returns e as an error, or nil when empty.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

// Reject builds a single-field ValidationError.
func Reject(field, code, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, code, message)
	return v
}

// HasCode reports whether err is a ValidationError carrying code.
func HasCode(err error, code string) bool {
	var v *ValidationError
	if !errors.As(err, &v) {
		return false
	}
	return v.Has(code)
}
