// Package appointments holds the appointment record, its status machine, the
// slot conflict check and the Postgres-backed appointment store.
package appointments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/salon-booking-engine/internal/checkout"
	"github.com/wolfman30/salon-booking-engine/internal/discounts"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusNew                Status = "new"
	StatusCheckedOut         Status = "checked_out"
	StatusCancelledByClient  Status = "cancelled_by_client"
	StatusCancelledByStylist Status = "cancelled_by_stylist"
	StatusNoShow             Status = "no_show"
)

// CancelledStatuses is the default exclusion set for availability reads.
var CancelledStatuses = []Status{StatusCancelledByClient, StatusCancelledByStylist}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusNew, StatusCheckedOut, StatusCancelledByClient, StatusCancelledByStylist, StatusNoShow:
		return st, true
	}
	return "", false
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s != StatusNew
}

// CanTransitionTo allows NEW to move into any terminal status.
func (s Status) CanTransitionTo(next Status) bool {
	if s.IsTerminal() {
		return false
	}
	if _, known := ParseStatus(string(next)); !known {
		return false
	}
	return next.IsTerminal()
}

// Service is one priced line on an appointment.
type Service struct {
	ID                 uuid.UUID       `json:"id"`
	ServiceUUID        uuid.UUID       `json:"service_uuid"`
	Name               string          `json:"name"`
	RegularPrice       decimal.Decimal `json:"regular_price"`
	ClientPrice        decimal.Decimal `json:"client_price"`
	AppliedDiscount    *discounts.Type `json:"applied_discount"`
	DiscountPercentage int             `json:"discount_percentage"`
	IsOriginal         bool            `json:"is_original"`
	IsPriceEdited      bool            `json:"is_price_edited"`
	DeletedAt          *time.Time      `json:"deleted_at,omitempty"`
}

// Appointment is a booked slot with its services.
type Appointment struct {
	ID           uuid.UUID                   `json:"id"`
	StylistID    uuid.UUID                   `json:"stylist_id"`
	ClientID     *uuid.UUID                  `json:"client_id,omitempty"`
	StartAt      time.Time                   `json:"start_at"`
	Duration     time.Duration               `json:"duration"`
	Status       Status                      `json:"status"`
	Services     []Service                   `json:"services"`
	Prices       *checkout.AppointmentPrices `json:"prices,omitempty"`
	CheckedOutAt *time.Time                  `json:"checked_out_at,omitempty"`
	CreatedAt    time.Time                   `json:"created_at"`
}

// End is StartAt plus the booked duration.
func (a Appointment) End() time.Time {
	return a.StartAt.Add(a.Duration)
}

// ActiveServices returns services that were not removed at checkout.
func (a Appointment) ActiveServices() []Service {
	out := make([]Service, 0, len(a.Services))
	for _, s := range a.Services {
		if s.DeletedAt == nil {
			out = append(out, s)
		}
	}
	return out
}

// ClientPrices lists the client price of every active service.
func (a Appointment) ClientPrices() []decimal.Decimal {
	active := a.ActiveServices()
	out := make([]decimal.Decimal, 0, len(active))
	for _, s := range active {
		out = append(out, s.ClientPrice)
	}
	return out
}

// HasService reports whether an active line references serviceUUID.
func (a Appointment) HasService(serviceUUID uuid.UUID) bool {
	for _, s := range a.ActiveServices() {
		if s.ServiceUUID == serviceUUID {
			return true
		}
	}
	return false
}
