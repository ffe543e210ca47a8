package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outbox event types.
const (
	TypeAppointmentBooked        = "appointment.booked.v1"
	TypeAppointmentCheckedOut    = "appointment.checked_out.v1"
	TypeAppointmentStatusChanged = "appointment.status_changed.v1"
)

type AppointmentBookedV1 struct {
	EventID       string          `json:"event_id"`
	AppointmentID string          `json:"appointment_id"`
	StylistID     string          `json:"stylist_id"`
	ClientID      string          `json:"client_id,omitempty"`
	StartAt       time.Time       `json:"start_at"`
	DurationMins  int             `json:"duration_minutes"`
	ServiceUUIDs  []string        `json:"service_uuids"`
	QuotedTotal   decimal.Decimal `json:"quoted_total"`
	Forced        bool            `json:"forced,omitempty"`
	BookedAt      time.Time       `json:"booked_at"`
}

type AppointmentCheckedOutV1 struct {
	EventID             string          `json:"event_id"`
	AppointmentID       string          `json:"appointment_id"`
	StylistID           string          `json:"stylist_id"`
	ClientID            string          `json:"client_id,omitempty"`
	TotalBeforeTax      decimal.Decimal `json:"total_before_tax"`
	GrandTotal          decimal.Decimal `json:"grand_total"`
	HasTaxIncluded      bool            `json:"has_tax_included"`
	HasCardFeeIncluded  bool            `json:"has_card_fee_included"`
	StylistPayoutAmount decimal.Decimal `json:"stylist_payout_amount"`
	CheckedOutAt        time.Time       `json:"checked_out_at"`
}

type AppointmentStatusChangedV1 struct {
	EventID       string    `json:"event_id"`
	AppointmentID string    `json:"appointment_id"`
	StylistID     string    `json:"stylist_id"`
	ClientID      string    `json:"client_id,omitempty"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	StartAt       time.Time `json:"start_at"`
	ChangedAt     time.Time `json:"changed_at"`
}
