// Package stylists provides the stylist profile consumed by the availability
// and pricing engine: timezone, service-time gap, schedule, discounts and menu.
package stylists

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/salon-booking-engine/internal/discounts"
	"github.com/wolfman30/salon-booking-engine/internal/schedule"
)

// DefaultServiceTimeGap is used when a profile has no gap configured.
const DefaultServiceTimeGap = 30 * time.Minute

var (
	// ErrNotFound is returned when no profile exists for a stylist ID.
	ErrNotFound = errors.New("stylist not found")

	// ErrInvalidProfile is returned by Validate.
	ErrInvalidProfile = errors.New("invalid stylist profile")
)

// ServiceOffering is one entry on the stylist's service menu.
type ServiceOffering struct {
	UUID         uuid.UUID       `json:"uuid"`
	Name         string          `json:"name"`
	RegularPrice decimal.Decimal `json:"regular_price"`
}

// Stylist is the profile record owned by the profile management flow.
type Stylist struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Timezone string    `json:"timezone"` // e.g., "America/New_York"
	// ServiceTimeGapMinutes is the time blocked by one appointment.
	ServiceTimeGapMinutes int                `json:"service_time_gap_minutes"`
	Schedule              schedule.Schedule  `json:"schedule"`
	Discounts             discounts.Settings `json:"discounts"`
	Services              []ServiceOffering  `json:"services"`
}

// Location loads the stylist's timezone, falling back to UTC.
func (s *Stylist) Location() *time.Location {
	if s == nil || s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Gap returns the fixed duration blocked by one appointment.
func (s *Stylist) Gap() time.Duration {
	if s == nil || s.ServiceTimeGapMinutes <= 0 {
		return DefaultServiceTimeGap
	}
	return time.Duration(s.ServiceTimeGapMinutes) * time.Minute
}

// Service looks up an offering by UUID.
func (s *Stylist) Service(id uuid.UUID) (ServiceOffering, bool) {
	for _, svc := range s.Services {
		if svc.UUID == id {
			return svc, true
		}
	}
	return ServiceOffering{}, false
}

// ResolveServices returns the offerings for ids in request order plus the ids
// the stylist does not offer.
func (s *Stylist) ResolveServices(ids []uuid.UUID) ([]ServiceOffering, []uuid.UUID) {
	found := make([]ServiceOffering, 0, len(ids))
	var missing []uuid.UUID
	for _, id := range ids {
		svc, ok := s.Service(id)
		if !ok {
			missing = append(missing, id)
			continue
		}
		found = append(found, svc)
	}
	return found, missing
}

// Validate checks the schedule and discount invariants.
func (s *Stylist) Validate() error {
	if s.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidProfile)
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("%w: timezone %q: %v", ErrInvalidProfile, s.Timezone, err)
		}
	}
	if s.ServiceTimeGapMinutes < 0 {
		return fmt.Errorf("%w: negative service time gap", ErrInvalidProfile)
	}
	if err := s.Schedule.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	if err := s.Discounts.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	for _, svc := range s.Services {
		if svc.RegularPrice.IsNegative() {
			return fmt.Errorf("%w: service %s has negative price", ErrInvalidProfile, svc.UUID)
		}
	}
	return nil
}
