// Package pricing computes demand-scaled client prices over a fixed window of
// days starting today in the stylist's timezone.
package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wolfman30/salon-booking-engine/internal/clock"
	"github.com/wolfman30/salon-booking-engine/internal/demand"
	"github.com/wolfman30/salon-booking-engine/internal/discounts"
)

const (
	// PriceBlockSize is the number of days priced together.
	PriceBlockSize = 14
	// DiscountGranularization is the step applied discount fractions snap to.
	DiscountGranularization = 0.25
)

// ErrInvalidInput is shared with the demand package.
var ErrInvalidInput = demand.ErrInvalidInput

var hundred = decimal.NewFromInt(100)

// CalculatedPrice is the client price on one day.
type CalculatedPrice struct {
	Price decimal.Decimal `json:"price"`
	// AppliedDiscount is nil when the effective percentage is zero.
	AppliedDiscount    *discounts.Type `json:"applied_discount"`
	DiscountPercentage int             `json:"discount_percentage"`
}

// OnDate pairs a day's price with its availability flags.
type OnDate struct {
	Date            time.Time       `json:"date"`
	CalculatedPrice CalculatedPrice `json:"calculated_price"`
	IsFullyBooked   bool            `json:"is_fully_booked"`
	IsWorkingDay    bool            `json:"is_working_day"`
}

// Granularize snaps f to the nearest multiple of DiscountGranularization.
func Granularize(f float64) float64 {
	return math.Round(f/DiscountGranularization) * DiscountGranularization
}

// CalcClientPrices prices the sum of regularPrices for each of the
// PriceBlockSize days starting today (per c, in loc). currentDemand holds one
// [0,1] value per day.
//
// The resolved discount is scaled by (1-demand[i])/(1-min(demand)), snapped
// to DiscountGranularization, so the least-booked day gets the full discount
// and saturated days get none. When every day is saturated nothing is
// discounted.
func CalcClientPrices(c clock.Clock, loc *time.Location, settings discounts.Settings, lastVisit *time.Time, regularPrices []decimal.Decimal, currentDemand []float64) ([]CalculatedPrice, error) {
	if len(currentDemand) != PriceBlockSize {
		return nil, fmt.Errorf("pricing: %w: demand window has %d days, want %d", ErrInvalidInput, len(currentDemand), PriceBlockSize)
	}
	minDemand := 1.0
	for i, d := range currentDemand {
		if math.IsNaN(d) || d < 0 || d > 1 {
			return nil, fmt.Errorf("pricing: %w: demand %v on day %d outside [0,1]", ErrInvalidInput, d, i)
		}
		minDemand = math.Min(minDemand, d)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("pricing: %w: %w", ErrInvalidInput, err)
	}
	regular := decimal.Zero
	for _, p := range regularPrices {
		if p.IsNegative() {
			return nil, fmt.Errorf("pricing: %w: negative regular price %s", ErrInvalidInput, p)
		}
		regular = regular.Add(p)
	}

	if loc == nil {
		loc = time.UTC
	}
	if lastVisit != nil {
		lv := lastVisit.In(loc)
		lastVisit = &lv
	}
	limit, capped := settings.MaximumDiscountCap()
	today := clock.Today(c, loc)

	out := make([]CalculatedPrice, PriceBlockSize)
	for i := range out {
		date := today.AddDate(0, 0, i)
		disc, ok := discounts.Resolve(settings, lastVisit, date)
		if !ok {
			out[i] = CalculatedPrice{Price: regular}
			continue
		}

		fraction := 0.0
		if minDemand < 1 {
			fraction = Granularize((1 - currentDemand[i]) / (1 - minDemand))
		}
		pct := int(math.Round(float64(disc.Percentage) * fraction))

		price := regular.Mul(decimal.NewFromInt(int64(100 - pct))).Div(hundred).Round(2)
		if capped {
			if floor := regular.Sub(limit); price.LessThan(floor) {
				price = floor
			}
		}

		cp := CalculatedPrice{Price: price, DiscountPercentage: pct}
		if pct > 0 {
			t := disc.Type
			cp.AppliedDiscount = &t
		}
		out[i] = cp
	}
	return out, nil
}

// ServicePrice is one service's share of a day's price.
type ServicePrice struct {
	Regular decimal.Decimal
	Client  decimal.Decimal
}

// PriceServices splits day.Price across services in proportion to their
// regular prices. Shares are rounded to cents and the last service absorbs
// the remainder so the shares sum to day.Price.
func PriceServices(regularPrices []decimal.Decimal, day CalculatedPrice) []ServicePrice {
	out := make([]ServicePrice, len(regularPrices))
	total := decimal.Zero
	for _, p := range regularPrices {
		total = total.Add(p)
	}
	assigned := decimal.Zero
	for i, p := range regularPrices {
		out[i].Regular = p
		if total.IsZero() {
			out[i].Client = decimal.Zero
			continue
		}
		if i == len(regularPrices)-1 {
			out[i].Client = day.Price.Sub(assigned)
			continue
		}
		share := p.Mul(day.Price).Div(total).Round(2)
		out[i].Client = share
		assigned = assigned.Add(share)
	}
	return out
}
