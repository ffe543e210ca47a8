// Package checkout computes the authoritative appointment totals at checkout:
// subtotal, optional tax, optional card fee, whole-unit rounding and the
// stylist payout estimate.
package checkout

import (
	"github.com/shopspring/decimal"
)

var (
	// StripePercentFee and StripeFixedFee estimate card processing on payout.
	StripePercentFee = decimal.RequireFromString("0.029")
	StripeFixedFee   = decimal.RequireFromString("0.30")
)

// Options carries the flags and rates for one aggregation.
type Options struct {
	IncludeTax      bool
	IncludeCardFee  bool
	TaxRate         decimal.Decimal
	CardFeeRate     decimal.Decimal
	IsStripePayment bool
}

// AppointmentPrices is the checkout aggregate stored on the appointment.
type AppointmentPrices struct {
	TotalBeforeTax      decimal.Decimal `json:"total_before_tax"`
	TotalTax            decimal.Decimal `json:"total_tax"`
	TotalCardFee        decimal.Decimal `json:"total_card_fee"`
	GrandTotal          decimal.Decimal `json:"grand_total"`
	HasTaxIncluded      bool            `json:"has_tax_included"`
	HasCardFeeIncluded  bool            `json:"has_card_fee_included"`
	StylistPayoutAmount decimal.Decimal `json:"stylist_payout_amount"`
}

// Aggregate sums clientPrices and applies tax and card fee. The card fee is
// charged on the running total after tax. TotalTax and TotalCardFee are
// reported even when not included in the grand total.
func Aggregate(clientPrices []decimal.Decimal, opts Options) AppointmentPrices {
	subtotal := decimal.Zero
	for _, p := range clientPrices {
		subtotal = subtotal.Add(p)
	}

	tax := subtotal.Mul(opts.TaxRate)
	running := subtotal
	if opts.IncludeTax {
		running = running.Add(tax)
	}

	fee := running.Mul(opts.CardFeeRate)
	if opts.IncludeCardFee {
		running = running.Add(fee)
	}

	// decimal.Round rounds half away from zero, which is half-up for
	// non-negative totals.
	grand := running.Round(0)

	return AppointmentPrices{
		TotalBeforeTax:      subtotal,
		TotalTax:            tax,
		TotalCardFee:        fee,
		GrandTotal:          grand,
		HasTaxIncluded:      opts.IncludeTax,
		HasCardFeeIncluded:  opts.IncludeCardFee,
		StylistPayoutAmount: Payout(grand, opts.IsStripePayment),
	}
}

// Payout returns grand minus the estimated processing fee for Stripe
// payments, and grand unchanged otherwise.
func Payout(grand decimal.Decimal, isStripe bool) decimal.Decimal {
	if !isStripe {
		return grand
	}
	return grand.Sub(ProcessingFee(grand))
}

// ProcessingFee estimates the Stripe fee on amount, rounded to cents.
func ProcessingFee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(StripePercentFee).Add(StripeFixedFee).Round(2)
}
