package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/salon-booking-engine/internal/appointments"
	"github.com/wolfman30/salon-booking-engine/internal/clock"
	"github.com/wolfman30/salon-booking-engine/internal/demand"
	"github.com/wolfman30/salon-booking-engine/internal/stylists"
	"github.com/wolfman30/salon-booking-engine/pkg/logging"
)

var pricingTracer = otel.Tracer("salon.internal.pricing")

// ProfileSource loads stylist profiles.
type ProfileSource interface {
	Get(ctx context.Context, id uuid.UUID) (*stylists.Stylist, error)
}

// VisitSource reports a client's last completed visit with a stylist.
type VisitSource interface {
	LastVisit(ctx context.Context, stylistID, clientID uuid.UUID) (*time.Time, error)
}

// DemandSource estimates demand for a set of dates.
type DemandSource interface {
	Estimate(ctx context.Context, st *stylists.Stylist, dates []time.Time) ([]demand.OnDate, error)
}

// QuoteRequest asks for the price block of a set of services.
type QuoteRequest struct {
	StylistID uuid.UUID
	// ClientID is nil for anonymous or first-time clients.
	ClientID     *uuid.UUID
	ServiceUUIDs []uuid.UUID
}

// Quote is a priced window for one client and service selection.
type Quote struct {
	StylistID    uuid.UUID                  `json:"stylist_id"`
	Services     []stylists.ServiceOffering `json:"services"`
	RegularTotal decimal.Decimal            `json:"regular_total"`
	Days         []OnDate                   `json:"days"`
}

// ForDate returns the calculated price on date's calendar day (in the day
// entries' location), or false when date falls outside the window.
func (q *Quote) ForDate(date time.Time) (CalculatedPrice, bool) {
	if q == nil || len(q.Days) == 0 {
		return CalculatedPrice{}, false
	}
	loc := q.Days[0].Date.Location()
	idx := clock.DaysBetween(q.Days[0].Date, date, loc)
	if idx < 0 || idx >= len(q.Days) {
		return CalculatedPrice{}, false
	}
	return q.Days[idx].CalculatedPrice, true
}

// RegularPrices lists the regular price of each quoted service.
func (q *Quote) RegularPrices() []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(q.Services))
	for _, s := range q.Services {
		out = append(out, s.RegularPrice)
	}
	return out
}

// Quoter assembles price blocks from the profile store, the appointment
// history and demand.
type Quoter struct {
	profiles ProfileSource
	visits   VisitSource
	demand   DemandSource
	clock    clock.Clock
	logger   *logging.Logger
}

// NewQuoter wires a quoter. A nil clock uses the system clock.
func NewQuoter(profiles ProfileSource, visits VisitSource, demandSource DemandSource, c clock.Clock, logger *logging.Logger) *Quoter {
	if profiles == nil || visits == nil || demandSource == nil {
		panic("pricing: profiles, visits and demand are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Quoter{profiles: profiles, visits: visits, demand: demandSource, clock: clock.Or(c), logger: logger}
}

// Quote loads the stylist and prices the requested services.
func (q *Quoter) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	st, err := q.profiles.Get(ctx, req.StylistID)
	if err != nil {
		return nil, err
	}
	return q.QuoteFor(ctx, st, req.ClientID, req.ServiceUUIDs)
}

// QuoteFor prices services for an already loaded stylist. Services the
// stylist does not offer are rejected with CodeServiceNotOffered.
func (q *Quoter) QuoteFor(ctx context.Context, st *stylists.Stylist, clientID *uuid.UUID, serviceUUIDs []uuid.UUID) (*Quote, error) {
	ctx, span := pricingTracer.Start(ctx, "pricing.quote")
	defer span.End()
	span.SetAttributes(
		attribute.String("salon.stylist_id", st.ID.String()),
		attribute.Int("salon.service_count", len(serviceUUIDs)),
	)

	offerings, missing := st.ResolveServices(serviceUUIDs)
	if len(missing) > 0 {
		err := appointments.Reject("service_uuids", appointments.CodeServiceNotOffered,
			fmt.Sprintf("stylist does not offer service %s", missing[0]))
		span.RecordError(err)
		return nil, err
	}

	var lastVisit *time.Time
	if clientID != nil {
		last, err := q.visits.LastVisit(ctx, st.ID, *clientID)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("pricing: last visit: %w", err)
		}
		lastVisit = last
	}

	loc := st.Location()
	today := clock.Today(q.clock, loc)
	dates := make([]time.Time, PriceBlockSize)
	for i := range dates {
		dates[i] = today.AddDate(0, 0, i)
	}
	days, err := q.demand.Estimate(ctx, st, dates)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("pricing: estimate demand: %w", err)
	}
	load := make([]float64, len(days))
	for i, d := range days {
		load[i] = d.Demand
	}

	quote := &Quote{StylistID: st.ID, Services: offerings}
	regular := quote.RegularPrices()
	prices, err := CalcClientPrices(q.clock, loc, st.Discounts.Clone(), lastVisit, regular, load)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for _, p := range regular {
		quote.RegularTotal = quote.RegularTotal.Add(p)
	}
	quote.Days = make([]OnDate, len(prices))
	for i := range prices {
		quote.Days[i] = OnDate{
			Date:            dates[i],
			CalculatedPrice: prices[i],
			IsFullyBooked:   days[i].IsFullyBooked,
			IsWorkingDay:    days[i].IsWorkingDay,
		}
	}

	q.logger.Debug("price block computed", "stylist_id", st.ID, "services", len(offerings), "first_visit", lastVisit == nil)
	return quote, nil
}
