// Package booking reserves, checks out and cancels appointments. Writes run in
// one transaction per request, serialized per stylist, and emit outbox events
// in the same transaction.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/salon-booking-engine/internal/appointments"
	"github.com/wolfman30/salon-booking-engine/internal/checkout"
	"github.com/wolfman30/salon-booking-engine/internal/clock"
	"github.com/wolfman30/salon-booking-engine/internal/events"
	"github.com/wolfman30/salon-booking-engine/internal/observability/metrics"
	"github.com/wolfman30/salon-booking-engine/internal/pricing"
	"github.com/wolfman30/salon-booking-engine/internal/stylists"
	"github.com/wolfman30/salon-booking-engine/pkg/logging"
)

var bookingTracer = otel.Tracer("salon.internal.booking")

// Profiles loads stylist profiles.
type Profiles interface {
	Get(ctx context.Context, id uuid.UUID) (*stylists.Stylist, error)
}

// Outbox records events inside the caller's transaction.
type Outbox interface {
	Insert(ctx context.Context, q events.Querier, aggregateID uuid.UUID, eventType string, payload any) (uuid.UUID, error)
}

// Rates are the checkout tax and card-fee rates.
type Rates struct {
	Tax     decimal.Decimal
	CardFee decimal.Decimal
}

// Deps wires a Service.
type Deps struct {
	Repo     *appointments.Repository
	Profiles Profiles
	Quoter   *pricing.Quoter
	Outbox   Outbox
	Rates    Rates
	Clock    clock.Clock
	Metrics  *metrics.BookingMetrics
	Logger   *logging.Logger
}

// Service is the booking write path.
type Service struct {
	repo      *appointments.Repository
	conflicts *appointments.ConflictChecker
	profiles  Profiles
	quoter    *pricing.Quoter
	outbox    Outbox
	rates     Rates
	clock     clock.Clock
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
}

// NewService constructs a booking service.
func NewService(d Deps) *Service {
	if d.Repo == nil || d.Profiles == nil || d.Quoter == nil || d.Outbox == nil {
		panic("booking: repository, profiles, quoter and outbox are required")
	}
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	return &Service{
		repo:      d.Repo,
		conflicts: appointments.NewConflictChecker(d.Repo),
		profiles:  d.Profiles,
		quoter:    d.Quoter,
		outbox:    d.Outbox,
		rates:     d.Rates,
		clock:     clock.Or(d.Clock),
		metrics:   d.Metrics,
		logger:    d.Logger,
	}
}

// BookRequest reserves a slot for a client.
type BookRequest struct {
	StylistID    uuid.UUID   `json:"-"`
	ClientID     *uuid.UUID  `json:"client_id,omitempty"`
	StartAt      time.Time   `json:"start_at"`
	ServiceUUIDs []uuid.UUID `json:"service_uuids"`
	// Force allows stylists to enter appointments in the past.
	Force bool `json:"force,omitempty"`
}

// Book validates the start time and services, prices the services for the
// start date and stores the appointment. The conflict check and the insert
// run under the stylist's advisory lock.
func (s *Service) Book(ctx context.Context, req BookRequest) (appt *appointments.Appointment, err error) {
	ctx, span := bookingTracer.Start(ctx, "booking.book")
	defer span.End()
	span.SetAttributes(attribute.String("salon.stylist_id", req.StylistID.String()))
	defer s.observe("book", time.Now(), &err)

	st, err := s.profiles.Get(ctx, req.StylistID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	rejected := &appointments.ValidationError{}
	if len(req.ServiceUUIDs) == 0 {
		rejected.Add("service_uuids", appointments.CodeServicesRequired, "at least one service is required")
	}
	offerings, missing := st.ResolveServices(req.ServiceUUIDs)
	for _, id := range missing {
		rejected.Add("service_uuids", appointments.CodeServiceNotOffered, fmt.Sprintf("stylist does not offer service %s", id))
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("booking: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.repo.LockStylist(ctx, tx, st.ID); err != nil {
		return nil, err
	}
	gap := st.Gap()
	taken, err := s.conflicts.HasConflict(ctx, tx, st, req.StartAt, req.StartAt.Add(gap), appointments.CancelledStatuses, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if fe := ValidateStart(StartCheck{
		Stylist:     st,
		Start:       req.StartAt,
		Now:         s.clock.Now(),
		Conflicting: taken,
		Force:       req.Force,
	}); fe != nil {
		rejected.Add(fe.Field, fe.Code, fe.Message)
	}
	if err := rejected.OrNil(); err != nil {
		return nil, err
	}

	quote, err := s.quoter.QuoteFor(ctx, st, req.ClientID, req.ServiceUUIDs)
	if err != nil {
		return nil, err
	}
	day, ok := quote.ForDate(req.StartAt.In(st.Location()))
	if !ok {
		day = pricing.CalculatedPrice{Price: quote.RegularTotal}
	}
	shares := pricing.PriceServices(quote.RegularPrices(), day)

	appt = &appointments.Appointment{
		ID:        uuid.New(),
		StylistID: st.ID,
		ClientID:  req.ClientID,
		StartAt:   req.StartAt.UTC(),
		Duration:  gap,
		Status:    appointments.StatusNew,
	}
	for i, o := range offerings {
		appt.Services = append(appt.Services, appointments.Service{
			ServiceUUID:        o.UUID,
			Name:               o.Name,
			RegularPrice:       shares[i].Regular,
			ClientPrice:        shares[i].Client,
			AppliedDiscount:    day.AppliedDiscount,
			DiscountPercentage: day.DiscountPercentage,
			IsOriginal:         true,
		})
	}
	if err := s.repo.Insert(ctx, tx, appt); err != nil {
		return nil, err
	}

	serviceIDs := make([]string, 0, len(offerings))
	for _, o := range offerings {
		serviceIDs = append(serviceIDs, o.UUID.String())
	}
	if _, err := s.outbox.Insert(ctx, tx, appt.ID, events.TypeAppointmentBooked, events.AppointmentBookedV1{
		EventID:       uuid.NewString(),
		AppointmentID: appt.ID.String(),
		StylistID:     st.ID.String(),
		ClientID:      uuidString(req.ClientID),
		StartAt:       appt.StartAt,
		DurationMins:  int(gap / time.Minute),
		ServiceUUIDs:  serviceIDs,
		QuotedTotal:   day.Price,
		Forced:        req.Force,
		BookedAt:      s.clock.Now().UTC(),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("booking: commit: %w", err)
	}

	s.metrics.ObserveBookedDiscount(day.DiscountPercentage)
	s.logger.Info("appointment booked", "stylist_id", st.ID, "appointment_id", appt.ID, "start_at", appt.StartAt, "price", day.Price.String())
	return appt, nil
}

// CheckoutRequest finalizes an appointment. The flags are pointers so a
// missing flag can be told apart from false.
type CheckoutRequest struct {
	AppointmentID      uuid.UUID   `json:"-"`
	ServiceUUIDs       []uuid.UUID `json:"service_uuids"`
	HasTaxIncluded     *bool       `json:"has_tax_included"`
	HasCardFeeIncluded *bool       `json:"has_card_fee_included"`
	IsStripePayment    bool        `json:"is_stripe_payment"`
}

// Checkout reconciles the appointment's services with the final selection,
// computes the authoritative totals and moves it to CHECKED_OUT. The
// appointment row stays locked until commit, so a concurrent second checkout
// sees CHECKED_OUT and is rejected with CodeAlreadyCheckedOut.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (appt *appointments.Appointment, err error) {
	ctx, span := bookingTracer.Start(ctx, "booking.checkout")
	defer span.End()
	span.SetAttributes(attribute.String("salon.appointment_id", req.AppointmentID.String()))
	defer s.observe("checkout", time.Now(), &err)

	rejected := &appointments.ValidationError{}
	if len(req.ServiceUUIDs) == 0 {
		rejected.Add("service_uuids", appointments.CodeCheckoutServicesRequired, "services are required to check out")
	}
	if req.HasTaxIncluded == nil {
		rejected.Add("has_tax_included", appointments.CodeCheckoutTaxFlagRequired, "tax flag is required to check out")
	}
	if req.HasCardFeeIncluded == nil {
		rejected.Add("has_card_fee_included", appointments.CodeCheckoutFeeFlagRequired, "card fee flag is required to check out")
	}
	if err := rejected.OrNil(); err != nil {
		return nil, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("booking: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	appt, err = s.repo.Get(ctx, tx, req.AppointmentID, true)
	if err != nil {
		return nil, err
	}
	if appt.Status == appointments.StatusCheckedOut {
		return nil, appointments.Reject("status", appointments.CodeAlreadyCheckedOut, "appointment is already checked out")
	}
	if !appt.Status.CanTransitionTo(appointments.StatusCheckedOut) {
		return nil, appointments.Reject("status", appointments.CodeStatusTransitionNotAllowed,
			fmt.Sprintf("cannot check out a %s appointment", appt.Status))
	}

	st, err := s.profiles.Get(ctx, appt.StylistID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	wanted := make(map[uuid.UUID]bool, len(req.ServiceUUIDs))
	var added []appointments.Service
	for _, id := range req.ServiceUUIDs {
		if wanted[id] {
			continue
		}
		wanted[id] = true
		if appt.HasService(id) {
			continue
		}
		o, ok := st.Service(id)
		if !ok {
			rejected.Add("service_uuids", appointments.CodeServiceNotOffered, fmt.Sprintf("stylist does not offer service %s", id))
			continue
		}
		added = append(added, appointments.Service{
			ServiceUUID:  o.UUID,
			Name:         o.Name,
			RegularPrice: o.RegularPrice,
			ClientPrice:  o.RegularPrice,
			IsOriginal:   false,
		})
	}
	if err := rejected.OrNil(); err != nil {
		return nil, err
	}

	var removed []uuid.UUID
	for i := range appt.Services {
		svc := &appt.Services[i]
		if svc.DeletedAt == nil && !wanted[svc.ServiceUUID] {
			removed = append(removed, svc.ID)
			svc.DeletedAt = &now
		}
	}
	if err := s.repo.AppendServices(ctx, tx, appt.ID, added); err != nil {
		return nil, err
	}
	if err := s.repo.RemoveServices(ctx, tx, appt.ID, removed, now); err != nil {
		return nil, err
	}
	appt.Services = append(appt.Services, added...)

	prices := checkout.Aggregate(appt.ClientPrices(), checkout.Options{
		IncludeTax:      *req.HasTaxIncluded,
		IncludeCardFee:  *req.HasCardFeeIncluded,
		TaxRate:         s.rates.Tax,
		CardFeeRate:     s.rates.CardFee,
		IsStripePayment: req.IsStripePayment,
	})
	if err := s.repo.MarkCheckedOut(ctx, tx, appt.ID, prices, now); err != nil {
		return nil, err
	}
	if _, err := s.outbox.Insert(ctx, tx, appt.ID, events.TypeAppointmentCheckedOut, events.AppointmentCheckedOutV1{
		EventID:             uuid.NewString(),
		AppointmentID:       appt.ID.String(),
		StylistID:           appt.StylistID.String(),
		ClientID:            uuidString(appt.ClientID),
		TotalBeforeTax:      prices.TotalBeforeTax,
		GrandTotal:          prices.GrandTotal,
		HasTaxIncluded:      prices.HasTaxIncluded,
		HasCardFeeIncluded:  prices.HasCardFeeIncluded,
		StylistPayoutAmount: prices.StylistPayoutAmount,
		CheckedOutAt:        now,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("booking: commit: %w", err)
	}

	appt.Status = appointments.StatusCheckedOut
	appt.Prices = &prices
	appt.CheckedOutAt = &now
	s.logger.Info("appointment checked out", "appointment_id", appt.ID, "grand_total", prices.GrandTotal.String(),
		"added", len(added), "removed", len(removed))
	return appt, nil
}

// SetStatus cancels an appointment or marks it as a no-show. Checkout has its
// own path.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, to appointments.Status) (appt *appointments.Appointment, err error) {
	ctx, span := bookingTracer.Start(ctx, "booking.set_status")
	defer span.End()
	span.SetAttributes(
		attribute.String("salon.appointment_id", id.String()),
		attribute.String("salon.status", string(to)),
	)
	defer s.observe("set_status", time.Now(), &err)

	switch to {
	case appointments.StatusCancelledByClient, appointments.StatusCancelledByStylist, appointments.StatusNoShow:
	default:
		return nil, appointments.Reject("status", appointments.CodeStatusTransitionNotAllowed,
			fmt.Sprintf("status %q cannot be set directly", to))
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("booking: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	appt, err = s.repo.Get(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	from := appt.Status
	if !from.CanTransitionTo(to) {
		return nil, appointments.Reject("status", appointments.CodeStatusTransitionNotAllowed,
			fmt.Sprintf("cannot move appointment from %s to %s", from, to))
	}
	if err := s.repo.UpdateStatus(ctx, tx, id, from, to); err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	if _, err := s.outbox.Insert(ctx, tx, id, events.TypeAppointmentStatusChanged, events.AppointmentStatusChangedV1{
		EventID:       uuid.NewString(),
		AppointmentID: id.String(),
		StylistID:     appt.StylistID.String(),
		ClientID:      uuidString(appt.ClientID),
		From:          string(from),
		To:            string(to),
		StartAt:       appt.StartAt,
		ChangedAt:     now,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("booking: commit: %w", err)
	}

	appt.Status = to
	s.logger.Info("appointment status changed", "appointment_id", id, "from", from, "to", to)
	return appt, nil
}

func (s *Service) observe(op string, started time.Time, err *error) {
	s.metrics.ObserveOperation(op, resultLabel(*err), time.Since(started).Seconds())
}

func resultLabel(err error) string {
	var rejected *appointments.ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &rejected):
		return "rejected"
	case errors.Is(err, appointments.ErrNotFound), errors.Is(err, stylists.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
