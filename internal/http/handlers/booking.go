package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/salon-booking-engine/internal/appointments"
	"github.com/wolfman30/salon-booking-engine/internal/booking"
	"github.com/wolfman30/salon-booking-engine/internal/checkout"
	"github.com/wolfman30/salon-booking-engine/internal/pricing"
	"github.com/wolfman30/salon-booking-engine/internal/slots"
	"github.com/wolfman30/salon-booking-engine/internal/stylists"
	"github.com/wolfman30/salon-booking-engine/pkg/logging"
)

// ProfileStore reads and writes stylist profiles.
type ProfileStore interface {
	Get(ctx context.Context, id uuid.UUID) (*stylists.Stylist, error)
	Set(ctx context.Context, st *stylists.Stylist) error
}

// Quoter prices a client's service selection over the price block.
type Quoter interface {
	Quote(ctx context.Context, req pricing.QuoteRequest) (*pricing.Quote, error)
}

// SlotLister lists a stylist's slots on one date.
type SlotLister interface {
	GetAvailableSlots(ctx context.Context, st *stylists.Stylist, date time.Time, includePast bool) ([]slots.TimeSlot, error)
}

// Bookings is the booking write path.
type Bookings interface {
	Book(ctx context.Context, req booking.BookRequest) (*appointments.Appointment, error)
	Checkout(ctx context.Context, req booking.CheckoutRequest) (*appointments.Appointment, error)
	SetStatus(ctx context.Context, id uuid.UUID, to appointments.Status) (*appointments.Appointment, error)
}

// BookingHandler exposes pricing, availability and the appointment
// lifecycle over JSON.
type BookingHandler struct {
	profiles ProfileStore
	quoter   Quoter
	slots    SlotLister
	bookings Bookings
	logger   *logging.Logger
}

// NewBookingHandler creates the HTTP adapter.
func NewBookingHandler(profiles ProfileStore, quoter Quoter, slotLister SlotLister, bookings Bookings, logger *logging.Logger) *BookingHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingHandler{
		profiles: profiles,
		quoter:   quoter,
		slots:    slotLister,
		bookings: bookings,
		logger:   logger,
	}
}

// ServiceLine is one appointment service in responses.
type ServiceLine struct {
	ID                 string  `json:"id"`
	ServiceUUID        string  `json:"service_uuid"`
	Name               string  `json:"name"`
	RegularPrice       string  `json:"regular_price"`
	ClientPrice        string  `json:"client_price"`
	AppliedDiscount    *string `json:"applied_discount"`
	DiscountPercentage int     `json:"discount_percentage"`
	IsOriginal         bool    `json:"is_original"`
	IsPriceEdited      bool    `json:"is_price_edited"`
	IsDeleted          bool    `json:"is_deleted"`
}

// AppointmentResponse is the JSON view of an appointment.
type AppointmentResponse struct {
	ID              string                      `json:"id"`
	StylistID       string                      `json:"stylist_id"`
	ClientID        *string                     `json:"client_id,omitempty"`
	StartAt         time.Time                   `json:"start_at"`
	EndAt           time.Time                   `json:"end_at"`
	DurationMinutes int                         `json:"duration_minutes"`
	Status          string                      `json:"status"`
	Services        []ServiceLine               `json:"services"`
	Prices          *checkout.AppointmentPrices `json:"prices,omitempty"`
	CheckedOutAt    *time.Time                  `json:"checked_out_at,omitempty"`
}

func toAppointmentResponse(a *appointments.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:              a.ID.String(),
		StylistID:       a.StylistID.String(),
		StartAt:         a.StartAt,
		EndAt:           a.End(),
		DurationMinutes: int(a.Duration / time.Minute),
		Status:          string(a.Status),
		Services:        make([]ServiceLine, 0, len(a.Services)),
		Prices:          a.Prices,
		CheckedOutAt:    a.CheckedOutAt,
	}
	if a.ClientID != nil {
		id := a.ClientID.String()
		resp.ClientID = &id
	}
	for _, s := range a.Services {
		line := ServiceLine{
			ID:                 s.ID.String(),
			ServiceUUID:        s.ServiceUUID.String(),
			Name:               s.Name,
			RegularPrice:       s.RegularPrice.StringFixed(2),
			ClientPrice:        s.ClientPrice.StringFixed(2),
			DiscountPercentage: s.DiscountPercentage,
			IsOriginal:         s.IsOriginal,
			IsPriceEdited:      s.IsPriceEdited,
			IsDeleted:          s.DeletedAt != nil,
		}
		if s.AppliedDiscount != nil {
			d := string(*s.AppliedDiscount)
			line.AppliedDiscount = &d
		}
		resp.Services = append(resp.Services, line)
	}
	return resp
}

// GetPrices handles GET /stylists/{stylistID}/prices?client_id=&service_uuids=a,b.
func (h *BookingHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	stylistID, ok := pathUUID(w, r, "stylistID")
	if !ok {
		return
	}
	q := r.URL.Query()
	serviceUUIDs, err := parseUUIDList(q.Get("service_uuids"))
	if err != nil || len(serviceUUIDs) == 0 {
		jsonError(w, "service_uuids must list at least one service id", http.StatusBadRequest)
		return
	}
	req := pricing.QuoteRequest{StylistID: stylistID, ServiceUUIDs: serviceUUIDs}
	if raw := strings.TrimSpace(q.Get("client_id")); raw != "" {
		clientID, err := uuid.Parse(raw)
		if err != nil {
			jsonError(w, "invalid client_id", http.StatusBadRequest)
			return
		}
		req.ClientID = &clientID
	}

	quote, err := h.quoter.Quote(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// GetSlots handles GET /stylists/{stylistID}/slots?date=YYYY-MM-DD&include_past=true.
func (h *BookingHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	stylistID, ok := pathUUID(w, r, "stylistID")
	if !ok {
		return
	}
	st, err := h.profiles.Get(r.Context(), stylistID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	q := r.URL.Query()
	date, err := time.ParseInLocation("2006-01-02", q.Get("date"), st.Location())
	if err != nil {
		jsonError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	includePast, _ := strconv.ParseBool(q.Get("include_past"))

	list, err := h.slots.GetAvailableSlots(r.Context(), st, date, includePast)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stylist_id": st.ID,
		"date":       date.Format("2006-01-02"),
		"slots":      list,
	})
}

// GetStylist handles GET /stylists/{stylistID}.
func (h *BookingHandler) GetStylist(w http.ResponseWriter, r *http.Request) {
	stylistID, ok := pathUUID(w, r, "stylistID")
	if !ok {
		return
	}
	st, err := h.profiles.Get(r.Context(), stylistID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// PutStylist handles PUT /stylists/{stylistID}, replacing the profile.
func (h *BookingHandler) PutStylist(w http.ResponseWriter, r *http.Request) {
	stylistID, ok := pathUUID(w, r, "stylistID")
	if !ok {
		return
	}
	var st stylists.Stylist
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	st.ID = stylistID
	if err := h.profiles.Set(r.Context(), &st); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, &st)
}

// CreateAppointment handles POST /stylists/{stylistID}/appointments.
func (h *BookingHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	stylistID, ok := pathUUID(w, r, "stylistID")
	if !ok {
		return
	}
	var req booking.BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.StartAt.IsZero() {
		writeJSON(w, http.StatusBadRequest, appointments.Reject("start_at", "start_at_required", "start_at is required"))
		return
	}
	req.StylistID = stylistID

	appt, err := h.bookings.Book(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

// Checkout handles POST /appointments/{appointmentID}/checkout.
func (h *BookingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	appointmentID, ok := pathUUID(w, r, "appointmentID")
	if !ok {
		return
	}
	var req booking.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = appointmentID

	appt, err := h.bookings.Checkout(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetStatus handles POST /appointments/{appointmentID}/status.
func (h *BookingHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	appointmentID, ok := pathUUID(w, r, "appointmentID")
	if !ok {
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	status, ok := appointments.ParseStatus(strings.TrimSpace(req.Status))
	if !ok {
		jsonError(w, "unknown status", http.StatusBadRequest)
		return
	}

	appt, err := h.bookings.SetStatus(r.Context(), appointmentID, status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		jsonError(w, "invalid "+param, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func parseUUIDList(raw string) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
