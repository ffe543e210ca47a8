package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/salon-booking-engine/internal/appointments"
	"github.com/wolfman30/salon-booking-engine/internal/discounts"
	"github.com/wolfman30/salon-booking-engine/internal/pricing"
	"github.com/wolfman30/salon-booking-engine/internal/schedule"
	"github.com/wolfman30/salon-booking-engine/internal/stylists"
	"github.com/wolfman30/salon-booking-engine/pkg/logging"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeError maps engine errors onto HTTP statuses. Anything unrecognised is
// logged and reported as a 500 without details.
func writeError(w http.ResponseWriter, logger *logging.Logger, err error) {
	var rejected *appointments.ValidationError
	switch {
	case errors.As(err, &rejected):
		status := http.StatusBadRequest
		if rejected.Has(appointments.CodeAlreadyCheckedOut) {
			status = http.StatusConflict
		}
		writeJSON(w, status, rejected)
	case errors.Is(err, appointments.ErrNotFound), errors.Is(err, stylists.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, pricing.ErrInvalidInput),
		errors.Is(err, discounts.ErrInvalidSettings),
		errors.Is(err, schedule.ErrInvalidSchedule),
		errors.Is(err, stylists.ErrInvalidProfile):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Error("request failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
