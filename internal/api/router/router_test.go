package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/salon-booking-engine/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/salon-booking-engine/internal/http/middleware"
	"github.com/wolfman30/salon-booking-engine/internal/observability/metrics"
	"github.com/wolfman30/salon-booking-engine/pkg/logging"
)

func newTestRouter(t *testing.T, limit int) http.Handler {
	t.Helper()
	logger := logging.Default()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	reg := prometheus.NewRegistry()
	m := metrics.NewBookingMetrics(reg)
	m.ObserveOperation("book", "ok", 0.01)

	return New(&Config{
		Logger:  logger,
		Booking: handlers.NewBookingHandler(nil, nil, nil, nil, logger),
		Health: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
		}, logger),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: []string{"https://book.example.com"},
		WriteLimiter:       httpmiddleware.NewRateLimiter(client, limit, logger),
	})
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, 10)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp struct {
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp.Checks["redis"] != "ok" {
		t.Errorf("expected redis ok, got %q", resp.Checks["redis"])
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, 10)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "salon_booking_operations_total") {
		t.Fatalf("expected booking metrics in output")
	}
}

func TestRouterRejectsMalformedIDs(t *testing.T) {
	router := newTestRouter(t, 10)
	for _, target := range []string{
		"/stylists/nope/prices",
		"/stylists/nope/slots?date=2026-03-02",
		"/stylists/nope",
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rr.Code)
		}
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := newTestRouter(t, 10)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/appointments/x", nil))
	if rr.Code != http.StatusNotFound && rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 404 or 405, got %d", rr.Code)
	}
}

func TestRouterLimitsWrites(t *testing.T) {
	router := newTestRouter(t, 2)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/appointments/nope/status", strings.NewReader(`{}`))
		req.Header.Set("X-Real-Ip", "198.51.100.4")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusBadRequest || codes[1] != http.StatusBadRequest || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}

	// Reads are not limited.
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/stylists/nope/prices", nil)
		req.Header.Set("X-Real-Ip", "198.51.100.4")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected read to pass the limiter, got %d", rr.Code)
		}
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	router := newTestRouter(t, 10)
	req := httptest.NewRequest(http.MethodOptions, "/stylists/x/appointments", nil)
	req.Header.Set("Origin", "https://book.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://book.example.com" {
		t.Fatalf("missing allow origin header")
	}
}
