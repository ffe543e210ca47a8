package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for booking, checkout and
// event delivery.
type BookingMetrics struct {
	operationsTotal  *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	quoteDiscount    prometheus.Histogram
	outboxDeliveries *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "booking",
			Name:      "operations_total",
			Help:      "Booking engine operations by outcome",
		}, []string{"operation", "result"}),
		operationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "salon",
			Subsystem: "booking",
			Name:      "operation_latency_seconds",
			Help:      "Latency of booking engine operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		quoteDiscount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "salon",
			Subsystem: "pricing",
			Name:      "booked_discount_percentage",
			Help:      "Discount percentage captured on booked appointments",
			Buckets:   []float64{0, 5, 10, 15, 20, 30, 50, 75, 100},
		}),
		outboxDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "events",
			Name:      "outbox_deliveries_total",
			Help:      "Outbox delivery attempts by event type and status",
		}, []string{"event_type", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.operationLatency, m.quoteDiscount, m.outboxDeliveries)
	return m
}

// ObserveOperation records one operation ("book", "checkout", "set_status")
// with its result label and latency.
func (m *BookingMetrics) ObserveOperation(operation, result string, seconds float64) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, result).Inc()
	m.operationLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *BookingMetrics) ObserveBookedDiscount(percentage int) {
	if m == nil {
		return
	}
	m.quoteDiscount.Observe(float64(percentage))
}

// ObserveDelivery satisfies events.DeliveryRecorder.
func (m *BookingMetrics) ObserveDelivery(eventType string, err error) {
	if m == nil {
		return
	}
	status := "delivered"
	if err != nil {
		status = "failed"
	}
	m.outboxDeliveries.WithLabelValues(eventType, status).Inc()
}
