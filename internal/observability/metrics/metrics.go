package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters for booking coordinator outcomes.
type BookingMetrics struct {
	bookingsTotal *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "bookings",
			Name:      "operations_total",
			Help:      "Total booking coordinator operations by outcome",
		}, []string{"operation", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal)
	return m
}

func (m *BookingMetrics) Observe(operation, outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(operation, outcome).Inc()
}

// DispatchMetrics exposes counters/histograms for notification delivery.
type DispatchMetrics struct {
	attemptsTotal   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
}

func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	m := &DispatchMetrics{
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "notify",
			Name:      "attempts_total",
			Help:      "Total notification delivery attempts",
		}, []string{"event", "channel", "status"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "notify",
			Name:      "provider_latency_seconds",
			Help:      "Latency of outbound provider calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.attemptsTotal, m.providerLatency)
	return m
}

func (m *DispatchMetrics) ObserveAttempt(event, channel, status string) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(event, channel, status).Inc()
}

func (m *DispatchMetrics) ObserveProviderLatency(channel string, seconds float64) {
	if m == nil {
		return
	}
	m.providerLatency.WithLabelValues(channel).Observe(seconds)
}
