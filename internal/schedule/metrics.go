package schedule

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters and latency for the scheduling core. All observe
// methods are nil-safe so tools and tests can pass a nil *Metrics.
type Metrics struct {
	bookings       *prometheus.CounterVec
	bookingLatency prometheus.Histogram
	slotQueries    prometheus.Counter
	slotsReturned  prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		bookingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "booking_duration_seconds",
			Help:      "Latency of the booking critical path",
			Buckets:   prometheus.DefBuckets,
		}),
		slotQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "slot_queries_total",
			Help:      "Availability queries served",
		}),
		slotsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "slots_returned",
			Help:      "Free slots returned per availability query",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookings, m.bookingLatency, m.slotQueries, m.slotsReturned)
	return m
}

func (m *Metrics) ObserveBooking(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(outcome).Inc()
	m.bookingLatency.Observe(seconds)
}

func (m *Metrics) ObserveSlotQuery(slots int) {
	if m == nil {
		return
	}
	m.slotQueries.Inc()
	m.slotsReturned.Observe(float64(slots))
}
