package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "parking"

// Metrics holds the collectors for the reservation core and the HTTP layer.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	HoldsCreated    prometheus.Counter
	HoldConflicts   prometheus.Counter
	HoldsExpired    prometheus.Counter
	Transitions     *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
	ZoneAvailable   *prometheus.GaugeVec
	RequestDuration *prometheus.HistogramVec
	SweepDuration   prometheus.Histogram
	RefreshDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HoldsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "holds_created_total",
			Help:      "Holds successfully placed on a slot.",
		}),
		HoldConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hold_conflicts_total",
			Help:      "Hold attempts rejected because the window overlapped an active reservation.",
		}),
		HoldsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "holds_expired_total",
			Help:      "Pending holds moved to expired by the sweeper or lazily.",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_transitions_total",
			Help:      "Reservation status transitions by target status.",
		}, []string{"to"}),
		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped because a subscriber or sink queue was full.",
		}, []string{"target"}),
		ZoneAvailable: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "zone_available_slots",
			Help:      "Available slots per zone after the last recompute.",
		}, []string{"zone_id"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of one expiry sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "zone_refresh_duration_seconds",
			Help:      "Duration of one time-driven refresh of every zone.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.HoldsCreated,
			m.HoldConflicts,
			m.HoldsExpired,
			m.Transitions,
			m.EventsDropped,
			m.ZoneAvailable,
			m.RequestDuration,
			m.SweepDuration,
			m.RefreshDuration,
		)
	}
	return m
}

func (m *Metrics) HoldCreated() {
	if m != nil {
		m.HoldsCreated.Inc()
	}
}

func (m *Metrics) HoldConflict() {
	if m != nil {
		m.HoldConflicts.Inc()
	}
}

func (m *Metrics) HoldExpired(n int) {
	if m != nil {
		m.HoldsExpired.Add(float64(n))
	}
}

func (m *Metrics) Transition(to string) {
	if m != nil {
		m.Transitions.WithLabelValues(to).Inc()
	}
}

func (m *Metrics) EventDropped(target string) {
	if m != nil {
		m.EventsDropped.WithLabelValues(target).Inc()
	}
}

func (m *Metrics) SetZoneAvailable(zoneID string, available int) {
	if m != nil {
		m.ZoneAvailable.WithLabelValues(zoneID).Set(float64(available))
	}
}

func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m != nil {
		m.RequestDuration.WithLabelValues(method, route, status).Observe(seconds)
	}
}

func (m *Metrics) ObserveSweep(seconds float64) {
	if m != nil {
		m.SweepDuration.Observe(seconds)
	}
}

func (m *Metrics) ObserveRefresh(seconds float64) {
	if m != nil {
		m.RefreshDuration.Observe(seconds)
	}
}
