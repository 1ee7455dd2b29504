package orbitsim

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Resync and skip reasons, used as label values.
const (
	reasonActivate = "activate"
	reasonDrift    = "drift"
	reasonRepair   = "repair"
	reasonInvalid  = "invalid"
	reasonMissing  = "missing"
)

// Metrics collects the propagation counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ticks        prometheus.Counter
	resyncs      *prometheus.CounterVec
	skipped      *prometheus.CounterVec
	timeJumps    prometheus.Counter
	tickDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orbitsim_ticks_total",
			Help: "Total number of propagated body ticks",
		}),
		resyncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orbitsim_resyncs_total",
				Help: "Total number of orbits re-derived from state vectors",
			},
			[]string{"reason"},
		),
		skipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orbitsim_skipped_ticks_total",
				Help: "Total number of body ticks skipped",
			},
			[]string{"reason"},
		),
		timeJumps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orbitsim_time_jumps_total",
			Help: "Total number of global time jumps",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "orbitsim_system_tick_duration_seconds",
			Help:    "Time spent advancing all the bodies of a system",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
	reg.MustRegister(m.ticks, m.resyncs, m.skipped, m.timeJumps, m.tickDuration)
	return m
}

func (m *Metrics) recordTick() {
	if m != nil {
		m.ticks.Inc()
	}
}

func (m *Metrics) recordResync(reason string) {
	if m != nil {
		m.resyncs.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) recordSkip(reason string) {
	if m != nil {
		m.skipped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) recordTimeJump() {
	if m != nil {
		m.timeJumps.Inc()
	}
}

func (m *Metrics) observeSystemTick(d time.Duration) {
	if m != nil {
		m.tickDuration.Observe(d.Seconds())
	}
}
