package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "leadmailer"

// Metrics — метрики диспетчера отложенных писем.
type Metrics struct {
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram
	DueLeads      prometheus.Gauge
	SendsTotal    *prometheus.CounterVec
	CycleInFlight prometheus.Gauge
	GeoLookups    *prometheus.CounterVec
}

// NewMetrics создаёт метрики и регистрирует их в reg.
// reg == nil — метрики не регистрируются (тесты, run-once).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_cycles_total",
			Help:      "Dispatch cycles by final status.",
		}, []string{"status"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_cycle_duration_seconds",
			Help:      "Duration of completed dispatch cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		DueLeads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatch_due_leads",
			Help:      "Due leads selected by the last cycle.",
		}),
		SendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_sends_total",
			Help:      "Send attempts per (lead, template) pair by result.",
		}, []string{"result"}),
		CycleInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatch_cycle_in_flight",
			Help:      "1 while a dispatch cycle is running.",
		}),
		GeoLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timezone_resolutions_total",
			Help:      "Timezone resolutions by source (cache, geo, country, default).",
		}, []string{"source"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.CyclesTotal,
			m.CycleDuration,
			m.DueLeads,
			m.SendsTotal,
			m.CycleInFlight,
			m.GeoLookups,
		)
	}
	return m
}
