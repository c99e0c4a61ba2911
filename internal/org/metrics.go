package org

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors of a Cache. A nil *Metrics records nothing.
type Metrics struct {
	lookupsTotal *prometheus.CounterVec
	removedTotal *prometheus.CounterVec
}

// NewMetrics creates the org cache collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scriptsync",
			Subsystem: "org_cache",
			Name:      "lookups_total",
			Help:      "Host lookups by result (hit, miss, resolved).",
		}, []string{"result"}),
		removedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scriptsync",
			Subsystem: "org_cache",
			Name:      "hosts_removed_total",
			Help:      "Cached hosts removed by reason (expired, duplicate, invalid).",
		}, []string{"reason"}),
	}

	if reg != nil {
		reg.MustRegister(m.lookupsTotal, m.removedTotal)
	}
	return m
}

func (m *Metrics) lookup(result string) {
	if m == nil {
		return
	}
	m.lookupsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) removed(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.removedTotal.WithLabelValues(reason).Add(float64(n))
}
