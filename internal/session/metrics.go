package session

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of a Manager. A nil *Metrics records nothing.
type Metrics struct {
	logins      *prometheus.CounterVec
	requests    *prometheus.CounterVec
	csrfRetries *prometheus.CounterVec
	swept       prometheus.Counter
}

// NewMetrics creates the session collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scriptsync",
			Subsystem: "session",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scriptsync",
			Subsystem: "session",
			Name:      "requests_total",
			Help:      "Authenticated requests by HTTP status code.",
		}, []string{"code"}),
		csrfRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scriptsync",
			Subsystem: "session",
			Name:      "csrf_retries_total",
			Help:      "CSRF-protected request retries by reason.",
		}, []string{"reason"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scriptsync",
			Subsystem: "session",
			Name:      "expired_sessions_swept_total",
			Help:      "Sessions removed by the housekeeping sweep.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.logins, m.requests, m.csrfRetries, m.swept)
	}
	return m
}

func (m *Metrics) login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) request(code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (m *Metrics) retry(reason string) {
	if m == nil {
		return
	}
	m.csrfRetries.WithLabelValues(reason).Inc()
}

func (m *Metrics) sweep(n int) {
	if m == nil || n == 0 {
		return
	}
	m.swept.Add(float64(n))
}
