// Package metrics exposes Prometheus counters for the bot on a private registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "coinkeeper"

type Metrics struct {
	Registry *prometheus.Registry

	events         *prometheus.CounterVec
	outcomes       *prometheus.CounterVec
	committed      *prometheus.CounterVec
	reports        *prometheus.CounterVec
	sessionsActive prometheus.GaugeFunc
	sessionExpired prometheus.Counter
	sessionEvicted prometheus.Counter
	sendFailures   prometheus.Counter
	exported       *prometheus.CounterVec
}

// New registers every collector. activeSessions may be nil.
func New(activeSessions func() float64) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound chat events by kind.",
		}, []string{"kind"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_outcomes_total",
			Help:      "Conversation steps by flow and result.",
		}, []string{"flow", "result"}),
		committed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_committed_total",
			Help:      "Committed ledger transactions by kind.",
		}, []string{"kind"}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Statistics reports served by kind and period.",
		}, []string{"kind", "period"}),
		sessionExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_expired_total",
			Help:      "Conversation sessions abandoned past their TTL.",
		}),
		sessionEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_evicted_total",
			Help:      "Conversation sessions dropped to stay within SESSION_MAX.",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Outbound messages the chat platform rejected.",
		}),
		exported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exported_rows_total",
			Help:      "Transactions exported to the spreadsheet by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.events, m.outcomes, m.committed, m.reports, m.sessionExpired, m.sessionEvicted, m.sendFailures, m.exported)

	if activeSessions != nil {
		m.sessionsActive = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Conversations currently waiting on user input.",
		}, activeSessions)
		reg.MustRegister(m.sessionsActive)
	}
	return m
}

// The recorders below are nil-safe so callers can run without metrics.

func (m *Metrics) Event(kind string) {
	if m != nil {
		m.events.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Outcome(flow, result string) {
	if m != nil {
		m.outcomes.WithLabelValues(flow, result).Inc()
	}
}

func (m *Metrics) Committed(kind string) {
	if m != nil {
		m.committed.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Report(kind, period string) {
	if m != nil {
		m.reports.WithLabelValues(kind, period).Inc()
	}
}

func (m *Metrics) SessionExpired() {
	if m != nil {
		m.sessionExpired.Inc()
	}
}

func (m *Metrics) SessionEvicted() {
	if m != nil {
		m.sessionEvicted.Inc()
	}
}

func (m *Metrics) SendFailed() {
	if m != nil {
		m.sendFailures.Inc()
	}
}

func (m *Metrics) Exported(result string) {
	if m != nil {
		m.exported.WithLabelValues(result).Inc()
	}
}
