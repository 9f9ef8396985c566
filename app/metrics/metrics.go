package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "checkout"

// Metrics groups the service collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	providerCalls      *prometheus.HistogramVec
	sessionsStarted    prometheus.Counter
	sessionsResolved   *prometheus.CounterVec
	activeSessions     prometheus.Gauge
	polls              *prometheus.CounterVec
	eventsPublished    *prometheus.CounterVec
	callbackDispatches *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		providerCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of payment provider requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "result"}),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Payment sessions started.",
		}),
		sessionsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_resolved_total",
			Help:      "Payment sessions resolved, by outcome and reason.",
		}, []string{"outcome", "reason"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Payment sessions currently in flight.",
		}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_polls_total",
			Help:      "Status polls issued, by result.",
		}, []string{"result"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "State change events published, by driver and result.",
		}, []string{"driver", "result"}),
		callbackDispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_dispatches_total",
			Help:      "Status callback deliveries, by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.providerCalls,
			m.sessionsStarted,
			m.sessionsResolved,
			m.activeSessions,
			m.polls,
			m.eventsPublished,
			m.callbackDispatches,
		)
	}

	return m
}

func (m *Metrics) ObserveProviderCall(endpoint, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(endpoint, result).Observe(d.Seconds())
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
	m.activeSessions.Inc()
}

func (m *Metrics) SessionResolved(outcome, reason string) {
	if m == nil {
		return
	}
	m.sessionsResolved.WithLabelValues(outcome, reason).Inc()
	m.activeSessions.Dec()
}

func (m *Metrics) PollCompleted(result string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(result).Inc()
}

func (m *Metrics) EventPublished(driver string, err error) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(driver, resultLabel(err)).Inc()
}

func (m *Metrics) CallbackDispatched(err error) {
	if m == nil {
		return
	}
	m.callbackDispatches.WithLabelValues(resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
