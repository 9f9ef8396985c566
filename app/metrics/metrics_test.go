package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycleCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SessionStarted()
	m.SessionStarted()
	m.SessionResolved("succeeded", "")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsResolved.WithLabelValues("succeeded", "")))
}

func TestEventAndCallbackResults(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.EventPublished("kafka", nil)
	m.EventPublished("kafka", errors.New("broker down"))
	m.CallbackDispatched(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsPublished.WithLabelValues("kafka", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsPublished.WithLabelValues("kafka", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.callbackDispatches.WithLabelValues("ok")))
}

func TestProviderHistogramIsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveProviderCall("payment/status", "ok", 120*time.Millisecond)

	count, err := testutil.GatherAndCount(reg, "checkout_provider_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SessionStarted()
		m.SessionResolved("cancelled", "timeout")
		m.PollCompleted("pending")
		m.ObserveProviderCall("invoice/create", "error", time.Second)
		m.EventPublished("nats", nil)
		m.CallbackDispatched(nil)
	})
}
