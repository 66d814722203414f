package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveFetch(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveFetch("IFUSP", StatusOK, 120*time.Millisecond)
	m.ObserveFetch("IFUSP", StatusOK, 80*time.Millisecond)
	m.ObserveFetch("UFRJ", StatusError, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SourceFetchesTotal.WithLabelValues("IFUSP", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceFetchesTotal.WithLabelValues("UFRJ", StatusError)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SourceFetchesTotal.WithLabelValues("UFRJ", StatusOK)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.SourceFetchDuration))
}

func TestObserveQuery(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveQuery(OutcomeEvents, 4)
	m.ObserveQuery(OutcomeUnknownRegion, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues(OutcomeEvents)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues(OutcomeUnknownRegion)))

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() == "fisica_eventos_events_returned" {
			found = true
			h := mf.GetMetric()[0].GetHistogram()
			assert.Equal(t, uint64(2), h.GetSampleCount())
			assert.Equal(t, 4.0, h.GetSampleSum())
		}
	}
	assert.True(t, found, "events_returned histogram not gathered")
}

func TestObserveHTTP(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveHTTP("GET", "/api/eventos", 200, 10*time.Millisecond)
	m.ObserveHTTP("GET", "/api/eventos", 200, 12*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/eventos", "200")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveFetch("IFUSP", StatusOK, time.Second)
		m.ObserveQuery(OutcomeEvents, 1)
		m.ObserveHTTP("GET", "/", 200, time.Millisecond)
	})
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
