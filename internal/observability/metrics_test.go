package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMetrics_Singleton(t *testing.T) {
	m1 := GetMetrics()
	m2 := GetMetrics()

	require.NotNil(t, m1)
	assert.Same(t, m1, m2)
}

func TestMetrics_CallsTotal(t *testing.T) {
	m := GetMetrics()

	before := testutil.ToFloat64(m.CallsTotal.WithLabelValues("metrics-test-op"))
	m.CallsTotal.WithLabelValues("metrics-test-op").Inc()
	after := testutil.ToFloat64(m.CallsTotal.WithLabelValues("metrics-test-op"))

	assert.Equal(t, before+1, after)
}

func TestMetrics_Init_Idempotent(t *testing.T) {
	m := GetMetrics()

	assert.NotPanics(t, func() {
		m.Init()
		m.Init()
	})
	assert.Equal(t, 7, testutil.CollectAndCount(m.StoreErrors))
}

func TestMetrics_MustRegister(t *testing.T) {
	m := GetMetrics()
	registry := prometheus.NewRegistry()

	assert.NotPanics(t, func() {
		m.MustRegister(registry)
	})

	m.Init()
	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["kvcache_store_command_duration_seconds"])
	assert.True(t, names["kvcache_store_errors_total"])
}
