package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveEpochDuration(1.0)
		m.SetCascadeLength(3)
		m.SetAcceptanceRate(0.5)
		m.AddGeneratorAttempts(10)
	})
}

func TestNewWithNilRegistryIsNil(t *testing.T) {
	assert.Nil(t, New(nil))
}

func TestNewRegistersMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	require := assert.New(t)
	require.NotNil(m)

	m.SetCascadeLength(5)
	families, err := reg.Gather()
	require.NoError(err)
	require.NotEmpty(families)
}
