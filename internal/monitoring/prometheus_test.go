package monitoring

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector_Counters(t *testing.T) {
	p := NewPrometheusCollector()
	tags := map[string]string{"operation": "vault create", "status": "success"}

	p.IncrementCounter(MetricOpAttempts, tags)
	p.IncrementCounterBy(MetricOpAttempts, 2, tags)

	assert.Equal(t, 3.0, testutil.ToFloat64(p.counters[MetricOpAttempts].WithLabelValues("vault create", "success")))
}

func TestPrometheusCollector_MismatchedLabelsIgnored(t *testing.T) {
	p := NewPrometheusCollector()

	p.IncrementCounter(MetricOpRateLimited, map[string]string{"operation": "vault create"})
	assert.NotPanics(t, func() {
		p.IncrementCounter(MetricOpRateLimited, map[string]string{"other": "x"})
	})

	count, err := testutil.GatherAndCount(p.Registry(), MetricOpRateLimited)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrometheusCollector_WriteTextfile(t *testing.T) {
	p := NewPrometheusCollector()
	p.IncrementCounter(MetricVaultOutcomes, map[string]string{"operation": "run", "outcome": "created"})
	p.RecordTiming(MetricOpDuration, 1500*time.Millisecond, map[string]string{"operation": "vault create"})
	p.SetGauge(MetricRunPlanned, 2, nil)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, p.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `opvault_vault_outcomes_total{operation="run",outcome="created"} 1`)
	assert.Contains(t, text, "opvault_op_duration_seconds_count")
	assert.Contains(t, text, "opvault_run_planned_vaults 2")
}
