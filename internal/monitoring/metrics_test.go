package monitoring

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoOpMetricsCollector(t *testing.T) {
	collector := &NoOpMetricsCollector{}
	tags := map[string]string{"operation": "vault create"}

	// Should not panic
	collector.IncrementCounter(MetricOpAttempts, tags)
	collector.IncrementCounterBy(MetricOpAttempts, 5, tags)
	collector.SetGauge(MetricRunPlanned, 4, nil)
	collector.RecordTiming(MetricOpDuration, time.Millisecond, tags)

	assert.NoError(t, collector.Flush())
}

func TestInMemoryMetricsCollector_Counters(t *testing.T) {
	collector := NewInMemoryMetricsCollector()
	created := map[string]string{"operation": "run", "outcome": "created"}
	failed := map[string]string{"outcome": "failed", "operation": "run"}

	collector.IncrementCounter(MetricVaultOutcomes, created)
	collector.IncrementCounter(MetricVaultOutcomes, created)
	collector.IncrementCounterBy(MetricVaultOutcomes, 3, failed)

	assert.Equal(t, int64(2), collector.GetCounter(MetricVaultOutcomes, created))
	assert.Equal(t, int64(3), collector.GetCounter(MetricVaultOutcomes, failed))
	assert.Equal(t, int64(0), collector.GetCounter(MetricVaultOutcomes, nil))
}

func TestInMemoryMetricsCollector_GaugesAndTimings(t *testing.T) {
	collector := NewInMemoryMetricsCollector()

	collector.SetGauge(MetricRunPlanned, 2, nil)
	collector.SetGauge(MetricRunPlanned, 6, nil)
	assert.Equal(t, 6.0, collector.GetGauge(MetricRunPlanned, nil))

	tags := map[string]string{"operation": "vault delete"}
	collector.RecordTiming(MetricOpDuration, time.Second, tags)
	collector.RecordTiming(MetricOpDuration, 2*time.Second, tags)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, collector.GetTimings(MetricOpDuration, tags))
}

func TestSeriesKey(t *testing.T) {
	assert.Equal(t, "m", seriesKey("m", nil))
	assert.Equal(t, "m{a=1,b=2}", seriesKey("m", map[string]string{"b": "2", "a": "1"}))
}

func TestInMemoryMetricsCollector_ConcurrentAccess(t *testing.T) {
	collector := NewInMemoryMetricsCollector()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				collector.IncrementCounter("c", nil)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1000), collector.GetCounter("c", nil))
}
