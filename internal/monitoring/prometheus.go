package monitoring

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var metricHelp = map[string]string{
	MetricOpAttempts:    "op invocations by logical command and classified status",
	MetricOpRateLimited: "op invocations that were rate-limited",
	MetricOpDuration:    "wall time of op invocations in seconds",
	MetricVaultOutcomes: "per-vault outcomes of runs and delete replays",
	MetricRunPlanned:    "planned vault names in the current run",
}

// TextfileWriter is implemented by collectors that can dump their series to
// a node-exporter textfile.
type TextfileWriter interface {
	WriteTextfile(path string) error
}

// PrometheusCollector is a MetricsCollector backed by its own registry.
// Vectors are registered on first use with the label set of that first call.
type PrometheusCollector struct {
	mu         sync.Mutex
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusCollector creates a collector with an empty registry.
func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Registry exposes the underlying registry.
func (p *PrometheusCollector) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusCollector) IncrementCounter(name string, tags map[string]string) {
	p.IncrementCounterBy(name, 1, tags)
}

func (p *PrometheusCollector) IncrementCounterBy(name string, value int64, tags map[string]string) {
	p.mu.Lock()
	vec, ok := p.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help(name)}, sortedKeys(tags))
		if err := p.registry.Register(vec); err != nil {
			p.mu.Unlock()
			return
		}
		p.counters[name] = vec
	}
	p.mu.Unlock()

	if c, err := vec.GetMetricWith(tags); err == nil {
		c.Add(float64(value))
	}
}

func (p *PrometheusCollector) SetGauge(name string, value float64, tags map[string]string) {
	p.mu.Lock()
	vec, ok := p.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help(name)}, sortedKeys(tags))
		if err := p.registry.Register(vec); err != nil {
			p.mu.Unlock()
			return
		}
		p.gauges[name] = vec
	}
	p.mu.Unlock()

	if g, err := vec.GetMetricWith(tags); err == nil {
		g.Set(value)
	}
}

func (p *PrometheusCollector) RecordTiming(name string, duration time.Duration, tags map[string]string) {
	p.mu.Lock()
	vec, ok := p.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Help:    help(name),
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 90},
		}, sortedKeys(tags))
		if err := p.registry.Register(vec); err != nil {
			p.mu.Unlock()
			return
		}
		p.histograms[name] = vec
	}
	p.mu.Unlock()

	if h, err := vec.GetMetricWith(tags); err == nil {
		h.Observe(duration.Seconds())
	}
}

func (p *PrometheusCollector) Flush() error { return nil }

// WriteTextfile writes the registry in the node-exporter textfile format.
func (p *PrometheusCollector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func help(name string) string {
	if h, ok := metricHelp[name]; ok {
		return h
	}
	return name
}
