package monitoring

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
)

type Metric struct {
	Name   string            `json:"name"`
	Type   MetricType        `json:"type"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels,omitempty"`
}

// Metrics keeps the latest value of each named series in memory.
type Metrics struct {
	mu        sync.RWMutex
	series    map[string]*Metric
	startTime time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{
		series:    make(map[string]*Metric),
		startTime: time.Now(),
	}
}

func (m *Metrics) IncrCounter(name string, labels map[string]string) {
	m.record(name, MetricTypeCounter, labels, func(v float64) float64 { return v + 1 })
}

func (m *Metrics) SetGauge(name string, value float64) {
	m.record(name, MetricTypeGauge, nil, func(float64) float64 { return value })
}

func (m *Metrics) record(name string, kind MetricType, labels map[string]string, update func(float64) float64) {
	key := name + labelString(labels)
	m.mu.Lock()
	defer m.mu.Unlock()
	metric, ok := m.series[key]
	if !ok {
		copied := make(map[string]string, len(labels))
		for k, v := range labels {
			copied[k] = v
		}
		metric = &Metric{Name: name, Type: kind, Labels: copied}
		m.series[key] = metric
	}
	metric.Value = update(metric.Value)
}

// Value returns the current value of a series, zero when it was never recorded.
func (m *Metrics) Value(name string, labels map[string]string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if metric, ok := m.series[name+labelString(labels)]; ok {
		return metric.Value
	}
	return 0
}

// ExportPrometheus renders every series in the text exposition format,
// sorted by series key.
func (m *Metrics) ExportPrometheus() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.series))
	for key := range m.series {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	typed := make(map[string]bool)
	for _, key := range keys {
		metric := m.series[key]
		if !typed[metric.Name] {
			fmt.Fprintf(&b, "# TYPE %s %s\n", metric.Name, metric.Type)
			typed[metric.Name] = true
		}
		fmt.Fprintf(&b, "%s %g\n", key, metric.Value)
	}
	return b.String()
}

func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

func (m *Metrics) SystemStats() map[string]interface{} {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return map[string]interface{}{
		"uptime":     m.Uptime().Round(time.Second).String(),
		"goroutines": runtime.NumGoroutine(),
		"heap_alloc": mem.HeapAlloc,
		"gc_count":   mem.NumGC,
	}
}

func labelString(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}
