// Package metrics keeps in-process counters and latency samples for the
// optimizer daemon.
package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultMaxSamples bounds the samples kept per series. Count and Sum keep
// covering every observation after older samples are dropped.
const DefaultMaxSamples = 4096

// Aggregation summarizes one series.
type Aggregation struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}

// Series is one metric name and label set with its aggregation.
type Series struct {
	Name        string            `json:"name"`
	Labels      map[string]string `json:"labels,omitempty"`
	Aggregation Aggregation       `json:"aggregation"`
}

// Summary is a point-in-time view of every series.
type Summary struct {
	StartTime time.Time `json:"start_time"`
	UptimeMs  int64     `json:"uptime_ms"`
	Series    []Series  `json:"series"`
}

type series struct {
	labels  map[string]string
	samples []float64 // ring buffer once full
	next    int
	count   int64
	sum     float64
	min     float64
	max     float64
}

// Collector records values keyed by metric name and label set.
type Collector struct {
	mu         sync.RWMutex
	startTime  time.Time
	maxSamples int

	// metric name -> label key -> series
	series map[string]map[string]*series
}

// NewCollector creates an empty collector keeping DefaultMaxSamples per
// series.
func NewCollector() *Collector {
	return NewCollectorWithLimit(DefaultMaxSamples)
}

// NewCollectorWithLimit creates a collector keeping at most maxSamples
// values per series for percentiles.
func NewCollectorWithLimit(maxSamples int) *Collector {
	if maxSamples < 1 {
		maxSamples = 1
	}
	return &Collector{
		startTime:  time.Now(),
		maxSamples: maxSamples,
		series:     make(map[string]map[string]*series),
	}
}

// Record adds value to the series for name and labels.
func (c *Collector) Record(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := labelKey(labels)
	if c.series[name] == nil {
		c.series[name] = make(map[string]*series)
	}
	s := c.series[name][key]
	if s == nil {
		s = &series{labels: copyLabels(labels), min: value, max: value}
		c.series[name][key] = s
	}

	if len(s.samples) < c.maxSamples {
		s.samples = append(s.samples, value)
	} else {
		s.samples[s.next] = value
		s.next = (s.next + 1) % c.maxSamples
	}
	s.count++
	s.sum += value
	s.min = min(s.min, value)
	s.max = max(s.max, value)
}

// Inc records a count of one.
func (c *Collector) Inc(name string, labels map[string]string) {
	c.Record(name, 1, labels)
}

// Aggregation returns statistics for one series, or nil if nothing was
// recorded for it.
func (c *Collector) Aggregation(name string, labels map[string]string) *Aggregation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.series[name][labelKey(labels)]
	if s == nil {
		return nil
	}
	agg := s.aggregate()
	return &agg
}

// Count returns how many values were recorded for a series.
func (c *Collector) Count(name string, labels map[string]string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if s := c.series[name][labelKey(labels)]; s != nil {
		return s.count
	}
	return 0
}

// Summary aggregates every series, ordered by name then labels.
func (c *Collector) Summary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	type keyed struct {
		name, key string
		s         *series
	}
	var all []keyed
	for name, byKey := range c.series {
		for key, s := range byKey {
			all = append(all, keyed{name, key, s})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].name != all[j].name {
			return all[i].name < all[j].name
		}
		return all[i].key < all[j].key
	})

	out := Summary{
		StartTime: c.startTime,
		UptimeMs:  time.Since(c.startTime).Milliseconds(),
		Series:    make([]Series, 0, len(all)),
	}
	for _, k := range all {
		out.Series = append(out.Series, Series{
			Name:        k.name,
			Labels:      copyLabels(k.s.labels),
			Aggregation: k.s.aggregate(),
		})
	}
	return out
}

// Names returns the recorded metric names, sorted.
func (c *Collector) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.series))
	for name := range c.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear drops all series and restarts the uptime clock.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.series = make(map[string]map[string]*series)
	c.startTime = time.Now()
}

// aggregate computes statistics; the caller holds the lock.
func (s *series) aggregate() Aggregation {
	sorted := make([]float64, len(s.samples))
	copy(sorted, s.samples)
	sort.Float64s(sorted)

	agg := Aggregation{
		Count: s.count,
		Sum:   s.sum,
		Min:   s.min,
		Max:   s.max,
		P50:   percentile(sorted, 0.50),
		P95:   percentile(sorted, 0.95),
		P99:   percentile(sorted, 0.99),
	}
	if s.count > 0 {
		agg.Mean = s.sum / float64(s.count)
	}
	return agg
}

// labelKey creates a stable map key from labels.
func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
		b.WriteByte(',')
	}
	return b.String()
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

// percentile interpolates linearly between neighbours of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
