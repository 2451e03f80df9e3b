package observability

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Monitor keeps per-route request counters and latency distributions. It is
// lock-free on the recording path.
type Monitor struct {
	enabled atomic.Bool
	routes  sync.Map // label -> *RouteMetrics
	global  struct {
		totalRequests atomic.Uint64
		totalErrors   atomic.Uint64
		totalDuration atomic.Uint64
	}
}

// RouteMetrics stores per-route metrics. MinDuration holds math.MaxUint64
// until the first sample.
type RouteMetrics struct {
	Name           string
	Count          atomic.Uint64
	Errors         atomic.Uint64
	TotalDuration  atomic.Uint64
	MinDuration    atomic.Uint64
	MaxDuration    atomic.Uint64
	latencyBuckets [len(BucketBounds) + 1]atomic.Uint64
}

// BucketBounds are the upper bounds of the latency buckets; the last bucket
// is unbounded.
var BucketBounds = [...]time.Duration{
	time.Millisecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	5 * time.Second,
	10 * time.Second,
}

// RouteStats is a point-in-time copy of RouteMetrics.
type RouteStats struct {
	Route       string                        `json:"route"`
	Count       uint64                        `json:"count"`
	Errors      uint64                        `json:"errors"`
	AvgDuration time.Duration                 `json:"avg_ns"`
	MinDuration time.Duration                 `json:"min_ns"`
	MaxDuration time.Duration                 `json:"max_ns"`
	Buckets     [len(BucketBounds) + 1]uint64 `json:"buckets"`
}

// Totals is the aggregate over all routes.
type Totals struct {
	Requests    uint64        `json:"requests"`
	Errors      uint64        `json:"errors"`
	AvgDuration time.Duration `json:"avg_ns"`
}

// NewMonitor creates an enabled monitor
func NewMonitor() *Monitor {
	m := &Monitor{}
	m.enabled.Store(true)
	return m
}

func newRouteMetrics(route string) *RouteMetrics {
	rm := &RouteMetrics{Name: route}
	rm.MinDuration.Store(math.MaxUint64)
	return rm
}

// SetEnabled turns recording on or off.
func (m *Monitor) SetEnabled(on bool) {
	m.enabled.Store(on)
}

// Record records one completed request. Responses with a 5xx status count as
// errors.
func (m *Monitor) Record(route string, status int, duration time.Duration) {
	if !m.enabled.Load() {
		return
	}

	val, ok := m.routes.Load(route)
	if !ok {
		val, _ = m.routes.LoadOrStore(route, newRouteMetrics(route))
	}
	metrics := val.(*RouteMetrics)

	isError := status >= 500
	metrics.Count.Add(1)
	if isError {
		metrics.Errors.Add(1)
		m.global.totalErrors.Add(1)
	}

	durationNs := uint64(duration.Nanoseconds())
	metrics.TotalDuration.Add(durationNs)
	updateMinMax(metrics, durationNs)
	metrics.latencyBuckets[bucketFor(duration)].Add(1)

	m.global.totalRequests.Add(1)
	m.global.totalDuration.Add(durationNs)
}

// Snapshot returns the metrics of every route seen so far, sorted by route.
func (m *Monitor) Snapshot() []RouteStats {
	stats := make([]RouteStats, 0)
	m.routes.Range(func(_, value any) bool {
		rm := value.(*RouteMetrics)
		s := RouteStats{
			Route:       rm.Name,
			Count:       rm.Count.Load(),
			Errors:      rm.Errors.Load(),
			MaxDuration: time.Duration(rm.MaxDuration.Load()),
		}
		if min := rm.MinDuration.Load(); min != math.MaxUint64 {
			s.MinDuration = time.Duration(min)
		}
		if s.Count > 0 {
			s.AvgDuration = time.Duration(rm.TotalDuration.Load() / s.Count)
		}
		for i := range rm.latencyBuckets {
			s.Buckets[i] = rm.latencyBuckets[i].Load()
		}
		stats = append(stats, s)
		return true
	})
	sort.Slice(stats, func(i, j int) bool { return stats[i].Route < stats[j].Route })
	return stats
}

// Totals returns the aggregate counters.
func (m *Monitor) Totals() Totals {
	t := Totals{
		Requests: m.global.totalRequests.Load(),
		Errors:   m.global.totalErrors.Load(),
	}
	if t.Requests > 0 {
		t.AvgDuration = time.Duration(m.global.totalDuration.Load() / t.Requests)
	}
	return t
}

func updateMinMax(m *RouteMetrics, d uint64) {
	for {
		min := m.MinDuration.Load()
		if d >= min {
			break
		}
		if m.MinDuration.CompareAndSwap(min, d) {
			break
		}
	}
	for {
		max := m.MaxDuration.Load()
		if d <= max {
			break
		}
		if m.MaxDuration.CompareAndSwap(max, d) {
			break
		}
	}
}

func bucketFor(d time.Duration) int {
	for i, bound := range BucketBounds {
		if d < bound {
			return i
		}
	}
	return len(BucketBounds)
}
