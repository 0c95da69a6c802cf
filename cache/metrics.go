// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	fcache "github.com/tomtom215/fasq/internal/cache"
)

// Package-level Prometheus collectors, adapted from the teacher's
// internal/wal metrics style: one set of collectors for the process,
// labeled by cache name so more than one Cache can share a registry
// without colliding.
var (
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fasq_cache_hits_total",
		Help: "Total number of QueryCache read hits",
	}, []string{"cache"})

	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fasq_cache_misses_total",
		Help: "Total number of QueryCache read misses",
	}, []string{"cache"})

	cacheEvictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fasq_cache_evictions_total",
		Help: "Total number of entries removed by the eviction strategy",
	}, []string{"cache", "strategy"})

	cacheGCRemovalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fasq_cache_gc_removals_total",
		Help: "Total number of entries removed by the inactivity GC sweep",
	}, []string{"cache"})

	cacheCurrentBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fasq_cache_current_memory_bytes",
		Help: "Current estimated memory footprint of a QueryCache",
	}, []string{"cache"})

	cachePeakBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fasq_cache_peak_memory_bytes",
		Help: "Peak estimated memory footprint of a QueryCache",
	}, []string{"cache"})

	cacheEntryCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fasq_cache_entries",
		Help: "Current number of live entries in a QueryCache",
	}, []string{"cache"})

	cacheLookupLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fasq_cache_lookup_duration_seconds",
		Help:    "Latency of QueryCache.Get calls",
		Buckets: []float64{.00005, .0001, .0005, .001, .005, .01, .05},
	}, []string{"cache"})

	cacheFetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fasq_cache_fetch_duration_seconds",
		Help:    "Latency of the fetch_fn invocation backing a Query refresh",
		Buckets: prometheus.DefBuckets,
	}, []string{"cache"})
)

// Metrics is CacheMetrics: the counters/gauges above plus a per-key rolling
// throughput window built on internal/cache's SlidingWindowStore, which
// prometheus labels can't cheaply carry (one time series per cache key
// would blow up cardinality).
type Metrics struct {
	name       string
	throughput *fcache.SlidingWindowStore

	hits       atomic.Int64
	misses     atomic.Int64
	evictions  atomic.Int64
	gcRemovals atomic.Int64
	entries    atomic.Int64
	current    atomic.Int64
	peak       int64
}

// Snapshot is PerformanceSnapshot: a point-in-time read of this cache's
// counters, cheap enough to take on every PerformanceMonitor tick
// without touching Prometheus's own collection path.
type Snapshot struct {
	Name          string
	Hits          int64
	Misses        int64
	Evictions     int64
	GCRemovals    int64
	Entries       int64
	CurrentBytes  int64
	PeakBytes     int64
}

// HitRatio returns hits/(hits+misses), or 0 when there have been no
// lookups yet.
func (s Snapshot) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Snapshot takes a point-in-time read of this Metrics' local counters.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Name:         m.name,
		Hits:         m.hits.Load(),
		Misses:       m.misses.Load(),
		Evictions:    m.evictions.Load(),
		GCRemovals:   m.gcRemovals.Load(),
		Entries:      m.entries.Load(),
		CurrentBytes: m.current.Load(),
		PeakBytes:    atomic.LoadInt64(&m.peak),
	}
}

// NewMetrics creates a Metrics instance labeled name. window/buckets size
// the per-key throughput counters; spec.md's default is a 60s window.
func NewMetrics(name string, window time.Duration, buckets int) *Metrics {
	if window <= 0 {
		window = 60 * time.Second
	}
	if buckets <= 0 {
		buckets = 12
	}
	return &Metrics{
		name:       name,
		throughput: fcache.NewSlidingWindowStore(window, buckets, 0),
	}
}

func (m *Metrics) RecordHit() {
	m.hits.Add(1)
	cacheHitsTotal.WithLabelValues(m.name).Inc()
}

func (m *Metrics) RecordMiss() {
	m.misses.Add(1)
	cacheMissesTotal.WithLabelValues(m.name).Inc()
}

func (m *Metrics) RecordEviction(strategy string, n int) {
	m.evictions.Add(int64(n))
	cacheEvictionsTotal.WithLabelValues(m.name, strategy).Add(float64(n))
}

func (m *Metrics) RecordGCRemoval(n int) {
	m.gcRemovals.Add(int64(n))
	cacheGCRemovalsTotal.WithLabelValues(m.name).Add(float64(n))
}

func (m *Metrics) SetEntryCount(n int) {
	m.entries.Store(int64(n))
	cacheEntryCount.WithLabelValues(m.name).Set(float64(n))
}

// SetMemory updates the current-bytes gauge and bumps the peak gauge if
// current is a new high.
func (m *Metrics) SetMemory(current int64) {
	m.current.Store(current)
	cacheCurrentBytes.WithLabelValues(m.name).Set(float64(current))
	for {
		peak := atomic.LoadInt64(&m.peak)
		if current <= peak {
			break
		}
		if atomic.CompareAndSwapInt64(&m.peak, peak, current) {
			cachePeakBytes.WithLabelValues(m.name).Set(float64(current))
			break
		}
	}
}

func (m *Metrics) ObserveLookup(d time.Duration) {
	cacheLookupLatency.WithLabelValues(m.name).Observe(d.Seconds())
}

func (m *Metrics) ObserveFetch(d time.Duration) {
	cacheFetchLatency.WithLabelValues(m.name).Observe(d.Seconds())
}

// RecordAccess adds one to key's rolling throughput window.
func (m *Metrics) RecordAccess(key string) { m.throughput.Increment(key) }

// Throughput returns the number of accesses to key within the current
// rolling window.
func (m *Metrics) Throughput(key string) int64 { return m.throughput.Count(key) }
