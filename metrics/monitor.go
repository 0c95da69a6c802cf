// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"sync"

	"github.com/tomtom215/fasq/cache"
)

// PerformanceSnapshot aggregates one cache.Metrics reading per registered
// cache, taken at the same instant.
type PerformanceSnapshot struct {
	Caches map[string]cache.Snapshot
}

// PerformanceMonitor aggregates a PerformanceSnapshot across every cache
// registered with it, on demand.
type PerformanceMonitor struct {
	mu     sync.RWMutex
	caches map[string]*cache.Cache
}

// NewPerformanceMonitor creates an empty PerformanceMonitor.
func NewPerformanceMonitor() *PerformanceMonitor {
	return &PerformanceMonitor{caches: make(map[string]*cache.Cache)}
}

// Register adds c to the set of caches this monitor snapshots, keyed by
// the name passed, which need not match c's own Config.Name.
func (p *PerformanceMonitor) Register(name string, c *cache.Cache) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.caches[name] = c
}

// Unregister removes a previously registered cache.
func (p *PerformanceMonitor) Unregister(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.caches, name)
}

// Snapshot takes a PerformanceSnapshot across every registered cache.
func (p *PerformanceMonitor) Snapshot() PerformanceSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap := PerformanceSnapshot{Caches: make(map[string]cache.Snapshot, len(p.caches))}
	for name, c := range p.caches {
		snap.Caches[name] = c.Metrics().Snapshot()
	}
	return snap
}
