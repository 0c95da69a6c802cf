// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/fasq/internal/logging"
	fcache "github.com/tomtom215/fasq/internal/cache"
	"github.com/tomtom215/fasq/internal/supervisor"
	"github.com/tomtom215/fasq/internal/validation"
)

// Cache is QueryCache: the single source of truth for cached values. The
// entry map is guarded by one RWMutex — spec.md §5's "single logical
// lock" — while an individual Entry's refcount/access bookkeeping is
// lock-free so a hot Get doesn't contend with a concurrent Set on a
// different key.
type Cache struct {
	cfg Config

	mu      sync.RWMutex
	entries map[string]*Entry

	// inactivity mirrors each entry's last-accessed time so diagnostics
	// (OldestInactive) can inspect access recency without copying the
	// whole map; runGC scans the map and does not read it. Maintained on
	// every Set/Touch/removal.
	inactivity *fcache.MinHeap[string]

	currentBytes atomic.Int64
	strategy     EvictionStrategy
	metrics      *Metrics

	subsMu sync.Mutex
	subs   map[string][]chan Event

	persistence *resolvedPersistence
	flushQueue  chan flushJob

	sup       *supervisor.Supervisor
	cancel    context.CancelFunc
	done      <-chan error
	closeOnce sync.Once
}

// New creates a Cache and starts its background GC sweep (and, if
// cfg.Persistence is set, its write-behind flush worker) under one
// suture.Supervisor, per SPEC_FULL.md §4.1a.
func New(cfg Config) (*Cache, error) {
	if verr := validation.ValidateStruct(cfg); verr != nil {
		return nil, fmt.Errorf("cache: invalid config: %w", verr)
	}
	cfg = cfg.withDefaults()

	c := &Cache{
		cfg:        cfg,
		entries:    make(map[string]*Entry),
		inactivity: fcache.NewMinHeap[string](0),
		strategy:   NewEvictionStrategy(cfg.Eviction),
		metrics:    NewMetrics(cfg.Name, cfg.ThroughputWindow, cfg.ThroughputBuckets),
		subs:       make(map[string][]chan Event),
	}

	if cfg.Persistence != nil {
		rp, err := resolvePersistence(context.Background(), *cfg.Persistence)
		if err != nil {
			return nil, err
		}
		c.persistence = rp
		queueSize := cfg.Persistence.QueueSize
		if queueSize <= 0 {
			queueSize = 1024
		}
		c.flushQueue = make(chan flushJob, queueSize)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.sup = supervisor.New(cfg.Logger, supervisor.DefaultConfig())
	c.sup.Add(&gcService{cache: c})
	if c.persistence != nil {
		c.sup.Add(&flushService{cache: c})
	}
	c.done = c.sup.ServeBackground(ctx)

	registerCache(c)
	return c, nil
}

// Close stops the background services and closes the persistence store, if
// any. Safe to call more than once.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		unregisterCache(c)
		c.cancel()
		<-c.done

		c.subsMu.Lock()
		for _, chans := range c.subs {
			for _, ch := range chans {
				close(ch)
			}
		}
		c.subs = nil
		c.subsMu.Unlock()

		if c.persistence != nil {
			if err := c.persistence.opts.Store.Close(); err != nil {
				logging.Warn().Err(err).Str("cache", c.cfg.Name).Msg("cache close: persistence store close failed")
			}
		}
	})
	return nil
}

// Len returns the current number of live entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// SetOption customizes an individual Set[T] call.
type SetOption func(*setOptions)

type setOptions struct {
	staleTime *time.Duration
	cacheTime *time.Duration
	expiresAt *time.Time
}

// WithStaleTime overrides the entry's stale_time for this write.
func WithStaleTime(d time.Duration) SetOption {
	return func(o *setOptions) { o.staleTime = &d }
}

// WithCacheTime overrides the entry's cache_time for this write.
func WithCacheTime(d time.Duration) SetOption {
	return func(o *setOptions) { o.cacheTime = &d }
}

// WithExpiresAt sets the persisted record's explicit expiry, used when
// PersistenceOptions.ExpiresAtPolicy is "explicit".
func WithExpiresAt(t time.Time) SetOption {
	return func(o *setOptions) { o.expiresAt = &t }
}

// Set validates key and value, wraps value in an Entry, accounts its size,
// triggers eviction if the cache is now over budget, and notifies
// subscribers. Go cannot attach a type parameter to a method, so Set is a
// package-level generic function over *Cache — the same shape as
// codec.Register[T].
func Set[T any](c *Cache, key string, value T, opts ...SetOption) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := validateValue(value); err != nil {
		return err
	}

	so := setOptions{}
	for _, opt := range opts {
		opt(&so)
	}
	staleTime := c.cfg.DefaultStaleTime
	if so.staleTime != nil {
		staleTime = *so.staleTime
	}
	cacheTime := c.cfg.DefaultCacheTime
	if so.cacheTime != nil {
		cacheTime = *so.cacheTime
	}

	entry := NewEntry(key, value, fmt.Sprintf("%T", value), staleTime, cacheTime)

	c.mu.Lock()
	old, existed := c.entries[key]
	c.entries[key] = entry
	c.mu.Unlock()

	delta := entry.EstimatedSize()
	if existed {
		delta -= old.EstimatedSize()
	}
	newBytes := c.currentBytes.Add(delta)
	c.inactivity.Push(key, key, entry.LastAccessedAt())

	if c.cfg.MetricsEnabled {
		c.metrics.SetMemory(newBytes)
		c.metrics.SetEntryCount(c.Len())
	}

	kind := EventSet
	if existed {
		kind = EventUpdate
	}
	c.notify(key, kind)
	c.maybeEvict()

	if c.persistence != nil {
		var expiresAt *time.Time
		switch c.persistence.opts.ExpiresAtPolicy {
		case "ttl":
			t := time.Now().Add(cacheTime)
			expiresAt = &t
		case "explicit":
			expiresAt = so.expiresAt
		}
		c.schedulePersist(key, entry, expiresAt)
	}
	return nil
}

// Get performs an O(1) map lookup; on hit it bumps last_accessed_at and
// access_count and records a hit metric; on miss it records a miss and
// returns (zero, false, nil). A type mismatch between the stored value and
// T returns a *ValidationError rather than panicking.
func Get[T any](c *Cache, key string) (T, bool, error) {
	start := time.Now()
	var zero T

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if c.cfg.MetricsEnabled {
		defer func() { c.metrics.ObserveLookup(time.Since(start)) }()
	}

	if !ok {
		if c.cfg.MetricsEnabled {
			c.metrics.RecordMiss()
		}
		return zero, false, nil
	}

	e.Touch()
	c.inactivity.Update(key, e.LastAccessedAt())
	if c.cfg.MetricsEnabled {
		c.metrics.RecordHit()
		c.metrics.RecordAccess(key)
	}

	v, ok := e.data.(T)
	if !ok {
		return zero, false, &ValidationError{
			Field:  "value",
			Value:  key,
			Reason: fmt.Sprintf("stored type tag %q is incompatible with requested type %T", e.typeTag, zero),
		}
	}
	return v, true, nil
}

// IsFresh reports whether key exists and is not stale. Used by callers
// (the query package's SWR logic) deciding whether an observer attach
// should trigger a background refresh.
func (c *Cache) IsFresh(key string) bool {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	return ok && e.IsFresh()
}

// Guard represents one live observer of a cache entry, returned by
// Acquire. Release must be called exactly once.
type Guard struct {
	entry    *Entry
	released atomic.Bool
}

// Release decrements the entry's reference count. Calling it more than
// once is a no-op.
func (g *Guard) Release() {
	if g.released.CompareAndSwap(false, true) {
		g.entry.Release()
	}
}

// Acquire increments key's reference count and returns a Guard, or false
// if key does not exist.
func (c *Cache) Acquire(key string) (*Guard, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	e.Acquire()
	return &Guard{entry: e}, true
}

// Invalidate marks key stale without discarding its data, so an active
// query keeps serving it while a background refresh runs.
func (c *Cache) Invalidate(key string) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return
	}
	e.Invalidate()
	c.notify(key, EventInvalidate)
}

// InvalidateWithPrefix marks every key sharing a ':'-separated prefix with
// prefix as stale (spec.md §8 invariant 5) and returns the affected keys.
func (c *Cache) InvalidateWithPrefix(prefix string) []string {
	c.mu.RLock()
	var matched []string
	for k, e := range c.entries {
		if hasPrefixSegment(k, prefix) {
			matched = append(matched, k)
			e.Invalidate()
		}
	}
	c.mu.RUnlock()

	for _, k := range matched {
		c.notify(k, EventInvalidate)
	}
	return matched
}

// Remove deletes key immediately, regardless of reference count or
// freshness, and schedules its deletion from persistent storage if
// enabled.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	c.currentBytes.Add(-e.EstimatedSize())
	c.inactivity.Remove(key)
	c.notify(key, EventRemove)

	if c.persistence != nil {
		c.persistDelete(key)
	}
}

// Clear removes every entry and, if persistence is enabled, empties the
// backing store.
func (c *Cache) Clear() {
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.entries = make(map[string]*Entry)
	c.mu.Unlock()

	c.currentBytes.Store(0)
	c.inactivity.Clear()

	for _, k := range keys {
		c.notify(k, EventRemove)
	}

	if c.persistence != nil {
		go func() {
			if err := c.persistence.opts.Store.Clear(context.Background()); err != nil {
				logging.Warn().Err(err).Str("cache", c.cfg.Name).Msg("cache clear: persistence store clear failed")
			}
		}()
	}
}

// Subscribe returns a handle that receives a CacheEvent for every mutation
// of key, in the order the mutations happened. Call Unsubscribe when done.
func (c *Cache) Subscribe(key string) *Subscription {
	ch := make(chan Event, 16)
	c.subsMu.Lock()
	c.subs[key] = append(c.subs[key], ch)
	c.subsMu.Unlock()
	return &Subscription{Events: ch, cache: c, key: key, ch: ch}
}

func (c *Cache) unsubscribe(key string, ch chan Event) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	list := c.subs[key]
	for i, existing := range list {
		if existing == ch {
			c.subs[key] = append(list[:i], list[i+1:]...)
			close(ch)
			break
		}
	}
	if len(c.subs[key]) == 0 {
		delete(c.subs, key)
	}
}

func (c *Cache) notify(key string, kind EventKind) {
	c.subsMu.Lock()
	list := append([]chan Event(nil), c.subs[key]...)
	c.subsMu.Unlock()

	ev := Event{Kind: kind, Key: key}
	for _, ch := range list {
		select {
		case ch <- ev:
		default:
			// A slow subscriber falls behind rather than blocking the
			// mutation path; it still sees every event it has room for,
			// in order.
		}
	}
}

// Metrics returns the cache's CacheMetrics instance.
func (c *Cache) Metrics() *Metrics { return c.metrics }

// maybeEvict runs the configured EvictionStrategy if the cache is over
// max_entries or max_memory_bytes, per spec.md §4.1's eviction algorithm:
// once either cap is exceeded, reclaim down to 85% of every configured
// cap (max_entries and max_memory_bytes alike).
func (c *Cache) maybeEvict() {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	current := c.currentBytes.Load()

	overEntries := c.cfg.MaxEntries > 0 && n > c.cfg.MaxEntries
	overBytes := c.cfg.MaxMemoryBytes > 0 && current > c.cfg.MaxMemoryBytes
	if !overEntries && !overBytes {
		return
	}

	var targetBytes int64
	if c.cfg.MaxMemoryBytes > 0 {
		targetBytes = int64(float64(c.cfg.MaxMemoryBytes) * 0.85)
	}
	var targetEntries int
	if c.cfg.MaxEntries > 0 {
		targetEntries = int(float64(c.cfg.MaxEntries) * 0.85)
	}
	c.evict(targetBytes, targetEntries)
}

// evict selects victims via the configured strategy until the cache is
// back under targetBytes/targetEntries (0 meaning "no cap on this
// dimension"). Only reference_count==0 entries are ever candidates; if too
// few are eligible, the cap is left temporarily exceeded rather than
// evicting live data.
func (c *Cache) evict(targetBytes int64, targetEntries int) {
	c.mu.RLock()
	candidates := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if e.IsEvictable() {
			candidates = append(candidates, e)
		}
	}
	n := len(c.entries)
	c.mu.RUnlock()

	ordered := c.strategy.Order(candidates)
	current := c.currentBytes.Load()

	var toRemove []*Entry
	for _, e := range ordered {
		underBytes := targetBytes == 0 || current <= targetBytes
		underEntries := targetEntries == 0 || n <= targetEntries
		if underBytes && underEntries {
			break
		}
		toRemove = append(toRemove, e)
		current -= e.EstimatedSize()
		n--
	}

	removed := c.removeEntries(toRemove)
	if len(removed) > 0 && c.cfg.MetricsEnabled {
		c.metrics.RecordEviction(c.strategy.Name(), len(removed))
	}
}

// trim is the memory-pressure-driven removal pass invoked (debounced) by
// NotifyMemoryPressure: unlike evict, it removes every selected candidate
// unconditionally rather than stopping once under a byte/entry target.
func (c *Cache) trim(critical bool) {
	c.mu.RLock()
	candidates := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if e.IsEvictable() {
			candidates = append(candidates, e)
		}
	}
	c.mu.RUnlock()

	candidates = PressureFilter(c.strategy, candidates, critical)
	removed := c.removeEntries(candidates)
	if len(removed) > 0 && c.cfg.MetricsEnabled {
		c.metrics.RecordEviction(c.strategy.Name()+":pressure", len(removed))
	}
}

// removeEntries deletes each still-present entry from the map and
// bookkeeping structures and emits a Remove event for each; it never
// re-checks reference counts (callers must have already filtered to
// evictable candidates).
func (c *Cache) removeEntries(entries []*Entry) []string {
	var removed []string
	for _, e := range entries {
		c.mu.Lock()
		if _, ok := c.entries[e.Key()]; ok {
			delete(c.entries, e.Key())
			c.mu.Unlock()
			c.currentBytes.Add(-e.EstimatedSize())
			c.inactivity.Remove(e.Key())
			removed = append(removed, e.Key())
		} else {
			c.mu.Unlock()
		}
	}
	for _, k := range removed {
		c.notify(k, EventRemove)
	}
	return removed
}

// gcService periodically removes entries that are both evictable and
// have been inactive longer than their cache_time, per spec.md §4.1's GC
// algorithm.
type gcService struct {
	cache *Cache
}

func (s *gcService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.cache.cfg.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.cache.runGC()
		}
	}
}

func (c *Cache) runGC() {
	now := time.Now()
	c.mu.RLock()
	var due []*Entry
	for _, e := range c.entries {
		if e.GCEligible(now) {
			due = append(due, e)
		}
	}
	c.mu.RUnlock()

	removed := c.removeEntries(due)
	if len(removed) > 0 {
		logging.Debug().Int("count", len(removed)).Str("cache", c.cfg.Name).Msg("cache gc swept inactive entries")
		if c.cfg.MetricsEnabled {
			c.metrics.RecordGCRemoval(len(removed))
		}
	}
}

// OldestInactive reports the key and last-accessed time of the
// least-recently-touched entry, for diagnostics and tests. It does not
// filter by reference count.
func (c *Cache) OldestInactive() (key string, lastAccessed time.Time, ok bool) {
	e := c.inactivity.Peek()
	if e == nil {
		return "", time.Time{}, false
	}
	return e.Key, e.Timestamp, true
}
