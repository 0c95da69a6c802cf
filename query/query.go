// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package query

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/fasq/cache"
	"github.com/tomtom215/fasq/internal/logging"
	"github.com/tomtom215/fasq/internal/validation"
)

// FetchFunc produces a Query[T]'s data. It must be safe to call
// concurrently with itself only through the single-flight coalescing
// Query already provides — callers never need their own locking.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Options configures a Query[T], mirroring spec.md §4.2's QueryOptions.
type Options[T any] struct {
	Enabled        bool
	StaleTime      time.Duration `validate:"gte=0"`
	CacheTime      time.Duration `validate:"gte=0"`
	RefetchOnMount bool

	MaxRetries int `validate:"gte=0"`
	Backoff    Backoff
	Classifier ErrorClassifier
	Timeout    time.Duration `validate:"gte=0"`

	OnSuccess func(T)
	OnError   func(error)
}

// DefaultOptions returns Options with Enabled=true and the package's
// default retry classifier/backoff — most callers start here and
// override individual fields.
func DefaultOptions[T any]() Options[T] {
	return Options[T]{Enabled: true, Backoff: DefaultBackoff(), Classifier: DefaultClassifier}
}

func (o Options[T]) withDefaults() Options[T] {
	if o.Classifier == nil {
		o.Classifier = DefaultClassifier
	}
	if o.Backoff == (Backoff{}) {
		o.Backoff = DefaultBackoff()
	}
	return o
}

// Query is the per-key state machine described in spec.md §4.2: driven by
// a FetchFunc, it single-flights concurrent fetches, retries transient
// errors with backoff, and serves stale-while-revalidate data through a
// subscribe-returning-handle stream.
type Query[T any] struct {
	cache   *cache.Cache
	key     string
	fetchFn FetchFunc[T]
	opts    Options[T]

	group    singleflight.Group
	breaker  *gobreaker.CircuitBreaker[T]
	inFlight atomic.Bool

	mu    sync.RWMutex
	state State[T]

	subsMu sync.Mutex
	subs   []chan State[T]

	disposed atomic.Bool
}

// New creates a Query bound to key. If the cache already holds a fresh or
// stale value for key, the Query's initial state is seeded from it.
func New[T any](c *cache.Cache, key string, fetchFn FetchFunc[T], opts Options[T]) *Query[T] {
	if verr := validation.ValidateStruct(opts); verr != nil {
		logging.Warn().Str("key", key).Err(verr).Msg("query: invalid options, falling back to defaults")
		opts = Options[T]{}
	}
	opts = opts.withDefaults()
	q := &Query[T]{
		cache:   c,
		key:     key,
		fetchFn: fetchFn,
		opts:    opts,
		breaker: newBreaker[T](key),
	}
	if v, ok, _ := cache.Get[T](c, key); ok {
		q.state = State[T]{Status: StatusSuccess, Data: v, HasData: true}
	}
	return q
}

// newBreaker builds the per-key circuit breaker that background refreshes
// run through; five consecutive failures opens it for 30s, grounded on
// the teacher's eventprocessor.ResilientReader circuit breaker settings.
func newBreaker[T any](name string) *gobreaker.CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			breakerConsecutiveFailures.WithLabelValues(name).Set(float64(counts.ConsecutiveFailures))
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			onBreakerStateChange(name, from, to)
		},
	}
	return gobreaker.NewCircuitBreaker[T](settings)
}

// Key returns the cache key this Query is bound to.
func (q *Query[T]) Key() string { return q.key }

// State returns the Query's current QueryState snapshot.
func (q *Query[T]) State() State[T] {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.state
}

// Observer is the handle returned by Attach: a state stream plus the
// cache reference count it holds on the Query's behalf. Close releases
// both.
type Observer[T any] struct {
	q     *Query[T]
	ch    chan State[T]
	guard *cache.Guard
}

// Stream returns the channel this observer receives QueryState transitions
// on, in the order they happened; a transition is dropped while the
// channel's buffer is full.
func (o *Observer[T]) Stream() <-chan State[T] { return o.ch }

// Close unsubscribes and releases the underlying cache reference count.
func (o *Observer[T]) Close() { o.q.detach(o) }

// Attach registers a new observer: it immediately receives the current
// state, then, if Enabled, triggers a background fetch when there is no
// cached entry, the entry is stale, or RefetchOnMount is set — otherwise
// the cached value is served as-is, per spec.md §4.2.
func (q *Query[T]) Attach(ctx context.Context) *Observer[T] {
	ch := make(chan State[T], 8)
	q.subsMu.Lock()
	q.subs = append(q.subs, ch)
	q.subsMu.Unlock()

	guard, _ := q.cache.Acquire(q.key)

	q.mu.RLock()
	snap := q.state
	q.mu.RUnlock()
	ch <- snap

	if q.opts.Enabled {
		_, ok, _ := cache.Get[T](q.cache, q.key)
		if !ok || !q.cache.IsFresh(q.key) || q.opts.RefetchOnMount {
			q.triggerFetch(ctx, false)
		}
	}
	return &Observer[T]{q: q, ch: ch, guard: guard}
}

func (q *Query[T]) detach(o *Observer[T]) {
	q.subsMu.Lock()
	for i, ch := range q.subs {
		if ch == o.ch {
			q.subs = append(q.subs[:i], q.subs[i+1:]...)
			close(ch)
			break
		}
	}
	q.subsMu.Unlock()

	if o.guard != nil {
		o.guard.Release()
	}
}

// Fetch forces an immediate fetch, bypassing the circuit breaker — an
// explicit call from the caller always gets to try the downstream, even
// while the breaker is open for automatic background refreshes.
func (q *Query[T]) Fetch(ctx context.Context) {
	q.triggerFetch(ctx, true)
}

// Invalidate marks the underlying cache entry stale; it does not itself
// trigger a fetch (a subsequent Attach or Fetch does).
func (q *Query[T]) Invalidate() {
	q.cache.Invalidate(q.key)
}

// Dispose terminates the Query: further Attach calls still work (a
// disposed Query can be recreated by the client), but any in-flight
// subscribers are closed out. Safe to call more than once.
func (q *Query[T]) Dispose() {
	if !q.disposed.CompareAndSwap(false, true) {
		return
	}
	q.subsMu.Lock()
	for _, ch := range q.subs {
		close(ch)
	}
	q.subs = nil
	q.subsMu.Unlock()
}

func (q *Query[T]) triggerFetch(ctx context.Context, bypassBreaker bool) {
	if q.disposed.Load() {
		return
	}
	if !q.inFlight.CompareAndSwap(false, true) {
		return
	}
	q.setLoading()

	go func() {
		v, err, _ := q.group.Do(q.key, func() (any, error) {
			return q.runFetchWithRetry(ctx, bypassBreaker)
		})

		// Clear the in-flight slot before notifying subscribers: a
		// cascaded refetch from within on_success/on_error must be able
		// to start a new flight right away, per spec.md §9.
		q.inFlight.Store(false)

		if err != nil {
			q.setError(err)
			if q.opts.OnError != nil {
				q.opts.OnError(err)
			}
			return
		}

		data := v.(T)
		if setErr := cache.Set(q.cache, q.key, data,
			cache.WithStaleTime(q.opts.StaleTime),
			cache.WithCacheTime(q.opts.CacheTime),
		); setErr != nil {
			q.setError(setErr)
			return
		}
		q.setSuccess(data)
		if q.opts.OnSuccess != nil {
			q.opts.OnSuccess(data)
		}
	}()
}

func (q *Query[T]) runFetchWithRetry(ctx context.Context, bypassBreaker bool) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= q.opts.MaxRetries; attempt++ {
		fctx := ctx
		var cancel context.CancelFunc
		if q.opts.Timeout > 0 {
			fctx, cancel = context.WithTimeout(ctx, q.opts.Timeout)
		}
		v, err := q.invoke(fctx, bypassBreaker)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return v, nil
		}

		lastErr = err
		if attempt == q.opts.MaxRetries || !q.opts.Classifier(err) {
			break
		}

		timer := time.NewTimer(q.opts.Backoff.Delay(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, &CancelledError{Op: "fetch"}
		}
	}
	return zero, lastErr
}

func (q *Query[T]) invoke(ctx context.Context, bypassBreaker bool) (T, error) {
	if bypassBreaker || q.breaker == nil {
		return q.fetchFn(ctx)
	}
	return q.breaker.Execute(func() (T, error) { return q.fetchFn(ctx) })
}

func (q *Query[T]) setLoading() {
	q.mu.Lock()
	prev := q.state
	q.state = State[T]{Status: StatusLoading, Data: prev.Data, HasData: prev.HasData}
	snap := q.state
	q.mu.Unlock()
	q.broadcast(snap)
}

func (q *Query[T]) setSuccess(data T) {
	q.mu.Lock()
	q.state = State[T]{Status: StatusSuccess, Data: data, HasData: true}
	snap := q.state
	q.mu.Unlock()
	q.broadcast(snap)
}

func (q *Query[T]) setError(err error) {
	q.mu.Lock()
	prev := q.state
	q.state = State[T]{Status: StatusError, Data: prev.Data, HasData: prev.HasData, Err: err}
	snap := q.state
	q.mu.Unlock()
	q.broadcast(snap)
}

func (q *Query[T]) broadcast(s State[T]) {
	q.subsMu.Lock()
	defer q.subsMu.Unlock()
	for _, ch := range q.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
