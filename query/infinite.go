// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// InfiniteFetchFunc fetches the page identified by param.
type InfiniteFetchFunc[TData, TParam any] func(ctx context.Context, param TParam) (TData, error)

// Page is one page of an InfiniteQuery's ordered page vector.
type Page[TData, TParam any] struct {
	Param TParam
	State State[TData]
}

// GetNextParam derives the param for the page that follows pages, given the
// last page's data. The second return value is false when there is no next
// page (fetch_next becomes a no-op), per spec.md §4.3.
type GetNextParam[TData, TParam any] func(pages []Page[TData, TParam], lastPageData TData) (TParam, bool)

// GetPrevParam is GetNextParam's mirror for fetch_previous.
type GetPrevParam[TData, TParam any] func(pages []Page[TData, TParam], firstPageData TData) (TParam, bool)

// InfiniteOptions configures an InfiniteQuery.
type InfiniteOptions[TData, TParam any] struct {
	Enabled      bool
	GetNextParam GetNextParam[TData, TParam]
	GetPrevParam GetPrevParam[TData, TParam]

	MaxRetries int
	Backoff    Backoff
	Classifier ErrorClassifier
}

func (o InfiniteOptions[TData, TParam]) withDefaults() InfiniteOptions[TData, TParam] {
	if o.Classifier == nil {
		o.Classifier = DefaultClassifier
	}
	if o.Backoff == (Backoff{}) {
		o.Backoff = DefaultBackoff()
	}
	return o
}

// InfiniteQuery is spec.md §4.3's paginated Query variant: it owns an
// ordered vector of pages rather than a single value, appending (or
// prepending) pages one fetch at a time. Every append is atomic with
// respect to observers — a partially-built page vector is never
// broadcast.
type InfiniteQuery[TData, TParam any] struct {
	key     string
	fetchFn InfiniteFetchFunc[TData, TParam]
	opts    InfiniteOptions[TData, TParam]

	group singleflight.Group

	mu     sync.RWMutex
	pages  []Page[TData, TParam]
	status Status
	lastErr error

	subsMu sync.Mutex
	subs   []chan []Page[TData, TParam]
}

// NewInfinite creates an InfiniteQuery bound to key. It starts with an
// empty page vector; call FetchNext(ctx, nil) to load the first page.
func NewInfinite[TData, TParam any](key string, fetchFn InfiniteFetchFunc[TData, TParam], opts InfiniteOptions[TData, TParam]) *InfiniteQuery[TData, TParam] {
	return &InfiniteQuery[TData, TParam]{
		key:     key,
		fetchFn: fetchFn,
		opts:    opts.withDefaults(),
	}
}

// Key returns the InfiniteQuery's cache key.
func (q *InfiniteQuery[TData, TParam]) Key() string { return q.key }

// Pages returns a snapshot of the current page vector.
func (q *InfiniteQuery[TData, TParam]) Pages() []Page[TData, TParam] {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return append([]Page[TData, TParam](nil), q.pages...)
}

// Status returns the InfiniteQuery's current fetch status.
func (q *InfiniteQuery[TData, TParam]) Status() Status {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.status
}

// Subscribe returns a channel that receives the full page vector every
// time it changes.
func (q *InfiniteQuery[TData, TParam]) Subscribe() <-chan []Page[TData, TParam] {
	ch := make(chan []Page[TData, TParam], 4)
	q.subsMu.Lock()
	q.subs = append(q.subs, ch)
	q.subsMu.Unlock()
	return ch
}

// Unsubscribe stops delivery to a channel returned by Subscribe.
func (q *InfiniteQuery[TData, TParam]) Unsubscribe(ch <-chan []Page[TData, TParam]) {
	q.subsMu.Lock()
	defer q.subsMu.Unlock()
	for i, c := range q.subs {
		if c == ch {
			q.subs = append(q.subs[:i], q.subs[i+1:]...)
			close(c)
			return
		}
	}
}

// FetchNext loads the next page. If param is nil, the next param is
// derived from GetNextParam; if that reports no further page, FetchNext
// is a no-op. Concurrent calls for the same param coalesce onto one
// fetch.
func (q *InfiniteQuery[TData, TParam]) FetchNext(ctx context.Context, param *TParam) error {
	p, ok := q.resolveNextParam(param)
	if !ok {
		return nil
	}
	return q.fetchAndAppend(ctx, p, true)
}

// FetchPrevious is FetchNext's mirror, prepending the fetched page.
func (q *InfiniteQuery[TData, TParam]) FetchPrevious(ctx context.Context, param *TParam) error {
	p, ok := q.resolvePrevParam(param)
	if !ok {
		return nil
	}
	return q.fetchAndAppend(ctx, p, false)
}

func (q *InfiniteQuery[TData, TParam]) resolveNextParam(param *TParam) (TParam, bool) {
	if param != nil {
		return *param, true
	}
	if q.opts.GetNextParam == nil {
		var zero TParam
		return zero, false
	}
	q.mu.RLock()
	pages := append([]Page[TData, TParam](nil), q.pages...)
	q.mu.RUnlock()

	var lastData TData
	if n := len(pages); n > 0 && pages[n-1].State.HasData {
		lastData = pages[n-1].State.Data
	}
	return q.opts.GetNextParam(pages, lastData)
}

func (q *InfiniteQuery[TData, TParam]) resolvePrevParam(param *TParam) (TParam, bool) {
	if param != nil {
		return *param, true
	}
	if q.opts.GetPrevParam == nil {
		var zero TParam
		return zero, false
	}
	q.mu.RLock()
	pages := append([]Page[TData, TParam](nil), q.pages...)
	q.mu.RUnlock()

	var firstData TData
	if len(pages) > 0 && pages[0].State.HasData {
		firstData = pages[0].State.Data
	}
	return q.opts.GetPrevParam(pages, firstData)
}

func (q *InfiniteQuery[TData, TParam]) fetchAndAppend(ctx context.Context, param TParam, appendEnd bool) error {
	sfKey := fmt.Sprintf("%v:%v:%v", q.key, appendEnd, param)
	_, err, _ := q.group.Do(sfKey, func() (any, error) {
		q.setStatus(StatusLoading)
		data, ferr := q.runFetchWithRetry(ctx, param)
		if ferr != nil {
			q.setStatus(StatusError)
			q.mu.Lock()
			q.lastErr = ferr
			q.mu.Unlock()
			return nil, ferr
		}

		page := Page[TData, TParam]{Param: param, State: State[TData]{Status: StatusSuccess, Data: data, HasData: true}}
		q.mu.Lock()
		if appendEnd {
			q.pages = append(q.pages, page)
		} else {
			q.pages = append([]Page[TData, TParam]{page}, q.pages...)
		}
		q.status = StatusSuccess
		snap := append([]Page[TData, TParam](nil), q.pages...)
		q.mu.Unlock()
		q.broadcast(snap)
		return nil, nil
	})
	return err
}

// RefetchPage re-runs the fetch for the page currently at index, replacing
// it in place on success without disturbing any other page.
func (q *InfiniteQuery[TData, TParam]) RefetchPage(ctx context.Context, index int) error {
	q.mu.RLock()
	if index < 0 || index >= len(q.pages) {
		q.mu.RUnlock()
		return fmt.Errorf("query: refetch_page: index %d out of range (have %d pages)", index, len(q.pages))
	}
	param := q.pages[index].Param
	q.mu.RUnlock()

	sfKey := fmt.Sprintf("%v:refetch:%d", q.key, index)
	_, err, _ := q.group.Do(sfKey, func() (any, error) {
		data, ferr := q.runFetchWithRetry(ctx, param)
		if ferr != nil {
			return nil, ferr
		}
		q.mu.Lock()
		if index < len(q.pages) {
			q.pages[index] = Page[TData, TParam]{Param: param, State: State[TData]{Status: StatusSuccess, Data: data, HasData: true}}
		}
		snap := append([]Page[TData, TParam](nil), q.pages...)
		q.mu.Unlock()
		q.broadcast(snap)
		return nil, nil
	})
	return err
}

// Reset clears every page and returns the InfiniteQuery to Idle.
func (q *InfiniteQuery[TData, TParam]) Reset() {
	q.mu.Lock()
	q.pages = nil
	q.status = StatusIdle
	q.lastErr = nil
	q.mu.Unlock()
	q.broadcast(nil)
}

func (q *InfiniteQuery[TData, TParam]) setStatus(s Status) {
	q.mu.Lock()
	q.status = s
	q.mu.Unlock()
}

func (q *InfiniteQuery[TData, TParam]) runFetchWithRetry(ctx context.Context, param TParam) (TData, error) {
	var zero TData
	var lastErr error

	for attempt := 0; attempt <= q.opts.MaxRetries; attempt++ {
		v, err := q.fetchFn(ctx, param)
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
			return zero, &CancelledError{Op: "fetch_next"}
		}
	}
	return zero, lastErr
}

func (q *InfiniteQuery[TData, TParam]) broadcast(pages []Page[TData, TParam]) {
	q.subsMu.Lock()
	defer q.subsMu.Unlock()
	for _, ch := range q.subs {
		select {
		case ch <- pages:
		default:
		}
	}
}
