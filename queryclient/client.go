// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package queryclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/fasq/cache"
	"github.com/tomtom215/fasq/offlinequeue"
	"github.com/tomtom215/fasq/query"
)

// disposable is implemented by *query.Query[T] for any T; it lets
// Client tear down a registered Query without knowing its type
// parameter.
type disposable interface{ Dispose() }

// Client is spec.md §4.5's QueryClient: a registry of Query and
// InfiniteQuery instances, all sharing one cache.Cache and one
// offline-queue pair. Model it as a singleton with explicit
// construction and ResetForTesting, rather than reaching for
// package-level globals, per spec.md §9's design note on singletons.
type Client struct {
	cache   *cache.Cache
	network *offlinequeue.NetworkStatus
	queue   *offlinequeue.Manager

	mu              sync.Mutex
	queries         map[string]disposable
	infiniteQueries map[string]any
}

// New creates a Client bound to c. network and queue may be nil when
// the application has no offline-mutation support. The Client does not
// build Mutations (query.NewMutation takes its own network and queue);
// it uses queue only to discard queued jobs in ResetForTesting.
func New(c *cache.Cache, network *offlinequeue.NetworkStatus, queue *offlinequeue.Manager) *Client {
	return &Client{
		cache:           c,
		network:         network,
		queue:           queue,
		queries:         make(map[string]disposable),
		infiniteQueries: make(map[string]any),
	}
}

// Cache returns the underlying QueryCache, e.g. for QueryClient-level
// metrics or subscribe-by-key access the Query/InfiniteQuery wrappers
// don't otherwise expose.
func (cl *Client) Cache() *cache.Cache { return cl.cache }

// GetQuery returns the Query registered under key, creating it with
// fetchFn/opts if absent. When a Query is already registered under key,
// the fetchFn and opts passed here are ignored — the first registration
// wins for the life of the Query, per spec.md §9's function-identity
// tie-break rule.
func GetQuery[T any](cl *Client, key string, fetchFn query.FetchFunc[T], opts query.Options[T]) (*query.Query[T], error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if existing, ok := cl.queries[key]; ok {
		q, ok := existing.(*query.Query[T])
		if !ok {
			return nil, fmt.Errorf("queryclient: key %q already registered with a different type", key)
		}
		return q, nil
	}
	q := query.New[T](cl.cache, key, fetchFn, opts)
	cl.queries[key] = q
	return q, nil
}

// GetInfiniteQuery is GetQuery's InfiniteQuery counterpart.
func GetInfiniteQuery[TData, TParam any](cl *Client, key string, fetchFn query.InfiniteFetchFunc[TData, TParam], opts query.InfiniteOptions[TData, TParam]) (*query.InfiniteQuery[TData, TParam], error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if existing, ok := cl.infiniteQueries[key]; ok {
		q, ok := existing.(*query.InfiniteQuery[TData, TParam])
		if !ok {
			return nil, fmt.Errorf("queryclient: infinite key %q already registered with a different type", key)
		}
		return q, nil
	}
	q := query.NewInfinite[TData, TParam](key, fetchFn, opts)
	cl.infiniteQueries[key] = q
	return q, nil
}

// SetQueryData seeds or overwrites key's cached value directly, without
// going through a fetch_fn — the synchronous counterpart to a Query's
// background refresh. maxAge of zero uses the cache's default_cache_time.
func SetQueryData[T any](cl *Client, key string, value T, maxAge time.Duration) error {
	if maxAge > 0 {
		return cache.Set(cl.cache, key, value, cache.WithCacheTime(maxAge))
	}
	return cache.Set(cl.cache, key, value)
}

// GetQueryData reads key's cached value directly, bypassing any
// registered Query.
func GetQueryData[T any](cl *Client, key string) (T, bool, error) {
	return cache.Get[T](cl.cache, key)
}

// InvalidateQuery marks key stale without discarding its data.
func (cl *Client) InvalidateQuery(key string) {
	cl.cache.Invalidate(key)
}

// InvalidateQueriesWithPrefix marks every key under prefix stale,
// matching on ":"-delimited segment boundaries, and returns the keys
// affected.
func (cl *Client) InvalidateQueriesWithPrefix(prefix string) []string {
	return cl.cache.InvalidateWithPrefix(prefix)
}

// RemoveQuery disposes the Query registered under key (closing out its
// subscribers), drops any InfiniteQuery registered under key without
// tearing it down, and drops the cache entry.
func (cl *Client) RemoveQuery(key string) {
	cl.mu.Lock()
	if q, ok := cl.queries[key]; ok {
		q.Dispose()
		delete(cl.queries, key)
	}
	delete(cl.infiniteQueries, key)
	cl.mu.Unlock()

	cl.cache.Remove(key)
}

// PrefetchQuery warms key's cache entry by registering (or reusing) its
// Query and waiting for the resulting fetch to settle, without
// requiring a caller-visible observer.
func PrefetchQuery[T any](ctx context.Context, cl *Client, key string, fetchFn query.FetchFunc[T], opts query.Options[T]) error {
	q, err := GetQuery[T](cl, key, fetchFn, opts)
	if err != nil {
		return err
	}

	o := q.Attach(ctx)
	defer o.Close()

	for {
		select {
		case s := <-o.Stream():
			switch s.Status {
			case query.StatusSuccess:
				return nil
			case query.StatusError:
				return s.Err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// PrefetchQueries runs each prefetch thunk in sequence, stopping at the
// first error. Each thunk is typically a closure over a PrefetchQuery
// call for a specific T, since Go cannot express a single prefetch
// list spanning multiple data types.
func PrefetchQueries(ctx context.Context, prefetches ...func(context.Context) error) error {
	for _, p := range prefetches {
		if err := p(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Clear disposes every registered Query, drops every InfiniteQuery
// registration without tearing it down, and empties the underlying
// cache, including its persisted rows if any.
func (cl *Client) Clear() {
	cl.mu.Lock()
	for _, q := range cl.queries {
		q.Dispose()
	}
	cl.queries = make(map[string]disposable)
	cl.infiniteQueries = make(map[string]any)
	cl.mu.Unlock()

	cl.cache.Clear()
}

// ResetForTesting is Clear plus discarding any queued offline mutations,
// matching spec.md §9's "explicit initialize/reset_for_testing" guidance
// for the QueryClient singleton.
func (cl *Client) ResetForTesting() {
	cl.Clear()
	if cl.queue != nil {
		cl.queue.Clear()
	}
}
