// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package cache provides the low-level, domain-agnostic data structures used
by the top-level cache package to implement query-cache eviction and
housekeeping: a generic timestamp-ordered min-heap and a sliding-window
throughput counter.

None of the types here know about queries, stale time, or reference
counting — that semantics lives in the top-level cache package, which
composes these primitives rather than reimplementing them.

# Building blocks

  - MinHeap[T]: a generic timestamp-ordered heap with O(log n) key-addressed
    updates, used by the top-level cache package to mirror each entry's
    last-accessed time (read by Cache.OldestInactive).
  - SlidingWindowStore: a bucketed counter used to count per-key cache
    operations over a rolling window without a running sum reset on every
    window boundary.

# Usage

	import "github.com/tomtom215/fasq/internal/cache"

	h := cache.NewMinHeap[struct{}](0)
	h.Push("user:1", struct{}{}, time.Now())
	if e := h.Peek(); e != nil {
	    // e.Key is the least-recently-touched entry
	}

# See Also

  - cache (top-level): QueryCache, reference counting, prefix invalidation
  - security: encryption and persistence wired into QueryCache's write path
*/
package cache
