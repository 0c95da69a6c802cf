// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package cache implements QueryCache: the in-memory, reference-counted
store that Query, InfiniteQuery, and Mutation read and write through. It
owns eviction (LRU/LFU/FIFO/Adaptive), GC-by-inactivity, memory-pressure
trimming, per-key subscriptions, and the write-behind persistence
pipeline.

The entry map itself is a plain map[string]*Entry guarded by a single
RWMutex — spec.md's "single logical lock" concurrency model — while
reference counts and access bookkeeping on an individual Entry use
atomics so a read doesn't need to take the map lock twice.

GC-by-inactivity is a periodic sweep over the entry map. Each entry's
last-accessed time is mirrored in internal/cache's MinHeap, which
OldestInactive reads (the GC sweep does not); per-key access throughput
is tracked with internal/cache's SlidingWindowStore. Both are adapted here from
general-purpose utilities into QueryCache-specific bookkeeping rather
than reimplemented.
*/
package cache
