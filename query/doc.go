// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package query implements the three state machines that sit on top of
cache.Cache: Query[T], InfiniteQuery[TData,TParam], and
Mutation[TData,TVariables]. Each owns its own state stream and borrows
the cache through a cache key, never holding an entry directly.

Query[T] single-flights concurrent fetches with golang.org/x/sync/singleflight,
classifies fetch errors as transient or permanent for its retry/backoff
loop, and wraps background refreshes (not explicit Fetch calls) in a
per-key sony/gobreaker/v2 circuit breaker so a downstream outage degrades
to "stop hammering it" rather than a retry storm.
*/
package query
