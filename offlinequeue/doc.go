// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package offlinequeue implements spec.md §4.7's OfflineQueueManager and
NetworkStatus: a FIFO of pending mutations deferred while the network is
down, drained in enqueue order once NetworkStatus reports online again.

Queue entries are stored as type-erased closures (each already bound to
its mutation_fn and vars by the caller) rather than a generic slice,
since Go cannot express a single container of heterogeneous
Mutation[TData,TVariables] instances without repeating the type
parameters — the same trade the cache package makes for its entries.
*/
package offlinequeue
