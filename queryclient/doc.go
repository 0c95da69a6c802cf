// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package queryclient implements spec.md §4.5's QueryClient: the
process-wide registry that keys Query and InfiniteQuery instances by
QueryKey, backed by a single cache.Cache. Mutations are not built here:
query.NewMutation takes its own network status and offline queue.
Application code is expected to hold one Client (or a
context-scoped one in tests) rather than reach for package-level
globals.

Because Go cannot express "a map from string to Query[T] for varying
T" without type erasure, the registry stores instances as any and the
exported accessors are package-level generic functions (Go forbids
additional type parameters on methods) that type-assert on lookup.
*/
package queryclient
