// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package metrics implements spec.md §4.8's PerformanceMonitor and
MetricsStream: a snapshot aggregator over one or more cache.Cache
instances, and a periodic broadcaster of those snapshots that only runs
while at least one subscriber is listening.

This is distinct from the Prometheus collectors cache/metrics.go wires
directly into QueryCache's read/write path — those exist for scrape-based
external monitoring, whereas PerformanceMonitor/MetricsStream serve an
in-process caller that wants to observe its own cache's health without
standing up a Prometheus registry (e.g. a CLI dashboard or a test
assertion on hit ratio over time).
*/
package metrics
