// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package supervisor provides process supervision for QueryCache's background
services using suture v4.

A Cache runs two long-running services for its lifetime: the GC sweep (which
reclaims unreferenced, inactive entries) and the write-behind persistence
flush worker (which drains queued encode+encrypt+persist jobs). Both are
ordinary goroutines from the caller's point of view, but wrapping them in a
single suture.Supervisor gives them restart-on-panic semantics and
structured-log hooks for free instead of hand-rolled recover()/relaunch
bookkeeping.

# Usage

	sup := supervisor.New(logger, supervisor.DefaultConfig())
	sup.Add(gcSweepService)
	sup.Add(flushService)
	ctx, cancel := context.WithCancel(parent)
	errCh := sup.ServeBackground(ctx)
	...
	cancel() // the Supervisor has no Stop method; canceling ctx stops it
	<-errCh

# What is NOT supervised

The cache's map access itself is not a service — it never blocks and has no
independent lifecycle. Only the two background loops are.
*/
package supervisor
