// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	pressureMu        sync.Mutex
	pressureSometimes = rate.Sometimes{Interval: 500 * time.Millisecond}
	liveCaches        = map[*Cache]struct{}{}
)

func registerCache(c *Cache) {
	pressureMu.Lock()
	liveCaches[c] = struct{}{}
	pressureMu.Unlock()
}

func unregisterCache(c *Cache) {
	pressureMu.Lock()
	delete(liveCaches, c)
	pressureMu.Unlock()
}

// NotifyMemoryPressure is the single process-wide entry point for a host's
// platform-specific memory-pressure signal. FASQ does not probe the OS
// itself — the host application (or a thin platform adapter outside this
// module) calls this when it learns memory is tight.
//
// Repeated calls within a 500ms window collapse into a single trim pass
// across every live Cache, per spec.md §8's memory-pressure idempotence
// invariant: a storm of pressure notifications must not thrash the cache
// any harder than a single one would.
func NotifyMemoryPressure(critical bool) {
	pressureSometimes.Do(func() {
		pressureMu.Lock()
		caches := make([]*Cache, 0, len(liveCaches))
		for c := range liveCaches {
			caches = append(caches, c)
		}
		pressureMu.Unlock()

		for _, c := range caches {
			c.trim(critical)
		}
	})
}
