// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package query

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/fasq/cache"
)

type user struct {
	Name string
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.New(cache.Config{Name: "query-test", DefaultStaleTime: time.Minute})
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// TestConcurrentAttachesIssueExactlyOneFetch covers invariant 1: ten
// observers attaching at once against an empty cache must coalesce onto
// a single fetch_fn invocation.
func TestConcurrentAttachesIssueExactlyOneFetch(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	var calls atomic.Int32
	fetch := func(ctx context.Context) (user, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return user{Name: "B"}, nil
	}

	q := New[user](c, "user:1", fetch, DefaultOptions[user]())

	const n = 10
	observers := make([]*Observer[user], n)
	for i := 0; i < n; i++ {
		observers[i] = q.Attach(context.Background())
	}
	defer func() {
		for _, o := range observers {
			o.Close()
		}
	}()

	deadline := time.After(2 * time.Second)
	for _, o := range observers {
	wait:
		for {
			select {
			case s := <-o.Stream():
				if s.Status == StatusSuccess {
					break wait
				}
			case <-deadline:
				t.Fatal("timed out waiting for success state")
			}
		}
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 fetch_fn invocation, got %d", got)
	}
}

// TestSWRNeverLosesDataBetweenSuccesses covers invariant 2: a seeded
// success followed by a refresh must pass through Loading{data: prev}
// and never report HasData=false in between.
func TestSWRNeverLosesDataBetweenSuccesses(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	if err := cache.Set(c, "user:2", user{Name: "A"}); err != nil {
		t.Fatalf("seed Set failed: %v", err)
	}

	fetch := func(ctx context.Context) (user, error) {
		time.Sleep(50 * time.Millisecond)
		return user{Name: "B"}, nil
	}

	opts := DefaultOptions[user]()
	opts.RefetchOnMount = true // the seeded entry is still fresh
	q := New[user](c, "user:2", fetch, opts)
	if !q.State().HasData || q.State().Data.Name != "A" {
		t.Fatalf("expected Query seeded from cache with A, got %+v", q.State())
	}

	o := q.Attach(context.Background())
	defer o.Close()

	var sawLoadingWithPrev, sawSuccessWithNew bool
	deadline := time.After(2 * time.Second)
	for !sawSuccessWithNew {
		select {
		case s := <-o.Stream():
			if !s.HasData {
				t.Fatalf("state transition lost data: %+v", s)
			}
			if s.Status == StatusLoading && s.Data.Name == "A" {
				sawLoadingWithPrev = true
			}
			if s.Status == StatusSuccess && s.Data.Name == "B" {
				sawSuccessWithNew = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for refresh to complete")
		}
	}
	if !sawLoadingWithPrev {
		t.Fatal("expected a Loading state carrying the stale value A before Success(B)")
	}
}

// TestExplicitFetchBypassesOpenBreaker asserts that Fetch (unlike a
// background refresh) always reaches fetch_fn, even with a freshly
// tripped circuit breaker.
func TestExplicitFetchBypassesOpenBreaker(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	var calls atomic.Int32
	fetch := func(ctx context.Context) (user, error) {
		calls.Add(1)
		return user{Name: "ok"}, nil
	}
	q := New[user](c, "user:3", fetch, DefaultOptions[user]())

	// Force the breaker into a tripped state directly; explicit Fetch
	// must not route through it.
	for i := 0; i < 5; i++ {
		_, _ = q.breaker.Execute(func() (user, error) { return user{}, context.DeadlineExceeded })
	}

	q.Fetch(context.Background())
	deadline := time.After(time.Second)
	for {
		if q.State().Status == StatusSuccess {
			break
		}
		select {
		case <-deadline:
			t.Fatal("explicit Fetch did not complete")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if calls.Load() == 0 {
		t.Fatal("expected fetch_fn to have been invoked via explicit Fetch")
	}
}
