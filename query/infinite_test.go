// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package query

import (
	"context"
	"sync/atomic"
	"testing"
)

type listPage struct {
	Items   []string
	HasMore bool
}

// TestInfinitePaginationFollowsComputedParam covers seed scenario S6:
// fetch_next(1) seeds the first page, a bare fetch_next() derives param
// 2 from the last page's has_more flag, and once a page reports
// has_more=false, fetch_next() becomes a no-op.
func TestInfinitePaginationFollowsComputedParam(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	fetch := func(ctx context.Context, page int) (listPage, error) {
		calls.Add(1)
		switch page {
		case 1:
			return listPage{Items: []string{"a", "b"}, HasMore: true}, nil
		case 2:
			return listPage{Items: []string{"c"}, HasMore: false}, nil
		default:
			t.Fatalf("unexpected page request %d", page)
			return listPage{}, nil
		}
	}

	getNext := func(pages []Page[listPage, int], last listPage) (int, bool) {
		if !last.HasMore {
			return 0, false
		}
		return len(pages) + 1, true
	}

	q := NewInfinite[listPage, int]("items", fetch, InfiniteOptions[listPage, int]{
		Enabled:      true,
		GetNextParam: getNext,
	})

	one := 1
	if err := q.FetchNext(context.Background(), &one); err != nil {
		t.Fatalf("first FetchNext failed: %v", err)
	}
	pages := q.Pages()
	if len(pages) != 1 || pages[0].Param != 1 {
		t.Fatalf("expected one page with param 1, got %+v", pages)
	}

	if err := q.FetchNext(context.Background(), nil); err != nil {
		t.Fatalf("second FetchNext failed: %v", err)
	}
	pages = q.Pages()
	if len(pages) != 2 || pages[1].Param != 2 {
		t.Fatalf("expected second page with computed param 2, got %+v", pages)
	}
	if pages[1].State.Data.HasMore {
		t.Fatalf("expected last page to report has_more=false")
	}

	// A third fetch_next() with no explicit param must be a no-op since
	// the last page reported has_more=false.
	if err := q.FetchNext(context.Background(), nil); err != nil {
		t.Fatalf("third FetchNext returned an error: %v", err)
	}
	if got := len(q.Pages()); got != 2 {
		t.Fatalf("expected fetch_next to no-op past the last page, got %d pages", got)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected exactly 2 fetch_fn invocations, got %d", got)
	}
}

// TestInfiniteQueryNeverBroadcastsPartialPageVector asserts that
// subscribers only ever observe complete page vectors: an append is one
// atomic state transition, never a partially-built slice.
func TestInfiniteQueryNeverBroadcastsPartialPageVector(t *testing.T) {
	t.Parallel()

	fetch := func(ctx context.Context, page int) (listPage, error) {
		return listPage{Items: []string{"x"}, HasMore: page < 3}, nil
	}
	getNext := func(pages []Page[listPage, int], last listPage) (int, bool) {
		if !last.HasMore {
			return 0, false
		}
		return len(pages) + 1, true
	}
	q := NewInfinite[listPage, int]("items2", fetch, InfiniteOptions[listPage, int]{GetNextParam: getNext})

	sub := q.Subscribe()
	defer q.Unsubscribe(sub)

	one := 1
	_ = q.FetchNext(context.Background(), &one)
	_ = q.FetchNext(context.Background(), nil)
	_ = q.FetchNext(context.Background(), nil)

	for i := 0; i < 3; i++ {
		snap := <-sub
		for j, p := range snap {
			if !p.State.HasData {
				t.Fatalf("broadcast %d contained an incomplete page at index %d: %+v", i, j, p)
			}
		}
	}
}
