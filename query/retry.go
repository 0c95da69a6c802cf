// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package query

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

// Backoff computes the delay before retry attempt n (0-indexed), per
// spec.md §4.2's "backoff(base, factor, jitter, max)".
type Backoff struct {
	Base   time.Duration
	Factor float64
	Jitter float64 // fraction of the computed delay to randomize, e.g. 0.1
	Max    time.Duration
}

// DefaultBackoff matches the teacher's own retry defaults: a 100ms base
// doubling each attempt, capped at 10s, with 10% jitter.
func DefaultBackoff() Backoff {
	return Backoff{Base: 100 * time.Millisecond, Factor: 2, Jitter: 0.1, Max: 10 * time.Second}
}

// Delay returns the backoff duration for attempt n.
func (b Backoff) Delay(n int) time.Duration {
	if b.Base <= 0 {
		return 0
	}
	factor := b.Factor
	if factor <= 0 {
		factor = 2
	}
	d := float64(b.Base) * math.Pow(factor, float64(n))
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	if b.Jitter > 0 {
		spread := d * b.Jitter
		d += spread*rand.Float64()*2 - spread
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// ErrorClassifier reports whether err should be retried.
type ErrorClassifier func(err error) bool

// DefaultClassifier treats *FetchError{Transient: true} and any error not
// wrapping a *FetchError as transient, per spec.md §9 open question (a):
// "a conservative default that treats network/timeout/5xx as transient".
// Permanent errors (validation, 4xx) must be explicitly marked as such by
// the caller's fetch_fn.
func DefaultClassifier(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Transient
	}
	return true
}
