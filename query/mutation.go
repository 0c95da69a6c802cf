// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package query

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/fasq/offlinequeue"
)

// MutationFunc performs the side-effecting operation a Mutation wraps.
type MutationFunc[TData, TVariables any] func(ctx context.Context, vars TVariables) (TData, error)

// MutationOptions configures a Mutation, mirroring spec.md §4.4's
// MutationOptions.
type MutationOptions struct {
	MaxRetries       int
	RetryDelay       time.Duration
	QueueWhenOffline bool
}

// MutationHooks are the lifecycle callbacks spec.md §5's ordering
// guarantee (2) binds to run in order: on_mutate, then mutation_fn
// (outside the hooks), then on_success or on_error, then on_settled.
// OnMutate's return value is threaded through as mutContext to the
// later hooks, letting callers stash optimistic-update rollback state.
type MutationHooks[TData, TVariables any] struct {
	OnMutate  func(ctx context.Context, vars TVariables) (any, error)
	OnSuccess func(ctx context.Context, data TData, mutContext any)
	OnError   func(ctx context.Context, err error, mutContext any)
	OnSettled func(ctx context.Context)
}

// Mutation is spec.md §4.4's Mutation[TData,TVariables]: a one-shot
// (per call) state machine for writes, with optional offline queueing
// through an offlinequeue.Manager.
type Mutation[TData, TVariables any] struct {
	fn    MutationFunc[TData, TVariables]
	opts  MutationOptions
	hooks MutationHooks[TData, TVariables]

	network *offlinequeue.NetworkStatus
	queue   *offlinequeue.Manager

	mu    sync.RWMutex
	state State[TData]

	subsMu sync.Mutex
	subs   []chan State[TData]
}

// NewMutation creates a Mutation. network and queue may both be nil, in
// which case mutate always runs fn immediately regardless of
// QueueWhenOffline.
func NewMutation[TData, TVariables any](
	fn MutationFunc[TData, TVariables],
	opts MutationOptions,
	hooks MutationHooks[TData, TVariables],
	network *offlinequeue.NetworkStatus,
	queue *offlinequeue.Manager,
) *Mutation[TData, TVariables] {
	return &Mutation[TData, TVariables]{
		fn:      fn,
		opts:    opts,
		hooks:   hooks,
		network: network,
		queue:   queue,
	}
}

// State returns the Mutation's current MutationState snapshot.
func (m *Mutation[TData, TVariables]) State() State[TData] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe returns a channel receiving MutationState transitions in order;
// a transition is dropped for a subscriber whose buffer is full.
func (m *Mutation[TData, TVariables]) Subscribe() <-chan State[TData] {
	ch := make(chan State[TData], 8)
	m.subsMu.Lock()
	m.subs = append(m.subs, ch)
	m.subsMu.Unlock()
	return ch
}

// Unsubscribe stops delivery to a channel returned by Subscribe.
func (m *Mutation[TData, TVariables]) Unsubscribe(ch <-chan State[TData]) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for i, c := range m.subs {
		if c == ch {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			close(c)
			return
		}
	}
}

// Reset discards the last outcome and returns the Mutation to Idle.
func (m *Mutation[TData, TVariables]) Reset() {
	m.mu.Lock()
	m.state = State[TData]{}
	m.mu.Unlock()
}

// Mutate runs fn(vars) asynchronously, or — when the network is offline
// and QueueWhenOffline is set — enqueues it for replay on reconnection,
// per spec.md §4.7. It returns immediately; observe Subscribe/State for
// the outcome.
func (m *Mutation[TData, TVariables]) Mutate(ctx context.Context, vars TVariables) {
	go m.run(ctx, vars)
}

func (m *Mutation[TData, TVariables]) run(ctx context.Context, vars TVariables) {
	var mutContext any
	if m.hooks.OnMutate != nil {
		var err error
		mutContext, err = m.hooks.OnMutate(ctx, vars)
		if err != nil {
			m.finish(ctx, zeroData[TData](), err, mutContext)
			return
		}
	}

	if m.network != nil && !m.network.IsOnline() && m.opts.QueueWhenOffline && m.queue != nil {
		m.setQueued()
		m.queue.Enqueue(offlinequeue.Job{
			Run: func(ctx context.Context) error {
				return m.execute(ctx, vars, mutContext)
			},
		})
		return
	}

	_ = m.execute(ctx, vars, mutContext)
}

func (m *Mutation[TData, TVariables]) execute(ctx context.Context, vars TVariables, mutContext any) error {
	m.setLoading()
	data, err := m.runWithRetry(ctx, vars)
	m.finish(ctx, data, err, mutContext)
	return err
}

func (m *Mutation[TData, TVariables]) finish(ctx context.Context, data TData, err error, mutContext any) {
	if err != nil {
		m.setError(err)
		if m.hooks.OnError != nil {
			m.hooks.OnError(ctx, err, mutContext)
		}
	} else {
		m.setSuccess(data)
		if m.hooks.OnSuccess != nil {
			m.hooks.OnSuccess(ctx, data, mutContext)
		}
	}
	if m.hooks.OnSettled != nil {
		m.hooks.OnSettled(ctx)
	}
}

func (m *Mutation[TData, TVariables]) runWithRetry(ctx context.Context, vars TVariables) (TData, error) {
	var lastErr error
	for attempt := 0; attempt <= m.opts.MaxRetries; attempt++ {
		v, err := m.fn(ctx, vars)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if attempt == m.opts.MaxRetries {
			break
		}
		if m.opts.RetryDelay > 0 {
			timer := time.NewTimer(m.opts.RetryDelay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return zeroData[TData](), &CancelledError{Op: "mutate"}
			}
		}
	}
	return zeroData[TData](), lastErr
}

func zeroData[TData any]() TData {
	var zero TData
	return zero
}

func (m *Mutation[TData, TVariables]) setQueued() {
	m.mu.Lock()
	m.state = State[TData]{Status: StatusQueued}
	snap := m.state
	m.mu.Unlock()
	m.broadcast(snap)
}

func (m *Mutation[TData, TVariables]) setLoading() {
	m.mu.Lock()
	m.state = State[TData]{Status: StatusLoading}
	snap := m.state
	m.mu.Unlock()
	m.broadcast(snap)
}

func (m *Mutation[TData, TVariables]) setSuccess(data TData) {
	m.mu.Lock()
	m.state = State[TData]{Status: StatusSuccess, Data: data, HasData: true}
	snap := m.state
	m.mu.Unlock()
	m.broadcast(snap)
}

func (m *Mutation[TData, TVariables]) setError(err error) {
	m.mu.Lock()
	m.state = State[TData]{Status: StatusError, Err: err}
	snap := m.state
	m.mu.Unlock()
	m.broadcast(snap)
}

func (m *Mutation[TData, TVariables]) broadcast(s State[TData]) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
