// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package offlinequeue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job is one deferred mutation: Run is a closure the enqueuer has
// already bound to its mutation_fn and variables, so the queue itself
// never needs to know either type.
type Job struct {
	ID        string
	CreatedAt time.Time
	Run       func(ctx context.Context) error
}

// Manager is spec.md §4.7's OfflineQueueManager: an in-memory FIFO that
// drains sequentially on the network's offline→online transition.
// Enqueue/drain are serialized through mu, matching the spec's "enqueue
// and drain operations are serialized".
type Manager struct {
	mu    sync.Mutex
	queue []Job

	network          *NetworkStatus
	stopOnFirstError bool
	draining         sync.Mutex

	stop chan struct{}
}

// NewManager creates a Manager that watches network for reconnection.
// When stopOnFirstError is false (spec.md default), a failing entry is
// dropped and the drain continues with the next one.
func NewManager(network *NetworkStatus, stopOnFirstError bool) *Manager {
	m := &Manager{
		network:          network,
		stopOnFirstError: stopOnFirstError,
		stop:             make(chan struct{}),
	}
	if network != nil {
		go m.watch()
	}
	return m
}

func (m *Manager) watch() {
	ch := m.network.Subscribe()
	for {
		select {
		case online, ok := <-ch:
			if !ok {
				return
			}
			if online {
				m.Drain(context.Background())
			}
		case <-m.stop:
			m.network.Unsubscribe(ch)
			return
		}
	}
}

// Close stops the background reconnect watcher. It does not drain or
// discard queued jobs.
func (m *Manager) Close() {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
}

// Enqueue appends job to the tail of the queue.
func (m *Manager) Enqueue(job Job) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	m.mu.Lock()
	m.queue = append(m.queue, job)
	m.mu.Unlock()
}

// Length reports the number of jobs currently queued.
func (m *Manager) Length() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Clear discards every queued job without running it.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.queue = nil
	m.mu.Unlock()
}

// Drain runs queued jobs in FIFO order. It is idempotent under
// concurrent/repeated calls: only one drain runs at a time, and a
// second call made while one is in progress returns immediately rather
// than interleaving.
func (m *Manager) Drain(ctx context.Context) {
	if !m.draining.TryLock() {
		return
	}
	defer m.draining.Unlock()

	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		job := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		if err := job.Run(ctx); err != nil && m.stopOnFirstError {
			return
		}
	}
}
