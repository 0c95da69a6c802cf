// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package offlinequeue

import "sync"

// NetworkStatus tracks online/offline state and notifies subscribers on
// change. Production callers drive it from an OS connectivity probe;
// tests drive it manually via SetOnline, per spec.md §4.7.
type NetworkStatus struct {
	mu     sync.RWMutex
	online bool

	subsMu sync.Mutex
	subs   []chan bool
}

// NewNetworkStatus creates a NetworkStatus starting in the given state.
func NewNetworkStatus(online bool) *NetworkStatus {
	return &NetworkStatus{online: online}
}

// IsOnline reports the current connectivity state.
func (n *NetworkStatus) IsOnline() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.online
}

// SetOnline updates connectivity and notifies subscribers only when the
// state actually changes.
func (n *NetworkStatus) SetOnline(online bool) {
	n.mu.Lock()
	changed := n.online != online
	n.online = online
	n.mu.Unlock()

	if changed {
		n.broadcast(online)
	}
}

// Subscribe returns a channel that receives online/offline transitions in
// order; a transition is dropped for a subscriber whose buffer is full.
func (n *NetworkStatus) Subscribe() <-chan bool {
	ch := make(chan bool, 4)
	n.subsMu.Lock()
	n.subs = append(n.subs, ch)
	n.subsMu.Unlock()
	return ch
}

// Unsubscribe stops delivery to a channel returned by Subscribe.
func (n *NetworkStatus) Unsubscribe(ch <-chan bool) {
	n.subsMu.Lock()
	defer n.subsMu.Unlock()
	for i, c := range n.subs {
		if c == ch {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			close(c)
			return
		}
	}
}

func (n *NetworkStatus) broadcast(online bool) {
	n.subsMu.Lock()
	defer n.subsMu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- online:
		default:
		}
	}
}
