// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// Config holds supervisor restart-backoff configuration.
type Config struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the rate at which the failure counter decays, in seconds.
	// Default: 30
	FailureDecay float64

	// FailureBackoff is the delay applied once FailureThreshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout bounds how long Stop waits for services to exit.
	// Default: 10s
	ShutdownTimeout time.Duration
}

// DefaultConfig returns suture's own production-ready defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Supervisor supervises a QueryCache's background services: the GC sweep and
// the persistence flush worker. Unlike a multi-layer application supervisor
// tree, a cache only ever has these two, equally-critical services, so a
// single flat suture.Supervisor is enough — a crash in one must not stop
// the other, and suture already gives us that for services added to the
// same supervisor.
type Supervisor struct {
	root *suture.Supervisor
}

// New creates a Supervisor. A nil logger disables suture's structured-event
// hook.
func New(logger *slog.Logger, config Config) *Supervisor {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5.0
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = 30.0
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = 15 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	spec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}
	if logger != nil {
		spec.EventHook = (&sutureslog.Handler{Logger: logger}).MustHook()
	}

	return &Supervisor{root: suture.New("fasq-cache", spec)}
}

// Add registers a service with the supervisor. Safe to call before or after
// Serve/ServeBackground.
func (s *Supervisor) Add(svc suture.Service) suture.ServiceToken {
	return s.root.Add(svc)
}

// Remove stops and removes a previously-added service.
func (s *Supervisor) Remove(token suture.ServiceToken) error {
	return s.root.Remove(token)
}

// Serve runs the supervisor, blocking until ctx is canceled.
func (s *Supervisor) Serve(ctx context.Context) error {
	return s.root.Serve(ctx)
}

// ServeBackground runs the supervisor in a goroutine and returns a channel
// that receives its terminal error (or nil) when it stops.
func (s *Supervisor) ServeBackground(ctx context.Context) <-chan error {
	return s.root.ServeBackground(ctx)
}

// UnstoppedServiceReport reports services that failed to stop within
// ShutdownTimeout, useful when Close hangs during tests.
func (s *Supervisor) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return s.root.UnstoppedServiceReport()
}
