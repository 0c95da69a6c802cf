// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"log/slog"
	"time"

	"github.com/tomtom215/fasq/codec"
	"github.com/tomtom215/fasq/persistence"
	"github.com/tomtom215/fasq/security"
)

// Config configures a Cache instance. Field names mirror spec.md §4.1's
// recognized configuration: max_entries, max_memory_bytes,
// default_stale_time, default_cache_time, eviction, gc_interval,
// persistence.
type Config struct {
	// Name labels this cache's Prometheus series and log lines.
	// Defaults to "default".
	Name string

	MaxEntries       int           `validate:"gte=0"`
	MaxMemoryBytes   int64         `validate:"gte=0"`
	DefaultStaleTime time.Duration `validate:"gte=0"`
	DefaultCacheTime time.Duration `validate:"gte=0"`
	Eviction         string        `validate:"omitempty,oneof=lru lfu fifo adaptive"`
	GCInterval       time.Duration `validate:"gte=0"`
	MetricsEnabled   bool

	// ThroughputWindow/ThroughputBuckets size the per-key rolling
	// throughput counters. Defaults: 60s / 12 buckets.
	ThroughputWindow  time.Duration
	ThroughputBuckets int

	Persistence *PersistenceOptions

	// Logger feeds the suture supervisor's structured-event hook. A nil
	// Logger disables it.
	Logger *slog.Logger
}

// PersistenceOptions wires QueryCache to the write-behind persistence
// pipeline: value -> codec.encode -> bytes -> encrypt -> store.Put. Encrypt
// is optional; when it is false, records are persisted without encryption.
// When it is true, both Encryptor and KeyStore must be set, or New returns
// a ValidationError.
type PersistenceOptions struct {
	Store    persistence.PersistentStore
	Codec    *codec.Registry
	Encrypt  bool
	Encryptor security.Encryptor
	KeyStore  security.SecureKeyStore

	// KeyName is the logical name the active encryption key is stored
	// under in KeyStore.
	KeyName string

	// ExpiresAtPolicy controls how a persisted record's ExpiresAt is
	// derived: "none", "ttl" (write time plus the entry's cache time, which
	// is DefaultCacheTime unless the write overrides it), or
	// "explicit" (caller-supplied via WithExpiresAt).
	ExpiresAtPolicy string

	KeyRotationBatchSize int

	// FlushInterval is not read: the write-behind worker has no drain tick
	// and applies each queued job as soon as it arrives.
	FlushInterval time.Duration

	// QueueSize bounds the in-memory write-behind queue. Default: 1024.
	QueueSize int
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.DefaultCacheTime <= 0 {
		c.DefaultCacheTime = 5 * time.Minute
	}
	if c.Eviction == "" {
		c.Eviction = LRU
	}
	if c.GCInterval <= 0 {
		c.GCInterval = 30 * time.Second
	}
	if c.ThroughputWindow <= 0 {
		c.ThroughputWindow = 60 * time.Second
	}
	if c.ThroughputBuckets <= 0 {
		c.ThroughputBuckets = 12
	}
	return c
}
