// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"time"
)

// Config holds all FASQ configuration loaded from defaults, an optional
// config file, and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in sensible defaults for every field
//  2. Config File: optional YAML config file (config.yaml)
//  3. Environment Variables: override any setting
//
// Example:
//
//	cfg, err := config.LoadWithKoanf()
//	if err != nil {
//	    log.Fatal("failed to load config:", err)
//	}
//	c, err := cache.New(cache.Config{MaxEntries: cfg.Cache.MaxEntries, Eviction: cfg.Cache.Eviction})
//
// Config is immutable after loading and safe for concurrent read access.
type Config struct {
	Cache      CacheConfig      `koanf:"cache"`
	Mutation   MutationConfig   `koanf:"mutation"`
	Persistence PersistenceConfig `koanf:"persistence"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// CacheConfig configures a QueryCache instance. Field names and defaults
// mirror the `{max_entries, max_memory_bytes, default_stale_time,
// default_cache_time, eviction, gc_interval}` configuration recognized by
// QueryCache.
type CacheConfig struct {
	// MaxEntries caps the number of live entries; 0 means unbounded.
	MaxEntries int `koanf:"max_entries"`

	// MaxMemoryBytes caps estimated in-memory size; 0 means unbounded.
	MaxMemoryBytes int64 `koanf:"max_memory_bytes"`

	// DefaultStaleTime is how long a fetched value is considered fresh.
	// Default: 0 (always stale — every access triggers a background revalidation).
	DefaultStaleTime time.Duration `koanf:"default_stale_time"`

	// DefaultCacheTime is how long an inactive entry survives before GC.
	// Default: 5m.
	DefaultCacheTime time.Duration `koanf:"default_cache_time"`

	// Eviction selects the eviction strategy: lru, lfu, fifo, adaptive.
	// Default: lru.
	Eviction string `koanf:"eviction"`

	// GCInterval is the sweep period of the background GC loop.
	// Default: 30s.
	GCInterval time.Duration `koanf:"gc_interval"`

	// MetricsEnabled turns on CacheMetrics collection.
	MetricsEnabled bool `koanf:"metrics_enabled"`
}

// MutationConfig configures the default behavior of Mutation[T] instances
// created through a QueryClient.
type MutationConfig struct {
	// QueueWhenOffline enqueues mutations issued while NetworkStatus reports
	// offline in the OfflineQueueManager instead of running them.
	QueueWhenOffline bool `koanf:"queue_when_offline"`

	// MaxRetries bounds automatic mutation retries. Default: 0 (no retry).
	MaxRetries int `koanf:"max_retries"`
}

// PersistenceConfig configures the write-behind persistence pipeline.
type PersistenceConfig struct {
	// Enabled turns on write-behind persistence of cache entries.
	Enabled bool `koanf:"enabled"`

	// Encrypt wraps persisted records with AES-256-GCM before they reach
	// the PersistentStore.
	Encrypt bool `koanf:"encrypt"`

	// ExpiresAtPolicy controls how a PersistedRecord's expiry is derived:
	// "none", "ttl" (DefaultCacheTime from fetch time), or "explicit"
	// (caller-supplied ExpiresAt).
	ExpiresAtPolicy string `koanf:"expires_at_policy"`

	// StorePath is the on-disk directory for the Badger-backed
	// PersistentStore.
	StorePath string `koanf:"store_path"`

	// KeyRotationBatchSize bounds how many records are re-encrypted per
	// rotation batch.
	KeyRotationBatchSize int `koanf:"key_rotation_batch_size"`
}

// MetricsConfig configures the optional Prometheus metrics surface.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Namespace string `koanf:"namespace"`
}

// LoggingConfig configures the zerolog-backed logging package.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// String renders a compact summary, useful for startup logging.
func (c CacheConfig) String() string {
	return fmt.Sprintf("CacheConfig{MaxEntries:%d, Eviction:%s, GCInterval:%s}", c.MaxEntries, c.Eviction, c.GCInterval)
}
