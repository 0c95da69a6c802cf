// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package config provides centralized configuration management for FASQ's
cache, mutation, persistence, and metrics components.

The package loads configuration through Koanf v2, layering struct defaults,
an optional YAML config file, and environment variables.

# Configuration Structure

  - CacheConfig: QueryCache sizing, eviction strategy, GC interval
  - MutationConfig: default offline-queue and retry behavior for Mutation[T]
  - PersistenceConfig: write-behind persistence, encryption, key rotation
  - MetricsConfig: Prometheus metrics namespace and enable flag
  - LoggingConfig: zerolog level, format, caller info

# Environment Variables

All variables are prefixed with FASQ_:

	FASQ_CACHE_MAX_ENTRIES          - cache.max_entries (default: 0, unbounded)
	FASQ_CACHE_MAX_MEMORY_BYTES     - cache.max_memory_bytes (default: 0, unbounded)
	FASQ_CACHE_DEFAULT_STALE_TIME   - cache.default_stale_time (default: 0)
	FASQ_CACHE_DEFAULT_CACHE_TIME   - cache.default_cache_time (default: 5m)
	FASQ_CACHE_EVICTION             - lru, lfu, fifo, adaptive (default: lru)
	FASQ_CACHE_GC_INTERVAL          - cache.gc_interval (default: 30s)
	FASQ_CACHE_METRICS_ENABLED      - cache.metrics_enabled (default: false)

	FASQ_MUTATION_QUEUE_WHEN_OFFLINE - mutation.queue_when_offline (default: false)
	FASQ_MUTATION_MAX_RETRIES        - mutation.max_retries (default: 0)

	FASQ_PERSISTENCE_ENABLED                - persistence.enabled (default: false)
	FASQ_PERSISTENCE_ENCRYPT                - persistence.encrypt (default: false)
	FASQ_PERSISTENCE_EXPIRES_AT_POLICY      - none, ttl, explicit (default: none)
	FASQ_PERSISTENCE_STORE_PATH             - on-disk Badger directory
	FASQ_PERSISTENCE_KEY_ROTATION_BATCH_SIZE - records per rotation batch (default: 50)

	FASQ_METRICS_ENABLED   - metrics.enabled (default: false)
	FASQ_METRICS_NAMESPACE - Prometheus namespace (default: fasq)

	FASQ_LOG_LEVEL  - trace, debug, info, warn, error (default: info)
	FASQ_LOG_FORMAT - json, console (default: json)
	FASQ_LOG_CALLER - true, false (default: false)

# Usage Example

	import "github.com/tomtom215/fasq/internal/config"

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatalf("failed to load config: %v", err)
	}

	c, err := cachepkg.New(cachepkg.Config{
	    MaxEntries:       cfg.Cache.MaxEntries,
	    DefaultStaleTime: cfg.Cache.DefaultStaleTime,
	    DefaultCacheTime: cfg.Cache.DefaultCacheTime,
	    Eviction:         cfg.Cache.Eviction,
	    GCInterval:       cfg.Cache.GCInterval,
	})

# Config File

If present, a YAML file is layered between defaults and environment
variables. The search order is FASQ_CONFIG_PATH, then ./config.yaml,
./config.yml, /etc/fasq/config.yaml, /etc/fasq/config.yml.

	cache:
	  eviction: lfu
	  max_entries: 10000
	persistence:
	  enabled: true
	  encrypt: true
	  store_path: /data/fasq/persist

# Thread Safety

Config is immutable after LoadWithKoanf returns, making it safe for
concurrent access from multiple goroutines without synchronization.
*/
package config
