// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where a config file is searched for,
// in priority order. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/fasq/config.yaml",
	"/etc/fasq/config.yml",
}

// ConfigPathEnvVar is the environment variable that overrides the config
// file search path.
const ConfigPathEnvVar = "FASQ_CONFIG_PATH"

// defaultConfig returns a Config populated with the defaults named in the
// cache, persistence, and metrics configuration surface.
func defaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			MaxEntries:       0,
			MaxMemoryBytes:   0,
			DefaultStaleTime: 0,
			DefaultCacheTime: 5 * time.Minute,
			Eviction:         "lru",
			GCInterval:       30 * time.Second,
			MetricsEnabled:   false,
		},
		Mutation: MutationConfig{
			QueueWhenOffline: false,
			MaxRetries:       0,
		},
		Persistence: PersistenceConfig{
			Enabled:              false,
			Encrypt:              false,
			ExpiresAtPolicy:      "none",
			StorePath:            "/data/fasq/persist",
			KeyRotationBatchSize: 50,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "fasq",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config File: optional YAML file (if present)
//  3. Environment Variables: override any setting (highest priority)
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("FASQ_", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps FASQ_-prefixed environment variable names to koanf
// config paths.
//
// Examples:
//   - FASQ_CACHE_MAX_ENTRIES -> cache.max_entries
//   - FASQ_CACHE_EVICTION -> cache.eviction
//   - FASQ_PERSISTENCE_ENABLED -> persistence.enabled
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, "FASQ_"))

	envMappings := map[string]string{
		"cache_max_entries":        "cache.max_entries",
		"cache_max_memory_bytes":   "cache.max_memory_bytes",
		"cache_default_stale_time": "cache.default_stale_time",
		"cache_default_cache_time": "cache.default_cache_time",
		"cache_eviction":           "cache.eviction",
		"cache_gc_interval":        "cache.gc_interval",
		"cache_metrics_enabled":    "cache.metrics_enabled",

		"mutation_queue_when_offline": "mutation.queue_when_offline",
		"mutation_max_retries":        "mutation.max_retries",

		"persistence_enabled":                  "persistence.enabled",
		"persistence_encrypt":                  "persistence.encrypt",
		"persistence_expires_at_policy":         "persistence.expires_at_policy",
		"persistence_store_path":               "persistence.store_path",
		"persistence_key_rotation_batch_size":   "persistence.key_rotation_batch_size",

		"metrics_enabled":   "metrics.enabled",
		"metrics_namespace": "metrics.namespace",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// GetKoanfInstance returns a new Koanf instance for advanced usage, such as
// hot-reload scenarios guarded by the caller's own mutex.
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}

// WatchConfigFile sets up a file watcher for hot-reload capability.
//
//	err := config.WatchConfigFile(path, func() {
//	    newCfg, err := config.LoadWithKoanf()
//	    ...
//	})
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)
	return provider.Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
