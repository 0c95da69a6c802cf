// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import "fmt"

// Validate checks that the loaded configuration is internally consistent.
func (c *Config) Validate() error {
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateMutation(); err != nil {
		return err
	}
	if err := c.validatePersistence(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCache() error {
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must be >= 0, got %d", c.Cache.MaxEntries)
	}
	if c.Cache.MaxMemoryBytes < 0 {
		return fmt.Errorf("cache.max_memory_bytes must be >= 0, got %d", c.Cache.MaxMemoryBytes)
	}
	if c.Cache.DefaultCacheTime < 0 {
		return fmt.Errorf("cache.default_cache_time must be >= 0, got %s", c.Cache.DefaultCacheTime)
	}
	if c.Cache.GCInterval <= 0 {
		return fmt.Errorf("cache.gc_interval must be > 0, got %s", c.Cache.GCInterval)
	}
	switch c.Cache.Eviction {
	case "lru", "lfu", "fifo", "adaptive":
	default:
		return fmt.Errorf("cache.eviction must be one of lru, lfu, fifo, adaptive; got %q", c.Cache.Eviction)
	}
	return nil
}

func (c *Config) validateMutation() error {
	if c.Mutation.MaxRetries < 0 {
		return fmt.Errorf("mutation.max_retries must be >= 0, got %d", c.Mutation.MaxRetries)
	}
	return nil
}

func (c *Config) validatePersistence() error {
	if !c.Persistence.Enabled {
		return nil
	}
	if c.Persistence.StorePath == "" {
		return fmt.Errorf("persistence.store_path is required when persistence.enabled=true")
	}
	switch c.Persistence.ExpiresAtPolicy {
	case "none", "ttl", "explicit":
	default:
		return fmt.Errorf("persistence.expires_at_policy must be one of none, ttl, explicit; got %q", c.Persistence.ExpiresAtPolicy)
	}
	if c.Persistence.KeyRotationBatchSize < 0 {
		return fmt.Errorf("persistence.key_rotation_batch_size must be >= 0, got %d", c.Persistence.KeyRotationBatchSize)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled", "":
	default:
		return fmt.Errorf("logging.level %q is not a recognized zerolog level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console", "":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
