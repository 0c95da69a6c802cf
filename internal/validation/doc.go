// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library to provide a thread-safe
// singleton validator instance (built-in tags only; no custom validators are
// registered) and user-friendly error messages. cache.New and query.New
// validate their options through it.
//
// # Overview
//
// The package provides:
//   - Thread-safe singleton validator (initialized once, cached struct info)
//   - Comprehensive error translation to human-readable messages
//   - APIError conversion for consistent error shapes
//   - Built-in validator support (oneof, gte/lte, base64url, datetime, etc.)
//   - Future v11 compatibility with WithRequiredStructEnabled
//
// # Quick Start
//
//	type QueryOptionsRequest struct {
//	    StaleTime time.Duration `validate:"gte=0"`
//	    CacheTime time.Duration `validate:"gte=0"`
//	    Eviction  string        `validate:"omitempty,oneof=lru lfu fifo adaptive"`
//	}
//
//	func configureQuery(opts QueryOptionsRequest) error {
//	    if verr := validation.ValidateStruct(&opts); verr != nil {
//	        return verr.ToAPIError()
//	    }
//	    // proceed with valid options
//	    return nil
//	}
//
// # Common Validation Tags
//
// String validations:
//   - required: Field must not be empty
//   - min=n: Minimum length n characters
//   - max=n: Maximum length n characters
//   - base64url: URL-safe base64 encoding (InfiniteQuery page cursors)
//
// Numeric validations:
//   - gte=n: Greater than or equal to n
//   - lte=n: Less than or equal to n
//   - gt=n: Greater than n
//   - lt=n: Less than n
//   - min=n: Minimum value n
//   - max=n: Maximum value n
//
// Enum validations:
//   - oneof=a b c: Must be one of the specified values (eviction policy, expiry policy)
//
// # Error Types
//
// ValidationError represents a single field validation failure:
//
//	type ValidationError struct {
//	    Field()   string      // Struct field name
//	    Tag()     string      // Validation tag that failed
//	    Param()   string      // Tag parameter (e.g., "100" for max=100)
//	    Value()   interface{} // Actual value that failed
//	    Error()   string      // Human-readable message
//	}
//
// RequestValidationError aggregates multiple field errors:
//
//	type RequestValidationError struct {
//	    Errors() []ValidationError
//	    Error()  string           // Combined message
//	    ToAPIError() *APIError    // Convert to API error format
//	}
//
// # API Error Integration
//
// The ToAPIError method produces a stable error shape:
//
//	// Single field error
//	{
//	    "code": "VALIDATION_ERROR",
//	    "message": "Eviction must be one of: lru lfu fifo adaptive",
//	    "details": {"field": "Eviction", "tag": "oneof"}
//	}
//
//	// Multiple field errors
//	{
//	    "code": "VALIDATION_ERROR",
//	    "message": "StaleTime: must be greater than or equal to 0; Eviction: must be one of: lru lfu fifo adaptive",
//	    "details": {
//	        "fields": [
//	            {"field": "StaleTime", "tag": "gte", "message": "..."},
//	            {"field": "Eviction", "tag": "oneof", "message": "..."}
//	        ]
//	    }
//	}
//
// # Error Message Translation
//
// Human-readable messages are generated for common validation tags:
//
//	required   -> "MaxEntries is required"
//	min=1      -> "MaxEntries must be at least 1"
//	max=100    -> "KeyRotationBatchSize must be at most 100"
//	gte=0      -> "StaleTime must be greater than or equal to 0"
//	lte=1000   -> "MaxEntries must be less than or equal to 1000"
//	oneof=a b  -> "Eviction must be one of: a b"
//
// # Struct Tag Examples
//
// Cache configuration validation:
//
//	type CacheConfig struct {
//	    MaxEntries int    `validate:"gte=0"`
//	    Eviction   string `validate:"omitempty,oneof=lru lfu fifo adaptive"`
//	}
//
// Infinite query page-param cursor validation:
//
//	type PageRequest struct {
//	    Cursor string `validate:"omitempty,base64url"`
//	}
//
// # Thread Safety
//
// The singleton validator is initialized once and safe for concurrent use:
//
//	validate := validation.GetValidator()  // Thread-safe
//	err := validation.ValidateStruct(&req) // Thread-safe
//
// # Performance
//
// The validator caches struct reflection information:
//   - First validation of a struct type: ~1ms (reflection + caching)
//   - Subsequent validations: ~10us (cached)
//   - Memory: ~500 bytes per cached struct type
//
// # See Also
//
//   - internal/config: configuration that is validated through this package
//   - github.com/go-playground/validator/v10: Underlying library
package validation
