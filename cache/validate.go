// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import "reflect"

const maxKeyLength = 255

// validateKey enforces spec.md §4.1's write-path key shape: printable
// characters from [A-Za-z0-9_:-], length 1..=255.
func validateKey(key string) error {
	if len(key) == 0 || len(key) > maxKeyLength {
		return &ValidationError{Field: "key", Value: key, Reason: "length must be between 1 and 255"}
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == ':', r == '-':
		default:
			return &ValidationError{Field: "key", Value: key, Reason: "must match [A-Za-z0-9_:-]"}
		}
	}
	return nil
}

// validateValue rejects callable-type values (spec.md §4.1: "no callable-
// type values"), since a cache entry must be a plain, serializable value.
func validateValue(v any) error {
	if v == nil {
		return nil
	}
	k := reflect.ValueOf(v).Kind()
	if k == reflect.Func || k == reflect.Chan {
		return &ValidationError{Field: "value", Reason: "callable or channel values cannot be cached"}
	}
	return nil
}

// hasPrefixSegment reports whether key is invalidated by prefix under
// spec.md §8 invariant 5: "a:b" matches "a:b:c" but not "a:bc" — the match
// must land on a ':'-separated segment boundary (or be an exact match).
func hasPrefixSegment(key, prefix string) bool {
	if key == prefix {
		return true
	}
	if len(key) <= len(prefix) {
		return false
	}
	return key[:len(prefix)] == prefix && key[len(prefix)] == ':'
}
