// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"context"
	"errors"
)

// EncryptionError wraps a failure from an Encryptor, distinguishing
// authentication-tag failures (tampered or wrong-key ciphertext) from other
// causes.
type EncryptionError struct {
	Op      string // "encrypt" or "decrypt"
	Reason  string
	Wrapped error
}

func (e *EncryptionError) Error() string {
	if e.Wrapped != nil {
		return "security: " + e.Op + ": " + e.Reason + ": " + e.Wrapped.Error()
	}
	return "security: " + e.Op + ": " + e.Reason
}

func (e *EncryptionError) Unwrap() error { return e.Wrapped }

// ErrAuthenticationFailed indicates the GCM authentication tag did not
// verify — the ciphertext was tampered with or the wrong key was used.
var ErrAuthenticationFailed = errors.New("security: authentication tag verification failed")

// Encryptor encrypts and decrypts byte payloads with an externally supplied
// key, per spec: AES-GCM, 256-bit keys, IV‖ciphertext‖tag framing.
//
// Implementations must offload payloads larger than LargePayloadThreshold
// onto a worker goroutine; the caller still waits for the result.
type Encryptor interface {
	Encrypt(ctx context.Context, plaintext, key []byte) (ciphertext []byte, err error)
	Decrypt(ctx context.Context, ciphertext, key []byte) (plaintext []byte, err error)
}

// LargePayloadThreshold is the size above which Encrypt/Decrypt run on a
// pooled worker goroutine instead of inline.
const LargePayloadThreshold = 50 * 1024 // ~50 KiB

// SecureKeyStore provides platform-specific secure storage for the cache's
// active encryption key. Not all targets support secure storage — callers
// must check IsSupported before relying on Get/Set/Delete.
type SecureKeyStore interface {
	Get(ctx context.Context, name string) ([]byte, bool, error)
	Set(ctx context.Context, name string, key []byte) error
	Has(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error

	// GenerateAndStore creates a new random 256-bit key, stores it under
	// name, and returns it.
	GenerateAndStore(ctx context.Context, name string) ([]byte, error)

	// IsSupported reports whether this store can actually persist keys in
	// the current environment.
	IsSupported() bool
}
