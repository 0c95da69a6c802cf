// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package persistence implements the write-behind storage half of the
// QueryCache persistence pipeline: a bulk-friendly key/value contract
// (PersistentStore) and its concrete Badger-backed implementation.
//
// Encryption and key management live in the sibling security package;
// this package only ever sees already-encrypted bytes.
package persistence

import (
	"context"
	"strconv"
	"time"

	"github.com/tomtom215/fasq/security"
)

// Record is one row of a PersistentStore: the encrypted payload for a
// cache key plus its lifecycle timestamps.
type Record struct {
	CacheKey      string
	EncryptedData []byte // IV ‖ ciphertext ‖ tag
	CreatedAt     time.Time
	ExpiresAt     *time.Time // nil means never expires
}

// PersistenceError is raised by RotateEncryptionKey when one or more rows
// fail to re-encrypt; CacheKeys are never dropped for a failed row, they
// just remain on the old key.
type PersistenceError struct {
	Op         string
	FailedKeys []string
	Wrapped    error
}

func (e *PersistenceError) Error() string {
	return "persistence: " + e.Op + ": " + strconv.Itoa(len(e.FailedKeys)) + " keys failed"
}

func (e *PersistenceError) Unwrap() error { return e.Wrapped }

// PersistentStore is a bulk-friendly key/value store keyed by cache key,
// implemented by BadgerStore. Every method must degrade reads to
// "not found" on corruption rather than panicking.
type PersistentStore interface {
	Get(ctx context.Context, cacheKey string) (Record, bool, error)
	Put(ctx context.Context, rec Record) error
	Delete(ctx context.Context, cacheKey string) error
	Clear(ctx context.Context) error
	Exists(ctx context.Context, cacheKey string) (bool, error)
	GetAllKeys(ctx context.Context) ([]string, error)

	GetMany(ctx context.Context, cacheKeys []string) (map[string]Record, error)
	PutMany(ctx context.Context, recs []Record) error
	DeleteMany(ctx context.Context, cacheKeys []string) error

	// CleanupExpired deletes every row whose ExpiresAt has passed and
	// returns the number removed.
	CleanupExpired(ctx context.Context) (int, error)

	// RotateEncryptionKey re-encrypts every row from oldKey to newKey in
	// batches, calling progress after each row and flushing with PutMany
	// every batchSize rows.
	RotateEncryptionKey(ctx context.Context, oldKey, newKey []byte, enc security.Encryptor, batchSize int, progress func(current, total int)) error

	Close() error
}
