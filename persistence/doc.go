// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package persistence implements the storage half of QueryCache's
write-behind persistence pipeline, adapted from the write-ahead-log
package's Badger wiring.

BadgerStore is the shipped PersistentStore: Badger key = cache key, Badger
value = a small JSON envelope carrying the already-encrypted payload plus
created_at/expires_at, so Get/GetMany don't need a second lookup for
lifecycle metadata. expires_at is additionally set as Badger's native
per-entry TTL, so expired rows are reclaimed by Badger's own value-log GC
in addition to the explicit CleanupExpired sweep.

RotateEncryptionKey batches re-encryption in groups (flushed via PutMany
between batches) and reports progress via a callback, exactly as FASQ's
key-rotation procedure requires: every row not yet rotated keeps working
under the old key, and a row that fails to re-encrypt is reported in
PersistenceError.FailedKeys rather than aborting the whole rotation.
*/
package persistence
