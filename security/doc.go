// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package security implements the cryptographic half of FASQ's persistence
pipeline: the Encryptor and SecureKeyStore contracts used when a QueryCache
is configured with Persistence.Encrypt.

The storage half — PersistentStore and its Badger-backed implementation —
lives in the sibling persistence package, which imports this package only
for the Encryptor interface (key rotation re-encrypts through it).

# Write Path

	value -> codec.Encode -> bytes -> Encryptor.Encrypt -> ciphertext -> persistence.PersistentStore.Put

# Read Path

The read path reverses the chain. Cache.Restore skips a row whose store
lookup, decrypt, or decode fails, logging the decrypt and decode failures;
it returns an error only when listing the stored keys fails.

# Encryption

AESGCMEncryptor implements AES-256-GCM. Ciphertext is encoded as
nonce‖ciphertext‖tag. Payloads larger than LargePayloadThreshold are
encrypted on a pooled worker goroutine (see RunOnWorker); the caller waits
for the result unless its context is done first.

# Key Storage

SecureKeyStore abstracts platform-specific secure key storage. FileKeyStore
is the only on-disk implementation shipped here (a permission-restricted
file under a caller-supplied directory); InMemoryKeyStore exists for tests
and for hosts that manage their own key material. FileKeyStore.IsSupported
reports false when its directory is missing or is not a directory.
*/
package security
