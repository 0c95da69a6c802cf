// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// aesKeySize is the AES key size in bytes (256 bits).
	aesKeySize = 32

	// gcmNonceSize is the GCM nonce size in bytes.
	gcmNonceSize = 12
)

// AESGCMEncryptor implements Encryptor with AES-256-GCM. Ciphertext is
// framed as nonce‖ciphertext‖tag.
type AESGCMEncryptor struct{}

// NewAESGCMEncryptor returns an Encryptor with no internal key state —
// keys are supplied per call, so they can be rotated without replacing the
// encryptor.
func NewAESGCMEncryptor() *AESGCMEncryptor {
	return &AESGCMEncryptor{}
}

// Encrypt seals plaintext under key. Payloads larger than
// LargePayloadThreshold run on the shared worker pool via RunOnWorker.
func (e *AESGCMEncryptor) Encrypt(ctx context.Context, plaintext, key []byte) ([]byte, error) {
	if len(plaintext) > LargePayloadThreshold {
		return e.encryptOnWorker(ctx, plaintext, key)
	}
	return e.encrypt(plaintext, key)
}

// Decrypt opens ciphertext (nonce‖ciphertext‖tag) with key, returning
// ErrAuthenticationFailed wrapped in an EncryptionError if the tag does not
// verify.
func (e *AESGCMEncryptor) Decrypt(ctx context.Context, ciphertext, key []byte) ([]byte, error) {
	if len(ciphertext) > LargePayloadThreshold {
		return e.decryptOnWorker(ctx, ciphertext, key)
	}
	return e.decrypt(ciphertext, key)
}

func (e *AESGCMEncryptor) gcm(key []byte) (cipher.AEAD, error) {
	if len(key) != aesKeySize {
		return nil, &EncryptionError{Op: "encrypt", Reason: fmt.Sprintf("key must be %d bytes, got %d", aesKeySize, len(key))}
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &EncryptionError{Op: "encrypt", Reason: "failed to create AES cipher", Wrapped: err}
	}
	return cipher.NewGCM(block)
}

func (e *AESGCMEncryptor) encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := e.gcm(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, &EncryptionError{Op: "encrypt", Reason: "failed to generate nonce", Wrapped: err}
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (e *AESGCMEncryptor) decrypt(ciphertext, key []byte) ([]byte, error) {
	gcm, err := e.gcm(key)
	if err != nil {
		return nil, err
	}

	minLen := gcmNonceSize + gcm.Overhead()
	if len(ciphertext) < minLen {
		return nil, &EncryptionError{Op: "decrypt", Reason: "ciphertext shorter than nonce+tag"}
	}

	nonce, sealed := ciphertext[:gcmNonceSize], ciphertext[gcmNonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, &EncryptionError{Op: "decrypt", Reason: "authentication failed", Wrapped: ErrAuthenticationFailed}
	}
	return plaintext, nil
}

func (e *AESGCMEncryptor) encryptOnWorker(ctx context.Context, plaintext, key []byte) ([]byte, error) {
	fn := IsolateFunc(func(in []byte) ([]byte, error) { return e.encrypt(in, key) })
	select {
	case res := <-RunOnWorker(fn, plaintext):
		return res.Output, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *AESGCMEncryptor) decryptOnWorker(ctx context.Context, ciphertext, key []byte) ([]byte, error) {
	fn := IsolateFunc(func(in []byte) ([]byte, error) { return e.decrypt(in, key) })
	select {
	case res := <-RunOnWorker(fn, ciphertext):
		return res.Output, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DeriveKey derives a 256-bit AES key from a passphrase using HKDF-SHA256,
// for callers that want a deterministic key from a secret rather than a
// randomly generated one from SecureKeyStore.GenerateAndStore.
func DeriveKey(secret, salt, info string) ([]byte, error) {
	reader := hkdf.New(sha256.New, []byte(secret), []byte(salt), []byte(info))

	key := make([]byte, aesKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("security: failed to read HKDF output: %w", err)
	}
	return key, nil
}
