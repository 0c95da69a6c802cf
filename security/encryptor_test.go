// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"testing"
)

func randomKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, aesKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return key
}

func TestAESGCMEncryptor_RoundTrip(t *testing.T) {
	t.Parallel()

	enc := NewAESGCMEncryptor()
	key := randomKey(t)
	plaintext := []byte("fetched query payload")

	ciphertext, err := enc.Encrypt(context.Background(), plaintext, key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Error("ciphertext must not equal plaintext")
	}

	decrypted, err := enc.Decrypt(context.Background(), ciphertext, key)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("expected %q, got %q", plaintext, decrypted)
	}
}

func TestAESGCMEncryptor_WrongKeyFails(t *testing.T) {
	t.Parallel()

	enc := NewAESGCMEncryptor()
	ciphertext, err := enc.Encrypt(context.Background(), []byte("secret"), randomKey(t))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	_, err = enc.Decrypt(context.Background(), ciphertext, randomKey(t))
	if err == nil {
		t.Fatal("expected decryption with wrong key to fail")
	}
	var encErr *EncryptionError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected *EncryptionError, got %T", err)
	}
}

func TestAESGCMEncryptor_LargePayloadUsesWorker(t *testing.T) {
	t.Parallel()

	enc := NewAESGCMEncryptor()
	key := randomKey(t)
	plaintext := bytes.Repeat([]byte("x"), LargePayloadThreshold+1)

	ciphertext, err := enc.Encrypt(context.Background(), plaintext, key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	decrypted, err := enc.Decrypt(context.Background(), ciphertext, key)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Error("round trip mismatch for large payload")
	}
}

func TestAESGCMEncryptor_TooShortCiphertext(t *testing.T) {
	t.Parallel()

	enc := NewAESGCMEncryptor()
	_, err := enc.Decrypt(context.Background(), []byte("short"), randomKey(t))
	if err == nil {
		t.Fatal("expected error for too-short ciphertext")
	}
}

func TestDeriveKey_Deterministic(t *testing.T) {
	t.Parallel()

	k1, err := DeriveKey("secret", "salt", "info")
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	k2, err := DeriveKey("secret", "salt", "info")
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if !bytes.Equal(k1, k2) {
		t.Error("expected deterministic key derivation")
	}
	if len(k1) != aesKeySize {
		t.Errorf("expected %d byte key, got %d", aesKeySize, len(k1))
	}
}

func TestRunOnWorker_NilFunc(t *testing.T) {
	t.Parallel()

	res := <-RunOnWorker(nil, []byte("x"))
	if !errors.Is(res.Err, ErrIsolateCapture) {
		t.Errorf("expected ErrIsolateCapture, got %v", res.Err)
	}
}
