// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package persistence

import (
	"context"
	"crypto/rand"
	"io"
	"testing"
	"time"

	"github.com/tomtom215/fasq/security"
)

func newTestBadgerStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := OpenBadgerStore(DefaultBadgerStoreConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("OpenBadgerStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func randomKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return key
}

func TestBadgerStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestBadgerStore(t)

	rec := Record{
		CacheKey:      "user:1",
		EncryptedData: []byte("ciphertext"),
		CreatedAt:     time.Now(),
	}
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := store.Get(ctx, "user:1")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if string(got.EncryptedData) != "ciphertext" {
		t.Errorf("expected ciphertext, got %q", got.EncryptedData)
	}

	if err := store.Delete(ctx, "user:1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	_, ok, err = store.Get(ctx, "user:1")
	if err != nil {
		t.Fatalf("Get after delete failed: %v", err)
	}
	if ok {
		t.Error("expected record to be gone after Delete")
	}
}

func TestBadgerStore_PutManyGetMany(t *testing.T) {
	ctx := context.Background()
	store := newTestBadgerStore(t)

	recs := []Record{
		{CacheKey: "a", EncryptedData: []byte("a-data"), CreatedAt: time.Now()},
		{CacheKey: "b", EncryptedData: []byte("b-data"), CreatedAt: time.Now()},
	}
	if err := store.PutMany(ctx, recs); err != nil {
		t.Fatalf("PutMany failed: %v", err)
	}

	got, err := store.GetMany(ctx, []string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("GetMany failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
}

func TestBadgerStore_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	store := newTestBadgerStore(t)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	if err := store.Put(ctx, Record{CacheKey: "expired", EncryptedData: []byte("x"), CreatedAt: past, ExpiresAt: &past}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, Record{CacheKey: "live", EncryptedData: []byte("x"), CreatedAt: time.Now(), ExpiresAt: &future}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	removed, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 expired row removed, got %d", removed)
	}

	_, ok, _ := store.Get(ctx, "live")
	if !ok {
		t.Error("expected live record to survive cleanup")
	}
}

func TestBadgerStore_RotateEncryptionKey(t *testing.T) {
	ctx := context.Background()
	store := newTestBadgerStore(t)
	enc := security.NewAESGCMEncryptor()

	oldKey := randomKey(t)
	newKey := randomKey(t)

	for i := 0; i < 3; i++ {
		plaintext := []byte("payload")
		ciphertext, err := enc.Encrypt(ctx, plaintext, oldKey)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		key := string(rune('a' + i))
		if err := store.Put(ctx, Record{CacheKey: key, EncryptedData: ciphertext, CreatedAt: time.Now()}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	var progressCalls int
	err := store.RotateEncryptionKey(ctx, oldKey, newKey, enc, 2, func(current, total int) {
		progressCalls++
		if current > total {
			t.Errorf("current %d exceeds total %d", current, total)
		}
	})
	if err != nil {
		t.Fatalf("RotateEncryptionKey failed: %v", err)
	}
	if progressCalls != 3 {
		t.Errorf("expected 3 progress callbacks, got %d", progressCalls)
	}

	rec, ok, err := store.Get(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	plaintext, err := enc.Decrypt(ctx, rec.EncryptedData, newKey)
	if err != nil {
		t.Fatalf("expected rotated record to decrypt with new key: %v", err)
	}
	if string(plaintext) != "payload" {
		t.Errorf("expected 'payload', got %q", plaintext)
	}

	if _, err := enc.Decrypt(ctx, rec.EncryptedData, oldKey); err == nil {
		t.Error("expected rotated record to no longer decrypt with old key")
	}
}
