// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	"github.com/tomtom215/fasq/security"
)

// recordEnvelope is the on-disk JSON shape of a Record, carried alongside
// the encrypted payload so CreatedAt/ExpiresAt survive the badger round
// trip without a second lookup.
type recordEnvelope struct {
	EncryptedData []byte     `json:"encrypted_data"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// BadgerStoreConfig configures BadgerStore's embedded database, adapted
// from the write-ahead-log package's tuning knobs.
type BadgerStoreConfig struct {
	Path             string
	SyncWrites       bool
	Compression      bool
	NumMemtables     int
	BlockCacheSize   int64
	ValueLogFileSize int64
}

// DefaultBadgerStoreConfig returns conservative defaults suitable for a
// single-process cache persistence layer.
func DefaultBadgerStoreConfig(path string) BadgerStoreConfig {
	return BadgerStoreConfig{
		Path:             path,
		SyncWrites:       false,
		Compression:      true,
		NumMemtables:     0,
		BlockCacheSize:   64 << 20,
		ValueLogFileSize: 256 << 20,
	}
}

// BadgerStore implements PersistentStore on dgraph-io/badger/v4.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) the embedded database at cfg.Path.
func OpenBadgerStore(cfg BadgerStoreConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = nil

	if cfg.Compression {
		opts.Compression = options.Snappy
	}
	if cfg.NumMemtables > 0 {
		opts.NumMemtables = cfg.NumMemtables
	}
	if cfg.BlockCacheSize > 0 {
		opts.BlockCacheSize = cfg.BlockCacheSize
	}
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("persistence: open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func encodeEnvelope(rec Record) ([]byte, time.Duration, error) {
	env := recordEnvelope{
		EncryptedData: rec.EncryptedData,
		CreatedAt:     rec.CreatedAt,
		ExpiresAt:     rec.ExpiresAt,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, 0, err
	}

	var ttl time.Duration
	if rec.ExpiresAt != nil {
		if d := time.Until(*rec.ExpiresAt); d > 0 {
			ttl = d
		} else {
			ttl = time.Nanosecond // already expired, let badger reap it on next GC
		}
	}
	return data, ttl, nil
}

func decodeEnvelope(cacheKey string, data []byte) (Record, error) {
	var env recordEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Record{}, err
	}
	return Record{
		CacheKey:      cacheKey,
		EncryptedData: env.EncryptedData,
		CreatedAt:     env.CreatedAt,
		ExpiresAt:     env.ExpiresAt,
	}, nil
}

func (s *BadgerStore) Get(_ context.Context, cacheKey string) (Record, bool, error) {
	var rec Record
	var found bool

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, derr := decodeEnvelope(cacheKey, val)
			if derr != nil {
				return derr
			}
			rec = decoded
			found = true
			return nil
		})
	})
	if err != nil {
		// Corrupted rows degrade to cache-miss rather than propagating.
		return Record{}, false, nil //nolint:nilerr
	}
	return rec, found, nil
}

func (s *BadgerStore) Put(_ context.Context, rec Record) error {
	data, ttl, err := encodeEnvelope(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(rec.CacheKey), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (s *BadgerStore) Delete(_ context.Context, cacheKey string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(cacheKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

func (s *BadgerStore) Clear(_ context.Context) error {
	return s.db.DropAll()
}

func (s *BadgerStore) Exists(_ context.Context, cacheKey string) (bool, error) {
	var exists bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(cacheKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

func (s *BadgerStore) GetAllKeys(_ context.Context) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

func (s *BadgerStore) GetMany(ctx context.Context, cacheKeys []string) (map[string]Record, error) {
	out := make(map[string]Record, len(cacheKeys))
	for _, key := range cacheKeys {
		rec, ok, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			out[key] = rec
		}
	}
	return out, nil
}

func (s *BadgerStore) PutMany(_ context.Context, recs []Record) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, rec := range recs {
		data, ttl, err := encodeEnvelope(rec)
		if err != nil {
			return err
		}
		entry := badger.NewEntry([]byte(rec.CacheKey), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		if err := wb.SetEntry(entry); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (s *BadgerStore) DeleteMany(_ context.Context, cacheKeys []string) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, key := range cacheKeys {
		if err := wb.Delete([]byte(key)); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// CleanupExpired deletes rows whose ExpiresAt has passed. Badger's own TTL
// already reaps most of these during value-log GC; this walks the keyspace
// explicitly so callers get a count. The walk visits all versions, because
// the default iterator hides rows whose native TTL has lapsed; only the
// newest version of each key is considered.
func (s *BadgerStore) CleanupExpired(ctx context.Context) (int, error) {
	now := time.Now()
	var expired []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.AllVersions = true
		it := txn.NewIterator(opts)
		defer it.Close()

		var lastKey string
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			if key == lastKey {
				continue
			}
			lastKey = key
			if item.IsDeletedOrExpired() {
				if item.ExpiresAt() != 0 {
					expired = append(expired, key)
				}
				continue
			}
			err := item.Value(func(val []byte) error {
				rec, derr := decodeEnvelope(key, val)
				if derr != nil {
					return nil //nolint:nilerr // corrupted row: leave it for the next sweep
				}
				if rec.ExpiresAt != nil && rec.ExpiresAt.Before(now) {
					expired = append(expired, key)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(expired) == 0 {
		return 0, nil
	}
	if err := s.DeleteMany(ctx, expired); err != nil {
		return 0, err
	}
	return len(expired), nil
}

// RotateEncryptionKey re-encrypts every row from oldKey to newKey, buffering
// into batches of batchSize and flushing with PutMany between batches, per
// spec.md §4.6's key-rotation algorithm.
func (s *BadgerStore) RotateEncryptionKey(ctx context.Context, oldKey, newKey []byte, enc security.Encryptor, batchSize int, progress func(current, total int)) error {
	if batchSize <= 0 {
		batchSize = 50
	}

	keys, err := s.GetAllKeys(ctx)
	if err != nil {
		return err
	}

	var batch []Record
	var failed []string
	total := len(keys)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.PutMany(ctx, batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for i, key := range keys {
		rec, ok, err := s.Get(ctx, key)
		if err != nil || !ok {
			failed = append(failed, key)
			if progress != nil {
				progress(i+1, total)
			}
			continue
		}

		plaintext, err := enc.Decrypt(ctx, rec.EncryptedData, oldKey)
		if err != nil {
			failed = append(failed, key)
			if progress != nil {
				progress(i+1, total)
			}
			continue
		}

		reencrypted, err := enc.Encrypt(ctx, plaintext, newKey)
		if err != nil {
			failed = append(failed, key)
			if progress != nil {
				progress(i+1, total)
			}
			continue
		}

		rec.EncryptedData = reencrypted
		batch = append(batch, rec)

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}

		if progress != nil {
			progress(i+1, total)
		}
	}

	if err := flush(); err != nil {
		return err
	}

	if len(failed) > 0 {
		return &PersistenceError{Op: "rotate_encryption_key", FailedKeys: failed}
	}
	return nil
}
