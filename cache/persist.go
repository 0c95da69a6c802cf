// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fasq/codec"
	"github.com/tomtom215/fasq/internal/logging"
	"github.com/tomtom215/fasq/persistence"
)

// resolvedPersistence holds a PersistenceOptions plus the currently active
// encryption key (if any), which can change underneath a running cache via
// RotateEncryptionKey.
type resolvedPersistence struct {
	opts PersistenceOptions

	mu  sync.RWMutex
	key []byte
}

func (p *resolvedPersistence) activeKey() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.key
}

func (p *resolvedPersistence) setKey(k []byte) {
	p.mu.Lock()
	p.key = k
	p.mu.Unlock()
}

const defaultKeyName = "fasq-cache-key"

// resolvePersistence validates opts and, if encryption is requested, loads
// or generates the active key from KeyStore.
func resolvePersistence(ctx context.Context, opts PersistenceOptions) (*resolvedPersistence, error) {
	if opts.Store == nil {
		return nil, &ValidationError{Field: "persistence.Store", Reason: "must not be nil"}
	}
	rp := &resolvedPersistence{opts: opts}

	if opts.Encrypt {
		if opts.KeyStore == nil || opts.Encryptor == nil {
			return nil, &ValidationError{Field: "persistence", Reason: "Encrypt requires both KeyStore and Encryptor"}
		}
		name := opts.KeyName
		if name == "" {
			name = defaultKeyName
		}
		key, found, err := opts.KeyStore.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		if !found {
			key, err = opts.KeyStore.GenerateAndStore(ctx, name)
			if err != nil {
				return nil, err
			}
		}
		rp.setKey(key)
	}
	return rp, nil
}

// taggedPayload is the plaintext envelope written to persistence, ahead of
// any encryption: it carries the codec tag alongside the encoded value so
// Restore can decode it back into the right concrete Go type without an
// out-of-band key->type map. persistence.Record itself has no room for a
// type tag (it mirrors spec.md §4.6's on-disk schema exactly), so FASQ
// folds the tag into the payload instead of widening that schema.
type taggedPayload struct {
	Tag  string `json:"tag"`
	Data []byte `json:"data"`
}

type flushJob struct {
	key       string
	data      any
	typeTag   string
	createdAt time.Time
	expiresAt *time.Time
	delete    bool
}

// flushService drains Cache.flushQueue, encoding/encrypting/persisting (or
// deleting) each job. Grounded on the teacher's wal.Compactor run-loop
// shape, adapted to suture's Serve(ctx) contract.
type flushService struct {
	cache *Cache
}

func (s *flushService) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-s.cache.flushQueue:
			s.cache.applyFlush(ctx, job)
		}
	}
}

func (c *Cache) schedulePersist(key string, e *Entry, expiresAt *time.Time) {
	job := flushJob{key: key, data: e.Data(), typeTag: e.TypeTag(), createdAt: e.CreatedAt(), expiresAt: expiresAt}
	select {
	case c.flushQueue <- job:
	default:
		logging.Warn().Str("key", key).Str("cache", c.cfg.Name).Msg("cache persistence queue full, dropping write-behind job")
	}
}

func (c *Cache) persistDelete(key string) {
	select {
	case c.flushQueue <- flushJob{key: key, delete: true}:
	default:
		logging.Warn().Str("key", key).Str("cache", c.cfg.Name).Msg("cache persistence queue full, dropping delete job")
	}
}

func (c *Cache) applyFlush(ctx context.Context, job flushJob) {
	p := c.persistence

	if job.delete {
		if err := p.opts.Store.Delete(ctx, job.key); err != nil {
			logging.Error().Err(err).Str("key", job.key).Msg("cache persistence delete failed")
		}
		return
	}

	if p.opts.Codec == nil {
		logging.Warn().Str("key", job.key).Msg("cache persistence: no codec registry configured, skipping write-behind")
		return
	}

	encoded, err := p.opts.Codec.Encode(job.data)
	if err != nil {
		logging.Error().Err(err).Str("key", job.key).Msg("cache persistence encode failed")
		return
	}

	plaintext, err := json.Marshal(taggedPayload{Tag: job.typeTag, Data: encoded})
	if err != nil {
		logging.Error().Err(err).Str("key", job.key).Msg("cache persistence envelope marshal failed")
		return
	}

	payload := plaintext
	if p.opts.Encrypt {
		ciphertext, err := p.opts.Encryptor.Encrypt(ctx, plaintext, p.activeKey())
		if err != nil {
			logging.Error().Err(err).Str("key", job.key).Msg("cache persistence encrypt failed")
			return
		}
		payload = ciphertext
	}

	rec := persistence.Record{
		CacheKey:      job.key,
		EncryptedData: payload,
		CreatedAt:     job.createdAt,
		ExpiresAt:     job.expiresAt,
	}
	if err := p.opts.Store.Put(ctx, rec); err != nil {
		logging.Error().Err(err).Str("key", job.key).Msg("cache persistence write failed")
	}
}

// Restore loads every row out of the backing store and seeds the cache
// with it as an already-stale entry: per spec.md §4.6, a value read back
// from disk is immediately eligible for a background refresh rather than
// being trusted at face value.
func (c *Cache) Restore(ctx context.Context) (int, error) {
	if c.persistence == nil {
		return 0, nil
	}
	p := c.persistence

	keys, err := p.opts.Store.GetAllKeys(ctx)
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, key := range keys {
		rec, ok, err := p.opts.Store.Get(ctx, key)
		if err != nil || !ok {
			continue
		}

		plaintext := rec.EncryptedData
		if p.opts.Encrypt {
			plaintext, err = p.opts.Encryptor.Decrypt(ctx, rec.EncryptedData, p.activeKey())
			if err != nil {
				logging.Warn().Str("key", key).Err(err).Msg("cache restore: decrypt failed, skipping row")
				continue
			}
		}

		var tp taggedPayload
		if err := json.Unmarshal(plaintext, &tp); err != nil {
			logging.Warn().Str("key", key).Err(err).Msg("cache restore: malformed envelope, skipping row")
			continue
		}

		if p.opts.Codec == nil {
			continue
		}
		value, err := p.opts.Codec.Decode(tp.Tag, tp.Data)
		if err != nil {
			var unknown *codec.UnknownTagError
			if errors.As(err, &unknown) {
				logging.Debug().Str("key", key).Str("tag", tp.Tag).Msg("cache restore: no codec registered for tag, skipping row")
			} else {
				logging.Warn().Str("key", key).Err(err).Msg("cache restore: decode failed, skipping row")
			}
			continue
		}

		c.restoreEntry(key, value, tp.Tag, rec.CreatedAt)
		restored++
	}
	return restored, nil
}

func (c *Cache) restoreEntry(key string, data any, tag string, createdAt time.Time) {
	entry := &Entry{
		key:       key,
		data:      data,
		typeTag:   tag,
		createdAt: createdAt,
		// staleTime 0 means Age() < 0 is never true, so the entry reads
		// back stale immediately regardless of how old it is.
		staleTime: 0,
		cacheTime: c.cfg.DefaultCacheTime,
	}
	entry.Touch()

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	c.currentBytes.Add(entry.EstimatedSize())
	c.inactivity.Push(key, key, entry.LastAccessedAt())
	c.notify(key, EventSet)
}

// RotateEncryptionKey re-encrypts every persisted row under newKey and
// switches the cache over to it. In-memory entries are untouched — only
// the persisted form is re-keyed.
func (c *Cache) RotateEncryptionKey(ctx context.Context, newKey []byte, progress func(current, total int)) error {
	if c.persistence == nil || !c.persistence.opts.Encrypt {
		return &ValidationError{Field: "persistence", Reason: "encryption is not enabled for this cache"}
	}
	p := c.persistence

	oldKey := p.activeKey()
	batch := p.opts.KeyRotationBatchSize
	if batch <= 0 {
		batch = 50
	}
	if err := p.opts.Store.RotateEncryptionKey(ctx, oldKey, newKey, p.opts.Encryptor, batch, progress); err != nil {
		return err
	}

	name := p.opts.KeyName
	if name == "" {
		name = defaultKeyName
	}
	if err := p.opts.KeyStore.Set(ctx, name, newKey); err != nil {
		return err
	}
	p.setKey(newKey)
	return nil
}
