// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package codec implements the tagged-variant serialization registry used
// by QueryCache's persistence path (Cache.Get[T] does not consult it; it
// checks the stored value's Go type directly): a persisted value is stored
// alongside a string type tag, so a process
// restart that rehydrates persisted records can decode each one into its
// original concrete type without a side channel carrying Go type
// information.
package codec

import (
	"fmt"
	"reflect"
	"sync"
)

// UnknownTagError is returned by Decode when no type is registered under tag.
type UnknownTagError struct {
	Tag string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("codec: unknown type tag %q", e.Tag)
}

// TagMismatchError describes a requested tag that does not match the tag a
// cache entry was stored under. No function in this module returns it.
type TagMismatchError struct {
	Want string
	Got  string
}

func (e *TagMismatchError) Error() string {
	return fmt.Sprintf("codec: type tag mismatch: want %q, got %q", e.Want, e.Got)
}

// Registry maps string type tags to concrete Go types, and serializes
// values through an underlying Codec (JSONCodec by default).
type Registry struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
	codec Codec
}

// NewRegistry creates an empty Registry using codec for encode/decode. A nil
// codec defaults to NewJSONCodec().
func NewRegistry(c Codec) *Registry {
	if c == nil {
		c = NewJSONCodec()
	}
	return &Registry{
		types: make(map[string]reflect.Type),
		codec: c,
	}
}

// Register associates tag with the type of zero. Re-registering the same
// tag with a different type panics, since it would silently corrupt
// previously persisted records on decode.
func Register[T any](r *Registry, tag string) {
	var zero T
	t := reflect.TypeOf(zero)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.types[tag]; ok && existing != t {
		panic(fmt.Sprintf("codec: tag %q already registered to %s, cannot re-register to %s", tag, existing, t))
	}
	r.types[tag] = t
}

// Tags returns every registered type tag, for diagnostics.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.types))
	for tag := range r.types {
		tags = append(tags, tag)
	}
	return tags
}

// Encode serializes v to bytes via the underlying codec. The tag is not
// consulted here — it is carried alongside the bytes by the caller (cache
// entry metadata), not embedded in the payload.
func (r *Registry) Encode(v any) ([]byte, error) {
	return r.codec.Encode(v)
}

// Decode deserializes data into a new value of the type registered under
// tag. Returns *UnknownTagError if tag was never registered.
func (r *Registry) Decode(tag string, data []byte) (any, error) {
	r.mu.RLock()
	t, ok := r.types[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownTagError{Tag: tag}
	}

	ptr := reflect.New(t)
	if err := r.codec.Decode(data, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}
