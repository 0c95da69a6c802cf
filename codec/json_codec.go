// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package codec

import "github.com/goccy/go-json"

// Codec encodes/decodes values to/from bytes for the persistence write
// path. Implementations must round-trip any value registered with
// Register[T].
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

// JSONCodec implements Codec with goccy/go-json, which the rest of the
// module also uses for its own encode/decode paths (persistence envelopes,
// koanf structs providers).
type JSONCodec struct{}

// NewJSONCodec returns the default Codec.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}
