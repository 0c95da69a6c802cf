// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package codec provides the CodecRegistry used by the cache and persistence
packages: generic Register[T] associates a string type tag with a concrete
Go type, so a persisted record can be decoded back into its original type
after a process restart using only the tag stored alongside it.

# Usage

	reg := codec.NewRegistry(nil) // defaults to JSON
	codec.Register[UserProfile](reg, "user_profile")

	data, _ := reg.Encode(profile)
	v, _ := reg.Decode("user_profile", data)
	restored := v.(UserProfile)
*/
package codec
