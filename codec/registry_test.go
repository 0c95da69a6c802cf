// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package codec

import (
	"errors"
	"testing"
)

type userProfile struct {
	Name string
	Age  int
}

func TestRegistry_EncodeDecodeRoundTrip(t *testing.T) {
	reg := NewRegistry(nil)
	Register[userProfile](reg, "user_profile")

	want := userProfile{Name: "ada", Age: 30}
	data, err := reg.Encode(want)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := reg.Decode("user_profile", data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.(userProfile) != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestRegistry_UnknownTag(t *testing.T) {
	reg := NewRegistry(nil)
	_, err := reg.Decode("missing", []byte("{}"))

	var tagErr *UnknownTagError
	if !errors.As(err, &tagErr) {
		t.Fatalf("expected *UnknownTagError, got %T (%v)", err, err)
	}
}

func TestRegister_ConflictingTypePanics(t *testing.T) {
	reg := NewRegistry(nil)
	Register[userProfile](reg, "shared")

	defer func() {
		if recover() == nil {
			t.Error("expected panic on conflicting re-registration")
		}
	}()
	Register[int](reg, "shared")
}

func TestRegistry_Tags(t *testing.T) {
	reg := NewRegistry(nil)
	Register[userProfile](reg, "user_profile")
	Register[int](reg, "count")

	tags := reg.Tags()
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(tags))
	}
}
