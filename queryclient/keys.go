// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package queryclient

import "strings"

// Key joins parts into a QueryKey string using the ":" segment
// separator cache.InvalidateWithPrefix matches on, e.g.
// Key("user", "42", "posts") => "user:42:posts".
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
