// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// allowlist.go - Endpoint prefix allowlist for assisted mode.

package connectivity

import "strings"

// allowlist is an ordered, deduplicated set of endpoint prefixes. It is
// not safe for concurrent use on its own; the Manager's lock guards it.
type allowlist struct {
	prefixes []string
}

// add inserts a prefix, preserving insertion order. Duplicate inserts
// and blank prefixes are no-ops, so add is idempotent.
func (a *allowlist) add(prefix string) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return
	}
	for _, existing := range a.prefixes {
		if existing == prefix {
			return
		}
	}
	a.prefixes = append(a.prefixes, prefix)
}

// remove deletes a prefix. Removing an absent prefix is a no-op.
func (a *allowlist) remove(prefix string) bool {
	prefix = strings.TrimSpace(prefix)
	for i, existing := range a.prefixes {
		if existing == prefix {
			a.prefixes = append(a.prefixes[:i], a.prefixes[i+1:]...)
			return true
		}
	}
	return false
}

// matches reports whether any prefix matches the endpoint. Matching is
// simple case-sensitive string prefix matching.
func (a *allowlist) matches(endpoint string) bool {
	for _, prefix := range a.prefixes {
		if strings.HasPrefix(endpoint, prefix) {
			return true
		}
	}
	return false
}

// snapshot returns a copy of the prefixes in insertion order, never the
// live slice.
func (a *allowlist) snapshot() []string {
	out := make([]string, len(a.prefixes))
	copy(out, a.prefixes)
	return out
}

// size returns the number of prefixes.
func (a *allowlist) size() int {
	return len(a.prefixes)
}
