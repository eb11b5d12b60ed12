// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// ledger.go - In-memory audit ledger of dispatched requests.
//
// The ledger holds only requests that passed policy and completed their
// gateway call. Blocked and canceled attempts never appear here (the
// optional audit sink records those). The ledger does not survive a
// process restart; the persisted audit log is the durable record.

package connectivity

// ledger is an ordered record of dispatched requests. Like the
// allowlist, it is guarded by the Manager's lock, not its own.
type ledger struct {
	entries []Entry
}

// append adds an entry at the tail, preserving chronological order.
func (l *ledger) append(e Entry) {
	l.entries = append(l.entries, e)
}

// history returns a copy of all entries in insertion order.
func (l *ledger) history() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// recent returns the last n entries in insertion order. If fewer than n
// exist, every entry is returned. n <= 0 returns an empty slice.
func (l *ledger) recent(n int) []Entry {
	if n <= 0 {
		return []Entry{}
	}
	start := len(l.entries) - n
	if start < 0 {
		start = 0
	}
	out := make([]Entry, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

// clear empties the ledger. Mode and allowlist are unaffected.
func (l *ledger) clear() {
	l.entries = nil
}

// size returns the number of entries.
func (l *ledger) size() int {
	return len(l.entries)
}
