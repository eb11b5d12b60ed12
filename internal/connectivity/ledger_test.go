// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package connectivity

import (
	"fmt"
	"testing"
)

func ledgerEntry(i int) Entry {
	return Entry{
		ID:      fmt.Sprintf("entry-%d", i),
		Request: Request{Endpoint: fmt.Sprintf("https://api.example.com/%d", i)},
	}
}

func TestLedger_AppendPreservesOrder(t *testing.T) {
	var l ledger
	for i := 0; i < 3; i++ {
		l.append(ledgerEntry(i))
	}

	got := l.history()
	if len(got) != 3 {
		t.Fatalf("history len = %d, want 3", len(got))
	}
	for i, e := range got {
		if e.ID != fmt.Sprintf("entry-%d", i) {
			t.Errorf("history[%d].ID = %q", i, e.ID)
		}
	}
}

func TestLedger_Recent(t *testing.T) {
	var l ledger
	for i := 0; i < 5; i++ {
		l.append(ledgerEntry(i))
	}

	tests := []struct {
		n         int
		wantLen   int
		wantFirst string
	}{
		{3, 3, "entry-2"},
		{5, 5, "entry-0"},
		{10, 5, "entry-0"},
		{1, 1, "entry-4"},
		{0, 0, ""},
		{-1, 0, ""},
	}

	for _, tt := range tests {
		got := l.recent(tt.n)
		if len(got) != tt.wantLen {
			t.Errorf("recent(%d) len = %d, want %d", tt.n, len(got), tt.wantLen)
			continue
		}
		if tt.wantLen > 0 && got[0].ID != tt.wantFirst {
			t.Errorf("recent(%d)[0].ID = %q, want %q", tt.n, got[0].ID, tt.wantFirst)
		}
	}
}

func TestLedger_Clear(t *testing.T) {
	var l ledger
	l.append(ledgerEntry(0))
	l.clear()

	if l.size() != 0 {
		t.Errorf("size after clear = %d, want 0", l.size())
	}
	if len(l.history()) != 0 {
		t.Error("history after clear should be empty")
	}
}

func TestLedger_HistoryIsACopy(t *testing.T) {
	var l ledger
	l.append(ledgerEntry(0))

	h := l.history()
	h[0].ID = "tampered"

	if l.history()[0].ID != "entry-0" {
		t.Error("mutating a history copy must not affect the ledger")
	}
}
