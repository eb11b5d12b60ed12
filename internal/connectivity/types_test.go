// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package connectivity

import "testing"

func TestParseMode(t *testing.T) {
	tests := []struct {
		input  string
		want   Mode
		wantOK bool
	}{
		{"offline-only", ModeOfflineOnly, true},
		{"assisted", ModeAssisted, true},
		{"connected", ModeConnected, true},
		{"", ModeOfflineOnly, false},
		{"Connected", ModeOfflineOnly, false},
		{"turbo", ModeOfflineOnly, false},
	}

	for _, tt := range tests {
		got, ok := ParseMode(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseMode(%q) = (%s, %v), want (%s, %v)",
				tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestModeValid(t *testing.T) {
	for _, m := range []Mode{ModeOfflineOnly, ModeAssisted, ModeConnected} {
		if !m.Valid() {
			t.Errorf("%s should be valid", m)
		}
	}
	for _, m := range []Mode{"", "turbo", "OFFLINE-ONLY"} {
		if m.Valid() {
			t.Errorf("%q should be invalid", m)
		}
	}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		mode     Mode
		inflight int
		want     Status
	}{
		{ModeOfflineOnly, 0, StatusOffline},
		{ModeOfflineOnly, 3, StatusOffline}, // offline wins over in-flight
		{ModeAssisted, 0, StatusIdle},
		{ModeAssisted, 1, StatusActive},
		{ModeConnected, 0, StatusIdle},
		{ModeConnected, 2, StatusActive},
	}

	for _, tt := range tests {
		if got := deriveStatus(tt.mode, tt.inflight); got != tt.want {
			t.Errorf("deriveStatus(%s, %d) = %s, want %s",
				tt.mode, tt.inflight, got, tt.want)
		}
	}
}

func TestNewRequest_PopulatesIDAndTimestamp(t *testing.T) {
	req := NewRequest("https://api.example.com", "POST", "upload", []byte("body"))

	if req.ID == "" {
		t.Error("ID should be populated")
	}
	if req.Timestamp.IsZero() {
		t.Error("Timestamp should be populated")
	}
	if req.Endpoint != "https://api.example.com" || req.Method != "POST" || req.Intent != "upload" {
		t.Errorf("fields not carried through: %+v", req)
	}

	other := NewRequest("https://api.example.com", "POST", "upload", nil)
	if other.ID == req.ID {
		t.Error("each request needs a distinct ID")
	}
}
