// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import "testing"

func TestArgParser_Positionals(t *testing.T) {
	p := NewArgParser([]string{"set", "connected"})

	if got := p.Subcommand(); got != "set" {
		t.Errorf("Subcommand() = %q, want %q", got, "set")
	}
	if got := p.Positional(1); got != "connected" {
		t.Errorf("Positional(1) = %q, want %q", got, "connected")
	}
	if got := p.Positional(2); got != "" {
		t.Errorf("Positional(2) = %q, want empty", got)
	}
	if got := p.Positional(-1); got != "" {
		t.Errorf("Positional(-1) = %q, want empty", got)
	}
}

func TestArgParser_FlagForms(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		flag string
		want string
	}{
		{"space form", []string{"--intent", "fetch docs"}, "intent", "fetch docs"},
		{"equals form", []string{"--intent=fetch docs"}, "intent", "fetch docs"},
		{"lookup with dashes", []string{"--method", "POST"}, "--method", "POST"},
		{"absent flag", []string{}, "intent", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.raw)
			if got := p.Flag(tt.flag); got != tt.want {
				t.Errorf("Flag(%q) = %q, want %q", tt.flag, got, tt.want)
			}
		})
	}
}

func TestArgParser_BoolFlags(t *testing.T) {
	p := NewArgParser([]string{"https://api.example.com", "--json"})

	if !p.BoolFlag("json") {
		t.Error("bare --json should be a true bool flag")
	}
	if p.BoolFlag("verbose") {
		t.Error("absent bool flag should be false")
	}
	if got := p.Positional(0); got != "https://api.example.com" {
		t.Errorf("Positional(0) = %q", got)
	}

	p = NewArgParser([]string{"--json=false"})
	if p.BoolFlag("json") {
		t.Error("--json=false should be false")
	}
}

func TestArgParser_MixedFlagsAndPositionals(t *testing.T) {
	p := NewArgParser([]string{"https://api.example.com/data", "--method", "POST", "--data", `{"v":1}`, "--intent=upload", "--json"})

	if got := p.Positional(0); got != "https://api.example.com/data" {
		t.Errorf("Positional(0) = %q", got)
	}
	if got := p.Flag("method"); got != "POST" {
		t.Errorf("Flag(method) = %q", got)
	}
	if got := p.Flag("data"); got != `{"v":1}` {
		t.Errorf("Flag(data) = %q", got)
	}
	if got := p.Flag("intent"); got != "upload" {
		t.Errorf("Flag(intent) = %q", got)
	}
	if !p.BoolFlag("json") {
		t.Error("trailing --json should be true")
	}
}

func TestArgParser_FlagIntOrDefault(t *testing.T) {
	tests := []struct {
		raw  []string
		want int
	}{
		{[]string{"--lines", "25"}, 25},
		{[]string{"--lines", "abc"}, 10},
		{[]string{}, 10},
	}

	for _, tt := range tests {
		p := NewArgParser(tt.raw)
		if got := p.FlagIntOrDefault("lines", 10); got != tt.want {
			t.Errorf("FlagIntOrDefault(%v) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
