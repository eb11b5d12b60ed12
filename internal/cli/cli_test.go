// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		args     []string
		wantCmd  Command
		wantRest []string
	}{
		{[]string{}, CmdStatus, nil},
		{[]string{"status"}, CmdStatus, nil},
		{[]string{"s"}, CmdStatus, nil},
		{[]string{"mode", "set", "connected"}, CmdMode, []string{"set", "connected"}},
		{[]string{"offline"}, CmdOffline, nil},
		{[]string{"kill"}, CmdOffline, nil},
		{[]string{"allow", "https://api.example.com"}, CmdAllow, []string{"https://api.example.com"}},
		{[]string{"deny", "https://api.example.com"}, CmdDeny, []string{"https://api.example.com"}},
		{[]string{"allowlist"}, CmdAllowlist, nil},
		{[]string{"allowed"}, CmdAllowlist, nil},
		{[]string{"check", "https://x.example.com"}, CmdCheck, []string{"https://x.example.com"}},
		{[]string{"send", "https://x.example.com"}, CmdSend, []string{"https://x.example.com"}},
		{[]string{"history", "--lines", "5"}, CmdHistory, []string{"--lines", "5"}},
		{[]string{"clear"}, CmdClear, nil},
		{[]string{"audit"}, CmdAudit, nil},
		{[]string{"watch"}, CmdWatch, nil},
		{[]string{"version"}, CmdVersion, nil},
		{[]string{"--version"}, CmdVersion, nil},
		{[]string{"help"}, CmdHelp, nil},
		{[]string{"-h"}, CmdHelp, nil},
		{[]string{"bogus"}, CmdUnknown, nil},
	}

	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	for _, tt := range tests {
		os.Args = append([]string{"lumen-connect"}, tt.args...)
		cmd, rest := Parse()
		if cmd != tt.wantCmd {
			t.Errorf("Parse(%v) cmd = %d, want %d", tt.args, cmd, tt.wantCmd)
		}
		if len(rest) != len(tt.wantRest) {
			t.Errorf("Parse(%v) rest = %v, want %v", tt.args, rest, tt.wantRest)
			continue
		}
		for i := range rest {
			if rest[i] != tt.wantRest[i] {
				t.Errorf("Parse(%v) rest[%d] = %q, want %q", tt.args, i, rest[i], tt.wantRest[i])
			}
		}
	}
}
