// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command routing for lumen-connect.
package cli

import (
	"fmt"
	"os"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdStatus Command = iota
	CmdMode
	CmdOffline
	CmdAllow
	CmdDeny
	CmdAllowlist
	CmdCheck
	CmdSend
	CmdHistory
	CmdClear
	CmdAudit
	CmdWatch
	CmdVersion
	CmdHelp
	CmdUnknown
)

const usageText = `lumen-connect - connectivity broker for the Lumen assistant

Every outbound request Lumen makes passes through this broker. It
enforces the persisted trust mode, keeps an audit ledger, and never
fails open.

Usage:
  lumen-connect status               Show mode, status, and counters
  lumen-connect mode [show|set <m>]  Show or set the trust mode
                                     Modes: offline-only, assisted, connected
  lumen-connect offline              Kill switch: force offline-only now
  lumen-connect allow <prefix>       Add an endpoint prefix to the allowlist
  lumen-connect deny <prefix>        Remove an endpoint prefix
  lumen-connect allowlist            List allowed endpoint prefixes
  lumen-connect check <url> --intent "why"
                                     Evaluate policy without dispatching
  lumen-connect send <url> --intent "why"
    --method GET|POST|...            HTTP method (default: GET)
    --data <body>                    Request body
                                     Dispatch a request through the broker
  lumen-connect history [--lines N]  Show this session's request ledger
  lumen-connect clear                Clear the session ledger
  lumen-connect audit [--lines N]    Show recent audit log entries
  lumen-connect watch                Follow broker events until interrupted
  lumen-connect version              Show version
  lumen-connect help                 Show this help

Flags:
  --json                             Output in JSON format

Environment:
  LUMEN_MODE_STORE                   Override the mode store path
  LUMEN_AUDIT_LOG                    Override the audit log path
`

// Parse maps os.Args to a command and its remaining arguments.
func Parse() (Command, []string) {
	args := os.Args[1:]
	if len(args) == 0 {
		return CmdStatus, nil
	}

	cmd := args[0]
	rest := args[1:]

	switch cmd {
	case "status", "s":
		return CmdStatus, rest
	case "mode":
		return CmdMode, rest
	case "offline", "kill":
		return CmdOffline, rest
	case "allow":
		return CmdAllow, rest
	case "deny":
		return CmdDeny, rest
	case "allowlist", "allowed":
		return CmdAllowlist, rest
	case "check":
		return CmdCheck, rest
	case "send":
		return CmdSend, rest
	case "history":
		return CmdHistory, rest
	case "clear":
		return CmdClear, rest
	case "audit":
		return CmdAudit, rest
	case "watch":
		return CmdWatch, rest
	case "version", "-v", "--version":
		return CmdVersion, rest
	case "help", "-h", "--help":
		return CmdHelp, rest
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		return CmdUnknown, rest
	}
}

// PrintUsage writes the usage text to stdout.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion writes version information to stdout.
func PrintVersion() {
	fmt.Printf("lumen-connect %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
