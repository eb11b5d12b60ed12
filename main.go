// lumen-connect - policy-enforcing network gateway broker for Lumen.
//
// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/lumenlabs/connectivity/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	var err error
	switch cmd {
	case cli.CmdStatus:
		err = cli.HandleStatus(args)
	case cli.CmdMode:
		err = cli.HandleMode(args)
	case cli.CmdOffline:
		err = cli.HandleOffline(args)
	case cli.CmdAllow:
		err = cli.HandleAllow(args)
	case cli.CmdDeny:
		err = cli.HandleDeny(args)
	case cli.CmdAllowlist:
		err = cli.HandleAllowlist(args)
	case cli.CmdCheck:
		err = cli.HandleCheck(args)
	case cli.CmdSend:
		err = cli.HandleSend(args)
	case cli.CmdHistory:
		err = cli.HandleHistory(args)
	case cli.CmdClear:
		err = cli.HandleClear(args)
	case cli.CmdAudit:
		err = cli.HandleAudit(args)
	case cli.CmdWatch:
		err = cli.HandleWatch(args)
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	case cli.CmdUnknown:
		cli.PrintUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
