// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command vrouter is the redundancy controller of a virtual router pair.
// keepalived invokes it on every VRRP state change; the configuration agent
// invokes "apply" after every configuration push.
package main

import (
	"flag"
	"os"

	"grimm.is/vrouter/cmd"
	"grimm.is/vrouter/internal/errors"
	"grimm.is/vrouter/internal/state"
)

const usage = `Usage: vrouter <command> [flags]

Commands:
  apply      Enable, defer or disable redundancy to match the config
  master     Switch to MASTER (keepalived notify_master)
  backup     Switch to BACKUP (keepalived notify_backup)
  fault      Switch to FAULT (keepalived notify_fault, heartbeat check)
  status     Show the persisted role and daemon state
  render     Print the keepalived and conntrackd configs without installing
  validate   Check a config file

Common flags:
  -config path     Appliance config (default /etc/vrouter/vrouter.hcl, or $VROUTER_CONFIG)
  -log-level lvl   debug, info, warn or error
`

func main() {
	if len(os.Args) < 2 {
		cmd.Printer.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	sub, args := os.Args[1], os.Args[2:]
	_ = cmd.SetProcessName("vrouter-" + sub)

	var err error
	switch sub {
	case "apply":
		err = cmd.RunApply(args)
	case "master", "backup", "fault":
		role, _ := state.ParseRole(sub)
		err = cmd.RunSetRole(role, args)
	case "status":
		err = cmd.RunStatus(args)
	case "render":
		err = cmd.RunRender(args)
	case "validate":
		err = cmd.RunConfigValidate(args)
	case "help", "-h", "-help", "--help":
		cmd.Printer.Fprint(os.Stdout, usage)
		return
	default:
		cmd.Printer.Fprintf(os.Stderr, "unknown command %q\n\n%s", sub, usage)
		os.Exit(2)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		kind := errors.GetKind(err)
		cmd.Printer.Fprintf(os.Stderr, "vrouter %s: %v\n", sub, err)
		cmd.Printer.Fprintf(os.Stderr, "  kind: %s, retryable: %t\n", kind, kind.Retryable())
		if attrs := errors.GetAttributes(err); len(attrs) > 0 {
			cmd.Printer.Fprintf(os.Stderr, "  details: %v\n", attrs)
		}
		os.Exit(1)
	}
}
