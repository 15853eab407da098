// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"flag"
	"strings"

	"grimm.is/vrouter/internal/services/ha"
	"grimm.is/vrouter/internal/state"
)

// RunSetRole switches the router to role. keepalived calls it from its
// notify hooks and check_heartbeat.sh calls it with FAULT.
func RunSetRole(role state.Role, args []string) error {
	fs := flag.NewFlagSet(strings.ToLower(string(role)), flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := setup(common)
	if err != nil {
		return err
	}
	defer rt.close()

	ctrl, err := rt.controller(nil, false)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := ctrl.SetRole(ctx, role)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func printResult(res ha.Result) {
	Printer.Printf("%s (version %d, transition %s)\n", res.Record.Role, res.Record.Version, res.TransitionID)
	if len(res.Skipped) > 0 {
		Printer.Printf("  already in place: %s\n", strings.Join(res.Skipped, ", "))
	}
	for _, s := range res.Failed() {
		Printer.Printf("  step %s failed: %v\n", s.Name, s.Err)
	}
}
