// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"flag"
)

// RunApply enables, defers or tears down redundancy to match the config.
// It is run at boot and after every configuration push.
func RunApply(args []string) error {
	fs := flag.NewFlagSet("apply", flag.ContinueOnError)
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

	st, err := ctrl.ApplyPolicy(ctx)
	if err != nil {
		return err
	}
	Printer.Println(string(st))
	return nil
}
