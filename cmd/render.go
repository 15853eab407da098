// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"flag"
	"os"
	"path/filepath"

	"grimm.is/vrouter/internal/errors"
	"grimm.is/vrouter/internal/state"
)

// RunRender prints the keepalived and conntrackd configurations the config
// produces, or writes them into -out. Nothing is installed or restarted.
func RunRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	outDir := fs.String("out", "", "Write keepalived.conf and conntrackd.conf into this directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := setup(common)
	if err != nil {
		return err
	}
	defer rt.close()

	ctrl, err := rt.controller(state.NewMemoryStore(), true)
	if err != nil {
		return err
	}
	keepalived, conntrackd, err := ctrl.Render()
	if err != nil {
		return err
	}

	if *outDir == "" {
		Printer.Printf("# %s\n%s\n# %s\n%s", rt.paths.KeepalivedConf, keepalived, rt.paths.ConntrackdConf, conntrackd)
		return nil
	}
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		return errors.Wrapf(err, errors.KindUnavailable, "failed to create %s", *outDir)
	}
	for name, data := range map[string][]byte{
		filepath.Base(rt.paths.KeepalivedConf): keepalived,
		filepath.Base(rt.paths.ConntrackdConf): conntrackd,
	} {
		path := filepath.Join(*outDir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return errors.Wrapf(err, errors.KindUnavailable, "failed to write %s", path)
		}
		Printer.Printf("Wrote %s\n", path)
	}
	return nil
}
