// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"flag"

	"grimm.is/vrouter/internal/config"
	"grimm.is/vrouter/internal/network"
)

// RunConfigValidate loads and validates a config and prints how each
// address is classified, without touching the system.
func RunConfigValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigFile(), "Path to the appliance config (HCL or JSON)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}
	ifaces, err := network.FromConfig(cfg)
	if err != nil {
		return err
	}

	Printer.Printf("Configuration is valid: %s\n", cfg)
	Printer.Printf("Primary public device: %s\n", cfg.PrimaryPublic())
	for _, i := range ifaces {
		vrrp := ""
		if i.NeedsVRRP() {
			vrrp = " vrrp"
		}
		added := ""
		if !i.Added {
			added = " (removed)"
		}
		Printer.Printf("  %-6s %-8s %s%s%s\n", i.Device, i.Class, i.CIDR(), vrrp, added)
	}
	return nil
}
