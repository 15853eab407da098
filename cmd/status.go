// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"encoding/json"
	"flag"
	"os"
)

// RunStatus prints the persisted role and daemon liveness. With -role only
// the role name is printed, which is what checkrouter.sh parses.
func RunStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	roleOnly := fs.Bool("role", false, "Print only the role")
	asJSON := fs.Bool("json", false, "Print the full status as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := setup(common)
	if err != nil {
		return err
	}
	defer rt.close()

	ctrl, err := rt.controller(nil, true)
	if err != nil {
		return err
	}
	st, err := ctrl.Status()
	if err != nil {
		return err
	}

	switch {
	case *roleOnly:
		Printer.Println(string(st.Record.Role))
	case *asJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	default:
		Printer.Printf("Router:      %s\n", st.Name)
		Printer.Printf("Redundant:   %t\n", st.Redundant)
		Printer.Printf("Role:        %s (version %d)\n", st.Record.Role, st.Record.Version)
		if !st.Record.UpdatedAt.IsZero() {
			Printer.Printf("Updated:     %s\n", st.Record.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
		}
		Printer.Printf("keepalived:  %s\n", running(st.KeepalivedRunning))
		Printer.Printf("conntrackd:  %s\n", running(st.ConntrackdRunning))
		if st.Conntrack != nil {
			Printer.Printf("Conntrack:   %d of %d entries\n", st.Conntrack.Entries, st.Conntrack.Max)
		}
		if st.LockHolder != nil {
			Printer.Printf("Transition:  in progress (pid %d, %s)\n", st.LockHolder.PID, st.LockHolder.ID)
		}
		if len(st.History) > 1 {
			Printer.Println("Recent:")
			for _, rec := range st.History {
				Printer.Printf("  %4d  %-7s %s  %s\n", rec.Version, rec.Role,
					rec.UpdatedAt.Format("2006-01-02 15:04:05 MST"), rec.TransitionID)
			}
		}
	}
	return nil
}

func running(ok bool) string {
	if ok {
		return "running"
	}
	return "stopped"
}
