// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux

package ha

import (
	"github.com/ti-mo/conntrack"

	"grimm.is/vrouter/internal/errors"
)

// KernelTable reads the kernel connection-tracking table over netlink.
type KernelTable struct{}

// Usage returns the number of tracked flows and the table limit.
func (KernelTable) Usage() (TableUsage, error) {
	c, err := conntrack.Dial(nil)
	if err != nil {
		return TableUsage{}, errors.Wrap(err, errors.KindUnavailable, "failed to open conntrack netlink socket")
	}
	defer c.Close()

	st, err := c.StatsGlobal()
	if err != nil {
		return TableUsage{}, errors.Wrap(err, errors.KindUnavailable, "failed to read conntrack table stats")
	}
	return TableUsage{Entries: st.Entries, Max: st.MaxEntries}, nil
}
