// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux

package ha

import "grimm.is/vrouter/internal/errors"

// KernelTable is unavailable off Linux.
type KernelTable struct{}

func (KernelTable) Usage() (TableUsage, error) {
	return TableUsage{}, errors.New(errors.KindUnavailable, "conntrack not supported on this platform")
}
