// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package ha

import (
	"path/filepath"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"

	"grimm.is/vrouter/internal/errors"
)

// TmpfsMounter mounts the router scratch area as tmpfs.
type TmpfsMounter struct{}

func (TmpfsMounter) MountTmpfs(dir string) error {
	if err := unix.Mount("tmpfs", dir, "tmpfs", 0, ""); err != nil {
		return errors.Wrapf(err, errors.KindUnavailable, "failed to mount tmpfs on %s", dir)
	}
	return nil
}

func (TmpfsMounter) Unmount(dir string) error {
	if err := unix.Unmount(dir, 0); err != nil && err != unix.EINVAL && err != unix.ENOENT {
		return errors.Wrapf(err, errors.KindUnavailable, "failed to unmount %s", dir)
	}
	return nil
}

func (TmpfsMounter) IsMounted(dir string) bool {
	mounts, err := procfs.GetMounts()
	if err != nil {
		return false
	}
	dir = filepath.Clean(dir)
	for _, m := range mounts {
		if m.MountPoint == dir {
			return true
		}
	}
	return false
}
