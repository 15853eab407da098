// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux
// +build !linux

package ha

import "grimm.is/vrouter/internal/errors"

// TmpfsMounter is unsupported on non-linux platforms.
type TmpfsMounter struct{}

func (TmpfsMounter) MountTmpfs(string) error {
	return errors.New(errors.KindUnavailable, "tmpfs mounts are only supported on linux")
}

func (TmpfsMounter) Unmount(string) error { return nil }

func (TmpfsMounter) IsMounted(string) bool { return false }
