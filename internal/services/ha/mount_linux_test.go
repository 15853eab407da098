// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux

package ha

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/vrouter/internal/testutil"
)

func TestTmpfsMounter(t *testing.T) {
	testutil.RequireVM(t)

	dir := t.TempDir()
	var m TmpfsMounter
	require.False(t, m.IsMounted(dir))

	require.NoError(t, m.MountTmpfs(dir))
	assert.True(t, m.IsMounted(dir))

	require.NoError(t, m.Unmount(dir))
	assert.False(t, m.IsMounted(dir))
	assert.NoError(t, m.Unmount(dir), "unmounting twice is not an error")
}
