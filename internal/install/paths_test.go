// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package install

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPaths(t *testing.T) {
	t.Setenv(EnvPrefix+"_PREFIX", "")
	p := DefaultPaths()

	assert.Equal(t, DefaultKeepalivedConf, p.KeepalivedConf)
	assert.Equal(t, DefaultConntrackdConf, p.ConntrackdConf)
	assert.Equal(t, "/ramdisk/rrouter", p.RouterDir())
	assert.Equal(t, "/opt/cloud/bin/checkrouter.sh", p.CheckRouterScript())
	assert.Empty(t, p.MetricsFile)
}

func TestDefaultPaths_Prefix(t *testing.T) {
	t.Setenv(EnvPrefix+"_PREFIX", "/tmp/vr")
	t.Setenv(EnvPrefix+"_LOCK_FILE", "/run/test.lock")
	p := DefaultPaths()

	assert.Equal(t, "/tmp/vr/etc/keepalived/keepalived.conf", p.KeepalivedConf)
	assert.Equal(t, "/tmp/vr/ramdisk/rrouter", p.RouterDir())
	assert.Equal(t, DefaultConntrackdBin, p.ConntrackdBin, "binaries are not re-rooted")
	assert.Equal(t, "/run/test.lock", p.LockFile)
}

func TestMerge(t *testing.T) {
	base := Paths{KeepalivedConf: "/a", ConntrackdConf: "/b"}
	merged := base.Merge(Paths{ConntrackdConf: "/c"})

	assert.Equal(t, "/a", merged.KeepalivedConf)
	assert.Equal(t, "/c", merged.ConntrackdConf)
}
