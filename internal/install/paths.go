// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package install

import (
	"os"
	"path/filepath"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "VROUTER"

// Well-known locations on the appliance. The daemons read their configs from
// fixed paths, so these are only overridden for development and tests.
const (
	DefaultConfigFile     = "/etc/vrouter/vrouter.hcl"
	DefaultRamdiskDir     = "/ramdisk"
	DefaultTemplatesDir   = "/opt/cloud/templates"
	DefaultBinDir         = "/opt/cloud/bin"
	DefaultKeepalivedConf = "/etc/keepalived/keepalived.conf"
	DefaultKeepalivedInit = "/etc/init.d/keepalived"
	DefaultKeepalivedBin  = "/usr/sbin/keepalived"
	DefaultConntrackdConf = "/etc/conntrackd/conntrackd.conf"
	DefaultConntrackdBin  = "/usr/sbin/conntrackd"
	DefaultHeartbeatCron  = "/etc/cron.d/heartbeat"
	DefaultLockFile       = "/var/lock/rrouter-transition.lock"
	DefaultLogFile        = "/var/log/cloud.log"
	DefaultStateDB        = "/var/lib/vrouter/state.db"
	DefaultRtTables       = "/etc/iproute2/rt_tables"
)

// Paths holds every filesystem location the controller reads or writes.
type Paths struct {
	RamdiskDir     string `hcl:"ramdisk_dir,optional" json:"ramdisk_dir,omitempty"`
	TemplatesDir   string `hcl:"templates_dir,optional" json:"templates_dir,omitempty"`
	BinDir         string `hcl:"bin_dir,optional" json:"bin_dir,omitempty"`
	KeepalivedConf string `hcl:"keepalived_conf,optional" json:"keepalived_conf,omitempty"`
	KeepalivedInit string `hcl:"keepalived_init,optional" json:"keepalived_init,omitempty"`
	KeepalivedBin  string `hcl:"keepalived_bin,optional" json:"keepalived_bin,omitempty"`
	ConntrackdConf string `hcl:"conntrackd_conf,optional" json:"conntrackd_conf,omitempty"`
	ConntrackdBin  string `hcl:"conntrackd_bin,optional" json:"conntrackd_bin,omitempty"`
	HeartbeatCron  string `hcl:"heartbeat_cron,optional" json:"heartbeat_cron,omitempty"`
	LockFile       string `hcl:"lock_file,optional" json:"lock_file,omitempty"`
	LogFile        string `hcl:"log_file,optional" json:"log_file,omitempty"`
	StateDB        string `hcl:"state_db,optional" json:"state_db,omitempty"`
	RtTables       string `hcl:"rt_tables,optional" json:"rt_tables,omitempty"`
	// MetricsFile is a node_exporter textfile target. Empty disables export.
	MetricsFile string `hcl:"metrics_file,optional" json:"metrics_file,omitempty"`
}

// DefaultPaths returns the appliance locations, honouring environment overrides.
// Priority: VROUTER_<NAME> > VROUTER_PREFIX/<default> > default
func DefaultPaths() Paths {
	p := Paths{
		RamdiskDir:     DefaultRamdiskDir,
		TemplatesDir:   DefaultTemplatesDir,
		BinDir:         DefaultBinDir,
		KeepalivedConf: DefaultKeepalivedConf,
		KeepalivedInit: DefaultKeepalivedInit,
		KeepalivedBin:  DefaultKeepalivedBin,
		ConntrackdConf: DefaultConntrackdConf,
		ConntrackdBin:  DefaultConntrackdBin,
		HeartbeatCron:  DefaultHeartbeatCron,
		LockFile:       DefaultLockFile,
		LogFile:        DefaultLogFile,
		StateDB:        DefaultStateDB,
		RtTables:       DefaultRtTables,
	}

	if prefix := os.Getenv(EnvPrefix + "_PREFIX"); prefix != "" {
		p = p.Rooted(prefix)
	}

	override(&p.TemplatesDir, "TEMPLATES_DIR")
	override(&p.LockFile, "LOCK_FILE")
	override(&p.LogFile, "LOG_FILE")
	override(&p.StateDB, "STATE_DB")
	override(&p.MetricsFile, "METRICS_FILE")
	return p
}

// Rooted returns a copy of p with every absolute path re-rooted under root.
// Binaries are left alone so the real daemons stay addressable.
func (p Paths) Rooted(root string) Paths {
	r := p
	for _, f := range []*string{
		&r.RamdiskDir, &r.TemplatesDir, &r.BinDir, &r.KeepalivedConf,
		&r.KeepalivedInit, &r.ConntrackdConf, &r.HeartbeatCron, &r.LockFile,
		&r.LogFile, &r.StateDB, &r.RtTables, &r.MetricsFile,
	} {
		if *f != "" {
			*f = filepath.Join(root, *f)
		}
	}
	return r
}

// Merge returns p with every non-empty field of o applied on top.
func (p Paths) Merge(o Paths) Paths {
	r := p
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&r.RamdiskDir, o.RamdiskDir)
	set(&r.TemplatesDir, o.TemplatesDir)
	set(&r.BinDir, o.BinDir)
	set(&r.KeepalivedConf, o.KeepalivedConf)
	set(&r.KeepalivedInit, o.KeepalivedInit)
	set(&r.KeepalivedBin, o.KeepalivedBin)
	set(&r.ConntrackdConf, o.ConntrackdConf)
	set(&r.ConntrackdBin, o.ConntrackdBin)
	set(&r.HeartbeatCron, o.HeartbeatCron)
	set(&r.LockFile, o.LockFile)
	set(&r.LogFile, o.LogFile)
	set(&r.StateDB, o.StateDB)
	set(&r.RtTables, o.RtTables)
	set(&r.MetricsFile, o.MetricsFile)
	return r
}

// RouterDir is the ramdisk scratch directory holding heartbeat scripts.
func (p Paths) RouterDir() string {
	return filepath.Join(p.RamdiskDir, "rrouter")
}

// CheckRouterScript is the state probe keepalived and cron call.
func (p Paths) CheckRouterScript() string {
	return filepath.Join(p.BinDir, "checkrouter.sh")
}

func override(dst *string, name string) {
	if v := os.Getenv(EnvPrefix + "_" + name); v != "" {
		*dst = v
	}
}
