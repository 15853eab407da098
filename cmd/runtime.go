// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"grimm.is/vrouter/internal/config"
	"grimm.is/vrouter/internal/install"
	"grimm.is/vrouter/internal/logging"
	"grimm.is/vrouter/internal/metrics"
	"grimm.is/vrouter/internal/network"
	"grimm.is/vrouter/internal/render"
	"grimm.is/vrouter/internal/services/ha"
	"grimm.is/vrouter/internal/services/lifecycle"
	"grimm.is/vrouter/internal/state"
)

// commonFlags are accepted by every sub-command.
type commonFlags struct {
	configFile string
	logLevel   string
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configFile, "config", defaultConfigFile(), "Path to the appliance config (HCL or JSON)")
	fs.StringVar(&f.logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
}

func defaultConfigFile() string {
	if v := os.Getenv(install.EnvPrefix + "_CONFIG"); v != "" {
		return v
	}
	return install.DefaultConfigFile
}

// runtime is everything one invocation opens and must close on exit.
type runtime struct {
	cfg     *config.Config
	paths   install.Paths
	logger  *logging.Logger
	metrics *metrics.Recorder
	closers []io.Closer
}

func setup(f commonFlags) (*runtime, error) {
	cfg, err := config.LoadFile(f.configFile)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, paths: cfg.ResolvedPaths()}
	rt.logger = rt.openLogger(f.logLevel)
	logging.SetDefault(rt.logger)
	return rt, nil
}

func (rt *runtime) openLogger(levelOverride string) *logging.Logger {
	lc := logging.DefaultConfig()
	level := rt.cfg.Logging.Level
	if levelOverride != "" {
		level = levelOverride
	}
	if lvl, err := logging.ParseLevel(level); err == nil {
		lc.Level = lvl
	}
	lc.JSON = rt.cfg.Logging.JSON

	if rt.cfg.Logging.ToFile == nil || *rt.cfg.Logging.ToFile {
		w, c, err := logging.OpenFile(rt.paths.LogFile)
		if err == nil {
			lc.Output = w
			rt.closers = append(rt.closers, c)
		}
	}
	return logging.New(lc)
}

// controller wires the production collaborators. A nil store opens the
// persistent role database. Read-only commands pass readOnly so the metrics
// of the last transition are not overwritten.
func (rt *runtime) controller(store state.Store, readOnly bool) (*ha.Controller, error) {
	ifaces, err := network.FromConfig(rt.cfg)
	if err != nil {
		return nil, err
	}
	if store == nil {
		db, err := state.OpenSQLite(rt.paths.StateDB)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, db)
		store = db
	}

	netMgr := network.NewManager(ifaces, rt.paths.RtTables, rt.logger.WithComponent("network"))
	rt.closers = append(rt.closers, netMgr)
	services := lifecycle.NewManager(lifecycle.ExecRunner{}, "", rt.logger.WithComponent("lifecycle"))
	if !readOnly {
		rt.metrics = metrics.NewRecorder()
	}

	return ha.New(ha.Deps{
		Config:    rt.cfg,
		Paths:     rt.paths,
		Inventory: netMgr,
		Router:    netMgr,
		ARP:       network.NewGARP(rt.logger.WithComponent("arp")),
		Services:  services,
		Conntrack: ha.NewConntrackdManager(rt.paths.ConntrackdBin, rt.paths.ConntrackdConf, services,
			rt.logger.WithComponent("conntrackd")),
		Mounter:   ha.TmpfsMounter{},
		Store:     store,
		Templates: render.Templates{Dir: rt.paths.TemplatesDir},
		Table:     ha.KernelTable{},
		Metrics:   rt.metrics,
		Logger:    rt.logger.WithComponent("ha"),
	})
}

func (rt *runtime) close() {
	if rt == nil {
		return
	}
	if err := rt.metrics.Flush(rt.paths.MetricsFile); err != nil {
		rt.logger.Warn("Failed to write metrics", "path", rt.paths.MetricsFile, "error", err)
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i].Close()
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
