// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ha

import (
	"context"

	"grimm.is/vrouter/internal/config"
	"grimm.is/vrouter/internal/errors"
	"grimm.is/vrouter/internal/install"
	"grimm.is/vrouter/internal/lease"
	"grimm.is/vrouter/internal/logging"
	"grimm.is/vrouter/internal/metrics"
	"grimm.is/vrouter/internal/network"
	"grimm.is/vrouter/internal/render"
	"grimm.is/vrouter/internal/services/lifecycle"
	"grimm.is/vrouter/internal/state"
)

// Services controls OS services. Satisfied by lifecycle.Manager.
type Services interface {
	ServiceAction(ctx context.Context, name string, action lifecycle.Action) error
	ProcessRunning(pattern string) bool
	RestartPasswordServer(ctx context.Context, ip string) error
}

// Conntrack switches connection-tracking sync mode. Satisfied by ConntrackdManager.
type Conntrack interface {
	Promote(ctx context.Context) error
	Demote(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Mounter manages the scratch tmpfs. Satisfied by TmpfsMounter.
type Mounter interface {
	MountTmpfs(dir string) error
	Unmount(dir string) error
	IsMounted(dir string) bool
}

// TableUsage is the occupancy of the kernel connection-tracking table.
type TableUsage struct {
	Entries uint32 `json:"entries"`
	Max     uint32 `json:"max"`
}

// ConntrackTable reports kernel connection-tracking occupancy. Satisfied by KernelTable.
type ConntrackTable interface {
	Usage() (TableUsage, error)
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Config    *config.Config
	Paths     install.Paths
	Inventory network.Inventory
	Router    network.Router
	ARP       network.ARPAnnouncer
	Services  Services
	Conntrack Conntrack
	Mounter   Mounter
	Store     state.Store
	Templates render.Templates
	// Table is optional; without it Status omits table occupancy.
	Table ConntrackTable

	// ControllerBin is the path keepalived and the cron scripts invoke.
	ControllerBin string

	Metrics *metrics.Recorder
	Logger  *logging.Logger
}

// Controller drives the appliance into the redundancy state its
// configuration and keepalived ask for.
type Controller struct {
	cfg   *config.Config
	paths install.Paths

	inv      network.Inventory
	router   network.Router
	arp      network.ARPAnnouncer
	services Services
	conntrk  Conntrack
	mounter  Mounter
	store    state.Store
	tmpls    render.Templates
	table    ConntrackTable
	bin      string

	wait      network.Wait
	leaseOpts lease.Options

	metrics *metrics.Recorder
	logger  *logging.Logger
}

// New checks deps and builds a Controller.
func New(d Deps) (*Controller, error) {
	if d.Config == nil {
		return nil, errors.New(errors.KindValidation, "controller needs a config")
	}
	switch {
	case d.Inventory == nil, d.Router == nil, d.ARP == nil:
		return nil, errors.New(errors.KindInternal, "controller needs network inventory, router and ARP announcer")
	case d.Services == nil, d.Conntrack == nil, d.Mounter == nil, d.Store == nil:
		return nil, errors.New(errors.KindInternal, "controller needs services, conntrack, mounter and store")
	}
	if d.Config.Transition == nil {
		if err := d.Config.Canonicalize(); err != nil {
			return nil, errors.Wrap(err, errors.KindValidation, "invalid config")
		}
	}
	if d.Logger == nil {
		d.Logger = logging.WithComponent("ha")
	}
	if d.ControllerBin == "" {
		d.ControllerBin = d.Paths.BinDir + "/vrouter"
	}

	t := d.Config.Transition
	return &Controller{
		cfg:      d.Config,
		paths:    d.Paths,
		inv:      d.Inventory,
		router:   d.Router,
		arp:      d.ARP,
		services: d.Services,
		conntrk:  d.Conntrack,
		mounter:  d.Mounter,
		store:    d.Store,
		tmpls:    d.Templates,
		table:    d.Table,
		bin:      d.ControllerBin,
		wait: network.Wait{
			Attempts: t.DeviceWaitAttempts,
			Interval: t.DeviceWaitIntervalDuration(),
		},
		leaseOpts: lease.Options{
			Attempts: t.LockAttempts,
			Backoff:  t.LockBackoffDuration(),
			Logger:   d.Logger.WithComponent("lease"),
		},
		metrics: d.Metrics,
		logger:  d.Logger,
	}, nil
}

// StatusReport is a read-only snapshot of the controller's view.
type StatusReport struct {
	Name              string        `json:"name"`
	Redundant         bool          `json:"redundant"`
	Record            state.Record  `json:"record"`
	KeepalivedRunning bool          `json:"keepalived_running"`
	ConntrackdRunning bool          `json:"conntrackd_running"`
	LockHolder        *lease.Holder `json:"lock_holder,omitempty"`
	Conntrack         *TableUsage   `json:"conntrack,omitempty"`
	// History holds recent transitions, newest first.
	History []state.Record `json:"history,omitempty"`
}

// StatusHistory is the number of transitions Status reports.
const StatusHistory = 5

// Status reports the persisted role, recent transitions and daemon liveness.
// It takes no lock, so it answers while a transition runs.
func (c *Controller) Status() (StatusReport, error) {
	history, err := c.store.History(StatusHistory)
	if err != nil {
		return StatusReport{}, err
	}
	rec := state.Record{Role: state.RoleUnknown}
	if len(history) > 0 {
		rec = history[0]
	}
	r := StatusReport{
		Name:              c.cfg.Name,
		Redundant:         c.cfg.Redundant,
		Record:            rec,
		History:           history,
		KeepalivedRunning: c.services.ProcessRunning(c.paths.KeepalivedBin),
		ConntrackdRunning: c.services.ProcessRunning(c.paths.ConntrackdConf),
	}
	if h, err := lease.ReadHolder(c.paths.LockFile); err == nil {
		r.LockHolder = &h
	}
	if c.table != nil {
		if u, err := c.table.Usage(); err == nil {
			r.Conntrack = &u
		} else {
			c.logger.Debug("Conntrack table usage unavailable", "error", err)
		}
	}
	return r, nil
}

func (c *Controller) publicInterfaces() []network.NetworkInterface {
	return network.Filter(c.inv.Interfaces(), network.NetworkInterface.IsPublic)
}

func (c *Controller) guestInterfaces() []network.NetworkInterface {
	return network.Filter(c.inv.Interfaces(), network.NetworkInterface.IsGuest)
}
