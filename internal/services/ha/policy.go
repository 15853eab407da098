// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ha

import (
	"context"
	"os"
	"path/filepath"

	"grimm.is/vrouter/internal/errors"
	"grimm.is/vrouter/internal/network"
	"grimm.is/vrouter/internal/render"
	"grimm.is/vrouter/internal/services/lifecycle"
)

// State is the outcome of ApplyPolicy.
type State string

const (
	// StateDisabled means redundancy was torn down.
	StateDisabled State = "REDUNDANCY_DISABLED"
	// StateDeferred means no guest link is up yet; the next invocation retries.
	StateDeferred State = "DEFERRED"
	// StateConfigured means keepalived and conntrackd are configured and running.
	StateConfigured State = "CONFIGURED"
)

// ApplyPolicy enables or disables redundancy to match the configuration.
// Configuration writes and daemon restarts happen under the transition lease.
func (c *Controller) ApplyPolicy(ctx context.Context) (State, error) {
	log := c.logger
	log.Debug("Router redundancy status", "redundant", c.cfg.Redundant)

	if !c.cfg.Redundant {
		return StateDisabled, c.withLease(ctx, log, c.teardown)
	}

	guests := c.guestInterfaces()
	if len(guests) == 0 {
		log.Info("No guest network, nothing for redundancy to protect")
		// SetBackup takes the lease itself.
		if _, err := c.SetBackup(ctx); err != nil {
			log.Warn("Could not record backup role before teardown", "error", err)
		}
		return StateDisabled, c.withLease(ctx, log, c.teardown)
	}

	ready := false
	for _, dev := range network.Devices(guests) {
		log.Info("Waiting for guest device before starting keepalived", "device", dev)
		if !c.inv.DeviceReady(ctx, dev, c.wait) {
			continue
		}
		if c.inv.LinkIsUp(dev) {
			log.Info("Guest device is up", "device", dev)
			ready = true
		}
	}

	if !ready {
		log.Info("Guest network not configured yet, stopping router redundancy for now")
		return StateDeferred, c.withLease(ctx, log, func(ctx context.Context) error {
			c.stopDaemons(ctx)
			return nil
		})
	}

	err := c.withLease(ctx, log, func(ctx context.Context) error {
		return c.configure(ctx, guests[0])
	})
	if err != nil {
		return StateDeferred, err
	}
	return StateConfigured, nil
}

// stopDaemons stops conntrackd and keepalived. Failures are logged only:
// stopping a stopped service is not an error worth aborting for.
func (c *Controller) stopDaemons(ctx context.Context) {
	for _, svc := range []string{lifecycle.ServiceConntrackd, lifecycle.ServiceKeepalived} {
		if err := c.services.ServiceAction(ctx, svc, lifecycle.ActionStop); err != nil {
			c.metrics.StepFailed("stop-" + svc)
		}
	}
}

func (c *Controller) teardown(ctx context.Context) error {
	c.logger.Info("Tearing down router redundancy")
	c.stopDaemons(ctx)

	var errs []error
	if c.mounter.IsMounted(c.paths.RamdiskDir) {
		if err := c.mounter.Unmount(c.paths.RamdiskDir); err != nil {
			errs = append(errs, err)
		}
	}
	if err := os.RemoveAll(c.paths.RamdiskDir); err != nil {
		errs = append(errs, errors.Wrapf(err, errors.KindUnavailable, "failed to remove %s", c.paths.RamdiskDir))
	}
	for _, path := range []string{c.paths.ConntrackdConf, c.paths.KeepalivedConf, c.paths.HeartbeatCron} {
		if err := render.RemoveIfExists(path); err != nil {
			errs = append(errs, err)
		}
	}
	c.metrics.SetRole("DISABLED")

	if len(errs) > 0 {
		return errors.Wrap(errors.Join(errs...), errors.KindUnavailable, "redundancy teardown incomplete")
	}
	return nil
}

// configure renders both daemon configurations first, so a render failure
// installs nothing, then provisions the scratch area and restarts what changed.
func (c *Controller) configure(ctx context.Context, guest network.NetworkInterface) error {
	log := c.logger
	ifaces := c.inv.Interfaces()

	keepalivedConf, err := c.renderKeepalived(guest, ifaces)
	if err != nil {
		log.Error("Cannot render keepalived config", "error", err)
		c.metrics.StepFailed("render-keepalived")
		return err
	}
	conntrackdConf, err := c.renderConntrackd(guest, ifaces)
	if err != nil {
		log.Error("Cannot render conntrackd config", "error", err)
		c.metrics.StepFailed("render-conntrackd")
		return err
	}

	if err := c.provisionScratch(); err != nil {
		return err
	}

	scripts := render.ScriptParams{ControllerBin: c.bin, LogFile: c.paths.LogFile}
	for _, name := range render.RouterScripts {
		dst := filepath.Join(c.paths.RouterDir(), render.ScriptName(name))
		if _, err := render.InstallScript(c.tmpls, name, dst, scripts); err != nil {
			return err
		}
	}
	if _, err := render.InstallScript(c.tmpls, render.CheckRouterTemplate, c.paths.CheckRouterScript(), scripts); err != nil {
		return err
	}
	c.patchKeepalivedInit()

	conntrackdChanged, err := c.install(conntrackdConf, c.paths.ConntrackdConf)
	if err != nil {
		return err
	}
	forceKeepalived := false
	if conntrackdChanged || !c.services.ProcessRunning(c.paths.ConntrackdConf) {
		if err := c.services.ServiceAction(ctx, lifecycle.ServiceConntrackd, lifecycle.ActionRestart); err != nil {
			log.Warn("conntrackd did not restart, connection state will not be synchronized", "error", err)
			c.metrics.StepFailed("restart-conntrackd")
		}
		forceKeepalived = true
	}

	if err := c.installHeartbeatCron(); err != nil {
		return err
	}

	keepalivedChanged, err := c.install(keepalivedConf, c.paths.KeepalivedConf)
	if err != nil {
		return err
	}
	if keepalivedChanged || forceKeepalived || !c.services.ProcessRunning(c.paths.KeepalivedBin) {
		if err := c.services.ServiceAction(ctx, lifecycle.ServiceKeepalived, lifecycle.ActionRestart); err != nil {
			c.metrics.StepFailed("restart-keepalived")
			return errors.Wrap(err, errors.KindUnavailable, "keepalived could not be started")
		}
	}
	return nil
}

// Render returns the keepalived and conntrackd configurations the current
// config produces for the first guest interface. Nothing is installed.
func (c *Controller) Render() (keepalived, conntrackd []byte, err error) {
	ifaces := c.inv.Interfaces()
	guest, ok := network.First(ifaces, network.NetworkInterface.IsGuest)
	if !ok {
		return nil, nil, errors.New(errors.KindPrecondition, "no guest interface to run VRRP on")
	}
	if keepalived, err = c.renderKeepalived(guest, ifaces); err != nil {
		return nil, nil, err
	}
	if conntrackd, err = c.renderConntrackd(guest, ifaces); err != nil {
		return nil, nil, err
	}
	return keepalived, conntrackd, nil
}

func (c *Controller) renderKeepalived(guest network.NetworkInterface, ifaces []network.NetworkInterface) ([]byte, error) {
	tmpl, err := c.tmpls.Load(render.KeepalivedTemplate)
	if err != nil {
		return nil, err
	}
	return render.RenderKeepalived(tmpl, render.KeepalivedParams{
		RouterID:         c.cfg.Name,
		Interface:        guest.Device,
		RouterDir:        c.paths.RouterDir(),
		ControllerBin:    c.bin,
		Password:         c.cfg.RouterPassword.Reveal(),
		VirtualAddresses: render.VirtualAddresses(c.cfg, ifaces),
	})
}

func (c *Controller) renderConntrackd(guest network.NetworkInterface, ifaces []network.NetworkInterface) ([]byte, error) {
	tmpl, err := c.tmpls.Load(render.ConntrackdTemplate)
	if err != nil {
		return nil, err
	}
	p := render.ConntrackdParams{GuestIP: guest.IP.String(), GuestDevice: guest.Device}
	if ctrl, ok := network.First(ifaces, network.NetworkInterface.IsControl); ok {
		p.ControlIP = ctrl.IP.String()
	}
	return render.RenderConntrackd(tmpl, p)
}

func (c *Controller) provisionScratch() error {
	dir := c.paths.RamdiskDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, errors.KindUnavailable, "failed to create %s", dir)
	}
	if !c.mounter.IsMounted(dir) {
		if err := c.mounter.MountTmpfs(dir); err != nil {
			c.logger.Warn("Scratch area is not on tmpfs", "path", dir, "error", err)
		}
	}
	if err := os.MkdirAll(c.paths.RouterDir(), 0755); err != nil {
		return errors.Wrapf(err, errors.KindUnavailable, "failed to create %s", c.paths.RouterDir())
	}
	return nil
}

// patchKeepalivedInit switches the init script to VRRP-only mode when present.
func (c *Controller) patchKeepalivedInit() {
	path := c.paths.KeepalivedInit
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("Cannot read keepalived init script", "path", path, "error", err)
		}
		return
	}
	patched, changed := render.PatchKeepalivedInit(data)
	if !changed {
		return
	}
	if _, err := render.InstallIfChanged(patched, path, 0755); err != nil {
		c.logger.Warn("Cannot patch keepalived init script", "path", path, "error", err)
	}
}

func (c *Controller) installHeartbeatCron() error {
	existing, err := os.ReadFile(c.paths.HeartbeatCron)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.KindUnavailable, "failed to read %s", c.paths.HeartbeatCron)
	}
	_, err = c.install(render.RenderHeartbeatCron(existing, c.paths.RouterDir()), c.paths.HeartbeatCron)
	return err
}

func (c *Controller) install(data []byte, path string) (bool, error) {
	changed, err := render.InstallIfChanged(data, path, 0644)
	if err != nil {
		c.metrics.StepFailed("install-" + filepath.Base(path))
		return false, err
	}
	if changed {
		c.metrics.ConfigInstalled(filepath.Base(path))
	}
	return changed, nil
}
