// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ha

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"grimm.is/vrouter/internal/errors"
	"grimm.is/vrouter/internal/lease"
	"grimm.is/vrouter/internal/logging"
	"grimm.is/vrouter/internal/network"
	"grimm.is/vrouter/internal/services/lifecycle"
	"grimm.is/vrouter/internal/state"
)

// StepReport is the outcome of one transition step.
type StepReport struct {
	Name string `json:"name"`
	Err  error  `json:"-"`
}

// OK reports whether the step succeeded.
func (s StepReport) OK() bool { return s.Err == nil }

// Result describes a finished (or refused) transition.
type Result struct {
	Role         state.Role   `json:"role"`
	TransitionID string       `json:"transition_id,omitempty"`
	Record       state.Record `json:"record"`
	Steps        []StepReport `json:"steps"`
	// Skipped lists devices already in the target link state.
	Skipped []string `json:"skipped,omitempty"`
}

// Failed returns the steps that reported an error.
func (r Result) Failed() []StepReport {
	var out []StepReport
	for _, s := range r.Steps {
		if !s.OK() {
			out = append(out, s)
		}
	}
	return out
}

// pass is the per-transition memo shared by the steps of one transition.
type pass struct {
	id      string
	handled map[string]bool
	skipped []string

	// up lists public devices up after the link step, in config order.
	up     []string
	routes []defaultRoute
}

type defaultRoute struct {
	device string
	gw     net.IP
	main   bool
}

func newPass(id string) *pass {
	return &pass{id: id, handled: make(map[string]bool)}
}

func (p *pass) isUp(dev string) bool {
	for _, d := range p.up {
		if d == dev {
			return true
		}
	}
	return false
}

// step is one idempotent, re-runnable part of a transition. A fatal step
// aborts the transition before the role is persisted.
type step struct {
	name  string
	fatal bool
	run   func(ctx context.Context, p *pass) error
}

// SetMaster makes this router the active member of the pair.
func (c *Controller) SetMaster(ctx context.Context) (Result, error) {
	return c.transition(ctx, state.RoleMaster, []step{
		{name: "public-links-up", fatal: true, run: c.bringPublicUp},
		{name: "default-routes", run: c.installDefaultRoutes},
		{name: "guest-routes", run: c.copyGuestRoutes},
		{name: "gratuitous-arp", run: c.announcePublic},
		{name: "conntrackd-promote", run: func(ctx context.Context, _ *pass) error { return c.conntrk.Promote(ctx) }},
		{name: "dependent-services", run: c.dependentServices(lifecycle.ActionRestart)},
		{name: "password-server", run: c.restartPasswordServers},
		{name: "static-routes", run: c.applyStaticRoutes},
	})
}

// SetBackup makes this router the passive member of the pair.
func (c *Controller) SetBackup(ctx context.Context) (Result, error) {
	return c.transition(ctx, state.RoleBackup, []step{
		{name: "public-links-down", run: c.bringPublicDown},
		{name: "conntrackd-demote", run: func(ctx context.Context, _ *pass) error { return c.conntrk.Demote(ctx) }},
		{name: "dependent-services", run: c.dependentServices(lifecycle.ActionStop)},
		{name: "password-server", run: c.restartPasswordServers},
	})
}

// SetFault takes this router out of the pair.
func (c *Controller) SetFault(ctx context.Context) (Result, error) {
	return c.transition(ctx, state.RoleFault, []step{
		{name: "public-links-down", run: c.bringPublicDown},
		{name: "conntrackd-shutdown", run: func(ctx context.Context, _ *pass) error { return c.conntrk.Shutdown(ctx) }},
		{name: "dependent-services", run: c.dependentServices(lifecycle.ActionStop)},
		{name: "password-server", run: c.restartPasswordServers},
	})
}

// SetRole dispatches to the transition for role.
func (c *Controller) SetRole(ctx context.Context, role state.Role) (Result, error) {
	switch role {
	case state.RoleMaster:
		return c.SetMaster(ctx)
	case state.RoleBackup:
		return c.SetBackup(ctx)
	case state.RoleFault:
		return c.SetFault(ctx)
	default:
		return Result{Role: role}, errors.Errorf(errors.KindValidation, "cannot transition to %s", role)
	}
}

func (c *Controller) transition(ctx context.Context, role state.Role, steps []step) (Result, error) {
	start := time.Now()
	res := Result{Role: role}
	log := c.logger.With("role", role)

	if !c.cfg.Redundant {
		err := errors.Attr(errors.Errorf(errors.KindPrecondition,
			"set %s called on non-redundant router", strings.ToLower(string(role))), "role", string(role))
		log.Error("Transition refused", "error", err)
		c.metrics.ObserveTransition(string(role), false, time.Since(start))
		return res, err
	}

	err := c.withLease(ctx, log, func(ctx context.Context) error {
		res.TransitionID = uuid.NewString()
		tlog := log.With("transition", res.TransitionID)
		tlog.Info("Switching router role")
		return c.runSteps(ctx, tlog, &res, steps)
	})
	if err == nil {
		c.reconcile(ctx)
	}
	log = log.With("transition", res.TransitionID)

	c.metrics.ObserveTransition(string(role), err == nil, time.Since(start))
	if err != nil {
		return res, err
	}
	c.metrics.SetRole(string(role))

	if failed := res.Failed(); len(failed) > 0 {
		names := make([]string, len(failed))
		for i, s := range failed {
			names[i] = s.Name
		}
		log.Warn("Router role switched with failed steps", "failed", strings.Join(names, ","), "version", res.Record.Version)
	} else {
		log.Info("Router role switched", "version", res.Record.Version)
	}
	return res, nil
}

// withLease runs fn while holding the transition lease. Everything that
// touches links, daemon configuration or daemons goes through it.
func (c *Controller) withLease(ctx context.Context, log *logging.Logger, fn func(context.Context) error) error {
	l, err := lease.Acquire(ctx, c.paths.LockFile, c.leaseOpts)
	if err != nil {
		log.Error("Transition lock unavailable", "error", err)
		return err
	}
	defer func() {
		if err := l.Release(); err != nil {
			log.Warn("Failed to release transition lock", "error", err)
		}
	}()
	return fn(ctx)
}

// runSteps runs the steps and persists the role. The caller holds the lease.
func (c *Controller) runSteps(ctx context.Context, log *logging.Logger, res *Result, steps []step) error {
	p := newPass(res.TransitionID)
	for _, s := range steps {
		err := s.run(ctx, p)
		res.Steps = append(res.Steps, StepReport{Name: s.name, Err: err})
		if err == nil {
			continue
		}
		c.metrics.StepFailed(s.name)
		if s.fatal {
			log.WithError(err).Error("Transition aborted", "step", s.name)
			res.Skipped = p.skipped
			return err
		}
		log.Warn("Transition step failed, continuing", "step", s.name, "error", err)
	}
	res.Skipped = p.skipped

	rec, err := c.store.Save(res.Role, res.TransitionID)
	if err != nil {
		log.Error("Failed to persist role", "error", err)
		return err
	}
	res.Record = rec
	return nil
}

// bringPublicUp brings every public device up, waiting for each, and
// collects the default routes to install. A device is handled once per pass.
func (c *Controller) bringPublicUp(ctx context.Context, p *pass) error {
	public := c.publicInterfaces()
	primary := c.cfg.PrimaryPublic()

	var errs []error
	for _, iface := range public {
		dev := iface.Device
		if p.handled[dev] {
			continue
		}
		p.handled[dev] = true

		if !c.inv.DeviceReady(ctx, dev, c.wait) {
			errs = append(errs, errors.Attr(errors.Errorf(errors.KindTimeout, "device %s was not ready", dev), "device", dev))
			continue
		}

		if c.inv.LinkIsUp(dev) {
			c.logger.Info("Public device already up, configuring routes", "device", dev)
			p.skipped = append(p.skipped, dev)
		} else {
			c.logger.Info("Bringing public interface up", "device", dev)
			if err := c.router.SetLinkUp(dev); err != nil {
				errs = append(errs, err)
				continue
			}
		}
		p.up = append(p.up, dev)

		r := defaultRoute{device: dev, gw: iface.Gateway}
		if dev == primary {
			// The primary device's main-table route goes first.
			main := r
			main.main = true
			p.routes = append([]defaultRoute{main}, p.routes...)
		}
		p.routes = append(p.routes, r)
	}

	if len(public) > 0 && len(p.up) == 0 {
		return errors.Wrap(errors.Join(errs...), errors.KindUnavailable, "no public interface could be brought up")
	}
	return joinStep(errs, "public links incomplete")
}

func (c *Controller) installDefaultRoutes(_ context.Context, p *pass) error {
	var errs []error
	for _, r := range p.routes {
		table := 0
		if !r.main {
			t, err := c.router.PolicyTable(r.device)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			table = t
		}
		if err := c.router.ReplaceDefaultRoute(r.device, r.gw, table); err != nil {
			errs = append(errs, err)
		}
	}
	return joinStep(errs, "default routes incomplete")
}

func (c *Controller) copyGuestRoutes(_ context.Context, p *pass) error {
	guestDevs := network.Devices(c.guestInterfaces())
	if len(guestDevs) == 0 {
		return nil
	}
	var errs []error
	for _, dev := range p.up {
		if err := c.router.CopyRoutes(guestDevs, dev); err != nil {
			errs = append(errs, err)
		}
	}
	return joinStep(errs, "guest route copy incomplete")
}

func (c *Controller) announcePublic(_ context.Context, p *pass) error {
	var errs []error
	for _, iface := range c.publicInterfaces() {
		if !p.isUp(iface.Device) || !iface.Added {
			continue
		}
		if err := c.arp.Announce(iface.Device, iface.IP); err != nil {
			errs = append(errs, err)
		}
	}
	return joinStep(errs, "gratuitous ARP incomplete")
}

func (c *Controller) dependentServices(action lifecycle.Action) func(context.Context, *pass) error {
	return func(ctx context.Context, _ *pass) error {
		var errs []error
		for _, svc := range lifecycle.DependentServices {
			if err := c.services.ServiceAction(ctx, svc, action); err != nil {
				errs = append(errs, err)
			}
		}
		return joinStep(errs, "dependent services incomplete")
	}
}

// restartPasswordServers restarts the password helper on every address
// guests may query: on a VPC router the tier gateways and router addresses,
// otherwise the guest addresses.
func (c *Controller) restartPasswordServers(ctx context.Context, _ *pass) error {
	var ips []string
	if c.cfg.IsVPC() {
		for _, iface := range c.inv.Interfaces() {
			if !iface.NeedsVRRP() {
				continue
			}
			if iface.Gateway != nil {
				ips = append(ips, iface.Gateway.String())
			}
			ips = append(ips, iface.IP.String())
		}
	} else {
		for _, iface := range c.guestInterfaces() {
			ips = append(ips, iface.IP.String())
		}
	}

	var errs []error
	for _, ip := range ips {
		if err := c.services.RestartPasswordServer(ctx, ip); err != nil {
			errs = append(errs, err)
		}
	}
	return joinStep(errs, "password server restart incomplete")
}

func (c *Controller) applyStaticRoutes(_ context.Context, _ *pass) error {
	if len(c.cfg.StaticRoutes) == 0 {
		return nil
	}
	return c.router.ApplyStaticRoutes(c.cfg.StaticRoutes)
}

// bringPublicDown takes every public device down. Devices already down are
// skipped and reported.
func (c *Controller) bringPublicDown(_ context.Context, p *pass) error {
	var errs []error
	for _, dev := range network.Devices(c.publicInterfaces()) {
		if p.handled[dev] {
			continue
		}
		p.handled[dev] = true

		if !c.inv.AdminUp(dev) {
			p.skipped = append(p.skipped, dev)
			continue
		}
		c.logger.Info("Bringing public interface down", "device", dev)
		if err := c.router.SetLinkDown(dev); err != nil {
			errs = append(errs, err)
		}
	}
	return joinStep(errs, "public links incomplete")
}

// reconcile makes public links match the persisted role. It runs after the
// lease is released, so it follows whichever transition completed last.
func (c *Controller) reconcile(ctx context.Context) {
	rec, err := c.store.Load()
	if err != nil {
		c.logger.Warn("Cannot read role for reconciliation", "error", err)
		return
	}
	primary := c.cfg.PrimaryPublic()

	for _, dev := range network.Devices(c.publicInterfaces()) {
		switch rec.Role {
		case state.RoleMaster:
			if dev == primary || c.inv.AdminUp(dev) {
				continue
			}
			if !c.inv.DeviceReady(ctx, dev, network.Wait{Attempts: 1}) {
				continue
			}
			c.logger.Info("Reconcile: bringing public interface up", "device", dev)
			if err := c.router.SetLinkUp(dev); err != nil {
				c.metrics.StepFailed("reconcile")
			}
		case state.RoleBackup, state.RoleFault:
			if !c.inv.AdminUp(dev) {
				continue
			}
			c.logger.Info("Reconcile: bringing public interface down", "device", dev)
			if err := c.router.SetLinkDown(dev); err != nil {
				c.metrics.StepFailed("reconcile")
			}
		}
	}
}

func joinStep(errs []error, msg string) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Wrap(errors.Join(errs...), errors.GetKind(errs[0]), msg)
}
