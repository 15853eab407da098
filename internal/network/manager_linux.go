// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package network

import (
	"context"
	"net"
	"time"

	"github.com/safchain/ethtool"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"grimm.is/vrouter/internal/config"
	"grimm.is/vrouter/internal/errors"
	"grimm.is/vrouter/internal/logging"
)

// Netlinker is the subset of netlink the manager uses, so tests can mock it.
type Netlinker interface {
	LinkByName(name string) (netlink.Link, error)
	LinkSetUp(link netlink.Link) error
	LinkSetDown(link netlink.Link) error
	RouteReplace(route *netlink.Route) error
	RouteDel(route *netlink.Route) error
	RouteListFiltered(family int, filter *netlink.Route, filterMask uint64) ([]netlink.Route, error)
}

// RealNetlinker calls the kernel.
type RealNetlinker struct{}

func (RealNetlinker) LinkByName(name string) (netlink.Link, error) { return netlink.LinkByName(name) }
func (RealNetlinker) LinkSetUp(link netlink.Link) error            { return netlink.LinkSetUp(link) }
func (RealNetlinker) LinkSetDown(link netlink.Link) error          { return netlink.LinkSetDown(link) }
func (RealNetlinker) RouteReplace(route *netlink.Route) error      { return netlink.RouteReplace(route) }
func (RealNetlinker) RouteDel(route *netlink.Route) error          { return netlink.RouteDel(route) }
func (RealNetlinker) RouteListFiltered(family int, filter *netlink.Route, mask uint64) ([]netlink.Route, error) {
	return netlink.RouteListFiltered(family, filter, mask)
}

// DefaultNetlinker is the default RealNetlinker instance.
var DefaultNetlinker Netlinker = RealNetlinker{}

// CarrierProber reads the link carrier through the ethtool ioctl. Satisfied
// by *ethtool.Ethtool.
type CarrierProber interface {
	LinkState(intf string) (uint32, error)
	Close()
}

// Manager implements Inventory and Router over netlink.
type Manager struct {
	nl       Netlinker
	carrier  CarrierProber
	ifaces   []NetworkInterface
	rtTables string
	logger   *logging.Logger
	sleep    func(ctx context.Context, d time.Duration) bool
}

var (
	_ Inventory = (*Manager)(nil)
	_ Router    = (*Manager)(nil)
)

// NewManager creates a manager for ifaces backed by the kernel. Close
// releases the ethtool socket.
func NewManager(ifaces []NetworkInterface, rtTables string, logger *logging.Logger) *Manager {
	m := NewManagerWithDeps(DefaultNetlinker, ifaces, rtTables, logger)
	if et, err := ethtool.NewEthtool(); err == nil {
		m.carrier = et
	} else {
		m.logger.Debug("ethtool unavailable, relying on operstate only", "error", err)
	}
	return m
}

// Close releases resources held by the manager.
func (m *Manager) Close() error {
	if m.carrier != nil {
		m.carrier.Close()
		m.carrier = nil
	}
	return nil
}

// NewManagerWithDeps creates a manager with an injected netlink implementation.
func NewManagerWithDeps(nl Netlinker, ifaces []NetworkInterface, rtTables string, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.WithComponent("network")
	}
	return &Manager{
		nl:       nl,
		ifaces:   ifaces,
		rtTables: rtTables,
		logger:   logger,
		sleep:    sleepCtx,
	}
}

// Interfaces returns the configured addresses.
func (m *Manager) Interfaces() []NetworkInterface {
	return m.ifaces
}

// DeviceReady polls for device until it exists or wait is exhausted.
func (m *Manager) DeviceReady(ctx context.Context, device string, wait Wait) bool {
	attempts := wait.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if _, err := m.nl.LinkByName(device); err == nil {
			return true
		}
		if i < attempts-1 && !m.sleep(ctx, wait.Interval) {
			break
		}
	}
	m.logger.Error("Device cannot be configured - device was not found", "device", device, "attempts", attempts)
	return false
}

// LinkIsUp reports whether the operational state of device is UP. Virtual
// NICs that report UNKNOWN count as up when admin up with carrier.
func (m *Manager) LinkIsUp(device string) bool {
	link, err := m.nl.LinkByName(device)
	if err != nil {
		return false
	}
	attrs := link.Attrs()
	switch attrs.OperState {
	case netlink.OperUp:
		return true
	case netlink.OperUnknown:
		if attrs.Flags&net.FlagUp == 0 || m.carrier == nil {
			return false
		}
		state, err := m.carrier.LinkState(device)
		return err == nil && state == 1
	default:
		return false
	}
}

// AdminUp reports whether device has IFF_UP set.
func (m *Manager) AdminUp(device string) bool {
	link, err := m.nl.LinkByName(device)
	if err != nil {
		return false
	}
	return link.Attrs().Flags&net.FlagUp != 0
}

// SetLinkUp sets device administratively up.
func (m *Manager) SetLinkUp(device string) error {
	link, err := m.nl.LinkByName(device)
	if err != nil {
		return errors.Attr(errors.Wrapf(err, errors.KindNotFound, "interface %s not found", device), "device", device)
	}
	if err := m.nl.LinkSetUp(link); err != nil {
		return errors.Attr(errors.Wrapf(err, errors.KindUnavailable, "failed to set %s up", device), "device", device)
	}
	return nil
}

// SetLinkDown sets device administratively down.
func (m *Manager) SetLinkDown(device string) error {
	link, err := m.nl.LinkByName(device)
	if err != nil {
		return errors.Attr(errors.Wrapf(err, errors.KindNotFound, "interface %s not found", device), "device", device)
	}
	if err := m.nl.LinkSetDown(link); err != nil {
		return errors.Attr(errors.Wrapf(err, errors.KindUnavailable, "failed to set %s down", device), "device", device)
	}
	return nil
}

// PolicyTable resolves the per-device policy routing table.
func (m *Manager) PolicyTable(device string) (int, error) {
	return PolicyTableID(m.rtTables, device)
}

// ReplaceDefaultRoute installs a default route via gw on device in table.
func (m *Manager) ReplaceDefaultRoute(device string, gw net.IP, table int) error {
	if gw == nil {
		return errors.Errorf(errors.KindValidation, "no gateway for %s", device)
	}
	link, err := m.nl.LinkByName(device)
	if err != nil {
		return errors.Wrapf(err, errors.KindNotFound, "interface %s not found", device)
	}
	if table == 0 {
		table = unix.RT_TABLE_MAIN
	}

	route := &netlink.Route{
		LinkIndex: link.Attrs().Index,
		Dst:       defaultDst(gw),
		Gw:        gw,
		Table:     table,
	}
	if err := m.nl.RouteReplace(route); err != nil {
		return errors.Attr(errors.Wrapf(err, errors.KindUnavailable,
			"failed to add default via %s dev %s table %d", gw, device, table), "device", device)
	}
	m.logger.Debug("Installed default route", "device", device, "gateway", gw, "table", table)
	return nil
}

// CopyRoutes copies the main-table routes of fromDevices into toDevice's
// policy table so replies to guest networks leave through the right tier.
func (m *Manager) CopyRoutes(fromDevices []string, toDevice string) error {
	table, err := m.PolicyTable(toDevice)
	if err != nil {
		return err
	}

	var errs []error
	for _, dev := range fromDevices {
		link, err := m.nl.LinkByName(dev)
		if err != nil {
			errs = append(errs, errors.Wrapf(err, errors.KindNotFound, "interface %s not found", dev))
			continue
		}
		filter := &netlink.Route{LinkIndex: link.Attrs().Index, Table: unix.RT_TABLE_MAIN}
		routes, err := m.nl.RouteListFiltered(netlink.FAMILY_V4, filter, netlink.RT_FILTER_OIF|netlink.RT_FILTER_TABLE)
		if err != nil {
			errs = append(errs, errors.Wrapf(err, errors.KindUnavailable, "failed to list routes of %s", dev))
			continue
		}
		for _, r := range routes {
			if r.Dst == nil {
				continue
			}
			cp := &netlink.Route{
				LinkIndex: r.LinkIndex,
				Dst:       r.Dst,
				Src:       r.Src,
				Gw:        r.Gw,
				Scope:     r.Scope,
				Protocol:  r.Protocol,
				Table:     table,
			}
			if err := m.nl.RouteReplace(cp); err != nil {
				errs = append(errs, errors.Wrapf(err, errors.KindUnavailable,
					"failed to copy route %s dev %s to table %d", r.Dst, dev, table))
			}
		}
	}

	if len(errs) > 0 {
		return errors.Wrap(errors.Join(errs...), errors.KindUnavailable, "route copy incomplete")
	}
	return nil
}

// ApplyStaticRoutes adds or revokes each configured static route in the main table.
func (m *Manager) ApplyStaticRoutes(routes []config.StaticRoute) error {
	var errs []error
	for _, sr := range routes {
		_, dst, err := net.ParseCIDR(sr.Network)
		if err != nil {
			errs = append(errs, errors.Wrapf(err, errors.KindValidation, "static route %s", sr.Network))
			continue
		}
		route := &netlink.Route{Dst: dst, Gw: net.ParseIP(sr.Gateway), Table: unix.RT_TABLE_MAIN}

		if sr.Revoke {
			if err := m.nl.RouteDel(route); err != nil && !errors.Is(err, unix.ESRCH) {
				errs = append(errs, errors.Wrapf(err, errors.KindUnavailable, "failed to revoke %s", sr.Network))
			}
			continue
		}
		if err := m.nl.RouteReplace(route); err != nil {
			errs = append(errs, errors.Wrapf(err, errors.KindUnavailable, "failed to add %s via %s", sr.Network, sr.Gateway))
			continue
		}
		m.logger.Debug("Static route applied", "network", sr.Network, "gateway", sr.Gateway)
	}

	if len(errs) > 0 {
		return errors.Wrap(errors.Join(errs...), errors.KindUnavailable, "static routes incomplete")
	}
	return nil
}

func defaultDst(gw net.IP) *net.IPNet {
	if gw.To4() != nil {
		return &net.IPNet{IP: net.IPv4zero, Mask: net.CIDRMask(0, 32)}
	}
	return &net.IPNet{IP: net.IPv6zero, Mask: net.CIDRMask(0, 128)}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
