// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package network is the controller's view of the appliance's links:
// which addresses exist, how each is classified, whether a device is ready,
// and the link/route/ARP primitives a role transition applies.
package network

import (
	"context"
	"net"
	"strconv"
	"time"

	"grimm.is/vrouter/internal/config"
	"grimm.is/vrouter/internal/errors"
)

// Class is the role of an address on the appliance.
type Class int

const (
	ClassUnknown Class = iota
	ClassGuest
	ClassPublic
	ClassControl
)

func (c Class) String() string {
	switch c {
	case ClassGuest:
		return "guest"
	case ClassPublic:
		return "public"
	case ClassControl:
		return "control"
	default:
		return "unknown"
	}
}

// NetworkInterface is one address plumbed on a device.
type NetworkInterface struct {
	Device    string
	IP        net.IP
	Net       *net.IPNet
	Gateway   net.IP
	Broadcast net.IP
	Class     Class
	Added     bool

	vrrp *bool
}

// FromConfig builds the interface list in config order.
func FromConfig(cfg *config.Config) ([]NetworkInterface, error) {
	out := make([]NetworkInterface, 0, len(cfg.Addresses))
	for _, a := range cfg.Addresses {
		ip, ipNet, err := net.ParseCIDR(a.CIDR)
		if err != nil {
			return nil, errors.Wrapf(err, errors.KindValidation, "address on %s", a.Device)
		}
		out = append(out, NetworkInterface{
			Device:    a.Device,
			IP:        ip,
			Net:       ipNet,
			Gateway:   net.ParseIP(a.Gateway),
			Broadcast: net.ParseIP(a.Broadcast),
			Class:     classOf(a.NetworkType),
			Added:     a.IsAdded(),
			vrrp:      a.VRRP,
		})
	}
	return out, nil
}

func classOf(nwType string) Class {
	switch nwType {
	case config.NetworkGuest:
		return ClassGuest
	case config.NetworkPublic:
		return ClassPublic
	case config.NetworkControl:
		return ClassControl
	default:
		return ClassUnknown
	}
}

// Classify returns the class of iface.
func Classify(iface NetworkInterface) Class {
	return iface.Class
}

func (n NetworkInterface) IsGuest() bool   { return n.Class == ClassGuest }
func (n NetworkInterface) IsPublic() bool  { return n.Class == ClassPublic }
func (n NetworkInterface) IsControl() bool { return n.Class == ClassControl }

// NeedsVRRP reports whether keepalived must advertise this address.
// Guest addresses are advertised unless the config says otherwise.
func (n NetworkInterface) NeedsVRRP() bool {
	if n.vrrp != nil {
		return *n.vrrp
	}
	return n.IsGuest()
}

// CIDR returns the address with its prefix length.
func (n NetworkInterface) CIDR() string {
	if n.Net == nil {
		return n.IP.String()
	}
	ones, _ := n.Net.Mask.Size()
	return n.IP.String() + "/" + strconv.Itoa(ones)
}

// GatewayCIDR returns the gateway with the address' prefix length, the form
// keepalived expects for a VPC tier's virtual address.
func (n NetworkInterface) GatewayCIDR() string {
	if n.Gateway == nil || n.Net == nil {
		return ""
	}
	ones, _ := n.Net.Mask.Size()
	return n.Gateway.String() + "/" + strconv.Itoa(ones)
}

// Filter returns the interfaces for which keep returns true.
func Filter(ifaces []NetworkInterface, keep func(NetworkInterface) bool) []NetworkInterface {
	var out []NetworkInterface
	for _, i := range ifaces {
		if keep(i) {
			out = append(out, i)
		}
	}
	return out
}

// Devices returns the distinct device names of ifaces in first-seen order.
func Devices(ifaces []NetworkInterface) []string {
	seen := make(map[string]bool)
	var out []string
	for _, i := range ifaces {
		if !seen[i.Device] {
			seen[i.Device] = true
			out = append(out, i.Device)
		}
	}
	return out
}

// First returns the first interface matching keep.
func First(ifaces []NetworkInterface, keep func(NetworkInterface) bool) (NetworkInterface, bool) {
	for _, i := range ifaces {
		if keep(i) {
			return i, true
		}
	}
	return NetworkInterface{}, false
}

// Wait bounds a readiness poll.
type Wait struct {
	Attempts int
	Interval time.Duration
}

// Inventory answers read-only questions about the appliance's links.
type Inventory interface {
	// Interfaces lists every configured address.
	Interfaces() []NetworkInterface
	// DeviceReady polls until device exists. It returns false, never an
	// error, when the wait is exhausted or ctx is done.
	DeviceReady(ctx context.Context, device string, wait Wait) bool
	// LinkIsUp reports whether the device's operational state is UP.
	LinkIsUp(device string) bool
	// AdminUp reports whether the device is administratively up.
	AdminUp(device string) bool
}

// Router mutates link state and routing.
type Router interface {
	SetLinkUp(device string) error
	SetLinkDown(device string) error
	// ReplaceDefaultRoute installs "default via gw dev device" in table.
	// A zero table means the main table.
	ReplaceDefaultRoute(device string, gw net.IP, table int) error
	// PolicyTable resolves Table_<device>.
	PolicyTable(device string) (int, error)
	// CopyRoutes copies the main-table routes of fromDevices into
	// toDevice's policy table.
	CopyRoutes(fromDevices []string, toDevice string) error
	// ApplyStaticRoutes reconciles the configured static routes.
	ApplyStaticRoutes(routes []config.StaticRoute) error
}

// ARPAnnouncer sends gratuitous ARP.
type ARPAnnouncer interface {
	Announce(device string, ip net.IP) error
}
