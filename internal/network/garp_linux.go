// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package network

import (
	"net"
	"net/netip"
	"time"

	"github.com/mdlayher/arp"

	"grimm.is/vrouter/internal/errors"
	"grimm.is/vrouter/internal/logging"
)

var broadcastHW = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// GARP announces addresses with unsolicited ARP requests.
type GARP struct {
	logger *logging.Logger
}

var _ ARPAnnouncer = (*GARP)(nil)

// NewGARP creates a gratuitous ARP announcer.
func NewGARP(logger *logging.Logger) *GARP {
	if logger == nil {
		logger = logging.WithComponent("garp")
	}
	return &GARP{logger: logger}
}

// Announce sends one gratuitous ARP for ip out of device.
func (g *GARP) Announce(device string, ip net.IP) error {
	addr, ok := netip.AddrFromSlice(ip.To4())
	if !ok {
		return errors.Errorf(errors.KindValidation, "cannot announce non-IPv4 address %s", ip)
	}

	intf, err := net.InterfaceByName(device)
	if err != nil {
		return errors.Wrapf(err, errors.KindNotFound, "interface %s not found", device)
	}

	c, err := arp.Dial(intf)
	if err != nil {
		return errors.Wrapf(err, errors.KindUnavailable, "failed to dial arp on %s", device)
	}
	defer c.Close()

	p, err := arp.NewPacket(arp.OperationRequest, intf.HardwareAddr, addr, broadcastHW, addr)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "failed to build arp packet")
	}
	if err := c.SetWriteDeadline(time.Now().Add(time.Second)); err != nil {
		return errors.Wrap(err, errors.KindUnavailable, "failed to set arp deadline")
	}
	if err := c.WriteTo(p, broadcastHW); err != nil {
		return errors.Attr(errors.Wrapf(err, errors.KindUnavailable, "failed to send arp for %s", ip), "device", device)
	}

	g.logger.Debug("Sent gratuitous ARP", "device", device, "ip", ip)
	return nil
}
