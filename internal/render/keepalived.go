// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package render

import (
	"bytes"
	"fmt"
	"net"
	"strings"

	"grimm.is/vrouter/internal/config"
	"grimm.is/vrouter/internal/errors"
	"grimm.is/vrouter/internal/network"
)

// VirtualAddress is one keepalived virtual_ipaddress entry.
type VirtualAddress struct {
	Address   string
	Broadcast string
	Device    string
}

func (v VirtualAddress) line() string {
	return fmt.Sprintf("        %s brd %s dev %s", v.Address, v.Broadcast, v.Device)
}

// validate rejects entries keepalived could not parse.
func (v VirtualAddress) validate() error {
	var missing []string
	if v.Address == "" {
		missing = append(missing, "address")
	}
	if v.Broadcast == "" {
		missing = append(missing, "broadcast")
	}
	if v.Device == "" {
		missing = append(missing, "device")
	}
	if len(missing) == 0 {
		return nil
	}
	return errors.Attr(errors.Errorf(errors.KindValidation,
		"keepalived: virtual address on %q has no %s", v.Device, strings.Join(missing, ", ")), "device", v.Device)
}

// KeepalivedParams are the inputs of the VRRP configuration.
type KeepalivedParams struct {
	RouterID         string
	Interface        string
	RouterDir        string
	ControllerBin    string
	Password         string
	VirtualAddresses []VirtualAddress
}

// VirtualAddresses lists the addresses keepalived protects: every live
// address that needs VRRP. A plain router advertises its guest gateway, a
// VPC router the tier gateway with the tier's prefix length.
func VirtualAddresses(cfg *config.Config, ifaces []network.NetworkInterface) []VirtualAddress {
	var out []VirtualAddress
	for _, i := range ifaces {
		if !i.NeedsVRRP() || !i.Added {
			continue
		}
		addr := i.GatewayCIDR()
		if !cfg.IsVPC() {
			addr = cfg.GuestGateway
		}
		out = append(out, VirtualAddress{
			Address:   addr,
			Broadcast: ipString(i.Broadcast),
			Device:    i.Device,
		})
	}
	return out
}

// RenderKeepalived fills the keepalived template. Identical inputs give
// byte-identical output.
func RenderKeepalived(tmpl []byte, p KeepalivedParams) ([]byte, error) {
	if p.RouterID == "" {
		return nil, errors.New(errors.KindValidation, "keepalived: router id is empty")
	}
	if p.Interface == "" {
		return nil, errors.New(errors.KindValidation, "keepalived: no guest interface for VRRP")
	}

	f := NewFile("keepalived.conf", tmpl)
	if _, err := f.Search(" router_id ", "    router_id "+p.RouterID); err != nil {
		return nil, err
	}
	if _, err := f.Search(" interface ", "    interface "+p.Interface); err != nil {
		return nil, err
	}
	f.GReplace("[RROUTER_BIN_PATH]", p.RouterDir)
	f.GReplace("[VROUTER_BIN]", p.ControllerBin)

	if err := f.Section("authentication {", "}", []string{
		"        auth_type AH",
		"        auth_pass " + p.Password,
	}); err != nil {
		return nil, err
	}

	vips := make([]string, 0, len(p.VirtualAddresses))
	for _, v := range p.VirtualAddresses {
		if err := v.validate(); err != nil {
			return nil, err
		}
		vips = append(vips, v.line())
	}
	if err := f.Section("virtual_ipaddress {", "}", vips); err != nil {
		return nil, err
	}
	return f.Bytes(), nil
}

// PatchKeepalivedInit makes the init script start keepalived in VRRP-only
// mode. It reports whether the script changed.
func PatchKeepalivedInit(script []byte) ([]byte, bool) {
	patched := bytes.ReplaceAll(script, []byte("--exec $DAEMON;"), []byte("--exec $DAEMON -- --vrrp;"))
	return patched, !bytes.Equal(patched, script)
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}
