// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"net"

	"grimm.is/vrouter/internal/errors"
)

// Validate checks the config for values the controller cannot act on.
func (c *Config) Validate() error {
	var errs []error

	if c.Name == "" {
		errs = append(errs, errors.New(errors.KindValidation, "name is required"))
	}
	switch c.Type {
	case TypeRouter, TypeVPCRouter:
	default:
		errs = append(errs, errors.Errorf(errors.KindValidation, "unknown router type %q", c.Type))
	}
	if c.Redundant && !c.RouterPassword.IsSet() {
		errs = append(errs, errors.New(errors.KindValidation, "router_password is required on a redundant router"))
	}
	if c.GuestGateway != "" && net.ParseIP(c.GuestGateway) == nil {
		errs = append(errs, errors.Errorf(errors.KindValidation, "invalid guest_gw %q", c.GuestGateway))
	}

	for _, a := range c.Addresses {
		if err := a.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Redundant {
		errs = append(errs, c.validateVRRP()...)
	}
	for _, r := range c.StaticRoutes {
		if _, _, err := net.ParseCIDR(r.Network); err != nil {
			errs = append(errs, errors.Errorf(errors.KindValidation, "static route: invalid network %q", r.Network))
		}
		if net.ParseIP(r.Gateway) == nil {
			errs = append(errs, errors.Errorf(errors.KindValidation, "static route %s: invalid gateway %q", r.Network, r.Gateway))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Wrap(errors.Join(errs...), errors.KindValidation, "invalid configuration")
}

// validateVRRP checks that every advertised address can be written as a
// keepalived virtual_ipaddress entry.
func (c *Config) validateVRRP() []error {
	var errs []error
	advertised := 0
	for _, a := range c.Addresses {
		if !a.advertised() || !a.IsAdded() {
			continue
		}
		advertised++
		if c.IsVPC() && a.Gateway == "" {
			errs = append(errs, errors.Attr(errors.Errorf(errors.KindValidation,
				"address %s on %s: gateway is required for its virtual address", a.CIDR, a.Device), "device", a.Device))
		}
		if a.Broadcast == "" {
			errs = append(errs, errors.Attr(errors.Errorf(errors.KindValidation,
				"address %s on %s: broadcast is required for its virtual address", a.CIDR, a.Device), "device", a.Device))
		}
	}
	if advertised > 0 && !c.IsVPC() && c.GuestGateway == "" {
		errs = append(errs, errors.New(errors.KindValidation, "guest_gw is required on a redundant router with a guest network"))
	}
	return errs
}

func (a Address) advertised() bool {
	if a.VRRP != nil {
		return *a.VRRP
	}
	return a.NetworkType == NetworkGuest
}

func (a Address) validate() error {
	if a.Device == "" {
		return errors.Errorf(errors.KindValidation, "address %s has no device", a.CIDR)
	}
	if _, _, err := net.ParseCIDR(a.CIDR); err != nil {
		return errors.Attr(errors.Errorf(errors.KindValidation, "address on %s: invalid cidr %q", a.Device, a.CIDR), "device", a.Device)
	}
	switch a.NetworkType {
	case NetworkGuest, NetworkPublic, NetworkControl:
	default:
		return errors.Errorf(errors.KindValidation, "address %s on %s: unknown nw_type %q", a.CIDR, a.Device, a.NetworkType)
	}
	if a.Gateway != "" && net.ParseIP(a.Gateway) == nil {
		return errors.Errorf(errors.KindValidation, "address %s on %s: invalid gateway %q", a.CIDR, a.Device, a.Gateway)
	}
	if a.Broadcast != "" && net.ParseIP(a.Broadcast) == nil {
		return errors.Errorf(errors.KindValidation, "address %s on %s: invalid broadcast %q", a.CIDR, a.Device, a.Broadcast)
	}
	return nil
}
