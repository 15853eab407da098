// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"grimm.is/vrouter/internal/install"
)

// CurrentSchemaVersion defines the current schema version of the configuration.
const CurrentSchemaVersion = "1.0"

// Router types. A VPC router routes between several guest tiers; a plain
// router fronts a single isolated guest network.
const (
	TypeRouter    = "router"
	TypeVPCRouter = "vpcrouter"
)

// Network types of an address.
const (
	NetworkGuest   = "guest"
	NetworkPublic  = "public"
	NetworkControl = "control"
)

// Config is the static model of one appliance: its identity, whether it is a
// member of a redundant pair, and every address plumbed onto its devices.
// The controller treats it as read-only; the role lives in the state store.
type Config struct {
	// Schema version for backward compatibility.
	// @default: "1.0"
	SchemaVersion string `hcl:"schema_version,optional" json:"schema_version,omitempty"`

	// Name of the router, used as the VRRP router_id.
	Name string `hcl:"name" json:"name"`

	// Router type.
	// @enum: router, vpcrouter
	// @default: "router"
	Type string `hcl:"type,optional" json:"type,omitempty"`

	// Redundant enables the redundant pair mode (keepalived + conntrackd).
	// @default: false
	Redundant bool `hcl:"redundant,optional" json:"redundant,omitempty"`

	// RouterPassword is the VRRP AH authentication secret shared by both peers.
	RouterPassword SecureString `hcl:"router_password,optional" json:"router_password,omitempty"`

	// GuestGateway is the virtual gateway address a plain router protects.
	GuestGateway string `hcl:"guest_gw,optional" json:"guest_gw,omitempty"`

	// PrimaryPublicInterface overrides the device that gets the main-table
	// default route. Defaults to eth1 on VPC routers and eth2 otherwise.
	PrimaryPublicInterface string `hcl:"primary_public_interface,optional" json:"primary_public_interface,omitempty"`

	Addresses    []Address         `hcl:"address,block" json:"address,omitempty"`
	StaticRoutes []StaticRoute     `hcl:"static_route,block" json:"static_route,omitempty"`
	Transition   *TransitionConfig `hcl:"transition,block" json:"transition,omitempty"`
	Paths        *install.Paths    `hcl:"paths,block" json:"paths,omitempty"`
	Logging      *LoggingConfig    `hcl:"logging,block" json:"logging,omitempty"`
}

// Address is one IP plumbed on a device.
type Address struct {
	// Device is the kernel link name (e.g. "eth1").
	Device string `hcl:"device,label" json:"device"`

	// CIDR is the address with prefix length (e.g. "172.16.0.2/24").
	CIDR string `hcl:"cidr" json:"cidr"`

	Gateway   string `hcl:"gateway,optional" json:"gateway,omitempty"`
	Broadcast string `hcl:"broadcast,optional" json:"broadcast,omitempty"`

	// NetworkType classifies the address.
	// @enum: guest, public, control
	NetworkType string `hcl:"nw_type" json:"nw_type"`

	// Add is false for addresses scheduled for removal.
	// @default: true
	Add *bool `hcl:"add,optional" json:"add,omitempty"`

	// VRRP forces (or suppresses) advertisement by keepalived. When unset,
	// guest addresses are advertised.
	VRRP *bool `hcl:"vrrp,optional" json:"vrrp,omitempty"`
}

// StaticRoute is a route installed when the router becomes master.
type StaticRoute struct {
	Network string `hcl:"network,label" json:"network"`
	Gateway string `hcl:"gateway" json:"gateway"`
	// Revoke removes the route instead of adding it.
	Revoke bool `hcl:"revoke,optional" json:"revoke,omitempty"`
}

// TransitionConfig tunes lock and device-wait retry behaviour.
type TransitionConfig struct {
	// @default: 10
	LockAttempts int `hcl:"lock_attempts,optional" json:"lock_attempts,omitempty"`
	// @default: "1s"
	LockBackoff string `hcl:"lock_backoff,optional" json:"lock_backoff,omitempty"`
	// @default: 15
	DeviceWaitAttempts int `hcl:"device_wait_attempts,optional" json:"device_wait_attempts,omitempty"`
	// @default: "1s"
	DeviceWaitInterval string `hcl:"device_wait_interval,optional" json:"device_wait_interval,omitempty"`
}

// LoggingConfig controls controller log output.
type LoggingConfig struct {
	// @enum: debug, info, warn, error
	// @default: "info"
	Level string `hcl:"level,optional" json:"level,omitempty"`
	JSON  bool   `hcl:"json,optional" json:"json,omitempty"`
	// ToFile appends to paths.log_file in addition to stderr.
	// @default: true
	ToFile *bool `hcl:"to_file,optional" json:"to_file,omitempty"`
}

// IsVPC reports whether the router is a VPC router.
func (c *Config) IsVPC() bool {
	return c.Type == TypeVPCRouter
}

// IsAdded reports whether the address is live (not scheduled for removal).
func (a Address) IsAdded() bool {
	return a.Add == nil || *a.Add
}
