// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux
// +build !linux

package network

import (
	"context"
	"net"

	"grimm.is/vrouter/internal/config"
	"grimm.is/vrouter/internal/errors"
	"grimm.is/vrouter/internal/logging"
)

var errNotSupported = errors.New(errors.KindUnavailable, "network management is only supported on linux")

// Manager is a no-op on non-linux platforms.
type Manager struct {
	ifaces   []NetworkInterface
	rtTables string
}

// NewManager creates a manager that reports every device as missing.
func NewManager(ifaces []NetworkInterface, rtTables string, _ *logging.Logger) *Manager {
	return &Manager{ifaces: ifaces, rtTables: rtTables}
}

func (m *Manager) Close() error                                   { return nil }
func (m *Manager) Interfaces() []NetworkInterface                 { return m.ifaces }
func (m *Manager) DeviceReady(context.Context, string, Wait) bool { return false }
func (m *Manager) LinkIsUp(string) bool                           { return false }
func (m *Manager) AdminUp(string) bool                            { return false }
func (m *Manager) SetLinkUp(string) error                         { return errNotSupported }
func (m *Manager) SetLinkDown(string) error                       { return errNotSupported }
func (m *Manager) ReplaceDefaultRoute(string, net.IP, int) error  { return errNotSupported }
func (m *Manager) CopyRoutes([]string, string) error              { return errNotSupported }
func (m *Manager) ApplyStaticRoutes([]config.StaticRoute) error   { return errNotSupported }
func (m *Manager) PolicyTable(device string) (int, error)         { return PolicyTableID(m.rtTables, device) }

// GARP is a no-op on non-linux platforms.
type GARP struct{}

// NewGARP creates an announcer that always fails.
func NewGARP(*logging.Logger) *GARP { return &GARP{} }

func (g *GARP) Announce(string, net.IP) error { return errNotSupported }
