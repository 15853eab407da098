// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package lifecycle starts, stops and probes the OS services the redundancy
// controller orchestrates.
package lifecycle

import (
	"context"
	"os/exec"
	"strings"

	"github.com/prometheus/procfs"

	"grimm.is/vrouter/internal/errors"
	"grimm.is/vrouter/internal/logging"
)

// Action is a service-manager verb.
type Action string

const (
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionRestart Action = "restart"
	ActionReload  Action = "reload"
)

// Well-known services.
const (
	ServiceKeepalived = "keepalived"
	ServiceConntrackd = "conntrackd"
	ServiceIPsec      = "ipsec"
	ServiceL2TP       = "xl2tpd"
	ServiceDNSMasq    = "dnsmasq"

	// PasswordServerPrefix is completed with the address the helper binds to.
	PasswordServerPrefix = "cloud-password-server@"
)

// DependentServices must only run on the master.
var DependentServices = []string{ServiceIPsec, ServiceL2TP, ServiceDNSMasq}

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(out), err
}

// Manager drives services through the init system's service command.
type Manager struct {
	runner   Runner
	procRoot string
	logger   *logging.Logger
}

// NewManager creates a manager. procRoot is the procfs mount point, usually /proc.
func NewManager(runner Runner, procRoot string, logger *logging.Logger) *Manager {
	if runner == nil {
		runner = ExecRunner{}
	}
	if procRoot == "" {
		procRoot = procfs.DefaultMountPoint
	}
	if logger == nil {
		logger = logging.WithComponent("lifecycle")
	}
	return &Manager{runner: runner, procRoot: procRoot, logger: logger}
}

// ServiceAction runs "service <name> <action>". A non-zero exit is returned
// as a KindUnavailable error carrying the command output.
func (m *Manager) ServiceAction(ctx context.Context, name string, action Action) error {
	out, err := m.runner.Run(ctx, "service", name, string(action))
	if err != nil {
		m.logger.Warn("Service action failed", "service", name, "action", action, "error", err, "output", strings.TrimSpace(out))
		return errors.Attr(errors.Attr(
			errors.Wrapf(err, errors.KindUnavailable, "service %s %s failed", name, action),
			"service", name), "output", strings.TrimSpace(out))
	}
	m.logger.Info("Service action", "service", name, "action", action)
	return nil
}

// ProcessRunning reports whether any process command line contains pattern.
func (m *Manager) ProcessRunning(pattern string) bool {
	fs, err := procfs.NewFS(m.procRoot)
	if err != nil {
		m.logger.Warn("Cannot open procfs", "path", m.procRoot, "error", err)
		return false
	}
	procs, err := fs.AllProcs()
	if err != nil {
		m.logger.Warn("Cannot list processes", "error", err)
		return false
	}
	for _, p := range procs {
		cmdline, err := p.CmdLine()
		if err != nil || len(cmdline) == 0 {
			continue
		}
		if strings.Contains(strings.Join(cmdline, " "), pattern) {
			return true
		}
	}
	return false
}

// RestartPasswordServer restarts the password helper bound to ip.
func (m *Manager) RestartPasswordServer(ctx context.Context, ip string) error {
	return m.ServiceAction(ctx, PasswordServerPrefix+ip, ActionRestart)
}

// Run executes an arbitrary command through the manager's runner.
func (m *Manager) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := m.runner.Run(ctx, name, args...)
	if err != nil {
		return out, errors.Attr(errors.Wrapf(err, errors.KindUnavailable, "%s %s failed", name, strings.Join(args, " ")),
			"output", strings.TrimSpace(out))
	}
	return out, nil
}
