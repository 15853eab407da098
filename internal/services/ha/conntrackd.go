// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ha

import (
	"context"

	"grimm.is/vrouter/internal/errors"
	"grimm.is/vrouter/internal/logging"
)

// CommandRunner runs an external command.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// conntrackd control flags, each run as "conntrackd -C <conf> <flag>".
const (
	conntrackdCommit   = "-c" // commit the external cache into the kernel table
	conntrackdFlush    = "-f" // flush the internal and external caches
	conntrackdResync   = "-R" // resync the internal cache with the kernel table
	conntrackdBulkSend = "-B" // send a bulk update to the peer
	conntrackdDaemon   = "-d" // start conntrackd in daemon mode; a fresh daemon waits as standby
	conntrackdStats    = "-s" // dump statistics of the caches and sync links
)

// ConntrackdManager switches the running conntrackd between active and
// standby synchronization.
type ConntrackdManager struct {
	bin    string
	conf   string
	runner CommandRunner
	logger *logging.Logger
}

// NewConntrackdManager creates a manager for the daemon at bin using conf.
func NewConntrackdManager(bin, conf string, runner CommandRunner, logger *logging.Logger) *ConntrackdManager {
	if logger == nil {
		logger = logging.WithComponent("conntrackd")
	}
	return &ConntrackdManager{bin: bin, conf: conf, runner: runner, logger: logger}
}

// Promote makes this node the sync source: commit the state learned from
// the peer, start from fresh caches, resync from the kernel and push a bulk
// update. Every flag is attempted even if an earlier one fails.
func (m *ConntrackdManager) Promote(ctx context.Context) error {
	var errs []error
	for _, flag := range []string{conntrackdCommit, conntrackdFlush, conntrackdResync, conntrackdBulkSend} {
		if _, err := m.control(ctx, flag); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Wrap(errors.Join(errs...), errors.KindUnavailable, "conntrackd promote incomplete")
	}
	m.logger.Info("Promoted conntrackd")
	return nil
}

// Demote makes sure a standby conntrackd is running.
func (m *ConntrackdManager) Demote(ctx context.Context) error {
	if _, err := m.control(ctx, conntrackdDaemon); err != nil {
		return err
	}
	m.logger.Info("Started conntrackd as standby")
	return nil
}

// Shutdown is the fault-path control: it dumps conntrackd statistics so the
// state of the caches at the time of the fault reaches the log. The daemon
// itself is left running.
func (m *ConntrackdManager) Shutdown(ctx context.Context) error {
	out, err := m.control(ctx, conntrackdStats)
	if err != nil {
		return err
	}
	m.logger.Info("Dumped conntrackd statistics on fault", "stats", out)
	return nil
}

func (m *ConntrackdManager) control(ctx context.Context, flag string) (string, error) {
	out, err := m.runner.Run(ctx, m.bin, "-C", m.conf, flag)
	if err != nil {
		m.logger.Warn("conntrackd control failed", "flag", flag, "error", err)
		return out, errors.Attr(errors.Wrapf(err, errors.KindUnavailable, "conntrackd %s failed", flag), "flag", flag)
	}
	return out, nil
}
