// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"fmt"
	"time"

	"grimm.is/vrouter/internal/install"
)

// Defaults for TransitionConfig.
const (
	DefaultLockAttempts       = 10
	DefaultLockBackoff        = time.Second
	DefaultDeviceWaitAttempts = 15
	DefaultDeviceWaitInterval = time.Second
)

// Canonicalize fills defaults so every consumer sees a complete config.
func (c *Config) Canonicalize() error {
	if c.SchemaVersion == "" {
		c.SchemaVersion = CurrentSchemaVersion
	}
	if c.Type == "" {
		c.Type = TypeRouter
	}
	if c.Transition == nil {
		c.Transition = &TransitionConfig{}
	}
	if c.Transition.LockAttempts <= 0 {
		c.Transition.LockAttempts = DefaultLockAttempts
	}
	if c.Transition.DeviceWaitAttempts <= 0 {
		c.Transition.DeviceWaitAttempts = DefaultDeviceWaitAttempts
	}
	if c.Transition.LockBackoff == "" {
		c.Transition.LockBackoff = DefaultLockBackoff.String()
	}
	if c.Transition.DeviceWaitInterval == "" {
		c.Transition.DeviceWaitInterval = DefaultDeviceWaitInterval.String()
	}
	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	for i := range c.Addresses {
		if c.Addresses[i].NetworkType == "" {
			return fmt.Errorf("address %s on %s has no nw_type", c.Addresses[i].CIDR, c.Addresses[i].Device)
		}
	}
	return nil
}

// ResolvedPaths returns the default paths with the config's overrides applied.
func (c *Config) ResolvedPaths() install.Paths {
	p := install.DefaultPaths()
	if c.Paths != nil {
		p = p.Merge(*c.Paths)
	}
	return p
}

// LockBackoffDuration returns the parsed lock retry backoff.
func (t *TransitionConfig) LockBackoffDuration() time.Duration {
	return parseDurationOr(t.LockBackoff, DefaultLockBackoff)
}

// DeviceWaitIntervalDuration returns the parsed device poll interval.
func (t *TransitionConfig) DeviceWaitIntervalDuration() time.Duration {
	return parseDurationOr(t.DeviceWaitInterval, DefaultDeviceWaitInterval)
}

// PrimaryPublic returns the device that carries the main-table default route.
func (c *Config) PrimaryPublic() string {
	if c.PrimaryPublicInterface != "" {
		return c.PrimaryPublicInterface
	}
	if c.IsVPC() {
		return "eth1"
	}
	return "eth2"
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}
