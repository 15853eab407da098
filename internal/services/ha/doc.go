// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ha is the redundancy controller of a virtual router pair.
//
// # Overview
//
// keepalived elects which member of the pair is active and calls back into
// the controller on every state change. The controller then drives the
// appliance into the matching role:
//   - MASTER: public links up, routes and ARP announced, conntrackd promoted,
//     VPN and DNS/DHCP services running
//   - BACKUP: public links down, conntrackd demoted, those services stopped
//   - FAULT: like BACKUP, with conntrackd shut down
//
// # Policy
//
// ApplyPolicy runs at boot and on every reconfiguration. It either tears
// redundancy down (disabled, or no guest network to protect), defers until
// a guest link is up, or renders and installs the keepalived and conntrackd
// configurations and restarts the daemons whose configuration changed.
//
// # Transitions
//
// SetMaster, SetBackup and SetFault each run an ordered list of steps under
// an appliance-wide lease, persist the role, release the lease, and then
// reconcile public links against the persisted role. Every step is safe to
// re-run, so an interrupted transition is repaired by the next one.
package ha
