// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package render

import (
	"grimm.is/vrouter/internal/errors"
)

// Multicast sync parameters shared by both peers.
const (
	ConntrackMulticastGroup   = "225.0.0.50"
	ConntrackMulticastPort    = "3780"
	ConntrackSocketBufferSize = "1249280"
)

// ConntrackdParams are the inputs of the conntrackd configuration.
type ConntrackdParams struct {
	GuestIP     string
	GuestDevice string
	ControlIP   string
}

// RenderConntrackd fills the conntrackd template: sync over multicast on the
// guest link, never syncing loopback or control traffic.
func RenderConntrackd(tmpl []byte, p ConntrackdParams) ([]byte, error) {
	if p.GuestIP == "" || p.GuestDevice == "" {
		return nil, errors.New(errors.KindValidation, "conntrackd: no guest address to sync over")
	}
	if p.ControlIP == "" {
		return nil, errors.New(errors.KindValidation, "conntrackd: no control address to ignore")
	}

	f := NewFile("conntrackd.conf", tmpl)
	if err := f.Section("Multicast {", "}", []string{
		"\t\tIPv4_address " + ConntrackMulticastGroup,
		"\t\tGroup " + ConntrackMulticastPort,
		"\t\tIPv4_interface " + p.GuestIP,
		"\t\tInterface " + p.GuestDevice,
		"\t\tSndSocketBuffer " + ConntrackSocketBufferSize,
		"\t\tRcvSocketBuffer " + ConntrackSocketBufferSize,
		"\t\tChecksum on",
	}); err != nil {
		return nil, err
	}
	if err := f.Section("Address Ignore {", "}", []string{
		"\t\t\tIPv4_address 127.0.0.1",
		"\t\t\tIPv4_address " + p.ControlIP,
	}); err != nil {
		return nil, err
	}
	return f.Bytes(), nil
}
