// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package network

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"grimm.is/vrouter/internal/config"
	verrors "grimm.is/vrouter/internal/errors"
)

func TestDeviceReady_Retries(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	m := NewManagerWithDeps(mockNetlink, nil, "", nil)
	slept := 0
	m.sleep = func(context.Context, time.Duration) bool { slept++; return true }

	mockNetlink.On("LinkByName", "eth0").Return(netlink.Link(nil), errors.New("not found")).Twice()
	mockNetlink.On("LinkByName", "eth0").Return(dummy("eth0", 2, netlink.OperUp), nil).Once()

	assert.True(t, m.DeviceReady(context.Background(), "eth0", Wait{Attempts: 5, Interval: time.Second}))
	assert.Equal(t, 2, slept)
	mockNetlink.AssertExpectations(t)
}

func TestDeviceReady_GivesUp(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	m := NewManagerWithDeps(mockNetlink, nil, "", nil)
	m.sleep = func(context.Context, time.Duration) bool { return true }

	mockNetlink.On("LinkByName", "eth9").Return(netlink.Link(nil), errors.New("not found")).Times(3)

	assert.False(t, m.DeviceReady(context.Background(), "eth9", Wait{Attempts: 3}))
	mockNetlink.AssertExpectations(t)
}

func TestDeviceReady_Cancelled(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	m := NewManagerWithDeps(mockNetlink, nil, "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mockNetlink.On("LinkByName", "eth9").Return(netlink.Link(nil), errors.New("not found")).Once()

	assert.False(t, m.DeviceReady(ctx, "eth9", Wait{Attempts: 10, Interval: time.Hour}))
	mockNetlink.AssertExpectations(t)
}

func TestLinkIsUp(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	m := NewManagerWithDeps(mockNetlink, nil, "", nil)

	mockNetlink.On("LinkByName", "eth0").Return(dummy("eth0", 2, netlink.OperUp), nil)
	mockNetlink.On("LinkByName", "eth1").Return(dummy("eth1", 3, netlink.OperDown), nil)
	mockNetlink.On("LinkByName", "eth2").Return(netlink.Link(nil), errors.New("not found"))

	assert.True(t, m.LinkIsUp("eth0"))
	assert.False(t, m.LinkIsUp("eth1"))
	assert.False(t, m.LinkIsUp("eth2"))
}

type fakeCarrier map[string]uint32

func (f fakeCarrier) LinkState(intf string) (uint32, error) {
	state, ok := f[intf]
	if !ok {
		return 0, errors.New("no such device")
	}
	return state, nil
}

func (fakeCarrier) Close() {}

func TestLinkIsUp_UnknownOperState(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	m := NewManagerWithDeps(mockNetlink, nil, "", nil)

	unknown := func(name string, flags net.Flags) netlink.Link {
		return &netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Name: name, Flags: flags, OperState: netlink.OperUnknown}}
	}
	mockNetlink.On("LinkByName", "eth0").Return(unknown("eth0", net.FlagUp), nil)
	mockNetlink.On("LinkByName", "eth1").Return(unknown("eth1", net.FlagUp), nil)
	mockNetlink.On("LinkByName", "eth2").Return(unknown("eth2", 0), nil)

	// Without ethtool UNKNOWN is not trusted.
	assert.False(t, m.LinkIsUp("eth0"))

	m.carrier = fakeCarrier{"eth0": 1, "eth1": 0, "eth2": 1}
	assert.True(t, m.LinkIsUp("eth0"))
	assert.False(t, m.LinkIsUp("eth1"))
	assert.False(t, m.LinkIsUp("eth2"), "admin down never counts as up")

	require.NoError(t, m.Close())
	assert.Nil(t, m.carrier)
}

func TestAdminUp(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	m := NewManagerWithDeps(mockNetlink, nil, "", nil)

	up := &netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Name: "eth1", Flags: net.FlagUp | net.FlagBroadcast, OperState: netlink.OperDown}}
	mockNetlink.On("LinkByName", "eth1").Return(netlink.Link(up), nil)
	mockNetlink.On("LinkByName", "eth2").Return(dummy("eth2", 4, netlink.OperDown), nil)

	assert.True(t, m.AdminUp("eth1"))
	assert.False(t, m.LinkIsUp("eth1"))
	assert.False(t, m.AdminUp("eth2"))
}

func TestSetLinkUpDown(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	m := NewManagerWithDeps(mockNetlink, nil, "", nil)
	link := dummy("eth2", 4, netlink.OperDown)

	mockNetlink.On("LinkByName", "eth2").Return(link, nil)
	mockNetlink.On("LinkSetUp", link).Return(nil).Once()
	mockNetlink.On("LinkSetDown", link).Return(errors.New("busy")).Once()

	require.NoError(t, m.SetLinkUp("eth2"))
	err := m.SetLinkDown("eth2")
	require.Error(t, err)
	assert.True(t, verrors.IsKind(err, verrors.KindUnavailable))
	mockNetlink.AssertExpectations(t)
}

func TestReplaceDefaultRoute(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	m := NewManagerWithDeps(mockNetlink, nil, "", nil)
	gw := net.ParseIP("10.1.1.1")

	mockNetlink.On("LinkByName", "eth1").Return(dummy("eth1", 3, netlink.OperUp), nil)
	mockNetlink.On("RouteReplace", mock.MatchedBy(func(r *netlink.Route) bool {
		return r.LinkIndex == 3 && r.Gw.Equal(gw) && r.Table == unix.RT_TABLE_MAIN && r.Dst.String() == "0.0.0.0/0"
	})).Return(nil).Once()
	mockNetlink.On("RouteReplace", mock.MatchedBy(func(r *netlink.Route) bool {
		return r.LinkIndex == 3 && r.Table == 101
	})).Return(nil).Once()

	require.NoError(t, m.ReplaceDefaultRoute("eth1", gw, 0))
	require.NoError(t, m.ReplaceDefaultRoute("eth1", gw, 101))
	assert.Error(t, m.ReplaceDefaultRoute("eth1", nil, 0))
	mockNetlink.AssertExpectations(t)
}

func TestCopyRoutes(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	m := NewManagerWithDeps(mockNetlink, nil, "", nil)

	_, guestNet, _ := net.ParseCIDR("10.1.1.0/24")
	mockNetlink.On("LinkByName", "eth0").Return(dummy("eth0", 2, netlink.OperUp), nil)
	mockNetlink.On("RouteListFiltered", netlink.FAMILY_V4, mock.Anything, uint64(netlink.RT_FILTER_OIF|netlink.RT_FILTER_TABLE)).
		Return([]netlink.Route{
			{LinkIndex: 2, Dst: guestNet, Scope: netlink.SCOPE_LINK},
			{LinkIndex: 2, Gw: net.ParseIP("10.1.1.254")}, // default, skipped
		}, nil).Once()
	mockNetlink.On("RouteReplace", mock.MatchedBy(func(r *netlink.Route) bool {
		return r.Table == 102 && r.Dst.String() == "10.1.1.0/24"
	})).Return(nil).Once()

	require.NoError(t, m.CopyRoutes([]string{"eth0"}, "eth2"))
	mockNetlink.AssertExpectations(t)
}

func TestApplyStaticRoutes(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	m := NewManagerWithDeps(mockNetlink, nil, "", nil)

	mockNetlink.On("RouteReplace", mock.MatchedBy(func(r *netlink.Route) bool {
		return r.Dst.String() == "192.168.50.0/24" && r.Gw.String() == "10.1.1.5"
	})).Return(nil).Once()
	mockNetlink.On("RouteDel", mock.MatchedBy(func(r *netlink.Route) bool {
		return r.Dst.String() == "192.168.60.0/24"
	})).Return(unix.ESRCH).Once()

	err := m.ApplyStaticRoutes([]config.StaticRoute{
		{Network: "192.168.50.0/24", Gateway: "10.1.1.5"},
		{Network: "192.168.60.0/24", Gateway: "10.1.1.5", Revoke: true},
	})
	require.NoError(t, err)

	err = m.ApplyStaticRoutes([]config.StaticRoute{{Network: "bogus", Gateway: "10.1.1.5"}})
	require.Error(t, err)
	mockNetlink.AssertExpectations(t)
}
