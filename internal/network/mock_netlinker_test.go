// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package network

import (
	"github.com/stretchr/testify/mock"
	"github.com/vishvananda/netlink"
)

type MockNetlinker struct {
	mock.Mock
}

func (m *MockNetlinker) LinkByName(name string) (netlink.Link, error) {
	args := m.Called(name)
	l, _ := args.Get(0).(netlink.Link)
	return l, args.Error(1)
}

func (m *MockNetlinker) LinkSetUp(link netlink.Link) error {
	return m.Called(link).Error(0)
}

func (m *MockNetlinker) LinkSetDown(link netlink.Link) error {
	return m.Called(link).Error(0)
}

func (m *MockNetlinker) RouteReplace(route *netlink.Route) error {
	return m.Called(route).Error(0)
}

func (m *MockNetlinker) RouteDel(route *netlink.Route) error {
	return m.Called(route).Error(0)
}

func (m *MockNetlinker) RouteListFiltered(family int, filter *netlink.Route, mask uint64) ([]netlink.Route, error) {
	args := m.Called(family, filter, mask)
	r, _ := args.Get(0).([]netlink.Route)
	return r, args.Error(1)
}

func dummy(name string, index int, state netlink.LinkOperState) netlink.Link {
	return &netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Name: name, Index: index, OperState: state}}
}
