// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ha

import (
	"context"
	"fmt"
	"net"
	"sync"

	"grimm.is/vrouter/internal/config"
	"grimm.is/vrouter/internal/network"
	"grimm.is/vrouter/internal/services/lifecycle"
)

// fakeNet implements network.Inventory and network.Router in memory.
type fakeNet struct {
	mu      sync.Mutex
	ifaces  []network.NetworkInterface
	present map[string]bool
	adminUp map[string]bool
	operUp  map[string]bool
	calls   []string
}

func newFakeNet(ifaces []network.NetworkInterface) *fakeNet {
	f := &fakeNet{
		ifaces:  ifaces,
		present: make(map[string]bool),
		adminUp: make(map[string]bool),
		operUp:  make(map[string]bool),
	}
	for _, i := range ifaces {
		f.present[i.Device] = true
	}
	return f
}

func (f *fakeNet) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeNet) setUp(devs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range devs {
		f.adminUp[d] = true
		f.operUp[d] = true
	}
}

func (f *fakeNet) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeNet) Interfaces() []network.NetworkInterface { return f.ifaces }

func (f *fakeNet) DeviceReady(_ context.Context, device string, _ network.Wait) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.present[device]
}

func (f *fakeNet) LinkIsUp(device string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.operUp[device]
}

func (f *fakeNet) AdminUp(device string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.adminUp[device]
}

func (f *fakeNet) SetLinkUp(device string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("up %s", device)
	f.adminUp[device] = true
	f.operUp[device] = true
	return nil
}

func (f *fakeNet) SetLinkDown(device string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("down %s", device)
	f.adminUp[device] = false
	f.operUp[device] = false
	return nil
}

func (f *fakeNet) ReplaceDefaultRoute(device string, gw net.IP, table int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if table == 0 {
		f.record("route default via %s dev %s", gw, device)
	} else {
		f.record("route default via %s dev %s table %d", gw, device, table)
	}
	return nil
}

func (f *fakeNet) PolicyTable(device string) (int, error) {
	return network.PolicyTableID("", device)
}

func (f *fakeNet) CopyRoutes(from []string, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("copy %v -> %s", from, to)
	return nil
}

func (f *fakeNet) ApplyStaticRoutes(routes []config.StaticRoute) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range routes {
		f.record("static %s via %s", r.Network, r.Gateway)
	}
	return nil
}

type fakeARP struct {
	mu   sync.Mutex
	sent []string
}

func (a *fakeARP) Announce(device string, ip net.IP) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, ip.String()+"@"+device)
	return nil
}

type fakeServices struct {
	mu      sync.Mutex
	actions []string
	running map[string]bool
	fail    map[string]bool
	hook    func()
}

func newFakeServices() *fakeServices {
	return &fakeServices{running: make(map[string]bool), fail: make(map[string]bool)}
}

func (s *fakeServices) ServiceAction(_ context.Context, name string, action lifecycle.Action) error {
	if s.hook != nil {
		s.hook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	call := name + " " + string(action)
	s.actions = append(s.actions, call)
	if s.fail[call] {
		return fmt.Errorf("%s failed", call)
	}
	return nil
}

func (s *fakeServices) ProcessRunning(pattern string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[pattern]
}

func (s *fakeServices) RestartPasswordServer(ctx context.Context, ip string) error {
	return s.ServiceAction(ctx, lifecycle.PasswordServerPrefix+ip, lifecycle.ActionRestart)
}

func (s *fakeServices) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.actions...)
}

func (s *fakeServices) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = nil
}

type fakeConntrack struct {
	mu    sync.Mutex
	calls []string
	hook  func()
}

func (c *fakeConntrack) do(name string) error {
	if c.hook != nil {
		c.hook()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
	return nil
}

func (c *fakeConntrack) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeConntrack) Promote(context.Context) error  { return c.do("promote") }
func (c *fakeConntrack) Demote(context.Context) error   { return c.do("demote") }
func (c *fakeConntrack) Shutdown(context.Context) error { return c.do("shutdown") }

type fakeMounter struct {
	mounted map[string]bool
}

func (m *fakeMounter) MountTmpfs(dir string) error {
	m.mounted[dir] = true
	return nil
}

func (m *fakeMounter) Unmount(dir string) error {
	delete(m.mounted, dir)
	return nil
}

func (m *fakeMounter) IsMounted(dir string) bool { return m.mounted[dir] }

type fakeTable TableUsage

func (f fakeTable) Usage() (TableUsage, error) { return TableUsage(f), nil }
