// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/vrouter/internal/errors"
)

type fakeRunner struct {
	calls []string
	fail  map[string]bool
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	call := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, call)
	if f.fail[call] {
		return "job failed", fmt.Errorf("exit status 1")
	}
	return "", nil
}

func TestServiceAction(t *testing.T) {
	r := &fakeRunner{fail: map[string]bool{"service ipsec stop": true}}
	m := NewManager(r, t.TempDir(), nil)

	require.NoError(t, m.ServiceAction(context.Background(), ServiceKeepalived, ActionRestart))

	err := m.ServiceAction(context.Background(), ServiceIPsec, ActionStop)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindUnavailable))
	assert.Equal(t, "job failed", errors.GetAttributes(err)["output"])

	require.NoError(t, m.RestartPasswordServer(context.Background(), "10.1.1.1"))

	assert.Equal(t, []string{
		"service keepalived restart",
		"service ipsec stop",
		"service cloud-password-server@10.1.1.1 restart",
	}, r.calls)
}

func TestRun(t *testing.T) {
	r := &fakeRunner{fail: map[string]bool{"conntrackd -C /etc/c.conf -s": true}}
	m := NewManager(r, t.TempDir(), nil)

	_, err := m.Run(context.Background(), "conntrackd", "-C", "/etc/c.conf", "-d")
	require.NoError(t, err)

	_, err = m.Run(context.Background(), "conntrackd", "-C", "/etc/c.conf", "-s")
	assert.True(t, errors.IsKind(err, errors.KindUnavailable))
}

func writeProc(t *testing.T, root string, pid int, args ...string) {
	t.Helper()
	dir := filepath.Join(root, fmt.Sprint(pid))
	require.NoError(t, os.MkdirAll(dir, 0755))
	cmdline := strings.Join(args, "\x00") + "\x00"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cmdline"), []byte(cmdline), 0644))
}

func TestProcessRunning(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, 1, "/sbin/init")
	writeProc(t, root, 412, "/usr/sbin/keepalived", "--vrrp")
	writeProc(t, root, 413, "/usr/sbin/conntrackd", "-C", "/etc/conntrackd/conntrackd.conf", "-d")
	// Kernel threads have an empty command line.
	writeProc(t, root, 2)

	m := NewManager(&fakeRunner{}, root, nil)
	assert.True(t, m.ProcessRunning("/usr/sbin/keepalived"))
	assert.True(t, m.ProcessRunning("/etc/conntrackd/conntrackd.conf"))
	assert.False(t, m.ProcessRunning("dnsmasq"))
}

func TestProcessRunning_NoProcfs(t *testing.T) {
	m := NewManager(&fakeRunner{}, filepath.Join(t.TempDir(), "missing"), nil)
	assert.False(t, m.ProcessRunning("keepalived"))
}
