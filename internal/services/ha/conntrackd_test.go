// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ha

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/vrouter/internal/errors"
)

type recordingRunner struct {
	cmds []string
	fail map[string]bool
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	cmd := name + " " + strings.Join(args, " ")
	r.cmds = append(r.cmds, cmd)
	if r.fail[args[len(args)-1]] {
		return "error", fmt.Errorf("exit status 1")
	}
	return "", nil
}

func TestConntrackdManager_Promote(t *testing.T) {
	r := &recordingRunner{}
	m := NewConntrackdManager("/usr/sbin/conntrackd", "/etc/conntrackd/conntrackd.conf", r, nil)

	require.NoError(t, m.Promote(context.Background()))
	assert.Equal(t, []string{
		"/usr/sbin/conntrackd -C /etc/conntrackd/conntrackd.conf -c",
		"/usr/sbin/conntrackd -C /etc/conntrackd/conntrackd.conf -f",
		"/usr/sbin/conntrackd -C /etc/conntrackd/conntrackd.conf -R",
		"/usr/sbin/conntrackd -C /etc/conntrackd/conntrackd.conf -B",
	}, r.cmds)
}

func TestConntrackdManager_PromoteAttemptsEveryFlag(t *testing.T) {
	r := &recordingRunner{fail: map[string]bool{"-f": true}}
	m := NewConntrackdManager("conntrackd", "c.conf", r, nil)

	err := m.Promote(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindUnavailable))
	assert.Equal(t, "-f", errors.GetAttributes(err)["flag"])
	assert.Len(t, r.cmds, 4)
}

func TestConntrackdManager_DemoteShutdown(t *testing.T) {
	r := &recordingRunner{}
	m := NewConntrackdManager("conntrackd", "c.conf", r, nil)

	require.NoError(t, m.Demote(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, []string{"conntrackd -C c.conf -d", "conntrackd -C c.conf -s"}, r.cmds)

	r.fail = map[string]bool{"-s": true}
	err := m.Shutdown(context.Background())
	assert.True(t, errors.IsKind(err, errors.KindUnavailable))
}
