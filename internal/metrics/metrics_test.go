// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	r.SetRole("BACKUP")
	r.SetRole("MASTER")
	assert.Equal(t, 1.0, promtest.ToFloat64(r.Role.WithLabelValues("MASTER")))
	assert.Equal(t, 0.0, promtest.ToFloat64(r.Role.WithLabelValues("BACKUP")))

	r.ObserveTransition("MASTER", true, 1500*time.Millisecond)
	assert.Equal(t, 1.0, promtest.ToFloat64(r.TransitionSuccess.WithLabelValues("MASTER")))
	assert.Equal(t, 1.5, promtest.ToFloat64(r.TransitionDuration.WithLabelValues("MASTER")))

	r.ConfigInstalled("keepalived.conf")
	r.ConfigInstalled("keepalived.conf")
	assert.Equal(t, 2.0, promtest.ToFloat64(r.ConfigInstalls.WithLabelValues("keepalived.conf")))

	r.StepFailed("arp")
	assert.Equal(t, 1.0, promtest.ToFloat64(r.StepFailures.WithLabelValues("arp")))
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	r.SetRole("MASTER")
	r.ObserveTransition("MASTER", false, time.Second)
	r.ConfigInstalled("x")
	r.StepFailed("x")
	assert.Nil(t, r.Registry())
	assert.NoError(t, r.Flush("/nonexistent/metrics.prom"))
}

func TestFlush(t *testing.T) {
	r := NewRecorder()
	r.SetRole("FAULT")

	path := filepath.Join(t.TempDir(), "textfile", "vrouter.prom")
	require.NoError(t, r.Flush(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `vrouter_role{role="FAULT"} 1`)

	assert.NoError(t, r.Flush(""))
}
