// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics records transition telemetry and exports it as a
// node_exporter textfile. The controller is a short-lived process, so the
// exported values describe the most recent invocation.
package metrics

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"grimm.is/vrouter/internal/errors"
)

// Roles exported on the role gauge.
var knownRoles = []string{"MASTER", "BACKUP", "FAULT", "UNKNOWN", "DISABLED"}

// Recorder holds the controller's Prometheus metrics. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	Role               *prometheus.GaugeVec
	TransitionSuccess  *prometheus.GaugeVec
	TransitionDuration *prometheus.GaugeVec
	TransitionTime     *prometheus.GaugeVec
	ConfigInstalls     *prometheus.CounterVec
	StepFailures       *prometheus.CounterVec
}

// NewRecorder creates a recorder on its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		Role: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vrouter_role",
			Help: "Current redundancy role (1 for the active role, 0 otherwise)",
		}, []string{"role"}),

		TransitionSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vrouter_last_transition_success",
			Help: "Whether the last transition to a role completed (1) or failed (0)",
		}, []string{"role"}),

		TransitionDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vrouter_last_transition_duration_seconds",
			Help: "Duration of the last transition to a role",
		}, []string{"role"}),

		TransitionTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vrouter_last_transition_timestamp_seconds",
			Help: "Unix time the last transition to a role finished",
		}, []string{"role"}),

		ConfigInstalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vrouter_config_installs_total",
			Help: "Configuration files replaced because their content changed",
		}, []string{"file"}),

		StepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vrouter_step_failures_total",
			Help: "Transition or policy steps that failed",
		}, []string{"step"}),
	}

	r.registry.MustRegister(
		r.Role,
		r.TransitionSuccess,
		r.TransitionDuration,
		r.TransitionTime,
		r.ConfigInstalls,
		r.StepFailures,
	)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// SetRole marks role as the active one.
func (r *Recorder) SetRole(role string) {
	if r == nil {
		return
	}
	for _, known := range knownRoles {
		r.Role.WithLabelValues(known).Set(0)
	}
	r.Role.WithLabelValues(role).Set(1)
}

// ObserveTransition records the outcome of a transition to role.
func (r *Recorder) ObserveTransition(role string, ok bool, d time.Duration) {
	if r == nil {
		return
	}
	success := 0.0
	if ok {
		success = 1
	}
	r.TransitionSuccess.WithLabelValues(role).Set(success)
	r.TransitionDuration.WithLabelValues(role).Set(d.Seconds())
	r.TransitionTime.WithLabelValues(role).SetToCurrentTime()
}

// ConfigInstalled counts a replaced configuration file.
func (r *Recorder) ConfigInstalled(file string) {
	if r == nil {
		return
	}
	r.ConfigInstalls.WithLabelValues(file).Inc()
}

// StepFailed counts a failed step.
func (r *Recorder) StepFailed(step string) {
	if r == nil {
		return
	}
	r.StepFailures.WithLabelValues(step).Inc()
}

// Flush writes the registry to path in the text exposition format. An
// empty path disables export.
func (r *Recorder) Flush(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, errors.KindUnavailable, "failed to create %s", filepath.Dir(path))
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return errors.Wrapf(err, errors.KindUnavailable, "failed to write metrics to %s", path)
	}
	return nil
}
