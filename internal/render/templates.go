// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package render produces the keepalived and conntrackd configurations, the
// heartbeat scripts and cron job, and installs them only when their content
// changed.
package render

import (
	"embed"
	"os"
	"path/filepath"
	"strings"

	"grimm.is/vrouter/internal/errors"
)

//go:embed templates/*.templ
var embedded embed.FS

// Template names.
const (
	KeepalivedTemplate     = "keepalived.conf.templ"
	ConntrackdTemplate     = "conntrackd.conf.templ"
	CheckRouterTemplate    = "checkrouter.sh.templ"
	HeartbeatTemplate      = "heartbeat.sh.templ"
	CheckHeartbeatTemplate = "check_heartbeat.sh.templ"
	ArpingTemplate         = "arping_gateways.sh.templ"
)

// RouterScripts are installed into the router scratch directory.
var RouterScripts = []string{HeartbeatTemplate, CheckHeartbeatTemplate, ArpingTemplate}

// Templates loads templates, preferring a file of the same name in Dir over
// the copy built into the binary.
type Templates struct {
	Dir string
}

// Load returns the named template.
func (t Templates) Load(name string) ([]byte, error) {
	if t.Dir != "" {
		data, err := os.ReadFile(filepath.Join(t.Dir, name))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, errors.KindValidation, "failed to read template %s", name)
		}
	}

	data, err := embedded.ReadFile("templates/" + name)
	if err != nil {
		return nil, errors.Attr(errors.Errorf(errors.KindValidation, "template %s not found", name), "template", name)
	}
	return data, nil
}

// ScriptName strips the .templ suffix.
func ScriptName(templateName string) string {
	return strings.TrimSuffix(templateName, ".templ")
}
