// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package render

import (
	"fmt"
)

// ScriptParams are substituted into the shell script templates.
type ScriptParams struct {
	ControllerBin string
	LogFile       string
}

// RenderScript substitutes the controller binary and log path tokens.
func RenderScript(name string, tmpl []byte, p ScriptParams) []byte {
	f := NewFile(name, tmpl)
	f.GReplace("[VROUTER_BIN]", p.ControllerBin)
	f.GReplace("[RROUTER_LOG]", p.LogFile)
	return f.Bytes()
}

// RenderCheckRouter renders checkrouter.sh.
func RenderCheckRouter(tmpl []byte, p ScriptParams) []byte {
	return RenderScript("checkrouter.sh", tmpl, p)
}

// RenderHeartbeatCron adds the heartbeat check entries to the existing cron
// file content, keeping any other lines. The check runs every 30 seconds.
func RenderHeartbeatCron(existing []byte, routerDir string) []byte {
	f := NewFile("heartbeat", existing)
	f.Add("SHELL=/bin/bash", 0)
	f.Add("PATH=/usr/local/sbin:/usr/local/bin:/sbin:/bin:/usr/sbin:/usr/bin", 1)
	f.Add(fmt.Sprintf("* * * * * root $SHELL %s/check_heartbeat.sh 2>&1 > /dev/null", routerDir), -1)
	f.Add(fmt.Sprintf("* * * * * root sleep 30; $SHELL %s/check_heartbeat.sh 2>&1 > /dev/null", routerDir), -1)
	return f.Bytes()
}
