// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package render

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"

	"grimm.is/vrouter/internal/errors"
	"grimm.is/vrouter/internal/logging"
)

// InstallIfChanged stages rendered next to path and moves it over path only
// when the content differs. It reports whether path was replaced, which
// callers treat as "restart required".
func InstallIfChanged(rendered []byte, path string, mode os.FileMode) (bool, error) {
	log := logging.WithComponent("render")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, errors.Wrapf(err, errors.KindUnavailable, "failed to create %s", dir)
	}

	staging, err := os.CreateTemp(dir, "."+filepath.Base(path)+".staging-*")
	if err != nil {
		return false, errors.Wrapf(err, errors.KindUnavailable, "failed to stage %s", path)
	}
	stagingName := staging.Name()
	defer os.Remove(stagingName) // no-op after a successful rename

	if _, err := staging.Write(rendered); err != nil {
		staging.Close()
		return false, errors.Wrapf(err, errors.KindUnavailable, "failed to write %s", stagingName)
	}
	if err := staging.Close(); err != nil {
		return false, errors.Wrapf(err, errors.KindUnavailable, "failed to write %s", stagingName)
	}
	if err := os.Chmod(stagingName, mode); err != nil {
		return false, errors.Wrapf(err, errors.KindUnavailable, "failed to chmod %s", stagingName)
	}

	current, err := os.ReadFile(path)
	switch {
	case err == nil && bytes.Equal(current, rendered):
		return false, nil
	case err != nil && !os.IsNotExist(err):
		return false, errors.Wrapf(err, errors.KindUnavailable, "failed to read %s", path)
	}

	if log.Enabled(context.Background(), slog.LevelDebug) {
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(current)),
			B:        difflib.SplitLines(string(rendered)),
			FromFile: path,
			ToFile:   path + " (rendered)",
			Context:  3,
		})
		log.Debug("Config changed", "path", path, "diff", diff)
	}

	if err := os.Rename(stagingName, path); err != nil {
		return false, errors.Wrapf(err, errors.KindUnavailable, "failed to install %s", path)
	}
	log.Info("Installed config", "path", path)
	return true, nil
}

// InstallScript renders the named script template and installs it as an
// executable at dst when its content changed.
func InstallScript(t Templates, name, dst string, p ScriptParams) (bool, error) {
	tmpl, err := t.Load(name)
	if err != nil {
		return false, err
	}
	return InstallIfChanged(RenderScript(ScriptName(name), tmpl, p), dst, 0755)
}

// RemoveIfExists removes path, ignoring a missing file.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.KindUnavailable, "failed to remove %s", path)
	}
	return nil
}
