package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// RequireVM skips the test unless VROUTER_VM_TEST is set. Tests that create
// links, mount tmpfs or take real flocks on system paths need a disposable VM.
func RequireVM(t *testing.T) {
	t.Helper()
	if os.Getenv("VROUTER_VM_TEST") == "" {
		t.Skip("Skipping test: requires VROUTER_VM_TEST environment")
	}
	if os.Geteuid() != 0 {
		t.Skip("Skipping test: requires root")
	}
}

// WriteFile writes content under dir, creating parents, and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// ReadFile returns the content of path or fails the test.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
