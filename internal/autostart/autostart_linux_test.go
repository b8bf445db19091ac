//go:build linux

package autostart

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUnitFilePathUnderXDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	p, err := unitFilePath()
	if err != nil {
		t.Fatalf("unitFilePath: %v", err)
	}
	want := filepath.Join(dir, "systemd", "user", unitName)
	if p != want {
		t.Errorf("got %q, want %q", p, want)
	}
}

func TestIsEnabledFalseWhenUnitMissing(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if IsEnabled() {
		t.Error("IsEnabled() = true before any unit file was written")
	}
}

func TestIsEnabledTrueAfterWritingUnit(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	p, err := unitFilePath()
	if err != nil {
		t.Fatalf("unitFilePath: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte("placeholder"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if !IsEnabled() {
		t.Error("IsEnabled() = false after writing the unit file")
	}
}

func TestUnitTemplateContainsExecStart(t *testing.T) {
	rendered := unitTemplateRendered("/usr/local/bin/binary5kbd")
	if !strings.Contains(rendered, "ExecStart=/usr/local/bin/binary5kbd") {
		t.Errorf("rendered unit missing ExecStart line: %s", rendered)
	}
}
