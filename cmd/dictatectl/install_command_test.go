package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dictate/internal/testsupport"
)

func TestInstallWithModelAndInputOverrides(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries("arecord", "nc", "xdotool", "ffmpeg", "python3"))

	out, stderr, code := env.run(t, "install", "--model", "small.en", "--input", "xdotool")
	if code != 0 {
		t.Fatalf("install exited %d: %s", code, stderr)
	}
	requireContains(t, out, "Installed jnickg-dictate (standard variant)")
	requireContains(t, out, "small.en")

	unit := testsupport.ReadFile(t, filepath.Join(env.cfg.Paths.SystemdUserDir, "jnickg-dictate.service"))
	requireContains(t, unit, "Environment=JNICKG_DICTATE_MODEL=small.en\n")
	requireContains(t, unit, "Environment=JNICKG_DICTATE_INPUT_METHOD=xdotool\n")
	if strings.Contains(unit, "base.en") || strings.Contains(unit, "=ydotool") {
		t.Fatalf("defaults leaked into the unit:\n%s", unit)
	}
	if env.exec.Ran("sudo") {
		t.Fatalf("xdotool is on PATH; no package install expected: %v", env.exec.Commands())
	}
}

func TestInstallRejectsStreamingOnlyFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	for _, args := range [][]string{
		{"install", "--port", "9000"},
		{"install", "--clean"},
	} {
		_, stderr, code := env.run(t, args...)
		if code != 1 {
			t.Fatalf("%v: expected exit 1, got %d", args, code)
		}
		requireContains(t, stderr, "requires --streaming")
	}
	if len(env.exec.Commands()) != 0 {
		t.Fatal("rejected flags must not start an install")
	}
}

func TestInstallRejectsMultilineModel(t *testing.T) {
	env := setupCLITestEnv(t)
	_, stderr, code := env.run(t, "install", "--model", "small.en\nExecStartPre=/bin/false")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	requireContains(t, stderr, "single line")
	if len(env.exec.Commands()) != 0 {
		t.Fatalf("rejected model must not start an install: %v", env.exec.Commands())
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.SystemdUserDir, "jnickg-dictate.service")); !os.IsNotExist(err) {
		t.Fatal("no unit should be written")
	}
}

func TestInstallUnknownFlagPrintsUsage(t *testing.T) {
	env := setupCLITestEnv(t)
	_, stderr, code := env.run(t, "install", "--bogus")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	requireContains(t, stderr, "Usage:")
	requireContains(t, stderr, "unknown flag")
}

func TestInstallMissingFlagValue(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, code := env.run(t, "install", "--model"); code != 1 {
		t.Fatalf("expected exit 1 for missing value, got %d", code)
	}
}

func TestInstallHelpExitsZero(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, code := env.run(t, "install", "--help")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	requireContains(t, out, "--streaming")
	requireContains(t, out, "--clean")
}

func TestInstallStreamingWithoutSubmoduleFails(t *testing.T) {
	env := setupCLITestEnv(t)
	_, stderr, code := env.run(t, "install", "--streaming")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	requireContains(t, stderr, "streaming submodule missing")
	requireContains(t, stderr, "git submodule update --init --recursive")
	if testsupport.Exists(t, env.cfg.Paths.SystemdUserDir) {
		t.Fatal("no unit may be rendered without the submodule")
	}
}

func TestInstallStreamingThenUninstall(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries(), testsupport.WithSubmodule())

	out, stderr, code := env.run(t, "install", "--streaming", "--port", "45000")
	if code != 0 {
		t.Fatalf("install exited %d: %s", code, stderr)
	}
	requireContains(t, out, "127.0.0.1:45000")
	server := filepath.Join(env.cfg.Paths.SystemdUserDir, "jnickg-dictate-streaming.service")
	requireContains(t, testsupport.ReadFile(t, server), "JNICKG_DICTATE_STREAMING_PORT=45000")

	out, stderr, code = env.run(t, "uninstall")
	if code != 0 {
		t.Fatalf("uninstall exited %d: %s", code, stderr)
	}
	requireContains(t, out, "Uninstalled jnickg-dictate")
	for _, path := range []string{
		server,
		filepath.Join(env.cfg.Paths.SystemdUserDir, "jnickg-dictate.service"),
		filepath.Join(env.cfg.Paths.BinDir, "jnickg-dictate"),
		env.cfg.StagedSubmoduleDir(),
	} {
		if testsupport.Exists(t, path) {
			t.Errorf("expected %s to be removed", path)
		}
	}
}

func TestSourceFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	_, stderr, code := env.run(t, "--source", filepath.Join(t.TempDir(), "empty"), "install")
	if code != 1 {
		t.Fatalf("expected failure for a source tree without scripts, got %d", code)
	}
	requireContains(t, stderr, "dictate.py")
}
