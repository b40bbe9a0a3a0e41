package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"dictate/internal/config"
	"dictate/internal/preflight"
	"dictate/internal/provision"
	"dictate/internal/testsupport"
)

type stubManager struct {
	mu     sync.Mutex
	calls  []string
	active map[string]bool
}

func (m *stubManager) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *stubManager) DaemonReload(context.Context) error { m.record("daemon-reload"); return nil }

func (m *stubManager) Enable(_ context.Context, units ...string) error {
	m.record("enable " + strings.Join(units, " "))
	return nil
}

func (m *stubManager) Disable(_ context.Context, units ...string) error {
	m.record("disable " + strings.Join(units, " "))
	return nil
}

func (m *stubManager) Start(_ context.Context, unit string) error {
	m.record("start " + unit)
	m.setActive(unit, true)
	return nil
}

func (m *stubManager) Stop(_ context.Context, unit string) error {
	m.record("stop " + unit)
	m.setActive(unit, false)
	return nil
}

func (m *stubManager) Restart(_ context.Context, unit string) error {
	m.record("restart " + unit)
	m.setActive(unit, true)
	return nil
}

func (m *stubManager) IsActive(_ context.Context, unit string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[unit], nil
}

func (m *stubManager) Close() error { return nil }

func (m *stubManager) setActive(unit string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		m.active = map[string]bool{}
	}
	m.active[unit] = active
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	exec       *testsupport.RecordingExecutor
	manager    *stubManager
	lockPath   string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	if len(opts) == 0 {
		opts = []testsupport.ConfigOption{testsupport.WithStubbedBinaries()}
	}
	cfg := testsupport.NewConfig(t, opts...)
	t.Setenv("JNICKG_DICTATE_MODEL", "")
	t.Setenv("JNICKG_DICTATE_INPUT_METHOD", "")

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	exec := testsupport.NewRecordingExecutor()
	exec.OnRun = testsupport.VenvSimulator()
	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		exec:       exec,
		manager:    &stubManager{},
		lockPath:   filepath.Join(t.TempDir(), "dictatectl.lock"),
	}
}

func (e *cliTestEnv) newCommand() *cobra.Command {
	return newRootCommand(
		withExecutor(e.exec),
		withManager(e.manager),
		withProvisionOptions(
			provision.WithLockPath(e.lockPath),
			provision.WithPrivilegeCheck(func() preflight.Result { return preflight.Result{Name: "user", Passed: true} }),
			provision.WithSleep(func(context.Context, time.Duration) error { return nil }),
			provision.WithSocketWait(func(context.Context, string, time.Duration) error { return nil }),
			provision.WithPlatform("linux", "x86_64"),
			provision.WithRuntimePaths(filepath.Join(testsupport.BaseDir(e.cfg), "dictate.sock"), filepath.Join(testsupport.BaseDir(e.cfg), "dictate.wav")),
		),
	)
}

// run executes the CLI and returns stdout, stderr and the exit code.
func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	cmd := e.newCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	code := execute(context.Background(), cmd, append([]string{"--config", e.configPath}, args...), &stderr)
	return stdout.String(), stderr.String(), code
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
