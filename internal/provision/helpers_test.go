package provision_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"dictate/internal/config"
	"dictate/internal/preflight"
	"dictate/internal/provision"
	"dictate/internal/testsupport"
)

// fakeManager records service manager calls in order.
type fakeManager struct {
	mu       sync.Mutex
	calls    []string
	active   map[string]bool
	failures map[string]error
}

func newFakeManager() *fakeManager {
	return &fakeManager{active: map[string]bool{}, failures: map[string]error{}}
}

func (f *fakeManager) record(op string, units ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, strings.TrimSpace(op+" "+strings.Join(units, " ")))
	return f.failures[op]
}

func (f *fakeManager) DaemonReload(context.Context) error { return f.record("daemon-reload") }

func (f *fakeManager) Enable(_ context.Context, units ...string) error {
	return f.record("enable", units...)
}

func (f *fakeManager) Disable(_ context.Context, units ...string) error {
	return f.record("disable", units...)
}

func (f *fakeManager) Start(_ context.Context, unit string) error { return f.record("start", unit) }

func (f *fakeManager) Stop(_ context.Context, unit string) error { return f.record("stop", unit) }

func (f *fakeManager) Restart(_ context.Context, unit string) error {
	return f.record("restart", unit)
}

func (f *fakeManager) IsActive(_ context.Context, unit string) (bool, error) {
	if err := f.record("is-active", unit); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active[unit], nil
}

func (f *fakeManager) Close() error { return nil }

func (f *fakeManager) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeManager) called(call string) bool {
	for _, c := range f.Calls() {
		if c == call {
			return true
		}
	}
	return false
}

type harness struct {
	cfg        *config.Config
	exec       *testsupport.RecordingExecutor
	manager    *fakeManager
	sleeps     []time.Duration
	socketPath string
	audioPath  string
	lockPath   string
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	if len(opts) == 0 {
		opts = []testsupport.ConfigOption{testsupport.WithStubbedBinaries()}
	}
	cfg := testsupport.NewConfig(t, opts...)
	exec := testsupport.NewRecordingExecutor()
	exec.OnRun = testsupport.VenvSimulator()
	run := t.TempDir()
	return &harness{
		cfg:        cfg,
		exec:       exec,
		manager:    newFakeManager(),
		socketPath: filepath.Join(run, "jnickg-dictate.sock"),
		audioPath:  filepath.Join(run, "jnickg-dictation.wav"),
		lockPath:   filepath.Join(run, "jnickg-dictate.lock"),
	}
}

func (h *harness) options() []provision.Option {
	return []provision.Option{
		provision.WithExecutor(h.exec),
		provision.WithManager(h.manager),
		provision.WithLockPath(h.lockPath),
		provision.WithPrivilegeCheck(func() preflight.Result { return preflight.Result{Name: "user", Passed: true} }),
		provision.WithSleep(func(_ context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			_ = h.manager.record("sleep")
			return nil
		}),
		provision.WithSocketWait(func(context.Context, string, time.Duration) error { return nil }),
		provision.WithPlatform("linux", "x86_64"),
		provision.WithRuntimePaths(h.socketPath, h.audioPath),
	}
}

func (h *harness) install(t *testing.T, settings provision.Settings) (provision.Report, error) {
	t.Helper()
	return provision.NewInstaller(h.cfg, h.options()...).Install(context.Background(), settings)
}

func (h *harness) mustInstall(t *testing.T, settings provision.Settings) provision.Report {
	t.Helper()
	report, err := h.install(t, settings)
	if err != nil {
		t.Fatalf("Install returned error: %v", err)
	}
	return report
}

func (h *harness) uninstall(t *testing.T) provision.Report {
	t.Helper()
	report, err := provision.NewUninstaller(h.cfg, h.options()...).Uninstall(context.Background())
	if err != nil {
		t.Fatalf("Uninstall returned error: %v", err)
	}
	return report
}

func standard(cfg *config.Config) provision.Settings {
	return provision.SettingsFromConfig(cfg, provision.VariantStandard)
}

func streaming(cfg *config.Config) provision.Settings {
	return provision.SettingsFromConfig(cfg, provision.VariantStreaming)
}

func indexOf(calls []string, call string) int {
	for i, c := range calls {
		if c == call {
			return i
		}
	}
	return -1
}
