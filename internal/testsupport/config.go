package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"dictate/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose every directory lives under a unique
// temp directory. HOME is pointed at that directory as well so nothing leaks
// into the real user account. A source tree with both scripts is created.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	home := filepath.Join(base, "home")
	t.Setenv("HOME", home)
	t.Setenv("XDG_RUNTIME_DIR", filepath.Join(base, "run"))

	cfgVal := config.Default()
	cfgVal.Dictation.Model = "base.en"
	cfgVal.Dictation.InputMethod = config.InputYdotool
	cfgVal.Streaming.StartupDelaySeconds = 0
	cfgVal.Systemd.SocketWaitSeconds = 0
	cfgVal.Packages.Manager = "apt"
	cfgVal.Paths = config.Paths{
		SourceDir:       filepath.Join(base, "src"),
		BinDir:          filepath.Join(home, ".local", "bin"),
		SystemdUserDir:  filepath.Join(home, ".config", "systemd", "user"),
		DataDir:         filepath.Join(home, ".local", "share", config.AppName),
		CacheDir:        filepath.Join(home, ".cache", config.AppName),
		ConfigDir:       filepath.Join(home, ".config", config.AppName),
		WhisperCacheDir: filepath.Join(home, ".cache", "whisper"),
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	WriteSourceTree(t, cfgVal.Paths.SourceDir, false)

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithInputMethod overrides the input method on the test config.
func WithInputMethod(method string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dictation.InputMethod = method
	}
}

// WithModel overrides the Whisper model on the test config.
func WithModel(model string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dictation.Model = model
	}
}

// WithSubmodule populates the streaming submodule inside the source tree.
func WithSubmodule() ConfigOption {
	return func(b *configBuilder) {
		WriteSourceTree(b.t, b.cfg.Paths.SourceDir, true)
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, every runtime dependency of the
// default ydotool setup is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"arecord", "nc", "ydotool", "ffmpeg", "python3"}
		}
		StubBinaries(b.t, filepath.Join(b.baseDir, "bin"), names...)
	}
}

// StubBinaries writes executables that exit 0 into dir and makes dir the only
// entry on PATH for the rest of the test.
func StubBinaries(t testing.TB, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	script := []byte("#!/bin/sh\nexit 0\n")
	for _, name := range names {
		target := filepath.Join(dir, name)
		if err := os.WriteFile(target, script, 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	t.Setenv("PATH", dir)
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.SourceDir)
}
