package provision_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"dictate/internal/config"
	"dictate/internal/ledger"
	"dictate/internal/preflight"
	"dictate/internal/provision"
	"dictate/internal/testsupport"
)

func TestInstallStandardWithYdotool(t *testing.T) {
	h := newHarness(t)
	report := h.mustInstall(t, standard(h.cfg))

	if report.RunID == "" {
		t.Fatal("expected run id")
	}
	if h.exec.Ran("sudo") {
		t.Fatalf("no package manager command expected when every executable exists: %v", h.exec.Commands())
	}

	unitDir := h.cfg.Paths.SystemdUserDir
	if !testsupport.Exists(t, filepath.Join(unitDir, "ydotoold.service")) {
		t.Fatal("expected ydotoold unit to be written")
	}
	unit := testsupport.ReadFile(t, filepath.Join(unitDir, "jnickg-dictate.service"))
	if !strings.Contains(unit, "Environment=JNICKG_DICTATE_MODEL=base.en\n") ||
		!strings.Contains(unit, "Environment=JNICKG_DICTATE_INPUT_METHOD=ydotool\n") {
		t.Fatalf("unexpected dictation unit:\n%s", unit)
	}
	if testsupport.Exists(t, filepath.Join(unitDir, "jnickg-dictate-streaming.service")) {
		t.Fatal("standard variant must not write the streaming unit")
	}

	for _, name := range []string{"jnickg-dictate", "jnickg-dictate-daemon"} {
		info, err := os.Stat(filepath.Join(h.cfg.Paths.BinDir, name))
		if err != nil {
			t.Fatalf("expected staged script %s: %v", name, err)
		}
		if info.Mode().Perm() != 0o755 {
			t.Fatalf("script %s should be 0755, got %o", name, info.Mode().Perm())
		}
	}
	for _, dir := range h.cfg.Directories() {
		if !testsupport.Exists(t, dir) {
			t.Fatalf("expected directory %s", dir)
		}
	}

	venv := h.cfg.VenvDir()
	python := filepath.Join(venv, "bin", "python")
	for _, want := range []string{
		"python3 -c import ensurepip, venv",
		"python3 -m venv " + venv,
		python + " -m pip install --upgrade pip",
		python + " -m pip install openai-whisper triton",
	} {
		if !h.exec.Ran(want) {
			t.Fatalf("expected command %q in %v", want, h.exec.Commands())
		}
	}

	want := []string{
		"daemon-reload",
		"is-active ydotoold.service",
		"enable ydotoold.service",
		"start ydotoold.service",
		"daemon-reload",
		"enable jnickg-dictate.service",
		"restart jnickg-dictate.service",
	}
	if got := h.manager.Calls(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected manager calls:\n got %v\nwant %v", got, want)
	}
}

func TestInstallModelAndInputOverrides(t *testing.T) {
	h := newHarness(t, testsupport.WithStubbedBinaries("arecord", "nc", "xdotool", "ffmpeg", "python3"))
	settings := standard(h.cfg)
	settings.Model = "small.en"
	settings.InputMethod = "xdotool"
	h.mustInstall(t, settings)

	unit := testsupport.ReadFile(t, filepath.Join(h.cfg.Paths.SystemdUserDir, "jnickg-dictate.service"))
	if strings.Count(unit, "JNICKG_DICTATE_MODEL=small.en\n") != 1 || strings.Count(unit, "JNICKG_DICTATE_INPUT_METHOD=xdotool\n") != 1 {
		t.Fatalf("expected exactly one override of each value:\n%s", unit)
	}
	if h.exec.Ran("sudo") {
		t.Fatalf("xdotool is present so nothing should be installed even though ydotool is absent: %v", h.exec.Commands())
	}
	if testsupport.Exists(t, filepath.Join(h.cfg.Paths.SystemdUserDir, "ydotoold.service")) {
		t.Fatal("xdotool needs no ydotoold unit")
	}
	if h.manager.called("start ydotoold.service") {
		t.Fatal("ydotoold must not be started for xdotool")
	}
}

func TestInstallMissingPackagesInstalledInOneBatch(t *testing.T) {
	h := newHarness(t, testsupport.WithStubbedBinaries("arecord", "python3"))
	settings := standard(h.cfg)
	settings.InputMethod = config.InputWtype
	h.mustInstall(t, settings)

	var installs []string
	for _, cmd := range h.exec.Commands() {
		if strings.HasPrefix(cmd, "sudo ") {
			installs = append(installs, cmd)
		}
	}
	if len(installs) != 1 || installs[0] != "sudo apt-get install -y netcat-openbsd wtype ffmpeg" {
		t.Fatalf("expected one batch install, got %v", installs)
	}
}

func TestInstallAddsVenvPackageWhenEnsurepipMissing(t *testing.T) {
	h := newHarness(t)
	h.exec.Failures["python3 -c"] = errors.New("exit status 1")
	h.mustInstall(t, standard(h.cfg))

	var installs []string
	for _, cmd := range h.exec.Commands() {
		if strings.HasPrefix(cmd, "sudo ") {
			installs = append(installs, cmd)
		}
	}
	if len(installs) != 1 || installs[0] != "sudo apt-get install -y python3-venv" {
		t.Fatalf("expected python3-venv install, got %v", installs)
	}
	if indexOf(h.exec.Commands(), installs[0]) > indexOf(h.exec.Commands(), "python3 -m venv "+h.cfg.VenvDir()) {
		t.Fatalf("python3-venv must be installed before the venv is created: %v", h.exec.Commands())
	}
}

func TestInstallVenvPackageJoinsMissingBatch(t *testing.T) {
	h := newHarness(t, testsupport.WithStubbedBinaries("arecord", "nc", "ydotool", "python3"))
	h.exec.Failures["python3 -c"] = errors.New("exit status 1")
	h.mustInstall(t, standard(h.cfg))

	if !h.exec.Ran("sudo apt-get install -y ffmpeg python3-venv") {
		t.Fatalf("expected one batch with ffmpeg and python3-venv, got %v", h.exec.Commands())
	}
}

func TestInstallVenvModuleMissingWithoutVenvPackage(t *testing.T) {
	h := newHarness(t)
	h.cfg.Packages.Manager = "dnf"
	h.exec.Failures["python3 -c"] = errors.New("exit status 1")

	_, err := h.install(t, standard(h.cfg))
	if !errors.Is(err, provision.ErrDependency) {
		t.Fatalf("expected ErrDependency, got %v", err)
	}
	if !strings.Contains(err.Error(), "ensurepip") {
		t.Fatalf("error should name the missing module: %v", err)
	}
	if h.exec.Ran("sudo") || h.exec.Ran("python3 -m venv") {
		t.Fatalf("nothing should be installed: %v", h.exec.Commands())
	}
}

func TestInstallPackageFailureAborts(t *testing.T) {
	h := newHarness(t, testsupport.WithStubbedBinaries("arecord", "nc", "ffmpeg", "python3"))
	h.exec.Failures["sudo apt-get"] = errors.New("exit status 100")

	_, err := h.install(t, standard(h.cfg))
	if !errors.Is(err, provision.ErrDependency) {
		t.Fatalf("expected ErrDependency, got %v", err)
	}
	if testsupport.Exists(t, filepath.Join(h.cfg.Paths.SystemdUserDir, "jnickg-dictate.service")) {
		t.Fatal("no unit should be written after a failed dependency step")
	}

	store, err := ledger.Open(h.cfg.LedgerPath())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	run, ok, err := store.LatestRun(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected recorded run: ok=%v err=%v", ok, err)
	}
	if run.Status != ledger.RunFailed || !strings.Contains(run.Error, "exit status 100") {
		t.Fatalf("expected failed run with cause, got %#v", run)
	}
}

func TestInstallStreamingVariant(t *testing.T) {
	h := newHarness(t, testsupport.WithStubbedBinaries(), testsupport.WithSubmodule())
	h.cfg.Streaming.StartupDelaySeconds = 3
	settings := streaming(h.cfg)
	settings.StreamingPort = 45000
	h.mustInstall(t, settings)

	unitDir := h.cfg.Paths.SystemdUserDir
	server := testsupport.ReadFile(t, filepath.Join(unitDir, "jnickg-dictate-streaming.service"))
	if !strings.Contains(server, "Environment=JNICKG_DICTATE_STREAMING_PORT=45000\n") {
		t.Fatalf("streaming unit missing port:\n%s", server)
	}
	if !testsupport.Exists(t, filepath.Join(h.cfg.StagedSubmoduleDir(), "whisper_online_server.py")) {
		t.Fatal("expected submodule to be staged")
	}

	info, err := os.Stat(h.cfg.WarmupFile())
	if err != nil {
		t.Fatalf("expected warmup file: %v", err)
	}
	if info.Size() != 44+16000*2 {
		t.Fatalf("unexpected warmup size %d", info.Size())
	}

	python := filepath.Join(h.cfg.VenvDir(), "bin", "python")
	if !h.exec.Ran(python + " -m pip install openai-whisper faster-whisper librosa soundfile triton") {
		t.Fatalf("expected streaming package set, got %v", h.exec.Commands())
	}

	calls := h.manager.Calls()
	enable := indexOf(calls, "enable jnickg-dictate-streaming.service jnickg-dictate.service")
	server1 := indexOf(calls, "restart jnickg-dictate-streaming.service")
	sleep := indexOf(calls, "sleep")
	dictation := indexOf(calls, "restart jnickg-dictate.service")
	if enable < 0 || !(enable < server1 && server1 < sleep && sleep < dictation) {
		t.Fatalf("expected enable, server restart, delay, daemon restart in order: %v", calls)
	}
	if len(h.sleeps) != 1 || h.sleeps[0].Seconds() != 3 {
		t.Fatalf("expected a single 3s delay, got %v", h.sleeps)
	}
}

func TestInstallStreamingRestagesSubmodule(t *testing.T) {
	h := newHarness(t, testsupport.WithStubbedBinaries(), testsupport.WithSubmodule())
	h.mustInstall(t, streaming(h.cfg))

	stale := filepath.Join(h.cfg.StagedSubmoduleDir(), "stale.py")
	testsupport.WriteFile(t, stale, "old")
	h.mustInstall(t, streaming(h.cfg))

	if testsupport.Exists(t, stale) {
		t.Fatal("staged submodule should be replaced, not merged")
	}
}

func TestInstallStreamingMissingSubmodule(t *testing.T) {
	h := newHarness(t)
	_, err := h.install(t, streaming(h.cfg))
	if !errors.Is(err, provision.ErrSubmoduleMissing) {
		t.Fatalf("expected ErrSubmoduleMissing, got %v", err)
	}
	if hint := provision.Hint(err); !strings.Contains(hint, "git submodule update --init --recursive") {
		t.Fatalf("unexpected hint %q", hint)
	}
	if len(h.exec.Commands()) != 0 || len(h.manager.Calls()) != 0 {
		t.Fatalf("nothing should run before the submodule check: %v %v", h.exec.Commands(), h.manager.Calls())
	}
	if testsupport.Exists(t, h.cfg.Paths.SystemdUserDir) {
		t.Fatal("no unit directory should be created")
	}
}

func TestInstallRefusesRoot(t *testing.T) {
	h := newHarness(t)
	opts := append(h.options(), provision.WithPrivilegeCheck(func() preflight.Result {
		return preflight.Result{Name: "user", Detail: "running as root"}
	}))
	_, err := provision.NewInstaller(h.cfg, opts...).Install(context.Background(), standard(h.cfg))
	if !errors.Is(err, provision.ErrPrivileged) {
		t.Fatalf("expected ErrPrivileged, got %v", err)
	}
	if len(h.exec.Commands()) != 0 || len(h.manager.Calls()) != 0 {
		t.Fatal("root invocation must not run anything")
	}
	if testsupport.Exists(t, h.cfg.Paths.DataDir) {
		t.Fatal("root invocation must not create directories")
	}
}

func TestInstallCleanRecreatesVenv(t *testing.T) {
	h := newHarness(t, testsupport.WithStubbedBinaries(), testsupport.WithSubmodule())
	h.mustInstall(t, streaming(h.cfg))

	marker := filepath.Join(h.cfg.VenvDir(), "lib", "old-package")
	testsupport.WriteFile(t, marker, "stale")

	h.mustInstall(t, streaming(h.cfg))
	if !testsupport.Exists(t, marker) {
		t.Fatal("venv should be reused without --clean")
	}

	settings := streaming(h.cfg)
	settings.CleanVenv = true
	h.mustInstall(t, settings)
	if testsupport.Exists(t, marker) {
		t.Fatal("--clean should remove the old venv contents")
	}
	if !testsupport.Exists(t, filepath.Join(h.cfg.VenvDir(), "pyvenv.cfg")) {
		t.Fatal("venv should be recreated after --clean")
	}

	created := 0
	for _, cmd := range h.exec.Commands() {
		if strings.HasPrefix(cmd, "python3 -m venv ") {
			created++
		}
	}
	if created != 2 {
		t.Fatalf("expected venv creation on first install and after clean, got %d", created)
	}
}

func TestInstallIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.mustInstall(t, standard(h.cfg))
	unitPath := filepath.Join(h.cfg.Paths.SystemdUserDir, "jnickg-dictate.service")
	first := testsupport.ReadFile(t, unitPath)

	report := h.mustInstall(t, standard(h.cfg))
	if second := testsupport.ReadFile(t, unitPath); second != first {
		t.Fatal("re-running install changed the unit content")
	}

	var renderOutcome provision.Outcome
	for _, step := range report.Steps {
		if step.Step == "render" && step.Resource == "jnickg-dictate.service" {
			renderOutcome = step.Outcome
		}
	}
	if renderOutcome != provision.OutcomeUnchanged {
		t.Fatalf("expected unchanged render on second run, got %q", renderOutcome)
	}

	entries, err := os.ReadDir(h.cfg.Paths.SystemdUserDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected dictation and ydotoold units only, got %d entries", len(entries))
	}
}

func TestInstallTemplatePlaceholderFailsLoudly(t *testing.T) {
	h := newHarness(t)
	templates := filepath.Join(testsupport.BaseDir(h.cfg), "templates")
	testsupport.WriteFile(t, filepath.Join(templates, "jnickg-dictate.service"), "[Service]\nExecStart=/bin/true\n")
	h.cfg.Paths.TemplatesDir = templates

	_, err := h.install(t, standard(h.cfg))
	if !errors.Is(err, provision.ErrTemplatePlaceholder) {
		t.Fatalf("expected ErrTemplatePlaceholder, got %v", err)
	}
	if testsupport.Exists(t, h.cfg.Paths.SystemdUserDir) {
		t.Fatal("nothing should be written when a template is broken")
	}
}

func TestInstallFailsWhenLocked(t *testing.T) {
	h := newHarness(t)
	lock := flock.New(h.lockPath)
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("test could not take the lock: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()

	_, err = h.install(t, standard(h.cfg))
	if !errors.Is(err, provision.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestInstallKeepsForeignYdotooldUnit(t *testing.T) {
	h := newHarness(t)
	unitPath := filepath.Join(h.cfg.Paths.SystemdUserDir, "ydotoold.service")
	testsupport.WriteFile(t, unitPath, "[Service]\nExecStart=/opt/ydotoold\n")
	h.manager.active["ydotoold.service"] = true

	h.mustInstall(t, standard(h.cfg))

	if got := testsupport.ReadFile(t, unitPath); !strings.Contains(got, "/opt/ydotoold") {
		t.Fatal("an existing ydotoold unit must not be overwritten")
	}
	if h.manager.called("start ydotoold.service") || h.manager.called("enable ydotoold.service") {
		t.Fatal("an active ydotoold must not be re-enabled")
	}

	store, err := ledger.Open(h.cfg.LedgerPath())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	artifact, ok, err := store.Artifact(context.Background(), unitPath)
	if err != nil || !ok {
		t.Fatalf("expected ledger entry: ok=%v err=%v", ok, err)
	}
	if artifact.Owned {
		t.Fatal("pre-existing ydotoold unit must not be marked as owned")
	}
}

func TestInstallServiceFailureIsReported(t *testing.T) {
	h := newHarness(t, testsupport.WithStubbedBinaries("arecord", "nc", "wtype", "ffmpeg", "python3"))
	h.manager.failures["restart"] = errors.New("unit failed")
	settings := standard(h.cfg)
	settings.InputMethod = config.InputWtype

	report, err := h.install(t, settings)
	if !errors.Is(err, provision.ErrServiceManager) {
		t.Fatalf("expected ErrServiceManager, got %v", err)
	}
	if len(report.Failures()) != 1 || report.Failures()[0].Step != "activate" {
		t.Fatalf("expected activate failure in report, got %#v", report.Failures())
	}
	if !testsupport.Exists(t, filepath.Join(h.cfg.Paths.SystemdUserDir, "jnickg-dictate.service")) {
		t.Fatal("completed steps are not rolled back")
	}
}

func TestRenderPreviewDoesNotTouchFilesystem(t *testing.T) {
	h := newHarness(t)
	settings := streaming(h.cfg)
	settings.Model = "tiny"
	units, err := provision.RenderPreview(h.cfg, settings)
	if err != nil {
		t.Fatalf("RenderPreview: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected two units, got %d", len(units))
	}
	if !strings.Contains(string(units[1].Content), "JNICKG_DICTATE_MODEL=tiny") {
		t.Fatal("preview should carry the model override")
	}
	if testsupport.Exists(t, h.cfg.Paths.SystemdUserDir) {
		t.Fatal("preview must not create directories")
	}
}
