package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"dictate/internal/config"
	"dictate/internal/deps"
	"dictate/internal/fileutil"
)

// SourceScripts maps each script in the source tree to its installed name.
var SourceScripts = []struct {
	Source    string
	Installed string
}{
	{Source: "dictate.py", Installed: config.AppName},
	{Source: "whisper_dictate_daemon.py", Installed: config.AppName + "-daemon"},
}

var geteuid = unix.Geteuid

// CheckNotRoot fails when the effective user is root. User services and the
// per-user directories must belong to the desktop user.
func CheckNotRoot() Result {
	const name = "Unprivileged user"
	if geteuid() == 0 {
		return Result{Name: name, Detail: "running as root; run as your desktop user (sudo is used only for packages)"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("uid %d", geteuid())}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSourceScripts verifies that both Python scripts exist in the source tree.
func CheckSourceScripts(sourceDir string) Result {
	const name = "Source scripts"
	for _, script := range SourceScripts {
		path := filepath.Join(sourceDir, script.Source)
		info, err := os.Stat(path)
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
		}
		if info.IsDir() {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
		}
	}
	return Result{Name: name, Passed: true, Detail: sourceDir}
}

// CheckSubmodule verifies that the streaming submodule is checked out.
func CheckSubmodule(path string) Result {
	const name = "Streaming submodule"
	populated, err := fileutil.DirHasEntries(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if !populated {
		return Result{Name: name, Detail: fmt.Sprintf("%s (missing or empty; run 'git submodule update --init --recursive')", path)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckSystemDeps evaluates the runtime executables for the configured input method.
// Both install and status use this to avoid duplicating the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Requirements(cfg.Dictation.InputMethod))
}
