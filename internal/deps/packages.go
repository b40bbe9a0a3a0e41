package deps

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"dictate/internal/command"
)

// ErrNoPackageManager is returned when auto-detection finds no supported manager.
var ErrNoPackageManager = errors.New("no supported package manager found")

// PackageManager describes how to install packages with one distribution tool.
type PackageManager struct {
	Name        string
	Binary      string
	installArgs []string
	packages    map[string]string
	// venvPackage provides ensurepip when the distribution splits it out of
	// the interpreter package.
	venvPackage string
}

// detectionOrder is the order auto-detection probes PATH in.
var detectionOrder = []string{"apt", "dnf", "pacman", "zypper"}

var managers = map[string]PackageManager{
	"apt": {
		Name:        "apt",
		Binary:      "apt-get",
		installArgs: []string{"install", "-y"},
		packages: map[string]string{
			"arecord": "alsa-utils",
			"nc":      "netcat-openbsd",
			"python3": "python3-venv",
		},
		venvPackage: "python3-venv",
	},
	"dnf": {
		Name:        "dnf",
		Binary:      "dnf",
		installArgs: []string{"install", "-y"},
		packages: map[string]string{
			"arecord": "alsa-utils",
			"nc":      "nmap-ncat",
		},
	},
	"pacman": {
		Name:        "pacman",
		Binary:      "pacman",
		installArgs: []string{"-S", "--needed", "--noconfirm"},
		packages: map[string]string{
			"arecord": "alsa-utils",
			"nc":      "openbsd-netcat",
			"python3": "python",
		},
	},
	"zypper": {
		Name:        "zypper",
		Binary:      "zypper",
		installArgs: []string{"install", "-y"},
		packages: map[string]string{
			"arecord": "alsa-utils",
			"nc":      "netcat-openbsd",
		},
	},
}

// LookupManager returns the named package manager definition.
func LookupManager(name string) (PackageManager, bool) {
	mgr, ok := managers[strings.ToLower(strings.TrimSpace(name))]
	return mgr, ok
}

// DetectManager resolves preference to a package manager. "auto" probes PATH
// for the first supported tool; any other value selects that manager directly.
func DetectManager(preference string) (PackageManager, error) {
	preference = strings.ToLower(strings.TrimSpace(preference))
	if preference != "" && preference != "auto" {
		mgr, ok := LookupManager(preference)
		if !ok {
			return PackageManager{}, fmt.Errorf("unsupported package manager %q", preference)
		}
		return mgr, nil
	}
	for _, name := range detectionOrder {
		mgr := managers[name]
		if _, err := exec.LookPath(mgr.Binary); err == nil {
			return mgr, nil
		}
	}
	return PackageManager{}, ErrNoPackageManager
}

// PackageFor maps an executable name to the package that provides it.
// Executables without a mapping share their package name.
func (m PackageManager) PackageFor(binary string) string {
	if pkg, ok := m.packages[binary]; ok {
		return pkg
	}
	return binary
}

// PackagesFor returns the deduplicated package list for the missing statuses,
// preserving requirement order.
func (m PackageManager) PackagesFor(missing []Status) []string {
	seen := make(map[string]struct{}, len(missing))
	pkgs := make([]string, 0, len(missing))
	for _, status := range missing {
		pkg := m.PackageFor(status.Command)
		if _, ok := seen[pkg]; ok {
			continue
		}
		seen[pkg] = struct{}{}
		pkgs = append(pkgs, pkg)
	}
	return pkgs
}

// VenvPackage returns the package that adds the venv and ensurepip modules to
// an installed python3, or "" when the interpreter package already ships them.
func (m PackageManager) VenvPackage() string {
	return m.venvPackage
}

// InstallCommand returns the binary and arguments that install pkgs in one
// batch, prefixed with the privilege command when one is set.
func (m PackageManager) InstallCommand(privilege string, pkgs []string) (string, []string) {
	args := make([]string, 0, len(m.installArgs)+len(pkgs)+1)
	args = append(args, m.installArgs...)
	args = append(args, pkgs...)
	privilege = strings.TrimSpace(privilege)
	if privilege == "" {
		return m.Binary, args
	}
	return privilege, append([]string{m.Binary}, args...)
}

// Install runs the batch install for pkgs. An empty list runs nothing.
func (m PackageManager) Install(ctx context.Context, exec command.Executor, privilege string, pkgs []string, onOutput func(string)) error {
	if len(pkgs) == 0 {
		return nil
	}
	binary, args := m.InstallCommand(privilege, pkgs)
	if err := exec.Run(ctx, binary, args, onOutput); err != nil {
		return fmt.Errorf("install %s: %w", strings.Join(pkgs, " "), err)
	}
	return nil
}
