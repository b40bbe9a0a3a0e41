package provision

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPrivileged          = errors.New("privileged invocation")
	ErrValidation          = errors.New("invalid settings")
	ErrDependency          = errors.New("dependency error")
	ErrSubmoduleMissing    = errors.New("streaming submodule missing")
	ErrTemplatePlaceholder = errors.New("template placeholder missing")
	ErrServiceManager      = errors.New("service manager error")
	ErrFilesystem          = errors.New("filesystem error")
	ErrLocked              = errors.New("another install or uninstall is running")
)

// Wrap builds an error message that includes step context while tagging it
// with the provided marker. The marker should be one of the exported sentinel
// errors above.
func Wrap(marker error, step, operation, message string, err error) error {
	detail := buildDetail(step, operation, message)
	if marker == nil {
		marker = ErrFilesystem
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Hint returns a follow-up suggestion for the marker carried by err, or "".
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrPrivileged):
		return "run dictatectl as your desktop user; sudo is invoked only for system packages"
	case errors.Is(err, ErrSubmoduleMissing):
		return "run 'git submodule update --init --recursive' in the source tree, or clone with --recursive"
	case errors.Is(err, ErrLocked):
		return "wait for the other dictatectl run to finish"
	case errors.Is(err, ErrTemplatePlaceholder):
		return "restore the Environment= lines in the unit template"
	case errors.Is(err, ErrServiceManager):
		return "check 'journalctl --user -xe' for the failing unit"
	default:
		return ""
	}
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "provisioning failure"
	}
	return strings.Join(parts, ": ")
}
