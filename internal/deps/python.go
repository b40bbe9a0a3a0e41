package deps

import (
	"context"
	"fmt"

	"dictate/internal/command"
)

// venvImportCheck imports the modules "python3 -m venv" needs to bootstrap pip.
const venvImportCheck = "import ensurepip, venv"

// CheckVenvModule reports whether python can create a virtual environment
// with pip. Debian and Ubuntu ship python3 without ensurepip until the
// python3-venv package is installed.
func CheckVenvModule(ctx context.Context, exec command.Executor, python string, onOutput func(string)) error {
	if err := exec.Run(ctx, python, []string{"-c", venvImportCheck}, onOutput); err != nil {
		return fmt.Errorf("%s cannot import ensurepip and venv: %w", python, err)
	}
	return nil
}
