package preflight

import (
	"fmt"
	"os"
)

// CheckDaemonSocket reports whether the dictation daemon socket exists.
func CheckDaemonSocket(path string) Result {
	const name = "Daemon socket"
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (absent; daemon not listening)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if info.Mode()&os.ModeSocket == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (exists but is not a socket)", path)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}
