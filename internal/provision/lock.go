package provision

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"dictate/internal/config"
)

// LockPath returns the advisory lock file shared by install and uninstall.
func LockPath() string {
	dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, config.AppName+".lock")
}

// acquireLock takes the run lock without waiting. The returned function
// releases it.
func acquireLock(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, Wrap(ErrFilesystem, "lock", "create directory", filepath.Dir(path), err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, Wrap(ErrFilesystem, "lock", "acquire", path, err)
	}
	if !ok {
		return nil, Wrap(ErrLocked, "lock", "acquire", fmt.Sprintf("%s is held", path), nil)
	}
	return func() { _ = lock.Unlock() }, nil
}
