package systemd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrSocketTimeout is returned when the daemon socket does not appear in time.
var ErrSocketTimeout = errors.New("timed out waiting for socket")

// WaitForSocket blocks until path exists or timeout elapses. A zero timeout
// only checks once.
func WaitForSocket(ctx context.Context, path string, timeout time.Duration) error {
	if exists(path) {
		return nil
	}
	if timeout <= 0 {
		return fmt.Errorf("%w: %s", ErrSocketTimeout, path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	// The socket may have appeared between the first check and the watch.
	if exists(path) {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("%w: %s after %s", ErrSocketTimeout, path, timeout)
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("%w: watcher closed", ErrSocketTimeout)
			}
			if event.Op&fsnotify.Create == 0 {
				continue
			}
			if filepath.Clean(event.Name) == filepath.Clean(path) {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("%w: watcher closed", ErrSocketTimeout)
			}
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
