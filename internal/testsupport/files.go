package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteSourceTree lays out a minimal checkout: the client and daemon scripts
// and, when withSubmodule is set, a populated whisper_streaming directory.
func WriteSourceTree(t testing.TB, dir string, withSubmodule bool) {
	t.Helper()
	WriteFile(t, filepath.Join(dir, "dictate.py"), "#!/usr/bin/env python3\nprint('toggle')\n")
	WriteFile(t, filepath.Join(dir, "whisper_dictate_daemon.py"), "#!/usr/bin/env python3\nprint('daemon')\n")
	if withSubmodule {
		WriteFile(t, filepath.Join(dir, "whisper_streaming", "whisper_online_server.py"), "print('server')\n")
		WriteFile(t, filepath.Join(dir, "whisper_streaming", "whisper_online.py"), "print('online')\n")
	}
}

// Exists reports whether path exists.
func Exists(t testing.TB, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	if os.IsNotExist(err) {
		return false
	}
	t.Fatalf("stat %s: %v", path, err)
	return false
}

// ReadFile returns the content of path or fails the test.
func ReadFile(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
