package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// RecordingExecutor captures every command instead of running it.
type RecordingExecutor struct {
	mu       sync.Mutex
	commands []string
	// Failures maps a command-line prefix to the error returned for it.
	Failures map[string]error
	// Output maps a command-line prefix to lines forwarded to onOutput.
	Output map[string][]string
	// OnRun, when set, is invoked after recording and before failures are applied.
	OnRun func(binary string, args []string)
}

// NewRecordingExecutor returns an executor that succeeds for every command.
func NewRecordingExecutor() *RecordingExecutor {
	return &RecordingExecutor{Failures: map[string]error{}, Output: map[string][]string{}}
}

func (r *RecordingExecutor) Run(_ context.Context, binary string, args []string, onOutput func(string)) error {
	line := strings.TrimSpace(binary + " " + strings.Join(args, " "))
	r.mu.Lock()
	r.commands = append(r.commands, line)
	onRun := r.OnRun
	r.mu.Unlock()

	if onRun != nil {
		onRun(binary, args)
	}
	for prefix, lines := range r.Output {
		if strings.HasPrefix(line, prefix) && onOutput != nil {
			for _, l := range lines {
				onOutput(l)
			}
		}
	}
	for prefix, err := range r.Failures {
		if strings.HasPrefix(line, prefix) {
			return err
		}
	}
	return nil
}

// Commands returns the recorded command lines in execution order.
func (r *RecordingExecutor) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.commands))
	copy(out, r.commands)
	return out
}

// Ran reports whether any recorded command line starts with prefix.
func (r *RecordingExecutor) Ran(prefix string) bool {
	for _, line := range r.Commands() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// VenvSimulator returns an OnRun hook that materializes the directory a
// "python3 -m venv <dir>" call would create, including a marker file.
func VenvSimulator() func(binary string, args []string) {
	return func(binary string, args []string) {
		if filepath.Base(binary) != "python3" || len(args) < 3 || args[0] != "-m" || args[1] != "venv" {
			return
		}
		dir := args[len(args)-1]
		_ = os.MkdirAll(filepath.Join(dir, "bin"), 0o755)
		_ = os.WriteFile(filepath.Join(dir, "pyvenv.cfg"), []byte("home = /usr/bin\n"), 0o644)
	}
}
