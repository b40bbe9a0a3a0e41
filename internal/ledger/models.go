package ledger

import "time"

// RunStatus is the lifecycle state of an install run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Kind classifies an installed artifact.
type Kind string

const (
	KindUnit      Kind = "unit"
	KindInputUnit Kind = "input_unit"
	KindScript    Kind = "script"
	KindSubmodule Kind = "submodule"
	KindVenv      Kind = "venv"
	KindWarmup    Kind = "warmup"
)

// RunInfo describes the settings an install run was started with.
type RunInfo struct {
	Variant       string
	Model         string
	InputMethod   string
	StreamingPort int
}

// Run is one recorded install invocation.
type Run struct {
	ID         string
	RunInfo
	StartedAt  time.Time
	FinishedAt time.Time
	Status     RunStatus
	Error      string
}

// Artifact is one file or directory written by an install run. SHA256 is
// empty for directories. Owned is false when the artifact pre-existed and the
// installer must leave it in place on uninstall.
type Artifact struct {
	Path      string
	Kind      Kind
	SHA256    string
	Owned     bool
	RunID     string
	UpdatedAt time.Time
}
