package provision

// Outcome is the result of one provisioning step.
type Outcome string

const (
	OutcomeDone      Outcome = "done"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeRemoved   Outcome = "removed"
	OutcomeAbsent    Outcome = "absent"
	OutcomeFailed    Outcome = "failed"
)

// StepResult records what a step did to one resource.
type StepResult struct {
	Step     string
	Resource string
	Outcome  Outcome
	Detail   string
}

// Report summarizes an install or uninstall run.
type Report struct {
	RunID    string
	Settings Settings
	Steps    []StepResult
}

// Failures returns the failed steps.
func (r Report) Failures() []StepResult {
	var failed []StepResult
	for _, step := range r.Steps {
		if step.Outcome == OutcomeFailed {
			failed = append(failed, step)
		}
	}
	return failed
}
