package preflight

import (
	"dictate/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the read-only checks status reports for the given config.
// The submodule check only runs for the streaming variant.
func RunAll(cfg *config.Config, streaming bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckNotRoot(),
		CheckSourceScripts(cfg.Paths.SourceDir),
	}
	if streaming {
		results = append(results, CheckSubmodule(cfg.SubmodulePath()))
	}

	results = append(results, CheckDirectoryAccess("Systemd user directory", cfg.Paths.SystemdUserDir))
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
