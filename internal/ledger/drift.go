package ledger

import (
	"errors"
	"io/fs"
	"os"

	"dictate/internal/fileutil"
)

// DriftState describes how an installed artifact compares to its record.
type DriftState string

const (
	DriftNone     DriftState = "ok"
	DriftModified DriftState = "modified"
	DriftMissing  DriftState = "missing"
	DriftUnknown  DriftState = "unknown"
)

// Drift reports whether the artifact on disk still matches the recorded hash.
// Directories and artifacts without a hash only check presence.
func Drift(a Artifact) (DriftState, error) {
	info, err := os.Stat(a.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DriftMissing, nil
		}
		return DriftUnknown, err
	}
	if info.IsDir() || a.SHA256 == "" {
		return DriftNone, nil
	}
	sum, err := fileutil.HashFile(a.Path)
	if err != nil {
		return DriftUnknown, err
	}
	if sum != a.SHA256 {
		return DriftModified, nil
	}
	return DriftNone, nil
}
