package config

import "slices"

// WhisperModels lists the model names openai-whisper accepts for load_model.
var WhisperModels = []string{
	"tiny.en", "tiny",
	"base.en", "base",
	"small.en", "small",
	"medium.en", "medium",
	"large-v1", "large-v2", "large-v3", "large",
	"large-v3-turbo", "turbo",
}

// IsKnownModel reports whether name is a Whisper model size the daemon can load.
// Unknown names are still rendered verbatim; callers only warn.
func IsKnownModel(name string) bool {
	return slices.Contains(WhisperModels, name)
}
