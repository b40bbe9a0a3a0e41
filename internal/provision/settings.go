package provision

import (
	"fmt"
	"strings"

	"dictate/internal/config"
)

// Variant selects which services are installed.
type Variant string

const (
	VariantStandard  Variant = "standard"
	VariantStreaming Variant = "streaming"
)

// Settings are the values one install run applies.
type Settings struct {
	Variant       Variant
	Model         string
	InputMethod   string
	StreamingPort int
	CleanVenv     bool
}

// SettingsFromConfig seeds Settings from configuration defaults.
func SettingsFromConfig(cfg *config.Config, variant Variant) Settings {
	return Settings{
		Variant:       variant,
		Model:         cfg.Dictation.Model,
		InputMethod:   cfg.Dictation.InputMethod,
		StreamingPort: cfg.Streaming.Port,
	}
}

// Streaming reports whether the streaming server is part of this run.
func (s Settings) Streaming() bool {
	return s.Variant == VariantStreaming
}

// Validate normalizes casing and rejects unusable combinations.
func (s *Settings) Validate() error {
	s.Model = strings.TrimSpace(s.Model)
	s.InputMethod = strings.ToLower(strings.TrimSpace(s.InputMethod))
	if s.Variant == "" {
		s.Variant = VariantStandard
	}

	if s.Variant != VariantStandard && s.Variant != VariantStreaming {
		return Wrap(ErrValidation, "settings", "variant", fmt.Sprintf("unknown variant %q", s.Variant), nil)
	}
	if s.Model == "" {
		return Wrap(ErrValidation, "settings", "model", "model must not be empty", nil)
	}
	if strings.ContainsAny(s.Model, "\r\n") {
		return Wrap(ErrValidation, "settings", "model", fmt.Sprintf("model %q must be a single line", s.Model), nil)
	}
	if err := config.ValidateInputMethod(s.InputMethod); err != nil {
		return Wrap(ErrValidation, "settings", "input method", "", err)
	}
	if err := config.ValidatePort(s.StreamingPort); err != nil {
		return Wrap(ErrValidation, "settings", "port", "", err)
	}
	if s.CleanVenv && !s.Streaming() {
		return Wrap(ErrValidation, "settings", "clean", "--clean requires the streaming variant", nil)
	}
	return nil
}
