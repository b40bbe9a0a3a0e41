package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Dictation contains the settings rendered into the dictation daemon unit.
type Dictation struct {
	Model       string `toml:"model"`
	InputMethod string `toml:"input_method"`
}

// Streaming contains settings for the optional streaming transcription server.
type Streaming struct {
	Port                int    `toml:"port"`
	StartupDelaySeconds int    `toml:"startup_delay_seconds"`
	SubmoduleDir        string `toml:"submodule_dir"`
}

// Paths contains source and destination directories touched by the installer.
type Paths struct {
	SourceDir       string `toml:"source_dir"`
	BinDir          string `toml:"bin_dir"`
	SystemdUserDir  string `toml:"systemd_user_dir"`
	DataDir         string `toml:"data_dir"`
	CacheDir        string `toml:"cache_dir"`
	ConfigDir       string `toml:"config_dir"`
	WhisperCacheDir string `toml:"whisper_cache_dir"`
	TemplatesDir    string `toml:"templates_dir"`
}

// Packages controls how missing system packages are installed.
type Packages struct {
	Manager          string `toml:"manager"`
	PrivilegeCommand string `toml:"privilege_command"`
}

// Systemd controls how user services are managed.
type Systemd struct {
	Backend           string `toml:"backend"`
	SocketWaitSeconds int    `toml:"socket_wait_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for dictatectl.
//
// Configuration sections:
//   - Dictation: Whisper model and text input backend
//   - Streaming: streaming server port, readiness delay, submodule location
//   - Paths: source tree and every directory the installer writes to
//   - Packages: package manager selection and privilege escalation
//   - Systemd: service manager backend and socket readiness wait
//   - Logging: log format and level
type Config struct {
	Dictation Dictation `toml:"dictation"`
	Streaming Streaming `toml:"streaming"`
	Paths     Paths     `toml:"paths"`
	Packages  Packages  `toml:"packages"`
	Systemd   Systemd   `toml:"systemd"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(filepath.Join(xdgDir("XDG_CONFIG_HOME", "~/.config"), AppName, "config.toml"))
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// Directories returns the fixed set of directories the environment provisioner creates.
func (c *Config) Directories() []string {
	return []string{
		c.Paths.CacheDir,
		c.Paths.WhisperCacheDir,
		c.Paths.ConfigDir,
		c.Paths.DataDir,
		c.Paths.BinDir,
		c.Paths.SystemdUserDir,
	}
}

// EnsureDirectories creates the installer's directories. Existing directories are not an error.
func (c *Config) EnsureDirectories() error {
	for _, dir := range c.Directories() {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SubmodulePath returns the streaming submodule directory inside the source tree.
func (c *Config) SubmodulePath() string {
	if filepath.IsAbs(c.Streaming.SubmoduleDir) {
		return c.Streaming.SubmoduleDir
	}
	return filepath.Join(c.Paths.SourceDir, c.Streaming.SubmoduleDir)
}

// VenvDir returns the virtual environment location.
func (c *Config) VenvDir() string {
	return filepath.Join(c.Paths.DataDir, "venv")
}

// StagedSubmoduleDir returns where the streaming submodule is copied to.
func (c *Config) StagedSubmoduleDir() string {
	return filepath.Join(c.Paths.DataDir, filepath.Base(c.Streaming.SubmoduleDir))
}

// WarmupFile returns the path of the streaming server warmup audio file.
func (c *Config) WarmupFile() string {
	return filepath.Join(c.Paths.DataDir, "warmup.wav")
}

// LedgerPath returns the install ledger database location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.DataDir, "state.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// xdgDir returns the XDG base directory named by env, or fallback when unset.
func xdgDir(env, fallback string) string {
	if base, ok := os.LookupEnv(env); ok && strings.TrimSpace(base) != "" {
		return strings.TrimSpace(base)
	}
	return fallback
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
