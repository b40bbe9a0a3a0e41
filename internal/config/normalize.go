package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeDictation()
	if err := c.normalizeStreaming(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePackages()
	c.normalizeSystemd()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeDictation() {
	c.Dictation.Model = strings.TrimSpace(c.Dictation.Model)
	if c.Dictation.Model == "" {
		if value, ok := os.LookupEnv("JNICKG_DICTATE_MODEL"); ok && strings.TrimSpace(value) != "" {
			c.Dictation.Model = strings.TrimSpace(value)
		} else {
			c.Dictation.Model = defaultModel
		}
	}
	c.Dictation.InputMethod = strings.ToLower(strings.TrimSpace(c.Dictation.InputMethod))
	if c.Dictation.InputMethod == "" {
		if value, ok := os.LookupEnv("JNICKG_DICTATE_INPUT_METHOD"); ok && strings.TrimSpace(value) != "" {
			c.Dictation.InputMethod = strings.ToLower(strings.TrimSpace(value))
		} else {
			c.Dictation.InputMethod = defaultInputMethod
		}
	}
}

func (c *Config) normalizeStreaming() error {
	if c.Streaming.Port == 0 {
		c.Streaming.Port = defaultStreamingPort
	}
	c.Streaming.SubmoduleDir = strings.TrimSpace(c.Streaming.SubmoduleDir)
	if c.Streaming.SubmoduleDir == "" {
		c.Streaming.SubmoduleDir = defaultSubmoduleDir
	}
	if strings.HasPrefix(c.Streaming.SubmoduleDir, "~") {
		expanded, err := expandPath(c.Streaming.SubmoduleDir)
		if err != nil {
			return fmt.Errorf("streaming.submodule_dir: %w", err)
		}
		c.Streaming.SubmoduleDir = expanded
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.SourceDir) == "" {
		c.Paths.SourceDir = "."
	}
	if c.Paths.SourceDir, err = expandPath(c.Paths.SourceDir); err != nil {
		return fmt.Errorf("paths.source_dir: %w", err)
	}

	configHome := xdgDir("XDG_CONFIG_HOME", defaultXDGConfigHomeFallback)
	cacheHome := xdgDir("XDG_CACHE_HOME", defaultXDGCacheHomeFallback)
	dataHome := xdgDir("XDG_DATA_HOME", defaultXDGDataHomeFallback)

	defaults := []struct {
		field    *string
		key      string
		fallback string
	}{
		{&c.Paths.BinDir, "paths.bin_dir", defaultBinDir},
		{&c.Paths.SystemdUserDir, "paths.systemd_user_dir", filepath.Join(configHome, "systemd", "user")},
		{&c.Paths.DataDir, "paths.data_dir", filepath.Join(dataHome, AppName)},
		{&c.Paths.CacheDir, "paths.cache_dir", filepath.Join(cacheHome, AppName)},
		{&c.Paths.ConfigDir, "paths.config_dir", filepath.Join(configHome, AppName)},
		{&c.Paths.WhisperCacheDir, "paths.whisper_cache_dir", filepath.Join(cacheHome, "whisper")},
	}
	for _, entry := range defaults {
		if strings.TrimSpace(*entry.field) == "" {
			*entry.field = entry.fallback
		}
		if *entry.field, err = expandPath(strings.TrimSpace(*entry.field)); err != nil {
			return fmt.Errorf("%s: %w", entry.key, err)
		}
	}

	if strings.TrimSpace(c.Paths.TemplatesDir) != "" {
		if c.Paths.TemplatesDir, err = expandPath(strings.TrimSpace(c.Paths.TemplatesDir)); err != nil {
			return fmt.Errorf("paths.templates_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizePackages() {
	c.Packages.Manager = strings.ToLower(strings.TrimSpace(c.Packages.Manager))
	if c.Packages.Manager == "" {
		c.Packages.Manager = defaultPackageManager
	}
	c.Packages.PrivilegeCommand = strings.TrimSpace(c.Packages.PrivilegeCommand)
	if c.Packages.PrivilegeCommand == "" {
		c.Packages.PrivilegeCommand = defaultPrivilegeCommand
	}
}

func (c *Config) normalizeSystemd() {
	c.Systemd.Backend = strings.ToLower(strings.TrimSpace(c.Systemd.Backend))
	if c.Systemd.Backend == "" {
		c.Systemd.Backend = defaultSystemdBackend
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
