package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var packageManagers = []string{"auto", "apt", "dnf", "pacman", "zypper"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDictation(); err != nil {
		return err
	}
	if err := c.validateStreaming(); err != nil {
		return err
	}
	if err := c.validatePackages(); err != nil {
		return err
	}
	if err := c.validateSystemd(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDictation() error {
	if strings.TrimSpace(c.Dictation.Model) == "" {
		return errors.New("dictation.model must be set")
	}
	if strings.ContainsAny(c.Dictation.Model, "\r\n") {
		return errors.New("dictation.model must be a single line")
	}
	return ValidateInputMethod(c.Dictation.InputMethod)
}

// ValidateInputMethod reports whether method names a supported text injection backend.
func ValidateInputMethod(method string) error {
	if !slices.Contains(InputMethods(), method) {
		return fmt.Errorf("dictation.input_method must be one of %s (got %q)", strings.Join(InputMethods(), ", "), method)
	}
	return nil
}

func (c *Config) validateStreaming() error {
	if err := ValidatePort(c.Streaming.Port); err != nil {
		return err
	}
	if c.Streaming.StartupDelaySeconds < 0 {
		return errors.New("streaming.startup_delay_seconds must be non-negative")
	}
	return nil
}

// ValidatePort reports whether port is a usable TCP port.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("streaming.port must be between 1 and 65535 (got %d)", port)
	}
	return nil
}

func (c *Config) validatePackages() error {
	if !slices.Contains(packageManagers, c.Packages.Manager) {
		return fmt.Errorf("packages.manager must be one of %s (got %q)", strings.Join(packageManagers, ", "), c.Packages.Manager)
	}
	if strings.ContainsAny(c.Packages.PrivilegeCommand, " \t") {
		return fmt.Errorf("packages.privilege_command must be a single executable (got %q)", c.Packages.PrivilegeCommand)
	}
	return nil
}

func (c *Config) validateSystemd() error {
	switch c.Systemd.Backend {
	case BackendSystemctl, BackendDBus:
	default:
		return fmt.Errorf("systemd.backend must be %q or %q (got %q)", BackendSystemctl, BackendDBus, c.Systemd.Backend)
	}
	if c.Systemd.SocketWaitSeconds < 0 {
		return errors.New("systemd.socket_wait_seconds must be non-negative")
	}
	return nil
}
