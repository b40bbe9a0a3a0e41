// Package config loads, normalizes, and validates dictatectl configuration.
//
// Values come from a TOML file under the XDG config home, fall back to the
// defaults in defaults.go, and are overridden by command-line flags at the
// call site. Every path is expanded to an absolute path during Load so the
// provisioning code never has to handle "~" or relative locations.
package config
