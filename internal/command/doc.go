// Package command runs external programs for the installer.
//
// Every subprocess dictatectl starts (package managers, systemctl, python3,
// pip) goes through the Executor interface so tests can substitute a
// recording fake. The host implementation streams combined output line by
// line and keeps a short tail for error reporting.
package command
