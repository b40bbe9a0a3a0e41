// Package main hosts the dictatectl entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into provisioning runs:
// install and uninstall drive internal/provision, status reports what is on
// disk and what the service manager sees, and render previews unit files.
// Configuration resolution and logger setup live in the shared command
// context so subcommands stay declarative.
package main
