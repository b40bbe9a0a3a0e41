// Package deps checks the executables the dictation utility needs and plans
// the system package install that provides the missing ones.
//
// Requirements are probed on PATH. Missing executables are mapped to the
// package names of the detected distribution package manager (apt, dnf,
// pacman or zypper) and installed in a single privileged batch.
package deps
