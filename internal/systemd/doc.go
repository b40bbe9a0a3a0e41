// Package systemd renders and controls the per-user services of the
// dictation utility.
//
// Unit templates are embedded and may be overridden from a directory. The
// renderer replaces whole Environment= lines for the model, input method
// and streaming port, so output depends only on the settings. Two Manager
// backends exist: systemctl --user through the command executor, and the
// systemd1 Manager interface on the session bus.
package systemd
