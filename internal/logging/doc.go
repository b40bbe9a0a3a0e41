// Package logging assembles the slog loggers used by dictatectl.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes helpers that tag records with the component and the
// provisioning step. The console handler renders component and step as a
// prefix so a terminal run reads as a linear transcript of the pipeline. A
// no-op logger is provided for tests and wiring code that cannot fail.
package logging
