// Package provision implements the install and uninstall pipelines.
//
// Install runs strictly in sequence and stops at the first failure:
// preflight guards, dependency check and package install, ydotoold helper,
// directories and staged files, virtual environment, unit rendering and
// service activation. Uninstall walks the same resources in reverse and
// never stops early. Both hold an advisory lock for their whole duration and
// report every step they took. Errors carry one of the sentinel markers in
// errors.go so callers can classify them with errors.Is.
package provision
