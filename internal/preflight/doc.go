// Package preflight provides readiness checks for the user account and the
// filesystem paths the installer depends on.
//
// These checks run in two contexts:
//   - install and uninstall call CheckNotRoot before anything else and
//     refuse to continue when it fails.
//   - The CLI "dictatectl status" command runs RunAll and the runtime checks
//     to display readiness without changing anything.
package preflight
