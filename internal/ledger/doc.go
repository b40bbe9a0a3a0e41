// Package ledger persists what an install run wrote so that status can detect
// drift and uninstall can tell installer-created artifacts from ones that
// were already present.
//
// The ledger is a SQLite database in the data directory holding one row per
// install run, keyed by a random UUID, and one row per artifact with its
// content hash. It is deleted by uninstall.
package ledger
