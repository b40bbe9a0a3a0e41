package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store records install runs and the artifacts they wrote, backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open creates or connects to the ledger database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// Rollback journal rather than WAL: read-only opens then never create
	// -wal/-shm side files next to the database.
	if err := applyPragmas(db,
		"PRAGMA journal_mode=DELETE",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	); err != nil {
		return nil, err
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OpenReadOnly opens an existing ledger without writing to it or to its
// directory. The boolean reports whether the database exists. Writes through
// the returned store fail.
func OpenReadOnly(path string) (*Store, bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("stat ledger: %w", err)
	}

	dsn := (&url.URL{Scheme: "file", OmitHost: true, Path: path, RawQuery: "mode=ro"}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, true, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := applyPragmas(db, "PRAGMA query_only = ON", "PRAGMA busy_timeout = 5000"); err != nil {
		return nil, true, err
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.checkSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, true, err
	}
	return store, true, nil
}

func applyPragmas(db *sql.DB, pragmas ...string) error {
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	return nil
}

// OpenExisting opens the ledger only when the database file already exists.
// The boolean reports whether it did.
func OpenExisting(path string) (*Store, bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("stat ledger: %w", err)
	}
	store, err := Open(path)
	if err != nil {
		return nil, true, err
	}
	return store, true, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Files lists the database file and every side file SQLite may leave next to
// it, including WAL files from ledgers created before the rollback journal.
func Files(path string) []string {
	return []string{path, path + "-journal", path + "-wal", path + "-shm"}
}

func (s *Store) initSchema(ctx context.Context) error {
	exists, err := s.hasSchema(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return s.createSchema(ctx)
	}
	return s.checkVersion(ctx)
}

// checkSchema validates the schema without creating it.
func (s *Store) checkSchema(ctx context.Context) error {
	exists, err := s.hasSchema(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s has no schema_version table", ErrSchemaMismatch, s.path)
	}
	return s.checkVersion(ctx)
}

func (s *Store) hasSchema(ctx context.Context) (bool, error) {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return false, fmt.Errorf("check schema_version table: %w", err)
	}
	return tableExists > 0, nil
}

func (s *Store) checkVersion(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (run 'dictatectl uninstall' or delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("insert schema version: %w", err)
	}
	return tx.Commit()
}

// BeginRun records the start of an install run and returns it with a fresh ID.
func (s *Store) BeginRun(ctx context.Context, info RunInfo) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		RunInfo:   info,
		StartedAt: s.now().UTC(),
		Status:    RunRunning,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, variant, model, input_method, streaming_port, started_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, info.Variant, info.Model, info.InputMethod, info.StreamingPort,
		run.StartedAt.Format(timeLayout), string(run.Status),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun marks a run succeeded, or failed with runErr's message.
func (s *Store) FinishRun(ctx context.Context, id string, runErr error) error {
	status := RunSucceeded
	var message sql.NullString
	if runErr != nil {
		status = RunFailed
		message = sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE runs SET finished_at = ?, status = ?, error_message = ? WHERE id = ?",
		s.now().UTC().Format(timeLayout), string(status), message, id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update run: unknown run %s", id)
	}
	return nil
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (Run, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, variant, model, input_method, streaming_port, started_at, finished_at, status, error_message
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	var (
		run      Run
		started  string
		finished sql.NullString
		status   string
		message  sql.NullString
	)
	err := row.Scan(&run.ID, &run.Variant, &run.Model, &run.InputMethod, &run.StreamingPort, &started, &finished, &status, &message)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("query latest run: %w", err)
	}
	run.StartedAt = parseTime(started)
	if finished.Valid {
		run.FinishedAt = parseTime(finished.String)
	}
	run.Status = RunStatus(status)
	run.Error = message.String
	return run, true, nil
}

// RecordArtifact inserts or updates the artifact at a.Path. Ownership is
// sticky: once a run created the artifact, later runs that found it in place
// do not clear the flag.
func (s *Store) RecordArtifact(ctx context.Context, a Artifact) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (path, kind, sha256, owned, run_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		     kind = excluded.kind,
		     sha256 = excluded.sha256,
		     owned = MAX(artifacts.owned, excluded.owned),
		     run_id = excluded.run_id,
		     updated_at = excluded.updated_at`,
		a.Path, string(a.Kind), nullString(a.SHA256), boolToInt(a.Owned), a.RunID,
		s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record artifact %s: %w", a.Path, err)
	}
	return nil
}

// Artifact returns the artifact recorded at path.
func (s *Store) Artifact(ctx context.Context, path string) (Artifact, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT path, kind, sha256, owned, run_id, updated_at FROM artifacts WHERE path = ?", path)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, false, nil
	}
	if err != nil {
		return Artifact{}, false, fmt.Errorf("query artifact %s: %w", path, err)
	}
	return a, true, nil
}

// Artifacts lists every recorded artifact ordered by kind then path.
func (s *Store) Artifacts(ctx context.Context) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT path, kind, sha256, owned, run_id, updated_at FROM artifacts ORDER BY kind, path")
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// DeleteArtifact forgets the artifact at path.
func (s *Store) DeleteArtifact(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM artifacts WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete artifact %s: %w", path, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row scanner) (Artifact, error) {
	var (
		a       Artifact
		kind    string
		sum     sql.NullString
		owned   int
		updated string
	)
	if err := row.Scan(&a.Path, &kind, &sum, &owned, &a.RunID, &updated); err != nil {
		return Artifact{}, err
	}
	a.Kind = Kind(kind)
	a.SHA256 = sum.String
	a.Owned = owned != 0
	a.UpdatedAt = parseTime(updated)
	return a, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
