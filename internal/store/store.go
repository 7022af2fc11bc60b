package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var (
	// ErrNoLog is returned by OpenExisting when no migration log exists at
	// the path.
	ErrNoLog = errors.New("migration log not found")

	// ErrNewerLog is returned when a log was written by a newer thrustmig
	// whose schema this build does not know.
	ErrNewerLog = errors.New("migration log has a newer schema")
)

// migration upgrades a log to version. Steps run in order, each in its own
// transaction together with the user_version bump.
type migration struct {
	version int
	stmt    string
}

// migrations lists every schema step after the base schema.sql.
// Append only; never reorder or edit a released step.
var migrations = []migration{
	// FeatureTotals groups by feature across runs.
	{1, `CREATE INDEX IF NOT EXISTS idx_feature_usage_feature ON feature_usage(feature)`},
	// ReadDiagnostics filters a run by outcome kind.
	{2, `CREATE INDEX IF NOT EXISTS idx_rewrites_run_kind ON rewrites(run_id, kind)`},
}

// schemaVersion is the user_version of a fully migrated log.
func schemaVersion() int {
	return migrations[len(migrations)-1].version
}

// Store is the migration log: one row per run, one per recorded call-site
// outcome and one per feature first use.
//
// Store holds a single connection, so concurrent writers from parallel
// translation units are serialized.
type Store struct {
	db *sql.DB
}

// Open opens the log at path, creating it when missing. Pass MemoryPath for
// a throwaway log.
//
// File-backed logs use WAL journaling so report can read while rewrite
// writes. Foreign keys are enforced, so outcomes always belong to a run.
func Open(path string) (*Store, error) {
	return open(path)
}

// OpenExisting opens a log that must already exist. Commands that only read
// the log use it so a mistyped path is reported instead of creating an
// empty database.
func OpenExisting(path string) (*Store, error) {
	if path == MemoryPath {
		return nil, fmt.Errorf("%w: %s", ErrNoLog, path)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoLog, path)
		}
		return nil, fmt.Errorf("failed to stat log: %w", err)
	}
	return open(path)
}

func open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// An in-memory database lives as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := configure(db, path != MemoryPath); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// configure sets connection pragmas. WAL only applies to file-backed logs.
func configure(db *sql.DB, onDisk bool) error {
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	if onDisk {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// migrate creates the base tables and applies pending steps. A log whose
// user_version is ahead of this build is refused rather than written to.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > schemaVersion() {
		return fmt.Errorf("%w: version %d, this build supports %d", ErrNewerLog, version, schemaVersion())
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate to v%d: %w", m.version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.stmt); err != nil {
		return fmt.Errorf("migrate to v%d: %w", m.version, err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return fmt.Errorf("migrate to v%d: set user_version: %w", m.version, err)
	}
	return tx.Commit()
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
