package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// pragma is one connection setting and the value it reads back as.
type pragma struct {
	name, value, readBack string
}

// Several thecl processes may append to the same history file, e.g. from a
// parallel build. WAL plus a busy timeout lets them queue instead of failing.
var pragmas = []pragma{
	{"journal_mode", "WAL", "wal"},
	{"synchronous", "NORMAL", "1"},
	{"busy_timeout", "5000", "5000"},
}

// migrations[i] upgrades a history database from user_version i to i+1.
var migrations = []func(*sql.Tx) error{
	indexInputDigest,
}

// schemaVersion is the user_version of an up-to-date history database.
func schemaVersion() int {
	return len(migrations)
}

// Store is an open history database.
type Store struct {
	db *sql.DB
}

// Open opens the history database at path, creating it and any missing
// parent directories. A database written by a newer thecl is refused.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: a run writes a single row and exits.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set %s: %w", p.name, err)
		}
	}

	if err := upgrade(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database. Safe on a zero Store.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the connection for ad hoc queries such as scenario assertions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// upgrade creates the runs table and applies every pending migration, each
// in its own transaction together with its user_version bump.
func upgrade(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	version, err := userVersion(db)
	if err != nil {
		return err
	}
	if version > schemaVersion() {
		return fmt.Errorf("history schema version %d is newer than supported version %d", version, schemaVersion())
	}

	for v := version; v < schemaVersion(); v++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if err := migrations[v](tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}
	return nil
}

func userVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

// indexInputDigest lets `thecl history --input` find earlier runs over the
// same input content.
func indexInputDigest(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_input_digest ON runs(input_digest)`)
	return err
}
