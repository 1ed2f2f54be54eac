package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in PRAGMA user_version.
//
//	1 - runs, inputs, results
const schemaVersion = 1

// ErrNewerSchema is returned by Open for a database written by a newer
// version of the store.
var ErrNewerSchema = errors.New("database schema is newer than supported")

// connParams are the go-sqlite3 DSN parameters applied to every connection,
// with the value PRAGMA reports back for each.
var connParams = []struct {
	param, pragma, value, reported string
}{
	{"_journal_mode", "journal_mode", "WAL", "wal"},
	{"_synchronous", "synchronous", "NORMAL", "1"},
	{"_busy_timeout", "busy_timeout", "5000", "5000"},
	{"_foreign_keys", "foreign_keys", "on", "1"},
}

// IDGenerator returns a fresh run id.
type IDGenerator func() string

// Store records query runs in a SQLite database.
type Store struct {
	db    *sql.DB
	newID IDGenerator
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the run id generator.
//
// Default: time-ordered UUIDv7 strings
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		s.newID = g
	}
}

// Open opens the run database at path, creating it and its tables when
// missing. Opening the same path again is safe.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open run database: %w", err)
	}
	// One writer: runs are recorded by a single query command at a time.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open run database %s: %w", path, err)
	}

	s := &Store{db: db, newID: newUUID}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range connParams {
		q.Set(p.param, p.value)
	}
	return "file:" + path + "?" + q.Encode()
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does.
		return uuid.NewString()
	}
	return id.String()
}

// migrate creates the tables of schemaVersion. A database at an older
// version is upgraded in place; there is only one version so far.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("%w: version %d, supported %d", ErrNewerSchema, version, schemaVersion)
	}
	if version == schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	return tx.Commit()
}

// pragma reads the current value of a pragma.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read pragma %s: %w", name, err)
	}
	return value, nil
}
