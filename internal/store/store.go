// Package store keeps a SQLite log of pipeline runs and what each frame detected.
package store

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"
)

// busyTimeoutMS bounds how long a writer waits on a locked database.
const busyTimeoutMS = 5000

// Store holds the run log database.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the run log at path and brings its schema up to
// date. Foreign keys are enabled on every pooled connection.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate run log: %w", err)
	}
	return s, nil
}

// dsn adds the connection pragmas modernc.org/sqlite applies on connect.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	return "file:" + path + "?" + q.Encode()
}

// Path is the database file.
func (s *Store) Path() string {
	return s.path
}

// SchemaVersion reports the applied migration count.
func (s *Store) SchemaVersion() (int, error) {
	var v int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the connection for tests and ad hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}
