// Package database is the local index of published stories: a single
// SQLite file mapping slugs to public locators.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// dsnOptions are applied by the driver to every new connection, so WAL
// and foreign keys survive connection-pool churn.
const dsnOptions = "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

// DB is the story index.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) the index at dbPath and brings its schema up
// to date.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}
