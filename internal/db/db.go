package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	conn *sql.DB
	Path string
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id                TEXT PRIMARY KEY,
	created_at        INTEGER NOT NULL,
	jsonld_path       TEXT NOT NULL,
	roam_path         TEXT NOT NULL,
	records           INTEGER NOT NULL,
	claimed           INTEGER NOT NULL,
	linked            INTEGER NOT NULL,
	match_rate        REAL NOT NULL,
	conversion_rate   REAL,
	cross_person_rate REAL,
	warnings          INTEGER NOT NULL,
	report            TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
CREATE TABLE IF NOT EXISTS run_records (
	run_id               TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	work_id              TEXT NOT NULL,
	title                TEXT NOT NULL,
	creator              TEXT NOT NULL,
	claimer              TEXT NOT NULL,
	contributor          TEXT NOT NULL,
	attributed_by        TEXT NOT NULL,
	claim_type           TEXT NOT NULL,
	created_at           INTEGER,
	claimed_at           INTEGER,
	link_tier            TEXT NOT NULL,
	linked_results       INTEGER NOT NULL,
	earliest_result_at   INTEGER,
	days_to_claim        REAL,
	days_to_first_result REAL,
	cross_person         INTEGER NOT NULL,
	breadth              INTEGER NOT NULL,
	negative_interval    INTEGER NOT NULL,
	PRIMARY KEY (run_id, work_id)
);
`

// OpenDB opens a SQLite database with WAL mode and foreign keys enabled and
// creates the run tables if they do not exist yet
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	d, err := wrap(conn, path)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

// wrap enables foreign keys and applies the schema
func wrap(conn *sql.DB, path string) (*DB, error) {
	// foreign_keys is per connection; a single connection keeps it in force
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &DB{conn: conn, Path: path}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}
