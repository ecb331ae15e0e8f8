// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside your Go binary as a single
// file. No separate database server to install, configure, or manage. The
// original deployment target is a single-server blog; SQLite's per-statement
// atomicity is exactly the consistency boundary the API promises, no more.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — works everywhere Go works.
package sqlite

import (
	"database/sql"
	"fmt"

	// BLANK IMPORT:
	// Side-effect only import — the sqlite package's init() registers itself
	// with database/sql as a driver named "sqlite". After this import,
	// sql.Open("sqlite", ...) knows how to talk to SQLite.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and hands out the three per-collection
// stores (AuthorStore, PostStore, CommentStore) over the same pool.
//
// One New/Close pair for the composition root; the repository interfaces
// keep the service layer from noticing any of this.
type DB struct {
	conn *sql.DB
}

// Authors returns the AuthorRepository backed by this database.
func (db *DB) Authors() *AuthorStore { return &AuthorStore{db: db} }

// Posts returns the PostRepository backed by this database.
func (db *DB) Posts() *PostStore { return &PostStore{db: db} }

// Comments returns the CommentRepository backed by this database.
func (db *DB) Comments() *CommentStore { return &CommentStore{db: db} }

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/strive-blog.db" → file-based database (persistent)
//   - ":memory:"            → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// A pooled ":memory:" DSN gives every pooled connection its own private
	// empty database. Pin the pool to a single connection so all queries
	// see the one database the migrations ran against.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Ping verifies the connection actually works. Without this, a bad path
	// or permissions issue would only surface on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL (Write-Ahead Logging) mode:
	// Default SQLite locks the entire database during writes. WAL allows
	// concurrent reads WHILE a write is happening — important for a web
	// server where multiple requests hit the DB.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. We leave them off on
	// purpose: author deletion must NOT cascade to posts or comments —
	// dangling author references are part of the data model.
	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool. Always defer this wherever you
// call New() — it flushes the WAL and releases the file lock.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the three collections. CREATE TABLE IF NOT EXISTS makes
// this idempotent — safe to run on every startup.
//
// google_id and email are nullable UNIQUE columns: SQLite treats NULLs as
// distinct in unique indexes, so any number of password-only authors
// (google_id NULL) and pure-OAuth authors without a public email
// (email NULL) can coexist, while a present value stays globally unique.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS authors (
			id            TEXT PRIMARY KEY,
			google_id     TEXT UNIQUE,
			email         TEXT UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			name          TEXT NOT NULL,
			surname       TEXT NOT NULL DEFAULT '',
			birth_date    TEXT NOT NULL DEFAULT '',
			avatar        TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating authors table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id              TEXT PRIMARY KEY,
			category        TEXT NOT NULL,
			title           TEXT NOT NULL,
			cover           TEXT NOT NULL DEFAULT '',
			read_time_value INTEGER NOT NULL,
			read_time_unit  TEXT NOT NULL,
			content         TEXT NOT NULL,
			author_id       TEXT NOT NULL,
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_posts_author_id ON posts(author_id);
		CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating posts table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS comments (
			id         TEXT PRIMARY KEY,
			content    TEXT NOT NULL,
			author_id  TEXT NOT NULL DEFAULT '',
			post_id    TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);
		CREATE INDEX IF NOT EXISTS idx_comments_author_id ON comments(author_id);
	`)
	if err != nil {
		return fmt.Errorf("creating comments table: %w", err)
	}

	return nil
}

// nullable maps an empty string to NULL for the nullable UNIQUE columns
// (google_id, email). Storing an empty string instead of NULL would make the second
// OAuth-only author collide with the first on the unique index.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// stringOrEmpty unwraps a nullable TEXT column scanned into a sql.NullString.
func stringOrEmpty(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
