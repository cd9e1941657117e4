// Package store manages the wiki database: an embedded SQLite file that
// lives inside a git-versioned store directory and is rebuilt from the JSON
// data files on every sync.
//
// The database runs in embedded mode using WAL for concurrency support.
//
// Layout of the store directory:
//   - wiki.db: the SQLite database, committed to git after each sync
//   - store.toml: remote, branch, and author used when committing
//   - .gitignore: excludes the WAL and SHM sidecar files
//
// Because the .db file itself is versioned, Checkpoint must run before any
// commit so the WAL is folded back into the main file.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps the SQLite connection for the wiki database.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates a database connection at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent reads. If
// the file doesn't exist it is created empty; schema.Ensure brings it up to
// date afterwards.
//
// The caller MUST call Close() when done.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	// _txlock makes explicit transactions BEGIN IMMEDIATE, so a batch
	// takes the write lock up front instead of failing mid-flush when a
	// deferred transaction tries to upgrade.
	connStr := fmt.Sprintf("file:%s?_txlock=immediate", path)
	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{
		conn: conn,
		path: path,
	}

	// Enable WAL mode for concurrent reads
	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout to 5 seconds
	if _, err := db.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Enable foreign keys
	if _, err := db.conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// EnsureGitignore writes the store directory's .gitignore excluding the WAL
// and SHM sidecars, which exist whenever a connection is open and must never
// land in a commit. An existing .gitignore is left alone.
func EnsureGitignore(dir string) error {
	path := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte("*.db-wal\n*.db-shm\n"), 0o644)
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Checkpoint folds the WAL back into the main database file. Run this before
// committing the store directory, otherwise the committed .db file misses
// everything still sitting in the WAL sidecar.
func (db *DB) Checkpoint() error {
	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}
	return nil
}

// Close closes the database connection after checkpointing the WAL.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	db.conn = nil
	return nil
}

// Exec runs a single statement outside any batch.
func (db *DB) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sql failed: %s: %w", preview(query, args), err)
	}
	return nil
}

// QueryRows runs a query and returns every row as a column-name map. BLOB
// and TEXT columns come back as strings, integers as int64.
func (db *DB) QueryRows(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sql failed: %s: %w", preview(query, args), err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// QueryInt runs a single-value query, typically a COUNT.
func (db *DB) QueryInt(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sql failed: %s: %w", preview(query, args), err)
	}
	return n, nil
}
