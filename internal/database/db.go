package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

// DB wraps the database connection and provides access to database operations
type DB struct {
	conn *sql.DB
	path string
}

// Options controls how the database is opened
type Options struct {
	Path    string
	WALMode bool
}

// New opens the database at dbPath in WAL mode and applies pending migrations.
// If the database file doesn't exist, it will be created.
func New(dbPath string) (*DB, error) {
	return Open(Options{Path: dbPath, WALMode: true})
}

// NewMemory opens a migrated in-memory database, used in test mode
func NewMemory() (*DB, error) {
	return Open(Options{Path: memoryPath})
}

// Open opens the database described by opts and applies pending migrations
func Open(opts Options) (*DB, error) {
	if opts.Path != memoryPath {
		dir := filepath.Dir(opts.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if opts.Path == memoryPath {
		// Every connection to :memory: is a separate database
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		conn: conn,
		path: opts.Path,
	}

	if opts.WALMode && opts.Path != memoryPath {
		if err := db.configureWAL(); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to configure WAL mode: %w", err)
		}
	} else if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to configure busy timeout: %w", err)
	}

	if err := db.runMigrations(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Conn returns the underlying database connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Vacuum rebuilds the database file to reclaim free pages
func (db *DB) Vacuum(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}

// configureWAL enables Write-Ahead Logging mode and configures checkpoint settings
func (db *DB) configureWAL() error {
	var journalMode string
	err := db.conn.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode)
	if err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("failed to enable WAL mode: got %s instead", journalMode)
	}

	// 5000 pages between automatic checkpoints (default 1000)
	_, err = db.conn.Exec("PRAGMA wal_autocheckpoint=5000")
	if err != nil {
		return fmt.Errorf("failed to configure WAL autocheckpoint: %w", err)
	}

	// NORMAL is safe in WAL mode
	_, err = db.conn.Exec("PRAGMA synchronous=NORMAL")
	if err != nil {
		return fmt.Errorf("failed to configure synchronous mode: %w", err)
	}

	_, err = db.conn.Exec("PRAGMA busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("failed to configure busy timeout: %w", err)
	}

	return nil
}
