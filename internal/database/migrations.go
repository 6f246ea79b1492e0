package database

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Migration is one numbered schema change with its undo script
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// AppliedMigration is a row of schema_migrations
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
}

const migrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		dirty      BOOLEAN NOT NULL DEFAULT 0,
		applied_at INTEGER NOT NULL DEFAULT 0
	)`

// parseMigrations reads NNN_name.sql and NNN_name.down.sql pairs from dir.
// A version without an up script is ignored; duplicate up scripts are an error.
func parseMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		file := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(file, ".sql") {
			continue
		}
		prefix, rest, ok := strings.Cut(file, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			continue
		}

		content, err := fs.ReadFile(fsys, path.Join(dir, file))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version}
			byVersion[version] = m
		}
		if name, isDown := strings.CutSuffix(rest, ".down.sql"); isDown {
			m.DownSQL = string(content)
			if m.Name == "" {
				m.Name = name
			}
			continue
		}
		if m.UpSQL != "" {
			return nil, fmt.Errorf("duplicate migration version %d", version)
		}
		m.Name = strings.TrimSuffix(rest, ".sql")
		m.UpSQL = string(content)
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL != "" {
			migrations = append(migrations, *m)
		}
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// runMigrations applies every embedded migration newer than the current version
func (db *DB) runMigrations() error {
	migrations, err := parseMigrations(schemaFS, "schema")
	if err != nil {
		return err
	}
	return db.migrate(migrations)
}

func (db *DB) migrate(migrations []Migration) error {
	if _, err := db.conn.Exec(migrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var dirty int
	if err := db.conn.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations WHERE dirty = 1`).Scan(&dirty); err != nil {
		return fmt.Errorf("failed to check for dirty migrations: %w", err)
	}
	if dirty != 0 {
		return fmt.Errorf("migration %d was interrupted; repair the database before starting", dirty)
	}

	current, err := db.getCurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := db.apply(m); err != nil {
			return fmt.Errorf("migration %03d_%s: %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func (db *DB) getCurrentVersion() (int, error) {
	var version int
	err := db.conn.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations WHERE dirty = 0`).Scan(&version)
	return version, err
}

// apply runs one migration in a transaction, marking it dirty until the script succeeds
func (db *DB) apply(m Migration) error {
	return db.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, name, dirty) VALUES (?, ?, 1)`, m.Version, m.Name); err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		if _, err := tx.Exec(m.UpSQL); err != nil {
			return fmt.Errorf("failed to execute up script: %w", err)
		}
		_, err := tx.Exec(`UPDATE schema_migrations SET dirty = 0, applied_at = ? WHERE version = ?`, time.Now().Unix(), m.Version)
		return err
	})
}

func (db *DB) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Version returns the highest applied migration version
func (db *DB) Version() (int, error) {
	return db.getCurrentVersion()
}

// Applied lists the applied migrations, oldest first
func (db *DB) Applied() ([]AppliedMigration, error) {
	rows, err := db.conn.Query(`SELECT version, name, applied_at FROM schema_migrations WHERE dirty = 0 ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []AppliedMigration
	for rows.Next() {
		var (
			a  AppliedMigration
			ts int64
		)
		if err := rows.Scan(&a.Version, &a.Name, &ts); err != nil {
			return nil, err
		}
		a.AppliedAt = time.Unix(ts, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// Rollback undoes the most recently applied migration
func (db *DB) Rollback() error {
	migrations, err := parseMigrations(schemaFS, "schema")
	if err != nil {
		return err
	}
	return db.rollback(migrations)
}

func (db *DB) rollback(migrations []Migration) error {
	current, err := db.getCurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if current == 0 {
		return fmt.Errorf("no migrations to rollback")
	}

	idx := sort.Search(len(migrations), func(i int) bool { return migrations[i].Version >= current })
	if idx == len(migrations) || migrations[idx].Version != current {
		return fmt.Errorf("migration %d not found", current)
	}
	m := migrations[idx]
	if m.DownSQL == "" {
		return fmt.Errorf("migration %d has no down script", current)
	}

	return db.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(m.DownSQL); err != nil {
			return fmt.Errorf("failed to execute down script: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM schema_migrations WHERE version = ?`, current); err != nil {
			return fmt.Errorf("failed to remove migration record: %w", err)
		}
		return nil
	})
}
