package database

import (
	"path/filepath"
	"testing"
)

// NewTestDB opens a migrated file-backed database under t.TempDir.
// The returned func closes it; tests in other packages use this too.
func NewTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	db, err := Open(Options{Path: filepath.Join(t.TempDir(), "guildbot.db"), WALMode: true})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	return db, func() {
		if err := db.Close(); err != nil {
			t.Errorf("close test database: %v", err)
		}
	}
}
