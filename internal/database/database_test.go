package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MigratesSchema(t *testing.T) {
	db, cleanup := NewTestDB(t)
	defer cleanup()

	version, err := db.Version()
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	for _, table := range []string{"guild_settings", "audit_log", "metrics", "reminders", "temp_bans"} {
		var name string
		err := db.Conn().QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		assert.NoError(t, err, "table %s should exist", table)
	}
}

func TestRollback(t *testing.T) {
	db, cleanup := NewTestDB(t)
	defer cleanup()

	require.NoError(t, db.Rollback())
	version, err := db.Version()
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	var n int
	err = db.Conn().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='temp_bans'`).Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, db.Rollback())
	version, err = db.Version()
	require.NoError(t, err)
	assert.Zero(t, version)

	err = db.Conn().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='guild_settings'`).Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Error(t, db.Rollback(), "second rollback has nothing to undo")
}

func TestNewMemory(t *testing.T) {
	db, err := NewMemory()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SaveGuildSettings(ctx, &GuildSettingsRecord{GuildID: "1", Data: []byte(`{}`), UpdatedAt: time.Now()}))
	ids, err := db.ListGuildIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids)
}

func TestGuildSettingsCRUD(t *testing.T) {
	db, cleanup := NewTestDB(t)
	defer cleanup()
	ctx := context.Background()

	rec, err := db.LoadGuildSettings(ctx, "g1")
	require.NoError(t, err)
	assert.Nil(t, rec)

	at := time.UnixMilli(1_700_000_000_000)
	require.NoError(t, db.SaveGuildSettings(ctx, &GuildSettingsRecord{GuildID: "g1", Data: []byte(`{"a":1}`), UpdatedAt: at, UpdatedBy: "u1"}))
	require.NoError(t, db.SaveGuildSettings(ctx, &GuildSettingsRecord{GuildID: "g1", Data: []byte(`{"a":2}`), UpdatedAt: at.Add(time.Second), UpdatedBy: "u2"}))
	require.NoError(t, db.SaveGuildSettings(ctx, &GuildSettingsRecord{GuildID: "g0", Data: []byte(`{}`), UpdatedAt: at}))

	rec, err = db.LoadGuildSettings(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.JSONEq(t, `{"a":2}`, string(rec.Data))
	assert.Equal(t, "u2", rec.UpdatedBy)
	assert.True(t, rec.UpdatedAt.Equal(at.Add(time.Second)))

	ids, err := db.ListGuildIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"g0", "g1"}, ids)

	require.NoError(t, db.DeleteGuildSettings(ctx, "g1"))
	rec, err = db.LoadGuildSettings(ctx, "g1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestAuditInsertQueryTrim(t *testing.T) {
	db, cleanup := NewTestDB(t)
	defer cleanup()
	ctx := context.Background()

	base := time.UnixMilli(1_700_000_000_000)
	var records []AuditRecord
	for i := 0; i < 6; i++ {
		records = append(records, AuditRecord{
			ID:          fmt.Sprintf("e%d", i),
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			Action:      "warn",
			GuildID:     "g",
			ModeratorID: fmt.Sprintf("m%d", i%2),
			TargetID:    "t",
			Reason:      "spam",
		})
	}
	records[5].Details = `{"duration":"10m"}`
	require.NoError(t, db.InsertAuditEntries(ctx, records))

	recent, err := db.QueryAudit(ctx, AuditFilter{GuildID: "g", Limit: 3})
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "e5", recent[0].ID)
	assert.Equal(t, `{"duration":"10m"}`, recent[0].Details)

	byMod, err := db.QueryAudit(ctx, AuditFilter{GuildID: "g", ModeratorID: "m1"})
	require.NoError(t, err)
	assert.Len(t, byMod, 3)

	other, err := db.QueryAudit(ctx, AuditFilter{GuildID: "other"})
	require.NoError(t, err)
	assert.Empty(t, other)

	deleted, err := db.TrimAuditLog(ctx, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	count, err := db.CountAudit(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, count)

	remaining, err := db.QueryAudit(ctx, AuditFilter{GuildID: "g"})
	require.NoError(t, err)
	assert.Equal(t, "e2", remaining[len(remaining)-1].ID)
}

func TestReminders(t *testing.T) {
	db, cleanup := NewTestDB(t)
	defer cleanup()
	ctx := context.Background()

	now := time.UnixMilli(1_700_000_000_000)
	require.NoError(t, db.InsertReminder(ctx, &Reminder{ID: "r1", GuildID: "g", ChannelID: "c", UserID: "u", Text: "tea", CreatedAt: now, DueAt: now.Add(time.Minute)}))
	require.NoError(t, db.InsertReminder(ctx, &Reminder{ID: "r2", GuildID: "g", ChannelID: "c", UserID: "u", Text: "call", CreatedAt: now, DueAt: now.Add(time.Hour)}))

	due, err := db.DueReminders(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "tea", due[0].Text)

	require.NoError(t, db.MarkReminderDelivered(ctx, "r1"))
	pending, err := db.PendingReminders(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "r2", pending[0].ID)
	assert.True(t, pending[0].DueAt.Equal(now.Add(time.Hour)))

	n, err := db.DeleteDeliveredReminders(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestTempBans(t *testing.T) {
	db, cleanup := NewTestDB(t)
	defer cleanup()
	ctx := context.Background()

	now := time.UnixMilli(1_700_000_000_000)
	require.NoError(t, db.UpsertTempBan(ctx, &TempBan{GuildID: "g", UserID: "u1", UserTag: "one", Reason: "spam", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, db.UpsertTempBan(ctx, &TempBan{GuildID: "g", UserID: "u2", UserTag: "two", CreatedAt: now, ExpiresAt: now.Add(30 * time.Minute)}))

	// banning again replaces the expiry
	require.NoError(t, db.UpsertTempBan(ctx, &TempBan{GuildID: "g", UserID: "u1", UserTag: "one", Reason: "again", CreatedAt: now, ExpiresAt: now.Add(10 * time.Minute)}))

	expired, err := db.ExpiredTempBans(ctx, now.Add(20*time.Minute))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "u1", expired[0].UserID)
	assert.Equal(t, "again", expired[0].Reason)
	assert.True(t, expired[0].ExpiresAt.Equal(now.Add(10*time.Minute)))

	require.NoError(t, db.DeleteTempBan(ctx, "g", "u1"))
	expired, err = db.ExpiredTempBans(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "u2", expired[0].UserID)
}
