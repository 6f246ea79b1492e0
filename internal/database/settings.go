package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GuildSettingsRecord is the persisted form of one guild's settings
type GuildSettingsRecord struct {
	GuildID   string
	Data      []byte // JSON document
	UpdatedAt time.Time
	UpdatedBy string
}

// LoadGuildSettings returns the stored settings for a guild, or nil if none exist
func (db *DB) LoadGuildSettings(ctx context.Context, guildID string) (*GuildSettingsRecord, error) {
	query := `SELECT guild_id, data, updated_at, updated_by FROM guild_settings WHERE guild_id = ?`

	var rec GuildSettingsRecord
	var data string
	var updatedAt int64
	err := db.conn.QueryRowContext(ctx, query, guildID).Scan(&rec.GuildID, &data, &updatedAt, &rec.UpdatedBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load guild settings: %w", err)
	}

	rec.Data = []byte(data)
	rec.UpdatedAt = time.UnixMilli(updatedAt)
	return &rec, nil
}

// SaveGuildSettings inserts or replaces a guild's settings
func (db *DB) SaveGuildSettings(ctx context.Context, rec *GuildSettingsRecord) error {
	query := `
		INSERT INTO guild_settings (guild_id, data, updated_at, updated_by)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at,
			updated_by = excluded.updated_by
	`
	_, err := db.conn.ExecContext(ctx, query, rec.GuildID, string(rec.Data), rec.UpdatedAt.UnixMilli(), rec.UpdatedBy)
	if err != nil {
		return fmt.Errorf("failed to save guild settings: %w", err)
	}
	return nil
}

// DeleteGuildSettings removes a guild's settings
func (db *DB) DeleteGuildSettings(ctx context.Context, guildID string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM guild_settings WHERE guild_id = ?`, guildID)
	if err != nil {
		return fmt.Errorf("failed to delete guild settings: %w", err)
	}
	return nil
}

// ListGuildIDs returns every guild with stored settings
func (db *DB) ListGuildIDs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT guild_id FROM guild_settings ORDER BY guild_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list guild ids: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan guild id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating guild ids: %w", err)
	}
	return ids, nil
}
