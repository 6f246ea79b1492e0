package database

import (
	"context"
	"fmt"
	"time"
)

// TempBan is a ban that is lifted automatically at ExpiresAt
type TempBan struct {
	GuildID     string
	UserID      string
	UserTag     string
	ModeratorID string
	Reason      string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// UpsertTempBan stores a temporary ban, replacing any earlier one for the same member
func (db *DB) UpsertTempBan(ctx context.Context, b *TempBan) error {
	query := `
		INSERT INTO temp_bans (guild_id, user_id, user_tag, moderator_id, reason, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			user_tag = excluded.user_tag,
			moderator_id = excluded.moderator_id,
			reason = excluded.reason,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`
	_, err := db.conn.ExecContext(ctx, query,
		b.GuildID, b.UserID, b.UserTag, b.ModeratorID, b.Reason,
		b.CreatedAt.UnixMilli(), b.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save temp ban: %w", err)
	}
	return nil
}

// ExpiredTempBans returns temporary bans that expired at or before now, oldest first
func (db *DB) ExpiredTempBans(ctx context.Context, now time.Time) ([]*TempBan, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT guild_id, user_id, user_tag, moderator_id, reason, created_at, expires_at
		FROM temp_bans
		WHERE expires_at <= ?
		ORDER BY expires_at ASC
	`, now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query temp bans: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var bans []*TempBan
	for rows.Next() {
		b := &TempBan{}
		var createdAt, expiresAt int64
		if err := rows.Scan(&b.GuildID, &b.UserID, &b.UserTag, &b.ModeratorID, &b.Reason, &createdAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan temp ban: %w", err)
		}
		b.CreatedAt = time.UnixMilli(createdAt)
		b.ExpiresAt = time.UnixMilli(expiresAt)
		bans = append(bans, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating temp bans: %w", err)
	}
	return bans, nil
}

// DeleteTempBan forgets a temporary ban, after it was lifted by hand or by expiry
func (db *DB) DeleteTempBan(ctx context.Context, guildID, userID string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM temp_bans WHERE guild_id = ? AND user_id = ?`, guildID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete temp ban: %w", err)
	}
	return nil
}
