package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// AuditRecord is one persisted moderation action
type AuditRecord struct {
	ID           string
	Timestamp    time.Time
	Action       string
	GuildID      string
	ChannelID    string
	ModeratorID  string
	ModeratorTag string
	TargetID     string
	TargetTag    string
	Reason       string
	Details      string // JSON object, empty if none
}

// AuditFilter narrows an audit query to one guild and optionally one moderator or target
type AuditFilter struct {
	GuildID     string
	ModeratorID string
	TargetID    string
	Limit       int
}

// InsertAuditEntries appends records in one transaction, preserving slice order
func (db *DB) InsertAuditEntries(ctx context.Context, records []AuditRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO audit_log (id, timestamp, action, guild_id, channel_id, moderator_id, moderator_tag, target_id, target_tag, reason, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare audit insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, r := range records {
		var details *string
		if r.Details != "" {
			details = &r.Details
		}
		_, err := stmt.ExecContext(ctx,
			r.ID, r.Timestamp.UnixMilli(), r.Action, r.GuildID, r.ChannelID,
			r.ModeratorID, r.ModeratorTag, r.TargetID, r.TargetTag, r.Reason, details,
		)
		if err != nil {
			return fmt.Errorf("failed to insert audit entry %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit entries: %w", err)
	}
	return nil
}

// TrimAuditLog keeps only the newest keep rows and returns how many were deleted
func (db *DB) TrimAuditLog(ctx context.Context, keep int) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `
		DELETE FROM audit_log
		WHERE seq NOT IN (SELECT seq FROM audit_log ORDER BY seq DESC LIMIT ?)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to trim audit log: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// QueryAudit returns matching records, newest first
func (db *DB) QueryAudit(ctx context.Context, f AuditFilter) ([]AuditRecord, error) {
	where := []string{"guild_id = ?"}
	args := []interface{}{f.GuildID}
	if f.ModeratorID != "" {
		where = append(where, "moderator_id = ?")
		args = append(args, f.ModeratorID)
	}
	if f.TargetID != "" {
		where = append(where, "target_id = ?")
		args = append(args, f.TargetID)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	query := `
		SELECT id, timestamp, action, guild_id, channel_id, moderator_id, moderator_tag, target_id, target_tag, reason, details
		FROM audit_log
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY seq DESC
		LIMIT ?
	`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []AuditRecord
	for rows.Next() {
		var r AuditRecord
		var ts int64
		var details sql.NullString
		if err := rows.Scan(
			&r.ID, &ts, &r.Action, &r.GuildID, &r.ChannelID,
			&r.ModeratorID, &r.ModeratorTag, &r.TargetID, &r.TargetTag, &r.Reason, &details,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		r.Timestamp = time.UnixMilli(ts)
		if details.Valid {
			r.Details = details.String
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log: %w", err)
	}
	return records, nil
}

// CountAudit returns the number of stored audit records
func (db *DB) CountAudit(ctx context.Context) (int64, error) {
	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit log: %w", err)
	}
	return n, nil
}
