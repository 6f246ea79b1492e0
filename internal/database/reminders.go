package database

import (
	"context"
	"fmt"
	"time"
)

// Reminder is a scheduled message to a user
type Reminder struct {
	ID        string
	GuildID   string
	ChannelID string
	UserID    string
	Text      string
	CreatedAt time.Time
	DueAt     time.Time
	Delivered bool
}

// InsertReminder stores a new reminder
func (db *DB) InsertReminder(ctx context.Context, r *Reminder) error {
	query := `
		INSERT INTO reminders (id, guild_id, channel_id, user_id, text, created_at, due_at, delivered)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.conn.ExecContext(ctx, query,
		r.ID, r.GuildID, r.ChannelID, r.UserID, r.Text,
		r.CreatedAt.UnixMilli(), r.DueAt.UnixMilli(), r.Delivered,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reminder: %w", err)
	}
	return nil
}

// DueReminders returns undelivered reminders due at or before now
func (db *DB) DueReminders(ctx context.Context, now time.Time) ([]*Reminder, error) {
	return db.queryReminders(ctx, `
		SELECT id, guild_id, channel_id, user_id, text, created_at, due_at, delivered
		FROM reminders
		WHERE delivered = 0 AND due_at <= ?
		ORDER BY due_at ASC
	`, now.UnixMilli())
}

// PendingReminders returns every undelivered reminder
func (db *DB) PendingReminders(ctx context.Context) ([]*Reminder, error) {
	return db.queryReminders(ctx, `
		SELECT id, guild_id, channel_id, user_id, text, created_at, due_at, delivered
		FROM reminders
		WHERE delivered = 0
		ORDER BY due_at ASC
	`)
}

// MarkReminderDelivered flags a reminder as sent
func (db *DB) MarkReminderDelivered(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, `UPDATE reminders SET delivered = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark reminder delivered: %w", err)
	}
	return nil
}

// DeleteDeliveredReminders removes delivered reminders created before cutoff
func (db *DB) DeleteDeliveredReminders(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM reminders WHERE delivered = 1 AND created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete delivered reminders: %w", err)
	}
	return result.RowsAffected()
}

func (db *DB) queryReminders(ctx context.Context, query string, args ...interface{}) ([]*Reminder, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var reminders []*Reminder
	for rows.Next() {
		r := &Reminder{}
		var createdAt, dueAt int64
		if err := rows.Scan(&r.ID, &r.GuildID, &r.ChannelID, &r.UserID, &r.Text, &createdAt, &dueAt, &r.Delivered); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		r.CreatedAt = time.UnixMilli(createdAt)
		r.DueAt = time.UnixMilli(dueAt)
		reminders = append(reminders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminders: %w", err)
	}
	return reminders, nil
}
