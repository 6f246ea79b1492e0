// Package audit records moderation actions.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/guildbot/internal/clock"
	"github.com/yourusername/guildbot/internal/database"
	"github.com/yourusername/guildbot/internal/output"
)

const (
	// FlushThreshold is the buffer size that triggers a flush
	FlushThreshold = 10
	// DefaultLimit is used by queries given no positive limit
	DefaultLimit = 50
	// DefaultMaxEntries is how many rows survive a trim
	DefaultMaxEntries = 10000
)

// Entry is one moderation action
type Entry struct {
	ID           string
	Timestamp    time.Time
	Action       string
	ModeratorID  string
	ModeratorTag string
	TargetID     string
	TargetTag    string
	GuildID      string
	ChannelID    string
	Reason       string
	Details      map[string]string
}

// Store persists audit entries
type Store interface {
	InsertAuditEntries(ctx context.Context, records []database.AuditRecord) error
	TrimAuditLog(ctx context.Context, keep int) (int64, error)
	QueryAudit(ctx context.Context, f database.AuditFilter) ([]database.AuditRecord, error)
}

// Logger buffers entries in memory and writes them to the store in batches
type Logger struct {
	mu         sync.Mutex
	store      Store
	clock      clock.Clock
	logger     output.Logger
	buffer     []Entry
	maxEntries int
}

// NewLogger creates an audit logger that keeps at most maxEntries rows
func NewLogger(store Store, maxEntries int, clk clock.Clock, logger output.Logger) *Logger {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &Logger{
		store:      store,
		clock:      clk,
		logger:     logger,
		maxEntries: maxEntries,
	}
}

// Log stamps and buffers e, flushing once the buffer is full
func (l *Logger) Log(e Entry) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.clock.Now()
	}

	l.mu.Lock()
	l.buffer = append(l.buffer, e)
	full := len(l.buffer) >= FlushThreshold
	l.mu.Unlock()

	l.logger.Info("Audit: %s by %s in %s", e.Action, e.ModeratorTag, e.GuildID)

	if full {
		if err := l.Flush(context.Background()); err != nil {
			l.logger.Error("Failed to flush audit log: %v", err)
		}
	}
}

// Flush writes buffered entries and trims the store.
// Entries stay buffered if the write fails.
func (l *Logger) Flush(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.buffer) == 0 {
		return nil
	}

	records := make([]database.AuditRecord, len(l.buffer))
	for i, e := range l.buffer {
		records[i] = toRecord(e)
	}
	if err := l.store.InsertAuditEntries(ctx, records); err != nil {
		return err
	}
	l.buffer = l.buffer[:0]

	trimmed, err := l.store.TrimAuditLog(ctx, l.maxEntries)
	if err != nil {
		return err
	}
	if trimmed > 0 {
		l.logger.Debug("Trimmed %d old audit entries", trimmed)
	}
	return nil
}

// Buffered returns the number of entries not yet written
func (l *Logger) Buffered() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buffer)
}

// Recent returns a guild's newest entries
func (l *Logger) Recent(ctx context.Context, guildID string, limit int) ([]Entry, error) {
	return l.query(ctx, database.AuditFilter{GuildID: guildID, Limit: limit})
}

// ByModerator returns a guild's newest entries by one moderator
func (l *Logger) ByModerator(ctx context.Context, guildID, moderatorID string, limit int) ([]Entry, error) {
	return l.query(ctx, database.AuditFilter{GuildID: guildID, ModeratorID: moderatorID, Limit: limit})
}

// ByTarget returns a guild's newest entries against one user
func (l *Logger) ByTarget(ctx context.Context, guildID, targetID string, limit int) ([]Entry, error) {
	return l.query(ctx, database.AuditFilter{GuildID: guildID, TargetID: targetID, Limit: limit})
}

// query merges buffered entries, which are always newer, ahead of stored ones
func (l *Logger) query(ctx context.Context, f database.AuditFilter) ([]Entry, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}

	l.mu.Lock()
	var out []Entry
	for i := len(l.buffer) - 1; i >= 0 && len(out) < f.Limit; i-- {
		if matches(l.buffer[i], f) {
			out = append(out, l.buffer[i])
		}
	}
	l.mu.Unlock()

	if len(out) >= f.Limit {
		return out, nil
	}

	f.Limit -= len(out)
	records, err := l.store.QueryAudit(ctx, f)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		out = append(out, fromRecord(r))
	}
	return out, nil
}

func matches(e Entry, f database.AuditFilter) bool {
	if f.GuildID != "" && e.GuildID != f.GuildID {
		return false
	}
	if f.ModeratorID != "" && e.ModeratorID != f.ModeratorID {
		return false
	}
	if f.TargetID != "" && e.TargetID != f.TargetID {
		return false
	}
	return true
}

func toRecord(e Entry) database.AuditRecord {
	var details string
	if len(e.Details) > 0 {
		if data, err := json.Marshal(e.Details); err == nil {
			details = string(data)
		}
	}
	return database.AuditRecord{
		ID:           e.ID,
		Timestamp:    e.Timestamp,
		Action:       e.Action,
		GuildID:      e.GuildID,
		ChannelID:    e.ChannelID,
		ModeratorID:  e.ModeratorID,
		ModeratorTag: e.ModeratorTag,
		TargetID:     e.TargetID,
		TargetTag:    e.TargetTag,
		Reason:       e.Reason,
		Details:      details,
	}
}

func fromRecord(r database.AuditRecord) Entry {
	e := Entry{
		ID:           r.ID,
		Timestamp:    r.Timestamp,
		Action:       r.Action,
		GuildID:      r.GuildID,
		ChannelID:    r.ChannelID,
		ModeratorID:  r.ModeratorID,
		ModeratorTag: r.ModeratorTag,
		TargetID:     r.TargetID,
		TargetTag:    r.TargetTag,
		Reason:       r.Reason,
	}
	if r.Details != "" {
		_ = json.Unmarshal([]byte(r.Details), &e.Details)
	}
	return e
}
