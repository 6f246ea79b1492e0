// Package reminder schedules and delivers user reminders.
package reminder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/guildbot/internal/clock"
	"github.com/yourusername/guildbot/internal/database"
	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/output"
	"github.com/yourusername/guildbot/internal/validation"
)

const (
	MinMinutes = 1
	MaxMinutes = 1440

	deliverTimeout = 30 * time.Second
)

// Reminder is a message due to a user at a given time
type Reminder struct {
	ID        string
	GuildID   string
	ChannelID string
	UserID    string
	Text      string
	CreatedAt time.Time
	DueAt     time.Time
}

// Store persists reminders so they survive restarts
type Store interface {
	InsertReminder(ctx context.Context, r *database.Reminder) error
	PendingReminders(ctx context.Context) ([]*database.Reminder, error)
	MarkReminderDelivered(ctx context.Context, id string) error
}

// Deliverer sends a due reminder to its channel
type Deliverer interface {
	DeliverReminder(ctx context.Context, r Reminder) error
}

// Timer is the part of *time.Timer the scheduler uses
type Timer interface {
	Stop() bool
}

// Scheduler arms one timer per pending reminder
type Scheduler struct {
	store     Store
	deliverer Deliverer
	clock     clock.Clock
	logger    output.Logger

	// AfterFunc arms a timer; defaults to time.AfterFunc
	AfterFunc func(d time.Duration, f func()) Timer

	mu      sync.Mutex
	timers  map[string]Timer
	stopped bool
	wg      sync.WaitGroup
}

// NewScheduler creates a reminder scheduler
func NewScheduler(store Store, deliverer Deliverer, clk clock.Clock, logger output.Logger) *Scheduler {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &Scheduler{
		store:     store,
		deliverer: deliverer,
		clock:     clk,
		logger:    logger,
		AfterFunc: func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) },
		timers:    make(map[string]Timer),
	}
}

// Add validates, persists and arms a reminder due in minutes
func (s *Scheduler) Add(ctx context.Context, guildID, channelID, userID, text string, minutes int) (Reminder, error) {
	if minutes < MinMinutes || minutes > MaxMinutes {
		return Reminder{}, boterrors.NewValidationError(
			fmt.Sprintf("Minutes must be between %d and %d.", MinMinutes, MaxMinutes))
	}
	text = validation.Sanitize(text)
	if text == "" {
		return Reminder{}, boterrors.NewValidationError("Reminder text cannot be empty.")
	}

	now := s.clock.Now()
	r := Reminder{
		ID:        uuid.New().String(),
		GuildID:   guildID,
		ChannelID: channelID,
		UserID:    userID,
		Text:      text,
		CreatedAt: now,
		DueAt:     now.Add(time.Duration(minutes) * time.Minute),
	}
	if err := s.store.InsertReminder(ctx, toRecord(r)); err != nil {
		return Reminder{}, boterrors.NewDatabaseError("insert reminder", err)
	}

	s.arm(r)
	s.logger.Info("Reminder %s set for %s in %d min", r.ID, userID, minutes)
	return r, nil
}

// Restore re-arms every undelivered reminder; overdue ones fire at once
func (s *Scheduler) Restore(ctx context.Context) (int, error) {
	pending, err := s.store.PendingReminders(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading pending reminders: %w", err)
	}
	for _, rec := range pending {
		s.arm(fromRecord(rec))
	}
	if len(pending) > 0 {
		s.logger.Info("Restored %d pending reminder(s)", len(pending))
	}
	return len(pending), nil
}

// Pending returns the number of armed reminders
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every timer and waits for in-flight deliveries
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) arm(r Reminder) {
	delay := r.DueAt.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if _, ok := s.timers[r.ID]; ok {
		return
	}
	s.timers[r.ID] = s.AfterFunc(delay, func() { s.fire(r) })
}

func (s *Scheduler) fire(r Reminder) {
	s.mu.Lock()
	if _, ok := s.timers[r.ID]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.timers, r.ID)
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	if err := s.deliverer.DeliverReminder(ctx, r); err != nil {
		// Left undelivered so the next Restore retries it
		s.logger.Warning("Reminder: failed to deliver %s to %s: %v", r.ID, r.ChannelID, err)
		return
	}
	if err := s.store.MarkReminderDelivered(ctx, r.ID); err != nil {
		s.logger.Warning("Reminder: failed to mark %s delivered: %v", r.ID, err)
		return
	}
	s.logger.Info("Reminder: delivered %s to %s in %s", r.ID, r.UserID, r.ChannelID)
}

// FormatReminderDelivery formats a due reminder for the channel
func FormatReminderDelivery(userID, text string) string {
	return fmt.Sprintf("🔔 <@%s> Reminder: %s", userID, strings.TrimSpace(text))
}

func toRecord(r Reminder) *database.Reminder {
	return &database.Reminder{
		ID:        r.ID,
		GuildID:   r.GuildID,
		ChannelID: r.ChannelID,
		UserID:    r.UserID,
		Text:      r.Text,
		CreatedAt: r.CreatedAt,
		DueAt:     r.DueAt,
	}
}

func fromRecord(rec *database.Reminder) Reminder {
	return Reminder{
		ID:        rec.ID,
		GuildID:   rec.GuildID,
		ChannelID: rec.ChannelID,
		UserID:    rec.UserID,
		Text:      rec.Text,
		CreatedAt: rec.CreatedAt,
		DueAt:     rec.DueAt,
	}
}
