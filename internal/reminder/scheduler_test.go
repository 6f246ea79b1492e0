package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/guildbot/internal/clock"
	"github.com/yourusername/guildbot/internal/database"
	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/output"
)

var now = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

type recordingDeliverer struct {
	mu        sync.Mutex
	delivered []Reminder
	err       error
}

func (d *recordingDeliverer) DeliverReminder(_ context.Context, r Reminder) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.delivered = append(d.delivered, r)
	return nil
}

func newScheduler(t *testing.T) (*Scheduler, *database.DB, *recordingDeliverer, *[]*fakeTimer) {
	t.Helper()
	db, cleanup := database.NewTestDB(t)
	t.Cleanup(cleanup)

	d := &recordingDeliverer{}
	s := NewScheduler(db, d, clock.NewFake(now), output.NopLogger{})
	timers := &[]*fakeTimer{}
	s.AfterFunc = func(delay time.Duration, f func()) Timer {
		ft := &fakeTimer{d: delay, f: f}
		*timers = append(*timers, ft)
		return ft
	}
	return s, db, d, timers
}

func TestAdd_ArmsAndDelivers(t *testing.T) {
	s, db, d, timers := newScheduler(t)
	ctx := context.Background()

	r, err := s.Add(ctx, "g1", "c1", "u1", "  stretch <now>  ", 30)
	require.NoError(t, err)
	assert.Equal(t, "stretch now", r.Text)
	assert.Equal(t, now.Add(30*time.Minute), r.DueAt)

	require.Len(t, *timers, 1)
	assert.Equal(t, 30*time.Minute, (*timers)[0].d)
	assert.Equal(t, 1, s.Pending())

	(*timers)[0].f()

	require.Len(t, d.delivered, 1)
	assert.Equal(t, "u1", d.delivered[0].UserID)
	assert.Equal(t, 0, s.Pending())

	pending, err := db.PendingReminders(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending, "delivered reminder is marked")
}

func TestAdd_Validation(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		minutes int
	}{
		{"zero minutes", "x", 0},
		{"too many minutes", "x", 1441},
		{"empty text", " <> ", 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _, timers := newScheduler(t)
			_, err := s.Add(context.Background(), "g", "c", "u", tt.text, tt.minutes)
			if boterrors.TypeOf(err) != boterrors.ErrorTypeValidation {
				t.Errorf("Add() error = %v, want Validation", err)
			}
			assert.Empty(t, *timers)
		})
	}
}

func TestRestore_OverdueFiresImmediately(t *testing.T) {
	s, db, _, timers := newScheduler(t)
	ctx := context.Background()

	require.NoError(t, db.InsertReminder(ctx, &database.Reminder{
		ID: "old", GuildID: "g", ChannelID: "c", UserID: "u", Text: "late",
		CreatedAt: now.Add(-2 * time.Hour), DueAt: now.Add(-time.Hour),
	}))
	require.NoError(t, db.InsertReminder(ctx, &database.Reminder{
		ID: "new", GuildID: "g", ChannelID: "c", UserID: "u", Text: "soon",
		CreatedAt: now, DueAt: now.Add(5 * time.Minute),
	}))

	n, err := s.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	delays := map[time.Duration]bool{}
	for _, ft := range *timers {
		delays[ft.d] = true
	}
	assert.True(t, delays[0])
	assert.True(t, delays[5*time.Minute])

	// Restoring again does not double-arm
	_, err = s.Restore(ctx)
	require.NoError(t, err)
	assert.Len(t, *timers, 2)
}

func TestDeliveryFailureStaysPending(t *testing.T) {
	s, db, d, timers := newScheduler(t)
	ctx := context.Background()
	d.err = errors.New("missing access")

	_, err := s.Add(ctx, "g", "c", "u", "text", 1)
	require.NoError(t, err)
	(*timers)[0].f()

	pending, err := db.PendingReminders(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestStop_CancelsTimers(t *testing.T) {
	s, _, d, timers := newScheduler(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "g", "c", "u", "one", 5)
	require.NoError(t, err)
	_, err = s.Add(ctx, "g", "c", "u", "two", 10)
	require.NoError(t, err)

	s.Stop()
	for _, ft := range *timers {
		assert.True(t, ft.stopped)
	}
	assert.Zero(t, s.Pending())

	// A timer that raced Stop delivers nothing
	(*timers)[0].f()
	assert.Empty(t, d.delivered)

	_, err = s.Add(ctx, "g", "c", "u", "three", 5)
	require.NoError(t, err)
	assert.Len(t, *timers, 2, "stopped scheduler does not arm")
}

func TestFormatReminderDelivery(t *testing.T) {
	got := FormatReminderDelivery("42", " drink water ")
	want := "🔔 <@42> Reminder: drink water"
	if got != want {
		t.Errorf("FormatReminderDelivery() = %q, want %q", got, want)
	}
}
