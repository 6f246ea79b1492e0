// Package toxic posts periodic sarcastic AI jokes about recent chatters.
package toxic

import (
	"context"
	"fmt"
	"math/rand"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yourusername/guildbot/internal/ai"
	"github.com/yourusername/guildbot/internal/clock"
	"github.com/yourusername/guildbot/internal/output"
	"github.com/yourusername/guildbot/internal/settings"
)

const (
	fetchLimit      = 100
	maxTranscript   = 2000
	tickTemperature = 0.9
	tickTimeout     = 2 * time.Minute

	// PostColor is the embed color of toxic posts
	PostColor = 0xe74c3c
)

// Message is a channel message as seen by toxic mode
type Message struct {
	AuthorID   string
	AuthorName string
	AvatarURL  string
	Bot        bool
	Content    string
}

// Post is one toxic message to publish
type Post struct {
	Title        string
	Text         string
	Footer       string
	ThumbnailURL string
	TargetID     string
	Color        int
}

// SettingsSource supplies toxic mode settings
type SettingsSource interface {
	ToxicMode(guildID string) settings.ToxicMode
}

// ChannelReader fetches recent channel messages, newest first
type ChannelReader interface {
	RecentMessages(ctx context.Context, channelID string, limit int) ([]Message, error)
}

// Poster publishes a toxic post
type Poster interface {
	PostToxic(ctx context.Context, channelID string, p Post) error
}

// Observer is told about posts and timer counts
type Observer interface {
	ToxicPosted()
	SetActiveToxicTimers(n int)
}

type configurable interface {
	Configured() bool
}

type dailyCounter struct {
	date  string
	count int
}

type guildTimer struct {
	stop chan struct{}
	done chan struct{}
}

// Manager runs one ticker per guild with toxic mode enabled
type Manager struct {
	settings SettingsSource
	ai       ai.Completer
	reader   ChannelReader
	poster   Poster
	clock    clock.Clock
	logger   output.Logger

	// Observer is optional
	Observer Observer
	// Intn picks a random index; defaults to math/rand
	Intn func(n int) int

	mu       sync.Mutex
	timers   map[string]*guildTimer
	counters map[string]*dailyCounter
	running  atomic.Int32
}

// NewManager creates a toxic mode manager. completer may be nil.
func NewManager(src SettingsSource, completer ai.Completer, reader ChannelReader, poster Poster, clk clock.Clock, logger output.Logger) *Manager {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &Manager{
		settings: src,
		ai:       completer,
		reader:   reader,
		poster:   poster,
		clock:    clk,
		logger:   logger,
		Intn:     rand.Intn,
		timers:   make(map[string]*guildTimer),
		counters: make(map[string]*dailyCounter),
	}
}

// RestoreTimers starts timers for every guild with toxic mode enabled and a channel set
func (m *Manager) RestoreTimers(guildIDs []string) {
	for _, id := range guildIDs {
		tm := m.settings.ToxicMode(id)
		if tm.Enabled && tm.ChannelID != "" {
			m.StartTimer(id)
		}
	}
	m.logger.Info("Restored toxic mode timers for %d guild(s)", m.ActiveTimers())
}

// StartTimer (re)starts a guild's ticker at its configured frequency
func (m *Manager) StartTimer(guildID string) {
	tm := m.settings.ToxicMode(guildID)
	interval := tm.Interval()
	if interval <= 0 {
		interval = settings.Defaults(guildID).ToxicMode.Interval()
	}

	t := &guildTimer{stop: make(chan struct{}), done: make(chan struct{})}
	m.mu.Lock()
	old := m.timers[guildID]
	m.timers[guildID] = t
	n := len(m.timers)
	m.running.Add(1)
	go m.run(guildID, interval, t)
	m.mu.Unlock()

	// The replaced timer is no longer reachable through the map, so only this call stops it
	if old != nil {
		close(old.stop)
		<-old.done
	}

	m.observeTimers(n)
	m.logger.Info("Toxic mode timer started for guild %s (every %dmin)", guildID, tm.FrequencyMinutes)
}

// StopTimer stops a guild's ticker and waits for an in-flight tick to finish
func (m *Manager) StopTimer(guildID string) {
	m.stopTimer(guildID, nil)
}

// stopTimer stops the guild's timer, or only stops it if it is still want
func (m *Manager) stopTimer(guildID string, want *guildTimer) {
	m.mu.Lock()
	t, ok := m.timers[guildID]
	if ok && want != nil && t != want {
		ok = false
	}
	if ok {
		delete(m.timers, guildID)
	}
	n := len(m.timers)
	m.mu.Unlock()

	if !ok {
		return
	}
	close(t.stop)
	<-t.done

	m.observeTimers(n)
	m.logger.Info("Toxic mode timer stopped for guild %s", guildID)
}

// RestartTimer restarts a guild's ticker, picking up a new frequency
func (m *Manager) RestartTimer(guildID string) {
	m.StartTimer(guildID)
}

// Apply starts, restarts or stops a guild's timer to match its current settings
func (m *Manager) Apply(guildID string) {
	tm := m.settings.ToxicMode(guildID)
	if tm.Enabled && tm.ChannelID != "" {
		m.RestartTimer(guildID)
		return
	}
	m.StopTimer(guildID)
}

// Stop stops every timer
func (m *Manager) Stop() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.timers))
	for id := range m.timers {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.StopTimer(id)
	}
}

// ActiveTimers returns the number of running timers
func (m *Manager) ActiveTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// IsRunning reports whether a guild's timer is running
func (m *Manager) IsRunning(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.timers[guildID]
	return ok
}

// DailyCount returns how many posts a guild received today
func (m *Manager) DailyCount(guildID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[guildID]
	if !ok || c.date != m.today() {
		return 0
	}
	return c.count
}

func (m *Manager) increment(guildID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	today := m.today()
	c, ok := m.counters[guildID]
	if !ok || c.date != today {
		c = &dailyCounter{date: today}
		m.counters[guildID] = c
	}
	c.count++
	return c.count
}

func (m *Manager) today() string {
	return m.clock.Now().Format("2006-01-02")
}

func (m *Manager) run(guildID string, interval time.Duration, t *guildTimer) {
	defer close(t.done)
	defer m.running.Add(-1)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.safeTick(guildID, t)
		case <-t.stop:
			return
		}
	}
}

// safeTick runs one tick, logging and swallowing errors and panics
func (m *Manager) safeTick(guildID string, t *guildTimer) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Toxic mode tick panic [%s]: %v\n%s", guildID, r, debug.Stack())
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()
	go func() {
		select {
		case <-t.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := m.tick(ctx, guildID, t); err != nil {
		m.logger.Error("Toxic mode tick error [%s]: %v", guildID, err)
	}
}

// Tick runs a single toxic mode iteration for a guild
func (m *Manager) Tick(ctx context.Context, guildID string) error {
	return m.tick(ctx, guildID, nil)
}

// tick runs one iteration; t is the calling timer, nil when called directly
func (m *Manager) tick(ctx context.Context, guildID string, t *guildTimer) error {
	if m.ai == nil {
		return nil
	}
	if c, ok := m.ai.(configurable); ok && !c.Configured() {
		return nil
	}

	tm := m.settings.ToxicMode(guildID)
	if !tm.Enabled {
		if t != nil {
			// Stopping waits for this goroutine, so do it from another one
			go m.stopTimer(guildID, t)
		} else {
			m.StopTimer(guildID)
		}
		return nil
	}
	if tm.ChannelID == "" {
		return nil
	}
	if m.DailyCount(guildID) >= tm.MaxPerDay {
		return nil
	}

	messages, err := m.reader.RecentMessages(ctx, tm.ChannelID, fetchLimit)
	if err != nil {
		return fmt.Errorf("fetching messages: %w", err)
	}

	target, transcript, ok := m.pickTarget(messages)
	if !ok {
		return nil
	}

	text, err := m.ai.Complete(ctx, []ai.Message{
		ai.System(ai.ToxicPrompt),
		ai.User(fmt.Sprintf("User: %s\n\nTheir messages:\n%s", target.AuthorName, transcript)),
	}, ai.WithTemperature(tickTemperature))
	if err != nil {
		return fmt.Errorf("generating joke: %w", err)
	}

	count := m.increment(guildID)
	post := Post{
		Title:        "☢️ Toxic Mode",
		Text:         text,
		Footer:       fmt.Sprintf("Remaining: %d/%d", tm.MaxPerDay-count, tm.MaxPerDay),
		ThumbnailURL: target.AvatarURL,
		TargetID:     target.AuthorID,
		Color:        PostColor,
	}
	if err := m.poster.PostToxic(ctx, tm.ChannelID, post); err != nil {
		return fmt.Errorf("posting: %w", err)
	}

	if m.Observer != nil {
		m.Observer.ToxicPosted()
	}
	m.logger.Info("Toxic message sent in guild %s, target: %s", guildID, target.AuthorName)
	return nil
}

// pickTarget chooses a random human author and joins their messages up to maxTranscript chars
func (m *Manager) pickTarget(messages []Message) (Message, string, bool) {
	var authors []Message
	seen := make(map[string]bool)
	for _, msg := range messages {
		if msg.Bot || msg.Content == "" {
			continue
		}
		if !seen[msg.AuthorID] {
			seen[msg.AuthorID] = true
			authors = append(authors, msg)
		}
	}
	if len(authors) == 0 {
		return Message{}, "", false
	}

	target := authors[m.Intn(len(authors))]

	var sb strings.Builder
	for _, msg := range messages {
		if msg.Bot || msg.AuthorID != target.AuthorID || msg.Content == "" {
			continue
		}
		if sb.Len()+len(msg.Content) > maxTranscript {
			break
		}
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}

	transcript := strings.TrimSpace(sb.String())
	if transcript == "" {
		return Message{}, "", false
	}
	return target, transcript, true
}

func (m *Manager) observeTimers(n int) {
	if m.Observer != nil {
		m.Observer.SetActiveToxicTimers(n)
	}
}
