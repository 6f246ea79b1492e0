package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/yourusername/guildbot/internal/clock"
	"github.com/yourusername/guildbot/internal/database"
	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/output"
	"github.com/yourusername/guildbot/internal/ratelimit"
	"github.com/yourusername/guildbot/internal/validation"
)

// Store persists settings documents
type Store interface {
	LoadGuildSettings(ctx context.Context, guildID string) (*database.GuildSettingsRecord, error)
	SaveGuildSettings(ctx context.Context, rec *database.GuildSettingsRecord) error
	DeleteGuildSettings(ctx context.Context, guildID string) error
	ListGuildIDs(ctx context.Context) ([]string, error)
}

// ChangeFunc is called after a guild's settings were saved
type ChangeFunc func(guildID string, old, updated GuildSettings)

// Manager serves guild settings from memory and writes changes through to the store.
// Concurrent updates to one guild are last-write-wins.
type Manager struct {
	mu        sync.RWMutex
	store     Store
	clock     clock.Clock
	logger    output.Logger
	cache     map[string]GuildSettings
	listeners []ChangeFunc
}

// NewManager creates a settings manager
func NewManager(store Store, clk clock.Clock, logger output.Logger) *Manager {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &Manager{
		store:  store,
		clock:  clk,
		logger: logger,
		cache:  make(map[string]GuildSettings),
	}
}

// OnChange registers fn to run after every successful Update or Reset
func (m *Manager) OnChange(fn ChangeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Get returns a guild's settings, falling back to defaults when none are stored
// or the store cannot be read
func (m *Manager) Get(guildID string) GuildSettings {
	m.mu.RLock()
	s, ok := m.cache[guildID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	s, err := m.load(context.Background(), guildID)
	if err != nil {
		m.logger.Error("Failed to load settings for guild %s: %v", guildID, err)
		return Defaults(guildID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.cache[guildID]; ok {
		return cached
	}
	m.cache[guildID] = s
	return s
}

func (m *Manager) load(ctx context.Context, guildID string) (GuildSettings, error) {
	rec, err := m.store.LoadGuildSettings(ctx, guildID)
	if err != nil {
		return GuildSettings{}, err
	}
	if rec == nil {
		return Defaults(guildID), nil
	}

	// Decoding over defaults fills categories added after the row was written
	s := Defaults(guildID)
	if err := json.Unmarshal(rec.Data, &s); err != nil {
		return GuildSettings{}, fmt.Errorf("decoding settings: %w", err)
	}
	s.GuildID = guildID
	return s, nil
}

// Update validates p, merges it into the guild's settings and persists the result
func (m *Manager) Update(ctx context.Context, guildID string, p Patch, actorID string) (GuildSettings, error) {
	if err := validation.Struct(p); err != nil {
		return GuildSettings{}, err
	}

	old := m.Get(guildID)
	updated := old
	p.apply(&updated)
	return m.save(ctx, old, updated, actorID)
}

// Reset restores the defaults for a guild
func (m *Manager) Reset(ctx context.Context, guildID, actorID string) (GuildSettings, error) {
	return m.save(ctx, m.Get(guildID), Defaults(guildID), actorID)
}

func (m *Manager) save(ctx context.Context, old, updated GuildSettings, actorID string) (GuildSettings, error) {
	updated.UpdatedAt = m.clock.Now()
	updated.UpdatedBy = actorID

	data, err := json.Marshal(updated)
	if err != nil {
		return GuildSettings{}, boterrors.NewUnexpectedError(err)
	}
	rec := &database.GuildSettingsRecord{
		GuildID:   updated.GuildID,
		Data:      data,
		UpdatedAt: updated.UpdatedAt,
		UpdatedBy: actorID,
	}
	if err := m.store.SaveGuildSettings(ctx, rec); err != nil {
		return GuildSettings{}, boterrors.NewDatabaseError("save settings", err)
	}

	m.mu.Lock()
	m.cache[updated.GuildID] = updated
	listeners := make([]ChangeFunc, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	m.logger.Info("Settings updated for guild %s by %s", updated.GuildID, actorID)
	for _, fn := range listeners {
		fn(updated.GuildID, old, updated)
	}
	return updated, nil
}

// GuildIDs returns every guild with stored settings
func (m *Manager) GuildIDs(ctx context.Context) ([]string, error) {
	ids, err := m.store.ListGuildIDs(ctx)
	if err != nil {
		return nil, boterrors.NewDatabaseError("list guilds", err)
	}
	return ids, nil
}

// Forget drops a guild's settings from memory and the store
func (m *Manager) Forget(ctx context.Context, guildID string) error {
	m.mu.Lock()
	delete(m.cache, guildID)
	m.mu.Unlock()

	if err := m.store.DeleteGuildSettings(ctx, guildID); err != nil {
		return boterrors.NewDatabaseError("delete settings", err)
	}
	return nil
}

// AILimits implements ratelimit.AILimitSource
func (m *Manager) AILimits(guildID string) ratelimit.AILimits {
	ai := m.Get(guildID).AI
	return ratelimit.AILimits{
		MaxRequestsPerDay: ai.MaxRequestsPerDay,
		CooldownSeconds:   ai.CooldownSeconds,
	}
}

// ToxicMode returns a guild's toxic mode settings
func (m *Manager) ToxicMode(guildID string) ToxicMode {
	return m.Get(guildID).ToxicMode
}

// RenderWelcome fills the {user}, {server} and {memberCount} placeholders
func RenderWelcome(tpl, user, server string, memberCount int) string {
	return strings.NewReplacer(
		"{user}", user,
		"{server}", server,
		"{memberCount}", strconv.Itoa(memberCount),
	).Replace(tpl)
}
