package ratelimit

import (
	"sync"
	"time"

	"github.com/yourusername/guildbot/internal/clock"
)

// CooldownKey represents a unique user-command combination
type CooldownKey struct {
	User    string
	Command string
}

// CooldownConfig bounds how often one user may run one command
type CooldownConfig struct {
	Window      time.Duration
	MaxCommands int
	Cooldown    time.Duration
}

// CooldownResult is the outcome of a cooldown check
type CooldownResult struct {
	Allowed   bool
	Remaining time.Duration
}

type windowEntry struct {
	lastUsed    time.Time
	count       int
	windowStart time.Time
}

// CooldownManager tracks per-user command bursts in a sliding window.
// Once a user exhausts MaxCommands within Window, further calls are
// denied until Cooldown has passed since their last allowed call.
type CooldownManager struct {
	mu      sync.Mutex
	cfg     CooldownConfig
	clock   clock.Clock
	entries map[CooldownKey]*windowEntry
}

// NewCooldownManager creates a new cooldown manager
func NewCooldownManager(cfg CooldownConfig, clk clock.Clock) *CooldownManager {
	if clk == nil {
		clk = clock.Real()
	}
	return &CooldownManager{
		cfg:     cfg,
		clock:   clk,
		entries: make(map[CooldownKey]*windowEntry),
	}
}

// Check records an attempt by user to run command and reports whether it is allowed
func (cm *CooldownManager) Check(user, command string) CooldownResult {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	now := cm.clock.Now()
	key := CooldownKey{User: user, Command: command}
	entry, exists := cm.entries[key]

	if !exists || now.Sub(entry.windowStart) >= cm.cfg.Window {
		cm.entries[key] = &windowEntry{lastUsed: now, count: 1, windowStart: now}
		return CooldownResult{Allowed: true}
	}

	if entry.count < cm.cfg.MaxCommands {
		entry.count++
		entry.lastUsed = now
		return CooldownResult{Allowed: true}
	}

	sinceLast := now.Sub(entry.lastUsed)
	if sinceLast >= cm.cfg.Cooldown {
		entry.count = 1
		entry.lastUsed = now
		entry.windowStart = now
		return CooldownResult{Allowed: true}
	}

	return CooldownResult{Allowed: false, Remaining: cm.cfg.Cooldown - sinceLast}
}

// Cleanup removes entries idle for at least two windows and returns how many were removed
func (cm *CooldownManager) Cleanup() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	now := cm.clock.Now()
	removed := 0
	for key, entry := range cm.entries {
		if now.Sub(entry.windowStart) >= 2*cm.cfg.Window {
			delete(cm.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked user-command pairs
func (cm *CooldownManager) Len() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return len(cm.entries)
}
