// Package stats counts command usage for the lifetime of the process and per day.
package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/yourusername/guildbot/internal/clock"
)

const topN = 5

// CommandCount is one entry of the top commands ranking
type CommandCount struct {
	Name  string
	Count int
}

// Snapshot is a point-in-time view of lifetime counters
type Snapshot struct {
	CommandsExecuted int
	UniqueCommands   int
	ErrorsCount      int
	LastCommandTime  time.Time
	StartTime        time.Time
	Uptime           time.Duration
	TopCommands      []CommandCount
}

// DailySnapshot is a point-in-time view of counters since the last daily reset
type DailySnapshot struct {
	CommandsExecuted int
	ErrorsCount      int
	UniqueUsers      int
	Since            time.Time
	TopCommands      []CommandCount
}

type counters struct {
	commandsExecuted int
	commandUsage     map[string]int
	errorsCount      int
	lastCommandTime  time.Time
}

func newCounters() counters {
	return counters{commandUsage: make(map[string]int)}
}

// Tracker accumulates command statistics
type Tracker struct {
	mu          sync.Mutex
	clock       clock.Clock
	startTime   time.Time
	lifetime    counters
	daily       counters
	dailySince  time.Time
	uniqueUsers map[string]struct{}
}

// NewTracker creates a tracker whose uptime starts now
func NewTracker(clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.Real()
	}
	now := clk.Now()
	return &Tracker{
		clock:       clk,
		startTime:   now,
		lifetime:    newCounters(),
		daily:       newCounters(),
		dailySince:  now,
		uniqueUsers: make(map[string]struct{}),
	}
}

// TrackCommand records one execution of name. userID may be empty.
func (t *Tracker) TrackCommand(name, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	for _, c := range []*counters{&t.lifetime, &t.daily} {
		c.commandsExecuted++
		c.commandUsage[name]++
		c.lastCommandTime = now
	}
	if userID != "" {
		t.uniqueUsers[userID] = struct{}{}
	}
}

// TrackError records one failed command
func (t *Tracker) TrackError() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lifetime.errorsCount++
	t.daily.errorsCount++
}

// Stats returns the lifetime counters
func (t *Tracker) Stats() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Snapshot{
		CommandsExecuted: t.lifetime.commandsExecuted,
		UniqueCommands:   len(t.lifetime.commandUsage),
		ErrorsCount:      t.lifetime.errorsCount,
		LastCommandTime:  t.lifetime.lastCommandTime,
		StartTime:        t.startTime,
		Uptime:           t.clock.Now().Sub(t.startTime),
		TopCommands:      topCommands(t.lifetime.commandUsage, topN),
	}
}

// DailyStats returns the counters since the last ResetDaily
func (t *Tracker) DailyStats() DailySnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return DailySnapshot{
		CommandsExecuted: t.daily.commandsExecuted,
		ErrorsCount:      t.daily.errorsCount,
		UniqueUsers:      len(t.uniqueUsers),
		Since:            t.dailySince,
		TopCommands:      topCommands(t.daily.commandUsage, topN),
	}
}

// ResetDaily clears the daily counters. Lifetime counters are kept.
func (t *Tracker) ResetDaily() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.daily = newCounters()
	t.dailySince = t.clock.Now()
	t.uniqueUsers = make(map[string]struct{})
}

// Uptime returns how long the tracker has been running
func (t *Tracker) Uptime() time.Duration {
	return t.clock.Now().Sub(t.startTime)
}

// topCommands ranks by count descending, breaking ties by name
func topCommands(usage map[string]int, n int) []CommandCount {
	out := make([]CommandCount, 0, len(usage))
	for name, count := range usage {
		out = append(out, CommandCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
