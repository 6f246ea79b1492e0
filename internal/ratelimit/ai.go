package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/yourusername/guildbot/internal/clock"
)

const aiDay = 24 * time.Hour

// AILimits is a guild's AI quota
type AILimits struct {
	MaxRequestsPerDay int
	CooldownSeconds   int
}

// AILimitSource supplies per-guild AI limits, read on every check
type AILimitSource interface {
	AILimits(guildID string) AILimits
}

// AIDecision is the outcome of an AI quota check
type AIDecision struct {
	Allowed bool
	Reason  string
}

type aiTracker struct {
	count    int
	dayStart time.Time
	lastUsed time.Time
}

// AIRateLimiter enforces a per-user daily AI quota plus a fixed cooldown
type AIRateLimiter struct {
	mu       sync.Mutex
	limits   AILimitSource
	clock    clock.Clock
	trackers map[string]*aiTracker
}

// NewAIRateLimiter creates a new AI limiter
func NewAIRateLimiter(limits AILimitSource, clk clock.Clock) *AIRateLimiter {
	if clk == nil {
		clk = clock.Real()
	}
	return &AIRateLimiter{
		limits:   limits,
		clock:    clk,
		trackers: make(map[string]*aiTracker),
	}
}

func aiKey(guildID, userID string) string {
	return guildID + ":" + userID
}

// tracker returns the tracker for key, resetting it once its day has passed.
// Must be called with mutex locked.
func (l *AIRateLimiter) tracker(key string, now time.Time) *aiTracker {
	t, exists := l.trackers[key]
	if !exists || now.Sub(t.dayStart) >= aiDay {
		t = &aiTracker{dayStart: now}
		l.trackers[key] = t
	}
	return t
}

// check evaluates the quota. Must be called with mutex locked.
func (l *AIRateLimiter) check(guildID, userID string, now time.Time) (*aiTracker, AIDecision) {
	limits := l.limits.AILimits(guildID)
	t := l.tracker(aiKey(guildID, userID), now)

	if t.count >= limits.MaxRequestsPerDay {
		return t, AIDecision{
			Reason: fmt.Sprintf("AI request limit reached (%d/day).", limits.MaxRequestsPerDay),
		}
	}

	cooldown := time.Duration(limits.CooldownSeconds) * time.Second
	if !t.lastUsed.IsZero() {
		if elapsed := now.Sub(t.lastUsed); elapsed < cooldown {
			secs := int(math.Ceil((cooldown - elapsed).Seconds()))
			return t, AIDecision{
				Reason: fmt.Sprintf("Please wait %d sec. before the next AI request.", secs),
			}
		}
	}

	return t, AIDecision{Allowed: true}
}

// Check reports whether the user may make an AI request now.
// Check followed by Consume is not atomic; use TryConsume from concurrent handlers.
func (l *AIRateLimiter) Check(guildID, userID string) AIDecision {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, decision := l.check(guildID, userID, l.clock.Now())
	return decision
}

// Consume records one AI request
func (l *AIRateLimiter) Consume(guildID, userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	t := l.tracker(aiKey(guildID, userID), now)
	t.count++
	t.lastUsed = now
}

// TryConsume checks and, when allowed, consumes in one step
func (l *AIRateLimiter) TryConsume(guildID, userID string) AIDecision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	t, decision := l.check(guildID, userID, now)
	if decision.Allowed {
		t.count++
		t.lastUsed = now
	}
	return decision
}

// RemainingToday returns how many AI requests the user has left today
func (l *AIRateLimiter) RemainingToday(guildID, userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	limits := l.limits.AILimits(guildID)
	t := l.tracker(aiKey(guildID, userID), l.clock.Now())
	if remaining := limits.MaxRequestsPerDay - t.count; remaining > 0 {
		return remaining
	}
	return 0
}
