package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/yourusername/guildbot/internal/clock"
	"github.com/yourusername/guildbot/internal/config"
	"github.com/yourusername/guildbot/internal/output"
)

// waitBuffer is added to every computed wait so the retry lands after the window rolls
const waitBuffer = 100 * time.Millisecond

type bucket struct {
	maxRequests int
	window      time.Duration
	requests    int
	windowStart time.Time
}

// RateLimiter budgets outbound requests per upstream key in fixed windows.
// It is cooperative and in-process only.
type RateLimiter struct {
	mu      sync.Mutex
	clock   clock.Clock
	logger  output.Logger
	buckets map[string]*bucket

	// OnDenied is called with the key whenever Acquire denies a request
	OnDenied func(key string)
}

// New creates an outbound rate limiter with no registered keys
func New(clk clock.Clock, logger output.Logger) *RateLimiter {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &RateLimiter{
		clock:   clk,
		logger:  logger,
		buckets: make(map[string]*bucket),
	}
}

// Register sets the budget for key. Re-registering a key replaces its budget
// but keeps the requests already counted in the current window.
func (rl *RateLimiter) Register(key string, maxRequests int, window time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if b, ok := rl.buckets[key]; ok {
		b.maxRequests = maxRequests
		b.window = window
		return
	}
	rl.buckets[key] = &bucket{
		maxRequests: maxRequests,
		window:      window,
		windowStart: rl.clock.Now(),
	}
}

// RegisterDefaults registers every configured upstream budget
func (rl *RateLimiter) RegisterDefaults(upstreams map[string]config.UpstreamConfig) {
	for name, up := range upstreams {
		rl.Register(name, up.MaxRequests, up.GetWindowDuration())
	}
}

// Acquire takes one request slot for key. Unregistered keys are allowed.
func (rl *RateLimiter) Acquire(key string) bool {
	ok, _ := rl.tryAcquire(key)
	return ok
}

// tryAcquire returns whether a slot was taken, or how long to wait for the next window
func (rl *RateLimiter) tryAcquire(key string) (bool, time.Duration) {
	rl.mu.Lock()

	b, exists := rl.buckets[key]
	if !exists {
		rl.mu.Unlock()
		rl.logger.Warning("Rate limiter not registered for key %q, allowing request", key)
		return true, 0
	}

	now := rl.clock.Now()
	elapsed := now.Sub(b.windowStart)
	if elapsed >= b.window {
		b.requests = 0
		b.windowStart = now
		elapsed = 0
	}

	if b.requests < b.maxRequests {
		b.requests++
		rl.mu.Unlock()
		return true, 0
	}

	wait := b.window - elapsed + waitBuffer
	onDenied := rl.OnDenied
	rl.mu.Unlock()

	if onDenied != nil {
		onDenied(key)
	}
	return false, wait
}

// AcquireOrWait blocks until a slot for key is available or ctx is done
func (rl *RateLimiter) AcquireOrWait(ctx context.Context, key string) error {
	for {
		ok, wait := rl.tryAcquire(key)
		if ok {
			return nil
		}

		rl.logger.Debug("Rate limit reached for %s, waiting %s", key, wait)
		if err := rl.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Remaining returns the free slots left in key's current window, or -1 if unregistered
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[key]
	if !exists {
		return -1
	}
	if rl.clock.Now().Sub(b.windowStart) >= b.window {
		return b.maxRequests
	}
	return b.maxRequests - b.requests
}
