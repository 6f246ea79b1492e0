package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/yourusername/guildbot/internal/clock"
	"github.com/yourusername/guildbot/internal/config"
	"github.com/yourusername/guildbot/internal/output"
)

func TestRateLimiter_UnregisteredFailsOpen(t *testing.T) {
	rl := New(clock.NewFake(epoch), output.NopLogger{})
	for i := 0; i < 100; i++ {
		if !rl.Acquire("unknown") {
			t.Fatal("Acquire() on unregistered key should allow")
		}
	}
	if rl.Remaining("unknown") != -1 {
		t.Error("Remaining() on unregistered key should be -1")
	}
}

func TestRateLimiter_WindowRollover(t *testing.T) {
	clk := clock.NewFake(epoch)
	rl := New(clk, output.NopLogger{})
	rl.Register("coingecko", 10, time.Minute)

	var denied []string
	rl.OnDenied = func(key string) { denied = append(denied, key) }

	for i := 0; i < 10; i++ {
		if !rl.Acquire("coingecko") {
			t.Fatalf("Acquire() call %d denied", i+1)
		}
	}
	if rl.Acquire("coingecko") {
		t.Fatal("11th Acquire() should be denied")
	}
	if len(denied) != 1 || denied[0] != "coingecko" {
		t.Errorf("OnDenied calls = %v", denied)
	}
	if rl.Remaining("coingecko") != 0 {
		t.Errorf("Remaining() = %d, want 0", rl.Remaining("coingecko"))
	}

	clk.Advance(time.Minute)
	if !rl.Acquire("coingecko") {
		t.Error("first Acquire() of the next window should be allowed")
	}
}

func TestRateLimiter_ReRegisterKeepsWindow(t *testing.T) {
	clk := clock.NewFake(epoch)
	rl := New(clk, output.NopLogger{})
	rl.Register("monobank", 3, time.Minute)

	for i := 0; i < 3; i++ {
		rl.Acquire("monobank")
	}
	clk.Advance(30 * time.Second)

	rl.Register("monobank", 5, time.Minute)
	if got := rl.Remaining("monobank"); got != 2 {
		t.Errorf("Remaining() after re-register = %d, want 2", got)
	}
	for i := 0; i < 2; i++ {
		if !rl.Acquire("monobank") {
			t.Fatalf("Acquire() %d under the raised budget denied", i+1)
		}
	}
	if rl.Acquire("monobank") {
		t.Error("Acquire() beyond the raised budget should be denied")
	}

	// The window still started at the first registration
	clk.Advance(30 * time.Second)
	if !rl.Acquire("monobank") {
		t.Error("Acquire() after the original window rolled should be allowed")
	}
}

func TestRateLimiter_AcquireOrWait(t *testing.T) {
	clk := clock.NewFake(epoch)
	rl := New(clk, output.NopLogger{})
	rl.Register("monobank", 1, time.Minute)

	if err := rl.AcquireOrWait(context.Background(), "monobank"); err != nil {
		t.Fatalf("first AcquireOrWait() = %v", err)
	}

	clk.Advance(20 * time.Second)
	if err := rl.AcquireOrWait(context.Background(), "monobank"); err != nil {
		t.Fatalf("second AcquireOrWait() = %v", err)
	}

	sleeps := clk.Sleeps()
	want := 40*time.Second + 100*time.Millisecond
	if len(sleeps) != 1 || sleeps[0] != want {
		t.Errorf("Sleeps() = %v, want [%v]", sleeps, want)
	}
}

func TestRateLimiter_AcquireOrWaitCancelled(t *testing.T) {
	rl := New(clock.NewFake(epoch), output.NopLogger{})
	rl.Register("groq", 1, time.Minute)
	rl.Acquire("groq")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rl.AcquireOrWait(ctx, "groq"); !errors.Is(err, context.Canceled) {
		t.Errorf("AcquireOrWait() = %v, want context.Canceled", err)
	}
}

func TestRateLimiter_RegisterDefaults(t *testing.T) {
	rl := New(clock.NewFake(epoch), output.NopLogger{})
	rl.RegisterDefaults(config.DefaultUpstreams())

	tests := map[string]int{"monobank": 1, "coingecko": 10, "weather": 60, "translate": 100, "groq": 30}
	for key, want := range tests {
		if got := rl.Remaining(key); got != want {
			t.Errorf("Remaining(%q) = %d, want %d", key, got, want)
		}
	}
}

func TestRateLimiter_Property(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("exactly the limit+1-th call in a window is the first denial", prop.ForAll(
		func(limit int) bool {
			clk := clock.NewFake(epoch)
			rl := New(clk, output.NopLogger{})
			rl.Register("k", limit, time.Minute)
			for i := 0; i < limit; i++ {
				if !rl.Acquire("k") {
					return false
				}
			}
			if rl.Acquire("k") {
				return false
			}
			clk.Advance(time.Minute)
			return rl.Acquire("k")
		},
		gen.IntRange(1, 200),
	))

	properties.TestingRun(t)
}
