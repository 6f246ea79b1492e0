// Package shutdown runs named cleanup steps once on SIGINT/SIGTERM or on demand.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/yourusername/guildbot/internal/output"
)

type step struct {
	name string
	fn   func(ctx context.Context) error
}

// Handler manages graceful shutdown of the bot
type Handler struct {
	logger       output.Logger
	steps        []step
	mu           sync.Mutex
	shutdownChan chan struct{}
	triggerChan  chan string
	signalChan   chan os.Signal
	forceTimeout time.Duration
	shutdownOnce sync.Once
	stopOnce     sync.Once
}

// NewHandler creates a new shutdown handler listening for SIGINT and SIGTERM
func NewHandler(logger output.Logger, forceTimeout time.Duration) *Handler {
	h := &Handler{
		logger:       logger,
		shutdownChan: make(chan struct{}),
		triggerChan:  make(chan string, 1),
		signalChan:   make(chan os.Signal, 1),
		forceTimeout: forceTimeout,
	}

	signal.Notify(h.signalChan, syscall.SIGINT, syscall.SIGTERM)

	return h
}

// Register adds a named step. Steps run in the order they were registered.
func (h *Handler) Register(name string, fn func(ctx context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.steps = append(h.steps, step{name: name, fn: fn})
}

// WaitForShutdown blocks until a signal or Trigger, then shuts down
func (h *Handler) WaitForShutdown() {
	select {
	case sig, ok := <-h.signalChan:
		if !ok {
			return
		}
		h.logger.Info("Received signal: %v", sig)
	case reason := <-h.triggerChan:
		h.logger.Info("Shutdown requested: %s", reason)
	}
	h.Shutdown()
}

// Trigger requests a shutdown from inside the program
func (h *Handler) Trigger(reason string) {
	select {
	case h.triggerChan <- reason:
	default:
	}
}

// Shutdown runs every step once, giving up after the force timeout
func (h *Handler) Shutdown() {
	h.shutdownOnce.Do(func() {
		h.logger.Info("Initiating graceful shutdown...")

		ctx, cancel := context.WithTimeout(context.Background(), h.forceTimeout)
		defer cancel()

		done := make(chan struct{})
		go func() {
			h.executeSteps(ctx)
			close(done)
		}()

		select {
		case <-done:
			h.logger.Success("Graceful shutdown completed")
		case <-ctx.Done():
			h.logger.Warning("Forced shutdown after %v", h.forceTimeout)
		}

		close(h.shutdownChan)
	})
}

func (h *Handler) executeSteps(ctx context.Context) {
	h.mu.Lock()
	steps := make([]step, len(h.steps))
	copy(steps, h.steps)
	h.mu.Unlock()

	for _, s := range steps {
		if ctx.Err() != nil {
			return
		}
		h.logger.Info("Shutdown: %s", s.name)
		if err := s.fn(ctx); err != nil {
			h.logger.Error("Shutdown step %q failed: %v", s.name, err)
		}
	}
}

// Done returns a channel that is closed when shutdown is complete
func (h *Handler) Done() <-chan struct{} {
	return h.shutdownChan
}

// Stop stops listening for signals
func (h *Handler) Stop() {
	h.stopOnce.Do(func() {
		signal.Stop(h.signalChan)
		close(h.signalChan)
	})
}
