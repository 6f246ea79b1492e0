package shutdown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/guildbot/internal/output"
)

func TestShutdown_RunsStepsInOrder(t *testing.T) {
	h := NewHandler(output.NopLogger{}, time.Second)
	defer h.Stop()

	var mu sync.Mutex
	var order []string
	record := func(name string, err error) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return err
		}
	}

	h.Register("discord", record("discord", nil))
	h.Register("scheduler", record("scheduler", errors.New("not running")))
	h.Register("database", record("database", nil))

	h.Shutdown()
	h.Shutdown()

	select {
	case <-h.Done():
	default:
		t.Fatal("Done() not closed after Shutdown")
	}
	assert.Equal(t, []string{"discord", "scheduler", "database"}, order, "a failing step does not stop later ones")
}

func TestShutdown_ForceTimeout(t *testing.T) {
	h := NewHandler(output.NopLogger{}, 20*time.Millisecond)
	defer h.Stop()

	release := make(chan struct{})
	defer close(release)
	var laterRan bool
	h.Register("stuck", func(context.Context) error {
		<-release
		return nil
	})
	h.Register("later", func(context.Context) error {
		laterRan = true
		return nil
	})

	start := time.Now()
	h.Shutdown()

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, laterRan)
}

func TestTrigger(t *testing.T) {
	h := NewHandler(output.NopLogger{}, time.Second)
	defer h.Stop()

	ran := make(chan struct{})
	h.Register("step", func(context.Context) error {
		close(ran)
		return nil
	})

	go h.WaitForShutdown()
	h.Trigger("test")
	h.Trigger("duplicate is dropped")

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("Trigger() did not shut down")
	}
	<-ran
}
