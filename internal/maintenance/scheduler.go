// Package maintenance runs periodic housekeeping jobs.
package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/guildbot/internal/clock"
	"github.com/yourusername/guildbot/internal/output"
)

// jobTimeout bounds a single job run; VACUUM on a large file is the slow case
const jobTimeout = 5 * time.Minute

// Job is a named unit of periodic work.
// Interval > 0 runs it on a ticker; Daily runs it at local midnight.
type Job struct {
	Name     string
	Interval time.Duration
	Daily    bool
	Run      func(ctx context.Context) error
}

// Scheduler runs maintenance jobs until stopped
type Scheduler struct {
	jobs   []Job
	clock  clock.Clock
	logger output.Logger

	done         chan struct{}
	wg           sync.WaitGroup
	isRunning    bool
	runningMutex sync.Mutex

	lastRunMutex sync.Mutex
	lastRun      map[string]time.Time
}

// New creates a new maintenance scheduler
func New(clk clock.Clock, logger output.Logger, jobs ...Job) *Scheduler {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &Scheduler{
		jobs:    jobs,
		clock:   clk,
		logger:  logger,
		lastRun: make(map[string]time.Time),
	}
}

// Start launches one goroutine per job
func (s *Scheduler) Start() error {
	s.runningMutex.Lock()
	if s.isRunning {
		s.runningMutex.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	s.isRunning = true
	s.done = make(chan struct{})
	s.runningMutex.Unlock()

	for _, job := range s.jobs {
		switch {
		case job.Daily:
			s.logger.Info("Maintenance job %q scheduled daily at midnight", job.Name)
			s.wg.Add(1)
			go s.runDaily(job)
		case job.Interval > 0:
			s.logger.Info("Maintenance job %q scheduled every %v", job.Name, job.Interval)
			s.wg.Add(1)
			go s.runTicker(job)
		default:
			s.logger.Warning("Maintenance job %q has no schedule, skipping", job.Name)
		}
	}
	return nil
}

// Stop signals every job loop and waits for them to return
func (s *Scheduler) Stop() error {
	s.runningMutex.Lock()
	if !s.isRunning {
		s.runningMutex.Unlock()
		return fmt.Errorf("scheduler is not running")
	}
	s.isRunning = false
	s.runningMutex.Unlock()

	s.logger.Info("Stopping maintenance scheduler...")
	close(s.done)
	s.wg.Wait()
	s.logger.Success("Maintenance scheduler stopped")
	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.runningMutex.Lock()
	defer s.runningMutex.Unlock()
	return s.isRunning
}

// LastRun returns when the named job last succeeded
func (s *Scheduler) LastRun(name string) time.Time {
	s.lastRunMutex.Lock()
	defer s.lastRunMutex.Unlock()
	return s.lastRun[name]
}

// RunNow runs the named job once, outside its schedule
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name == name {
			return s.execute(ctx, job)
		}
	}
	return fmt.Errorf("unknown maintenance job %q", name)
}

func (s *Scheduler) runTicker(job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.safeExecute(job)
		}
	}
}

func (s *Scheduler) runDaily(job Job) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		now := s.clock.Now()
		if err := s.clock.Sleep(ctx, NextMidnight(now).Sub(now)); err != nil {
			return
		}
		s.safeExecute(job)
	}
}

func (s *Scheduler) safeExecute(job Job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Maintenance job %q panicked: %v", job.Name, r)
		}
	}()

	if err := s.execute(context.Background(), job); err != nil {
		s.logger.Error("Maintenance job %q failed: %v", job.Name, err)
	}
}

func (s *Scheduler) execute(ctx context.Context, job Job) error {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	start := s.clock.Now()
	if err := job.Run(ctx); err != nil {
		return err
	}

	s.lastRunMutex.Lock()
	s.lastRun[job.Name] = s.clock.Now()
	s.lastRunMutex.Unlock()

	s.logger.Debug("Maintenance job %q completed in %v", job.Name, s.clock.Now().Sub(start))
	return nil
}

// NextMidnight returns the next local midnight strictly after t
func NextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
