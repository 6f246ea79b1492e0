package metrics

import (
	"context"
	"time"

	"github.com/yourusername/guildbot/internal/circuitbreaker"
	"github.com/yourusername/guildbot/internal/output"
)

// Recorder fans observations out to prometheus and the sqlite collector.
// A nil Recorder, or nil fields, are valid and discard observations.
type Recorder struct {
	Prom      *Prom
	Collector *Collector
	Logger    output.Logger
}

// NewRecorder creates a recorder over both sinks
func NewRecorder(prom *Prom, collector *Collector, logger output.Logger) *Recorder {
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &Recorder{Prom: prom, Collector: collector, Logger: logger}
}

func (r *Recorder) logErr(err error) {
	if err != nil {
		r.Logger.Warning("metrics: %v", err)
	}
}

// CommandExecuted counts one command execution
func (r *Recorder) CommandExecuted(ctx context.Context, command string) {
	if r == nil {
		return
	}
	if r.Prom != nil {
		r.Prom.CommandsTotal.WithLabelValues(command).Inc()
	}
	if r.Collector != nil {
		r.logErr(r.Collector.RecordCommandUsage(ctx, command))
	}
}

// CommandFailed counts one failed command by error type
func (r *Recorder) CommandFailed(ctx context.Context, errorType string) {
	if r == nil {
		return
	}
	if r.Prom != nil {
		r.Prom.CommandErrors.WithLabelValues(errorType).Inc()
	}
	if r.Collector != nil {
		r.logErr(r.Collector.RecordError(ctx, errorType))
	}
}

// UpstreamRequest observes one third-party request
func (r *Recorder) UpstreamRequest(ctx context.Context, service string, d time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	if r.Prom != nil {
		r.Prom.UpstreamDuration.WithLabelValues(service, outcome).Observe(d.Seconds())
	}
	if r.Collector != nil {
		r.logErr(r.Collector.RecordAPILatency(ctx, service, float64(d.Milliseconds())))
	}
}

// RateLimitDenied counts one limiter denial
func (r *Recorder) RateLimitDenied(limiter string) {
	if r == nil || r.Prom == nil {
		return
	}
	r.Prom.RateLimitDenials.WithLabelValues(limiter).Inc()
}

// CircuitStateChanged tracks a breaker transition
func (r *Recorder) CircuitStateChanged(service string, from, to circuitbreaker.State) {
	if r == nil {
		return
	}
	r.Logger.Warning("Circuit breaker %s: %s -> %s", service, from, to)
	if r.Prom != nil {
		r.Prom.CircuitState.WithLabelValues(service).Set(float64(to))
	}
}

// ToxicPosted counts one toxic-mode post
func (r *Recorder) ToxicPosted() {
	if r == nil || r.Prom == nil {
		return
	}
	r.Prom.ToxicPostsTotal.Inc()
}

// SetActiveToxicTimers reports the number of running toxic timers
func (r *Recorder) SetActiveToxicTimers(n int) {
	if r == nil || r.Prom == nil {
		return
	}
	r.Prom.ToxicActiveTimers.Set(float64(n))
}

// QueueDropped counts background posts dropped on overflow
func (r *Recorder) QueueDropped(n int) {
	if r == nil || r.Prom == nil || n <= 0 {
		return
	}
	r.Prom.QueueDropped.Add(float64(n))
}
