package commands

import (
	"context"
	"fmt"
	"math"

	"github.com/yourusername/guildbot/internal/audit"
	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/output"
	"github.com/yourusername/guildbot/internal/ratelimit"
	"github.com/yourusername/guildbot/internal/settings"
	"github.com/yourusername/guildbot/internal/stats"
)

// MetricsRecorder receives command observations
type MetricsRecorder interface {
	CommandExecuted(ctx context.Context, command string)
	CommandFailed(ctx context.Context, errorType string)
	RateLimitDenied(limiter string)
}

// AuditSink records moderation actions
type AuditSink interface {
	Log(e audit.Entry)
}

// SettingsSource supplies guild settings
type SettingsSource interface {
	Get(guildID string) settings.GuildSettings
}

// ErrorReporter logs a command error and returns the user-facing message
type ErrorReporter interface {
	HandleCommand(err error, guildID, command string) string
}

// DispatcherConfig wires the dispatcher's collaborators. Only Registry and
// Errors are required.
type DispatcherConfig struct {
	Registry  *Registry
	Cooldowns *ratelimit.CooldownManager
	Stats     *stats.Tracker
	Metrics   MetricsRecorder
	Audit     AuditSink
	Settings  SettingsSource
	Errors    ErrorReporter
	Logger    output.Logger
}

// Dispatcher runs a command through cooldown, permission, tracking,
// execution, auditing and error handling
type Dispatcher struct {
	registry  *Registry
	cooldowns *ratelimit.CooldownManager
	stats     *stats.Tracker
	metrics   MetricsRecorder
	audit     AuditSink
	settings  SettingsSource
	errors    ErrorReporter
	logger    output.Logger
}

// NewDispatcher creates a new command dispatcher
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = output.NopLogger{}
	}
	return &Dispatcher{
		registry:  cfg.Registry,
		cooldowns: cfg.Cooldowns,
		stats:     cfg.Stats,
		metrics:   cfg.Metrics,
		audit:     cfg.Audit,
		settings:  cfg.Settings,
		errors:    cfg.Errors,
		logger:    cfg.Logger,
	}
}

// Registry returns the command registry
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Lookup returns the command a context refers to
func (d *Dispatcher) Lookup(c *Context) (Command, bool) {
	return d.registry.Get(c.Command)
}

// Dispatch executes the command named by c and always returns a response
func (d *Dispatcher) Dispatch(c *Context) *Response {
	cmd, exists := d.registry.Get(c.Command)
	if !exists {
		return d.fail(c, boterrors.NewNotFoundError("Command", c.Command))
	}

	if d.cooldowns != nil {
		if res := d.cooldowns.Check(c.UserID, cmd.Name()); !res.Allowed {
			if d.metrics != nil {
				d.metrics.RateLimitDenied("cooldown")
			}
			secs := int(math.Ceil(res.Remaining.Seconds()))
			return NewEphemeral(fmt.Sprintf("⏳ Please wait %d sec.", secs))
		}
	}

	if required := cmd.RequiredPermission(); !HasPermission(c.Permissions, required) {
		return d.fail(c, boterrors.NewPermissionError(PermissionName(required)))
	}

	if d.stats != nil {
		d.stats.TrackCommand(cmd.Name(), c.UserID)
	}
	if d.metrics != nil {
		d.metrics.CommandExecuted(c.Context(), cmd.Name())
	}
	d.logger.Command(c.GuildID, c.UserTag, c.FullName())

	resp, err := d.execute(cmd, c)
	if err != nil {
		if d.stats != nil {
			d.stats.TrackError()
		}
		if d.metrics != nil {
			d.metrics.CommandFailed(c.Context(), string(boterrors.TypeOf(err)))
		}
		return d.fail(c, err)
	}
	if resp == nil {
		resp = NewEphemeral("✅ Done.")
	}

	if resp.Audit != nil && cmd.Category() == CategoryModeration {
		d.recordAudit(c, resp.Audit)
	}
	return resp
}

// execute runs the command, turning a panic into an Unexpected error
func (d *Dispatcher) execute(cmd Command, c *Context) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = boterrors.NewUnexpectedError(fmt.Errorf("panic in /%s: %v", cmd.Name(), r))
		}
	}()
	return cmd.Execute(c)
}

func (d *Dispatcher) recordAudit(c *Context, a *AuditAction) {
	if d.audit == nil || d.settings == nil {
		return
	}
	if !d.settings.Get(c.GuildID).Moderation.AuditLog {
		return
	}
	d.audit.Log(audit.Entry{
		Action:       a.Action,
		ModeratorID:  c.UserID,
		ModeratorTag: c.UserTag,
		TargetID:     a.TargetID,
		TargetTag:    a.TargetTag,
		GuildID:      c.GuildID,
		ChannelID:    c.ChannelID,
		Reason:       a.Reason,
		Details:      a.Details,
	})
}

func (d *Dispatcher) fail(c *Context, err error) *Response {
	msg := d.errors.HandleCommand(err, c.GuildID, c.FullName())
	return NewEphemeral(msg)
}
