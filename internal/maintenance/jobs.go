package maintenance

import (
	"context"
	"time"

	"github.com/yourusername/guildbot/internal/database"
	"github.com/yourusername/guildbot/internal/output"
)

// Job names
const (
	JobCooldownCleanup = "cooldown-cleanup"
	JobAuditFlush      = "audit-flush"
	JobRetention       = "retention"
	JobVacuum          = "vacuum"
	JobDailyStatsReset = "daily-stats-reset"
	JobTempBanExpiry   = "temp-ban-expiry"
)

// deliveredReminderTTL is how long delivered reminders are kept
const deliveredReminderTTL = 7 * 24 * time.Hour

// CooldownCleaner drops expired cooldown entries
type CooldownCleaner interface {
	Cleanup() int
}

// AuditFlusher writes buffered audit entries
type AuditFlusher interface {
	Flush(ctx context.Context) error
}

// MetricsPruner deletes old metric rows
type MetricsPruner interface {
	CleanupOldMetrics(ctx context.Context, olderThan time.Duration) (int64, error)
}

// ReminderPruner deletes delivered reminders older than cutoff
type ReminderPruner interface {
	DeleteDeliveredReminders(ctx context.Context, cutoff time.Time) (int64, error)
}

// Vacuumer compacts the database file
type Vacuumer interface {
	Vacuum(ctx context.Context) error
}

// DailyResetter clears per-day counters
type DailyResetter interface {
	ResetDaily()
}

// TempBanStore lists and forgets temporary bans
type TempBanStore interface {
	ExpiredTempBans(ctx context.Context, now time.Time) ([]*database.TempBan, error)
	DeleteTempBan(ctx context.Context, guildID, userID string) error
}

// Unbanner lifts a guild ban
type Unbanner interface {
	Unban(ctx context.Context, guildID, userID string) error
}

// CooldownCleanupJob removes expired cooldowns every interval
func CooldownCleanupJob(c CooldownCleaner, interval time.Duration, logger output.Logger) Job {
	return Job{
		Name:     JobCooldownCleanup,
		Interval: interval,
		Run: func(context.Context) error {
			if n := c.Cleanup(); n > 0 {
				logger.Debug("Removed %d expired cooldowns", n)
			}
			return nil
		},
	}
}

// AuditFlushJob flushes the audit buffer every minute
func AuditFlushJob(a AuditFlusher) Job {
	return Job{
		Name:     JobAuditFlush,
		Interval: time.Minute,
		Run:      a.Flush,
	}
}

// RetentionJob prunes metrics older than retention and delivered reminders older than a week
func RetentionJob(metrics MetricsPruner, reminders ReminderPruner, retention, interval time.Duration,
	now func() time.Time, logger output.Logger) Job {
	return Job{
		Name:     JobRetention,
		Interval: interval,
		Run: func(ctx context.Context) error {
			removed, err := metrics.CleanupOldMetrics(ctx, retention)
			if err != nil {
				return err
			}
			delivered, err := reminders.DeleteDeliveredReminders(ctx, now().Add(-deliveredReminderTTL))
			if err != nil {
				return err
			}
			logger.Info("Retention cleanup: %d metrics, %d delivered reminders removed", removed, delivered)
			return nil
		},
	}
}

// VacuumJob runs VACUUM every interval
func VacuumJob(db Vacuumer, interval time.Duration, logger output.Logger) Job {
	return Job{
		Name:     JobVacuum,
		Interval: interval,
		Run: func(ctx context.Context) error {
			start := time.Now()
			if err := db.Vacuum(ctx); err != nil {
				return err
			}
			logger.Success("VACUUM completed successfully in %.2f seconds", time.Since(start).Seconds())
			return nil
		},
	}
}

// DailyStatsResetJob clears the daily counters at local midnight
func DailyStatsResetJob(r DailyResetter, logger output.Logger) Job {
	return Job{
		Name:  JobDailyStatsReset,
		Daily: true,
		Run: func(context.Context) error {
			r.ResetDaily()
			logger.Info("Daily statistics reset")
			return nil
		},
	}
}

// TempBanExpiryJob lifts temporary bans whose time is up, checking every minute.
// A record is dropped even when its unban fails.
func TempBanExpiryJob(store TempBanStore, unbanner Unbanner, now func() time.Time, logger output.Logger) Job {
	return Job{
		Name:     JobTempBanExpiry,
		Interval: time.Minute,
		Run: func(ctx context.Context) error {
			expired, err := store.ExpiredTempBans(ctx, now())
			if err != nil {
				return err
			}
			for _, b := range expired {
				if err := unbanner.Unban(ctx, b.GuildID, b.UserID); err != nil {
					logger.Warning("Failed to lift temp ban of %s in %s: %v", b.UserTag, b.GuildID, err)
				} else {
					logger.Info("Temp ban of %s in %s expired", b.UserTag, b.GuildID)
				}
				if err := store.DeleteTempBan(ctx, b.GuildID, b.UserID); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
