package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/yourusername/guildbot/internal/clock"
)

// MetricType represents the type of metric being recorded
type MetricType string

const (
	MetricTypeCommand    MetricType = "command"
	MetricTypeAPILatency MetricType = "api_latency"
	MetricTypeError      MetricType = "error"
)

// MetricsStats holds aggregated metrics statistics
type MetricsStats struct {
	CommandCounts     map[string]int64
	AverageAPILatency float64
	ErrorCounts       map[string]int64
	Stats24h          *TimeWindowStats
	Stats7d           *TimeWindowStats
	Stats30d          *TimeWindowStats
}

// TimeWindowStats holds statistics for a specific time window
type TimeWindowStats struct {
	CommandCount     int64
	AverageLatency   float64
	ErrorCount       int64
	UniqueCommands   int64
	UniqueErrorTypes int64
}

// Collector persists metric data points to the metrics table
type Collector struct {
	conn  *sql.DB
	clock clock.Clock
}

// NewCollector creates a new metrics collector
func NewCollector(conn *sql.DB, clk clock.Clock) *Collector {
	if clk == nil {
		clk = clock.Real()
	}
	return &Collector{conn: conn, clock: clk}
}

func (c *Collector) record(ctx context.Context, metricType MetricType, name string, value float64) error {
	_, err := c.conn.ExecContext(ctx,
		"INSERT INTO metrics (timestamp, metric_type, metric_name, value) VALUES (?, ?, ?, ?)",
		c.clock.Now().UnixMilli(),
		metricType,
		name,
		value,
	)
	return err
}

// RecordCommandUsage records that a command was executed
func (c *Collector) RecordCommandUsage(ctx context.Context, commandName string) error {
	if err := c.record(ctx, MetricTypeCommand, commandName, 1.0); err != nil {
		return fmt.Errorf("failed to record command usage: %w", err)
	}
	return nil
}

// RecordAPILatency records the latency of an upstream request in milliseconds
func (c *Collector) RecordAPILatency(ctx context.Context, service string, latencyMs float64) error {
	if err := c.record(ctx, MetricTypeAPILatency, service, latencyMs); err != nil {
		return fmt.Errorf("failed to record API latency: %w", err)
	}
	return nil
}

// RecordError records that an error occurred
func (c *Collector) RecordError(ctx context.Context, errorType string) error {
	if err := c.record(ctx, MetricTypeError, errorType, 1.0); err != nil {
		return fmt.Errorf("failed to record error: %w", err)
	}
	return nil
}

// GetMetricsStats retrieves aggregated metrics statistics
func (c *Collector) GetMetricsStats(ctx context.Context) (*MetricsStats, error) {
	stats := &MetricsStats{}

	var err error
	stats.CommandCounts, err = c.countByName(ctx, MetricTypeCommand)
	if err != nil {
		return nil, fmt.Errorf("failed to query command counts: %w", err)
	}

	stats.ErrorCounts, err = c.countByName(ctx, MetricTypeError)
	if err != nil {
		return nil, fmt.Errorf("failed to query error counts: %w", err)
	}

	var avgLatency sql.NullFloat64
	err = c.conn.QueryRowContext(ctx,
		"SELECT AVG(value) FROM metrics WHERE metric_type = ?",
		MetricTypeAPILatency,
	).Scan(&avgLatency)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query average API latency: %w", err)
	}
	if avgLatency.Valid {
		stats.AverageAPILatency = avgLatency.Float64
	}

	stats.Stats24h, err = c.getTimeWindowStats(ctx, 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("failed to get 24h stats: %w", err)
	}

	stats.Stats7d, err = c.getTimeWindowStats(ctx, 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("failed to get 7d stats: %w", err)
	}

	stats.Stats30d, err = c.getTimeWindowStats(ctx, 30*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("failed to get 30d stats: %w", err)
	}

	return stats, nil
}

func (c *Collector) countByName(ctx context.Context, metricType MetricType) (map[string]int64, error) {
	rows, err := c.conn.QueryContext(ctx,
		"SELECT metric_name, COUNT(*) as count FROM metrics WHERE metric_type = ? GROUP BY metric_name",
		metricType,
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[string]int64)
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		counts[name] = count
	}
	return counts, rows.Err()
}

// getTimeWindowStats retrieves statistics for a specific time window
func (c *Collector) getTimeWindowStats(ctx context.Context, window time.Duration) (*TimeWindowStats, error) {
	stats := &TimeWindowStats{}
	cutoffTime := c.clock.Now().Add(-window).UnixMilli()

	err := c.conn.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT metric_name) FROM metrics WHERE metric_type = ? AND timestamp > ?",
		MetricTypeCommand,
		cutoffTime,
	).Scan(&stats.CommandCount, &stats.UniqueCommands)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query command count: %w", err)
	}

	var avgLatency sql.NullFloat64
	err = c.conn.QueryRowContext(ctx,
		"SELECT AVG(value) FROM metrics WHERE metric_type = ? AND timestamp > ?",
		MetricTypeAPILatency,
		cutoffTime,
	).Scan(&avgLatency)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query average latency: %w", err)
	}
	if avgLatency.Valid {
		stats.AverageLatency = avgLatency.Float64
	}

	err = c.conn.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT metric_name) FROM metrics WHERE metric_type = ? AND timestamp > ?",
		MetricTypeError,
		cutoffTime,
	).Scan(&stats.ErrorCount, &stats.UniqueErrorTypes)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query error count: %w", err)
	}

	return stats, nil
}

// CleanupOldMetrics deletes metrics older than the specified duration and
// returns how many rows were removed
func (c *Collector) CleanupOldMetrics(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoffTime := c.clock.Now().Add(-olderThan).UnixMilli()
	result, err := c.conn.ExecContext(ctx,
		"DELETE FROM metrics WHERE timestamp < ?",
		cutoffTime,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old metrics: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}
