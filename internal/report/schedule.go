package report

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/guildbot/internal/clock"
)

// Schedule is a daily cron schedule of the form "m h * * *".
// Minute and hour fields accept a number, "*", or a comma-separated list.
type Schedule struct {
	expr    string
	minutes []int
	hours   []int
	loc     *time.Location
}

// ParseSchedule parses expr in loc
func ParseSchedule(expr string, loc *time.Location) (*Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron %q: expected 5 fields, got %d", expr, len(fields))
	}
	for i, f := range fields[2:] {
		if f != "*" {
			return nil, fmt.Errorf("cron %q: field %d must be *, got %q", expr, i+3, f)
		}
	}

	minutes, err := parseField(fields[0], 0, 59)
	if err != nil {
		return nil, fmt.Errorf("cron %q: minute: %w", expr, err)
	}
	hours, err := parseField(fields[1], 0, 23)
	if err != nil {
		return nil, fmt.Errorf("cron %q: hour: %w", expr, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Schedule{expr: expr, minutes: minutes, hours: hours, loc: loc}, nil
}

func parseField(f string, lo, hi int) ([]int, error) {
	if f == "*" {
		out := make([]int, 0, hi-lo+1)
		for v := lo; v <= hi; v++ {
			out = append(out, v)
		}
		return out, nil
	}

	seen := make(map[int]bool)
	var out []int
	for _, part := range strings.Split(f, ",") {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q", part)
		}
		if v < lo || v > hi {
			return nil, fmt.Errorf("value %d out of range %d-%d", v, lo, hi)
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out, nil
}

// String returns the original expression
func (s *Schedule) String() string {
	return s.expr
}

// Next returns the first fire time strictly after after
func (s *Schedule) Next(after time.Time) time.Time {
	t := after.In(s.loc)
	for day := 0; day < 3; day++ {
		y, m, d := t.AddDate(0, 0, day).Date()
		for _, h := range s.hours {
			for _, mi := range s.minutes {
				candidate := time.Date(y, m, d, h, mi, 0, 0, s.loc)
				if candidate.After(after) {
					return candidate
				}
			}
		}
	}
	// Unreachable: every day has at least one slot
	return after.Add(24 * time.Hour)
}

// Run calls fn at every fire time until ctx is done
func (s *Schedule) Run(ctx context.Context, clk clock.Clock, fn func(ctx context.Context)) error {
	if clk == nil {
		clk = clock.Real()
	}
	for {
		now := clk.Now()
		if err := clk.Sleep(ctx, s.Next(now).Sub(now)); err != nil {
			return err
		}
		fn(ctx)
	}
}
