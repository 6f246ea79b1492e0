package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prom holds the bot's prometheus instruments on a dedicated registry
type Prom struct {
	registry *prometheus.Registry

	CommandsTotal     *prometheus.CounterVec
	CommandErrors     *prometheus.CounterVec
	RateLimitDenials  *prometheus.CounterVec
	UpstreamDuration  *prometheus.HistogramVec
	CircuitState      *prometheus.GaugeVec
	ToxicPostsTotal   prometheus.Counter
	ToxicActiveTimers prometheus.Gauge
	QueueDropped      prometheus.Counter
}

// NewProm creates and registers all instruments
func NewProm() *Prom {
	p := &Prom{
		registry: prometheus.NewRegistry(),

		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guildbot_commands_total",
				Help: "Total number of slash commands executed.",
			},
			[]string{"command"},
		),

		CommandErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guildbot_command_errors_total",
				Help: "Total number of failed slash commands by error type.",
			},
			[]string{"type"},
		),

		RateLimitDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guildbot_rate_limit_denials_total",
				Help: "Total number of requests denied by a limiter.",
			},
			[]string{"limiter"},
		),

		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "guildbot_upstream_request_duration_seconds",
				Help:    "Third-party API request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "outcome"},
		),

		CircuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "guildbot_circuit_breaker_state",
				Help: "Circuit breaker state per upstream (0 closed, 1 open, 2 half-open).",
			},
			[]string{"service"},
		),

		ToxicPostsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "guildbot_toxic_posts_total",
				Help: "Total number of toxic-mode posts sent.",
			},
		),

		ToxicActiveTimers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "guildbot_toxic_active_timers",
				Help: "Number of guilds with a running toxic-mode timer.",
			},
		),

		QueueDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "guildbot_message_queue_dropped_total",
				Help: "Total number of background posts dropped on queue overflow.",
			},
		),
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.CommandsTotal,
		p.CommandErrors,
		p.RateLimitDenials,
		p.UpstreamDuration,
		p.CircuitState,
		p.ToxicPostsTotal,
		p.ToxicActiveTimers,
		p.QueueDropped,
	)

	return p
}

// Registry returns the underlying registry
func (p *Prom) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the prometheus exposition format
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
