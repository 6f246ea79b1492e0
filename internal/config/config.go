package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultConfigPath = "config/bot.toml"
)

// Load reads and parses the configuration file from the specified path.
// If path is empty, it uses the default path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigPath
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found at %s", path)
	}

	// Start from defaults so sections missing from the file keep sane values
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrCreate attempts to load the configuration file, and if it doesn't exist,
// creates a default configuration file and returns the default config.
func LoadOrCreate(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigPath
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("Configuration file not found. Creating default configuration at %s\n", path)

		defaultCfg := DefaultConfig()
		if err := CreateDefault(path, defaultCfg); err != nil {
			return nil, fmt.Errorf("failed to create default configuration: %w", err)
		}

		return defaultCfg, nil
	}

	return Load(path)
}

// CreateDefault creates a default configuration file at the specified path
func CreateDefault(path string, cfg *Config) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultUpstreams returns the outbound request budgets of the third-party APIs
func DefaultUpstreams() map[string]UpstreamConfig {
	return map[string]UpstreamConfig{
		"monobank":  {MaxRequests: 1, WindowMS: 60000},
		"coingecko": {MaxRequests: 10, WindowMS: 60000},
		"weather":   {MaxRequests: 60, WindowMS: 60000},
		"translate": {MaxRequests: 100, WindowMS: 60000},
		"groq":      {MaxRequests: 30, WindowMS: 60000},
		"emoji-cdn": {MaxRequests: 20, WindowMS: 60000},
	}
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Discord: DiscordConfig{
			RegisterCommands: true,
		},
		Bot: BotConfig{
			TestMode: false,
			DataDir:  "data",
			ErrorLog: "data/error.log",
		},
		Cooldown: CooldownConfig{
			WindowMS:          60000,
			MaxCommands:       30,
			CooldownMS:        5000,
			CleanupIntervalMS: 300000, // 5 minutes
		},
		Upstreams: DefaultUpstreams(),
		API: APIConfig{
			CircuitBreakerThreshold: 5,  // failures before opening circuit
			CircuitBreakerTimeout:   30, // seconds before retry
			MaxRetries:              2,
			RetryBackoffMS:          250, // initial backoff, doubles each retry
			RequestTimeout:          30,
		},
		Cache: CacheConfig{
			Backend:            "memory",
			RedisAddr:          "localhost:6379",
			CurrencyTTLSeconds: 60,
			CryptoTTLSeconds:   30,
		},
		Report: ReportConfig{
			Cron:     "0 9 * * *",
			Timezone: "Europe/Kyiv",
		},
		AI: AIConfig{
			Model:              "llama-3.3-70b-versatile",
			DefaultMaxTokens:   1024,
			DefaultTemperature: 0.3,
		},
		Health: HealthConfig{
			Port: 3000,
		},
		Database: DatabaseConfig{
			Path:                 "data/bot.db",
			WALMode:              true,
			VacuumInterval:       86400, // 24 hours in seconds
			MetricsRetentionDays: 30,
			AuditMaxEntries:      10000,
		},
		Logging: LoggingConfig{
			Format:       "color",
			Level:        "info",
			MaxLogSizeMB: 10,
			MaxLogFiles:  5,
		},
	}
}

// validate checks that all required configuration fields are present and valid
func validate(cfg *Config) error {
	// Validate cooldown settings
	if cfg.Cooldown.WindowMS <= 0 {
		return fmt.Errorf("cooldown.window_ms must be positive, got %d", cfg.Cooldown.WindowMS)
	}
	if cfg.Cooldown.MaxCommands <= 0 {
		return fmt.Errorf("cooldown.max_commands must be positive, got %d", cfg.Cooldown.MaxCommands)
	}
	if cfg.Cooldown.CooldownMS < 0 {
		return fmt.Errorf("cooldown.cooldown_ms must be non-negative, got %d", cfg.Cooldown.CooldownMS)
	}
	if cfg.Cooldown.CleanupIntervalMS <= 0 {
		return fmt.Errorf("cooldown.cleanup_interval_ms must be positive, got %d", cfg.Cooldown.CleanupIntervalMS)
	}

	// Validate upstream budgets
	for name, up := range cfg.Upstreams {
		if up.MaxRequests <= 0 {
			return fmt.Errorf("upstreams.%s.max_requests must be positive, got %d", name, up.MaxRequests)
		}
		if up.WindowMS <= 0 {
			return fmt.Errorf("upstreams.%s.window_ms must be positive, got %d", name, up.WindowMS)
		}
	}

	// Validate API settings
	if cfg.API.CircuitBreakerThreshold <= 0 {
		return fmt.Errorf("api.circuit_breaker_threshold must be positive, got %d", cfg.API.CircuitBreakerThreshold)
	}
	if cfg.API.CircuitBreakerTimeout <= 0 {
		return fmt.Errorf("api.circuit_breaker_timeout must be positive, got %d", cfg.API.CircuitBreakerTimeout)
	}
	if cfg.API.MaxRetries < 0 {
		return fmt.Errorf("api.max_retries must be non-negative, got %d", cfg.API.MaxRetries)
	}
	if cfg.API.RetryBackoffMS <= 0 {
		return fmt.Errorf("api.retry_backoff_ms must be positive, got %d", cfg.API.RetryBackoffMS)
	}
	if cfg.API.RequestTimeout <= 0 {
		return fmt.Errorf("api.request_timeout must be positive, got %d", cfg.API.RequestTimeout)
	}

	// Validate cache settings
	switch cfg.Cache.Backend {
	case "memory":
	case "redis":
		if cfg.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required when cache.backend is redis")
		}
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", cfg.Cache.Backend)
	}
	if cfg.Cache.CurrencyTTLSeconds <= 0 {
		return fmt.Errorf("cache.currency_ttl_seconds must be positive, got %d", cfg.Cache.CurrencyTTLSeconds)
	}
	if cfg.Cache.CryptoTTLSeconds <= 0 {
		return fmt.Errorf("cache.crypto_ttl_seconds must be positive, got %d", cfg.Cache.CryptoTTLSeconds)
	}

	// Validate report schedule
	if len(strings.Fields(cfg.Report.Cron)) != 5 {
		return fmt.Errorf("report.cron must have 5 fields, got %q", cfg.Report.Cron)
	}
	if _, err := time.LoadLocation(cfg.Report.Timezone); err != nil {
		return fmt.Errorf("report.timezone is invalid: %w", err)
	}

	// Validate AI settings
	if cfg.AI.Model == "" {
		return fmt.Errorf("ai.model is required")
	}
	if cfg.AI.DefaultMaxTokens <= 0 {
		return fmt.Errorf("ai.default_max_tokens must be positive, got %d", cfg.AI.DefaultMaxTokens)
	}
	if cfg.AI.DefaultTemperature < 0 || cfg.AI.DefaultTemperature > 2 {
		return fmt.Errorf("ai.default_temperature must be between 0 and 2, got %g", cfg.AI.DefaultTemperature)
	}

	// Validate health settings
	if cfg.Health.Port <= 0 || cfg.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 1 and 65535, got %d", cfg.Health.Port)
	}

	// Validate database settings
	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if cfg.Database.VacuumInterval <= 0 {
		return fmt.Errorf("database.vacuum_interval must be positive, got %d", cfg.Database.VacuumInterval)
	}
	if cfg.Database.MetricsRetentionDays <= 0 {
		return fmt.Errorf("database.metrics_retention_days must be positive, got %d", cfg.Database.MetricsRetentionDays)
	}
	if cfg.Database.AuditMaxEntries <= 0 {
		return fmt.Errorf("database.audit_max_entries must be positive, got %d", cfg.Database.AuditMaxEntries)
	}

	// Validate logging settings
	if cfg.Logging.Format != "color" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be color or json, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.MaxLogSizeMB <= 0 {
		return fmt.Errorf("logging.max_log_size_mb must be positive, got %d", cfg.Logging.MaxLogSizeMB)
	}
	if cfg.Logging.MaxLogFiles <= 0 {
		return fmt.Errorf("logging.max_log_files must be positive, got %d", cfg.Logging.MaxLogFiles)
	}

	return nil
}

// Validate re-checks the configuration after environment overrides
func (c *Config) Validate() error {
	if err := validate(c); err != nil {
		return err
	}
	if c.Secrets.DiscordToken == "" && !c.Bot.TestMode {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	return nil
}
