package config

import "time"

// Config represents the complete bot configuration
type Config struct {
	Discord   DiscordConfig             `toml:"discord"`
	Bot       BotConfig                 `toml:"bot"`
	Cooldown  CooldownConfig            `toml:"cooldown"`
	Upstreams map[string]UpstreamConfig `toml:"upstreams"`
	API       APIConfig                 `toml:"api"`
	Cache     CacheConfig               `toml:"cache"`
	Report    ReportConfig              `toml:"report"`
	AI        AIConfig                  `toml:"ai"`
	Health    HealthConfig              `toml:"health"`
	Database  DatabaseConfig            `toml:"database"`
	Logging   LoggingConfig             `toml:"logging"`

	// Secrets are never written to the config file
	Secrets Secrets `toml:"-"`
}

// Secrets holds credentials read from the environment
type Secrets struct {
	DiscordToken      string
	GroqAPIKey        string
	OpenWeatherAPIKey string
}

// DiscordConfig contains gateway and slash command settings
type DiscordConfig struct {
	GuildID          string `toml:"guild_id"`
	ChannelID        string `toml:"channel_id"`
	WelcomeChannelID string `toml:"welcome_channel_id"`
	RegisterCommands bool   `toml:"register_commands"`
}

// BotConfig contains bot behavior settings
type BotConfig struct {
	TestMode bool   `toml:"test_mode"`
	DataDir  string `toml:"data_dir"`
	ErrorLog string `toml:"error_log"`
}

// CooldownConfig contains per-user command cooldown settings
type CooldownConfig struct {
	WindowMS          int `toml:"window_ms"`
	MaxCommands       int `toml:"max_commands"`
	CooldownMS        int `toml:"cooldown_ms"`
	CleanupIntervalMS int `toml:"cleanup_interval_ms"`
}

// UpstreamConfig is the outbound request budget for one third-party API
type UpstreamConfig struct {
	MaxRequests int `toml:"max_requests"`
	WindowMS    int `toml:"window_ms"`
}

// APIConfig contains upstream HTTP client settings
type APIConfig struct {
	CircuitBreakerThreshold int `toml:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   int `toml:"circuit_breaker_timeout"`
	MaxRetries              int `toml:"max_retries"`
	RetryBackoffMS          int `toml:"retry_backoff_ms"`
	RequestTimeout          int `toml:"request_timeout"`
}

// CacheConfig selects the rate cache backend
type CacheConfig struct {
	Backend            string `toml:"backend"`
	RedisAddr          string `toml:"redis_addr"`
	RedisDB            int    `toml:"redis_db"`
	CurrencyTTLSeconds int    `toml:"currency_ttl_seconds"`
	CryptoTTLSeconds   int    `toml:"crypto_ttl_seconds"`
}

// ReportConfig contains the daily report schedule
type ReportConfig struct {
	Cron     string `toml:"cron"`
	Timezone string `toml:"timezone"`
}

// AIConfig contains completion model settings
type AIConfig struct {
	Model              string  `toml:"model"`
	DefaultMaxTokens   int     `toml:"default_max_tokens"`
	DefaultTemperature float64 `toml:"default_temperature"`
}

// HealthConfig contains the health endpoint settings
type HealthConfig struct {
	Port int `toml:"port"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path                 string `toml:"path"`
	WALMode              bool   `toml:"wal_mode"`
	VacuumInterval       int    `toml:"vacuum_interval"`
	MetricsRetentionDays int    `toml:"metrics_retention_days"`
	AuditMaxEntries      int    `toml:"audit_max_entries"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Format       string `toml:"format"`
	Level        string `toml:"level"`
	MaxLogSizeMB int    `toml:"max_log_size_mb"`
	MaxLogFiles  int    `toml:"max_log_files"`
}

// GetWindowDuration returns the cooldown window as a time.Duration
func (c *CooldownConfig) GetWindowDuration() time.Duration {
	return time.Duration(c.WindowMS) * time.Millisecond
}

// GetCooldownDuration returns the post-burst cooldown as a time.Duration
func (c *CooldownConfig) GetCooldownDuration() time.Duration {
	return time.Duration(c.CooldownMS) * time.Millisecond
}

// GetCleanupIntervalDuration returns the cleanup interval as a time.Duration
func (c *CooldownConfig) GetCleanupIntervalDuration() time.Duration {
	return time.Duration(c.CleanupIntervalMS) * time.Millisecond
}

// GetWindowDuration returns the upstream window as a time.Duration
func (c UpstreamConfig) GetWindowDuration() time.Duration {
	return time.Duration(c.WindowMS) * time.Millisecond
}

// GetCircuitBreakerTimeoutDuration returns the circuit breaker timeout as a time.Duration
func (c *APIConfig) GetCircuitBreakerTimeoutDuration() time.Duration {
	return time.Duration(c.CircuitBreakerTimeout) * time.Second
}

// GetRetryBackoffDuration returns the initial retry backoff as a time.Duration
func (c *APIConfig) GetRetryBackoffDuration() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

// GetRequestTimeoutDuration returns the per-request timeout as a time.Duration
func (c *APIConfig) GetRequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// GetCurrencyTTLDuration returns the currency cache TTL as a time.Duration
func (c *CacheConfig) GetCurrencyTTLDuration() time.Duration {
	return time.Duration(c.CurrencyTTLSeconds) * time.Second
}

// GetCryptoTTLDuration returns the crypto cache TTL as a time.Duration
func (c *CacheConfig) GetCryptoTTLDuration() time.Duration {
	return time.Duration(c.CryptoTTLSeconds) * time.Second
}

// GetVacuumIntervalDuration returns the vacuum interval as a time.Duration
func (c *DatabaseConfig) GetVacuumIntervalDuration() time.Duration {
	return time.Duration(c.VacuumInterval) * time.Second
}

// GetMetricsRetentionDuration returns the metrics retention as a time.Duration
func (c *DatabaseConfig) GetMetricsRetentionDuration() time.Duration {
	return time.Duration(c.MetricsRetentionDays) * 24 * time.Hour
}

// Location loads the report timezone
func (c *ReportConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
