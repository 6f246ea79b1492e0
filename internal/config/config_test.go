package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := validate(DefaultConfig()); err != nil {
		t.Fatalf("validate(DefaultConfig()) = %v, want nil", err)
	}
}

func TestDefaultUpstreams(t *testing.T) {
	tests := []struct {
		name string
		max  int
	}{
		{"monobank", 1},
		{"coingecko", 10},
		{"weather", 60},
		{"translate", 100},
		{"groq", 30},
		{"emoji-cdn", 20},
	}

	ups := DefaultUpstreams()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up, ok := ups[tt.name]
			if !ok {
				t.Fatalf("upstream %s not registered", tt.name)
			}
			if up.MaxRequests != tt.max || up.WindowMS != 60000 {
				t.Errorf("%s = %d/%d, want %d/60000", tt.name, up.MaxRequests, up.WindowMS, tt.max)
			}
		})
	}
}

func TestLoadOrCreate_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "bot.toml")

	created, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config file not written: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Cooldown != created.Cooldown {
		t.Errorf("Cooldown = %+v, want %+v", loaded.Cooldown, created.Cooldown)
	}
	if loaded.Upstreams["monobank"] != created.Upstreams["monobank"] {
		t.Errorf("monobank upstream = %+v, want %+v", loaded.Upstreams["monobank"], created.Upstreams["monobank"])
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.toml")
	content := "[cooldown]\nmax_commands = 10\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Cooldown.MaxCommands != 10 {
		t.Errorf("MaxCommands = %d, want 10", cfg.Cooldown.MaxCommands)
	}
	if cfg.Cooldown.WindowMS != 60000 {
		t.Errorf("WindowMS = %d, want default 60000", cfg.Cooldown.WindowMS)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"window", func(c *Config) { c.Cooldown.WindowMS = 0 }, "cooldown.window_ms must be positive"},
		{"upstream", func(c *Config) { c.Upstreams["groq"] = UpstreamConfig{MaxRequests: 0, WindowMS: 1} }, "upstreams.groq.max_requests"},
		{"cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "cache.backend"},
		{"cron", func(c *Config) { c.Report.Cron = "0 9 * *" }, "report.cron"},
		{"timezone", func(c *Config) { c.Report.Timezone = "Mars/Olympus" }, "report.timezone"},
		{"temperature", func(c *Config) { c.AI.DefaultTemperature = 3 }, "ai.default_temperature"},
		{"port", func(c *Config) { c.Health.Port = 70000 }, "health.port"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DISCORD_TOKEN": "token",
		"GROQ_API_KEY":  "gsk",
		"GUILD_ID":      "123456789012345678",
		"CRON_TIME":     "30 8 * * *",
		"TIMEZONE":      "UTC",
		"PORT":          "8080",
		"REDIS_ADDR":    "redis:6379",
		"LOG_FORMAT":    "json",
		"CHANNEL_ID":    "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	if err := applyEnv(cfg, lookup); err != nil {
		t.Fatalf("applyEnv() error = %v", err)
	}

	if cfg.Secrets.DiscordToken != "token" || cfg.Secrets.GroqAPIKey != "gsk" {
		t.Errorf("Secrets = %+v", cfg.Secrets)
	}
	if cfg.Discord.GuildID != "123456789012345678" {
		t.Errorf("GuildID = %q", cfg.Discord.GuildID)
	}
	if cfg.Report.Cron != "30 8 * * *" || cfg.Report.Timezone != "UTC" {
		t.Errorf("Report = %+v", cfg.Report)
	}
	if cfg.Health.Port != 8080 {
		t.Errorf("Health.Port = %d, want 8080 from PORT", cfg.Health.Port)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.RedisAddr != "redis:6379" {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q", cfg.Logging.Format)
	}
	if cfg.Discord.ChannelID != "" {
		t.Errorf("empty CHANNEL_ID should not override, got %q", cfg.Discord.ChannelID)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestApplyEnv_HealthPortPrecedence(t *testing.T) {
	env := map[string]string{"HEALTH_PORT": "9000", "PORT": "8080"}
	cfg := DefaultConfig()
	if err := applyEnv(cfg, func(k string) (string, bool) { v, ok := env[k]; return v, ok }); err != nil {
		t.Fatal(err)
	}
	if cfg.Health.Port != 9000 {
		t.Errorf("Health.Port = %d, want 9000", cfg.Health.Port)
	}

	env = map[string]string{"PORT": "abc"}
	if err := applyEnv(DefaultConfig(), func(k string) (string, bool) { v, ok := env[k]; return v, ok }); err == nil {
		t.Error("applyEnv() with non-numeric PORT should fail")
	}
}

func TestValidate_RequiresToken(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() without DISCORD_TOKEN should fail")
	}
	cfg.Bot.TestMode = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() in test mode = %v, want nil", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("GUILDBOT_TEST_VAR=from-dotenv\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GUILDBOT_TEST_VAR", "")
	if err := os.Unsetenv("GUILDBOT_TEST_VAR"); err != nil {
		t.Fatal(err)
	}

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("GUILDBOT_TEST_VAR"); got != "from-dotenv" {
		t.Errorf("GUILDBOT_TEST_VAR = %q, want from-dotenv", got)
	}
}
