package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from a .env file into the process environment.
// A missing file is not an error; variables already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays secrets and deployment overrides from the environment
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, os.LookupEnv)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}

	if v, ok := get("DISCORD_TOKEN"); ok {
		cfg.Secrets.DiscordToken = v
	}
	if v, ok := get("GROQ_API_KEY"); ok {
		cfg.Secrets.GroqAPIKey = v
	}
	if v, ok := get("OPENWEATHER_API_KEY"); ok {
		cfg.Secrets.OpenWeatherAPIKey = v
	}

	if v, ok := get("GUILD_ID"); ok {
		cfg.Discord.GuildID = v
	}
	if v, ok := get("CHANNEL_ID"); ok {
		cfg.Discord.ChannelID = v
	}
	if v, ok := get("WELCOME_CHANNEL_ID"); ok {
		cfg.Discord.WelcomeChannelID = v
	}
	if v, ok := get("CRON_TIME"); ok {
		cfg.Report.Cron = v
	}
	if v, ok := get("TIMEZONE"); ok {
		cfg.Report.Timezone = v
	}
	if v, ok := get("REDIS_ADDR"); ok {
		cfg.Cache.RedisAddr = v
		cfg.Cache.Backend = "redis"
	}
	if v, ok := get("LOG_FORMAT"); ok {
		cfg.Logging.Format = v
	}

	port, ok := get("HEALTH_PORT")
	if !ok {
		port, ok = get("PORT")
	}
	if ok {
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid health port %q: %w", port, err)
		}
		cfg.Health.Port = n
	}

	return nil
}
