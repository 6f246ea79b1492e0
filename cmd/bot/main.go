package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"

	"github.com/yourusername/guildbot/internal/ai"
	"github.com/yourusername/guildbot/internal/audit"
	"github.com/yourusername/guildbot/internal/cache"
	"github.com/yourusername/guildbot/internal/clock"
	"github.com/yourusername/guildbot/internal/commands"
	"github.com/yourusername/guildbot/internal/config"
	"github.com/yourusername/guildbot/internal/converter"
	"github.com/yourusername/guildbot/internal/database"
	"github.com/yourusername/guildbot/internal/discord"
	"github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/health"
	"github.com/yourusername/guildbot/internal/maintenance"
	"github.com/yourusername/guildbot/internal/metrics"
	"github.com/yourusername/guildbot/internal/mockapi"
	"github.com/yourusername/guildbot/internal/output"
	"github.com/yourusername/guildbot/internal/ratelimit"
	"github.com/yourusername/guildbot/internal/rates"
	"github.com/yourusername/guildbot/internal/reminder"
	"github.com/yourusername/guildbot/internal/report"
	"github.com/yourusername/guildbot/internal/settings"
	"github.com/yourusername/guildbot/internal/shutdown"
	"github.com/yourusername/guildbot/internal/stats"
	"github.com/yourusername/guildbot/internal/toxic"
	"github.com/yourusername/guildbot/internal/translate"
	"github.com/yourusername/guildbot/internal/upstream"
	"github.com/yourusername/guildbot/internal/weather"
)

const (
	configPath        = "config/bot.toml"
	userAgent         = "guildbot/" + commands.BotVersion
	retentionInterval = 24 * time.Hour
)

func main() {
	// Parse command-line flags
	rollbackFlag := flag.Bool("rollback", false, "Rollback the last applied database migration")
	flag.Parse()

	// Colored logger until the configured one is ready
	logger := output.Logger(output.NewColorLogger())
	logger.Info("Guild Bot - Starting...")

	if err := config.LoadDotEnv(); err != nil {
		logger.Warning("Failed to load .env: %v", err)
	}

	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	if err := config.ApplyEnv(cfg); err != nil {
		logger.Error("Failed to apply environment: %v", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}

	if l, err := output.New(cfg.Logging.Format, output.ParseLevel(cfg.Logging.Level)); err != nil {
		logger.Warning("Falling back to colored logger: %v", err)
	} else {
		logger = l
	}
	logger.Success("Configuration loaded")

	// Database first, it is all the rollback flag needs
	var db *database.DB
	if cfg.Bot.TestMode {
		logger.Info("Test mode enabled - using in-memory database")
		db, err = database.NewMemory()
	} else {
		db, err = database.Open(database.Options{Path: cfg.Database.Path, WALMode: cfg.Database.WALMode})
	}
	if err != nil {
		logger.Error("Failed to initialize database: %v", err)
		os.Exit(1)
	}
	logger.Success("Database initialized")

	if *rollbackFlag {
		logger.Info("Rolling back last migration...")
		if err := db.Rollback(); err != nil {
			logger.Error("Rollback failed: %v", err)
			_ = db.Close()
			os.Exit(1)
		}
		logger.Success("Migration rolled back successfully")
		_ = db.Close()
		os.Exit(0)
	}

	out, err := output.NewOutput(logger, cfg.Bot.ErrorLog, cfg.Logging.MaxLogSizeMB, cfg.Logging.MaxLogFiles)
	if err != nil {
		logger.Error("Failed to initialize output: %v", err)
		_ = db.Close()
		os.Exit(1)
	}
	logger.Success("Output and error logging initialized")

	clk := clock.Real()
	prom := metrics.NewProm()
	collector := metrics.NewCollector(db.Conn(), clk)
	recorder := metrics.NewRecorder(prom, collector, logger)
	tracker := stats.NewTracker(clk)

	settingsMgr := settings.NewManager(db, clk, logger)

	cooldowns := ratelimit.NewCooldownManager(ratelimit.CooldownConfig{
		Window:      cfg.Cooldown.GetWindowDuration(),
		MaxCommands: cfg.Cooldown.MaxCommands,
		Cooldown:    cfg.Cooldown.GetCooldownDuration(),
	}, clk)
	outbound := ratelimit.New(clk, logger)
	outbound.OnDenied = recorder.RateLimitDenied
	outbound.RegisterDefaults(cfg.Upstreams)
	aiLimiter := ratelimit.NewAIRateLimiter(settingsMgr, clk)
	logger.Success("Rate limiters configured")

	rateCache, redisClient, err := newRateCache(cfg.Cache, clk)
	if err != nil {
		logger.Error("Failed to initialize cache: %v", err)
		_ = db.Close()
		os.Exit(1)
	}
	logger.Success("Rate cache ready (%s)", cfg.Cache.Backend)

	upstreamClient := upstream.New(upstream.NewHTTPClient(), upstream.Config{
		MaxRetries:       cfg.API.MaxRetries,
		RetryBackoff:     cfg.API.GetRetryBackoffDuration(),
		RequestTimeout:   cfg.API.GetRequestTimeoutDuration(),
		BreakerThreshold: cfg.API.CircuitBreakerThreshold,
		BreakerTimeout:   cfg.API.GetCircuitBreakerTimeoutDuration(),
		UserAgent:        userAgent,
	}, outbound, recorder, clk, logger)
	upstreamClient.SetHealthCheck("coingecko", rates.CoinGeckoPingURL)

	var (
		currencyProvider rates.CurrencyProvider
		cryptoProvider   rates.CryptoProvider
		aiClient         commands.AIClient
	)
	if cfg.Bot.TestMode {
		logger.Info("Test mode enabled - using mock rates and completions")
		mockRates := mockapi.NewRates()
		currencyProvider = mockRates.CurrencyProvider()
		cryptoProvider = mockRates.CryptoProvider()
		aiClient = mockapi.NewCompleter()
	} else {
		currencyProvider = rates.NewMonobankClient(upstreamClient, "", clk)
		cryptoProvider = rates.NewCoinGeckoClient(upstreamClient, "", clk)
		groq := ai.NewGroqClient(upstreamClient, cfg.Secrets.GroqAPIKey, cfg.AI, logger)
		if !groq.Configured() {
			logger.Warning("GROQ_API_KEY is not set - AI commands and toxic mode are disabled")
		}
		aiClient = groq
	}
	currencyProvider = rates.NewCachedCurrencyProvider(currencyProvider, rateCache, cfg.Cache.GetCurrencyTTLDuration())
	cryptoProvider = rates.NewCachedCryptoProvider(cryptoProvider, rateCache, cfg.Cache.GetCryptoTTLDuration())

	weatherClient := weather.NewClient(upstreamClient, cfg.Secrets.OpenWeatherAPIKey)
	if !weatherClient.Configured() {
		logger.Warning("OPENWEATHER_API_KEY is not set - /weather is disabled")
	}
	translateClient := translate.NewClient(upstreamClient)

	convertUseCase := converter.NewUseCase(converter.NewService(), currencyProvider)

	auditLogger := audit.NewLogger(db, cfg.Database.AuditMaxEntries, clk, logger)

	registry := commands.NewRegistry()
	dispatcher := commands.NewDispatcher(commands.DispatcherConfig{
		Registry:  registry,
		Cooldowns: cooldowns,
		Stats:     tracker,
		Metrics:   recorder,
		Audit:     auditLogger,
		Settings:  settingsMgr,
		Errors:    errors.NewErrorHandler(out),
		Logger:    logger,
	})

	// The bot only needs the dispatcher to exist; commands are registered
	// once the features that depend on the bot are built
	bot, err := discord.New(discord.Options{
		Token:      cfg.Secrets.DiscordToken,
		Discord:    cfg.Discord,
		Dispatcher: dispatcher,
		Settings:   settingsMgr,
		Observer:   recorder,
		Clock:      clk,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("Failed to create Discord client: %v", err)
		_ = db.Close()
		os.Exit(1)
	}

	toxicMgr := toxic.NewManager(settingsMgr, aiClient, bot.Actions(), bot, clk, logger)
	toxicMgr.Observer = recorder
	settingsMgr.OnChange(func(guildID string, _, _ settings.GuildSettings) {
		toxicMgr.Apply(guildID)
	})

	reminders := reminder.NewScheduler(db, bot, clk, logger)

	registerCommands(registry, commandDeps{
		clock:      clk,
		tracker:    tracker,
		upstream:   upstreamClient,
		history:    collector,
		currency:   currencyProvider,
		crypto:     cryptoProvider,
		converter:  convertUseCase,
		ai:         commands.NewAIDeps(aiClient, aiLimiter, settingsMgr, clk),
		settings:   settingsMgr,
		toxic:      toxicMgr,
		audit:      auditLogger,
		weather:    weatherClient,
		translator: translateClient,
		reminders:  reminders,
		tempBans:   db,
		timezone:   reportLocation(cfg.Report, logger),
	})
	logger.Success("Registered %d commands", registry.Len())

	builder := report.NewBuilder(settingsMgr, currencyProvider, cryptoProvider, tracker, bot.Actions(), clk, logger)
	bot.SetStartupBuilder(builder)

	healthSrv := health.NewServer(cfg.Health.Port, bot.IsReady, prom.Handler(), clk, logger)

	bot.OnReady(func(ctx context.Context, guildIDs []string) {
		healthSrv.SetReady(true)
		toxicMgr.RestoreTimers(guildIDs)
		n, err := reminders.Restore(ctx)
		if err != nil {
			logger.Error("Failed to restore reminders: %v", err)
			return
		}
		logger.Info("Restored %d pending reminder(s)", n)
	})

	bot.OnGuildRemoved(func(ctx context.Context, guildID string) {
		toxicMgr.StopTimer(guildID)
		if err := settingsMgr.Forget(ctx, guildID); err != nil {
			logger.Error("Failed to forget settings for %s: %v", guildID, err)
		}
	})

	maintenanceScheduler := maintenance.New(clk, logger,
		maintenance.CooldownCleanupJob(cooldowns, cfg.Cooldown.GetCleanupIntervalDuration(), logger),
		maintenance.AuditFlushJob(auditLogger),
		maintenance.RetentionJob(collector, db, cfg.Database.GetMetricsRetentionDuration(), retentionInterval, clk.Now, logger),
		maintenance.VacuumJob(db, cfg.Database.GetVacuumIntervalDuration(), logger),
		maintenance.DailyStatsResetJob(tracker, logger),
		maintenance.TempBanExpiryJob(db, bot.Actions(), clk.Now, logger),
	)
	if err := maintenanceScheduler.Start(); err != nil {
		logger.Error("Failed to start maintenance scheduler: %v", err)
		_ = db.Close()
		os.Exit(1)
	}
	logger.Success("Maintenance scheduler started")

	reportCtx, stopReports := context.WithCancel(context.Background())
	startDailyReport(reportCtx, cfg, builder, bot, clk, logger)

	if err := healthSrv.Start(); err != nil {
		logger.Error("Failed to start health server: %v", err)
		stopReports()
		_ = maintenanceScheduler.Stop()
		_ = db.Close()
		os.Exit(1)
	}
	logger.Success("Health server listening on port %d", cfg.Health.Port)

	// Set up shutdown handler with 5-second forced timeout
	shutdownHandler := shutdown.NewHandler(logger, 5*time.Second)

	shutdownHandler.Register("health server", healthSrv.Stop)
	shutdownHandler.Register("daily report", func(context.Context) error {
		stopReports()
		return nil
	})
	shutdownHandler.Register("maintenance scheduler", func(context.Context) error {
		return maintenanceScheduler.Stop()
	})
	shutdownHandler.Register("toxic mode timers", func(context.Context) error {
		toxicMgr.Stop()
		return nil
	})
	shutdownHandler.Register("reminders", func(context.Context) error {
		reminders.Stop()
		return nil
	})
	shutdownHandler.Register("discord gateway", func(context.Context) error {
		return bot.Close()
	})
	shutdownHandler.Register("audit log", auditLogger.Flush)
	if redisClient != nil {
		shutdownHandler.Register("redis", func(context.Context) error {
			return redisClient.Close()
		})
	}
	shutdownHandler.Register("database", func(context.Context) error {
		if err := db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		logger.Success("Database connection closed")
		return nil
	})
	shutdownHandler.Register("goodbye", func(context.Context) error {
		logger.Success("Guild Bot has shut down gracefully. Goodbye!")
		return nil
	})

	// Start shutdown handler in background
	go shutdownHandler.WaitForShutdown()

	if err := bot.Start(); err != nil {
		logger.Error("Failed to connect to Discord: %v", err)
		shutdownHandler.Shutdown()
		<-shutdownHandler.Done()
		os.Exit(1)
	}

	logger.Success("Bot initialization complete. Connected and waiting for Ready.")

	// Wait for graceful shutdown to complete
	<-shutdownHandler.Done()
}

// newRateCache picks the rate cache backend; the redis client is returned so
// shutdown can close it
func newRateCache(cfg config.CacheConfig, clk clock.Clock) (cache.Cache, *redis.Client, error) {
	if cfg.Backend != "redis" {
		return cache.NewMemoryCache(clk), nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return cache.NewRedisCache(client, "guildbot:"), client, nil
}

// reportLocation resolves the report timezone, falling back to UTC
func reportLocation(cfg config.ReportConfig, logger output.Logger) *time.Location {
	loc, err := cfg.Location()
	if err != nil {
		logger.Warning("Invalid timezone %q, using UTC: %v", cfg.Timezone, err)
		return time.UTC
	}
	return loc
}

// startDailyReport posts the daily report to the main channel on the configured schedule
func startDailyReport(ctx context.Context, cfg *config.Config, builder *report.Builder, bot *discord.Bot, clk clock.Clock, logger output.Logger) {
	if cfg.Discord.GuildID == "" || cfg.Discord.ChannelID == "" {
		logger.Warning("discord.guild_id or discord.channel_id not set - daily report disabled")
		return
	}
	schedule, err := report.ParseSchedule(cfg.Report.Cron, reportLocation(cfg.Report, logger))
	if err != nil {
		logger.Error("Invalid report schedule %q - daily report disabled: %v", cfg.Report.Cron, err)
		return
	}

	go func() {
		err := schedule.Run(ctx, clk, func(ctx context.Context) {
			embeds, err := builder.Build(ctx, cfg.Discord.GuildID)
			if err != nil {
				logger.Error("Failed to build daily report: %v", err)
				return
			}
			if len(embeds) == 0 {
				return
			}
			bot.Post(cfg.Discord.ChannelID, "", embeds...)
			logger.Info("Daily report posted to %s", cfg.Discord.ChannelID)
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("Daily report scheduler stopped: %v", err)
		}
	}()
	logger.Success("Daily report scheduled (%s)", schedule)
}

// commandDeps carries everything the command constructors need
type commandDeps struct {
	clock      clock.Clock
	tracker    *stats.Tracker
	upstream   *upstream.Client
	history    commands.MetricsSource
	currency   rates.CurrencyProvider
	crypto     rates.CryptoProvider
	converter  *converter.UseCase
	ai         *commands.AIDeps
	settings   *settings.Manager
	toxic      *toxic.Manager
	audit      *audit.Logger
	weather    *weather.Client
	translator *translate.Client
	reminders  *reminder.Scheduler
	tempBans   *database.DB
	timezone   *time.Location
}

// registerCommands registers every slash command with the registry
func registerCommands(registry *commands.Registry, d commandDeps) {
	// Info commands
	registry.MustRegister(
		commands.NewPingCommand(d.clock),
		commands.NewUptimeCommand(d.tracker),
		commands.NewStatsCommand(d.tracker, d.upstream, d.clock).WithHistory(d.history),
		commands.NewHelpCommand(registry),
		commands.NewServerInfoCommand(d.clock),
		commands.NewUserInfoCommand(d.clock),
		commands.NewAvatarCommand(),
		commands.NewRolesCommand(),
		commands.NewRoleInfoCommand(),
		commands.NewEmojisCommand(),
		commands.NewJumboCommand(),
		commands.NewInvitesCommand(),
		commands.NewBoostersCommand(),
		commands.NewBannerCommand(),
		commands.NewServerIconCommand(),
		commands.NewServerBannerCommand(),
		commands.NewChannelInfoCommand(),
		commands.NewFirstMessageCommand(),
		commands.NewWhoisCommand(),
		commands.NewMembersCommand(),
		commands.NewServerTimeCommand(d.clock),
		commands.NewChatStatsCommand(d.clock),
	)

	// Rates
	registry.MustRegister(
		commands.NewCurrencyCommand(d.currency, d.clock),
		commands.NewCryptoCommand(d.crypto, d.clock),
		commands.NewConvertCommand(d.converter),
	)

	// AI
	registry.MustRegister(
		commands.NewAskCommand(d.ai),
		commands.NewRoastCommand(d.ai),
		commands.NewSummaryCommand(d.ai),
	)

	// Admin
	registry.MustRegister(
		commands.NewToxicModeCommand(d.settings, d.toxic),
		commands.NewSettingsCommand(d.settings),
		commands.NewAuditCommand(d.audit),
		commands.NewStealEmojiCommand(d.upstream),
	)

	// Moderation
	registry.MustRegister(
		commands.NewKickCommand(),
		commands.NewBanCommand().WithTempBans(d.tempBans),
		commands.NewTempBanCommand(d.tempBans, d.clock),
		commands.NewUnbanCommand().WithTempBans(d.tempBans),
		commands.NewBanListCommand(),
		commands.NewTimeoutCommand(d.clock),
		commands.NewUntimeoutCommand(),
		commands.NewWarnCommand(d.clock),
		commands.NewClearCommand(),
		commands.NewPurgeCommand(d.clock),
		commands.NewSlowmodeCommand(),
		commands.NewSlowoffCommand(),
		commands.NewLockCommand(),
		commands.NewUnlockCommand(),
		commands.NewHideCommand(),
		commands.NewShowCommand(),
		commands.NewRoleCommand(),
		commands.NewNickCommand(),
		commands.NewResetNicknameCommand(),
		commands.NewVoiceMuteCommand(),
		commands.NewVoiceUnmuteCommand(),
		commands.NewUndeafenCommand(),
		commands.NewVoiceKickCommand(),
		commands.NewMoveAllCommand(),
		commands.NewDMCommand(d.clock),
	)

	// Fun
	registry.MustRegister(
		commands.NewCoinflipCommand(nil),
		commands.NewRollCommand(nil),
		commands.NewEightBallCommand(nil),
		commands.NewChooseCommand(nil),
		commands.NewRandomCommand(nil),
	)

	// Tools
	registry.MustRegister(
		commands.NewReverseCommand(),
		commands.NewBase64Command(),
		commands.NewHashCommand(),
		commands.NewPasswordCommand(),
		commands.NewTimestampCommand(d.clock, d.timezone),
		commands.NewColorCommand(),
		commands.NewMathCommand(),
		commands.NewQRCommand(),
	)

	// Network and utility
	registry.MustRegister(
		commands.NewWeatherCommand(d.weather, d.clock),
		commands.NewTranslateCommand(d.translator),
		commands.NewReminderCommand(d.reminders),
		commands.NewSetNickCommand(),
		commands.NewSayCommand(),
		commands.NewAnnounceCommand(d.clock),
		commands.NewEmbedCommand(),
		commands.NewPollCommand(d.clock),
	)
}
