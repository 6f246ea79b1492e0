// Package discord connects the command layer and background features to the
// Discord gateway through discordgo.
package discord

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/yourusername/guildbot/internal/clock"
	"github.com/yourusername/guildbot/internal/commands"
	"github.com/yourusername/guildbot/internal/config"
	"github.com/yourusername/guildbot/internal/output"
	"github.com/yourusername/guildbot/internal/ratelimit"
	"github.com/yourusername/guildbot/internal/report"
	"github.com/yourusername/guildbot/internal/settings"
)

const (
	// interactionTimeout bounds one command, including slow AI calls
	interactionTimeout = 2 * time.Minute

	// messageCache is how many messages per channel the state keeps for edit and delete logs
	messageCache = 200

	queueSize  = 100
	queueRate  = rate.Limit(5)
	queueBurst = 5
)

// Intents are the gateway intents the bot subscribes to
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildVoiceStates

// SettingsSource supplies guild settings
type SettingsSource interface {
	Get(guildID string) settings.GuildSettings
}

// StartupBuilder builds the embed announced on the first Ready event
type StartupBuilder interface {
	StartupMessage(info report.BotInfo) *discordgo.MessageEmbed
}

// QueueObserver is told how many background posts were dropped
type QueueObserver interface {
	QueueDropped(n int)
}

// ReadyFunc runs once per Ready event with the guilds the bot is in
type ReadyFunc func(ctx context.Context, guildIDs []string)

// GuildFunc runs when the bot is removed from a guild
type GuildFunc func(ctx context.Context, guildID string)

// Options wires the bot's collaborators. Token, Dispatcher and Settings are required.
type Options struct {
	Token      string
	Discord    config.DiscordConfig
	Dispatcher *commands.Dispatcher
	Settings   SettingsSource
	Startup    StartupBuilder
	Observer   QueueObserver
	Clock      clock.Clock
	Logger     output.Logger
}

// outbound is one background post waiting in the send queue
type outbound struct {
	channelID string
	content   string
	embeds    []*discordgo.MessageEmbed
}

// Bot owns the gateway session
type Bot struct {
	session    *discordgo.Session
	api        restAPI
	state      *discordgo.State
	cfg        config.DiscordConfig
	dispatcher *commands.Dispatcher
	settings   SettingsSource
	startup    StartupBuilder
	observer   QueueObserver
	clock      clock.Clock
	logger     output.Logger
	queue      *ratelimit.MessageQueue[outbound]
	actions    *Actions

	mu        sync.RWMutex
	readyHook []ReadyFunc
	leaveHook []GuildFunc
	announced bool
	dropped   int

	ready  atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a bot; nothing connects until Start
func New(opts Options) (*Bot, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("discord token is empty")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = output.NopLogger{}
	}

	session, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	session.Identify.Intents = Intents
	session.State.TrackVoice = true
	session.State.TrackPresences = true
	session.State.MaxMessageCount = messageCache

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bot{
		session:    session,
		api:        session,
		state:      session.State,
		cfg:        opts.Discord,
		dispatcher: opts.Dispatcher,
		settings:   opts.Settings,
		startup:    opts.Startup,
		observer:   opts.Observer,
		clock:      opts.Clock,
		logger:     opts.Logger,
		ctx:        ctx,
		cancel:     cancel,
	}
	b.actions = NewActions(session, session.State, opts.Clock)
	b.queue = ratelimit.NewMessageQueue(queueSize, rate.NewLimiter(queueRate, queueBurst), b.send)
	return b, nil
}

// Actions returns the platform operations used by commands and background jobs
func (b *Bot) Actions() *Actions {
	return b.actions
}

// SetStartupBuilder sets the builder for the startup announcement
func (b *Bot) SetStartupBuilder(s StartupBuilder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.startup = s
}

// OnReady registers fn to run on every Ready event
func (b *Bot) OnReady(fn ReadyFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readyHook = append(b.readyHook, fn)
}

// OnGuildRemoved registers fn to run when the bot is kicked from or leaves a guild
func (b *Bot) OnGuildRemoved(fn GuildFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leaveHook = append(b.leaveHook, fn)
}

// IsReady reports whether the first Ready event has arrived and the session is open
func (b *Bot) IsReady() bool {
	return b.ready.Load()
}

// Start registers handlers, opens the gateway and publishes slash commands
func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onInteractionCreate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onGuildMemberUpdate)
	b.session.AddHandler(b.onMessageDelete)
	b.session.AddHandler(b.onMessageUpdate)
	b.session.AddHandler(b.onVoiceStateUpdate)
	b.session.AddHandler(b.onGuildDelete)
	b.session.AddHandler(b.onDisconnect)

	b.queue.Start(b.ctx)

	b.logger.Info("Connecting to Discord...")
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening gateway: %w", err)
	}
	b.logger.Success("Connected to Discord")

	if !b.cfg.RegisterCommands {
		b.logger.Info("Slash command registration disabled")
		return nil
	}
	return b.registerCommands()
}

// registerCommands bulk-overwrites the slash commands, per guild when one is configured
func (b *Bot) registerCommands() error {
	if b.session.State == nil || b.session.State.User == nil {
		return fmt.Errorf("registering commands: session has no user")
	}

	specs := commandSpecs(b.dispatcher.Registry())
	created, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.cfg.GuildID, specs)
	if err != nil {
		return fmt.Errorf("registering commands: %w", err)
	}

	scope := "globally"
	if b.cfg.GuildID != "" {
		scope = "in guild " + b.cfg.GuildID
	}
	b.logger.Success("Registered %d slash commands %s", len(created), scope)
	return nil
}

// Close stops the send queue and closes the gateway. Queued posts are dropped.
func (b *Bot) Close() error {
	b.ready.Store(false)
	b.cancel()
	b.queue.Stop()
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("closing gateway: %w", err)
	}
	b.logger.Info("Disconnected from Discord")
	return nil
}

// Post queues a background message. Delivery is paced and retried by the queue.
func (b *Bot) Post(channelID, content string, embeds ...*discordgo.MessageEmbed) {
	if channelID == "" {
		return
	}
	b.queue.Enqueue(outbound{channelID: channelID, content: content, embeds: embeds})

	dropped := b.queue.DroppedCount()
	b.mu.Lock()
	delta := dropped - b.dropped
	b.dropped = dropped
	b.mu.Unlock()
	if delta > 0 {
		b.logger.Warning("Send queue full, dropped %d message(s)", delta)
		if b.observer != nil {
			b.observer.QueueDropped(delta)
		}
	}
}

func (b *Bot) send(_ context.Context, m outbound) error {
	_, err := b.api.ChannelMessageSendComplex(m.channelID, &discordgo.MessageSend{
		Content: m.content,
		Embeds:  m.embeds,
	})
	if err != nil {
		b.logger.Warning("Failed to send message to %s: %v", m.channelID, err)
	}
	return err
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.ready.Store(true)
	b.logger.Success("Logged in as %s (%d guilds)", r.User.String(), len(r.Guilds))

	guildIDs := make([]string, 0, len(r.Guilds))
	for _, g := range r.Guilds {
		guildIDs = append(guildIDs, g.ID)
	}

	b.mu.Lock()
	hooks := append([]ReadyFunc(nil), b.readyHook...)
	first := !b.announced
	b.announced = true
	b.mu.Unlock()

	for _, fn := range hooks {
		fn(b.ctx, guildIDs)
	}

	if first {
		b.announce(r.User)
	}
}

// announce posts the startup embed to the main channel when the guild allows it
func (b *Bot) announce(user *discordgo.User) {
	b.mu.RLock()
	builder := b.startup
	b.mu.RUnlock()

	if builder == nil || b.cfg.ChannelID == "" {
		return
	}
	if b.cfg.GuildID != "" && !b.settings.Get(b.cfg.GuildID).Welcome.StartupMessage {
		return
	}

	info := report.BotInfo{
		Username:  user.Username,
		AvatarURL: user.AvatarURL(""),
		Commands:  b.dispatcher.Registry().Len(),
		Latency:   b.session.HeartbeatLatency(),
	}
	if b.cfg.GuildID != "" {
		if g, err := b.actions.GuildInfo(b.ctx, b.cfg.GuildID); err == nil {
			info.GuildName = g.Name
			info.Members = g.MemberCount
		}
	}
	b.Post(b.cfg.ChannelID, "", builder.StartupMessage(info))
}

func (b *Bot) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	b.ready.Store(false)
	b.logger.Warning("Disconnected from Discord gateway, waiting for reconnect")
}
