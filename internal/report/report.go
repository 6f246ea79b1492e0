// Package report builds the daily report and startup embeds.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/guildbot/internal/clock"
	"github.com/yourusername/guildbot/internal/output"
	"github.com/yourusername/guildbot/internal/rates"
	"github.com/yourusername/guildbot/internal/settings"
	"github.com/yourusername/guildbot/internal/stats"
)

const (
	ColorReport  = 0x5865f2
	ColorStartup = 0x00ff00

	unavailable = "⚠️ Data is temporarily unavailable."
)

// GuildInfo is a snapshot of a guild's size and layout
type GuildInfo struct {
	ID            string
	Name          string
	IconURL       string
	BannerURL     string
	OwnerID       string
	CreatedAt     time.Time
	MemberCount   int
	OnlineCount   int
	VoiceCount    int
	TextChannels  int
	VoiceChannels int
	Channels      int
	Roles         int
	Emojis        int
	Boosts        int
	BoostTier     int
}

// GuildInfoSource looks up a guild snapshot
type GuildInfoSource interface {
	GuildInfo(ctx context.Context, guildID string) (*GuildInfo, error)
}

// SettingsSource supplies guild settings
type SettingsSource interface {
	Get(guildID string) settings.GuildSettings
}

// Builder assembles report embeds
type Builder struct {
	settings SettingsSource
	currency rates.CurrencyProvider
	crypto   rates.CryptoProvider
	stats    *stats.Tracker
	guilds   GuildInfoSource
	clock    clock.Clock
	logger   output.Logger
}

// NewBuilder creates a report builder
func NewBuilder(src SettingsSource, currency rates.CurrencyProvider, crypto rates.CryptoProvider,
	tracker *stats.Tracker, guilds GuildInfoSource, clk clock.Clock, logger output.Logger) *Builder {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &Builder{
		settings: src,
		currency: currency,
		crypto:   crypto,
		stats:    tracker,
		guilds:   guilds,
		clock:    clk,
		logger:   logger,
	}
}

// Build returns the daily report for a guild, honouring its DailyReport toggles.
// A section whose data cannot be fetched shows an unavailable line instead.
func (b *Builder) Build(ctx context.Context, guildID string) ([]*discordgo.MessageEmbed, error) {
	toggles := b.settings.Get(guildID).DailyReport

	var (
		currencyText, cryptoText string
		info                     *GuildInfo
	)

	g, gctx := errgroup.WithContext(ctx)
	if toggles.CurrencyRates {
		g.Go(func() error {
			r, err := b.currency.GetRates(gctx)
			if err != nil {
				b.logger.Warning("Daily report: currency rates unavailable: %v", err)
				currencyText = unavailable
				return nil
			}
			currencyText = rates.FormatCurrencyRates(r)
			return nil
		})
	}
	if toggles.CryptoRates {
		g.Go(func() error {
			r, err := b.crypto.GetRates(gctx)
			if err != nil {
				b.logger.Warning("Daily report: crypto prices unavailable: %v", err)
				cryptoText = unavailable
				return nil
			}
			cryptoText = rates.FormatCryptoRates(r)
			return nil
		})
	}
	if toggles.ServerStats && b.guilds != nil {
		g.Go(func() error {
			gi, err := b.guilds.GuildInfo(gctx, guildID)
			if err != nil {
				b.logger.Warning("Daily report: guild info unavailable: %v", err)
				return nil
			}
			info = gi
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := b.clock.Now().Format(time.RFC3339)
	var embeds []*discordgo.MessageEmbed

	if toggles.CurrencyRates {
		embeds = append(embeds, &discordgo.MessageEmbed{
			Title:       "🌅 Good morning!",
			Description: currencyText,
			Color:       ColorReport,
			Timestamp:   now,
		})
	}
	if toggles.CryptoRates {
		embeds = append(embeds, &discordgo.MessageEmbed{
			Description: cryptoText,
			Color:       ColorReport,
			Timestamp:   now,
		})
	}
	if toggles.ServerStats {
		embeds = append(embeds, b.statsEmbed(info, now))
	}
	return embeds, nil
}

func (b *Builder) statsEmbed(info *GuildInfo, now string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     "📊 Daily report",
		Color:     ColorReport,
		Timestamp: now,
	}

	if info == nil {
		embed.Description = unavailable
	} else {
		embed.Description = fmt.Sprintf("Server status for **%s**", info.Name)
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{
				Name: "👥 Members",
				Value: fmt.Sprintf("**Total:** %d\n**Online:** %d\n**In voice:** %d",
					info.MemberCount, info.OnlineCount, info.VoiceCount),
				Inline: true,
			},
			&discordgo.MessageEmbedField{
				Name: "💬 Channels",
				Value: fmt.Sprintf("**Text:** %d\n**Voice:** %d\n**Total:** %d",
					info.TextChannels, info.VoiceChannels, info.Channels),
				Inline: true,
			},
			&discordgo.MessageEmbedField{
				Name: "🔧 Server",
				Value: fmt.Sprintf("**Boosts:** %d (tier %d)\n**Roles:** %d\n**Emojis:** %d",
					info.Boosts, info.BoostTier, info.Roles, info.Emojis),
				Inline: true,
			},
		)
	}

	if b.stats != nil {
		daily := b.stats.DailyStats()
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "⚡ Bot activity (24h)",
			Value: fmt.Sprintf("**Commands:** %d\n**Errors:** %d\n**Users:** %d\n**Top:** %s",
				daily.CommandsExecuted, daily.ErrorsCount, daily.UniqueUsers, formatTop(daily.TopCommands)),
		})
	}
	return embed
}

func formatTop(top []stats.CommandCount) string {
	if len(top) == 0 {
		return "none"
	}
	parts := make([]string, len(top))
	for i, c := range top {
		parts[i] = fmt.Sprintf("/%s (%d)", c.Name, c.Count)
	}
	return strings.Join(parts, ", ")
}

// BotInfo describes the running bot for the startup message
type BotInfo struct {
	Username  string
	AvatarURL string
	GuildName string
	Members   int
	Commands  int
	Latency   time.Duration
}

// StartupMessage builds the embed posted when the bot comes online
func (b *Builder) StartupMessage(info BotInfo) *discordgo.MessageEmbed {
	now := b.clock.Now()
	guild := info.GuildName
	if guild == "" {
		guild = "Unknown"
	}
	embed := &discordgo.MessageEmbed{
		Title:       "🟢 Bot online!",
		Description: fmt.Sprintf("**%s** started and is ready to work!", info.Username),
		Color:       ColorStartup,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🏠 Server", Value: guild, Inline: true},
			{Name: "👥 Members", Value: fmt.Sprintf("%d", info.Members), Inline: true},
			{Name: "⚡ Commands", Value: fmt.Sprintf("%d", info.Commands), Inline: true},
			{Name: "🏓 Ping", Value: fmt.Sprintf("%dms", info.Latency.Milliseconds()), Inline: true},
			{Name: "📅 Time", Value: fmt.Sprintf("<t:%d:F>", now.Unix()), Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Use /help for the list of commands"},
		Timestamp: now.Format(time.RFC3339),
	}
	if info.AvatarURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: info.AvatarURL}
	}
	return embed
}
