package commands

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/yourusername/guildbot/internal/circuitbreaker"
	"github.com/yourusername/guildbot/internal/clock"
	"github.com/yourusername/guildbot/internal/metrics"
	"github.com/yourusername/guildbot/internal/stats"
)

const (
	// BotVersion is the current version of the bot
	BotVersion = "1.0.0"

	colorDefault = 0x5865f2
	colorGood    = 0x00ff00
	colorWarn    = 0xffff00
	colorBad     = 0xff0000
)

// BreakerSource exposes upstream circuit breaker state
type BreakerSource interface {
	BreakerStats() []circuitbreaker.Stats
}

func timestamp(clk clock.Clock) string {
	return clk.Now().Format(time.RFC3339)
}

// PingCommand implements /ping
type PingCommand struct {
	meta
	clock clock.Clock
}

// NewPingCommand creates a new ping command
func NewPingCommand(clk clock.Clock) *PingCommand {
	return &PingCommand{
		meta:  meta{name: "ping", help: "Check the bot's latency", category: CategoryInfo},
		clock: clk,
	}
}

// Execute runs the ping command
func (c *PingCommand) Execute(ctx *Context) (*Response, error) {
	latency := ctx.Guild.Latency()
	color := colorGood
	switch {
	case latency >= 500*time.Millisecond:
		color = colorBad
	case latency >= 200*time.Millisecond:
		color = colorWarn
	}
	return NewEmbedResponse(&discordgo.MessageEmbed{
		Title: "🏓 Pong!",
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💓 WebSocket", Value: fmt.Sprintf("%dms", latency.Milliseconds()), Inline: true},
		},
		Timestamp: timestamp(c.clock),
	}), nil
}

// UptimeCommand implements /uptime
type UptimeCommand struct {
	meta
	stats *stats.Tracker
}

// NewUptimeCommand creates a new uptime command
func NewUptimeCommand(tracker *stats.Tracker) *UptimeCommand {
	return &UptimeCommand{
		meta:  meta{name: "uptime", help: "Show how long the bot has been running", category: CategoryInfo},
		stats: tracker,
	}
}

// Execute runs the uptime command
func (c *UptimeCommand) Execute(ctx *Context) (*Response, error) {
	return NewResponse(fmt.Sprintf("⏱️ Uptime: **%s**", stats.FormatUptime(c.stats.Uptime()))), nil
}

// MetricsSource reports persisted usage over rolling windows
type MetricsSource interface {
	GetMetricsStats(ctx context.Context) (*metrics.MetricsStats, error)
}

// StatsCommand implements /stats
type StatsCommand struct {
	meta
	stats    *stats.Tracker
	breakers BreakerSource
	history  MetricsSource
	clock    clock.Clock
}

// NewStatsCommand creates a new stats command; breakers may be nil
func NewStatsCommand(tracker *stats.Tracker, breakers BreakerSource, clk clock.Clock) *StatsCommand {
	return &StatsCommand{
		meta:     meta{name: "stats", help: "Show bot statistics", category: CategoryInfo},
		stats:    tracker,
		breakers: breakers,
		clock:    clk,
	}
}

// WithHistory adds 24h, 7d and 30d usage windows to the embed
func (c *StatsCommand) WithHistory(src MetricsSource) *StatsCommand {
	c.history = src
	return c
}

// Execute runs the stats command
func (c *StatsCommand) Execute(ctx *Context) (*Response, error) {
	s := c.stats.Stats()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	lastCommand := "No data"
	if !s.LastCommandTime.IsZero() {
		lastCommand = fmt.Sprintf("<t:%d:R>", s.LastCommandTime.Unix())
	}

	embed := &discordgo.MessageEmbed{
		Title: "📊 Bot statistics",
		Color: colorDefault,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "⚡ Commands run", Value: fmt.Sprintf("%d", s.CommandsExecuted), Inline: true},
			{Name: "🧩 Distinct commands", Value: fmt.Sprintf("%d", s.UniqueCommands), Inline: true},
			{Name: "❌ Errors", Value: fmt.Sprintf("%d", s.ErrorsCount), Inline: true},
			{Name: "🏓 Ping", Value: fmt.Sprintf("%dms", ctx.Guild.Latency().Milliseconds()), Inline: true},
			{Name: "⏱️ Uptime", Value: stats.FormatUptime(s.Uptime), Inline: true},
			{Name: "🕐 Last command", Value: lastCommand, Inline: true},
			{Name: "💾 Memory", Value: fmt.Sprintf("%.2f MB heap / %.2f MB sys", mb(mem.HeapAlloc), mb(mem.Sys)), Inline: true},
			{Name: "🧵 Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
			{Name: "📦 Go", Value: runtime.Version(), Inline: true},
			{Name: "💻 Platform", Value: runtime.GOOS + " " + runtime.GOARCH, Inline: true},
			{Name: "🏆 Top commands", Value: formatTopCommands(s.TopCommands)},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Started " + s.StartTime.Format("2006-01-02 15:04:05")},
		Timestamp: timestamp(c.clock),
	}

	if c.breakers != nil {
		if circuits := formatBreakers(c.breakers.BreakerStats()); circuits != "" {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "🔌 Upstreams", Value: circuits})
		}
	}
	if c.history != nil {
		m, err := c.history.GetMetricsStats(ctx.Context())
		if err != nil {
			return nil, fmt.Errorf("failed to load metrics history: %w", err)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "📈 History", Value: formatWindows(m)})
	}
	return NewEmbedResponse(embed), nil
}

func formatWindows(m *metrics.MetricsStats) string {
	windows := []struct {
		label string
		w     *metrics.TimeWindowStats
	}{{"24h", m.Stats24h}, {"7d", m.Stats7d}, {"30d", m.Stats30d}}

	lines := make([]string, 0, len(windows))
	for _, w := range windows {
		if w.w == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("**%s**: %d commands, %d errors, %.0fms avg latency",
			w.label, w.w.CommandCount, w.w.ErrorCount, w.w.AverageLatency))
	}
	if len(lines) == 0 {
		return "No data"
	}
	return strings.Join(lines, "\n")
}

func mb(b uint64) float64 {
	return float64(b) / 1024 / 1024
}

func formatTopCommands(top []stats.CommandCount) string {
	if len(top) == 0 {
		return "No data"
	}
	lines := make([]string, len(top))
	for i, c := range top {
		lines[i] = fmt.Sprintf("%d. `/%s` (%d)", i+1, c.Name, c.Count)
	}
	return strings.Join(lines, "\n")
}

func formatBreakers(all []circuitbreaker.Stats) string {
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	lines := make([]string, 0, len(all))
	for _, s := range all {
		icon := "🟢"
		switch s.State {
		case circuitbreaker.StateOpen:
			icon = "🔴"
		case circuitbreaker.StateHalfOpen:
			icon = "🟡"
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s", icon, s.Name, s.State))
	}
	return strings.Join(lines, "\n")
}

// HelpCommand implements /help
type HelpCommand struct {
	meta
	registry *Registry
}

// NewHelpCommand creates a new help command
func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{
		meta: meta{
			name:     "help",
			help:     "List available commands",
			category: CategoryInfo,
			options: []Option{
				{Name: "command", Description: "Show help for one command", Type: OptionString},
			},
		},
		registry: registry,
	}
}

// Execute runs the help command
func (c *HelpCommand) Execute(ctx *Context) (*Response, error) {
	if name := strings.TrimPrefix(ctx.String("command"), "/"); name != "" {
		cmd, ok := c.registry.Get(name)
		if !ok {
			return NewEphemeral(fmt.Sprintf("❌ Unknown command: /%s", name)), nil
		}
		return NewEphemeral(describe(cmd)), nil
	}

	byCategory := c.registry.ByCategory(ctx.Permissions)

	embed := &discordgo.MessageEmbed{
		Title:  "📖 Commands",
		Color:  colorDefault,
		Footer: &discordgo.MessageEmbedFooter{Text: "Use /help command:<name> for details"},
	}
	for _, cat := range Categories {
		cmds := byCategory[cat]
		if len(cmds) == 0 {
			continue
		}
		names := make([]string, len(cmds))
		for i, cmd := range cmds {
			names[i] = "`/" + cmd.Name() + "`"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  string(cat),
			Value: strings.Join(names, " "),
		})
	}
	return &Response{Embeds: []*discordgo.MessageEmbed{embed}, Ephemeral: true}, nil
}

func describe(cmd Command) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**/%s** - %s", cmd.Name(), cmd.Help())
	for _, opt := range cmd.Options() {
		if opt.Type == OptionSubcommand {
			fmt.Fprintf(&b, "\n• `%s` - %s", opt.Name, opt.Description)
			continue
		}
		req := ""
		if opt.Required {
			req = " (required)"
		}
		fmt.Fprintf(&b, "\n• `%s`%s - %s", opt.Name, req, opt.Description)
	}
	if p := cmd.RequiredPermission(); p != 0 {
		fmt.Fprintf(&b, "\nRequires: %s", PermissionName(p))
	}
	return b.String()
}

// ServerInfoCommand implements /serverinfo
type ServerInfoCommand struct {
	meta
	clock clock.Clock
}

// NewServerInfoCommand creates a new serverinfo command
func NewServerInfoCommand(clk clock.Clock) *ServerInfoCommand {
	return &ServerInfoCommand{
		meta:  meta{name: "serverinfo", help: "Show information about this server", category: CategoryInfo},
		clock: clk,
	}
}

// Execute runs the serverinfo command
func (c *ServerInfoCommand) Execute(ctx *Context) (*Response, error) {
	info, err := ctx.Guild.GuildInfo(ctx.Context(), ctx.GuildID)
	if err != nil {
		return nil, err
	}

	embed := &discordgo.MessageEmbed{
		Title: info.Name,
		Color: colorDefault,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🆔 ID", Value: info.ID, Inline: true},
			{Name: "👑 Owner", Value: fmt.Sprintf("<@%s>", info.OwnerID), Inline: true},
			{Name: "📅 Created", Value: fmt.Sprintf("<t:%d:D>", info.CreatedAt.Unix()), Inline: true},
			{Name: "👥 Members", Value: fmt.Sprintf("%d (%d online)", info.MemberCount, info.OnlineCount), Inline: true},
			{Name: "💬 Channels", Value: fmt.Sprintf("%d text / %d voice", info.TextChannels, info.VoiceChannels), Inline: true},
			{Name: "🎭 Roles", Value: fmt.Sprintf("%d", info.Roles), Inline: true},
			{Name: "😀 Emojis", Value: fmt.Sprintf("%d", info.Emojis), Inline: true},
			{Name: "💎 Boosts", Value: fmt.Sprintf("%d (tier %d)", info.Boosts, info.BoostTier), Inline: true},
		},
		Timestamp: timestamp(c.clock),
	}
	if info.IconURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: info.IconURL}
	}
	return NewEmbedResponse(embed), nil
}

// UserInfoCommand implements /userinfo
type UserInfoCommand struct {
	meta
	clock clock.Clock
}

// NewUserInfoCommand creates a new userinfo command
func NewUserInfoCommand(clk clock.Clock) *UserInfoCommand {
	return &UserInfoCommand{
		meta: meta{
			name:     "userinfo",
			help:     "Show information about a user",
			category: CategoryInfo,
			options: []Option{
				{Name: "user", Description: "User (defaults to you)", Type: OptionUser},
			},
		},
		clock: clk,
	}
}

// Execute runs the userinfo command
func (c *UserInfoCommand) Execute(ctx *Context) (*Response, error) {
	userID := ctx.UserID
	if u := ctx.User("user"); u != nil {
		userID = u.ID
	}

	m, err := ctx.Guild.Member(ctx.Context(), ctx.GuildID, userID)
	if err != nil {
		return nil, err
	}

	bot := "No"
	if m.Bot {
		bot = "Yes"
	}
	embed := &discordgo.MessageEmbed{
		Title:     m.Tag,
		Color:     colorDefault,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: m.AvatarURL},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🆔 ID", Value: m.ID, Inline: true},
			{Name: "🤖 Bot", Value: bot, Inline: true},
			{Name: "📅 Account created", Value: relativeDate(m.CreatedAt), Inline: true},
		},
		Timestamp: timestamp(c.clock),
	}
	if !m.JoinedAt.IsZero() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "📥 Joined", Value: relativeDate(m.JoinedAt), Inline: true})
	}
	if m.DisplayName != "" && m.DisplayName != m.Username {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "📝 Nickname", Value: m.DisplayName, Inline: true})
	}
	if len(m.Roles) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("🎭 Roles (%d)", len(m.Roles)),
			Value: formatRoles(m.Roles),
		})
	}
	return NewEmbedResponse(embed), nil
}

func relativeDate(t time.Time) string {
	return fmt.Sprintf("<t:%d:D>\n(<t:%d:R>)", t.Unix(), t.Unix())
}

func formatRoles(ids []string) string {
	const shown = 10
	mentions := make([]string, 0, shown+1)
	for i, id := range ids {
		if i == shown {
			mentions = append(mentions, fmt.Sprintf("+%d more", len(ids)-shown))
			break
		}
		mentions = append(mentions, "<@&"+id+">")
	}
	return strings.Join(mentions, ", ")
}

// AvatarCommand implements /avatar
type AvatarCommand struct {
	meta
}

// NewAvatarCommand creates a new avatar command
func NewAvatarCommand() *AvatarCommand {
	return &AvatarCommand{meta{
		name:     "avatar",
		help:     "Show a user's avatar",
		category: CategoryInfo,
		options: []Option{
			{Name: "user", Description: "User (defaults to you)", Type: OptionUser},
		},
	}}
}

// Execute runs the avatar command
func (c *AvatarCommand) Execute(ctx *Context) (*Response, error) {
	tag, url := ctx.UserTag, ctx.UserAvatarURL
	if u := ctx.User("user"); u != nil {
		tag, url = u.Tag, u.AvatarURL
	}
	if url == "" {
		return NewEphemeral("❌ This user has no avatar."), nil
	}
	return NewEmbedResponse(&discordgo.MessageEmbed{
		Title:       "🖼️ Avatar: " + tag,
		Color:       colorDefault,
		Image:       &discordgo.MessageEmbedImage{URL: url},
		Description: fmt.Sprintf("[Open original](%s)", url),
	}), nil
}
