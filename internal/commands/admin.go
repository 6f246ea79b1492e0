package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/yourusername/guildbot/internal/audit"
	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/settings"
	"github.com/yourusername/guildbot/internal/validation"
)

const auditPageSize = 10

// SettingsCommand implements /settings
type SettingsCommand struct {
	meta
	settings SettingsEditor
}

// NewSettingsCommand creates a new settings command
func NewSettingsCommand(editor SettingsEditor) *SettingsCommand {
	return &SettingsCommand{
		meta: meta{
			name:       "settings",
			help:       "View or change this server's bot settings",
			category:   CategoryAdmin,
			permission: discordgo.PermissionAdministrator,
			options: []Option{
				{Name: "view", Description: "Show all settings", Type: OptionSubcommand},
				{Name: "ai", Description: "Configure AI commands", Type: OptionSubcommand, Options: []Option{
					{Name: "max_requests", Description: "Requests per user per day (1-500)", Type: OptionInteger, MinValue: float(1), MaxValue: float(500)},
					{Name: "cooldown", Description: "Seconds between requests (0-3600)", Type: OptionInteger, MinValue: float(0), MaxValue: float(3600)},
					{Name: "temperature", Description: "Model temperature (0-2)", Type: OptionNumber, MinValue: float(0), MaxValue: float(2)},
					{Name: "ask", Description: "Enable /ask", Type: OptionBoolean},
					{Name: "roast", Description: "Enable /roast", Type: OptionBoolean},
					{Name: "summary", Description: "Enable /ai-summary", Type: OptionBoolean},
				}},
				{Name: "daily-report", Description: "Choose daily report sections", Type: OptionSubcommand, Options: []Option{
					{Name: "currency", Description: "Currency rates", Type: OptionBoolean},
					{Name: "crypto", Description: "Crypto prices", Type: OptionBoolean},
					{Name: "server_stats", Description: "Server statistics", Type: OptionBoolean},
				}},
				{Name: "logging", Description: "Configure the event log", Type: OptionSubcommand, Options: []Option{
					{Name: "channel", Description: "Log channel", Type: OptionChannel},
					{Name: "message_delete", Description: "Log deleted messages", Type: OptionBoolean},
					{Name: "message_edit", Description: "Log edited messages", Type: OptionBoolean},
					{Name: "member_join_leave", Description: "Log joins and leaves", Type: OptionBoolean},
					{Name: "nickname_changes", Description: "Log nickname changes", Type: OptionBoolean},
					{Name: "voice_activity", Description: "Log voice joins and leaves", Type: OptionBoolean},
				}},
				{Name: "welcome", Description: "Configure greetings", Type: OptionSubcommand, Options: []Option{
					{Name: "enabled", Description: "Send a welcome embed to new members", Type: OptionBoolean},
					{Name: "startup", Description: "Announce when the bot starts", Type: OptionBoolean},
					{Name: "title", Description: "Embed title", Type: OptionString, MaxLength: 256},
					{Name: "description", Description: "Text; {user}, {server} and {memberCount} are replaced", Type: OptionString, MaxLength: 2000},
					{Name: "color", Description: "Hex color such as #57F287", Type: OptionString},
				}},
				{Name: "audit-log", Description: "Toggle moderation audit logging", Type: OptionSubcommand, Options: []Option{
					{Name: "enabled", Description: "Record moderation actions", Type: OptionBoolean, Required: true},
				}},
				{Name: "reset", Description: "Restore defaults", Type: OptionSubcommand},
			},
		},
		settings: editor,
	}
}

// Execute runs the settings command
func (c *SettingsCommand) Execute(ctx *Context) (*Response, error) {
	var patch settings.Patch
	switch ctx.Subcommand {
	case "", "view":
		return &Response{Embeds: []*discordgo.MessageEmbed{settingsEmbed(c.settings.Get(ctx.GuildID))}, Ephemeral: true}, nil
	case "reset":
		s, err := c.settings.Reset(ctx.Context(), ctx.GuildID, ctx.UserID)
		if err != nil {
			return nil, err
		}
		return &Response{Content: "♻️ Settings reset to defaults.", Embeds: []*discordgo.MessageEmbed{settingsEmbed(s)}, Ephemeral: true}, nil
	case "ai":
		patch.AI = &settings.AIPatch{
			MaxRequestsPerDay: intOpt(ctx, "max_requests"),
			CooldownSeconds:   intOpt(ctx, "cooldown"),
			Temperature:       floatOpt(ctx, "temperature"),
			AskEnabled:        boolOpt(ctx, "ask"),
			RoastEnabled:      boolOpt(ctx, "roast"),
			SummaryEnabled:    boolOpt(ctx, "summary"),
		}
	case "daily-report":
		patch.DailyReport = &settings.DailyReportPatch{
			CurrencyRates: boolOpt(ctx, "currency"),
			CryptoRates:   boolOpt(ctx, "crypto"),
			ServerStats:   boolOpt(ctx, "server_stats"),
		}
	case "logging":
		patch.Logging = &settings.LoggingPatch{
			ChannelID:       stringOpt(ctx, "channel"),
			MessageDelete:   boolOpt(ctx, "message_delete"),
			MessageEdit:     boolOpt(ctx, "message_edit"),
			MemberJoinLeave: boolOpt(ctx, "member_join_leave"),
			NicknameChanges: boolOpt(ctx, "nickname_changes"),
			VoiceActivity:   boolOpt(ctx, "voice_activity"),
		}
	case "welcome":
		wm := &settings.WelcomeMessagePatch{
			Enabled:     boolOpt(ctx, "enabled"),
			Title:       stringOpt(ctx, "title"),
			Description: stringOpt(ctx, "description"),
		}
		if raw := ctx.String("color"); raw != "" {
			color, err := validation.ParseHexColor(raw)
			if err != nil {
				return nil, err
			}
			wm.Color = settings.Int(color)
		}
		patch.WelcomeMessage = wm
		patch.Welcome = &settings.WelcomePatch{
			WelcomeMessage: wm.Enabled,
			StartupMessage: boolOpt(ctx, "startup"),
		}
	case "audit-log":
		patch.Moderation = &settings.ModerationPatch{AuditLog: boolOpt(ctx, "enabled")}
	default:
		return nil, boterrors.NewNotFoundError("Subcommand", ctx.Subcommand)
	}

	if len(ctx.Options) == 0 {
		return nil, boterrors.NewValidationError("Nothing to change. Pass at least one option.")
	}
	s, err := c.settings.Update(ctx.Context(), ctx.GuildID, patch, ctx.UserID)
	if err != nil {
		return nil, err
	}
	return &Response{Content: "✅ Settings saved.", Embeds: []*discordgo.MessageEmbed{settingsEmbed(s)}, Ephemeral: true}, nil
}

func intOpt(ctx *Context, name string) *int {
	if v, ok := ctx.Int(name); ok {
		return settings.Int(int(v))
	}
	return nil
}

func floatOpt(ctx *Context, name string) *float64 {
	if v, ok := ctx.Float(name); ok {
		return settings.Float(v)
	}
	return nil
}

func boolOpt(ctx *Context, name string) *bool {
	if v, ok := ctx.Bool(name); ok {
		return settings.Bool(v)
	}
	return nil
}

func stringOpt(ctx *Context, name string) *string {
	if _, ok := ctx.Options[name]; ok {
		return settings.String(ctx.String(name))
	}
	return nil
}

func onOff(b bool) string {
	if b {
		return "✅"
	}
	return "❌"
}

func settingsEmbed(s settings.GuildSettings) *discordgo.MessageEmbed {
	logChannel := "Not set"
	if s.Logging.ChannelID != "" {
		logChannel = "<#" + s.Logging.ChannelID + ">"
	}
	return &discordgo.MessageEmbed{
		Title: "⚙️ Server settings",
		Color: colorDefault,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📰 Daily report", Value: fmt.Sprintf("%s Currency\n%s Crypto\n%s Server stats",
				onOff(s.DailyReport.CurrencyRates), onOff(s.DailyReport.CryptoRates), onOff(s.DailyReport.ServerStats)), Inline: true},
			{Name: "👋 Welcome", Value: fmt.Sprintf("%s Startup message\n%s Welcome message\nColor: #%06X",
				onOff(s.Welcome.StartupMessage), onOff(s.Welcome.WelcomeMessage && s.WelcomeMessage.Enabled), s.WelcomeMessage.Color), Inline: true},
			{Name: "🛡️ Moderation", Value: onOff(s.Moderation.AuditLog) + " Audit log", Inline: true},
			{Name: "🤖 AI", Value: fmt.Sprintf("%d requests/day, %ds cooldown, temperature %.1f\n%s /ask %s /roast %s /ai-summary",
				s.AI.MaxRequestsPerDay, s.AI.CooldownSeconds, s.AI.Temperature,
				onOff(s.AI.AskEnabled), onOff(s.AI.RoastEnabled), onOff(s.AI.SummaryEnabled))},
			{Name: "📋 Logging", Value: fmt.Sprintf("Channel: %s\n%s Deletes %s Edits %s Joins/leaves %s Nicknames %s Voice",
				logChannel, onOff(s.Logging.MessageDelete), onOff(s.Logging.MessageEdit),
				onOff(s.Logging.MemberJoinLeave), onOff(s.Logging.NicknameChanges), onOff(s.Logging.VoiceActivity))},
			{Name: "☢️ Toxic mode", Value: fmt.Sprintf("%s every %d min, %d/day",
				onOff(s.ToxicMode.Enabled), s.ToxicMode.FrequencyMinutes, s.ToxicMode.MaxPerDay)},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Last changed by " + s.UpdatedBy},
	}
}

// AuditReader queries the moderation audit log
type AuditReader interface {
	Recent(ctx context.Context, guildID string, limit int) ([]audit.Entry, error)
	ByModerator(ctx context.Context, guildID, moderatorID string, limit int) ([]audit.Entry, error)
	ByTarget(ctx context.Context, guildID, targetID string, limit int) ([]audit.Entry, error)
}

// AuditCommand implements /audit
type AuditCommand struct {
	meta
	reader AuditReader
}

// NewAuditCommand creates a new audit command
func NewAuditCommand(reader AuditReader) *AuditCommand {
	userArg := func(desc string) []Option {
		return []Option{{Name: "user", Description: desc, Type: OptionUser, Required: true}}
	}
	return &AuditCommand{
		meta: meta{
			name:       "audit",
			help:       "Browse the moderation audit log",
			category:   CategoryAdmin,
			permission: discordgo.PermissionAdministrator,
			options: []Option{
				{Name: "recent", Description: "Latest moderation actions", Type: OptionSubcommand},
				{Name: "moderator", Description: "Actions taken by a moderator", Type: OptionSubcommand, Options: userArg("Moderator")},
				{Name: "target", Description: "Actions taken against a user", Type: OptionSubcommand, Options: userArg("User")},
			},
		},
		reader: reader,
	}
}

// Execute runs the audit command
func (c *AuditCommand) Execute(ctx *Context) (*Response, error) {
	var (
		entries []audit.Entry
		err     error
		title   string
	)
	switch ctx.Subcommand {
	case "", "recent":
		title = "📜 Recent moderation actions"
		entries, err = c.reader.Recent(ctx.Context(), ctx.GuildID, auditPageSize)
	case "moderator":
		u := ctx.User("user")
		if u == nil {
			return nil, boterrors.NewInvalidSyntaxError("audit moderator", "/audit moderator user:<@user>")
		}
		title = "📜 Actions by " + u.Tag
		entries, err = c.reader.ByModerator(ctx.Context(), ctx.GuildID, u.ID, auditPageSize)
	case "target":
		u := ctx.User("user")
		if u == nil {
			return nil, boterrors.NewInvalidSyntaxError("audit target", "/audit target user:<@user>")
		}
		title = "📜 Actions against " + u.Tag
		entries, err = c.reader.ByTarget(ctx.Context(), ctx.GuildID, u.ID, auditPageSize)
	default:
		return nil, boterrors.NewNotFoundError("Subcommand", ctx.Subcommand)
	}
	if err != nil {
		if _, ok := boterrors.AsBotError(err); ok {
			return nil, err
		}
		return nil, boterrors.NewDatabaseError("query audit log", err)
	}

	embed := &discordgo.MessageEmbed{Title: title, Color: colorDefault}
	if len(entries) == 0 {
		embed.Description = "No entries."
	} else {
		lines := make([]string, len(entries))
		for i, e := range entries {
			lines[i] = formatAuditEntry(e)
		}
		embed.Description = truncateRunes(strings.Join(lines, "\n"), 4096)
	}
	return &Response{Embeds: []*discordgo.MessageEmbed{embed}, Ephemeral: true}, nil
}

func formatAuditEntry(e audit.Entry) string {
	line := fmt.Sprintf("<t:%d:R> **%s** by <@%s>", e.Timestamp.Unix(), e.Action, e.ModeratorID)
	if e.TargetID != "" {
		line += fmt.Sprintf(" on <@%s>", e.TargetID)
	}
	if e.Reason != "" {
		line += ": " + e.Reason
	}
	return line
}
