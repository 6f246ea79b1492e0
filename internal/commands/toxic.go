package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/settings"
	"github.com/yourusername/guildbot/internal/toxic"
)

// SettingsEditor reads and changes guild settings
type SettingsEditor interface {
	Get(guildID string) settings.GuildSettings
	Update(ctx context.Context, guildID string, p settings.Patch, actorID string) (settings.GuildSettings, error)
	Reset(ctx context.Context, guildID, actorID string) (settings.GuildSettings, error)
}

// ToxicStatus reports the live state of toxic mode timers
type ToxicStatus interface {
	IsRunning(guildID string) bool
	DailyCount(guildID string) int
}

var toxicFrequencyChoices = []Choice{
	{Name: "1 min", Value: int64(1)},
	{Name: "5 min", Value: int64(5)},
	{Name: "15 min", Value: int64(15)},
	{Name: "30 min", Value: int64(30)},
	{Name: "60 min", Value: int64(60)},
}

// ToxicModeCommand implements /toxic-mode. Timers follow settings through
// the settings change hook, so the command only edits settings.
type ToxicModeCommand struct {
	meta
	settings SettingsEditor
	status   ToxicStatus
}

// NewToxicModeCommand creates a new toxic-mode command
func NewToxicModeCommand(editor SettingsEditor, status ToxicStatus) *ToxicModeCommand {
	return &ToxicModeCommand{
		meta: meta{
			name:       "toxic-mode",
			help:       "Configure periodic AI jokes about active chatters",
			category:   CategoryAdmin,
			permission: discordgo.PermissionAdministrator,
			options: []Option{
				{Name: "status", Description: "Show the current toxic mode settings", Type: OptionSubcommand},
				{Name: "enable", Description: "Enable toxic mode in a channel", Type: OptionSubcommand, Options: []Option{
					{Name: "channel", Description: "Channel to post in (defaults to this one)", Type: OptionChannel},
				}},
				{Name: "disable", Description: "Disable toxic mode", Type: OptionSubcommand},
				{Name: "frequency", Description: "Set how often to post", Type: OptionSubcommand, Options: []Option{
					{Name: "minutes", Description: "Minutes between posts", Type: OptionInteger, Required: true, Choices: toxicFrequencyChoices},
				}},
				{Name: "limit", Description: "Set the daily post limit", Type: OptionSubcommand, Options: []Option{
					{Name: "count", Description: "Posts per day (5-100, step 5)", Type: OptionInteger, Required: true, MinValue: float(5), MaxValue: float(100)},
				}},
			},
		},
		settings: editor,
		status:   status,
	}
}

// Execute runs the toxic-mode command
func (c *ToxicModeCommand) Execute(ctx *Context) (*Response, error) {
	var patch settings.ToxicModePatch
	switch ctx.Subcommand {
	case "", "status":
		return c.reply(ctx.GuildID, c.settings.Get(ctx.GuildID).ToxicMode, ""), nil
	case "enable":
		channel := ctx.String("channel")
		if channel == "" {
			channel = ctx.ChannelID
		}
		patch = settings.ToxicModePatch{Enabled: settings.Bool(true), ChannelID: settings.String(channel)}
	case "disable":
		patch = settings.ToxicModePatch{Enabled: settings.Bool(false)}
	case "frequency":
		minutes, ok := ctx.Int("minutes")
		if !ok {
			return nil, boterrors.NewInvalidSyntaxError("toxic-mode frequency", "/toxic-mode frequency minutes:<1|5|15|30|60>")
		}
		patch = settings.ToxicModePatch{FrequencyMinutes: settings.Int(int(minutes))}
	case "limit":
		count, ok := ctx.Int("count")
		if !ok {
			return nil, boterrors.NewInvalidSyntaxError("toxic-mode limit", "/toxic-mode limit count:<5-100>")
		}
		patch = settings.ToxicModePatch{MaxPerDay: settings.Int(int(count))}
	default:
		return nil, boterrors.NewNotFoundError("Subcommand", ctx.Subcommand)
	}

	updated, err := c.settings.Update(ctx.Context(), ctx.GuildID, settings.Patch{ToxicMode: &patch}, ctx.UserID)
	if err != nil {
		return nil, err
	}
	return c.reply(ctx.GuildID, updated.ToxicMode, "✅ Toxic mode updated."), nil
}

func (c *ToxicModeCommand) reply(guildID string, t settings.ToxicMode, content string) *Response {
	status := "🔴 Disabled"
	if t.Enabled {
		status = "🟢 Enabled"
	}
	channel := "Not set"
	if t.ChannelID != "" {
		channel = "<#" + t.ChannelID + ">"
	}
	lines := []string{
		"**Status:** " + status,
		"**Channel:** " + channel,
		fmt.Sprintf("**Frequency:** every %d min", t.FrequencyMinutes),
		fmt.Sprintf("**Limit:** %d/%d per day", c.status.DailyCount(guildID), t.MaxPerDay),
	}
	if t.Enabled && !c.status.IsRunning(guildID) {
		lines = append(lines, "⚠️ Timer is not running. Check the channel and the AI key.")
	}
	return &Response{
		Content: content,
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "☢️ Toxic Mode",
			Description: strings.Join(lines, "\n"),
			Color:       toxic.PostColor,
		}},
		Ephemeral: true,
	}
}
