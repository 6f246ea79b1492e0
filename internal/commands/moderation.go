package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/yourusername/guildbot/internal/clock"
	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/validation"
)

const (
	colorModeration = 0xffa500
	colorWarning    = 0xffff00

	maxClearCount    = 100
	maxSlowmodeSecs  = 21600
	maxBanDeleteDays = 7
)

// TimeoutDurations are the /timeout choices in seconds
var TimeoutDurations = []Choice{
	{Name: "60 seconds", Value: int64(60)},
	{Name: "5 minutes", Value: int64(300)},
	{Name: "10 minutes", Value: int64(600)},
	{Name: "1 hour", Value: int64(3600)},
	{Name: "1 day", Value: int64(86400)},
	{Name: "1 week", Value: int64(604800)},
}

func userOption(desc string) Option {
	return Option{Name: "user", Description: desc, Type: OptionUser, Required: true}
}

func reasonOption(required bool) Option {
	return Option{Name: "reason", Description: "Reason", Type: OptionString, Required: required, MaxLength: validation.MaxReasonLength}
}

// resolveTarget loads the member named by the "user" option and rejects the
// caller and bots
func resolveTarget(ctx *Context, verb string) (*Member, error) {
	u := ctx.User("user")
	if u == nil {
		return nil, boterrors.NewInvalidSyntaxError(ctx.Command, fmt.Sprintf("/%s user:<@user>", ctx.Command))
	}
	if u.ID == ctx.UserID {
		return nil, boterrors.NewValidationError(fmt.Sprintf("You can't %s yourself.", verb))
	}
	m, err := ctx.Guild.Member(ctx.Context(), ctx.GuildID, u.ID)
	if err != nil || m == nil {
		return nil, boterrors.NewNotFoundError("Member", u.Tag)
	}
	if m.Bot {
		return nil, boterrors.NewValidationError(fmt.Sprintf("You can't %s a bot.", verb))
	}
	return m, nil
}

// forgetTempBan drops a stored temporary ban, if any. Errors are ignored.
func forgetTempBan(ctx *Context, store TempBanStore, userID string) {
	if store == nil {
		return
	}
	_ = store.DeleteTempBan(ctx.Context(), ctx.GuildID, userID)
}

func platformError(err error) error {
	if _, ok := boterrors.AsBotError(err); ok {
		return err
	}
	return boterrors.NewUpstreamError("discord", err)
}

func moderationEmbed(title string, color int, target *Member, moderatorTag, reason string, extra ...*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "👤 User", Value: target.Tag, Inline: true},
		{Name: "🆔 ID", Value: target.ID, Inline: true},
	}
	fields = append(fields, extra...)
	fields = append(fields,
		&discordgo.MessageEmbedField{Name: "📝 Reason", Value: reason},
		&discordgo.MessageEmbedField{Name: "👮 Moderator", Value: moderatorTag, Inline: true},
	)
	embed := &discordgo.MessageEmbed{Title: title, Color: color, Fields: fields}
	if target.AvatarURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: target.AvatarURL}
	}
	return embed
}

// KickCommand implements /kick
type KickCommand struct {
	meta
}

// NewKickCommand creates a new kick command
func NewKickCommand() *KickCommand {
	return &KickCommand{meta{
		name:       "kick",
		help:       "Kick a member from the server",
		category:   CategoryModeration,
		permission: discordgo.PermissionKickMembers,
		options:    []Option{userOption("Member to kick"), reasonOption(false)},
	}}
}

// Execute runs the kick command
func (c *KickCommand) Execute(ctx *Context) (*Response, error) {
	target, err := resolveTarget(ctx, "kick")
	if err != nil {
		return nil, err
	}
	reason := validation.Reason(ctx.String("reason"))
	if err := ctx.Guild.Kick(ctx.Context(), ctx.GuildID, target.ID, reason); err != nil {
		return nil, platformError(err)
	}

	resp := NewEmbedResponse(moderationEmbed("👢 Member kicked", colorModeration, target, ctx.UserTag, reason))
	resp.Audit = &AuditAction{Action: "kick", TargetID: target.ID, TargetTag: target.Tag, Reason: reason}
	return resp, nil
}

// BanCommand implements /ban
type BanCommand struct {
	meta
	tempBans TempBanStore
}

// NewBanCommand creates a new ban command
func NewBanCommand() *BanCommand {
	return &BanCommand{meta: meta{
		name:       "ban",
		help:       "Ban a member from the server",
		category:   CategoryModeration,
		permission: discordgo.PermissionBanMembers,
		options: []Option{
			userOption("Member to ban"),
			reasonOption(false),
			{Name: "delete_days", Description: "Delete their messages from the last N days (0-7)", Type: OptionInteger, MinValue: float(0), MaxValue: float(maxBanDeleteDays)},
		},
	}}
}

// WithTempBans makes a permanent ban cancel any pending automatic unban
func (c *BanCommand) WithTempBans(store TempBanStore) *BanCommand {
	c.tempBans = store
	return c
}

// Execute runs the ban command
func (c *BanCommand) Execute(ctx *Context) (*Response, error) {
	target, err := resolveTarget(ctx, "ban")
	if err != nil {
		return nil, err
	}
	days, _ := ctx.Int("delete_days")
	if days < 0 || days > maxBanDeleteDays {
		return nil, boterrors.NewValidationError(fmt.Sprintf("delete_days must be between 0 and %d.", maxBanDeleteDays))
	}
	reason := validation.Reason(ctx.String("reason"))
	if err := ctx.Guild.Ban(ctx.Context(), ctx.GuildID, target.ID, reason, int(days)); err != nil {
		return nil, platformError(err)
	}
	forgetTempBan(ctx, c.tempBans, target.ID)

	resp := NewEmbedResponse(moderationEmbed("🔨 Member banned", colorBad, target, ctx.UserTag, reason))
	resp.Audit = &AuditAction{
		Action: "ban", TargetID: target.ID, TargetTag: target.Tag, Reason: reason,
		Details: map[string]string{"delete_days": strconv.FormatInt(days, 10)},
	}
	return resp, nil
}

// UnbanCommand implements /unban
type UnbanCommand struct {
	meta
	tempBans TempBanStore
}

// NewUnbanCommand creates a new unban command
func NewUnbanCommand() *UnbanCommand {
	return &UnbanCommand{meta: meta{
		name:       "unban",
		help:       "Lift a ban by user ID",
		category:   CategoryModeration,
		permission: discordgo.PermissionBanMembers,
		options: []Option{
			{Name: "user_id", Description: "ID of the banned user", Type: OptionString, Required: true},
			reasonOption(false),
		},
	}}
}

// WithTempBans drops the pending automatic unban of a lifted temporary ban
func (c *UnbanCommand) WithTempBans(store TempBanStore) *UnbanCommand {
	c.tempBans = store
	return c
}

// Execute runs the unban command
func (c *UnbanCommand) Execute(ctx *Context) (*Response, error) {
	userID := ctx.String("user_id")
	if !validation.IsDiscordID(userID) {
		return nil, boterrors.NewValidationError("Invalid user ID.")
	}
	reason := validation.Reason(ctx.String("reason"))
	if err := ctx.Guild.Unban(ctx.Context(), ctx.GuildID, userID); err != nil {
		return nil, platformError(err)
	}
	forgetTempBan(ctx, c.tempBans, userID)

	resp := NewResponse(fmt.Sprintf("✅ <@%s> has been unbanned.", userID))
	resp.Audit = &AuditAction{Action: "unban", TargetID: userID, TargetTag: userID, Reason: reason}
	return resp, nil
}

// TimeoutCommand implements /timeout
type TimeoutCommand struct {
	meta
	clock clock.Clock
}

// NewTimeoutCommand creates a new timeout command
func NewTimeoutCommand(clk clock.Clock) *TimeoutCommand {
	return &TimeoutCommand{
		meta: meta{
			name:       "timeout",
			help:       "Temporarily mute a member",
			category:   CategoryModeration,
			permission: discordgo.PermissionModerateMembers,
			options: []Option{
				userOption("Member to mute"),
				{Name: "duration", Description: "How long", Type: OptionInteger, Required: true, Choices: TimeoutDurations},
				reasonOption(false),
			},
		},
		clock: clk,
	}
}

// Execute runs the timeout command
func (c *TimeoutCommand) Execute(ctx *Context) (*Response, error) {
	target, err := resolveTarget(ctx, "time out")
	if err != nil {
		return nil, err
	}
	secs, ok := ctx.Int("duration")
	if !ok || !validTimeout(secs) {
		return nil, boterrors.NewValidationError("Choose one of the offered durations.")
	}
	reason := validation.Reason(ctx.String("reason"))
	until := c.clock.Now().Add(time.Duration(secs) * time.Second)
	if err := ctx.Guild.Timeout(ctx.Context(), ctx.GuildID, target.ID, &until); err != nil {
		return nil, platformError(err)
	}

	label := durationLabel(secs)
	resp := NewEmbedResponse(moderationEmbed("🔇 Member timed out", colorModeration, target, ctx.UserTag, reason,
		&discordgo.MessageEmbedField{Name: "⏰ Duration", Value: label, Inline: true}))
	resp.Audit = &AuditAction{
		Action: "timeout", TargetID: target.ID, TargetTag: target.Tag, Reason: reason,
		Details: map[string]string{"duration": label, "until": until.UTC().Format(time.RFC3339)},
	}
	return resp, nil
}

func validTimeout(secs int64) bool {
	for _, c := range TimeoutDurations {
		if c.Value.(int64) == secs {
			return true
		}
	}
	return false
}

func durationLabel(secs int64) string {
	for _, c := range TimeoutDurations {
		if c.Value.(int64) == secs {
			return c.Name
		}
	}
	return fmt.Sprintf("%d sec", secs)
}

// UntimeoutCommand implements /untimeout
type UntimeoutCommand struct {
	meta
}

// NewUntimeoutCommand creates a new untimeout command
func NewUntimeoutCommand() *UntimeoutCommand {
	return &UntimeoutCommand{meta{
		name:       "untimeout",
		help:       "Lift a member's timeout",
		category:   CategoryModeration,
		permission: discordgo.PermissionModerateMembers,
		options:    []Option{userOption("Member to unmute"), reasonOption(false)},
	}}
}

// Execute runs the untimeout command
func (c *UntimeoutCommand) Execute(ctx *Context) (*Response, error) {
	target, err := resolveTarget(ctx, "unmute")
	if err != nil {
		return nil, err
	}
	reason := validation.Reason(ctx.String("reason"))
	if err := ctx.Guild.Timeout(ctx.Context(), ctx.GuildID, target.ID, nil); err != nil {
		return nil, platformError(err)
	}

	resp := NewResponse(fmt.Sprintf("🔊 Timeout lifted for %s.", target.Tag))
	resp.Audit = &AuditAction{Action: "untimeout", TargetID: target.ID, TargetTag: target.Tag, Reason: reason}
	return resp, nil
}

// WarnCommand implements /warn
type WarnCommand struct {
	meta
	clock clock.Clock
}

// NewWarnCommand creates a new warn command
func NewWarnCommand(clk clock.Clock) *WarnCommand {
	return &WarnCommand{
		meta: meta{
			name:       "warn",
			help:       "Warn a member and notify them by DM",
			category:   CategoryModeration,
			permission: discordgo.PermissionModerateMembers,
			options:    []Option{userOption("Member to warn"), reasonOption(true)},
		},
		clock: clk,
	}
}

// Execute runs the warn command
func (c *WarnCommand) Execute(ctx *Context) (*Response, error) {
	target, err := resolveTarget(ctx, "warn")
	if err != nil {
		return nil, err
	}
	reason := validation.Sanitize(ctx.String("reason"))
	if reason == "" {
		return nil, boterrors.NewInvalidSyntaxError("warn", "/warn user:<@user> reason:<text>")
	}

	guildName := ctx.GuildID
	if info, err := ctx.Guild.GuildInfo(ctx.Context(), ctx.GuildID); err == nil && info.Name != "" {
		guildName = info.Name
	}

	now := timestamp(c.clock)
	dm := &discordgo.MessageEmbed{
		Title: "⚠️ You received a warning in " + guildName,
		Color: colorWarning,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📝 Reason", Value: reason},
			{Name: "👮 Moderator", Value: ctx.UserTag},
		},
		Timestamp: now,
	}
	delivered := ctx.Guild.SendDM(ctx.Context(), target.ID, dm) == nil

	embed := moderationEmbed("⚠️ Warning", colorWarning, target, ctx.UserTag, reason)
	embed.Timestamp = now
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "📭 Could not deliver the DM"}
	if delivered {
		embed.Footer.Text = "📬 Notified by DM"
	}

	resp := NewEmbedResponse(embed)
	resp.Audit = &AuditAction{
		Action: "warn", TargetID: target.ID, TargetTag: target.Tag, Reason: reason,
		Details: map[string]string{"dm_delivered": strconv.FormatBool(delivered)},
	}
	return resp, nil
}

// ClearCommand implements /clear
type ClearCommand struct {
	meta
}

// NewClearCommand creates a new clear command
func NewClearCommand() *ClearCommand {
	return &ClearCommand{meta{
		name:       "clear",
		help:       "Bulk delete recent messages in this channel",
		category:   CategoryModeration,
		permission: discordgo.PermissionManageMessages,
		deferred:   true,
		options: []Option{
			{Name: "count", Description: "How many messages (1-100)", Type: OptionInteger, Required: true, MinValue: float(1), MaxValue: float(maxClearCount)},
		},
	}}
}

// Execute runs the clear command
func (c *ClearCommand) Execute(ctx *Context) (*Response, error) {
	count, ok := ctx.Int("count")
	if !ok || count < 1 || count > maxClearCount {
		return nil, boterrors.NewValidationError(fmt.Sprintf("Count must be between 1 and %d.", maxClearCount))
	}
	deleted, err := ctx.Guild.BulkDelete(ctx.Context(), ctx.ChannelID, int(count))
	if err != nil {
		return nil, platformError(err)
	}

	resp := NewEphemeral(fmt.Sprintf("🧹 Deleted %d messages.", deleted))
	if int64(deleted) < count {
		resp.Content += "\nMessages older than 14 days can't be bulk deleted."
	}
	resp.Audit = &AuditAction{
		Action:  "clear",
		Details: map[string]string{"requested": strconv.FormatInt(count, 10), "deleted": strconv.Itoa(deleted)},
	}
	return resp, nil
}

// SlowmodeCommand implements /slowmode
type SlowmodeCommand struct {
	meta
}

// NewSlowmodeCommand creates a new slowmode command
func NewSlowmodeCommand() *SlowmodeCommand {
	return &SlowmodeCommand{meta{
		name:       "slowmode",
		help:       "Set this channel's slowmode delay; 0 turns it off",
		category:   CategoryModeration,
		permission: discordgo.PermissionManageChannels,
		options: []Option{
			{Name: "seconds", Description: "Delay between messages (0-21600)", Type: OptionInteger, Required: true, MinValue: float(0), MaxValue: float(maxSlowmodeSecs)},
		},
	}}
}

// Execute runs the slowmode command
func (c *SlowmodeCommand) Execute(ctx *Context) (*Response, error) {
	secs, ok := ctx.Int("seconds")
	if !ok || secs < 0 || secs > maxSlowmodeSecs {
		return nil, boterrors.NewValidationError(fmt.Sprintf("Seconds must be between 0 and %d.", maxSlowmodeSecs))
	}
	if err := ctx.Guild.SetSlowmode(ctx.Context(), ctx.ChannelID, int(secs)); err != nil {
		return nil, platformError(err)
	}

	msg := fmt.Sprintf("🐢 Slowmode set to %d sec.", secs)
	if secs == 0 {
		msg = "🐇 Slowmode disabled."
	}
	resp := NewResponse(msg)
	resp.Audit = &AuditAction{Action: "slowmode", Details: map[string]string{"seconds": strconv.FormatInt(secs, 10)}}
	return resp, nil
}
