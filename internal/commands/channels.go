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
	defaultPurgeScan = 100
	bulkDeleteMaxAge = 14 * 24 * time.Hour
)

func channelOption(desc string) Option {
	return Option{Name: "channel", Description: desc, Type: OptionChannel}
}

// targetChannel returns the "channel" option or the channel the command ran in
func targetChannel(ctx *Context) (*Channel, error) {
	id := ctx.String("channel")
	if id == "" {
		id = ctx.ChannelID
	}
	ch, err := ctx.Guild.Channel(ctx.Context(), id)
	if err != nil || ch == nil {
		return nil, boterrors.NewNotFoundError("Channel", "<#"+id+">")
	}
	return ch, nil
}

// ChannelAccessCommand denies or restores one @everyone permission in a
// channel. It backs /lock, /unlock, /hide and /show.
type ChannelAccessCommand struct {
	meta
	perm   int64
	deny   bool
	action string
	done   string
}

// NewLockCommand creates /lock, which stops @everyone from sending messages
func NewLockCommand() *ChannelAccessCommand {
	return newChannelAccess("lock", "Stop everyone from sending messages in a channel",
		discordgo.PermissionSendMessages, true, "🔒 %s is locked.")
}

// NewUnlockCommand creates /unlock
func NewUnlockCommand() *ChannelAccessCommand {
	return newChannelAccess("unlock", "Let everyone send messages in a channel again",
		discordgo.PermissionSendMessages, false, "🔓 %s is unlocked.")
}

// NewHideCommand creates /hide, which hides a channel from @everyone
func NewHideCommand() *ChannelAccessCommand {
	return newChannelAccess("hide", "Hide a channel from everyone",
		discordgo.PermissionViewChannel, true, "🙈 %s is hidden.")
}

// NewShowCommand creates /show
func NewShowCommand() *ChannelAccessCommand {
	return newChannelAccess("show", "Make a hidden channel visible again",
		discordgo.PermissionViewChannel, false, "👀 %s is visible again.")
}

func newChannelAccess(name, help string, perm int64, deny bool, done string) *ChannelAccessCommand {
	return &ChannelAccessCommand{
		meta: meta{
			name:       name,
			help:       help,
			category:   CategoryModeration,
			permission: discordgo.PermissionManageChannels,
			options:    []Option{channelOption("Channel (defaults to this one)"), reasonOption(false)},
		},
		perm:   perm,
		deny:   deny,
		action: name,
		done:   done,
	}
}

// Execute runs the channel access command
func (c *ChannelAccessCommand) Execute(ctx *Context) (*Response, error) {
	ch, err := targetChannel(ctx)
	if err != nil {
		return nil, err
	}
	if ch.Kind == ChannelCategory {
		return nil, boterrors.NewValidationError("Pick a channel, not a category.")
	}
	reason := validation.Reason(ctx.String("reason"))
	if err := ctx.Guild.SetEveryoneAccess(ctx.Context(), ctx.GuildID, ch.ID, c.perm, c.deny); err != nil {
		return nil, platformError(err)
	}

	resp := NewResponse(fmt.Sprintf(c.done, "<#"+ch.ID+">"))
	resp.Audit = &AuditAction{Action: c.action, TargetID: ch.ID, TargetTag: "#" + ch.Name, Reason: reason}
	return resp, nil
}

// SlowoffCommand implements /slowoff
type SlowoffCommand struct {
	meta
}

// NewSlowoffCommand creates a new slowoff command
func NewSlowoffCommand() *SlowoffCommand {
	return &SlowoffCommand{meta{
		name:       "slowoff",
		help:       "Turn off slowmode in a channel",
		category:   CategoryModeration,
		permission: discordgo.PermissionManageChannels,
		options:    []Option{channelOption("Channel (defaults to this one)")},
	}}
}

// Execute runs the slowoff command
func (c *SlowoffCommand) Execute(ctx *Context) (*Response, error) {
	ch, err := targetChannel(ctx)
	if err != nil {
		return nil, err
	}
	if ch.Slowmode == 0 {
		return nil, boterrors.NewValidationError(fmt.Sprintf("Slowmode is already off in <#%s>.", ch.ID))
	}
	if err := ctx.Guild.SetSlowmode(ctx.Context(), ch.ID, 0); err != nil {
		return nil, platformError(err)
	}

	resp := NewResponse(fmt.Sprintf("🐇 Slowmode disabled in <#%s> (was %d sec).", ch.ID, ch.Slowmode))
	resp.Audit = &AuditAction{
		Action: "slowmode", TargetID: ch.ID, TargetTag: "#" + ch.Name,
		Details: map[string]string{"seconds": "0", "previous": strconv.Itoa(ch.Slowmode)},
	}
	return resp, nil
}

// PurgeCommand implements /purge
type PurgeCommand struct {
	meta
	clock clock.Clock
}

// NewPurgeCommand creates a new purge command
func NewPurgeCommand(clk clock.Clock) *PurgeCommand {
	return &PurgeCommand{
		meta: meta{
			name:       "purge",
			help:       "Delete one member's recent messages in this channel",
			category:   CategoryModeration,
			permission: discordgo.PermissionManageMessages,
			deferred:   true,
			options: []Option{
				{Name: "user", Description: "Whose messages to delete", Type: OptionUser, Required: true},
				{Name: "count", Description: "How many recent messages to scan (1-100)", Type: OptionInteger, MinValue: float(1), MaxValue: float(maxClearCount)},
			},
		},
		clock: clk,
	}
}

// Execute runs the purge command
func (c *PurgeCommand) Execute(ctx *Context) (*Response, error) {
	u := ctx.User("user")
	if u == nil {
		return nil, boterrors.NewInvalidSyntaxError("purge", "/purge user:<@user> [count]")
	}
	scan := int64(defaultPurgeScan)
	if n, ok := ctx.Int("count"); ok {
		scan = n
	}
	if scan < 1 || scan > maxClearCount {
		return nil, boterrors.NewValidationError(fmt.Sprintf("Count must be between 1 and %d.", maxClearCount))
	}

	msgs, err := ctx.Guild.FetchMessages(ctx.Context(), ctx.ChannelID, int(scan), time.Time{})
	if err != nil {
		return nil, platformError(err)
	}
	cutoff := c.clock.Now().Add(-bulkDeleteMaxAge)
	var ids []string
	for _, m := range msgs {
		if m.AuthorID == u.ID && m.Timestamp.After(cutoff) {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		return NewEphemeral(fmt.Sprintf("🔍 No recent messages from %s in the last %d.", u.Tag, scan)), nil
	}

	deleted, err := ctx.Guild.DeleteMessages(ctx.Context(), ctx.ChannelID, ids)
	if err != nil {
		return nil, platformError(err)
	}
	resp := NewEphemeral(fmt.Sprintf("🧹 Deleted %d messages from %s.", deleted, u.Tag))
	resp.Audit = &AuditAction{
		Action: "purge", TargetID: u.ID, TargetTag: u.Tag,
		Details: map[string]string{"scanned": strconv.FormatInt(scan, 10), "deleted": strconv.Itoa(deleted)},
	}
	return resp, nil
}
