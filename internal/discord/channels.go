package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/yourusername/guildbot/internal/commands"
)

var channelKinds = map[discordgo.ChannelType]commands.ChannelKind{
	discordgo.ChannelTypeGuildText:       commands.ChannelText,
	discordgo.ChannelTypeGuildVoice:      commands.ChannelVoice,
	discordgo.ChannelTypeGuildCategory:   commands.ChannelCategory,
	discordgo.ChannelTypeGuildNews:       commands.ChannelAnnouncement,
	discordgo.ChannelTypeGuildStageVoice: commands.ChannelStage,
	discordgo.ChannelTypeGuildForum:      commands.ChannelForum,
}

// Channel looks up a channel, from the state cache when possible
func (a *Actions) Channel(ctx context.Context, channelID string) (*commands.Channel, error) {
	ch, err := a.state.Channel(channelID)
	if err != nil {
		ch, err = a.api.Channel(channelID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, err
		}
	}
	return toChannel(ch), nil
}

// SetEveryoneAccess denies perm to @everyone in a channel, or removes that
// denial, keeping the rest of the overwrite intact. The @everyone role shares
// the guild's ID.
func (a *Actions) SetEveryoneAccess(ctx context.Context, guildID, channelID string, perm int64, deny bool) error {
	ch, err := a.state.Channel(channelID)
	if err != nil {
		ch, err = a.api.Channel(channelID, discordgo.WithContext(ctx))
		if err != nil {
			return err
		}
	}

	var allow, denied int64
	for _, o := range ch.PermissionOverwrites {
		if o.ID == guildID && o.Type == discordgo.PermissionOverwriteTypeRole {
			allow, denied = o.Allow, o.Deny
			break
		}
	}
	if deny {
		allow &^= perm
		denied |= perm
	} else {
		denied &^= perm
	}
	return a.api.ChannelPermissionSet(channelID, guildID, discordgo.PermissionOverwriteTypeRole, allow, denied, discordgo.WithContext(ctx))
}

// FirstMessage returns the oldest message of a channel, or nil when it is empty
func (a *Actions) FirstMessage(ctx context.Context, channelID string) (*commands.ChatMessage, error) {
	msgs, err := a.api.ChannelMessages(channelID, 1, "", "0", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching first message: %w", err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	m := toChatMessage(msgs[0])
	return &m, nil
}

// Send posts a message and returns its ID
func (a *Actions) Send(ctx context.Context, channelID string, msg *discordgo.MessageSend) (string, error) {
	if msg.AllowedMentions == nil {
		msg.AllowedMentions = &discordgo.MessageAllowedMentions{}
	}
	sent, err := a.api.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return sent.ID, nil
}

// React adds a reaction; emoji is a unicode emoji or name:id
func (a *Actions) React(ctx context.Context, channelID, messageID, emoji string) error {
	return a.api.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx))
}

func toChannel(ch *discordgo.Channel) *commands.Channel {
	kind, ok := channelKinds[ch.Type]
	if !ok {
		kind = commands.ChannelOther
	}
	out := &commands.Channel{
		ID:        ch.ID,
		Name:      ch.Name,
		Kind:      kind,
		ParentID:  ch.ParentID,
		Topic:     ch.Topic,
		NSFW:      ch.NSFW,
		Slowmode:  ch.RateLimitPerUser,
		Position:  ch.Position,
		UserLimit: ch.UserLimit,
		Bitrate:   ch.Bitrate,
	}
	if t, err := discordgo.SnowflakeTimestamp(ch.ID); err == nil {
		out.CreatedAt = t
	}
	return out
}
