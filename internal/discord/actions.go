package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/yourusername/guildbot/internal/clock"
	"github.com/yourusername/guildbot/internal/commands"
	"github.com/yourusername/guildbot/internal/report"
	"github.com/yourusername/guildbot/internal/toxic"
)

const (
	// pageSize is the most messages one history request returns
	pageSize = 100
	// maxFetch caps how far back FetchMessages pages
	maxFetch = 500
	// bulkDeleteMaxAge is the oldest message the bulk delete endpoint accepts
	bulkDeleteMaxAge = 14 * 24 * time.Hour
)

// restAPI is the part of *discordgo.Session the actions call
type restAPI interface {
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildWithCounts(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
	GuildBanDelete(guildID, userID string, options ...discordgo.RequestOption) error
	GuildMemberTimeout(guildID, userID string, until *time.Time, options ...discordgo.RequestOption) error
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessagesBulkDelete(channelID string, messages []string, options ...discordgo.RequestOption) error
	ChannelEdit(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	HeartbeatLatency() time.Duration

	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, options ...discordgo.RequestOption) error
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error

	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	GuildMembers(guildID string, after string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberNickname(guildID, userID, nickname string, options ...discordgo.RequestOption) error
	GuildMemberMute(guildID, userID string, mute bool, options ...discordgo.RequestOption) error
	GuildMemberDeafen(guildID, userID string, deaf bool, options ...discordgo.RequestOption) error
	GuildMemberMove(guildID, userID string, channelID *string, options ...discordgo.RequestOption) error
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildBans(guildID string, limit int, beforeID, afterID string, options ...discordgo.RequestOption) ([]*discordgo.GuildBan, error)
	GuildInvites(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Invite, error)
	GuildEmojis(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Emoji, error)
	GuildEmojiCreate(guildID string, data *discordgo.EmojiParams, options ...discordgo.RequestOption) (*discordgo.Emoji, error)
}

// Actions performs guild operations over the REST API, reading the gateway
// state cache first where it can
type Actions struct {
	api   restAPI
	state *discordgo.State
	clock clock.Clock
}

var (
	_ commands.GuildActions  = (*Actions)(nil)
	_ report.GuildInfoSource = (*Actions)(nil)
	_ toxic.ChannelReader    = (*Actions)(nil)
)

// NewActions creates guild actions; state may be nil
func NewActions(api restAPI, state *discordgo.State, clk clock.Clock) *Actions {
	if clk == nil {
		clk = clock.Real()
	}
	return &Actions{api: api, state: state, clock: clk}
}

// Member looks up a guild member
func (a *Actions) Member(ctx context.Context, guildID, userID string) (*commands.Member, error) {
	if m, err := a.state.Member(guildID, userID); err == nil && m.User != nil {
		return toMember(m), nil
	}
	m, err := a.api.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return toMember(m), nil
}

// GuildInfo returns a snapshot of a guild for /serverinfo and reports
func (a *Actions) GuildInfo(ctx context.Context, guildID string) (*report.GuildInfo, error) {
	if g, err := a.state.Guild(guildID); err == nil {
		return guildInfo(g, g.Channels), nil
	}

	g, err := a.api.GuildWithCounts(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	channels, err := a.api.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return guildInfo(g, channels), nil
}

// Kick removes a member from the guild
func (a *Actions) Kick(ctx context.Context, guildID, userID, reason string) error {
	return a.api.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
}

// Ban bans a user and deletes deleteDays days of their messages
func (a *Actions) Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	return a.api.GuildBanCreateWithReason(guildID, userID, reason, deleteDays, discordgo.WithContext(ctx))
}

// Unban lifts a ban
func (a *Actions) Unban(ctx context.Context, guildID, userID string) error {
	return a.api.GuildBanDelete(guildID, userID, discordgo.WithContext(ctx))
}

// Timeout mutes a member until the given time; nil lifts the timeout
func (a *Actions) Timeout(ctx context.Context, guildID, userID string, until *time.Time) error {
	return a.api.GuildMemberTimeout(guildID, userID, until, discordgo.WithContext(ctx))
}

// BulkDelete deletes up to count recent messages and returns how many were
// removed. Messages older than 14 days are skipped.
func (a *Actions) BulkDelete(ctx context.Context, channelID string, count int) (int, error) {
	if count > pageSize {
		count = pageSize
	}
	msgs, err := a.api.ChannelMessages(channelID, count, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return 0, err
	}

	cutoff := a.clock.Now().Add(-bulkDeleteMaxAge)
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Timestamp.After(cutoff) {
			ids = append(ids, m.ID)
		}
	}
	return a.DeleteMessages(ctx, channelID, ids)
}

// DeleteMessages removes the given messages, at most one bulk request's worth
func (a *Actions) DeleteMessages(ctx context.Context, channelID string, ids []string) (int, error) {
	if len(ids) > pageSize {
		ids = ids[:pageSize]
	}
	switch len(ids) {
	case 0:
		return 0, nil
	case 1:
		// the bulk endpoint rejects a single message
		if err := a.api.ChannelMessageDelete(channelID, ids[0], discordgo.WithContext(ctx)); err != nil {
			return 0, err
		}
	default:
		if err := a.api.ChannelMessagesBulkDelete(channelID, ids, discordgo.WithContext(ctx)); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

// SetSlowmode sets the per-user message interval of a channel; 0 disables it
func (a *Actions) SetSlowmode(ctx context.Context, channelID string, seconds int) error {
	_, err := a.api.ChannelEdit(channelID, &discordgo.ChannelEdit{RateLimitPerUser: &seconds}, discordgo.WithContext(ctx))
	return err
}

// FetchMessages returns up to limit messages newer than since, newest first.
// A zero since means no cutoff.
func (a *Actions) FetchMessages(ctx context.Context, channelID string, limit int, since time.Time) ([]commands.ChatMessage, error) {
	msgs, err := a.history(ctx, channelID, limit, since)
	if err != nil {
		return nil, err
	}
	out := make([]commands.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toChatMessage(m))
	}
	return out, nil
}

// RecentMessages returns the newest messages of a channel for toxic mode
func (a *Actions) RecentMessages(ctx context.Context, channelID string, limit int) ([]toxic.Message, error) {
	msgs, err := a.history(ctx, channelID, limit, time.Time{})
	if err != nil {
		return nil, err
	}
	out := make([]toxic.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toxic.Message{
			AuthorID:   m.Author.ID,
			AuthorName: displayName(m.Member, m.Author),
			AvatarURL:  m.Author.AvatarURL(""),
			Bot:        m.Author.Bot,
			Content:    m.Content,
		})
	}
	return out, nil
}

// history pages backwards with before= until limit messages are collected,
// the channel runs out or a message predates since
func (a *Actions) history(ctx context.Context, channelID string, limit int, since time.Time) ([]*discordgo.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	if limit > maxFetch {
		limit = maxFetch
	}

	var (
		out    []*discordgo.Message
		before string
	)
	for len(out) < limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n := limit - len(out)
		if n > pageSize {
			n = pageSize
		}
		page, err := a.api.ChannelMessages(channelID, n, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("fetching messages: %w", err)
		}

		for _, m := range page {
			if !since.IsZero() && m.Timestamp.Before(since) {
				return out, nil
			}
			if m.Author == nil {
				continue
			}
			out = append(out, m)
		}
		if len(page) < n {
			break
		}
		before = page[len(page)-1].ID
	}
	return out, nil
}

// SendDM sends an embed to a user's direct messages
func (a *Actions) SendDM(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error {
	ch, err := a.api.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("opening DM channel: %w", err)
	}
	_, err = a.api.ChannelMessageSendEmbed(ch.ID, embed, discordgo.WithContext(ctx))
	return err
}

// Latency returns the gateway heartbeat round trip
func (a *Actions) Latency() time.Duration {
	return a.api.HeartbeatLatency()
}

func toChatMessage(m *discordgo.Message) commands.ChatMessage {
	out := commands.ChatMessage{
		ID:          m.ID,
		Content:     m.Content,
		Timestamp:   m.Timestamp,
		Attachments: len(m.Attachments),
	}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
		out.AuthorName = displayName(m.Member, m.Author)
		out.Bot = m.Author.Bot
	}
	for _, r := range m.Reactions {
		out.Reactions += r.Count
	}
	return out
}

func toMember(m *discordgo.Member) *commands.Member {
	out := &commands.Member{
		Nick:     m.Nick,
		Roles:    m.Roles,
		JoinedAt: m.JoinedAt,
	}
	if m.PremiumSince != nil {
		out.BoostingSince = *m.PremiumSince
	}
	if u := m.User; u != nil {
		out.ID = u.ID
		out.Username = u.Username
		out.Tag = u.String()
		out.Bot = u.Bot
		out.DisplayName = displayName(m, u)
		out.AvatarURL = m.AvatarURL("")
		if t, err := discordgo.SnowflakeTimestamp(u.ID); err == nil {
			out.CreatedAt = t
		}
	}
	return out
}

// displayName prefers the guild nickname, then the global name, then the username
func displayName(m *discordgo.Member, u *discordgo.User) string {
	if m != nil && m.Nick != "" {
		return m.Nick
	}
	if u == nil {
		return ""
	}
	return u.DisplayName()
}

func guildInfo(g *discordgo.Guild, channels []*discordgo.Channel) *report.GuildInfo {
	info := &report.GuildInfo{
		ID:          g.ID,
		Name:        g.Name,
		IconURL:     g.IconURL(""),
		BannerURL:   g.BannerURL("1024"),
		OwnerID:     g.OwnerID,
		MemberCount: g.MemberCount,
		OnlineCount: g.ApproximatePresenceCount,
		VoiceCount:  len(g.VoiceStates),
		Channels:    len(channels),
		Roles:       len(g.Roles),
		Emojis:      len(g.Emojis),
		Boosts:      g.PremiumSubscriptionCount,
		BoostTier:   int(g.PremiumTier),
	}
	if info.MemberCount == 0 {
		info.MemberCount = g.ApproximateMemberCount
	}
	if len(g.Presences) > 0 {
		info.OnlineCount = 0
		for _, p := range g.Presences {
			if p.Status != discordgo.StatusOffline {
				info.OnlineCount++
			}
		}
	}
	if t, err := discordgo.SnowflakeTimestamp(g.ID); err == nil {
		info.CreatedAt = t
	}
	for _, c := range channels {
		switch c.Type {
		case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
			info.TextChannels++
		case discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice:
			info.VoiceChannels++
		}
	}
	return info
}
