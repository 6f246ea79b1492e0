package discord

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/yourusername/guildbot/internal/commands"
)

const (
	// memberPageSize is the most members one list request returns
	memberPageSize = 1000
	// maxMembers caps how many members Members pages through
	maxMembers = 10000
	// banPageSize is the most bans one request returns
	banPageSize = 1000
)

// Roles lists the guild's roles, highest first
func (a *Actions) Roles(ctx context.Context, guildID string) ([]commands.Role, error) {
	roles, err := a.guildRoles(ctx, guildID)
	if err != nil {
		return nil, err
	}
	out := make([]commands.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, commands.Role{
			ID:          r.ID,
			Name:        r.Name,
			Color:       r.Color,
			Position:    r.Position,
			Permissions: r.Permissions,
			Managed:     r.Managed,
			Mentionable: r.Mentionable,
			Hoist:       r.Hoist,
			IconURL:     r.IconURL(""),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position > out[j].Position })
	return out, nil
}

func (a *Actions) guildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	if g, err := a.state.Guild(guildID); err == nil && len(g.Roles) > 0 {
		return g.Roles, nil
	}
	return a.api.GuildRoles(guildID, discordgo.WithContext(ctx))
}

// AddRole grants a role to a member
func (a *Actions) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	return a.api.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
}

// RemoveRole takes a role from a member
func (a *Actions) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	return a.api.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx))
}

// SetNickname changes a member's nickname; "" resets it
func (a *Actions) SetNickname(ctx context.Context, guildID, userID, nick string) error {
	return a.api.GuildMemberNickname(guildID, userID, nick, discordgo.WithContext(ctx))
}

// VoiceState returns nil when the member is not in a voice channel.
// Voice states only arrive over the gateway, so this reads the state cache.
func (a *Actions) VoiceState(_ context.Context, guildID, userID string) (*commands.VoiceState, error) {
	vs, err := a.state.VoiceState(guildID, userID)
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if vs.ChannelID == "" {
		return nil, nil
	}
	return &commands.VoiceState{
		ChannelID: vs.ChannelID,
		Mute:      vs.Mute,
		Deaf:      vs.Deaf,
		SelfMute:  vs.SelfMute,
		SelfDeaf:  vs.SelfDeaf,
	}, nil
}

// VoiceMembers returns the IDs of members connected to a voice channel
func (a *Actions) VoiceMembers(_ context.Context, guildID, channelID string) ([]string, error) {
	g, err := a.state.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("voice states unavailable: %w", err)
	}
	a.state.RLock()
	defer a.state.RUnlock()

	var ids []string
	for _, vs := range g.VoiceStates {
		if vs.ChannelID == channelID {
			ids = append(ids, vs.UserID)
		}
	}
	return ids, nil
}

// SetVoiceMute server mutes or unmutes a member
func (a *Actions) SetVoiceMute(ctx context.Context, guildID, userID string, mute bool) error {
	return a.api.GuildMemberMute(guildID, userID, mute, discordgo.WithContext(ctx))
}

// SetVoiceDeaf server deafens or undeafens a member
func (a *Actions) SetVoiceDeaf(ctx context.Context, guildID, userID string, deaf bool) error {
	return a.api.GuildMemberDeafen(guildID, userID, deaf, discordgo.WithContext(ctx))
}

// MoveVoice moves a member to another voice channel; "" disconnects them
func (a *Actions) MoveVoice(ctx context.Context, guildID, userID, channelID string) error {
	var target *string
	if channelID != "" {
		target = &channelID
	}
	return a.api.GuildMemberMove(guildID, userID, target, discordgo.WithContext(ctx))
}

// Members pages through the guild's member list
func (a *Actions) Members(ctx context.Context, guildID string) ([]commands.Member, error) {
	var (
		out   []commands.Member
		after string
	)
	for len(out) < maxMembers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := a.api.GuildMembers(guildID, after, memberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("listing members: %w", err)
		}
		for _, m := range page {
			if m.User == nil {
				continue
			}
			out = append(out, *toMember(m))
		}
		if len(page) < memberPageSize {
			break
		}
		after = page[len(page)-1].User.ID
	}
	return out, nil
}

// UserProfile fetches a user's global profile
func (a *Actions) UserProfile(ctx context.Context, userID string) (*commands.UserProfile, error) {
	u, err := a.api.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return &commands.UserProfile{
		ID:          u.ID,
		Tag:         u.String(),
		Bot:         u.Bot,
		BannerURL:   u.BannerURL("1024"),
		AccentColor: u.AccentColor,
		Flags:       int(u.PublicFlags),
	}, nil
}

// Bans lists the guild's bans, up to one page
func (a *Actions) Bans(ctx context.Context, guildID string) ([]commands.Ban, error) {
	bans, err := a.api.GuildBans(guildID, banPageSize, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	out := make([]commands.Ban, 0, len(bans))
	for _, b := range bans {
		if b.User == nil {
			continue
		}
		out = append(out, commands.Ban{UserID: b.User.ID, UserTag: b.User.String(), Reason: b.Reason})
	}
	return out, nil
}

// Invites lists the guild's active invites
func (a *Actions) Invites(ctx context.Context, guildID string) ([]commands.Invite, error) {
	invites, err := a.api.GuildInvites(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	out := make([]commands.Invite, 0, len(invites))
	for _, inv := range invites {
		i := commands.Invite{Code: inv.Code, Uses: inv.Uses}
		if inv.Inviter != nil {
			i.InviterID = inv.Inviter.ID
			i.InviterTag = inv.Inviter.String()
		}
		if inv.Channel != nil {
			i.ChannelID = inv.Channel.ID
		}
		out = append(out, i)
	}
	return out, nil
}

// Emojis lists the guild's custom emojis
func (a *Actions) Emojis(ctx context.Context, guildID string) ([]commands.Emoji, error) {
	var emojis []*discordgo.Emoji
	if g, err := a.state.Guild(guildID); err == nil {
		emojis = g.Emojis
	} else {
		emojis, err = a.api.GuildEmojis(guildID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, err
		}
	}
	out := make([]commands.Emoji, 0, len(emojis))
	for _, e := range emojis {
		out = append(out, commands.Emoji{ID: e.ID, Name: e.Name, Animated: e.Animated})
	}
	return out, nil
}

// CreateEmoji uploads an emoji from a base64 data URI
func (a *Actions) CreateEmoji(ctx context.Context, guildID, name, image string) (*commands.Emoji, error) {
	if !strings.HasPrefix(image, "data:") {
		return nil, errors.New("emoji image must be a data URI")
	}
	e, err := a.api.GuildEmojiCreate(guildID, &discordgo.EmojiParams{Name: name, Image: image}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return &commands.Emoji{ID: e.ID, Name: e.Name, Animated: e.Animated}, nil
}
