package discord

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/guildbot/internal/clock"
	"github.com/yourusername/guildbot/internal/commands"
)

const testGuild = "100000000000000010"

func TestSetEveryoneAccess(t *testing.T) {
	api := &fakeAPI{channels: map[string]*discordgo.Channel{
		"c1": {
			ID: "c1",
			PermissionOverwrites: []*discordgo.PermissionOverwrite{
				{ID: "r1", Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
				{ID: testGuild, Type: discordgo.PermissionOverwriteTypeRole,
					Allow: discordgo.PermissionSendMessages | discordgo.PermissionAddReactions,
					Deny:  discordgo.PermissionEmbedLinks},
			},
		},
	}}
	a := NewActions(api, nil, clock.NewFake(testNow))
	ctx := context.Background()

	require.NoError(t, a.SetEveryoneAccess(ctx, testGuild, "c1", discordgo.PermissionSendMessages, true))
	assert.Equal(t, []string{"overwrite c1 " + testGuild}, api.calls)
	assert.Equal(t, int64(discordgo.PermissionAddReactions), api.overwrite[0])
	assert.Equal(t, int64(discordgo.PermissionEmbedLinks|discordgo.PermissionSendMessages), api.overwrite[1])

	api.channels["c1"].PermissionOverwrites[1].Deny = api.overwrite[1]
	require.NoError(t, a.SetEveryoneAccess(ctx, testGuild, "c1", discordgo.PermissionSendMessages, false))
	assert.Equal(t, int64(discordgo.PermissionEmbedLinks), api.overwrite[1])

	assert.Error(t, a.SetEveryoneAccess(ctx, testGuild, "missing", discordgo.PermissionSendMessages, true))
}

func TestChannel(t *testing.T) {
	api := &fakeAPI{channels: map[string]*discordgo.Channel{
		"100000000000000020": {ID: "100000000000000020", Name: "general", Type: discordgo.ChannelTypeGuildText, Topic: "chat", RateLimitPerUser: 10},
		"100000000000000021": {ID: "100000000000000021", Name: "Lounge", Type: discordgo.ChannelTypeGuildVoice, UserLimit: 5, Bitrate: 64000},
		"100000000000000022": {ID: "100000000000000022", Name: "thread", Type: discordgo.ChannelTypeGuildPublicThread},
	}}
	a := NewActions(api, nil, clock.NewFake(testNow))

	tests := []struct {
		id    string
		kind  commands.ChannelKind
		voice bool
	}{
		{"100000000000000020", commands.ChannelText, false},
		{"100000000000000021", commands.ChannelVoice, true},
		{"100000000000000022", commands.ChannelOther, false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			ch, err := a.Channel(context.Background(), tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, ch.Kind)
			assert.Equal(t, tt.voice, ch.IsVoice())
			assert.False(t, ch.CreatedAt.IsZero())
		})
	}

	ch, err := a.Channel(context.Background(), "100000000000000020")
	require.NoError(t, err)
	assert.Equal(t, "chat", ch.Topic)
	assert.Equal(t, 10, ch.Slowmode)
}

func TestFirstMessage(t *testing.T) {
	history := newHistory(3)
	history[2].Attachments = []*discordgo.MessageAttachment{{ID: "a1"}}
	history[2].Reactions = []*discordgo.MessageReactions{{Count: 2}, {Count: 3}}
	api := &fakeAPI{history: history}
	a := NewActions(api, nil, clock.NewFake(testNow))

	m, err := a.FirstMessage(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "9998", m.ID)
	assert.Equal(t, 1, m.Attachments)
	assert.Equal(t, 5, m.Reactions)

	empty := NewActions(&fakeAPI{}, nil, clock.NewFake(testNow))
	m, err = empty.FirstMessage(context.Background(), "c1")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestSendAndReact(t *testing.T) {
	api := &fakeAPI{}
	a := NewActions(api, nil, clock.NewFake(testNow))
	ctx := context.Background()

	id, err := a.Send(ctx, "c1", &discordgo.MessageSend{Content: "@everyone hi"})
	require.NoError(t, err)
	assert.Equal(t, "sent-1", id)
	require.Len(t, api.sent, 1)
	require.NotNil(t, api.sent[0].AllowedMentions, "mentions are suppressed unless asked for")
	assert.Empty(t, api.sent[0].AllowedMentions.Parse)

	require.NoError(t, a.React(ctx, "c1", id, "👍"))
	assert.Equal(t, []string{"react sent-1 👍"}, api.calls)
}

func TestRoles_HighestFirst(t *testing.T) {
	api := &fakeAPI{roles: []*discordgo.Role{
		{ID: testGuild, Name: "@everyone", Position: 0},
		{ID: "r2", Name: "Admin", Position: 5, Permissions: discordgo.PermissionAdministrator},
		{ID: "r1", Name: "Member", Position: 1, Hoist: true},
	}}
	a := NewActions(api, nil, clock.NewFake(testNow))

	roles, err := a.Roles(context.Background(), testGuild)
	require.NoError(t, err)
	require.Len(t, roles, 3)
	assert.Equal(t, []string{"Admin", "Member", "@everyone"}, []string{roles[0].Name, roles[1].Name, roles[2].Name})
	assert.True(t, roles[1].Hoist)
}

func TestMemberWrites(t *testing.T) {
	api := &fakeAPI{}
	a := NewActions(api, nil, clock.NewFake(testNow))
	ctx := context.Background()

	require.NoError(t, a.AddRole(ctx, testGuild, "u1", "r1"))
	require.NoError(t, a.RemoveRole(ctx, testGuild, "u1", "r1"))
	require.NoError(t, a.SetNickname(ctx, testGuild, "u1", ""))
	require.NoError(t, a.SetVoiceMute(ctx, testGuild, "u1", true))
	require.NoError(t, a.SetVoiceDeaf(ctx, testGuild, "u1", false))
	require.NoError(t, a.MoveVoice(ctx, testGuild, "u1", "v2"))
	require.NoError(t, a.MoveVoice(ctx, testGuild, "u1", ""))

	assert.Equal(t, []string{
		"role+ u1 r1",
		"role- u1 r1",
		"nick u1 ",
		"mute u1 true",
		"deaf u1 false",
		"move u1 v2",
		"move u1 <nil>",
	}, api.calls)
}

func TestVoiceState(t *testing.T) {
	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{
		ID: testGuild,
		VoiceStates: []*discordgo.VoiceState{
			{UserID: "u1", ChannelID: "v1", Mute: true},
			{UserID: "u2", ChannelID: "v1", SelfDeaf: true},
			{UserID: "u3", ChannelID: "v2"},
		},
	}))
	a := NewActions(&fakeAPI{}, state, clock.NewFake(testNow))
	ctx := context.Background()

	vs, err := a.VoiceState(ctx, testGuild, "u1")
	require.NoError(t, err)
	require.NotNil(t, vs)
	assert.Equal(t, "v1", vs.ChannelID)
	assert.True(t, vs.Mute)

	vs, err = a.VoiceState(ctx, testGuild, "u9")
	require.NoError(t, err)
	assert.Nil(t, vs)

	ids, err := a.VoiceMembers(ctx, testGuild, "v1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, ids)

	_, err = NewActions(&fakeAPI{}, nil, nil).VoiceMembers(ctx, testGuild, "v1")
	assert.Error(t, err)
}

func TestMembers_Pages(t *testing.T) {
	api := &fakeAPI{}
	for i := 0; i < memberPageSize+5; i++ {
		api.memberList = append(api.memberList, &discordgo.Member{
			User: &discordgo.User{ID: fmt.Sprintf("%018d", i+1), Username: fmt.Sprintf("user%d", i), Bot: i%10 == 0},
		})
	}
	a := NewActions(api, nil, clock.NewFake(testNow))

	members, err := a.Members(context.Background(), testGuild)
	require.NoError(t, err)
	assert.Len(t, members, memberPageSize+5)
	assert.Equal(t, []string{"", fmt.Sprintf("%018d", memberPageSize)}, api.memberArgs)
}

func TestUserProfile(t *testing.T) {
	a := NewActions(&fakeAPI{}, nil, clock.NewFake(testNow))

	p, err := a.UserProfile(context.Background(), "100000000000000002")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Tag)
	assert.Contains(t, p.BannerURL, "b4nn3r")
	assert.Equal(t, 0x112233, p.AccentColor)
	assert.Equal(t, int(discordgo.UserFlagHypeSquadEvents|discordgo.UserFlagEarlySupporter), p.Flags)
}

func TestListings(t *testing.T) {
	api := &fakeAPI{
		bans: []*discordgo.GuildBan{
			{Reason: "spam", User: &discordgo.User{ID: "u1", Username: "spammer", Discriminator: "0"}},
			{Reason: "no user"},
		},
		invites: []*discordgo.Invite{
			{Code: "abc", Uses: 4, Inviter: &discordgo.User{ID: "u2", Username: "bob", Discriminator: "0"}, Channel: &discordgo.Channel{ID: "c1"}},
			{Code: "vanity", Uses: 9},
		},
		emojis: []*discordgo.Emoji{{ID: "e1", Name: "wave", Animated: true}},
	}
	a := NewActions(api, nil, clock.NewFake(testNow))
	ctx := context.Background()

	bans, err := a.Bans(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, []commands.Ban{{UserID: "u1", UserTag: "spammer", Reason: "spam"}}, bans)

	invites, err := a.Invites(ctx, testGuild)
	require.NoError(t, err)
	require.Len(t, invites, 2)
	assert.Equal(t, "bob", invites[0].InviterTag)
	assert.Equal(t, "c1", invites[0].ChannelID)
	assert.Empty(t, invites[1].InviterID)

	emojis, err := a.Emojis(ctx, testGuild)
	require.NoError(t, err)
	require.Len(t, emojis, 1)
	assert.Equal(t, "<a:wave:e1>", emojis[0].Mention())
}

func TestCreateEmoji(t *testing.T) {
	api := &fakeAPI{}
	a := NewActions(api, nil, clock.NewFake(testNow))
	ctx := context.Background()

	_, err := a.CreateEmoji(ctx, testGuild, "wave", "https://cdn.example/wave.png")
	assert.Error(t, err)
	assert.Empty(t, api.calls)

	e, err := a.CreateEmoji(ctx, testGuild, "wave", "data:image/png;base64,iVBORw0KGgo=")
	require.NoError(t, err)
	assert.Equal(t, "<:wave:500000000000000001>", e.Mention())

	api.err = errors.New("HTTP 400 Maximum number of emojis reached")
	_, err = a.CreateEmoji(ctx, testGuild, "wave", "data:image/png;base64,iVBORw0KGgo=")
	assert.Error(t, err)
}
