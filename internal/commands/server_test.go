package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/guildbot/internal/clock"
	boterrors "github.com/yourusername/guildbot/internal/errors"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeFetcher struct {
	data []byte
	err  error
	urls []string
}

func (f *fakeFetcher) GetBytes(_ context.Context, _, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	return f.data, f.err
}

func fieldValue(embed *discordgo.MessageEmbed, name string) string {
	for _, f := range embed.Fields {
		if strings.Contains(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

func TestRoles(t *testing.T) {
	resp, err := NewRolesCommand().Execute(newCtx("roles", newFakeGuild(), nil))
	require.NoError(t, err)
	embed := resp.Embeds[0]
	assert.Equal(t, "🎭 Roles (2)", embed.Title)
	assert.Equal(t, "<@&300000000000000009> <@&300000000000000002>", embed.Description)
}

func TestRoleInfo(t *testing.T) {
	guild := newFakeGuild()
	guild.roles[1].Permissions = discordgo.PermissionKickMembers | discordgo.PermissionManageMessages

	resp, err := NewRoleInfoCommand().Execute(newCtx("roleinfo", guild, map[string]interface{}{"role": helperRole}))
	require.NoError(t, err)
	embed := resp.Embeds[0]
	assert.Equal(t, "🎭 Helper", embed.Title)
	assert.Equal(t, 0x3498db, embed.Color)
	assert.Equal(t, "#3498DB", fieldValue(embed, "Color"))
	assert.Equal(t, "Kick Members, Manage Messages", fieldValue(embed, "Key permissions"))
	assert.Equal(t, "Yes", fieldValue(embed, "Mentionable"))
	assert.NotEmpty(t, fieldValue(embed, "Created"))

	_, err = NewRoleInfoCommand().Execute(newCtx("roleinfo", guild, map[string]interface{}{"role": "300000000000000077"}))
	assert.Equal(t, boterrors.ErrorTypeNotFound, boterrors.TypeOf(err))
}

func TestEmojis(t *testing.T) {
	guild := newFakeGuild()
	resp, err := NewEmojisCommand().Execute(newCtx("emojis", guild, nil))
	require.NoError(t, err)
	assert.True(t, resp.Ephemeral)

	guild.emojis = []Emoji{{ID: "1", Name: "party", Animated: true}}
	for i := 0; i < 21; i++ {
		guild.emojis = append(guild.emojis, Emoji{ID: fmt.Sprint(i + 10), Name: fmt.Sprintf("e%d", i)})
	}

	resp, err = NewEmojisCommand().Execute(newCtx("emojis", guild, nil))
	require.NoError(t, err)
	embed := resp.Embeds[0]
	assert.Equal(t, "😀 Emojis (21 static, 1 animated)", embed.Title)
	assert.Equal(t, "Page 1/2", embed.Footer.Text)
	assert.NotContains(t, embed.Description, "party", "animated emojis are listed after static ones")

	resp, err = NewEmojisCommand().Execute(newCtx("emojis", guild, map[string]interface{}{"page": int64(2)}))
	require.NoError(t, err)
	assert.Equal(t, "<:e20:30> <a:party:1>", resp.Embeds[0].Description)
}

func TestParseCustomEmoji(t *testing.T) {
	tests := []struct {
		in   string
		want Emoji
		ok   bool
	}{
		{"<:wave:123456789012345678>", Emoji{ID: "123456789012345678", Name: "wave"}, true},
		{" <a:dance:123456789012345678> ", Emoji{ID: "123456789012345678", Name: "dance", Animated: true}, true},
		{"😀", Emoji{}, false},
		{"<:w:123456789012345678>", Emoji{}, false},
		{"<:wave:123>", Emoji{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCustomEmoji(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "https://cdn.discordapp.com/emojis/1.gif?size=512", EmojiURL(Emoji{ID: "1", Animated: true}))
	assert.Equal(t, "https://cdn.discordapp.com/emojis/1.png?size=512", EmojiURL(Emoji{ID: "1"}))
}

func TestJumbo(t *testing.T) {
	resp, err := NewJumboCommand().Execute(newCtx("jumbo", newFakeGuild(), map[string]interface{}{"emoji": "<:wave:123456789012345678>"}))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.discordapp.com/emojis/123456789012345678.png?size=512", resp.Embeds[0].Image.URL)

	_, err = NewJumboCommand().Execute(newCtx("jumbo", newFakeGuild(), map[string]interface{}{"emoji": "😀"}))
	assert.Equal(t, boterrors.ErrorTypeValidation, boterrors.TypeOf(err))
}

func TestStealEmoji(t *testing.T) {
	guild := newFakeGuild()
	fetcher := &fakeFetcher{data: pngHeader}
	cmd := NewStealEmojiCommand(fetcher)

	resp, err := cmd.Execute(newCtx("stealemoji", guild, map[string]interface{}{"emoji": "<:wave:123456789012345678>"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"emoji wave"}, guild.Calls())
	assert.Equal(t, []string{"https://cdn.discordapp.com/emojis/123456789012345678.png?size=512"}, fetcher.urls)
	assert.True(t, strings.HasPrefix(guild.emojiData, "data:image/png;base64,"))
	assert.Equal(t, "emoji-add", resp.Audit.Action)
	assert.Contains(t, resp.Content, ":wave:")

	_, err = cmd.Execute(newCtx("stealemoji", guild, map[string]interface{}{"emoji": "https://img.example/cat.png", "name": "cat_1"}))
	require.NoError(t, err)
}

func TestStealEmoji_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		opts    map[string]interface{}
		fetcher *fakeFetcher
		errType boterrors.ErrorType
	}{
		{"not an emoji", map[string]interface{}{"emoji": "😀"}, &fakeFetcher{data: pngHeader}, boterrors.ErrorTypeValidation},
		{"url without name", map[string]interface{}{"emoji": "https://img.example/cat.png"}, &fakeFetcher{data: pngHeader}, boterrors.ErrorTypeValidation},
		{"bad name", map[string]interface{}{"emoji": "https://img.example/cat.png", "name": "c-a-t"}, &fakeFetcher{data: pngHeader}, boterrors.ErrorTypeValidation},
		{"too large", map[string]interface{}{"emoji": "<:big:123456789012345678>"}, &fakeFetcher{data: append(pngHeader, make([]byte, 256*1024)...)}, boterrors.ErrorTypeValidation},
		{"not an image", map[string]interface{}{"emoji": "<:txt:123456789012345678>"}, &fakeFetcher{data: []byte("hello world")}, boterrors.ErrorTypeValidation},
		{"download fails", map[string]interface{}{"emoji": "<:gone:123456789012345678>"}, &fakeFetcher{err: errors.New("404")}, boterrors.ErrorTypeUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guild := newFakeGuild()
			_, err := NewStealEmojiCommand(tt.fetcher).Execute(newCtx("stealemoji", guild, tt.opts))
			require.Error(t, err)
			assert.Equal(t, tt.errType, boterrors.TypeOf(err))
			assert.Empty(t, guild.Calls())
		})
	}
}

func TestInvites(t *testing.T) {
	guild := newFakeGuild()
	guild.invites = []Invite{
		{Code: "a", InviterID: aliceID, Uses: 3},
		{Code: "b", InviterID: modID, Uses: 7},
		{Code: "c", InviterID: aliceID, Uses: 5},
		{Code: "vanity", Uses: 100},
	}

	resp, err := NewInvitesCommand().Execute(newCtx("invites", guild, nil))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("**1.** <@%s>: 8\n**2.** <@%s>: 7\n", aliceID, modID), resp.Embeds[0].Description)

	resp, err = NewInvitesCommand().Execute(newCtx("invites", guild, map[string]interface{}{"user": aliceID}))
	require.NoError(t, err)
	assert.Contains(t, resp.Embeds[0].Description, "**8** joins through **2** active invites")
}

func TestBoosters(t *testing.T) {
	guild := newFakeGuild()
	resp, err := NewBoostersCommand().Execute(newCtx("boosters", guild, nil))
	require.NoError(t, err)
	assert.True(t, resp.Ephemeral)

	guild.memberList = []Member{
		{ID: "u1", BoostingSince: testNow.Add(-time.Hour)},
		{ID: "u2"},
		{ID: "u3", BoostingSince: testNow.Add(-48 * time.Hour)},
	}
	resp, err = NewBoostersCommand().Execute(newCtx("boosters", guild, nil))
	require.NoError(t, err)
	embed := resp.Embeds[0]
	assert.Equal(t, "💎 Boosters (2)", embed.Title)
	assert.Less(t, strings.Index(embed.Description, "<@u3>"), strings.Index(embed.Description, "<@u1>"), "longest booster first")
}

func TestBanner(t *testing.T) {
	guild := newFakeGuild()
	resp, err := NewBannerCommand().Execute(newCtx("banner", guild, nil))
	require.NoError(t, err)
	assert.True(t, resp.Ephemeral)

	guild.profile = &UserProfile{ID: aliceID, Tag: "alice#0002", AccentColor: 0x112233}
	resp, err = NewBannerCommand().Execute(newCtx("banner", guild, map[string]interface{}{"user": aliceID}))
	require.NoError(t, err)
	assert.Equal(t, 0x112233, resp.Embeds[0].Color)

	guild.profile.BannerURL = "https://cdn/banner.png"
	resp, err = NewBannerCommand().Execute(newCtx("banner", guild, map[string]interface{}{"user": aliceID}))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/banner.png", resp.Embeds[0].Image.URL)
}

func TestServerImages(t *testing.T) {
	guild := newFakeGuild()
	resp, err := NewServerIconCommand().Execute(newCtx("servericon", guild, nil))
	require.NoError(t, err)
	assert.True(t, resp.Ephemeral)

	guild.info.IconURL = "https://cdn/icon.png"
	guild.info.BannerURL = "https://cdn/banner.png"

	resp, err = NewServerIconCommand().Execute(newCtx("servericon", guild, nil))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/icon.png", resp.Embeds[0].Image.URL)

	resp, err = NewServerBannerCommand().Execute(newCtx("serverbanner", guild, nil))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/banner.png", resp.Embeds[0].Image.URL)
}

func TestChannelInfo(t *testing.T) {
	guild := newFakeGuild()
	guild.channels["c1"].Topic = "talk here"
	guild.channels["c1"].Slowmode = 5
	guild.voiceMembers["v1"] = []string{aliceID, modID}

	resp, err := NewChannelInfoCommand().Execute(newCtx("channelinfo", guild, nil))
	require.NoError(t, err)
	embed := resp.Embeds[0]
	assert.Equal(t, "#general", embed.Title)
	assert.Equal(t, "5 sec", fieldValue(embed, "Slowmode"))
	assert.Equal(t, "talk here", fieldValue(embed, "Topic"))

	resp, err = NewChannelInfoCommand().Execute(newCtx("channelinfo", guild, map[string]interface{}{"channel": "v1"}))
	require.NoError(t, err)
	embed = resp.Embeds[0]
	assert.Equal(t, "2 / 10", fieldValue(embed, "Connected"))
	assert.Equal(t, "64 kbps", fieldValue(embed, "Bitrate"))
	assert.Empty(t, fieldValue(embed, "Slowmode"))
}

func TestFirstMessage(t *testing.T) {
	guild := newFakeGuild()
	resp, err := NewFirstMessageCommand().Execute(newCtx("firstmessage", guild, nil))
	require.NoError(t, err)
	assert.True(t, resp.Ephemeral)

	guild.first = &ChatMessage{ID: "m0", AuthorID: aliceID, Content: "first!", Timestamp: testNow.Add(-24 * time.Hour)}
	resp, err = NewFirstMessageCommand().Execute(newCtx("firstmessage", guild, nil))
	require.NoError(t, err)
	embed := resp.Embeds[0]
	assert.Equal(t, "https://discord.com/channels/g1/c1/m0", embed.URL)
	assert.Equal(t, "📜 First message in #general", embed.Title)
	assert.Equal(t, "first!", embed.Description)
}

func TestWhois(t *testing.T) {
	guild := newFakeGuild()
	alice := guild.members[aliceID]
	alice.Nick = "Ally"
	alice.Roles = []string{helperRole}
	alice.JoinedAt = testNow.Add(-time.Hour)
	guild.profile = &UserProfile{
		ID:        aliceID,
		BannerURL: "https://cdn/banner.png",
		Flags:     int(discordgo.UserFlagEarlySupporter | discordgo.UserFlagHouseBalance),
	}

	resp, err := NewWhoisCommand().Execute(newCtx("whois", guild, map[string]interface{}{"user": aliceID}))
	require.NoError(t, err)
	embed := resp.Embeds[0]
	assert.Equal(t, "alice#0002", embed.Title)
	assert.Equal(t, "Ally", fieldValue(embed, "Nickname"))
	assert.Equal(t, "🟢 Balance\n💎 Early Supporter", fieldValue(embed, "Badges"))
	assert.Equal(t, "<@&"+helperRole+">", fieldValue(embed, "Roles"))
	assert.Empty(t, fieldValue(embed, "Boosting"))
	assert.Equal(t, "https://cdn/banner.png", embed.Image.URL)

	_, err = NewWhoisCommand().Execute(newCtx("whois", guild, map[string]interface{}{"user": "100000000000000099"}))
	assert.Equal(t, boterrors.ErrorTypeNotFound, boterrors.TypeOf(err))
}

func TestBadges(t *testing.T) {
	assert.Empty(t, Badges(0))
	assert.Equal(t, []string{"⚙️ Active Developer"}, Badges(int(discordgo.UserFlagActiveBotDeveloper)))
}

func TestMembers(t *testing.T) {
	guild := newFakeGuild()
	guild.memberList = []Member{
		{ID: "u1", JoinedAt: testNow.Add(-48 * time.Hour)},
		{ID: "u2", JoinedAt: testNow.Add(-time.Hour)},
		{ID: "b1", Bot: true, JoinedAt: testNow},
	}

	resp, err := NewMembersCommand().Execute(newCtx("members", guild, nil))
	require.NoError(t, err)
	embed := resp.Embeds[0]
	assert.Equal(t, "3", fieldValue(embed, "Total"))
	assert.Equal(t, "2", fieldValue(embed, "Humans"))
	assert.Equal(t, "1", fieldValue(embed, "Bots"))
	assert.Contains(t, fieldValue(embed, "Newest"), "<@u2>", "bots don't count as the newest member")

	guild.actErr = errors.New("HTTP 500")
	_, err = NewMembersCommand().Execute(newCtx("members", guild, nil))
	assert.Equal(t, boterrors.ErrorTypeUpstream, boterrors.TypeOf(err))
}

func TestServerTime(t *testing.T) {
	resp, err := NewServerTimeCommand(clock.NewFake(testNow)).Execute(newCtx("servertime", newFakeGuild(), nil))
	require.NoError(t, err)
	embed := resp.Embeds[0]
	require.Len(t, embed.Fields, len(ServerClocks))
	assert.True(t, strings.HasPrefix(fieldValue(embed, "Kyiv"), "**14:00**"))
	assert.True(t, strings.HasPrefix(fieldValue(embed, "New York"), "**08:00**"))
	assert.True(t, strings.HasPrefix(fieldValue(embed, "Tokyo"), "**21:00**"))
	assert.True(t, strings.HasPrefix(fieldValue(embed, "UTC"), "**12:00**"))
}
