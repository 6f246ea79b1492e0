package discord

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/yourusername/guildbot/internal/clock"
	"github.com/yourusername/guildbot/internal/config"
	"github.com/yourusername/guildbot/internal/output"
	"github.com/yourusername/guildbot/internal/ratelimit"
	"github.com/yourusername/guildbot/internal/reminder"
	"github.com/yourusername/guildbot/internal/settings"
	"github.com/yourusername/guildbot/internal/toxic"
)

type staticSettings map[string]settings.GuildSettings

func (s staticSettings) Get(guildID string) settings.GuildSettings {
	if gs, ok := s[guildID]; ok {
		return gs
	}
	return settings.Defaults(guildID)
}

type dropCounter struct{ n int }

func (d *dropCounter) QueueDropped(n int) { d.n += n }

// newTestBot builds a bot whose queue is never started, so posts stay queued
func newTestBot(api *fakeAPI, gs staticSettings, state *discordgo.State) *Bot {
	b := &Bot{
		api:      api,
		state:    state,
		cfg:      config.DiscordConfig{},
		settings: gs,
		clock:    clock.NewFake(testNow),
		logger:   output.NopLogger{},
	}
	b.queue = ratelimit.NewMessageQueue(queueSize, rate.NewLimiter(rate.Inf, 1), b.send)
	return b
}

func drain(b *Bot) []outbound {
	var out []outbound
	for {
		m, ok := b.queue.Dequeue()
		if !ok {
			return out
		}
		out = append(out, m)
	}
}

func loggingSettings(guildID string) staticSettings {
	gs := settings.Defaults(guildID)
	gs.Logging.ChannelID = "log"
	return staticSettings{guildID: gs}
}

func testMember(id, name string) *discordgo.Member {
	return &discordgo.Member{
		GuildID: "g1",
		User:    &discordgo.User{ID: id, Username: name, Discriminator: "0"},
	}
}

func TestPostToxic_Queues(t *testing.T) {
	b := newTestBot(&fakeAPI{}, staticSettings{}, nil)

	err := b.PostToxic(context.Background(), "c1", toxic.Post{
		Title:        "☢️ Toxic",
		Text:         "joke",
		Footer:       "Remaining: 19/20",
		ThumbnailURL: "https://cdn/a.png",
		TargetID:     "100000000000000002",
		Color:        toxic.PostColor,
	})
	require.NoError(t, err)

	queued := drain(b)
	require.Len(t, queued, 1)
	assert.Equal(t, "c1", queued[0].channelID)
	assert.Equal(t, "<@100000000000000002>", queued[0].content)
	require.Len(t, queued[0].embeds, 1)
	assert.Equal(t, "joke", queued[0].embeds[0].Description)
	assert.Equal(t, "https://cdn/a.png", queued[0].embeds[0].Thumbnail.URL)
}

func TestPost_EmptyChannelIgnored(t *testing.T) {
	b := newTestBot(&fakeAPI{}, staticSettings{}, nil)
	b.Post("", "nothing")
	assert.Zero(t, b.queue.Size())
}

func TestPost_ReportsDrops(t *testing.T) {
	b := newTestBot(&fakeAPI{}, staticSettings{}, nil)
	drops := &dropCounter{}
	b.observer = drops

	for i := 0; i < queueSize+3; i++ {
		b.Post("c1", "x")
	}
	assert.Equal(t, 3, drops.n)
}

func TestDeliverReminder(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api, staticSettings{}, nil)

	err := b.DeliverReminder(context.Background(), reminder.Reminder{ChannelID: "c1", UserID: "u1", Text: "stretch"})
	require.NoError(t, err)
	require.Len(t, api.sent, 1)
	assert.Equal(t, "🔔 <@u1> Reminder: stretch", api.sent[0].Content)

	api.err = errors.New("HTTP 500")
	assert.Error(t, b.DeliverReminder(context.Background(), reminder.Reminder{ChannelID: "c1"}))
}

func TestOnGuildMemberAdd(t *testing.T) {
	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{ID: "g1", Name: "Guild", MemberCount: 12, SystemChannelID: "system"}))

	t.Run("welcome and join log", func(t *testing.T) {
		b := newTestBot(&fakeAPI{}, loggingSettings("g1"), state)

		b.onGuildMemberAdd(nil, &discordgo.GuildMemberAdd{Member: testMember("100000000000000002", "alice")})

		queued := drain(b)
		require.Len(t, queued, 2)
		assert.Equal(t, "system", queued[0].channelID)
		welcome := queued[0].embeds[0]
		assert.Equal(t, "Welcome!", welcome.Title)
		assert.Equal(t, "Hi, <@100000000000000002>! Welcome to **Guild**! You are member #12.", welcome.Description)
		assert.Equal(t, settings.DefaultWelcomeColor, welcome.Color)

		assert.Equal(t, "log", queued[1].channelID)
		assert.Equal(t, "📥 Member joined", queued[1].embeds[0].Title)
	})

	t.Run("configured channel wins", func(t *testing.T) {
		b := newTestBot(&fakeAPI{}, staticSettings{}, state)
		b.cfg.WelcomeChannelID = "welcome"

		b.onGuildMemberAdd(nil, &discordgo.GuildMemberAdd{Member: testMember("100000000000000002", "alice")})

		queued := drain(b)
		require.Len(t, queued, 1, "no log channel configured")
		assert.Equal(t, "welcome", queued[0].channelID)
	})

	t.Run("welcome disabled", func(t *testing.T) {
		gs := loggingSettings("g1")
		s := gs["g1"]
		s.WelcomeMessage.Enabled = false
		gs["g1"] = s
		b := newTestBot(&fakeAPI{}, gs, state)

		b.onGuildMemberAdd(nil, &discordgo.GuildMemberAdd{Member: testMember("100000000000000002", "alice")})

		queued := drain(b)
		require.Len(t, queued, 1)
		assert.Equal(t, "log", queued[0].channelID)
	})

	t.Run("bots are not welcomed", func(t *testing.T) {
		b := newTestBot(&fakeAPI{}, staticSettings{}, state)
		m := testMember("100000000000000003", "robot")
		m.User.Bot = true

		b.onGuildMemberAdd(nil, &discordgo.GuildMemberAdd{Member: m})
		assert.Empty(t, drain(b))
	})
}

func TestEventLogToggles(t *testing.T) {
	tests := []struct {
		name    string
		disable func(*settings.Logging)
		fire    func(b *Bot)
		title   string
	}{
		{
			name:    "member leave",
			disable: func(l *settings.Logging) { l.MemberJoinLeave = false },
			fire: func(b *Bot) {
				b.onGuildMemberRemove(nil, &discordgo.GuildMemberRemove{Member: testMember("100000000000000002", "alice")})
			},
			title: "📤 Member left",
		},
		{
			name:    "nickname",
			disable: func(l *settings.Logging) { l.NicknameChanges = false },
			fire: func(b *Bot) {
				after := testMember("100000000000000002", "alice")
				after.Nick = "Ali"
				b.onGuildMemberUpdate(nil, &discordgo.GuildMemberUpdate{Member: after, BeforeUpdate: testMember("100000000000000002", "alice")})
			},
			title: "✏️ Nickname changed",
		},
		{
			name:    "message delete",
			disable: func(l *settings.Logging) { l.MessageDelete = false },
			fire: func(b *Bot) {
				b.onMessageDelete(nil, &discordgo.MessageDelete{Message: &discordgo.Message{ID: "m1", GuildID: "g1", ChannelID: "c1"}})
			},
			title: "🗑️ Message deleted",
		},
		{
			name:    "message edit",
			disable: func(l *settings.Logging) { l.MessageEdit = false },
			fire: func(b *Bot) {
				author := &discordgo.User{ID: "100000000000000002", Username: "alice"}
				b.onMessageUpdate(nil, &discordgo.MessageUpdate{
					Message:      &discordgo.Message{ID: "m1", GuildID: "g1", ChannelID: "c1", Content: "new", Author: author},
					BeforeUpdate: &discordgo.Message{ID: "m1", Content: "old", Author: author},
				})
			},
			title: "📝 Message edited",
		},
		{
			name:    "voice join",
			disable: func(l *settings.Logging) { l.VoiceActivity = false },
			fire: func(b *Bot) {
				b.onVoiceStateUpdate(nil, &discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{GuildID: "g1", UserID: "u1", ChannelID: "v1"}})
			},
			title: "🔊 Voice activity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBot(&fakeAPI{}, loggingSettings("g1"), nil)
			tt.fire(b)
			queued := drain(b)
			require.Len(t, queued, 1)
			assert.Equal(t, "log", queued[0].channelID)
			assert.Equal(t, tt.title, queued[0].embeds[0].Title)

			gs := loggingSettings("g1")
			s := gs["g1"]
			tt.disable(&s.Logging)
			gs["g1"] = s
			b = newTestBot(&fakeAPI{}, gs, nil)
			tt.fire(b)
			assert.Empty(t, drain(b), "toggle off")
		})
	}
}

func TestOnMessageUpdate_IgnoresUnchangedContent(t *testing.T) {
	b := newTestBot(&fakeAPI{}, loggingSettings("g1"), nil)
	author := &discordgo.User{ID: "100000000000000002", Username: "alice"}

	b.onMessageUpdate(nil, &discordgo.MessageUpdate{
		Message:      &discordgo.Message{ID: "m1", GuildID: "g1", ChannelID: "c1", Content: "same", Author: author},
		BeforeUpdate: &discordgo.Message{ID: "m1", Content: "same", Author: author},
	})
	assert.Empty(t, drain(b))
}

func TestOnMessageDelete_SkipsLogChannelAndBots(t *testing.T) {
	b := newTestBot(&fakeAPI{}, loggingSettings("g1"), nil)

	b.onMessageDelete(nil, &discordgo.MessageDelete{Message: &discordgo.Message{ID: "m1", GuildID: "g1", ChannelID: "log"}})
	b.onMessageDelete(nil, &discordgo.MessageDelete{
		Message:      &discordgo.Message{ID: "m2", GuildID: "g1", ChannelID: "c1"},
		BeforeDelete: &discordgo.Message{ID: "m2", Author: &discordgo.User{ID: "b1", Bot: true}},
	})
	assert.Empty(t, drain(b))
}

func TestVoiceEmbed(t *testing.T) {
	now := testNow
	tests := []struct {
		name          string
		before, after string
		want          string
	}{
		{"join", "", "v1", "<@u1> joined <#v1>"},
		{"leave", "v1", "", "<@u1> left <#v1>"},
		{"move", "v1", "v2", "<@u1> moved <#v1> → <#v2>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := voiceEmbed("u1", tt.before, tt.after, now)
			require.NotNil(t, e)
			assert.Equal(t, tt.want, e.Description)
		})
	}
	assert.Nil(t, voiceEmbed("u1", "v1", "v1", now))
}

func TestMessageDeleteEmbed(t *testing.T) {
	e := messageDeleteEmbed("c1", nil, testNow)
	require.Len(t, e.Fields, 1)
	assert.Equal(t, "*not cached*", e.Fields[0].Value)

	cached := &discordgo.Message{ID: "m1", Content: strings.Repeat("a", 2000), Author: &discordgo.User{ID: "u1"}}
	e = messageDeleteEmbed("c1", cached, testNow)
	require.Len(t, e.Fields, 2)
	assert.Equal(t, "<@u1>", e.Fields[0].Value)
	assert.Len(t, []rune(e.Fields[1].Value), logFieldLimit)
	assert.True(t, strings.HasSuffix(e.Fields[1].Value, "..."))
}

func TestNicknameEmbed_EmptyNick(t *testing.T) {
	e := nicknameEmbed(&discordgo.User{ID: "u1"}, "", "Ali", time.Time{})
	assert.Equal(t, "*none*", e.Fields[0].Value)
	assert.Equal(t, "Ali", e.Fields[1].Value)
}

func TestGuildDelete_RunsRemovalHooks(t *testing.T) {
	b := newTestBot(&fakeAPI{}, staticSettings{}, nil)
	b.ctx = context.Background()

	var removed []string
	b.OnGuildRemoved(func(_ context.Context, guildID string) {
		removed = append(removed, guildID)
	})

	b.onGuildDelete(nil, &discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "g1", Unavailable: true}})
	assert.Empty(t, removed, "an outage is not a removal")

	b.onGuildDelete(nil, &discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "g1"}})
	assert.Equal(t, []string{"g1"}, removed)
}
