package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/report"
	"github.com/yourusername/guildbot/internal/settings"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeGuild records every platform action
type fakeGuild struct {
	mu       sync.Mutex
	members  map[string]*Member
	info     *report.GuildInfo
	messages []ChatMessage
	dmErr    error
	actErr   error
	latency  time.Duration
	deleted  int

	calls     []string
	dms       []*discordgo.MessageEmbed
	timeouts  []*time.Time
	fetchArgs []time.Time

	channels     map[string]*Channel
	roles        []Role
	voice        map[string]*VoiceState
	voiceMembers map[string][]string
	bans         []Ban
	invites      []Invite
	emojis       []Emoji
	memberList   []Member
	profile      *UserProfile
	first        *ChatMessage

	sent      []*discordgo.MessageSend
	purged    []string
	emojiData string
}

func newFakeGuild() *fakeGuild {
	return &fakeGuild{
		members: map[string]*Member{
			"100000000000000001": {ID: "100000000000000001", Username: "mod", Tag: "mod#0001", DisplayName: "mod"},
			"100000000000000002": {ID: "100000000000000002", Username: "alice", Tag: "alice#0002", DisplayName: "Alice", AvatarURL: "https://cdn/a.png"},
			"100000000000000003": {ID: "100000000000000003", Username: "robot", Tag: "robot#0003", DisplayName: "robot", Bot: true},
		},
		info:    &report.GuildInfo{ID: "g1", Name: "Test Guild", MemberCount: 42},
		latency: 42 * time.Millisecond,
		channels: map[string]*Channel{
			"c1": {ID: "c1", Name: "general", Kind: ChannelText},
			"v1": {ID: "v1", Name: "Lounge", Kind: ChannelVoice, UserLimit: 10, Bitrate: 64000},
			"v2": {ID: "v2", Name: "Games", Kind: ChannelVoice},
		},
		roles: []Role{
			{ID: "300000000000000009", Name: "Bot", Position: 9, Managed: true},
			{ID: "300000000000000002", Name: "Helper", Position: 2, Color: 0x3498db, Mentionable: true},
			{ID: "g1", Name: "@everyone", Position: 0},
		},
		voice:        map[string]*VoiceState{},
		voiceMembers: map[string][]string{},
	}
}

func (f *fakeGuild) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeGuild) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeGuild) Member(_ context.Context, _, userID string) (*Member, error) {
	if m, ok := f.members[userID]; ok {
		return m, nil
	}
	return nil, errors.New("unknown member")
}

func (f *fakeGuild) GuildInfo(context.Context, string) (*report.GuildInfo, error) {
	if f.info == nil {
		return nil, boterrors.NewUpstreamError("discord", errors.New("no guild"))
	}
	return f.info, nil
}

func (f *fakeGuild) Kick(_ context.Context, _, userID, _ string) error {
	f.record("kick " + userID)
	return f.actErr
}

func (f *fakeGuild) Ban(_ context.Context, _, userID, _ string, _ int) error {
	f.record("ban " + userID)
	return f.actErr
}

func (f *fakeGuild) Unban(_ context.Context, _, userID string) error {
	f.record("unban " + userID)
	return f.actErr
}

func (f *fakeGuild) Timeout(_ context.Context, _, userID string, until *time.Time) error {
	f.record("timeout " + userID)
	f.mu.Lock()
	f.timeouts = append(f.timeouts, until)
	f.mu.Unlock()
	return f.actErr
}

func (f *fakeGuild) BulkDelete(_ context.Context, _ string, count int) (int, error) {
	f.record("clear")
	if f.deleted > 0 {
		return f.deleted, f.actErr
	}
	return count, f.actErr
}

func (f *fakeGuild) SetSlowmode(context.Context, string, int) error {
	f.record("slowmode")
	return f.actErr
}

func (f *fakeGuild) FetchMessages(_ context.Context, _ string, limit int, since time.Time) ([]ChatMessage, error) {
	f.mu.Lock()
	f.fetchArgs = append(f.fetchArgs, since)
	f.mu.Unlock()
	if len(f.messages) > limit {
		return f.messages[:limit], nil
	}
	return f.messages, nil
}

func (f *fakeGuild) SendDM(_ context.Context, userID string, embed *discordgo.MessageEmbed) error {
	f.record("dm " + userID)
	f.mu.Lock()
	f.dms = append(f.dms, embed)
	f.mu.Unlock()
	return f.dmErr
}

func (f *fakeGuild) Latency() time.Duration { return f.latency }

func (f *fakeGuild) DeleteMessages(_ context.Context, _ string, ids []string) (int, error) {
	f.record("purge")
	f.mu.Lock()
	f.purged = append(f.purged, ids...)
	f.mu.Unlock()
	return len(ids), f.actErr
}

func (f *fakeGuild) FirstMessage(context.Context, string) (*ChatMessage, error) {
	return f.first, f.actErr
}

func (f *fakeGuild) Send(_ context.Context, channelID string, msg *discordgo.MessageSend) (string, error) {
	f.record("send " + channelID)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return "m1", f.actErr
}

func (f *fakeGuild) React(_ context.Context, _, messageID, emoji string) error {
	f.record("react " + messageID + " " + emoji)
	return f.actErr
}

func (f *fakeGuild) Channel(_ context.Context, channelID string) (*Channel, error) {
	if ch, ok := f.channels[channelID]; ok {
		return ch, nil
	}
	return nil, errors.New("unknown channel")
}

func (f *fakeGuild) SetEveryoneAccess(_ context.Context, _, channelID string, perm int64, deny bool) error {
	f.record(fmt.Sprintf("access %s %d %t", channelID, perm, deny))
	return f.actErr
}

func (f *fakeGuild) Roles(context.Context, string) ([]Role, error) {
	return f.roles, nil
}

func (f *fakeGuild) AddRole(_ context.Context, _, userID, roleID string) error {
	f.record("role+ " + userID + " " + roleID)
	return f.actErr
}

func (f *fakeGuild) RemoveRole(_ context.Context, _, userID, roleID string) error {
	f.record("role- " + userID + " " + roleID)
	return f.actErr
}

func (f *fakeGuild) SetNickname(_ context.Context, _, userID, nick string) error {
	f.record("nick " + userID + " " + nick)
	return f.actErr
}

func (f *fakeGuild) VoiceState(_ context.Context, _, userID string) (*VoiceState, error) {
	return f.voice[userID], nil
}

func (f *fakeGuild) VoiceMembers(_ context.Context, _, channelID string) ([]string, error) {
	return f.voiceMembers[channelID], nil
}

func (f *fakeGuild) SetVoiceMute(_ context.Context, _, userID string, mute bool) error {
	f.record(fmt.Sprintf("mute %s %t", userID, mute))
	return f.actErr
}

func (f *fakeGuild) SetVoiceDeaf(_ context.Context, _, userID string, deaf bool) error {
	f.record(fmt.Sprintf("deaf %s %t", userID, deaf))
	return f.actErr
}

func (f *fakeGuild) MoveVoice(_ context.Context, _, userID, channelID string) error {
	f.record("move " + userID + " " + channelID)
	if userID == "100000000000000099" {
		return errors.New("HTTP 403 Missing Permissions")
	}
	return f.actErr
}

func (f *fakeGuild) Members(context.Context, string) ([]Member, error) {
	return f.memberList, f.actErr
}

func (f *fakeGuild) UserProfile(_ context.Context, userID string) (*UserProfile, error) {
	if f.profile != nil {
		return f.profile, nil
	}
	return &UserProfile{ID: userID}, nil
}

func (f *fakeGuild) Bans(context.Context, string) ([]Ban, error) {
	return f.bans, f.actErr
}

func (f *fakeGuild) Invites(context.Context, string) ([]Invite, error) {
	return f.invites, f.actErr
}

func (f *fakeGuild) Emojis(context.Context, string) ([]Emoji, error) {
	return f.emojis, f.actErr
}

func (f *fakeGuild) CreateEmoji(_ context.Context, _, name, image string) (*Emoji, error) {
	f.record("emoji " + name)
	f.mu.Lock()
	f.emojiData = image
	f.mu.Unlock()
	if f.actErr != nil {
		return nil, f.actErr
	}
	return &Emoji{ID: "500000000000000001", Name: name}, nil
}

// memSettings is an in-memory SettingsEditor
type memSettings struct {
	mu      sync.Mutex
	byGuild map[string]settings.GuildSettings
}

func newMemSettings() *memSettings {
	return &memSettings{byGuild: make(map[string]settings.GuildSettings)}
}

func (m *memSettings) Get(guildID string) settings.GuildSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byGuild[guildID]; ok {
		return s
	}
	return settings.Defaults(guildID)
}

func (m *memSettings) Update(_ context.Context, guildID string, p settings.Patch, actorID string) (settings.GuildSettings, error) {
	s := m.Get(guildID)
	if t := p.ToxicMode; t != nil {
		if t.FrequencyMinutes != nil {
			switch *t.FrequencyMinutes {
			case 1, 5, 15, 30, 60:
			default:
				return settings.GuildSettings{}, boterrors.NewValidationError("bad frequency")
			}
			s.ToxicMode.FrequencyMinutes = *t.FrequencyMinutes
		}
		if t.Enabled != nil {
			s.ToxicMode.Enabled = *t.Enabled
		}
		if t.ChannelID != nil {
			s.ToxicMode.ChannelID = *t.ChannelID
		}
		if t.MaxPerDay != nil {
			s.ToxicMode.MaxPerDay = *t.MaxPerDay
		}
	}
	if a := p.AI; a != nil {
		if a.MaxRequestsPerDay != nil {
			s.AI.MaxRequestsPerDay = *a.MaxRequestsPerDay
		}
		if a.AskEnabled != nil {
			s.AI.AskEnabled = *a.AskEnabled
		}
		if a.Temperature != nil {
			s.AI.Temperature = *a.Temperature
		}
	}
	if w := p.WelcomeMessage; w != nil && w.Color != nil {
		s.WelcomeMessage.Color = *w.Color
	}
	s.UpdatedBy = actorID
	m.mu.Lock()
	m.byGuild[guildID] = s
	m.mu.Unlock()
	return s, nil
}

func (m *memSettings) Reset(_ context.Context, guildID, actorID string) (settings.GuildSettings, error) {
	s := settings.Defaults(guildID)
	s.UpdatedBy = actorID
	m.mu.Lock()
	m.byGuild[guildID] = s
	m.mu.Unlock()
	return s, nil
}

// newCtx builds a command context invoked by the moderator in guild g1
func newCtx(command string, guild *fakeGuild, opts map[string]interface{}) *Context {
	if opts == nil {
		opts = map[string]interface{}{}
	}
	users := make(map[string]*Member)
	for _, v := range opts {
		if id, ok := v.(string); ok {
			if m, ok := guild.members[id]; ok {
				users[id] = m
			}
		}
	}
	return &Context{
		Ctx:         context.Background(),
		Command:     command,
		GuildID:     "g1",
		ChannelID:   "c1",
		UserID:      "100000000000000001",
		UserTag:     "mod#0001",
		Permissions: discordgo.PermissionAdministrator,
		Options:     opts,
		Users:       users,
		Guild:       guild,
	}
}
