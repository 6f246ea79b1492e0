package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/yourusername/guildbot/internal/reminder"
	"github.com/yourusername/guildbot/internal/settings"
	"github.com/yourusername/guildbot/internal/toxic"
)

// Event log colors
const (
	colorJoin   = 0x57f287
	colorLeave  = 0xed4245
	colorDelete = 0xed4245
	colorEdit   = 0xfee75c
	colorNick   = 0x5865f2
	colorVoice  = 0x99aab5

	// logFieldLimit is the embed field value limit
	logFieldLimit = 1024
)

var (
	_ toxic.Poster       = (*Bot)(nil)
	_ reminder.Deliverer = (*Bot)(nil)
)

// PostToxic queues a toxic mode post
func (b *Bot) PostToxic(_ context.Context, channelID string, p toxic.Post) error {
	embed := &discordgo.MessageEmbed{
		Title:       p.Title,
		Description: p.Text,
		Color:       p.Color,
		Footer:      &discordgo.MessageEmbedFooter{Text: p.Footer},
		Timestamp:   b.clock.Now().Format(time.RFC3339),
	}
	if p.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: p.ThumbnailURL}
	}
	content := ""
	if p.TargetID != "" {
		content = "<@" + p.TargetID + ">"
	}
	b.Post(channelID, content, embed)
	return nil
}

// DeliverReminder sends a due reminder directly so a failure leaves it pending
func (b *Bot) DeliverReminder(ctx context.Context, r reminder.Reminder) error {
	_, err := b.api.ChannelMessageSendComplex(r.ChannelID, &discordgo.MessageSend{
		Content: reminder.FormatReminderDelivery(r.UserID, r.Text),
	}, discordgo.WithContext(ctx))
	return err
}

// onGuildDelete runs the removal hooks. An unavailable guild is an outage, not a removal.
func (b *Bot) onGuildDelete(_ *discordgo.Session, e *discordgo.GuildDelete) {
	if e.Guild == nil || e.Unavailable {
		return
	}
	b.mu.RLock()
	hooks := append([]GuildFunc(nil), b.leaveHook...)
	b.mu.RUnlock()

	b.logger.Info("Removed from guild %s", e.ID)
	for _, fn := range hooks {
		fn(b.ctx, e.ID)
	}
}

func (b *Bot) onGuildMemberAdd(_ *discordgo.Session, e *discordgo.GuildMemberAdd) {
	if e.Member == nil || e.User == nil {
		return
	}
	gs := b.settings.Get(e.GuildID)

	if e.User.Bot {
		b.logger.Debug("Bot %s joined %s", e.User.String(), e.GuildID)
	} else if embed := b.welcomeEmbed(gs, e.Member); embed != nil {
		b.Post(b.welcomeChannel(e.GuildID), "", embed)
	}

	if gs.Logging.MemberJoinLeave {
		b.Post(gs.Logging.ChannelID, "", memberJoinEmbed(e.Member, b.clock.Now()))
	}
	b.logger.Info("Member joined %s: %s", e.GuildID, e.User.String())
}

// welcomeEmbed renders the guild's welcome template, or nil when welcomes are off
func (b *Bot) welcomeEmbed(gs settings.GuildSettings, m *discordgo.Member) *discordgo.MessageEmbed {
	if !gs.Welcome.WelcomeMessage || !gs.WelcomeMessage.Enabled {
		return nil
	}

	serverName, memberCount := gs.GuildID, 0
	if g, err := b.state.Guild(gs.GuildID); err == nil {
		serverName, memberCount = g.Name, g.MemberCount
	}
	mention := m.User.Mention()

	w := gs.WelcomeMessage
	return &discordgo.MessageEmbed{
		Title:       settings.RenderWelcome(w.Title, m.User.Username, serverName, memberCount),
		Description: settings.RenderWelcome(w.Description, mention, serverName, memberCount),
		Color:       w.Color,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: m.AvatarURL("")},
		Timestamp:   b.clock.Now().Format(time.RFC3339),
	}
}

// welcomeChannel prefers the configured channel, then the guild's system channel
func (b *Bot) welcomeChannel(guildID string) string {
	if b.cfg.WelcomeChannelID != "" {
		return b.cfg.WelcomeChannelID
	}
	if g, err := b.state.Guild(guildID); err == nil {
		return g.SystemChannelID
	}
	return ""
}

func (b *Bot) onGuildMemberRemove(_ *discordgo.Session, e *discordgo.GuildMemberRemove) {
	if e.Member == nil || e.User == nil {
		return
	}
	gs := b.settings.Get(e.GuildID)
	if gs.Logging.MemberJoinLeave {
		b.Post(gs.Logging.ChannelID, "", memberLeaveEmbed(e.Member, b.clock.Now()))
	}
	b.logger.Info("Member left %s: %s", e.GuildID, e.User.String())
}

func (b *Bot) onGuildMemberUpdate(_ *discordgo.Session, e *discordgo.GuildMemberUpdate) {
	if e.Member == nil || e.User == nil || e.BeforeUpdate == nil {
		return
	}
	if e.BeforeUpdate.Nick == e.Nick {
		return
	}
	gs := b.settings.Get(e.GuildID)
	if gs.Logging.NicknameChanges {
		b.Post(gs.Logging.ChannelID, "", nicknameEmbed(e.User, e.BeforeUpdate.Nick, e.Nick, b.clock.Now()))
	}
}

func (b *Bot) onMessageDelete(_ *discordgo.Session, e *discordgo.MessageDelete) {
	if e.GuildID == "" {
		return
	}
	if c := e.BeforeDelete; c != nil && c.Author != nil && c.Author.Bot {
		return
	}
	gs := b.settings.Get(e.GuildID)
	if !gs.Logging.MessageDelete || e.ChannelID == gs.Logging.ChannelID {
		return
	}
	b.Post(gs.Logging.ChannelID, "", messageDeleteEmbed(e.ChannelID, e.BeforeDelete, b.clock.Now()))
}

func (b *Bot) onMessageUpdate(_ *discordgo.Session, e *discordgo.MessageUpdate) {
	if e.Message == nil || e.GuildID == "" || e.Author == nil || e.Author.Bot {
		return
	}
	// Embed unfurls also arrive as updates; only content changes are logged
	if e.BeforeUpdate == nil || e.BeforeUpdate.Content == e.Content {
		return
	}
	gs := b.settings.Get(e.GuildID)
	if !gs.Logging.MessageEdit || e.ChannelID == gs.Logging.ChannelID {
		return
	}
	b.Post(gs.Logging.ChannelID, "", messageEditEmbed(e.Message, e.BeforeUpdate.Content, b.clock.Now()))
}

func (b *Bot) onVoiceStateUpdate(_ *discordgo.Session, e *discordgo.VoiceStateUpdate) {
	if e.VoiceState == nil {
		return
	}
	before := ""
	if e.BeforeUpdate != nil {
		before = e.BeforeUpdate.ChannelID
	}
	if before == e.ChannelID {
		return
	}
	gs := b.settings.Get(e.GuildID)
	if !gs.Logging.VoiceActivity {
		return
	}
	if embed := voiceEmbed(e.UserID, before, e.ChannelID, b.clock.Now()); embed != nil {
		b.Post(gs.Logging.ChannelID, "", embed)
	}
}

func memberJoinEmbed(m *discordgo.Member, now time.Time) *discordgo.MessageEmbed {
	created := "unknown"
	if t, err := discordgo.SnowflakeTimestamp(m.User.ID); err == nil {
		created = fmt.Sprintf("<t:%d:R>", t.Unix())
	}
	return &discordgo.MessageEmbed{
		Title:       "📥 Member joined",
		Description: fmt.Sprintf("%s (%s)", m.User.Mention(), m.User.String()),
		Color:       colorJoin,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Account created", Value: created, Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "ID: " + m.User.ID},
		Timestamp: now.Format(time.RFC3339),
	}
}

func memberLeaveEmbed(m *discordgo.Member, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "📤 Member left",
		Description: fmt.Sprintf("%s (%s)", m.User.Mention(), m.User.String()),
		Color:       colorLeave,
		Footer:      &discordgo.MessageEmbedFooter{Text: "ID: " + m.User.ID},
		Timestamp:   now.Format(time.RFC3339),
	}
}

func nicknameEmbed(u *discordgo.User, before, after string, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "✏️ Nickname changed",
		Description: u.Mention(),
		Color:       colorNick,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Before", Value: orNone(before), Inline: true},
			{Name: "After", Value: orNone(after), Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "ID: " + u.ID},
		Timestamp: now.Format(time.RFC3339),
	}
}

// messageDeleteEmbed describes a deleted message; cached may be nil when the
// message was never in the state cache
func messageDeleteEmbed(channelID string, cached *discordgo.Message, now time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "🗑️ Message deleted",
		Description: fmt.Sprintf("In <#%s>", channelID),
		Color:       colorDelete,
		Timestamp:   now.Format(time.RFC3339),
	}
	if cached == nil || cached.Author == nil {
		embed.Fields = []*discordgo.MessageEmbedField{{Name: "Content", Value: "*not cached*"}}
		return embed
	}
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Author", Value: cached.Author.Mention(), Inline: true},
		{Name: "Content", Value: clip(orNone(cached.Content))},
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Message ID: " + cached.ID}
	return embed
}

func messageEditEmbed(m *discordgo.Message, before string, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "📝 Message edited",
		Description: fmt.Sprintf("%s in <#%s>", m.Author.Mention(), m.ChannelID),
		Color:       colorEdit,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Before", Value: clip(orNone(before))},
			{Name: "After", Value: clip(orNone(m.Content))},
		},
		URL:       fmt.Sprintf("https://discord.com/channels/%s/%s/%s", m.GuildID, m.ChannelID, m.ID),
		Footer:    &discordgo.MessageEmbedFooter{Text: "Message ID: " + m.ID},
		Timestamp: now.Format(time.RFC3339),
	}
}

// voiceEmbed describes a voice join, leave or move; nil when nothing changed
func voiceEmbed(userID, before, after string, now time.Time) *discordgo.MessageEmbed {
	var text string
	switch {
	case before == after:
		return nil
	case before == "":
		text = fmt.Sprintf("<@%s> joined <#%s>", userID, after)
	case after == "":
		text = fmt.Sprintf("<@%s> left <#%s>", userID, before)
	default:
		text = fmt.Sprintf("<@%s> moved <#%s> → <#%s>", userID, before, after)
	}
	return &discordgo.MessageEmbed{
		Title:       "🔊 Voice activity",
		Description: text,
		Color:       colorVoice,
		Timestamp:   now.Format(time.RFC3339),
	}
}

func orNone(s string) string {
	if s == "" {
		return "*none*"
	}
	return s
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= logFieldLimit {
		return s
	}
	return string(r[:logFieldLimit-3]) + "..."
}
