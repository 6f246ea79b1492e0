package commands

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/yourusername/guildbot/internal/clock"
	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/validation"
)

const (
	maxPollOptions = 10
	maxPollOption  = 100
)

var pollEmojis = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}

// sendTarget resolves the optional "channel" option to a channel messages can go to
func sendTarget(ctx *Context) (*Channel, error) {
	ch, err := targetChannel(ctx)
	if err != nil {
		return nil, err
	}
	switch ch.Kind {
	case ChannelText, ChannelAnnouncement, ChannelVoice:
		return ch, nil
	}
	return nil, boterrors.NewValidationError(fmt.Sprintf("Can't post in <#%s>.", ch.ID))
}

// SayCommand implements /say
type SayCommand struct {
	meta
}

// NewSayCommand creates a new say command
func NewSayCommand() *SayCommand {
	return &SayCommand{meta{
		name:       "say",
		help:       "Make the bot post a message",
		category:   CategoryUtility,
		permission: discordgo.PermissionManageMessages,
		options: []Option{
			{Name: "text", Description: "What to say", Type: OptionString, Required: true, MaxLength: validation.MaxTextLength},
			channelOption("Channel (defaults to this one)"),
		},
	}}
}

// Execute runs the say command
func (c *SayCommand) Execute(ctx *Context) (*Response, error) {
	text := ctx.String("text")
	if text == "" {
		return nil, boterrors.NewInvalidSyntaxError("say", "/say text:<message> [channel]")
	}
	ch, err := sendTarget(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := ctx.Guild.Send(ctx.Context(), ch.ID, &discordgo.MessageSend{Content: text}); err != nil {
		return nil, platformError(err)
	}

	resp := NewEphemeral(fmt.Sprintf("✅ Sent to <#%s>.", ch.ID))
	resp.Audit = &AuditAction{Action: "say", TargetID: ch.ID, TargetTag: "#" + ch.Name, Details: map[string]string{"text": text}}
	return resp, nil
}

// AnnounceCommand implements /announce
type AnnounceCommand struct {
	meta
	clock clock.Clock
}

// NewAnnounceCommand creates a new announce command
func NewAnnounceCommand(clk clock.Clock) *AnnounceCommand {
	return &AnnounceCommand{
		meta: meta{
			name:       "announce",
			help:       "Post an announcement embed",
			category:   CategoryUtility,
			permission: discordgo.PermissionManageGuild,
			options: []Option{
				{Name: "message", Description: "Announcement text", Type: OptionString, Required: true, MaxLength: validation.MaxTextLength},
				{Name: "title", Description: "Title", Type: OptionString, MaxLength: 256},
				{Name: "color", Description: "Hex color such as #5865F2", Type: OptionString},
				{Name: "mention_everyone", Description: "Ping @everyone", Type: OptionBoolean},
				channelOption("Channel (defaults to this one)"),
			},
		},
		clock: clk,
	}
}

// Execute runs the announce command
func (c *AnnounceCommand) Execute(ctx *Context) (*Response, error) {
	text := ctx.String("message")
	if text == "" {
		return nil, boterrors.NewInvalidSyntaxError("announce", "/announce message:<text> [title] [color] [mention_everyone] [channel]")
	}
	color := colorDefault
	if hex := ctx.String("color"); hex != "" {
		v, err := validation.ParseHexColor(hex)
		if err != nil {
			return nil, err
		}
		color = v
	}
	title := ctx.String("title")
	if title == "" {
		title = "📢 Announcement"
	}
	ch, err := sendTarget(ctx)
	if err != nil {
		return nil, err
	}

	msg := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       title,
			Description: text,
			Color:       color,
			Footer:      &discordgo.MessageEmbedFooter{Text: "Posted by " + ctx.UserTag},
			Timestamp:   timestamp(c.clock),
		}},
	}
	if everyone, _ := ctx.Bool("mention_everyone"); everyone {
		msg.Content = "@everyone"
		msg.AllowedMentions = &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeEveryone},
		}
	}
	if _, err := ctx.Guild.Send(ctx.Context(), ch.ID, msg); err != nil {
		return nil, platformError(err)
	}

	resp := NewEphemeral(fmt.Sprintf("✅ Announcement posted in <#%s>.", ch.ID))
	resp.Audit = &AuditAction{Action: "announce", TargetID: ch.ID, TargetTag: "#" + ch.Name, Details: map[string]string{"title": title}}
	return resp, nil
}

// embedFields are the validated inputs of /embed
type embedFields struct {
	Description string `json:"description" validate:"required,max=4000"`
	Title       string `json:"title" validate:"max=256"`
	Color       string `json:"color" validate:"omitempty,hex_color"`
	Image       string `json:"image" validate:"omitempty,http_url"`
	Thumbnail   string `json:"thumbnail" validate:"omitempty,http_url"`
	Footer      string `json:"footer" validate:"max=2048"`
}

// EmbedCommand implements /embed
type EmbedCommand struct {
	meta
}

// NewEmbedCommand creates a new embed command
func NewEmbedCommand() *EmbedCommand {
	return &EmbedCommand{meta{
		name:       "embed",
		help:       "Post a custom embed",
		category:   CategoryUtility,
		permission: discordgo.PermissionManageMessages,
		options: []Option{
			{Name: "description", Description: "Embed text", Type: OptionString, Required: true, MaxLength: 4000},
			{Name: "title", Description: "Title", Type: OptionString, MaxLength: 256},
			{Name: "color", Description: "Hex color such as #5865F2", Type: OptionString},
			{Name: "image", Description: "Image URL", Type: OptionString},
			{Name: "thumbnail", Description: "Thumbnail URL", Type: OptionString},
			{Name: "footer", Description: "Footer text", Type: OptionString, MaxLength: 2048},
			channelOption("Channel (defaults to this one)"),
		},
	}}
}

// Execute runs the embed command
func (c *EmbedCommand) Execute(ctx *Context) (*Response, error) {
	in := embedFields{
		Description: ctx.String("description"),
		Title:       ctx.String("title"),
		Color:       ctx.String("color"),
		Image:       ctx.String("image"),
		Thumbnail:   ctx.String("thumbnail"),
		Footer:      ctx.String("footer"),
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	ch, err := sendTarget(ctx)
	if err != nil {
		return nil, err
	}

	embed := &discordgo.MessageEmbed{Title: in.Title, Description: in.Description, Color: colorDefault}
	if in.Color != "" {
		embed.Color, _ = validation.ParseHexColor(in.Color)
	}
	if in.Image != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: in.Image}
	}
	if in.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: in.Thumbnail}
	}
	if in.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: in.Footer}
	}
	if _, err := ctx.Guild.Send(ctx.Context(), ch.ID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}); err != nil {
		return nil, platformError(err)
	}
	return NewEphemeral(fmt.Sprintf("✅ Embed posted in <#%s>.", ch.ID)), nil
}

// DMCommand implements /dm
type DMCommand struct {
	meta
	clock clock.Clock
}

// NewDMCommand creates a new dm command
func NewDMCommand(clk clock.Clock) *DMCommand {
	return &DMCommand{
		meta: meta{
			name:       "dm",
			help:       "Send a member a direct message from the server",
			category:   CategoryModeration,
			permission: discordgo.PermissionManageGuild,
			options: []Option{
				userOption("Recipient"),
				{Name: "message", Description: "Message", Type: OptionString, Required: true, MaxLength: validation.MaxTextLength},
			},
		},
		clock: clk,
	}
}

// Execute runs the dm command
func (c *DMCommand) Execute(ctx *Context) (*Response, error) {
	u := ctx.User("user")
	text := validation.Sanitize(ctx.String("message"))
	if u == nil || text == "" {
		return nil, boterrors.NewInvalidSyntaxError("dm", "/dm user:<@user> message:<text>")
	}
	if u.Bot {
		return nil, boterrors.NewValidationError("Bots can't receive DMs.")
	}

	guildName := ctx.GuildID
	if info, err := ctx.Guild.GuildInfo(ctx.Context(), ctx.GuildID); err == nil && info.Name != "" {
		guildName = info.Name
	}
	embed := &discordgo.MessageEmbed{
		Title:       "📨 Message from " + guildName,
		Description: text,
		Color:       colorDefault,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Sent by " + ctx.UserTag},
		Timestamp:   timestamp(c.clock),
	}
	if err := ctx.Guild.SendDM(ctx.Context(), u.ID, embed); err != nil {
		return nil, boterrors.NewValidationError(fmt.Sprintf("Could not deliver the DM to %s; their DMs may be closed.", u.Tag))
	}

	resp := NewEphemeral(fmt.Sprintf("📬 DM delivered to %s.", u.Tag))
	resp.Audit = &AuditAction{Action: "dm", TargetID: u.ID, TargetTag: u.Tag, Details: map[string]string{"message": text}}
	return resp, nil
}

// PollCommand implements /poll
type PollCommand struct {
	meta
	clock clock.Clock
}

// NewPollCommand creates a new poll command
func NewPollCommand(clk clock.Clock) *PollCommand {
	return &PollCommand{
		meta: meta{
			name:     "poll",
			help:     "Start a reaction poll",
			category: CategoryUtility,
			options: []Option{
				{Name: "question", Description: "Question", Type: OptionString, Required: true, MaxLength: 256},
				{Name: "options", Description: "Answers separated by | (2-10); yes/no when empty", Type: OptionString, MaxLength: 1000},
			},
		},
		clock: clk,
	}
}

// ParsePollOptions splits "a | b | c" into trimmed answers.
// Empty input means a yes/no poll and returns nil.
func ParsePollOptions(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []string
	for _, part := range strings.Split(raw, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, truncateRunes(part, maxPollOption))
		}
	}
	if len(out) < 2 || len(out) > maxPollOptions {
		return nil, boterrors.NewValidationError(fmt.Sprintf("A poll needs between 2 and %d answers separated by |.", maxPollOptions))
	}
	return out, nil
}

// Execute runs the poll command
func (c *PollCommand) Execute(ctx *Context) (*Response, error) {
	question := validation.Sanitize(ctx.String("question"))
	if question == "" {
		return nil, boterrors.NewInvalidSyntaxError("poll", "/poll question:<text> [options:a|b|c]")
	}
	answers, err := ParsePollOptions(ctx.String("options"))
	if err != nil {
		return nil, err
	}

	reactions := []string{"👍", "👎"}
	var desc strings.Builder
	if answers != nil {
		reactions = pollEmojis[:len(answers)]
		for i, a := range answers {
			fmt.Fprintf(&desc, "%s %s\n", pollEmojis[i], a)
		}
	}
	embed := &discordgo.MessageEmbed{
		Title:       "📊 " + question,
		Description: desc.String(),
		Color:       colorDefault,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Poll by " + ctx.UserTag},
		Timestamp:   timestamp(c.clock),
	}
	id, err := ctx.Guild.Send(ctx.Context(), ctx.ChannelID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
	if err != nil {
		return nil, platformError(err)
	}
	for _, r := range reactions {
		if err := ctx.Guild.React(ctx.Context(), ctx.ChannelID, id, r); err != nil {
			return nil, platformError(err)
		}
	}
	return NewEphemeral("✅ Poll created."), nil
}
