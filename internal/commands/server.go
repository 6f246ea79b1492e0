package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/yourusername/guildbot/internal/clock"
	boterrors "github.com/yourusername/guildbot/internal/errors"
)

const (
	emojisPerPage   = 20
	topInvites      = 15
	maxRoleMentions = 40
	maxBoosters     = 30
	maxEmojiBytes   = 256 * 1024
	emojiCDN        = "https://cdn.discordapp.com/emojis/"
)

var (
	customEmojiPattern = regexp.MustCompile(`^<(a?):([A-Za-z0-9_]{2,32}):(\d{17,20})>$`)
	emojiNamePattern   = regexp.MustCompile(`^[A-Za-z0-9_]{2,32}$`)
)

// ServerClocks are the zones /servertime shows
var ServerClocks = []struct {
	Label string
	Zone  string
}{
	{"🇺🇦 Kyiv", "Europe/Kyiv"},
	{"🇬🇧 London", "Europe/London"},
	{"🇺🇸 New York", "America/New_York"},
	{"🇯🇵 Tokyo", "Asia/Tokyo"},
	{"🌐 UTC", "UTC"},
}

var userBadges = []struct {
	flag discordgo.UserFlags
	name string
}{
	{discordgo.UserFlagDiscordEmployee, "👔 Discord Staff"},
	{discordgo.UserFlagDiscordPartner, "🤝 Partner"},
	{discordgo.UserFlagHypeSquadEvents, "🎉 HypeSquad Events"},
	{discordgo.UserFlagBugHunterLevel1, "🐛 Bug Hunter"},
	{discordgo.UserFlagBugHunterLevel2, "🐛 Bug Hunter Gold"},
	{discordgo.UserFlagHouseBravery, "🟣 Bravery"},
	{discordgo.UserFlagHouseBrilliance, "🟠 Brilliance"},
	{discordgo.UserFlagHouseBalance, "🟢 Balance"},
	{discordgo.UserFlagEarlySupporter, "💎 Early Supporter"},
	{discordgo.UserFlagVerifiedBotDeveloper, "🛠️ Verified Bot Developer"},
	{discordgo.UserFlagDiscordCertifiedModerator, "🛡️ Certified Moderator"},
	{discordgo.UserFlagActiveBotDeveloper, "⚙️ Active Developer"},
}

// keyPermissions are listed by /roleinfo when a role grants them
var keyPermissions = []struct {
	bit  int64
	name string
}{
	{discordgo.PermissionAdministrator, "Administrator"},
	{discordgo.PermissionManageGuild, "Manage Server"},
	{discordgo.PermissionManageRoles, "Manage Roles"},
	{discordgo.PermissionManageChannels, "Manage Channels"},
	{discordgo.PermissionKickMembers, "Kick Members"},
	{discordgo.PermissionBanMembers, "Ban Members"},
	{discordgo.PermissionModerateMembers, "Timeout Members"},
	{discordgo.PermissionManageMessages, "Manage Messages"},
	{discordgo.PermissionMentionEveryone, "Mention Everyone"},
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func imageEmbed(title, url string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Color:       colorDefault,
		Image:       &discordgo.MessageEmbedImage{URL: url},
		Description: fmt.Sprintf("[Open original](%s)", url),
	}
}

// RolesCommand implements /roles
type RolesCommand struct {
	meta
}

// NewRolesCommand creates a new roles command
func NewRolesCommand() *RolesCommand {
	return &RolesCommand{meta{name: "roles", help: "List the server's roles", category: CategoryInfo}}
}

// Execute runs the roles command
func (c *RolesCommand) Execute(ctx *Context) (*Response, error) {
	roles, err := ctx.Guild.Roles(ctx.Context(), ctx.GuildID)
	if err != nil {
		return nil, platformError(err)
	}
	mentions := make([]string, 0, len(roles))
	for _, r := range roles {
		if r.ID != ctx.GuildID {
			mentions = append(mentions, "<@&"+r.ID+">")
		}
	}
	if len(mentions) == 0 {
		return NewEphemeral("This server has no roles yet."), nil
	}
	total := len(mentions)
	if total > maxRoleMentions {
		mentions = append(mentions[:maxRoleMentions], fmt.Sprintf("+%d more", total-maxRoleMentions))
	}
	return NewEmbedResponse(&discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🎭 Roles (%d)", total),
		Color:       colorDefault,
		Description: strings.Join(mentions, " "),
	}), nil
}

// RoleInfoCommand implements /roleinfo
type RoleInfoCommand struct {
	meta
}

// NewRoleInfoCommand creates a new roleinfo command
func NewRoleInfoCommand() *RoleInfoCommand {
	return &RoleInfoCommand{meta{
		name:     "roleinfo",
		help:     "Show information about a role",
		category: CategoryInfo,
		options:  []Option{{Name: "role", Description: "Role", Type: OptionRole, Required: true}},
	}}
}

// Execute runs the roleinfo command
func (c *RoleInfoCommand) Execute(ctx *Context) (*Response, error) {
	role, err := findRole(ctx, ctx.String("role"))
	if err != nil {
		return nil, err
	}

	var perms []string
	for _, p := range keyPermissions {
		if role.Permissions&p.bit != 0 {
			perms = append(perms, p.name)
		}
	}
	permText := "None"
	if len(perms) > 0 {
		permText = strings.Join(perms, ", ")
	}
	color := role.Color
	if color == 0 {
		color = colorDefault
	}

	embed := &discordgo.MessageEmbed{
		Title: "🎭 " + role.Name,
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🆔 ID", Value: role.ID, Inline: true},
			{Name: "🎨 Color", Value: fmt.Sprintf("#%06X", role.Color), Inline: true},
			{Name: "📍 Position", Value: fmt.Sprintf("%d", role.Position), Inline: true},
			{Name: "📣 Mentionable", Value: yesNo(role.Mentionable), Inline: true},
			{Name: "📌 Shown separately", Value: yesNo(role.Hoist), Inline: true},
			{Name: "🤖 Managed", Value: yesNo(role.Managed), Inline: true},
			{Name: "🔑 Key permissions", Value: permText},
		},
	}
	if t, err := discordgo.SnowflakeTimestamp(role.ID); err == nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "📅 Created", Value: relativeDate(t)})
	}
	if role.IconURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: role.IconURL}
	}
	return NewEmbedResponse(embed), nil
}

// EmojisCommand implements /emojis
type EmojisCommand struct {
	meta
}

// NewEmojisCommand creates a new emojis command
func NewEmojisCommand() *EmojisCommand {
	return &EmojisCommand{meta{
		name:     "emojis",
		help:     "List the server's custom emojis",
		category: CategoryInfo,
		options: []Option{
			{Name: "page", Description: "Page number", Type: OptionInteger, MinValue: float(1)},
		},
	}}
}

// Execute runs the emojis command
func (c *EmojisCommand) Execute(ctx *Context) (*Response, error) {
	emojis, err := ctx.Guild.Emojis(ctx.Context(), ctx.GuildID)
	if err != nil {
		return nil, platformError(err)
	}
	if len(emojis) == 0 {
		return NewEphemeral("This server has no custom emojis."), nil
	}

	sorted := make([]Emoji, len(emojis))
	copy(sorted, emojis)
	sort.SliceStable(sorted, func(i, j int) bool { return !sorted[i].Animated && sorted[j].Animated })

	animated := 0
	for _, e := range sorted {
		if e.Animated {
			animated++
		}
	}

	page, pages := pageOf(ctx, len(sorted), emojisPerPage)
	start := (page - 1) * emojisPerPage
	end := min(start+emojisPerPage, len(sorted))
	shown := make([]string, 0, end-start)
	for _, e := range sorted[start:end] {
		shown = append(shown, e.Mention())
	}
	return NewEmbedResponse(&discordgo.MessageEmbed{
		Title:       fmt.Sprintf("😀 Emojis (%d static, %d animated)", len(sorted)-animated, animated),
		Color:       colorDefault,
		Description: strings.Join(shown, " "),
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Page %d/%d", page, pages)},
	}), nil
}

// ParseCustomEmoji extracts the parts of <:name:id> or <a:name:id>
func ParseCustomEmoji(s string) (Emoji, bool) {
	m := customEmojiPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Emoji{}, false
	}
	return Emoji{ID: m[3], Name: m[2], Animated: m[1] == "a"}, true
}

// EmojiURL returns the CDN address of a custom emoji
func EmojiURL(e Emoji) string {
	ext := "png"
	if e.Animated {
		ext = "gif"
	}
	return fmt.Sprintf("%s%s.%s?size=512", emojiCDN, e.ID, ext)
}

// JumboCommand implements /jumbo
type JumboCommand struct {
	meta
}

// NewJumboCommand creates a new jumbo command
func NewJumboCommand() *JumboCommand {
	return &JumboCommand{meta{
		name:     "jumbo",
		help:     "Show a custom emoji in full size",
		category: CategoryInfo,
		options:  []Option{{Name: "emoji", Description: "Custom emoji", Type: OptionString, Required: true}},
	}}
}

// Execute runs the jumbo command
func (c *JumboCommand) Execute(ctx *Context) (*Response, error) {
	e, ok := ParseCustomEmoji(ctx.String("emoji"))
	if !ok {
		return nil, boterrors.NewValidationError("That is not a custom emoji. Standard emojis can't be enlarged.")
	}
	return NewEmbedResponse(imageEmbed(":"+e.Name+":", EmojiURL(e))), nil
}

// ImageFetcher downloads raw bytes over HTTP
type ImageFetcher interface {
	GetBytes(ctx context.Context, service, url string) ([]byte, error)
}

// StealEmojiCommand implements /stealemoji
type StealEmojiCommand struct {
	meta
	fetcher ImageFetcher
}

// NewStealEmojiCommand creates a new stealemoji command
func NewStealEmojiCommand(fetcher ImageFetcher) *StealEmojiCommand {
	return &StealEmojiCommand{
		meta: meta{
			name:       "stealemoji",
			help:       "Add an emoji from another server or an image URL",
			category:   CategoryAdmin,
			permission: discordgo.PermissionManageGuildExpressions,
			deferred:   true,
			options: []Option{
				{Name: "emoji", Description: "Custom emoji or image URL", Type: OptionString, Required: true},
				{Name: "name", Description: "Name for the new emoji (2-32 letters, digits or _)", Type: OptionString, MaxLength: 32},
			},
		},
		fetcher: fetcher,
	}
}

// Execute runs the stealemoji command
func (c *StealEmojiCommand) Execute(ctx *Context) (*Response, error) {
	source := ctx.String("emoji")
	name := ctx.String("name")

	var url string
	if e, ok := ParseCustomEmoji(source); ok {
		url = EmojiURL(e)
		if name == "" {
			name = e.Name
		}
	} else if strings.HasPrefix(source, "https://") || strings.HasPrefix(source, "http://") {
		url = source
	} else {
		return nil, boterrors.NewValidationError("Give a custom emoji or an image URL.")
	}
	if !emojiNamePattern.MatchString(name) {
		return nil, boterrors.NewValidationError("Emoji names are 2-32 letters, digits or underscores.")
	}

	data, err := c.fetcher.GetBytes(ctx.Context(), "emoji-cdn", url)
	if err != nil {
		return nil, boterrors.NewUpstreamError("emoji-cdn", err)
	}
	if len(data) > maxEmojiBytes {
		return nil, boterrors.NewValidationError("Emoji images must be under 256 KB.")
	}
	mime := http.DetectContentType(data)
	switch mime {
	case "image/png", "image/gif", "image/jpeg", "image/webp":
	default:
		return nil, boterrors.NewValidationError(fmt.Sprintf("Unsupported image type %s.", mime))
	}

	created, err := ctx.Guild.CreateEmoji(ctx.Context(), ctx.GuildID, name, "data:"+mime+";base64,"+base64.StdEncoding.EncodeToString(data))
	if err != nil {
		return nil, platformError(err)
	}
	resp := NewResponse(fmt.Sprintf("✅ Added %s as `:%s:`.", created.Mention(), created.Name))
	resp.Audit = &AuditAction{Action: "emoji-add", TargetID: created.ID, TargetTag: created.Name, Details: map[string]string{"source": url}}
	return resp, nil
}

// InvitesCommand implements /invites
type InvitesCommand struct {
	meta
}

// NewInvitesCommand creates a new invites command
func NewInvitesCommand() *InvitesCommand {
	return &InvitesCommand{meta{
		name:       "invites",
		help:       "Show invite leaders, or how many joined through one member's invites",
		category:   CategoryInfo,
		permission: discordgo.PermissionManageGuild,
		options:    []Option{{Name: "user", Description: "Member", Type: OptionUser}},
	}}
}

// Execute runs the invites command
func (c *InvitesCommand) Execute(ctx *Context) (*Response, error) {
	invites, err := ctx.Guild.Invites(ctx.Context(), ctx.GuildID)
	if err != nil {
		return nil, platformError(err)
	}

	if u := ctx.User("user"); u != nil {
		uses, codes := 0, 0
		for _, inv := range invites {
			if inv.InviterID == u.ID {
				uses += inv.Uses
				codes++
			}
		}
		return NewEmbedResponse(&discordgo.MessageEmbed{
			Title:       "📨 Invites of " + u.Tag,
			Color:       colorDefault,
			Description: fmt.Sprintf("**%d** joins through **%d** active invites.", uses, codes),
		}), nil
	}

	byInviter := make(map[string]int)
	for _, inv := range invites {
		if inv.InviterID != "" {
			byInviter[inv.InviterID] += inv.Uses
		}
	}
	if len(byInviter) == 0 {
		return NewEphemeral("No active invites."), nil
	}
	ids := make([]string, 0, len(byInviter))
	for id := range byInviter {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if byInviter[ids[i]] != byInviter[ids[j]] {
			return byInviter[ids[i]] > byInviter[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > topInvites {
		ids = ids[:topInvites]
	}

	var b strings.Builder
	for i, id := range ids {
		fmt.Fprintf(&b, "**%d.** <@%s>: %d\n", i+1, id, byInviter[id])
	}
	return NewEmbedResponse(&discordgo.MessageEmbed{
		Title:       "📨 Top inviters",
		Color:       colorDefault,
		Description: b.String(),
	}), nil
}

// BoostersCommand implements /boosters
type BoostersCommand struct {
	meta
}

// NewBoostersCommand creates a new boosters command
func NewBoostersCommand() *BoostersCommand {
	return &BoostersCommand{meta{name: "boosters", help: "List the server's boosters", category: CategoryInfo, deferred: true}}
}

// Execute runs the boosters command
func (c *BoostersCommand) Execute(ctx *Context) (*Response, error) {
	members, err := ctx.Guild.Members(ctx.Context(), ctx.GuildID)
	if err != nil {
		return nil, platformError(err)
	}
	var boosters []Member
	for _, m := range members {
		if !m.BoostingSince.IsZero() {
			boosters = append(boosters, m)
		}
	}
	if len(boosters) == 0 {
		return NewEphemeral("💎 Nobody boosts this server yet."), nil
	}
	sort.SliceStable(boosters, func(i, j int) bool { return boosters[i].BoostingSince.Before(boosters[j].BoostingSince) })

	var b strings.Builder
	for i, m := range boosters {
		if i == maxBoosters {
			fmt.Fprintf(&b, "+%d more", len(boosters)-maxBoosters)
			break
		}
		fmt.Fprintf(&b, "**%d.** <@%s> since <t:%d:D>\n", i+1, m.ID, m.BoostingSince.Unix())
	}
	return NewEmbedResponse(&discordgo.MessageEmbed{
		Title:       fmt.Sprintf("💎 Boosters (%d)", len(boosters)),
		Color:       0xf47fff,
		Description: b.String(),
	}), nil
}

// BannerCommand implements /banner
type BannerCommand struct {
	meta
}

// NewBannerCommand creates a new banner command
func NewBannerCommand() *BannerCommand {
	return &BannerCommand{meta{
		name:     "banner",
		help:     "Show a user's profile banner",
		category: CategoryInfo,
		options:  []Option{{Name: "user", Description: "User (defaults to you)", Type: OptionUser}},
	}}
}

// Execute runs the banner command
func (c *BannerCommand) Execute(ctx *Context) (*Response, error) {
	userID := ctx.UserID
	if u := ctx.User("user"); u != nil {
		userID = u.ID
	}
	p, err := ctx.Guild.UserProfile(ctx.Context(), userID)
	if err != nil {
		return nil, platformError(err)
	}
	if p.BannerURL == "" {
		if p.AccentColor != 0 {
			return NewEmbedResponse(&discordgo.MessageEmbed{
				Title:       "🎨 No banner",
				Color:       p.AccentColor,
				Description: fmt.Sprintf("<@%s> has no banner; their accent color is #%06X.", p.ID, p.AccentColor),
			}), nil
		}
		return NewEphemeral("❌ This user has no banner."), nil
	}
	return NewEmbedResponse(imageEmbed("🖼️ Banner: "+p.Tag, p.BannerURL)), nil
}

// ServerImageCommand shows the server icon or banner
type ServerImageCommand struct {
	meta
	banner bool
}

// NewServerIconCommand creates /servericon
func NewServerIconCommand() *ServerImageCommand {
	return &ServerImageCommand{meta: meta{name: "servericon", help: "Show the server icon", category: CategoryInfo}}
}

// NewServerBannerCommand creates /serverbanner
func NewServerBannerCommand() *ServerImageCommand {
	return &ServerImageCommand{meta: meta{name: "serverbanner", help: "Show the server banner", category: CategoryInfo}, banner: true}
}

// Execute runs the server image command
func (c *ServerImageCommand) Execute(ctx *Context) (*Response, error) {
	info, err := ctx.Guild.GuildInfo(ctx.Context(), ctx.GuildID)
	if err != nil {
		return nil, err
	}
	url, title, missing := info.IconURL, "🖼️ Icon: "+info.Name, "❌ This server has no icon."
	if c.banner {
		url, title, missing = info.BannerURL, "🖼️ Banner: "+info.Name, "❌ This server has no banner."
	}
	if url == "" {
		return NewEphemeral(missing), nil
	}
	return NewEmbedResponse(imageEmbed(title, url)), nil
}

// ChannelInfoCommand implements /channelinfo
type ChannelInfoCommand struct {
	meta
}

// NewChannelInfoCommand creates a new channelinfo command
func NewChannelInfoCommand() *ChannelInfoCommand {
	return &ChannelInfoCommand{meta{
		name:     "channelinfo",
		help:     "Show information about a channel",
		category: CategoryInfo,
		options:  []Option{channelOption("Channel (defaults to this one)")},
	}}
}

// Execute runs the channelinfo command
func (c *ChannelInfoCommand) Execute(ctx *Context) (*Response, error) {
	ch, err := targetChannel(ctx)
	if err != nil {
		return nil, err
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "🆔 ID", Value: ch.ID, Inline: true},
		{Name: "📂 Type", Value: string(ch.Kind), Inline: true},
	}
	if ch.ParentID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "📁 Category", Value: "<#" + ch.ParentID + ">", Inline: true})
	}
	if !ch.CreatedAt.IsZero() {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "📅 Created", Value: relativeDate(ch.CreatedAt), Inline: true})
	}
	if ch.IsVoice() {
		members, _ := ctx.Guild.VoiceMembers(ctx.Context(), ctx.GuildID, ch.ID)
		limit := "Unlimited"
		if ch.UserLimit > 0 {
			limit = fmt.Sprintf("%d", ch.UserLimit)
		}
		fields = append(fields,
			&discordgo.MessageEmbedField{Name: "🎧 Connected", Value: fmt.Sprintf("%d / %s", len(members), limit), Inline: true},
			&discordgo.MessageEmbedField{Name: "📶 Bitrate", Value: fmt.Sprintf("%d kbps", ch.Bitrate/1000), Inline: true},
		)
	} else if ch.Kind != ChannelCategory {
		slowmode := "Off"
		if ch.Slowmode > 0 {
			slowmode = fmt.Sprintf("%d sec", ch.Slowmode)
		}
		fields = append(fields,
			&discordgo.MessageEmbedField{Name: "🐢 Slowmode", Value: slowmode, Inline: true},
			&discordgo.MessageEmbedField{Name: "🔞 NSFW", Value: yesNo(ch.NSFW), Inline: true},
		)
	}
	if ch.Topic != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "📝 Topic", Value: truncateRunes(ch.Topic, 1024)})
	}
	return NewEmbedResponse(&discordgo.MessageEmbed{
		Title:  "#" + ch.Name,
		Color:  colorDefault,
		Fields: fields,
	}), nil
}

// FirstMessageCommand implements /firstmessage
type FirstMessageCommand struct {
	meta
}

// NewFirstMessageCommand creates a new firstmessage command
func NewFirstMessageCommand() *FirstMessageCommand {
	return &FirstMessageCommand{meta{
		name:     "firstmessage",
		help:     "Link the first message of a channel",
		category: CategoryInfo,
		options:  []Option{channelOption("Channel (defaults to this one)")},
	}}
}

// Execute runs the firstmessage command
func (c *FirstMessageCommand) Execute(ctx *Context) (*Response, error) {
	channelID := ctx.String("channel")
	if channelID == "" {
		channelID = ctx.ChannelID
	}
	m, err := ctx.Guild.FirstMessage(ctx.Context(), channelID)
	if err != nil {
		return nil, platformError(err)
	}
	if m == nil {
		return NewEphemeral("This channel has no messages."), nil
	}

	link := fmt.Sprintf("https://discord.com/channels/%s/%s/%s", ctx.GuildID, channelID, m.ID)
	content := truncateRunes(m.Content, 1000)
	if content == "" {
		content = "*(no text)*"
	}
	return NewEmbedResponse(&discordgo.MessageEmbed{
		Title:       "📜 First message in #" + channelName(ctx, channelID),
		URL:         link,
		Color:       colorDefault,
		Description: content,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "👤 Author", Value: "<@" + m.AuthorID + ">", Inline: true},
			{Name: "📅 Sent", Value: relativeDate(m.Timestamp), Inline: true},
			{Name: "🔗 Jump", Value: fmt.Sprintf("[Open message](%s)", link), Inline: true},
		},
	}), nil
}

func channelName(ctx *Context, id string) string {
	if ch, err := ctx.Guild.Channel(ctx.Context(), id); err == nil && ch != nil {
		return ch.Name
	}
	return id
}

// WhoisCommand implements /whois
type WhoisCommand struct {
	meta
}

// NewWhoisCommand creates a new whois command
func NewWhoisCommand() *WhoisCommand {
	return &WhoisCommand{meta{
		name:     "whois",
		help:     "Show a detailed member profile",
		category: CategoryInfo,
		options:  []Option{{Name: "user", Description: "Member (defaults to you)", Type: OptionUser}},
	}}
}

// Execute runs the whois command
func (c *WhoisCommand) Execute(ctx *Context) (*Response, error) {
	userID := ctx.UserID
	if u := ctx.User("user"); u != nil {
		userID = u.ID
	}
	m, err := ctx.Guild.Member(ctx.Context(), ctx.GuildID, userID)
	if err != nil || m == nil {
		return nil, boterrors.NewNotFoundError("Member", userID)
	}
	profile, err := ctx.Guild.UserProfile(ctx.Context(), userID)
	if err != nil {
		profile = &UserProfile{ID: userID}
	}

	color := profile.AccentColor
	if color == 0 {
		color = colorDefault
	}
	embed := &discordgo.MessageEmbed{
		Title:     m.Tag,
		Color:     color,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: m.AvatarURL},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🆔 ID", Value: m.ID, Inline: true},
			{Name: "🤖 Bot", Value: yesNo(m.Bot), Inline: true},
			{Name: "📅 Account created", Value: relativeDate(m.CreatedAt), Inline: true},
		},
	}
	if m.Nick != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "📝 Nickname", Value: m.Nick, Inline: true})
	}
	if !m.JoinedAt.IsZero() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "📥 Joined", Value: relativeDate(m.JoinedAt), Inline: true})
	}
	if !m.BoostingSince.IsZero() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "💎 Boosting since", Value: relativeDate(m.BoostingSince), Inline: true})
	}
	if badges := Badges(profile.Flags); len(badges) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "🏅 Badges", Value: strings.Join(badges, "\n")})
	}
	if len(m.Roles) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("🎭 Roles (%d)", len(m.Roles)),
			Value: formatRoles(m.Roles),
		})
	}
	if profile.BannerURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: profile.BannerURL}
	}
	return NewEmbedResponse(embed), nil
}

// Badges names the public profile badges set in flags
func Badges(flags int) []string {
	var out []string
	for _, b := range userBadges {
		if discordgo.UserFlags(flags)&b.flag != 0 {
			out = append(out, b.name)
		}
	}
	return out
}

// MembersCommand implements /members
type MembersCommand struct {
	meta
}

// NewMembersCommand creates a new members command
func NewMembersCommand() *MembersCommand {
	return &MembersCommand{meta{name: "members", help: "Count the server's members", category: CategoryInfo, deferred: true}}
}

// Execute runs the members command
func (c *MembersCommand) Execute(ctx *Context) (*Response, error) {
	members, err := ctx.Guild.Members(ctx.Context(), ctx.GuildID)
	if err != nil {
		return nil, platformError(err)
	}
	bots := 0
	var newest *Member
	for i := range members {
		m := &members[i]
		if m.Bot {
			bots++
			continue
		}
		if newest == nil || m.JoinedAt.After(newest.JoinedAt) {
			newest = m
		}
	}

	embed := &discordgo.MessageEmbed{
		Title: "👥 Members",
		Color: colorDefault,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Total", Value: fmt.Sprintf("%d", len(members)), Inline: true},
			{Name: "👤 Humans", Value: fmt.Sprintf("%d", len(members)-bots), Inline: true},
			{Name: "🤖 Bots", Value: fmt.Sprintf("%d", bots), Inline: true},
		},
	}
	if newest != nil && !newest.JoinedAt.IsZero() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "🆕 Newest member",
			Value: fmt.Sprintf("<@%s> joined <t:%d:R>", newest.ID, newest.JoinedAt.Unix()),
		})
	}
	return NewEmbedResponse(embed), nil
}

// ServerTimeCommand implements /servertime
type ServerTimeCommand struct {
	meta
	clock clock.Clock
}

// NewServerTimeCommand creates a new servertime command
func NewServerTimeCommand(clk clock.Clock) *ServerTimeCommand {
	return &ServerTimeCommand{
		meta:  meta{name: "servertime", help: "Show the time in several time zones", category: CategoryInfo},
		clock: clk,
	}
}

// Execute runs the servertime command
func (c *ServerTimeCommand) Execute(ctx *Context) (*Response, error) {
	now := c.clock.Now()
	fields := make([]*discordgo.MessageEmbedField, 0, len(ServerClocks))
	for _, z := range ServerClocks {
		loc, err := time.LoadLocation(z.Zone)
		if err != nil {
			continue
		}
		local := now.In(loc)
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   z.Label,
			Value:  fmt.Sprintf("**%s**\n%s (%s)", local.Format("15:04"), local.Format("Mon 02.01"), local.Format("MST")),
			Inline: true,
		})
	}
	return NewEmbedResponse(&discordgo.MessageEmbed{
		Title:     "🕐 World clock",
		Color:     colorDefault,
		Fields:    fields,
		Timestamp: timestamp(c.clock),
	}), nil
}
