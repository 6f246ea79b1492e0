package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/yourusername/guildbot/internal/clock"
	"github.com/yourusername/guildbot/internal/database"
	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/validation"
)

const (
	maxNicknameLength = 32
	bansPerPage       = 10
)

// TempBanDurations are the /tempban choices in minutes
var TempBanDurations = []Choice{
	{Name: "30 minutes", Value: int64(30)},
	{Name: "1 hour", Value: int64(60)},
	{Name: "6 hours", Value: int64(360)},
	{Name: "12 hours", Value: int64(720)},
	{Name: "1 day", Value: int64(1440)},
	{Name: "3 days", Value: int64(4320)},
	{Name: "7 days", Value: int64(10080)},
}

// TempBanStore persists temporary bans so they survive restarts
type TempBanStore interface {
	UpsertTempBan(ctx context.Context, b *database.TempBan) error
	DeleteTempBan(ctx context.Context, guildID, userID string) error
}

func choiceName(choices []Choice, v int64) (string, bool) {
	for _, c := range choices {
		if c.Value.(int64) == v {
			return c.Name, true
		}
	}
	return "", false
}

// TempBanCommand implements /tempban
type TempBanCommand struct {
	meta
	store TempBanStore
	clock clock.Clock
}

// NewTempBanCommand creates a new tempban command
func NewTempBanCommand(store TempBanStore, clk clock.Clock) *TempBanCommand {
	return &TempBanCommand{
		meta: meta{
			name:       "tempban",
			help:       "Ban a member for a limited time",
			category:   CategoryModeration,
			permission: discordgo.PermissionBanMembers,
			options: []Option{
				userOption("Member to ban"),
				{Name: "duration", Description: "How long", Type: OptionInteger, Required: true, Choices: TempBanDurations},
				reasonOption(false),
			},
		},
		store: store,
		clock: clk,
	}
}

// Execute runs the tempban command
func (c *TempBanCommand) Execute(ctx *Context) (*Response, error) {
	target, err := resolveTarget(ctx, "ban")
	if err != nil {
		return nil, err
	}
	minutes, _ := ctx.Int("duration")
	label, ok := choiceName(TempBanDurations, minutes)
	if !ok {
		return nil, boterrors.NewValidationError("Choose one of the offered durations.")
	}
	reason := validation.Reason(ctx.String("reason"))
	if err := ctx.Guild.Ban(ctx.Context(), ctx.GuildID, target.ID, fmt.Sprintf("[Tempban: %s] %s", label, reason), 0); err != nil {
		return nil, platformError(err)
	}

	now := c.clock.Now()
	until := now.Add(time.Duration(minutes) * time.Minute)
	embed := moderationEmbed("⏳ Member temporarily banned", colorBad, target, ctx.UserTag, reason,
		&discordgo.MessageEmbedField{Name: "⏰ Duration", Value: label, Inline: true},
		&discordgo.MessageEmbedField{Name: "🔓 Unban", Value: fmt.Sprintf("<t:%d:R>", until.Unix()), Inline: true},
	)
	err = c.store.UpsertTempBan(ctx.Context(), &database.TempBan{
		GuildID:     ctx.GuildID,
		UserID:      target.ID,
		UserTag:     target.Tag,
		ModeratorID: ctx.UserID,
		Reason:      reason,
		CreatedAt:   now,
		ExpiresAt:   until,
	})
	if err != nil {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "⚠️ The automatic unban could not be scheduled; use /unban later"}
	}

	resp := NewEmbedResponse(embed)
	resp.Audit = &AuditAction{
		Action: "tempban", TargetID: target.ID, TargetTag: target.Tag, Reason: reason,
		Details: map[string]string{"duration": label, "until": until.UTC().Format(time.RFC3339)},
	}
	return resp, nil
}

// RoleCommand implements /role
type RoleCommand struct {
	meta
}

// NewRoleCommand creates a new role command
func NewRoleCommand() *RoleCommand {
	return &RoleCommand{meta{
		name:       "role",
		help:       "Give a role to a member or take it away",
		category:   CategoryModeration,
		permission: discordgo.PermissionManageRoles,
		options: []Option{
			{Name: "action", Description: "Add or remove", Type: OptionString, Required: true, Choices: []Choice{
				{Name: "add", Value: "add"},
				{Name: "remove", Value: "remove"},
			}},
			{Name: "user", Description: "Member", Type: OptionUser, Required: true},
			{Name: "role", Description: "Role", Type: OptionRole, Required: true},
		},
	}}
}

// Execute runs the role command
func (c *RoleCommand) Execute(ctx *Context) (*Response, error) {
	action := ctx.String("action")
	if action != "add" && action != "remove" {
		return nil, boterrors.NewInvalidSyntaxError("role", "/role action:<add|remove> user:<@user> role:<@role>")
	}
	u := ctx.User("user")
	if u == nil {
		return nil, boterrors.NewInvalidSyntaxError("role", "/role action:<add|remove> user:<@user> role:<@role>")
	}
	member, err := ctx.Guild.Member(ctx.Context(), ctx.GuildID, u.ID)
	if err != nil || member == nil {
		return nil, boterrors.NewNotFoundError("Member", u.Tag)
	}
	role, err := findRole(ctx, ctx.String("role"))
	if err != nil {
		return nil, err
	}
	if role.Managed || role.ID == ctx.GuildID {
		return nil, boterrors.NewValidationError(fmt.Sprintf("The role %s is managed automatically and can't be assigned.", role.Name))
	}

	has := hasRole(member, role.ID)
	var msg string
	switch {
	case action == "add" && has:
		return nil, boterrors.NewValidationError(fmt.Sprintf("%s already has %s.", member.Tag, role.Name))
	case action == "remove" && !has:
		return nil, boterrors.NewValidationError(fmt.Sprintf("%s doesn't have %s.", member.Tag, role.Name))
	case action == "add":
		err = ctx.Guild.AddRole(ctx.Context(), ctx.GuildID, member.ID, role.ID)
		msg = fmt.Sprintf("✅ Gave <@&%s> to %s.", role.ID, member.Tag)
	default:
		err = ctx.Guild.RemoveRole(ctx.Context(), ctx.GuildID, member.ID, role.ID)
		msg = fmt.Sprintf("✅ Removed <@&%s> from %s.", role.ID, member.Tag)
	}
	if err != nil {
		return nil, platformError(err)
	}

	resp := NewResponse(msg)
	resp.Audit = &AuditAction{
		Action: "role-" + action, TargetID: member.ID, TargetTag: member.Tag,
		Details: map[string]string{"role_id": role.ID, "role": role.Name},
	}
	return resp, nil
}

func findRole(ctx *Context, id string) (*Role, error) {
	if id == "" {
		return nil, boterrors.NewInvalidSyntaxError(ctx.Command, fmt.Sprintf("/%s role:<@role>", ctx.Command))
	}
	roles, err := ctx.Guild.Roles(ctx.Context(), ctx.GuildID)
	if err != nil {
		return nil, platformError(err)
	}
	for i := range roles {
		if roles[i].ID == id {
			return &roles[i], nil
		}
	}
	return nil, boterrors.NewNotFoundError("Role", "<@&"+id+">")
}

func hasRole(m *Member, roleID string) bool {
	for _, id := range m.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}

// NickCommand implements /nick
type NickCommand struct {
	meta
}

// NewNickCommand creates a new nick command
func NewNickCommand() *NickCommand {
	return &NickCommand{meta{
		name:       "nick",
		help:       "Change a member's nickname; leave it empty to reset",
		category:   CategoryModeration,
		permission: discordgo.PermissionManageNicknames,
		options: []Option{
			{Name: "user", Description: "Member", Type: OptionUser, Required: true},
			{Name: "nickname", Description: "New nickname (1-32 characters)", Type: OptionString, MaxLength: maxNicknameLength},
		},
	}}
}

// Execute runs the nick command
func (c *NickCommand) Execute(ctx *Context) (*Response, error) {
	u := ctx.User("user")
	if u == nil {
		return nil, boterrors.NewInvalidSyntaxError("nick", "/nick user:<@user> [nickname]")
	}
	nick, err := nickname(ctx.String("nickname"))
	if err != nil {
		return nil, err
	}
	if err := ctx.Guild.SetNickname(ctx.Context(), ctx.GuildID, u.ID, nick); err != nil {
		return nil, platformError(err)
	}

	msg := fmt.Sprintf("✏️ %s is now known as **%s**.", u.Tag, nick)
	if nick == "" {
		msg = fmt.Sprintf("✏️ Nickname of %s reset.", u.Tag)
	}
	resp := NewResponse(msg)
	resp.Audit = &AuditAction{Action: "nick", TargetID: u.ID, TargetTag: u.Tag, Details: map[string]string{"nickname": nick}}
	return resp, nil
}

func nickname(raw string) (string, error) {
	nick := validation.Sanitize(raw)
	if utf8.RuneCountInString(nick) > maxNicknameLength {
		return "", boterrors.NewValidationError(fmt.Sprintf("Nicknames are at most %d characters.", maxNicknameLength))
	}
	return nick, nil
}

// ResetNicknameCommand implements /nickname
type ResetNicknameCommand struct {
	meta
}

// NewResetNicknameCommand creates a new nickname reset command
func NewResetNicknameCommand() *ResetNicknameCommand {
	return &ResetNicknameCommand{meta{
		name:       "nickname",
		help:       "Reset a member's nickname",
		category:   CategoryModeration,
		permission: discordgo.PermissionManageNicknames,
		options:    []Option{userOption("Member")},
	}}
}

// Execute runs the nickname command
func (c *ResetNicknameCommand) Execute(ctx *Context) (*Response, error) {
	u := ctx.User("user")
	if u == nil {
		return nil, boterrors.NewInvalidSyntaxError("nickname", "/nickname user:<@user>")
	}
	m, err := ctx.Guild.Member(ctx.Context(), ctx.GuildID, u.ID)
	if err != nil || m == nil {
		return nil, boterrors.NewNotFoundError("Member", u.Tag)
	}
	if m.Nick == "" {
		return nil, boterrors.NewValidationError(fmt.Sprintf("%s has no nickname.", m.Tag))
	}
	if err := ctx.Guild.SetNickname(ctx.Context(), ctx.GuildID, m.ID, ""); err != nil {
		return nil, platformError(err)
	}

	resp := NewResponse(fmt.Sprintf("✏️ Nickname **%s** of %s removed.", m.Nick, m.Tag))
	resp.Audit = &AuditAction{Action: "nick", TargetID: m.ID, TargetTag: m.Tag, Details: map[string]string{"previous": m.Nick}}
	return resp, nil
}

// SetNickCommand implements /setnick, which changes the caller's own nickname
type SetNickCommand struct {
	meta
}

// NewSetNickCommand creates a new setnick command
func NewSetNickCommand() *SetNickCommand {
	return &SetNickCommand{meta{
		name:       "setnick",
		help:       "Change your own nickname; leave it empty to reset",
		category:   CategoryUtility,
		permission: discordgo.PermissionChangeNickname,
		options: []Option{
			{Name: "nickname", Description: "New nickname (1-32 characters)", Type: OptionString, MaxLength: maxNicknameLength},
		},
	}}
}

// Execute runs the setnick command
func (c *SetNickCommand) Execute(ctx *Context) (*Response, error) {
	nick, err := nickname(ctx.String("nickname"))
	if err != nil {
		return nil, err
	}
	if err := ctx.Guild.SetNickname(ctx.Context(), ctx.GuildID, ctx.UserID, nick); err != nil {
		return nil, platformError(err)
	}
	if nick == "" {
		return NewEphemeral("✏️ Your nickname was reset."), nil
	}
	return NewEphemeral(fmt.Sprintf("✏️ Your nickname is now **%s**.", nick)), nil
}

// voiceTarget loads the member named by the "user" option and their voice state
func voiceTarget(ctx *Context) (*Member, *VoiceState, error) {
	u := ctx.User("user")
	if u == nil {
		return nil, nil, boterrors.NewInvalidSyntaxError(ctx.Command, fmt.Sprintf("/%s user:<@user>", ctx.Command))
	}
	m, err := ctx.Guild.Member(ctx.Context(), ctx.GuildID, u.ID)
	if err != nil || m == nil {
		return nil, nil, boterrors.NewNotFoundError("Member", u.Tag)
	}
	vs, err := ctx.Guild.VoiceState(ctx.Context(), ctx.GuildID, m.ID)
	if err != nil {
		return nil, nil, platformError(err)
	}
	if vs == nil {
		return nil, nil, boterrors.NewValidationError(fmt.Sprintf("%s is not in a voice channel.", m.Tag))
	}
	return m, vs, nil
}

// VoiceMuteCommand implements /voicemute and /voiceunmute
type VoiceMuteCommand struct {
	meta
	mute bool
}

// NewVoiceMuteCommand creates /voicemute
func NewVoiceMuteCommand() *VoiceMuteCommand {
	return &VoiceMuteCommand{
		meta: meta{
			name:       "voicemute",
			help:       "Server mute a member in voice",
			category:   CategoryModeration,
			permission: discordgo.PermissionVoiceMuteMembers,
			options:    []Option{userOption("Member"), reasonOption(false)},
		},
		mute: true,
	}
}

// NewVoiceUnmuteCommand creates /voiceunmute
func NewVoiceUnmuteCommand() *VoiceMuteCommand {
	return &VoiceMuteCommand{
		meta: meta{
			name:       "voiceunmute",
			help:       "Lift a member's server mute in voice",
			category:   CategoryModeration,
			permission: discordgo.PermissionVoiceMuteMembers,
			options:    []Option{userOption("Member"), reasonOption(false)},
		},
	}
}

// Execute runs the voice mute command
func (c *VoiceMuteCommand) Execute(ctx *Context) (*Response, error) {
	m, vs, err := voiceTarget(ctx)
	if err != nil {
		return nil, err
	}
	if vs.Mute == c.mute {
		state := "muted"
		if !c.mute {
			state = "not muted"
		}
		return nil, boterrors.NewValidationError(fmt.Sprintf("%s is already %s.", m.Tag, state))
	}
	reason := validation.Reason(ctx.String("reason"))
	if err := ctx.Guild.SetVoiceMute(ctx.Context(), ctx.GuildID, m.ID, c.mute); err != nil {
		return nil, platformError(err)
	}

	msg := fmt.Sprintf("🔇 %s is muted in voice.", m.Tag)
	if !c.mute {
		msg = fmt.Sprintf("🔊 %s can speak again.", m.Tag)
	}
	resp := NewResponse(msg)
	resp.Audit = &AuditAction{Action: c.name, TargetID: m.ID, TargetTag: m.Tag, Reason: reason}
	return resp, nil
}

// UndeafenCommand implements /undeafen
type UndeafenCommand struct {
	meta
}

// NewUndeafenCommand creates a new undeafen command
func NewUndeafenCommand() *UndeafenCommand {
	return &UndeafenCommand{meta{
		name:       "undeafen",
		help:       "Lift a member's server deafen in voice",
		category:   CategoryModeration,
		permission: discordgo.PermissionVoiceDeafenMembers,
		options:    []Option{userOption("Member")},
	}}
}

// Execute runs the undeafen command
func (c *UndeafenCommand) Execute(ctx *Context) (*Response, error) {
	m, vs, err := voiceTarget(ctx)
	if err != nil {
		return nil, err
	}
	if !vs.Deaf {
		return nil, boterrors.NewValidationError(fmt.Sprintf("%s is not deafened.", m.Tag))
	}
	if err := ctx.Guild.SetVoiceDeaf(ctx.Context(), ctx.GuildID, m.ID, false); err != nil {
		return nil, platformError(err)
	}

	resp := NewResponse(fmt.Sprintf("🎧 %s can hear again.", m.Tag))
	resp.Audit = &AuditAction{Action: "undeafen", TargetID: m.ID, TargetTag: m.Tag}
	return resp, nil
}

// VoiceKickCommand implements /voicekick
type VoiceKickCommand struct {
	meta
}

// NewVoiceKickCommand creates a new voicekick command
func NewVoiceKickCommand() *VoiceKickCommand {
	return &VoiceKickCommand{meta{
		name:       "voicekick",
		help:       "Disconnect a member from voice",
		category:   CategoryModeration,
		permission: discordgo.PermissionVoiceMoveMembers,
		options:    []Option{userOption("Member"), reasonOption(false)},
	}}
}

// Execute runs the voicekick command
func (c *VoiceKickCommand) Execute(ctx *Context) (*Response, error) {
	m, vs, err := voiceTarget(ctx)
	if err != nil {
		return nil, err
	}
	reason := validation.Reason(ctx.String("reason"))
	if err := ctx.Guild.MoveVoice(ctx.Context(), ctx.GuildID, m.ID, ""); err != nil {
		return nil, platformError(err)
	}

	resp := NewResponse(fmt.Sprintf("👋 %s was disconnected from <#%s>.", m.Tag, vs.ChannelID))
	resp.Audit = &AuditAction{
		Action: "voicekick", TargetID: m.ID, TargetTag: m.Tag, Reason: reason,
		Details: map[string]string{"channel_id": vs.ChannelID},
	}
	return resp, nil
}

// MoveAllCommand implements /moveall
type MoveAllCommand struct {
	meta
}

// NewMoveAllCommand creates a new moveall command
func NewMoveAllCommand() *MoveAllCommand {
	return &MoveAllCommand{meta{
		name:       "moveall",
		help:       "Move everyone from one voice channel to another",
		category:   CategoryModeration,
		permission: discordgo.PermissionVoiceMoveMembers,
		deferred:   true,
		options: []Option{
			{Name: "from", Description: "Voice channel to empty", Type: OptionChannel, Required: true},
			{Name: "to", Description: "Voice channel to fill", Type: OptionChannel, Required: true},
		},
	}}
}

// Execute runs the moveall command
func (c *MoveAllCommand) Execute(ctx *Context) (*Response, error) {
	from, to := ctx.String("from"), ctx.String("to")
	if from == "" || to == "" {
		return nil, boterrors.NewInvalidSyntaxError("moveall", "/moveall from:<#voice> to:<#voice>")
	}
	if from == to {
		return nil, boterrors.NewValidationError("Pick two different channels.")
	}
	for _, id := range []string{from, to} {
		ch, err := ctx.Guild.Channel(ctx.Context(), id)
		if err != nil || ch == nil {
			return nil, boterrors.NewNotFoundError("Channel", "<#"+id+">")
		}
		if !ch.IsVoice() {
			return nil, boterrors.NewValidationError(fmt.Sprintf("<#%s> is not a voice channel.", id))
		}
	}

	members, err := ctx.Guild.VoiceMembers(ctx.Context(), ctx.GuildID, from)
	if err != nil {
		return nil, platformError(err)
	}
	if len(members) == 0 {
		return nil, boterrors.NewValidationError(fmt.Sprintf("Nobody is in <#%s>.", from))
	}

	moved, failed := 0, 0
	for _, id := range members {
		if err := ctx.Guild.MoveVoice(ctx.Context(), ctx.GuildID, id, to); err != nil {
			failed++
			continue
		}
		moved++
	}

	msg := fmt.Sprintf("🚚 Moved %d members from <#%s> to <#%s>.", moved, from, to)
	if failed > 0 {
		msg += fmt.Sprintf(" %d could not be moved.", failed)
	}
	resp := NewResponse(msg)
	resp.Audit = &AuditAction{
		Action: "moveall", TargetID: from,
		Details: map[string]string{"to": to, "moved": strconv.Itoa(moved), "failed": strconv.Itoa(failed)},
	}
	return resp, nil
}

// BanListCommand implements /banlist
type BanListCommand struct {
	meta
}

// NewBanListCommand creates a new banlist command
func NewBanListCommand() *BanListCommand {
	return &BanListCommand{meta{
		name:       "banlist",
		help:       "List banned users",
		category:   CategoryModeration,
		permission: discordgo.PermissionBanMembers,
		deferred:   true,
		options: []Option{
			{Name: "page", Description: "Page number", Type: OptionInteger, MinValue: float(1)},
		},
	}}
}

// Execute runs the banlist command
func (c *BanListCommand) Execute(ctx *Context) (*Response, error) {
	bans, err := ctx.Guild.Bans(ctx.Context(), ctx.GuildID)
	if err != nil {
		return nil, platformError(err)
	}
	if len(bans) == 0 {
		return NewEphemeral("✅ Nobody is banned."), nil
	}

	page, pages := pageOf(ctx, len(bans), bansPerPage)
	start := (page - 1) * bansPerPage
	end := min(start+bansPerPage, len(bans))

	var b strings.Builder
	for i, ban := range bans[start:end] {
		reason := ban.Reason
		if reason == "" {
			reason = validation.DefaultReason
		}
		fmt.Fprintf(&b, "**%d.** %s (`%s`)\n└ %s\n", start+i+1, ban.UserTag, ban.UserID, truncateRunes(reason, 100))
	}
	return NewEmbedResponse(&discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🔨 Bans (%d)", len(bans)),
		Color:       colorBad,
		Description: b.String(),
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Page %d/%d", page, pages)},
	}), nil
}

// pageOf clamps the "page" option to the available pages
func pageOf(ctx *Context, total, perPage int) (page, pages int) {
	pages = (total + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	page = 1
	if p, ok := ctx.Int("page"); ok && p > 1 {
		page = int(p)
	}
	if page > pages {
		page = pages
	}
	return page, pages
}
