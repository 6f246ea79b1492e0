package discord

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/bwmarrin/discordgo"

	"github.com/yourusername/guildbot/internal/commands"
	"github.com/yourusername/guildbot/internal/splitter"
)

var optionTypes = map[commands.OptionType]discordgo.ApplicationCommandOptionType{
	commands.OptionSubcommand: discordgo.ApplicationCommandOptionSubCommand,
	commands.OptionString:     discordgo.ApplicationCommandOptionString,
	commands.OptionInteger:    discordgo.ApplicationCommandOptionInteger,
	commands.OptionBoolean:    discordgo.ApplicationCommandOptionBoolean,
	commands.OptionUser:       discordgo.ApplicationCommandOptionUser,
	commands.OptionChannel:    discordgo.ApplicationCommandOptionChannel,
	commands.OptionNumber:     discordgo.ApplicationCommandOptionNumber,
	commands.OptionRole:       discordgo.ApplicationCommandOptionRole,
}

// commandSpecs converts every registered command into its slash command schema
func commandSpecs(r *commands.Registry) []*discordgo.ApplicationCommand {
	all := r.All()
	specs := make([]*discordgo.ApplicationCommand, 0, len(all))
	for _, cmd := range all {
		specs = append(specs, commandSpec(cmd))
	}
	return specs
}

func commandSpec(cmd commands.Command) *discordgo.ApplicationCommand {
	spec := &discordgo.ApplicationCommand{
		Name:        cmd.Name(),
		Description: cmd.Help(),
		Type:        discordgo.ChatApplicationCommand,
	}
	if perm := cmd.RequiredPermission(); perm != 0 {
		spec.DefaultMemberPermissions = &perm
	}
	for _, o := range cmd.Options() {
		spec.Options = append(spec.Options, optionSpec(o))
	}
	return spec
}

func optionSpec(o commands.Option) *discordgo.ApplicationCommandOption {
	spec := &discordgo.ApplicationCommandOption{
		Type:        optionTypes[o.Type],
		Name:        o.Name,
		Description: o.Description,
		Required:    o.Required,
		MinValue:    o.MinValue,
		MaxLength:   o.MaxLength,
	}
	if o.MaxValue != nil {
		spec.MaxValue = *o.MaxValue
	}
	for _, c := range o.Choices {
		spec.Choices = append(spec.Choices, &discordgo.ApplicationCommandOptionChoice{Name: c.Name, Value: c.Value})
	}
	for _, sub := range o.Options {
		spec.Options = append(spec.Options, optionSpec(sub))
	}
	return spec
}

// buildContext turns a slash command interaction into a command context
func buildContext(ctx context.Context, i *discordgo.Interaction, guild commands.GuildActions) *commands.Context {
	data := i.ApplicationCommandData()
	c := &commands.Context{
		Ctx:       ctx,
		Command:   data.Name,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Options:   make(map[string]interface{}),
		Users:     make(map[string]*commands.Member),
		Guild:     guild,
	}

	user := i.User
	if i.Member != nil {
		c.Permissions = i.Member.Permissions
		if i.Member.User != nil {
			user = i.Member.User
		}
	}
	if user != nil {
		c.UserID = user.ID
		c.UserTag = user.String()
		c.UserAvatarURL = user.AvatarURL("")
	}

	opts := data.Options
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		c.Subcommand = opts[0].Name
		opts = opts[0].Options
	}
	for _, o := range opts {
		if v, ok := optionValue(o); ok {
			c.Options[o.Name] = v
		}
	}

	if r := data.Resolved; r != nil {
		for id, u := range r.Users {
			m := &discordgo.Member{User: u}
			if rm, ok := r.Members[id]; ok && rm != nil {
				resolved := *rm
				resolved.User = u
				resolved.GuildID = i.GuildID
				m = &resolved
			}
			c.Users[id] = toMember(m)
		}
	}
	return c
}

// optionValue unwraps an option into the types commands.Context expects
func optionValue(o *discordgo.ApplicationCommandInteractionDataOption) (interface{}, bool) {
	switch o.Type {
	case discordgo.ApplicationCommandOptionString:
		return o.StringValue(), true
	case discordgo.ApplicationCommandOptionInteger:
		return o.IntValue(), true
	case discordgo.ApplicationCommandOptionNumber:
		return o.FloatValue(), true
	case discordgo.ApplicationCommandOptionBoolean:
		return o.BoolValue(), true
	case discordgo.ApplicationCommandOptionUser, discordgo.ApplicationCommandOptionChannel, discordgo.ApplicationCommandOptionRole:
		id, ok := o.Value.(string)
		return id, ok
	}
	return nil, false
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if ic.GuildID == "" {
		b.respond(ic.Interaction, commands.NewEphemeral("Commands only work inside a server."))
		return
	}

	// Commands run off the gateway goroutine so heartbeats keep flowing
	go func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic handling interaction %s: %v\n%s", ic.ID, r, debug.Stack())
			}
		}()

		ctx, cancel := context.WithTimeout(b.ctx, interactionTimeout)
		defer cancel()

		c := buildContext(ctx, ic.Interaction, b.actions)
		cmd, ok := b.dispatcher.Lookup(c)
		deferred := false
		if ok {
			if d, isDeferred := cmd.(commands.Deferred); isDeferred && d.Deferred() {
				deferred = true
			}
		}

		if !deferred {
			b.respond(ic.Interaction, b.dispatcher.Dispatch(c))
			return
		}

		err := s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		})
		if err != nil {
			b.logger.Error("Failed to defer %s: %v", commandSummary(c), err)
			return
		}
		b.edit(ic.Interaction, b.dispatcher.Dispatch(c))
	}()
}

// respond answers an interaction within the initial response window
func (b *Bot) respond(i *discordgo.Interaction, resp *commands.Response) {
	data := &discordgo.InteractionResponseData{
		Content: resp.Content,
		Embeds:  resp.Embeds,
	}
	if resp.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := b.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		b.logger.Error("Failed to respond to interaction %s: %v", i.ID, err)
		return
	}
	b.followUps(i, resp)
}

// edit replaces a deferred response. An ephemeral result cannot be shown in the
// public placeholder, so the placeholder is removed and the result sent as an
// ephemeral follow-up.
func (b *Bot) edit(i *discordgo.Interaction, resp *commands.Response) {
	if resp.Ephemeral {
		if err := b.session.InteractionResponseDelete(i); err != nil {
			b.logger.Warning("Failed to delete deferred response %s: %v", i.ID, err)
		}
		b.followUp(i, &discordgo.WebhookParams{
			Content: resp.Content,
			Embeds:  resp.Embeds,
			Flags:   discordgo.MessageFlagsEphemeral,
		})
		b.followUps(i, resp)
		return
	}

	content := resp.Content
	embeds := resp.Embeds
	if _, err := b.session.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &content, Embeds: &embeds}); err != nil {
		b.logger.Error("Failed to edit deferred response %s: %v", i.ID, err)
		return
	}
	b.followUps(i, resp)
}

// followUps sends the remaining parts of a long answer, stopping at the first failure
func (b *Bot) followUps(i *discordgo.Interaction, resp *commands.Response) {
	err := splitter.SendAll(resp.FollowUps, func(text string) error {
		params := &discordgo.WebhookParams{Content: text}
		if resp.Ephemeral {
			params.Flags = discordgo.MessageFlagsEphemeral
		}
		_, err := b.session.FollowupMessageCreate(i, true, params)
		return err
	})
	if err != nil {
		b.logger.Error("Follow-ups for %s stopped: %v", i.ID, err)
	}
}

func (b *Bot) followUp(i *discordgo.Interaction, params *discordgo.WebhookParams) {
	if _, err := b.session.FollowupMessageCreate(i, true, params); err != nil {
		b.logger.Error("Failed to send follow-up for %s: %v", i.ID, err)
	}
}

// commandSummary is used in logs
func commandSummary(c *commands.Context) string {
	return fmt.Sprintf("/%s by %s in %s", c.FullName(), c.UserTag, c.GuildID)
}
