// Package commands implements the slash command set independently of the
// Discord transport.
package commands

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/yourusername/guildbot/internal/report"
)

// Category groups commands in /help
type Category string

const (
	CategoryInfo       Category = "Info"
	CategoryRates      Category = "Rates"
	CategoryAI         Category = "AI"
	CategoryAdmin      Category = "Admin"
	CategoryModeration Category = "Moderation"
	CategoryFun        Category = "Fun"
	CategoryTools      Category = "Tools"
	CategoryNetwork    Category = "Network"
	CategoryUtility    Category = "Utility"
)

// Categories lists every category in /help order
var Categories = []Category{
	CategoryInfo, CategoryRates, CategoryAI, CategoryFun, CategoryTools,
	CategoryNetwork, CategoryUtility, CategoryModeration, CategoryAdmin,
}

// Command represents a bot command that can be executed
type Command interface {
	// Name returns the slash command name
	Name() string

	// Help returns the one-line description shown in Discord and /help
	Help() string

	// Options describes the command's arguments
	Options() []Option

	// Category groups the command in /help
	Category() Category

	// RequiredPermission returns the Discord permission bits needed, or 0
	RequiredPermission() int64

	// Execute runs the command with the given context
	Execute(ctx *Context) (*Response, error)
}

// Deferred is implemented by commands that may take longer than Discord's
// three second response window
type Deferred interface {
	Deferred() bool
}

// OptionType mirrors the Discord application command option types
type OptionType int

const (
	OptionSubcommand OptionType = iota + 1
	OptionString
	OptionInteger
	OptionBoolean
	OptionUser
	OptionChannel
	OptionNumber
	OptionRole
)

// Choice is a fixed value offered for an option
type Choice struct {
	Name  string
	Value interface{}
}

// Option describes one command argument or subcommand
type Option struct {
	Name        string
	Description string
	Type        OptionType
	Required    bool
	Choices     []Choice
	MinValue    *float64
	MaxValue    *float64
	MaxLength   int
	Options     []Option // subcommand arguments
}

// Member is a guild member as seen by commands
type Member struct {
	ID          string
	Username    string
	Tag         string
	DisplayName string
	Nick        string
	AvatarURL   string
	Bot         bool
	Roles       []string
	JoinedAt    time.Time
	CreatedAt   time.Time
	// BoostingSince is zero unless the member boosts the server
	BoostingSince time.Time
}

// ChatMessage is one channel message
type ChatMessage struct {
	ID          string
	AuthorID    string
	AuthorName  string
	Bot         bool
	Content     string
	Timestamp   time.Time
	Attachments int
	Reactions   int
}

// Role is a guild role
type Role struct {
	ID          string
	Name        string
	Color       int
	Position    int
	Permissions int64
	Managed     bool
	Mentionable bool
	Hoist       bool
	IconURL     string
}

// ChannelKind is a readable channel type
type ChannelKind string

const (
	ChannelText         ChannelKind = "Text"
	ChannelVoice        ChannelKind = "Voice"
	ChannelCategory     ChannelKind = "Category"
	ChannelAnnouncement ChannelKind = "Announcement"
	ChannelStage        ChannelKind = "Stage"
	ChannelForum        ChannelKind = "Forum"
	ChannelOther        ChannelKind = "Other"
)

// Channel is a guild channel
type Channel struct {
	ID        string
	Name      string
	Kind      ChannelKind
	ParentID  string
	Topic     string
	NSFW      bool
	Slowmode  int
	Position  int
	UserLimit int
	Bitrate   int
	CreatedAt time.Time
}

// IsVoice reports whether members can connect to the channel
func (c *Channel) IsVoice() bool {
	return c.Kind == ChannelVoice || c.Kind == ChannelStage
}

// Emoji is a custom guild emoji
type Emoji struct {
	ID       string
	Name     string
	Animated bool
}

// Mention returns the emoji as it is written in a message
func (e Emoji) Mention() string {
	if e.Animated {
		return "<a:" + e.Name + ":" + e.ID + ">"
	}
	return "<:" + e.Name + ":" + e.ID + ">"
}

// Ban is one entry of the guild ban list
type Ban struct {
	UserID  string
	UserTag string
	Reason  string
}

// Invite is an active guild invite
type Invite struct {
	Code       string
	InviterID  string
	InviterTag string
	ChannelID  string
	Uses       int
}

// VoiceState is a member's voice connection
type VoiceState struct {
	ChannelID string
	Mute      bool
	Deaf      bool
	SelfMute  bool
	SelfDeaf  bool
}

// UserProfile carries the global profile fields of a user
type UserProfile struct {
	ID          string
	Tag         string
	Bot         bool
	BannerURL   string
	AccentColor int
	Flags       int
}

// GuildActions performs platform operations on behalf of commands
type GuildActions interface {
	Member(ctx context.Context, guildID, userID string) (*Member, error)
	GuildInfo(ctx context.Context, guildID string) (*report.GuildInfo, error)
	Kick(ctx context.Context, guildID, userID, reason string) error
	Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error
	Unban(ctx context.Context, guildID, userID string) error
	// Timeout mutes a member until the given time; nil lifts the timeout
	Timeout(ctx context.Context, guildID, userID string, until *time.Time) error
	BulkDelete(ctx context.Context, channelID string, count int) (int, error)
	SetSlowmode(ctx context.Context, channelID string, seconds int) error
	// FetchMessages returns up to limit messages newer than since, newest first
	FetchMessages(ctx context.Context, channelID string, limit int, since time.Time) ([]ChatMessage, error)
	SendDM(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error
	Latency() time.Duration

	// DeleteMessages removes the given messages and returns how many were deleted
	DeleteMessages(ctx context.Context, channelID string, ids []string) (int, error)
	// FirstMessage returns the oldest message of a channel, or nil when it is empty
	FirstMessage(ctx context.Context, channelID string) (*ChatMessage, error)
	// Send posts a message and returns its ID
	Send(ctx context.Context, channelID string, msg *discordgo.MessageSend) (string, error)
	React(ctx context.Context, channelID, messageID, emoji string) error

	Channel(ctx context.Context, channelID string) (*Channel, error)
	// SetEveryoneAccess denies perm to @everyone in a channel, or clears the denial
	SetEveryoneAccess(ctx context.Context, guildID, channelID string, perm int64, deny bool) error

	Roles(ctx context.Context, guildID string) ([]Role, error)
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
	// SetNickname changes a member's nickname; "" resets it
	SetNickname(ctx context.Context, guildID, userID, nick string) error

	// VoiceState returns nil when the member is not in a voice channel
	VoiceState(ctx context.Context, guildID, userID string) (*VoiceState, error)
	VoiceMembers(ctx context.Context, guildID, channelID string) ([]string, error)
	SetVoiceMute(ctx context.Context, guildID, userID string, mute bool) error
	SetVoiceDeaf(ctx context.Context, guildID, userID string, deaf bool) error
	// MoveVoice moves a member to another voice channel; "" disconnects them
	MoveVoice(ctx context.Context, guildID, userID, channelID string) error

	Members(ctx context.Context, guildID string) ([]Member, error)
	UserProfile(ctx context.Context, userID string) (*UserProfile, error)
	Bans(ctx context.Context, guildID string) ([]Ban, error)
	Invites(ctx context.Context, guildID string) ([]Invite, error)
	Emojis(ctx context.Context, guildID string) ([]Emoji, error)
	// CreateEmoji uploads an emoji from a base64 data URI
	CreateEmoji(ctx context.Context, guildID, name, image string) (*Emoji, error)
}

// AuditAction describes a moderation action for the audit log
type AuditAction struct {
	Action    string
	TargetID  string
	TargetTag string
	Reason    string
	Details   map[string]string
}

// Response represents a command response
type Response struct {
	Content   string
	Embeds    []*discordgo.MessageEmbed
	Ephemeral bool

	// FollowUps are sent as separate messages after the reply
	FollowUps []string

	// Audit is recorded by the dispatcher when the command succeeds
	Audit *AuditAction
}

// NewResponse creates a new public text response
func NewResponse(content string) *Response {
	return &Response{Content: content}
}

// NewEphemeral creates a response only the caller can see
func NewEphemeral(content string) *Response {
	return &Response{Content: content, Ephemeral: true}
}

// NewEmbedResponse creates a public response carrying embeds
func NewEmbedResponse(embeds ...*discordgo.MessageEmbed) *Response {
	return &Response{Embeds: embeds}
}

// meta carries the static description shared by every command
type meta struct {
	name       string
	help       string
	category   Category
	permission int64
	options    []Option
	deferred   bool
}

func (m meta) Name() string              { return m.name }
func (m meta) Help() string              { return m.help }
func (m meta) Category() Category        { return m.category }
func (m meta) RequiredPermission() int64 { return m.permission }
func (m meta) Options() []Option         { return m.options }
func (m meta) Deferred() bool            { return m.deferred }

func float(v float64) *float64 { return &v }
