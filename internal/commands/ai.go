package commands

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/yourusername/guildbot/internal/ai"
	"github.com/yourusername/guildbot/internal/clock"
	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/ratelimit"
	"github.com/yourusername/guildbot/internal/settings"
	"github.com/yourusername/guildbot/internal/splitter"
)

const (
	maxQuestionLength = 1000

	roastFetchLimit     = 100
	roastMaxMessages    = 50
	roastMaxChars       = 2000
	roastMinTemperature = 0.5

	summaryFetchLimit = 500
	summaryMaxChars   = 4000
)

// AIClient is a completer that knows whether it has credentials
type AIClient interface {
	ai.Completer
	Configured() bool
}

// AIDeps is shared by the AI commands
type AIDeps struct {
	client   AIClient
	limiter  *ratelimit.AIRateLimiter
	settings SettingsSource
	clock    clock.Clock
}

// NewAIDeps bundles what the AI commands need
func NewAIDeps(client AIClient, limiter *ratelimit.AIRateLimiter, src SettingsSource, clk clock.Clock) *AIDeps {
	return &AIDeps{client: client, limiter: limiter, settings: src, clock: clk}
}

// admit checks the guild toggle, the API key and the caller's quota, in that order
func (d *AIDeps) admit(ctx *Context, command string, enabled func(settings.AI) bool) (settings.AI, error) {
	cfg := d.settings.Get(ctx.GuildID).AI
	if !enabled(cfg) {
		return cfg, boterrors.NewDisabledError(command)
	}
	if d.client == nil || !d.client.Configured() {
		return cfg, boterrors.NewNotConfiguredError("AI", "GROQ_API_KEY")
	}
	if decision := d.limiter.TryConsume(ctx.GuildID, ctx.UserID); !decision.Allowed {
		return cfg, boterrors.NewQuotaExceededError(decision.Reason)
	}
	return cfg, nil
}

func (d *AIDeps) complete(ctx *Context, system, user string, temperature float64) (string, error) {
	answer, err := d.client.Complete(ctx.Context(), []ai.Message{ai.System(system), ai.User(user)}, ai.WithTemperature(temperature))
	if err != nil {
		if _, ok := boterrors.AsBotError(err); ok {
			return "", err
		}
		return "", boterrors.NewUpstreamError("groq", err)
	}
	return answer, nil
}

func (d *AIDeps) footer(ctx *Context) *discordgo.MessageEmbedFooter {
	return &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("Requests left today: %d", d.limiter.RemainingToday(ctx.GuildID, ctx.UserID)),
	}
}

// AskCommand implements /ask
type AskCommand struct {
	meta
	deps *AIDeps
}

// NewAskCommand creates a new ask command
func NewAskCommand(deps *AIDeps) *AskCommand {
	return &AskCommand{
		meta: meta{
			name:     "ask",
			help:     "Ask the AI a question",
			category: CategoryAI,
			deferred: true,
			options: []Option{
				{Name: "question", Description: "Your question", Type: OptionString, Required: true, MaxLength: maxQuestionLength},
			},
		},
		deps: deps,
	}
}

// Execute runs the ask command
func (c *AskCommand) Execute(ctx *Context) (*Response, error) {
	question := ctx.String("question")
	if question == "" {
		return nil, boterrors.NewInvalidSyntaxError("ask", "/ask question:<text>")
	}
	cfg, err := c.deps.admit(ctx, "ask", func(a settings.AI) bool { return a.AskEnabled })
	if err != nil {
		return nil, err
	}

	answer, err := c.deps.complete(ctx, ai.AskPrompt, question, cfg.Temperature)
	if err != nil {
		return nil, err
	}

	return NewEmbedResponse(&discordgo.MessageEmbed{
		Title:       "🤖 " + truncateRunes(question, 250),
		Description: truncateRunes(answer, splitter.EmbedLimit),
		Color:       colorDefault,
		Footer:      c.deps.footer(ctx),
		Timestamp:   timestamp(c.deps.clock),
	}), nil
}

// RoastCommand implements /roast
type RoastCommand struct {
	meta
	deps *AIDeps
}

// NewRoastCommand creates a new roast command
func NewRoastCommand(deps *AIDeps) *RoastCommand {
	return &RoastCommand{
		meta: meta{
			name:     "roast",
			help:     "Get a friendly AI roast of a user based on their messages",
			category: CategoryAI,
			deferred: true,
			options: []Option{
				{Name: "user", Description: "Who to roast", Type: OptionUser, Required: true},
			},
		},
		deps: deps,
	}
}

// Execute runs the roast command
func (c *RoastCommand) Execute(ctx *Context) (*Response, error) {
	target := ctx.User("user")
	if target == nil {
		return nil, boterrors.NewInvalidSyntaxError("roast", "/roast user:<@user>")
	}
	if target.Bot {
		return nil, boterrors.NewValidationError("Bots can't be roasted.")
	}
	cfg, err := c.deps.admit(ctx, "roast", func(a settings.AI) bool { return a.RoastEnabled })
	if err != nil {
		return nil, err
	}

	messages, err := ctx.Guild.FetchMessages(ctx.Context(), ctx.ChannelID, roastFetchLimit, time.Time{})
	if err != nil {
		return nil, boterrors.NewUpstreamError("discord", err)
	}

	var lines []string
	for _, m := range messages {
		if m.AuthorID == target.ID && strings.TrimSpace(m.Content) != "" {
			lines = append(lines, m.Content)
			if len(lines) == roastMaxMessages {
				break
			}
		}
	}
	if len(lines) == 0 {
		return NewResponse(fmt.Sprintf("🤷 %s hasn't written anything here recently.", target.DisplayName)), nil
	}

	prompt := fmt.Sprintf("User: %s\nTheir messages:\n%s", target.DisplayName, truncateRunes(strings.Join(lines, "\n"), roastMaxChars))
	answer, err := c.deps.complete(ctx, ai.RoastPrompt, prompt, math.Max(roastMinTemperature, cfg.Temperature))
	if err != nil {
		return nil, err
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🔥 Roast: " + target.DisplayName,
		Description: truncateRunes(answer, splitter.EmbedLimit),
		Color:       0xff6b35,
		Footer:      c.deps.footer(ctx),
		Timestamp:   timestamp(c.deps.clock),
	}
	if target.AvatarURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: target.AvatarURL}
	}
	return NewEmbedResponse(embed), nil
}

// SummaryPeriods maps /ai-summary choices to their length
var SummaryPeriods = map[string]time.Duration{
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  72 * time.Hour,
}

var summaryLabels = map[string]string{
	"1h": "the last hour", "6h": "the last 6 hours", "12h": "the last 12 hours",
	"1d": "the last day", "3d": "the last 3 days",
}

// SummaryCommand implements /ai-summary
type SummaryCommand struct {
	meta
	deps *AIDeps
}

// NewSummaryCommand creates a new ai-summary command
func NewSummaryCommand(deps *AIDeps) *SummaryCommand {
	return &SummaryCommand{
		meta: meta{
			name:     "ai-summary",
			help:     "Summarize the recent conversation in this channel",
			category: CategoryAI,
			deferred: true,
			options: []Option{
				{Name: "period", Description: "How far back to look", Type: OptionString, Choices: []Choice{
					{Name: "1 hour", Value: "1h"},
					{Name: "6 hours", Value: "6h"},
					{Name: "12 hours", Value: "12h"},
					{Name: "1 day", Value: "1d"},
					{Name: "3 days", Value: "3d"},
				}},
			},
		},
		deps: deps,
	}
}

// Execute runs the ai-summary command
func (c *SummaryCommand) Execute(ctx *Context) (*Response, error) {
	period := ctx.String("period")
	if period == "" {
		period = "1d"
	}
	window, ok := SummaryPeriods[period]
	if !ok {
		return nil, boterrors.NewValidationError(fmt.Sprintf("Unknown period: %s", period))
	}
	cfg, err := c.deps.admit(ctx, "ai-summary", func(a settings.AI) bool { return a.SummaryEnabled })
	if err != nil {
		return nil, err
	}

	since := c.deps.clock.Now().Add(-window)
	messages, err := ctx.Guild.FetchMessages(ctx.Context(), ctx.ChannelID, summaryFetchLimit, since)
	if err != nil {
		return nil, boterrors.NewUpstreamError("discord", err)
	}

	// oldest first
	lines := make([]string, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Bot || strings.TrimSpace(m.Content) == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", m.Timestamp.Format("15:04"), m.AuthorName, m.Content))
	}
	if len(lines) == 0 {
		return NewResponse(fmt.Sprintf("📭 No messages in %s.", summaryLabels[period])), nil
	}

	history := truncateRunes(strings.Join(lines, "\n"), summaryMaxChars)
	answer, err := c.deps.complete(ctx, ai.SummaryPrompt, history, cfg.Temperature)
	if err != nil {
		return nil, err
	}

	header := fmt.Sprintf("📝 **Summary of %s** (%d messages)\n\n", summaryLabels[period], len(lines))
	parts := splitter.New(splitter.MessageLimit).Split(header + answer)
	resp := NewResponse(parts[0])
	resp.FollowUps = parts[1:]
	return resp, nil
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
