package commands

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/guildbot/internal/ai"
	"github.com/yourusername/guildbot/internal/clock"
	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/mockapi"
	"github.com/yourusername/guildbot/internal/ratelimit"
)

type testAIClient struct {
	*mockapi.MockCompleter
	configured bool
}

func (c testAIClient) Configured() bool { return c.configured }

type aiFixture struct {
	deps     *AIDeps
	mock     *mockapi.MockCompleter
	settings *memSettings
	clock    *clock.Fake
}

type limitsFromSettings struct{ s *memSettings }

func (l limitsFromSettings) AILimits(guildID string) ratelimit.AILimits {
	cfg := l.s.Get(guildID).AI
	return ratelimit.AILimits{MaxRequestsPerDay: cfg.MaxRequestsPerDay, CooldownSeconds: cfg.CooldownSeconds}
}

func newAIFixture(configured bool) *aiFixture {
	f := &aiFixture{
		mock:     mockapi.NewCompleter(),
		settings: newMemSettings(),
		clock:    clock.NewFake(testNow),
	}
	limiter := ratelimit.NewAIRateLimiter(limitsFromSettings{f.settings}, f.clock)
	f.deps = NewAIDeps(testAIClient{f.mock, configured}, limiter, f.settings, f.clock)
	return f
}

func TestAsk(t *testing.T) {
	f := newAIFixture(true)
	resp, err := NewAskCommand(f.deps).Execute(newCtx("ask", newFakeGuild(), map[string]interface{}{"question": "why?"}))
	require.NoError(t, err)

	require.Len(t, resp.Embeds, 1)
	assert.Equal(t, "This is a test answer.", resp.Embeds[0].Description)
	assert.Equal(t, "Requests left today: 49", resp.Embeds[0].Footer.Text)
	require.Len(t, f.mock.Calls(), 1)
	assert.Equal(t, 0.7, *f.mock.Calls()[0].Temperature)
}

func TestAsk_Admission(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		f := newAIFixture(true)
		s := f.settings.Get("g1")
		s.AI.AskEnabled = false
		f.settings.byGuild["g1"] = s

		_, err := NewAskCommand(f.deps).Execute(newCtx("ask", newFakeGuild(), map[string]interface{}{"question": "hi"}))
		assert.Equal(t, boterrors.ErrorTypeDisabled, boterrors.TypeOf(err))
		assert.Empty(t, f.mock.Calls())
	})

	t.Run("not configured", func(t *testing.T) {
		f := newAIFixture(false)
		_, err := NewAskCommand(f.deps).Execute(newCtx("ask", newFakeGuild(), map[string]interface{}{"question": "hi"}))
		assert.Equal(t, boterrors.ErrorTypeNotConfigured, boterrors.TypeOf(err))
	})

	t.Run("cooldown", func(t *testing.T) {
		f := newAIFixture(true)
		cmd := NewAskCommand(f.deps)
		ctx := newCtx("ask", newFakeGuild(), map[string]interface{}{"question": "hi"})

		_, err := cmd.Execute(ctx)
		require.NoError(t, err)
		_, err = cmd.Execute(ctx)
		assert.Equal(t, boterrors.ErrorTypeQuotaExceeded, boterrors.TypeOf(err))

		f.clock.Advance(10 * time.Second)
		_, err = cmd.Execute(ctx)
		assert.NoError(t, err)
	})

	t.Run("upstream failure", func(t *testing.T) {
		f := newAIFixture(true)
		f.mock.SetFail(true)
		_, err := NewAskCommand(f.deps).Execute(newCtx("ask", newFakeGuild(), map[string]interface{}{"question": "hi"}))
		assert.Equal(t, boterrors.ErrorTypeUpstream, boterrors.TypeOf(err))
	})
}

func TestRoast(t *testing.T) {
	f := newAIFixture(true)
	s := f.settings.Get("g1")
	s.AI.Temperature = 0.2
	f.settings.byGuild["g1"] = s

	guild := newFakeGuild()
	for i := 0; i < 80; i++ {
		guild.messages = append(guild.messages, ChatMessage{AuthorID: aliceID, AuthorName: "Alice", Content: fmt.Sprintf("msg %d", i)})
	}

	resp, err := NewRoastCommand(f.deps).Execute(newCtx("roast", guild, map[string]interface{}{"user": aliceID}))
	require.NoError(t, err)
	assert.Equal(t, "🔥 Roast: Alice", resp.Embeds[0].Title)
	assert.Equal(t, "https://cdn/a.png", resp.Embeds[0].Thumbnail.URL)
	require.Len(t, f.mock.Calls(), 1)
	assert.Equal(t, 0.5, *f.mock.Calls()[0].Temperature, "roast temperature has a floor")
}

func TestRoast_NoMessages(t *testing.T) {
	f := newAIFixture(true)
	resp, err := NewRoastCommand(f.deps).Execute(newCtx("roast", newFakeGuild(), map[string]interface{}{"user": aliceID}))
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "hasn't written anything")
	assert.Empty(t, f.mock.Calls())
}

func TestRoast_Bot(t *testing.T) {
	f := newAIFixture(true)
	_, err := NewRoastCommand(f.deps).Execute(newCtx("roast", newFakeGuild(), map[string]interface{}{"user": robotID}))
	assert.Equal(t, boterrors.ErrorTypeValidation, boterrors.TypeOf(err))
}

func TestSummary(t *testing.T) {
	f := newAIFixture(true)
	guild := newFakeGuild()
	// newest first
	guild.messages = []ChatMessage{
		{AuthorName: "Bob", Content: "second", Timestamp: testNow.Add(-time.Minute)},
		{AuthorName: "bot", Bot: true, Content: "ignored"},
		{AuthorName: "Alice", Content: "first", Timestamp: testNow.Add(-2 * time.Minute)},
	}

	resp, err := NewSummaryCommand(f.deps).Execute(newCtx("ai-summary", guild, map[string]interface{}{"period": "6h"}))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.Content, "📝 **Summary of the last 6 hours** (2 messages)"))
	assert.Contains(t, resp.Content, "Test summary")
	require.Len(t, guild.fetchArgs, 1)
	assert.Equal(t, testNow.Add(-6*time.Hour), guild.fetchArgs[0])
}

func TestSummary_LongAnswerSplits(t *testing.T) {
	f := newAIFixture(true)
	f.mock.SetResponse(ai.SummaryPrompt, strings.Repeat("word ", 900))
	guild := newFakeGuild()
	guild.messages = []ChatMessage{{AuthorName: "Alice", Content: "hello"}}

	resp, err := NewSummaryCommand(f.deps).Execute(newCtx("ai-summary", guild, nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.FollowUps)
	assert.LessOrEqual(t, len([]rune(resp.Content)), 2000)
}

func TestSummary_Empty(t *testing.T) {
	f := newAIFixture(true)
	resp, err := NewSummaryCommand(f.deps).Execute(newCtx("ai-summary", newFakeGuild(), map[string]interface{}{"period": "1h"}))
	require.NoError(t, err)
	assert.Equal(t, "📭 No messages in the last hour.", resp.Content)
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"привіт світ", 8, "приві..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncateRunes(tt.in, tt.limit); got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}
