package commands

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/guildbot/internal/clock"
	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/validation"
)

const (
	modID   = "100000000000000001"
	aliceID = "100000000000000002"
	robotID = "100000000000000003"
)

func TestModeration_TargetChecks(t *testing.T) {
	clk := clock.NewFake(testNow)
	cmds := []Command{
		NewKickCommand(),
		NewBanCommand(),
		NewTimeoutCommand(clk),
		NewUntimeoutCommand(),
		NewWarnCommand(clk),
	}

	tests := []struct {
		name    string
		target  string
		errType boterrors.ErrorType
	}{
		{"self", modID, boterrors.ErrorTypeValidation},
		{"bot", robotID, boterrors.ErrorTypeValidation},
		{"not a member", "100000000000000099", boterrors.ErrorTypeNotFound},
	}

	for _, cmd := range cmds {
		for _, tt := range tests {
			t.Run(cmd.Name()+"/"+tt.name, func(t *testing.T) {
				guild := newFakeGuild()
				ctx := newCtx(cmd.Name(), guild, map[string]interface{}{
					"user": tt.target, "reason": "spam", "duration": int64(60),
				})

				_, err := cmd.Execute(ctx)
				require.Error(t, err)
				assert.Equal(t, tt.errType, boterrors.TypeOf(err))
				assert.Empty(t, guild.Calls(), "no platform action on a rejected target")
			})
		}
	}
}

func TestKick(t *testing.T) {
	guild := newFakeGuild()
	resp, err := NewKickCommand().Execute(newCtx("kick", guild, map[string]interface{}{"user": aliceID}))
	require.NoError(t, err)

	assert.Equal(t, []string{"kick " + aliceID}, guild.Calls())
	require.NotNil(t, resp.Audit)
	assert.Equal(t, "kick", resp.Audit.Action)
	assert.Equal(t, aliceID, resp.Audit.TargetID)
	assert.Equal(t, validation.DefaultReason, resp.Audit.Reason)
}

func TestKick_PlatformFailure(t *testing.T) {
	guild := newFakeGuild()
	guild.actErr = errors.New("missing access")

	_, err := NewKickCommand().Execute(newCtx("kick", guild, map[string]interface{}{"user": aliceID}))
	assert.Equal(t, boterrors.ErrorTypeUpstream, boterrors.TypeOf(err))
}

func TestBan_DeleteDays(t *testing.T) {
	guild := newFakeGuild()
	resp, err := NewBanCommand().Execute(newCtx("ban", guild, map[string]interface{}{
		"user": aliceID, "reason": "raid", "delete_days": int64(3),
	}))
	require.NoError(t, err)
	assert.Equal(t, "3", resp.Audit.Details["delete_days"])
	assert.Equal(t, "raid", resp.Audit.Reason)

	_, err = NewBanCommand().Execute(newCtx("ban", newFakeGuild(), map[string]interface{}{
		"user": aliceID, "delete_days": int64(8),
	}))
	assert.Equal(t, boterrors.ErrorTypeValidation, boterrors.TypeOf(err))
}

func TestUnban(t *testing.T) {
	guild := newFakeGuild()
	_, err := NewUnbanCommand().Execute(newCtx("unban", guild, map[string]interface{}{"user_id": "not-an-id"}))
	assert.Equal(t, boterrors.ErrorTypeValidation, boterrors.TypeOf(err))

	resp, err := NewUnbanCommand().Execute(newCtx("unban", guild, map[string]interface{}{"user_id": "123456789012345678"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"unban 123456789012345678"}, guild.Calls())
	assert.Equal(t, "unban", resp.Audit.Action)
}

func TestTimeout(t *testing.T) {
	guild := newFakeGuild()
	cmd := NewTimeoutCommand(clock.NewFake(testNow))

	resp, err := cmd.Execute(newCtx("timeout", guild, map[string]interface{}{"user": aliceID, "duration": int64(3600)}))
	require.NoError(t, err)
	require.Len(t, guild.timeouts, 1)
	require.NotNil(t, guild.timeouts[0])
	assert.Equal(t, testNow.Add(time.Hour), *guild.timeouts[0])
	assert.Equal(t, "1 hour", resp.Audit.Details["duration"])

	_, err = cmd.Execute(newCtx("timeout", guild, map[string]interface{}{"user": aliceID, "duration": int64(61)}))
	assert.Equal(t, boterrors.ErrorTypeValidation, boterrors.TypeOf(err))
}

func TestUntimeout(t *testing.T) {
	guild := newFakeGuild()
	_, err := NewUntimeoutCommand().Execute(newCtx("untimeout", guild, map[string]interface{}{"user": aliceID}))
	require.NoError(t, err)
	require.Len(t, guild.timeouts, 1)
	assert.Nil(t, guild.timeouts[0])
}

func TestWarn(t *testing.T) {
	tests := []struct {
		name      string
		dmErr     error
		footer    string
		delivered string
	}{
		{"dm delivered", nil, "📬 Notified by DM", "true"},
		{"dm blocked", errors.New("cannot send"), "📭 Could not deliver the DM", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guild := newFakeGuild()
			guild.dmErr = tt.dmErr

			resp, err := NewWarnCommand(clock.NewFake(testNow)).Execute(newCtx("warn", guild, map[string]interface{}{
				"user": aliceID, "reason": "be nice",
			}))
			require.NoError(t, err)
			require.Len(t, guild.dms, 1)
			assert.Contains(t, guild.dms[0].Title, "Test Guild")
			assert.Equal(t, tt.footer, resp.Embeds[0].Footer.Text)
			assert.Equal(t, tt.delivered, resp.Audit.Details["dm_delivered"])
		})
	}
}

func TestWarn_RequiresReason(t *testing.T) {
	_, err := NewWarnCommand(clock.NewFake(testNow)).Execute(newCtx("warn", newFakeGuild(), map[string]interface{}{"user": aliceID}))
	assert.Equal(t, boterrors.ErrorTypeInvalidSyntax, boterrors.TypeOf(err))
}

func TestClear(t *testing.T) {
	tests := []struct {
		count   int64
		wantErr bool
	}{
		{0, true},
		{1, false},
		{100, false},
		{101, true},
	}
	for _, tt := range tests {
		_, err := NewClearCommand().Execute(newCtx("clear", newFakeGuild(), map[string]interface{}{"count": tt.count}))
		if (err != nil) != tt.wantErr {
			t.Errorf("clear count=%d error = %v, wantErr %v", tt.count, err, tt.wantErr)
		}
	}

	guild := newFakeGuild()
	guild.deleted = 3
	resp, err := NewClearCommand().Execute(newCtx("clear", guild, map[string]interface{}{"count": int64(10)}))
	require.NoError(t, err)
	assert.True(t, resp.Ephemeral)
	assert.Contains(t, resp.Content, "Deleted 3 messages")
	assert.Contains(t, resp.Content, "14 days")
}

func TestSlowmode(t *testing.T) {
	tests := []struct {
		secs    int64
		want    string
		wantErr bool
	}{
		{0, "🐇 Slowmode disabled.", false},
		{30, "🐢 Slowmode set to 30 sec.", false},
		{21600, "🐢 Slowmode set to 21600 sec.", false},
		{21601, "", true},
		{-1, "", true},
	}
	for _, tt := range tests {
		resp, err := NewSlowmodeCommand().Execute(newCtx("slowmode", newFakeGuild(), map[string]interface{}{"seconds": tt.secs}))
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, resp.Content)
	}
}
