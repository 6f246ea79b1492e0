package commands

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/guildbot/internal/audit"
	"github.com/yourusername/guildbot/internal/clock"
	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/ratelimit"
	"github.com/yourusername/guildbot/internal/stats"
)

type stubCommand struct {
	meta
	run func(ctx *Context) (*Response, error)
}

func (s *stubCommand) Execute(ctx *Context) (*Response, error) { return s.run(ctx) }

type userMessages struct {
	mu     sync.Mutex
	errors []error
}

func (u *userMessages) HandleCommand(err error, guildID, command string) string {
	u.mu.Lock()
	u.errors = append(u.errors, err)
	u.mu.Unlock()
	if be, ok := boterrors.AsBotError(err); ok {
		return be.UserMessage
	}
	return "generic"
}

type countingMetrics struct {
	mu       sync.Mutex
	executed []string
	failed   []string
	denied   []string
}

func (m *countingMetrics) CommandExecuted(_ context.Context, cmd string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executed = append(m.executed, cmd)
}

func (m *countingMetrics) CommandFailed(_ context.Context, errType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, errType)
}

func (m *countingMetrics) RateLimitDenied(limiter string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied = append(m.denied, limiter)
}

type auditRecorder struct {
	entries []audit.Entry
}

func (a *auditRecorder) Log(e audit.Entry) { a.entries = append(a.entries, e) }

type dispatchFixture struct {
	d        *Dispatcher
	clock    *clock.Fake
	stats    *stats.Tracker
	metrics  *countingMetrics
	audit    *auditRecorder
	settings *memSettings
	errs     *userMessages
	guild    *fakeGuild
}

func newDispatchFixture(t *testing.T, cmds ...Command) *dispatchFixture {
	t.Helper()
	f := &dispatchFixture{
		clock:    clock.NewFake(testNow),
		metrics:  &countingMetrics{},
		audit:    &auditRecorder{},
		settings: newMemSettings(),
		errs:     &userMessages{},
		guild:    newFakeGuild(),
	}
	f.stats = stats.NewTracker(f.clock)

	reg := NewRegistry()
	for _, c := range cmds {
		require.NoError(t, reg.Register(c))
	}
	f.d = NewDispatcher(DispatcherConfig{
		Registry: reg,
		Cooldowns: ratelimit.NewCooldownManager(ratelimit.CooldownConfig{
			Window: time.Minute, MaxCommands: 2, Cooldown: 5 * time.Second,
		}, f.clock),
		Stats:    f.stats,
		Metrics:  f.metrics,
		Audit:    f.audit,
		Settings: f.settings,
		Errors:   f.errs,
	})
	return f
}

func okCommand(name string, cat Category, perm int64) *stubCommand {
	return &stubCommand{
		meta: meta{name: name, help: name, category: cat, permission: perm},
		run: func(ctx *Context) (*Response, error) {
			resp := NewResponse("ok")
			resp.Audit = &AuditAction{Action: name, TargetID: "t1", Reason: "because"}
			return resp, nil
		},
	}
}

func TestDispatch_Success(t *testing.T) {
	f := newDispatchFixture(t, okCommand("hello", CategoryFun, 0))

	resp := f.d.Dispatch(newCtx("hello", f.guild, nil))

	assert.Equal(t, "ok", resp.Content)
	assert.False(t, resp.Ephemeral)
	assert.Equal(t, 1, f.stats.Stats().CommandsExecuted)
	assert.Equal(t, []string{"hello"}, f.metrics.executed)
	assert.Empty(t, f.audit.entries, "non-moderation commands are not audited")
}

func TestDispatch_UnknownCommand(t *testing.T) {
	f := newDispatchFixture(t)

	resp := f.d.Dispatch(newCtx("nope", f.guild, nil))

	assert.True(t, resp.Ephemeral)
	assert.Equal(t, "Command 'nope' not found.", resp.Content)
	assert.Equal(t, 0, f.stats.Stats().CommandsExecuted)
}

func TestDispatch_Cooldown(t *testing.T) {
	f := newDispatchFixture(t, okCommand("hello", CategoryFun, 0))
	ctx := newCtx("hello", f.guild, nil)

	f.d.Dispatch(ctx)
	f.d.Dispatch(ctx)
	resp := f.d.Dispatch(ctx)

	assert.True(t, resp.Ephemeral)
	assert.Equal(t, "⏳ Please wait 5 sec.", resp.Content)
	assert.Equal(t, []string{"cooldown"}, f.metrics.denied)
	assert.Equal(t, 2, f.stats.Stats().CommandsExecuted)

	f.clock.Advance(5 * time.Second)
	assert.Equal(t, "ok", f.d.Dispatch(ctx).Content)
}

func TestDispatch_Permission(t *testing.T) {
	tests := []struct {
		name    string
		granted int64
		allowed bool
	}{
		{"none", 0, false},
		{"exact bit", discordgo.PermissionKickMembers, true},
		{"other bit", discordgo.PermissionBanMembers, false},
		{"administrator", discordgo.PermissionAdministrator, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDispatchFixture(t, okCommand("kick", CategoryModeration, discordgo.PermissionKickMembers))
			ctx := newCtx("kick", f.guild, nil)
			ctx.Permissions = tt.granted

			resp := f.d.Dispatch(ctx)
			if tt.allowed {
				assert.Equal(t, "ok", resp.Content)
			} else {
				assert.Equal(t, "You need the Kick Members permission to use this command.", resp.Content)
				assert.True(t, resp.Ephemeral)
				assert.Equal(t, 0, f.stats.Stats().CommandsExecuted)
			}
		})
	}
}

func TestDispatch_AuditsModeration(t *testing.T) {
	f := newDispatchFixture(t, okCommand("kick", CategoryModeration, discordgo.PermissionKickMembers))

	f.d.Dispatch(newCtx("kick", f.guild, nil))

	require.Len(t, f.audit.entries, 1)
	e := f.audit.entries[0]
	assert.Equal(t, "kick", e.Action)
	assert.Equal(t, "100000000000000001", e.ModeratorID)
	assert.Equal(t, "mod#0001", e.ModeratorTag)
	assert.Equal(t, "t1", e.TargetID)
	assert.Equal(t, "g1", e.GuildID)
	assert.Equal(t, "c1", e.ChannelID)
	assert.Equal(t, "because", e.Reason)
}

func TestDispatch_AuditDisabled(t *testing.T) {
	f := newDispatchFixture(t, okCommand("kick", CategoryModeration, 0))
	s := f.settings.Get("g1")
	s.Moderation.AuditLog = false
	f.settings.byGuild["g1"] = s

	f.d.Dispatch(newCtx("kick", f.guild, nil))

	assert.Empty(t, f.audit.entries)
}

func TestDispatch_Error(t *testing.T) {
	cmd := &stubCommand{
		meta: meta{name: "fail", category: CategoryTools},
		run: func(*Context) (*Response, error) {
			return nil, boterrors.NewValidationError("bad input")
		},
	}
	f := newDispatchFixture(t, cmd)

	resp := f.d.Dispatch(newCtx("fail", f.guild, nil))

	assert.True(t, resp.Ephemeral)
	assert.Equal(t, "bad input", resp.Content)
	assert.Equal(t, 1, f.stats.Stats().ErrorsCount)
	assert.Equal(t, []string{"Validation"}, f.metrics.failed)
}

func TestDispatch_Panic(t *testing.T) {
	cmd := &stubCommand{
		meta: meta{name: "boom", category: CategoryTools},
		run:  func(*Context) (*Response, error) { panic("kaboom") },
	}
	f := newDispatchFixture(t, cmd)

	resp := f.d.Dispatch(newCtx("boom", f.guild, nil))

	assert.True(t, resp.Ephemeral)
	require.Len(t, f.errs.errors, 1)
	assert.Equal(t, boterrors.ErrorTypeUnexpected, boterrors.TypeOf(f.errs.errors[0]))
	assert.Equal(t, []string{"Unexpected"}, f.metrics.failed)
}

func TestDispatch_NilResponse(t *testing.T) {
	cmd := &stubCommand{
		meta: meta{name: "quiet", category: CategoryTools},
		run:  func(*Context) (*Response, error) { return nil, nil },
	}
	f := newDispatchFixture(t, cmd)

	resp := f.d.Dispatch(newCtx("quiet", f.guild, nil))

	assert.Equal(t, "✅ Done.", resp.Content)
	assert.True(t, resp.Ephemeral)
}

func TestDispatch_PlainErrorUsesGenericMessage(t *testing.T) {
	cmd := &stubCommand{
		meta: meta{name: "raw", category: CategoryTools},
		run:  func(*Context) (*Response, error) { return nil, errors.New("raw failure") },
	}
	f := newDispatchFixture(t, cmd)

	assert.Equal(t, "generic", f.d.Dispatch(newCtx("raw", f.guild, nil)).Content)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(okCommand("b", CategoryFun, 0)))
	require.NoError(t, reg.Register(okCommand("a", CategoryFun, 0)))
	assert.Error(t, reg.Register(okCommand("a", CategoryFun, 0)))

	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name())
	assert.Equal(t, 2, reg.Len())
	_, ok := reg.Get("a")
	assert.True(t, ok)
}

func TestRegistry_RejectsInvalidNames(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
	}{
		{"uppercase", okCommand("Ping", CategoryInfo, 0)},
		{"space", okCommand("two words", CategoryInfo, 0)},
		{"too long", okCommand(strings.Repeat("a", 33), CategoryInfo, 0)},
		{"bad option", &stubCommand{meta: meta{name: "opt", options: []Option{{Name: "Bad"}}}}},
		{"duplicate option", &stubCommand{meta: meta{name: "dup", options: []Option{{Name: "x"}, {Name: "x"}}}}},
		{"nested option", &stubCommand{meta: meta{name: "nest", options: []Option{
			{Name: "sub", Type: OptionSubcommand, Options: []Option{{Name: "No Spaces"}}},
		}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, NewRegistry().Register(tt.cmd))
		})
	}
}

func TestRegistry_ByCategory(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(
		okCommand("roll", CategoryFun, 0),
		okCommand("coinflip", CategoryFun, 0),
		okCommand("ban", CategoryModeration, discordgo.PermissionBanMembers),
	)

	groups := reg.ByCategory(0)
	require.Len(t, groups[CategoryFun], 2)
	assert.Equal(t, "coinflip", groups[CategoryFun][0].Name())
	assert.Empty(t, groups[CategoryModeration])

	assert.Len(t, reg.ByCategory(discordgo.PermissionBanMembers)[CategoryModeration], 1)
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		granted, required int64
		want              bool
	}{
		{0, 0, true},
		{0, discordgo.PermissionBanMembers, false},
		{discordgo.PermissionBanMembers | discordgo.PermissionKickMembers, discordgo.PermissionBanMembers, true},
		{discordgo.PermissionAdministrator, discordgo.PermissionManageChannels, true},
	}
	for _, tt := range tests {
		if got := HasPermission(tt.granted, tt.required); got != tt.want {
			t.Errorf("HasPermission(%d, %d) = %v, want %v", tt.granted, tt.required, got, tt.want)
		}
	}
}
