// Package settings stores per-guild feature toggles and limits.
package settings

import "time"

// DailyReport selects the sections of the daily report
type DailyReport struct {
	CurrencyRates bool `json:"currency_rates"`
	CryptoRates   bool `json:"crypto_rates"`
	ServerStats   bool `json:"server_stats"`
}

// Welcome toggles the bot's greeting messages
type Welcome struct {
	StartupMessage bool `json:"startup_message"`
	WelcomeMessage bool `json:"welcome_message"`
}

// Moderation toggles moderation features
type Moderation struct {
	AuditLog bool `json:"audit_log"`
}

// WelcomeMessage is the embed sent when a member joins
type WelcomeMessage struct {
	Enabled     bool   `json:"enabled"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

// ToxicMode configures periodic sarcastic posts
type ToxicMode struct {
	Enabled          bool   `json:"enabled"`
	ChannelID        string `json:"channel_id"`
	FrequencyMinutes int    `json:"frequency_minutes"`
	MaxPerDay        int    `json:"max_per_day"`
}

// Interval returns the tick interval
func (t ToxicMode) Interval() time.Duration {
	return time.Duration(t.FrequencyMinutes) * time.Minute
}

// AI configures the AI commands and their quota
type AI struct {
	MaxRequestsPerDay int     `json:"max_requests_per_day"`
	CooldownSeconds   int     `json:"cooldown_seconds"`
	Temperature       float64 `json:"temperature"`
	AskEnabled        bool    `json:"ask_enabled"`
	RoastEnabled      bool    `json:"roast_enabled"`
	SummaryEnabled    bool    `json:"summary_enabled"`
}

// Logging configures the event log channel
type Logging struct {
	ChannelID       string `json:"channel_id"`
	MessageDelete   bool   `json:"message_delete"`
	MessageEdit     bool   `json:"message_edit"`
	MemberJoinLeave bool   `json:"member_join_leave"`
	NicknameChanges bool   `json:"nickname_changes"`
	VoiceActivity   bool   `json:"voice_activity"`
}

// GuildSettings is one guild's full configuration
type GuildSettings struct {
	GuildID        string         `json:"guild_id"`
	DailyReport    DailyReport    `json:"daily_report"`
	Welcome        Welcome        `json:"welcome"`
	Moderation     Moderation     `json:"moderation"`
	WelcomeMessage WelcomeMessage `json:"welcome_message"`
	ToxicMode      ToxicMode      `json:"toxic_mode"`
	AI             AI             `json:"ai"`
	Logging        Logging        `json:"logging"`
	UpdatedAt      time.Time      `json:"updated_at"`
	UpdatedBy      string         `json:"updated_by"`
}

// DefaultWelcomeColor is the green used for welcome embeds
const DefaultWelcomeColor = 0x57f287

// Defaults returns the settings a guild starts with
func Defaults(guildID string) GuildSettings {
	return GuildSettings{
		GuildID: guildID,
		DailyReport: DailyReport{
			CurrencyRates: true,
			CryptoRates:   true,
			ServerStats:   true,
		},
		Welcome: Welcome{
			StartupMessage: true,
			WelcomeMessage: true,
		},
		Moderation: Moderation{
			AuditLog: true,
		},
		WelcomeMessage: WelcomeMessage{
			Enabled:     true,
			Title:       "Welcome!",
			Description: "Hi, {user}! Welcome to **{server}**! You are member #{memberCount}.",
			Color:       DefaultWelcomeColor,
		},
		ToxicMode: ToxicMode{
			Enabled:          false,
			FrequencyMinutes: 15,
			MaxPerDay:        20,
		},
		AI: AI{
			MaxRequestsPerDay: 50,
			CooldownSeconds:   10,
			Temperature:       0.7,
			AskEnabled:        true,
			RoastEnabled:      true,
			SummaryEnabled:    true,
		},
		Logging: Logging{
			MessageDelete:   true,
			MessageEdit:     true,
			MemberJoinLeave: true,
			NicknameChanges: true,
			VoiceActivity:   true,
		},
		UpdatedBy: "system",
	}
}
