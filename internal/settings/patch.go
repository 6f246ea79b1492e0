package settings

// Patch is a partial update. Nil categories and nil fields are left unchanged.
type Patch struct {
	DailyReport    *DailyReportPatch    `json:"daily_report"`
	Welcome        *WelcomePatch        `json:"welcome"`
	Moderation     *ModerationPatch     `json:"moderation"`
	WelcomeMessage *WelcomeMessagePatch `json:"welcome_message"`
	ToxicMode      *ToxicModePatch      `json:"toxic_mode"`
	AI             *AIPatch             `json:"ai"`
	Logging        *LoggingPatch        `json:"logging"`
}

type DailyReportPatch struct {
	CurrencyRates *bool `json:"currency_rates"`
	CryptoRates   *bool `json:"crypto_rates"`
	ServerStats   *bool `json:"server_stats"`
}

type WelcomePatch struct {
	StartupMessage *bool `json:"startup_message"`
	WelcomeMessage *bool `json:"welcome_message"`
}

type ModerationPatch struct {
	AuditLog *bool `json:"audit_log"`
}

type WelcomeMessagePatch struct {
	Enabled     *bool   `json:"enabled"`
	Title       *string `json:"title" validate:"omitnil,max=256"`
	Description *string `json:"description" validate:"omitnil,max=2000"`
	Color       *int    `json:"color" validate:"omitnil,min=0,max=16777215"`
}

type ToxicModePatch struct {
	Enabled          *bool   `json:"enabled"`
	ChannelID        *string `json:"channel_id" validate:"omitnil,discord_id_or_empty"`
	FrequencyMinutes *int    `json:"frequency_minutes" validate:"omitnil,oneof=1 5 15 30 60"`
	MaxPerDay        *int    `json:"max_per_day" validate:"omitnil,min=5,max=100,multiple_of=5"`
}

type AIPatch struct {
	MaxRequestsPerDay *int     `json:"max_requests_per_day" validate:"omitnil,min=1,max=500"`
	CooldownSeconds   *int     `json:"cooldown_seconds" validate:"omitnil,min=0,max=3600"`
	Temperature       *float64 `json:"temperature" validate:"omitnil,min=0,max=2"`
	AskEnabled        *bool    `json:"ask_enabled"`
	RoastEnabled      *bool    `json:"roast_enabled"`
	SummaryEnabled    *bool    `json:"summary_enabled"`
}

type LoggingPatch struct {
	ChannelID       *string `json:"channel_id" validate:"omitnil,discord_id_or_empty"`
	MessageDelete   *bool   `json:"message_delete"`
	MessageEdit     *bool   `json:"message_edit"`
	MemberJoinLeave *bool   `json:"member_join_leave"`
	NicknameChanges *bool   `json:"nickname_changes"`
	VoiceActivity   *bool   `json:"voice_activity"`
}

// Bool, Int, Float and String return pointers for building patches
func Bool(v bool) *bool        { return &v }
func Int(v int) *int           { return &v }
func Float(v float64) *float64 { return &v }
func String(v string) *string  { return &v }

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// apply merges p into s category by category
func (p Patch) apply(s *GuildSettings) {
	if d := p.DailyReport; d != nil {
		set(&s.DailyReport.CurrencyRates, d.CurrencyRates)
		set(&s.DailyReport.CryptoRates, d.CryptoRates)
		set(&s.DailyReport.ServerStats, d.ServerStats)
	}
	if w := p.Welcome; w != nil {
		set(&s.Welcome.StartupMessage, w.StartupMessage)
		set(&s.Welcome.WelcomeMessage, w.WelcomeMessage)
	}
	if m := p.Moderation; m != nil {
		set(&s.Moderation.AuditLog, m.AuditLog)
	}
	if w := p.WelcomeMessage; w != nil {
		set(&s.WelcomeMessage.Enabled, w.Enabled)
		set(&s.WelcomeMessage.Title, w.Title)
		set(&s.WelcomeMessage.Description, w.Description)
		set(&s.WelcomeMessage.Color, w.Color)
	}
	if t := p.ToxicMode; t != nil {
		set(&s.ToxicMode.Enabled, t.Enabled)
		set(&s.ToxicMode.ChannelID, t.ChannelID)
		set(&s.ToxicMode.FrequencyMinutes, t.FrequencyMinutes)
		set(&s.ToxicMode.MaxPerDay, t.MaxPerDay)
	}
	if a := p.AI; a != nil {
		set(&s.AI.MaxRequestsPerDay, a.MaxRequestsPerDay)
		set(&s.AI.CooldownSeconds, a.CooldownSeconds)
		set(&s.AI.Temperature, a.Temperature)
		set(&s.AI.AskEnabled, a.AskEnabled)
		set(&s.AI.RoastEnabled, a.RoastEnabled)
		set(&s.AI.SummaryEnabled, a.SummaryEnabled)
	}
	if l := p.Logging; l != nil {
		set(&s.Logging.ChannelID, l.ChannelID)
		set(&s.Logging.MessageDelete, l.MessageDelete)
		set(&s.Logging.MessageEdit, l.MessageEdit)
		set(&s.Logging.MemberJoinLeave, l.MemberJoinLeave)
		set(&s.Logging.NicknameChanges, l.NicknameChanges)
		set(&s.Logging.VoiceActivity, l.VoiceActivity)
	}
}
