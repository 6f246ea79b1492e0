package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/bwmarrin/discordgo"

	"github.com/yourusername/guildbot/internal/clock"
	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/translate"
	"github.com/yourusername/guildbot/internal/weather"
)

// WeatherSource looks up current weather
type WeatherSource interface {
	Configured() bool
	Current(ctx context.Context, city string) (*weather.Report, error)
}

// Translator translates text into a target language
type Translator interface {
	Translate(ctx context.Context, text, target string) (*translate.Result, error)
}

// WeatherCommand implements /weather
type WeatherCommand struct {
	meta
	source WeatherSource
	clock  clock.Clock
}

// NewWeatherCommand creates a new weather command
func NewWeatherCommand(source WeatherSource, clk clock.Clock) *WeatherCommand {
	return &WeatherCommand{
		meta: meta{
			name:     "weather",
			help:     "Show the current weather in a city",
			category: CategoryNetwork,
			deferred: true,
			options: []Option{
				{Name: "city", Description: "City name", Type: OptionString, Required: true, MaxLength: 100},
			},
		},
		source: source,
		clock:  clk,
	}
}

// Execute runs the weather command
func (c *WeatherCommand) Execute(ctx *Context) (*Response, error) {
	city := ctx.String("city")
	if city == "" {
		return nil, boterrors.NewInvalidSyntaxError("weather", "/weather city:<name>")
	}
	if !c.source.Configured() {
		return nil, boterrors.NewNotConfiguredError("Weather", "OPENWEATHER_API_KEY")
	}
	report, err := c.source.Current(ctx.Context(), city)
	if err != nil {
		return nil, err
	}
	return NewEmbedResponse(report.Embed(c.clock.Now())), nil
}

// TranslateCommand implements /translate
type TranslateCommand struct {
	meta
	translator Translator
}

// NewTranslateCommand creates a new translate command
func NewTranslateCommand(translator Translator) *TranslateCommand {
	codes := make([]string, 0, len(translate.Languages))
	for code := range translate.Languages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	choices := make([]Choice, len(codes))
	for i, code := range codes {
		choices[i] = Choice{Name: translate.LanguageName(code), Value: code}
	}

	return &TranslateCommand{
		meta: meta{
			name:     "translate",
			help:     "Translate text into another language",
			category: CategoryNetwork,
			deferred: true,
			options: []Option{
				{Name: "text", Description: "Text to translate", Type: OptionString, Required: true, MaxLength: translate.MaxTextLength},
				{Name: "to", Description: "Target language", Type: OptionString, Required: true, Choices: choices},
			},
		},
		translator: translator,
	}
}

// Execute runs the translate command
func (c *TranslateCommand) Execute(ctx *Context) (*Response, error) {
	text, target := ctx.String("text"), ctx.String("to")
	if text == "" || target == "" {
		return nil, boterrors.NewInvalidSyntaxError("translate", "/translate text:<text> to:<language>")
	}
	res, err := c.translator.Translate(ctx.Context(), text, target)
	if err != nil {
		return nil, err
	}
	return NewEmbedResponse(&discordgo.MessageEmbed{
		Title: "🌐 Translation",
		Color: colorDefault,
		Fields: []*discordgo.MessageEmbedField{
			{Name: fmt.Sprintf("📝 Original (%s)", res.DetectedSource), Value: translate.Truncate(text)},
			{Name: fmt.Sprintf("✅ %s", translate.LanguageName(target)), Value: translate.Truncate(res.Text)},
		},
	}), nil
}
