// Package weather reads current conditions from OpenWeatherMap.
package weather

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/bwmarrin/discordgo"

	boterrors "github.com/yourusername/guildbot/internal/errors"
)

// BaseURL is the current-weather endpoint
const BaseURL = "https://api.openweathermap.org/data/2.5/weather"

const service = "weather"

// JSONGetter performs a rate-limited GET decoding JSON into out
type JSONGetter interface {
	GetJSON(ctx context.Context, service, url string, headers map[string]string, out interface{}) error
}

// Report is the current weather for one city
type Report struct {
	City        string
	Temp        float64
	Humidity    int
	Pressure    int
	WindSpeed   float64
	Condition   string
	Description string
}

type apiResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
		Pressure int     `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Client queries OpenWeatherMap in metric units
type Client struct {
	http    JSONGetter
	apiKey  string
	baseURL string
}

// NewClient creates a client; an empty apiKey leaves it unconfigured
func NewClient(http JSONGetter, apiKey string) *Client {
	return &Client{http: http, apiKey: apiKey, baseURL: BaseURL}
}

// SetBaseURL overrides the endpoint
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// Configured reports whether an API key is set
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Current returns the weather for city
func (c *Client) Current(ctx context.Context, city string) (*Report, error) {
	if !c.Configured() {
		return nil, boterrors.NewNotConfiguredError("Weather", "OPENWEATHER_API_KEY")
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	var raw apiResponse
	if err := c.http.GetJSON(ctx, service, c.baseURL+"?"+q.Encode(), nil, &raw); err != nil {
		var upstream *boterrors.UpstreamError
		if stderrors.As(err, &upstream) && upstream.Status == http.StatusNotFound {
			return nil, boterrors.NewNotFoundError("City", city)
		}
		return nil, boterrors.NewUpstreamError(service, err)
	}

	r := &Report{
		City:      raw.Name,
		Temp:      raw.Main.Temp,
		Humidity:  raw.Main.Humidity,
		Pressure:  raw.Main.Pressure,
		WindSpeed: raw.Wind.Speed,
	}
	if len(raw.Weather) > 0 {
		r.Condition = raw.Weather[0].Main
		r.Description = raw.Weather[0].Description
	}
	return r, nil
}

var conditionEmoji = map[string]string{
	"Clear":        "☀️",
	"Clouds":       "☁️",
	"Rain":         "🌧️",
	"Drizzle":      "🌦️",
	"Thunderstorm": "⛈️",
	"Snow":         "🌨️",
	"Mist":         "🌫️",
	"Fog":          "🌫️",
}

// Emoji returns the icon for a condition group
func Emoji(condition string) string {
	if e, ok := conditionEmoji[condition]; ok {
		return e
	}
	return "🌡️"
}

// Embed renders the report
func (r *Report) Embed(now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s Weather in %s", Emoji(r.Condition), r.City),
		Color: 0x5865f2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🌡️ Temperature", Value: fmt.Sprintf("%d°C", int(math.Round(r.Temp))), Inline: true},
			{Name: "💨 Wind", Value: fmt.Sprintf("%g m/s", r.WindSpeed), Inline: true},
			{Name: "💧 Humidity", Value: fmt.Sprintf("%d%%", r.Humidity), Inline: true},
			{Name: "📊 Pressure", Value: fmt.Sprintf("%d hPa", r.Pressure), Inline: true},
			{Name: "🌤️ Conditions", Value: r.Description, Inline: true},
		},
		Timestamp: now.Format(time.RFC3339),
	}
}
