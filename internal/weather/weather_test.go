package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/guildbot/internal/clock"
	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/output"
	"github.com/yourusername/guildbot/internal/upstream"
)

func newClient(t *testing.T, handler http.HandlerFunc, key string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	http := upstream.New(nil, upstream.Config{MaxRetries: 0}, nil, nil,
		clock.NewFake(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)), output.NopLogger{})
	c := NewClient(http, key)
	c.SetBaseURL(srv.URL)
	return c
}

func TestCurrent(t *testing.T) {
	var query map[string][]string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = w.Write([]byte(`{"name":"Kyiv","main":{"temp":21.6,"humidity":40,"pressure":1012},
			"weather":[{"main":"Clouds","description":"scattered clouds"}],"wind":{"speed":3.5}}`))
	}, "secret")

	r, err := c.Current(context.Background(), "Kyiv")
	require.NoError(t, err)

	assert.Equal(t, "Kyiv", r.City)
	assert.Equal(t, 40, r.Humidity)
	assert.Equal(t, "Clouds", r.Condition)
	assert.Equal(t, []string{"metric"}, query["units"])
	assert.Equal(t, []string{"secret"}, query["appid"])

	embed := r.Embed(time.Now())
	assert.Equal(t, "☁️ Weather in Kyiv", embed.Title)
	assert.Equal(t, "22°C", embed.Fields[0].Value)
	assert.Equal(t, "3.5 m/s", embed.Fields[1].Value)
}

func TestCurrent_Errors(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		status   int
		wantType boterrors.ErrorType
	}{
		{"missing key", "", http.StatusOK, boterrors.ErrorTypeNotConfigured},
		{"unknown city", "k", http.StatusNotFound, boterrors.ErrorTypeNotFound},
		{"bad key", "k", http.StatusUnauthorized, boterrors.ErrorTypeUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"cod":"err"}`))
			}, tt.key)

			_, err := c.Current(context.Background(), "Atlantis")
			if got := boterrors.TypeOf(err); got != tt.wantType {
				t.Errorf("Current() error type = %v, want %v (err = %v)", got, tt.wantType, err)
			}
		})
	}
}

func TestEmoji(t *testing.T) {
	tests := []struct {
		condition string
		want      string
	}{
		{"Clear", "☀️"},
		{"Fog", "🌫️"},
		{"Tornado", "🌡️"},
	}
	for _, tt := range tests {
		if got := Emoji(tt.condition); got != tt.want {
			t.Errorf("Emoji(%q) = %q, want %q", tt.condition, got, tt.want)
		}
	}
}
