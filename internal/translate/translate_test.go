package translate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/guildbot/internal/clock"
	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/output"
	"github.com/yourusername/guildbot/internal/upstream"
)

func newClient(t *testing.T, body string) (*Client, *string) {
	t.Helper()
	var langpair string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		langpair = r.URL.Query().Get("langpair")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	http := upstream.New(nil, upstream.Config{}, nil, nil,
		clock.NewFake(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)), output.NopLogger{})
	c := NewClient(http)
	c.SetBaseURL(srv.URL)
	return c, &langpair
}

func TestTranslate(t *testing.T) {
	c, langpair := newClient(t, `{"responseStatus":200,"responseData":{"translatedText":"Hallo"},"matches":[{"source":"en"}]}`)

	res, err := c.Translate(context.Background(), "Hello", "de")
	require.NoError(t, err)

	assert.Equal(t, "Hallo", res.Text)
	assert.Equal(t, "en", res.DetectedSource)
	assert.Equal(t, "autodetect|de", *langpair)
}

func TestTranslate_NoMatches(t *testing.T) {
	c, _ := newClient(t, `{"responseStatus":200,"responseData":{"translatedText":"Hola"}}`)

	res, err := c.Translate(context.Background(), "Hello", "es")
	require.NoError(t, err)
	assert.Equal(t, "auto", res.DetectedSource)
}

func TestTranslate_BadStatus(t *testing.T) {
	c, _ := newClient(t, `{"responseStatus":403,"responseData":{"translatedText":"INVALID LANGUAGE PAIR"}}`)

	_, err := c.Translate(context.Background(), "Hello", "xx")
	if boterrors.TypeOf(err) != boterrors.ErrorTypeUpstream {
		t.Errorf("Translate() error = %v, want Upstream", err)
	}
}

func TestTruncateAndLanguageName(t *testing.T) {
	long := strings.Repeat("я", MaxTextLength+10)
	got := Truncate(long)
	assert.Equal(t, MaxTextLength+3, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "short", Truncate("short"))

	assert.Equal(t, "German", LanguageName("de"))
	assert.Equal(t, "xx", LanguageName("xx"))
}
