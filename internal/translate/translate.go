// Package translate wraps the MyMemory translation API.
package translate

import (
	"context"
	"fmt"
	"net/url"

	boterrors "github.com/yourusername/guildbot/internal/errors"
)

// BaseURL is the MyMemory endpoint
const BaseURL = "https://api.mymemory.translated.net/get"

const service = "translate"

// MaxTextLength caps the input text
const MaxTextLength = 500

// Languages are the selectable target languages
var Languages = map[string]string{
	"uk": "Ukrainian",
	"en": "English",
	"de": "German",
	"fr": "French",
	"es": "Spanish",
	"pl": "Polish",
	"ja": "Japanese",
	"ko": "Korean",
	"zh": "Chinese",
}

// LanguageName returns the display name for code, or code itself
func LanguageName(code string) string {
	if name, ok := Languages[code]; ok {
		return name
	}
	return code
}

// JSONGetter performs a rate-limited GET decoding JSON into out
type JSONGetter interface {
	GetJSON(ctx context.Context, service, url string, headers map[string]string, out interface{}) error
}

// Result is a finished translation
type Result struct {
	Text           string
	DetectedSource string
}

type apiResponse struct {
	ResponseStatus int `json:"responseStatus"`
	ResponseData   struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	Matches []struct {
		Source string `json:"source"`
	} `json:"matches"`
}

// Client talks to MyMemory
type Client struct {
	http    JSONGetter
	baseURL string
}

// NewClient creates a translate client
func NewClient(http JSONGetter) *Client {
	return &Client{http: http, baseURL: BaseURL}
}

// SetBaseURL overrides the endpoint
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// Translate detects the source language and translates text into target
func (c *Client) Translate(ctx context.Context, text, target string) (*Result, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", "autodetect|"+target)

	var raw apiResponse
	if err := c.http.GetJSON(ctx, service, c.baseURL+"?"+q.Encode(), nil, &raw); err != nil {
		return nil, boterrors.NewUpstreamError(service, err)
	}
	if raw.ResponseStatus != 200 {
		return nil, boterrors.NewUpstreamError(service,
			&boterrors.UpstreamError{Service: "MyMemory", Status: raw.ResponseStatus})
	}

	res := &Result{Text: raw.ResponseData.TranslatedText, DetectedSource: "auto"}
	if len(raw.Matches) > 0 && raw.Matches[0].Source != "" {
		res.DetectedSource = raw.Matches[0].Source
	}
	return res, nil
}

// Truncate caps s at MaxTextLength runes with an ellipsis
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= MaxTextLength {
		return s
	}
	return fmt.Sprintf("%s...", string(r[:MaxTextLength]))
}
