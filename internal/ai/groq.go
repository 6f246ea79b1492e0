package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/guildbot/internal/config"
	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/output"
)

// ErrEmptyResponse is returned when the API answers without content
var ErrEmptyResponse = errors.New("Empty response from Groq API")

// GroqURL is the OpenAI-compatible chat completions endpoint
const GroqURL = "https://api.groq.com/openai/v1/chat/completions"

// JSONPoster is the subset of upstream.Client the Groq client needs
type JSONPoster interface {
	PostJSON(ctx context.Context, service, url string, headers map[string]string, body, out interface{}) error
}

type groqRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GroqClient implements Completer against Groq
type GroqClient struct {
	http   JSONPoster
	url    string
	apiKey string
	cfg    config.AIConfig
	logger output.Logger
}

// NewGroqClient creates a client; an empty apiKey makes every call return ErrNotConfigured
func NewGroqClient(http JSONPoster, apiKey string, cfg config.AIConfig, logger output.Logger) *GroqClient {
	if cfg.Model == "" {
		cfg.Model = "llama-3.3-70b-versatile"
	}
	if cfg.DefaultMaxTokens <= 0 {
		cfg.DefaultMaxTokens = 1024
	}
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &GroqClient{http: http, url: GroqURL, apiKey: apiKey, cfg: cfg, logger: logger}
}

// SetURL points the client at another endpoint
func (c *GroqClient) SetURL(url string) {
	c.url = url
}

// Configured reports whether an API key is set
func (c *GroqClient) Configured() bool {
	return c.apiKey != ""
}

// Complete sends messages and returns the first choice's content
func (c *GroqClient) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	req := groqRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   c.cfg.DefaultMaxTokens,
		Temperature: c.cfg.DefaultTemperature,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}

	var resp groqResponse
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := c.http.PostJSON(ctx, "groq", c.url, headers, req, &resp); err != nil {
		var ue *boterrors.UpstreamError
		if errors.As(err, &ue) {
			c.logger.Warning("Groq API error: status=%d body=%s", ue.Status, ue.Body)
			return "", &boterrors.UpstreamError{Service: "Groq", Status: ue.Status}
		}
		return "", fmt.Errorf("groq request: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
