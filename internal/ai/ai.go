// Package ai talks to the chat completion API used by the AI commands and toxic mode.
package ai

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no API key is set
var ErrNotConfigured = errors.New("AI provider is not configured")

// Role of a chat message
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one chat message sent to the model
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Options tune a single completion; zero values fall back to the client defaults
type Options struct {
	MaxTokens   int
	Temperature *float64
}

// Completer returns a single text completion for a conversation
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}

// WithTemperature returns Options with the temperature set
func WithTemperature(t float64) Options {
	return Options{Temperature: &t}
}

// System and User build messages
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message   { return Message{Role: RoleUser, Content: content} }
