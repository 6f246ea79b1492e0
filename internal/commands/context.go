package commands

import (
	"context"
	"strings"
)

// Context contains all information needed to execute a command
type Context struct {
	Ctx context.Context

	// Command name and optional subcommand
	Command    string
	Subcommand string

	GuildID       string
	ChannelID     string
	UserID        string
	UserTag       string
	UserAvatarURL string

	// Permissions are the caller's resolved permission bits in the channel
	Permissions int64

	// Options holds option values: string, int64, float64 or bool.
	// User options hold the user ID; the resolved member is in Users.
	Options map[string]interface{}
	Users   map[string]*Member

	Guild GuildActions
}

// FullName returns the command with its subcommand, for logs
func (c *Context) FullName() string {
	if c.Subcommand == "" {
		return c.Command
	}
	return c.Command + " " + c.Subcommand
}

// Context returns the request context, never nil
func (c *Context) Context() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

// String returns a trimmed string option, or ""
func (c *Context) String(name string) string {
	if v, ok := c.Options[name].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// Int returns an integer option
func (c *Context) Int(name string) (int64, bool) {
	switch v := c.Options[name].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// Float returns a number option
func (c *Context) Float(name string) (float64, bool) {
	switch v := c.Options[name].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Bool returns a boolean option
func (c *Context) Bool(name string) (bool, bool) {
	v, ok := c.Options[name].(bool)
	return v, ok
}

// User returns the resolved member for a user option
func (c *Context) User(name string) *Member {
	id, _ := c.Options[name].(string)
	if id == "" {
		return nil
	}
	if m, ok := c.Users[id]; ok {
		return m
	}
	return &Member{ID: id, Username: id, Tag: id, DisplayName: id}
}
