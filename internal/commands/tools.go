package commands

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/sha3"

	"github.com/yourusername/guildbot/internal/clock"
	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/validation"
)

const (
	maxToolInput      = 1000
	minPasswordLength = 8
	maxPasswordLength = 64
	maxBcryptInput    = 72
)

// ReverseCommand implements /reverse
type ReverseCommand struct {
	meta
}

// NewReverseCommand creates a new reverse command
func NewReverseCommand() *ReverseCommand {
	return &ReverseCommand{meta{
		name:     "reverse",
		help:     "Reverse a piece of text",
		category: CategoryTools,
		options: []Option{
			{Name: "text", Description: "Text to reverse", Type: OptionString, Required: true, MaxLength: maxToolInput},
		},
	}}
}

// Execute runs the reverse command
func (c *ReverseCommand) Execute(ctx *Context) (*Response, error) {
	text := ctx.String("text")
	if text == "" {
		return nil, boterrors.NewInvalidSyntaxError("reverse", "/reverse text:<text>")
	}
	return NewResponse("🔄 " + Reverse(text)), nil
}

// Reverse reverses s by rune
func Reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// Base64Command implements /base64
type Base64Command struct {
	meta
}

// NewBase64Command creates a new base64 command
func NewBase64Command() *Base64Command {
	return &Base64Command{meta{
		name:     "base64",
		help:     "Encode or decode Base64",
		category: CategoryTools,
		options: []Option{
			{Name: "action", Description: "Encode or decode", Type: OptionString, Required: true, Choices: []Choice{
				{Name: "Encode", Value: "encode"},
				{Name: "Decode", Value: "decode"},
			}},
			{Name: "text", Description: "Input", Type: OptionString, Required: true, MaxLength: maxToolInput},
		},
	}}
}

// Execute runs the base64 command
func (c *Base64Command) Execute(ctx *Context) (*Response, error) {
	text := ctx.String("text")
	switch ctx.String("action") {
	case "encode":
		return NewResponse(codeBlock("🔐 Encoded", base64.StdEncoding.EncodeToString([]byte(text)))), nil
	case "decode":
		data, err := base64.StdEncoding.DecodeString(text)
		if err != nil || !utf8.Valid(data) {
			return nil, boterrors.NewValidationError("That is not valid Base64 text.")
		}
		return NewResponse(codeBlock("🔓 Decoded", string(data))), nil
	default:
		return nil, boterrors.NewInvalidSyntaxError("base64", "/base64 action:<encode|decode> text:<text>")
	}
}

func codeBlock(label, body string) string {
	return fmt.Sprintf("%s:\n```\n%s\n```", label, strings.ReplaceAll(body, "```", "`\u200b``"))
}

// HashAlgorithms lists the /hash choices
var HashAlgorithms = []string{"md5", "sha1", "sha256", "sha512", "sha3-256", "bcrypt"}

// Hash returns text hashed with algorithm
func Hash(algorithm, text string) (string, error) {
	data := []byte(text)
	switch algorithm {
	case "md5":
		sum := md5.Sum(data)
		return hex.EncodeToString(sum[:]), nil
	case "sha1":
		sum := sha1.Sum(data)
		return hex.EncodeToString(sum[:]), nil
	case "sha256":
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	case "sha512":
		sum := sha512.Sum512(data)
		return hex.EncodeToString(sum[:]), nil
	case "sha3-256":
		sum := sha3.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	case "bcrypt":
		if len(data) > maxBcryptInput {
			return "", boterrors.NewValidationError(fmt.Sprintf("bcrypt accepts at most %d bytes.", maxBcryptInput))
		}
		out, err := bcrypt.GenerateFromPassword(data, bcrypt.DefaultCost)
		if err != nil {
			return "", boterrors.NewUnexpectedError(err)
		}
		return string(out), nil
	}
	return "", boterrors.NewValidationError(fmt.Sprintf("Unknown algorithm: %s", algorithm))
}

// HashCommand implements /hash
type HashCommand struct {
	meta
}

// NewHashCommand creates a new hash command
func NewHashCommand() *HashCommand {
	choices := make([]Choice, len(HashAlgorithms))
	for i, a := range HashAlgorithms {
		choices[i] = Choice{Name: strings.ToUpper(a), Value: a}
	}
	return &HashCommand{meta{
		name:     "hash",
		help:     "Hash text",
		category: CategoryTools,
		options: []Option{
			{Name: "text", Description: "Text to hash", Type: OptionString, Required: true, MaxLength: maxToolInput},
			{Name: "algorithm", Description: "Algorithm (default sha256)", Type: OptionString, Choices: choices},
		},
	}}
}

// Execute runs the hash command
func (c *HashCommand) Execute(ctx *Context) (*Response, error) {
	algorithm := ctx.String("algorithm")
	if algorithm == "" {
		algorithm = "sha256"
	}
	sum, err := Hash(algorithm, ctx.String("text"))
	if err != nil {
		return nil, err
	}
	return NewEphemeral(fmt.Sprintf("#️⃣ **%s**\n`%s`", strings.ToUpper(algorithm), sum)), nil
}

const (
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()-_=+[]{};:,.?"
)

// GeneratePassword returns a random password of length from crypto/rand
func GeneratePassword(length int, digits, symbols bool) (string, error) {
	alphabet := lowerChars + upperChars
	if digits {
		alphabet += digitChars
	}
	if symbols {
		alphabet += symbolChars
	}
	limit := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

// PasswordCommand implements /password
type PasswordCommand struct {
	meta
}

// NewPasswordCommand creates a new password command
func NewPasswordCommand() *PasswordCommand {
	return &PasswordCommand{meta{
		name:     "password",
		help:     "Generate a random password",
		category: CategoryTools,
		options: []Option{
			{Name: "length", Description: "Length (8-64, default 16)", Type: OptionInteger, MinValue: float(minPasswordLength), MaxValue: float(maxPasswordLength)},
			{Name: "numbers", Description: "Include digits (default yes)", Type: OptionBoolean},
			{Name: "symbols", Description: "Include symbols (default yes)", Type: OptionBoolean},
		},
	}}
}

// Execute runs the password command
func (c *PasswordCommand) Execute(ctx *Context) (*Response, error) {
	length, ok := ctx.Int("length")
	if !ok {
		length = 16
	}
	if length < minPasswordLength || length > maxPasswordLength {
		return nil, boterrors.NewValidationError(fmt.Sprintf("Length must be between %d and %d.", minPasswordLength, maxPasswordLength))
	}
	digits, ok := ctx.Bool("numbers")
	if !ok {
		digits = true
	}
	symbols, ok := ctx.Bool("symbols")
	if !ok {
		symbols = true
	}
	pw, err := GeneratePassword(int(length), digits, symbols)
	if err != nil {
		return nil, boterrors.NewUnexpectedError(err)
	}
	return NewEphemeral(fmt.Sprintf("🔑 Your password (%d chars):\n||`%s`||", length, pw)), nil
}

var timestampFormats = []struct{ label, style string }{
	{"Short time", "t"},
	{"Long time", "T"},
	{"Short date", "d"},
	{"Long date", "D"},
	{"Date and time", "f"},
	{"Full date", "F"},
	{"Relative", "R"},
}

// TimestampCommand implements /timestamp
type TimestampCommand struct {
	meta
	clock    clock.Clock
	location *time.Location
}

// NewTimestampCommand creates a new timestamp command; dates are read in loc
func NewTimestampCommand(clk clock.Clock, loc *time.Location) *TimestampCommand {
	if loc == nil {
		loc = time.UTC
	}
	return &TimestampCommand{
		meta: meta{
			name:     "timestamp",
			help:     "Build Discord timestamp markup",
			category: CategoryTools,
			options: []Option{
				{Name: "date", Description: "Date (DD.MM.YYYY or YYYY-MM-DD)", Type: OptionString},
				{Name: "time", Description: "Time (HH:MM)", Type: OptionString},
				{Name: "minutes", Description: "Or: minutes from now", Type: OptionInteger},
			},
		},
		clock:    clk,
		location: loc,
	}
}

// Execute runs the timestamp command
func (c *TimestampCommand) Execute(ctx *Context) (*Response, error) {
	t, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}
	unix := t.Unix()

	lines := make([]string, len(timestampFormats))
	for i, f := range timestampFormats {
		lines[i] = fmt.Sprintf("**%s:** <t:%d:%s>\n`<t:%d:%s>`", f.label, unix, f.style, unix, f.style)
	}
	return NewEmbedResponse(&discordgo.MessageEmbed{
		Title:       "🕐 Discord timestamp",
		Description: strings.Join(lines, "\n\n"),
		Color:       colorDefault,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📋 Unix timestamp", Value: fmt.Sprintf("`%d`", unix), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Copy the format you need"},
	}), nil
}

func (c *TimestampCommand) resolve(ctx *Context) (time.Time, error) {
	now := c.clock.Now().In(c.location)
	if minutes, ok := ctx.Int("minutes"); ok {
		return now.Add(time.Duration(minutes) * time.Minute), nil
	}

	date := now
	if raw := ctx.String("date"); raw != "" {
		parsed, err := ParseDate(raw, c.location)
		if err != nil {
			return time.Time{}, err
		}
		date = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), now.Hour(), now.Minute(), 0, 0, c.location)
	}
	if raw := ctx.String("time"); raw != "" {
		clockTime, err := time.Parse("15:04", raw)
		if err != nil {
			return time.Time{}, boterrors.NewValidationError("Invalid time. Use HH:MM.")
		}
		date = time.Date(date.Year(), date.Month(), date.Day(), clockTime.Hour(), clockTime.Minute(), 0, 0, c.location)
	}
	return date, nil
}

// ParseDate accepts DD.MM.YYYY or YYYY-MM-DD
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{"02.01.2006", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, boterrors.NewValidationError("Invalid date. Use DD.MM.YYYY or YYYY-MM-DD.")
}

// ColorCommand implements /color
type ColorCommand struct {
	meta
}

// NewColorCommand creates a new color command
func NewColorCommand() *ColorCommand {
	return &ColorCommand{meta{
		name:     "color",
		help:     "Show information about a hex color",
		category: CategoryTools,
		options: []Option{
			{Name: "hex", Description: "Color such as FF5500 or #FF5500", Type: OptionString, Required: true},
		},
	}}
}

// Execute runs the color command
func (c *ColorCommand) Execute(ctx *Context) (*Response, error) {
	v, err := validation.ParseHexColor(ctx.String("hex"))
	if err != nil {
		return nil, err
	}
	hexStr := fmt.Sprintf("%06X", v)
	return NewEmbedResponse(&discordgo.MessageEmbed{
		Title: "🎨 Color #" + hexStr,
		Color: v,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "HEX", Value: "#" + hexStr, Inline: true},
			{Name: "RGB", Value: fmt.Sprintf("%d, %d, %d", v>>16&0xff, v>>8&0xff, v&0xff), Inline: true},
			{Name: "Decimal", Value: fmt.Sprintf("%d", v), Inline: true},
		},
		Image: &discordgo.MessageEmbedImage{URL: fmt.Sprintf("https://singlecolorimage.com/get/%s/400x100", hexStr)},
	}), nil
}
