// Package validation checks and sanitizes user-supplied input.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	boterrors "github.com/yourusername/guildbot/internal/errors"
)

const (
	// MaxTextLength caps sanitized free text
	MaxTextLength = 2000
	// MaxReasonLength caps moderation reasons
	MaxReasonLength = 512
	// DefaultReason is used when a moderator gives none
	DefaultReason = "No reason provided"
)

var (
	discordIDPattern = regexp.MustCompile(`^\d{17,20}$`)
	hexColorPattern  = regexp.MustCompile(`^#?[0-9A-Fa-f]{6}$`)

	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator with the custom tags registered
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		mustRegister(v, "discord_id", func(fl validator.FieldLevel) bool {
			return IsDiscordID(fl.Field().String())
		})
		mustRegister(v, "discord_id_or_empty", func(fl validator.FieldLevel) bool {
			id := fl.Field().String()
			return id == "" || IsDiscordID(id)
		})
		mustRegister(v, "hex_color", func(fl validator.FieldLevel) bool {
			return hexColorPattern.MatchString(fl.Field().String())
		})
		mustRegister(v, "multiple_of", func(fl validator.FieldLevel) bool {
			step, err := strconv.ParseInt(fl.Param(), 10, 64)
			if err != nil || step == 0 {
				return false
			}
			return fl.Field().Int()%step == 0
		})
		instance = v
	})
	return instance
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("registering %s validation: %v", tag, err))
	}
}

// Struct validates v and returns a Validation BotError listing every failed field
func Struct(v interface{}) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return boterrors.NewValidationError(err.Error())
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return boterrors.NewValidationError(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "multiple_of":
		return fmt.Sprintf("%s must be a multiple of %s", field, fe.Param())
	case "discord_id", "discord_id_or_empty":
		return field + " must be a Discord ID"
	case "hex_color":
		return field + " must be a hex color like #57F287"
	case "http_url":
		return field + " must be an http(s) URL"
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

// IsDiscordID reports whether s looks like a Discord snowflake
func IsDiscordID(s string) bool {
	return discordIDPattern.MatchString(s)
}

// Sanitize strips angle brackets and control characters, trims and caps s at MaxTextLength runes
func Sanitize(s string) string {
	return truncate(strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '<' || r == '>' {
			return -1
		}
		if unicode.IsControl(r) && r != '\n' {
			return -1
		}
		return r
	}, s)), MaxTextLength)
}

// Reason sanitizes a moderation reason, caps it at MaxReasonLength and defaults it
func Reason(s string) string {
	s = truncate(Sanitize(s), MaxReasonLength)
	if s == "" {
		return DefaultReason
	}
	return s
}

// ParseHexColor parses "#RRGGBB" or "RRGGBB" into an integer color
func ParseHexColor(s string) (int, error) {
	s = strings.TrimSpace(s)
	if !hexColorPattern.MatchString(s) {
		return 0, boterrors.NewValidationError(fmt.Sprintf("Invalid color %q. Use a hex color like #57F287.", s))
	}
	v, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 16, 32)
	if err != nil {
		return 0, boterrors.NewValidationError(err.Error())
	}
	return int(v), nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
