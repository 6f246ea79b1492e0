package errors

import (
	"fmt"

	"github.com/yourusername/guildbot/internal/output"
)

const genericUserMessage = "An unexpected error occurred. Please try again later."

// ErrorHandler handles errors by logging them and returning user-friendly messages
type ErrorHandler struct {
	output *output.Output
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(output *output.Output) *ErrorHandler {
	return &ErrorHandler{
		output: output,
	}
}

// Handle processes an error and returns a user-friendly message.
// Expected outcomes (denials, bad input) are logged at debug level only.
func (h *ErrorHandler) Handle(err error) string {
	return h.HandleCommand(err, "", "")
}

// HandleCommand is Handle with the guild and command recorded in the error log
func (h *ErrorHandler) HandleCommand(err error, guildID, command string) string {
	if err == nil {
		return ""
	}

	if botErr, ok := AsBotError(err); ok {
		if botErr.Expected() {
			h.output.Logger.Debug("%s denied: %s", command, botErr.Error())
			return botErr.UserMessage
		}
		h.output.LogEntry(output.ErrorEntry{
			Type:    string(botErr.Type),
			Message: botErr.UserMessage,
			Err:     err,
			GuildID: guildID,
			Command: command,
		})
		return botErr.UserMessage
	}

	h.output.LogEntry(output.ErrorEntry{
		Type:    string(ErrorTypeUnexpected),
		Message: "Unexpected error occurred",
		Err:     err,
		GuildID: guildID,
		Command: command,
	})
	return genericUserMessage
}

// LogError logs an error without returning a message (for background work)
func (h *ErrorHandler) LogError(err error, context string) {
	if err == nil {
		return
	}

	contextualErr := fmt.Errorf("%s: %w", context, err)
	h.output.LogErrorToFile(string(TypeOf(err)), context, contextualErr)
}
