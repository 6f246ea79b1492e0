package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInvalidSyntax indicates a malformed command option
	ErrorTypeInvalidSyntax ErrorType = "InvalidSyntax"

	// ErrorTypePermission indicates insufficient permissions
	ErrorTypePermission ErrorType = "Permission"

	// ErrorTypeDatabase indicates a database operation failure
	ErrorTypeDatabase ErrorType = "Database"

	// ErrorTypeUpstream indicates a third-party API failure
	ErrorTypeUpstream ErrorType = "Upstream"

	// ErrorTypeUnexpected indicates an unexpected/unknown error
	ErrorTypeUnexpected ErrorType = "Unexpected"

	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NotFound"

	// ErrorTypeValidation indicates invalid input data
	ErrorTypeValidation ErrorType = "Validation"

	// ErrorTypeQuotaExceeded indicates a per-user quota or cooldown denial
	ErrorTypeQuotaExceeded ErrorType = "QuotaExceeded"

	// ErrorTypeConversionUnavailable indicates missing exchange-rate data
	ErrorTypeConversionUnavailable ErrorType = "ConversionUnavailable"

	// ErrorTypeNotConfigured indicates a feature whose API key is missing
	ErrorTypeNotConfigured ErrorType = "NotConfigured"

	// ErrorTypeDisabled indicates a feature switched off in guild settings
	ErrorTypeDisabled ErrorType = "Disabled"
)

// BotError represents a structured error with type and user-friendly message
type BotError struct {
	Type           ErrorType
	UserMessage    string // Message to send to the user
	InternalError  error  // Original error for logging
	InternalDetail string // Additional detail for logging
}

// Error implements the error interface
func (e *BotError) Error() string {
	if e.InternalError != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.UserMessage, e.InternalError)
	}
	if e.InternalDetail != "" {
		return fmt.Sprintf("%s: %s (detail: %s)", e.Type, e.UserMessage, e.InternalDetail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.UserMessage)
}

// Unwrap returns the underlying error
func (e *BotError) Unwrap() error {
	return e.InternalError
}

// Expected reports whether the error is a normal steady-state outcome
// (denials, bad input) rather than a failure worth an error-log entry.
func (e *BotError) Expected() bool {
	switch e.Type {
	case ErrorTypeInvalidSyntax, ErrorTypePermission, ErrorTypeValidation,
		ErrorTypeQuotaExceeded, ErrorTypeConversionUnavailable,
		ErrorTypeNotConfigured, ErrorTypeDisabled, ErrorTypeNotFound:
		return true
	default:
		return false
	}
}

// NewInvalidSyntaxError creates an error for a malformed command option
func NewInvalidSyntaxError(commandName, usage string) *BotError {
	return &BotError{
		Type:           ErrorTypeInvalidSyntax,
		UserMessage:    fmt.Sprintf("Invalid input. Usage: %s", usage),
		InternalDetail: fmt.Sprintf("command=%s", commandName),
	}
}

// NewPermissionError creates an error naming the missing Discord permission
func NewPermissionError(required string) *BotError {
	return &BotError{
		Type:           ErrorTypePermission,
		UserMessage:    fmt.Sprintf("You need the %s permission to use this command.", required),
		InternalDetail: fmt.Sprintf("required=%s", required),
	}
}

// NewDatabaseError creates an error for database operation failures
func NewDatabaseError(operation string, err error) *BotError {
	return &BotError{
		Type:           ErrorTypeDatabase,
		UserMessage:    "A database error occurred. Please try again later.",
		InternalError:  err,
		InternalDetail: fmt.Sprintf("operation=%s", operation),
	}
}

// NewUpstreamError creates an error for a failed third-party call
func NewUpstreamError(service string, err error) *BotError {
	return &BotError{
		Type:           ErrorTypeUpstream,
		UserMessage:    "The service is temporarily unavailable. Please try again later.",
		InternalError:  err,
		InternalDetail: fmt.Sprintf("service=%s", service),
	}
}

// NewUnexpectedError creates an error for unexpected failures
func NewUnexpectedError(err error) *BotError {
	return &BotError{
		Type:          ErrorTypeUnexpected,
		UserMessage:   "An unexpected error occurred. Please try again later.",
		InternalError: err,
	}
}

// NewNotFoundError creates an error for resources that don't exist
func NewNotFoundError(resourceType, resourceName string) *BotError {
	return &BotError{
		Type:           ErrorTypeNotFound,
		UserMessage:    fmt.Sprintf("%s '%s' not found.", resourceType, resourceName),
		InternalDetail: fmt.Sprintf("resource_type=%s, resource_name=%s", resourceType, resourceName),
	}
}

// NewValidationError creates an error for invalid input data
func NewValidationError(message string) *BotError {
	return &BotError{
		Type:        ErrorTypeValidation,
		UserMessage: message,
	}
}

// NewQuotaExceededError wraps a limiter denial reason
func NewQuotaExceededError(reason string) *BotError {
	return &BotError{
		Type:        ErrorTypeQuotaExceeded,
		UserMessage: "⏳ " + reason,
	}
}

// NewConversionUnavailableError reports that no rate exists for a currency pair
func NewConversionUnavailableError(from, to string) *BotError {
	return &BotError{
		Type:           ErrorTypeConversionUnavailable,
		UserMessage:    fmt.Sprintf("Conversion %s → %s is unavailable: no rate data.", from, to),
		InternalDetail: fmt.Sprintf("from=%s, to=%s", from, to),
	}
}

// NewNotConfiguredError reports a feature whose API key is missing
func NewNotConfiguredError(feature, envVar string) *BotError {
	return &BotError{
		Type:           ErrorTypeNotConfigured,
		UserMessage:    fmt.Sprintf("%s is unavailable: set `%s` in the environment.", feature, envVar),
		InternalDetail: fmt.Sprintf("env=%s", envVar),
	}
}

// NewDisabledError reports a command switched off in guild settings
func NewDisabledError(command string) *BotError {
	return &BotError{
		Type:        ErrorTypeDisabled,
		UserMessage: fmt.Sprintf("❌ /%s is disabled in this server's settings.", command),
	}
}

// UpstreamError is a non-2xx response from a third-party API
type UpstreamError struct {
	Service string
	Status  int
	Body    string
}

func (e *UpstreamError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s API error: %d: %s", e.Service, e.Status, e.Body)
	}
	return fmt.Sprintf("%s API error: %d", e.Service, e.Status)
}

// IsBotError checks if an error is or wraps a BotError
func IsBotError(err error) bool {
	_, ok := AsBotError(err)
	return ok
}

// AsBotError finds the first BotError in err's chain
func AsBotError(err error) (*BotError, bool) {
	var botErr *BotError
	if stderrors.As(err, &botErr) {
		return botErr, true
	}
	return nil, false
}

// TypeOf returns the BotError type of err, or Unexpected
func TypeOf(err error) ErrorType {
	if botErr, ok := AsBotError(err); ok {
		return botErr.Type
	}
	return ErrorTypeUnexpected
}
