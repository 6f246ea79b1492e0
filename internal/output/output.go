package output

import (
	"fmt"
)

// Output combines terminal logging with file-based error logging
type Output struct {
	Logger      Logger
	ErrorLogger *ErrorLogger
}

// NewOutput creates an Output writing errors to errorLogPath
func NewOutput(logger Logger, errorLogPath string, maxSizeMB, maxFiles int) (*Output, error) {
	if err := EnsureLogDirectory(errorLogPath); err != nil {
		return nil, fmt.Errorf("failed to ensure log directory: %w", err)
	}

	return &Output{
		Logger:      logger,
		ErrorLogger: NewErrorLogger(errorLogPath, maxSizeMB, maxFiles),
	}, nil
}

// LogErrorToFile logs an error to the terminal and to the error log file
func (o *Output) LogErrorToFile(errorType, errorMessage string, err error) {
	o.LogEntry(ErrorEntry{Type: errorType, Message: errorMessage, Err: err})
}

// LogEntry logs a full error entry to the terminal and to the error log file
func (o *Output) LogEntry(entry ErrorEntry) {
	if entry.Err != nil {
		o.Logger.Error("%s: %s - %v", entry.Type, entry.Message, entry.Err)
	} else {
		o.Logger.Error("%s: %s", entry.Type, entry.Message)
	}

	if logErr := o.ErrorLogger.Log(entry); logErr != nil {
		o.Logger.Error("Failed to write to error log: %v", logErr)
	}
}

// New picks the terminal logger for format ("color" or "json")
func New(format string, level Level) (Logger, error) {
	if format == "json" {
		return NewZapLogger(level)
	}
	return NewColorLoggerWithLevel(level), nil
}
