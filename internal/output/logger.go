package output

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level orders log severities
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger defines the interface for bot log output
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Success(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Error(format string, args ...interface{})

	// Command logs an executed slash command
	Command(guildID, userTag, command string)

	// Named returns a logger that tags every line with a component name
	Named(component string) Logger
}

// ColorLogger implements Logger with colored terminal output
type ColorLogger struct {
	component    string
	level        Level
	mu           *sync.Mutex
	debugColor   *color.Color
	infoColor    *color.Color
	successColor *color.Color
	warningColor *color.Color
	errorColor   *color.Color
	guildColor   *color.Color
	userColor    *color.Color
	commandColor *color.Color
}

// NewColorLogger creates a new ColorLogger with default color scheme
func NewColorLogger() *ColorLogger {
	return NewColorLoggerWithLevel(LevelInfo)
}

// NewColorLoggerWithLevel creates a ColorLogger that drops lines below level
func NewColorLoggerWithLevel(level Level) *ColorLogger {
	return &ColorLogger{
		level:        level,
		mu:           &sync.Mutex{},
		debugColor:   color.New(color.FgHiBlack),
		infoColor:    color.New(color.FgCyan),
		successColor: color.New(color.FgGreen, color.Bold),
		warningColor: color.New(color.FgYellow, color.Bold),
		errorColor:   color.New(color.FgRed, color.Bold),
		guildColor:   color.New(color.FgBlue, color.Bold),
		userColor:    color.New(color.FgGreen),
		commandColor: color.New(color.FgMagenta, color.Bold),
	}
}

// Named returns a copy of the logger tagged with component
func (l *ColorLogger) Named(component string) Logger {
	clone := *l
	if l.component != "" {
		component = l.component + "." + component
	}
	clone.component = component
	return &clone
}

func (l *ColorLogger) line(c *color.Color, minLevel Level, label, format string, args []interface{}) {
	if minLevel < l.level {
		return
	}
	timestamp := time.Now().Format("15:04:05")
	message := fmt.Sprintf(format, args...)
	if l.component != "" {
		message = "[" + l.component + "] " + message
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = c.Printf("[%s] %s: %s\n", timestamp, label, message)
}

// Debug prints a diagnostic message in grey
func (l *ColorLogger) Debug(format string, args ...interface{}) {
	l.line(l.debugColor, LevelDebug, "DEBUG", format, args)
}

// Info prints an informational message in cyan
func (l *ColorLogger) Info(format string, args ...interface{}) {
	l.line(l.infoColor, LevelInfo, "INFO", format, args)
}

// Success prints a success message in bold green
func (l *ColorLogger) Success(format string, args ...interface{}) {
	l.line(l.successColor, LevelInfo, "SUCCESS", format, args)
}

// Warning prints a warning message in bold yellow
func (l *ColorLogger) Warning(format string, args ...interface{}) {
	l.line(l.warningColor, LevelWarning, "WARNING", format, args)
}

// Error prints an error message in bold red
func (l *ColorLogger) Error(format string, args ...interface{}) {
	l.line(l.errorColor, LevelError, "ERROR", format, args)
}

// Command prints an executed command with color-coded formatting
// Format: [HH:MM:SS] guild <user> /command
func (l *ColorLogger) Command(guildID, userTag, command string) {
	if l.level > LevelInfo {
		return
	}
	timestamp := time.Now().Format("15:04:05")

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Printf("[%s] ", timestamp)
	if guildID == "" {
		guildID = "DM"
	}
	_, _ = l.guildColor.Printf("%s ", guildID)
	_, _ = l.userColor.Printf("<%s> ", userTag)
	_, _ = l.commandColor.Printf("/%s\n", command)
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{})   {}
func (NopLogger) Info(string, ...interface{})    {}
func (NopLogger) Success(string, ...interface{}) {}
func (NopLogger) Warning(string, ...interface{}) {}
func (NopLogger) Error(string, ...interface{})   {}
func (NopLogger) Command(string, string, string) {}
func (n NopLogger) Named(string) Logger          { return n }
