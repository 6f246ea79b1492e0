package output

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMaxLogSizeMB is the error log size that triggers rotation
	DefaultMaxLogSizeMB = 10
	// DefaultMaxLogFiles is the number of rotated error logs to keep
	DefaultMaxLogFiles = 5
)

// ErrorEntry describes one failure written to the error log
type ErrorEntry struct {
	Type      string
	Message   string
	Err       error
	RequestID string
	GuildID   string
	Command   string
}

// ErrorLogger handles file-based error logging with rotation
type ErrorLogger struct {
	logPath  string
	mu       sync.Mutex
	maxSize  int64
	maxFiles int
	now      func() time.Time
}

// NewErrorLogger creates an ErrorLogger. Non-positive limits fall back to the defaults.
func NewErrorLogger(logPath string, maxSizeMB, maxFiles int) *ErrorLogger {
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxLogSizeMB
	}
	if maxFiles <= 0 {
		maxFiles = DefaultMaxLogFiles
	}
	return &ErrorLogger{
		logPath:  logPath,
		maxSize:  int64(maxSizeMB) * 1024 * 1024,
		maxFiles: maxFiles,
		now:      time.Now,
	}
}

// LogError writes a typed error with a stack trace
func (e *ErrorLogger) LogError(errorType, errorMessage string, originalErr error) error {
	return e.Log(ErrorEntry{Type: errorType, Message: errorMessage, Err: originalErr})
}

// Log appends entry to the error log, rotating first if the file is too large
func (e *ErrorLogger) Log(entry ErrorEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.rotateIfNeeded(); err != nil {
		return fmt.Errorf("failed to rotate log: %w", err)
	}

	f, err := os.OpenFile(e.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open error log: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if _, err := f.WriteString(e.format(entry)); err != nil {
		return fmt.Errorf("failed to write to error log: %w", err)
	}
	return nil
}

func (e *ErrorLogger) format(entry ErrorEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ERROR: %s\n", e.now().Format("2006-01-02 15:04:05"), entry.Message)
	fmt.Fprintf(&b, "Type: %s\n", entry.Type)
	if entry.RequestID != "" {
		fmt.Fprintf(&b, "Request ID: %s\n", entry.RequestID)
	}
	if entry.GuildID != "" {
		fmt.Fprintf(&b, "Guild: %s\n", entry.GuildID)
	}
	if entry.Command != "" {
		fmt.Fprintf(&b, "Command: /%s\n", entry.Command)
	}
	if entry.Err != nil {
		fmt.Fprintf(&b, "Details: %s\n", entry.Err.Error())
	}
	b.WriteString("Stack Trace:\n")
	b.WriteString(stackTrace(4))
	b.WriteString("\n")
	return b.String()
}

func (e *ErrorLogger) rotateIfNeeded() error {
	info, err := os.Stat(e.logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	if info.Size() < e.maxSize {
		return nil
	}
	return e.rotate()
}

// rotate shifts error.log.N-1 -> error.log.N and moves the live file to error.log.1
func (e *ErrorLogger) rotate() error {
	oldest := fmt.Sprintf("%s.%d", e.logPath, e.maxFiles)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove oldest log: %w", err)
	}

	for i := e.maxFiles - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", e.logPath, i)
		to := fmt.Sprintf("%s.%d", e.logPath, i+1)
		if _, err := os.Stat(from); err != nil {
			continue
		}
		if err := os.Rename(from, to); err != nil {
			return fmt.Errorf("failed to rotate log %s to %s: %w", from, to, err)
		}
	}

	if err := os.Rename(e.logPath, e.logPath+".1"); err != nil {
		return fmt.Errorf("failed to rotate current log: %w", err)
	}
	return nil
}

func stackTrace(skip int) string {
	const maxStackDepth = 32
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip, pcs)

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "  at %s (%s:%d)\n", frame.Function, filepath.Base(frame.File), frame.Line)
		if !more {
			break
		}
	}
	return b.String()
}

// EnsureLogDirectory creates the log directory if it doesn't exist
func EnsureLogDirectory(logPath string) error {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}
