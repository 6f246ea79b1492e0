// Package splitter breaks long text into Discord-sized parts without
// breaking words or markdown code blocks.
package splitter

import (
	"strings"
	"unicode/utf8"
)

// Discord limits, counted in characters
const (
	MessageLimit = 2000
	EmbedLimit   = 4096
)

const fence = "```"

// closeFence is appended to a part that ends inside a code block
const closeFence = "\n" + fence

// fenceState tracks an open markdown code block
type fenceState struct {
	open bool
	lang string
}

// reopen returns the text that restores the block at the start of the next part
func (f fenceState) reopen() string {
	if !f.open {
		return ""
	}
	return fence + f.lang + "\n"
}

// scan updates the state with every fence line in text
func (f fenceState) scan(text string) fenceState {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, fence) {
			continue
		}
		if f.open {
			f = fenceState{}
			continue
		}
		f = fenceState{open: true, lang: strings.TrimSpace(strings.TrimPrefix(trimmed, fence))}
	}
	return f
}

// Splitter handles splitting long messages into Discord-compliant chunks
type Splitter struct {
	maxLength int // Maximum part length in characters
}

// New creates a new message splitter with the specified max length
func New(maxLength int) *Splitter {
	return &Splitter{
		maxLength: maxLength,
	}
}

// Split breaks a message into parts of at most maxLength characters.
// It prefers newlines, then spaces, and only cuts inside a word that is longer
// than a whole part. A code block left open at a cut is closed and reopened
// with the same language in the next part.
func (s *Splitter) Split(message string) []string {
	if utf8.RuneCountInString(message) <= s.maxLength {
		return []string{message}
	}

	var parts []string
	remaining := []rune(message)
	var state fenceState

	for len(remaining) > 0 {
		prefix := state.reopen()
		prefixLen := utf8.RuneCountInString(prefix)

		// If remaining (with prefix) fits, add it and we're done
		if prefixLen+len(remaining) <= s.maxLength {
			parts = append(parts, prefix+string(remaining))
			break
		}

		available := s.maxLength - prefixLen
		splitPoint := findSplitPoint(remaining, available)
		chunk := string(remaining[:splitPoint])
		next := state.scan(chunk)

		// Leave room to close a block that stays open across the cut
		if next.open {
			available = max(available-len(closeFence), 1)
			splitPoint = findSplitPoint(remaining, available)
			chunk = string(remaining[:splitPoint])
			next = state.scan(chunk)
		}
		state = next

		part := strings.TrimRight(chunk, " \t\r\n")
		if state.open {
			part += closeFence
		}
		if strings.TrimSpace(part) != "" {
			parts = append(parts, prefix+part)
		}

		// Move to the next part, skipping the separator we split on
		remaining = trimLeadingBreak(remaining[splitPoint:])
	}

	return parts
}

// findSplitPoint returns the cut position within the first maxLen runes:
// after the last newline, else at the last space, else at maxLen.
func findSplitPoint(text []rune, maxLen int) int {
	if len(text) <= maxLen {
		return len(text)
	}

	lastSpace := -1
	for i := maxLen; i > 0; i-- {
		switch text[i] {
		case '\n':
			return i
		case ' ', '\t':
			if lastSpace < 0 {
				lastSpace = i
			}
		}
	}
	if lastSpace > 0 {
		return lastSpace
	}
	return maxLen
}

func trimLeadingBreak(text []rune) []rune {
	for len(text) > 0 && (text[0] == ' ' || text[0] == '\t') {
		text = text[1:]
	}
	if len(text) > 0 && text[0] == '\n' {
		text = text[1:]
	}
	return text
}

// NeedsSplit checks if a message needs to be split
func (s *Splitter) NeedsSplit(message string) bool {
	return utf8.RuneCountInString(message) > s.maxLength
}

// MaxLength returns the maximum part length
func (s *Splitter) MaxLength() int {
	return s.maxLength
}

// SendAll sends every part in order. It stops at the first failure and
// reports how far it got.
func SendAll(parts []string, send func(part string) error) error {
	for i, part := range parts {
		if err := send(part); err != nil {
			return &SendError{Sent: i, Total: len(parts), Err: err}
		}
	}
	return nil
}
