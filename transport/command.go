// Package transport implements the stdin playback controls: one command per line, selected by the
// line's first character.
package transport

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// DefaultStep is the seek distance of the s and r commands.
const DefaultStep = 10 * time.Second

// Kind identifies a parsed command.
type Kind int

const (
	Empty Kind = iota
	TogglePause
	SeekForward
	SeekBackward
	Quit
	Unknown
)

// Command is one parsed input line.
type Command struct {
	Kind Kind

	// Delta is the signed seek distance for SeekForward and SeekBackward.
	Delta time.Duration

	// Raw is the trimmed input line.
	Raw string
}

// Parse reads the first non-whitespace character of line, case-insensitively. Anything after it
// is ignored.
func Parse(line string, step time.Duration) Command {
	raw := strings.TrimSpace(line)
	if raw == "" {
		return Command{Kind: Empty}
	}

	first, _ := utf8.DecodeRuneInString(raw)
	cmd := Command{Raw: raw}

	switch unicode.ToLower(first) {
	case 'p':
		cmd.Kind = TogglePause
	case 's':
		cmd.Kind = SeekForward
		cmd.Delta = step
	case 'r':
		cmd.Kind = SeekBackward
		cmd.Delta = -step
	case 'q':
		cmd.Kind = Quit
	default:
		cmd.Kind = Unknown
	}

	return cmd
}
