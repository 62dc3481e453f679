package daemon

import "strings"

// DefaultLogLimit is how many lines a shell's log view keeps.
const DefaultLogLimit = 500

// LogBuffer keeps the newest lines of a shell's log view. Not safe for
// concurrent use; shells touch it from their UI goroutine only.
type LogBuffer struct {
	lines []string
	limit int
}

// NewLogBuffer creates a buffer holding at most limit lines.
func NewLogBuffer(limit int) *LogBuffer {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	return &LogBuffer{limit: limit}
}

// Append adds a line, dropping the oldest once the limit is reached.
func (b *LogBuffer) Append(line string) {
	b.lines = append(b.lines, line)
	if over := len(b.lines) - b.limit; over > 0 {
		b.lines = append(b.lines[:0], b.lines[over:]...)
	}
}

// Clear removes every line.
func (b *LogBuffer) Clear() {
	b.lines = b.lines[:0]
}

// Len returns the number of lines held.
func (b *LogBuffer) Len() int {
	return len(b.lines)
}

// String renders the buffer newline-separated.
func (b *LogBuffer) String() string {
	return strings.Join(b.lines, "\n")
}
