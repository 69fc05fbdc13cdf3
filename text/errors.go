package text

import (
	"fmt"
	"strings"
)

// Pos is a 1-based source position.
type Pos struct {
	Line   int
	Column int
}

// ParseError represents an error with source location information.
// Parsing of the enclosing construct aborts when one is produced; no
// partial attribute or operation is returned alongside it.
type ParseError struct {
	Message string
	Pos     Pos
	Source  string // original source, for context display
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Pos.Line == 0 {
		return e.Message
	}
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// FormatWithContext returns the error message with source context,
// showing the offending line with a caret at the error location.
func (e *ParseError) FormatWithContext() string {
	if e.Source == "" || e.Pos.Line == 0 {
		return e.Error()
	}

	lines := strings.Split(e.Source, "\n")
	if e.Pos.Line < 1 || e.Pos.Line > len(lines) {
		return e.Error()
	}

	line := lines[e.Pos.Line-1]
	col := e.Pos.Column
	if col < 1 {
		col = 1
	}
	if col > len(line)+1 {
		col = len(line) + 1
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "error: %s\n", e.Message)
	fmt.Fprintf(&sb, "  --> line %d:%d\n", e.Pos.Line, col)
	sb.WriteString("   |\n")
	fmt.Fprintf(&sb, "%3d| %s\n", e.Pos.Line, line)
	fmt.Fprintf(&sb, "   | %s^\n", strings.Repeat(" ", col-1))

	return sb.String()
}

func newErrorf(pos Pos, source string, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
		Source:  source,
	}
}
