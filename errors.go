package grantha

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ImportError reports a problem in a manuscript file with enough
// context to fix it by hand.
type ImportError struct {
	File    string // source file path
	Line    int    // line number (1-indexed)
	Message string // error message
	Hint    string // helpful suggestion
}

// Error implements the error interface.
func (e *ImportError) Error() string {
	return e.Format()
}

// Format returns the error with surrounding source context.
func (e *ImportError) Format() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("error in %s\n", e.File))
	b.WriteString(fmt.Sprintf("line %d: %s\n", e.Line, e.Message))

	if context := e.sourceContext(); context != "" {
		b.WriteString(context)
	}
	if e.Hint != "" {
		b.WriteString(fmt.Sprintf("\nhint: %s\n", e.Hint))
	}
	return b.String()
}

// sourceContext reads the file and extracts lines around the error.
func (e *ImportError) sourceContext() string {
	if e.File == "" {
		return ""
	}

	file, err := os.Open(e.File)
	if err != nil {
		return ""
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if e.Line < 1 || e.Line > len(lines) {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	start := max(1, e.Line-2)
	end := min(len(lines), e.Line+2)
	for i := start; i <= end; i++ {
		b.WriteString(fmt.Sprintf("  %2d | %s\n", i, lines[i-1]))
	}
	return b.String()
}

// NewImportError creates a new ImportError.
func NewImportError(file string, line int, message string) *ImportError {
	return &ImportError{File: file, Line: line, Message: message}
}

// WithHint adds a helpful hint to the error.
func (e *ImportError) WithHint(hint string) *ImportError {
	e.Hint = hint
	return e
}
