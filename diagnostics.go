// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Diagnostic represents an error, warning, or event reported while
// processing a document, with a span in the original source.
type Diagnostic struct {
	Severity slog.Level // Error, Warning, Info, Debug
	Code     string     // stable identifier, e.g. CodeUndefinedControlSequence
	Message  string     // "undefined control sequence \foo"
	Span     Span       // where in the file it occurred
	Notes    []string   // optional additional help messages
}

// DiagnosticSink receives diagnostics from a session.
// Implementations must not call back into the session.
type DiagnosticSink interface {
	Report(diag Diagnostic)
}

// Diagnostic codes for warnings and events.
// Codes for fatal errors are listed with the error types.
const (
	CodeUndefinedControlSequence = "UNDEFINED_CONTROL_SEQUENCE"
	CodeMissingSource            = "MISSING_SOURCE"
	CodeMissingNumber            = "MISSING_NUMBER"
	CodeNumberTooBig             = "NUMBER_TOO_BIG"
	CodeIllegalUnit              = "ILLEGAL_UNIT"
	CodeInvalidCharacter         = "INVALID_CHARACTER"
	CodeInvalidCatcode           = "INVALID_CATCODE"
	CodeMissingEndcsname         = "MISSING_ENDCSNAME"
	CodeExtraEndcsname           = "EXTRA_ENDCSNAME"
	CodeCantUse                  = "CANT_USE"
	CodeIllegalParameter         = "ILLEGAL_PARAMETER"
	CodeDisplayMathEnd           = "DISPLAY_MATH_END"
	CodeUnclosedGroup            = "UNCLOSED_GROUP"
	CodeParagraph                = "PARAGRAPH"
	CodeShow                     = "SHOW"
	CodeInput                    = "INPUT"
)

// DiagnosticList is a DiagnosticSink that keeps every diagnostic
// and echoes it to a logger.
type DiagnosticList struct {
	logger *slog.Logger
	diags  []Diagnostic
}

// NewDiagnosticList returns an empty list. The logger may be nil.
func NewDiagnosticList(logger *slog.Logger) *DiagnosticList {
	return &DiagnosticList{logger: logger}
}

// Report implements DiagnosticSink.
func (l *DiagnosticList) Report(diag Diagnostic) {
	l.diags = append(l.diags, diag)
	if l.logger != nil {
		l.logger.Log(context.Background(), diag.Severity, diag.Message,
			"code", diag.Code,
			"source", diag.Span.Source,
			"line", diag.Span.Line,
			"column", diag.Span.Column)
	}
}

// All returns every diagnostic reported so far.
func (l *DiagnosticList) All() []Diagnostic {
	return l.diags
}

// AtLeast returns the diagnostics with severity min or higher.
func (l *DiagnosticList) AtLeast(min slog.Level) []Diagnostic {
	var list []Diagnostic
	for _, diag := range l.diags {
		if diag.Severity >= min {
			list = append(list, diag)
		}
	}
	return list
}

// HasCode reports whether a diagnostic with the given code was reported.
func (l *DiagnosticList) HasCode(code string) bool {
	for _, diag := range l.diags {
		if diag.Code == code {
			return true
		}
	}
	return false
}

// PrintDiagnostic writes the diagnostic, the source line it points at,
// and a caret under the column.
//
// Spans that cover multiple lines are printed with the first line only.
func PrintDiagnostic(w io.Writer, diag Diagnostic, src []byte) {
	// Header: file:line:column: error: message
	span := diag.Span
	_, _ = fmt.Fprintf(w, "%s:%d:%d: %s: %s\n",
		span.Source, span.Line, span.Column,
		strings.ToLower(diag.Severity.String()), diag.Message)

	if src != nil && span.Start < len(src) {
		line := findLine(src, span.Start, len(src))
		_, _ = fmt.Fprintf(w, "    %s\n", line)

		// caret underline
		caretCount := utf8.RuneCount(runePrefix(span.Column-1, line))
		_, _ = fmt.Fprintf(w, "    %s^\n", strings.Repeat(" ", caretCount))
	}

	// Notes
	for _, note := range diag.Notes {
		_, _ = fmt.Fprintf(w, "    note: %s\n", note)
	}
}

// findLine returns the line containing the start byte.
// It searches backwards from start to find the start of the line,
// then forward until it hits end, end of input, or finds a new-line.
// The returned line does not include the new-line. If there is
// no line, returns an empty slice.
func findLine(src []byte, start, end int) []byte {
	if start >= len(src) {
		return []byte{}
	}
	if end > len(src) {
		end = len(src)
	}

	lineStart := 0
	for i := start; i >= 0; i-- {
		if src[i] == '\n' && i != start {
			lineStart = i + 1
			break
		}
	}

	lineEnd := end
	for i := lineStart; i < end; i++ {
		if src[i] == '\n' {
			lineEnd = i
			break
		}
	}

	return src[lineStart:lineEnd]
}

// runePrefix returns the first n runes of b.
func runePrefix(n int, b []byte) []byte {
	offset := 0
	for n > 0 && offset < len(b) {
		// b is not empty, so DecodeRune will always return a width of 1 or more
		_, w := utf8.DecodeRune(b[offset:])
		offset += w
		n--
	}
	return b[:offset]
}
