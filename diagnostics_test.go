// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/mdhender/texdigest"
)

func TestPrintDiagnostic(t *testing.T) {
	src := []byte("line one\nab\\foo x\n")
	diag := texdigest.Diagnostic{
		Severity: slog.LevelWarn,
		Code:     texdigest.CodeUndefinedControlSequence,
		Message:  `undefined control sequence \foo`,
		Span:     texdigest.Span{Source: "test.tex", Start: 11, End: 15, Line: 2, Column: 3},
		Notes:    []string{"define it first"},
	}
	var buf bytes.Buffer
	texdigest.PrintDiagnostic(&buf, diag, src)
	want := "test.tex:2:3: warn: undefined control sequence \\foo\n" +
		"    ab\\foo x\n" +
		"      ^\n" +
		"    note: define it first\n"
	if got := buf.String(); got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}

	// without the source only the header and notes are printed
	buf.Reset()
	diag.Notes = nil
	texdigest.PrintDiagnostic(&buf, diag, nil)
	if got, want := buf.String(), "test.tex:2:3: warn: undefined control sequence \\foo\n"; got != want {
		t.Errorf("no source: got %q, want %q", got, want)
	}
}

func TestDiagnosticList(t *testing.T) {
	l := texdigest.NewDiagnosticList(nil)
	l.Report(texdigest.Diagnostic{Severity: slog.LevelDebug, Code: texdigest.CodeParagraph})
	l.Report(texdigest.Diagnostic{Severity: slog.LevelWarn, Code: texdigest.CodeMissingNumber})
	if got := len(l.All()); got != 2 {
		t.Errorf("all: got %d, want 2", got)
	}
	if got := len(l.AtLeast(slog.LevelInfo)); got != 1 {
		t.Errorf("at least info: got %d, want 1", got)
	}
	if !l.HasCode(texdigest.CodeParagraph) || l.HasCode(texdigest.CodeShow) {
		t.Errorf("has code: got %v", l.All())
	}
}
