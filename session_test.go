// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mdhender/texdigest"
)

// digest runs a session over input and returns the document, the
// diagnostics and the error that stopped the pass, if any.
func digest(t *testing.T, input string, options ...texdigest.Option) (*texdigest.Document, *texdigest.DiagnosticList, error) {
	t.Helper()
	diags := texdigest.NewDiagnosticList(nil)
	options = append([]texdigest.Option{
		texdigest.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		texdigest.WithDiagnosticSink(diags),
	}, options...)
	s, err := texdigest.NewSession(context.Background(), "test.tex", []byte(input), options...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	doc, err := s.Parse()
	return doc, diags, err
}

// mustDigest is digest for input that must not fail.
func mustDigest(t *testing.T, input string, options ...texdigest.Option) (*texdigest.Document, *texdigest.DiagnosticList) {
	t.Helper()
	doc, diags, err := digest(t, input, options...)
	if err != nil {
		t.Fatalf("%q: parse: %v", input, err)
	}
	return doc, diags
}

func outline(doc *texdigest.Document) string {
	return doc.Outline(doc.Root())
}

func text(doc *texdigest.Document) string {
	return doc.TextContent(doc.Root())
}

func TestDigest_Outline(t *testing.T) {
	for _, tc := range []struct {
		id    int
		input string
		want  string
	}{
		{1, "Hello, world!", `(document (par "Hello, world!"))`},
		{2, `a\par b`, `(document (par "a") (par "b"))`},
		{3, "a\n\nb", `(document (par "a ") (par "b"))`},
		{4, "  \n\n  ", `(document)`},
		{5, `$x$`, `(document (par (math "x")))`},
		{6, `$$x$$`, `(document (par (displaymath "x")))`},
		{7, `$x$$y$`, `(document (par (math "x") (math "y")))`},
		{8, `$x^2$`, `(document (par (math "x" (superscript "2"))))`},
		{9, `$x_{ab}$`, `(document (par (math "x" (subscript "ab"))))`},
		{10, `a \over b`, `(document (par (over (numer "a ") (denom "b"))))`},
		{11, `{a \over b}`, `(document (par (group (over (numer "a ") (denom "b")))))`},
		{12, `\def\x{out}{\def\x{in}\x}\x`, `(document (par (group "in") "out"))`},
		{13, `\textbf{bold} text`, `(document (par (textbf "bold") " text"))`},
		{14, `$a\hbox{b $c$}$`, `(document (par (math "a" (hbox "b " (math "c")))))`},
		{15, `\begin{itemize}\item one\item two\end{itemize}`, `(document (itemize (item) (par "one") (item) (par "two")))`},
		{16, `\newenvironment{wrap}{[}{]}\begin{wrap}x\end{wrap}`, `(document (wrap (par "[x]")))`},
		{17, `$\ifmmode m\else t\fi$ \ifmmode m\else t\fi`, `(document (par (math "m") " t"))`},
	} {
		doc, _ := mustDigest(t, tc.input)
		if got := outline(doc); got != tc.want {
			t.Errorf("%d: %q\n got %s\nwant %s", tc.id, tc.input, got, tc.want)
		}
	}
}

func TestDigest_Section(t *testing.T) {
	doc, _ := mustDigest(t, `\section{Intro}Text`)
	if got, want := outline(doc), `(document (section) (par "Text"))`; got != want {
		t.Fatalf("outline: got %s, want %s", got, want)
	}
	section := doc.Children(doc.Root())[0]
	if got, want := doc.Level(section), texdigest.LevelSection; got != want {
		t.Errorf("level: got %d, want %d", got, want)
	}
	title, ok := doc.Attr(section, "title")
	if !ok {
		t.Fatalf("title: not set")
	}
	if got, want := title, "Intro"; got != want {
		t.Errorf("title: got %v, want %q", got, want)
	}
	if star, _ := doc.Attr(section, "star"); star != false {
		t.Errorf("star: got %v, want false", star)
	}
}

func TestDigest_JSON(t *testing.T) {
	doc, _ := mustDigest(t, `\section*{A}b`)
	data, err := doc.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"name":"document","children":[{"name":"section","attrs":{"star":true,"title":"A"}},{"name":"par","children":[{"text":"b"}]}]}`
	if got := string(data); got != want {
		t.Errorf("json:\n got %s\nwant %s", got, want)
	}
}

func TestDigest_StructuralErrors(t *testing.T) {
	for _, tc := range []struct {
		id    int
		input string
		code  string
	}{
		{1, `a\else b`, texdigest.ErrCodeUnmatchedElse},
		{2, `\fi`, texdigest.ErrCodeUnmatchedFi},
		{3, `\or`, texdigest.ErrCodeExtraOr},
		{4, `a}`, texdigest.ErrCodeExtraEndGroup},
		{5, `\begingroup}`, texdigest.ErrCodeMismatchedGroup},
		{6, `\begin{itemize}x\end{enumerate}`, texdigest.ErrCodeMismatchedGroup},
		{7, `\iffalse abc`, texdigest.ErrCodeIncompleteIf},
		{8, `\ifnum 1 ! 2\fi`, texdigest.ErrCodeInvalidRelation},
		{9, `\def\a#1{#1}\a`, texdigest.ErrCodeRunaway},
		{10, `\def\a.#1{#1}\a x`, texdigest.ErrCodeMacroMismatch},
		{11, `\textbf{abc`, texdigest.ErrCodeUnterminatedGroup},
	} {
		_, diags, err := digest(t, tc.input)
		if err == nil {
			t.Errorf("%d: %q: expected error", tc.id, tc.input)
			continue
		}
		var se *texdigest.StructuralError
		if !errors.As(err, &se) {
			t.Errorf("%d: %q: got %T, want *StructuralError", tc.id, tc.input, err)
		}
		if got := texdigest.ErrorCode(err); got != tc.code {
			t.Errorf("%d: %q: code: got %q, want %q", tc.id, tc.input, got, tc.code)
		}
		if !diags.HasCode(tc.code) {
			t.Errorf("%d: %q: error was not reported to the sink", tc.id, tc.input)
		}
	}
}

func TestDigest_PartialDocument(t *testing.T) {
	doc, _, err := digest(t, `a}`)
	if err == nil {
		t.Fatalf("expected error")
	}
	if got, want := outline(doc), `(document (par "a"))`; got != want {
		t.Errorf("outline: got %s, want %s", got, want)
	}
}

func TestDigest_Warnings(t *testing.T) {
	for _, tc := range []struct {
		id    int
		input string
		code  string
		text  string
	}{
		{1, `a\undefined b`, texdigest.CodeUndefinedControlSequence, "ab"},
		{2, `{a`, texdigest.CodeUnclosedGroup, "a"},
		{3, `\iftrue abc`, texdigest.ErrCodeIncompleteIf, "abc"},
		{4, `$a`, texdigest.CodeUnclosedGroup, "a"},
		{5, `$$a$ b`, texdigest.CodeDisplayMathEnd, "a b"},
		{6, `\input{x}y`, texdigest.CodeMissingSource, "y"},
		{7, `\endcsname z`, texdigest.CodeExtraEndcsname, "z"},
		{8, `\catcode 65=16 q`, texdigest.CodeInvalidCatcode, "q"},
		{9, "a\x7fb", texdigest.CodeInvalidCharacter, "ab"},
	} {
		doc, diags := mustDigest(t, tc.input)
		if !diags.HasCode(tc.code) {
			t.Errorf("%d: %q: missing diagnostic %s", tc.id, tc.input, tc.code)
		}
		if got := text(doc); got != tc.text {
			t.Errorf("%d: %q: text: got %q, want %q", tc.id, tc.input, got, tc.text)
		}
	}
}

func TestDigest_Limits(t *testing.T) {
	for _, tc := range []struct {
		id     int
		input  string
		option texdigest.Option
		code   string
	}{
		{1, `\def\a{\a}\a`, texdigest.WithMaxExpansions(50), texdigest.ErrCodeExpansionLimit},
		{2, `\def\a{\number\a}\a`, texdigest.WithMaxDepth(20), texdigest.ErrCodeDepthLimit},
		{3, `\def\a{\a x}\a`, texdigest.WithMaxPending(100), texdigest.ErrCodePendingLimit},
		{4, `\def\r{{\r}}\r`, texdigest.WithMaxGroupDepth(20), texdigest.ErrCodeGroupLimit},
		{5, `\def\r{\begingroup\r}\r`, texdigest.WithMaxGroupDepth(20), texdigest.ErrCodeGroupLimit},
		{6, `\def\r{\iftrue\r}\r`, texdigest.WithMaxGroupDepth(20), texdigest.ErrCodeGroupLimit},
		{7, `\def\r{\hbox{\r}}\r`, texdigest.WithMaxGroupDepth(20), texdigest.ErrCodeGroupLimit},
		{8, `\def\r{\begin{x}\r}\r`, texdigest.WithMaxGroupDepth(20), texdigest.ErrCodeGroupLimit},
		{9, `\def\r{{\r}}\r`, texdigest.WithMaxGroupDepth(texdigest.DefaultMaxGroupDepth), texdigest.ErrCodeGroupLimit},
	} {
		_, _, err := digest(t, tc.input, tc.option)
		if err == nil {
			t.Errorf("%d: %q: expected error", tc.id, tc.input)
			continue
		}
		var le *texdigest.LimitError
		if !errors.As(err, &le) {
			t.Errorf("%d: %q: got %T, want *LimitError", tc.id, tc.input, err)
		}
		if got := texdigest.ErrorCode(err); got != tc.code {
			t.Errorf("%d: %q: code: got %q, want %q", tc.id, tc.input, got, tc.code)
		}
	}
}

func TestDigest_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := texdigest.NewSession(ctx, "test.tex", []byte("abc"), texdigest.WithDiagnosticSink(texdigest.NewDiagnosticList(nil)))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	_, err = s.Parse()
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("parse: got %v, want context.Canceled", err)
	}
	if got, want := texdigest.ErrorCode(err), texdigest.ErrCodeCanceled; got != want {
		t.Errorf("code: got %q, want %q", got, want)
	}
}

func TestDigest_Deadline(t *testing.T) {
	// the loop never reads the lexer and never grows the pending queue
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s, err := texdigest.NewSession(ctx, "test.tex", []byte(`\def\r{x\r}\r`),
		texdigest.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		texdigest.WithDiagnosticSink(texdigest.NewDiagnosticList(nil)))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	_, err = s.Parse()
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("parse: got %v, want context.DeadlineExceeded", err)
	}
	if got, want := texdigest.ErrorCode(err), texdigest.ErrCodeCanceled; got != want {
		t.Errorf("code: got %q, want %q", got, want)
	}
}

func TestDigest_LongTextRun(t *testing.T) {
	input := strings.Repeat("a", 10000)
	doc, _ := mustDigest(t, input)
	if got := text(doc); got != input {
		t.Errorf("got %d characters, want %d", len(got), len(input))
	}
}

func TestDigest_IndependentSessions(t *testing.T) {
	first, _ := mustDigest(t, `\gdef\x{one}\x`)
	second, diags := mustDigest(t, `\x`)
	if got, want := text(first), "one"; got != want {
		t.Errorf("first: got %q, want %q", got, want)
	}
	if got := text(second); got != "" {
		t.Errorf("second: got %q, want empty", got)
	}
	if !diags.HasCode(texdigest.CodeUndefinedControlSequence) {
		t.Errorf("second: definition leaked between sessions")
	}
}

func TestNewSession_Options(t *testing.T) {
	for _, tc := range []struct {
		id     int
		option texdigest.Option
	}{
		{1, texdigest.WithMaxDepth(0)},
		{2, texdigest.WithMaxExpansions(0)},
		{3, texdigest.WithMaxPending(-1)},
		{4, texdigest.WithMaxInputDepth(0)},
		{7, texdigest.WithMaxGroupDepth(0)},
		{5, texdigest.WithDiagnosticSink(nil)},
		{6, texdigest.WithRegistry(nil)},
	} {
		if _, err := texdigest.NewSession(context.Background(), "test.tex", nil, tc.option); err == nil {
			t.Errorf("%d: expected error", tc.id)
		}
	}
}

func TestSession_Diagnostics(t *testing.T) {
	s, err := texdigest.NewSession(context.Background(), "test.tex", []byte(`\nope`),
		texdigest.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, err := s.Parse(); err != nil {
		t.Fatalf("parse: %v", err)
	}
	diags := s.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("diagnostics: got %d, want 1", len(diags))
	}
	if got, want := diags[0].Code, texdigest.CodeUndefinedControlSequence; got != want {
		t.Errorf("code: got %q, want %q", got, want)
	}
	if got, want := diags[0].Span.Line, 1; got != want {
		t.Errorf("line: got %d, want %d", got, want)
	}
	if got, want := diags[0].Span.Column, 1; got != want {
		t.Errorf("column: got %d, want %d", got, want)
	}
}

func TestRegistry_Custom(t *testing.T) {
	r, err := texdigest.NewRegistry(
		&texdigest.Command{Name: "hello", Text: "hi"},
		&texdigest.Command{Name: "note", Signature: "[kind] body:content", Block: true},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if got, want := r.Len(), 2; got != want {
		t.Fatalf("len: got %d, want %d", got, want)
	}
	doc, diags := mustDigest(t, `\hello\note[tip]{x}\textbf{y}`, texdigest.WithRegistry(r))
	if got, want := outline(doc), `(document (par "hi") (note (par "x")) (par "y"))`; got != want {
		t.Errorf("outline: got %s, want %s", got, want)
	}
	// the default leaves are replaced, not merged
	if !diags.HasCode(texdigest.CodeUndefinedControlSequence) {
		t.Errorf("textbf: expected undefined control sequence")
	}
}

func TestRegistry_BadSignature(t *testing.T) {
	for _, tc := range []struct {
		id  int
		cmd *texdigest.Command
	}{
		{1, &texdigest.Command{Name: "a", Signature: "x:Bogus"}},
		{2, &texdigest.Command{Name: "b", Signature: "body:content title:str"}},
		{3, &texdigest.Command{Name: "c", Signature: "[]"}},
		{4, &texdigest.Command{Signature: ""}},
	} {
		if _, err := texdigest.NewRegistry(tc.cmd); err == nil {
			t.Errorf("%d: expected error", tc.id)
		}
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := texdigest.DefaultRegistry()
	for _, name := range []string{"textbf", "section", "item", "itemize", texdigest.ActiveKey('~')} {
		if _, ok := r.Lookup(name); !ok {
			t.Errorf("%q: not registered", name)
		}
	}
	doc, _ := mustDigest(t, `a~b`)
	if got, want := text(doc), "a\u00a0b"; got != want {
		t.Errorf("tie: got %q, want %q", got, want)
	}
}
