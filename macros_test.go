// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest_test

import (
	"testing"
)

// textCase pairs an input with the text content of its document.
type textCase struct {
	input string
	want  string
}

func runTextCases(t *testing.T, cases []textCase) {
	t.Helper()
	for _, tc := range cases {
		doc, _ := mustDigest(t, tc.input)
		if got := text(doc); got != tc.want {
			t.Errorf("%q: got %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestMacros_Def(t *testing.T) {
	runTextCases(t, []textCase{
		{`\def\a{x}\a`, "x"},
		{`\def\a#1#2{#2#1}\a xy`, "yx"},
		{`\def\a#1#2{#2#1}\a{ab}{cd}`, "cdab"},
		{`\def\p#1.{[#1]}\p abc.`, "[abc]"},
		{`\def\p#1.{[#1]}\p {a.b}.`, "[a.b]"},
		{`\def\b{one}\let\a=\b\def\b{two}\a\b`, "onetwo"},
		{`{\global\def\x{in}}\x`, "in"},
		{`{\gdef\x{in}}\x`, "in"},
		{`\def\a{x}\edef\b{\a\a}\def\a{y}\b`, "xx"},
		{`\def\a{A}\edef\b{\noexpand\a x}\def\a{B}\b`, "Bx"},
		{`\def\a#1{x#1}\meaning\a`, "macro:#1->x#1"},
		{`\string\foo`, `\foo`},
		{`\def\x{y}\expandafter\string\x`, "y"},
	})
}

func TestMacros_LaTeX(t *testing.T) {
	runTextCases(t, []textCase{
		{`\newcommand{\greet}[1]{Hi #1!}\greet{Bob}`, "Hi Bob!"},
		{`\newcommand{\opt}[2][X]{(#1,#2)}\opt{a}\opt[Y]{b}`, "(X,a)(Y,b)"},
		{`\newcommand\hi{hello}\renewcommand\hi{bye}\hi`, "bye"},
	})
}

func TestMacros_Csname(t *testing.T) {
	runTextCases(t, []textCase{
		{`\def\foo{bar}\csname foo\endcsname`, "bar"},
		{`\expandafter\ifx\csname nothing\endcsname\relax yes\else no\fi`, "yes"},
		{`\expandafter\def\csname my macro\endcsname{ok}\csname my macro\endcsname`, "ok"},
	})
}

func TestMacros_Mismatch(t *testing.T) {
	_, _, err := digest(t, `\def\p#1.{#1}\p abc`)
	if err == nil {
		t.Fatalf("got nil error, want a runaway argument")
	}
}
