// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Catcode is a TeX category code. The numeric values match TeX.
type Catcode int

const (
	CatEscape      Catcode = 0
	CatBeginGroup  Catcode = 1
	CatEndGroup    Catcode = 2
	CatMathShift   Catcode = 3
	CatAlignment   Catcode = 4
	CatEndOfLine   Catcode = 5
	CatParameter   Catcode = 6
	CatSuperscript Catcode = 7
	CatSubscript   Catcode = 8
	CatIgnored     Catcode = 9
	CatSpace       Catcode = 10
	CatLetter      Catcode = 11
	CatOther       Catcode = 12
	CatActive      Catcode = 13
	CatComment     Catcode = 14
	CatInvalid     Catcode = 15

	// catNone is reported for tokens that are not characters.
	// \if and \ifcat compare it like TeX compares control sequences.
	catNone Catcode = 16
)

var catcodeNames = [...]string{
	"escape", "begin-group", "end-group", "math-shift",
	"alignment-tab", "end-of-line", "parameter", "superscript",
	"subscript", "ignored", "space", "letter",
	"other", "active", "comment", "invalid",
	"none",
}

func (cc Catcode) String() string {
	if 0 <= cc && int(cc) < len(catcodeNames) {
		return catcodeNames[cc]
	}
	return fmt.Sprintf("Catcode(%d)", int(cc))
}

// Valid reports whether cc is one of the sixteen codes a character may have.
func (cc Catcode) Valid() bool {
	return CatEscape <= cc && cc <= CatInvalid
}

// CatcodeTable maps characters to category codes.
//
// Tables are shared between scopes by reference. A scope that changes a
// code locally clones the table first, see Context.SetCatcode.
type CatcodeTable struct {
	ascii [utf8.RuneSelf]Catcode
	extra map[rune]Catcode
}

// NewCatcodeTable returns a table initialized with the plain TeX defaults.
func NewCatcodeTable() *CatcodeTable {
	t := &CatcodeTable{}
	for ch := range t.ascii {
		t.ascii[ch] = CatOther
	}
	for ch := 'a'; ch <= 'z'; ch++ {
		t.ascii[ch] = CatLetter
	}
	for ch := 'A'; ch <= 'Z'; ch++ {
		t.ascii[ch] = CatLetter
	}
	t.ascii['\\'] = CatEscape
	t.ascii['{'] = CatBeginGroup
	t.ascii['}'] = CatEndGroup
	t.ascii['$'] = CatMathShift
	t.ascii['&'] = CatAlignment
	t.ascii[LF] = CatEndOfLine
	t.ascii[CR] = CatEndOfLine
	t.ascii['#'] = CatParameter
	t.ascii['^'] = CatSuperscript
	t.ascii['_'] = CatSubscript
	t.ascii[0] = CatIgnored
	t.ascii[' '] = CatSpace
	t.ascii['\t'] = CatSpace
	t.ascii['~'] = CatActive
	t.ascii['%'] = CatComment
	t.ascii[127] = CatInvalid
	return t
}

// Get returns the category code of ch.
func (t *CatcodeTable) Get(ch rune) Catcode {
	if 0 <= ch && ch < utf8.RuneSelf {
		return t.ascii[ch]
	}
	if cc, ok := t.extra[ch]; ok {
		return cc
	}
	if unicode.IsLetter(ch) {
		return CatLetter
	}
	return CatOther
}

func (t *CatcodeTable) set(ch rune, cc Catcode) {
	if 0 <= ch && ch < utf8.RuneSelf {
		t.ascii[ch] = cc
		return
	}
	if t.extra == nil {
		t.extra = make(map[rune]Catcode)
	}
	t.extra[ch] = cc
}

func (t *CatcodeTable) clone() *CatcodeTable {
	c := &CatcodeTable{ascii: t.ascii}
	if len(t.extra) != 0 {
		c.extra = make(map[rune]Catcode, len(t.extra))
		for ch, cc := range t.extra {
			c.extra[ch] = cc
		}
	}
	return c
}
