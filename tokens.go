// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

import (
	"strconv"
	"strings"
)

// Token represents a single lexical token from the input.
//
// Tokens are values. They are copied freely, pushed back onto the input,
// stored in macro bodies, and compared with Equal, which ignores position.
type Token struct {
	Position

	Kind Kind

	// Char is the character for CharToken and ActiveChar,
	// and the parameter digit ('1'..'9') for ParamRef.
	Char rune

	// Catcode is the category code of a CharToken at the time it was read.
	// It is catNone for every other kind.
	Catcode Catcode

	// Name is the name of a ControlSequence without the escape character.
	Name string

	// NoExpand is set by \noexpand. The token is not expanded again and
	// acts like \relax when it reaches the command loop.
	NoExpand bool

	marker int // identifies the closer of a Marker token
}

// Position represents a position in the original source code.
// All fields are 1-based where applicable.
type Position struct {
	Source string // name of the input the token was read from
	Line   int    // 1-based
	Column int    // 1-based, character column
	Start  int    // byte index into input (0-based)
}

func (p Position) String() string {
	return p.Source + ":" + strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// Span represents a range in the source: [Start, End).
type Span struct {
	Source string

	// Byte offsets into the original input slice.
	// End is exclusive.
	Start int
	End   int

	// 1-based line and column of the *start* of the span.
	Line   int
	Column int
}

// spanFromToken creates a Span that covers a single token.
func spanFromToken(tok Token) Span {
	return spanFromPosition(tok.Position)
}

func spanFromPosition(pos Position) Span {
	return Span{
		Source: pos.Source,
		Start:  pos.Start,
		End:    pos.Start,
		Line:   pos.Line,
		Column: pos.Column,
	}
}

func charToken(ch rune, cc Catcode, pos Position) Token {
	return Token{Position: pos, Kind: CharToken, Char: ch, Catcode: cc}
}

func csToken(name string, pos Position) Token {
	return Token{Position: pos, Kind: ControlSequence, Name: name, Catcode: catNone}
}

// Is reports whether tok.Kind matches the provided kind.
func (tok Token) Is(kind Kind) bool {
	return tok.Kind == kind
}

// IsOneOf reports whether tok.Kind matches any of the provided kinds.
func (tok Token) IsOneOf(kinds ...Kind) bool {
	for _, kind := range kinds {
		if tok.Kind == kind {
			return true
		}
	}
	return false
}

// IsCommand reports whether the token is looked up in the Context,
// which is true for control sequences and active characters.
func (tok Token) IsCommand() bool {
	return tok.Kind == ControlSequence || tok.Kind == ActiveChar
}

// IsChar reports whether the token is a character with the given catcode.
func (tok Token) IsChar(cc Catcode) bool {
	return tok.Kind == CharToken && tok.Catcode == cc
}

// IsOther reports whether the token is the character ch with catcode other.
func (tok Token) IsOther(ch rune) bool {
	return tok.Kind == CharToken && tok.Catcode == CatOther && tok.Char == ch
}

// Key returns the name the token is bound under in the Context.
// Active characters share the namespace of control sequences, using the
// "active::" prefix so that they never collide with a name a user can type.
func (tok Token) Key() string {
	switch tok.Kind {
	case ControlSequence:
		return tok.Name
	case ActiveChar:
		return ActiveKey(tok.Char)
	}
	return ""
}

// ActiveKey returns the key an active character is bound under.
func ActiveKey(ch rune) string {
	return "active::" + string(ch)
}

// Equal compares kind and identity, ignoring position and the NoExpand flag.
func (tok Token) Equal(other Token) bool {
	if tok.Kind != other.Kind {
		return false
	}
	switch tok.Kind {
	case CharToken:
		return tok.Char == other.Char && tok.Catcode == other.Catcode
	case ControlSequence:
		return tok.Name == other.Name
	case ActiveChar, ParamRef:
		return tok.Char == other.Char
	case Marker:
		return tok.marker == other.marker
	}
	return true
}

// Text returns the textual form of the token: the character for
// characters, the escaped name for control sequences.
func (tok Token) Text() string {
	switch tok.Kind {
	case CharToken, ActiveChar:
		return string(tok.Char)
	case ControlSequence:
		return "\\" + tok.Name
	case ParamRef:
		return "#" + string(tok.Char)
	}
	return ""
}

// isControlWord reports whether the token is a control sequence whose name
// is made of letters, which is when TeX prints a space after it.
func (tok Token) isControlWord() bool {
	if tok.Kind != ControlSequence || tok.Name == "" {
		return false
	}
	for _, ch := range tok.Name {
		if !('a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '@') {
			return false
		}
	}
	return true
}

func (tok Token) String() string {
	switch tok.Kind {
	case CharToken:
		return strconv.QuoteRune(tok.Char) + "(" + tok.Catcode.String() + ")"
	case EndOfInput:
		return "<end of input>"
	case Marker:
		return "<marker " + strconv.Itoa(tok.marker) + ">"
	}
	return tok.Text()
}

// MarshalText lets tokens stored in node attributes serialize as source text.
func (tok Token) MarshalText() ([]byte, error) {
	return []byte(tok.Text()), nil
}

// TokenList is a sequence of tokens, such as a macro body or an argument.
type TokenList []Token

// String returns the source form of the list, with a space after a control
// word when the next token is a letter.
func (toks TokenList) String() string {
	var sb strings.Builder
	for i, tok := range toks {
		sb.WriteString(tok.Text())
		if tok.isControlWord() && i+1 < len(toks) && toks[i+1].IsChar(CatLetter) {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// MarshalText lets token lists stored in node attributes serialize as source text.
func (toks TokenList) MarshalText() ([]byte, error) {
	return []byte(toks.String()), nil
}

// Equal compares two lists token by token.
func (toks TokenList) Equal(other TokenList) bool {
	if len(toks) != len(other) {
		return false
	}
	for i := range toks {
		if !toks[i].Equal(other[i]) {
			return false
		}
	}
	return true
}
