// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Lexer invariants and coordinate system
//
// The lexer reads a stack of inputs. The innermost (last pushed) input is
// read first; when it is exhausted, reading continues with the input below.
// \input pushes a new input, \endinput marks the current one to end after
// its current line.
//
// Each input treats its data as an immutable UTF-8 byte slice.
//
//   r           - the current rune, or EOF when we have read past the end.
//                 "\r\n" (CRLF) is seen as a single "\n" rune.
//   posCurrRune - index into data of the first byte of r,
//                 or length when r == EOF.
//   posNextRune - index into data of the first byte of the *next* rune,
//                 or length when r == EOF.
//
// Invariants (must always hold):
//   0 <= posCurrRune <= posNextRune <= length
//   r == EOF  <=> posCurrRune == posNextRune == length
//
// Every input also carries TeX's reading state:
//
//   stateNewLine    - at the start of a line; blanks are skipped and an
//                     end-of-line character produces \par.
//   stateMidLine    - inside a line; an end-of-line character or the first
//                     blank produces a space token.
//   stateSkipBlanks - after a space or a control word; blanks are skipped
//                     and an end-of-line character produces nothing.
//
// Category codes are not owned by the lexer. They are looked up through a
// CatcodeSource for every character, so a \catcode change takes effect on
// the next character read.

// CatcodeSource returns the current category code of a character.
type CatcodeSource interface {
	Catcode(ch rune) Catcode
}

type lexState int

const (
	stateNewLine lexState = iota
	stateMidLine
	stateSkipBlanks
)

type input struct {
	name        string // name of the input source
	r           rune   // current rune
	line        int    // line number of current rune
	column      int    // column number of current rune
	posCurrRune int    // position of current rune
	posNextRune int    // position of next rune
	length      int    // length of input buffer
	data        []byte

	state        lexState
	endAfterLine bool

	// a token list input replays toks instead of reading data
	isTokens bool
	toks     []Token
	next     int
}

func newInput(name string, data []byte) *input {
	in := &input{
		name:   name,
		data:   data,
		length: len(data),
		line:   1,
		state:  stateNewLine,
	}
	// read the first character to initialize the input.
	in.advance()
	return in
}

type Lexer struct {
	inputs   []*input
	catcodes CatcodeSource

	// position of the last rune read, used for the end of input token
	lastPos Position

	// logging
	ctx        context.Context
	logger     *slog.Logger
	sink       DiagnosticSink
	errorCount int
	tokenCount int
}

// NewLexer returns a lexer reading input, which is named path in positions
// and diagnostics. The sink may be nil.
func NewLexer(ctx context.Context, path string, data []byte, catcodes CatcodeSource, logger *slog.Logger, sink DiagnosticSink) *Lexer {
	l := &Lexer{
		catcodes: catcodes,
		ctx:      ctx,
		logger:   logger,
		sink:     sink,
	}
	l.PushInput(path, data)
	return l
}

// PushInput switches to a nested input. Reading resumes with the current
// input once the new one is exhausted.
func (l *Lexer) PushInput(name string, data []byte) {
	l.debug("push input %q (%d bytes)", name, len(data))
	l.inputs = append(l.inputs, newInput(name, data))
}

// pushTokens makes toks the next tokens read, ahead of the current input.
// The session uses it to keep pending tokens behind a nested input.
func (l *Lexer) pushTokens(toks []Token) {
	if len(toks) == 0 {
		return
	}
	l.inputs = append(l.inputs, &input{isTokens: true, toks: toks})
}

// EndInput ends the current file input after its current line.
func (l *Lexer) EndInput() {
	for i := len(l.inputs) - 1; i >= 0; i-- {
		if !l.inputs[i].isTokens {
			l.inputs[i].endAfterLine = true
			return
		}
	}
}

// Depth returns the number of open file inputs.
func (l *Lexer) Depth() int {
	n := 0
	for _, in := range l.inputs {
		if !in.isTokens {
			n++
		}
	}
	return n
}

// ErrorCount returns the number of invalid characters seen so far.
func (l *Lexer) ErrorCount() int {
	return l.errorCount
}

func (l *Lexer) top() *input {
	if len(l.inputs) == 0 {
		return nil
	}
	return l.inputs[len(l.inputs)-1]
}

func (l *Lexer) popInput() {
	in := l.top()
	if in == nil {
		return
	}
	if !in.isTokens {
		l.debug("pop input %q", in.name)
	}
	l.inputs[len(l.inputs)-1] = nil
	l.inputs = l.inputs[:len(l.inputs)-1]
}

// NextToken returns the next token from the input stack.
//
// Once we reach end of input, we always return an EndOfInput token.
func (l *Lexer) NextToken() Token {
	for {
		in := l.top()
		if in == nil {
			return Token{Position: l.lastPos, Kind: EndOfInput, Catcode: catNone}
		}
		if in.isTokens {
			if in.next < len(in.toks) {
				tok := in.toks[in.next]
				in.next++
				return tok
			}
			l.popInput()
			continue
		}
		if in.iseof() {
			l.lastPos = in.position()
			l.popInput()
			continue
		}

		pos := in.position()
		l.lastPos = pos
		ch := l.readChar(in)
		cc := l.catcodes.Catcode(ch)

		switch cc {
		case CatEscape:
			l.tokenCount++
			return l.scanControlSequence(in, pos)
		case CatEndOfLine:
			state := in.state
			in.state = stateNewLine
			if in.endAfterLine {
				l.popInput()
			}
			switch state {
			case stateNewLine:
				l.tokenCount++
				return csToken("par", pos)
			case stateMidLine:
				l.tokenCount++
				return charToken(' ', CatSpace, pos)
			}
			continue
		case CatSpace:
			if in.state == stateMidLine {
				in.state = stateSkipBlanks
				l.tokenCount++
				return charToken(' ', CatSpace, pos)
			}
			continue
		case CatComment:
			in.skipLine()
			in.state = stateNewLine
			if in.endAfterLine {
				l.popInput()
			}
			continue
		case CatIgnored:
			continue
		case CatInvalid:
			l.error(pos, "text line contains an invalid character %q", ch)
			continue
		case CatActive:
			in.state = stateMidLine
			l.tokenCount++
			return Token{Position: pos, Kind: ActiveChar, Char: ch, Catcode: catNone}
		}

		in.state = stateMidLine
		l.tokenCount++
		return charToken(ch, cc, pos)
	}
}

// scanControlSequence reads the name after an escape character.
// A run of letters forms a control word and puts the input into
// stateSkipBlanks; any other single character forms a control symbol.
func (l *Lexer) scanControlSequence(in *input, pos Position) Token {
	if in.iseof() {
		in.state = stateMidLine
		return csToken("", pos)
	}
	if l.catcodes.Catcode(in.peekChar()) == CatLetter {
		var sb strings.Builder
		for !in.iseof() && l.catcodes.Catcode(in.peekChar()) == CatLetter {
			sb.WriteRune(in.peekChar())
			in.advance()
		}
		in.state = stateSkipBlanks
		return csToken(sb.String(), pos)
	}

	ch := l.readChar(in)
	if ch == LF {
		// a backslash at the end of a line is a control space
		in.state = stateNewLine
		if in.endAfterLine {
			l.popInput()
		}
		return csToken(" ", pos)
	}
	if l.catcodes.Catcode(ch) == CatSpace {
		in.state = stateSkipBlanks
	} else {
		in.state = stateMidLine
	}
	return csToken(string(ch), pos)
}

// readChar consumes the current character and returns it,
// decoding TeX's ^^ notation: ^^ followed by two lower case hex digits is
// that character code, ^^ followed by any other ASCII character c is c+64
// or c-64.
func (l *Lexer) readChar(in *input) rune {
	ch := in.peekChar()
	in.advance()
	if l.catcodes.Catcode(ch) != CatSuperscript || in.peekChar() != ch {
		return ch
	}
	c1 := in.peekCharN(1)
	if c1 == EOF || c1 == LF || c1 >= utf8.RuneSelf {
		return ch
	}
	if c2 := in.peekCharN(2); isTeXHexPair(c1) && isTeXHexPair(c2) {
		in.advance()
		in.advance()
		in.advance()
		return rune(hexval(c1)*16 + hexval(c2))
	}
	in.advance()
	in.advance()
	if c1 < 64 {
		return c1 + 64
	}
	return c1 - 64
}

// peekChar returns the current character without advancing the input.
func (in *input) peekChar() rune {
	return in.r
}

// peekCharN returns the nth character without advancing the input.
// peekCharN(0) is the same as peekChar().
func (in *input) peekCharN(numberOfChars int) rune {
	if numberOfChars < 0 {
		panic("assert(numberOfChars >= 0)")
	}
	ch := in.r

	posPeekRune := in.posNextRune
	for numberOfChars > 0 && posPeekRune < in.length {
		r, w := rune(in.data[posPeekRune]), 1
		if r == LF {
			ch, w = LF, 1
		} else if r == CR && posPeekRune+1 < in.length && rune(in.data[posPeekRune+1]) == LF {
			ch, w = LF, 2
		} else if r >= utf8.RuneSelf {
			// The current rune is not actually ASCII, so we have to decode it properly.
			ch, w = utf8.DecodeRune(in.data[posPeekRune:])
		} else {
			ch = r
		}
		posPeekRune += w
		numberOfChars--
	}

	if numberOfChars > 0 {
		// we reached end of input before peeking the requested number of characters
		ch = EOF
	}

	return ch
}

// advance moves to the next rune and updates line/col.
// It normalizes "\r\n" into a single LF rune.
// On end of input, it sets r == EOF and both positions to length and returns.
func (in *input) advance() {
	// already at or past the end?
	if in.posNextRune >= in.length {
		// do we need to update the last rune's location?
		if in.r == LF {
			in.line++
			in.column = 1
		} else if in.r != EOF {
			in.column++
		}
		in.posCurrRune, in.posNextRune = in.length, in.length
		in.r = EOF
		return
	}

	// update line/col wrt the *current* rune before stepping
	if in.r == LF {
		in.line++
		in.column = 1
	} else {
		in.column++
	}

	in.posCurrRune = in.posNextRune

	// read the next rune, optimizing for ASCII input.
	r, w := rune(in.data[in.posCurrRune]), 1
	if r == LF {
		r, w = LF, 1
	} else if r == CR && in.posCurrRune+1 < in.length && rune(in.data[in.posCurrRune+1]) == LF {
		// merge CR+LF into a single LF rune, but consume both bytes
		r, w = LF, 2
	} else if r >= utf8.RuneSelf {
		// the current rune must be decoded
		r, w = utf8.DecodeRune(in.data[in.posCurrRune:])
	}
	in.posNextRune = in.posCurrRune + w
	in.r = r
}

// skipLine discards the rest of the line, including the line end.
func (in *input) skipLine() {
	for !in.iseof() && in.peekChar() != LF {
		in.advance()
	}
	if !in.iseof() {
		in.advance()
	}
}

func (in *input) iseof() bool {
	return in.r == EOF
}

func (in *input) position() Position {
	return Position{
		Source: in.name,
		Line:   in.line,
		Column: in.column,
		Start:  in.posCurrRune,
	}
}

func (l *Lexer) debug(format string, args ...any) {
	if l.logger == nil {
		return
	}
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *Lexer) error(pos Position, format string, args ...any) {
	l.errorCount++
	msg := fmt.Sprintf(format, args...)
	if l.sink != nil {
		l.sink.Report(Diagnostic{
			Severity: slog.LevelWarn,
			Code:     CodeInvalidCharacter,
			Message:  msg,
			Span:     spanFromPosition(pos),
		})
	}
	if l.logger != nil {
		l.logger.Warn(fmt.Sprintf("%s %s", pos, msg))
	}
}
