// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

import (
	"fmt"
	"strings"
)

// ArgType is the type of one parameter in a command signature.
type ArgType int

const (
	ArgAny     ArgType = iota // a braced group or a single token, unexpanded
	ArgTok                    // one raw token
	ArgXTok                   // one expanded token
	ArgNumber                 // an integer
	ArgDimen                  // a dimension
	ArgGlue                   // a dimension with optional plus and minus parts
	ArgStr                    // a group or token, expanded and returned as text
	ArgCS                     // a control sequence
	ArgNox                    // a braced group, unexpanded
	ArgArgs                   // the parameter text of a macro definition
	ArgContent                // a braced group digested into the command's node
)

var argTypes = map[string]ArgType{
	"any":     ArgAny,
	"Tok":     ArgTok,
	"XTok":    ArgXTok,
	"Number":  ArgNumber,
	"Dimen":   ArgDimen,
	"Glue":    ArgGlue,
	"str":     ArgStr,
	"cs":      ArgCS,
	"nox":     ArgNox,
	"Args":    ArgArgs,
	"content": ArgContent,
}

func (t ArgType) String() string {
	for name, typ := range argTypes {
		if typ == t {
			return name
		}
	}
	return fmt.Sprintf("ArgType(%d)", int(t))
}

// Param is one element of a signature: a named parameter, an optional
// bracketed parameter, a star, or a keyword that is matched and dropped.
type Param struct {
	Name     string
	Type     ArgType
	Optional bool   // [name]
	Star     bool   // *name
	Keyword  string // set for literal words such as "=" or "by"
}

// Signature is the parsed form of a signature string.
type Signature []Param

// ParseSignature parses a signature string such as
//
//	"name:Tok args:Args definition:nox"
//	"char:Number = code:Number"
//	"*modifier [options] name:str"
//
// A word with a colon is a parameter with a type, a word in brackets is an
// optional argument, a word starting with * is a star flag, and any other
// word is a keyword. A parameter without a type is of type any.
func ParseSignature(sig string) (Signature, error) {
	var params Signature
	for _, word := range strings.Fields(sig) {
		switch {
		case strings.HasPrefix(word, "[") && strings.HasSuffix(word, "]"):
			name := strings.TrimSuffix(strings.TrimPrefix(word, "["), "]")
			if name == "" {
				return nil, fmt.Errorf("signature %q: empty optional parameter", sig)
			}
			params = append(params, Param{Name: name, Type: ArgNox, Optional: true})
		case strings.HasPrefix(word, "*"):
			name := strings.TrimPrefix(word, "*")
			if name == "" {
				name = "star"
			}
			params = append(params, Param{Name: name, Star: true})
		case strings.Contains(word, ":"):
			name, typeName, _ := strings.Cut(word, ":")
			typ, ok := argTypes[typeName]
			if name == "" || !ok {
				return nil, fmt.Errorf("signature %q: bad parameter %q", sig, word)
			}
			params = append(params, Param{Name: name, Type: typ})
		default:
			params = append(params, Param{Keyword: word})
		}
	}
	for i, p := range params {
		if p.Type == ArgContent && i != len(params)-1 {
			return nil, fmt.Errorf("signature %q: %s:content must be the last parameter", sig, p.Name)
		}
	}
	return params, nil
}

// content returns the content parameter, if the signature has one.
func (sig Signature) content() (Param, bool) {
	if n := len(sig); n > 0 && sig[n-1].Type == ArgContent {
		return sig[n-1], true
	}
	return Param{}, false
}

// Arguments maps parameter names to parsed values:
// Token for Tok, XTok and cs, int for Number, Dimen, Glue,
// string for str, bool for stars and TokenList for the rest.
// Optional arguments that were not given are absent.
type Arguments map[string]any

// Has reports whether the argument is present.
func (a Arguments) Has(name string) bool {
	_, ok := a[name]
	return ok
}

func (a Arguments) Int(name string) int {
	v, _ := a[name].(int)
	return v
}

func (a Arguments) Dimen(name string) Dimen {
	v, _ := a[name].(Dimen)
	return v
}

func (a Arguments) Glue(name string) Glue {
	v, _ := a[name].(Glue)
	return v
}

func (a Arguments) Token(name string) Token {
	v, _ := a[name].(Token)
	return v
}

func (a Arguments) Tokens(name string) TokenList {
	v, _ := a[name].(TokenList)
	return v
}

func (a Arguments) Bool(name string) bool {
	v, _ := a[name].(bool)
	return v
}

// String returns str arguments as they are and the source text of token
// arguments.
func (a Arguments) String(name string) string {
	switch v := a[name].(type) {
	case string:
		return v
	case TokenList:
		return v.String()
	case Token:
		return v.Text()
	case fmt.Stringer:
		return v.String()
	case int:
		return fmt.Sprint(v)
	}
	return ""
}

// parseArgs reads the arguments of owner according to sig.
func (s *Session) parseArgs(owner Token, sig Signature) (Arguments, error) {
	args := make(Arguments, len(sig))
	for _, p := range sig {
		var v any
		var err error
		switch {
		case p.Keyword != "":
			_, err = s.scanKeyword(p.Keyword)
			if err != nil {
				return args, err
			}
			continue
		case p.Star:
			var star bool
			star, err = s.scanStar()
			v = star
		case p.Optional:
			var opt TokenList
			var ok bool
			opt, ok, err = s.readBracketed()
			if err != nil {
				return args, err
			}
			if !ok {
				continue
			}
			v = opt
		default:
			v, err = s.readArg(owner, p.Type)
		}
		if err != nil {
			return args, err
		}
		args[p.Name] = v
	}
	return args, nil
}

func (s *Session) readArg(owner Token, typ ArgType) (any, error) {
	switch typ {
	case ArgTok:
		tok, err := s.nextRawNonSpace()
		if err == nil && tok.Kind == EndOfInput {
			err = structural(ErrCodeRunaway, owner.Position, "file ended while scanning use of %s", owner.Text())
		}
		return tok, err
	case ArgXTok:
		return s.nextExpandedNonSpace()
	case ArgNumber:
		return s.scanInt()
	case ArgDimen:
		return s.scanDimen()
	case ArgGlue:
		return s.scanGlue()
	case ArgStr:
		toks, err := s.readGroupOrToken(owner)
		if err != nil {
			return "", err
		}
		toks, err = s.expandTokens(toks)
		return toks.String(), err
	case ArgCS:
		return s.readControlSequence(owner)
	case ArgArgs:
		return s.readParamText(owner)
	}
	return s.readGroupOrToken(owner)
}

// readGroupOrToken reads a braced group without its braces,
// or a single token, skipping spaces.
func (s *Session) readGroupOrToken(owner Token) (TokenList, error) {
	tok, err := s.nextRawNonSpace()
	if err != nil {
		return nil, err
	}
	switch {
	case tok.Kind == EndOfInput:
		return nil, structural(ErrCodeRunaway, owner.Position, "file ended while scanning use of %s", owner.Text())
	case tok.IsChar(CatBeginGroup):
		return s.readGroupRaw(tok)
	}
	return TokenList{tok}, nil
}

// readGroupRaw reads the balanced tokens after open, up to and including
// the matching closing brace, and returns them without the braces.
func (s *Session) readGroupRaw(open Token) (TokenList, error) {
	var toks TokenList
	depth := 1
	for {
		tok, err := s.nextRaw()
		if err != nil {
			return toks, err
		}
		switch {
		case tok.Kind == EndOfInput:
			return toks, structural(ErrCodeUnterminatedGroup, open.Position, "unterminated group")
		case tok.IsChar(CatBeginGroup):
			depth++
		case tok.IsChar(CatEndGroup):
			depth--
			if depth == 0 {
				return toks, nil
			}
		}
		toks = append(toks, tok)
	}
}

// readBracketed reads a [bracketed] argument. ok is false, and nothing is
// consumed except spaces, when the next token is not an opening bracket.
func (s *Session) readBracketed() (toks TokenList, ok bool, err error) {
	open, err := s.nextRawNonSpace()
	if err != nil {
		return nil, false, err
	}
	if !open.IsOther('[') {
		return nil, false, s.pushFront(open)
	}
	depth := 0
	for {
		tok, err := s.nextRaw()
		if err != nil {
			return toks, true, err
		}
		switch {
		case tok.Kind == EndOfInput:
			return toks, true, structural(ErrCodeRunaway, open.Position, "file ended while scanning an optional argument")
		case tok.IsChar(CatBeginGroup):
			depth++
		case tok.IsChar(CatEndGroup):
			depth--
		case depth == 0 && tok.IsOther(']'):
			return stripBraces(toks), true, nil
		}
		toks = append(toks, tok)
	}
}

// scanStar consumes a * if it is the next token.
func (s *Session) scanStar() (bool, error) {
	tok, err := s.nextRawNonSpace()
	if err != nil {
		return false, err
	}
	if tok.IsOther('*') {
		return true, nil
	}
	return false, s.pushFront(tok)
}

// readControlSequence reads a control sequence or active character,
// unwrapping {\name}.
func (s *Session) readControlSequence(owner Token) (Token, error) {
	tok, err := s.nextRawNonSpace()
	if err != nil {
		return tok, err
	}
	if tok.IsChar(CatBeginGroup) {
		toks, err := s.readGroupRaw(tok)
		if err != nil {
			return tok, err
		}
		for _, t := range toks {
			if t.IsCommand() {
				return t, nil
			}
		}
		return tok, nil
	}
	if tok.Kind == EndOfInput {
		return tok, structural(ErrCodeRunaway, owner.Position, "file ended while scanning use of %s", owner.Text())
	}
	if !tok.IsCommand() {
		s.warn(CodeCantUse, tok.Position, "missing control sequence after %s", owner.Text())
	}
	return tok, nil
}

// readParamText reads the parameter text of a definition, the raw tokens
// before the opening brace of the body. The brace is left in the input.
func (s *Session) readParamText(owner Token) (TokenList, error) {
	var toks TokenList
	for {
		tok, err := s.nextRaw()
		if err != nil {
			return toks, err
		}
		switch {
		case tok.Kind == EndOfInput:
			return toks, structural(ErrCodeRunaway, owner.Position, "file ended while scanning the definition of %s", owner.Text())
		case tok.IsChar(CatBeginGroup):
			return toks, s.pushFront(tok)
		case tok.IsChar(CatEndGroup):
			return toks, structural(ErrCodeMacroMismatch, tok.Position, "missing { inserted in the definition of %s", owner.Text())
		}
		toks = append(toks, tok)
	}
}
