// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

// Macro is a user defined control sequence.
//
// Params is the parameter text with each #n replaced by a ParamRef token
// and the delimiter tokens kept as they were read. When the parameter text
// ends with #{, BraceDelim is set, the last parameter is delimited by the
// opening brace, and Body ends with that brace.
type Macro struct {
	Name       string
	Params     TokenList
	Body       TokenList
	Arity      int
	BraceDelim bool

	// HasOptional is set for \newcommand macros whose first argument is
	// optional; Optional is its default value.
	HasOptional bool
	Optional    TokenList
}

// Equal reports whether two macros have the same meaning.
// The name is not part of the meaning.
func (m *Macro) Equal(other *Macro) bool {
	if m == other {
		return true
	}
	if m == nil || other == nil {
		return false
	}
	return m.Arity == other.Arity &&
		m.BraceDelim == other.BraceDelim &&
		m.HasOptional == other.HasOptional &&
		m.Params.Equal(other.Params) &&
		m.Body.Equal(other.Body) &&
		m.Optional.Equal(other.Optional)
}

// newMacro builds a macro from the raw parameter text and body of a
// definition. Parameters must be numbered in order, #1 to #9.
func (s *Session) newMacro(name string, paramText, body TokenList, pos Position) *Macro {
	m := &Macro{Name: name}
	for i := 0; i < len(paramText); i++ {
		tok := paramText[i]
		if !tok.IsChar(CatParameter) {
			m.Params = append(m.Params, tok)
			continue
		}
		if i+1 == len(paramText) {
			// #{ : the brace itself was left in the input
			m.BraceDelim = true
			continue
		}
		next := paramText[i+1]
		i++
		if next.Kind == CharToken && next.Char == rune('1'+m.Arity) && m.Arity < 9 {
			m.Arity++
			m.Params = append(m.Params, Token{Position: next.Position, Kind: ParamRef, Char: next.Char, Catcode: catNone})
			continue
		}
		s.warn(CodeIllegalParameter, next.Position, "parameters of \\%s must be numbered consecutively", name)
		if m.Arity < 9 {
			m.Arity++
			m.Params = append(m.Params, Token{Position: next.Position, Kind: ParamRef, Char: rune('0' + m.Arity), Catcode: catNone})
		}
	}
	m.Body = s.compileBody(name, body, m.Arity)
	if m.BraceDelim {
		open := charToken('{', CatBeginGroup, pos)
		m.Params = append(m.Params, open)
		m.Body = append(m.Body, open)
	}
	return m
}

// compileBody replaces #n with ParamRef tokens and ## with a single
// parameter character.
func (s *Session) compileBody(name string, body TokenList, arity int) TokenList {
	out := make(TokenList, 0, len(body))
	for i := 0; i < len(body); i++ {
		tok := body[i]
		if !tok.IsChar(CatParameter) || i+1 == len(body) {
			out = append(out, tok)
			continue
		}
		next := body[i+1]
		switch {
		case next.IsChar(CatParameter):
			out = append(out, next)
			i++
		case next.Kind == CharToken && '1' <= next.Char && next.Char <= rune('0'+arity):
			out = append(out, Token{Position: next.Position, Kind: ParamRef, Char: next.Char, Catcode: catNone})
			i++
		default:
			s.warn(CodeIllegalParameter, next.Position, "illegal parameter number in definition of \\%s", name)
			out = append(out, tok)
		}
	}
	return out
}

// expandMacro reads the arguments of a macro from the input and pushes
// the substituted body back in front of it.
func (s *Session) expandMacro(tok Token, m *Macro) error {
	if err := s.enter(tok.Position); err != nil {
		return err
	}
	defer s.leave()

	args, err := s.matchMacro(tok, m)
	if err != nil {
		return err
	}
	return s.pushFront(m.substitute(args)...)
}

// substitute replaces each ParamRef in the body by its argument.
// Argument tokens are copied as they are and never scanned again.
func (m *Macro) substitute(args []TokenList) TokenList {
	out := make(TokenList, 0, len(m.Body))
	for _, tok := range m.Body {
		if tok.Kind == ParamRef {
			out = append(out, args[tok.Char-'1']...)
			continue
		}
		out = append(out, tok)
	}
	return out
}

func (s *Session) matchMacro(tok Token, m *Macro) ([]TokenList, error) {
	args := make([]TokenList, m.Arity)
	params := m.Params
	i := 0
	for ; i < len(params) && params[i].Kind != ParamRef; i++ {
		t, err := s.nextRaw()
		if err != nil {
			return nil, err
		}
		if !t.Equal(params[i]) {
			return nil, structural(ErrCodeMacroMismatch, t.Position, "use of %s does not match its definition", tok.Text())
		}
	}
	for n := 0; i < len(params); n++ {
		i++ // the ParamRef
		j := i
		for j < len(params) && params[j].Kind != ParamRef {
			j++
		}
		delim := params[i:j]
		i = j

		var err error
		switch {
		case n == 0 && m.HasOptional:
			args[n], err = s.readOptionalArg(m.Optional)
		case len(delim) == 0:
			args[n], err = s.readUndelimitedArg(tok)
		default:
			args[n], err = s.readDelimitedArg(tok, delim)
		}
		if err != nil {
			return nil, err
		}
	}
	return args, nil
}

// readUndelimitedArg reads one token, or one braced group without its braces,
// skipping spaces.
func (s *Session) readUndelimitedArg(owner Token) (TokenList, error) {
	t, err := s.nextRawNonSpace()
	if err != nil {
		return nil, err
	}
	switch {
	case t.Kind == EndOfInput:
		return nil, structural(ErrCodeRunaway, owner.Position, "file ended while scanning use of %s", owner.Text())
	case t.IsChar(CatEndGroup):
		return nil, structural(ErrCodeMacroMismatch, t.Position, "argument of %s has an extra }", owner.Text())
	case t.IsChar(CatBeginGroup):
		return s.readGroupRaw(t)
	}
	return TokenList{t}, nil
}

// readDelimitedArg reads tokens up to the first occurrence of delim that is
// not inside braces. A single braced group that makes up the whole argument
// loses its braces.
func (s *Session) readDelimitedArg(owner Token, delim TokenList) (TokenList, error) {
	braceDelim := delim[len(delim)-1].IsChar(CatBeginGroup)
	var buf TokenList
	depth, lastZero := 0, 0
	for {
		t, err := s.nextRaw()
		if err != nil {
			return nil, err
		}
		if t.Kind == EndOfInput {
			return nil, structural(ErrCodeRunaway, owner.Position, "file ended while scanning use of %s", owner.Text())
		}
		if braceDelim && depth == 0 && t.IsChar(CatBeginGroup) {
			prefix := delim[:len(delim)-1]
			if hasSuffix(buf[lastZero:], prefix) {
				buf = buf[:len(buf)-len(prefix)]
				break
			}
		}
		buf = append(buf, t)
		switch {
		case t.IsChar(CatBeginGroup):
			depth++
		case t.IsChar(CatEndGroup):
			if depth == 0 {
				return nil, structural(ErrCodeMacroMismatch, t.Position, "argument of %s has an extra }", owner.Text())
			}
			depth--
			if depth == 0 {
				lastZero = len(buf)
			}
		case depth == 0 && !braceDelim && hasSuffix(buf[lastZero:], delim):
			return stripBraces(buf[:len(buf)-len(delim)]), nil
		}
	}
	return stripBraces(buf), nil
}

// readOptionalArg reads a [bracketed] argument, or returns def when the
// next token is not an opening bracket.
func (s *Session) readOptionalArg(def TokenList) (TokenList, error) {
	arg, ok, err := s.readBracketed()
	if err != nil || !ok {
		return def, err
	}
	return arg, nil
}

func hasSuffix(toks, suffix TokenList) bool {
	if len(suffix) > len(toks) {
		return false
	}
	return toks[len(toks)-len(suffix):].Equal(suffix)
}

// stripBraces removes the braces around toks when they enclose all of it.
func stripBraces(toks TokenList) TokenList {
	n := len(toks)
	if n < 2 || !toks[0].IsChar(CatBeginGroup) || !toks[n-1].IsChar(CatEndGroup) {
		return toks
	}
	depth := 0
	for i, tok := range toks {
		switch {
		case tok.IsChar(CatBeginGroup):
			depth++
		case tok.IsChar(CatEndGroup):
			depth--
			if depth == 0 && i != n-1 {
				return toks
			}
		}
	}
	return toks[1 : n-1]
}
