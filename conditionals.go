// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

// Conditional state machine
//
// Every \if pushes one condFrame and the matching \fi pops it. A frame is
// in one of three states:
//
//   condTrue - expanding the branch that was selected; an \else or \or
//              at this level skips to the \fi
//   condElse - expanding the \else branch; a further \else is an error
//   condCase - expanding the selected case of an \ifcase
//
// A false test never pushes a "skipping" state. The test skips ahead right
// away, reading raw tokens and counting nested conditionals by the role of
// their binding, and lands either on \else (state condElse) or on \fi
// (frame popped). So the frame on top of the stack is always the one whose
// branch is being expanded.

type condState int

const (
	condTrue condState = iota
	condElse
	condCase
)

type condFrame struct {
	name  string // the conditional that opened the frame, e.g. "\ifnum"
	state condState
	pos   Position
}

// pushCond opens a conditional frame. Open conditionals count against
// the same limit as open groups.
func (s *Session) pushCond(tok Token, state condState) (*condFrame, error) {
	if len(s.conds) >= s.maxGroupDepth {
		return nil, &LimitError{Limit: "groups", Max: s.maxGroupDepth, Pos: tok.Position}
	}
	f := &condFrame{name: tok.Text(), state: state, pos: tok.Position}
	s.conds = append(s.conds, f)
	return f, nil
}

func (s *Session) topCond() *condFrame {
	if n := len(s.conds); n > 0 {
		return s.conds[n-1]
	}
	return nil
}

func (s *Session) popCond() {
	s.conds = s.conds[:len(s.conds)-1]
}

// roleOf returns the conditional role of a raw token.
func (s *Session) roleOf(tok Token) Role {
	if !tok.IsCommand() || tok.NoExpand {
		return RoleNone
	}
	return s.scopes.Lookup(tok.Key()).role()
}

// skip reads raw tokens until the \fi that closes the current level, or
// until an \else (or \or, when stopAtOr is set) at the current level.
// It returns the role of the token it stopped on.
func (s *Session) skip(opener *condFrame, stopAtOr bool) (Role, error) {
	depth := 0
	for {
		tok, err := s.nextRaw()
		if err != nil {
			return RoleNone, err
		}
		if tok.Kind == EndOfInput {
			return RoleNone, structural(ErrCodeIncompleteIf, opener.pos, "end of input while skipping %s", opener.name)
		}
		switch s.roleOf(tok) {
		case RoleIf:
			depth++
		case RoleFi:
			if depth == 0 {
				return RoleFi, nil
			}
			depth--
		case RoleElse:
			if depth == 0 {
				return RoleElse, nil
			}
		case RoleOr:
			if depth == 0 && stopAtOr {
				return RoleOr, nil
			}
		}
	}
}

// conditional pushes a frame for a test that has been evaluated, and skips
// to the \else or \fi when it is false.
func (s *Session) conditional(tok Token, result bool) error {
	f, err := s.pushCond(tok, condTrue)
	if err != nil {
		return err
	}
	s.debug("%s: %s is %v", tok.Position, f.name, result)
	if result {
		return nil
	}
	role, err := s.skip(f, false)
	if err != nil {
		return err
	}
	if role == RoleFi {
		s.popCond()
		return nil
	}
	f.state = condElse
	return nil
}

// expandElse handles \else met while expanding: the branch before it was
// selected, so the rest is skipped.
func expandElse(s *Session, tok Token) error {
	f := s.topCond()
	if f == nil || f.state == condElse {
		return structural(ErrCodeUnmatchedElse, tok.Position, "extra %s", tok.Text())
	}
	if _, err := s.skipToFi(f); err != nil {
		return err
	}
	s.popCond()
	return nil
}

func expandFi(s *Session, tok Token) error {
	if s.topCond() == nil {
		return structural(ErrCodeUnmatchedFi, tok.Position, "extra %s", tok.Text())
	}
	s.popCond()
	return nil
}

func expandOr(s *Session, tok Token) error {
	f := s.topCond()
	if f == nil || f.state != condCase {
		return structural(ErrCodeExtraOr, tok.Position, "extra %s", tok.Text())
	}
	if _, err := s.skipToFi(f); err != nil {
		return err
	}
	s.popCond()
	return nil
}

// skipToFi skips everything, including \else and \or, up to the matching \fi.
func (s *Session) skipToFi(f *condFrame) (Role, error) {
	for {
		role, err := s.skip(f, true)
		if err != nil || role == RoleFi {
			return role, err
		}
	}
}

// expandIfcase selects a case by number. Cases are separated by \or, or
// given as braced alternatives as in \ifcase 2 {A}{B}{C}\fi. An index with
// no case and no \else expands to nothing.
func expandIfcase(s *Session, tok Token) error {
	n, err := s.scanInt()
	if err != nil {
		return err
	}
	first, err := s.nextRawNonSpace()
	if err != nil {
		return err
	}
	if first.IsChar(CatBeginGroup) {
		return s.ifcaseBraced(tok, n, first)
	}
	if err := s.pushFront(first); err != nil {
		return err
	}
	return s.ifcaseOr(tok, n)
}

// ifcaseBraced reads braced alternatives up to \fi. When the first group is
// followed by something other than another group, \else or \fi, the case
// list uses \or and the group is put back to be read as ordinary input.
// A single group with no \or keeps its braces.
func (s *Session) ifcaseBraced(tok Token, n int, open Token) error {
	var alternatives []TokenList
	var otherwise TokenList
	hasElse := false
	group, err := s.readGroupRaw(open)
	if err != nil {
		return err
	}
	for {
		alternatives = append(alternatives, group)
		next, err := s.nextRawNonSpace()
		if err != nil {
			return err
		}
		if next.IsChar(CatBeginGroup) {
			if group, err = s.readGroupRaw(next); err != nil {
				return err
			}
			continue
		}
		role := s.roleOf(next)
		if role == RoleElse {
			hasElse = true
			f := &condFrame{name: tok.Text(), pos: tok.Position}
			if otherwise, err = s.collectToFi(f); err != nil {
				return err
			}
			break
		}
		if role == RoleFi {
			break
		}
		if len(alternatives) > 1 {
			// a non-group after several groups is one more alternative
			group = TokenList{next}
			continue
		}
		toks := append(TokenList{open}, alternatives[0]...)
		toks = append(toks, Token{Position: next.Position, Kind: CharToken, Char: '}', Catcode: CatEndGroup}, next)
		if err := s.pushFront(toks...); err != nil {
			return err
		}
		return s.ifcaseOr(tok, n)
	}
	switch {
	case n == 0 && len(alternatives) == 1:
		// a lone group is the case body, so it stays a group
		toks := append(TokenList{open}, alternatives[0]...)
		toks = append(toks, Token{Position: open.Position, Kind: CharToken, Char: '}', Catcode: CatEndGroup})
		return s.pushFront(toks...)
	case 0 <= n && n < len(alternatives):
		return s.pushFront(alternatives[n]...)
	case hasElse:
		return s.pushFront(otherwise...)
	}
	return nil
}

// ifcaseOr skips n cases separated by \or. A negative n skips to the
// \else or the \fi.
func (s *Session) ifcaseOr(tok Token, n int) error {
	f, err := s.pushCond(tok, condCase)
	if err != nil {
		return err
	}
	for i := 0; i < n || n < 0; i++ {
		role, err := s.skip(f, true)
		if err != nil {
			return err
		}
		switch role {
		case RoleFi:
			s.popCond()
			return nil
		case RoleElse:
			f.state = condElse
			return nil
		}
	}
	return nil
}

// collectToFi returns the raw tokens up to the \fi that closes the current
// level, without the \fi.
func (s *Session) collectToFi(f *condFrame) (TokenList, error) {
	var toks TokenList
	depth := 0
	for {
		t, err := s.nextRaw()
		if err != nil {
			return toks, err
		}
		if t.Kind == EndOfInput {
			return toks, structural(ErrCodeIncompleteIf, f.pos, "end of input while scanning %s", f.name)
		}
		switch s.roleOf(t) {
		case RoleIf:
			depth++
		case RoleFi:
			if depth == 0 {
				return toks, nil
			}
			depth--
		}
		toks = append(toks, t)
	}
}

// charCode returns the character code and category code \if and \ifcat
// compare. Commands that are not \let to a character compare as equal to
// each other and unequal to every character.
func (s *Session) charCode(tok Token) (rune, Catcode) {
	switch tok.Kind {
	case CharToken:
		return tok.Char, tok.Catcode
	case ActiveChar:
		if tok.NoExpand {
			return tok.Char, CatActive
		}
	}
	if tok.IsCommand() && !tok.NoExpand {
		if b := s.scopes.Lookup(tok.Key()); b.Kind == CharAlias {
			return b.Token.Char, b.Token.Catcode
		}
	}
	return -1, catNone
}

// sameMeaning implements \ifx.
func (s *Session) sameMeaning(a, b Token) bool {
	meaning := func(tok Token) Binding {
		if tok.IsCommand() {
			return s.scopes.Lookup(tok.Key())
		}
		tok.NoExpand = false
		return Binding{Kind: CharAlias, Token: tok}
	}
	return meaning(a).SameMeaning(meaning(b))
}

// scanRelation reads <, = or > for \ifnum and \ifdim.
func (s *Session) scanRelation(tok Token) (rune, error) {
	rel, err := s.nextExpandedNonSpace()
	if err != nil {
		return 0, err
	}
	if rel.Kind == CharToken && rel.Catcode == CatOther && (rel.Char == '<' || rel.Char == '=' || rel.Char == '>') {
		return rel.Char, nil
	}
	return 0, structural(ErrCodeInvalidRelation, rel.Position, "missing = inserted for %s", tok.Text())
}

func compare(a int, rel rune, b int) bool {
	switch rel {
	case '<':
		return a < b
	case '>':
		return a > b
	}
	return a == b
}

// ifPrimitives returns the conditionals and the switches that go with them.
func ifPrimitives() []*Command {
	constant := func(name string, result bool) *Command {
		return &Command{Name: name, Role: RoleIf, Expand: func(s *Session, tok Token) error {
			return s.conditional(tok, result)
		}}
	}
	number := func(name string, test func(n int) bool) *Command {
		return &Command{Name: name, Role: RoleIf, Expand: func(s *Session, tok Token) error {
			n, err := s.scanInt()
			if err != nil {
				return err
			}
			return s.conditional(tok, test(n))
		}}
	}
	switchNoop := func(name string) *Command {
		return &Command{Name: name, Execute: func(*Session, Token) error { return nil }}
	}

	return []*Command{
		{Name: "else", Role: RoleElse, Expand: expandElse},
		{Name: "fi", Role: RoleFi, Expand: expandFi},
		{Name: "or", Role: RoleOr, Expand: expandOr},
		{Name: "ifcase", Role: RoleIf, Expand: expandIfcase},
		{Name: "if", Role: RoleIf, Expand: func(s *Session, tok Token) error {
			a, err := s.nextExpanded()
			if err != nil {
				return err
			}
			b, err := s.nextExpanded()
			if err != nil {
				return err
			}
			ca, _ := s.charCode(a)
			cb, _ := s.charCode(b)
			return s.conditional(tok, ca == cb)
		}},
		{Name: "ifcat", Role: RoleIf, Expand: func(s *Session, tok Token) error {
			a, err := s.nextExpanded()
			if err != nil {
				return err
			}
			b, err := s.nextExpanded()
			if err != nil {
				return err
			}
			_, ca := s.charCode(a)
			_, cb := s.charCode(b)
			return s.conditional(tok, ca == cb)
		}},
		{Name: "ifx", Role: RoleIf, Expand: func(s *Session, tok Token) error {
			a, err := s.nextRaw()
			if err != nil {
				return err
			}
			b, err := s.nextRaw()
			if err != nil {
				return err
			}
			return s.conditional(tok, s.sameMeaning(a, b))
		}},
		{Name: "ifnum", Role: RoleIf, Expand: func(s *Session, tok Token) error {
			a, err := s.scanInt()
			if err != nil {
				return err
			}
			rel, err := s.scanRelation(tok)
			if err != nil {
				return err
			}
			b, err := s.scanInt()
			if err != nil {
				return err
			}
			return s.conditional(tok, compare(a, rel, b))
		}},
		{Name: "ifdim", Role: RoleIf, Expand: func(s *Session, tok Token) error {
			a, err := s.scanDimen()
			if err != nil {
				return err
			}
			rel, err := s.scanRelation(tok)
			if err != nil {
				return err
			}
			b, err := s.scanDimen()
			if err != nil {
				return err
			}
			return s.conditional(tok, compare(int(a), rel, int(b)))
		}},
		number("ifodd", func(n int) bool { return n%2 != 0 }),
		number("ifeven", func(n int) bool { return n%2 == 0 }),
		number("ifvoid", func(int) bool { return true }),
		number("ifhbox", func(int) bool { return false }),
		number("ifvbox", func(int) bool { return false }),
		number("ifeof", func(int) bool { return false }),
		{Name: "ifmmode", Role: RoleIf, Expand: func(s *Session, tok Token) error {
			return s.conditional(tok, s.IsMathMode())
		}},
		constant("ifvmode", false),
		constant("ifhmode", true),
		constant("ifinner", false),
		constant("iftrue", true),
		constant("iffalse", false),
		constant("ifplastex", true),
		constant("ifhtml", true),
		constant("ifpdf", false),
		switchNoop("plastextrue"),
		switchNoop("plastexfalse"),
		switchNoop("htmltrue"),
		switchNoop("htmlfalse"),
		switchNoop("pdftrue"),
		switchNoop("pdffalse"),
	}
}
