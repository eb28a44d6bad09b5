// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

// MathKind is a math region marker.
type MathKind int

const (
	// MathNone is pushed by boxes, so that a math shift inside a box
	// opens a new region instead of closing the enclosing one.
	MathNone MathKind = iota
	MathInline
	MathDisplay
)

func (k MathKind) String() string {
	switch k {
	case MathInline:
		return "math"
	case MathDisplay:
		return "displaymath"
	}
	return "none"
}

func (s *Session) mathTop() MathKind {
	if n := len(s.math); n > 0 {
		return s.math[n-1]
	}
	return MathNone
}

func (s *Session) pushMath(kind MathKind) {
	s.math = append(s.math, kind)
}

func (s *Session) popMath() MathKind {
	n := len(s.math)
	if n == 0 {
		return MathNone
	}
	kind := s.math[n-1]
	s.math = s.math[:n-1]
	return kind
}

// mathShift resolves a math shift character into the opening or closing
// of a region. Outside math, a second shift right after the first opens
// display math. Inside math, the shift closes the region that is open;
// display math also takes the second shift of its closing pair.
func (s *Session) mathShift(tok Token) error {
	switch kind := s.mathTop(); kind {
	case MathInline, MathDisplay:
		s.popMath()
		if err := s.scopes.Pop(ScopeMath, kind.String()); err != nil {
			return at(err, tok.Position)
		}
		if kind == MathDisplay {
			next, err := s.nextExpanded()
			if err != nil {
				return err
			}
			if !next.IsChar(CatMathShift) {
				s.warn(CodeDisplayMathEnd, tok.Position, "display math should end with $$")
				if err := s.pushFront(next); err != nil {
					return err
				}
			}
		}
		s.debug("%s: close %s", tok.Position, kind)
		s.emit(Item{Mode: ItemEnd, Name: kind.String(), Level: LevelCommand, Pos: tok.Position})
		return nil
	}

	kind := MathInline
	next, err := s.nextRaw()
	if err != nil {
		return err
	}
	if next.IsChar(CatMathShift) {
		kind = MathDisplay
	} else if err := s.pushFront(next); err != nil {
		return err
	}
	if err := s.pushScope(ScopeMath, kind.String(), tok.Position); err != nil {
		return err
	}
	s.pushMath(kind)
	s.debug("%s: open %s", tok.Position, kind)
	s.emit(Item{Mode: ItemBegin, Node: s.doc.CreateElement(kind.String()), Name: kind.String(), Level: LevelCommand, Pos: tok.Position})
	return nil
}

// script handles ^ and _ in math. The scripted term is a braced group,
// closed by its brace, or a single token, closed by a marker.
func (s *Session) script(tok Token) error {
	name := "superscript"
	if tok.Catcode == CatSubscript {
		name = "subscript"
	}
	arg, err := s.nextExpandedNonSpace()
	if err != nil {
		return err
	}
	if err := s.pushScope(ScopeScript, name, tok.Position); err != nil {
		return err
	}
	s.emit(Item{Mode: ItemBegin, Node: s.doc.CreateElement(name), Name: name, Level: LevelCommand, Pos: tok.Position})
	if arg.IsChar(CatBeginGroup) {
		return nil
	}
	id := s.newMarker(func(end Token) error {
		if err := s.scopes.Pop(ScopeScript, name); err != nil {
			return at(err, end.Position)
		}
		s.emit(Item{Mode: ItemEnd, Name: name, Level: LevelCommand, Pos: end.Position})
		return nil
	})
	if err := s.pushFront(s.markerToken(id, tok.Position)); err != nil {
		return err
	}
	return s.pushFront(arg)
}

// beginBox opens a box whose content is read in text mode.
func (s *Session) beginBox(tok Token, name string) error {
	open, err := s.nextExpandedNonSpace()
	if err != nil {
		return err
	}
	if !s.isBeginGroup(open) {
		s.warn(CodeCantUse, open.Position, "missing { inserted after %s", tok.Text())
		if err := s.pushFront(open); err != nil {
			return err
		}
	}
	if err := s.pushScope(ScopeBox, name, tok.Position); err != nil {
		return err
	}
	s.pushMath(MathNone)
	s.emit(Item{Mode: ItemBegin, Node: s.doc.CreateElement(name), Name: name, Level: LevelCommand, Pos: tok.Position})
	return nil
}

// isBeginGroup reports whether tok is an opening brace or is \let to one.
func (s *Session) isBeginGroup(tok Token) bool {
	if tok.IsChar(CatBeginGroup) {
		return true
	}
	if tok.IsCommand() && !tok.NoExpand {
		b := s.scopes.Lookup(tok.Key())
		return b.Kind == CharAlias && b.Token.IsChar(CatBeginGroup)
	}
	return false
}
