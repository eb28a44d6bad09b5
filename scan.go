// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

import (
	"unicode"
)

// scanKeyword matches word against the next expanded character tokens,
// ignoring case and leading spaces. When the word does not match, the
// tokens read after the spaces are put back.
func (s *Session) scanKeyword(word string) (bool, error) {
	var seen TokenList
	want := []rune(word)
	for len(seen) < len(want) {
		tok, err := s.nextExpanded()
		if err != nil {
			return false, err
		}
		if len(seen) == 0 && tok.IsChar(CatSpace) {
			continue
		}
		if tok.Kind == CharToken && unicode.ToLower(tok.Char) == unicode.ToLower(want[len(seen)]) {
			seen = append(seen, tok)
			continue
		}
		seen = append(seen, tok)
		return false, s.pushFront(seen...)
	}
	return true, nil
}

// skipOptionalSpace consumes one space token, if it is next.
func (s *Session) skipOptionalSpace() error {
	tok, err := s.nextExpanded()
	if err != nil {
		return err
	}
	if tok.IsChar(CatSpace) {
		return nil
	}
	return s.pushFront(tok)
}

// scanSigns reads optional signs and spaces and returns the first other
// token, with neg set when the signs make the number negative.
func (s *Session) scanSigns() (tok Token, neg bool, err error) {
	for {
		tok, err = s.nextExpandedNonSpace()
		if err != nil {
			return tok, neg, err
		}
		switch {
		case tok.IsOther('-'):
			neg = !neg
		case tok.IsOther('+'):
		default:
			return tok, neg, nil
		}
	}
}

// internalValue returns the value of an internal quantity such as a
// register, a \chardef constant or \catcode`x.
func (s *Session) internalValue(tok Token) (value int, dimen bool, ok bool, err error) {
	if !tok.IsCommand() || tok.NoExpand {
		return 0, false, false, nil
	}
	b := s.scopes.Lookup(tok.Key())
	switch b.Kind {
	case Register:
		return s.scopes.Register(b.Register), b.Register.Kind == DimenRegister, true, nil
	case BuiltinCommand:
		if b.Command.Value != nil {
			value, dimen, err = b.Command.Value(s, tok)
			return value, dimen, true, err
		}
	}
	return 0, false, false, nil
}

// scanInt reads an integer: optional signs followed by a decimal, 'octal,
// "hex or `character constant, or an internal integer.
// A missing number is reported and read as zero.
func (s *Session) scanInt() (int, error) {
	tok, neg, err := s.scanSigns()
	if err != nil {
		return 0, err
	}
	var n int
	switch {
	case tok.IsOther('`'):
		n, err = s.scanCharCode(tok)
	case tok.IsOther('\''):
		n, err = s.scanRadix(tok, 8)
	case tok.IsOther('"'):
		n, err = s.scanRadix(tok, 16)
	case tok.Kind == CharToken && isdigit(tok.Char):
		if err = s.pushFront(tok); err == nil {
			n, err = s.scanRadix(tok, 10)
		}
	default:
		var ok bool
		n, _, ok, err = s.internalValue(tok)
		if err == nil && !ok {
			s.warn(CodeMissingNumber, tok.Position, "missing number, treated as zero")
			err = s.pushFront(tok)
		}
	}
	if neg {
		n = -n
	}
	return n, err
}

func (s *Session) scanCharCode(backtick Token) (int, error) {
	tok, err := s.nextRaw()
	if err != nil {
		return 0, err
	}
	var code int
	switch {
	case tok.Kind == CharToken || tok.Kind == ActiveChar:
		code = int(tok.Char)
	case tok.Kind == ControlSequence && len([]rune(tok.Name)) == 1:
		code = int([]rune(tok.Name)[0])
	default:
		s.warn(CodeMissingNumber, backtick.Position, "improper alphabetic constant")
		if err = s.pushFront(tok); err != nil {
			return 0, err
		}
	}
	return code, s.skipOptionalSpace()
}

// scanRadix reads digits in the given radix. The token after the digits is
// consumed when it is a space.
func (s *Session) scanRadix(start Token, radix int) (int, error) {
	n, digits, tooBig := 0, 0, false
	for {
		tok, err := s.nextExpanded()
		if err != nil {
			return n, err
		}
		d := -1
		if tok.Kind == CharToken && (tok.Catcode == CatOther || tok.Catcode == CatLetter) {
			switch {
			case isdigit(tok.Char):
				d = int(tok.Char - '0')
			case radix == 16 && ishexdigit(tok.Char):
				d = hexval(tok.Char)
			}
		}
		if d < 0 || d >= radix {
			if digits == 0 {
				s.warn(CodeMissingNumber, start.Position, "missing number, treated as zero")
			}
			if tooBig {
				s.warn(CodeNumberTooBig, start.Position, "number too big")
				n = maxInt
			}
			if tok.IsChar(CatSpace) {
				return n, nil
			}
			return n, s.pushFront(tok)
		}
		digits++
		if !tooBig {
			n = n*radix + d
			if n > maxInt {
				tooBig = true
			}
		}
	}
}

// scanDimen reads a dimension: optional signs, a decimal constant or an
// internal quantity, and a unit. An illegal unit is reported and read as pt.
func (s *Session) scanDimen() (Dimen, error) {
	tok, neg, err := s.scanSigns()
	if err != nil {
		return 0, err
	}
	d, err := s.scanUnsignedDimen(tok)
	if neg {
		d = -d
	}
	return d, err
}

func (s *Session) scanUnsignedDimen(tok Token) (Dimen, error) {
	var whole, frac int
	switch {
	case tok.Kind == CharToken && (isdigit(tok.Char) || tok.Char == '.' || tok.Char == ','):
		var err error
		whole, frac, err = s.scanDecimal(tok)
		if err != nil {
			return 0, err
		}
	case tok.IsOther('`') || tok.IsOther('\'') || tok.IsOther('"'):
		if err := s.pushFront(tok); err != nil {
			return 0, err
		}
		n, err := s.scanInt()
		if err != nil {
			return 0, err
		}
		whole = n
	default:
		v, dimen, ok, err := s.internalValue(tok)
		if err != nil {
			return 0, err
		}
		if !ok {
			s.warn(CodeMissingNumber, tok.Position, "missing number, treated as zero")
			if err := s.pushFront(tok); err != nil {
				return 0, err
			}
		}
		if dimen {
			return Dimen(v), nil
		}
		whole = v
		if whole < 0 {
			whole = -whole
		}
	}
	return s.scanUnit(tok, whole, frac)
}

// scanDecimal reads a decimal constant that starts with first, returning
// its integer part and its fraction in units of 1/65536.
func (s *Session) scanDecimal(first Token) (whole, frac int, err error) {
	var digits []int
	inFraction := false
	tok := first
	for {
		switch {
		case tok.Kind == CharToken && isdigit(tok.Char) && tok.Catcode == CatOther:
			if inFraction {
				if len(digits) < 17 {
					digits = append(digits, int(tok.Char-'0'))
				}
			} else if whole < maxInt {
				whole = whole*10 + int(tok.Char-'0')
			}
		case !inFraction && (tok.IsOther('.') || tok.IsOther(',')):
			inFraction = true
		default:
			if !tok.IsChar(CatSpace) {
				err = s.pushFront(tok)
			}
			return whole, roundDecimals(digits), err
		}
		if tok, err = s.nextExpanded(); err != nil {
			return whole, 0, err
		}
	}
}

func (s *Session) scanUnit(start Token, whole, frac int) (Dimen, error) {
	// an internal dimension as the unit, as in 2\dimen0
	tok, err := s.nextExpandedNonSpace()
	if err != nil {
		return 0, err
	}
	v, dimen, ok, err := s.internalValue(tok)
	if err != nil {
		return 0, err
	}
	if ok && dimen {
		return Dimen((int64(whole)*unity + int64(frac)) * int64(v) / unity), nil
	}
	if err := s.pushFront(tok); err != nil {
		return 0, err
	}

	for _, name := range []string{"em", "ex"} {
		ok, err := s.scanKeyword(name)
		if err != nil {
			return 0, err
		}
		if ok {
			size := int64(fontUnits[name])
			return Dimen((int64(whole)*unity + int64(frac)) * size / unity), s.skipOptionalSpace()
		}
	}
	if _, err := s.scanKeyword("true"); err != nil {
		return 0, err
	}
	for _, name := range []string{"pt", "pc", "in", "bp", "cm", "mm", "dd", "cc", "px"} {
		ok, err := s.scanKeyword(name)
		if err != nil {
			return 0, err
		}
		if ok {
			d, fits := scaleUnit(whole, frac, physicalUnits[name])
			if !fits {
				s.warn(CodeNumberTooBig, start.Position, "dimension too large")
			}
			return d, s.skipOptionalSpace()
		}
	}
	if ok, err := s.scanKeyword("sp"); err != nil {
		return 0, err
	} else if ok {
		return Dimen(whole), s.skipOptionalSpace()
	}
	s.warn(CodeIllegalUnit, start.Position, "illegal unit of measure (pt inserted)")
	d, fits := scaleUnit(whole, frac, physicalUnits["pt"])
	if !fits {
		s.warn(CodeNumberTooBig, start.Position, "dimension too large")
	}
	return d, nil
}

// scanGlue reads a dimension followed by optional plus and minus parts,
// which may be infinite (fil, fill, filll).
func (s *Session) scanGlue() (Glue, error) {
	var g Glue
	var err error
	if g.Width, err = s.scanDimen(); err != nil {
		return g, err
	}
	if ok, err := s.scanKeyword("plus"); err != nil {
		return g, err
	} else if ok {
		if g.Stretch, g.StretchOrder, err = s.scanStretch(); err != nil {
			return g, err
		}
	}
	if ok, err := s.scanKeyword("minus"); err != nil {
		return g, err
	} else if ok {
		if g.Shrink, g.ShrinkOrder, err = s.scanStretch(); err != nil {
			return g, err
		}
	}
	return g, nil
}

func (s *Session) scanStretch() (Dimen, GlueOrder, error) {
	tok, neg, err := s.scanSigns()
	if err != nil {
		return 0, Normal, err
	}
	if tok.Kind == CharToken && (isdigit(tok.Char) || tok.Char == '.' || tok.Char == ',') {
		whole, frac, err := s.scanDecimal(tok)
		if err != nil {
			return 0, Normal, err
		}
		ok, err := s.scanKeyword("fil")
		if err != nil {
			return 0, Normal, err
		}
		if ok {
			order := Fil
			for order < Filll {
				more, err := s.scanKeyword("l")
				if err != nil {
					return 0, order, err
				}
				if !more {
					break
				}
				order++
			}
			d := Dimen(whole*unity + frac)
			if neg {
				d = -d
			}
			return d, order, s.skipOptionalSpace()
		}
		d, err := s.scanUnit(tok, whole, frac)
		if neg {
			d = -d
		}
		return d, Normal, err
	}
	d, err := s.scanUnsignedDimen(tok)
	if neg {
		d = -d
	}
	return d, Normal, err
}
