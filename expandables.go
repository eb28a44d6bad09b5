// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

import (
	"strconv"
	"strings"
)

// expandablePrimitives returns the primitives that expand into tokens.
func expandablePrimitives() []*Command {
	text := func(name string, value func(s *Session, tok Token) (string, error)) *Command {
		return &Command{
			Name: name,
			Expand: func(s *Session, tok Token) error {
				str, err := value(s, tok)
				if err != nil {
					return err
				}
				return s.pushFront(s.stringTokens(str, tok.Position)...)
			},
		}
	}
	return []*Command{
		{Name: "csname", Expand: expandCsname},
		{Name: "expandafter", Expand: expandAfter},
		{
			Name: "noexpand",
			Expand: func(s *Session, tok Token) error {
				next, err := s.nextRaw()
				if err != nil {
					return err
				}
				next.NoExpand = next.IsCommand()
				return s.pushFront(next)
			},
		},
		{
			Name: "the",
			Expand: func(s *Session, tok Token) error {
				next, err := s.nextExpandedNonSpace()
				if err != nil {
					return err
				}
				str, ok, err := s.theText(next)
				if err != nil {
					return err
				}
				if !ok {
					s.warn(CodeCantUse, next.Position, "you can't use %s after \\the", next.Text())
					return s.pushFront(next)
				}
				return s.pushFront(s.stringTokens(str, tok.Position)...)
			},
		},
		text("number", func(s *Session, tok Token) (string, error) {
			n, err := s.scanInt()
			return strconv.Itoa(n), err
		}),
		text("romannumeral", func(s *Session, tok Token) (string, error) {
			n, err := s.scanInt()
			return roman(n), err
		}),
		text("string", func(s *Session, tok Token) (string, error) {
			next, err := s.nextRaw()
			return next.Text(), err
		}),
		text("meaning", func(s *Session, tok Token) (string, error) {
			next, err := s.nextRaw()
			if err != nil {
				return "", err
			}
			return s.meaning(next), nil
		}),
		text("jobname", func(s *Session, tok Token) (string, error) {
			return s.jobName, nil
		}),
		{Name: "input", Expand: expandInput},
		{Name: "include", Expand: expandInput},
		{
			Name: "endinput",
			Expand: func(s *Session, tok Token) error {
				s.lexer.EndInput()
				return nil
			},
		},
	}
}

// stringTokens converts text to character tokens the way \the and
// \string do: spaces get catcode space, everything else catcode other.
func (s *Session) stringTokens(text string, pos Position) TokenList {
	toks := make(TokenList, 0, len(text))
	for _, ch := range text {
		cc := CatOther
		if ch == ' ' {
			cc = CatSpace
		}
		toks = append(toks, charToken(ch, cc, pos))
	}
	return toks
}

// theText returns the printed value of an internal quantity.
// ok is false when tok does not name one.
func (s *Session) theText(tok Token) (string, bool, error) {
	value, dimen, ok, err := s.internalValue(tok)
	if err != nil || !ok {
		return "", ok, err
	}
	if dimen {
		return Dimen(value).String(), true, nil
	}
	return strconv.Itoa(value), true, nil
}

// meaning describes what a token is bound to, in the form \meaning prints.
func (s *Session) meaning(tok Token) string {
	if !tok.IsCommand() {
		return tok.Catcode.String() + " character " + string(tok.Char)
	}
	b := s.scopes.Lookup(tok.Key())
	switch b.Kind {
	case UserMacro:
		var params TokenList
		for _, t := range b.Macro.Params {
			if t.Kind == ParamRef {
				params = append(params, charToken('#', CatParameter, t.Position), charToken(t.Char, CatOther, t.Position))
				continue
			}
			params = append(params, t)
		}
		return "macro:" + params.String() + "->" + b.Macro.Body.String()
	case BuiltinCommand:
		return "\\" + b.Command.Name
	case Register:
		switch b.Register.Kind {
		case CountRegister:
			return "\\count" + strconv.Itoa(b.Register.Index)
		case DimenRegister:
			return "\\dimen" + strconv.Itoa(b.Register.Index)
		}
		return "\\char\"" + strings.ToUpper(strconv.FormatInt(int64(b.Register.Index), 16))
	case CharAlias:
		return s.meaning(b.Token)
	}
	return "undefined"
}

// expandCsname builds a control sequence from the character tokens up to
// \endcsname. A name that is not defined is given the meaning of \relax.
func expandCsname(s *Session, tok Token) error {
	var sb strings.Builder
	for {
		next, err := s.nextExpanded()
		if err != nil {
			return err
		}
		if next.Kind == CharToken {
			sb.WriteRune(next.Char)
			continue
		}
		if next.IsCommand() && !next.NoExpand && s.scopes.Lookup(next.Key()).role() == RoleEndcsname {
			break
		}
		s.warn(CodeMissingEndcsname, next.Position, "missing \\endcsname inserted before %s", next.Text())
		if err := s.pushFront(next); err != nil {
			return err
		}
		break
	}
	name := sb.String()
	if s.scopes.Lookup(name).Kind == Undefined {
		s.scopes.Define(name, s.scopes.Lookup("relax"), false)
	}
	return s.pushFront(csToken(name, tok.Position))
}

// expandAfter expands the token after the next one once, then puts the
// next one back in front of the result.
func expandAfter(s *Session, tok Token) error {
	first, err := s.nextRaw()
	if err != nil {
		return err
	}
	second, err := s.nextRaw()
	if err != nil {
		return err
	}
	expanded, err := s.expand(second)
	if err != nil {
		return err
	}
	if !expanded {
		if err := s.pushFront(second); err != nil {
			return err
		}
	}
	return s.pushFront(first)
}

// expandInput implements \input and \include. The named source is read
// before the tokens already pending.
func expandInput(s *Session, tok Token) error {
	name, err := s.readFileName(tok)
	if err != nil {
		return err
	}
	if s.sources == nil {
		s.warn(CodeMissingSource, tok.Position, "no sources configured for %s%s", tok.Text(), name)
		return nil
	}
	resolved, data, err := s.sources.Open(name)
	if err != nil {
		s.warn(CodeMissingSource, tok.Position, "%s: %v", name, err)
		return nil
	}
	if s.lexer.Depth() >= s.maxInputDepth {
		return &LimitError{Limit: "inputs", Max: s.maxInputDepth, Pos: tok.Position}
	}
	s.lexer.pushTokens(s.q.drain())
	s.lexer.PushInput(resolved, data)
	s.info(CodeInput, tok.Position, "input %s", resolved)
	return nil
}

// readFileName reads a braced file name or the characters up to the next
// space or command.
func (s *Session) readFileName(owner Token) (string, error) {
	tok, err := s.nextExpandedNonSpace()
	if err != nil {
		return "", err
	}
	if tok.IsChar(CatBeginGroup) {
		toks, err := s.readGroupRaw(tok)
		if err != nil {
			return "", err
		}
		toks, err = s.expandTokens(toks)
		return strings.TrimSpace(toks.String()), err
	}
	var sb strings.Builder
	for tok.Kind == CharToken && !tok.IsChar(CatSpace) {
		sb.WriteRune(tok.Char)
		if tok, err = s.nextExpanded(); err != nil {
			return "", err
		}
	}
	if !tok.IsChar(CatSpace) {
		if err := s.pushFront(tok); err != nil {
			return "", err
		}
	}
	if sb.Len() == 0 {
		s.warn(CodeMissingSource, owner.Position, "missing file name after %s", owner.Text())
	}
	return sb.String(), nil
}
