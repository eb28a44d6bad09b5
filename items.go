// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

import (
	"fmt"
	"strings"
)

// ItemMode says what an item asks the digester to do.
type ItemMode int

const (
	ItemNode       ItemMode = iota // place a finished node
	ItemBegin                      // place a container and make it current
	ItemEnd                        // close the container named Name
	ItemParBreak                   // close the current paragraph
	ItemEndOfInput                 // close everything
)

func (m ItemMode) String() string {
	switch m {
	case ItemNode:
		return "node"
	case ItemBegin:
		return "begin"
	case ItemEnd:
		return "end"
	case ItemParBreak:
		return "par"
	case ItemEndOfInput:
		return "eof"
	}
	return fmt.Sprintf("ItemMode(%d)", int(m))
}

// Item is the result of an invoked command, handed from the expansion
// engine to the digester.
type Item struct {
	Mode   ItemMode
	Node   NodeID
	Name   string
	Level  Level
	Block  bool
	Digest func(d *Digester, node NodeID) error
	Pos    Position
}

func (s *Session) emit(item Item) {
	s.items = append(s.items, item)
}

// unreadItem puts an item back so that it is the next one returned.
func (s *Session) unreadItem(item Item) {
	s.items = append([]Item{item}, s.items...)
}

// nextItem returns the next item, running the item loop until a command
// produces one.
func (s *Session) nextItem() (Item, error) {
	for {
		if len(s.items) != 0 {
			item := s.items[0]
			s.items = s.items[1:]
			return item, nil
		}
		if s.stopped {
			return Item{Mode: ItemEndOfInput, Level: LevelDocument}, nil
		}
		if err := s.ctx.Err(); err != nil {
			return Item{}, err
		}
		tok, err := s.nextExpanded()
		if err != nil {
			return Item{}, err
		}
		if err := s.dispatch(tok); err != nil {
			return Item{}, err
		}
	}
}

// dispatch runs one unexpandable token.
func (s *Session) dispatch(tok Token) error {
	switch tok.Kind {
	case EndOfInput:
		s.finish(tok)
		return nil
	case Marker:
		closer := s.closers[tok.marker]
		delete(s.closers, tok.marker)
		if closer == nil {
			return nil
		}
		return closer(tok)
	case CharToken:
		return s.dispatchChar(tok)
	}
	if tok.NoExpand {
		// acts like \relax
		return nil
	}
	b := s.scopes.Lookup(tok.Key())
	switch b.Kind {
	case CharAlias:
		alias := b.Token
		alias.Position = tok.Position
		return s.dispatchChar(alias)
	case Register:
		if b.Register.Kind == CharConstant {
			return s.emitText(string(rune(b.Register.Index)), tok.Position)
		}
		return s.assignRegister(tok, b.Register, s.takeGlobal())
	case BuiltinCommand:
		return s.invoke(tok, b.Command)
	}
	return nil
}

func (s *Session) invoke(tok Token, cmd *Command) error {
	if !cmd.Prefixable {
		s.global = false
	}
	if cmd.Execute != nil {
		if err := s.enter(tok.Position); err != nil {
			return err
		}
		defer s.leave()
		return cmd.Execute(s, tok)
	}
	if cmd.Expand != nil {
		// an expandable command marked \noexpand is handled in dispatch,
		// so this is a command like \endcsname that has no meaning here
		return nil
	}
	return s.invokeLeaf(tok, cmd)
}

// invokeLeaf parses the arguments of a leaf command and emits its node.
func (s *Session) invokeLeaf(tok Token, cmd *Command) error {
	args, err := s.parseArgs(tok, cmd.sig)
	if err != nil {
		return err
	}
	if cmd.Text != "" && cmd.Build == nil {
		return s.emitText(cmd.Text, tok.Position)
	}

	node := s.doc.CreateElement(cmd.Name)
	s.doc.SetLevel(node, cmd.Level)
	content, hasContent := cmd.sig.content()
	if cmd.Build != nil {
		if err := cmd.Build(s.doc, s.digester.top(), node, args); err != nil {
			return fmt.Errorf("%s: %s: %w", tok.Position, tok.Text(), err)
		}
	} else {
		for name, value := range args {
			if !hasContent || name != content.Name {
				s.doc.SetAttr(node, name, value)
			}
		}
	}
	if !hasContent {
		s.emit(Item{Mode: ItemNode, Node: node, Name: cmd.Name, Level: cmd.Level, Block: cmd.Block, Digest: cmd.Digest, Pos: tok.Position})
		return nil
	}

	if err := s.pushScope(ScopeBrace, cmd.Name, tok.Position); err != nil {
		return err
	}
	s.emit(Item{Mode: ItemBegin, Node: node, Name: cmd.Name, Level: cmd.Level, Block: cmd.Block, Pos: tok.Position})
	id := s.newMarker(func(end Token) error {
		if err := s.scopes.Pop(ScopeBrace, cmd.Name); err != nil {
			return at(err, end.Position)
		}
		s.emit(Item{Mode: ItemEnd, Name: cmd.Name, Level: cmd.Level, Pos: end.Position})
		return nil
	})
	if err := s.pushFront(s.markerToken(id, tok.Position)); err != nil {
		return err
	}
	return s.pushFront(args.Tokens(content.Name)...)
}

func (s *Session) dispatchChar(tok Token) error {
	switch tok.Catcode {
	case CatBeginGroup:
		if err := s.pushScope(ScopeBrace, "group", tok.Position); err != nil {
			return err
		}
		s.emit(Item{Mode: ItemBegin, Node: s.doc.CreateElement("group"), Name: "group", Level: LevelCommand, Pos: tok.Position})
		return nil
	case CatEndGroup:
		return s.closeGroup(tok)
	case CatMathShift:
		return s.mathShift(tok)
	case CatSuperscript, CatSubscript:
		if s.IsMathMode() {
			return s.script(tok)
		}
	}
	return s.collectText(tok)
}

// closeGroup handles a closing brace. It closes a brace group, a box or a
// script; anything else is a mismatch.
func (s *Session) closeGroup(tok Token) error {
	kind, name := s.scopes.Current()
	switch kind {
	case ScopeBrace, ScopeBox, ScopeScript:
	default:
		return at(s.scopes.Pop(ScopeBrace, ""), tok.Position)
	}
	if err := s.scopes.Pop(kind, name); err != nil {
		return at(err, tok.Position)
	}
	if kind == ScopeBox {
		s.popMath()
	}
	s.emit(Item{Mode: ItemEnd, Name: name, Level: LevelCommand, Pos: tok.Position})
	return nil
}

// isText reports whether tok is typeset as a character.
func (s *Session) isText(tok Token) bool {
	if tok.Kind != CharToken {
		return false
	}
	switch tok.Catcode {
	case CatLetter, CatOther, CatSpace, CatAlignment, CatParameter:
		return true
	case CatSuperscript, CatSubscript:
		return !s.IsMathMode()
	}
	return false
}

// collectText gathers tok and the character tokens that follow it into
// one text node.
func (s *Session) collectText(tok Token) error {
	var sb strings.Builder
	sb.WriteRune(tok.Char)
	for n := 1; n < maxTextRun; n++ {
		next, err := s.nextExpanded()
		if err != nil {
			return err
		}
		if !s.isText(next) {
			if err := s.pushFront(next); err != nil {
				return err
			}
			break
		}
		sb.WriteRune(next.Char)
	}
	return s.emitText(sb.String(), tok.Position)
}

// maxTextRun caps the characters gathered into one text node. A longer
// run continues in the next node.
const maxTextRun = 4096

func (s *Session) emitText(text string, pos Position) error {
	s.emit(Item{Mode: ItemNode, Node: s.doc.CreateText(text), Level: LevelCharacter, Pos: pos})
	return nil
}

// finish ends the pass at the end of input, reporting whatever is still open.
func (s *Session) finish(tok Token) {
	for i := len(s.conds) - 1; i >= 0; i-- {
		f := s.conds[i]
		s.warn(ErrCodeIncompleteIf, f.pos, "end of input when %s was incomplete", f.name)
	}
	s.conds = nil
	if s.IsMathMode() {
		s.warn(CodeUnclosedGroup, tok.Position, "end of input inside math")
	}
	if depth := s.scopes.Depth() - 1; depth > 0 {
		kind, name := s.scopes.Current()
		s.warn(CodeUnclosedGroup, tok.Position, "end of input with %d open groups, innermost %s %q", depth, kind, name)
	}
	s.stopped = true
}
