// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

// primitives returns fresh descriptors for every primitive. Each session
// gets its own, so sessions never share mutable state.
func primitives() []*Command {
	var cmds []*Command
	cmds = append(cmds, definitionPrimitives()...)
	cmds = append(cmds, registerPrimitives()...)
	cmds = append(cmds, groupPrimitives()...)
	cmds = append(cmds, expandablePrimitives()...)
	cmds = append(cmds, ifPrimitives()...)
	return cmds
}

func definitionPrimitives() []*Command {
	def := func(name string, global, expand bool) *Command {
		return &Command{
			Name:       name,
			Signature:  "name:Tok args:Args definition:nox",
			Prefixable: true,
			Execute: func(s *Session, tok Token) error {
				return s.define(tok, global || s.takeGlobal(), expand)
			},
		}
	}
	prefix := func(name string, sets bool) *Command {
		return &Command{
			Name:       name,
			Prefixable: true,
			Execute: func(s *Session, tok Token) error {
				global := s.takeGlobal() || sets
				next, err := s.nextExpandedNonSpace()
				if err != nil {
					return err
				}
				if !s.acceptsPrefix(next) {
					s.warn(CodeCantUse, next.Position, "you can't use a prefix with %s", next.Text())
					global = false
				}
				s.global = global
				return s.pushFront(next)
			},
		}
	}
	return []*Command{
		def("def", false, false),
		def("gdef", true, false),
		def("edef", false, true),
		def("xdef", true, true),
		prefix("global", true),
		prefix("long", false),
		prefix("outer", false),
		{
			Name:       "let",
			Prefixable: true,
			Execute: func(s *Session, tok Token) error {
				global := s.takeGlobal()
				name, err := s.nextRawNonSpace()
				if err != nil {
					return err
				}
				if _, err := s.scanRawEquals(); err != nil {
					return err
				}
				value, err := s.nextRaw()
				if err != nil {
					return err
				}
				if value.IsChar(CatSpace) {
					// one optional space after the equals sign
					if value, err = s.nextRaw(); err != nil {
						return err
					}
				}
				if !name.IsCommand() {
					s.warn(CodeCantUse, name.Position, "missing control sequence after \\let")
					return nil
				}
				s.scopes.Let(name, value, global)
				s.debug("%s: \\let%s=%s global %v", tok.Position, name.Text(), value.Text(), global)
				return nil
			},
		},
		{
			Name:      "@namedef",
			Signature: "name:str value:nox",
			Execute: func(s *Session, tok Token) error {
				args, err := s.argsOf(tok)
				if err != nil {
					return err
				}
				m := &Macro{Name: args.String("name"), Body: s.compileBody(args.String("name"), args.Tokens("value"), 0)}
				s.scopes.Define(m.Name, macroBinding(m), s.takeGlobal())
				return nil
			},
		},
		newcommand("newcommand", false),
		newcommand("renewcommand", true),
		newcommand("providecommand", true),
		{
			Name:      "newenvironment",
			Signature: "*star name:str [nargs] [default] begin:nox end:nox",
			Execute: func(s *Session, tok Token) error {
				return s.defineEnvironment(tok)
			},
		},
		{
			Name:      "renewenvironment",
			Signature: "*star name:str [nargs] [default] begin:nox end:nox",
			Execute: func(s *Session, tok Token) error {
				return s.defineEnvironment(tok)
			},
		},
		{
			Name: "newif",
			Execute: func(s *Session, tok Token) error {
				return s.newif(tok)
			},
		},
	}
}

// acceptsPrefix reports whether tok may follow \global, \long or \outer.
func (s *Session) acceptsPrefix(tok Token) bool {
	if !tok.IsCommand() || tok.NoExpand {
		return false
	}
	switch b := s.scopes.Lookup(tok.Key()); b.Kind {
	case Register:
		return true
	case BuiltinCommand:
		return b.Command.Prefixable
	}
	return false
}

// scanRawEquals skips spaces and an optional = without expanding.
func (s *Session) scanRawEquals() (bool, error) {
	tok, err := s.nextRawNonSpace()
	if err != nil {
		return false, err
	}
	if tok.IsOther('=') {
		return true, nil
	}
	return false, s.pushFront(tok)
}

// argsOf parses the arguments of the built-in command tok is bound to.
func (s *Session) argsOf(tok Token) (Arguments, error) {
	b := s.scopes.Lookup(tok.Key())
	return s.parseArgs(tok, b.Command.sig)
}

// define implements \def and its variants.
func (s *Session) define(tok Token, global, expand bool) error {
	args, err := s.argsOf(tok)
	if err != nil {
		return err
	}
	name := args.Token("name")
	if !name.IsCommand() {
		s.warn(CodeCantUse, name.Position, "missing control sequence inserted after %s", tok.Text())
		return nil
	}
	body := args.Tokens("definition")
	if expand {
		if body, err = s.expandTokens(body); err != nil {
			return err
		}
	}
	m := s.newMacro(name.Key(), args.Tokens("args"), body, name.Position)
	s.scopes.Define(name.Key(), macroBinding(m), global)
	s.debug("%s: %s%s global %v", tok.Position, tok.Text(), name.Text(), global)
	return nil
}

// newcommand implements \newcommand and friends: a name, an optional number
// of arguments, an optional default for the first one, and a body.
func newcommand(name string, redefine bool) *Command {
	return &Command{
		Name:      name,
		Signature: "*star name:cs [nargs] [default] definition:nox",
		Execute: func(s *Session, tok Token) error {
			args, err := s.argsOf(tok)
			if err != nil {
				return err
			}
			cs := args.Token("name")
			if !cs.IsCommand() {
				return nil
			}
			exists := s.scopes.Lookup(cs.Key()).Kind != Undefined
			switch {
			case name == "providecommand" && exists:
				return nil
			case !redefine && exists:
				s.warn(CodeCantUse, cs.Position, "command %s already defined", cs.Text())
			}
			m, err := s.argumentMacro(cs.Key(), args)
			if err != nil {
				return err
			}
			s.scopes.Define(cs.Key(), macroBinding(m), false)
			return nil
		},
	}
}

// argumentMacro builds a macro with undelimited parameters from the
// [nargs] [default] definition arguments of \newcommand.
func (s *Session) argumentMacro(name string, args Arguments) (*Macro, error) {
	n := 0
	if args.Has("nargs") {
		toks, err := s.expandTokens(args.Tokens("nargs"))
		if err != nil {
			return nil, err
		}
		for _, t := range toks {
			if t.Kind == CharToken && isdigit(t.Char) {
				n = n*10 + int(t.Char-'0')
			}
		}
		if n > 9 {
			s.warn(CodeIllegalParameter, Position{Source: s.name}, "\\%s has more than 9 parameters", name)
			n = 9
		}
	}
	m := &Macro{Name: name, Arity: n}
	for i := 1; i <= n; i++ {
		m.Params = append(m.Params, Token{Kind: ParamRef, Char: rune('0' + i), Catcode: catNone})
	}
	if args.Has("default") && n > 0 {
		m.HasOptional = true
		m.Optional = args.Tokens("default")
	}
	m.Body = s.compileBody(name, args.Tokens("definition"), n)
	return m, nil
}

// defineEnvironment implements \newenvironment{name}[n][default]{begin}{end}.
// The begin code is bound as a macro under the environment's name and the
// end code under "end" followed by the name.
func (s *Session) defineEnvironment(tok Token) error {
	args, err := s.argsOf(tok)
	if err != nil {
		return err
	}
	name := args.String("name")
	args["definition"] = args.Tokens("begin")
	begin, err := s.argumentMacro(name, args)
	if err != nil {
		return err
	}
	end := &Macro{Name: "end" + name, Body: s.compileBody(name, args.Tokens("end"), 0)}
	s.scopes.Define(name, macroBinding(begin), false)
	s.scopes.Define("end"+name, macroBinding(end), false)
	s.debug("%s: environment %q", tok.Position, name)
	return nil
}

// newif implements \newif\iffoo, which defines \iffoo as \iffalse and the
// switches \footrue and \foofalse.
func (s *Session) newif(tok Token) error {
	cs, err := s.readControlSequence(tok)
	if err != nil {
		return err
	}
	if cs.Kind != ControlSequence || len(cs.Name) < 3 || cs.Name[:2] != "if" {
		s.warn(CodeCantUse, cs.Position, "%s needs a control sequence starting with \\if", tok.Text())
		return nil
	}
	base := cs.Name[2:]
	s.scopes.Define(cs.Name, s.scopes.Lookup("iffalse"), false)
	for _, value := range []string{"true", "false"} {
		body := TokenList{csToken("let", cs.Position), cs, csToken("if"+value, cs.Position)}
		s.scopes.Define(base+value, macroBinding(&Macro{Name: base + value, Body: body}), false)
	}
	return nil
}

// registerPrimitives returns the register and catcode primitives.
func registerPrimitives() []*Command {
	bank := func(name string, kind RegisterKind) *Command {
		return &Command{
			Name:       name,
			Prefixable: true,
			Execute: func(s *Session, tok Token) error {
				global := s.takeGlobal()
				n, err := s.scanInt()
				if err != nil {
					return err
				}
				return s.assignRegister(tok, RegisterRef{Kind: kind, Index: n}, global)
			},
			Value: func(s *Session, tok Token) (int, bool, error) {
				n, err := s.scanInt()
				if err != nil {
					return 0, false, err
				}
				return s.scopes.Register(RegisterRef{Kind: kind, Index: n}), kind == DimenRegister, nil
			},
		}
	}
	alias := func(name string, kind RegisterKind) *Command {
		return &Command{
			Name:       name,
			Signature:  "command:cs = num:Number",
			Prefixable: true,
			Execute: func(s *Session, tok Token) error {
				global := s.takeGlobal()
				args, err := s.argsOf(tok)
				if err != nil {
					return err
				}
				cs := args.Token("command")
				if !cs.IsCommand() {
					return nil
				}
				s.scopes.Define(cs.Key(), registerBinding(RegisterRef{Kind: kind, Index: args.Int("num")}), global)
				return nil
			},
		}
	}
	arithmetic := func(name string) *Command {
		return &Command{
			Name:       name,
			Prefixable: true,
			Execute: func(s *Session, tok Token) error {
				return s.arithmetic(tok, name, s.takeGlobal())
			},
		}
	}
	return []*Command{
		bank("count", CountRegister),
		bank("dimen", DimenRegister),
		alias("countdef", CountRegister),
		alias("dimendef", DimenRegister),
		alias("chardef", CharConstant),
		arithmetic("advance"),
		arithmetic("multiply"),
		arithmetic("divide"),
		{
			Name:       "catcode",
			Signature:  "char:Number = code:Number",
			Prefixable: true,
			Execute: func(s *Session, tok Token) error {
				global := s.takeGlobal()
				args, err := s.argsOf(tok)
				if err != nil {
					return err
				}
				cc := Catcode(args.Int("code"))
				if !cc.Valid() {
					s.warn(CodeInvalidCatcode, tok.Position, "invalid code (%d), should be at most 15", int(cc))
					return nil
				}
				s.scopes.SetCatcode(rune(args.Int("char")), cc, global)
				return nil
			},
			Value: func(s *Session, tok Token) (int, bool, error) {
				n, err := s.scanInt()
				return int(s.scopes.Catcode(rune(n))), false, err
			},
		},
		{
			Name: "makeatletter",
			Execute: func(s *Session, tok Token) error {
				s.scopes.SetCatcode('@', CatLetter, false)
				return nil
			},
		},
		{
			Name: "makeatother",
			Execute: func(s *Session, tok Token) error {
				s.scopes.SetCatcode('@', CatOther, false)
				return nil
			},
		},
		{
			Name: "active",
			Value: func(*Session, Token) (int, bool, error) {
				return int(CatActive), false, nil
			},
		},
		{
			Name: "showthe",
			Execute: func(s *Session, tok Token) error {
				next, err := s.nextExpandedNonSpace()
				if err != nil {
					return err
				}
				text, ok, err := s.theText(next)
				if err != nil {
					return err
				}
				if !ok {
					s.warn(CodeCantUse, next.Position, "you can't use %s after \\showthe", next.Text())
					return nil
				}
				s.info(CodeShow, tok.Position, "> %s.", text)
				return nil
			},
		},
	}
}

// assignRegister reads an optional = and a value into a register.
func (s *Session) assignRegister(tok Token, ref RegisterRef, global bool) error {
	if _, err := s.scanKeyword("="); err != nil {
		return err
	}
	var v int
	switch ref.Kind {
	case CountRegister:
		n, err := s.scanInt()
		if err != nil {
			return err
		}
		v = n
	case DimenRegister:
		d, err := s.scanDimen()
		if err != nil {
			return err
		}
		v = int(d)
	default:
		s.warn(CodeCantUse, tok.Position, "you can't assign to %s", tok.Text())
		return nil
	}
	s.scopes.SetRegister(ref, v, global)
	return nil
}

// registerTarget reads the register operand of \advance and friends.
func (s *Session) registerTarget(owner Token) (RegisterRef, bool, error) {
	tok, err := s.nextExpandedNonSpace()
	if err != nil {
		return RegisterRef{}, false, err
	}
	if tok.IsCommand() && !tok.NoExpand {
		b := s.scopes.Lookup(tok.Key())
		switch {
		case b.Kind == Register && (b.Register.Kind == CountRegister || b.Register.Kind == DimenRegister):
			return b.Register, true, nil
		case b.Kind == BuiltinCommand && (b.Command.Name == "count" || b.Command.Name == "dimen"):
			n, err := s.scanInt()
			if err != nil {
				return RegisterRef{}, false, err
			}
			kind := CountRegister
			if b.Command.Name == "dimen" {
				kind = DimenRegister
			}
			return RegisterRef{Kind: kind, Index: n}, true, nil
		}
	}
	s.warn(CodeCantUse, tok.Position, "you can't use %s after %s", tok.Text(), owner.Text())
	return RegisterRef{}, false, s.pushFront(tok)
}

// arithmetic implements \advance, \multiply and \divide.
func (s *Session) arithmetic(tok Token, op string, global bool) error {
	ref, ok, err := s.registerTarget(tok)
	if err != nil || !ok {
		return err
	}
	if _, err := s.scanKeyword("by"); err != nil {
		return err
	}
	v := s.scopes.Register(ref)
	var operand int
	if op == "advance" && ref.Kind == DimenRegister {
		d, err := s.scanDimen()
		if err != nil {
			return err
		}
		operand = int(d)
	} else if operand, err = s.scanInt(); err != nil {
		return err
	}
	switch op {
	case "advance":
		v += operand
	case "multiply":
		v *= operand
	case "divide":
		if operand == 0 {
			s.warn(CodeNumberTooBig, tok.Position, "arithmetic overflow")
			return nil
		}
		v /= operand
	}
	limit := maxInt
	if ref.Kind == DimenRegister {
		limit = maxDimen
	}
	if v > limit || v < -limit {
		s.warn(CodeNumberTooBig, tok.Position, "arithmetic overflow")
		return nil
	}
	s.scopes.SetRegister(ref, v, global)
	return nil
}

// groupPrimitives returns the grouping, environment and box primitives.
func groupPrimitives() []*Command {
	box := func(name string) *Command {
		return &Command{Name: name, Execute: func(s *Session, tok Token) error {
			return s.beginBox(tok, name)
		}}
	}
	noop := func(name string) *Command {
		return &Command{Name: name, Execute: func(*Session, Token) error { return nil }}
	}
	return []*Command{
		noop("relax"),
		{
			Name: "begingroup",
			Execute: func(s *Session, tok Token) error {
				return s.pushScope(ScopeSemiSimple, "", tok.Position)
			},
		},
		{
			Name: "endgroup",
			Execute: func(s *Session, tok Token) error {
				return at(s.scopes.Pop(ScopeSemiSimple, ""), tok.Position)
			},
		},
		{
			Name:    "par",
			Level:   LevelPar,
			Execute: func(s *Session, tok Token) error {
				s.emit(Item{Mode: ItemParBreak, Level: LevelPar, Pos: tok.Position})
				return nil
			},
		},
		{
			Name:    "begin",
			Execute: beginEnvironment,
		},
		{
			Name:    "end",
			Execute: endEnvironment,
		},
		{
			Name:   "over",
			Digest: digestOver,
		},
		box("hbox"),
		box("vbox"),
		box("mbox"),
		{
			Name: "stop",
			Execute: func(s *Session, tok Token) error {
				s.finish(tok)
				return nil
			},
		},
		{
			Name: "char",
			Execute: func(s *Session, tok Token) error {
				n, err := s.scanInt()
				if err != nil {
					return err
				}
				return s.emitText(string(rune(n)), tok.Position)
			},
		},
		{
			Name: "protect",
			Expand: func(s *Session, tok Token) error {
				if s.protecting == 0 {
					return nil
				}
				next, err := s.nextRaw()
				if err != nil {
					return err
				}
				next.NoExpand = next.IsCommand()
				return s.pushFront(next)
			},
		},
		{
			Name: "endcsname",
			Role: RoleEndcsname,
			Execute: func(s *Session, tok Token) error {
				s.warn(CodeExtraEndcsname, tok.Position, "extra \\endcsname")
				return nil
			},
		},
	}
}

// beginEnvironment implements \begin{name}. A macro bound under the name
// is expanded inside the new scope; a built-in with that name supplies the
// element's level and arguments.
func beginEnvironment(s *Session, tok Token) error {
	toks, err := s.readGroupOrToken(tok)
	if err != nil {
		return err
	}
	toks, err = s.expandTokens(toks)
	if err != nil {
		return err
	}
	name := toks.String()
	if err := s.pushScope(ScopeEnvironment, name, tok.Position); err != nil {
		return err
	}
	s.debug("%s: \\begin{%s}", tok.Position, name)

	b := s.scopes.Lookup(name)
	node := s.doc.CreateElement(name)
	s.doc.SetLevel(node, LevelEnvironment)
	item := Item{Mode: ItemBegin, Node: node, Name: name, Level: LevelEnvironment, Block: true, Pos: tok.Position}
	switch b.Kind {
	case UserMacro:
		s.emit(item)
		return s.expandMacro(tok, b.Macro)
	case BuiltinCommand:
		cmd := b.Command
		if cmd.Execute != nil || cmd.Expand != nil {
			break
		}
		args, err := s.parseArgs(tok, cmd.sig)
		if err != nil {
			return err
		}
		if cmd.Level < item.Level {
			item.Level = cmd.Level
			s.doc.SetLevel(node, cmd.Level)
		}
		if cmd.Build != nil {
			if err := cmd.Build(s.doc, s.digester.top(), node, args); err != nil {
				return err
			}
		} else {
			for key, value := range args {
				s.doc.SetAttr(node, key, value)
			}
		}
	}
	s.emit(item)
	return nil
}

// endEnvironment implements \end{name}. The end code of a user environment
// runs before its scope is closed.
func endEnvironment(s *Session, tok Token) error {
	toks, err := s.readGroupOrToken(tok)
	if err != nil {
		return err
	}
	toks, err = s.expandTokens(toks)
	if err != nil {
		return err
	}
	name := toks.String()
	closeEnv := func(end Token) error {
		if err := s.scopes.Pop(ScopeEnvironment, name); err != nil {
			return at(err, end.Position)
		}
		s.debug("%s: \\end{%s}", end.Position, name)
		s.emit(Item{Mode: ItemEnd, Name: name, Level: LevelEnvironment, Pos: end.Position})
		return nil
	}
	b := s.scopes.Lookup("end" + name)
	if b.Kind != UserMacro {
		return closeEnv(tok)
	}
	id := s.newMarker(closeEnv)
	if err := s.pushFront(s.markerToken(id, tok.Position)); err != nil {
		return err
	}
	return s.pushFront(b.Macro.substitute(nil)...)
}

// digestOver claims the content before \over as the numerator and digests
// the content after it, up to the end of the enclosing group, as the
// denominator.
func digestOver(d *Digester, node NodeID) error {
	doc := d.Document()
	d.Place(node, doc.Level(node))
	numer := doc.CreateElement("numer")
	d.Claim(numer, node)
	denom := doc.CreateElement("denom")
	doc.Append(node, numer)
	doc.Append(node, denom)
	return d.DigestInto(denom, doc.Level(node))
}
