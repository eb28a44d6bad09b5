// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

// DefaultRegistry returns the leaf commands a session installs when no
// registry is given. It returns a new registry on every call.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(defaultLeaves()...)
	if err != nil {
		// the table below is static, so this is a programming error
		panic(err)
	}
	return r
}

func defaultLeaves() []*Command {
	ignore := func(name, sig string) *Command {
		return &Command{Name: name, Signature: sig, Execute: func(s *Session, tok Token) error {
			_, err := s.argsOf(tok)
			return err
		}}
	}
	symbol := func(name, text string) *Command {
		return &Command{Name: name, Text: text}
	}
	font := func(name string) *Command {
		return &Command{Name: name, Signature: "text:content"}
	}
	section := func(name string, level Level) *Command {
		return &Command{Name: name, Signature: "*star [toc] title:str", Level: level, Block: true}
	}
	list := func(name string) *Command {
		return &Command{Name: name, Level: LevelEnvironment, Block: true}
	}
	return []*Command{
		ignore("leavevmode", ""),
		ignore("immediate", ""),
		ignore("write", "stream:Number text:nox"),
		ignore("openout", "stream:Number = name:str"),
		ignore("closeout", "stream:Number"),
		ignore("everypar", "= text:nox"),
		ignore("noindent", ""),
		ignore("indent", ""),

		{Name: "kern", Signature: "size:Dimen", Build: buildSize},
		{Name: "hskip", Signature: "size:Glue", Build: buildSize},
		{Name: "vskip", Signature: "size:Glue", Build: buildSize, Block: true},
		{Name: "hspace", Signature: "*star size:Glue", Build: buildSize},
		{Name: "vspace", Signature: "*star size:Glue", Build: buildSize, Block: true},
		{Name: "hrule", Block: true},
		{Name: "hfil"},
		{Name: "hfill"},
		{Name: "vfil", Block: true},

		symbol(" ", " "),
		symbol("{", "{"),
		symbol("}", "}"),
		symbol("$", "$"),
		symbol("&", "&"),
		symbol("#", "#"),
		symbol("%", "%"),
		symbol("_", "_"),
		symbol(ActiveKey('~'), "\u00a0"),
		symbol("ldots", "…"),
		symbol("dots", "…"),
		symbol("TeX", "TeX"),
		symbol("LaTeX", "LaTeX"),
		{Name: "\\", Signature: "*star [space]"},

		font("textbf"),
		font("textit"),
		font("texttt"),
		font("textrm"),
		font("emph"),
		font("footnote"),

		section("part", LevelPart),
		section("chapter", LevelChapter),
		section("section", LevelSection),
		section("subsection", LevelSubsection),
		section("subsubsection", LevelSubsubsection),
		section("paragraph", LevelParagraph),
		section("subparagraph", LevelSubparagraph),

		{Name: "label", Signature: "label:str"},
		{Name: "ref", Signature: "label:str"},
		{Name: "item", Signature: "[term]", Level: LevelPar, Block: true},
		list("itemize"),
		list("enumerate"),
		list("description"),
		list("center"),
		list("quote"),
	}
}

// buildSize stores a Dimen or Glue argument in its printed form.
func buildSize(doc *Document, parent, node NodeID, args Arguments) error {
	switch v := args["size"].(type) {
	case Dimen:
		doc.SetAttr(node, "size", v.String())
	case Glue:
		doc.SetAttr(node, "size", v.String())
	}
	if args.Bool("star") {
		doc.SetAttr(node, "star", true)
	}
	return nil
}
