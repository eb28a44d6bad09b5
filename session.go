// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Session invariants
//
// A session digests one document in a single pass. It owns every piece of
// mutable state the pass needs:
//
//   scopes  - the Context, the stack of scopes with catcodes and bindings,
//             pushed only through pushScope
//   q       - tokens pushed back in front of the lexer
//   conds   - the open conditionals, one frame per \if that has no \fi yet,
//             at most maxGroupDepth of them
//   math    - the math region markers, MathNone for boxes
//   items   - items produced but not yet handed to the digester
//   closers - actions run when a Marker token reaches the item loop
//
// Tokens flow lexer -> q -> nextRaw -> nextExpanded -> dispatch -> items
// -> Digester. Nothing in a session is shared, so independent sessions may
// run concurrently.

const (
	DefaultMaxDepth      = 512
	DefaultMaxExpansions = 100_000
	DefaultMaxPending    = 100_000
	DefaultMaxInputDepth = 32
	DefaultMaxGroupDepth = 1024
)

// Session digests one document.
type Session struct {
	ctx    context.Context
	name   string
	logger *slog.Logger
	sink   DiagnosticSink
	diags  *DiagnosticList

	sources  SourceProvider
	registry *Registry
	jobName  string

	lexer    *Lexer
	q        queue
	scopes   *Context
	conds    []*condFrame
	math     []MathKind
	items    []Item
	closers  map[int]func(tok Token) error
	markers  int
	doc      *Document
	digester *Digester

	global     bool // a \global prefix is pending
	protecting int  // inside \edef, where \protect keeps the next token
	stopped    bool

	maxDepth      int
	maxExpansions int
	maxPending    int
	maxInputDepth int
	maxGroupDepth int
	depth         int
	expansions    int
}

// NewSession returns a session that reads input, named name in positions
// and diagnostics.
func NewSession(ctx context.Context, name string, input []byte, options ...Option) (*Session, error) {
	s := &Session{
		ctx:           ctx,
		name:          name,
		jobName:       name,
		closers:       make(map[int]func(Token) error),
		maxDepth:      DefaultMaxDepth,
		maxExpansions: DefaultMaxExpansions,
		maxPending:    DefaultMaxPending,
		maxInputDepth: DefaultMaxInputDepth,
		maxGroupDepth: DefaultMaxGroupDepth,
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.sink == nil {
		s.diags = NewDiagnosticList(s.logger)
		s.sink = s.diags
	}
	if s.registry == nil {
		s.registry = DefaultRegistry()
	}

	s.scopes = NewContext(s.logger)
	if err := s.install(); err != nil {
		return nil, err
	}
	s.lexer = NewLexer(ctx, name, input, s.scopes, s.logger, s.sink)
	s.doc = NewDocument()
	s.digester = newDigester(s)
	return s, nil
}

// Digest is a convenience wrapper that creates a session and parses input.
func Digest(ctx context.Context, name string, input []byte, options ...Option) (*Document, error) {
	s, err := NewSession(ctx, name, input, options...)
	if err != nil {
		return nil, err
	}
	return s.Parse()
}

// install binds the primitives and then the registry's commands in the
// base scope. Registry commands replace primitives of the same name.
func (s *Session) install() error {
	for _, cmd := range primitives() {
		if err := cmd.compile(); err != nil {
			return err
		}
		s.scopes.Define(cmd.Name, commandBinding(cmd), true)
	}
	for _, name := range s.registry.Names() {
		cmd, _ := s.registry.Lookup(name)
		s.scopes.Define(name, commandBinding(cmd), true)
	}
	return nil
}

// Parse runs the pass. The document is returned even when err is not nil;
// it holds every node digested before the error.
func (s *Session) Parse() (*Document, error) {
	err := s.digester.run()
	if err != nil {
		s.reportError(err)
	}
	return s.doc, err
}

// Context returns the session's scope stack.
func (s *Session) Context() *Context {
	return s.scopes
}

// Document returns the document being built.
func (s *Session) Document() *Document {
	return s.doc
}

// Diagnostics returns what the default sink collected. It is nil when the
// session was created WithDiagnosticSink.
func (s *Session) Diagnostics() []Diagnostic {
	if s.diags == nil {
		return nil
	}
	return s.diags.All()
}

// IsMathMode reports whether the innermost math region is inline or display.
func (s *Session) IsMathMode() bool {
	n := len(s.math)
	return n > 0 && s.math[n-1] != MathNone
}

// nextRaw returns the next token without expanding it.
func (s *Session) nextRaw() (Token, error) {
	if err := s.ctx.Err(); err != nil {
		return Token{Kind: EndOfInput}, err
	}
	if tok, ok := s.q.popFront(); ok {
		return tok, nil
	}
	return s.lexer.NextToken(), nil
}

func (s *Session) nextRawNonSpace() (Token, error) {
	for {
		tok, err := s.nextRaw()
		if err != nil || !tok.IsChar(CatSpace) {
			return tok, err
		}
	}
}

// nextExpanded returns the next token that cannot be expanded, expanding
// macros and expandable primitives in front of it.
func (s *Session) nextExpanded() (Token, error) {
	for {
		tok, err := s.nextRaw()
		if err != nil {
			return tok, err
		}
		expanded, err := s.expand(tok)
		if err != nil {
			return tok, err
		}
		if !expanded {
			s.expansions = 0
			return tok, nil
		}
		s.expansions++
		if s.expansions > s.maxExpansions {
			return tok, &LimitError{Limit: "expansions", Max: s.maxExpansions, Pos: tok.Position}
		}
	}
}

func (s *Session) nextExpandedNonSpace() (Token, error) {
	for {
		tok, err := s.nextExpanded()
		if err != nil || !tok.IsChar(CatSpace) {
			return tok, err
		}
	}
}

// expand expands tok once, if it can be expanded, and reports whether it
// did. An undefined command is reported and expands to nothing.
func (s *Session) expand(tok Token) (bool, error) {
	if !tok.IsCommand() || tok.NoExpand {
		return false, nil
	}
	b := s.scopes.Lookup(tok.Key())
	switch b.Kind {
	case UserMacro:
		return true, s.expandMacro(tok, b.Macro)
	case BuiltinCommand:
		if b.Command.Expand == nil {
			return false, nil
		}
		if err := s.enter(tok.Position); err != nil {
			return true, err
		}
		defer s.leave()
		return true, b.Command.Expand(s, tok)
	case Undefined:
		s.warn(CodeUndefinedControlSequence, tok.Position, "undefined control sequence %s", tok.Text())
		return true, nil
	}
	return false, nil
}

// expandTokens expands toks completely, the way \edef expands its body.
// Tokens marked with \noexpand are kept unexpanded.
func (s *Session) expandTokens(toks TokenList) (TokenList, error) {
	id := s.newMarker(nil)
	if err := s.pushFront(s.markerToken(id, Position{})); err != nil {
		return nil, err
	}
	if err := s.pushFront(toks...); err != nil {
		return nil, err
	}
	s.protecting++
	defer func() { s.protecting-- }()

	var out TokenList
	for {
		tok, err := s.nextExpanded()
		if err != nil {
			return out, err
		}
		switch {
		case tok.Kind == Marker && tok.marker == id:
			delete(s.closers, id)
			return out, nil
		case tok.Kind == EndOfInput:
			return out, s.pushFront(tok)
		}
		tok.NoExpand = false
		out = append(out, tok)
	}
}

// pushFront puts toks back in front of the input, keeping their order.
func (s *Session) pushFront(toks ...Token) error {
	if s.q.len()+len(toks) > s.maxPending {
		pos := Position{Source: s.name}
		if len(toks) != 0 {
			pos = toks[0].Position
		}
		return &LimitError{Limit: "pending", Max: s.maxPending, Pos: pos}
	}
	s.q.pushFrontList(toks)
	return nil
}

// enter and leave bound the depth of nested expansions and digestion.
func (s *Session) enter(pos Position) error {
	s.depth++
	if s.depth > s.maxDepth {
		return &LimitError{Limit: "depth", Max: s.maxDepth, Pos: pos}
	}
	return nil
}

func (s *Session) leave() {
	s.depth--
}

// pushScope opens a scope frame, bounded by the group depth limit.
func (s *Session) pushScope(kind ScopeKind, name string, pos Position) error {
	if s.scopes.Depth()-1 >= s.maxGroupDepth {
		return &LimitError{Limit: "groups", Max: s.maxGroupDepth, Pos: pos}
	}
	s.scopes.Push(kind, name)
	return nil
}

// newMarker registers closer and returns the id for a Marker token.
// The closer runs when the marker reaches the item loop.
func (s *Session) newMarker(closer func(tok Token) error) int {
	s.markers++
	s.closers[s.markers] = closer
	return s.markers
}

func (s *Session) markerToken(id int, pos Position) Token {
	return Token{Position: pos, Kind: Marker, Catcode: catNone, marker: id}
}

// takeGlobal returns and clears the pending \global prefix.
func (s *Session) takeGlobal() bool {
	global := s.global
	s.global = false
	return global
}

// at sets the position of a structural error that was created without one.
func at(err error, pos Position) error {
	var se *StructuralError
	if errors.As(err, &se) && se.Pos == (Position{}) {
		se.Pos = pos
	}
	return err
}

func (s *Session) report(level slog.Level, code string, pos Position, format string, args ...any) {
	s.sink.Report(Diagnostic{
		Severity: level,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Span:     spanFromPosition(pos),
	})
}

func (s *Session) warn(code string, pos Position, format string, args ...any) {
	s.report(slog.LevelWarn, code, pos, format, args...)
}

func (s *Session) info(code string, pos Position, format string, args ...any) {
	s.report(slog.LevelInfo, code, pos, format, args...)
}

// reportError sends the error that stopped the pass to the sink.
func (s *Session) reportError(err error) {
	pos, _ := errorPosition(err)
	s.sink.Report(Diagnostic{
		Severity: slog.LevelError,
		Code:     ErrorCode(err),
		Message:  err.Error(),
		Span:     spanFromPosition(pos),
	})
}

func (s *Session) debug(format string, args ...any) {
	s.logger.Debug(fmt.Sprintf(format, args...))
}
