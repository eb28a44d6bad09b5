// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

import (
	"fmt"
	"log/slog"
)

// ScopeKind says what opened a scope, so that the closing token can be
// checked against it.
type ScopeKind int

const (
	ScopeBase        ScopeKind = iota
	ScopeBrace                 // { ... }
	ScopeSemiSimple            // \begingroup ... \endgroup
	ScopeEnvironment           // \begin{name} ... \end{name}
	ScopeMath                  // $ ... $ and $$ ... $$
	ScopeBox                   // \hbox{ ... } and friends
	ScopeScript                // ^{ ... } and _{ ... }
)

var scopeKindNames = [...]string{"base", "group", "semi-simple group", "environment", "math", "box", "script"}

func (k ScopeKind) String() string {
	if 0 <= k && int(k) < len(scopeKindNames) {
		return scopeKindNames[k]
	}
	return fmt.Sprintf("ScopeKind(%d)", int(k))
}

type frame struct {
	kind ScopeKind
	name string

	// catcodes is shared with the enclosing frame until the first local
	// change, when the frame clones it and sets ownsCatcodes.
	catcodes     *CatcodeTable
	ownsCatcodes bool

	bindings  map[string]Binding
	registers map[RegisterRef]int
}

// Context is the stack of scopes for one session.
// The base frame is created by NewContext and is never popped.
type Context struct {
	frames []*frame
	logger *slog.Logger
}

// NewContext returns a context holding only the base frame,
// with the plain TeX category codes.
func NewContext(logger *slog.Logger) *Context {
	base := &frame{
		kind:         ScopeBase,
		catcodes:     NewCatcodeTable(),
		ownsCatcodes: true,
		bindings:     make(map[string]Binding),
		registers:    make(map[RegisterRef]int),
	}
	return &Context{frames: []*frame{base}, logger: logger}
}

func (c *Context) top() *frame {
	return c.frames[len(c.frames)-1]
}

func (c *Context) base() *frame {
	return c.frames[0]
}

// Depth returns the number of frames, including the base frame.
func (c *Context) Depth() int {
	return len(c.frames)
}

// Current returns the kind and name of the innermost scope.
func (c *Context) Current() (ScopeKind, string) {
	f := c.top()
	return f.kind, f.name
}

// Push opens a new scope. The new scope shares the catcode table of the
// enclosing scope until it changes a code locally.
func (c *Context) Push(kind ScopeKind, name string) {
	outer := c.top()
	c.frames = append(c.frames, &frame{
		kind:     kind,
		name:     name,
		catcodes: outer.catcodes,
	})
	c.debug("push %s %q depth %d", kind, name, len(c.frames))
}

// Pop closes the innermost scope, discarding its local bindings and
// catcode changes. It returns a *StructuralError when the base frame
// would be popped, or when the innermost scope was not opened by the
// same kind and name. The error carries no position; callers add it.
func (c *Context) Pop(kind ScopeKind, name string) error {
	if len(c.frames) == 1 {
		return structural(ErrCodeExtraEndGroup, Position{}, "too many closings of a %s", kind)
	}
	f := c.top()
	if f.kind != kind || (name != "" && f.name != name) {
		if f.kind == ScopeEnvironment {
			return structural(ErrCodeMismatchedGroup, Position{}, "\\begin{%s} ended by %s %q", f.name, kind, name)
		}
		return structural(ErrCodeMismatchedGroup, Position{}, "%s %q ended by %s %q", f.kind, f.name, kind, name)
	}
	c.frames[len(c.frames)-1] = nil
	c.frames = c.frames[:len(c.frames)-1]
	c.debug("pop %s %q depth %d", kind, f.name, len(c.frames))
	return nil
}

// Lookup returns the binding for key, searching from the innermost frame
// outward. A missing key returns the Undefined binding.
func (c *Context) Lookup(key string) Binding {
	for i := len(c.frames) - 1; i >= 0; i-- {
		if b, ok := c.frames[i].bindings[key]; ok {
			return b
		}
	}
	return Binding{}
}

// Define binds key. A local binding is written to the innermost frame.
// A global binding is written to the base frame, and any local binding
// for the same key is removed from the inner frames.
func (c *Context) Define(key string, b Binding, global bool) {
	if !global {
		f := c.top()
		if f.bindings == nil {
			f.bindings = make(map[string]Binding)
		}
		f.bindings[key] = b
		return
	}
	for _, f := range c.frames[1:] {
		delete(f.bindings, key)
	}
	c.base().bindings[key] = b
}

// Let binds dst to the current meaning of src. A command token takes the
// binding it has right now; a character token is bound as a character.
func (c *Context) Let(dst, src Token, global bool) {
	var b Binding
	if src.IsCommand() {
		b = c.Lookup(src.Key())
	} else {
		src.NoExpand = false
		b = Binding{Kind: CharAlias, Token: src}
	}
	c.Define(dst.Key(), b, global)
}

// Catcode implements CatcodeSource.
func (c *Context) Catcode(ch rune) Catcode {
	return c.top().catcodes.Get(ch)
}

// SetCatcode changes the category code of ch. A local change clones the
// innermost table first if the frame does not own it yet. A global change
// is written to every table owned by a frame, which includes the base.
func (c *Context) SetCatcode(ch rune, cc Catcode, global bool) {
	if !global {
		f := c.top()
		if !f.ownsCatcodes {
			f.catcodes = f.catcodes.clone()
			f.ownsCatcodes = true
		}
		f.catcodes.set(ch, cc)
		return
	}
	for _, f := range c.frames {
		if f.ownsCatcodes {
			f.catcodes.set(ch, cc)
		}
	}
}

// Register returns the value of a count or dimen register.
// Registers that were never set are zero.
func (c *Context) Register(ref RegisterRef) int {
	switch ref.Kind {
	case CharConstant, CountConstant:
		return ref.Index
	}
	for i := len(c.frames) - 1; i >= 0; i-- {
		if v, ok := c.frames[i].registers[ref]; ok {
			return v
		}
	}
	return 0
}

// SetRegister assigns a count or dimen register with the same scoping
// rules as Define. Constants cannot be assigned and are ignored.
func (c *Context) SetRegister(ref RegisterRef, value int, global bool) {
	switch ref.Kind {
	case CharConstant, CountConstant:
		return
	}
	if !global {
		f := c.top()
		if f.registers == nil {
			f.registers = make(map[RegisterRef]int)
		}
		f.registers[ref] = value
		return
	}
	for _, f := range c.frames[1:] {
		delete(f.registers, ref)
	}
	c.base().registers[ref] = value
}

func (c *Context) debug(format string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(fmt.Sprintf(format, args...))
}
