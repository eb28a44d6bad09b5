// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

import (
	"fmt"
	"sort"
)

// Command describes a built-in control sequence.
//
// Leaf commands only set the descriptive fields: the session parses their
// arguments with Signature, creates an element named Name at Level and
// calls Build with the arguments and the current insertion point.
// A command with a Text and no Build produces that text instead.
//
// Primitives also set one of Expand, which runs inside the expansion loop
// with raw access to the input, or Execute, which runs when the command
// reaches the item loop.
type Command struct {
	Name      string
	Signature string
	Level     Level
	Block     bool // closes the current paragraph and is not wrapped in one
	Text      string

	// Build fills in node, which will be appended under parent.
	Build func(doc *Document, parent, node NodeID, args Arguments) error

	// Digest replaces the default placement of node in the tree.
	Digest func(d *Digester, node NodeID) error

	Role       Role
	Prefixable bool // accepts \global
	Expand     func(s *Session, tok Token) error
	Execute    func(s *Session, tok Token) error

	// Value returns the command's value when it is used as an internal
	// quantity, with dimen set for dimensions.
	Value func(s *Session, tok Token) (value int, dimen bool, err error)

	sig Signature
}

func (c *Command) compile() error {
	sig, err := ParseSignature(c.Signature)
	if err != nil {
		return fmt.Errorf("\\%s: %w", c.Name, err)
	}
	c.sig = sig
	if c.Level == 0 {
		c.Level = LevelCommand
	}
	return nil
}

// Registry holds leaf commands by the key they are bound under: the name
// of a control sequence, or ActiveKey(ch) for an active character.
type Registry struct {
	commands map[string]*Command
}

// NewRegistry returns a registry holding cmds.
func NewRegistry(cmds ...*Command) (*Registry, error) {
	r := &Registry{commands: make(map[string]*Command)}
	for _, cmd := range cmds {
		if err := r.Add(cmd); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add adds or replaces a command. It fails if the signature does not parse.
func (r *Registry) Add(cmd *Command) error {
	if cmd.Name == "" {
		return fmt.Errorf("registry: command without a name")
	}
	if err := cmd.compile(); err != nil {
		return err
	}
	r.commands[cmd.Name] = cmd
	return nil
}

// Lookup returns the command bound under key.
func (r *Registry) Lookup(key string) (*Command, bool) {
	cmd, ok := r.commands[key]
	return cmd, ok
}

// Names returns the keys of all commands in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of commands.
func (r *Registry) Len() int {
	return len(r.commands)
}
