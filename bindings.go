// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

// BindingKind tags the variant held by a Binding.
type BindingKind int

const (
	Undefined BindingKind = iota
	UserMacro
	BuiltinCommand
	Register
	CharAlias // the target of \let\x=<character>
)

func (k BindingKind) String() string {
	switch k {
	case UserMacro:
		return "macro"
	case BuiltinCommand:
		return "builtin"
	case Register:
		return "register"
	case CharAlias:
		return "character"
	}
	return "undefined"
}

// Binding is what a control sequence means.
// Exactly one of the fields after Kind is meaningful, selected by Kind.
type Binding struct {
	Kind     BindingKind
	Macro    *Macro
	Command  *Command
	Register RegisterRef
	Token    Token
}

func macroBinding(m *Macro) Binding {
	return Binding{Kind: UserMacro, Macro: m}
}

func commandBinding(c *Command) Binding {
	return Binding{Kind: BuiltinCommand, Command: c}
}

func registerBinding(ref RegisterRef) Binding {
	return Binding{Kind: Register, Register: ref}
}

// SameMeaning reports whether two bindings are indistinguishable to \ifx.
func (b Binding) SameMeaning(other Binding) bool {
	if b.Kind != other.Kind {
		return false
	}
	switch b.Kind {
	case UserMacro:
		return b.Macro.Equal(other.Macro)
	case BuiltinCommand:
		return b.Command == other.Command
	case Register:
		return b.Register == other.Register
	case CharAlias:
		return b.Token.Equal(other.Token)
	}
	return true
}

// role returns the conditional role of a binding, used when skipping.
func (b Binding) role() Role {
	if b.Kind == BuiltinCommand {
		return b.Command.Role
	}
	return RoleNone
}

// RegisterKind selects a register bank.
type RegisterKind int

const (
	CountRegister RegisterKind = iota
	DimenRegister
	CharConstant  // \chardef: the index is the character code
	CountConstant // a read-only integer, like \active
)

// RegisterRef names a register, or a constant for CharConstant and CountConstant.
type RegisterRef struct {
	Kind  RegisterKind
	Index int
}

// Role marks the built-ins the conditional engine must recognize
// while skipping tokens without expanding them.
type Role int

const (
	RoleNone Role = iota
	RoleIf
	RoleElse
	RoleFi
	RoleOr
	RoleEndcsname
)
