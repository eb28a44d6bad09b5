// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

// Kind implements enums for tokens
type Kind int

const (
	UNKNOWN Kind = iota

	CharToken       // a character with its category code
	ControlSequence // \name or \<symbol>
	ActiveChar      // a character with catcode 13, looked up like a control sequence
	ParamRef        // #1..#9 inside a macro pattern or replacement list
	Marker          // internal end-of-region marker, never read from source

	EndOfInput // end of input
)

func (k Kind) String() string {
	switch k {
	case CharToken:
		return "CharToken"
	case ControlSequence:
		return "ControlSequence"
	case ActiveChar:
		return "ActiveChar"
	case ParamRef:
		return "ParamRef"
	case Marker:
		return "Marker"
	case EndOfInput:
		return "EndOfInput"
	}
	return "UNKNOWN"
}
