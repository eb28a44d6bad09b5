// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

import (
	"context"
	"errors"
	"fmt"
)

// StructuralError is returned when the input is malformed in a way that
// stops the pass: unmatched \else or \fi, an unterminated group, an invalid
// relation, and the like. Nodes digested before the error stay in the
// document.
type StructuralError struct {
	Code string
	Pos  Position
	Msg  string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

func structural(code string, pos Position, format string, args ...any) *StructuralError {
	return &StructuralError{Code: code, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// LimitError is returned when a configured resource limit is exceeded,
// usually by a macro that expands to itself.
type LimitError struct {
	Limit string // "depth", "expansions", "pending", "inputs"
	Max   int
	Pos   Position
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s: capacity exceeded: %s > %d", e.Pos, e.Limit, e.Max)
}

// Error code constants for fatal errors.
const (
	ErrCodeUnmatchedElse     = "UNMATCHED_ELSE"
	ErrCodeUnmatchedFi       = "UNMATCHED_FI"
	ErrCodeExtraOr           = "EXTRA_OR"
	ErrCodeIncompleteIf      = "INCOMPLETE_CONDITIONAL"
	ErrCodeUnterminatedGroup = "UNTERMINATED_GROUP"
	ErrCodeInvalidRelation   = "INVALID_RELATION"
	ErrCodeExtraEndGroup     = "EXTRA_END_GROUP"
	ErrCodeMismatchedGroup   = "MISMATCHED_GROUP"
	ErrCodeMacroMismatch     = "MACRO_MISMATCH"
	ErrCodeRunaway           = "RUNAWAY_ARGUMENT"
	ErrCodeDepthLimit        = "DEPTH_LIMIT"
	ErrCodeExpansionLimit    = "EXPANSION_LIMIT"
	ErrCodePendingLimit      = "PENDING_LIMIT"
	ErrCodeInputLimit        = "INPUT_LIMIT"
	ErrCodeGroupLimit        = "GROUP_LIMIT"
	ErrCodeCanceled          = "CANCELED"
	ErrCodeUnknown           = "UNKNOWN"
)

// ErrorCode returns the error code string for a given error.
func ErrorCode(err error) string {
	var se *StructuralError
	if errors.As(err, &se) {
		return se.Code
	}
	var le *LimitError
	if errors.As(err, &le) {
		switch le.Limit {
		case "depth":
			return ErrCodeDepthLimit
		case "expansions":
			return ErrCodeExpansionLimit
		case "pending":
			return ErrCodePendingLimit
		case "inputs":
			return ErrCodeInputLimit
		case "groups":
			return ErrCodeGroupLimit
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeCanceled
	}
	return ErrCodeUnknown
}

func errorPosition(err error) (Position, bool) {
	var se *StructuralError
	if errors.As(err, &se) {
		return se.Pos, true
	}
	var le *LimitError
	if errors.As(err, &le) {
		return le.Pos, true
	}
	return Position{}, false
}
