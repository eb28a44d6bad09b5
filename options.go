// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

import (
	"fmt"
	"log/slog"
)

// SourceProvider resolves the names given to \input and \include.
type SourceProvider interface {
	// Open returns the resolved name of the source and its contents.
	Open(name string) (resolved string, data []byte, err error)
}

type Option func(s *Session) error

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) error {
		s.logger = logger
		return nil
	}
}

// WithDiagnosticSink sends diagnostics to sink instead of the default list.
func WithDiagnosticSink(sink DiagnosticSink) Option {
	return func(s *Session) error {
		if sink == nil {
			return fmt.Errorf("diagnostic sink: nil")
		}
		s.sink = sink
		return nil
	}
}

func WithSourceProvider(sources SourceProvider) Option {
	return func(s *Session) error {
		s.sources = sources
		return nil
	}
}

// WithRegistry replaces the default leaf commands.
func WithRegistry(r *Registry) Option {
	return func(s *Session) error {
		if r == nil {
			return fmt.Errorf("registry: nil")
		}
		s.registry = r
		return nil
	}
}

// WithJobName sets the text \jobname expands to. It defaults to the
// name of the input.
func WithJobName(name string) Option {
	return func(s *Session) error {
		s.jobName = name
		return nil
	}
}

// WithMaxDepth bounds the nesting of expansions and digest callbacks.
func WithMaxDepth(n int) Option {
	return func(s *Session) error {
		if n < 1 {
			return fmt.Errorf("max depth: %d: must be at least 1", n)
		}
		s.maxDepth = n
		return nil
	}
}

// WithMaxExpansions bounds the expansions in a row that produce no
// unexpandable token.
func WithMaxExpansions(n int) Option {
	return func(s *Session) error {
		if n < 1 {
			return fmt.Errorf("max expansions: %d: must be at least 1", n)
		}
		s.maxExpansions = n
		return nil
	}
}

// WithMaxPending bounds the tokens waiting in front of the input.
func WithMaxPending(n int) Option {
	return func(s *Session) error {
		if n < 1 {
			return fmt.Errorf("max pending: %d: must be at least 1", n)
		}
		s.maxPending = n
		return nil
	}
}

func WithMaxInputDepth(n int) Option {
	return func(s *Session) error {
		if n < 1 {
			return fmt.Errorf("max input depth: %d: must be at least 1", n)
		}
		s.maxInputDepth = n
		return nil
	}
}

// WithMaxGroupDepth bounds the number of open groups, environments, math
// regions and boxes, and separately the number of open conditionals.
func WithMaxGroupDepth(n int) Option {
	return func(s *Session) error {
		if n < 1 {
			return fmt.Errorf("max group depth: %d: must be at least 1", n)
		}
		s.maxGroupDepth = n
		return nil
	}
}
