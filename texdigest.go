// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package texdigest turns TeX-like source into a tree of nodes.
//
// The pipeline is the classic one: a catcode-driven tokenizer feeds an
// expansion engine (macros, conditionals, \csname, \expandafter and
// friends), which produces a stream of items for the digester. The digester
// assembles the items into a Document, handling paragraphs, environments,
// and constructs like \over that reach back into nodes already built.
//
// A Session owns all mutable state for one document, so independent
// sessions may run concurrently.
package texdigest

import (
	"github.com/maloquacious/semver"
)

var (
	version = semver.Version{
		Major: 0,
		Minor: 3,
		Patch: 0,
		Build: semver.Commit(),
	}
)

func Version() semver.Version {
	return version
}
