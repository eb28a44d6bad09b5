// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package sources resolves the names given to \input and \include against
// a file system.
package sources

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FS opens sources from an afero file system. It implements
// texdigest.SourceProvider.
type FS struct {
	fs         afero.Fs
	baseDir    string
	searchPath []string
}

// New returns a provider that looks for names under baseDir and then
// under each directory of searchPath.
func New(fs afero.Fs, baseDir string, searchPath ...string) *FS {
	return &FS{fs: fs, baseDir: baseDir, searchPath: searchPath}
}

// Open returns the path of the first candidate that exists and its
// contents. A name without an extension is also tried with ".tex".
// When nothing matches, the error wraps fs.ErrNotExist.
func (p *FS) Open(name string) (string, []byte, error) {
	if name == "" {
		return "", nil, fmt.Errorf("open source: empty name: %w", fs.ErrNotExist)
	}
	for _, path := range p.candidates(name) {
		info, err := p.fs.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		data, err := afero.ReadFile(p.fs, path)
		if err != nil {
			return path, nil, fmt.Errorf("read %s: %w", path, err)
		}
		return path, data, nil
	}
	return "", nil, fmt.Errorf("open source %q: %w", name, fs.ErrNotExist)
}

// candidates returns the paths to try for name. Paths that resolve outside
// the base directory and the search path are dropped.
func (p *FS) candidates(name string) []string {
	names := []string{filepath.FromSlash(name)}
	if filepath.Ext(name) == "" {
		names = append(names, names[0]+".tex")
	}
	roots := append([]string{p.baseDir}, p.searchPath...)
	var paths []string
	if filepath.IsAbs(names[0]) {
		for _, n := range names {
			path := filepath.Clean(n)
			for _, dir := range roots {
				if within(dir, path) {
					paths = append(paths, path)
					break
				}
			}
		}
		return paths
	}
	for _, dir := range roots {
		for _, n := range names {
			if path := filepath.Join(dir, n); within(dir, path) {
				paths = append(paths, path)
			}
		}
	}
	return paths
}

// within reports whether path is dir or lies beneath it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Rel returns path relative to the base directory, for display.
func (p *FS) Rel(path string) string {
	rel, err := filepath.Rel(p.baseDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
