// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package launch implements the bootstrap contract for Python backend
// applications: composing the module search path handed to the interpreter
// and resolving the entry point that gets invoked.
package launch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// pythonPathVar is the environment variable consulted by the Python
// interpreter for additional module search path entries.
const pythonPathVar = "PYTHONPATH"

// SearchPath is an ordered list of directories consulted when the backend
// interpreter resolves an import. Earlier entries win. Duplicates are
// tolerated: resolution still succeeds, merely with redundant entries, so
// callers are not required to deduplicate.
type SearchPath struct {
	entries []string
}

// NewSearchPath returns a search path seeded with the given entries, first
// entry at the highest priority.
func NewSearchPath(entries ...string) SearchPath {
	return SearchPath{entries: append([]string{}, entries...)}
}

// Prepend inserts dir at the highest-priority position, ahead of every
// existing entry (including an identical one).
func (p *SearchPath) Prepend(dir string) {
	p.entries = append([]string{dir}, p.entries...)
}

// Append adds dir at the lowest-priority position.
func (p *SearchPath) Append(dir string) {
	p.entries = append(p.entries, dir)
}

// Entries returns a copy of the entries in priority order.
func (p SearchPath) Entries() []string {
	return append([]string{}, p.entries...)
}

// String renders the search path in the platform's list form (":"-joined on
// POSIX systems).
func (p SearchPath) String() string {
	return strings.Join(p.entries, string(os.PathListSeparator))
}

// PythonPathEnv renders the search path as a PYTHONPATH assignment suitable
// for exec.Cmd.Env. The managed entries come first; inherited is any
// pre-existing PYTHONPATH value and is preserved after them, so sibling
// packages are found before anything already installed.
func (p SearchPath) PythonPathEnv(inherited string) string {
	value := p.String()
	if inherited != "" {
		if value == "" {
			value = inherited
		} else {
			value = value + string(os.PathListSeparator) + inherited
		}
	}
	return pythonPathVar + "=" + value
}

// ResolveFile searches the entries in priority order for relPath and returns
// the first match as an absolute path. The error identifies every directory
// that was consulted, mirroring the interpreter's own import failure.
func (p SearchPath) ResolveFile(relPath string) (string, error) {
	for _, dir := range p.entries {
		candidate := filepath.Join(dir, relPath)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			abs, absErr := filepath.Abs(candidate)
			if absErr != nil {
				return "", fmt.Errorf("could not absolutize resolved path %s: %w", candidate, absErr)
			}
			return abs, nil
		}
	}
	return "", fmt.Errorf("'%s' not found on search path [%s]", relPath, p.String())
}

// ExecutableRoot returns the absolute directory containing the launcher
// binary, symlinks resolved. This is the default application root when no
// explicit root is configured, and is independent of the process's working
// directory.
func ExecutableRoot() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("could not determine launcher executable path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("could not resolve launcher executable symlinks: %w", err)
	}
	return filepath.Dir(resolved), nil
}
