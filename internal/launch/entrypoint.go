// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package launch

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// DefaultModule is the dotted import path of the backend entry module.
	DefaultModule = "backend.main"

	// DefaultCallable is the zero-argument callable invoked on the entry module.
	DefaultCallable = "main"
)

// EntryPoint identifies the callable that starts an application's real
// logic: a dotted module path and a zero-argument callable defined in it.
type EntryPoint struct {
	Module   string
	Callable string
}

// DefaultEntryPoint returns the conventional backend.main:main entry point.
func DefaultEntryPoint() EntryPoint {
	return EntryPoint{Module: DefaultModule, Callable: DefaultCallable}
}

// ModuleFile returns the entry module's file path relative to a search path
// entry (e.g. "backend/main.py" for module "backend.main").
func (e EntryPoint) ModuleFile() string {
	return filepath.Join(strings.Split(e.Module, ".")...) + ".py"
}

// BootstrapArgs returns the interpreter arguments that import the entry
// module and invoke its callable exactly once. Search-path composition is
// the caller's responsibility and must happen before the interpreter starts;
// any import or runtime error propagates through the child's stderr and exit
// status, untranslated.
func (e EntryPoint) BootstrapArgs() []string {
	return []string{"-c", e.BootstrapStatement()}
}

// BootstrapStatement returns the Python statement passed to the interpreter.
func (e EntryPoint) BootstrapStatement() string {
	return fmt.Sprintf("from %s import %s; %s()", e.Module, e.Callable, e.Callable)
}

func (e EntryPoint) String() string {
	return e.Module + ":" + e.Callable
}

// callableDefPattern matches a top-level "def <name>(" or "async def
// <name>(" statement. Indented definitions are nested and do not satisfy the
// contract.
func callableDefPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^(async\s+)?def\s+` + regexp.QuoteMeta(name) + `\s*\(`)
}

// Verify checks the collaborator contract ahead of a launch: the entry
// module's file must be reachable on the search path and must define the
// callable at top level. It returns the resolved module file on success.
// This is a preflight convenience; a real launch leaves the same failures to
// the interpreter so the genuine traceback reaches the user.
func (e EntryPoint) Verify(path SearchPath) (string, error) {
	moduleFile, err := path.ResolveFile(e.ModuleFile())
	if err != nil {
		return "", fmt.Errorf("entry point %s unavailable: %w", e, err)
	}

	f, err := os.Open(moduleFile)
	if err != nil {
		return "", fmt.Errorf("entry point %s unavailable: could not read %s: %w", e, moduleFile, err)
	}
	defer f.Close()

	pattern := callableDefPattern(e.Callable)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if pattern.MatchString(scanner.Text()) {
			return moduleFile, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("entry point %s unavailable: error scanning %s: %w", e, moduleFile, err)
	}

	return "", fmt.Errorf("entry point %s unavailable: %s defines no top-level callable '%s'", e, moduleFile, e.Callable)
}

// ParseEntryPoint parses a "module:callable" specifier. The callable part is
// optional and defaults to "main".
func ParseEntryPoint(spec string) (EntryPoint, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return DefaultEntryPoint(), nil
	}

	module := spec
	callable := DefaultCallable
	if parts := strings.SplitN(spec, ":", 2); len(parts) == 2 {
		module = strings.TrimSpace(parts[0])
		callable = strings.TrimSpace(parts[1])
	}
	if module == "" || callable == "" {
		return EntryPoint{}, fmt.Errorf("invalid entry point specifier '%s': use 'module' or 'module:callable'", spec)
	}
	for _, part := range strings.Split(module, ".") {
		if part == "" {
			return EntryPoint{}, fmt.Errorf("invalid entry point module '%s'", module)
		}
	}
	return EntryPoint{Module: module, Callable: callable}, nil
}
