// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package runner

import (
	"fmt"
	"path/filepath"
	"strings"

	"comfy-launcher/internal/util"
)

// CheckResult is the outcome of a preflight check for one app.
type CheckResult struct {
	Interpreter string
	ModuleFile  string
}

// Preflight verifies the launch contract without invoking anything: the
// interpreter must be resolvable and the entry module's file must be
// reachable on the composed search path with the callable defined at top
// level. A real launch skips these checks and lets the interpreter fail
// with the genuine traceback.
func Preflight(spec LaunchSpec) (CheckResult, error) {
	if spec.App.IsRemote {
		return preflightRemote(spec)
	}

	moduleFile, err := spec.EntryPoint.Verify(spec.SearchPath)
	if err != nil {
		return CheckResult{}, err
	}
	return CheckResult{Interpreter: spec.Interpreter, ModuleFile: moduleFile}, nil
}

// sshProbe runs a short remote command during preflight. Swappable in tests.
var sshProbe = runSSHProbe

// preflightRemote performs the same checks over SSH: the interpreter must be
// on the remote PATH, the module file must exist, and the callable scan uses
// grep with the same top-level pattern the local check applies. The file
// existence probe runs first so a missing module is reported as missing
// rather than as a missing callable.
func preflightRemote(spec LaunchSpec) (CheckResult, error) {
	if spec.App.HostConfig == nil {
		return CheckResult{}, fmt.Errorf("internal error: HostConfig is nil for remote app %s", spec.App.Identifier())
	}
	cmdDesc := fmt.Sprintf("preflight for app %s", spec.App.Identifier())

	interpCmd := fmt.Sprintf("command -v %s", util.QuoteArgForShell(spec.Interpreter))
	interpOut, err := sshProbe(*spec.App.HostConfig, interpCmd, cmdDesc)
	if err != nil {
		return CheckResult{}, fmt.Errorf("interpreter '%s' not found on %s: %w", spec.Interpreter, spec.App.ServerName, err)
	}
	resolvedInterp := strings.TrimSpace(string(interpOut))

	moduleFile := filepath.Join(absoluteAppRoot(spec.App), spec.EntryPoint.ModuleFile())
	existsCmd := fmt.Sprintf("test -f %s", util.QuoteArgForShell(moduleFile))
	if _, err := sshProbe(*spec.App.HostConfig, existsCmd, cmdDesc); err != nil {
		return CheckResult{}, fmt.Errorf("entry point %s unavailable on %s: '%s' not found: %w",
			spec.EntryPoint, spec.App.ServerName, moduleFile, err)
	}

	pattern := fmt.Sprintf(`^(async[[:space:]]+)?def[[:space:]]+%s[[:space:]]*\(`, spec.EntryPoint.Callable)
	grepCmd := fmt.Sprintf("grep -Eq %s %s", util.QuoteArgForShell(pattern), util.QuoteArgForShell(moduleFile))
	if _, err := sshProbe(*spec.App.HostConfig, grepCmd, cmdDesc); err != nil {
		return CheckResult{}, fmt.Errorf("entry point %s unavailable on %s: %s has no top-level callable '%s': %w",
			spec.EntryPoint, spec.App.ServerName, moduleFile, spec.EntryPoint.Callable, err)
	}

	return CheckResult{Interpreter: resolvedInterp, ModuleFile: moduleFile}, nil
}
