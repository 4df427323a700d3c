// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package pyenv locates the Python interpreter used to run a backend
// application. Resolution order: explicit override, configured default, a
// virtualenv inside the app root, then python3 on PATH.
package pyenv

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"comfy-launcher/internal/config"
	"comfy-launcher/internal/logger"
)

// venvCandidates are virtualenv directories probed under an app root, in
// preference order.
var venvCandidates = []string{"venv", ".venv"}

// fallbackInterpreter is the PATH lookup of last resort.
const fallbackInterpreter = "python3"

// ResolveInterpreter returns the interpreter path for an app rooted at
// appRoot. override comes from a per-app config entry, defaultPath from the
// top-level config; either may be empty. The returned path is usable as
// exec.Cmd's first argument.
func ResolveInterpreter(appRoot, override, defaultPath string) (string, error) {
	for _, configured := range []string{override, defaultPath} {
		if configured == "" {
			continue
		}
		resolved, err := config.ResolvePath(configured)
		if err != nil {
			logger.Warn("Could not resolve configured interpreter path", "path", configured, "error", err)
			resolved = configured
		}
		if err := checkInterpreter(resolved); err != nil {
			return "", fmt.Errorf("configured interpreter '%s' is unusable: %w", configured, err)
		}
		return resolved, nil
	}

	if appRoot != "" {
		for _, venv := range venvCandidates {
			candidate := filepath.Join(appRoot, venv, "bin", "python")
			if err := checkInterpreter(candidate); err == nil {
				logger.Debug("Using virtualenv interpreter", "path", candidate)
				return candidate, nil
			}
		}
	}

	path, err := exec.LookPath(fallbackInterpreter)
	if err != nil {
		return "", fmt.Errorf("no Python interpreter found: not configured, no virtualenv under '%s', and '%s' not on PATH: %w", appRoot, fallbackInterpreter, err)
	}
	return path, nil
}

// checkInterpreter verifies the path exists and is an executable file.
func checkInterpreter(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("'%s' is a directory", path)
	}
	if info.Mode().Perm()&0111 == 0 {
		return fmt.Errorf("'%s' is not executable", path)
	}
	return nil
}
