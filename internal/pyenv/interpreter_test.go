// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package pyenv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExecutable(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
}

func TestResolveInterpreterOverrideWins(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "custom-python")
	fallback := filepath.Join(dir, "default-python")
	writeExecutable(t, override)
	writeExecutable(t, fallback)

	got, err := ResolveInterpreter(t.TempDir(), override, fallback)
	require.NoError(t, err)
	assert.Equal(t, override, got)
}

func TestResolveInterpreterConfiguredButUnusable(t *testing.T) {
	_, err := ResolveInterpreter(t.TempDir(), filepath.Join(t.TempDir(), "nope"), "")
	require.Error(t, err)
	assert.ErrorContains(t, err, "unusable")
}

func TestResolveInterpreterVenv(t *testing.T) {
	appRoot := t.TempDir()
	venvPython := filepath.Join(appRoot, "venv", "bin", "python")
	writeExecutable(t, venvPython)

	got, err := ResolveInterpreter(appRoot, "", "")
	require.NoError(t, err)
	assert.Equal(t, venvPython, got)
}

func TestResolveInterpreterDotVenv(t *testing.T) {
	appRoot := t.TempDir()
	venvPython := filepath.Join(appRoot, ".venv", "bin", "python")
	writeExecutable(t, venvPython)

	got, err := ResolveInterpreter(appRoot, "", "")
	require.NoError(t, err)
	assert.Equal(t, venvPython, got)
}

func TestResolveInterpreterFallsBackToPath(t *testing.T) {
	binDir := t.TempDir()
	writeExecutable(t, filepath.Join(binDir, "python3"))
	t.Setenv("PATH", binDir)

	got, err := ResolveInterpreter(t.TempDir(), "", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(binDir, "python3"), got)
}

func TestResolveInterpreterNothingAvailable(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := ResolveInterpreter(t.TempDir(), "", "")
	require.Error(t, err)
	assert.ErrorContains(t, err, "no Python interpreter found")
}
