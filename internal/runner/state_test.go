// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package runner

import (
	"os"
	"path/filepath"
	"testing"

	"comfy-launcher/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sleepInterpreter stands in for a Python interpreter whose backend keeps
// running until signalled.
func sleepInterpreter(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "python3")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nsleep 60\n"), 0o755))
	return path
}

func TestDetachedLifecycle(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	app := localTestApp(t)
	spec, err := BuildLaunchSpec(app, config.Config{Interpreter: sleepInterpreter(t)})
	require.NoError(t, err)

	// Nothing recorded yet.
	info := GetAppStatus(app)
	assert.Equal(t, StatusDown, info.OverallStatus)

	pid, err := StartDetached(spec)
	require.NoError(t, err)
	require.Greater(t, pid, 0)

	info = GetAppStatus(app)
	assert.Equal(t, StatusUp, info.OverallStatus)
	assert.Equal(t, pid, info.Pid)

	// A second start while running is refused.
	_, err = StartDetached(spec)
	require.Error(t, err)
	assert.ErrorContains(t, err, "already running")

	require.NoError(t, StopDetached(app))

	info = GetAppStatus(app)
	assert.Equal(t, StatusDown, info.OverallStatus)
}

func TestStopDetachedWithoutStart(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	app := localTestApp(t)
	err := StopDetached(app)
	require.Error(t, err)
	assert.ErrorContains(t, err, "no recorded backend process")
}

func TestGetAppStatusCleansStalePidfile(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	app := localTestApp(t)
	// Record a pid that cannot be alive.
	require.NoError(t, writePidFile(app.Name, 1<<30))

	info := GetAppStatus(app)
	assert.Equal(t, StatusDown, info.OverallStatus)

	path, err := pidFilePath(app.Name)
	require.NoError(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "stale pidfile should be removed")
}
