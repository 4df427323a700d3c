// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ui

import (
	"testing"

	"comfy-launcher/internal/discovery"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Action targets must survive the app list growing while discovery is still
// streaming results in: a reallocation of m.apps must not change them.
func TestTargetedAppsUnaffectedByListGrowth(t *testing.T) {
	m := InitialModel()
	m.apps = make([]discovery.App, 0, 1)
	m.apps = append(m.apps, discovery.App{Name: "comfy", ServerName: "local"})
	m.cursor = 0

	targets := m.targetedApps()
	require.Len(t, targets, 1)

	// Force a reallocation, then mutate the original entry.
	m.apps = append(m.apps, discovery.App{Name: "sdui", ServerName: "local"})
	m.apps[0].Name = "mutated"

	assert.Equal(t, "comfy", targets[0].Name)
}

func TestTargetedAppsPrefersSelectionOverCursor(t *testing.T) {
	m := InitialModel()
	m.apps = []discovery.App{
		{Name: "comfy", ServerName: "local"},
		{Name: "sdui", ServerName: "local"},
	}
	m.cursor = 0
	m.selectedAppIdxs[1] = struct{}{}

	targets := m.targetedApps()
	require.Len(t, targets, 1)
	assert.Equal(t, "sdui", targets[0].Name)
}
