// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Pointing XDG_CONFIG_HOME at a temp dir isolates the config path on Linux,
// which is the only platform the launcher targets.
func useTempConfigHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func TestLoadConfigMissingFileIsEmpty(t *testing.T) {
	useTempConfigHome(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.AppsRoot)
	assert.Empty(t, cfg.SSHHosts)
}

func TestSaveAndLoadConfigRoundTrip(t *testing.T) {
	useTempConfigHome(t)

	in := Config{
		AppsRoot:    "~/comfy-apps",
		Interpreter: "/usr/bin/python3",
		SearchPath:  []string{"/opt/shared-modules"},
		Apps: []AppOverride{
			{Name: "comfy", EntryPoint: "backend.main:main", InstallRequirements: true},
		},
		SSHHosts: []SSHHost{
			{Name: "gpu-box", Hostname: "10.0.0.5", User: "comfy", Port: 2222, RemoteRoot: "~/apps"},
		},
	}
	require.NoError(t, SaveConfig(in))

	out, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadConfigKeepsDisabledHosts(t *testing.T) {
	useTempConfigHome(t)

	require.NoError(t, SaveConfig(Config{
		SSHHosts: []SSHHost{
			{Name: "live", Hostname: "a", User: "u"},
			{Name: "parked", Hostname: "b", User: "u", Disabled: true},
		},
	}))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Len(t, cfg.SSHHosts, 2)
	assert.Equal(t, "live", cfg.SSHHosts[0].Name)
	assert.Equal(t, "parked", cfg.SSHHosts[1].Name)
	assert.True(t, cfg.SSHHosts[1].Disabled)
}

// A load-modify-save cycle must not lose hosts that are merely disabled.
func TestSaveConfigPreservesDisabledHosts(t *testing.T) {
	useTempConfigHome(t)

	require.NoError(t, SaveConfig(Config{
		SSHHosts: []SSHHost{
			{Name: "live", Hostname: "a", User: "u"},
			{Name: "parked", Hostname: "b", User: "u", Disabled: true},
		},
	}))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	cfg.AppsRoot = "~/elsewhere"
	require.NoError(t, SaveConfig(cfg))

	out, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "~/elsewhere", out.AppsRoot)
	require.Len(t, out.SSHHosts, 2)
	assert.Equal(t, "parked", out.SSHHosts[1].Name)
	assert.True(t, out.SSHHosts[1].Disabled)
}

func TestOverrideFor(t *testing.T) {
	cfg := Config{Apps: []AppOverride{
		{Name: "comfy", Interpreter: "/opt/py/bin/python"},
	}}

	o, ok := cfg.OverrideFor("comfy")
	require.True(t, ok)
	assert.Equal(t, "/opt/py/bin/python", o.Interpreter)

	_, ok = cfg.OverrideFor("other")
	assert.False(t, ok)
}

func TestResolvePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	resolved, err := ResolvePath("~/apps")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "apps"), resolved)

	absolute, err := ResolvePath("/srv/apps")
	require.NoError(t, err)
	assert.Equal(t, "/srv/apps", absolute)
}
