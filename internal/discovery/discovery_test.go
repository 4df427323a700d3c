// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"comfy-launcher/internal/config"
	"comfy-launcher/internal/launch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeApp(t *testing.T, rootDir, name, moduleRel string) {
	t.Helper()
	moduleFile := filepath.Join(rootDir, name, moduleRel)
	require.NoError(t, os.MkdirAll(filepath.Dir(moduleFile), 0o755))
	require.NoError(t, os.WriteFile(moduleFile, []byte("def main():\n    pass\n"), 0o644))
}

func TestFindLocalApps(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir()) // no overrides in play

	rootDir := t.TempDir()
	makeApp(t, rootDir, "comfy", filepath.Join("backend", "main.py"))
	makeApp(t, rootDir, "sdui", filepath.Join("backend", "main.py"))

	// A directory without the entry module is not an app.
	require.NoError(t, os.MkdirAll(filepath.Join(rootDir, "scratch"), 0o755))
	// Loose files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, "README.md"), []byte("x"), 0o644))

	apps, err := FindLocalApps(rootDir)
	require.NoError(t, err)
	require.Len(t, apps, 2)

	names := []string{apps[0].Name, apps[1].Name}
	assert.ElementsMatch(t, []string{"comfy", "sdui"}, names)

	for _, a := range apps {
		assert.False(t, a.IsRemote)
		assert.Equal(t, "local", a.ServerName)
		assert.Equal(t, filepath.Join(rootDir, a.Name), a.Root)
		assert.Equal(t, launch.DefaultEntryPoint(), a.EntryPoint)
		assert.Equal(t, "local:"+a.Name, a.Identifier())
	}
}

func TestFindLocalAppsHonorsEntryPointOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.NoError(t, config.SaveConfig(config.Config{
		Apps: []config.AppOverride{{Name: "custom", EntryPoint: "server.app:run"}},
	}))

	rootDir := t.TempDir()
	makeApp(t, rootDir, "custom", filepath.Join("server", "app.py"))
	// The default layout would not match the overridden entry point.
	require.NoError(t, os.MkdirAll(filepath.Join(rootDir, "custom", "backend"), 0o755))

	apps, err := FindLocalApps(rootDir)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "custom", apps[0].Name)
	assert.Equal(t, launch.EntryPoint{Module: "server.app", Callable: "run"}, apps[0].EntryPoint)
}

func TestFindLocalAppsMissingRoot(t *testing.T) {
	_, err := FindLocalApps(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestGetAppsRootDirectoryConfigured(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	appsRoot := t.TempDir()
	require.NoError(t, config.SaveConfig(config.Config{AppsRoot: appsRoot}))

	got, err := GetAppsRootDirectory()
	require.NoError(t, err)
	assert.Equal(t, appsRoot, got)
}

func TestGetAppsRootDirectoryFallsBackToExecutableDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir()) // no configured apps_root
	t.Setenv("HOME", t.TempDir())            // no ~/comfy-apps or ~/apps

	exeRoot, err := launch.ExecutableRoot()
	require.NoError(t, err)
	appRoot := filepath.Join(exeRoot, "exe-neighbor")
	makeApp(t, exeRoot, "exe-neighbor", filepath.Join("backend", "main.py"))
	t.Cleanup(func() { os.RemoveAll(appRoot) })

	got, err := GetAppsRootDirectory()
	require.NoError(t, err)
	assert.Equal(t, exeRoot, got)
}

func TestGetAppsRootDirectoryInvalidConfigDoesNotFallBack(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.NoError(t, config.SaveConfig(config.Config{
		AppsRoot: filepath.Join(t.TempDir(), "missing"),
	}))

	_, err := GetAppsRootDirectory()
	require.Error(t, err)
	assert.ErrorContains(t, err, "is invalid")
}
