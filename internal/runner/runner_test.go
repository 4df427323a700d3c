// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package runner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"comfy-launcher/internal/config"
	"comfy-launcher/internal/discovery"
	"comfy-launcher/internal/launch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localTestApp(t *testing.T) discovery.App {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "backend"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "backend", "main.py"),
		[]byte("def main():\n    print(\"ok\")\n"), 0o644))
	return discovery.App{
		Name:       "demo",
		Root:       root,
		ServerName: "local",
		EntryPoint: launch.DefaultEntryPoint(),
	}
}

func interpreterFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "python3")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func TestBuildLaunchSpecLocal(t *testing.T) {
	app := localTestApp(t)
	interp := interpreterFixture(t)

	spec, err := BuildLaunchSpec(app, config.Config{
		Interpreter: interp,
		SearchPath:  []string{"/opt/shared-modules"},
	})
	require.NoError(t, err)

	assert.Equal(t, interp, spec.Interpreter)
	assert.Equal(t, launch.DefaultEntryPoint(), spec.EntryPoint)
	// The app root is the highest-priority entry; extras follow.
	assert.Equal(t, []string{app.Root, "/opt/shared-modules"}, spec.SearchPath.Entries())
}

func TestBuildLaunchSpecAppliesOverrides(t *testing.T) {
	app := localTestApp(t)
	override := interpreterFixture(t)

	spec, err := BuildLaunchSpec(app, config.Config{
		Apps: []config.AppOverride{{
			Name:                "demo",
			Interpreter:         override,
			Env:                 []string{"COMFY_PORT=8188"},
			InstallRequirements: true,
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, override, spec.Interpreter)
	assert.Equal(t, []string{"COMFY_PORT=8188"}, spec.Env)
	assert.True(t, spec.InstallReqs)
}

func TestBuildLaunchSpecRemoteFallsBackToPython3(t *testing.T) {
	app := discovery.App{
		Name:               "remote-demo",
		Root:               "remote-demo",
		ServerName:         "gpu-box",
		IsRemote:           true,
		HostConfig:         &config.SSHHost{Name: "gpu-box"},
		AbsoluteRemoteRoot: "/home/comfy/apps",
		EntryPoint:         launch.DefaultEntryPoint(),
	}

	spec, err := BuildLaunchSpec(app, config.Config{})
	require.NoError(t, err)
	assert.Equal(t, "python3", spec.Interpreter)
	assert.Equal(t, []string{"/home/comfy/apps/remote-demo"}, spec.SearchPath.Entries())
}

func TestStartBackendStep(t *testing.T) {
	t.Setenv("PYTHONPATH", "/preexisting")

	app := localTestApp(t)
	interp := interpreterFixture(t)
	spec, err := BuildLaunchSpec(app, config.Config{Interpreter: interp})
	require.NoError(t, err)

	step := StartBackendStep(spec)
	assert.Equal(t, "Start Backend", step.Name)
	assert.Equal(t, interp, step.Command)
	assert.Equal(t, []string{"-c", "from backend.main import main; main()"}, step.Args)

	require.NotEmpty(t, step.Env)
	pythonPath := step.Env[0]
	assert.True(t, strings.HasPrefix(pythonPath, "PYTHONPATH="+app.Root),
		"app root must be the highest-priority entry, got %s", pythonPath)
	assert.True(t, strings.HasSuffix(pythonPath, ":/preexisting"),
		"inherited PYTHONPATH must be preserved after managed entries, got %s", pythonPath)
}

func TestRunSequence(t *testing.T) {
	app := localTestApp(t)
	interp := interpreterFixture(t)

	t.Run("without requirements", func(t *testing.T) {
		spec, err := BuildLaunchSpec(app, config.Config{Interpreter: interp})
		require.NoError(t, err)

		steps := RunSequence(spec)
		require.Len(t, steps, 1)
		assert.Equal(t, "Start Backend", steps[0].Name)
	})

	t.Run("install step only when requirements.txt exists", func(t *testing.T) {
		cfg := config.Config{
			Interpreter: interp,
			Apps:        []config.AppOverride{{Name: "demo", InstallRequirements: true}},
		}

		spec, err := BuildLaunchSpec(app, cfg)
		require.NoError(t, err)
		steps := RunSequence(spec)
		require.Len(t, steps, 1, "no requirements.txt yet")

		require.NoError(t, os.WriteFile(filepath.Join(app.Root, "requirements.txt"), []byte("torch\n"), 0o644))
		steps = RunSequence(spec)
		require.Len(t, steps, 2)
		assert.Equal(t, "Install Requirements", steps[0].Name)
		assert.Equal(t, []string{"-m", "pip", "install", "-r", "requirements.txt"}, steps[0].Args)
		assert.Equal(t, "Start Backend", steps[1].Name)
	})
}

func TestRemoteCommandString(t *testing.T) {
	step := CommandStep{
		Name:    "Start Backend",
		Command: "python3",
		Args:    []string{"-c", "from backend.main import main; main()"},
		Env:     []string{"PYTHONPATH=/home/comfy/apps/demo"},
		App: discovery.App{
			Name:               "demo",
			Root:               "demo",
			IsRemote:           true,
			ServerName:         "gpu-box",
			AbsoluteRemoteRoot: "/home/comfy/apps",
		},
	}

	cmdString, err := remoteCommandString(step)
	require.NoError(t, err)
	assert.Equal(t,
		`cd '/home/comfy/apps/demo' && PYTHONPATH='/home/comfy/apps/demo' python3 '-c' 'from backend.main import main; main()'`,
		cmdString)
}

func TestRemoteCommandStringRejectsMissingRoot(t *testing.T) {
	step := CommandStep{
		App: discovery.App{Name: "demo", IsRemote: true, ServerName: "gpu-box"},
	}
	_, err := remoteCommandString(step)
	assert.ErrorContains(t, err, "AbsoluteRemoteRoot is empty")
}

func TestStreamCommandLocalSuccess(t *testing.T) {
	app := localTestApp(t)
	step := CommandStep{
		Name:    "Start Backend",
		Command: "/bin/sh",
		Args:    []string{"-c", "echo ok"},
		App:     app,
	}

	outChan, errChan := StreamCommand(step, false)

	var output strings.Builder
	for line := range outChan {
		output.WriteString(line.Line)
	}
	err := <-errChan
	require.NoError(t, err)
	assert.Contains(t, output.String(), "ok")
}

func TestStreamCommandLocalFailurePropagatesExitStatus(t *testing.T) {
	app := localTestApp(t)
	step := CommandStep{
		Name:    "Start Backend",
		Command: "/bin/sh",
		Args:    []string{"-c", "exit 3"},
		App:     app,
	}

	outChan, errChan := StreamCommand(step, false)
	for range outChan {
	}
	err := <-errChan
	require.Error(t, err)
	assert.ErrorContains(t, err, "exited with status 3")
	assert.Equal(t, 3, ExitCode(err))
}
