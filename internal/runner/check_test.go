// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package runner

import (
	"fmt"
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

func remoteTestSpec() LaunchSpec {
	host := config.SSHHost{Name: "gpu-box", Hostname: "gpu-box.internal", User: "comfy"}
	app := discovery.App{
		Name:               "demo",
		Root:               "demo",
		ServerName:         "gpu-box",
		IsRemote:           true,
		HostConfig:         &host,
		AbsoluteRemoteRoot: "/home/comfy/apps",
		EntryPoint:         launch.DefaultEntryPoint(),
	}
	return LaunchSpec{App: app, Interpreter: "python3", EntryPoint: app.EntryPoint}
}

// stubProbe answers preflight commands by prefix; unlisted prefixes fail.
func stubProbe(t *testing.T, answers map[string]error) {
	t.Helper()
	orig := sshProbe
	t.Cleanup(func() { sshProbe = orig })
	sshProbe = func(hostConfig config.SSHHost, remoteCmdString, cmdDesc string) ([]byte, error) {
		for prefix, err := range answers {
			if strings.HasPrefix(remoteCmdString, prefix) {
				if err != nil {
					return nil, err
				}
				return []byte("/usr/bin/python3\n"), nil
			}
		}
		t.Fatalf("unexpected probe command: %s", remoteCmdString)
		return nil, nil
	}
}

func TestPreflightLocal(t *testing.T) {
	app := localTestApp(t)
	spec := LaunchSpec{
		App:         app,
		Interpreter: interpreterFixture(t),
		SearchPath:  launch.NewSearchPath(app.Root),
		EntryPoint:  launch.DefaultEntryPoint(),
	}

	result, err := Preflight(spec)
	require.NoError(t, err)
	assert.Equal(t, spec.Interpreter, result.Interpreter)
	assert.Equal(t, filepath.Join(app.Root, "backend", "main.py"), result.ModuleFile)
}

func TestPreflightLocalMissingCallable(t *testing.T) {
	app := localTestApp(t)
	require.NoError(t, os.WriteFile(filepath.Join(app.Root, "backend", "main.py"),
		[]byte("def helper():\n    pass\n"), 0o644))
	spec := LaunchSpec{
		App:         app,
		Interpreter: interpreterFixture(t),
		SearchPath:  launch.NewSearchPath(app.Root),
		EntryPoint:  launch.DefaultEntryPoint(),
	}

	_, err := Preflight(spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no top-level callable")
}

func TestPreflightRemote(t *testing.T) {
	stubProbe(t, map[string]error{
		"command -v": nil,
		"test -f":    nil,
		"grep -Eq":   nil,
	})

	result, err := Preflight(remoteTestSpec())
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/python3", result.Interpreter)
	assert.Equal(t, "/home/comfy/apps/demo/backend/main.py", result.ModuleFile)
}

func TestPreflightRemoteMissingModuleFile(t *testing.T) {
	stubProbe(t, map[string]error{
		"command -v": nil,
		"test -f":    fmt.Errorf("exit status 1"),
	})

	_, err := Preflight(remoteTestSpec())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NotContains(t, err.Error(), "top-level callable")
}

func TestPreflightRemoteMissingCallable(t *testing.T) {
	stubProbe(t, map[string]error{
		"command -v": nil,
		"test -f":    nil,
		"grep -Eq":   fmt.Errorf("exit status 1"),
	})

	_, err := Preflight(remoteTestSpec())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no top-level callable")
}
