// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package launch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModule(t *testing.T, root, relPath, content string) string {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	return full
}

func TestEntryPointModuleFile(t *testing.T) {
	assert.Equal(t, filepath.Join("backend", "main.py"), DefaultEntryPoint().ModuleFile())
	assert.Equal(t, "server.py", EntryPoint{Module: "server", Callable: "main"}.ModuleFile())
	assert.Equal(t,
		filepath.Join("app", "web", "serve.py"),
		EntryPoint{Module: "app.web.serve", Callable: "run"}.ModuleFile())
}

func TestBootstrapArgs(t *testing.T) {
	args := DefaultEntryPoint().BootstrapArgs()
	require.Len(t, args, 2)
	assert.Equal(t, "-c", args[0])
	// One import, one call: the entry point is invoked exactly once.
	assert.Equal(t, "from backend.main import main; main()", args[1])
}

func TestVerify(t *testing.T) {
	t.Run("valid module", func(t *testing.T) {
		root := t.TempDir()
		moduleFile := writeModule(t, root, filepath.Join("backend", "main.py"),
			"import os\n\ndef main():\n    print(\"ok\")\n")

		resolved, err := DefaultEntryPoint().Verify(NewSearchPath(root))
		require.NoError(t, err)
		assert.Equal(t, moduleFile, resolved)
	})

	t.Run("async def satisfies the contract", func(t *testing.T) {
		root := t.TempDir()
		writeModule(t, root, filepath.Join("backend", "main.py"),
			"async def main():\n    pass\n")

		_, err := DefaultEntryPoint().Verify(NewSearchPath(root))
		assert.NoError(t, err)
	})

	t.Run("missing module file", func(t *testing.T) {
		_, err := DefaultEntryPoint().Verify(NewSearchPath(t.TempDir()))
		require.Error(t, err)
		assert.ErrorContains(t, err, "entry point backend.main:main unavailable")
		assert.ErrorContains(t, err, "not found on search path")
	})

	t.Run("module without the callable", func(t *testing.T) {
		root := t.TempDir()
		writeModule(t, root, filepath.Join("backend", "main.py"),
			"def serve():\n    pass\n")

		_, err := DefaultEntryPoint().Verify(NewSearchPath(root))
		require.Error(t, err)
		assert.ErrorContains(t, err, "defines no top-level callable 'main'")
	})

	t.Run("nested def does not satisfy the contract", func(t *testing.T) {
		root := t.TempDir()
		writeModule(t, root, filepath.Join("backend", "main.py"),
			"class App:\n    def main(self):\n        pass\n")

		_, err := DefaultEntryPoint().Verify(NewSearchPath(root))
		assert.Error(t, err)
	})
}

func TestParseEntryPoint(t *testing.T) {
	tests := []struct {
		spec     string
		want     EntryPoint
		wantErr  bool
	}{
		{spec: "", want: DefaultEntryPoint()},
		{spec: "backend.main", want: EntryPoint{Module: "backend.main", Callable: "main"}},
		{spec: "app.serve:run", want: EntryPoint{Module: "app.serve", Callable: "run"}},
		{spec: " server : start ", want: EntryPoint{Module: "server", Callable: "start"}},
		{spec: ":run", wantErr: true},
		{spec: "mod:", wantErr: true},
		{spec: "a..b", wantErr: true},
		{spec: ".lead", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseEntryPoint(tt.spec)
		if tt.wantErr {
			assert.Error(t, err, "spec %q", tt.spec)
			continue
		}
		require.NoError(t, err, "spec %q", tt.spec)
		assert.Equal(t, tt.want, got, "spec %q", tt.spec)
	}
}
