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

func TestSearchPathPrepend(t *testing.T) {
	p := NewSearchPath("/opt/shared")

	p.Prepend("/proj")
	assert.Equal(t, []string{"/proj", "/opt/shared"}, p.Entries())

	// Prepending again is not deduplicated; the new entry still wins.
	p.Prepend("/proj")
	assert.Equal(t, []string{"/proj", "/proj", "/opt/shared"}, p.Entries())

	p.Append("/extra")
	assert.Equal(t, []string{"/proj", "/proj", "/opt/shared", "/extra"}, p.Entries())
}

func TestSearchPathEntriesIsACopy(t *testing.T) {
	p := NewSearchPath("/a", "/b")
	entries := p.Entries()
	entries[0] = "/mutated"
	assert.Equal(t, []string{"/a", "/b"}, p.Entries())
}

func TestPythonPathEnv(t *testing.T) {
	sep := string(os.PathListSeparator)

	p := NewSearchPath("/proj", "/opt/shared")
	assert.Equal(t, "PYTHONPATH=/proj"+sep+"/opt/shared", p.PythonPathEnv(""))

	// A pre-existing PYTHONPATH is preserved after the managed entries, so
	// sibling packages shadow installed ones of the same name.
	assert.Equal(t, "PYTHONPATH=/proj"+sep+"/opt/shared"+sep+"/site", p.PythonPathEnv("/site"))

	empty := NewSearchPath()
	assert.Equal(t, "PYTHONPATH=/site", empty.PythonPathEnv("/site"))
	assert.Equal(t, "PYTHONPATH=", empty.PythonPathEnv(""))
}

func TestResolveFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "backend"), 0o755))
	moduleFile := filepath.Join(root, "backend", "main.py")
	require.NoError(t, os.WriteFile(moduleFile, []byte("def main():\n    print(\"ok\")\n"), 0o644))

	p := NewSearchPath(root)

	resolved, err := p.ResolveFile(filepath.Join("backend", "main.py"))
	require.NoError(t, err)
	assert.Equal(t, moduleFile, resolved)

	_, err = p.ResolveFile(filepath.Join("backend", "missing.py"))
	assert.ErrorContains(t, err, "not found on search path")
}

// Resolution must behave identically no matter which working directory the
// launcher was invoked from. Absolute search path entries guarantee that.
func TestResolveFileWorkingDirectoryIndependence(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "backend"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "backend", "main.py"), []byte("def main():\n    pass\n"), 0o644))

	p := NewSearchPath(root)

	origWD, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWD) })

	fromRoot := t.TempDir()
	require.NoError(t, os.Chdir(fromRoot))
	first, err := p.ResolveFile(filepath.Join("backend", "main.py"))
	require.NoError(t, err)

	elsewhere := t.TempDir()
	require.NoError(t, os.Chdir(elsewhere))
	second, err := p.ResolveFile(filepath.Join("backend", "main.py"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolveFilePriorityOrder(t *testing.T) {
	high := t.TempDir()
	low := t.TempDir()
	for _, dir := range []string{high, low} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "backend"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "backend", "main.py"), []byte("def main():\n    pass\n"), 0o644))
	}

	p := NewSearchPath(low)
	p.Prepend(high)

	resolved, err := p.ResolveFile(filepath.Join("backend", "main.py"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(high, "backend", "main.py"), resolved)
}

func TestExecutableRoot(t *testing.T) {
	root, err := ExecutableRoot()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(root), "executable root must be absolute, got %s", root)
}
