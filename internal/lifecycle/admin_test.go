package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesTemplateAndRefusesOverwrite(t *testing.T) {
	c := newTestController(t)
	dir := t.TempDir()

	require.NoError(t, c.Init(dir, false))
	assert.FileExists(t, filepath.Join(dir, ".workspace.yml"))

	err := c.Init(dir, false)
	assert.Error(t, err)

	require.NoError(t, c.Init(dir, true))
}

func TestListIncludesStateAndDiscoveredWorkspaces(t *testing.T) {
	withFakeDocker(t, `exit 1`)
	c := newTestController(t)

	tracked := writeProject(t, "forwards: []\n")
	_, err := c.State.EnsureWorkspaceState(context.Background(), "tracked", tracked, nil)
	require.NoError(t, err)

	root := t.TempDir()
	untracked := filepath.Join(root, "proj")
	require.NoError(t, os.MkdirAll(untracked, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(untracked, ".workspace.yml"), []byte("forwards: []\n"), 0o644))

	entries, err := c.List(context.Background(), root)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "tracked")
	assert.Contains(t, names, "proj")
}

func TestConfigRendersResolvedJSON(t *testing.T) {
	c := newTestController(t)
	dir := writeProject(t, "forwards:\n  - 8080\n")

	out, err := c.Config(context.Background(), "widgets", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `"Name": "widgets"`)
	assert.Contains(t, out, "8080")
}

func TestDoctorFlagsMissingCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PATH", dir)
	c := newTestController(t)

	checks := c.Doctor(context.Background())
	found := false
	for _, chk := range checks {
		if chk.Name == "docker CLI" {
			found = true
			assert.False(t, chk.OK)
		}
	}
	assert.True(t, found)
}
