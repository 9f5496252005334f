package lifecycle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// withFakeDocker writes an executable "docker" script dispatching on $1 and
// prepends its directory to PATH for the duration of the test.
func withFakeDocker(t *testing.T, script string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "docker")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// newTestController wires a Controller against a scratch host home and the
// real docker.Adapter (fronted by whatever fake "docker" is on PATH).
func newTestController(t *testing.T) *Controller {
	t.Helper()
	home := t.TempDir()
	return New(home)
}

// writeProject creates a project directory containing a .workspace.yml with
// body, returning the directory path.
func writeProject(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".workspace.yml"), []byte(body), 0o644))
	return dir
}
