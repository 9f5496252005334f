package docker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withFakeDocker writes an executable script named "docker" that dispatches
// on its first argument and prepends its directory to PATH for the
// duration of the test.
func withFakeDocker(t *testing.T, script string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "docker")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestImageExistsTrueWhenInspectSucceeds(t *testing.T) {
	withFakeDocker(t, `exit 0`)
	assert.True(t, New().ImageExists(context.Background(), "workspace:latest"))
}

func TestImageExistsFalseWhenInspectFails(t *testing.T) {
	withFakeDocker(t, `exit 1`)
	assert.False(t, New().ImageExists(context.Background(), "workspace:latest"))
}

func TestStopContainerIgnoresNotRunning(t *testing.T) {
	withFakeDocker(t, `echo "Error: container is not running" >&2; exit 1`)
	assert.NoError(t, New().StopContainer(context.Background(), "ws-1", StopOptions{}))
}

func TestStopContainerSurfacesOtherFailures(t *testing.T) {
	withFakeDocker(t, `echo "Error: connection refused" >&2; exit 1`)
	assert.Error(t, New().StopContainer(context.Background(), "ws-1", StopOptions{}))
}

func TestRemoveContainerIgnoresMissing(t *testing.T) {
	withFakeDocker(t, `echo "Error: No such container: ws-1" >&2; exit 1`)
	assert.NoError(t, New().RemoveContainer(context.Background(), "ws-1", true))
}

func TestConnectToNetworkIgnoresAlreadyConnected(t *testing.T) {
	withFakeDocker(t, `echo "Error: endpoint already exists in network workspace-net" >&2; exit 1`)
	assert.NoError(t, New().ConnectToNetwork(context.Background(), "ws-1", "workspace-net"))
}

func TestConnectToNetworkSurfacesOtherFailures(t *testing.T) {
	withFakeDocker(t, `echo "Error: network not found" >&2; exit 1`)
	assert.Error(t, New().ConnectToNetwork(context.Background(), "ws-1", "workspace-net"))
}

func TestInspectContainerParsesJSON(t *testing.T) {
	withFakeDocker(t, `cat <<'EOF'
[{"Id":"abc123","Name":"/ws-1","State":{"Status":"running","Running":true},"Config":{"Image":"workspace:latest"}}]
EOF`)
	inspect, err := New().InspectContainer(context.Background(), "ws-1")
	require.NoError(t, err)
	require.NotNil(t, inspect)
	assert.Equal(t, "abc123", inspect.ID)
	assert.True(t, inspect.State.Running)
}

func TestInspectContainerReturnsNilWhenMissing(t *testing.T) {
	withFakeDocker(t, `exit 1`)
	inspect, err := New().InspectContainer(context.Background(), "ws-1")
	require.NoError(t, err)
	assert.Nil(t, inspect)
}

func TestCreateContainerReturnsContainerID(t *testing.T) {
	withFakeDocker(t, `echo abc123`)
	id, err := New().CreateContainer(context.Background(), []string{"--detach", "--name", "ws-1", "workspace:latest"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
}
