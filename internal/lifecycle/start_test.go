package lifecycle

import (
	"context"
	"testing"

	"github.com/subroutinecom/workspace/internal/config"
	"github.com/subroutinecom/workspace/internal/sshkey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartNoopsWhenAlreadyRunning(t *testing.T) {
	withFakeDocker(t, `
case "$1" in
  container) exit 0 ;;
  inspect) cat <<'EOF'
[{"Id":"abc","State":{"Status":"running","Running":true}}]
EOF
    ;;
  *) exit 0 ;;
esac
`)
	c := newTestController(t)
	dir := writeProject(t, "forwards: []\n")

	err := c.Start(context.Background(), "", StartOptions{Path: dir})
	require.NoError(t, err)
}

func TestAssembleRunArgsIncludesRepoEnvAndVolumes(t *testing.T) {
	c := newTestController(t)
	dir := writeProject(t, "repo:\n  remote: git@github.com:acme/widgets.git\n  branch: main\nforwards:\n  - 8080\n")

	raw, err := config.LoadProjectConfig(dir)
	require.NoError(t, err)
	require.NoError(t, config.EnsureUserConfig(c.HostHome))
	user, err := config.LoadUserConfig(c.HostHome)
	require.NoError(t, err)
	resolved, err := config.Resolve(raw, user, dir, c.HostHome, config.ResolveOptions{WorkspaceNameOverride: "widgets"})
	require.NoError(t, err)

	require.NoError(t, sshkey.EnsureHostKey(resolved.State.KeyPath))

	args, err := c.assembleRunArgs(resolved, 2301, "id_ed25519")
	require.NoError(t, err)

	joined := argsString(args)
	assert.Contains(t, joined, "--name workspace-widgets")
	assert.Contains(t, joined, "-p 2301:22")
	assert.Contains(t, joined, "WORKSPACE_REPO_URL=git@github.com:acme/widgets.git")
	assert.Contains(t, joined, "WORKSPACE_SELECTED_SSH_KEY=id_ed25519")
	assert.Contains(t, joined, "workspace-widgets-home:/home/workspace")
	assert.Contains(t, joined, "workspace-widgets-docker:/var/lib/docker")
	assert.Contains(t, joined, "workspace:latest")
}

func argsString(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}
