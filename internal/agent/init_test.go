package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/subroutinecom/workspace/internal/config"
	wserrors "github.com/subroutinecom/workspace/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSHHostFromRemote(t *testing.T) {
	cases := map[string]string{
		"git@github.com:company/special.git": "github.com",
		"ssh://git@example.com:2222/a/b.git":  "example.com",
		"https://github.com/a/b.git":          "",
	}
	for remote, want := range cases {
		assert.Equal(t, want, sshHostFromRemote(remote), remote)
	}
}

func TestAppendShellExportsIsIdempotent(t *testing.T) {
	home := t.TempDir()
	prev := workspaceHome
	workspaceHome = home
	defer func() { workspaceHome = prev }()

	require.NoError(t, appendShellExports())
	require.NoError(t, appendShellExports())

	data, err := os.ReadFile(filepath.Join(home, ".bashrc"))
	require.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(string(data), "GIT_SSH_COMMAND"))
}

func TestRunBootstrapScriptsAbortsOnMissingScript(t *testing.T) {
	rf := &config.RuntimeFile{}
	rf.Bootstrap.Scripts = []config.BootstrapScript{{Path: "scripts/nonexistent.sh", Source: "project"}}

	err := runBootstrapScripts(context.Background(), rf)
	require.Error(t, err)
	var wsErr *wserrors.Error
	require.True(t, wserrors.As(err, &wsErr))
	assert.Equal(t, wserrors.KindBootstrapFailure, wsErr.Kind)
}
