package agent

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostIDsRequiresBothNonZero(t *testing.T) {
	t.Setenv("HOST_UID", "1001")
	t.Setenv("HOST_GID", "1001")
	uid, gid, ok := hostIDs()
	require.True(t, ok)
	assert.Equal(t, 1001, uid)
	assert.Equal(t, 1001, gid)
}

func TestHostIDsRejectsZeroOrMissing(t *testing.T) {
	t.Setenv("HOST_UID", "0")
	t.Setenv("HOST_GID", "1001")
	_, _, ok := hostIDs()
	assert.False(t, ok)

	t.Setenv("HOST_UID", "")
	t.Setenv("HOST_GID", "1001")
	_, _, ok = hostIDs()
	assert.False(t, ok)
}

func TestSyncUserNoopWhenAlreadyMatching(t *testing.T) {
	t.Setenv("HOST_UID", "1001")
	t.Setenv("HOST_GID", "1001")
	withFakeCommands(t, map[string]string{
		"id": `
if [ "$1" = "-u" ]; then echo 1001; else echo 1001; fi
`,
		"groupmod": `exit 0`,
		"usermod":  `exit 0`,
		"chown":    `exit 0`,
	})
	assert.NoError(t, SyncUser(context.Background()))
}

func TestSyncUserShiftsConflictingGroup(t *testing.T) {
	t.Setenv("HOST_UID", "1001")
	t.Setenv("HOST_GID", "1001")
	marker := filepath.Join(t.TempDir(), "shifted")
	withFakeCommands(t, map[string]string{
		"id": `
if [ "$1" = "-u" ]; then echo 1000; else echo 1000; fi
`,
		// groupmod -g 1001 workspace fails the first time (gid taken); after
		// the conflicting group is shifted to 60000, the retry succeeds.
		"groupmod": `
if [ "$3" = "workspace" ]; then
  if [ -f "` + marker + `" ]; then exit 0; fi
  if [ "$2" = "1001" ]; then exit 1; fi
  exit 0
fi
touch "` + marker + `"
exit 0
`,
		"usermod": `exit 0`,
		"getent":  `echo othergroup:x:1001:`,
		"chown":   `exit 0`,
	})
	assert.NoError(t, SyncUser(context.Background()))
}

func TestSyncUserSkipsWhenHostIDsMissing(t *testing.T) {
	t.Setenv("HOST_UID", "")
	t.Setenv("HOST_GID", "")
	assert.NoError(t, SyncUser(context.Background()))
}
