package lifecycle

import (
	"context"
	"testing"

	"github.com/subroutinecom/workspace/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopNoopsWhenNoContainer(t *testing.T) {
	withFakeDocker(t, `exit 1`)
	c := newTestController(t)
	dir := writeProject(t, "forwards: []\n")
	require.NoError(t, c.Stop(context.Background(), "", dir))
}

func TestDestroyRequiresConfirmationUnlessForced(t *testing.T) {
	withFakeDocker(t, `exit 0`)
	c := newTestController(t)
	dir := writeProject(t, "forwards: []\n")

	// Quiet mode answers "no" to ui.Confirm without prompting, so an
	// unforced destroy is a safe no-op in tests.
	ui.Configure(ui.Config{Verbosity: ui.VerbosityQuiet})
	defer ui.Configure(ui.Config{})
	err := c.Destroy(context.Background(), "", DestroyOptions{Path: dir, SkipConfirm: false, Force: false})
	require.NoError(t, err)
}

func TestDestroyForcedRemovesStateRecord(t *testing.T) {
	withFakeDocker(t, `exit 0`)
	c := newTestController(t)
	dir := writeProject(t, "forwards: []\n")

	_, err := c.State.EnsureWorkspaceState(context.Background(), "widgets", dir, nil)
	require.NoError(t, err)

	err = c.Destroy(context.Background(), "widgets", DestroyOptions{Path: dir, Force: true})
	require.NoError(t, err)

	_, ok, err := c.State.GetWorkspaceState("widgets")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatusReportsAbsentContainer(t *testing.T) {
	withFakeDocker(t, `exit 1`)
	c := newTestController(t)
	dir := writeProject(t, "forwards: []\n")

	st, err := c.Status(context.Background(), "", dir)
	require.NoError(t, err)
	assert.False(t, st.Exists)
}

func TestSummarizeForwardsCollapsesConsecutivePorts(t *testing.T) {
	assert.Equal(t, "8000-8002, 9000", summarizeForwards([]int{9000, 8000, 8001, 8002}))
	assert.Equal(t, "(none)", summarizeForwards(nil))
}

func TestProxyFailsWithoutPriorStart(t *testing.T) {
	withFakeDocker(t, `exit 0`)
	c := newTestController(t)
	dir := writeProject(t, "forwards: []\n")

	err := c.Proxy(context.Background(), "", dir)
	assert.Error(t, err)
}

func TestBuildkitReportsStatus(t *testing.T) {
	withFakeDocker(t, `exit 1`)
	c := newTestController(t)
	st, err := c.Buildkit(context.Background(), BuildkitOptions{})
	require.NoError(t, err)
	assert.False(t, st.NetworkExists)
}
