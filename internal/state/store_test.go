package state

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewAt(path)
	s.SetPortListener(func(ctx context.Context, port int) bool { return false })
	return s
}

func TestEnsureWorkspaceStateAllocatesFromStartPort(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.EnsureWorkspaceState(context.Background(), "alpha", "/proj/alpha", []int{3000})
	require.NoError(t, err)
	assert.Equal(t, StartPort, rec.SSHPort)
	assert.Equal(t, []int{3000}, rec.Forwards)
}

func TestEnsureWorkspaceStateIsIdempotentOnPort(t *testing.T) {
	s := newTestStore(t)
	first, err := s.EnsureWorkspaceState(context.Background(), "alpha", "/proj/alpha", []int{3000})
	require.NoError(t, err)

	second, err := s.EnsureWorkspaceState(context.Background(), "alpha", "/proj/alpha", []int{4000})
	require.NoError(t, err)
	assert.Equal(t, first.SSHPort, second.SSHPort)
	assert.Equal(t, []int{4000}, second.Forwards)
}

func TestFindAvailableSSHPortSkipsListeningPort(t *testing.T) {
	s := newTestStore(t)
	s.SetPortListener(func(ctx context.Context, port int) bool { return port == StartPort+6 })

	for i := 0; i < 6; i++ {
		_, err := s.EnsureWorkspaceState(context.Background(), "ws"+string(rune('a'+i)), "/proj", nil)
		require.NoError(t, err)
	}
	rec, err := s.EnsureWorkspaceState(context.Background(), "last", "/proj", nil)
	require.NoError(t, err)
	assert.Equal(t, StartPort+7, rec.SSHPort, "port 2306 is listening and must be skipped, landing on 2307")
}

func TestSSHPortUniqueAcrossConcurrentEnsure(t *testing.T) {
	s := newTestStore(t)
	const n = 12
	var wg sync.WaitGroup
	ports := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := s.EnsureWorkspaceState(context.Background(), string(rune('a'+i)), "/proj", nil)
			assert.NoError(t, err)
			ports[i] = rec.SSHPort
		}(i)
	}
	wg.Wait()

	seen := map[int]bool{}
	for _, p := range ports {
		assert.False(t, seen[p], "ssh port %d allocated twice", p)
		assert.GreaterOrEqual(t, p, StartPort)
		seen[p] = true
	}
}

func TestRemoveWorkspaceState(t *testing.T) {
	s := newTestStore(t)
	_, err := s.EnsureWorkspaceState(context.Background(), "alpha", "/proj/alpha", nil)
	require.NoError(t, err)

	stateRoot := t.TempDir()
	require.NoError(t, s.RemoveWorkspaceState("alpha", stateRoot))

	_, ok, err := s.GetWorkspaceState("alpha")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSharedImageBuildRoundTrip(t *testing.T) {
	s := newTestStore(t)
	last, err := s.GetLastSharedImageBuild()
	require.NoError(t, err)
	assert.Nil(t, last)

	stale, err := s.IsSharedImageStale(time.Now())
	require.NoError(t, err)
	assert.True(t, stale, "never built is stale")

	now := time.Now()
	require.NoError(t, s.RecordSharedImageBuild(now))

	last, err = s.GetLastSharedImageBuild()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.WithinDuration(t, now, time.UnixMilli(*last), time.Second)

	stale, err = s.IsSharedImageStale(now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, stale)

	stale, err = s.IsSharedImageStale(now.Add(8 * 24 * time.Hour))
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestLoadDropsMalformedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewAt(path)
	require.NoError(t, s.save(&File{Workspaces: map[string]WorkspaceRecord{
		"bad":  {SSHPort: 0, ConfigDir: "/x"},
		"good": {SSHPort: 2300, ConfigDir: "/y"},
	}}))

	f, err := s.load()
	require.NoError(t, err)
	_, hasBad := f.Workspaces["bad"]
	_, hasGood := f.Workspaces["good"]
	assert.False(t, hasBad)
	assert.True(t, hasGood)
}
