// Package state implements the State Store: a globally locked JSON store
// of workspace records (SSH port, forwards, selected key) plus the shared
// image's last-build timestamp.
package state

import (
	"context"
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	wserrors "github.com/subroutinecom/workspace/internal/errors"
	"github.com/subroutinecom/workspace/internal/fsutil"
	"github.com/subroutinecom/workspace/internal/runner"
	"github.com/gofrs/flock"
)

// StartPort is the first SSH port ever allocated to a workspace.
const StartPort = 2300

const (
	lockRetries  = 10
	lockMinDelay = 50 * time.Millisecond
	lockMaxDelay = 500 * time.Millisecond
)

// PortListener probes whether a port is currently listening on the host.
// The default implementation shells out to `ss -tlnH`; tests substitute a
// fake.
type PortListener func(ctx context.Context, port int) bool

// Store is the locked JSON state store rooted at a single state file path.
type Store struct {
	path         string
	mu           sync.Mutex // serializes in-process callers before touching the flock
	isListening  PortListener
}

// New returns a Store backed by the state file at
// <hostHome>/.workspaces/state/state.json.
func New(hostHome string) *Store {
	return &Store{
		path:        filepath.Join(hostHome, ".workspaces", "state", "state.json"),
		isListening: defaultPortListener,
	}
}

// NewAt returns a Store backed by an explicit state file path, used by
// tests.
func NewAt(path string) *Store {
	return &Store{path: path, isListening: defaultPortListener}
}

// SetPortListener overrides the listening-port probe (test seam).
func (s *Store) SetPortListener(p PortListener) { s.isListening = p }

func defaultPortListener(ctx context.Context, port int) bool {
	res, err := runner.Run(ctx, "ss", []string{"-tlnH"}, runner.Options{IgnoreFailure: true})
	if err != nil || res == nil {
		return false
	}
	needle := ":" + strconv.Itoa(port) + " "
	for _, line := range strings.Split(res.Stdout, "\n") {
		if strings.Contains(line, needle) {
			return true
		}
	}
	return false
}

// withLock loads the file, runs fn against it, and persists the result if
// fn did not return an error, all under the process-wide exclusive
// advisory lock with retry+jitter.
func (s *Store) withLock(fn func(f *File) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fsutil.EnsureDir(filepath.Dir(s.path)); err != nil {
		return wserrors.Internal(err, "could not create state directory")
	}

	fl := flock.New(s.path + ".lock")
	locked, err := acquireWithRetry(fl)
	if err != nil || !locked {
		return wserrors.StateLocked(err)
	}
	defer fl.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		return err
	}
	return s.save(f)
}

func acquireWithRetry(fl *flock.Flock) (bool, error) {
	var lastErr error
	for attempt := 0; attempt < lockRetries; attempt++ {
		locked, err := fl.TryLock()
		if err == nil && locked {
			return true, nil
		}
		lastErr = err
		delay := lockMinDelay + time.Duration(rand.Int63n(int64(lockMaxDelay-lockMinDelay)))
		time.Sleep(delay)
	}
	return false, lastErr
}

func (s *Store) load() (*File, error) {
	f := emptyFile()
	if !fsutil.PathExists(s.path) {
		return f, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, wserrors.Internal(err, "could not read state file")
	}
	if len(data) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, wserrors.StateCorrupt(err)
	}
	f.normalize()
	return f, nil
}

func (s *Store) save(f *File) error {
	return fsutil.WriteJSONAtomic(s.path, f)
}

// EnsureWorkspaceState allocates an SSH port for a new workspace (or
// returns the existing record), records configDir, overwrites forwards to
// match config, and preserves selectedKey if already set.
func (s *Store) EnsureWorkspaceState(ctx context.Context, name, configDir string, forwards []int) (WorkspaceRecord, error) {
	var result WorkspaceRecord
	err := s.withLock(func(f *File) error {
		existing, ok := f.Workspaces[name]
		rec := existing
		if !ok {
			port, err := s.findAvailableSSHPort(ctx, f)
			if err != nil {
				return err
			}
			rec = WorkspaceRecord{SSHPort: port}
		}
		rec.ConfigDir = configDir
		rec.Forwards = append([]int{}, forwards...)
		f.Workspaces[name] = rec
		result = rec
		return nil
	})
	return result, err
}

// findAvailableSSHPort starts at StartPort and returns the first integer
// not present in any existing record and not currently listening on the
// host.
func (s *Store) findAvailableSSHPort(ctx context.Context, f *File) (int, error) {
	used := map[int]bool{}
	for _, rec := range f.Workspaces {
		used[rec.SSHPort] = true
	}
	for port := StartPort; ; port++ {
		if used[port] {
			continue
		}
		if s.isListening(ctx, port) {
			continue
		}
		return port, nil
	}
}

// SetSelectedKey records the selected SSH key basename for a workspace.
func (s *Store) SetSelectedKey(name, key string) error {
	return s.withLock(func(f *File) error {
		rec, ok := f.Workspaces[name]
		if !ok {
			return wserrors.Internal(nil, "no state record for workspace %q", name)
		}
		rec.SelectedKey = key
		f.Workspaces[name] = rec
		return nil
	})
}

// GetWorkspaceState returns the current record for name, if any.
func (s *Store) GetWorkspaceState(name string) (WorkspaceRecord, bool, error) {
	var rec WorkspaceRecord
	var ok bool
	err := s.withLock(func(f *File) error {
		rec, ok = f.Workspaces[name]
		return nil
	})
	return rec, ok, err
}

// RemoveWorkspaceState deletes the record under lock, then (outside the
// lock) recursively removes the per-workspace state directory.
func (s *Store) RemoveWorkspaceState(name, stateRoot string) error {
	err := s.withLock(func(f *File) error {
		delete(f.Workspaces, name)
		return nil
	})
	if err != nil {
		return err
	}
	if stateRoot == "" {
		return nil
	}
	if err := os.RemoveAll(stateRoot); err != nil {
		return wserrors.Internal(err, "could not remove state directory %s", stateRoot)
	}
	return nil
}

// RecordSharedImageBuild records now as the shared image's last build time.
func (s *Store) RecordSharedImageBuild(now time.Time) error {
	return s.withLock(func(f *File) error {
		f.SharedImage.LastBuildAt = now.UTC().Format(time.RFC3339)
		return nil
	})
}

// GetLastSharedImageBuild returns the last shared-image build time in
// epoch milliseconds, or nil if never built.
func (s *Store) GetLastSharedImageBuild() (*int64, error) {
	var result *int64
	err := s.withLock(func(f *File) error {
		if f.SharedImage.LastBuildAt == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339, f.SharedImage.LastBuildAt)
		if err != nil {
			return nil
		}
		ms := t.UnixMilli()
		result = &ms
		return nil
	})
	return result, err
}

// ListWorkspaceNames returns workspace names in no guaranteed order.
func (s *Store) ListWorkspaceNames() ([]string, error) {
	var names []string
	err := s.withLock(func(f *File) error {
		for name := range f.Workspaces {
			names = append(names, name)
		}
		return nil
	})
	return names, err
}

// SharedImageStaleAfter is the staleness threshold referenced by the
// Lifecycle Controller's start operation.
const SharedImageStaleAfter = 7 * 24 * time.Hour

// IsSharedImageStale reports whether the shared image has never been
// built, or was built more than SharedImageStaleAfter ago.
func (s *Store) IsSharedImageStale(now time.Time) (bool, error) {
	lastMs, err := s.GetLastSharedImageBuild()
	if err != nil {
		return false, err
	}
	if lastMs == nil {
		return true, nil
	}
	built := time.UnixMilli(*lastMs)
	return now.Sub(built) > SharedImageStaleAfter, nil
}
