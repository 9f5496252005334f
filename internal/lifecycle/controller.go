// Package lifecycle implements the Lifecycle Controller: the state
// machine and command bodies for start/stop/destroy/status/shell/proxy/
// logs/buildkit plus the init/build/list/config/info/doctor commands that
// sit on top of the same Docker Adapter, State Store, and Config Resolver.
package lifecycle

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/subroutinecom/workspace/internal/buildkit"
	"github.com/subroutinecom/workspace/internal/config"
	"github.com/subroutinecom/workspace/internal/docker"
	wserrors "github.com/subroutinecom/workspace/internal/errors"
	"github.com/subroutinecom/workspace/internal/state"
)

// SharedImageTag is the single image shared by every workspace.
const SharedImageTag = "workspace:latest"

// Controller composes the Docker Adapter, State Store, and BuildKit
// Manager into the workspace lifecycle operations.
type Controller struct {
	Docker   *docker.Adapter
	State    *state.Store
	BuildKit *buildkit.Manager
	HostHome string
}

// New wires a Controller against the real docker CLI and the state file
// rooted at hostHome.
func New(hostHome string) *Controller {
	d := docker.New()
	return &Controller{
		Docker:   d,
		State:    state.New(hostHome),
		BuildKit: buildkit.New(d),
		HostHome: hostHome,
	}
}

// resolve finds the nearest project config (or uses the override path),
// merges it with the user config, and normalizes it.
func (c *Controller) resolve(ctx context.Context, path, nameOverride string) (*config.ResolvedWorkspaceConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, wserrors.Internal(err, "could not determine working directory")
	}
	dir, err := config.FindWorkspaceDir(ctx, config.FindOptions{Path: path, Cwd: cwd})
	if err != nil {
		return nil, err
	}
	raw, err := config.LoadProjectConfig(dir)
	if err != nil {
		return nil, err
	}
	if err := config.EnsureUserConfig(c.HostHome); err != nil {
		return nil, err
	}
	user, err := config.LoadUserConfig(c.HostHome)
	if err != nil {
		return nil, err
	}
	return config.Resolve(raw, user, dir, c.HostHome, config.ResolveOptions{WorkspaceNameOverride: nameOverride})
}

// waitFor polls probe every interval until it returns true or timeout
// elapses, returning a DockerUnavailable error on timeout.
func waitFor(ctx context.Context, timeout, interval time.Duration, what string, probe func() bool) error {
	deadline := time.Now().Add(timeout)
	for {
		if probe() {
			return nil
		}
		if time.Now().After(deadline) {
			return wserrors.DockerUnavailable(nil, "timed out waiting for %s", what)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func volumeNames(container string) [3]string {
	return [3]string{container + "-home", container + "-docker", container + "-cache"}
}

// readPublicKey returns the contents of keyPath+".pub", trimmed.
func readPublicKey(keyPath string) (string, error) {
	data, err := os.ReadFile(keyPath + ".pub")
	if err != nil {
		return "", wserrors.Internal(err, "could not read ssh host public key at %s.pub", keyPath)
	}
	return trimTrailingNewline(string(data)), nil
}

func trimTrailingNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// sshAgentSocket returns $SSH_AUTH_SOCK when it names an existing socket
// file, else "".
func sshAgentSocket() string {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return ""
	}
	if _, err := os.Stat(sock); err != nil {
		return ""
	}
	return sock
}

// dockerExecProbe returns a probe func for waitFor that runs `docker exec
// <container> true` (or, for in-container readiness, argv inside the
// container) and reports success.
func (c *Controller) dockerExecProbe(ctx context.Context, container string, argv []string) func() bool {
	return func() bool {
		res, err := c.Docker.ExecInContainer(ctx, container, argv, docker.ExecOptions{})
		return err == nil && res != nil && res.Code == 0
	}
}

// fmtRange is a shared helper for proxy's "A-B" forward summary.
func fmtRange(a, b int) string {
	if a == b {
		return fmt.Sprintf("%d", a)
	}
	return fmt.Sprintf("%d-%d", a, b)
}

// sortedKeys returns m's keys in ascending order, so generated argv (env
// vars, flags) is deterministic across runs.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
