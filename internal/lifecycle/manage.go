package lifecycle

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/subroutinecom/workspace/internal/buildkit"
	"github.com/subroutinecom/workspace/internal/docker"
	wserrors "github.com/subroutinecom/workspace/internal/errors"
	"github.com/subroutinecom/workspace/internal/runner"
	"github.com/subroutinecom/workspace/internal/ui"
)

// Stop stops a workspace's container without removing it or its state.
func (c *Controller) Stop(ctx context.Context, name, path string) error {
	resolved, err := c.resolve(ctx, path, name)
	if err != nil {
		return err
	}
	if !c.Docker.ContainerExists(ctx, resolved.ContainerName) {
		ui.Info("workspace %q has no container", resolved.Name)
		return nil
	}
	if err := c.Docker.StopContainer(ctx, resolved.ContainerName, docker.StopOptions{}); err != nil {
		return err
	}
	ui.Success("workspace %q stopped", resolved.Name)
	return nil
}

// DestroyOptions configures Destroy.
type DestroyOptions struct {
	Path        string
	Force       bool
	KeepVolumes bool
	SkipConfirm bool
}

// Destroy removes a workspace's container, its volumes (unless
// KeepVolumes), and its state record and state directory, after confirming
// with the user unless Force is set.
func (c *Controller) Destroy(ctx context.Context, name string, opts DestroyOptions) error {
	resolved, err := c.resolve(ctx, opts.Path, name)
	if err != nil {
		return err
	}

	if !opts.Force && !opts.SkipConfirm {
		if !ui.Confirm(fmt.Sprintf("destroy workspace %q and all its data?", resolved.Name)) {
			ui.Info("aborted")
			return nil
		}
	}

	if err := c.Docker.RemoveContainer(ctx, resolved.ContainerName, true); err != nil {
		return err
	}

	if !opts.KeepVolumes {
		for _, v := range volumeNames(resolved.ContainerName) {
			if err := c.Docker.RemoveVolume(ctx, v); err != nil {
				return err
			}
		}
	}

	if err := c.State.RemoveWorkspaceState(resolved.Name, resolved.State.Root); err != nil {
		return err
	}

	ui.Success("workspace %q destroyed", resolved.Name)
	return nil
}

// StatusInfo is the rendered view of a single workspace's state.
type StatusInfo struct {
	Name        string
	Exists      bool
	Running     bool
	ContainerID string
	SSHPort     int
	Forwards    []int
	SelectedKey string
	RepoRemote  string
	RepoBranch  string
}

// Status reports the current container state and recorded state-file
// entry for a workspace.
func (c *Controller) Status(ctx context.Context, name, path string) (*StatusInfo, error) {
	resolved, err := c.resolve(ctx, path, name)
	if err != nil {
		return nil, err
	}

	info := &StatusInfo{Name: resolved.Name, RepoRemote: resolved.Repo.Remote, RepoBranch: resolved.Repo.Branch}

	inspect, err := c.Docker.InspectContainer(ctx, resolved.ContainerName)
	if err != nil {
		return nil, err
	}
	if inspect != nil {
		info.Exists = true
		info.Running = inspect.State.Running
		info.ContainerID = inspect.ID
	}

	rec, ok, err := c.State.GetWorkspaceState(resolved.Name)
	if err != nil {
		return nil, err
	}
	if ok {
		info.SSHPort = rec.SSHPort
		info.Forwards = rec.Forwards
		info.SelectedKey = rec.SelectedKey
	}

	return info, nil
}

// ShellOptions configures Shell.
type ShellOptions struct {
	User    string
	Root    bool
	Command string
}

// Shell opens an interactive shell in a running workspace's container,
// detecting the target user's login shell via getent passwd and falling
// back to /bin/bash.
func (c *Controller) Shell(ctx context.Context, name, path string, opts ShellOptions) error {
	resolved, err := c.resolve(ctx, path, name)
	if err != nil {
		return err
	}
	if !c.Docker.ContainerExists(ctx, resolved.ContainerName) {
		return wserrors.DockerUnavailable(nil, "workspace %q has no container; run `workspace start` first", resolved.Name)
	}

	user := "workspace"
	if opts.Root {
		user = "root"
	}
	if opts.User != "" {
		user = opts.User
	}
	shell := c.loginShell(ctx, resolved.ContainerName, user)

	args := []string{"exec"}
	if opts.Command == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		args = append(args, "-it")
	} else {
		args = append(args, "-i")
	}
	args = append(args, "-u", user)
	if termEnv := os.Getenv("TERM"); termEnv != "" {
		args = append(args, "-e", "TERM="+termEnv)
	}
	args = append(args, resolved.ContainerName)
	if opts.Command != "" {
		args = append(args, shell, "-c", opts.Command)
	} else {
		args = append(args, shell, "-l")
	}
	return runner.Stream(ctx, "docker", args, runner.StreamOptions{})
}

// loginShell reads the target user's login shell from the container's
// passwd database, defaulting to /bin/bash when it cannot be determined.
func (c *Controller) loginShell(ctx context.Context, container, user string) string {
	res, err := c.Docker.ExecInContainer(ctx, container, []string{"getent", "passwd", user}, docker.ExecOptions{})
	if err != nil || res == nil || res.Code != 0 {
		return "/bin/bash"
	}
	fields := strings.Split(strings.TrimSpace(res.Stdout), ":")
	if len(fields) == 7 && fields[6] != "" {
		return fields[6]
	}
	return "/bin/bash"
}

// Logs streams or prints a workspace container's docker logs.
func (c *Controller) Logs(ctx context.Context, name, path string, tail int, follow bool) error {
	resolved, err := c.resolve(ctx, path, name)
	if err != nil {
		return err
	}
	return c.Docker.Logs(ctx, resolved.ContainerName, tail, follow, runner.StreamOptions{})
}

// Proxy opens an SSH tunnel to a running workspace, forwarding its
// configured ports over localhost.
func (c *Controller) Proxy(ctx context.Context, name, path string) error {
	resolved, err := c.resolve(ctx, path, name)
	if err != nil {
		return err
	}

	rec, ok, err := c.State.GetWorkspaceState(resolved.Name)
	if err != nil {
		return err
	}
	if !ok {
		return wserrors.DockerUnavailable(nil, "workspace %q has not been started yet", resolved.Name)
	}
	if rec.SelectedKey == "" {
		return wserrors.Internal(nil, "workspace %q has no selected ssh key on record", resolved.Name)
	}
	keyPath := resolved.State.KeyPath
	forwards := rec.Forwards
	if len(forwards) == 0 {
		forwards = resolved.Forwards
	}

	args := []string{
		"-i", keyPath,
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-N",
		"-p", fmt.Sprintf("%d", rec.SSHPort),
	}
	for _, port := range forwards {
		args = append(args, "-L", fmt.Sprintf("127.0.0.1:%d:localhost:%d", port, port))
	}
	args = append(args, "workspace@localhost")

	ui.Info("forwarding to workspace %q: %s", resolved.Name, summarizeForwards(forwards))
	return runner.Stream(ctx, "ssh", args, runner.StreamOptions{})
}

// summarizeForwards collapses consecutive port numbers into ranges for a
// compact one-line summary ("8000-8002, 9000").
func summarizeForwards(ports []int) string {
	if len(ports) == 0 {
		return "(none)"
	}
	sorted := append([]int{}, ports...)
	sort.Ints(sorted)

	var parts []string
	start := sorted[0]
	prev := sorted[0]
	for _, p := range sorted[1:] {
		if p == prev+1 {
			prev = p
			continue
		}
		parts = append(parts, fmtRange(start, prev))
		start, prev = p, p
	}
	parts = append(parts, fmtRange(start, prev))

	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}

// BuildkitOptions configures Buildkit.
type BuildkitOptions struct {
	Stop    bool
	Restart bool
	Clean   bool
}

// Buildkit dispatches to the shared BuildKit manager's lifecycle
// operations, defaulting to reporting status.
func (c *Controller) Buildkit(ctx context.Context, opts BuildkitOptions) (*buildkit.Status, error) {
	switch {
	case opts.Clean:
		return nil, c.BuildKit.Clean(ctx)
	case opts.Restart:
		return nil, c.BuildKit.Restart(ctx)
	case opts.Stop:
		return nil, c.BuildKit.Stop(ctx)
	}
	st := c.BuildKit.Status(ctx)
	return &st, nil
}
