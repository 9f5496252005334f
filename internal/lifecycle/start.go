package lifecycle

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/subroutinecom/workspace/internal/buildkit"
	"github.com/subroutinecom/workspace/internal/config"
	"github.com/subroutinecom/workspace/internal/docker"
	wserrors "github.com/subroutinecom/workspace/internal/errors"
	"github.com/subroutinecom/workspace/internal/fsutil"
	"github.com/subroutinecom/workspace/internal/logging"
	"github.com/subroutinecom/workspace/internal/sshkey"
	"github.com/subroutinecom/workspace/internal/ui"
)

// initLogDirName is the subdirectory of hostHome/.workspaces holding
// per-workspace init logs (spec §6.2).
const initLogDirName = "logs"

// StartOptions configures Start.
type StartOptions struct {
	Path          string
	ForceRecreate bool
	Rebuild       bool
	NoCache       bool
	NoInit        bool
}

// Start drives the Absent → ... → Ready state machine: it resolves the
// workspace's configuration, then either resumes an existing container or
// creates one from scratch.
func (c *Controller) Start(ctx context.Context, name string, opts StartOptions) error {
	resolved, err := c.resolve(ctx, opts.Path, name)
	if err != nil {
		return err
	}
	container := resolved.ContainerName

	if c.Docker.ContainerExists(ctx, container) && !opts.ForceRecreate && !opts.Rebuild && !opts.NoCache {
		return c.startExisting(ctx, resolved, opts)
	}
	return c.startFresh(ctx, resolved, opts)
}

func (c *Controller) startExisting(ctx context.Context, resolved *config.ResolvedWorkspaceConfig, opts StartOptions) error {
	container := resolved.ContainerName

	inspect, err := c.Docker.InspectContainer(ctx, container)
	if err != nil {
		return err
	}
	if inspect != nil && inspect.State.Running {
		ui.Info("workspace %q already running", resolved.Name)
		return nil
	}

	ui.Verbose("starting stopped container %s", container)
	if err := c.Docker.StartContainer(ctx, container); err != nil {
		return wserrors.DockerUnavailable(err, "could not start container %s", container)
	}

	if err := c.bringUpBuildKit(ctx, container); err != nil {
		return err
	}

	if !opts.NoInit {
		if err := c.runInContainerInit(ctx, container, resolved.Name); err != nil {
			return err
		}
	}
	if resolved.Repo.Remote != "" {
		if err := c.verifyCloneMarker(ctx, container); err != nil {
			return err
		}
	}

	ui.Success("workspace %q started", resolved.Name)
	return nil
}

func (c *Controller) startFresh(ctx context.Context, resolved *config.ResolvedWorkspaceConfig, opts StartOptions) error {
	container := resolved.ContainerName

	rec, err := c.State.EnsureWorkspaceState(ctx, resolved.Name, resolved.ConfigDir, resolved.Forwards)
	if err != nil {
		return err
	}

	selectedKeyPath := sshkey.Select(resolved.Repo.Remote, c.loadUserConfigOrEmpty(), c.HostHome)
	selectedKeyBase := ""
	if selectedKeyPath != "" {
		selectedKeyBase = filepath.Base(selectedKeyPath)
		if err := c.State.SetSelectedKey(resolved.Name, selectedKeyBase); err != nil {
			return err
		}
	}

	if err := fsutil.EnsureDir(resolved.State.SSHDir); err != nil {
		return wserrors.Internal(err, "could not create state directory for %s", resolved.Name)
	}
	if err := sshkey.EnsureHostKey(resolved.State.KeyPath); err != nil {
		return err
	}

	rf := config.BuildRuntimeFile(resolved, rec.SSHPort, selectedKeyBase)
	if err := config.WriteRuntimeFile(resolved.State.RuntimeConfigPath, rf); err != nil {
		return wserrors.Internal(err, "could not write runtime config for %s", resolved.Name)
	}

	if err := c.ensureSharedImage(ctx, resolved, opts.Rebuild || opts.NoCache, opts.NoCache); err != nil {
		return err
	}

	if opts.ForceRecreate && c.Docker.ContainerExists(ctx, container) {
		if err := c.Docker.RemoveContainer(ctx, container, true); err != nil {
			return err
		}
	}

	if err := c.BuildKit.EnsureSharedBuildKit(ctx); err != nil {
		return err
	}

	runArgs, err := c.assembleRunArgs(resolved, rec.SSHPort, selectedKeyBase)
	if err != nil {
		return err
	}
	if _, err := c.Docker.CreateContainer(ctx, runArgs); err != nil {
		return wserrors.DockerUnavailable(err, "could not create container %s", container)
	}

	if err := c.Docker.ConnectToNetwork(ctx, container, buildkit.NetworkName); err != nil {
		return err
	}

	if err := waitFor(ctx, 15*time.Second, 500*time.Millisecond, "container exec readiness", c.dockerExecProbe(ctx, container, []string{"true"})); err != nil {
		return err
	}
	if err := c.awaitDockerReady(ctx, container); err != nil {
		return err
	}
	if err := c.BuildKit.ConfigureBuildxInContainer(ctx, container); err != nil {
		return err
	}

	if !opts.NoInit {
		if err := c.runInContainerInit(ctx, container, resolved.Name); err != nil {
			return err
		}
	}
	if resolved.Repo.Remote != "" {
		if err := c.verifyCloneMarker(ctx, container); err != nil {
			return err
		}
	}

	ui.Success("workspace %q ready: ssh port %d", resolved.Name, rec.SSHPort)
	if len(resolved.Forwards) > 0 {
		ui.Info("forwards: %v", resolved.Forwards)
	}
	return nil
}

// bringUpBuildKit ensures the shared BuildKit daemon is running, connects
// container to its network, and configures buildx inside it. Used by the
// resume-an-existing-container path, which skips image/state setup.
func (c *Controller) bringUpBuildKit(ctx context.Context, container string) error {
	if err := c.awaitDockerReady(ctx, container); err != nil {
		return err
	}
	if err := c.BuildKit.EnsureSharedBuildKit(ctx); err != nil {
		return err
	}
	if err := c.Docker.ConnectToNetwork(ctx, container, buildkit.NetworkName); err != nil {
		return err
	}
	return c.BuildKit.ConfigureBuildxInContainer(ctx, container)
}

// runInContainerInit runs `workspace-internal init` inside container,
// appending its combined output to a fresh timestamped, rotating log
// file under <hostHome>/.workspaces/logs/ rather than discarding it.
func (c *Controller) runInContainerInit(ctx context.Context, container, name string) error {
	logPath, logWriter, err := c.openInitLog(name)
	if err != nil {
		return err
	}
	defer logWriter.Close()

	argv := []string{"/usr/local/bin/workspace-internal", "init"}
	if _, err := c.Docker.ExecInContainerLogged(ctx, container, argv, docker.ExecOptions{User: "workspace"}, logWriter, logPath); err != nil {
		e := wserrors.BootstrapFailure(err, "in-container init failed for %s", name)
		e.LogPath = logPath
		return e
	}
	return nil
}

// openInitLog creates (if needed) <hostHome>/.workspaces/logs/ and
// returns a fresh <name>-<timestamp>.log path plus a rotating writer
// for it, per spec §6.2 and §9's "implement always" resolution.
func (c *Controller) openInitLog(name string) (string, io.WriteCloser, error) {
	dir := filepath.Join(c.HostHome, config.UserConfigDirName, initLogDirName)
	if err := fsutil.EnsureDir(dir); err != nil {
		return "", nil, wserrors.Internal(err, "could not create init log directory")
	}
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.log", name, stamp))
	return path, logging.RotatingWriter(path), nil
}

func (c *Controller) awaitDockerReady(ctx context.Context, container string) error {
	return waitFor(ctx, 30*time.Second, time.Second, "in-container dockerd", c.dockerExecProbe(ctx, container, []string{"docker", "info"}))
}

func (c *Controller) verifyCloneMarker(ctx context.Context, container string) error {
	res, err := c.Docker.ExecInContainer(ctx, container, []string{"test", "-d", "/workspace/source/.git"}, docker.ExecOptions{})
	if err != nil || res == nil || res.Code != 0 {
		return wserrors.CloneFailure(err, "repository was not cloned into /workspace/source")
	}
	return nil
}

// ensureSharedImage builds the shared image if it is missing, older than
// state.SharedImageStaleAfter, or force was requested.
func (c *Controller) ensureSharedImage(ctx context.Context, resolved *config.ResolvedWorkspaceConfig, force, noCache bool) error {
	stale, err := c.State.IsSharedImageStale(time.Now())
	if err != nil {
		return err
	}
	if !force && c.Docker.ImageExists(ctx, SharedImageTag) && !stale {
		return nil
	}
	if err := c.Docker.BuildImage(ctx, SharedImageTag, resolved.BuildContext, docker.BuildOptions{NoCache: noCache}); err != nil {
		return err
	}
	return c.State.RecordSharedImageBuild(time.Now())
}

func (c *Controller) loadUserConfigOrEmpty() *config.UserConfig {
	user, err := config.LoadUserConfig(c.HostHome)
	if err != nil {
		return &config.UserConfig{}
	}
	return user
}

// assembleRunArgs builds the `docker run` argument list per the container
// contract: detached, privileged, with the workspace's env, bind mounts,
// and named volumes.
func (c *Controller) assembleRunArgs(resolved *config.ResolvedWorkspaceConfig, sshPort int, selectedKey string) ([]string, error) {
	container := resolved.ContainerName
	pubKey, err := readPublicKey(resolved.State.KeyPath)
	if err != nil {
		return nil, err
	}

	args := []string{
		"--detach", "--privileged",
		"--name", container,
		"--hostname", container,
		"-p", fmt.Sprintf("%d:22", sshPort),
	}

	env := map[string]string{
		"USER":                        "workspace",
		"WORKSPACE_NAME":              resolved.Name,
		"SSH_PUBLIC_KEY":              pubKey,
		"HOST_UID":                    strconv.Itoa(os.Getuid()),
		"HOST_GID":                    strconv.Itoa(os.Getgid()),
		"WORKSPACE_RUNTIME_CONFIG":    "/workspace/config/runtime.json",
		"WORKSPACE_SOURCE_DIR":        "/workspace/source",
		"HOST_HOME":                   "/host/home",
		"WORKSPACE_ASSIGNED_SSH_PORT": strconv.Itoa(sshPort),
		"DOCKER_BUILDKIT":             "1",
		"COMPOSE_DOCKER_CLI_BUILD":    "1",
	}
	if resolved.Repo.Remote != "" {
		env["WORKSPACE_REPO_URL"] = resolved.Repo.Remote
		env["WORKSPACE_REPO_BRANCH"] = resolved.Repo.Branch
	}
	if selectedKey != "" {
		env["WORKSPACE_SELECTED_SSH_KEY"] = selectedKey
	}
	agentSock := sshAgentSocket()
	if agentSock != "" {
		env["SSH_AUTH_SOCK"] = "/ssh-agent"
	}
	for _, k := range sortedKeys(env) {
		args = append(args, "-e", k+"="+env[k])
	}

	args = append(args,
		"-v", resolved.State.RuntimeConfigPath+":/workspace/config/runtime.json:ro",
		"-v", resolved.ConfigDir+":/workspace/source:ro",
	)
	workspacesDir := filepath.Join(c.HostHome, config.UserConfigDirName)
	if fsutil.PathExists(workspacesDir) {
		args = append(args, "-v", workspacesDir+":/workspace/userconfig:ro")
	}
	args = append(args, "-v", c.HostHome+":/host/home:ro")
	if agentSock != "" {
		args = append(args, "-v", agentSock+":/ssh-agent")
	}
	for _, m := range resolved.Mounts {
		args = append(args, "-v", fmt.Sprintf("%s:%s:%s", m.Source, m.Target, m.Mode))
	}

	vols := volumeNames(container)
	args = append(args,
		"-v", vols[0]+":/home/workspace",
		"-v", vols[1]+":/var/lib/docker",
		"-v", vols[2]+":/home/workspace/.cache",
	)

	args = append(args, resolved.ImageTag)
	return args, nil
}
