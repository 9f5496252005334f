// Package docker is a thin, idempotent wrapper over the docker CLI. It
// never links the Docker API client; every operation shells out through
// internal/runner.
package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	wserrors "github.com/subroutinecom/workspace/internal/errors"
	"github.com/subroutinecom/workspace/internal/runner"
)

// Adapter wraps the docker CLI. The zero value is ready to use.
type Adapter struct{}

func New() *Adapter { return &Adapter{} }

// ImageExists reports whether tag is known to the local daemon.
func (a *Adapter) ImageExists(ctx context.Context, tag string) bool {
	res, err := runner.Run(ctx, "docker", []string{"image", "inspect", tag}, runner.Options{IgnoreFailure: true})
	return err == nil && res.Code == 0
}

// ContainerExists reports whether a container named name exists, regardless
// of running state.
func (a *Adapter) ContainerExists(ctx context.Context, name string) bool {
	res, err := runner.Run(ctx, "docker", []string{"container", "inspect", name}, runner.Options{IgnoreFailure: true})
	return err == nil && res.Code == 0
}

// VolumeExists reports whether the named volume exists.
func (a *Adapter) VolumeExists(ctx context.Context, name string) bool {
	res, err := runner.Run(ctx, "docker", []string{"volume", "inspect", name}, runner.Options{IgnoreFailure: true})
	return err == nil && res.Code == 0
}

// NetworkExists reports whether the named network exists.
func (a *Adapter) NetworkExists(ctx context.Context, name string) bool {
	res, err := runner.Run(ctx, "docker", []string{"network", "inspect", name}, runner.Options{IgnoreFailure: true})
	return err == nil && res.Code == 0
}

// BuildOptions configures BuildImage.
type BuildOptions struct {
	NoCache    bool
	BuildArgs  map[string]string
	Dockerfile string
}

// BuildImage streams `docker build` of contextDir tagged tag. Failures
// surface noisily: stdout/stderr are inherited by the caller's terminal.
func (a *Adapter) BuildImage(ctx context.Context, tag, contextDir string, opts BuildOptions) error {
	args := []string{"build", "-t", tag}
	if opts.Dockerfile != "" {
		args = append(args, "-f", opts.Dockerfile)
	}
	if opts.NoCache {
		args = append(args, "--no-cache")
	}
	for k, v := range opts.BuildArgs {
		args = append(args, "--build-arg", fmt.Sprintf("%s=%s", k, v))
	}
	args = append(args, contextDir)

	if err := runner.Stream(ctx, "docker", args, runner.StreamOptions{}); err != nil {
		return wserrors.DockerUnavailable(err, "docker build failed for %s", tag)
	}
	return nil
}

// CreateContainer runs `docker run` with runArgs, which must already
// include --detach. Returns the container ID printed on stdout.
func (a *Adapter) CreateContainer(ctx context.Context, runArgs []string) (string, error) {
	args := append([]string{"run"}, runArgs...)
	res, err := runner.Run(ctx, "docker", args, runner.Options{})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// StartContainer starts an existing, stopped container. Idempotent:
// starting an already-running container is not an error.
func (a *Adapter) StartContainer(ctx context.Context, name string) error {
	_, err := runner.Run(ctx, "docker", []string{"start", name}, runner.Options{})
	return err
}

// StopOptions configures StopContainer.
type StopOptions struct {
	Force bool
}

// StopContainer stops a container. "Already stopped" is never an error.
func (a *Adapter) StopContainer(ctx context.Context, name string, opts StopOptions) error {
	res, _ := runner.Run(ctx, "docker", []string{"stop", name}, runner.Options{IgnoreFailure: true})
	if res.Code != 0 && !strings.Contains(res.Stderr, "is not running") {
		return wserrors.CommandFailure("docker stop", res.Code, res.Stdout, res.Stderr)
	}
	return nil
}

// RemoveContainer removes a container, optionally forcing removal of a
// running one. A missing container is not an error.
func (a *Adapter) RemoveContainer(ctx context.Context, name string, force bool) error {
	args := []string{"rm"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, name)
	res, _ := runner.Run(ctx, "docker", args, runner.Options{IgnoreFailure: true})
	if res.Code != 0 && !strings.Contains(res.Stderr, "No such container") {
		return wserrors.CommandFailure("docker rm", res.Code, res.Stdout, res.Stderr)
	}
	return nil
}

// RemoveVolume removes a named volume. Missing is not an error.
func (a *Adapter) RemoveVolume(ctx context.Context, name string) error {
	res, _ := runner.Run(ctx, "docker", []string{"volume", "rm", name}, runner.Options{IgnoreFailure: true})
	if res.Code != 0 && !strings.Contains(res.Stderr, "no such volume") {
		return wserrors.CommandFailure("docker volume rm", res.Code, res.Stdout, res.Stderr)
	}
	return nil
}

// ConnectToNetwork attaches container to network, ignoring the specific
// "already exists in network" race.
func (a *Adapter) ConnectToNetwork(ctx context.Context, container, network string) error {
	res, _ := runner.Run(ctx, "docker", []string{"network", "connect", network, container}, runner.Options{IgnoreFailure: true})
	if res.Code != 0 && !strings.Contains(res.Stderr, "already exists in network") {
		return wserrors.CommandFailure("docker network connect", res.Code, res.Stdout, res.Stderr)
	}
	return nil
}

// Inspect is the subset of `docker inspect` output this adapter parses.
type Inspect struct {
	ID    string `json:"Id"`
	Name  string `json:"Name"`
	State struct {
		Status  string `json:"Status"`
		Running bool   `json:"Running"`
	} `json:"State"`
	Config struct {
		Image string `json:"Image"`
	} `json:"Config"`
}

// InspectContainer returns the parsed inspect structure, or nil if the
// container does not exist.
func (a *Adapter) InspectContainer(ctx context.Context, name string) (*Inspect, error) {
	res, err := runner.Run(ctx, "docker", []string{"inspect", name}, runner.Options{IgnoreFailure: true})
	if err != nil || res.Code != 0 {
		return nil, nil
	}
	var parsed []Inspect
	if err := json.Unmarshal([]byte(res.Stdout), &parsed); err != nil {
		return nil, wserrors.Internal(err, "could not parse docker inspect output for %s", name)
	}
	if len(parsed) == 0 {
		return nil, nil
	}
	return &parsed[0], nil
}

// ExecOptions configures ExecInContainer.
type ExecOptions struct {
	User string
}

// ExecInContainer runs argv inside container and captures its output.
func (a *Adapter) ExecInContainer(ctx context.Context, container string, argv []string, opts ExecOptions) (*runner.Result, error) {
	args := []string{"exec"}
	if opts.User != "" {
		args = append(args, "-u", opts.User)
	}
	args = append(args, container)
	args = append(args, argv...)
	return runner.Run(ctx, "docker", args, runner.Options{IgnoreFailure: true})
}

// ExecInContainerLogged runs argv inside container the same way as
// ExecInContainer, but streams combined output to logWriter (a rotating
// log file) instead of capturing it for the caller. Used for the
// in-container `init` run, whose output belongs in the per-workspace
// init log rather than discarded.
func (a *Adapter) ExecInContainerLogged(ctx context.Context, container string, argv []string, opts ExecOptions, logWriter io.Writer, logPath string) (*runner.Result, error) {
	args := []string{"exec"}
	if opts.User != "" {
		args = append(args, "-u", opts.User)
	}
	args = append(args, container)
	args = append(args, argv...)
	return runner.RunLogged(ctx, "docker", args, logWriter, logPath, runner.LoggedOptions{})
}

// Logs streams or fetches container logs.
func (a *Adapter) Logs(ctx context.Context, container string, tail int, follow bool, opts runner.StreamOptions) error {
	args := []string{"logs", "--tail", fmt.Sprintf("%d", tail)}
	if follow {
		args = append(args, "--follow")
	}
	args = append(args, container)
	return runner.Stream(ctx, "docker", args, opts)
}

// Info runs `docker info` and returns an error when the daemon cannot be
// reached; doctor uses it as its Docker availability check.
func (a *Adapter) Info(ctx context.Context) error {
	_, err := runner.Run(ctx, "docker", []string{"info"}, runner.Options{})
	return err
}
