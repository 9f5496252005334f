// Package buildkit manages the shared, host-singleton buildkitd
// infrastructure used to accelerate per-workspace image builds: one
// network, one cache volume, one privileged buildkitd container, reused by
// every workspace's buildx builder.
package buildkit

import (
	"context"
	"strconv"
	"time"

	"github.com/subroutinecom/workspace/internal/docker"
	wserrors "github.com/subroutinecom/workspace/internal/errors"
	"github.com/subroutinecom/workspace/internal/runner"
)

const (
	NetworkName   = "workspace-internal-buildnet"
	VolumeName    = "workspace-internal-buildkit-cache"
	ContainerName = "workspace-internal-buildkitd"
	Port          = 1234
	BuilderName   = "workspace-internal-builder"

	startupGrace = 2 * time.Second
)

// Manager ensures the shared BuildKit infrastructure exists and configures
// per-workspace buildx builders against it.
type Manager struct {
	docker *docker.Adapter
	sleep  func(time.Duration)
}

func New(d *docker.Adapter) *Manager {
	return &Manager{docker: d, sleep: time.Sleep}
}

// EnsureSharedBuildKit guarantees the shared network, cache volume, and a
// running buildkitd container listening on loopback Port. Calling it twice
// in a row leaves exactly one of each.
func (m *Manager) EnsureSharedBuildKit(ctx context.Context) error {
	created := false

	if !m.docker.NetworkExists(ctx, NetworkName) {
		if _, err := runner.Run(ctx, "docker", []string{"network", "create", NetworkName}, runner.Options{}); err != nil {
			return wserrors.DockerUnavailable(err, "could not create buildkit network %s", NetworkName)
		}
	}

	if !m.docker.VolumeExists(ctx, VolumeName) {
		if _, err := runner.Run(ctx, "docker", []string{"volume", "create", VolumeName}, runner.Options{}); err != nil {
			return wserrors.DockerUnavailable(err, "could not create buildkit cache volume %s", VolumeName)
		}
	}

	if !m.docker.ContainerExists(ctx, ContainerName) {
		args := []string{
			"run", "--detach", "--privileged",
			"--name", ContainerName,
			"--network", NetworkName,
			"-p", "127.0.0.1:" + strconv.Itoa(Port) + ":1234",
			"-v", VolumeName + ":/var/lib/buildkit",
			"moby/buildkit:latest",
			"--addr", "tcp://0.0.0.0:1234",
		}
		if _, err := m.docker.CreateContainer(ctx, args); err != nil {
			return wserrors.DockerUnavailable(err, "could not start shared buildkitd container")
		}
		created = true
	} else if !m.isRunning(ctx) {
		if err := m.docker.StartContainer(ctx, ContainerName); err != nil {
			return wserrors.DockerUnavailable(err, "could not start existing buildkitd container")
		}
		created = true
	}

	if created {
		m.sleep(startupGrace)
	}

	return nil
}

func (m *Manager) isRunning(ctx context.Context) bool {
	inspect, err := m.docker.InspectContainer(ctx, ContainerName)
	return err == nil && inspect != nil && inspect.State.Running
}

// ConfigureBuildxInContainer removes any prior workspace-internal-builder
// inside container (as user workspace) and recreates it bound to the
// shared buildkitd over the BuildKit network, then bootstraps it.
func (m *Manager) ConfigureBuildxInContainer(ctx context.Context, container string) error {
	_, _ = m.docker.ExecInContainer(ctx, container, []string{"docker", "buildx", "rm", BuilderName}, docker.ExecOptions{User: "workspace"})

	createArgs := []string{
		"docker", "buildx", "create",
		"--name", BuilderName,
		"--driver", "remote",
		"tcp://" + ContainerName + ":1234",
		"--use",
	}
	if res, err := m.docker.ExecInContainer(ctx, container, createArgs, docker.ExecOptions{User: "workspace"}); err != nil {
		return wserrors.DockerUnavailable(err, "could not create buildx builder in %s", container)
	} else if res.Code != 0 {
		return wserrors.CommandFailure("docker buildx create", res.Code, res.Stdout, res.Stderr)
	}

	res, err := m.docker.ExecInContainer(ctx, container, []string{"docker", "buildx", "inspect", "--bootstrap"}, docker.ExecOptions{User: "workspace"})
	if err != nil {
		return wserrors.DockerUnavailable(err, "could not bootstrap buildx builder in %s", container)
	}
	if res.Code != 0 {
		return wserrors.CommandFailure("docker buildx inspect --bootstrap", res.Code, res.Stdout, res.Stderr)
	}
	return nil
}

// Status reports presence of the network, volume, and buildkitd container.
type Status struct {
	NetworkExists   bool
	VolumeExists    bool
	ContainerExists bool
	ContainerState  string
}

func (m *Manager) Status(ctx context.Context) Status {
	st := Status{
		NetworkExists:   m.docker.NetworkExists(ctx, NetworkName),
		VolumeExists:    m.docker.VolumeExists(ctx, VolumeName),
		ContainerExists: m.docker.ContainerExists(ctx, ContainerName),
	}
	if inspect, err := m.docker.InspectContainer(ctx, ContainerName); err == nil && inspect != nil {
		st.ContainerState = inspect.State.Status
	}
	return st
}

// Stop stops the buildkitd container without removing it.
func (m *Manager) Stop(ctx context.Context) error {
	return m.docker.StopContainer(ctx, ContainerName, docker.StopOptions{})
}

// Restart stops then re-ensures the shared buildkitd container.
func (m *Manager) Restart(ctx context.Context) error {
	if err := m.Stop(ctx); err != nil {
		return err
	}
	if err := m.docker.RemoveContainer(ctx, ContainerName, true); err != nil {
		return err
	}
	return m.EnsureSharedBuildKit(ctx)
}

// Clean removes the buildkitd container, network, and volume entirely.
func (m *Manager) Clean(ctx context.Context) error {
	if err := m.docker.RemoveContainer(ctx, ContainerName, true); err != nil {
		return err
	}
	if _, err := runner.Run(ctx, "docker", []string{"network", "rm", NetworkName}, runner.Options{IgnoreFailure: true}); err != nil {
		return err
	}
	return m.docker.RemoveVolume(ctx, VolumeName)
}
