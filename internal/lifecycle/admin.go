package lifecycle

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/subroutinecom/workspace/internal/config"
	"github.com/subroutinecom/workspace/internal/docker"
	wserrors "github.com/subroutinecom/workspace/internal/errors"
	"github.com/subroutinecom/workspace/internal/fsutil"
	"github.com/subroutinecom/workspace/internal/ui"
)

const projectConfigTemplate = `# workspace project configuration.
repo:
  remote: ""
  branch: main
forwards: []
mounts: []
bootstrap:
  scripts: []
`

// Init writes a starter .workspace.yml in dir, refusing to overwrite an
// existing one unless force is set.
func (c *Controller) Init(dir string, force bool) error {
	path := filepath.Join(dir, config.ProjectConfigFileName)
	if fsutil.PathExists(path) && !force {
		return wserrors.ConfigInvalid(nil, "%s already exists", path).
			WithHint("pass --force to overwrite it")
	}
	if err := fsutil.WriteFileAtomic(path, []byte(projectConfigTemplate), 0o644); err != nil {
		return wserrors.Internal(err, "could not write %s", path)
	}
	ui.Success("wrote %s", path)
	return nil
}

// Build (re)builds the shared workspace image.
func (c *Controller) Build(ctx context.Context, noCache bool) error {
	ui.Info("building shared image %s", SharedImageTag)
	if err := c.Docker.BuildImage(ctx, SharedImageTag, config.BuildContextDir(), docker.BuildOptions{NoCache: noCache}); err != nil {
		return err
	}
	if err := c.State.RecordSharedImageBuild(time.Now()); err != nil {
		return err
	}
	ui.Success("built %s", SharedImageTag)
	return nil
}

// ListEntry is one row of List's output: a workspace known to the state
// file, a discoverable .workspace.yml, or both.
type ListEntry struct {
	Name      string
	ConfigDir string
	SSHPort   int
	HasState  bool
}

// List returns every workspace the state file knows about, plus any
// .workspace.yml discoverable under root that the state file does not yet
// have a record for.
func (c *Controller) List(ctx context.Context, root string) ([]ListEntry, error) {
	names, err := c.State.ListWorkspaceNames()
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var entries []ListEntry
	for _, name := range names {
		rec, ok, err := c.State.GetWorkspaceState(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		entries = append(entries, ListEntry{Name: name, ConfigDir: rec.ConfigDir, SSHPort: rec.SSHPort, HasState: true})
		seen[rec.ConfigDir] = true
	}

	if root != "" {
		discovered, err := discoverProjectConfigs(root)
		if err != nil {
			return nil, err
		}
		for _, dir := range discovered {
			if seen[dir] {
				continue
			}
			entries = append(entries, ListEntry{Name: filepath.Base(dir), ConfigDir: dir})
		}
	}

	return entries, nil
}

// discoverProjectConfigs walks root for directories containing a
// .workspace.yml, skipping .git and any node_modules-style vendor tree.
func discoverProjectConfigs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", "node_modules", "vendor":
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == config.ProjectConfigFileName {
			dirs = append(dirs, filepath.Dir(path))
		}
		return nil
	})
	return dirs, err
}

// Config resolves a workspace's configuration and returns it as pretty
// JSON, for `workspace config`.
func (c *Controller) Config(ctx context.Context, name, path string) (string, error) {
	resolved, err := c.resolve(ctx, path, name)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(resolved, "", "  ")
	if err != nil {
		return "", wserrors.Internal(err, "could not render resolved configuration")
	}
	return string(data), nil
}

// Info reports status plus the resolved mounts, forwards, and bootstrap
// scripts that will apply on next start.
type Info struct {
	Status   *StatusInfo
	Resolved *config.ResolvedWorkspaceConfig
}

// Info combines Status with the freshly resolved configuration.
func (c *Controller) Info(ctx context.Context, name, path string) (*Info, error) {
	resolved, err := c.resolve(ctx, path, name)
	if err != nil {
		return nil, err
	}
	status, err := c.Status(ctx, resolved.Name, path)
	if err != nil {
		return nil, err
	}
	return &Info{Status: status, Resolved: resolved}, nil
}

// DoctorCheck is the result of a single environment prerequisite check.
type DoctorCheck struct {
	Name   string
	OK     bool
	Detail string
}

// Doctor runs a fixed battery of environment checks and reports pass/fail
// for each, so `workspace doctor` can tell the user exactly what is
// missing before they try to start a workspace.
func (c *Controller) Doctor(ctx context.Context) []DoctorCheck {
	checks := []DoctorCheck{
		checkCommand("docker", "docker CLI"),
		checkCommand("ssh", "ssh client"),
		checkCommand("ssh-keygen", "ssh-keygen"),
		checkCommand("ssh-keyscan", "ssh-keyscan"),
		checkCommand("git", "git"),
		checkCommand("ss", "ss (iproute2)"),
		checkDockerDaemon(ctx, c.Docker),
		checkBuildx(ctx),
		checkStateDirWritable(c.HostHome),
	}
	return checks
}

func checkCommand(name, label string) DoctorCheck {
	if _, err := exec.LookPath(name); err != nil {
		return DoctorCheck{Name: label, OK: false, Detail: "not found on PATH"}
	}
	return DoctorCheck{Name: label, OK: true}
}

func checkDockerDaemon(ctx context.Context, d *docker.Adapter) DoctorCheck {
	if err := d.Info(ctx); err != nil {
		return DoctorCheck{Name: "docker daemon", OK: false, Detail: "not reachable"}
	}
	return DoctorCheck{Name: "docker daemon", OK: true}
}

func checkBuildx(ctx context.Context) DoctorCheck {
	if err := exec.CommandContext(ctx, "docker", "buildx", "version").Run(); err != nil {
		return DoctorCheck{Name: "docker buildx", OK: false, Detail: "plugin not installed"}
	}
	return DoctorCheck{Name: "docker buildx", OK: true}
}

func checkStateDirWritable(hostHome string) DoctorCheck {
	dir := filepath.Join(hostHome, config.UserConfigDirName, "state")
	if err := fsutil.EnsureDir(dir); err != nil {
		return DoctorCheck{Name: "state directory", OK: false, Detail: err.Error()}
	}
	probe := filepath.Join(dir, ".doctor-write-check")
	if err := fsutil.WriteFileAtomic(probe, []byte("ok"), 0o644); err != nil {
		return DoctorCheck{Name: "state directory", OK: false, Detail: "not writable"}
	}
	_ = os.Remove(probe)
	return DoctorCheck{Name: "state directory", OK: true}
}
