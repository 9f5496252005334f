package config

import (
	"context"
	"os"
	"path/filepath"

	wserrors "github.com/subroutinecom/workspace/internal/errors"
	"github.com/subroutinecom/workspace/internal/fsutil"
	"github.com/subroutinecom/workspace/internal/runner"
)

// ProjectConfigFileName is the per-project declarative config file.
const ProjectConfigFileName = ".workspace.yml"

// UserConfigDirName is the directory under the host home holding state,
// logs, the user scripts directory, and the user config file.
const UserConfigDirName = ".workspaces"

// UserConfigFileName is the user-wide config file name.
const UserConfigFileName = "config.yml"

// UserScriptsDirName is the directory referenced by bootstrap entries
// tagged "user".
const UserScriptsDirName = "userscripts"

const userConfigTemplate = `# workspace user configuration.
# Scripts referenced from bootstrap entries tagged "user" live in the
# userscripts/ directory alongside this file.
#
# ssh:
#   defaultKey: ~/.ssh/id_ed25519
#   repos:
#     "git@github.com:myorg/*": ~/.ssh/id_work
forwards: []
mounts: []
bootstrap:
  scripts: []
`

// DiscoverRepoRoot invokes git to find the repository root containing cwd,
// falling back to cwd itself when git fails (not a repo, git missing).
func DiscoverRepoRoot(ctx context.Context, cwd string) string {
	res, err := runner.Run(ctx, "git", []string{"rev-parse", "--show-toplevel"}, runner.Options{Dir: cwd, IgnoreFailure: true})
	if err != nil || res.Code != 0 {
		return cwd
	}
	root := trimNewline(res.Stdout)
	if root == "" {
		return cwd
	}
	return root
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// FindOptions configures FindWorkspaceDir.
type FindOptions struct {
	Path string
	Cwd  string
}

// FindWorkspaceDir walks up from options.Path (or cwd) looking for
// .workspace.yml, stopping at the repo root, the host home, or the
// filesystem root. Returns ConfigMissing when none is found.
func FindWorkspaceDir(ctx context.Context, opts FindOptions) (string, error) {
	start := opts.Path
	if start == "" {
		start = opts.Cwd
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", wserrors.Internal(err, "could not resolve path %q", start)
	}

	home, _ := os.UserHomeDir()
	repoRoot := DiscoverRepoRoot(ctx, abs)

	dir := abs
	for {
		candidate := filepath.Join(dir, ProjectConfigFileName)
		if fsutil.PathExists(candidate) {
			return dir, nil
		}
		if dir == repoRoot || dir == home || dir == filepath.Dir(dir) {
			break
		}
		dir = filepath.Dir(dir)
	}
	return "", wserrors.ConfigMissing("no %s found under %s", ProjectConfigFileName, abs).
		WithHint("run `workspace init` in your project directory to create one")
}

// EnsureUserConfig idempotently creates <hostHome>/.workspaces/{userscripts/,
// config.yml} with a starter template on first use.
func EnsureUserConfig(hostHome string) error {
	base := filepath.Join(hostHome, UserConfigDirName)
	if err := fsutil.EnsureDir(filepath.Join(base, UserScriptsDirName)); err != nil {
		return wserrors.Internal(err, "could not create user scripts directory")
	}
	cfgPath := filepath.Join(base, UserConfigFileName)
	if !fsutil.PathExists(cfgPath) {
		if err := fsutil.WriteFileAtomic(cfgPath, []byte(userConfigTemplate), 0o644); err != nil {
			return wserrors.Internal(err, "could not create user config template")
		}
	}
	return nil
}

// LoadProjectConfig reads and parses .workspace.yml from dir.
func LoadProjectConfig(dir string) (*ProjectConfig, error) {
	var cfg ProjectConfig
	path := filepath.Join(dir, ProjectConfigFileName)
	if err := fsutil.ReadYAML(path, &cfg); err != nil {
		return nil, wserrors.ConfigInvalid(err, "could not parse %s", path)
	}
	return &cfg, nil
}

// LoadUserConfig reads <hostHome>/.workspaces/config.yml, returning a zero
// value (not an error) if it does not yet exist.
func LoadUserConfig(hostHome string) (*UserConfig, error) {
	var cfg UserConfig
	path := filepath.Join(hostHome, UserConfigDirName, UserConfigFileName)
	if !fsutil.PathExists(path) {
		return &cfg, nil
	}
	if err := fsutil.ReadYAML(path, &cfg); err != nil {
		return nil, wserrors.ConfigInvalid(err, "could not parse %s", path)
	}
	return &cfg, nil
}

// ResolveOptions parameterizes Resolve.
type ResolveOptions struct {
	WorkspaceNameOverride string
}

// Resolve applies all normalization rules: forwards/mounts concatenate
// (project first, user second); bootstrap.scripts concatenate tagged;
// repo is shallow-merged user-over-project; mountAgentsCredentials from
// user overrides project. raw == nil fails with ConfigInvalid.
func Resolve(raw *ProjectConfig, user *UserConfig, dir string, hostHome string, opts ResolveOptions) (*ResolvedWorkspaceConfig, error) {
	if err := validateNonNil(raw); err != nil {
		return nil, wserrors.ConfigInvalid(err, "project configuration is invalid")
	}
	if user == nil {
		user = &UserConfig{}
	}

	name := opts.WorkspaceNameOverride
	if name == "" {
		name = filepath.Base(dir)
	}

	forwards := normalizeForwards(append(append([]ForwardRaw{}, raw.Forwards...), user.Forwards...))
	mountAgentsCreds := mergeBool(raw.MountAgentsCredentials, user.MountAgentsCredentials)
	mounts := normalizeMounts(append(append([]string{}, raw.Mounts...), user.Mounts...), dir, hostHome, mountAgentsCreds)
	bootstrap := mergeBootstrapScripts(raw.Bootstrap.Scripts, user.Bootstrap.Scripts)
	repo := mergeRepo(raw.Repo, user.Repo)

	containerName := "workspace-" + name
	stateRoot := filepath.Join(hostHome, UserConfigDirName, "state", name)

	return &ResolvedWorkspaceConfig{
		Name:          name,
		ContainerName: containerName,
		ImageTag:      "workspace:latest",
		Repo:          repo,
		Forwards:      forwards,
		Mounts:        mounts,
		Bootstrap:     bootstrap,
		State: StatePaths{
			Root:              stateRoot,
			SSHDir:            filepath.Join(stateRoot, "ssh"),
			KeyPath:           filepath.Join(stateRoot, "ssh", "id_ed25519"),
			RuntimeConfigPath: filepath.Join(stateRoot, "runtime.json"),
		},
		BuildContext: BuildContextDir(),
		ConfigDir:    dir,
	}, nil
}

// BuildContextDir returns the path to the workspace image's build context,
// packaged alongside the tool.
func BuildContextDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "build"
	}
	return filepath.Join(filepath.Dir(exe), "build")
}
