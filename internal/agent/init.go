package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/subroutinecom/workspace/internal/config"
	wserrors "github.com/subroutinecom/workspace/internal/errors"
	"github.com/subroutinecom/workspace/internal/fsutil"
	"github.com/subroutinecom/workspace/internal/logging"
	"github.com/subroutinecom/workspace/internal/runner"
)

const (
	markerFileName     = ".workspace-initialized"
	lazyvimStarterRepo = "https://github.com/LazyVim/starter"
	sshAgentSocketPath = "/ssh-agent"
	runtimeConfigPath  = "/workspace/config/runtime.json"
)

func markerPath() string {
	return filepath.Join(workspaceHome, markerFileName)
}

// RunInit performs the one-shot (but safely re-run) workspace
// initialization the host triggers with `workspace-internal init` right
// after a container starts: clone the project repository, install
// LazyVim, install dev tools, and run bootstrap scripts. Everything here
// except bootstrap-script execution is idempotent on its own; the clone
// and bootstrap steps are additionally gated behind the completion
// marker so they run exactly once per workspace.
func RunInit(ctx context.Context) error {
	if fsutil.PathExists(sshAgentSocketPath) {
		os.Setenv("SSH_AUTH_SOCK", sshAgentSocketPath)
	}

	copyHostGitconfig(ctx)

	rf, err := loadRuntimeFile()
	if err != nil {
		return err
	}

	firstRun := !fsutil.PathExists(markerPath())

	if firstRun && rf.Workspace.Repo.Remote != "" {
		if err := cloneRepository(ctx, rf); err != nil {
			return err
		}
	}

	if err := appendShellExports(); err != nil {
		logging.Warn("could not update shell rc files", "error", err)
	}

	installLazyVim(ctx)
	installDevTools(ctx)

	if firstRun {
		if err := runBootstrapScripts(ctx, rf); err != nil {
			return err
		}
	}

	if err := fsutil.WriteFileAtomic(markerPath(), []byte(""), 0o644); err != nil {
		return wserrors.Internal(err, "could not write initialization marker")
	}
	return nil
}

func loadRuntimeFile() (*config.RuntimeFile, error) {
	path := os.Getenv("WORKSPACE_RUNTIME_CONFIG")
	if path == "" {
		path = runtimeConfigPath
	}
	var rf config.RuntimeFile
	if err := fsutil.ReadJSON(path, &rf, nil); err != nil {
		return nil, wserrors.ConfigMissing("could not read runtime config at %s: %s", path, err.Error())
	}
	return &rf, nil
}

func copyHostGitconfig(ctx context.Context) {
	src := "/host/home/.gitconfig"
	if !fsutil.PathExists(src) {
		return
	}
	data, err := os.ReadFile(src)
	if err != nil {
		logging.Warn("could not read host gitconfig", "error", err)
		return
	}
	dst := filepath.Join(workspaceHome, ".gitconfig")
	if err := fsutil.WriteFileAtomic(dst, data, 0o644); err != nil {
		logging.Warn("could not write gitconfig", "error", err)
		return
	}
	runner.Run(ctx, "chown", []string{"workspace:workspace", dst}, runner.Options{IgnoreFailure: true})
}

// cloneRepository clones workspace.repo.remote into /workspace/source,
// preferring the selected SSH key for the transport and retrying without
// --branch if the first attempt fails.
func cloneRepository(ctx context.Context, rf *config.RuntimeFile) error {
	remote := rf.Workspace.Repo.Remote
	branch := rf.Workspace.Repo.Branch
	target := "/workspace/source"

	sshCommand := gitSSHCommand(rf)
	env := map[string]string{}
	if sshCommand != "" {
		env["GIT_SSH_COMMAND"] = sshCommand
	}

	addKnownHost(ctx, remote)

	hasBranchFlag := false
	for _, a := range rf.Workspace.Repo.CloneArgs {
		if a == "--branch" || a == "-b" || strings.HasPrefix(a, "--branch=") {
			hasBranchFlag = true
			break
		}
	}

	args := append([]string{"clone"}, rf.Workspace.Repo.CloneArgs...)
	if !hasBranchFlag && branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, remote, target)

	res, err := runner.Run(ctx, "git", args, runner.Options{Env: env, IgnoreFailure: true})
	if err != nil {
		return wserrors.CloneFailure(err, "could not run git clone")
	}
	if res.Code != 0 && !hasBranchFlag && branch != "" {
		logging.Warn("clone with branch flag failed, retrying without it", "stderr", res.Stderr)
		args = append([]string{"clone"}, rf.Workspace.Repo.CloneArgs...)
		args = append(args, remote, target)
		res, err = runner.Run(ctx, "git", args, runner.Options{Env: env, IgnoreFailure: true})
		if err != nil {
			return wserrors.CloneFailure(err, "could not run git clone")
		}
	}
	if res.Code != 0 {
		return wserrors.CloneFailure(nil, "git clone failed: %s", res.Stderr)
	}

	if sshCommand != "" && fsutil.PathExists(filepath.Join(target, ".git")) {
		runner.Run(ctx, "git", []string{"-C", target, "config", "core.sshCommand", sshCommand}, runner.Options{IgnoreFailure: true})
	}
	return nil
}

func gitSSHCommand(rf *config.RuntimeFile) string {
	if rf.SSH.SelectedKey == nil || *rf.SSH.SelectedKey == "" {
		return ""
	}
	keyPath := filepath.Join(workspaceHome, ".ssh", *rf.SSH.SelectedKey)
	if !fsutil.PathExists(keyPath) {
		return ""
	}
	return "ssh -i " + keyPath + " -F " + filepath.Join(workspaceHome, ".ssh", "config")
}

// addKnownHost seeds known_hosts with the remote's host key via
// ssh-keyscan when it isn't already recorded, so the clone doesn't stall
// on an interactive host-key prompt.
func addKnownHost(ctx context.Context, remote string) {
	host := sshHostFromRemote(remote)
	if host == "" {
		return
	}
	knownHosts := filepath.Join(workspaceHome, ".ssh", "known_hosts")
	if data, err := os.ReadFile(knownHosts); err == nil && strings.Contains(string(data), host) {
		return
	}
	res, err := runner.Run(ctx, "ssh-keyscan", []string{host}, runner.Options{IgnoreFailure: true})
	if err != nil || res.Code != 0 || strings.TrimSpace(res.Stdout) == "" {
		logging.Warn("ssh-keyscan failed", "host", host)
		return
	}
	f, err := os.OpenFile(knownHosts, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	f.WriteString(res.Stdout)
}

// sshHostFromRemote extracts the host from an scp-style (git@host:path) or
// ssh:// remote URL; returns "" for https remotes, which need no keyscan.
func sshHostFromRemote(remote string) string {
	if strings.HasPrefix(remote, "ssh://") {
		rest := strings.TrimPrefix(remote, "ssh://")
		if i := strings.Index(rest, "@"); i >= 0 {
			rest = rest[i+1:]
		}
		if i := strings.IndexAny(rest, "/:"); i >= 0 {
			rest = rest[:i]
		}
		return rest
	}
	if i := strings.Index(remote, "@"); i >= 0 {
		rest := remote[i+1:]
		if j := strings.Index(rest, ":"); j >= 0 {
			return rest[:j]
		}
	}
	return ""
}

// appendShellExports idempotently appends the git-ssh and npm-global PATH
// exports to the workspace user's shell rc files.
func appendShellExports() error {
	block := "\n" +
		`export GIT_SSH_COMMAND="ssh -F ~/.ssh/config"` + "\n" +
		`export PATH="$HOME/.npm-global/bin:$PATH"` + "\n"
	for _, rc := range []string{".bashrc", ".zshrc"} {
		path := filepath.Join(workspaceHome, rc)
		existing := ""
		if data, err := os.ReadFile(path); err == nil {
			existing = string(data)
		}
		if strings.Contains(existing, "GIT_SSH_COMMAND") && strings.Contains(existing, ".npm-global/bin") {
			continue
		}
		if err := fsutil.WriteFileAtomic(path, []byte(existing+block), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// installLazyVim ensures ~/.config/nvim has a LazyVim-based config,
// preferring a copy of the host's own nvim config when present.
func installLazyVim(ctx context.Context) {
	nvimDir := filepath.Join(workspaceHome, ".config", "nvim")
	if fsutil.PathExists(filepath.Join(nvimDir, "init.lua")) || fsutil.PathExists(filepath.Join(nvimDir, "init.vim")) {
		return
	}

	hostNvim := "/host/home/.config/nvim"
	if fsutil.PathExists(hostNvim) {
		res, err := runner.Run(ctx, "sudo", []string{"cp", "-r", hostNvim, nvimDir}, runner.Options{IgnoreFailure: true})
		if err == nil && res.Code == 0 {
			runner.Run(ctx, "chown", []string{"-R", "workspace:workspace", nvimDir}, runner.Options{IgnoreFailure: true})
			return
		}
		logging.Warn("could not copy host nvim config, falling back to LazyVim starter")
	}

	if err := fsutil.EnsureDir(filepath.Dir(nvimDir)); err != nil {
		logging.Warn("could not create .config directory", "error", err)
		return
	}
	res, err := runner.Run(ctx, "git", []string{"clone", lazyvimStarterRepo, nvimDir}, runner.Options{IgnoreFailure: true})
	if err != nil || res.Code != 0 {
		logging.Warn("could not clone LazyVim starter", "error", err)
		return
	}
	os.RemoveAll(filepath.Join(nvimDir, ".git"))
	runner.Run(ctx, "chown", []string{"-R", "workspace:workspace", nvimDir}, runner.Options{IgnoreFailure: true})
}

// installDevTools installs codex and opencode once each, gated on
// whether their binaries are already reachable.
func installDevTools(ctx context.Context) {
	if res, err := runner.Run(ctx, "which", []string{"codex"}, runner.Options{IgnoreFailure: true}); err != nil || res.Code != 0 {
		npmPrefix := filepath.Join(workspaceHome, ".npm-global")
		if res, err := runner.Run(ctx, "npm", []string{"install", "-g", "--prefix", npmPrefix, "@openai/codex"}, runner.Options{IgnoreFailure: true}); err != nil || res.Code != 0 {
			logging.Warn("could not install codex")
		}
	}

	if res, err := runner.Run(ctx, "which", []string{"opencode"}, runner.Options{IgnoreFailure: true}); err != nil || res.Code != 0 {
		installOpencode(ctx)
	}
}

func installOpencode(ctx context.Context) {
	arch := "x64"
	res, err := runner.Run(ctx, "uname", []string{"-m"}, runner.Options{IgnoreFailure: true})
	if err == nil && res != nil && res.Code == 0 {
		switch strings.TrimSpace(res.Stdout) {
		case "aarch64", "arm64":
			arch = "arm64"
		default:
			arch = "x64"
		}
	}
	url := "https://github.com/sst/opencode/releases/latest/download/opencode-linux-" + arch + ".zip"
	zipPath := "/tmp/opencode.zip"
	if res, err := runner.Run(ctx, "curl", []string{"-fsSL", "-o", zipPath, url}, runner.Options{IgnoreFailure: true}); err != nil || res.Code != 0 {
		logging.Warn("could not download opencode")
		return
	}
	binDir := filepath.Join(workspaceHome, ".npm-global", "bin")
	fsutil.EnsureDir(binDir)
	if res, err := runner.Run(ctx, "unzip", []string{"-o", zipPath, "-d", binDir}, runner.Options{IgnoreFailure: true}); err != nil || res.Code != 0 {
		logging.Warn("could not unpack opencode")
		return
	}
	os.Chmod(filepath.Join(binDir, "opencode"), 0o755)
	os.Remove(zipPath)
}

// runBootstrapScripts executes every configured bootstrap script in
// order, aborting on the first missing/non-executable script or the
// first non-zero exit.
func runBootstrapScripts(ctx context.Context, rf *config.RuntimeFile) error {
	for _, s := range rf.Bootstrap.Scripts {
		base := "/workspace/source"
		if s.Source == "user" {
			base = "/workspace/userconfig"
		}
		path := filepath.Join(base, s.Path)

		info, err := os.Stat(path)
		if err != nil {
			return wserrors.BootstrapFailure(err, "bootstrap script %q not found; place it under %s", s.Path, base)
		}

		var scripts []string
		if info.IsDir() {
			scripts, err = fsutil.ListExecutableFiles(path)
			if err != nil {
				return wserrors.BootstrapFailure(err, "could not list bootstrap directory %q", s.Path)
			}
		} else {
			if !fsutil.IsExecutable(path) {
				return wserrors.BootstrapFailure(nil, "bootstrap script %q is not executable; chmod +x it under %s", s.Path, base)
			}
			scripts = []string{path}
		}

		for _, script := range scripts {
			logging.Info("running bootstrap script", "path", script)
			res, err := runner.Run(ctx, script, nil, runner.Options{Dir: workspaceHome, IgnoreFailure: true})
			if err != nil {
				return wserrors.BootstrapFailure(err, "could not run bootstrap script %q", script)
			}
			if res.Code != 0 {
				return wserrors.BootstrapFailure(nil, "bootstrap script %q exited %d: %s", script, res.Code, res.Stderr)
			}
		}
	}
	return nil
}
