package agent

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/subroutinecom/workspace/internal/fsutil"
	"github.com/subroutinecom/workspace/internal/logging"
	"github.com/subroutinecom/workspace/internal/runner"
)

// workspaceHome is a var, not a const, so tests can point it at a temp
// directory instead of writing into the real container filesystem.
var workspaceHome = "/home/workspace"

// InstallSSHKeys creates <workspaceHome>/.ssh, copies in whatever the host
// user has under ~/.ssh, appends the assigned public key to
// authorized_keys, and writes a client config block pinning the selected
// key when one was chosen on the host.
func InstallSSHKeys(ctx context.Context) error {
	sshDir := filepath.Join(workspaceHome, ".ssh")
	if err := os.MkdirAll(sshDir, 0o700); err != nil {
		return err
	}

	hostSSH := "/host/home/.ssh"
	if fsutil.PathExists(hostSSH) {
		copyHostSSHEntries(ctx, hostSSH, sshDir)
	}

	if err := appendAuthorizedKey(sshDir); err != nil {
		return err
	}

	if selected := os.Getenv("WORKSPACE_SELECTED_SSH_KEY"); selected != "" {
		if fsutil.PathExists(filepath.Join(sshDir, selected)) {
			if err := appendClientConfigBlock(sshDir, selected); err != nil {
				return err
			}
		}
	}

	fixSSHDirModes(sshDir)

	if _, err := runner.Run(ctx, "chown", []string{"-R", "workspace:workspace", sshDir}, runner.Options{IgnoreFailure: true}); err != nil {
		return err
	}
	return nil
}

// copyHostSSHEntries copies every file directly under src into dst;
// subdirectories are skipped.
// Individual copy failures are logged and skipped, matching the step's
// non-fatal contract.
func copyHostSSHEntries(ctx context.Context, src, dst string) {
	entries, err := os.ReadDir(src)
	if err != nil {
		logging.Warn("could not read host ssh directory", "error", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(src, e.Name()))
		if err != nil {
			logging.Warn("could not read host ssh entry", "name", e.Name(), "error", err)
			continue
		}
		if err := os.WriteFile(filepath.Join(dst, e.Name()), data, 0o600); err != nil {
			logging.Warn("could not write ssh entry", "name", e.Name(), "error", err)
		}
	}
}

func appendAuthorizedKey(sshDir string) error {
	path := filepath.Join(sshDir, "authorized_keys")
	lines := readLines(path)

	pubKey := strings.TrimSpace(os.Getenv("SSH_PUBLIC_KEY"))
	if pubKey != "" && !containsLine(lines, pubKey) {
		lines = append(lines, pubKey)
	}

	sort.Strings(lines)
	lines = dedupe(lines)
	return fsutil.WriteFileAtomic(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600)
}

func appendClientConfigBlock(sshDir, keyName string) error {
	path := filepath.Join(sshDir, "config")
	existing := ""
	if data, err := os.ReadFile(path); err == nil {
		existing = string(data)
	}
	block := "Host *\n" +
		"  IdentityFile ~/.ssh/" + keyName + "\n" +
		"  IdentitiesOnly yes\n" +
		"  AddKeysToAgent yes\n"
	if strings.Contains(existing, "IdentityFile ~/.ssh/"+keyName) {
		return nil
	}
	return fsutil.WriteFileAtomic(path, []byte(existing+block), 0o644)
}

// fixSSHDirModes sets private keys and authorized_keys to 600, and public
// keys / known_hosts / config to 644.
func fixSSHDirModes(sshDir string) {
	entries, err := os.ReadDir(sshDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		path := filepath.Join(sshDir, name)
		switch {
		case name == "authorized_keys":
			os.Chmod(path, 0o600)
		case strings.HasSuffix(name, ".pub"), name == "known_hosts", name == "config":
			os.Chmod(path, 0o644)
		default:
			os.Chmod(path, 0o600)
		}
	}
}

func readLines(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var lines []string
	for _, l := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func containsLine(lines []string, target string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) == target {
			return true
		}
	}
	return false
}

func dedupe(sorted []string) []string {
	out := sorted[:0:0]
	var prev string
	for i, l := range sorted {
		if i > 0 && l == prev {
			continue
		}
		out = append(out, l)
		prev = l
	}
	return out
}
