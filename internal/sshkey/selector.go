// Package sshkey implements the SSH Key Selector: choosing a private key
// per repository URL from explicit config, wildcard patterns, agent
// listing, or filesystem heuristic.
package sshkey

import (
	"net"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/subroutinecom/workspace/internal/config"
	"github.com/subroutinecom/workspace/internal/fsutil"
	"golang.org/x/crypto/ssh/agent"
)

// reservedSSHDirNames are excluded from the filesystem heuristic fallback.
var reservedSSHDirNames = map[string]bool{
	"config":          true,
	"known_hosts":     true,
	"authorized_keys": true,
}

// Select implements the key-selection algorithm. repoURL may be empty.
// The returned value is a full path suitable for logging; callers store
// only its basename in WorkspaceState.selectedKey.
func Select(repoURL string, user *config.UserConfig, hostHome string) string {
	if user != nil && len(user.SSH.Repos) > 0 {
		if path, ok := selectFromRepos(repoURL, user.SSH.Repos, hostHome); ok {
			return path
		}
	}
	return selectDefaultKey(user, hostHome)
}

// selectFromRepos checks for an exact-string match first, then iterates
// declared patterns in insertion order and matches the first whose
// *-wildcards convert to a regex accepting repoURL.
func selectFromRepos(repoURL string, repos []config.RepoPattern, hostHome string) (string, bool) {
	for _, r := range repos {
		if r.Pattern == repoURL {
			return resolveKeyPath(r.KeyPath, hostHome), true
		}
	}

	for _, r := range repos {
		re, err := wildcardToRegexp(r.Pattern)
		if err != nil {
			continue
		}
		if re.MatchString(repoURL) {
			return resolveKeyPath(r.KeyPath, hostHome), true
		}
	}
	return "", false
}

// wildcardToRegexp converts a pattern containing "*" wildcards into an
// anchored regexp, escaping all other regex metacharacters.
func wildcardToRegexp(pattern string) (*regexp.Regexp, error) {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.Compile("^" + strings.Join(parts, ".*") + "$")
}

func selectDefaultKey(user *config.UserConfig, hostHome string) string {
	if user != nil && user.SSH.DefaultKey != "" {
		path := resolveKeyPath(user.SSH.DefaultKey, hostHome)
		if fsutil.PathExists(path) {
			return path
		}
	}

	if path, ok := selectFromAgent(hostHome); ok {
		return path
	}

	sshDir := filepath.Join(hostHome, ".ssh")
	for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
		path := filepath.Join(sshDir, name)
		if fsutil.PathExists(path) {
			return path
		}
	}

	if path, ok := firstPrivateKeyInDir(sshDir); ok {
		return path
	}

	return ""
}

// selectFromAgent returns the first identity listed by the SSH agent, when
// SSH_AUTH_SOCK is a live socket and the corresponding private file exists
// on disk.
func selectFromAgent(hostHome string) (string, bool) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return "", false
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return "", false
	}
	defer conn.Close()

	client := agent.NewClient(conn)
	keys, err := client.List()
	if err != nil || len(keys) == 0 {
		return "", false
	}

	sshDir := filepath.Join(hostHome, ".ssh")
	entries, err := os.ReadDir(sshDir)
	if err != nil {
		return "", false
	}
	for _, k := range keys {
		comment := strings.TrimSpace(k.Comment)
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if strings.HasSuffix(comment, e.Name()) || e.Name() == filepath.Base(comment) {
				path := filepath.Join(sshDir, e.Name())
				if fsutil.PathExists(path) && !strings.HasSuffix(path, ".pub") {
					return path, true
				}
			}
		}
	}
	return "", false
}

// firstPrivateKeyInDir returns the first file in dir whose contents
// contain "PRIVATE KEY" and is not one of the reserved names or a *.pub
// file.
func firstPrivateKeyInDir(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if reservedSSHDirNames[name] || strings.HasSuffix(name, ".pub") {
			continue
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if strings.Contains(string(data), "PRIVATE KEY") {
			return path, true
		}
	}
	return "", false
}

// resolveKeyPath normalizes ~/ prefixes and resolves relative paths
// against hostHome. A configured key that does not exist on disk is the
// caller's responsibility to warn about; this function only normalizes.
func resolveKeyPath(path, hostHome string) string {
	path = fsutil.ExpandHome(path, hostHome)
	if !filepath.IsAbs(path) {
		path = filepath.Join(hostHome, path)
	}
	return path
}
