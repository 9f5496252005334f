package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAuthorizedKeyDedupesAndSorts(t *testing.T) {
	sshDir := t.TempDir()
	existing := "ssh-ed25519 bbb\nssh-ed25519 aaa\nssh-ed25519 aaa\n"
	require.NoError(t, os.WriteFile(filepath.Join(sshDir, "authorized_keys"), []byte(existing), 0o600))

	t.Setenv("SSH_PUBLIC_KEY", "ssh-ed25519 ccc")
	require.NoError(t, appendAuthorizedKey(sshDir))

	data, err := os.ReadFile(filepath.Join(sshDir, "authorized_keys"))
	require.NoError(t, err)
	assert.Equal(t, "ssh-ed25519 aaa\nssh-ed25519 bbb\nssh-ed25519 ccc\n", string(data))
}

func TestAppendAuthorizedKeySkipsDuplicatePublicKey(t *testing.T) {
	sshDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(sshDir, "authorized_keys"), []byte("ssh-ed25519 ccc\n"), 0o600))

	t.Setenv("SSH_PUBLIC_KEY", "ssh-ed25519 ccc")
	require.NoError(t, appendAuthorizedKey(sshDir))

	data, err := os.ReadFile(filepath.Join(sshDir, "authorized_keys"))
	require.NoError(t, err)
	assert.Equal(t, "ssh-ed25519 ccc\n", string(data))
}

func TestAppendClientConfigBlockWritesIdentityFile(t *testing.T) {
	sshDir := t.TempDir()
	require.NoError(t, appendClientConfigBlock(sshDir, "id_work"))

	data, err := os.ReadFile(filepath.Join(sshDir, "config"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "IdentityFile ~/.ssh/id_work")
	assert.Contains(t, string(data), "IdentitiesOnly yes")
}

func TestAppendClientConfigBlockIsIdempotent(t *testing.T) {
	sshDir := t.TempDir()
	require.NoError(t, appendClientConfigBlock(sshDir, "id_work"))
	require.NoError(t, appendClientConfigBlock(sshDir, "id_work"))

	data, err := os.ReadFile(filepath.Join(sshDir, "config"))
	require.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(string(data), "IdentityFile ~/.ssh/id_work"))
}

func TestFixSSHDirModes(t *testing.T) {
	sshDir := t.TempDir()
	files := map[string]string{
		"id_ed25519":      "priv",
		"id_ed25519.pub":  "pub",
		"authorized_keys": "keys",
		"known_hosts":     "hosts",
		"config":          "cfg",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(sshDir, name), []byte(content), 0o644))
	}
	fixSSHDirModes(sshDir)

	assertMode(t, filepath.Join(sshDir, "id_ed25519"), 0o600)
	assertMode(t, filepath.Join(sshDir, "id_ed25519.pub"), 0o644)
	assertMode(t, filepath.Join(sshDir, "authorized_keys"), 0o600)
	assertMode(t, filepath.Join(sshDir, "known_hosts"), 0o644)
	assertMode(t, filepath.Join(sshDir, "config"), 0o644)
}

func assertMode(t *testing.T, path string, want os.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, want, info.Mode().Perm())
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}
