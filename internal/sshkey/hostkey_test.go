package sshkey

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"
)

func TestEnsureHostKeyGeneratesKeyPair(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "ssh_host_ed25519_key")
	require.NoError(t, EnsureHostKey(keyPath))

	data, err := os.ReadFile(keyPath)
	require.NoError(t, err)
	signer, err := gossh.ParsePrivateKey(data)
	require.NoError(t, err)
	assert.Equal(t, "ssh-ed25519", signer.PublicKey().Type())

	pubData, err := os.ReadFile(keyPath + ".pub")
	require.NoError(t, err)
	assert.Contains(t, string(pubData), "ssh-ed25519")

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestEnsureHostKeyIsIdempotent(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "ssh_host_ed25519_key")
	require.NoError(t, EnsureHostKey(keyPath))
	first, err := os.ReadFile(keyPath)
	require.NoError(t, err)

	require.NoError(t, EnsureHostKey(keyPath))
	second, err := os.ReadFile(keyPath)
	require.NoError(t, err)

	assert.Equal(t, first, second, "an existing valid key must not be regenerated")
}
