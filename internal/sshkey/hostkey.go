package sshkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"

	wserrors "github.com/subroutinecom/workspace/internal/errors"
	"github.com/subroutinecom/workspace/internal/fsutil"
	gossh "golang.org/x/crypto/ssh"
)

// EnsureHostKey makes sure an ED25519 SSH host key pair exists at keyPath
// (private key) and keyPath+".pub" (public key), generating one with an
// empty passphrase if absent. It is idempotent: an existing, parseable
// private key is left untouched.
func EnsureHostKey(keyPath string) error {
	if fsutil.PathExists(keyPath) {
		if data, err := os.ReadFile(keyPath); err == nil {
			if _, err := gossh.ParsePrivateKey(data); err == nil {
				return nil
			}
		}
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return wserrors.Internal(err, "could not generate ssh host key")
	}

	block, err := gossh.MarshalPrivateKey(priv, "")
	if err != nil {
		return wserrors.Internal(err, "could not marshal ssh host key")
	}

	if err := fsutil.EnsureDir(filepath.Dir(keyPath)); err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(keyPath, pem.EncodeToMemory(block), 0o600); err != nil {
		return wserrors.Internal(err, "could not write ssh host key to %s", keyPath)
	}

	sshPub, err := gossh.NewPublicKey(pub)
	if err != nil {
		return wserrors.Internal(err, "could not derive ssh host public key")
	}
	authorizedLine := gossh.MarshalAuthorizedKey(sshPub)
	if err := fsutil.WriteFileAtomic(keyPath+".pub", authorizedLine, 0o644); err != nil {
		return wserrors.Internal(err, "could not write ssh host public key to %s.pub", keyPath)
	}

	return nil
}
