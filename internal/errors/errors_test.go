package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	e := ConfigMissing("no .workspace.yml found under %s", "/home/user/proj")
	assert.Equal(t, "no .workspace.yml found under /home/user/proj", e.Error())

	wrapped := DockerUnavailable(errors.New("exec: \"docker\": executable file not found in $PATH"), "docker is not reachable")
	assert.Contains(t, wrapped.Error(), "docker is not reachable")
	assert.Contains(t, wrapped.Error(), "executable file not found")
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := Internal(cause, "unexpected state")
	assert.Same(t, cause, errors.Unwrap(e))
}

func TestErrorIsByKind(t *testing.T) {
	a := ConfigMissing("missing")
	b := ConfigMissing("missing again")
	assert.True(t, errors.Is(a, b))

	c := ConfigInvalid(nil, "bad field")
	assert.False(t, errors.Is(a, c))
}

func TestGetKind(t *testing.T) {
	e := StateLocked(errors.New("timeout"))
	kind, ok := GetKind(e)
	require.True(t, ok)
	assert.Equal(t, KindStateLocked, kind)

	_, ok = GetKind(errors.New("plain error"))
	assert.False(t, ok)
}

func TestWithHintAndContext(t *testing.T) {
	base := BootstrapFailure(nil, "script missing")
	withHint := base.WithHint("place scripts under the project's bootstrap directory")
	assert.Empty(t, base.Hint)
	assert.Equal(t, "place scripts under the project's bootstrap directory", withHint.Hint)

	withCtx := withHint.WithContext("script", "scripts/nonexistent.sh")
	assert.Equal(t, "scripts/nonexistent.sh", withCtx.Context["script"])
	assert.Empty(t, withHint.Context)
}

func TestCommandFailureFields(t *testing.T) {
	e := CommandFailure("docker run ...", 125, "", "Error response from daemon")
	assert.Equal(t, 125, e.ExitCode)
	assert.Equal(t, "Error response from daemon", e.Stderr)
	assert.Equal(t, KindCommandFailure, e.Kind)
}

func TestAsExtractsUnderlyingError(t *testing.T) {
	var target *Error
	wrapped := error(CloneFailure(errors.New("auth failed"), "clone failed for both attempts"))
	require.True(t, As(wrapped, &target))
	assert.Equal(t, KindCloneFailure, target.Kind)
}
