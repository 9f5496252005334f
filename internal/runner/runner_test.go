package runner

import (
	"bytes"
	"context"
	"errors"
	"testing"

	wserrors "github.com/subroutinecom/workspace/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesOutput(t *testing.T) {
	res, err := Run(context.Background(), "sh", []string{"-c", "echo out; echo err >&2"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Code)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
}

func TestRunFailureReturnsCommandFailure(t *testing.T) {
	res, err := Run(context.Background(), "sh", []string{"-c", "echo boom >&2; exit 3"}, Options{})
	require.Error(t, err)
	assert.Equal(t, 3, res.Code)

	var wsErr *wserrors.Error
	require.True(t, errors.As(err, &wsErr))
	assert.Equal(t, wserrors.KindCommandFailure, wsErr.Kind)
	assert.Equal(t, 3, wsErr.ExitCode)
	assert.Contains(t, wsErr.Stderr, "boom")
}

func TestRunIgnoreFailureSuppressesError(t *testing.T) {
	res, err := Run(context.Background(), "sh", []string{"-c", "exit 1"}, Options{IgnoreFailure: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Code)
}

func TestRunEnvMerge(t *testing.T) {
	res, err := Run(context.Background(), "sh", []string{"-c", "echo $FOO"}, Options{Env: map[string]string{"FOO": "bar"}})
	require.NoError(t, err)
	assert.Equal(t, "bar\n", res.Stdout)
}

func TestStreamQuietCapturesStderrOnFailure(t *testing.T) {
	err := Stream(context.Background(), "sh", []string{"-c", "echo nope >&2; exit 2"}, StreamOptions{Quiet: true})
	require.Error(t, err)
	var wsErr *wserrors.Error
	require.True(t, errors.As(err, &wsErr))
	assert.Contains(t, wsErr.Stderr, "nope")
}

func TestRunLoggedWritesToLogAndBuffer(t *testing.T) {
	var logBuf bytes.Buffer
	var chunks int
	res, err := RunLogged(context.Background(), "sh", []string{"-c", "echo hello"}, &logBuf, "/tmp/fake.log", LoggedOptions{
		OnChunk: func(c []byte) { chunks++ },
	})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Equal(t, "hello\n", logBuf.String())
	assert.Equal(t, 1, chunks)
}

func TestRunLoggedFailureCarriesLogPath(t *testing.T) {
	var logBuf bytes.Buffer
	_, err := RunLogged(context.Background(), "sh", []string{"-c", "exit 5"}, &logBuf, "/tmp/init.log", LoggedOptions{})
	require.Error(t, err)
	var wsErr *wserrors.Error
	require.True(t, errors.As(err, &wsErr))
	assert.Equal(t, "/tmp/init.log", wsErr.LogPath)
	assert.Equal(t, 5, wsErr.ExitCode)
}
