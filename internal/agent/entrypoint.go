package agent

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	wserrors "github.com/subroutinecom/workspace/internal/errors"
	"github.com/subroutinecom/workspace/internal/logging"
	"github.com/subroutinecom/workspace/internal/runner"
)

const (
	dockerdLogPath      = "/var/log/dockerd.log"
	supervisorInterval  = 10 * time.Second
	dockerdReadyTimeout = 30 * time.Second
)

// RunEntrypoint is the container's main process. It runs as root: syncs
// the workspace user's ids, installs ssh keys, starts dockerd and sshd,
// then supervises both for the life of the container.
func RunEntrypoint(ctx context.Context) error {
	if err := SyncUser(ctx); err != nil {
		logging.Warn("uid/gid sync failed", "error", err)
	}
	if err := InstallSSHKeys(ctx); err != nil {
		logging.Warn("ssh key installation failed", "error", err)
	}
	if _, err := runner.Run(ctx, "chown", []string{"-R", "workspace:workspace", workspaceHome + "/.cache"}, runner.Options{IgnoreFailure: true}); err != nil {
		logging.Warn("could not rechown cache directory", "error", err)
	}

	if err := startDockerd(ctx); err != nil {
		return err
	}
	if err := waitForDockerd(ctx, dockerdReadyTimeout); err != nil {
		dumpDockerdLogTail(50)
		return err
	}

	if err := startSSHD(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		runSupervisor(gctx, supervisorInterval)
		return nil
	})
	g.Go(func() error {
		return tailDockerdLog(gctx)
	})
	return g.Wait()
}

func startDockerd(ctx context.Context) error {
	logFile, err := os.OpenFile(dockerdLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return wserrors.Internal(err, "could not open %s", dockerdLogPath)
	}
	cmd := exec.CommandContext(ctx, "dockerd")
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Start(); err != nil {
		logFile.Close()
		return wserrors.BootstrapFailure(err, "could not start dockerd")
	}
	go func() {
		_ = cmd.Wait()
		logFile.Close()
	}()
	return nil
}

func waitForDockerd(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		res, err := runner.Run(ctx, "docker", []string{"version"}, runner.Options{IgnoreFailure: true})
		if err == nil && res.Code == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return wserrors.DockerUnavailable(nil, "dockerd did not become ready within %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func dumpDockerdLogTail(n int) {
	data, err := os.ReadFile(dockerdLogPath)
	if err != nil {
		return
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	fmt.Fprintln(os.Stderr, strings.Join(lines, "\n"))
}

// startSSHD launches sshd, which backgrounds itself by default.
func startSSHD(ctx context.Context) error {
	if _, err := runner.Run(ctx, "/usr/sbin/sshd", nil, runner.Options{}); err != nil {
		return wserrors.BootstrapFailure(err, "could not start sshd")
	}
	return nil
}

func tailDockerdLog(ctx context.Context) error {
	return runner.Stream(ctx, "tail", []string{"-f", dockerdLogPath}, runner.StreamOptions{})
}
