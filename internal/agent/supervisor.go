package agent

import (
	"context"
	"time"

	"github.com/subroutinecom/workspace/internal/logging"
	"github.com/subroutinecom/workspace/internal/runner"
)

// runSupervisor rechecks dockerd and sshd liveness by process-name probe
// every interval, restarting whichever is missing, until ctx is done.
func runSupervisor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !processRunning(ctx, "dockerd") {
				logging.Warn("dockerd not running, restarting")
				if err := startDockerd(ctx); err != nil {
					logging.Error("could not restart dockerd", "error", err)
				}
			}
			if !processRunning(ctx, "sshd") {
				logging.Warn("sshd not running, restarting")
				if err := startSSHD(ctx); err != nil {
					logging.Error("could not restart sshd", "error", err)
				}
			}
		}
	}
}

func processRunning(ctx context.Context, name string) bool {
	res, err := runner.Run(ctx, "pgrep", []string{"-x", name}, runner.Options{IgnoreFailure: true})
	return err == nil && res != nil && res.Code == 0
}
