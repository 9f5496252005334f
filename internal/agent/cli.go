// Package agent implements workspace-internal, the minimal binary baked
// into the base image and run as the container's entrypoint (PID 1) and
// as the target of the host's `docker exec ... init` call.
package agent

import (
	"context"
	"fmt"
	"os"

	"github.com/subroutinecom/workspace/internal/logging"
	"github.com/subroutinecom/workspace/internal/ui"
)

// Execute dispatches workspace-internal's subcommands. With no arguments
// (the container's main process) it runs the entrypoint; "init" runs the
// one-shot workspace initialization the host triggers after start.
func Execute(args []string) error {
	ctx := context.Background()

	if len(args) == 0 {
		return RunEntrypoint(ctx)
	}

	switch args[0] {
	case "entrypoint":
		return RunEntrypoint(ctx)
	case "init":
		err := RunInit(ctx)
		if err != nil {
			ui.Error("init failed: %s", err.Error())
		}
		return err
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `workspace-internal - in-container workspace agent

Usage:
  workspace-internal [entrypoint]   run as the container's main process (default)
  workspace-internal init           clone/bootstrap the workspace (idempotent)
`)
}

func init() {
	logging.SetLevel(logging.LevelInfo)
}
