package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/subroutinecom/workspace/internal/lifecycle"
)

var (
	startForceRecreate bool
	startRebuild       bool
	startNoCache       bool
	startNoInit        bool
)

var startCmd = &cobra.Command{
	Use:   "start [workspace]",
	Short: "Create or resume a workspace's container",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStart,
}

func init() {
	startCmd.Flags().BoolVar(&startForceRecreate, "force-recreate", false, "remove and recreate the container")
	startCmd.Flags().BoolVar(&startRebuild, "rebuild", false, "rebuild the shared image before starting")
	startCmd.Flags().BoolVar(&startNoCache, "no-cache", false, "rebuild the shared image without cache")
	startCmd.Flags().BoolVar(&startNoInit, "no-init", false, "skip running the in-container init step")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	name := argAt(args, 0)
	return c.Start(context.Background(), name, lifecycle.StartOptions{
		Path:          workspacePath,
		ForceRecreate: startForceRecreate,
		Rebuild:       startRebuild,
		NoCache:       startNoCache,
		NoInit:        startNoInit,
	})
}

// argAt returns args[i] or "" when args is too short, used throughout for
// the CLI's optional positional workspace name.
func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
