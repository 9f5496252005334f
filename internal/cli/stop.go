package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop [workspace]",
	Short: "Stop a workspace's container without removing it",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	return c.Stop(context.Background(), argAt(args, 0), workspacePath)
}
