package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/subroutinecom/workspace/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config [workspace]",
	Short: "Print a workspace's resolved configuration as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	out, err := c.Config(context.Background(), argAt(args, 0), workspacePath)
	if err != nil {
		return err
	}
	ui.Println(out)
	return nil
}
