package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var proxyCmd = &cobra.Command{
	Use:   "proxy [workspace]",
	Short: "Forward a workspace's configured ports over SSH",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProxy,
}

func init() {
	rootCmd.AddCommand(proxyCmd)
}

func runProxy(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	return c.Proxy(context.Background(), argAt(args, 0), workspacePath)
}
