package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/subroutinecom/workspace/internal/lifecycle"
)

var (
	shellUser    string
	shellRoot    bool
	shellCommand string
)

var shellCmd = &cobra.Command{
	Use:   "shell [workspace]",
	Short: "Open an interactive shell in a running workspace",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShell,
}

func init() {
	shellCmd.Flags().StringVarP(&shellUser, "user", "u", "", "user to shell in as (default: workspace)")
	shellCmd.Flags().BoolVar(&shellRoot, "root", false, "shell in as root")
	shellCmd.Flags().StringVarP(&shellCommand, "command", "c", "", "run a single command instead of an interactive shell")
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	return c.Shell(context.Background(), argAt(args, 0), workspacePath, lifecycle.ShellOptions{
		User:    shellUser,
		Root:    shellRoot,
		Command: shellCommand,
	})
}
