package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	logsTail   int
	logsFollow bool
)

var logsCmd = &cobra.Command{
	Use:   "logs [workspace]",
	Short: "Show a workspace container's docker logs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().IntVar(&logsTail, "tail", 200, "number of lines to show from the end of the logs")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "follow log output")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	return c.Logs(context.Background(), argAt(args, 0), workspacePath, logsTail, logsFollow)
}
