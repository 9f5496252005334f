package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/subroutinecom/workspace/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status [workspace]",
	Short: "Show a workspace's container and SSH port",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	st, err := c.Status(context.Background(), argAt(args, 0), workspacePath)
	if err != nil {
		return err
	}
	if jsonOutput {
		return renderJSON(st)
	}

	if !st.Exists {
		ui.Info("workspace %q: no container", st.Name)
		return nil
	}
	state := "stopped"
	if st.Running {
		state = "running"
	}

	rows := [][2]string{
		{"workspace", fmt.Sprintf("%s: %s (%s)", st.Name, state, st.ContainerID[:minInt(12, len(st.ContainerID))])},
	}
	if st.SSHPort != 0 {
		rows = append(rows, [2]string{"ssh port", fmt.Sprintf("%d", st.SSHPort)})
	}
	for _, p := range st.Forwards {
		rows = append(rows, [2]string{"forward", fmt.Sprintf("%d -> %d", p, p)})
	}
	if st.SelectedKey != "" {
		rows = append(rows, [2]string{"ssh key", st.SelectedKey})
	}
	if st.RepoRemote != "" {
		rows = append(rows, [2]string{"repo", fmt.Sprintf("%s (%s)", st.RepoRemote, st.RepoBranch)})
	}
	ui.RenderSummary(rows)
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
