package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/subroutinecom/workspace/internal/ui"
)

var listPath string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List known and discoverable workspaces",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listPath, "path", "", "root directory to search for .workspace.yml files (default: cwd)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	root := listPath
	if root == "" {
		root, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	entries, err := c.List(context.Background(), root)
	if err != nil {
		return err
	}
	if jsonOutput {
		return renderJSON(entries)
	}
	if len(entries) == 0 {
		ui.Info("no workspaces found")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		port := "-"
		if e.SSHPort != 0 {
			port = fmt.Sprintf("%d", e.SSHPort)
		}
		tracked := "no"
		if e.HasState {
			tracked = "yes"
		}
		rows = append(rows, []string{e.Name, e.ConfigDir, port, tracked})
	}
	return ui.RenderLipglossTable([]string{"NAME", "CONFIG", "SSH PORT", "TRACKED"}, rows)
}
