package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/subroutinecom/workspace/internal/ui"
)

var infoCmd = &cobra.Command{
	Use:   "info [workspace]",
	Short: "Show status plus the configuration that would apply on next start",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	info, err := c.Info(context.Background(), argAt(args, 0), workspacePath)
	if err != nil {
		return err
	}
	if jsonOutput {
		return renderJSON(info)
	}

	state := "stopped"
	if !info.Status.Exists {
		state = "absent"
	} else if info.Status.Running {
		state = "running"
	}
	ui.Println(fmt.Sprintf("workspace %s: %s", info.Resolved.Name, state))
	ui.Println(fmt.Sprintf("image: %s", info.Resolved.ImageTag))
	if info.Resolved.Repo.Remote != "" {
		ui.Println(fmt.Sprintf("repo: %s (%s)", info.Resolved.Repo.Remote, info.Resolved.Repo.Branch))
	}
	if len(info.Resolved.Forwards) > 0 {
		ui.Println(fmt.Sprintf("forwards: %v", info.Resolved.Forwards))
	}
	for _, m := range info.Resolved.Mounts {
		ui.Println(fmt.Sprintf("mount: %s -> %s (%s)", m.Source, m.Target, m.Mode))
	}
	for _, s := range info.Resolved.Bootstrap {
		ui.Println(fmt.Sprintf("bootstrap: %s (%s)", s.Path, s.Source))
	}
	return nil
}
