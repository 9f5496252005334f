package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/subroutinecom/workspace/internal/lifecycle"
	"github.com/subroutinecom/workspace/internal/ui"
)

var (
	destroyForce       bool
	destroyKeepVolumes bool
)

var destroyCmd = &cobra.Command{
	Use:   "destroy <workspaces...>",
	Short: "Remove one or more workspaces and their state",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDestroy,
}

func init() {
	destroyCmd.Flags().BoolVarP(&destroyForce, "force", "f", false, "skip the confirmation prompt")
	destroyCmd.Flags().BoolVar(&destroyKeepVolumes, "keep-volumes", false, "keep the container's named volumes")
	rootCmd.AddCommand(destroyCmd)
}

func runDestroy(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}

	if !destroyForce {
		effect := "container, volumes, and state"
		if destroyKeepVolumes {
			effect = "container and state only (volumes kept)"
		}
		prompt := fmt.Sprintf("destroy %s (%s)?", strings.Join(args, ", "), effect)
		if !ui.Confirm(prompt) {
			ui.Info("aborted")
			return nil
		}
	}

	ctx := context.Background()
	for _, name := range args {
		if err := c.Destroy(ctx, name, lifecycle.DestroyOptions{
			Path:        workspacePath,
			Force:       destroyForce,
			KeepVolumes: destroyKeepVolumes,
			SkipConfirm: true,
		}); err != nil {
			return err
		}
	}
	return nil
}
