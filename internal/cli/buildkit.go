package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/subroutinecom/workspace/internal/lifecycle"
	"github.com/subroutinecom/workspace/internal/ui"
)

var (
	buildkitStop    bool
	buildkitRestart bool
	buildkitClean   bool
)

var buildkitCmd = &cobra.Command{
	Use:   "buildkit",
	Short: "Inspect or manage the shared BuildKit daemon",
	Args:  cobra.NoArgs,
	RunE:  runBuildkit,
}

func init() {
	buildkitCmd.Flags().BoolVar(&buildkitStop, "stop", false, "stop the shared BuildKit daemon")
	buildkitCmd.Flags().BoolVar(&buildkitRestart, "restart", false, "restart the shared BuildKit daemon")
	buildkitCmd.Flags().BoolVar(&buildkitClean, "clean", false, "remove the BuildKit container, network, and volume")
	rootCmd.AddCommand(buildkitCmd)
}

func runBuildkit(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	st, err := c.Buildkit(context.Background(), lifecycle.BuildkitOptions{
		Stop:    buildkitStop,
		Restart: buildkitRestart,
		Clean:   buildkitClean,
	})
	if err != nil {
		return err
	}
	if st == nil {
		ui.Success("done")
		return nil
	}

	ui.Println(fmt.Sprintf("network: %s", presence(st.NetworkExists)))
	ui.Println(fmt.Sprintf("volume: %s", presence(st.VolumeExists)))
	ui.Println(fmt.Sprintf("container: %s (%s)", presence(st.ContainerExists), valueOr(st.ContainerState, "absent")))
	return nil
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "absent"
}

func valueOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
