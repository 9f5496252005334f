package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var buildNoCache bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the shared workspace image",
	Args:  cobra.NoArgs,
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "build without using the Docker layer cache")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	return c.Build(context.Background(), buildNoCache)
}
