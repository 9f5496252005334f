// Package cli implements the command-line interface for the workspace
// host controller.
package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/subroutinecom/workspace/internal/lifecycle"
	"github.com/subroutinecom/workspace/internal/logging"
	"github.com/subroutinecom/workspace/internal/ui"
)

// Global flags, shared across command files the way the teacher's CLI
// keeps them package-level rather than threading a context struct.
var (
	workspacePath string
	jsonOutput    bool
	noColor       bool
	quiet         bool
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage containerized development workspaces",
	Long: `workspace creates, starts, and manages per-project containerized
development environments ("workspaces").

Each workspace is a single privileged Docker container with its own SSH
host key, assigned SSH port, and optional git clone + bootstrap scripts,
tracked in a small JSON state file under ~/.workspaces.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity := ui.VerbosityNormal
		if quiet {
			verbosity = ui.VerbosityQuiet
		} else if verbose {
			verbosity = ui.VerbosityVerbose
		}
		ui.Configure(ui.Config{
			Verbosity: verbosity,
			NoColor:   noColor,
			Writer:    os.Stdout,
			ErrWriter: os.Stderr,
		})
		logging.SetVerbose(verbose)
		logging.SetQuiet(quiet)
		return nil
	},
}

// Execute adds all child commands to the root command and runs it. This
// is called once by main.main().
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspacePath, "path", "w", "", "workspace directory (default: auto-detect from cwd)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON where supported")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "minimal output (errors only)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// newController wires a lifecycle.Controller against the invoking user's
// home directory.
func newController() (*lifecycle.Controller, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return lifecycle.New(home), nil
}

// renderJSON marshals v as indented JSON to the output writer, used by
// commands whose text rendering has a structured equivalent under --json.
func renderJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	ui.Println(string(data))
	return nil
}
