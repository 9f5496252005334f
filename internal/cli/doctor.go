package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/subroutinecom/workspace/internal/lifecycle"
	"github.com/subroutinecom/workspace/internal/ui"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the local environment can run workspaces",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	checks := c.Doctor(context.Background())
	allOK := true
	for _, chk := range checks {
		if !chk.OK {
			allOK = false
		}
	}

	if jsonOutput {
		if err := renderJSON(checks); err != nil {
			return err
		}
	} else if err := renderDoctorTable(checks); err != nil {
		return err
	}

	if !allOK {
		return fmt.Errorf("one or more doctor checks failed")
	}
	return nil
}

func renderDoctorTable(checks []lifecycle.DoctorCheck) error {
	rows := make([][]string, 0, len(checks))
	for _, chk := range checks {
		mark := "ok"
		if !chk.OK {
			mark = "FAIL"
		}
		rows = append(rows, []string{chk.Name, mark, chk.Detail})
	}
	return ui.RenderTable([]string{"CHECK", "STATUS", "DETAIL"}, rows)
}
