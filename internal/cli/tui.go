package cli

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/docinsight/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive query screen",
	Long: `Launch the interactive terminal screen for asking questions.

Controls:
  Enter        - Ask
  Up/Down      - Previous / next result
  PgUp/PgDown  - Scroll the current result
  Esc          - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	return tui.Run(cmd.Context(), a.Engine)
}
