package cli

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/docinsight/internal/pipeline"
)

var collectJSON bool

var collectCmd = &cobra.Command{
	Use:   "collect [sources...]",
	Short: "Collect, parse and store documents",
	Long: `Collects each source (a local path, file:// URL or http(s) URL),
parses it into sections and stores them, then rebuilds the index once.

Sources whose content is already stored are skipped as duplicates.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCollect,
}

func init() {
	collectCmd.Flags().BoolVar(&collectJSON, "json", false, "output job results as JSON")
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	jobs := a.Worker.Ingest(cmd.Context(), args)
	if collectJSON {
		return printJSON(cmd, jobs)
	}

	stored := 0
	for _, j := range jobs {
		switch j.Status {
		case pipeline.StatusCompleted:
			stored++
			cmd.Printf("  stored    %s (%d sections)\n", j.Source, j.Progress.Stored)
		case pipeline.StatusDupSkipped:
			cmd.Printf("  duplicate %s (already stored as %s)\n", j.Source, j.DuplicateOf)
		default:
			cmd.Printf("  failed    %s\n", j.Source)
			for _, e := range j.Progress.Errors {
				cmd.Printf("            %s\n", e)
			}
		}
	}
	cmd.Printf("Collected and parsed %d document(s).\n", stored)
	return nil
}
