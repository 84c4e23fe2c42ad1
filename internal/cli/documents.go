package cli

import (
	"time"

	"github.com/spf13/cobra"
)

var documentsJSON bool

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE:  runDocuments,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild the retrieval index",
	Args:  cobra.NoArgs,
	RunE:  runRefresh,
}

func init() {
	documentsCmd.Flags().BoolVar(&documentsJSON, "json", false, "output documents as JSON")
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(refreshCmd)
}

func runDocuments(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	docs, err := a.Store.ListDocuments(cmd.Context())
	if err != nil {
		return err
	}
	if documentsJSON {
		return printJSON(cmd, docs)
	}
	if len(docs) == 0 {
		cmd.Println("No documents stored.")
		return nil
	}
	for _, d := range docs {
		cmd.Printf("%s  %s\n", d.ID, d.Title)
		cmd.Printf("    %s, %d sections, ingested %s\n", d.Path, d.SectionCount, d.IngestedAt.Local().Format(time.DateTime))
	}
	return nil
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	a.Engine.RefreshIndex(cmd.Context())
	st := a.Engine.IndexStats()
	cmd.Printf("Index rebuilt: %d sections, %d terms.\n", st.Sections, st.Terms)
	return nil
}
