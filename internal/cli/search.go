package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docinsight/internal/insight"
	"github.com/dgallion1/docinsight/internal/store"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [keywords]",
	Short: "Find stored sections containing keywords",
	Long: `Lists stored sections whose content contains the keywords as a
case-insensitive substring, in document order. No ranking is applied.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", store.DefaultSearchLimit, "maximum number of sections")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output sections as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	if searchLimit < 1 {
		return fmt.Errorf("--limit must be at least 1, got %d", searchLimit)
	}

	records, err := a.Store.SearchSections(cmd.Context(), strings.Join(args, " "), searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if searchJSON {
		return printJSON(cmd, records)
	}
	if len(records) == 0 {
		cmd.Println("No matching sections.")
		return nil
	}
	for i, rec := range records {
		cmd.Printf("[%d] %s\n", i+1, insight.Citation(rec))
		cmd.Printf("    %s\n\n", preview(rec.Content, 160))
	}
	return nil
}

// preview collapses whitespace and truncates to n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
