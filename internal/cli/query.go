package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docinsight/internal/insight"
)

var (
	queryJSON       bool
	queryMaxResults int
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Answer a question from the stored documents",
	Long: `Ranks every stored section against the question and prints the best
matches with their citations. Multiple arguments are joined with spaces.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	queryCmd.Flags().IntVar(&queryMaxResults, "max-results", 0, "maximum number of insights (default from config)")
	rootCmd.AddCommand(queryCmd)
}

type queryOutput struct {
	Query    string            `json:"query"`
	Insights []insight.Insight `json:"insights"`
	Message  string            `json:"message,omitempty"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	q := strings.Join(args, " ")
	insights := a.Engine.AnswerQuery(cmd.Context(), q)
	if insights == nil {
		insights = []insight.Insight{}
	}
	msg := insight.Message(q, insights)

	if queryJSON {
		return printJSON(cmd, queryOutput{Query: q, Insights: insights, Message: msg})
	}
	if msg != "" {
		cmd.Println(msg)
		return nil
	}
	for i, in := range insights {
		cmd.Printf("[%d] %s (%.3f)\n", i+1, in.Citation, in.Score)
		cmd.Printf("    %s\n\n", in.Snippet)
	}
	return nil
}
