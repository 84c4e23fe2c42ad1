package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docinsight/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest documents dropped into a directory",
	Long: `Watches a directory and queues every supported file created or
written there for ingestion. The directory defaults to WATCH_DIR.
Runs until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	dir := a.Config.WatchDir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		return errors.New("no directory given and WATCH_DIR is not set")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := a.NewOrchestrator()
	orch.Start(ctx)
	defer orch.Stop()

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", dir)
	return watch.New(dir, orch, watch.DefaultDebounce, a.Log.With("component", "watch")).Run(ctx)
}
