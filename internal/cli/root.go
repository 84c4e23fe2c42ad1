// Package cli implements the docinsight command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docinsight/internal/app"
	"github.com/dgallion1/docinsight/internal/config"
)

var (
	configPath string

	// application is opened before each command runs.
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "docinsight",
	Short: "Ask questions of a local document collection",
	Long: `docinsight collects documents from paths and URLs, splits them into
sections and answers free-text questions with cited passages ranked by
TF-IDF cosine similarity.

Configuration is read from .env, an optional YAML file and the environment.`,
	SilenceUsage:      true,
	PersistentPreRunE: openApp,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $CONFIG_FILE)")
}

// Execute runs the root command and releases the app afterwards.
func Execute(ctx context.Context) error {
	defer closeApp()
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

func openApp(cmd *cobra.Command, _ []string) error {
	if application != nil {
		return nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if queryMaxResults > 0 {
		cfg.MaxResults = queryMaxResults
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := app.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel, false)
	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("open app: %w", err)
	}
	application = a
	return nil
}

func loadConfig() (config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

func closeApp() {
	if application == nil {
		return
	}
	if err := application.Close(); err != nil {
		application.Log.Warn("close store", "error", err)
	}
	application = nil
}

func requireApp() (*app.App, error) {
	if application == nil {
		return nil, errors.New("application not initialised")
	}
	return application, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
