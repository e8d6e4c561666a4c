// Package cmd implements the bookmarks-browser command line.
package cmd

import (
	"os"

	"bookmarks-browser/internal/config"
	"bookmarks-browser/internal/logging"
	"bookmarks-browser/internal/metrics"

	"github.com/spf13/cobra"
)

var (
	cfgPath    string
	logLevel   string
	taskFolder string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:           "bookmarks-browser",
	Short:         "Browse, tag and preview production assets from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The level latches on first use, so the flag must land before any
		// logging happens.
		if logLevel != "" {
			os.Setenv("BOOKMARKS_LOG_LEVEL", logLevel)
		}

		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if taskFolder != "" {
			cfg.TaskFolder = taskFolder
		}

		metrics.Serve(cfg.MetricsAddr)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config.toml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&taskFolder, "task-folder", "", "task folder to operate on")
}
