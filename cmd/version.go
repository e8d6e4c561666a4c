package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bookmarks-browser %s (%s, %s)\n", Version, Commit, runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
