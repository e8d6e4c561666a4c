package cmd

import (
	"fmt"

	"bookmarks-browser/internal/scanner"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover a task folder and print both list representations",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newScanner()
		if err != nil {
			return err
		}

		files, sequences, err := s.Scan(cfg.TaskFolder)
		if err != nil {
			return err
		}

		fmt.Printf("%s: %d files, %d collapsed entries\n\n", s.TaskFolderPath(cfg.TaskFolder), len(files), len(sequences))
		for _, r := range sequences {
			if r.IsSequence() {
				fmt.Printf("  %-50s %4d frames\n", r.Name, len(r.Frames))
			} else {
				fmt.Printf("  %-50s\n", r.Name)
			}
		}
		return nil
	},
}

func newScanner() (*scanner.Scanner, error) {
	parent := []string{cfg.Bookmark.Server, cfg.Bookmark.Job, cfg.Bookmark.Root}
	return scanner.New(cfg.Bookmark.Path(), parent, cfg.Excludes)
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
