package cmd

import (
	"context"
	"fmt"

	"bookmarks-browser/internal/database"
	"bookmarks-browser/internal/items"
	"bookmarks-browser/internal/settings"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print bookmark metadata statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		db, err := database.Open(ctx, database.Bookmark{
			Server: cfg.Bookmark.Server,
			Job:    cfg.Bookmark.Job,
			Root:   cfg.Bookmark.Root,
		})
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.CalculateStats(ctx,
			uint32(items.MarkedAsArchived),
			uint32(items.MarkedAsFavourite),
		)
		if err != nil {
			return err
		}

		fmt.Printf("Bookmark:   %s\n", cfg.Bookmark.Path())
		fmt.Printf("Items:      %d\n", stats.Items)
		fmt.Printf("Described:  %d\n", stats.Described)
		fmt.Printf("Archived:   %d\n", stats.Archived)
		fmt.Printf("Favourited: %d (per-bookmark)\n", stats.Favourited)

		if userSettings, err := settings.Open(cfg.SettingsDir); err == nil {
			defer userSettings.Close()
			fmt.Printf("Favourites: %d (global set)\n", len(userSettings.Favourites()))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
