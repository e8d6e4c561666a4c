package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"bookmarks-browser/internal/controller"
	"bookmarks-browser/internal/database"
	"bookmarks-browser/internal/logging"
	"bookmarks-browser/internal/media"
	"bookmarks-browser/internal/settings"

	"github.com/spf13/cobra"
)

var thumbsWait time.Duration

var thumbsCmd = &cobra.Command{
	Use:   "thumbs",
	Short: "Generate thumbnails and file info for a task folder's contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := media.InitVips(); err != nil {
			logging.Warn("libvips unavailable, using fallback decoders: %v", err)
		}
		defer media.ShutdownVips()

		db, err := database.Open(ctx, database.Bookmark{
			Server: cfg.Bookmark.Server,
			Job:    cfg.Bookmark.Job,
			Root:   cfg.Bookmark.Root,
		})
		if err != nil {
			return err
		}
		defer db.Close()

		userSettings, err := settings.Open(cfg.SettingsDir)
		if err != nil {
			return err
		}
		defer userSettings.Close()

		sc, err := newScanner()
		if err != nil {
			return err
		}

		generator := media.NewGenerator(cfg.CacheDir, media.Config{
			Size:          cfg.Thumbnails.Size,
			SizeCeiling:   cfg.Thumbnails.SizeCeilingMB << 20,
			DecodeTimeout: time.Duration(cfg.Thumbnails.DecodeTimeoutSec) * time.Second,
			Pixmaps:       media.DefaultPixmapCache(),
		})

		ctrl := controller.New(controller.Config{
			Namespace:        "files",
			Scanner:          sc,
			Metadata:         db,
			Settings:         userSettings,
			Generator:        generator,
			InfoWorkers:      cfg.Workers.Info,
			ThumbnailWorkers: cfg.Workers.Thumbnail,
		})
		ctrl.Start(ctx)
		defer ctrl.Stop()

		if err := ctrl.SetTaskFolder(cfg.TaskFolder); err != nil {
			return err
		}

		total := len(ctrl.Visible())
		logging.Info("Enriching %d visible items in %s", total, cfg.TaskFolder)
		return waitForEnrichment(ctx, ctrl, thumbsWait)
	},
}

// waitForEnrichment polls until every visible record carries both loaded
// flags, the deadline passes or the context is cancelled.
func waitForEnrichment(ctx context.Context, ctrl *controller.Controller, wait time.Duration) error {
	deadline := time.After(wait)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pending := 0
			for _, r := range ctrl.Visible() {
				if !r.FileInfoLoaded() || !r.ThumbnailLoaded() {
					pending++
				}
			}
			if pending == 0 {
				logging.Info("Enrichment complete")
				return nil
			}
		case <-deadline:
			logging.Warn("Enrichment deadline reached with work outstanding")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func init() {
	thumbsCmd.Flags().DurationVar(&thumbsWait, "wait", 10*time.Minute, "maximum time to wait for enrichment")
	rootCmd.AddCommand(thumbsCmd)
}
