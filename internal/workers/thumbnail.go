package workers

import (
	"context"

	"bookmarks-browser/internal/items"
	"bookmarks-browser/internal/media"
)

// ThumbnailProcessor resolves a record's thumbnail source and asks the
// generator for a bounded raster. The generator converts its own failures
// into the error sentinel, so this pass always latches a result.
type ThumbnailProcessor struct {
	generator *media.Generator
}

// NewThumbnailProcessor creates the thumbnail pass.
func NewThumbnailProcessor(generator *media.Generator) *ThumbnailProcessor {
	return &ThumbnailProcessor{generator: generator}
}

// Role implements Processor.
func (p *ThumbnailProcessor) Role() string { return "thumbnail" }

// Loaded implements Processor.
func (p *ThumbnailProcessor) Loaded(r *items.Record) bool { return r.ThumbnailLoaded() }

// Process implements Processor.
func (p *ThumbnailProcessor) Process(ctx context.Context, r *items.Record) {
	res := p.generator.Thumbnail(ctx, thumbnailSource(r))
	r.SetThumbnail(res.Image, res.Path, res.Background)
}

// thumbnailSource picks the representative frame: the middle member for a
// sequence, the file itself otherwise. The middle frame usually shows the
// shot's content better than a slate or a fade-in first frame.
func thumbnailSource(r *items.Record) string {
	if r.IsSequence() && len(r.Frames) > 0 {
		return r.Frames[len(r.Frames)/2]
	}
	return r.Path
}
