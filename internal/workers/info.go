package workers

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"bookmarks-browser/internal/formats"
	"bookmarks-browser/internal/items"
	"bookmarks-browser/internal/logging"
)

// DescriptionReader reads the per-item description from the bookmark's
// metadata store. Keys are canonical paths.
type DescriptionReader interface {
	GetDescription(ctx context.Context, key string) (string, error)
}

// InfoProcessor fills in the secondary metadata of a record: the
// human-readable size/mtime summary and the stored description.
type InfoProcessor struct {
	descriptions DescriptionReader
}

// NewInfoProcessor creates the info pass. descriptions may be nil, which
// skips description loading.
func NewInfoProcessor(descriptions DescriptionReader) *InfoProcessor {
	return &InfoProcessor{descriptions: descriptions}
}

// Role implements Processor.
func (p *InfoProcessor) Role() string { return "info" }

// Loaded implements Processor.
func (p *InfoProcessor) Loaded(r *items.Record) bool { return r.FileInfoLoaded() }

// Process implements Processor. Stat failures leave the details empty; the
// loaded flag latches regardless so the record is never retried forever.
func (p *InfoProcessor) Process(ctx context.Context, r *items.Record) {
	defer r.MarkFileInfoLoaded()

	if details, ok := p.fileDetails(r); ok {
		r.SetFileDetails(details)
	}

	if p.descriptions == nil {
		return
	}
	description, err := p.descriptions.GetDescription(ctx, r.Path)
	if err != nil {
		logging.Debug("No description for %s: %v", r.Path, err)
		return
	}
	r.SetDescription(description)
}

func (p *InfoProcessor) fileDetails(r *items.Record) (string, bool) {
	if r.IsSequence() {
		return sequenceDetails(r)
	}

	info, err := os.Stat(r.Path)
	if err != nil {
		logging.Debug("Stat failed for %s: %v", r.Path, err)
		return "", false
	}

	return fmt.Sprintf("%s  %s  %s",
		kindLabel(r.Path),
		humanSize(info.Size()),
		info.ModTime().Format("2006-01-02 15:04"),
	), true
}

// sequenceDetails stats every member frame and aggregates: total size and
// the newest modification time represent the whole sequence.
func sequenceDetails(r *items.Record) (string, bool) {
	var total int64
	var newest time.Time
	counted := 0

	for _, frame := range r.Frames {
		info, err := os.Stat(frame)
		if err != nil {
			continue
		}
		total += info.Size()
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		counted++
	}
	if counted == 0 {
		return "", false
	}

	return fmt.Sprintf("%d frames  %s  %s  %s",
		counted,
		kindLabel(r.Path),
		humanSize(total),
		newest.Format("2006-01-02 15:04"),
	), true
}

func kindLabel(path string) string {
	switch formats.Classify(path) {
	case formats.SourceImage:
		return "Image"
	case formats.SourceVideo:
		return "Video"
	case formats.SourceScene:
		return "Scene"
	default:
		return strings.ToUpper(strings.TrimPrefix(extOf(path), "."))
	}
}

func extOf(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i:]
	}
	return ""
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
