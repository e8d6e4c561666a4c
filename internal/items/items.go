package items

import (
	"image"
	"image/color"
	"strings"
	"sync"
	"time"
)

// DataType selects which representation of a task folder's contents a
// record belongs to: individual files or collapsed frame-sequences.
type DataType int

const (
	// FileItem represents an individual file on disk.
	FileItem DataType = iota
	// SequenceItem represents a collapsed frame-sequence (proxy path).
	SequenceItem
)

// String returns the string representation of a data type.
func (d DataType) String() string {
	switch d {
	case FileItem:
		return "file"
	case SequenceItem:
		return "sequence"
	default:
		return "unknown"
	}
}

// Flags is the per-item state bitmask.
type Flags uint32

const (
	// MarkedAsActive marks the single item per task folder the user switched to.
	MarkedAsActive Flags = 1 << iota
	// MarkedAsArchived hides the item unless archived items are shown.
	MarkedAsArchived
	// MarkedAsFavourite marks the item as a user favourite.
	MarkedAsFavourite
)

// Has reports whether all bits of flag are set.
func (f Flags) Has(flag Flags) bool { return f&flag == flag }

// With returns f with flag set or cleared.
func (f Flags) With(flag Flags, on bool) Flags {
	if on {
		return f | flag
	}
	return f &^ flag
}

// SortRole selects the precomputed key a sort pass orders by.
type SortRole int

const (
	// SortByName orders by the lower-cased display path.
	SortByName SortRole = iota
	// SortBySize orders by on-disk size.
	SortBySize
	// SortByLastModified orders by modification time.
	SortByLastModified
)

// String returns the string representation of a sort role.
func (r SortRole) String() string {
	switch r {
	case SortByName:
		return "name"
	case SortBySize:
		return "size"
	case SortByLastModified:
		return "modified"
	default:
		return "unknown"
	}
}

// RowID identifies a row for repaint targeting after an async update.
// Path is the authoritative identity; Row is the position at emit time and
// may be stale after a resort.
type RowID struct {
	TaskFolder string
	DataType   DataType
	Path       string
	Row        int
}

// Record is one discovered file or collapsed sequence. The immutable identity
// fields are set at populate time; the mutable enrichment fields are guarded
// by the record's own mutex because workers write them from other goroutines.
type Record struct {
	// Immutable after creation.
	Name       string
	Path       string   // canonical path; proxy path for sequences
	ParentPath []string // (server, job, root[, asset][, ...])
	TaskFolder string
	Type       DataType
	Frames     []string // member frame paths, sequences only

	// Precomputed sort keys, set at populate time.
	SortName    string
	SortSize    int64
	SortModTime time.Time

	mu sync.Mutex

	// Row position; kept equal to the physical index after every sort.
	id int

	flags           Flags
	description     string
	fileDetails     string
	thumbnailPath   string
	thumbnail       image.Image
	thumbnailBG     color.RGBA
	fileInfoLoaded  bool
	thumbnailLoaded bool
}

// NewRecord creates a record with its identity fields and sort keys set.
func NewRecord(name, path string, parent []string, taskFolder string, dataType DataType) *Record {
	return &Record{
		Name:       name,
		Path:       path,
		ParentPath: parent,
		TaskFolder: taskFolder,
		Type:       dataType,
		SortName:   strings.ToLower(path),
	}
}

// ID returns the record's current row position.
func (r *Record) ID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

// SetID updates the record's row position. Called by the store after a sort.
func (r *Record) SetID(id int) {
	r.mu.Lock()
	r.id = id
	r.mu.Unlock()
}

// Flags returns the current flag bitmask.
func (r *Record) Flags() Flags {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flags
}

// SetFlag sets or clears one flag bit.
func (r *Record) SetFlag(flag Flags, on bool) {
	r.mu.Lock()
	r.flags = r.flags.With(flag, on)
	r.mu.Unlock()
}

// ReplaceFlags overwrites the whole bitmask. Used when loading persisted state.
func (r *Record) ReplaceFlags(f Flags) {
	r.mu.Lock()
	r.flags = f
	r.mu.Unlock()
}

// Description returns the item's description text.
func (r *Record) Description() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.description
}

// SetDescription sets the item's description text.
func (r *Record) SetDescription(s string) {
	r.mu.Lock()
	r.description = s
	r.mu.Unlock()
}

// FileDetails returns the human-readable size/mtime summary.
func (r *Record) FileDetails() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fileDetails
}

// SetFileDetails sets the size/mtime summary.
func (r *Record) SetFileDetails(s string) {
	r.mu.Lock()
	r.fileDetails = s
	r.mu.Unlock()
}

// FileInfoLoaded reports whether the info enrichment pass completed.
func (r *Record) FileInfoLoaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fileInfoLoaded
}

// MarkFileInfoLoaded latches the info-loaded flag.
func (r *Record) MarkFileInfoLoaded() {
	r.mu.Lock()
	r.fileInfoLoaded = true
	r.mu.Unlock()
}

// ThumbnailLoaded reports whether the thumbnail enrichment pass completed.
func (r *Record) ThumbnailLoaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.thumbnailLoaded
}

// Thumbnail returns the decoded thumbnail, its on-disk path and the cached
// average background color.
func (r *Record) Thumbnail() (image.Image, string, color.RGBA) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.thumbnail, r.thumbnailPath, r.thumbnailBG
}

// SetThumbnail stores the thumbnail result and latches the loaded flag.
func (r *Record) SetThumbnail(img image.Image, path string, bg color.RGBA) {
	r.mu.Lock()
	r.thumbnail = img
	r.thumbnailPath = path
	r.thumbnailBG = bg
	r.thumbnailLoaded = true
	r.mu.Unlock()
}

// RowID returns the record's identity for repaint targeting.
func (r *Record) RowID() RowID {
	return RowID{
		TaskFolder: r.TaskFolder,
		DataType:   r.Type,
		Path:       r.Path,
		Row:        r.ID(),
	}
}

// IsSequence reports whether the record is a collapsed sequence.
func (r *Record) IsSequence() bool { return r.Type == SequenceItem }
