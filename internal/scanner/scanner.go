// Package scanner discovers the contents of a task folder and produces both
// list representations: individual files and collapsed frame-sequences.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bookmarks-browser/internal/formats"
	"bookmarks-browser/internal/items"
	"bookmarks-browser/internal/logging"
	"bookmarks-browser/internal/metrics"

	"github.com/gobwas/glob"
)

// Scanner reads one task folder at a time, one directory level deep.
// Discovery is a full rebuild, not an incremental diff.
type Scanner struct {
	root     string
	parent   []string
	excludes []glob.Glob
}

// New creates a scanner rooted at the asset root. parent carries the
// hierarchical location (server, job, root, ...) stamped onto every record.
// excludePatterns are glob patterns matched against entry names.
func New(root string, parent []string, excludePatterns []string) (*Scanner, error) {
	s := &Scanner{root: root, parent: parent}
	for _, pattern := range excludePatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad exclude pattern %q: %w", pattern, err)
		}
		s.excludes = append(s.excludes, g)
	}
	return s, nil
}

// Root returns the scanner's asset root.
func (s *Scanner) Root() string { return s.root }

// TaskFolderPath returns the absolute path of one task folder.
func (s *Scanner) TaskFolderPath(taskFolder string) string {
	return filepath.Join(s.root, taskFolder)
}

// Scan discovers taskFolder and returns both buckets. An unreadable folder
// (missing, permission denied) yields empty buckets rather than an error so
// a reload always lands in a valid state.
func (s *Scanner) Scan(taskFolder string) (files, sequences []*items.Record, err error) {
	metrics.ScannerRunsTotal.Inc()

	dir := s.TaskFolderPath(taskFolder)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) || os.IsPermission(err) {
			logging.Warn("Task folder unreadable, treating as empty: %s: %v", dir, err)
			metrics.ScannerErrors.Inc()
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("reading task folder %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if s.excluded(entry.Name()) {
			continue
		}
		if !formats.IsBrowsable(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			logging.Debug("Skipping unreadable entry %s: %v", entry.Name(), err)
			metrics.ScannerErrors.Inc()
			continue
		}

		r := items.NewRecord(entry.Name(), filepath.Join(dir, entry.Name()), s.parent, taskFolder, items.FileItem)
		r.SortSize = info.Size()
		r.SortModTime = info.ModTime()
		files = append(files, r)
	}

	sequences = collapse(files, s.parent, taskFolder)

	metrics.ScannerEntriesDiscovered.WithLabelValues(items.FileItem.String()).Add(float64(len(files)))
	metrics.ScannerEntriesDiscovered.WithLabelValues(items.SequenceItem.String()).Add(float64(len(sequences)))
	return files, sequences, nil
}

func (s *Scanner) excluded(name string) bool {
	for _, g := range s.excludes {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// collapse builds the sequence representation: frame files sharing a proxy
// path fold into one sequence record; files without siblings carry over as
// they are, so the collapsed view still lists every asset.
func collapse(files []*items.Record, parent []string, taskFolder string) []*items.Record {
	groups := make(map[string][]*items.Record)
	var order []string

	for _, f := range files {
		proxy, ok := items.ProxyPath(f.Path)
		if !ok {
			proxy = f.Path
		}
		if _, seen := groups[proxy]; !seen {
			order = append(order, proxy)
		}
		groups[proxy] = append(groups[proxy], f)
	}

	var out []*items.Record
	for _, proxy := range order {
		members := groups[proxy]
		if len(members) < 2 {
			// A lone frame is just a file; re-issue it as a separate record
			// so row numbering stays independent per bucket.
			out = append(out, cloneFileRecord(members[0]))
			continue
		}
		out = append(out, sequenceRecord(proxy, members, parent, taskFolder))
	}
	return out
}

func cloneFileRecord(f *items.Record) *items.Record {
	r := items.NewRecord(f.Name, f.Path, f.ParentPath, f.TaskFolder, items.FileItem)
	r.SortSize = f.SortSize
	r.SortModTime = f.SortModTime
	return r
}

func sequenceRecord(proxy string, members []*items.Record, parent []string, taskFolder string) *items.Record {
	r := items.NewRecord(filepath.Base(proxy), proxy, parent, taskFolder, items.SequenceItem)

	frames := make([]string, 0, len(members))
	for _, m := range members {
		frames = append(frames, m.Path)
		r.SortSize += m.SortSize
		if m.SortModTime.After(r.SortModTime) {
			r.SortModTime = m.SortModTime
		}
	}
	sort.Strings(frames)
	r.Frames = frames
	return r
}
