package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"bookmarks-browser/internal/items"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
}

func TestScanCollapsesSequences(t *testing.T) {
	root := t.TempDir()
	task := filepath.Join(root, "renders")
	if err := os.Mkdir(task, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, task,
		"render.0001.exr",
		"render.0002.exr",
		"render.0003.exr",
		"reference.png",
	)

	s, err := New(root, []string{"server", "job", "root"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	files, sequences, err := s.Scan("renders")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(files) != 4 {
		t.Fatalf("file bucket has %d records, want 4", len(files))
	}
	if len(sequences) != 2 {
		t.Fatalf("sequence bucket has %d records, want collapsed sequence + loose file", len(sequences))
	}

	var seq *items.Record
	for _, r := range sequences {
		if r.IsSequence() {
			seq = r
		}
	}
	if seq == nil {
		t.Fatal("no collapsed sequence in sequence bucket")
	}
	if seq.Path != filepath.Join(task, "render.%04d.exr") {
		t.Errorf("sequence path = %s", seq.Path)
	}
	if len(seq.Frames) != 3 {
		t.Errorf("sequence has %d frames, want 3", len(seq.Frames))
	}
	if seq.SortSize != 3 {
		t.Errorf("sequence size = %d, want sum of member sizes", seq.SortSize)
	}
	if seq.TaskFolder != "renders" {
		t.Errorf("sequence task folder = %q", seq.TaskFolder)
	}
}

func TestScanSkipsHiddenDirectoriesAndUnbrowsable(t *testing.T) {
	root := t.TempDir()
	task := filepath.Join(root, "renders")
	if err := os.MkdirAll(filepath.Join(task, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, task, "shot.mov", ".hidden.exr", "notes.txt")

	s, err := New(root, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	files, _, err := s.Scan("renders")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 1 || files[0].Name != "shot.mov" {
		t.Errorf("files = %v, want only shot.mov", recordNames(files))
	}
}

func TestScanExcludePatterns(t *testing.T) {
	root := t.TempDir()
	task := filepath.Join(root, "renders")
	if err := os.Mkdir(task, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, task, "final.exr", "final_tmp.exr", "scratch.exr")

	s, err := New(root, nil, []string{"*_tmp.*", "scratch.*"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	files, _, err := s.Scan("renders")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 1 || files[0].Name != "final.exr" {
		t.Errorf("files = %v, want only final.exr", recordNames(files))
	}
}

func TestScanMissingFolderYieldsEmpty(t *testing.T) {
	s, err := New(t.TempDir(), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	files, sequences, err := s.Scan("does-not-exist")
	if err != nil {
		t.Fatalf("missing folder must not error, got %v", err)
	}
	if len(files) != 0 || len(sequences) != 0 {
		t.Errorf("missing folder yielded %d files, %d sequences", len(files), len(sequences))
	}
}

func TestBadExcludePattern(t *testing.T) {
	if _, err := New(t.TempDir(), nil, []string{"[unterminated"}); err == nil {
		t.Error("malformed glob must be rejected at construction")
	}
}

func recordNames(records []*items.Record) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	return names
}
