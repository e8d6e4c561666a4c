package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func testBookmark(t *testing.T) Bookmark {
	t.Helper()
	dir := t.TempDir()
	return Bookmark{Server: dir, Job: "job", Root: "shots"}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), testBookmark(t))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() error: %v", err)
		}
	})
	return s
}

func TestBookmarkPaths(t *testing.T) {
	b := Bookmark{Server: "/mnt/srv", Job: "showA", Root: "shots"}
	if got := b.Path(); got != filepath.Join("/mnt/srv", "showA", "shots") {
		t.Errorf("Path() = %q", got)
	}
	if got := b.DatabasePath(); got != filepath.Join(b.Path(), ".bookmarks", "bookmark.db") {
		t.Errorf("DatabasePath() = %q", got)
	}
}

func TestDescriptionRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	s := openTestStore(t)
	ctx := context.Background()

	key := "/srv/job/shots/render.%04d.exr"

	if _, err := s.GetDescription(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.SetDescription(ctx, key, "final comp, approved"); err != nil {
		t.Fatalf("SetDescription() error: %v", err)
	}

	got, err := s.GetDescription(ctx, key)
	if err != nil {
		t.Fatalf("GetDescription() error: %v", err)
	}
	if got != "final comp, approved" {
		t.Errorf("GetDescription() = %q", got)
	}
}

func TestFlagsRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	s := openTestStore(t)
	ctx := context.Background()

	key := "/srv/job/shots/plate.0001.dpx"

	if _, err := s.GetFlags(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.SetFlags(ctx, key, 0b10); err != nil {
		t.Fatalf("SetFlags() error: %v", err)
	}

	flags, err := s.GetFlags(ctx, key)
	if err != nil {
		t.Fatalf("GetFlags() error: %v", err)
	}
	if flags != 0b10 {
		t.Errorf("GetFlags() = %b, want %b", flags, 0b10)
	}

	// Flags and description live in the same row; updating one must not
	// clobber the other.
	if err := s.SetDescription(ctx, key, "scan plate"); err != nil {
		t.Fatalf("SetDescription() error: %v", err)
	}
	flags, err = s.GetFlags(ctx, key)
	if err != nil || flags != 0b10 {
		t.Errorf("flags after description write = %b (err %v), want %b", flags, err, 0b10)
	}
}

func TestBatchScope(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	s := openTestStore(t)
	ctx := context.Background()

	batch, err := s.BeginBatch()
	if err != nil {
		t.Fatalf("BeginBatch() error: %v", err)
	}
	for i, key := range []string{"a.exr", "b.exr", "c.exr"} {
		if err := s.UpsertItem(batch, key, "batch", uint32(i)); err != nil {
			t.Fatalf("UpsertItem() error: %v", err)
		}
	}
	if err := s.EndBatch(batch, nil); err != nil {
		t.Fatalf("EndBatch() error: %v", err)
	}

	stats, err := s.CalculateStats(ctx, 0b10, 0b100)
	if err != nil {
		t.Fatalf("CalculateStats() error: %v", err)
	}
	if stats.Items != 3 || stats.Described != 3 {
		t.Errorf("stats = %+v, want 3 items, 3 described", stats)
	}
}

func TestBatchRollback(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	s := openTestStore(t)
	ctx := context.Background()

	batch, err := s.BeginBatch()
	if err != nil {
		t.Fatalf("BeginBatch() error: %v", err)
	}
	if err := s.UpsertItem(batch, "doomed.exr", "never lands", 0); err != nil {
		t.Fatalf("UpsertItem() error: %v", err)
	}

	failure := errors.New("caller decided to abort")
	if err := s.EndBatch(batch, failure); !errors.Is(err, failure) {
		t.Fatalf("EndBatch() = %v, want wrapped caller error", err)
	}

	if _, err := s.GetDescription(ctx, "doomed.exr"); !errors.Is(err, ErrNotFound) {
		t.Errorf("rolled-back row is visible: %v", err)
	}
}

// Two batches open at once must not share state; each tracks its own
// lifetime and commits its own rows.
func TestOverlappingBatches(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.BeginBatch()
	if err != nil {
		t.Fatalf("BeginBatch() error: %v", err)
	}
	second, err := s.BeginBatch()
	if err != nil {
		t.Fatalf("BeginBatch() error: %v", err)
	}

	if err := s.UpsertItem(first, "one.exr", "first batch", 0); err != nil {
		t.Fatalf("UpsertItem() error: %v", err)
	}
	if err := s.EndBatch(first, nil); err != nil {
		t.Fatalf("EndBatch(first) error: %v", err)
	}

	if err := s.UpsertItem(second, "two.exr", "second batch", 0); err != nil {
		t.Fatalf("UpsertItem() error: %v", err)
	}
	if err := s.EndBatch(second, nil); err != nil {
		t.Fatalf("EndBatch(second) error: %v", err)
	}

	stats, err := s.CalculateStats(ctx, 0b10, 0b100)
	if err != nil {
		t.Fatalf("CalculateStats() error: %v", err)
	}
	if stats.Items != 2 {
		t.Errorf("stats.Items = %d, want 2", stats.Items)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.GetMetadata(ctx, "framerate"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.SetMetadata(ctx, "framerate", "24"); err != nil {
		t.Fatalf("SetMetadata() error: %v", err)
	}
	got, err := s.GetMetadata(ctx, "framerate")
	if err != nil || got != "24" {
		t.Errorf("GetMetadata() = %q, %v", got, err)
	}
}
