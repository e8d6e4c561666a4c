package settings

import (
	"sort"
	"testing"

	"bookmarks-browser/internal/filter"
	"bookmarks-browser/internal/items"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
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

func TestFilterStateRoundTrip(t *testing.T) {
	s := openTestStore(t)

	state := filter.State{Text: `comp --"/cache/"`, ShowArchived: true}
	if err := s.SaveFilter("files", "renders", state); err != nil {
		t.Fatalf("SaveFilter() error: %v", err)
	}

	got, err := s.LoadFilter("files", "renders")
	if err != nil {
		t.Fatalf("LoadFilter() error: %v", err)
	}
	if got != state {
		t.Errorf("LoadFilter() = %+v, want %+v", got, state)
	}

	// Unsaved task folder yields the zero state, not an error.
	got, err = s.LoadFilter("files", "exports")
	if err != nil || got != (filter.State{}) {
		t.Errorf("LoadFilter(unsaved) = %+v, %v", got, err)
	}
}

func TestSortRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveSort("files", "scenes", items.SortBySize, false); err != nil {
		t.Fatalf("SaveSort() error: %v", err)
	}

	role, ascending, err := s.LoadSort("files", "scenes")
	if err != nil {
		t.Fatalf("LoadSort() error: %v", err)
	}
	if role != items.SortBySize || ascending {
		t.Errorf("LoadSort() = %v/%v, want size/descending", role, ascending)
	}

	// Default is an ascending name sort.
	role, ascending, err = s.LoadSort("files", "never-saved")
	if err != nil || role != items.SortByName || !ascending {
		t.Errorf("LoadSort(default) = %v/%v, %v", role, ascending, err)
	}
}

func TestRowHeightAndSelection(t *testing.T) {
	s := openTestStore(t)

	if got := s.RowHeight("files", 34); got != 34 {
		t.Errorf("RowHeight(default) = %d, want 34", got)
	}
	if err := s.SetRowHeight("files", 96); err != nil {
		t.Fatalf("SetRowHeight() error: %v", err)
	}
	if got := s.RowHeight("files", 34); got != 96 {
		t.Errorf("RowHeight() = %d, want 96", got)
	}

	if err := s.SetLastSelection("files", "renders", "/jobs/a/render.%04d.exr"); err != nil {
		t.Fatalf("SetLastSelection() error: %v", err)
	}
	if got := s.LastSelection("files", "renders"); got != "/jobs/a/render.%04d.exr" {
		t.Errorf("LastSelection() = %q", got)
	}
}

func TestFavouritesSet(t *testing.T) {
	s := openTestStore(t)

	if s.IsFavourite("/Jobs/A/Render.0001.EXR") {
		t.Fatal("fresh store must have no favourites")
	}

	if err := s.SetFavourite("/Jobs/A/Render.0001.EXR", true); err != nil {
		t.Fatalf("SetFavourite() error: %v", err)
	}

	// Lookups are case-insensitive because the set is lower-cased.
	if !s.IsFavourite("/jobs/a/render.0001.exr") {
		t.Error("lower-cased lookup must hit")
	}
	if !s.IsFavourite("/JOBS/A/RENDER.0001.EXR") {
		t.Error("upper-cased lookup must hit")
	}

	if err := s.SetFavourite("/jobs/b/plate.%04d.dpx", true); err != nil {
		t.Fatalf("SetFavourite() error: %v", err)
	}

	favs := s.Favourites()
	sort.Strings(favs)
	want := []string{"/jobs/a/render.0001.exr", "/jobs/b/plate.%04d.dpx"}
	if len(favs) != len(want) {
		t.Fatalf("Favourites() = %v, want %v", favs, want)
	}
	for i := range favs {
		if favs[i] != want[i] {
			t.Errorf("Favourites()[%d] = %q, want %q", i, favs[i], want[i])
		}
	}

	if err := s.SetFavourite("/jobs/a/render.0001.exr", false); err != nil {
		t.Fatalf("SetFavourite(off) error: %v", err)
	}
	if s.IsFavourite("/jobs/a/render.0001.exr") {
		t.Error("removed favourite still present")
	}

	// Removing an absent favourite is a no-op, not an error.
	if err := s.SetFavourite("/never/added", false); err != nil {
		t.Errorf("SetFavourite(absent, off) error: %v", err)
	}
}
