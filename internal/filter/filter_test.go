package filter

import (
	"testing"

	"bookmarks-browser/internal/items"
)

func record(desc, details string) *items.Record {
	rec := items.NewRecord("bar.exr", "foo/bar.exr", nil, "renders", items.FileItem)
	rec.SetDescription(desc)
	rec.SetFileDetails(details)
	return rec
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []Token
	}{
		{
			name:     "Plain token",
			text:     "bar",
			expected: []Token{{Needle: "bar"}},
		},
		{
			name: "Inclusion and exclusion",
			text: "bar --exr",
			expected: []Token{
				{Needle: "bar"},
				{Needle: "exr", Exclude: true},
			},
		},
		{
			name:     "Quoted phrase",
			text:     `"bar.exr"`,
			expected: []Token{{Needle: "bar.exr"}},
		},
		{
			name:     "Excluded quoted phrase",
			text:     `--"/cache/"`,
			expected: []Token{{Needle: "/cache/", Exclude: true}},
		},
		{
			name: "Mixed case lowered",
			text: `Bar --EXR`,
			expected: []Token{
				{Needle: "bar"},
				{Needle: "exr", Exclude: true},
			},
		},
		{
			name:     "Empty",
			text:     "   ",
			expected: nil,
		},
		{
			name:     "Quoted phrase with space",
			text:     `"final comp"`,
			expected: []Token{{Needle: "final comp"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if len(got) != len(tt.expected) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.text, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("token %d = %+v, want %+v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

// Pins the haystack composition: path, description and file details all match.
func TestTextFilterRoundTrip(t *testing.T) {
	rec := record("describes the bar", "120MB")

	tests := []struct {
		text     string
		accepted bool
	}{
		{"bar --exr", false}, // haystack contains exr, which is excluded
		{"bar", true},
		{`"bar.exr"`, true}, // quoted phrase is one inclusion token
		{"missing", false},
		{"describes 120mb", true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			p := NewProxy()
			p.SetState(State{Text: tt.text})
			if got := p.Accepts(rec); got != tt.accepted {
				t.Errorf("Accepts with filter %q = %v, want %v", tt.text, got, tt.accepted)
			}
		})
	}
}

func TestExclusionPhrase(t *testing.T) {
	rec := items.NewRecord("render.exr", "/project/cache/render.exr", nil, "exports", items.FileItem)

	p := NewProxy()
	p.SetState(State{Text: `--"/cache/"`})
	if p.Accepts(rec) {
		t.Error("row containing excluded phrase must be rejected")
	}
}

// Pins the deliberate flag precedence: active-only > hide-archived > favourites-only.
func TestFlagPrecedence(t *testing.T) {
	rec := record("", "")
	rec.SetFlag(items.MarkedAsActive, true)
	rec.SetFlag(items.MarkedAsArchived, true)

	p := NewProxy()
	p.SetState(State{ActiveOnly: true, ShowArchived: false, FavouritesOnly: true})

	// active=true, archived=true, favourite=false: active-only dominates.
	if !p.Accepts(rec) {
		t.Error("active-only must accept the active row regardless of archive/favourite state")
	}
}

func TestFlagGate(t *testing.T) {
	tests := []struct {
		name     string
		flags    items.Flags
		state    State
		accepted bool
	}{
		{
			name:     "Archived hidden by default",
			flags:    items.MarkedAsArchived,
			state:    State{},
			accepted: false,
		},
		{
			name:     "Archived shown when toggled",
			flags:    items.MarkedAsArchived,
			state:    State{ShowArchived: true},
			accepted: true,
		},
		{
			name:     "Favourites only rejects non-favourite",
			flags:    0,
			state:    State{FavouritesOnly: true},
			accepted: false,
		},
		{
			name:     "Favourites only accepts favourite",
			flags:    items.MarkedAsFavourite,
			state:    State{FavouritesOnly: true},
			accepted: true,
		},
		{
			name:     "Active-only rejects inactive favourite",
			flags:    items.MarkedAsFavourite,
			state:    State{ActiveOnly: true},
			accepted: false,
		},
		{
			name:     "Archived favourite still hidden when archived hidden",
			flags:    items.MarkedAsArchived | items.MarkedAsFavourite,
			state:    State{FavouritesOnly: true},
			accepted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := record("", "")
			rec.ReplaceFlags(tt.flags)

			p := NewProxy()
			p.SetState(tt.state)
			if got := p.Accepts(rec); got != tt.accepted {
				t.Errorf("Accepts = %v, want %v", got, tt.accepted)
			}
		})
	}
}

func TestNilRecordRejected(t *testing.T) {
	p := NewProxy()
	if p.Accepts(nil) {
		t.Error("mid-rebuild lookups resolve to nil and must be rejected")
	}
}
