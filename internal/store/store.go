// Package store owns the canonical per-task-folder item collections: the
// dual file/sequence buckets, dense row numbering, sort state and the
// authoritative flag-toggle path that keeps the two representations in sync.
package store

import (
	"sort"
	"sync"
	"time"

	"bookmarks-browser/internal/items"
	"bookmarks-browser/internal/logging"
	"bookmarks-browser/internal/metrics"
)

// bucket is one ordered slice of records. Row indices are dense integers
// 0..N-1 and every record's Id matches its physical index after any sort.
type bucket []*items.Record

// Store holds records per task folder, per data type. A full rebuild bumps
// the generation counter, which invalidates every Handle issued before it:
// that is how async consumers notice the record they hold was rebuilt out
// from under them.
type Store struct {
	mu sync.RWMutex

	generation uint64
	taskFolder string
	dataType   items.DataType

	sortRole      items.SortRole
	sortAscending bool

	buckets map[string]map[items.DataType]bucket
	byPath  map[string]map[items.DataType]map[string]*items.Record
	loaded  map[string]map[items.DataType]bool

	flags      FlagPersister
	favourites FavouritePersister

	// mirrorChecks re-verifies the sequence/file flag mirror after every
	// toggle. Enabled in debug builds.
	mirrorChecks bool
}

// Persistence wires the two flag-persistence targets into the store. Archived
// state goes to the per-bookmark metadata database, favourites to the local
// user settings. Either may be nil, which skips that persistence step.
type Persistence struct {
	Flags      FlagPersister
	Favourites FavouritePersister
}

// NewStore returns an empty store sorted by name, ascending.
func NewStore(p Persistence) *Store {
	return &Store{
		sortAscending: true,
		buckets:       make(map[string]map[items.DataType]bucket),
		byPath:        make(map[string]map[items.DataType]map[string]*items.Record),
		loaded:        make(map[string]map[items.DataType]bool),
		flags:         p.Flags,
		favourites:    p.Favourites,
	}
}

// EnableMirrorChecks turns on post-toggle mirror verification.
func (s *Store) EnableMirrorChecks() {
	s.mu.Lock()
	s.mirrorChecks = true
	s.mu.Unlock()
}

// Generation returns the current rebuild generation.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// TaskFolder returns the current task folder.
func (s *Store) TaskFolder() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.taskFolder
}

// SetTaskFolder switches the current task folder. The caller is responsible
// for the surrounding choreography (queue resets, reload, filter invalidate).
func (s *Store) SetTaskFolder(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taskFolder == name {
		return false
	}
	s.taskFolder = name
	return true
}

// DataType returns the current data type.
func (s *Store) DataType() items.DataType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataType
}

// SetDataType switches between the file and sequence representations.
func (s *Store) SetDataType(dt items.DataType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dataType == dt {
		return false
	}
	s.dataType = dt
	return true
}

// SortState returns the current sort role and direction.
func (s *Store) SortState() (items.SortRole, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortRole, s.sortAscending
}

// ResetAndReload rebuilds the current task folder's buckets from scratch.
// The generation bump happens before populate runs, so workers holding
// handles into the old buckets go stale immediately. A populate failure
// leaves a valid empty store, never a partially filled one.
func (s *Store) ResetAndReload(populate func() (files, sequences []*items.Record, err error)) error {
	s.mu.Lock()
	task := s.taskFolder
	s.generation++
	s.clearLocked(task)
	s.mu.Unlock()

	metrics.StoreResetsTotal.Inc()

	files, sequences, err := populate()
	if err != nil {
		logging.Error("Populate failed for task folder %q: %v", task, err)
		return err
	}

	s.Install(task, items.FileItem, files)
	s.Install(task, items.SequenceItem, sequences)
	return nil
}

func (s *Store) clearLocked(task string) {
	delete(s.buckets, task)
	delete(s.byPath, task)
	delete(s.loaded, task)
}

// Install replaces one bucket wholesale: sorts by the current sort state,
// renumbers, and indexes by path.
func (s *Store) Install(task string, dt items.DataType, records []*items.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := bucket(records)
	sortBucket(b, s.sortRole, s.sortAscending)
	renumber(b)

	if s.buckets[task] == nil {
		s.buckets[task] = make(map[items.DataType]bucket)
		s.byPath[task] = make(map[items.DataType]map[string]*items.Record)
		s.loaded[task] = make(map[items.DataType]bool)
	}
	s.buckets[task][dt] = b

	index := make(map[string]*items.Record, len(b))
	for _, r := range b {
		index[r.Path] = r
	}
	s.byPath[task][dt] = index

	metrics.StoreItems.WithLabelValues(dt.String()).Set(float64(len(b)))
}

// Sort re-sorts every bucket by role and renumbers rows. An unsupported role
// falls back to name order.
func (s *Store) Sort(role items.SortRole, ascending bool) {
	start := time.Now()

	s.mu.Lock()
	switch role {
	case items.SortByName, items.SortBySize, items.SortByLastModified:
	default:
		role = items.SortByName
	}
	s.sortRole = role
	s.sortAscending = ascending

	for _, types := range s.buckets {
		for _, b := range types {
			sortBucket(b, role, ascending)
			renumber(b)
		}
	}
	s.mu.Unlock()

	metrics.StoreSortDuration.WithLabelValues(role.String()).Observe(time.Since(start).Seconds())
}

func sortBucket(b bucket, role items.SortRole, ascending bool) {
	sort.SliceStable(b, func(i, j int) bool {
		less := recordLess(b[i], b[j], role)
		if ascending {
			return less
		}
		return recordLess(b[j], b[i], role)
	})
}

func recordLess(a, b *items.Record, role items.SortRole) bool {
	switch role {
	case items.SortBySize:
		if a.SortSize != b.SortSize {
			return a.SortSize < b.SortSize
		}
	case items.SortByLastModified:
		if !a.SortModTime.Equal(b.SortModTime) {
			return a.SortModTime.Before(b.SortModTime)
		}
	}
	return a.SortName < b.SortName
}

func renumber(b bucket) {
	for i, r := range b {
		r.SetID(i)
	}
}

// Records returns a snapshot of one bucket. The returned slice is a copy;
// the records it points at are shared.
func (s *Store) Records(task string, dt items.DataType) []*items.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b := s.buckets[task][dt]
	out := make([]*items.Record, len(b))
	copy(out, b)
	return out
}

// CurrentRecords returns a snapshot of the current task folder and data type.
func (s *Store) CurrentRecords() []*items.Record {
	s.mu.RLock()
	task, dt := s.taskFolder, s.dataType
	s.mu.RUnlock()
	return s.Records(task, dt)
}

// RecordAt returns the record at row in the current bucket.
func (s *Store) RecordAt(row int) (*items.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b := s.buckets[s.taskFolder][s.dataType]
	if row < 0 || row >= len(b) {
		return nil, false
	}
	return b[row], true
}

// Lookup resolves a record by its canonical path.
func (s *Store) Lookup(task string, dt items.DataType, path string) (*items.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byPath[task][dt][path]
	return r, ok
}

// Len returns the number of records in one bucket.
func (s *Store) Len(task string, dt items.DataType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buckets[task][dt])
}

// ActiveIndex scans the current bucket for the record marked active.
// Activation is a rare, user-driven operation; a linear scan suffices.
func (s *Store) ActiveIndex() (int, bool) {
	s.mu.RLock()
	b := s.buckets[s.taskFolder][s.dataType]
	snapshot := make([]*items.Record, len(b))
	copy(snapshot, b)
	s.mu.RUnlock()

	for i, r := range snapshot {
		if r.Flags().Has(items.MarkedAsActive) {
			return i, true
		}
	}
	return -1, false
}

// MarkLoaded latches the "full discovery pass completed" flag for one data
// type of the current task folder. Idempotent.
func (s *Store) MarkLoaded(dt items.DataType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded[s.taskFolder] == nil {
		s.loaded[s.taskFolder] = make(map[items.DataType]bool)
	}
	s.loaded[s.taskFolder][dt] = true
}

// Loaded reports whether a full discovery pass completed for one data type
// of the current task folder.
func (s *Store) Loaded(dt items.DataType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded[s.taskFolder][dt]
}

// Handle is a generation-tagged, non-owning reference to a record. Workers
// hold handles, never rows: a resort moves rows but keeps handles valid,
// while a store rebuild invalidates them wholesale.
type Handle struct {
	store      *Store
	generation uint64
	record     *items.Record
}

// HandleFor issues a handle tagged with the current generation.
func (s *Store) HandleFor(r *items.Record) Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Handle{store: s, generation: s.generation, record: r}
}

// Resolve returns the referenced record, or false when the store has been
// rebuilt since the handle was issued.
func (h Handle) Resolve() (*items.Record, bool) {
	if h.store == nil || h.record == nil {
		return nil, false
	}
	h.store.mu.RLock()
	live := h.generation == h.store.generation
	h.store.mu.RUnlock()
	if !live {
		return nil, false
	}
	return h.record, true
}
