package store

import (
	"context"
	"errors"
	"fmt"

	"bookmarks-browser/internal/items"
	"bookmarks-browser/internal/logging"
	"bookmarks-browser/internal/metrics"
)

// FlagPersister persists a record's flag bitmask to the per-bookmark
// metadata store, keyed by canonical path.
type FlagPersister interface {
	SetFlags(ctx context.Context, key string, flags uint32) error
}

// FavouritePersister persists favourite membership to the local user
// settings. Paths are lower-cased by the settings store itself.
type FavouritePersister interface {
	SetFavourite(path string, on bool) error
}

var (
	// ErrSequenceFlagConflict means a per-frame toggle was refused because the
	// collapsed sequence already carries the flag. The sequence must be
	// toggled instead, otherwise one frame would diverge from its sequence.
	ErrSequenceFlagConflict = errors.New("the whole sequence carries this flag; toggle the sequence instead of a single frame")

	// ErrMirrorDiverged means the sequence and file representations of the
	// same asset disagree on a flag after a toggle. Should be impossible
	// since all toggles go through ToggleFlag.
	ErrMirrorDiverged = errors.New("sequence/file flag mirror diverged")
)

// ToggleFlag is the single authoritative mutation path for archive, favourite
// and active state. It persists first, applies in memory second, then mirrors
// the new state across the file/sequence buckets synchronously. desired nil
// means "flip the current state". Returns the resulting state.
//
// A persistence failure propagates to the caller and leaves the in-memory
// flag untouched, so memory never drifts ahead of the stores.
func (s *Store) ToggleFlag(ctx context.Context, r *items.Record, flag items.Flags, desired *bool) (bool, error) {
	want := !r.Flags().Has(flag)
	if desired != nil {
		want = *desired
	}

	var err error
	switch flag {
	case items.MarkedAsActive:
		s.applyActive(r, want)
	case items.MarkedAsArchived, items.MarkedAsFavourite:
		err = s.toggleMirrored(ctx, r, flag, want)
	default:
		err = fmt.Errorf("unknown flag %#x", uint32(flag))
	}

	status := "success"
	switch {
	case errors.Is(err, ErrSequenceFlagConflict):
		status = "refused"
	case err != nil:
		status = "error"
	}
	metrics.FlagTogglesTotal.WithLabelValues(flagName(flag), status).Inc()

	if err != nil {
		return r.Flags().Has(flag), err
	}
	return want, nil
}

// applyActive sets or clears the active mark. At most one record per task
// folder carries it, across both buckets. Not persisted here; activation
// persistence is a higher-level concern.
func (s *Store) applyActive(r *items.Record, want bool) {
	if want {
		s.mu.RLock()
		types := s.buckets[r.TaskFolder]
		var others []*items.Record
		for _, b := range types {
			for _, other := range b {
				if other != r && other.Flags().Has(items.MarkedAsActive) {
					others = append(others, other)
				}
			}
		}
		s.mu.RUnlock()

		for _, other := range others {
			other.SetFlag(items.MarkedAsActive, false)
		}
	}
	r.SetFlag(items.MarkedAsActive, want)
}

func (s *Store) toggleMirrored(ctx context.Context, r *items.Record, flag items.Flags, want bool) error {
	proxy, isSequenceAsset := items.SharedProxyPath(r)

	var sequence *items.Record
	var members []*items.Record
	if isSequenceAsset {
		sequence, members = s.siblings(r.TaskFolder, proxy)
	}

	// Per-frame toggles may not contradict a flag held at sequence level.
	if !r.IsSequence() && sequence != nil && sequence.Flags().Has(flag) && !want {
		return ErrSequenceFlagConflict
	}

	if err := s.persist(ctx, r, flag, want); err != nil {
		return err
	}
	r.SetFlag(flag, want)

	// Mirror without re-persisting: one canonical write per toggle.
	switch {
	case r.IsSequence():
		for _, member := range members {
			member.SetFlag(flag, want)
		}
	case sequence != nil:
		sequence.SetFlag(flag, want)
	default:
		// A loose file appears in both buckets as two records sharing a path.
		for _, dt := range []items.DataType{items.FileItem, items.SequenceItem} {
			if twin, ok := s.Lookup(r.TaskFolder, dt, r.Path); ok && twin != r {
				twin.SetFlag(flag, want)
			}
		}
	}

	if s.mirrorChecksEnabled() && sequence != nil {
		if err := s.verifyMirror(r, proxy, flag); err != nil {
			logging.Error("Mirror check failed for %q: %v", proxy, err)
			return err
		}
	}
	return nil
}

func (s *Store) persist(ctx context.Context, r *items.Record, flag items.Flags, want bool) error {
	switch flag {
	case items.MarkedAsArchived:
		if s.flags == nil {
			return nil
		}
		// Only the archived bit lives in the metadata store. Favourite state
		// belongs to the local settings set and active is in-memory only, so
		// neither may leak into the persisted bitmask.
		next := r.Flags().With(flag, want) & items.MarkedAsArchived
		if err := s.flags.SetFlags(ctx, r.Path, uint32(next)); err != nil {
			return fmt.Errorf("persisting flags for %s: %w", r.Path, err)
		}
	case items.MarkedAsFavourite:
		if s.favourites == nil {
			return nil
		}
		if err := s.favourites.SetFavourite(r.Path, want); err != nil {
			return fmt.Errorf("persisting favourite for %s: %w", r.Path, err)
		}
	}
	return nil
}

// siblings resolves the sequence record and the file records sharing one
// proxy path within a task folder.
func (s *Store) siblings(task, proxy string) (sequence *items.Record, members []*items.Record) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sequence = s.byPath[task][items.SequenceItem][proxy]
	for _, r := range s.buckets[task][items.FileItem] {
		if p, ok := items.ProxyPath(r.Path); ok && p == proxy {
			members = append(members, r)
		}
	}
	return sequence, members
}

func (s *Store) mirrorChecksEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirrorChecks
}

// verifyMirror checks the directional mirror invariant after a toggle on
// record r: a sequence toggle must have reached every member frame, and a
// per-frame toggle must have reached the sequence record.
func (s *Store) verifyMirror(r *items.Record, proxy string, flag items.Flags) error {
	sequence, members := s.siblings(r.TaskFolder, proxy)
	if sequence == nil {
		return nil
	}

	want := r.Flags().Has(flag)
	if r.IsSequence() {
		for _, member := range members {
			if member.Flags().Has(flag) != want {
				return fmt.Errorf("%w: %s vs %s", ErrMirrorDiverged, proxy, member.Path)
			}
		}
		return nil
	}
	if sequence.Flags().Has(flag) != want {
		return fmt.Errorf("%w: %s vs %s", ErrMirrorDiverged, r.Path, proxy)
	}
	return nil
}

func flagName(flag items.Flags) string {
	switch flag {
	case items.MarkedAsActive:
		return "active"
	case items.MarkedAsArchived:
		return "archived"
	case items.MarkedAsFavourite:
		return "favourite"
	default:
		return "unknown"
	}
}
