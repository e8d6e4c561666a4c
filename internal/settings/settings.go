package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"git.mills.io/prologic/bitcask"

	"bookmarks-browser/internal/filter"
	"bookmarks-browser/internal/items"
	"bookmarks-browser/internal/logging"
)

// ErrNotFound is returned when a settings key has no stored value.
var ErrNotFound = errors.New("setting not found")

const favouritePrefix = "favourites/"

// Store is the local user-settings store: small per-view UI state and the
// global favourites set. Values are scoped by an explicit namespace passed
// at call time, never derived from runtime type names.
type Store struct {
	db *bitcask.Bitcask
	mu sync.RWMutex
}

// Open opens (creating if needed) the settings store at dir.
func Open(dir string) (*Store, error) {
	// Keys embed full paths, so the default key-size cap is too small.
	db, err := bitcask.Open(dir,
		bitcask.WithMaxKeySize(4096),
		bitcask.WithSync(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}
	logging.Debug("Settings store opened: %s", dir)
	return &Store{db: db}, nil
}

// Close closes the settings store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func scopedKey(namespace, taskFolder, field string) []byte {
	return []byte(fmt.Sprintf("view/%s/%s/%s", namespace, taskFolder, field))
}

func (s *Store) put(key []byte, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Put(key, value)
}

func (s *Store) get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, err := s.db.Get(key)
	if errors.Is(err, bitcask.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

// SaveFilter persists a view's filter state for one task folder.
func (s *Store) SaveFilter(namespace, taskFolder string, state filter.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.put(scopedKey(namespace, taskFolder, "filter"), payload)
}

// LoadFilter returns the persisted filter state, or the zero state when none
// was saved yet.
func (s *Store) LoadFilter(namespace, taskFolder string) (filter.State, error) {
	payload, err := s.get(scopedKey(namespace, taskFolder, "filter"))
	if errors.Is(err, ErrNotFound) {
		return filter.State{}, nil
	}
	if err != nil {
		return filter.State{}, err
	}

	var state filter.State
	if err := json.Unmarshal(payload, &state); err != nil {
		return filter.State{}, err
	}
	return state, nil
}

// SaveSort persists a view's sort role and direction.
func (s *Store) SaveSort(namespace, taskFolder string, role items.SortRole, ascending bool) error {
	return s.put(scopedKey(namespace, taskFolder, "sort"),
		[]byte(fmt.Sprintf("%d/%t", role, ascending)))
}

// LoadSort returns the persisted sort role and direction, defaulting to an
// ascending name sort.
func (s *Store) LoadSort(namespace, taskFolder string) (items.SortRole, bool, error) {
	payload, err := s.get(scopedKey(namespace, taskFolder, "sort"))
	if errors.Is(err, ErrNotFound) {
		return items.SortByName, true, nil
	}
	if err != nil {
		return items.SortByName, true, err
	}

	parts := strings.SplitN(string(payload), "/", 2)
	if len(parts) != 2 {
		return items.SortByName, true, nil
	}
	role, err := strconv.Atoi(parts[0])
	if err != nil {
		return items.SortByName, true, nil
	}
	ascending := parts[1] == "true"
	return items.SortRole(role), ascending, nil
}

// SetRowHeight persists a view's row height.
func (s *Store) SetRowHeight(namespace string, height int) error {
	return s.put(scopedKey(namespace, "", "rowheight"), []byte(strconv.Itoa(height)))
}

// RowHeight returns the persisted row height, or fallback when unset.
func (s *Store) RowHeight(namespace string, fallback int) int {
	payload, err := s.get(scopedKey(namespace, "", "rowheight"))
	if err != nil {
		return fallback
	}
	height, err := strconv.Atoi(string(payload))
	if err != nil || height <= 0 {
		return fallback
	}
	return height
}

// SetLastSelection persists the last-selected item path for a task folder.
func (s *Store) SetLastSelection(namespace, taskFolder, path string) error {
	return s.put(scopedKey(namespace, taskFolder, "selection"), []byte(path))
}

// LastSelection returns the last-selected item path, or "" when unset.
func (s *Store) LastSelection(namespace, taskFolder string) string {
	payload, err := s.get(scopedKey(namespace, taskFolder, "selection"))
	if err != nil {
		return ""
	}
	return string(payload)
}

// SetFavourite adds or removes a path from the global favourites set.
// Paths are stored lower-cased: favourite state is shared between the file
// and sequence representations regardless of filesystem case.
func (s *Store) SetFavourite(path string, on bool) error {
	key := []byte(favouritePrefix + strings.ToLower(path))

	s.mu.Lock()
	defer s.mu.Unlock()

	if on {
		return s.db.Put(key, []byte("1"))
	}
	if !s.db.Has(key) {
		return nil
	}
	return s.db.Delete(key)
}

// IsFavourite reports whether a path is in the favourites set.
func (s *Store) IsFavourite(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Has([]byte(favouritePrefix + strings.ToLower(path)))
}

// Favourites returns the full favourites set (lower-cased paths).
func (s *Store) Favourites() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var paths []string
	err := s.db.Scan([]byte(favouritePrefix), func(key []byte) error {
		paths = append(paths, strings.TrimPrefix(string(key), favouritePrefix))
		return nil
	})
	if err != nil {
		logging.Warn("Favourites scan failed: %v", err)
	}
	return paths
}
