package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"bookmarks-browser/internal/logging"
	"bookmarks-browser/internal/metrics"
)

// Default timeout for metadata store operations
const defaultTimeout = 5 * time.Second

// ErrNotFound is returned when an item key has no stored metadata.
var ErrNotFound = errors.New("key not found")

// Bookmark identifies the (server, job, root) triple a metadata store
// belongs to. One SQLite file exists per bookmark.
type Bookmark struct {
	Server string
	Job    string
	Root   string
}

// Path returns the absolute location of the bookmark's root folder.
func (b Bookmark) Path() string {
	return filepath.Join(b.Server, b.Job, b.Root)
}

// DatabasePath returns the location of the bookmark's metadata file.
func (b Bookmark) DatabasePath() string {
	return filepath.Join(b.Path(), ".bookmarks", "bookmark.db")
}

// Store is the per-bookmark metadata store. Items are keyed by canonical
// path (single files) or proxy path (collapsed sequences) and carry a
// description and a flags bitmask.
type Store struct {
	db       *sql.DB
	bookmark Bookmark
	mu       sync.RWMutex
}

// Open opens (creating if needed) the metadata store for a bookmark.
func Open(ctx context.Context, bookmark Bookmark) (*Store, error) {
	dbPath := bookmark.DatabasePath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory: %w", err)
	}

	// WAL and a busy timeout keep concurrent readers from tripping over the
	// occasional writer on shared storage.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close metadata store after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to metadata store: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, bookmark: bookmark}

	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close metadata store after init failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize metadata schema: %w", err)
	}

	logging.Debug("Metadata store opened: %s", dbPath)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	schema := `
	-- Per-item metadata, keyed by canonical path or sequence proxy path
	CREATE TABLE IF NOT EXISTS items (
		key TEXT PRIMARY KEY,
		description TEXT,
		flags INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_items_flags ON items(flags);

	-- Bookmark-level key/value metadata
	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Bookmark returns the store's owning bookmark.
func (s *Store) Bookmark() Bookmark { return s.bookmark }

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDescription returns the description for an item key.
// Returns ErrNotFound when the key has no row.
func (s *Store) GetDescription(ctx context.Context, key string) (string, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_description", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var description sql.NullString
	err = s.db.QueryRowContext(ctx,
		"SELECT description FROM items WHERE key = ?", key).Scan(&description)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return description.String, nil
}

// SetDescription stores the description for an item key, creating the row
// if needed. Write failures propagate to the caller.
func (s *Store) SetDescription(ctx context.Context, key, description string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_description", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO items (key, description, updated_at) VALUES (?, ?, strftime('%s', 'now'))
		ON CONFLICT(key) DO UPDATE SET
			description = excluded.description,
			updated_at = strftime('%s', 'now')
	`, key, description)
	return err
}

// GetFlags returns the persisted flags bitmask for an item key.
// Returns ErrNotFound when the key has no row.
func (s *Store) GetFlags(ctx context.Context, key string) (uint32, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_flags", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var flags uint32
	err = s.db.QueryRowContext(ctx,
		"SELECT flags FROM items WHERE key = ?", key).Scan(&flags)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return flags, nil
}

// SetFlags stores the flags bitmask for an item key.
func (s *Store) SetFlags(ctx context.Context, key string, flags uint32) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_flags", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO items (key, flags, updated_at) VALUES (?, ?, strftime('%s', 'now'))
		ON CONFLICT(key) DO UPDATE SET
			flags = excluded.flags,
			updated_at = strftime('%s', 'now')
	`, key, flags)
	return err
}

// GetMetadata retrieves a bookmark-level metadata value by key.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetMetadata sets a bookmark-level metadata key-value pair.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// Batch is one open multi-item write transaction. Each batch carries its own
// start time, so overlapping batches report their durations independently.
type Batch struct {
	tx      *sql.Tx
	started time.Time
}

// BeginBatch starts a transaction for multi-field writes.
// The caller is responsible for calling EndBatch when done.
func (s *Store) BeginBatch() (*Batch, error) {
	// Transaction lifetime is managed by EndBatch, not a timeout context.
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return nil, err
	}
	return &Batch{tx: tx, started: time.Now()}, nil
}

// EndBatch commits or rolls back a batch.
func (s *Store) EndBatch(b *Batch, err error) error {
	duration := time.Since(b.started).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		if rbErr := b.tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return b.tx.Commit()
}

// UpsertItem writes a full item row within a batch.
func (s *Store) UpsertItem(b *Batch, key, description string, flags uint32) error {
	_, err := b.tx.ExecContext(context.Background(), `
		INSERT INTO items (key, description, flags, updated_at)
		VALUES (?, ?, ?, strftime('%s', 'now'))
		ON CONFLICT(key) DO UPDATE SET
			description = excluded.description,
			flags = excluded.flags,
			updated_at = strftime('%s', 'now')
	`, key, description, flags)
	return err
}

// Stats summarizes the metadata store contents.
type Stats struct {
	Items      int
	Described  int
	Archived   int
	Favourited int
}

// CalculateStats counts item rows by their stored state. The flag bit values
// match items.MarkedAsArchived / items.MarkedAsFavourite.
func (s *Store) CalculateStats(ctx context.Context, archivedBit, favouriteBit uint32) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var stats Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN description IS NOT NULL AND description != '' THEN 1 END),
			COUNT(CASE WHEN flags & ? != 0 THEN 1 END),
			COUNT(CASE WHEN flags & ? != 0 THEN 1 END)
		FROM items
	`, archivedBit, favouriteBit).Scan(&stats.Items, &stats.Described, &stats.Archived, &stats.Favourited)
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// recordQuery records metadata store query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}
