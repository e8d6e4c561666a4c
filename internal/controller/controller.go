// Package controller drives the browsing session: it owns the item store,
// the filter proxy and the worker pools, and decides which visible rows
// still need async enrichment.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bookmarks-browser/internal/filter"
	"bookmarks-browser/internal/items"
	"bookmarks-browser/internal/logging"
	"bookmarks-browser/internal/media"
	"bookmarks-browser/internal/scanner"
	"bookmarks-browser/internal/store"
	"bookmarks-browser/internal/workers"
)

const (
	// DefaultQueueCap bounds one queue-visible walk. Pathological row-height
	// and viewport combinations otherwise enqueue the whole store.
	DefaultQueueCap = 999

	// DefaultSettle is the scroll debounce: enrichment is requested once the
	// view stops moving, not on every scroll tick.
	DefaultSettle = 100 * time.Millisecond
)

// Metadata is the per-bookmark metadata store surface the controller needs.
type Metadata interface {
	GetFlags(ctx context.Context, key string) (uint32, error)
	SetFlags(ctx context.Context, key string, flags uint32) error
	GetDescription(ctx context.Context, key string) (string, error)
	SetDescription(ctx context.Context, key, description string) error
}

// Settings is the local user-settings surface the controller needs.
type Settings interface {
	IsFavourite(path string) bool
	SetFavourite(path string, on bool) error
	SaveFilter(namespace, taskFolder string, state filter.State) error
	LoadFilter(namespace, taskFolder string) (filter.State, error)
	SaveSort(namespace, taskFolder string, role items.SortRole, ascending bool) error
	LoadSort(namespace, taskFolder string) (items.SortRole, bool, error)
}

// Config assembles a controller.
type Config struct {
	// Namespace keys persisted view state (sort, filter) in the settings
	// store, one namespace per list kind.
	Namespace string

	Scanner   *scanner.Scanner
	Metadata  Metadata
	Settings  Settings
	Generator *media.Generator

	InfoWorkers      int
	ThumbnailWorkers int
	QueueCap         int
	Settle           time.Duration
}

// Controller is the non-visual core of one list: store, filter, pools and
// the visible-row scheduling that feeds them.
type Controller struct {
	namespace string
	scanner   *scanner.Scanner
	metadata  Metadata
	settings  Settings

	store *store.Store
	proxy *filter.Proxy

	info   *workers.Pool
	thumbs *workers.Pool

	updates  chan items.RowID
	queueCap int
	settle   time.Duration

	mu       sync.Mutex
	visible  []*items.Record // filtered snapshot, in store order
	top      int
	count    int
	debounce *time.Timer
	sinks    []func(items.RowID)

	// Watcher state; the watcher follows the current task folder across
	// SetTaskFolder calls.
	watchCtx    context.Context
	watchSettle time.Duration
	watchPoll   time.Duration
	watchCancel context.CancelFunc
	watchDir    string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New assembles a controller. It does not start any goroutines; call Start.
func New(cfg Config) *Controller {
	if cfg.QueueCap <= 0 {
		cfg.QueueCap = DefaultQueueCap
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	if cfg.InfoWorkers <= 0 {
		cfg.InfoWorkers = workers.ForIO(8)
	}
	if cfg.ThumbnailWorkers <= 0 {
		cfg.ThumbnailWorkers = workers.ForMixed(8)
	}

	c := &Controller{
		namespace: cfg.Namespace,
		scanner:   cfg.Scanner,
		metadata:  cfg.Metadata,
		settings:  cfg.Settings,
		proxy:     filter.NewProxy(),
		updates:   make(chan items.RowID, 256),
		queueCap:  cfg.QueueCap,
		settle:    cfg.Settle,
	}

	persistence := store.Persistence{}
	if cfg.Metadata != nil {
		persistence.Flags = cfg.Metadata
	}
	if cfg.Settings != nil {
		persistence.Favourites = cfg.Settings
	}
	c.store = store.NewStore(persistence)

	var descriptions workers.DescriptionReader
	if cfg.Metadata != nil {
		descriptions = cfg.Metadata
	}
	c.info = workers.NewPool(workers.NewInfoProcessor(descriptions), cfg.InfoWorkers, c.updates)
	c.thumbs = workers.NewPool(workers.NewThumbnailProcessor(cfg.Generator), cfg.ThumbnailWorkers, c.updates)
	return c
}

// Store exposes the underlying item store.
func (c *Controller) Store() *store.Store { return c.store }

// Proxy exposes the filter proxy.
func (c *Controller) Proxy() *filter.Proxy { return c.proxy }

// Start launches the worker pools and the repaint fan-out.
func (c *Controller) Start(ctx context.Context) {
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.info.Start(c.ctx)
	c.thumbs.Start(c.ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case id := <-c.updates:
				c.emit(id)
			case <-c.ctx.Done():
				return
			}
		}
	}()
}

// Stop drains the pools and stops the fan-out and the watcher.
func (c *Controller) Stop() {
	c.stopDebounce()
	c.info.Stop()
	c.thumbs.Stop()
	c.mu.Lock()
	if c.watchCancel != nil {
		c.watchCancel()
	}
	c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// RegisterRepaintSink adds a callback invoked with an item identity after
// any async field update. The rendering layer is the intended consumer.
func (c *Controller) RegisterRepaintSink(sink func(items.RowID)) {
	c.mu.Lock()
	c.sinks = append(c.sinks, sink)
	c.mu.Unlock()
}

func (c *Controller) emit(id items.RowID) {
	c.mu.Lock()
	sinks := append([]func(items.RowID)(nil), c.sinks...)
	c.mu.Unlock()
	for _, sink := range sinks {
		sink(id)
	}
}

// SetTaskFolder switches folders with the full reset choreography: stop the
// debounce so no new enqueues race the rebuild, drop both queues, rebuild,
// then re-request enrichment for whatever is visible.
func (c *Controller) SetTaskFolder(name string) error {
	c.stopDebounce()
	c.info.Reset()
	c.thumbs.Reset()

	c.store.SetTaskFolder(name)
	c.startWatcher()
	c.restoreViewState(name)
	if err := c.reload(); err != nil {
		return err
	}
	c.QueueVisible()
	return nil
}

// Watch observes the current task folder and refreshes when its contents
// settle. The watcher follows SetTaskFolder: switching folders re-points it
// at the new directory. Runs until ctx is cancelled or Stop is called.
func (c *Controller) Watch(ctx context.Context, settle, pollInterval time.Duration) {
	c.mu.Lock()
	c.watchCtx = ctx
	c.watchSettle = settle
	c.watchPoll = pollInterval
	c.mu.Unlock()
	c.startWatcher()
}

// startWatcher launches a watcher goroutine for the current task folder,
// cancelling any previous one. A no-op until Watch has been called.
func (c *Controller) startWatcher() {
	c.mu.Lock()
	if c.watchCtx == nil {
		c.mu.Unlock()
		return
	}
	if c.watchCancel != nil {
		c.watchCancel()
	}
	wctx, cancel := context.WithCancel(c.watchCtx)
	c.watchCancel = cancel

	dir := c.scanner.TaskFolderPath(c.store.TaskFolder())
	c.watchDir = dir
	settle, interval := c.watchSettle, c.watchPoll
	c.mu.Unlock()

	w := scanner.NewWatcher(dir, settle, interval, func() {
		if err := c.Refresh(); err != nil {
			logging.Error("Refresh after filesystem change failed: %v", err)
		}
	})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		w.Run(wctx)
	}()
}

func (c *Controller) watchedDir() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.watchDir
}

// Refresh rebuilds the current task folder with the same choreography.
func (c *Controller) Refresh() error {
	c.stopDebounce()
	c.info.Reset()
	c.thumbs.Reset()

	if err := c.reload(); err != nil {
		return err
	}
	c.QueueVisible()
	return nil
}

// reload rediscovers the current task folder and cross-references persisted
// flags and favourites onto the fresh records.
func (c *Controller) reload() error {
	task := c.store.TaskFolder()
	err := c.store.ResetAndReload(func() ([]*items.Record, []*items.Record, error) {
		files, sequences, err := c.scanner.Scan(task)
		if err != nil {
			return nil, nil, err
		}
		c.applyPersistedState(files)
		c.applyPersistedState(sequences)
		return files, sequences, nil
	})
	if err != nil {
		return fmt.Errorf("reloading %q: %w", task, err)
	}

	c.store.MarkLoaded(items.FileItem)
	c.store.MarkLoaded(items.SequenceItem)
	c.Invalidate()
	return nil
}

func (c *Controller) applyPersistedState(records []*items.Record) {
	for _, r := range records {
		flags := r.Flags()
		if c.metadata != nil {
			if stored, err := c.metadata.GetFlags(context.Background(), r.Path); err == nil {
				// The metadata store only owns the archived bit; favourite
				// state is resolved from settings below and active never
				// survives a reload.
				flags = flags.With(items.MarkedAsArchived,
					items.Flags(stored).Has(items.MarkedAsArchived))
			}
		}
		if c.settings != nil && c.settings.IsFavourite(r.Path) {
			flags = flags.With(items.MarkedAsFavourite, true)
		}
		r.ReplaceFlags(flags)
	}
}

// restoreViewState loads the persisted sort and filter for a task folder.
func (c *Controller) restoreViewState(task string) {
	if c.settings == nil {
		return
	}
	if role, ascending, err := c.settings.LoadSort(c.namespace, task); err == nil {
		c.store.Sort(role, ascending)
	}
	if state, err := c.settings.LoadFilter(c.namespace, task); err == nil {
		c.proxy.SetState(state)
	}
}

// ToggleFlag applies a flag through the store's authoritative path and
// refreshes the filtered snapshot, since a toggle can hide or reveal rows.
func (c *Controller) ToggleFlag(ctx context.Context, r *items.Record, flag items.Flags, desired *bool) (bool, error) {
	got, err := c.store.ToggleFlag(ctx, r, flag, desired)
	if err != nil {
		return got, err
	}
	c.Invalidate()
	c.emit(r.RowID())
	return got, nil
}

// SaveDescription writes through to the metadata store first; the in-memory
// record only changes once the write succeeded.
func (c *Controller) SaveDescription(ctx context.Context, r *items.Record, description string) error {
	if c.metadata != nil {
		if err := c.metadata.SetDescription(ctx, r.Path, description); err != nil {
			return fmt.Errorf("saving description for %s: %w", r.Path, err)
		}
	}
	r.SetDescription(description)
	c.emit(r.RowID())
	return nil
}

// SetFilter replaces the filter state, persists it and recomputes the
// filtered snapshot.
func (c *Controller) SetFilter(state filter.State) {
	c.proxy.SetState(state)
	if c.settings != nil {
		if err := c.settings.SaveFilter(c.namespace, c.store.TaskFolder(), state); err != nil {
			logging.Warn("Failed to persist filter state: %v", err)
		}
	}
	c.Invalidate()
	c.QueueVisible()
}

// SetSort re-sorts the store, persists the choice and recomputes the
// filtered snapshot.
func (c *Controller) SetSort(role items.SortRole, ascending bool) {
	c.store.Sort(role, ascending)
	if c.settings != nil {
		if err := c.settings.SaveSort(c.namespace, c.store.TaskFolder(), role, ascending); err != nil {
			logging.Warn("Failed to persist sort state: %v", err)
		}
	}
	c.Invalidate()
	c.QueueVisible()
}

// Invalidate recomputes the filtered snapshot from the store.
func (c *Controller) Invalidate() {
	records := c.store.CurrentRecords()
	visible := make([]*items.Record, 0, len(records))
	for _, r := range records {
		if c.proxy.Accepts(r) {
			visible = append(visible, r)
		}
	}

	c.mu.Lock()
	c.visible = visible
	c.mu.Unlock()
}

// Visible returns the current filtered snapshot.
func (c *Controller) Visible() []*items.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*items.Record(nil), c.visible...)
}

// SetViewport records which slice of the filtered rows is on screen and
// schedules a debounced queue-visible pass.
func (c *Controller) SetViewport(top, count int) {
	c.mu.Lock()
	c.top = top
	c.count = count

	if c.debounce == nil {
		c.debounce = time.AfterFunc(c.settle, c.QueueVisible)
	} else {
		c.debounce.Reset(c.settle)
	}
	c.mu.Unlock()
}

func (c *Controller) stopDebounce() {
	c.mu.Lock()
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.mu.Unlock()
}

// QueueVisible walks the on-screen slice of the filtered snapshot and
// enqueues every record whose enrichment is still missing. If the walk meets
// an archived row while archived rows are hidden, the snapshot is stale: it
// is recomputed and the walk restarted once against the fresh rows rather
// than queueing rows about to disappear.
func (c *Controller) QueueVisible() { c.queueVisible(true) }

func (c *Controller) queueVisible(retry bool) {
	c.mu.Lock()
	visible := c.visible
	top, count := c.top, c.count
	c.mu.Unlock()

	if len(visible) == 0 {
		return
	}
	if top < 0 {
		top = 0
	}
	if count <= 0 || count > c.queueCap {
		count = c.queueCap
	}

	hideArchived := !c.proxy.State().ShowArchived

	var infoWork, thumbWork []store.Handle
	for i := top; i < len(visible) && i < top+count; i++ {
		r := visible[i]

		if hideArchived && r.Flags().Has(items.MarkedAsArchived) {
			logging.Debug("Visible set stale at row %d, invalidating", i)
			c.Invalidate()
			if retry {
				c.queueVisible(false)
			}
			return
		}

		if !r.FileInfoLoaded() {
			infoWork = append(infoWork, c.store.HandleFor(r))
		}
		if !r.ThumbnailLoaded() {
			thumbWork = append(thumbWork, c.store.HandleFor(r))
		}
	}

	for _, h := range infoWork {
		c.info.Enqueue(h)
	}
	for _, h := range thumbWork {
		c.thumbs.Enqueue(h)
	}
}
