// Package workers runs the per-item enrichment passes off the caller's
// goroutine: file info and thumbnails, best effort. Lost work is acceptable;
// corrupted shared state is not.
package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"bookmarks-browser/internal/items"
	"bookmarks-browser/internal/logging"
	"bookmarks-browser/internal/metrics"
	"bookmarks-browser/internal/store"
)

// Processor is one enrichment pass over a record. Process must be total:
// failures convert to sentinel values and a latched loaded flag inside the
// processor, never an error to the pool.
type Processor interface {
	// Role names the pass for logging and metrics.
	Role() string
	// Loaded reports whether the pass already completed for this record.
	Loaded(r *items.Record) bool
	// Process performs the pass and latches the record's loaded flag.
	Process(ctx context.Context, r *items.Record)
}

// Pool runs a fixed set of workers for one processor. Each worker consumes
// its own FIFO queue; assignment round-robins across workers at enqueue time.
// Reset drops everything still queued but lets in-flight items finish, which
// caps reset latency at one item's processing time.
type Pool struct {
	processor Processor
	updates   chan<- items.RowID

	workers []*worker
	next    atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a pool of size workers. Completed items are announced on
// updates so the owning model can repaint the row.
func NewPool(processor Processor, size int, updates chan<- items.RowID) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{processor: processor, updates: updates}
	for i := 0; i < size; i++ {
		p.workers = append(p.workers, newWorker())
	}
	return p
}

// Start launches the worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *worker) {
			defer p.wg.Done()
			p.run(w)
		}(w)
	}
	logging.Debug("Started %d %s workers", len(p.workers), p.processor.Role())
}

// Stop drops all pending work and waits for in-flight items to finish.
func (p *Pool) Stop() {
	p.Reset()
	if p.cancel != nil {
		p.cancel()
	}
	for _, w := range p.workers {
		w.close()
	}
	p.wg.Wait()
}

// Enqueue assigns a handle to the next worker, round-robin.
func (p *Pool) Enqueue(h store.Handle) {
	i := int(p.next.Add(1)-1) % len(p.workers)
	p.workers[i].push(h)
	metrics.WorkerQueueDepth.WithLabelValues(p.processor.Role()).Set(float64(p.Pending()))
}

// Reset discards every queued entry on every worker. In-flight entries are
// not interrupted.
func (p *Pool) Reset() {
	for _, w := range p.workers {
		w.drain()
	}
	metrics.WorkerQueueResets.WithLabelValues(p.processor.Role()).Inc()
	metrics.WorkerQueueDepth.WithLabelValues(p.processor.Role()).Set(0)
}

// Pending returns the number of queued, not yet in-flight entries.
func (p *Pool) Pending() int {
	n := 0
	for _, w := range p.workers {
		n += w.pendingLen()
	}
	return n
}

func (p *Pool) run(w *worker) {
	role := p.processor.Role()
	for {
		h, ok := w.pop()
		if !ok {
			return
		}
		metrics.WorkerQueueDepth.WithLabelValues(role).Set(float64(p.Pending()))

		r, live := h.Resolve()
		if !live {
			// The store was rebuilt out from under this entry.
			metrics.WorkerItemsProcessed.WithLabelValues(role, "stale").Inc()
			continue
		}
		if p.processor.Loaded(r) {
			metrics.WorkerItemsProcessed.WithLabelValues(role, "already_loaded").Inc()
			continue
		}

		start := time.Now()
		p.process(r)
		metrics.WorkerProcessDuration.WithLabelValues(role).Observe(time.Since(start).Seconds())

		p.announce(r.RowID())
	}
}

// process isolates one item's pass; a panic is logged and contained so one
// pathological file never takes a worker down.
func (p *Pool) process(r *items.Record) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Error("%s worker panic on %s: %v", p.processor.Role(), r.Path, rec)
			metrics.WorkerItemsProcessed.WithLabelValues(p.processor.Role(), "panic").Inc()
			return
		}
		metrics.WorkerItemsProcessed.WithLabelValues(p.processor.Role(), "success").Inc()
	}()
	p.processor.Process(p.ctx, r)
}

func (p *Pool) announce(id items.RowID) {
	if p.updates == nil {
		return
	}
	select {
	case p.updates <- id:
	case <-p.ctx.Done():
	}
}

// worker is one FIFO queue plus the goroutine draining it.
type worker struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []store.Handle
	closed  bool
}

func newWorker() *worker {
	w := &worker{}
	w.cond = sync.NewCond(&w.mu)
	return w
}

func (w *worker) push(h store.Handle) {
	w.mu.Lock()
	if !w.closed {
		w.pending = append(w.pending, h)
	}
	w.mu.Unlock()
	w.cond.Signal()
}

func (w *worker) pop() (store.Handle, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.pending) == 0 && !w.closed {
		w.cond.Wait()
	}
	if w.closed && len(w.pending) == 0 {
		return store.Handle{}, false
	}
	h := w.pending[0]
	w.pending = w.pending[1:]
	return h, true
}

func (w *worker) drain() {
	w.mu.Lock()
	w.pending = nil
	w.mu.Unlock()
}

func (w *worker) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.cond.Broadcast()
}

func (w *worker) pendingLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
