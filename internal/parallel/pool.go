package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool runs batches of work on a fixed set of goroutines.
//
// Thread safety: WorkerPool is safe for concurrent use. Batches submitted
// from different goroutines share the same workers.
type WorkerPool struct {
	workers int
	work    chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	// batches holds a read lock for every in-flight ExecuteAll so Close
	// waits for them instead of stranding queued work.
	batches sync.RWMutex
}

// NewWorkerPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	p := &WorkerPool{
		workers: workers,
		work:    make(chan func(), workers*4),
		done:    make(chan struct{}),
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	return p
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case fn := <-p.work:
			fn()
		}
	}
}

// ExecuteAll runs every item and waits for all of them to finish.
// On a closed pool the items run on the calling goroutine, so callers
// always observe completed work when ExecuteAll returns.
func (p *WorkerPool) ExecuteAll(work []func()) {
	if len(work) == 0 {
		return
	}

	p.batches.RLock()
	defer p.batches.RUnlock()

	if !p.running.Load() {
		for _, fn := range work {
			fn()
		}
		return
	}

	var batch sync.WaitGroup
	batch.Add(len(work))
	for _, fn := range work {
		p.work <- func() {
			defer batch.Done()
			fn()
		}
	}
	batch.Wait()
}

// Rows splits [0, height) into contiguous bands, at most one per worker and
// each at least minRows tall, and calls fn for every band in parallel.
// Small inputs run inline as a single band.
func (p *WorkerPool) Rows(height, minRows int, fn func(y0, y1 int)) {
	if height <= 0 {
		return
	}
	if minRows < 1 {
		minRows = 1
	}
	bands := min(p.workers, height/minRows)
	if bands <= 1 {
		fn(0, height)
		return
	}

	step := (height + bands - 1) / bands
	work := make([]func(), 0, bands)
	for y0 := 0; y0 < height; y0 += step {
		y1 := min(y0+step, height)
		work = append(work, func() { fn(y0, y1) })
	}
	p.ExecuteAll(work)
}

// Close waits for in-flight batches and stops the workers. Batches submitted
// after Close run on the calling goroutine.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	p.batches.Lock()
	defer p.batches.Unlock()

	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool still dispatches to its workers.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}
