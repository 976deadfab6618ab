package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// RangeFunc processes the half-open index range [lo, hi) belonging to chunk.
//
// Chunks are numbered 0..chunks-1 in index order, so callers can keep
// per-chunk state (histograms, partial reductions) in a slice indexed by chunk.
type RangeFunc func(chunk, lo, hi int)

// job is one chunk of a For call. It is sent by value so that dispatching
// work does not allocate.
type job struct {
	fn    RangeFunc
	chunk int
	lo    int
	hi    int
}

// WorkerPool is a pool of goroutines for data-parallel range processing.
//
// The pool distributes chunks across multiple workers, each with their own
// queue. Workers can steal work from other workers when their own queue is empty.
// This helps balance load when some chunks land on a busy core.
//
// Thread safety: WorkerPool is safe for concurrent use. Concurrent For calls
// are serialized.
type WorkerPool struct {
	// workers is the number of worker goroutines.
	workers int

	// workQueues holds per-worker work queues.
	// Each worker primarily pulls from its own queue but can steal from others.
	workQueues []chan job

	// done signals workers to stop.
	done chan struct{}

	// wg waits for all workers to finish.
	wg sync.WaitGroup

	// running indicates whether the pool is accepting work.
	running atomic.Bool

	// runMu serializes For calls so that pending tracks exactly one call.
	runMu   sync.Mutex
	pending sync.WaitGroup
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
// The pool starts immediately and workers begin waiting for work.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Buffer size: 2-4x workers helps hide latency
	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan job, workers),
		done:       make(chan struct{}),
	}

	for i := range workers {
		p.workQueues[i] = make(chan job, queueSize)
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

var (
	defaultOnce sync.Once
	defaultPool *WorkerPool
)

// Default returns the process-wide shared pool with GOMAXPROCS workers.
// It is created on first use and never closed.
func Default() *WorkerPool {
	defaultOnce.Do(func() {
		defaultPool = NewWorkerPool(0)
	})
	return defaultPool
}

// worker is the main loop for each worker goroutine.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	myQueue := p.workQueues[id]

	for {
		select {
		case <-p.done:
			p.drainQueue(myQueue)
			return

		case j := <-myQueue:
			p.run(j)

		default:
			if stolen, ok := p.steal(id); ok {
				p.run(stolen)
			} else {
				// No work available anywhere, block on own queue
				select {
				case <-p.done:
					p.drainQueue(myQueue)
					return
				case j := <-myQueue:
					p.run(j)
				}
			}
		}
	}
}

func (p *WorkerPool) run(j job) {
	defer p.pending.Done()
	j.fn(j.chunk, j.lo, j.hi)
}

// drainQueue executes all remaining work in a queue.
func (p *WorkerPool) drainQueue(queue chan job) {
	for {
		select {
		case j := <-queue:
			p.run(j)
		default:
			return
		}
	}
}

// steal attempts to take work from another worker's queue.
func (p *WorkerPool) steal(myID int) (job, bool) {
	for i := range p.workers {
		if i == myID {
			continue
		}

		select {
		case j := <-p.workQueues[i]:
			return j, true
		default:
		}
	}
	return job{}, false
}

// For splits [0, n) into chunks contiguous ranges (see Bounds), runs fn on
// each of them and waits for all to complete.
//
// Chunk 0 runs on the calling goroutine. If the pool is closed, every chunk
// runs on the calling goroutine in order, so For always completes the work.
// fn must not call For on the same pool.
func (p *WorkerPool) For(n, chunks int, fn RangeFunc) {
	if n <= 0 || fn == nil {
		return
	}
	if chunks < 1 {
		chunks = 1
	}
	if chunks > n {
		chunks = n
	}

	if chunks == 1 {
		Serial(n, chunks, fn)
		return
	}

	p.runMu.Lock()
	defer p.runMu.Unlock()

	if !p.running.Load() {
		Serial(n, chunks, fn)
		return
	}

	p.pending.Add(chunks - 1)
	for c := 1; c < chunks; c++ {
		lo, hi := Bounds(n, chunks, c)
		p.workQueues[c%p.workers] <- job{fn: fn, chunk: c, lo: lo, hi: hi}
	}

	lo, hi := Bounds(n, chunks, 0)
	fn(0, lo, hi)

	p.pending.Wait()
}

// Serial runs fn over the same chunk layout as For, sequentially on the
// calling goroutine.
func Serial(n, chunks int, fn RangeFunc) {
	if n <= 0 || fn == nil {
		return
	}
	if chunks < 1 {
		chunks = 1
	}
	if chunks > n {
		chunks = n
	}
	for c := range chunks {
		lo, hi := Bounds(n, chunks, c)
		fn(c, lo, hi)
	}
}

// Bounds returns the half-open range of chunk c when [0, n) is split into
// chunks nearly equal contiguous pieces. Earlier chunks take the remainder.
func Bounds(n, chunks, c int) (lo, hi int) {
	size := n / chunks
	rem := n % chunks
	lo = c*size + min(c, rem)
	hi = lo + size
	if c < rem {
		hi++
	}
	return lo, hi
}

// Chunks returns how many chunks to split n items into so that every chunk
// holds at least grain items, capped at maxChunks. It returns at least 1.
func Chunks(n, grain, maxChunks int) int {
	if grain < 1 {
		grain = 1
	}
	c := n / grain
	if c > maxChunks {
		c = maxChunks
	}
	if c < 1 {
		c = 1
	}
	return c
}

// Close gracefully shuts down the pool.
// It waits for an in-flight For to complete and then stops all workers.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	p.runMu.Lock()
	defer p.runMu.Unlock()

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

// IsRunning returns true if the pool is still accepting work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}
