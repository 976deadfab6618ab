package splatsort

import (
	"log/slog"
	"sync"

	"github.com/gogpu/splatsort/internal/parallel"
)

// Sorter orders splat indexes by view depth.
//
// A Sorter owns the scratch buffers a sort needs (depth buffer, bucket keys,
// histograms) and reuses them across calls, so sorting the same cloud every
// frame does not allocate once the buffers have grown to the cloud size.
//
// Thread safety: a Sorter serializes its own calls. Sort calls on one Sorter
// never run concurrently; give each render thread its own Sorter to sort
// several clouds in parallel.
type Sorter struct {
	mu sync.Mutex

	opts    options
	pool    *parallel.WorkerPool
	ownPool bool

	buckets   int
	maxBucket uint32
	top       float64

	// Scratch, sized by reserve.
	capacity int
	depths   []float32
	keys     []uint32
	tmpIdx   []uint32
	tmpKey   []uint32
	hist     []uint32
	radix    []uint32
	chunkMin [maxChunks]float32
	chunkMax [maxChunks]float32

	// Per-call state read by the chunk functions below. positions is
	// cleared when the call returns so the caller's slice is not retained.
	positions []Position
	forward   Vec3
	origin    Vec3
	src       []float32
	dst       []uint32
	lo        float64
	scale     float64

	// Chunk functions are bound once so dispatching them does not allocate.
	projectFn parallel.RangeFunc
	rangeFn   parallel.RangeFunc
	countFn   parallel.RangeFunc
	scatterFn parallel.RangeFunc
	keyFn     parallel.RangeFunc
}

// New creates a Sorter with the given options.
//
// Example:
//
//	s := splatsort.New()
//	defer s.Close()
//
//	for frame := range frames {
//	    s.Sort(positions, frame.CameraRotation, order)
//	    renderer.Draw(order)
//	}
func New(opts ...Option) *Sorter {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Sorter{
		opts:      o,
		buckets:   1 << o.bucketBits,
		maxBucket: uint32(1<<o.bucketBits) - 1,
		top:       float64(int(1) << o.bucketBits),
	}

	switch {
	case o.workers == 1:
		// serial
	case o.workers > 1:
		s.pool = parallel.NewWorkerPool(o.workers)
		s.ownPool = true
		s.log().Info("splatsort: worker pool created", "workers", o.workers)
	default:
		s.pool = parallel.Default()
	}

	s.projectFn = s.project
	s.rangeFn = s.reduceRange
	s.countFn = s.count
	s.scatterFn = s.scatter
	s.keyFn = s.radixKeys

	if o.capacity > 0 {
		s.reserve(o.capacity)
	}
	return s
}

// Sort writes into depthIndex[:len(positions)] the indexes of positions
// ordered by depth as seen from a camera with the given orientation.
//
// orientation must be a unit quaternion. Splats with equal depth keep
// ascending index order. Non-finite depths sort as the farthest (NaN, +Inf)
// or nearest (-Inf) splats without disturbing the others.
//
// Sort panics with a *PreconditionError if depthIndex is shorter than
// positions.
func (s *Sorter) Sort(positions []Position, orientation Quat, depthIndex []uint32) {
	s.SortFrom(positions, Camera{Orientation: orientation}, depthIndex)
}

// SortFrom is like Sort but takes a full camera. The camera position is
// used by MetricDistance; MetricForward ignores it since a translation
// shifts all depths equally.
func (s *Sorter) SortFrom(positions []Position, cam Camera, depthIndex []uint32) {
	n := len(positions)
	mustSizes("Sort", n, n, len(depthIndex))
	if n == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reserve(n)
	s.forward = cam.Orientation.Rotate(s.opts.axis)
	s.origin = cam.Position
	s.positions = positions
	s.src = s.depths[:n]

	chunks := s.projectChunks(n)
	s.run(n, chunks, s.projectFn)
	s.positions = nil

	s.sortSrc(n, chunks, depthIndex[:n])
}

// SortDepths orders precomputed depths, for callers that project on the
// GPU or elsewhere. It writes depthIndex[:len(depths)].
//
// SortDepths panics with a *PreconditionError if depthIndex is shorter
// than depths.
func (s *Sorter) SortDepths(depths []float32, depthIndex []uint32) {
	n := len(depths)
	mustSizes("SortDepths", n, n, len(depthIndex))
	if n == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reserve(n)
	s.src = depths

	chunks := s.projectChunks(n)
	if !s.opts.exact {
		s.run(n, chunks, s.rangeFn)
	}

	s.sortSrc(n, chunks, depthIndex[:n])
	s.src = nil
}

// sortSrc orders s.src into dst. rangeChunks is the number of valid
// chunkMin/chunkMax entries.
func (s *Sorter) sortSrc(n, rangeChunks int, dst []uint32) {
	if n == 1 {
		dst[0] = 0
		return
	}

	s.dst = dst
	if s.opts.exact {
		s.sortExact(n)
	} else {
		s.sortBuckets(n, rangeChunks)
	}
	s.dst = nil
}

// Reserve grows the scratch buffers to hold at least n splats.
// Growth is geometric; previous buffer contents are discarded.
func (s *Sorter) Reserve(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserve(n)
}

// Reset releases all scratch buffers. The next sort allocates again.
func (s *Sorter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.depths = nil
	s.keys = nil
	s.tmpIdx = nil
	s.tmpKey = nil
	s.hist = nil
	s.radix = nil
	s.capacity = 0
}

// Capacity returns the number of splats the scratch buffers hold.
func (s *Sorter) Capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capacity
}

// Order returns the configured output direction.
func (s *Sorter) Order() Order {
	return s.opts.order
}

// Buckets returns the bucket count of the quantized sort.
func (s *Sorter) Buckets() int {
	return s.buckets
}

// Close releases the sorter's own worker pool, if it has one.
// A closed Sorter still sorts, on the calling goroutine.
func (s *Sorter) Close() {
	if s.ownPool {
		s.pool.Close()
	}
}

func (s *Sorter) reserve(n int) {
	if n > s.capacity {
		newCap := max(n, 2*s.capacity)
		s.depths = make([]float32, newCap)
		s.keys = make([]uint32, newCap)
		if s.opts.exact {
			s.tmpIdx = make([]uint32, newCap)
			s.tmpKey = make([]uint32, newCap)
		}
		s.log().Debug("splatsort: scratch grown",
			"from", s.capacity,
			"to", newCap,
			"exact", s.opts.exact)
		s.capacity = newCap
	}

	if s.opts.exact {
		if s.radix == nil {
			s.radix = make([]uint32, radixBuckets)
		}
	} else {
		s.ensureHist(s.sortChunks(n))
	}
}

func (s *Sorter) log() *slog.Logger {
	if s.opts.logger != nil {
		return s.opts.logger
	}
	return Logger()
}

func (s *Sorter) ensureHist(chunks int) {
	need := chunks * s.buckets
	if len(s.hist) >= need {
		return
	}
	s.hist = make([]uint32, need)
	s.log().Debug("splatsort: histogram grown",
		"chunks", chunks,
		"buckets", s.buckets)
}

func (s *Sorter) run(n, chunks int, fn parallel.RangeFunc) {
	if s.pool == nil {
		parallel.Serial(n, chunks, fn)
		return
	}
	s.pool.For(n, chunks, fn)
}

// projectChunks returns the chunk count for the projection and range passes.
func (s *Sorter) projectChunks(n int) int {
	if s.pool == nil || n < ParallelThreshold {
		return 1
	}
	return parallel.Chunks(n, ParallelThreshold/4, min(maxChunks, 2*s.pool.Workers()))
}

// sortChunks returns the chunk count for the counting passes. Each chunk
// carries a full histogram, so chunks are never smaller than the table.
func (s *Sorter) sortChunks(n int) int {
	if s.pool == nil || n < ParallelThreshold {
		return 1
	}
	return parallel.Chunks(n, max(ParallelThreshold/4, s.buckets), min(maxChunks, s.pool.Workers()))
}
