package splatsort

import "sync"

// sorters hands out Sorters to SortSplatIndexes callers. Each caller gets
// its own scratch buffers; idle Sorters are reclaimed by the GC.
var sorters = sync.Pool{
	New: func() any { return New() },
}

// SortSplatIndexes writes into depthIndex the indexes 0..vertexCount-1 of
// positions, ordered back to front for a camera with orientation
// (qx, qy, qz, qw).
//
// This is the flat entry point matching the native sortSplatIndexes
// function. It uses the default configuration: MetricForward along
// CanonicalForward, BackToFront, 2^16 buckets. Use a Sorter for any other
// configuration or to keep scratch buffers bound to one render loop.
//
// The quaternion must be normalized. len(positions) must equal vertexCount
// and depthIndex must hold at least vertexCount entries, otherwise
// SortSplatIndexes panics with a *PreconditionError. vertexCount == 0 is a
// no-op.
func SortSplatIndexes(positions []Position, vertexCount uint32, qx, qy, qz, qw float32, depthIndex []uint32) {
	n := int(vertexCount)
	mustSizes("SortSplatIndexes", n, len(positions), len(depthIndex))
	if n == 0 {
		return
	}

	s := sorters.Get().(*Sorter)
	s.Sort(positions, Quat{X: qx, Y: qy, Z: qz, W: qw}, depthIndex[:n])
	sorters.Put(s)
}
