package splatsort

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/splatsort/internal/wide"
)

// project computes depths for positions[lo:hi] into s.depths and records the
// finite depth range of the chunk.
func (s *Sorter) project(chunk, lo, hi int) {
	pos := s.positions
	depths := s.depths
	f := s.forward
	o := s.origin
	distance := s.opts.metric == MetricDistance

	// Every depth goes through the lane path, including the tail, so a
	// splat gets the same bits whichever chunk it falls in.
	var batch wide.Vec3x8
	for i := lo; i < hi; i += wide.Lanes {
		end := min(i+wide.Lanes, hi)
		if end-i < wide.Lanes {
			batch = wide.Vec3x8{}
		}
		for l, p := range pos[i:end] {
			batch.Set(l, p.X, p.Y, p.Z)
		}
		var d wide.F32x8
		if distance {
			d = batch.DistSq(o.X, o.Y, o.Z)
		} else {
			d = batch.Dot(f.X, f.Y, f.Z)
		}
		copy(depths[i:end], d[:end-i])
	}

	s.reduceRange(chunk, lo, hi)
}

// reduceRange records the smallest and largest finite value of s.src[lo:hi].
// A chunk without finite values records +Inf/-Inf.
func (s *Sorter) reduceRange(chunk, lo, hi int) {
	posInf, negInf := math32.Inf(1), math32.Inf(-1)
	mnv, mxv := wide.SplatF32(posInf), wide.SplatF32(negInf)
	var lmin, lmax wide.F32x8
	for i := lo; i < hi; i += wide.Lanes {
		end := min(i+wide.Lanes, hi)
		lmin, lmax = mnv, mxv
		for l, d := range s.src[i:end] {
			if finite(d) {
				lmin[l], lmax[l] = d, d
			}
		}
		mnv = mnv.Min(lmin)
		mxv = mxv.Max(lmax)
	}

	mn, mx := posInf, negInf
	for l := range wide.Lanes {
		mn = min(mn, mnv[l])
		mx = max(mx, mxv[l])
	}
	s.chunkMin[chunk] = mn
	s.chunkMax[chunk] = mx
}

// depthRange merges the per-chunk ranges. Without any finite depth it
// returns (0, 0).
func (s *Sorter) depthRange(chunks int) (lo, hi float32) {
	lo, hi = math32.Inf(1), math32.Inf(-1)
	for c := range chunks {
		lo = min(lo, s.chunkMin[c])
		hi = max(hi, s.chunkMax[c])
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}
