package splatsort

import "github.com/chewxy/math32"

// sortBuckets is the quantized counting sort: depths are mapped linearly
// from the frame's [min, max] range onto B buckets, counted per chunk,
// prefix-summed and scattered. Output is stable, ties in ascending index.
// One extreme finite depth stretches the range and coarsens every bucket.
func (s *Sorter) sortBuckets(n, rangeChunks int) {
	lo, hi := s.depthRange(rangeChunks)
	s.lo = float64(lo)
	if hi > lo {
		s.scale = s.top / (float64(hi) - float64(lo))
	} else {
		// Every finite depth equals lo and lands in bucket 0; the scale
		// only has to keep ±Inf on their sides.
		s.scale = 1
	}

	chunks := s.sortChunks(n)
	s.ensureHist(chunks)

	s.run(n, chunks, s.countFn)
	s.prefix(chunks)
	s.run(n, chunks, s.scatterFn)
}

// bucketOf maps a depth to its bucket. NaN and +Inf map to the last
// bucket, -Inf to the first.
func (s *Sorter) bucketOf(d float32) uint32 {
	if math32.IsNaN(d) {
		return s.maxBucket
	}
	t := (float64(d) - s.lo) * s.scale
	if t >= s.top {
		return s.maxBucket
	}
	if t <= 0 {
		return 0
	}
	return uint32(t)
}

// count fills the chunk's histogram row and caches each splat's bucket.
func (s *Sorter) count(chunk, lo, hi int) {
	row := s.hist[chunk*s.buckets : (chunk+1)*s.buckets]
	clear(row)

	keys := s.keys[lo:hi]
	for i, d := range s.src[lo:hi] {
		k := s.bucketOf(d)
		keys[i] = k
		row[k]++
	}
}

// prefix turns the per-chunk counts into per-chunk output offsets.
//
// Buckets are laid out in output order; inside a bucket, chunk c starts
// after all earlier chunks. Since chunks cover ascending index ranges,
// the parallel scatter stays stable.
func (s *Sorter) prefix(chunks int) {
	b := s.buckets
	hist := s.hist
	var running uint32

	if s.opts.order == FrontToBack {
		for k := 0; k < b; k++ {
			for c := range chunks {
				i := c*b + k
				cnt := hist[i]
				hist[i] = running
				running += cnt
			}
		}
		return
	}

	for k := b - 1; k >= 0; k-- {
		for c := range chunks {
			i := c*b + k
			cnt := hist[i]
			hist[i] = running
			running += cnt
		}
	}
}

// scatter writes the chunk's indexes to their output slots.
func (s *Sorter) scatter(chunk, lo, hi int) {
	row := s.hist[chunk*s.buckets : (chunk+1)*s.buckets]
	dst := s.dst

	for i, k := range s.keys[lo:hi] {
		dst[row[k]] = uint32(lo + i)
		row[k]++
	}
}
